// Package registry holds the allow-lists the broker consults: admin and
// seller membership, product-to-seller assignments, the buyer blocklist, and
// the global buy toggle. It is constructed once from config and injected into
// the broker; admin operations mutate it at runtime.
package registry

import (
	"sort"
	"sync"
)

// Capability is a bitmask of the roles a participant holds. Every participant
// is implicitly a buyer; admins are implicitly sellers.
type Capability uint8

const (
	CapBuyer Capability = 1 << iota
	CapSeller
	CapAdmin
)

// Has reports whether all bits of want are present.
func (c Capability) Has(want Capability) bool { return c&want == want }

// Product is a sellable key product. A product with no assigned sellers stays
// listed but cannot take new connection requests.
type Product struct {
	Name        string
	Description string
	Image       string
	Sellers     []int64
}

// Seed is the initial registry content, typically decoded from config.
type Seed struct {
	Admins     []int64
	Sellers    []int64
	Products   []Product
	Blocked    []int64
	BuyEnabled bool
}

// Registry is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	admins     map[int64]struct{}
	sellers    map[int64]struct{}
	products   map[string]*productEntry
	blocked    map[int64]struct{}
	buyEnabled bool
}

type productEntry struct {
	description string
	image       string
	sellers     map[int64]struct{}
}

// New builds a registry from seed data.
func New(seed Seed) *Registry {
	r := &Registry{
		admins:     make(map[int64]struct{}),
		sellers:    make(map[int64]struct{}),
		products:   make(map[string]*productEntry),
		blocked:    make(map[int64]struct{}),
		buyEnabled: seed.BuyEnabled,
	}
	r.apply(seed)
	return r
}

// Apply replaces role membership and products with the seed content. The
// blocklist is merged and the buy toggle untouched: both are runtime state,
// and a config reload must not undo admin actions.
func (r *Registry) Apply(seed Seed) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.admins = make(map[int64]struct{})
	r.sellers = make(map[int64]struct{})
	r.products = make(map[string]*productEntry)
	r.apply(seed)
}

func (r *Registry) apply(seed Seed) {
	for _, id := range seed.Admins {
		r.admins[id] = struct{}{}
	}
	for _, id := range seed.Sellers {
		r.sellers[id] = struct{}{}
	}
	for _, p := range seed.Products {
		entry := &productEntry{
			description: p.Description,
			image:       p.Image,
			sellers:     make(map[int64]struct{}),
		}
		for _, id := range p.Sellers {
			entry.sellers[id] = struct{}{}
		}
		r.products[p.Name] = entry
	}
	for _, id := range seed.Blocked {
		r.blocked[id] = struct{}{}
	}
}

// Resolve returns the capability set for a participant.
func (r *Registry) Resolve(id int64) Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cap := CapBuyer
	if _, ok := r.sellers[id]; ok {
		cap |= CapSeller
	}
	if _, ok := r.admins[id]; ok {
		cap |= CapSeller | CapAdmin
	}
	return cap
}

// IsAdmin reports whether id is an admin.
func (r *Registry) IsAdmin(id int64) bool { return r.Resolve(id).Has(CapAdmin) }

// IsSeller reports whether id is a seller (admins count).
func (r *Registry) IsSeller(id int64) bool { return r.Resolve(id).Has(CapSeller) }

// AddSeller grants seller membership.
func (r *Registry) AddSeller(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sellers[id] = struct{}{}
}

// RemoveSeller revokes seller membership and unassigns the seller from every
// product.
func (r *Registry) RemoveSeller(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sellers[id]; !ok {
		return false
	}
	delete(r.sellers, id)
	for _, entry := range r.products {
		delete(entry.sellers, id)
	}
	return true
}

// Sellers returns all seller IDs, sorted.
func (r *Registry) Sellers() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedIDs(r.sellers)
}

// Admins returns all admin IDs, sorted.
func (r *Registry) Admins() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedIDs(r.admins)
}

// Product returns a snapshot of one product.
func (r *Registry) Product(name string) (Product, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.products[name]
	if !ok {
		return Product{}, false
	}
	return r.snapshot(name, entry), true
}

// Products returns snapshots of all products, sorted by name.
func (r *Registry) Products() []Product {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.products))
	for name := range r.products {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Product, 0, len(names))
	for _, name := range names {
		out = append(out, r.snapshot(name, r.products[name]))
	}
	return out
}

// ProductsFor returns the names of products a seller is assigned to, sorted.
func (r *Registry) ProductsFor(sellerID int64) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	for name, entry := range r.products {
		if _, ok := entry.sellers[sellerID]; ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// SellersFor returns the seller IDs assigned to a product, sorted. The second
// return is false when the product does not exist.
func (r *Registry) SellersFor(product string) ([]int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.products[product]
	if !ok {
		return nil, false
	}
	return sortedIDs(entry.sellers), true
}

// AddProduct creates or replaces a product definition. Assigned sellers are
// also granted global seller membership.
func (r *Registry) AddProduct(p Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry := &productEntry{
		description: p.Description,
		image:       p.Image,
		sellers:     make(map[int64]struct{}),
	}
	for _, id := range p.Sellers {
		entry.sellers[id] = struct{}{}
		r.sellers[id] = struct{}{}
	}
	r.products[p.Name] = entry
}

// RemoveProduct deletes a product. Returns false when it does not exist.
func (r *Registry) RemoveProduct(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[name]; !ok {
		return false
	}
	delete(r.products, name)
	return true
}

// AssignSeller adds a seller to a product (and to the global seller list).
// Returns false when the product does not exist.
func (r *Registry) AssignSeller(product string, sellerID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.products[product]
	if !ok {
		return false
	}
	entry.sellers[sellerID] = struct{}{}
	r.sellers[sellerID] = struct{}{}
	return true
}

// UnassignSeller removes a seller from one product only. Returns false when
// the product does not exist or the seller was not assigned.
func (r *Registry) UnassignSeller(product string, sellerID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.products[product]
	if !ok {
		return false
	}
	if _, ok := entry.sellers[sellerID]; !ok {
		return false
	}
	delete(entry.sellers, sellerID)
	return true
}

// Block adds a buyer to the blocklist. Admins cannot be blocked.
func (r *Registry) Block(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.admins[id]; ok {
		return false
	}
	r.blocked[id] = struct{}{}
	return true
}

// Unblock removes a buyer from the blocklist. Returns false when not blocked.
func (r *Registry) Unblock(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.blocked[id]; !ok {
		return false
	}
	delete(r.blocked, id)
	return true
}

// IsBlocked reports whether a buyer is blocked. Admins are never blocked.
func (r *Registry) IsBlocked(id int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.admins[id]; ok {
		return false
	}
	_, ok := r.blocked[id]
	return ok
}

// Blocked returns the blocklist, sorted.
func (r *Registry) Blocked() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedIDs(r.blocked)
}

// BuyEnabled reports the global buy toggle.
func (r *Registry) BuyEnabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.buyEnabled
}

// SetBuyEnabled flips the global buy toggle.
func (r *Registry) SetBuyEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buyEnabled = enabled
}

func (r *Registry) snapshot(name string, entry *productEntry) Product {
	return Product{
		Name:        name,
		Description: entry.description,
		Image:       entry.image,
		Sellers:     sortedIDs(entry.sellers),
	}
}

func sortedIDs(set map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
