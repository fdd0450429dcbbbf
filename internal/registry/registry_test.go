package registry

import (
	"reflect"
	"testing"
)

func testSeed() Seed {
	return Seed{
		Admins:  []int64{1},
		Sellers: []int64{10, 11},
		Products: []Product{
			{Name: "KOS-8BP", Description: "8 Ball Pool key", Sellers: []int64{10}},
		},
		Blocked:    []int64{99},
		BuyEnabled: true,
	}
}

func TestResolve(t *testing.T) {
	r := New(testSeed())

	tests := []struct {
		name string
		id   int64
		want Capability
	}{
		{"admin implies seller", 1, CapBuyer | CapSeller | CapAdmin},
		{"seller", 10, CapBuyer | CapSeller},
		{"stranger is a buyer", 500, CapBuyer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Resolve(tt.id); got != tt.want {
				t.Errorf("Resolve(%d) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}

	if !r.IsAdmin(1) || r.IsAdmin(10) {
		t.Error("IsAdmin misclassified")
	}
	if !r.IsSeller(1) || !r.IsSeller(10) || r.IsSeller(500) {
		t.Error("IsSeller misclassified")
	}
}

func TestBlocklist(t *testing.T) {
	r := New(testSeed())

	if !r.IsBlocked(99) {
		t.Error("seeded block missing")
	}
	if r.Block(1) {
		t.Error("admin was blocked")
	}
	if !r.Block(500) || !r.IsBlocked(500) {
		t.Error("Block(500) did not stick")
	}
	if !r.Unblock(500) || r.IsBlocked(500) {
		t.Error("Unblock(500) did not stick")
	}
	if r.Unblock(500) {
		t.Error("double unblock reported success")
	}
}

func TestProductAssignment(t *testing.T) {
	r := New(testSeed())

	if !r.AssignSeller("KOS-8BP", 42) {
		t.Fatal("AssignSeller failed")
	}
	// Assignment also grants global seller membership.
	if !r.IsSeller(42) {
		t.Error("assigned seller not in global list")
	}
	if got, ok := r.SellersFor("KOS-8BP"); !ok || !reflect.DeepEqual(got, []int64{10, 42}) {
		t.Errorf("SellersFor = %v ok=%t, want [10 42]", got, ok)
	}

	if r.AssignSeller("NOPE", 42) {
		t.Error("assignment to unknown product succeeded")
	}
	if !r.UnassignSeller("KOS-8BP", 42) {
		t.Error("UnassignSeller failed")
	}
	// Unassigning from one product keeps global membership.
	if !r.IsSeller(42) {
		t.Error("unassign revoked global membership")
	}

	// RemoveSeller sweeps product assignments too.
	if !r.RemoveSeller(10) {
		t.Fatal("RemoveSeller failed")
	}
	if got, _ := r.SellersFor("KOS-8BP"); len(got) != 0 {
		t.Errorf("SellersFor after removal = %v, want empty", got)
	}
}

func TestProductLifecycle(t *testing.T) {
	r := New(testSeed())

	r.AddProduct(Product{Name: "VIP", Description: "VIP access", Sellers: []int64{42}})
	p, ok := r.Product("VIP")
	if !ok || p.Description != "VIP access" {
		t.Errorf("Product(VIP) = %+v ok=%t", p, ok)
	}
	// Adding a product with sellers grants them membership.
	if !r.IsSeller(42) {
		t.Error("product seller not granted membership")
	}

	names := make([]string, 0, 2)
	for _, p := range r.Products() {
		names = append(names, p.Name)
	}
	if !reflect.DeepEqual(names, []string{"KOS-8BP", "VIP"}) {
		t.Errorf("Products() order = %v", names)
	}

	if !r.RemoveProduct("VIP") {
		t.Error("RemoveProduct failed")
	}
	if _, ok := r.Product("VIP"); ok {
		t.Error("removed product still listed")
	}
}

func TestProductsFor(t *testing.T) {
	r := New(testSeed())
	r.AddProduct(Product{Name: "VIP", Sellers: []int64{11}})

	if got := r.ProductsFor(11); !reflect.DeepEqual(got, []string{"VIP"}) {
		t.Errorf("ProductsFor(11) = %v, want [VIP]", got)
	}
	if got := r.ProductsFor(10); !reflect.DeepEqual(got, []string{"KOS-8BP"}) {
		t.Errorf("ProductsFor(10) = %v, want [KOS-8BP]", got)
	}
}

func TestBuyToggle(t *testing.T) {
	r := New(testSeed())
	if !r.BuyEnabled() {
		t.Fatal("seeded toggle should be on")
	}
	r.SetBuyEnabled(false)
	if r.BuyEnabled() {
		t.Error("toggle did not turn off")
	}
}

// Apply replaces roles and products wholesale but merges the blocklist and
// leaves the runtime buy toggle alone.
func TestApply(t *testing.T) {
	r := New(testSeed())
	r.SetBuyEnabled(false)
	r.Block(500)

	r.Apply(Seed{
		Admins:     []int64{2},
		Sellers:    []int64{20},
		Products:   []Product{{Name: "NEW", Sellers: []int64{20}}},
		Blocked:    []int64{77},
		BuyEnabled: true,
	})

	if r.IsAdmin(1) || !r.IsAdmin(2) {
		t.Error("admin set not replaced")
	}
	if r.IsSeller(10) || !r.IsSeller(20) {
		t.Error("seller set not replaced")
	}
	if _, ok := r.Product("KOS-8BP"); ok {
		t.Error("old product survived Apply")
	}
	if !r.IsBlocked(99) || !r.IsBlocked(500) || !r.IsBlocked(77) {
		t.Error("blocklist should merge, not replace")
	}
	if r.BuyEnabled() {
		t.Error("Apply overwrote the runtime buy toggle")
	}
}
