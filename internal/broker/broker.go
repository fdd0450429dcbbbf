// Package broker implements the session-routing and request-arbitration core:
// pending connection requests with first-acceptor-wins resolution, the
// single-active-session invariant per participant, bidirectional message
// routing, and normal plus administrative session termination. All state is
// in-memory and ephemeral; the only external collaborator is a bus.Notifier
// used for best-effort delivery.
package broker

import (
	"context"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/quantumpanel/keybot/internal/bus"
	"github.com/quantumpanel/keybot/internal/registry"
)

// broadcastRate paces bulk fan-out under Telegram's global send limit.
const broadcastRate = 25 // messages per second

// Policy carries the arbitration knobs that the source left implicit.
type Policy struct {
	// SellersMayAccept lets plain sellers claim pending requests. The
	// original restricts accepting to admins even though sellers receive
	// the alert button; false preserves that behavior.
	SellersMayAccept bool

	// CreditForcedStops updates seller stats on administrative force-stop.
	// The original credits only seller-initiated stops; false preserves
	// that distinction.
	CreditForcedStops bool
}

// Broker wires the session store, the registry, and the transport together.
type Broker struct {
	store    *Store
	registry *registry.Registry
	notifier bus.Notifier
	policy   Policy
	limiter  *rate.Limiter
}

// New creates a broker with an empty session store.
func New(reg *registry.Registry, notifier bus.Notifier, policy Policy) *Broker {
	return &Broker{
		store:    NewStore(),
		registry: reg,
		notifier: notifier,
		policy:   policy,
		limiter:  rate.NewLimiter(rate.Limit(broadcastRate), broadcastRate),
	}
}

// Store exposes the session store's read surface for panels and exports.
func (b *Broker) Store() *Store { return b.store }

// Registry returns the injected registry.
func (b *Broker) Registry() *registry.Registry { return b.registry }

// notify performs one best-effort delivery. Failures are logged and returned,
// never retried; core state is never rolled back on delivery failure.
func (b *Broker) notify(ctx context.Context, msg bus.Outbound) error {
	if err := b.notifier.Notify(ctx, msg); err != nil {
		slog.Warn("notify failed", "recipient", msg.RecipientID, "error", err)
		return err
	}
	return nil
}
