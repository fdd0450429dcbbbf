package broker

import (
	"context"
	"log/slog"
)

// EndSession terminates the session the initiator is party to, seller or
// buyer side (the /stop and End Chat paths). ErrNoActiveSession when the
// initiator holds no session. Index removal, stats credit, and the chat log
// append are atomic; the termination notice sent to the counterpart
// afterwards is best-effort and never rolls the removal back.
func (b *Broker) EndSession(ctx context.Context, partyID int64) (EndedSession, error) {
	ended, err := b.store.endBySeller(partyID, false, true)
	if err != nil {
		ended, err = b.store.endByBuyer(partyID, false, true)
	}
	if err != nil {
		return EndedSession{}, ErrNoActiveSession
	}

	slog.Info("session ended",
		"initiator_id", partyID, "buyer_id", ended.BuyerID, "seller_id", ended.SellerID,
		"product", ended.Product, "duration", ended.EndedAt.Sub(ended.StartedAt))

	if partyID == ended.SellerID {
		b.notify(ctx, buyerSessionEnded(ended))
	} else {
		b.notify(ctx, sellerSessionEnded(ended))
	}
	return ended, nil
}

// ForceStop is the administrative override: an admin tears down an arbitrary
// buyer's session from outside it. ErrSessionNotFound when the buyer has no
// session. Seller stats are credited only under the CreditForcedStops policy.
func (b *Broker) ForceStop(ctx context.Context, adminID, buyerID int64) (EndedSession, error) {
	if !b.registry.IsAdmin(adminID) {
		return EndedSession{}, ErrNotAuthorized
	}

	ended, err := b.store.endByBuyer(buyerID, true, b.policy.CreditForcedStops)
	if err != nil {
		return EndedSession{}, err
	}

	slog.Info("session force-stopped",
		"admin_id", adminID, "buyer_id", ended.BuyerID,
		"seller_id", ended.SellerID, "product", ended.Product)

	b.notify(ctx, buyerForceStopped(ended))
	b.notify(ctx, sellerForceStopped(ended))
	return ended, nil
}
