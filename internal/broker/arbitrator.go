package broker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/quantumpanel/keybot/internal/registry"
)

// DeliveryReport tallies a best-effort fan-out. Partial failure never fails
// the operation; the tally is informational.
type DeliveryReport struct {
	Sent   int
	Failed int
}

// RequestConnection registers a buyer's connect intent and alerts the eligible
// sellers. Preconditions are checked in order — blocklist, global buy toggle,
// product availability, no active session, no earlier pending request — and a
// failing check returns its distinct error with no mutation. The fan-out is
// best-effort: the request stays valid even if every alert fails.
func (b *Broker) RequestConnection(ctx context.Context, buyerID int64, product string) (DeliveryReport, error) {
	if b.registry.IsBlocked(buyerID) {
		return DeliveryReport{}, ErrBlocked
	}
	if !b.registry.BuyEnabled() {
		return DeliveryReport{}, ErrBuyDisabled
	}
	sellers, ok := b.registry.SellersFor(product)
	if !ok || len(sellers) == 0 {
		return DeliveryReport{}, ErrProductUnavailable
	}

	if err := b.store.createPending(buyerID, product); err != nil {
		return DeliveryReport{}, err
	}

	slog.Info("connection request created",
		"buyer_id", buyerID, "product", product, "sellers", len(sellers))

	alert := sellerAlert(buyerID, product)
	var report DeliveryReport
	for _, sellerID := range sellers {
		if !b.store.AlertsEnabled(sellerID) {
			continue
		}
		alert.RecipientID = sellerID
		if err := b.notify(ctx, alert); err != nil {
			report.Failed++
			continue
		}
		report.Sent++
	}
	return report, nil
}

// AcceptConnection resolves the accept race for a buyer's pending request.
// Exactly one acceptor wins: the pending lookup, session creation in both
// indices, and pending deletion execute as a single atomic unit, and every
// other acceptor observes ErrAlreadyClaimed. The product argument comes from
// the alert button; the pending request's stored product is authoritative.
func (b *Broker) AcceptConnection(ctx context.Context, acceptorID, buyerID int64, product string) (Session, error) {
	caps := b.registry.Resolve(acceptorID)
	allowed := caps.Has(registry.CapAdmin)
	if b.policy.SellersMayAccept {
		allowed = allowed || caps.Has(registry.CapSeller)
	}
	if !allowed {
		return Session{}, ErrNotAuthorized
	}

	sess, err := b.store.claim(acceptorID, buyerID)
	if err != nil {
		return Session{}, err
	}
	if product != "" && product != sess.Product {
		slog.Debug("accept product mismatch, pending product wins",
			"buyer_id", buyerID, "button", product, "pending", sess.Product)
	}

	slog.Info("connection accepted",
		"buyer_id", buyerID, "seller_id", acceptorID, "product", sess.Product)

	b.notify(ctx, sellerConnected(sess))
	b.notify(ctx, buyerConnected(sess))
	return sess, nil
}

// DescribeRequestError maps an arbitration error to the buyer-facing outcome
// text. Unknown errors get a generic failure line.
func DescribeRequestError(err error) string {
	switch err {
	case ErrBlocked:
		return "⛔ *ACCESS DENIED*\n\nYou have been blocked from using this bot."
	case ErrBuyDisabled:
		return "🚫 *Service Temporarily Unavailable*\n\nThe buy feature is currently disabled.\nPlease try again later."
	case ErrProductUnavailable:
		return "❌ *Product Unavailable*\n\nSorry, this product is currently unavailable."
	case ErrAlreadyConnected:
		return "✅ *Already Connected!*\n\nYou are already in an active conversation with a seller.\n💬 Send your message directly."
	case ErrRequestPending:
		return "⏳ *Request Pending*\n\nYou already have a pending connection request.\n⏰ Please wait for a seller to accept."
	default:
		return fmt.Sprintf("❌ *Request Failed*\n\n%v", err)
	}
}
