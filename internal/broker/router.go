package broker

import (
	"context"
	"log/slog"
)

// Route forwards an inbound text to the sender's session counterpart.
// senderLabel is a transport-supplied display annotation ("Name (@user)");
// when empty the numeric ID stands in. A sender in no session is a no-op
// (ErrNotInSession, message dropped). A delivery failure is reported back to
// the sender as a soft failure and returned wrapped in ErrDeliveryFailed;
// it is never retried.
func (b *Broker) Route(ctx context.Context, senderID int64, senderLabel, text string) error {
	if sess, ok := b.store.SessionOf(senderID); ok {
		if err := b.notify(ctx, buyerForward(sess, senderLabel, text)); err != nil {
			b.notify(ctx, deliveryFailure(senderID, "seller"))
			return ErrDeliveryFailed
		}
		return nil
	}

	if buyerID, ok := b.store.BuyerOf(senderID); ok {
		if err := b.notify(ctx, sellerForward(buyerID, senderID, senderLabel, text)); err != nil {
			b.notify(ctx, deliveryFailure(senderID, "user"))
			return ErrDeliveryFailed
		}
		return nil
	}

	slog.Debug("message from sender with no session dropped", "sender_id", senderID)
	return ErrNotInSession
}
