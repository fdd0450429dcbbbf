package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/quantumpanel/keybot/internal/broker"
	"github.com/quantumpanel/keybot/internal/bus"
)

// consumeInbound reads plain chat messages from the transport and forwards
// them to the sender's session counterpart. Commands and button presses
// never reach the bus; the transport handles those directly.
func consumeInbound(ctx context.Context, msgBus *bus.MessageBus, b *broker.Broker) {
	slog.Info("inbound message consumer started")

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgBus.Inbound():
			if !ok {
				return
			}
			if msg.Kind != bus.KindText {
				continue
			}

			err := b.Route(ctx, msg.SenderID, senderLabel(msg), msg.Payload)
			switch {
			case err == nil:
			case errors.Is(err, broker.ErrNotInSession):
				// sender not in a session, message dropped
			case errors.Is(err, broker.ErrDeliveryFailed):
				slog.Warn("session relay failed", "sender_id", msg.SenderID)
			default:
				slog.Error("inbound routing error", "sender_id", msg.SenderID, "error", err)
			}
		}
	}
}

// senderLabel renders "Name (@user)" for forwarded-message headers.
func senderLabel(msg bus.Inbound) string {
	switch {
	case msg.Name != "" && msg.Username != "":
		return fmt.Sprintf("%s (@%s)", msg.Name, msg.Username)
	case msg.Name != "":
		return msg.Name
	case msg.Username != "":
		return "@" + msg.Username
	}
	return ""
}
