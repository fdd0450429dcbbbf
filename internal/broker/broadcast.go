package broker

import (
	"context"
	"log/slog"

	"github.com/quantumpanel/keybot/internal/bus"
)

// Broadcast delivers one message to many recipients, best-effort and
// order-independent. Sends are paced by the broker's rate limiter; an
// unreachable recipient only affects the tally, never the rest of the
// fan-out. A cancelled context stops the remaining sends and counts them
// as failed.
func (b *Broker) Broadcast(ctx context.Context, recipients []int64, msg bus.Outbound) DeliveryReport {
	var report DeliveryReport
	for i, id := range recipients {
		if err := b.limiter.Wait(ctx); err != nil {
			report.Failed += len(recipients) - i
			slog.Warn("broadcast cancelled", "sent", report.Sent, "remaining", len(recipients)-i)
			break
		}
		msg.RecipientID = id
		if err := b.notify(ctx, msg); err != nil {
			report.Failed++
			continue
		}
		report.Sent++
	}
	slog.Info("broadcast finished",
		"recipients", len(recipients), "sent", report.Sent, "failed", report.Failed)
	return report
}
