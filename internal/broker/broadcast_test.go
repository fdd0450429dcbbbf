package broker

import (
	"context"
	"testing"

	"github.com/quantumpanel/keybot/internal/bus"
)

func TestBroadcast(t *testing.T) {
	b, notifier := newTestBroker(Policy{})
	notifier.markUnreachable(seller2)

	report := b.Broadcast(context.Background(), []int64{buyer1, buyer2, seller1, seller2}, bus.Outbound{
		Text: "maintenance tonight",
	})
	if report.Sent != 3 || report.Failed != 1 {
		t.Errorf("report = %+v, want Sent=3 Failed=1", report)
	}
	for _, id := range []int64{buyer1, buyer2, seller1} {
		msgs := notifier.sentTo(id)
		if len(msgs) != 1 || msgs[0].Text != "maintenance tonight" {
			t.Errorf("recipient %d got %v", id, msgs)
		}
	}
}

func TestBroadcastCanceled(t *testing.T) {
	b, _ := newTestBroker(Policy{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := b.Broadcast(ctx, []int64{buyer1, buyer2}, bus.Outbound{Text: "never sent"})
	if report.Sent != 0 || report.Failed != 2 {
		t.Errorf("report = %+v, want all failed on canceled context", report)
	}
}
