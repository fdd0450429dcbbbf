package broker

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRoute(t *testing.T) {
	b, notifier := newTestBroker(Policy{SellersMayAccept: true})
	connect(t, b, buyer1, seller1)

	t.Run("buyer text reaches seller", func(t *testing.T) {
		if err := b.Route(context.Background(), buyer1, "Alice", "still have stock?"); err != nil {
			t.Fatalf("Route() error = %v", err)
		}
		msgs := notifier.sentTo(seller1)
		last := msgs[len(msgs)-1]
		if !strings.Contains(last.Text, "still have stock?") {
			t.Errorf("seller received %q, want the buyer's text", last.Text)
		}
	})

	t.Run("seller text reaches buyer", func(t *testing.T) {
		if err := b.Route(context.Background(), seller1, "Shop", "yes, 3 left"); err != nil {
			t.Fatalf("Route() error = %v", err)
		}
		msgs := notifier.sentTo(buyer1)
		last := msgs[len(msgs)-1]
		if !strings.Contains(last.Text, "yes, 3 left") {
			t.Errorf("buyer received %q, want the seller's text", last.Text)
		}
	})

	t.Run("outsider text goes nowhere", func(t *testing.T) {
		before := len(notifier.sent)
		if err := b.Route(context.Background(), buyer2, "Bob", "hello?"); !errors.Is(err, ErrNotInSession) {
			t.Errorf("Route() error = %v, want ErrNotInSession", err)
		}
		if len(notifier.sent) != before {
			t.Error("text from non-participant was delivered")
		}
	})
}

func TestRouteDeliveryFailure(t *testing.T) {
	b, notifier := newTestBroker(Policy{SellersMayAccept: true})
	connect(t, b, buyer1, seller1)
	notifier.markUnreachable(seller1)

	err := b.Route(context.Background(), buyer1, "Alice", "anyone there?")
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("Route() error = %v, want ErrDeliveryFailed", err)
	}

	// The sender is told and the session survives.
	msgs := notifier.sentTo(buyer1)
	if len(msgs) == 0 {
		t.Fatal("buyer got no failure notice")
	}
	if _, ok := b.store.SessionOf(buyer1); !ok {
		t.Error("delivery failure tore down the session")
	}
}
