package broker

import (
	"context"
	"errors"
	"testing"
)

// connect is a test helper that walks buyer1 and seller1 into an active
// session.
func connect(t *testing.T, b *Broker, buyerID, sellerID int64) {
	t.Helper()
	if _, err := b.RequestConnection(context.Background(), buyerID, "KOS-8BP"); err != nil {
		t.Fatalf("RequestConnection() error = %v", err)
	}
	if _, err := b.AcceptConnection(context.Background(), sellerID, buyerID, "KOS-8BP"); err != nil {
		t.Fatalf("AcceptConnection() error = %v", err)
	}
}

func TestEndSession(t *testing.T) {
	b, notifier := newTestBroker(Policy{SellersMayAccept: true})
	connect(t, b, buyer1, seller1)

	ended, err := b.EndSession(context.Background(), seller1)
	if err != nil {
		t.Fatalf("EndSession() error = %v", err)
	}
	if ended.BuyerID != buyer1 || ended.SellerID != seller1 {
		t.Errorf("ended session = %+v", ended)
	}
	if ended.Forced {
		t.Error("seller-initiated end marked as forced")
	}
	if ended.EndedAt.Before(ended.StartedAt) {
		t.Errorf("EndedAt %v before StartedAt %v", ended.EndedAt, ended.StartedAt)
	}

	// Both directions of the index must be gone.
	if _, ok := b.store.SessionOf(buyer1); ok {
		t.Error("buyer still mapped after end")
	}
	if _, ok := b.store.BuyerOf(seller1); ok {
		t.Error("seller still mapped after end")
	}

	// Completed chats credit the seller's stats.
	stats := b.store.StatsFor(seller1)
	if stats.ChatsCompleted != 1 || stats.TotalServed != 1 || stats.Today != 1 || stats.Month != 1 {
		t.Errorf("stats = %+v, want all counters at 1", stats)
	}
	if len(stats.LastBuyers) != 1 || stats.LastBuyers[0] != buyer1 {
		t.Errorf("LastBuyers = %v, want [%d]", stats.LastBuyers, buyer1)
	}

	if len(notifier.sentTo(buyer1)) < 2 { // connected + ended
		t.Error("buyer was not told the session ended")
	}
}

// TestEndSessionByBuyer: either party may end the session; the seller is
// still credited and told the buyer left.
func TestEndSessionByBuyer(t *testing.T) {
	b, notifier := newTestBroker(Policy{SellersMayAccept: true})
	connect(t, b, buyer1, seller1)

	ended, err := b.EndSession(context.Background(), buyer1)
	if err != nil {
		t.Fatalf("EndSession() error = %v", err)
	}
	if ended.BuyerID != buyer1 || ended.SellerID != seller1 {
		t.Errorf("ended session = %+v", ended)
	}
	if _, ok := b.store.SessionOf(buyer1); ok {
		t.Error("buyer still mapped after end")
	}
	if _, ok := b.store.BuyerOf(seller1); ok {
		t.Error("seller still mapped after end")
	}
	if got := b.store.StatsFor(seller1).ChatsCompleted; got != 1 {
		t.Errorf("ChatsCompleted = %d, want 1", got)
	}
	if len(notifier.sentTo(seller1)) < 2 { // connected + ended
		t.Error("seller was not told the session ended")
	}
}

func TestEndSessionWithout(t *testing.T) {
	b, _ := newTestBroker(Policy{})
	if _, err := b.EndSession(context.Background(), seller1); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("EndSession() error = %v, want ErrNoActiveSession", err)
	}
}

func TestForceStop(t *testing.T) {
	t.Run("clears both indices and logs the chat", func(t *testing.T) {
		b, notifier := newTestBroker(Policy{SellersMayAccept: true})
		connect(t, b, buyer1, seller1)

		ended, err := b.ForceStop(context.Background(), adminID, buyer1)
		if err != nil {
			t.Fatalf("ForceStop() error = %v", err)
		}
		if !ended.Forced {
			t.Error("force-stopped session not marked forced")
		}
		if _, ok := b.store.SessionOf(buyer1); ok {
			t.Error("buyer still mapped after force stop")
		}
		if _, ok := b.store.BuyerOf(seller1); ok {
			t.Error("seller still mapped after force stop")
		}

		log := b.store.ChatLog()
		if len(log) != 1 {
			t.Fatalf("chat log has %d records, want 1", len(log))
		}
		rec := log[0]
		if !rec.Forced || rec.BuyerID != buyer1 || rec.SellerID != seller1 {
			t.Errorf("log record = %+v", rec)
		}
		if rec.EndedAt.Before(rec.StartedAt) {
			t.Errorf("EndedAt %v before StartedAt %v", rec.EndedAt, rec.StartedAt)
		}

		if len(notifier.sentTo(buyer1)) < 2 || len(notifier.sentTo(seller1)) < 2 {
			t.Error("force stop did not notify both parties")
		}
	})

	t.Run("does not credit seller stats", func(t *testing.T) {
		b, _ := newTestBroker(Policy{SellersMayAccept: true})
		connect(t, b, buyer1, seller1)

		if _, err := b.ForceStop(context.Background(), adminID, buyer1); err != nil {
			t.Fatalf("ForceStop() error = %v", err)
		}
		stats := b.store.StatsFor(seller1)
		if stats.ChatsCompleted != 0 || stats.TotalServed != 0 {
			t.Errorf("forced stop credited stats: %+v", stats)
		}
	})

	t.Run("credits stats when policy says so", func(t *testing.T) {
		b, _ := newTestBroker(Policy{SellersMayAccept: true, CreditForcedStops: true})
		connect(t, b, buyer1, seller1)

		if _, err := b.ForceStop(context.Background(), adminID, buyer1); err != nil {
			t.Fatalf("ForceStop() error = %v", err)
		}
		if got := b.store.StatsFor(seller1).ChatsCompleted; got != 1 {
			t.Errorf("ChatsCompleted = %d, want 1", got)
		}
	})

	t.Run("non-admin denied", func(t *testing.T) {
		b, _ := newTestBroker(Policy{SellersMayAccept: true})
		connect(t, b, buyer1, seller1)

		if _, err := b.ForceStop(context.Background(), seller2, buyer1); !errors.Is(err, ErrNotAuthorized) {
			t.Errorf("ForceStop() error = %v, want ErrNotAuthorized", err)
		}
		if _, ok := b.store.SessionOf(buyer1); !ok {
			t.Error("unauthorized force stop destroyed the session")
		}
	})

	t.Run("no session for buyer", func(t *testing.T) {
		b, _ := newTestBroker(Policy{})
		if _, err := b.ForceStop(context.Background(), adminID, buyer1); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("ForceStop() error = %v, want ErrSessionNotFound", err)
		}
	})
}

// TestTerminationIsIdempotent: once a session is gone, a second termination
// attempt from either side reports the absence instead of corrupting state.
func TestTerminationIsIdempotent(t *testing.T) {
	b, _ := newTestBroker(Policy{SellersMayAccept: true})
	connect(t, b, buyer1, seller1)

	if _, err := b.EndSession(context.Background(), seller1); err != nil {
		t.Fatalf("EndSession() error = %v", err)
	}
	if _, err := b.EndSession(context.Background(), seller1); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("second EndSession() error = %v, want ErrNoActiveSession", err)
	}
	if _, err := b.ForceStop(context.Background(), adminID, buyer1); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("ForceStop() after end error = %v, want ErrSessionNotFound", err)
	}
	if len(b.store.ChatLog()) != 1 {
		t.Errorf("chat log has %d records after duplicate terminations, want 1", len(b.store.ChatLog()))
	}
}

// TestBuyerCanRequestAgainAfterEnd: termination frees both parties for new
// sessions.
func TestBuyerCanRequestAgainAfterEnd(t *testing.T) {
	b, _ := newTestBroker(Policy{SellersMayAccept: true})
	connect(t, b, buyer1, seller1)

	if _, err := b.EndSession(context.Background(), seller1); err != nil {
		t.Fatalf("EndSession() error = %v", err)
	}
	if _, err := b.RequestConnection(context.Background(), buyer1, "KOS-8BP"); err != nil {
		t.Errorf("re-request after end failed: %v", err)
	}
	if _, err := b.AcceptConnection(context.Background(), seller1, buyer1, "KOS-8BP"); err != nil {
		t.Errorf("re-accept after end failed: %v", err)
	}
}
