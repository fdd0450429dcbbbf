package broker

import (
	"context"
	"errors"
	"sync"

	"github.com/quantumpanel/keybot/internal/bus"
	"github.com/quantumpanel/keybot/internal/registry"
)

// fakeNotifier records outbound messages and can simulate unreachable
// recipients.
type fakeNotifier struct {
	mu          sync.Mutex
	sent        []bus.Outbound
	unreachable map[int64]bool
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{unreachable: make(map[int64]bool)}
}

func (f *fakeNotifier) Notify(_ context.Context, msg bus.Outbound) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unreachable[msg.RecipientID] {
		return errors.New("recipient unreachable")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeNotifier) sentTo(recipient int64) []bus.Outbound {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []bus.Outbound
	for _, msg := range f.sent {
		if msg.RecipientID == recipient {
			out = append(out, msg)
		}
	}
	return out
}

func (f *fakeNotifier) markUnreachable(recipient int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unreachable[recipient] = true
}

const (
	adminID  = int64(100)
	seller1  = int64(201)
	seller2  = int64(202)
	buyer1   = int64(301)
	buyer2   = int64(302)
	blocked1 = int64(666)
)

func testSeed() registry.Seed {
	return registry.Seed{
		Admins:  []int64{adminID},
		Sellers: []int64{seller1, seller2},
		Products: []registry.Product{
			{Name: "KOS-8BP", Description: "Official KOS 8 Ball Pool key.", Sellers: []int64{seller1, seller2}},
			{Name: "EMPTY", Description: "No sellers assigned."},
		},
		Blocked:    []int64{blocked1},
		BuyEnabled: true,
	}
}

func newTestBroker(policy Policy) (*Broker, *fakeNotifier) {
	notifier := newFakeNotifier()
	return New(registry.New(testSeed()), notifier, policy), notifier
}
