package telegram

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/mymmrac/telego"

	"github.com/quantumpanel/keybot/internal/broker"
	"github.com/quantumpanel/keybot/internal/bus"
	"github.com/quantumpanel/keybot/internal/registry"
)

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, bus.Outbound) error { return nil }

// newTestChannel builds a channel without a live bot; only the pure helpers
// and registry/broker lookups are exercised.
func newTestChannel(seed registry.Seed) *Channel {
	reg := registry.New(seed)
	b := broker.New(reg, nopNotifier{}, broker.Policy{SellersMayAccept: true})
	return &Channel{broker: b, registry: reg}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name         string
		user         telego.User
		wantName     string
		wantUsername string
	}{
		{"full name with username", telego.User{FirstName: "Ann", LastName: "Lee", Username: "annlee"}, "Ann Lee", "@annlee"},
		{"first name only", telego.User{FirstName: "Bob"}, "Bob", "No username"},
		{"username only", telego.User{FirstName: "Cid", Username: "cid99"}, "Cid", "@cid99"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotName, gotUsername := displayName(&tt.user)
			if gotName != tt.wantName || gotUsername != tt.wantUsername {
				t.Errorf("displayName() = (%q, %q), want (%q, %q)",
					gotName, gotUsername, tt.wantName, tt.wantUsername)
			}
		})
	}
}

func TestInlineKeyboard(t *testing.T) {
	if got := inlineKeyboard(nil); got != nil {
		t.Errorf("inlineKeyboard(nil) = %v, want nil", got)
	}

	kb := inlineKeyboard([][]bus.Button{
		{btn("A", "data_a"), btn("B", "data_b")},
		{btn("C", "data_c")},
	})
	if kb == nil {
		t.Fatal("inlineKeyboard() = nil")
	}
	if len(kb.InlineKeyboard) != 2 {
		t.Fatalf("got %d rows, want 2", len(kb.InlineKeyboard))
	}
	first := kb.InlineKeyboard[0]
	if len(first) != 2 || first[0].Text != "A" || first[1].CallbackData != "data_b" {
		t.Errorf("first row = %+v", first)
	}
	if kb.InlineKeyboard[1][0].CallbackData != "data_c" {
		t.Errorf("second row = %+v", kb.InlineKeyboard[1])
	}
}

func TestParseIDList(t *testing.T) {
	tests := []struct {
		input string
		want  []int64
	}{
		{"123", []int64{123}},
		{"1, 2 ,3", []int64{1, 2, 3}},
		{"7,bogus,9", []int64{7, 9}},
		{"", nil},
		{"nope", nil},
	}
	for _, tt := range tests {
		if got := parseIDList(tt.input); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseIDList(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestWelcomeMessageRoles(t *testing.T) {
	reg := registry.New(registry.Seed{
		Admins:     []int64{1},
		Sellers:    []int64{10},
		BuyEnabled: true,
	})

	tests := []struct {
		name       string
		userID     int64
		wantIn     string
		wantButton string
	}{
		{"admin", 1, "Welcome Back, Admin", "open_admin_panel"},
		{"seller", 10, "Welcome, Seller", "open_seller_panel"},
		{"buyer", 500, "Welcome to Quantum Panel", "buy_keys"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, buttons := welcomeMessage(tt.userID, "Test", "@test", reg)
			if !strings.Contains(text, tt.wantIn) {
				t.Errorf("text = %q, want it to contain %q", text, tt.wantIn)
			}
			found := false
			for _, row := range buttons {
				for _, b := range row {
					if b.Data == tt.wantButton {
						found = true
					}
				}
			}
			if !found {
				t.Errorf("buttons %v missing %q", buttons, tt.wantButton)
			}
		})
	}
}

func TestProductPicker(t *testing.T) {
	products := []registry.Product{{Name: "KOS-8BP"}, {Name: "VIP"}}
	rows := productPicker(products, "assign_to_", "admin_back")
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 2 products + cancel", len(rows))
	}
	if rows[0][0].Data != "assign_to_KOS-8BP" || rows[1][0].Data != "assign_to_VIP" {
		t.Errorf("product rows = %v", rows[:2])
	}
	if rows[2][0].Data != "admin_back" {
		t.Errorf("cancel row = %v", rows[2])
	}
}

func TestBroadcastRecipients(t *testing.T) {
	c := newTestChannel(registry.Seed{
		Admins:     []int64{1},
		Sellers:    []int64{10, 20},
		BuyEnabled: true,
	})
	// 100 and 200 are plain users; 10 also pressed /start once.
	for _, id := range []int64{100, 200, 10} {
		c.broker.Store().AddUser(id)
	}

	asSet := func(ids []int64) map[int64]bool {
		set := make(map[int64]bool, len(ids))
		for _, id := range ids {
			if set[id] {
				t.Errorf("duplicate recipient %d", id)
			}
			set[id] = true
		}
		return set
	}

	users := asSet(c.broadcastRecipients("users"))
	if !reflect.DeepEqual(users, map[int64]bool{100: true, 200: true}) {
		t.Errorf("users audience = %v, want plain users only", users)
	}

	sellers := asSet(c.broadcastRecipients("sellers"))
	if !reflect.DeepEqual(sellers, map[int64]bool{1: true, 10: true, 20: true}) {
		t.Errorf("sellers audience = %v, want sellers plus admins", sellers)
	}

	everyone := asSet(c.broadcastRecipients("everyone"))
	if len(everyone) != 5 {
		t.Errorf("everyone audience = %v, want all 5 distinct IDs", everyone)
	}
}

func TestTopSellers(t *testing.T) {
	c := newTestChannel(registry.Seed{
		Admins:  []int64{1},
		Sellers: []int64{10, 20},
		Products: []registry.Product{
			{Name: "KOS-8BP", Sellers: []int64{10, 20}},
		},
		BuyEnabled: true,
	})

	// Seller 20 completes two chats, seller 10 one.
	ctx := context.Background()
	for _, pair := range []struct{ buyer, seller int64 }{
		{100, 20}, {101, 20}, {102, 10},
	} {
		if _, err := c.broker.RequestConnection(ctx, pair.buyer, "KOS-8BP"); err != nil {
			t.Fatalf("RequestConnection() error = %v", err)
		}
		if _, err := c.broker.AcceptConnection(ctx, pair.seller, pair.buyer, "KOS-8BP"); err != nil {
			t.Fatalf("AcceptConnection() error = %v", err)
		}
		if _, err := c.broker.EndSession(ctx, pair.seller); err != nil {
			t.Fatalf("EndSession() error = %v", err)
		}
	}

	ranks := c.topSellers(5)
	if len(ranks) != 3 {
		t.Fatalf("got %d ranks, want 3 (two sellers + admin)", len(ranks))
	}
	if ranks[0].SellerID != 20 || ranks[0].Completed != 2 {
		t.Errorf("ranks[0] = %+v, want seller 20 with 2", ranks[0])
	}
	if ranks[1].SellerID != 10 || ranks[1].Completed != 1 {
		t.Errorf("ranks[1] = %+v, want seller 10 with 1", ranks[1])
	}
	// Ties break by ID: the admin with zero completions comes last.
	if ranks[2].SellerID != 1 || ranks[2].Completed != 0 {
		t.Errorf("ranks[2] = %+v, want admin 1 with 0", ranks[2])
	}

	if got := c.topSellers(2); len(got) != 2 {
		t.Errorf("topSellers(2) returned %d entries", len(got))
	}
}
