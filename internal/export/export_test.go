package export

import (
	"context"
	"encoding/csv"
	"os"
	"testing"

	"github.com/quantumpanel/keybot/internal/broker"
	"github.com/quantumpanel/keybot/internal/bus"
	"github.com/quantumpanel/keybot/internal/registry"
)

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, bus.Outbound) error { return nil }

// newTestExporter builds an exporter over a broker with one completed chat
// (buyer 100, seller 10) and one ongoing session (buyer 200, seller 20).
func newTestExporter(t *testing.T) *Exporter {
	t.Helper()
	reg := registry.New(registry.Seed{
		Admins:  []int64{1},
		Sellers: []int64{10, 20},
		Products: []registry.Product{
			{Name: "KOS-8BP", Description: "8-ball pool keys", Sellers: []int64{10, 20}},
		},
		BuyEnabled: true,
	})
	b := broker.New(reg, nopNotifier{}, broker.Policy{SellersMayAccept: true})

	ctx := context.Background()
	for _, buyerID := range []int64{100, 200} {
		b.Store().AddUser(buyerID)
	}
	if _, err := b.RequestConnection(ctx, 100, "KOS-8BP"); err != nil {
		t.Fatalf("RequestConnection() error = %v", err)
	}
	if _, err := b.AcceptConnection(ctx, 10, 100, "KOS-8BP"); err != nil {
		t.Fatalf("AcceptConnection() error = %v", err)
	}
	if _, err := b.EndSession(ctx, 10); err != nil {
		t.Fatalf("EndSession() error = %v", err)
	}
	if _, err := b.RequestConnection(ctx, 200, "KOS-8BP"); err != nil {
		t.Fatalf("RequestConnection() error = %v", err)
	}
	if _, err := b.AcceptConnection(ctx, 20, 200, "KOS-8BP"); err != nil {
		t.Fatalf("AcceptConnection() error = %v", err)
	}

	return New(b.Store(), reg, t.TempDir())
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse export: %v", err)
	}
	return rows
}

func TestUsersExport(t *testing.T) {
	e := newTestExporter(t)
	path, err := e.Users()
	if err != nil {
		t.Fatalf("Users() error = %v", err)
	}
	defer os.Remove(path)

	rows := readCSV(t, path)
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2 users", len(rows))
	}
	if rows[0][0] != "User ID" {
		t.Errorf("header = %v", rows[0])
	}
	got := map[string]bool{rows[1][0]: true, rows[2][0]: true}
	if !got["100"] || !got["200"] {
		t.Errorf("user rows = %v, want 100 and 200", got)
	}
}

func TestSellersExport(t *testing.T) {
	e := newTestExporter(t)
	path, err := e.Sellers()
	if err != nil {
		t.Fatalf("Sellers() error = %v", err)
	}
	defer os.Remove(path)

	rows := readCSV(t, path)
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2 sellers", len(rows))
	}
	completed := map[string]string{}
	for _, row := range rows[1:] {
		completed[row[0]] = row[1]
	}
	if completed["10"] != "1" {
		t.Errorf("seller 10 completed = %q, want 1", completed["10"])
	}
	if completed["20"] != "0" {
		t.Errorf("seller 20 completed = %q, want 0", completed["20"])
	}
}

func TestProductsExport(t *testing.T) {
	e := newTestExporter(t)
	path, err := e.Products()
	if err != nil {
		t.Fatalf("Products() error = %v", err)
	}
	defer os.Remove(path)

	rows := readCSV(t, path)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want header + 1 product", len(rows))
	}
	row := rows[1]
	if row[0] != "KOS-8BP" || row[1] != "8-ball pool keys" || row[2] != "10;20" {
		t.Errorf("product row = %v", row)
	}
}

func TestChatsExport(t *testing.T) {
	e := newTestExporter(t)
	path, err := e.Chats()
	if err != nil {
		t.Fatalf("Chats() error = %v", err)
	}
	defer os.Remove(path)

	rows := readCSV(t, path)
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + ended + ongoing", len(rows))
	}

	ended := rows[1]
	if ended[0] != "100" || ended[1] != "10" || ended[2] != "KOS-8BP" {
		t.Errorf("ended chat row = %v", ended)
	}
	if ended[4] == "Ongoing" || ended[4] == "" {
		t.Errorf("ended chat end time = %q, want a timestamp", ended[4])
	}

	ongoing := rows[2]
	if ongoing[0] != "200" || ongoing[1] != "20" || ongoing[4] != "Ongoing" {
		t.Errorf("ongoing chat row = %v", ongoing)
	}
}
