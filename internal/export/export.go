// Package export renders registry and session data as CSV files for the
// admin export menu.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/quantumpanel/keybot/internal/broker"
	"github.com/quantumpanel/keybot/internal/registry"
)

// Exporter writes one-shot CSV snapshots. Files land in dir under a random
// name; the caller is responsible for deleting them after delivery.
type Exporter struct {
	store    *broker.Store
	registry *registry.Registry
	dir      string
}

func New(store *broker.Store, reg *registry.Registry, dir string) *Exporter {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Exporter{store: store, registry: reg, dir: dir}
}

// Users exports every user that has started the bot.
func (e *Exporter) Users() (string, error) {
	rows := [][]string{{"User ID"}}
	for _, id := range e.store.Users() {
		rows = append(rows, []string{strconv.FormatInt(id, 10)})
	}
	return e.write("users", rows)
}

// Sellers exports the seller roster with completion counts.
func (e *Exporter) Sellers() (string, error) {
	rows := [][]string{{"Seller ID", "Chats Completed", "Total Served"}}
	for _, id := range e.registry.Sellers() {
		stats := e.store.StatsFor(id)
		rows = append(rows, []string{
			strconv.FormatInt(id, 10),
			strconv.Itoa(stats.ChatsCompleted),
			strconv.Itoa(stats.TotalServed),
		})
	}
	return e.write("sellers", rows)
}

// Products exports the catalog with assigned seller IDs.
func (e *Exporter) Products() (string, error) {
	rows := [][]string{{"Product Name", "Description", "Sellers"}}
	for _, p := range e.registry.Products() {
		sellers := make([]byte, 0, len(p.Sellers)*8)
		for i, id := range p.Sellers {
			if i > 0 {
				sellers = append(sellers, ';')
			}
			sellers = strconv.AppendInt(sellers, id, 10)
		}
		rows = append(rows, []string{p.Name, p.Description, string(sellers)})
	}
	return e.write("products", rows)
}

// Chats exports the chat history plus any sessions still running, marked
// "Ongoing".
func (e *Exporter) Chats() (string, error) {
	rows := [][]string{{"User ID", "Seller ID", "Product", "Start Time", "End Time"}}
	for _, rec := range e.store.ChatLog() {
		rows = append(rows, []string{
			strconv.FormatInt(rec.BuyerID, 10),
			strconv.FormatInt(rec.SellerID, 10),
			rec.Product,
			rec.StartedAt.Format(time.RFC3339),
			rec.EndedAt.Format(time.RFC3339),
		})
	}
	for _, sess := range e.store.Sessions() {
		rows = append(rows, []string{
			strconv.FormatInt(sess.BuyerID, 10),
			strconv.FormatInt(sess.SellerID, 10),
			sess.Product,
			sess.StartedAt.Format(time.RFC3339),
			"Ongoing",
		})
	}
	return e.write("chats", rows)
}

func (e *Exporter) write(dataset string, rows [][]string) (string, error) {
	path := filepath.Join(e.dir, fmt.Sprintf("%s_%s.csv", dataset, uuid.NewString()))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write export rows: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close export file: %w", err)
	}
	return path, nil
}
