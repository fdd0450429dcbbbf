package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quantumpanel/keybot/internal/broker"
	"github.com/quantumpanel/keybot/internal/config"
)

func newTestServer() *Server {
	store := broker.NewStore()
	store.AddUser(100)
	store.AddUser(200)
	return NewServer(config.WebConfig{Host: "127.0.0.1", Port: 0}, store)
}

func TestRootEndpoint(t *testing.T) {
	s := newTestServer()
	rec := httptest.NewRecorder()
	s.BuildMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Body.String(); got != "Bot is running!\n" {
		t.Errorf("body = %q", got)
	}
}

func TestRootEndpointUnknownPath(t *testing.T) {
	s := newTestServer()
	rec := httptest.NewRecorder()
	s.BuildMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer()
	rec := httptest.NewRecorder()
	s.BuildMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body struct {
		Status       string `json:"status"`
		TotalUsers   int    `json:"total_users"`
		ActiveChats  int    `json:"active_sessions"`
		PendingCount int    `json:"pending_requests"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode health body: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, want ok", body.Status)
	}
	if body.TotalUsers != 2 {
		t.Errorf("total_users = %d, want 2", body.TotalUsers)
	}
	if body.ActiveChats != 0 || body.PendingCount != 0 {
		t.Errorf("counts = %d active / %d pending, want 0/0", body.ActiveChats, body.PendingCount)
	}
}
