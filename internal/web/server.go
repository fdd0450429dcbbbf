// Package web runs the keepalive HTTP server: a root endpoint for uptime
// pingers and a health endpoint reporting live broker counts.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/quantumpanel/keybot/internal/broker"
	"github.com/quantumpanel/keybot/internal/config"
)

// Server answers uptime probes while the bot runs. Hosting platforms that
// sleep idle processes keep the bot alive by polling the root endpoint.
type Server struct {
	cfg       config.WebConfig
	store     *broker.Store
	startedAt time.Time

	httpServer *http.Server
	mux        *http.ServeMux
}

func NewServer(cfg config.WebConfig, store *broker.Store) *Server {
	return &Server{
		cfg:       cfg,
		store:     store,
		startedAt: time.Now(),
	}
}

// BuildMux creates and caches the HTTP mux with all routes registered.
func (s *Server) BuildMux() *http.ServeMux {
	if s.mux != nil {
		return s.mux
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	s.mux = mux
	return mux
}

// Start listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	mux := s.BuildMux()

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	slog.Info("keepalive server starting", "addr", addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("keepalive server: %w", err)
	}
	return nil
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "Bot is running!")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	counts := s.store.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":           "ok",
		"uptime_seconds":   int(time.Since(s.startedAt).Seconds()),
		"active_sessions":  counts.ActiveSessions,
		"pending_requests": counts.Pending,
		"total_users":      counts.Users,
		"completed_chats":  counts.CompletedChats,
	})
}
