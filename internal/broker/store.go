package broker

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PendingRequest is a buyer's outstanding, unclaimed connection request.
// At most one exists per buyer.
type PendingRequest struct {
	BuyerID   int64     `json:"buyer_id"`
	Product   string    `json:"product"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is one active buyer↔seller conversation.
type Session struct {
	BuyerID   int64     `json:"buyer_id"`
	SellerID  int64     `json:"seller_id"`
	Product   string    `json:"product"`
	StartedAt time.Time `json:"started_at"`
}

// ChatLogRecord is the immutable record appended once per ended session.
type ChatLogRecord struct {
	ID        uuid.UUID `json:"id"`
	BuyerID   int64     `json:"buyer_id"`
	SellerID  int64     `json:"seller_id"`
	Product   string    `json:"product"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Forced    bool      `json:"forced"`
}

// Store owns all volatile broker state: pending requests, the two session
// indices, seller alert toggles, seller statistics, the chat log, and the set
// of participants who have started the bot. Every mutation runs under one
// mutex so the check-and-create and destroy operations are atomic units; a
// buyer→seller entry without its seller→buyer mirror is never observable.
type Store struct {
	mu       sync.Mutex
	pending  map[int64]PendingRequest
	sessions map[int64]Session // buyer → session
	reverse  map[int64]int64   // seller → buyer
	alerts   map[int64]bool    // seller → alerts enabled (absent = enabled)
	stats    map[int64]*SellerStats
	log      []ChatLogRecord
	users    map[int64]struct{}
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		pending:  make(map[int64]PendingRequest),
		sessions: make(map[int64]Session),
		reverse:  make(map[int64]int64),
		alerts:   make(map[int64]bool),
		stats:    make(map[int64]*SellerStats),
		users:    make(map[int64]struct{}),
	}
}

// createPending registers a connection request for a buyer after verifying,
// atomically, that the buyer has neither a session nor an earlier request.
func (s *Store) createPending(buyerID int64, product string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[buyerID]; ok {
		return ErrAlreadyConnected
	}
	if _, ok := s.pending[buyerID]; ok {
		return ErrRequestPending
	}
	s.pending[buyerID] = PendingRequest{
		BuyerID:   buyerID,
		Product:   product,
		CreatedAt: time.Now(),
	}
	return nil
}

// claim resolves the accept race. Exactly one acceptor per buyer gets the
// session: the pending lookup, both index insertions, and the pending delete
// happen under a single lock acquisition. Losers get ErrAlreadyClaimed.
func (s *Store) claim(sellerID, buyerID int64) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.pending[buyerID]
	if !ok {
		return Session{}, ErrAlreadyClaimed
	}
	if _, ok := s.sessions[buyerID]; ok {
		return Session{}, ErrAlreadyClaimed
	}
	if _, ok := s.reverse[sellerID]; ok {
		return Session{}, ErrAcceptorBusy
	}
	sess := Session{
		BuyerID:   buyerID,
		SellerID:  sellerID,
		Product:   req.Product,
		StartedAt: time.Now(),
	}
	s.sessions[buyerID] = sess
	s.reverse[sellerID] = buyerID
	delete(s.pending, buyerID)
	return sess, nil
}

// EndedSession describes a destroyed session.
type EndedSession struct {
	Session
	EndedAt  time.Time
	Forced   bool
	Credited bool // whether the seller's stats were updated
}

// endBySeller destroys the session the seller is party to. Index removal,
// the stats update, and the chat log append happen under one lock.
func (s *Store) endBySeller(sellerID int64, forced, credit bool) (EndedSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	buyerID, ok := s.reverse[sellerID]
	if !ok {
		return EndedSession{}, ErrNoActiveSession
	}
	return s.destroy(buyerID, sellerID, forced, credit)
}

// endByBuyer destroys the session of an arbitrary buyer (admin force-stop
// path). ErrSessionNotFound when the buyer has no session.
func (s *Store) endByBuyer(buyerID int64, forced, credit bool) (EndedSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[buyerID]
	if !ok {
		return EndedSession{}, ErrSessionNotFound
	}
	return s.destroy(buyerID, sess.SellerID, forced, credit)
}

// destroy removes both index entries, updates stats, and appends the log
// record. Callers hold s.mu. An asymmetric index pair is an internal
// consistency fault: unreachable by construction, and if ever observed the
// session tables are reset rather than patched per-entry.
func (s *Store) destroy(buyerID, sellerID int64, forced, credit bool) (EndedSession, error) {
	sess, ok := s.sessions[buyerID]
	if !ok || sess.SellerID != sellerID {
		s.resetLocked("session index desync", buyerID, sellerID)
		return EndedSession{}, ErrSessionNotFound
	}
	if mapped, ok := s.reverse[sellerID]; !ok || mapped != buyerID {
		s.resetLocked("reverse index desync", buyerID, sellerID)
		return EndedSession{}, ErrSessionNotFound
	}

	delete(s.sessions, buyerID)
	delete(s.reverse, sellerID)

	if credit {
		s.statsLocked(sellerID).record(buyerID)
	}

	ended := EndedSession{
		Session:  sess,
		EndedAt:  time.Now(),
		Forced:   forced,
		Credited: credit,
	}
	s.log = append(s.log, ChatLogRecord{
		ID:        uuid.New(),
		BuyerID:   sess.BuyerID,
		SellerID:  sess.SellerID,
		Product:   sess.Product,
		StartedAt: sess.StartedAt,
		EndedAt:   ended.EndedAt,
		Forced:    forced,
	})
	return ended, nil
}

func (s *Store) resetLocked(reason string, buyerID, sellerID int64) {
	slog.Error("session store consistency fault, resetting session tables",
		"reason", reason, "buyer_id", buyerID, "seller_id", sellerID,
		"sessions", len(s.sessions), "reverse", len(s.reverse))
	s.pending = make(map[int64]PendingRequest)
	s.sessions = make(map[int64]Session)
	s.reverse = make(map[int64]int64)
}

// SessionOf returns the active session a buyer is in.
func (s *Store) SessionOf(buyerID int64) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[buyerID]
	return sess, ok
}

// BuyerOf returns the buyer a seller is currently serving.
func (s *Store) BuyerOf(sellerID int64) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	buyerID, ok := s.reverse[sellerID]
	return buyerID, ok
}

// PendingOf returns a buyer's outstanding request.
func (s *Store) PendingOf(buyerID int64) (PendingRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.pending[buyerID]
	return req, ok
}

// Sessions returns all active sessions, ordered by buyer ID.
func (s *Store) Sessions() []Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BuyerID < out[j].BuyerID })
	return out
}

// PendingRequests returns all outstanding requests, ordered by creation time.
func (s *Store) PendingRequests() []PendingRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PendingRequest, 0, len(s.pending))
	for _, req := range s.pending {
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// AlertsEnabled reports whether a seller receives request alerts.
// Sellers start with alerts on.
func (s *Store) AlertsEnabled(sellerID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	enabled, ok := s.alerts[sellerID]
	return !ok || enabled
}

// ToggleAlerts flips a seller's alert setting and returns the new value.
func (s *Store) ToggleAlerts(sellerID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	enabled, ok := s.alerts[sellerID]
	next := !(!ok || enabled)
	s.alerts[sellerID] = next
	return next
}

// StatsFor returns a copy of a seller's statistics.
func (s *Store) StatsFor(sellerID int64) SellerStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statsLocked(sellerID).snapshot()
}

// ResetDailyStats zeroes every seller's today counter.
func (s *Store) ResetDailyStats() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.stats {
		st.Today = 0
	}
}

// ResetMonthlyStats zeroes every seller's month counter.
func (s *Store) ResetMonthlyStats() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.stats {
		st.Month = 0
	}
}

// ChatLog returns a copy of the append-only chat history.
func (s *Store) ChatLog() []ChatLogRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ChatLogRecord, len(s.log))
	copy(out, s.log)
	return out
}

// AddUser records a participant who started the bot.
func (s *Store) AddUser(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = struct{}{}
}

// Users returns everyone who has started the bot, sorted.
func (s *Store) Users() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Counts is a point-in-time summary for the admin dashboard.
type Counts struct {
	Users          int
	ActiveSessions int
	Pending        int
	CompletedChats int
}

// Snapshot returns current table sizes.
func (s *Store) Snapshot() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Counts{
		Users:          len(s.users),
		ActiveSessions: len(s.sessions),
		Pending:        len(s.pending),
		CompletedChats: len(s.log),
	}
}
