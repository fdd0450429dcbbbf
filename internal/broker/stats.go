package broker

// lastBuyersCap bounds the most-recent-buyers list kept per seller.
const lastBuyersCap = 10

// SellerStats tracks one seller's completed work. Today and Month count the
// same completions as ChatsCompleted; resetting them on a schedule is the
// scheduler's job, the store only ever increments.
type SellerStats struct {
	TotalServed    int     `json:"total_served"`
	ChatsCompleted int     `json:"chats_completed"`
	Today          int     `json:"today"`
	Month          int     `json:"month"`
	LastBuyers     []int64 `json:"last_buyers"` // newest first, unique, ≤10
}

// record credits one completed chat. A buyer already present in LastBuyers
// keeps their old position rather than moving to the front.
func (s *SellerStats) record(buyerID int64) {
	s.TotalServed++
	s.ChatsCompleted++
	s.Today++
	s.Month++

	for _, id := range s.LastBuyers {
		if id == buyerID {
			return
		}
	}
	s.LastBuyers = append([]int64{buyerID}, s.LastBuyers...)
	if len(s.LastBuyers) > lastBuyersCap {
		s.LastBuyers = s.LastBuyers[:lastBuyersCap]
	}
}

func (s *SellerStats) snapshot() SellerStats {
	out := *s
	out.LastBuyers = make([]int64, len(s.LastBuyers))
	copy(out.LastBuyers, s.LastBuyers)
	return out
}

// statsLocked returns (creating if needed) a seller's stats entry.
// Callers hold s.mu.
func (s *Store) statsLocked(sellerID int64) *SellerStats {
	st, ok := s.stats[sellerID]
	if !ok {
		st = &SellerStats{}
		s.stats[sellerID] = st
	}
	return st
}
