package memory

import (
	"context"
	"sort"
	"sync"

	"trivia-tracker/internal/domain"
)

// RoundStore keeps the newest snapshot of every round in memory (useful for tests/demos).
type RoundStore struct {
	mu     sync.RWMutex
	rounds map[string]map[int]domain.RoundSnapshot
}

func NewRoundStore() *RoundStore {
	return &RoundStore{rounds: make(map[string]map[int]domain.RoundSnapshot)}
}

// SaveRound stores snap unless a snapshot with a newer version is already held.
func (s *RoundStore) SaveRound(_ context.Context, team string, snap domain.RoundSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byNumber, ok := s.rounds[team]
	if !ok {
		byNumber = make(map[int]domain.RoundSnapshot)
		s.rounds[team] = byNumber
	}
	if cur, ok := byNumber[snap.Number]; ok && cur.Version >= snap.Version {
		return nil
	}
	byNumber[snap.Number] = snap
	return nil
}

// LoadRounds returns the team's snapshots in round order.
func (s *RoundStore) LoadRounds(_ context.Context, team string) ([]domain.RoundSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snaps := make([]domain.RoundSnapshot, 0, len(s.rounds[team]))
	for _, snap := range s.rounds[team] {
		snaps = append(snaps, snap)
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Number < snaps[j].Number })
	return snaps, nil
}
