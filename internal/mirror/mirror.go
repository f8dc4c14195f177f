// Package mirror holds a client's local copy of the contest, kept current by
// polling with the last version seen for each round.
package mirror

import (
	"sync"

	"trivia-tracker/internal/domain"
)

// Mirror is safe for concurrent use.
type Mirror struct {
	mu           sync.RWMutex
	teamName     string
	currentRound int
	teams        int
	nTeams       int
	versions     []int
	rounds       []domain.RoundSnapshot
}

func New() *Mirror {
	return &Mirror{}
}

// Versions returns the cursor to submit with the next poll. Rounds never
// received report -1.
func (m *Mirror) Versions() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int(nil), m.versions...)
}

// Apply merges a poll result. Each returned round replaces the local copy
// and its embedded version becomes the new cursor for that round.
func (m *Mirror) Apply(result domain.Sync) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.teamName = result.TeamName
	m.currentRound = result.CurrentRound
	m.teams = result.NTeams
	m.resizeLocked(result.NRounds)
	for _, snap := range result.Rounds {
		if snap.Number < 1 || snap.Number > len(m.rounds) {
			continue
		}
		m.rounds[snap.Number-1] = snap
		m.versions[snap.Number-1] = snap.Version
	}
	m.nTeams = m.countTeamsLocked()
}

// Round returns the local copy of a round and whether it has been received.
func (m *Mirror) Round(number int) (domain.RoundSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if number < 1 || number > len(m.rounds) || m.versions[number-1] < 0 {
		return domain.RoundSnapshot{}, false
	}
	return m.rounds[number-1], true
}

// CurrentRound is the current round reported by the last poll.
func (m *Mirror) CurrentRound() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentRound
}

// TeamName is the team reported by the last poll.
func (m *Mirror) TeamName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.teamName
}

// NTeams is the configured team count, or the largest standings table seen
// when that is larger.
func (m *Mirror) NTeams() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nTeams
}

func (m *Mirror) resizeLocked(n int) {
	for len(m.versions) < n {
		m.versions = append(m.versions, -1)
		m.rounds = append(m.rounds, domain.RoundSnapshot{Number: len(m.rounds) + 1})
	}
}

func (m *Mirror) countTeamsLocked() int {
	n := m.teams
	for _, r := range m.rounds {
		if len(r.Standings) > n {
			n = len(r.Standings)
		}
	}
	return n
}
