package app

import (
	"sync"
	"time"

	"trivia-tracker/internal/domain"
)

// Settings fixes the shape of a contest.
type Settings struct {
	TeamName        string
	Rounds          int
	QuestionsNormal int
	QuestionsSpeed  int
	Teams           int
}

// Trivia is the root aggregate: a fixed sequence of rounds plus the
// current-round pointer. Rounds lock independently; the trivia lock guards
// only the pointer and the subscriber set.
type Trivia struct {
	settings Settings
	rounds   []*Round

	mu           sync.RWMutex
	currentRound int
	subscribers  map[chan domain.RoundChange]struct{}
}

// NewTrivia builds a contest with every round created up front.
func NewTrivia(settings Settings) *Trivia {
	return NewTriviaWithClock(settings, time.Now)
}

// NewTriviaWithClock allows deterministic answer timestamps in tests.
func NewTriviaWithClock(settings Settings, now func() time.Time) *Trivia {
	t := &Trivia{
		settings:     settings,
		rounds:       make([]*Round, settings.Rounds),
		currentRound: 1,
		subscribers:  make(map[chan domain.RoundChange]struct{}),
	}
	for i := range t.rounds {
		t.rounds[i] = newRound(i+1, settings.QuestionsNormal, settings.QuestionsSpeed, now)
	}
	return t
}

// Settings returns the contest shape.
func (t *Trivia) Settings() Settings {
	return t.settings
}

// NRounds is the fixed number of rounds.
func (t *Trivia) NRounds() int {
	return len(t.rounds)
}

// Round looks up a round by its 1-based number.
func (t *Trivia) Round(number int) (*Round, error) {
	if number < 1 || number > len(t.rounds) {
		return nil, domain.ErrRoundNotFound
	}
	return t.rounds[number-1], nil
}

// CurrentRound returns the round number the team is playing.
func (t *Trivia) CurrentRound() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.currentRound
}

// AdvanceRound moves the current-round pointer forward, stopping at the last
// round, and returns the new current round.
func (t *Trivia) AdvanceRound() int {
	t.mu.Lock()
	if t.currentRound < len(t.rounds) {
		t.currentRound++
	}
	current := t.currentRound
	t.mu.Unlock()

	t.publish(domain.RoundChange{CurrentRound: current})
	return current
}

// Versions returns each round's version indexed by round number minus one.
func (t *Trivia) Versions() []int {
	versions := make([]int, len(t.rounds))
	for i, r := range t.rounds {
		versions[i] = r.Version()
	}
	return versions
}

// ChangedRounds returns, in round order, a snapshot of every round whose
// version differs from the caller's last known version. Missing entries in
// known count as never seen.
func (t *Trivia) ChangedRounds(known []int) []domain.RoundSnapshot {
	changed := make([]domain.RoundSnapshot, 0)
	for i, r := range t.rounds {
		last := -1
		if i < len(known) {
			last = known[i]
		}
		if snap, ok := r.snapshotIfChanged(last); ok {
			changed = append(changed, snap)
		}
	}
	return changed
}

// Poll wraps ChangedRounds with the contest metadata a client needs.
func (t *Trivia) Poll(known []int) domain.Sync {
	return domain.Sync{
		TeamName:     t.settings.TeamName,
		NRounds:      len(t.rounds),
		NTeams:       t.settings.Teams,
		CurrentRound: t.CurrentRound(),
		Rounds:       t.ChangedRounds(known),
	}
}

// Restore loads archived snapshots into their rounds. Snapshots for unknown
// round numbers are skipped. The current round becomes the highest round
// that has any recorded activity.
func (t *Trivia) Restore(snaps []domain.RoundSnapshot) int {
	restored := 0
	current := 1
	for _, snap := range snaps {
		r, err := t.Round(snap.Number)
		if err != nil {
			continue
		}
		r.Restore(snap)
		restored++
		if snap.Version > 0 && snap.Number > current {
			current = snap.Number
		}
	}
	t.mu.Lock()
	t.currentRound = current
	t.mu.Unlock()
	return restored
}

// Subscribe returns a channel of change hints. The caller must invoke the
// returned cancel function to avoid leaks.
func (t *Trivia) Subscribe() (<-chan domain.RoundChange, func()) {
	ch := make(chan domain.RoundChange, 8)

	t.mu.Lock()
	t.subscribers[ch] = struct{}{}
	t.mu.Unlock()

	cancel := func() {
		t.mu.Lock()
		if _, ok := t.subscribers[ch]; ok {
			delete(t.subscribers, ch)
			close(ch)
		}
		t.mu.Unlock()
	}
	return ch, cancel
}

func (t *Trivia) publish(change domain.RoundChange) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if change.CurrentRound == 0 {
		change.CurrentRound = t.currentRound
	}
	for ch := range t.subscribers {
		select {
		case ch <- change:
		default:
			// Hints only prompt a poll, so the oldest one can go.
			select {
			case <-ch:
			default:
			}
			ch <- change
		}
	}
}
