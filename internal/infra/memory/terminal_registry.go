package memory

import (
	"context"
	"sort"
	"sync"

	"trivia-tracker/internal/domain"
)

// TerminalRegistry is an in-memory implementation of app.TerminalRegistry.
type TerminalRegistry struct {
	mu        sync.RWMutex
	terminals map[string]domain.Terminal
}

func NewTerminalRegistry() *TerminalRegistry {
	return &TerminalRegistry{
		terminals: make(map[string]domain.Terminal),
	}
}

func (r *TerminalRegistry) Register(_ context.Context, terminal domain.Terminal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.terminals[terminal.ID] = terminal
	return nil
}

func (r *TerminalRegistry) Unregister(_ context.Context, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.terminals, id)
}

// List returns terminals ordered by connection time.
func (r *TerminalRegistry) List(_ context.Context) ([]domain.Terminal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortTerminals(r.terminals), nil
}

func sortTerminals(m map[string]domain.Terminal) []domain.Terminal {
	out := make([]domain.Terminal, 0, len(m))
	for _, t := range m {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ConnectedAt.Equal(out[j].ConnectedAt) {
			return out[i].ConnectedAt.Before(out[j].ConnectedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
