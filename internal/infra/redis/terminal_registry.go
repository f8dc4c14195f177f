package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"trivia-tracker/internal/domain"
)

// TerminalRegistry is a Redis-backed implementation of app.TerminalRegistry.
// Notes:
//   - Terminals live in one hash per team so every server instance sees the
//     same roster.
//   - The hash expires after ttl without registrations, which clears
//     terminals left behind by a crashed instance.
type TerminalRegistry struct {
	client *redis.Client
	team   string
	ttl    time.Duration
}

func NewTerminalRegistry(client *redis.Client, team string, ttl time.Duration) *TerminalRegistry {
	return &TerminalRegistry{client: client, team: team, ttl: ttl}
}

func (r *TerminalRegistry) Register(ctx context.Context, terminal domain.Terminal) error {
	data, err := json.Marshal(terminal)
	if err != nil {
		return fmt.Errorf("marshal terminal: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, r.key(), terminal.ID, data)
	if r.ttl > 0 {
		pipe.Expire(ctx, r.key(), r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("register terminal: %w", err)
	}
	return nil
}

func (r *TerminalRegistry) Unregister(ctx context.Context, id string) {
	// best-effort; the key TTL reaps anything missed
	_ = r.client.HDel(ctx, r.key(), id).Err()
}

func (r *TerminalRegistry) List(ctx context.Context) ([]domain.Terminal, error) {
	raw, err := r.client.HGetAll(ctx, r.key()).Result()
	if err != nil {
		return nil, fmt.Errorf("list terminals: %w", err)
	}
	out := make([]domain.Terminal, 0, len(raw))
	for _, data := range raw {
		var t domain.Terminal
		if err := json.Unmarshal([]byte(data), &t); err != nil {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ConnectedAt.Equal(out[j].ConnectedAt) {
			return out[i].ConnectedAt.Before(out[j].ConnectedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *TerminalRegistry) key() string {
	return "trivia:" + r.team + ":terminals"
}
