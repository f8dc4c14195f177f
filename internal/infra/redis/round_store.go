package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"trivia-tracker/internal/domain"
)

// Backing is the durable store behind the cache (e.g., Postgres).
type Backing interface {
	SaveRound(ctx context.Context, team string, snap domain.RoundSnapshot) error
	LoadRounds(ctx context.Context, team string) ([]domain.RoundSnapshot, error)
}

// saveNewer writes a snapshot only when its version is newer than the cached one.
// KEYS: versions hash, snapshots hash. ARGV: round, version, json, ttl millis.
var saveNewer = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], ARGV[1])
if cur and tonumber(cur) >= tonumber(ARGV[2]) then
	return 0
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
redis.call('HSET', KEYS[2], ARGV[1], ARGV[3])
if tonumber(ARGV[4]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[4])
	redis.call('PEXPIRE', KEYS[2], ARGV[4])
end
return 1
`)

// RoundStore caches round snapshots in Redis and writes through to a backing
// store. Snapshots are stored as:
//
//	HSET trivia:{team}:versions  {round} {version}
//	HSET trivia:{team}:snapshots {round} {json}
type RoundStore struct {
	client  *redis.Client
	backing Backing
	ttl     time.Duration
	sf      singleflight.Group
}

// NewRoundStore builds the cache. backing may be nil when Redis is the only store.
func NewRoundStore(client *redis.Client, backing Backing, ttl time.Duration) *RoundStore {
	return &RoundStore{client: client, backing: backing, ttl: ttl}
}

func (s *RoundStore) SaveRound(ctx context.Context, team string, snap domain.RoundSnapshot) error {
	if err := s.cache(ctx, team, snap); err != nil {
		return err
	}
	if s.backing != nil {
		return s.backing.SaveRound(ctx, team, snap)
	}
	return nil
}

// LoadRounds returns the newest snapshot of every round found in the cache or
// the backing store. Cache keys expire independently of the archive, so a
// partial cache never hides archived rounds.
func (s *RoundStore) LoadRounds(ctx context.Context, team string) ([]domain.RoundSnapshot, error) {
	cached, err := s.cached(ctx, team)
	if s.backing == nil {
		return cached, err
	}
	if err != nil {
		log.Printf("read round cache for %s: %v", team, err)
		cached = nil
	}

	result, err, _ := s.sf.Do(team, func() (interface{}, error) {
		archived, err := s.backing.LoadRounds(ctx, team)
		if err != nil {
			return nil, err
		}
		// saveNewer keeps any cached snapshot that is ahead of the archive.
		for _, snap := range archived {
			_ = s.cache(ctx, team, snap)
		}
		return archived, nil
	})
	if err != nil {
		return nil, err
	}
	return newest(cached, result.([]domain.RoundSnapshot)), nil
}

// newest merges snapshot lists, keeping the highest version of each round.
func newest(lists ...[]domain.RoundSnapshot) []domain.RoundSnapshot {
	byRound := make(map[int]domain.RoundSnapshot)
	for _, list := range lists {
		for _, snap := range list {
			if cur, ok := byRound[snap.Number]; !ok || snap.Version > cur.Version {
				byRound[snap.Number] = snap
			}
		}
	}
	out := make([]domain.RoundSnapshot, 0, len(byRound))
	for _, snap := range byRound {
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

func (s *RoundStore) cache(ctx context.Context, team string, snap domain.RoundSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal round %d: %w", snap.Number, err)
	}
	keys := []string{s.versionsKey(team), s.snapshotsKey(team)}
	ttl := s.ttlWithJitter().Milliseconds()
	if err := saveNewer.Run(ctx, s.client, keys, snap.Number, snap.Version, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache round %d: %w", snap.Number, err)
	}
	return nil
}

func (s *RoundStore) cached(ctx context.Context, team string) ([]domain.RoundSnapshot, error) {
	raw, err := s.client.HGetAll(ctx, s.snapshotsKey(team)).Result()
	if err != nil {
		return nil, err
	}
	snaps := make([]domain.RoundSnapshot, 0, len(raw))
	for field, data := range raw {
		var snap domain.RoundSnapshot
		if err := json.Unmarshal([]byte(data), &snap); err != nil {
			return nil, fmt.Errorf("unmarshal round %s: %w", field, err)
		}
		if n, err := strconv.Atoi(field); err == nil {
			snap.Number = n
		}
		snaps = append(snaps, snap)
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Number < snaps[j].Number })
	return snaps, nil
}

func (s *RoundStore) versionsKey(team string) string {
	return "trivia:" + team + ":versions"
}

func (s *RoundStore) snapshotsKey(team string) string {
	return "trivia:" + team + ":snapshots"
}

func (s *RoundStore) ttlWithJitter() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(s.ttl) / 10
	return s.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
