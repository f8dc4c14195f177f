package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"trivia-tracker/internal/domain"
)

// RoundArchive keeps the newest snapshot of each round as JSONB in Postgres.
type RoundArchive struct {
	pool *pgxpool.Pool
}

func NewRoundArchive(pool *pgxpool.Pool) *RoundArchive {
	return &RoundArchive{pool: pool}
}

// SaveRound upserts snap; an older version never replaces a newer one.
func (a *RoundArchive) SaveRound(ctx context.Context, team string, snap domain.RoundSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal round: %w", err)
	}
	_, err = a.pool.Exec(ctx, `
INSERT INTO round_snapshots (team, round, version, data, updated_at)
VALUES ($1, $2, $3, $4::jsonb, now())
ON CONFLICT (team, round) DO UPDATE
SET version = EXCLUDED.version, data = EXCLUDED.data, updated_at = now()
WHERE round_snapshots.version < EXCLUDED.version`,
		team, snap.Number, snap.Version, string(data))
	if err != nil {
		return fmt.Errorf("save round: %w", err)
	}
	return nil
}

// LoadRounds returns the team's archived rounds in round order.
func (a *RoundArchive) LoadRounds(ctx context.Context, team string) ([]domain.RoundSnapshot, error) {
	rows, err := a.pool.Query(ctx, `SELECT data FROM round_snapshots WHERE team=$1 ORDER BY round`, team)
	if err != nil {
		return nil, fmt.Errorf("load rounds: %w", err)
	}
	defer rows.Close()

	var snaps []domain.RoundSnapshot
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		var snap domain.RoundSnapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			return nil, fmt.Errorf("unmarshal round: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load rounds: %w", err)
	}
	return snaps, nil
}
