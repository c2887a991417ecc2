// Package storage persists authoritative game state by match id and the
// match-result history. The session layer treats a write failure as fatal
// for the action being applied.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tetrad-server/game"
	"tetrad-server/matcherrors"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS game_states (
	match_id   TEXT PRIMARY KEY,
	status     TEXT NOT NULL,
	state      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_game_states_status ON game_states(status);
CREATE TABLE IF NOT EXISTS match_history (
	match_id      TEXT PRIMARY KEY,
	played_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	player1_id    TEXT NOT NULL,
	player2_id    TEXT NOT NULL,
	player1_score INT NOT NULL,
	player2_score INT NOT NULL,
	winner_id     TEXT,
	end_reason    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_match_history_player1 ON match_history(player1_id);
CREATE INDEX IF NOT EXISTS idx_match_history_player2 ON match_history(player2_id);
`

// Store persists and retrieves game states and match results.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure *Store satisfies the session's persistence boundary.
var _ game.StateStore = (*Store)(nil)

// NewStore connects to Postgres and ensures the tables exist. If
// databaseURL is empty, NewStore returns (nil, nil) and no persistence
// occurs (every method is nil-safe).
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	if databaseURL == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, err
	}
	slog.Info("connected to Postgres", "tag", "storage")
	return &Store{pool: pool}, nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// SaveState writes the authoritative snapshot for a match id (upsert).
func (s *Store) SaveState(ctx context.Context, matchID string, state *game.GameState) error {
	if s == nil || s.pool == nil {
		return nil
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding state for %s: %w", matchID, err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO game_states (match_id, status, state, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (match_id)
		DO UPDATE SET status = $2, state = $3, updated_at = now()`,
		matchID, string(state.Status), payload)
	if err != nil {
		return fmt.Errorf("writing state for %s: %w", matchID, err)
	}
	return nil
}

// LoadState reads the persisted snapshot for a match id.
func (s *Store) LoadState(ctx context.Context, matchID string) (*game.GameState, error) {
	if s == nil || s.pool == nil {
		return nil, matcherrors.ErrMatchNotFound
	}
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT state FROM game_states WHERE match_id = $1`, matchID).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, matcherrors.ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading state for %s: %w", matchID, err)
	}
	var state game.GameState
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, fmt.Errorf("decoding state for %s: %w", matchID, err)
	}
	return &state, nil
}

// InsertMatchResult records a finished match for history.
func (s *Store) InsertMatchResult(ctx context.Context, matchID string, final *game.GameState, winnerID, endReason string) error {
	if s == nil || s.pool == nil {
		return nil
	}
	var winner *string
	if winnerID != "" {
		winner = &winnerID
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO match_history
			(match_id, player1_id, player2_id, player1_score, player2_score, winner_id, end_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (match_id) DO NOTHING`,
		matchID, final.Player1.UserID, final.Player2.UserID,
		final.Player1.Score, final.Player2.Score, winner, endReason)
	if err != nil {
		return fmt.Errorf("recording result for %s: %w", matchID, err)
	}
	return nil
}
