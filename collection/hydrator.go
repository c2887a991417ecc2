// Package collection resolves opaque card-instance ids into battle-ready
// attributes (hydration) and loads deck lists. It is the boundary to the
// external collection service; the engine only sees the game.Resolver
// interface.
package collection

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

// AdjustForLevel returns the level-adjusted current powers: +1 per level
// above 1 on every side, clamped to the power bounds.
func AdjustForLevel(base game.Powers, level int) game.Powers {
	if level <= 1 {
		return game.Powers{
			Top:    game.ClampPower(base.Top),
			Right:  game.ClampPower(base.Right),
			Bottom: game.ClampPower(base.Bottom),
			Left:   game.ClampPower(base.Left),
		}
	}
	return base.Shift(level - 1)
}

// Store reads card instances and decks from Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to the collection database. An empty databaseURL
// returns (nil, nil); callers fall back to the demo catalog.
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
	slog.Info("connected to Postgres", "tag", "collection")
	return &Store{pool: pool}, nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// Resolve hydrates one card instance. When ownerUserID is non-empty the
// instance must belong to that user; a mismatch reads as not found.
func (s *Store) Resolve(ctx context.Context, cardInstanceID, ownerUserID string) (*game.InGameCard, error) {
	query := `
		SELECT c.name, c.rarity, ci.level,
		       c.power_top, c.power_right, c.power_bottom, c.power_left,
		       c.tags, c.ability_trigger, c.ability_effect
		FROM card_instances ci
		JOIN cards c ON c.id = ci.card_id
		WHERE ci.id = $1`
	args := []any{cardInstanceID}
	if ownerUserID != "" {
		query += ` AND ci.user_id = $2`
		args = append(args, ownerUserID)
	}

	var (
		name, rarity   string
		level          int
		top, right     int
		bottom, left   int
		tags           []string
		abilityTrigger *string
		abilityEffect  []byte
	)
	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&name, &rarity, &level, &top, &right, &bottom, &left,
		&tags, &abilityTrigger, &abilityEffect)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", matcherrors.ErrCardNotFound, cardInstanceID)
	}
	if err != nil {
		return nil, fmt.Errorf("resolving card instance %s: %w", cardInstanceID, err)
	}

	base := game.Powers{Top: top, Right: right, Bottom: bottom, Left: left}
	card := &game.InGameCard{
		InstanceID: cardInstanceID,
		Name:       name,
		Rarity:     rarity,
		Level:      level,
		BasePowers: base,
		Powers:     AdjustForLevel(base, level),
		Tags:       tags,
	}
	if abilityTrigger != nil && *abilityTrigger != "" {
		var params game.EffectParams
		if len(abilityEffect) > 0 {
			if err := json.Unmarshal(abilityEffect, &params); err != nil {
				return nil, fmt.Errorf("parsing ability of %s: %w", cardInstanceID, err)
			}
		}
		card.Ability = &game.AbilityDescriptor{
			Trigger: game.Moment(*abilityTrigger),
			Effect:  params,
		}
	}
	return card, nil
}

// LoadDeck returns the ordered card-instance ids of a user's deck. A deck
// whose instances belong to someone else reads as not found, mirroring
// Resolve's ownership check.
func (s *Store) LoadDeck(ctx context.Context, userID, deckRef string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT dc.card_instance_id
		FROM deck_cards dc
		JOIN card_instances ci ON ci.id = dc.card_instance_id
		WHERE dc.deck_id = $1 AND ci.user_id = $2
		ORDER BY dc.slot`, deckRef, userID)
	if err != nil {
		return nil, fmt.Errorf("loading deck %s: %w", deckRef, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: %s", matcherrors.ErrDeckNotFound, deckRef)
	}
	return ids, nil
}
