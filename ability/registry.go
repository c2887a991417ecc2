// Package ability implements the trigger/effect execution contract of the
// combat engine: effects are parameterized data on cards, handlers are
// registered by effect kind, and the registry applies every matching
// ability in board-scan order when the engine fires a trigger moment.
package ability

import (
	"log/slog"

	"tetrad-server/game"
)

// Handler applies one effect kind. self is the cell whose card carries the
// ability; origin is the cell the trigger moment happened at (the placed or
// flipped cell), or (-1,-1) for turn boundaries. Handlers mutate the
// in-flight snapshot the engine is resolving and append to the event log;
// they must stay deterministic.
type Handler func(s *game.GameState, self, origin game.Position, actingPlayerID string, params game.EffectParams, log *game.EventLog)

// Registry maps effect kinds to handlers. Trigger moments are open string
// tags carried by card data, so a card may declare a moment the engine has
// never heard of; the registry dispatches on whatever tag occurs.
type Registry struct {
	handlers map[string]Handler
	order    []string // registration order, for introspection and tests
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds (or replaces) the handler for an effect kind.
func (r *Registry) Register(kind string, h Handler) {
	if _, exists := r.handlers[kind]; !exists {
		r.order = append(r.order, kind)
	}
	r.handlers[kind] = h
}

// Kinds returns the registered effect kinds in registration order.
func (r *Registry) Kinds() []string {
	return append([]string(nil), r.order...)
}

// Fire applies every ability whose trigger matches the moment, scanning the
// board top-left to bottom-right. The scan order is part of the contract:
// abilities can read and write overlapping cells, so application order must
// be deterministic and documented.
func (r *Registry) Fire(s *game.GameState, moment game.Moment, origin game.Position, actingPlayerID string, log *game.EventLog) {
	for i := 0; i < game.BoardCells; i++ {
		pos := game.PositionAt(i)
		cell := s.Board.At(pos)
		if cell == nil {
			continue
		}
		card, ok := s.Cards[cell.CardInstanceID]
		if !ok || card.Ability == nil || card.Ability.Trigger != moment {
			continue
		}
		params := card.Ability.Effect
		if !conditionMet(s, origin, params) {
			continue
		}
		h, ok := r.handlers[params.Kind]
		if !ok {
			slog.Warn("no handler for ability effect", "tag", "ability", "kind", params.Kind)
			continue
		}
		h(s, pos, origin, actingPlayerID, params, log)
	}
}

// conditionMet evaluates the structured condition of an effect: a minimum
// turn number and/or a tag required on the card at the trigger origin.
func conditionMet(s *game.GameState, origin game.Position, params game.EffectParams) bool {
	if params.MinTurn > 0 && s.TurnNumber < params.MinTurn {
		return false
	}
	if params.RequiresTag != "" {
		cell := s.Board.At(origin)
		if cell == nil {
			return false
		}
		card, ok := s.Cards[cell.CardInstanceID]
		if !ok || !card.HasTag(params.RequiresTag) {
			return false
		}
	}
	return true
}

// targets resolves a scope relative to the ability's own cell. Allies and
// enemies are judged against the owner of that cell (ownership may have
// flipped since placement; the current owner decides).
func targets(s *game.GameState, self game.Position, scope game.TargetScope) []game.Position {
	owner := ""
	if cell := s.Board.At(self); cell != nil {
		owner = cell.OwnerID
	}

	var out []game.Position
	add := func(p game.Position, wantAlly bool) {
		cell := s.Board.At(p)
		if cell == nil {
			return
		}
		if (cell.OwnerID == owner) == wantAlly {
			out = append(out, p)
		}
	}

	switch scope {
	case game.ScopeSelf, "":
		if s.Board.At(self) != nil {
			out = append(out, self)
		}
	case game.ScopeAdjacentAllies, game.ScopeAdjacentEnemies:
		wantAlly := scope == game.ScopeAdjacentAllies
		for _, d := range game.Directions {
			add(self.Offset(d), wantAlly)
		}
	case game.ScopeAllAllies, game.ScopeAllEnemies:
		wantAlly := scope == game.ScopeAllAllies
		for i := 0; i < game.BoardCells; i++ {
			p := game.PositionAt(i)
			if p == self {
				continue
			}
			add(p, wantAlly)
		}
	}
	return out
}
