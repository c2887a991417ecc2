package ability

import (
	"tetrad-server/game"
)

// Built-in effect kinds. Each is a pure function of the in-flight snapshot;
// adding a new ability is data on a card plus one Register call here.
const (
	KindBuff   = "buff"
	KindDebuff = "debuff"
	KindWard   = "ward"
	KindCurse  = "curse"
	KindClaim  = "claim"
)

// RegisterBuiltins registers the standard effect set.
func RegisterBuiltins(r *Registry) {
	r.Register(KindBuff, applyBuff)
	r.Register(KindDebuff, applyDebuff)
	r.Register(KindWard, applyWard)
	r.Register(KindCurse, applyCurse)
	r.Register(KindClaim, applyClaim)
}

// applyBuff raises every directional power of the scoped cells. With a
// duration the delta is carried on a tile status and reverted on expiry.
func applyBuff(s *game.GameState, self, origin game.Position, actingPlayerID string, params game.EffectParams, log *game.EventLog) {
	shiftPowers(s, self, params, log, KindBuff, params.Magnitude, game.CellBuffed)
}

// applyDebuff lowers every directional power of the scoped cells.
func applyDebuff(s *game.GameState, self, origin game.Position, actingPlayerID string, params game.EffectParams, log *game.EventLog) {
	shiftPowers(s, self, params, log, KindDebuff, -params.Magnitude, game.CellDebuffed)
}

func shiftPowers(s *game.GameState, self game.Position, params game.EffectParams, log *game.EventLog, kind string, delta int, state game.CellState) {
	for _, p := range targets(s, self, params.Scope) {
		cell := s.Board.At(p)
		cell.Powers = cell.Powers.Shift(delta)
		cell.State = state
		if params.Duration > 0 {
			cell.Tile = &game.TileStatus{Kind: kind, TurnsLeft: params.Duration, Magnitude: params.Magnitude}
		}
		pos := p
		log.Add(game.Event{Type: game.EventAbility, Effect: kind, Position: &pos, CardInstanceID: cell.CardInstanceID})
	}
}

// applyWard makes the scoped cells immune to flips for the duration.
func applyWard(s *game.GameState, self, origin game.Position, actingPlayerID string, params game.EffectParams, log *game.EventLog) {
	duration := params.Duration
	if duration <= 0 {
		duration = 1
	}
	for _, p := range targets(s, self, params.Scope) {
		cell := s.Board.At(p)
		cell.State = game.CellImmune
		cell.Tile = &game.TileStatus{Kind: KindWard, TurnsLeft: duration}
		pos := p
		log.Add(game.Event{Type: game.EventAbility, Effect: KindWard, Position: &pos, CardInstanceID: cell.CardInstanceID})
	}
}

// applyCurse attaches a countdown that drains power from the scoped cells
// at every turn start until it expires.
func applyCurse(s *game.GameState, self, origin game.Position, actingPlayerID string, params game.EffectParams, log *game.EventLog) {
	duration := params.Duration
	if duration <= 0 {
		duration = 1
	}
	magnitude := params.Magnitude
	if magnitude <= 0 {
		magnitude = 1
	}
	for _, p := range targets(s, self, params.Scope) {
		cell := s.Board.At(p)
		cell.Tile = &game.TileStatus{Kind: KindCurse, TurnsLeft: duration, Magnitude: magnitude}
		cell.State = game.CellDebuffed
		pos := p
		log.Add(game.Event{Type: game.EventAbility, Effect: KindCurse, Position: &pos, CardInstanceID: cell.CardInstanceID})
	}
}

// applyClaim flips ownership of the scoped cells to the owner of the
// ability's cell. This is the only sanctioned way to express flip cascades
// or early-termination variants: a secondary, ability-triggered action, not
// engine recursion. Immune cells resist.
func applyClaim(s *game.GameState, self, origin game.Position, actingPlayerID string, params game.EffectParams, log *game.EventLog) {
	selfCell := s.Board.At(self)
	if selfCell == nil {
		return
	}
	newOwner := selfCell.OwnerID
	for _, p := range targets(s, self, params.Scope) {
		cell := s.Board.At(p)
		if cell.State == game.CellImmune || cell.OwnerID == newOwner {
			continue
		}
		s.FlipOwner(p, newOwner)
		pos := p
		log.Add(game.Event{Type: game.EventAbility, Effect: KindClaim, PlayerID: newOwner, Position: &pos, CardInstanceID: cell.CardInstanceID})
	}
}
