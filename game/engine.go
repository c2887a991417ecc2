package game

import (
	"context"
	"fmt"
	"math/rand"

	"tetrad-server/matcherrors"
)

// Resolver hydrates an opaque card-instance id into its battle-ready
// attributes. Implemented by the collection package; the engine only ever
// calls it at deal and draw time, and caches the result on the state.
type Resolver interface {
	Resolve(ctx context.Context, cardInstanceID, ownerUserID string) (*InGameCard, error)
}

// AbilityRunner dispatches registered ability effects at trigger moments.
// Implemented by the ability package; a nil runner disables abilities
// (useful in tests and in the AI's flip approximation).
type AbilityRunner interface {
	Fire(s *GameState, moment Moment, origin Position, actingPlayerID string, log *EventLog)
}

// Move is a (card, cell) action, as produced by the opponent heuristic.
type Move struct {
	CardInstanceID string
	Pos            Position
}

// MovePicker selects a move for a player, or nil when the hand is empty
// (the caller must treat nil as a pass). Implemented by the ai package.
type MovePicker interface {
	PickMove(s *GameState, playerID string) *Move
}

// Engine is the pure state-transition core: given a state and an action it
// produces the next state and an ordered event log. It holds no per-match
// data, so one engine serves every match.
type Engine struct {
	cards       Resolver
	abilities   AbilityRunner
	maxHandSize int
}

// NewEngine creates an engine. maxHandSize <= 0 falls back to 5.
func NewEngine(cards Resolver, abilities AbilityRunner, maxHandSize int) *Engine {
	if maxHandSize <= 0 {
		maxHandSize = 5
	}
	return &Engine{cards: cards, abilities: abilities, maxHandSize: maxHandSize}
}

// InitializeGame shuffles each player's card list independently, deals the
// opening hands (hydrating every dealt card into the cache), seeds an empty
// board and gives player 1 the first turn.
func (e *Engine) InitializeGame(ctx context.Context, matchID string, player1Cards, player2Cards []string, player1ID, player2ID string) (*GameState, error) {
	s := &GameState{
		MatchID:         matchID,
		Player1:         PlayerState{UserID: player1ID},
		Player2:         PlayerState{UserID: player2ID},
		CurrentPlayerID: player1ID,
		TurnNumber:      1,
		Status:          StatusActive,
		MaxHandSize:     e.maxHandSize,
		Cards:           make(map[string]*InGameCard),
	}

	deal := func(p *PlayerState, cards []string) error {
		deck := append([]string(nil), cards...)
		rand.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
		n := e.maxHandSize
		if n > len(deck) {
			n = len(deck)
		}
		p.Hand = deck[:n:n]
		p.Deck = deck[n:]
		for _, id := range p.Hand {
			if err := e.hydrate(ctx, s, id, p.UserID); err != nil {
				return err
			}
		}
		return nil
	}
	if err := deal(&s.Player1, player1Cards); err != nil {
		return nil, err
	}
	if err := deal(&s.Player2, player2Cards); err != nil {
		return nil, err
	}
	return s, nil
}

// PlaceCard applies one placement and returns the next state snapshot plus
// the applied-event log. The input state is never mutated; on error it
// stands unchanged.
//
// Resolution order: write cell, remove from hand, OnPlace triggers, the four
// independent directional comparisons (strictly greater flips, ties and
// immune cells do not; flips never chain within one placement), OnFlip and
// OnFlipped triggers, score recount, draw, then terminal check or turn
// handover.
func (e *Engine) PlaceCard(ctx context.Context, s *GameState, playerID, cardInstanceID string, pos Position) (*GameState, []Event, error) {
	if s.Status.Terminal() {
		return nil, nil, matcherrors.ErrMatchNotActive
	}
	player := s.PlayerByID(playerID)
	if player == nil {
		return nil, nil, matcherrors.ErrNotParticipant
	}
	if s.CurrentPlayerID != playerID {
		return nil, nil, matcherrors.ErrNotYourTurn
	}
	if !pos.InBounds() {
		return nil, nil, matcherrors.ErrOutOfBounds
	}
	if s.Board.At(pos) != nil {
		return nil, nil, matcherrors.ErrCellOccupied
	}
	if !player.HoldsCard(cardInstanceID) {
		return nil, nil, matcherrors.ErrCardNotInHand
	}

	next := s.Clone()
	log := &EventLog{}

	card, ok := next.Cards[cardInstanceID]
	if !ok {
		// Hand cards are hydrated at deal/draw time, so this only happens
		// for states rebuilt from incomplete persistence.
		if err := e.hydrate(ctx, next, cardInstanceID, playerID); err != nil {
			return nil, nil, err
		}
		card = next.Cards[cardInstanceID]
	}

	next.Board.Set(pos, &BoardCell{
		OwnerID:        playerID,
		CardInstanceID: cardInstanceID,
		Powers:         card.Powers,
		Level:          card.Level,
		State:          CellNormal,
	})
	next.PlayerByID(playerID).removeFromHand(cardInstanceID)
	log.Add(Event{Type: EventPlaced, PlayerID: playerID, CardInstanceID: cardInstanceID, Position: &pos})

	e.fire(next, OnPlace, pos, playerID, log)

	flipped := resolveFlips(next, pos, playerID, log)
	if len(flipped) > 0 {
		e.fire(next, OnFlip, pos, playerID, log)
		for _, fp := range flipped {
			e.fire(next, OnFlipped, fp, playerID, log)
		}
	}
	next.RecomputeScores()

	if err := e.draw(ctx, next, playerID, log); err != nil {
		return nil, nil, err
	}

	if next.Status.Terminal() {
		// An ability forced a terminal status mid-resolution.
		log.Add(Event{Type: EventGameEnded, Detail: string(next.Status)})
	} else if next.Board.Full() {
		e.finish(next, log)
	} else {
		e.advanceTurn(next, playerID, pos, log)
	}
	return next, log.Events(), nil
}

// EndTurn passes the turn without a placement. Placement is mandatory while
// the player holds cards, so passing is legal only with an empty hand (a
// player can run out of cards before the board fills).
func (e *Engine) EndTurn(s *GameState, playerID string) (*GameState, []Event, error) {
	if s.Status.Terminal() {
		return nil, nil, matcherrors.ErrMatchNotActive
	}
	player := s.PlayerByID(playerID)
	if player == nil {
		return nil, nil, matcherrors.ErrNotParticipant
	}
	if s.CurrentPlayerID != playerID {
		return nil, nil, matcherrors.ErrNotYourTurn
	}
	if len(player.Hand) > 0 {
		return nil, nil, matcherrors.ErrHandNotEmpty
	}

	next := s.Clone()
	log := &EventLog{}
	e.advanceTurn(next, playerID, noOrigin, log)
	return next, log.Events(), nil
}

// noOrigin marks trigger moments with no meaningful origin cell
// (turn boundaries).
var noOrigin = Position{X: -1, Y: -1}

// resolveFlips runs the directional combat for a newly placed card. Facing
// pairs: placed.top vs above.bottom, placed.right vs right.left,
// placed.bottom vs below.top, placed.left vs left.right. All four
// comparisons read the board as of placement; a flipped neighbor never
// triggers secondary comparisons in the same action.
func resolveFlips(s *GameState, pos Position, playerID string, log *EventLog) []Position {
	placed := s.Board.At(pos)
	if placed == nil {
		return nil
	}
	var wins []Position
	for _, d := range Directions {
		np := pos.Offset(d)
		n := s.Board.At(np)
		if n == nil || n.OwnerID == playerID || n.State == CellImmune {
			continue
		}
		if placed.Powers.Side(d) > n.Powers.Side(d.Opposite()) {
			wins = append(wins, np)
		}
	}
	for _, np := range wins {
		cell := s.Board.At(np)
		cell.OwnerID = playerID
		log.Add(Event{Type: EventFlipped, PlayerID: playerID, CardInstanceID: cell.CardInstanceID, Position: &np})
	}
	return wins
}

// CountFlips returns how many opponent cards a card with the given powers
// would flip if placed at pos by playerID. Read-only; abilities are not
// simulated. Used by the opponent heuristic.
func CountFlips(s *GameState, playerID string, powers Powers, pos Position) int {
	if !pos.InBounds() || s.Board.At(pos) != nil {
		return 0
	}
	n := 0
	for _, d := range Directions {
		neighbor := s.Board.At(pos.Offset(d))
		if neighbor == nil || neighbor.OwnerID == playerID || neighbor.State == CellImmune {
			continue
		}
		if powers.Side(d) > neighbor.Powers.Side(d.Opposite()) {
			n++
		}
	}
	return n
}

// draw moves the top deck card to the hand when the hand is short and the
// deck is non-empty, hydrating it into the cache.
func (e *Engine) draw(ctx context.Context, s *GameState, playerID string, log *EventLog) error {
	p := s.PlayerByID(playerID)
	if len(p.Hand) >= s.MaxHandSize || len(p.Deck) == 0 {
		return nil
	}
	id := p.Deck[0]
	if err := e.hydrate(ctx, s, id, playerID); err != nil {
		return err
	}
	p.Deck = p.Deck[1:]
	p.Hand = append(p.Hand, id)
	log.Add(Event{Type: EventDrawn, PlayerID: playerID, CardInstanceID: id})
	return nil
}

// advanceTurn fires the turn-boundary triggers, hands the turn to the
// opponent and ticks tile-status countdowns.
func (e *Engine) advanceTurn(s *GameState, actingPlayerID string, origin Position, log *EventLog) {
	e.fire(s, OnTurnEnd, origin, actingPlayerID, log)
	if s.Status.Terminal() {
		log.Add(Event{Type: EventGameEnded, Detail: string(s.Status)})
		return
	}
	s.CurrentPlayerID = s.OpponentID(actingPlayerID)
	s.TurnNumber++
	tickTileStatuses(s, log)
	e.fire(s, OnTurnStart, noOrigin, s.CurrentPlayerID, log)
	if s.Status.Terminal() {
		log.Add(Event{Type: EventGameEnded, Detail: string(s.Status)})
		return
	}
	log.Add(Event{Type: EventTurnStarted, PlayerID: s.CurrentPlayerID, Detail: fmt.Sprintf("turn %d", s.TurnNumber)})
}

// finish resolves the board-full terminal condition: higher score wins,
// ties are draws. Any earlier end (elimination variants and the like) must
// come from an ability forcing the status, never from engine special cases.
func (e *Engine) finish(s *GameState, log *EventLog) {
	switch {
	case s.Player1.Score > s.Player2.Score:
		s.Status = StatusPlayer1Win
	case s.Player2.Score > s.Player1.Score:
		s.Status = StatusPlayer2Win
	default:
		s.Status = StatusDraw
	}
	log.Add(Event{Type: EventGameEnded, PlayerID: s.WinnerID(), Detail: string(s.Status)})
}

// tickTileStatuses advances every countdown status by one turn: curses
// drain power, expiring buffs/debuffs revert their delta, expiring wards
// drop immunity.
func tickTileStatuses(s *GameState, log *EventLog) {
	for i, cell := range s.Board {
		if cell == nil || cell.Tile == nil {
			continue
		}
		pos := PositionAt(i)
		if cell.Tile.Kind == "curse" {
			cell.Powers = cell.Powers.Shift(-cell.Tile.Magnitude)
			log.Add(Event{Type: EventAbility, Effect: "curse", Position: &pos, Detail: "drained"})
		}
		cell.Tile.TurnsLeft--
		if cell.Tile.TurnsLeft > 0 {
			continue
		}
		switch cell.Tile.Kind {
		case "buff":
			cell.Powers = cell.Powers.Shift(-cell.Tile.Magnitude)
		case "debuff":
			cell.Powers = cell.Powers.Shift(cell.Tile.Magnitude)
		}
		log.Add(Event{Type: EventAbility, Effect: cell.Tile.Kind, Position: &pos, Detail: "expired"})
		cell.Tile = nil
		cell.State = CellNormal
	}
}

func (e *Engine) fire(s *GameState, moment Moment, origin Position, actingPlayerID string, log *EventLog) {
	if e.abilities == nil {
		return
	}
	e.abilities.Fire(s, moment, origin, actingPlayerID, log)
}

func (e *Engine) hydrate(ctx context.Context, s *GameState, cardInstanceID, ownerUserID string) error {
	if _, ok := s.Cards[cardInstanceID]; ok {
		return nil
	}
	if e.cards == nil {
		return fmt.Errorf("%w: %s", matcherrors.ErrCardNotFound, cardInstanceID)
	}
	card, err := e.cards.Resolve(ctx, cardInstanceID, ownerUserID)
	if err != nil {
		return fmt.Errorf("hydrating %s: %w", cardInstanceID, err)
	}
	s.Cards[cardInstanceID] = card
	return nil
}
