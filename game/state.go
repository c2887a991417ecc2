package game

// Status is the lifecycle state of a match's game state.
type Status string

const (
	StatusActive     Status = "active"
	StatusPlayer1Win Status = "player1_win"
	StatusPlayer2Win Status = "player2_win"
	StatusDraw       Status = "draw"
	StatusAborted    Status = "aborted"
)

// Terminal reports whether the status ends the match.
func (s Status) Terminal() bool { return s != StatusActive }

// PlayerState is one side of a match within the game state.
type PlayerState struct {
	UserID string `json:"userId"`
	// Hand is the ordered list of card-instance ids the player may place.
	Hand []string `json:"hand"`
	// Deck is the remaining draw pile (top of the pile first).
	Deck []string `json:"deck"`
	// Score is always the count of board cells this player currently owns.
	Score int `json:"score"`
}

// HoldsCard reports whether the hand contains the card instance.
func (p *PlayerState) HoldsCard(cardInstanceID string) bool {
	for _, id := range p.Hand {
		if id == cardInstanceID {
			return true
		}
	}
	return false
}

// removeFromHand removes the first occurrence of the card instance,
// preserving hand order.
func (p *PlayerState) removeFromHand(cardInstanceID string) {
	for i, id := range p.Hand {
		if id == cardInstanceID {
			p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
			return
		}
	}
}

// GameState is the authoritative state of one match. Every action produces
// a fresh snapshot via Clone; a snapshot is never mutated after it has been
// published.
type GameState struct {
	MatchID         string      `json:"matchId"`
	Board           Board       `json:"board"`
	Player1         PlayerState `json:"player1"`
	Player2         PlayerState `json:"player2"`
	CurrentPlayerID string      `json:"currentPlayerId"`
	TurnNumber      int    `json:"turnNumber"`
	Status          Status `json:"status"`
	MaxHandSize     int    `json:"maxHandSize"`

	// Cards is the hydration cache: card-instance id to battle-ready
	// attributes. Filled at deal time and on every draw; entries are
	// immutable.
	Cards map[string]*InGameCard `json:"cards"`
}

// Clone returns a deep copy of the state. The hydration cache is shared
// (its entries are immutable); everything else is copied.
func (s *GameState) Clone() *GameState {
	out := *s
	out.Board = s.Board.Clone()
	out.Player1.Hand = append([]string(nil), s.Player1.Hand...)
	out.Player1.Deck = append([]string(nil), s.Player1.Deck...)
	out.Player2.Hand = append([]string(nil), s.Player2.Hand...)
	out.Player2.Deck = append([]string(nil), s.Player2.Deck...)
	out.Cards = make(map[string]*InGameCard, len(s.Cards))
	for id, c := range s.Cards {
		out.Cards[id] = c
	}
	return &out
}

// PlayerByID returns the PlayerState for the given user id, or nil.
func (s *GameState) PlayerByID(userID string) *PlayerState {
	switch userID {
	case s.Player1.UserID:
		return &s.Player1
	case s.Player2.UserID:
		return &s.Player2
	default:
		return nil
	}
}

// OpponentID returns the other participant's user id.
func (s *GameState) OpponentID(userID string) string {
	if userID == s.Player1.UserID {
		return s.Player2.UserID
	}
	return s.Player1.UserID
}

// RecomputeScores sets each player's score to the count of cells they own.
func (s *GameState) RecomputeScores() {
	s.Player1.Score = 0
	s.Player2.Score = 0
	for _, c := range s.Board {
		if c == nil {
			continue
		}
		switch c.OwnerID {
		case s.Player1.UserID:
			s.Player1.Score++
		case s.Player2.UserID:
			s.Player2.Score++
		}
	}
}

// WinnerID returns the winning user id for a terminal status, or "" for a
// draw or abort.
func (s *GameState) WinnerID() string {
	switch s.Status {
	case StatusPlayer1Win:
		return s.Player1.UserID
	case StatusPlayer2Win:
		return s.Player2.UserID
	default:
		return ""
	}
}

// FlipOwner transfers ownership of the cell at p to newOwner without moving
// the card, then fixes both scores. It is the only sanctioned way for
// ability handlers to change cell ownership.
func (s *GameState) FlipOwner(p Position, newOwner string) {
	cell := s.Board.At(p)
	if cell == nil || cell.OwnerID == newOwner {
		return
	}
	cell.OwnerID = newOwner
	s.RecomputeScores()
}
