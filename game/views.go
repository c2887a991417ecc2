package game

// PlayerView is the client-facing summary of one side.
type PlayerView struct {
	UserID    string `json:"userId"`
	Score     int    `json:"score"`
	HandCount int    `json:"handCount"`
	DeckCount int    `json:"deckCount"`
}

// StateView is the game state as one participant sees it. The viewer gets
// their own hydrated hand; the opponent's hand is counts only.
type StateView struct {
	Type            string        `json:"type"`
	MatchID         string        `json:"matchId"`
	Board           []*BoardCell  `json:"board"`
	You             PlayerView    `json:"you"`
	Opponent        PlayerView    `json:"opponent"`
	Hand            []*InGameCard `json:"hand"`
	CurrentPlayerID string        `json:"currentPlayerId"`
	YourTurn        bool          `json:"yourTurn"`
	TurnNumber      int           `json:"turnNumber"`
	Status          Status        `json:"status"`
	// TurnEndsAtUnixMs is set while a turn timer is running.
	TurnEndsAtUnixMs int64 `json:"turnEndsAtUnixMs,omitempty"`
}

// JoinedMsg answers a successful join_game.
type JoinedMsg struct {
	Type        string    `json:"type"`
	GameState   StateView `json:"gameState"`
	PlayerSlot  int       `json:"playerSlot"`
	RejoinToken string    `json:"rejoinToken"`
}

// StartTurnMsg announces whose turn begins and how long it may take.
type StartTurnMsg struct {
	Type               string `json:"type"`
	CurrentPlayerID    string `json:"currentPlayerId"`
	TimeAllowedSeconds int    `json:"timeAllowedSeconds"`
}

// EventsMsg carries the applied-event log of one resolved action plus the
// resulting state for the receiving participant.
type EventsMsg struct {
	Type          string    `json:"type"`
	AppliedEvents []Event   `json:"appliedEvents"`
	GameState     StateView `json:"gameState"`
	ServerForced  bool      `json:"serverForced,omitempty"`
}

// GameEndMsg announces the terminal result. WinnerID is null for draws and
// aborts.
type GameEndMsg struct {
	Type     string  `json:"type"`
	WinnerID *string `json:"winnerId"`
	Reason   string  `json:"reason"`
}

// buildPlayerView summarizes one side for the wire.
func buildPlayerView(p *PlayerState) PlayerView {
	return PlayerView{
		UserID:    p.UserID,
		Score:     p.Score,
		HandCount: len(p.Hand),
		DeckCount: len(p.Deck),
	}
}

// BuildStateView renders the state for the given participant.
// turnEndsAtUnixMs <= 0 omits the countdown.
func BuildStateView(s *GameState, userID string, turnEndsAtUnixMs int64) StateView {
	you := s.PlayerByID(userID)
	opponent := s.PlayerByID(s.OpponentID(userID))

	hand := make([]*InGameCard, 0, len(you.Hand))
	for _, id := range you.Hand {
		if c, ok := s.Cards[id]; ok {
			hand = append(hand, c)
		}
	}

	view := StateView{
		Type:            "game_state",
		MatchID:         s.MatchID,
		Board:           s.Board[:],
		You:             buildPlayerView(you),
		Opponent:        buildPlayerView(opponent),
		Hand:            hand,
		CurrentPlayerID: s.CurrentPlayerID,
		YourTurn:        s.CurrentPlayerID == userID && !s.Status.Terminal(),
		TurnNumber:      s.TurnNumber,
		Status:          s.Status,
	}
	if turnEndsAtUnixMs > 0 && !s.Status.Terminal() {
		view.TurnEndsAtUnixMs = turnEndsAtUnixMs
	}
	return view
}
