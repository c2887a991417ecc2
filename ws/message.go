package ws

import "encoding/json"

// InboundEnvelope is the generic envelope for all client-to-server messages.
// The Type field is used for routing; Raw holds the full JSON payload.
type InboundEnvelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// UnmarshalJSON implements custom unmarshaling to capture the raw payload.
func (e *InboundEnvelope) UnmarshalJSON(data []byte) error {
	type typeOnly struct {
		Type string `json:"type"`
	}
	var t typeOnly
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	e.Type = t.Type
	e.Raw = json.RawMessage(data)
	return nil
}

// --- Client-to-Server message payloads ---

// JoinGameMsg binds an authenticated connection to a match. RejoinToken is
// required when resuming after a disconnect without a fresh auth token.
type JoinGameMsg struct {
	Type        string `json:"type"`
	MatchID     string `json:"matchId"`
	Token       string `json:"token"`
	RejoinToken string `json:"rejoinToken,omitempty"`
}

// PositionMsg is a board coordinate in action payloads.
type PositionMsg struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// ActionMsg is sent by the client to play its turn. ActionType is one of
// "place_card", "end_turn", "surrender". CardInstanceID and Position are
// only meaningful for place_card.
type ActionMsg struct {
	Type           string       `json:"type"`
	MatchID        string       `json:"matchId"`
	ActionType     string       `json:"actionType"`
	CardInstanceID string       `json:"cardInstanceId,omitempty"`
	Position       *PositionMsg `json:"position,omitempty"`
}

// AnimationsCompleteMsg tells the server the client finished rendering the
// last event batch. Advisory: it never gates server-side progress.
type AnimationsCompleteMsg struct {
	Type    string `json:"type"`
	MatchID string `json:"matchId"`
}

// --- Server-to-Client messages ---
// The joined/start_turn/events/game_end payloads live in the game package
// next to the view types they carry.

// ErrorMsg is sent when a client message is invalid or rejected.
type ErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
