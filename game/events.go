package game

// EventType names one entry in the applied-event log of an action.
type EventType string

const (
	EventPlaced      EventType = "placed"
	EventFlipped     EventType = "flipped"
	EventAbility     EventType = "ability"
	EventDrawn       EventType = "drawn"
	EventTurnStarted EventType = "turn_started"
	EventGameEnded   EventType = "game_ended"
)

// Event is one observable consequence of an action, in application order.
// The full list is broadcast to both clients so they can animate exactly
// what the server resolved.
type Event struct {
	Type           EventType `json:"type"`
	PlayerID       string    `json:"playerId,omitempty"`
	CardInstanceID string    `json:"cardInstanceId,omitempty"`
	Position       *Position `json:"position,omitempty"`
	// Effect is the ability effect kind for EventAbility entries.
	Effect string `json:"effect,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// EventLog accumulates events while an action resolves. Ability handlers
// append through it so clients see ability consequences interleaved in
// resolution order.
type EventLog struct {
	events []Event
}

// Add appends an event.
func (l *EventLog) Add(e Event) {
	if l == nil {
		return
	}
	l.events = append(l.events, e)
}

// Events returns the accumulated list (never nil).
func (l *EventLog) Events() []Event {
	if l == nil || l.events == nil {
		return []Event{}
	}
	return l.events
}
