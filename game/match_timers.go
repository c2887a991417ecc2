package game

import (
	"time"
)

// TurnState is the session-only timing state of a match. It is never
// persisted: it is reconstructible from "whose turn, when did it start".
type TurnState struct {
	// durations is the escalating list of allowed turn lengths; a player's
	// turn uses durations[min(strikes, len-1)].
	durations []time.Duration
	// strikes counts consecutive timeouts per seat; a successful manual
	// action resets the actor's counter.
	strikes [2]int

	seq          int
	cancel       chan struct{}
	endsAt       time.Time
	lastDuration time.Duration
}

func newTurnState(durations []time.Duration) TurnState {
	if len(durations) == 0 {
		durations = []time.Duration{30 * time.Second}
	}
	return TurnState{durations: durations}
}

// durationFor returns the allowed duration for the seat's next turn,
// capped at the list's shortest (last) entry.
func (t *TurnState) durationFor(seat int) time.Duration {
	idx := t.strikes[seat]
	if idx >= len(t.durations) {
		idx = len(t.durations) - 1
	}
	return t.durations[idx]
}

// cancelTimer stops the in-flight timer goroutine, if any. The sequence
// number stays bumped so a timeout already in the action channel is
// recognized as stale and suppressed.
func (t *TurnState) cancelTimer() {
	if t.cancel != nil {
		close(t.cancel)
		t.cancel = nil
	}
	t.seq++
	t.endsAt = time.Time{}
}

// liveSeq reports whether a timer callback belongs to the currently armed
// timer. Exactly one scheduling can ever match.
func (t *TurnState) liveSeq(seq int) bool { return seq == t.seq && t.cancel != nil }

func (t *TurnState) endsAtUnixMs() int64 {
	if t.endsAt.IsZero() {
		return 0
	}
	return t.endsAt.UnixMilli()
}

// startTurnTimer arms the timer for the current player. Any previous timer
// is cancelled first; a timer fires at most once per scheduling.
func (m *Match) startTurnTimer() {
	m.turn.cancelTimer()
	seat := m.SeatOf(m.state.Load().CurrentPlayerID)
	if seat < 0 {
		return
	}
	d := m.turn.durationFor(seat)
	m.turn.lastDuration = d
	m.turn.endsAt = time.Now().Add(d)
	m.turn.cancel = make(chan struct{})

	cancel := m.turn.cancel
	seq := m.turn.seq
	go func() {
		select {
		case <-time.After(d):
			select {
			case m.Actions <- Action{Type: ActionTurnTimeout, Seq: seq}:
			case <-m.Done:
			}
		case <-cancel:
		}
	}()
}
