package game

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"tetrad-server/matcherrors"
	"tetrad-server/wsutil"
)

// Phase is the session lifecycle of a match (distinct from the game-state
// Status: a match can be awaiting players while its state is already
// active).
type Phase int

const (
	PhaseAwaitingPlayers Phase = iota
	PhaseActive
	PhaseCompleted
	PhaseAborted
)

// ActionType enumerates the kinds of actions a match session can process.
type ActionType int

const (
	ActionPlaceCard ActionType = iota
	ActionEndTurn
	ActionSurrender
	ActionAnimationsComplete // advisory; never gates server logic
	ActionAttach             // join or rejoin with a live connection
	ActionPlayerDisconnected // connection lost; start the grace window
	ActionGraceExpired       // internal: grace window elapsed
	ActionTurnTimeout        // internal: turn timer elapsed
)

// Action is one message into the match's action channel. All state
// transitions for one match flow through this channel, which is the
// serialization point the combat engine relies on.
type Action struct {
	Type           ActionType
	Seat           int
	CardInstanceID string
	Pos            Position
	// Send identifies the originating connection: the new send channel for
	// Attach, and for player actions and PlayerDisconnected the channel the
	// action arrived on, so a stale, already-evicted connection can neither
	// act for its seat nor start a grace window.
	Send chan []byte
	// Seq suppresses stale internal timer callbacks: a timeout or grace
	// expiry whose Seq no longer matches the live timer lost its race and
	// must have no effect.
	Seq int
}

// Seat is one participant slot in a live match.
type Seat struct {
	UserID string
	// RejoinToken lets a disconnected participant resume the match.
	RejoinToken string
	Send        chan []byte
	Connected   bool
}

// StateStore persists the authoritative state by match id. A write failure
// is fatal for the action being applied: the previous state stands.
type StateStore interface {
	SaveState(ctx context.Context, matchID string, s *GameState) error
}

// RewardsSink receives the final state when a match ends. Fire-and-forget:
// the session never waits on it.
type RewardsSink interface {
	MatchEnded(matchID string, final *GameState, reason string)
}

// Match owns one active match's real-time lifecycle: seat membership, the
// escalating turn timer, timeout-forced AI moves, the disconnect grace
// window, duplicate-session eviction and termination. It processes actions
// strictly sequentially; different matches are fully independent.
type Match struct {
	ID string

	engine  *Engine
	mover   MovePicker
	store   StateStore
	rewards RewardsSink

	// state is the published snapshot: the match goroutine stores a fresh
	// clone per action while HTTP handlers load it concurrently. Snapshots
	// are immutable once stored.
	state atomic.Pointer[GameState]
	phase Phase
	seats [2]*Seat
	turn  TurnState

	// Grace windows are tracked per seat: both participants can be inside
	// a window at once, and each rejoin or expiry settles only its own.
	grace         time.Duration
	graceSeq      [2]int
	graceCancel   [2]chan struct{}
	graceDeadline [2]time.Time

	finished atomic.Bool

	Actions chan Action
	Done    chan struct{}

	// OnMatchEnd is called once when the match finalizes, after the
	// game_end broadcast. The matchmaker uses it to drop the match from
	// the live table and record history. winnerID is "" for draws/aborts.
	OnMatchEnd func(matchID string, final *GameState, winnerID, reason string)
}

// NewMatch wraps a freshly initialized game state in a session.
// turnDurations is the escalating allowed-duration list (longest first);
// grace is the reconnect window after a disconnect.
func NewMatch(id string, state *GameState, engine *Engine, mover MovePicker, store StateStore, rewards RewardsSink, turnDurations []time.Duration, grace time.Duration) *Match {
	m := &Match{
		ID:      id,
		engine:  engine,
		mover:   mover,
		store:   store,
		rewards: rewards,
		phase:   PhaseAwaitingPlayers,
		seats: [2]*Seat{
			{UserID: state.Player1.UserID, RejoinToken: uuid.NewString()},
			{UserID: state.Player2.UserID, RejoinToken: uuid.NewString()},
		},
		turn:    newTurnState(turnDurations),
		grace:   grace,
		Actions: make(chan Action, 16),
		Done:    make(chan struct{}),
	}
	m.state.Store(state)
	return m
}

// State returns the current authoritative snapshot. Snapshots are immutable
// once published, so reading one outside the loop is safe.
func (m *Match) State() *GameState { return m.state.Load() }

// Finished reports whether the match has been finalized.
func (m *Match) Finished() bool { return m.finished.Load() }

// SeatOf returns the seat index of the user, or -1.
func (m *Match) SeatOf(userID string) int {
	for i, s := range m.seats {
		if s.UserID == userID {
			return i
		}
	}
	return -1
}

// RejoinToken returns the resume token for a seat (sent in the joined
// payload so the client can survive a reconnect).
func (m *Match) RejoinToken(seat int) string {
	if seat < 0 || seat > 1 {
		return ""
	}
	return m.seats[seat].RejoinToken
}

// Run is the match loop. It processes actions sequentially until the match
// finalizes. It should be run as a goroutine.
func (m *Match) Run() {
	defer close(m.Done)

	for {
		action, ok := <-m.Actions
		if !ok || m.finished.Load() {
			return
		}
		switch action.Type {
		case ActionAttach:
			m.handleAttach(action.Seat, action.Send)
		case ActionPlayerDisconnected:
			m.handleDisconnected(action.Seat, action.Send)
		case ActionGraceExpired:
			m.handleGraceExpired(action.Seat, action.Seq)
		case ActionTurnTimeout:
			m.handleTurnTimeout(action.Seq)
		case ActionPlaceCard:
			if m.staleSender(action) {
				break
			}
			m.handlePlace(action.Seat, action.CardInstanceID, action.Pos, false)
		case ActionEndTurn:
			if m.staleSender(action) {
				break
			}
			m.handleEndTurn(action.Seat, false)
		case ActionSurrender:
			if m.staleSender(action) {
				break
			}
			m.handleSurrender(action.Seat)
		case ActionAnimationsComplete:
			// Advisory only.
		}
		if m.finished.Load() {
			return
		}
	}
}

// staleSender reports whether a player action came from a connection that
// is no longer the seat's live one: an evicted session's read loop may
// still be flushing messages. Internal actions carry no Send channel and
// are never stale.
func (m *Match) staleSender(a Action) bool {
	if a.Send == nil || a.Seat < 0 || a.Seat > 1 {
		return false
	}
	return m.seats[a.Seat].Send != a.Send
}

// handlePlace applies a placement through the engine. forced marks moves
// the server played on a timed-out player's behalf.
func (m *Match) handlePlace(seat int, cardInstanceID string, pos Position, forced bool) {
	if m.phase != PhaseActive {
		m.sendError(seat, "match has not started")
		return
	}
	userID := m.seats[seat].UserID
	next, events, err := m.engine.PlaceCard(context.Background(), m.state.Load(), userID, cardInstanceID, pos)
	if err != nil {
		m.rejectAction(seat, err, forced)
		return
	}
	m.applyNext(seat, next, events, forced)
}

// handleEndTurn applies a pass (legal only with an empty hand).
func (m *Match) handleEndTurn(seat int, forced bool) {
	if m.phase != PhaseActive {
		m.sendError(seat, "match has not started")
		return
	}
	userID := m.seats[seat].UserID
	next, events, err := m.engine.EndTurn(m.state.Load(), userID)
	if err != nil {
		m.rejectAction(seat, err, forced)
		return
	}
	m.applyNext(seat, next, events, forced)
}

// rejectAction reports an engine rejection. Illegal moves go to the acting
// client only and change nothing; a forced move failing is a server bug
// worth a log line.
func (m *Match) rejectAction(seat int, err error, forced bool) {
	if forced {
		slog.Error("server-forced move rejected", "tag", "game", "match", m.ID, "err", err)
		return
	}
	m.sendError(seat, IllegalMoveMessage(err))
}

// applyNext persists and publishes the next snapshot, then either finalizes
// or arms the next turn timer. On a persistence failure the action is not
// applied and the acting client is told to retry.
func (m *Match) applyNext(seat int, next *GameState, events []Event, forced bool) {
	if m.store != nil {
		if err := m.store.SaveState(context.Background(), m.ID, next); err != nil {
			slog.Error("persisting state", "tag", "game", "match", m.ID, "err", err)
			m.sendError(seat, matcherrors.ErrStateWriteRetry.Error())
			return
		}
	}
	m.state.Store(next)
	if !forced {
		m.turn.strikes[seat] = 0
	}

	if next.Status.Terminal() {
		m.turn.cancelTimer()
		m.broadcastEvents(events, forced)
		m.finalize(next.WinnerID(), "completed")
		return
	}

	m.startTurnTimer()
	m.broadcastEvents(events, forced)
	m.broadcastStartTurn()
}

// handleSurrender finalizes immediately with the opponent as winner.
func (m *Match) handleSurrender(seat int) {
	winner := m.seats[1-seat].UserID
	m.finalize(winner, "surrender")
}

// handleTurnTimeout plays the timed-out player's turn through the opponent
// heuristic, exactly as a normal action but tagged server-forced, and
// escalates that player's time pressure.
func (m *Match) handleTurnTimeout(seq int) {
	if !m.turn.liveSeq(seq) || m.phase != PhaseActive {
		return
	}
	cur := m.state.Load()
	seat := m.SeatOf(cur.CurrentPlayerID)
	if seat < 0 {
		return
	}
	m.turn.strikes[seat]++
	slog.Info("turn timed out, forcing move", "tag", "game",
		"match", m.ID, "user", m.seats[seat].UserID, "strikes", m.turn.strikes[seat])

	var mv *Move
	if m.mover != nil {
		mv = m.mover.PickMove(cur, m.seats[seat].UserID)
	}
	if mv == nil {
		// Empty hand: the forced action is a pass.
		m.handleEndTurn(seat, true)
		return
	}
	m.handlePlace(seat, mv.CardInstanceID, mv.Pos, true)
}

// finalize tears down timers, broadcasts game_end, hands the final state to
// the rewards collaborator and fires OnMatchEnd. It runs at most once.
func (m *Match) finalize(winnerID, reason string) {
	if m.finished.Load() {
		return
	}
	m.finished.Store(true)
	m.turn.cancelTimer()
	m.cancelGraceTimer(0)
	m.cancelGraceTimer(1)

	final := m.state.Load()
	if !final.Status.Terminal() {
		final = final.Clone()
		switch winnerID {
		case final.Player1.UserID:
			final.Status = StatusPlayer1Win
		case final.Player2.UserID:
			final.Status = StatusPlayer2Win
		default:
			if reason == "completed" {
				final.Status = StatusDraw
			} else {
				final.Status = StatusAborted
			}
		}
		m.state.Store(final)
	}
	if m.phase == PhaseActive || m.phase == PhaseAwaitingPlayers {
		if final.Status == StatusAborted {
			m.phase = PhaseAborted
		} else {
			m.phase = PhaseCompleted
		}
	}

	if m.store != nil {
		if err := m.store.SaveState(context.Background(), m.ID, final); err != nil {
			slog.Error("persisting final state", "tag", "game", "match", m.ID, "err", err)
		}
	}

	msg := GameEndMsg{Type: "game_end", Reason: reason}
	if winnerID != "" {
		msg.WinnerID = &winnerID
	}
	m.broadcast(msg)

	slog.Info("match finalized", "tag", "game", "match", m.ID, "winner", winnerID, "reason", reason)

	if m.rewards != nil {
		go m.rewards.MatchEnded(m.ID, final, reason)
	}
	if m.OnMatchEnd != nil {
		m.OnMatchEnd(m.ID, final, winnerID, reason)
	}
}

// broadcastEvents sends the applied-event log plus each participant's view.
func (m *Match) broadcastEvents(events []Event, forced bool) {
	cur := m.state.Load()
	for _, seat := range m.seats {
		if seat.Send == nil {
			continue
		}
		wsutil.SendJSON(seat.Send, EventsMsg{
			Type:          "events",
			AppliedEvents: events,
			GameState:     BuildStateView(cur, seat.UserID, m.turn.endsAtUnixMs()),
			ServerForced:  forced,
		})
	}
}

func (m *Match) broadcastStartTurn() {
	m.broadcast(StartTurnMsg{
		Type:               "start_turn",
		CurrentPlayerID:    m.state.Load().CurrentPlayerID,
		TimeAllowedSeconds: int(m.turn.lastDuration.Seconds()),
	})
}

func (m *Match) broadcast(v any) {
	for _, seat := range m.seats {
		if seat.Send != nil {
			wsutil.SendJSON(seat.Send, v)
		}
	}
}

func (m *Match) sendError(seat int, message string) {
	if seat < 0 || seat > 1 || m.seats[seat].Send == nil {
		return
	}
	wsutil.SendJSON(m.seats[seat].Send, map[string]string{
		"type":    "error",
		"message": message,
	})
}

func (m *Match) notifySeat(seat int, v any) {
	if seat < 0 || seat > 1 || m.seats[seat].Send == nil {
		return
	}
	wsutil.SendJSON(m.seats[seat].Send, v)
}

// IllegalMoveMessage maps engine rejections to user-facing text, keeping
// internal wrapping detail out of the wire.
func IllegalMoveMessage(err error) string {
	if errors.Is(err, matcherrors.ErrIllegalMove) || errors.Is(err, matcherrors.ErrNotFound) {
		return err.Error()
	}
	return "action failed"
}
