// Package matchmaking pairs waiting players first-in-first-paired, creates
// matches and owns the live-match table. The matchmaker is an explicit
// service with injected dependencies so tests can construct isolated
// instances.
package matchmaking

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"tetrad-server/config"
	"tetrad-server/game"
	"tetrad-server/matcherrors"
)

// DeckSource loads the ordered card-instance ids of a user's deck
// reference. Implemented by the collection package; a deck not owned by
// the user reads as not found.
type DeckSource interface {
	LoadDeck(ctx context.Context, userID, deckRef string) ([]string, error)
}

// HistorySink records finished matches. Implemented by the storage package;
// may be nil.
type HistorySink interface {
	InsertMatchResult(ctx context.Context, matchID string, final *game.GameState, winnerID, endReason string) error
}

// QueueStatus is the matchmaking state of a user.
type QueueStatus string

const (
	StatusIdle    QueueStatus = "idle"
	StatusQueued  QueueStatus = "queued"
	StatusMatched QueueStatus = "matched"
)

// JoinResult answers a queue join: either paired into a new match or
// waiting.
type JoinResult struct {
	Status  QueueStatus `json:"status"`
	MatchID string      `json:"matchId,omitempty"`
}

// StatusResult answers a queue status lookup.
type StatusResult struct {
	Status  QueueStatus `json:"status"`
	MatchID string      `json:"matchId,omitempty"`
}

type entry struct {
	userID  string
	deckRef string
}

// Matchmaker owns the waiting queue and the live-match table.
type Matchmaker struct {
	mu     sync.Mutex
	queue  []entry
	live   map[string]*game.Match
	byUser map[string]string // user id -> live match id

	engine  *game.Engine
	decks   DeckSource
	store   game.StateStore
	history HistorySink
	rewards game.RewardsSink
	mover   game.MovePicker

	turnDurations []time.Duration
	grace         time.Duration
}

// New creates a matchmaker with the given collaborators. store, history and
// rewards may be nil (dev mode without persistence).
func New(cfg *config.Config, engine *game.Engine, decks DeckSource, store game.StateStore, history HistorySink, rewards game.RewardsSink, mover game.MovePicker) *Matchmaker {
	durations := make([]time.Duration, 0, len(cfg.TurnDurationsSec))
	for _, sec := range cfg.TurnDurationsSec {
		durations = append(durations, time.Duration(sec)*time.Second)
	}
	return &Matchmaker{
		live:          make(map[string]*game.Match),
		byUser:        make(map[string]string),
		engine:        engine,
		decks:         decks,
		store:         store,
		history:       history,
		rewards:       rewards,
		mover:         mover,
		turnDurations: durations,
		grace:         time.Duration(cfg.GraceSec) * time.Second,
	}
}

// Join enqueues the user, or pairs them with the longest-waiting entry.
// Fails if the user is already queued or already in an active match. The
// waiting player learns about the pairing through Status (and through the
// joined payload once they attach).
func (mm *Matchmaker) Join(ctx context.Context, userID, deckRef string) (JoinResult, error) {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	if matchID, ok := mm.byUser[userID]; ok {
		if m := mm.live[matchID]; m != nil && !m.Finished() {
			return JoinResult{}, matcherrors.ErrAlreadyInMatch
		}
	}
	for _, e := range mm.queue {
		if e.userID == userID {
			return JoinResult{}, matcherrors.ErrAlreadyQueued
		}
	}

	if len(mm.queue) == 0 {
		mm.queue = append(mm.queue, entry{userID: userID, deckRef: deckRef})
		slog.Info("queued for match", "tag", "mm", "user", userID)
		return JoinResult{Status: StatusQueued}, nil
	}

	first := mm.queue[0]
	mm.queue = mm.queue[1:]

	matchID, err := mm.createMatch(ctx, first, entry{userID: userID, deckRef: deckRef})
	if err != nil {
		// The waiting player keeps their place in line.
		mm.queue = append([]entry{first}, mm.queue...)
		return JoinResult{}, err
	}
	return JoinResult{Status: StatusMatched, MatchID: matchID}, nil
}

// createMatch loads both decks, initializes the game state, persists it and
// starts the session loop. Caller holds the lock. The first-queued entry
// takes the player-1 seat and the opening turn.
func (mm *Matchmaker) createMatch(ctx context.Context, p1, p2 entry) (string, error) {
	p1Cards, err := mm.decks.LoadDeck(ctx, p1.userID, p1.deckRef)
	if err != nil {
		return "", err
	}
	p2Cards, err := mm.decks.LoadDeck(ctx, p2.userID, p2.deckRef)
	if err != nil {
		return "", err
	}

	matchID := uuid.NewString()
	state, err := mm.engine.InitializeGame(ctx, matchID, p1Cards, p2Cards, p1.userID, p2.userID)
	if err != nil {
		return "", err
	}
	if mm.store != nil {
		if err := mm.store.SaveState(ctx, matchID, state); err != nil {
			return "", err
		}
	}

	m := game.NewMatch(matchID, state, mm.engine, mm.mover, mm.store, mm.rewards, mm.turnDurations, mm.grace)
	m.OnMatchEnd = mm.onMatchEnd
	mm.live[matchID] = m
	mm.byUser[p1.userID] = matchID
	mm.byUser[p2.userID] = matchID
	go m.Run()

	slog.Info("match created", "tag", "mm", "match", matchID, "player1", p1.userID, "player2", p2.userID)
	return matchID, nil
}

// Status reports whether the user is idle, queued, or in a live match.
func (mm *Matchmaker) Status(userID string) StatusResult {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	if matchID, ok := mm.byUser[userID]; ok {
		if m := mm.live[matchID]; m != nil && !m.Finished() {
			return StatusResult{Status: StatusMatched, MatchID: matchID}
		}
	}
	for _, e := range mm.queue {
		if e.userID == userID {
			return StatusResult{Status: StatusQueued}
		}
	}
	return StatusResult{Status: StatusIdle}
}

// Leave removes the user from the waiting queue. Returns ErrNotQueued if
// the user was not waiting; the HTTP layer still acks in that case.
func (mm *Matchmaker) Leave(userID string) error {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	for i, e := range mm.queue {
		if e.userID == userID {
			mm.queue = append(mm.queue[:i], mm.queue[i+1:]...)
			slog.Info("left the queue", "tag", "mm", "user", userID)
			return nil
		}
	}
	return matcherrors.ErrNotQueued
}

// Attach validates that the user may bind a connection to the match and
// returns the match and seat. The ws layer then sends the attach action
// with the connection's send channel.
func (mm *Matchmaker) Attach(matchID, userID, rejoinToken string) (*game.Match, int, error) {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	m, ok := mm.live[matchID]
	if !ok {
		return nil, 0, matcherrors.ErrMatchNotFound
	}
	if m.Finished() {
		return nil, 0, matcherrors.ErrMatchFinished
	}
	seat := m.SeatOf(userID)
	if seat < 0 {
		return nil, 0, matcherrors.ErrNotParticipant
	}
	if rejoinToken != "" && rejoinToken != m.RejoinToken(seat) {
		return nil, 0, matcherrors.ErrInvalidToken
	}
	return m, seat, nil
}

// MatchByID returns a live match, if any.
func (mm *Matchmaker) MatchByID(matchID string) (*game.Match, bool) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	m, ok := mm.live[matchID]
	return m, ok
}

// onMatchEnd drops the match from the live table and records history. It
// runs on the match goroutine after the game_end broadcast.
func (mm *Matchmaker) onMatchEnd(matchID string, final *game.GameState, winnerID, reason string) {
	mm.mu.Lock()
	delete(mm.live, matchID)
	delete(mm.byUser, final.Player1.UserID)
	delete(mm.byUser, final.Player2.UserID)
	mm.mu.Unlock()

	if mm.history != nil {
		if err := mm.history.InsertMatchResult(context.Background(), matchID, final, winnerID, reason); err != nil {
			slog.Error("recording match result", "tag", "mm", "match", matchID, "err", err)
		}
	}
}
