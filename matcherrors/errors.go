package matcherrors

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the game, matchmaking, ws and api packages
// to avoid circular imports.
//
// ErrIllegalMove and its wrapped variants are rejected locally and reported
// to the acting client only; they never change game state. Timeouts are not
// errors (a timed-out turn is played by the server on the player's behalf).
var (
	// ErrIllegalMove is the root of the illegal-move taxonomy. Check with
	// errors.Is(err, ErrIllegalMove) when the exact variant does not matter.
	ErrIllegalMove = errors.New("illegal move")

	ErrMatchNotActive = fmt.Errorf("%w: match is not active", ErrIllegalMove)
	ErrNotYourTurn    = fmt.Errorf("%w: not your turn", ErrIllegalMove)
	ErrOutOfBounds    = fmt.Errorf("%w: position out of bounds", ErrIllegalMove)
	ErrCellOccupied   = fmt.Errorf("%w: cell is occupied", ErrIllegalMove)
	ErrCardNotInHand  = fmt.Errorf("%w: card is not in your hand", ErrIllegalMove)
	ErrHandNotEmpty   = fmt.Errorf("%w: cannot pass while holding cards", ErrIllegalMove)

	// ErrNotFound is the root for unknown-entity errors (match ids,
	// card instances, decks).
	ErrNotFound = errors.New("not found")

	ErrMatchNotFound = fmt.Errorf("match %w", ErrNotFound)
	ErrCardNotFound  = fmt.Errorf("card instance %w", ErrNotFound)
	ErrDeckNotFound  = fmt.Errorf("deck %w", ErrNotFound)

	// Matchmaking errors.
	ErrAlreadyQueued  = errors.New("already in the matchmaking queue")
	ErrAlreadyInMatch = errors.New("already in an active match")
	ErrNotQueued      = errors.New("not in the matchmaking queue")

	// Session errors.
	ErrMatchFinished   = errors.New("match already finished")
	ErrInvalidToken    = errors.New("invalid token")
	ErrNotParticipant  = errors.New("not a participant of this match")
	ErrStateWriteRetry = errors.New("could not persist the move, please retry")
)
