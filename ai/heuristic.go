// Package ai implements the opponent-move heuristic used for practice
// opponents and for server-forced moves when a player's turn times out.
package ai

import (
	"math/rand"
	"sort"

	"tetrad-server/game"
)

// Difficulty selects how many of the top-scored candidate moves are
// eligible; the pick among them is uniform so the opponent is not perfectly
// predictable below hard.
type Difficulty string

const (
	Hard   Difficulty = "hard"
	Medium Difficulty = "medium"
	Easy   Difficulty = "easy"
)

// poolSize returns the candidate pool for a difficulty. Unknown values get
// the hard pool.
func (d Difficulty) poolSize() int {
	switch d {
	case Easy:
		return 5
	case Medium:
		return 3
	default:
		return 1
	}
}

// flipBonus is the score granted per opponent card a candidate placement
// would flip. It dominates the power sum so the heuristic always prefers
// captures.
const flipBonus = 100

// positionBonus favors the central and corner cells (design tuning: the
// center controls four comparisons, corners defend two sides for free).
var positionBonus = [game.BoardCells]int{
	8, 3, 3, 8,
	3, 10, 10, 3,
	3, 10, 10, 3,
	8, 3, 3, 8,
}

// Heuristic scores every (hand card, empty cell) pair and picks among the
// best. Ability effects are not simulated; the flip count is the core
// approximation.
type Heuristic struct {
	difficulty Difficulty
	rng        *rand.Rand
}

// New creates a heuristic for the difficulty string from config
// ("hard", "medium", "easy").
func New(difficulty string) *Heuristic {
	return &Heuristic{difficulty: Difficulty(difficulty)}
}

// NewSeeded creates a heuristic with a deterministic random source (tests).
func NewSeeded(difficulty Difficulty, seed int64) *Heuristic {
	return &Heuristic{difficulty: difficulty, rng: rand.New(rand.NewSource(seed))}
}

type candidate struct {
	move  game.Move
	score int
}

// PickMove selects a (card, cell) action for the player, or nil when the
// hand is empty (the caller must treat nil as a pass).
func (h *Heuristic) PickMove(s *game.GameState, playerID string) *game.Move {
	player := s.PlayerByID(playerID)
	if player == nil || len(player.Hand) == 0 {
		return nil
	}

	var candidates []candidate
	for _, cardID := range player.Hand {
		card, ok := s.Cards[cardID]
		if !ok {
			continue
		}
		for i := 0; i < game.BoardCells; i++ {
			pos := game.PositionAt(i)
			if s.Board.At(pos) != nil {
				continue
			}
			score := flipBonus*game.CountFlips(s, playerID, card.Powers, pos) +
				card.Powers.Sum() +
				positionBonus[i]
			candidates = append(candidates, candidate{
				move:  game.Move{CardInstanceID: cardID, Pos: pos},
				score: score,
			})
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	// Stable order before the sort keeps equal scores deterministic.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	pool := h.difficulty.poolSize()
	if pool > len(candidates) {
		pool = len(candidates)
	}
	pick := h.intn(pool)
	mv := candidates[pick].move
	return &mv
}

func (h *Heuristic) intn(n int) int {
	if n <= 1 {
		return 0
	}
	if h.rng != nil {
		return h.rng.Intn(n)
	}
	return rand.Intn(n)
}
