package game

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionIndexRoundTrip(t *testing.T) {
	for i := 0; i < BoardCells; i++ {
		p := PositionAt(i)
		assert.True(t, p.InBounds())
		assert.Equal(t, i, p.Index())
	}
	assert.False(t, Position{X: -1, Y: 0}.InBounds())
	assert.False(t, Position{X: 0, Y: BoardSize}.InBounds())
}

func TestPositionOffset(t *testing.T) {
	p := Position{X: 1, Y: 1}
	assert.Equal(t, Position{X: 1, Y: 0}, p.Offset(DirUp), "up is the row above")
	assert.Equal(t, Position{X: 2, Y: 1}, p.Offset(DirRight))
	assert.Equal(t, Position{X: 1, Y: 2}, p.Offset(DirDown))
	assert.Equal(t, Position{X: 0, Y: 1}, p.Offset(DirLeft))
}

func TestDirectionOpposite(t *testing.T) {
	for _, d := range Directions {
		assert.Equal(t, d, d.Opposite().Opposite())
	}
	assert.Equal(t, DirDown, DirUp.Opposite())
	assert.Equal(t, DirLeft, DirRight.Opposite())
}

func TestPowersSideFacesDirection(t *testing.T) {
	p := Powers{Top: 1, Right: 2, Bottom: 3, Left: 4}
	assert.Equal(t, 1, p.Side(DirUp))
	assert.Equal(t, 2, p.Side(DirRight))
	assert.Equal(t, 3, p.Side(DirDown))
	assert.Equal(t, 4, p.Side(DirLeft))
	assert.Equal(t, 10, p.Sum())
}

func TestPowersShiftClamps(t *testing.T) {
	p := Powers{Top: 9, Right: 2, Bottom: 5, Left: 10}
	assert.Equal(t, Powers{Top: 10, Right: 5, Bottom: 8, Left: 10}, p.Shift(3))
	assert.Equal(t, Powers{Top: 5, Right: 1, Bottom: 1, Left: 6}, p.Shift(-4))
}

func TestBoardAtOutOfBoundsIsNil(t *testing.T) {
	var b Board
	b.Set(Position{X: 0, Y: 0}, &BoardCell{OwnerID: "alice"})
	assert.NotNil(t, b.At(Position{X: 0, Y: 0}))
	assert.Nil(t, b.At(Position{X: -1, Y: 0}))
	assert.Nil(t, b.At(Position{X: 0, Y: 4}))

	b.Set(Position{X: 9, Y: 9}, &BoardCell{OwnerID: "alice"}) // no-op
	assert.Equal(t, 1, b.OccupiedCount())
	assert.False(t, b.Full())
}

func TestBoardCloneIsDeep(t *testing.T) {
	var b Board
	b.Set(Position{X: 2, Y: 2}, &BoardCell{
		OwnerID: "alice",
		Powers:  Powers{Top: 5, Right: 5, Bottom: 5, Left: 5},
		Tile:    &TileStatus{Kind: "buff", TurnsLeft: 2, Magnitude: 1},
	})

	c := b.Clone()
	c.At(Position{X: 2, Y: 2}).OwnerID = "bob"
	c.At(Position{X: 2, Y: 2}).Tile.TurnsLeft = 9

	orig := b.At(Position{X: 2, Y: 2})
	assert.Equal(t, "alice", orig.OwnerID)
	assert.Equal(t, 2, orig.Tile.TurnsLeft)
}

func TestGameStateCloneIsIndependent(t *testing.T) {
	s := testState(map[string]*InGameCard{"a1": testCard("a1", 5, 5, 5, 5)}, []string{"a1"}, nil)
	s.Player1.Deck = []string{"a2"}
	s.Board.Set(Position{X: 0, Y: 0}, &BoardCell{OwnerID: "alice"})

	c := s.Clone()
	c.Player1.Hand[0] = "changed"
	c.Player1.Deck = c.Player1.Deck[1:]
	c.Board.Set(Position{X: 0, Y: 0}, nil)
	c.CurrentPlayerID = "bob"

	assert.Equal(t, []string{"a1"}, s.Player1.Hand)
	assert.Equal(t, []string{"a2"}, s.Player1.Deck)
	assert.NotNil(t, s.Board.At(Position{X: 0, Y: 0}))
	assert.Equal(t, "alice", s.CurrentPlayerID)
}

func TestFlipOwnerUpdatesScores(t *testing.T) {
	s := testState(map[string]*InGameCard{}, nil, nil)
	s.Board.Set(Position{X: 0, Y: 0}, &BoardCell{OwnerID: "bob"})
	s.Board.Set(Position{X: 1, Y: 0}, &BoardCell{OwnerID: "bob"})
	s.RecomputeScores()
	require.Equal(t, 2, s.Player2.Score)

	s.FlipOwner(Position{X: 0, Y: 0}, "alice")
	assert.Equal(t, "alice", s.Board.At(Position{X: 0, Y: 0}).OwnerID)
	assert.Equal(t, 1, s.Player1.Score)
	assert.Equal(t, 1, s.Player2.Score)

	// Flipping to the same owner or an empty cell is a no-op.
	s.FlipOwner(Position{X: 0, Y: 0}, "alice")
	s.FlipOwner(Position{X: 3, Y: 3}, "alice")
	assert.Equal(t, 1, s.Player1.Score)
}

func TestCellStateJSONRoundTrip(t *testing.T) {
	cell := &BoardCell{OwnerID: "alice", State: CellImmune}
	data, err := json.Marshal(cell)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"state":"immune"`)

	var back BoardCell
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, CellImmune, back.State)

	var normal CellState
	require.NoError(t, json.Unmarshal([]byte(`"something-else"`), &normal))
	assert.Equal(t, CellNormal, normal)
}
