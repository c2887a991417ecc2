package game

// BoardSize is the side length of the square board.
const BoardSize = 4

// BoardCells is the total number of cells.
const BoardCells = BoardSize * BoardSize

// Position addresses a board cell. X is the column, Y is the row; (0,0) is
// the top-left corner, so the cell directly above (x,y) is (x,y-1).
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Index returns the flat array index for p (row-major).
func (p Position) Index() int { return p.Y*BoardSize + p.X }

// InBounds reports whether p lies on the board.
func (p Position) InBounds() bool {
	return p.X >= 0 && p.X < BoardSize && p.Y >= 0 && p.Y < BoardSize
}

// PositionAt returns the Position for a flat index (inverse of Index).
func PositionAt(idx int) Position {
	return Position{X: idx % BoardSize, Y: idx / BoardSize}
}

// Direction identifies one of the four orthogonal neighbors of a cell.
type Direction int

const (
	DirUp Direction = iota
	DirRight
	DirDown
	DirLeft
)

// Directions lists the four directions in combat-resolution order.
var Directions = [4]Direction{DirUp, DirRight, DirDown, DirLeft}

// Offset returns the neighbor of p in direction d (possibly out of bounds).
func (p Position) Offset(d Direction) Position {
	switch d {
	case DirUp:
		return Position{X: p.X, Y: p.Y - 1}
	case DirRight:
		return Position{X: p.X + 1, Y: p.Y}
	case DirDown:
		return Position{X: p.X, Y: p.Y + 1}
	default:
		return Position{X: p.X - 1, Y: p.Y}
	}
}

// CellState is the transient combat state of an occupied cell.
type CellState int

const (
	CellNormal CellState = iota
	CellBuffed
	CellDebuffed
	CellImmune
)

// String returns the protocol string for a CellState.
func (cs CellState) String() string {
	switch cs {
	case CellNormal:
		return "normal"
	case CellBuffed:
		return "buffed"
	case CellDebuffed:
		return "debuffed"
	case CellImmune:
		return "immune"
	default:
		return "unknown"
	}
}

// MarshalJSON writes the protocol string ("normal", "immune", ...).
func (cs CellState) MarshalJSON() ([]byte, error) {
	return []byte(`"` + cs.String() + `"`), nil
}

// UnmarshalJSON reads the protocol string; unknown values become normal so
// old persisted states stay loadable.
func (cs *CellState) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"buffed"`:
		*cs = CellBuffed
	case `"debuffed"`:
		*cs = CellDebuffed
	case `"immune"`:
		*cs = CellImmune
	default:
		*cs = CellNormal
	}
	return nil
}

// TileStatus is a countdown effect attached to an occupied cell by an
// ability (curse/ward/bless style). TurnsLeft decrements at every turn
// start; the status is removed when it reaches zero.
type TileStatus struct {
	Kind      string `json:"kind"`
	TurnsLeft int    `json:"turnsLeft"`
	// Magnitude is the power delta this status applied, so expiry can
	// revert it (buff/debuff) or the per-turn drain amount (curse).
	Magnitude int `json:"magnitude,omitempty"`
}

// BoardCell is one occupied cell. Ownership can flip without the card
// moving; Powers are the card's current (possibly ability-adjusted) values,
// copied from the hydrated card at placement.
type BoardCell struct {
	OwnerID        string      `json:"ownerId"`
	CardInstanceID string      `json:"cardInstanceId"`
	Powers         Powers      `json:"powers"`
	Level          int         `json:"level"`
	State          CellState   `json:"state"`
	Tile           *TileStatus `json:"tile,omitempty"`
}

// Board is a fixed-size arena of cells addressed by (row, col) index
// arithmetic; nil means the cell is empty. Neighbors are computed, never
// stored, so cells hold no cross-references.
type Board [BoardCells]*BoardCell

// At returns the cell at p, or nil if empty or out of bounds.
func (b *Board) At(p Position) *BoardCell {
	if !p.InBounds() {
		return nil
	}
	return b[p.Index()]
}

// Set places (or clears, with nil) the cell at p. Out-of-bounds is a no-op;
// callers validate bounds before mutating.
func (b *Board) Set(p Position, c *BoardCell) {
	if p.InBounds() {
		b[p.Index()] = c
	}
}

// OccupiedCount returns the number of non-empty cells.
func (b *Board) OccupiedCount() int {
	n := 0
	for _, c := range b {
		if c != nil {
			n++
		}
	}
	return n
}

// Full reports whether every cell is occupied (the terminal condition of
// the base rule set).
func (b *Board) Full() bool { return b.OccupiedCount() == BoardCells }

// Clone returns a deep copy of the board.
func (b *Board) Clone() Board {
	var out Board
	for i, c := range b {
		if c == nil {
			continue
		}
		cc := *c
		if c.Tile != nil {
			t := *c.Tile
			cc.Tile = &t
		}
		out[i] = &cc
	}
	return out
}
