package game

import (
	"errors"
	"fmt"
)

// PlayerMark represents the mark of a player (X, O) or an empty cell.
type PlayerMark string

// Result is the classification of a single 3x3 board.
type Result string

const (
	// Player marks
	None    PlayerMark = ""
	PlayerX PlayerMark = "X"
	PlayerO PlayerMark = "O"

	// Board results
	Open Result = ""
	WinX Result = "X"
	WinO Result = "O"
	Draw Result = "D"

	// Cell boundaries
	CellMin = 0
	CellMax = 8
)

// Opponent returns the other player's mark. None has no opponent.
func (m PlayerMark) Opponent() PlayerMark {
	switch m {
	case PlayerX:
		return PlayerO
	case PlayerO:
		return PlayerX
	default:
		return None
	}
}

// Valid reports whether m is X or O.
func (m PlayerMark) Valid() bool {
	return m == PlayerX || m == PlayerO
}

// Finished reports whether the result closes the board.
func (r Result) Finished() bool {
	return r != Open
}

// Winner returns the winning mark, or None for open and drawn boards.
func (r Result) Winner() PlayerMark {
	switch r {
	case WinX:
		return PlayerX
	case WinO:
		return PlayerO
	default:
		return None
	}
}

// ResultFor returns the win result for a mark.
func ResultFor(m PlayerMark) Result {
	switch m {
	case PlayerX:
		return WinX
	case PlayerO:
		return WinO
	default:
		return Open
	}
}

// Board is a single 3x3 board in row-major order.
type Board [9]PlayerMark

// WinningLines are the rows, columns and diagonals, in that order.
var WinningLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// StrategicOrder is center, then corners, then edges.
var StrategicOrder = [9]int{4, 0, 2, 6, 8, 1, 3, 5, 7}

var (
	ErrBothWin       = errors.New("both players own a winning line")
	ErrMarkImbalance = errors.New("mark counts differ by more than one")
	ErrUnknownMark   = errors.New("unknown mark")
)

// CheckWinner returns the mark occupying all three cells of any winning line.
func CheckWinner(b Board) PlayerMark {
	for _, line := range WinningLines {
		if b[line[0]] != None && b[line[0]] == b[line[1]] && b[line[1]] == b[line[2]] {
			return b[line[0]]
		}
	}
	return None
}

// WinningLine returns the first line fully owned by mark.
func WinningLine(b Board, mark PlayerMark) ([3]int, bool) {
	if !mark.Valid() {
		return [3]int{}, false
	}
	for _, line := range WinningLines {
		if b[line[0]] == mark && b[line[1]] == mark && b[line[2]] == mark {
			return line, true
		}
	}
	return [3]int{}, false
}

// IsFull checks if no empty cell remains.
func IsFull(b Board) bool {
	for _, cell := range b {
		if cell == None {
			return false
		}
	}
	return true
}

// AvailableMoves returns the empty cell indices in ascending order.
func AvailableMoves(b Board) []int {
	moves := make([]int, 0, len(b))
	for i, cell := range b {
		if cell == None {
			moves = append(moves, i)
		}
	}
	return moves
}

// FindImmediateWin looks for a line where mark holds two cells and the third is empty.
// Lines are scanned in declared order and cells in line order.
func FindImmediateWin(b Board, mark PlayerMark) (int, bool) {
	if !mark.Valid() {
		return -1, false
	}
	for _, line := range WinningLines {
		owned, empty := 0, -1
		for _, idx := range line {
			switch b[idx] {
			case mark:
				owned++
			case None:
				if empty == -1 {
					empty = idx
				}
			}
		}
		if owned == 2 && empty != -1 {
			return empty, true
		}
	}
	return -1, false
}

// FindImmediateBlock returns the cell that stops the opponent of mark from winning next move.
func FindImmediateBlock(b Board, mark PlayerMark) (int, bool) {
	return FindImmediateWin(b, mark.Opponent())
}

// FindFork returns the first empty cell that gives mark two distinct immediate wins.
func FindFork(b Board, mark PlayerMark) (int, bool) {
	if !mark.Valid() {
		return -1, false
	}
	for _, idx := range AvailableMoves(b) {
		next := b
		next[idx] = mark
		if countThreats(next, mark) >= 2 {
			return idx, true
		}
	}
	return -1, false
}

func countThreats(b Board, mark PlayerMark) int {
	threats := 0
	for _, line := range WinningLines {
		owned, empty := 0, 0
		for _, idx := range line {
			switch b[idx] {
			case mark:
				owned++
			case None:
				empty++
			}
		}
		if owned == 2 && empty == 1 {
			threats++
		}
	}
	return threats
}

// Classify puts a board into exactly one of Open, WinX, WinO or Draw.
func Classify(b Board) Result {
	if w := CheckWinner(b); w != None {
		return ResultFor(w)
	}
	if IsFull(b) {
		return Draw
	}
	return Open
}

// Validate reports boards that cannot arise from alternating play.
func Validate(b Board) error {
	var xs, os int
	for i, cell := range b {
		switch cell {
		case PlayerX:
			xs++
		case PlayerO:
			os++
		case None:
		default:
			return fmt.Errorf("cell %d: %w %q", i, ErrUnknownMark, cell)
		}
	}
	if diff := xs - os; diff > 1 || diff < -1 {
		return fmt.Errorf("%w: X=%d O=%d", ErrMarkImbalance, xs, os)
	}
	_, xWins := WinningLine(b, PlayerX)
	_, oWins := WinningLine(b, PlayerO)
	if xWins && oWins {
		return ErrBothWin
	}
	return nil
}

// ParseBoard builds a board from a 9-character string using X, O and '.' or '-' for empty.
func ParseBoard(s string) (Board, error) {
	var b Board
	if len(s) != len(b) {
		return b, fmt.Errorf("board must have %d cells, got %d", len(b), len(s))
	}
	for i, r := range s {
		switch r {
		case 'X', 'x':
			b[i] = PlayerX
		case 'O', 'o':
			b[i] = PlayerO
		case '.', '-', ' ':
			b[i] = None
		default:
			return b, fmt.Errorf("cell %d: %w %q", i, ErrUnknownMark, r)
		}
	}
	return b, nil
}

// String renders the board as nine characters, '.' for empty cells.
func (b Board) String() string {
	out := make([]byte, len(b))
	for i, cell := range b {
		if cell == None {
			out[i] = '.'
		} else {
			out[i] = cell[0]
		}
	}
	return string(out)
}

// Rows converts the board to a slice of rows for renderers.
func (b Board) Rows() [][]PlayerMark {
	rows := make([][]PlayerMark, 3)
	for r := range [3]int{} {
		rows[r] = []PlayerMark{b[r*3], b[r*3+1], b[r*3+2]}
	}
	return rows
}
