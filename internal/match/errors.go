package match

import (
	"errors"
	"fmt"
)

// ErrInvalidMove is the root of every rejected move. Rejections never change state.
var ErrInvalidMove = errors.New("invalid move")

var (
	ErrMatchOver     = fmt.Errorf("%w: match is over", ErrInvalidMove)
	ErrOutOfRange    = fmt.Errorf("%w: index out of range", ErrInvalidMove)
	ErrBoardFinished = fmt.Errorf("%w: board is finished", ErrInvalidMove)
	ErrCellOccupied  = fmt.Errorf("%w: cell is occupied", ErrInvalidMove)
	ErrWrongBoard    = fmt.Errorf("%w: board is not active", ErrInvalidMove)
	ErrNotAccepting  = fmt.Errorf("%w: input is not accepted", ErrInvalidMove)
)

// ErrCorrupt reports a broken state invariant.
var ErrCorrupt = errors.New("corrupt match state")
