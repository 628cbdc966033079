package room

import (
	"errors"
	"fmt"

	"ctchen222/Ultimate-Tic-Tac-Toe/internal/match"
)

var (
	ErrClosed      = fmt.Errorf("%w: room is closed", match.ErrInvalidMove)
	ErrPaused      = fmt.Errorf("%w: match is paused", match.ErrInvalidMove)
	ErrSettling    = fmt.Errorf("%w: board is resetting", match.ErrInvalidMove)
	ErrReplaying   = fmt.Errorf("%w: replay in progress", match.ErrInvalidMove)
	ErrNotYourTurn = fmt.Errorf("%w: computer is to move", match.ErrInvalidMove)
)

var (
	ErrNotReplaying   = errors.New("room is not replaying")
	ErrReplayDiverged = fmt.Errorf("%w: replay diverged from the log", match.ErrCorrupt)
)
