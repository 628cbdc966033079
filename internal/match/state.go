package match

import (
	"errors"
	"fmt"
	"time"

	"ctchen222/Ultimate-Tic-Tac-Toe/internal/game"
)

// BoardCount is the number of boards in the meta grid.
const BoardCount = 9

// Status is the lifecycle stage of a match.
type Status string

const (
	Waiting    Status = "waiting"
	InProgress Status = "in_progress"
	Complete   Status = "complete"
)

// Reason explains how a match completed.
type Reason string

const (
	ReasonBoards  Reason = "boards"
	ReasonTimeout Reason = "timeout"
)

// Move is one accepted placement.
type Move struct {
	Board  int             `json:"board"`
	Cell   int             `json:"cell"`
	Player game.PlayerMark `json:"player"`
	At     time.Time       `json:"at"`
}

// Tally is a per-player counter used for scores and clocks.
type Tally struct {
	X int `json:"x"`
	O int `json:"o"`
}

// Get returns the value for mark.
func (t Tally) Get(mark game.PlayerMark) int {
	if mark == game.PlayerO {
		return t.O
	}
	return t.X
}

func (t *Tally) set(mark game.PlayerMark, v int) {
	if mark == game.PlayerO {
		t.O = v
	} else {
		t.X = v
	}
}

// SubBoard is one of the nine boards together with its resolution.
type SubBoard struct {
	Cells  game.Board  `json:"cells"`
	Result game.Result `json:"result"`
}

// Finished reports whether the board has resolved.
func (b SubBoard) Finished() bool {
	return b.Result.Finished()
}

// Outcome describes a completed match.
type Outcome struct {
	Winner   game.Result `json:"winner"`
	Reason   Reason      `json:"reason"`
	Duration int         `json:"duration_seconds"`
	Moves    int         `json:"moves"`
}

// Resolution reports what a single accepted move did.
type Resolution struct {
	Move Move `json:"move"`
	// Result is the resolution of the played board, Open when it is still in play.
	Result game.Result `json:"result"`
	// Bonus is the clock message emitted when a board resolves.
	Bonus string `json:"bonus,omitempty"`
	// Reset is set when the resolved board was cleared for further play.
	Reset   bool     `json:"reset,omitempty"`
	Outcome *Outcome `json:"outcome,omitempty"`
}

// TickResult reports what one clock tick did.
type TickResult struct {
	Player    game.PlayerMark
	Remaining int
	TimedOut  bool
	Outcome   *Outcome
}

// State is the authoritative model of one match. It is not safe for
// concurrent use; the owning room serializes access.
type State struct {
	ID        string
	rules     Rules
	boards    [BoardCount]SubBoard
	active    int
	player    game.PlayerMark
	scores    Tally
	clocks    Tally
	moves     []Move
	status    Status
	outcome   *Outcome
	bonus     string
	createdAt time.Time
	startedAt time.Time
}

// New creates a match waiting for its first move. X moves first on board 0.
func New(id string, rules Rules, now time.Time) *State {
	s := &State{ID: id, rules: rules, createdAt: now}
	s.reset()
	return s
}

func (s *State) reset() {
	s.boards = [BoardCount]SubBoard{}
	s.active = 0
	s.player = game.PlayerX
	s.scores = Tally{}
	s.clocks = Tally{X: s.rules.InitialClock, O: s.rules.InitialClock}
	s.moves = nil
	s.status = Waiting
	s.outcome = nil
	s.bonus = ""
	s.startedAt = time.Time{}
}

// Rules returns the constants the match was created with.
func (s *State) Rules() Rules { return s.rules }

// Status returns the lifecycle stage.
func (s *State) Status() Status { return s.status }

// ActivePlayer returns the mark to move.
func (s *State) ActivePlayer() game.PlayerMark { return s.player }

// ActiveBoard returns the board the next move must target, or -1 when none is open.
func (s *State) ActiveBoard() int { return s.active }

// Board returns a copy of board i.
func (s *State) Board(i int) SubBoard { return s.boards[i] }

// Scores returns the number of boards each player has won.
func (s *State) Scores() Tally { return s.scores }

// Clocks returns the remaining seconds per player.
func (s *State) Clocks() Tally { return s.clocks }

// Outcome returns the result of a completed match, or nil.
func (s *State) Outcome() *Outcome { return s.outcome }

// StartedAt returns the time of the first accepted move.
func (s *State) StartedAt() time.Time { return s.startedAt }

// Moves returns a copy of the move log.
func (s *State) Moves() []Move {
	out := make([]Move, len(s.moves))
	copy(out, s.moves)
	return out
}

// Accepting reports whether the match still takes moves.
func (s *State) Accepting() bool {
	return s.status == Waiting || s.status == InProgress
}

// ApplyMove places the active player's mark on (board, cell) and resolves the board.
// A rejected move leaves the state untouched and returns an error wrapping ErrInvalidMove.
func (s *State) ApplyMove(board, cell int, at time.Time) (Resolution, error) {
	if !s.Accepting() {
		return Resolution{}, ErrMatchOver
	}
	if board < 0 || board >= BoardCount || cell < game.CellMin || cell > game.CellMax {
		return Resolution{}, fmt.Errorf("%w: board %d cell %d", ErrOutOfRange, board, cell)
	}
	if s.boards[board].Finished() {
		return Resolution{}, fmt.Errorf("%w: board %d", ErrBoardFinished, board)
	}
	if s.boards[board].Cells[cell] != game.None {
		return Resolution{}, fmt.Errorf("%w: board %d cell %d", ErrCellOccupied, board, cell)
	}
	if s.active >= 0 && board != s.active {
		return Resolution{}, fmt.Errorf("%w: got %d, want %d", ErrWrongBoard, board, s.active)
	}

	if s.status == Waiting {
		s.status = InProgress
		s.startedAt = at
	}

	mover := s.player
	move := Move{Board: board, Cell: cell, Player: mover, At: at}
	s.boards[board].Cells[cell] = mover
	s.moves = append(s.moves, move)
	s.bonus = ""

	res := Resolution{Move: move, Result: game.Classify(s.boards[board].Cells)}
	switch res.Result {
	case game.WinX, game.WinO:
		s.resolveWin(board, mover, &res)
	case game.Draw:
		s.resolveDraw(board, &res)
	default:
		s.player = mover.Opponent()
		if s.player == game.PlayerX {
			s.active = s.nextOpen(s.active)
		}
	}
	return res, nil
}

func (s *State) resolveWin(board int, winner game.PlayerMark, res *Resolution) {
	loser := winner.Opponent()
	s.boards[board].Result = res.Result
	s.scores.set(winner, s.scores.Get(winner)+1)
	s.clocks.set(winner, s.clocks.Get(winner)+s.rules.WinBonus)
	s.clocks.set(loser, max(0, s.clocks.Get(loser)-s.rules.LossPenalty))
	s.bonus = fmt.Sprintf("%s +%ds, %s -%ds", winner, s.rules.WinBonus, loser, s.rules.LossPenalty)
	res.Bonus = s.bonus
	s.afterResolution(board, loser, res)
}

func (s *State) resolveDraw(board int, res *Resolution) {
	s.boards[board].Result = game.Draw
	s.clocks.X += s.rules.DrawBonus
	s.clocks.O += s.rules.DrawBonus
	s.bonus = fmt.Sprintf("Draw: X +%ds, O +%ds", s.rules.DrawBonus, s.rules.DrawBonus)
	res.Bonus = s.bonus
	s.afterResolution(board, game.PlayerX, res)
}

// afterResolution either completes the match or hands the next move to nextMover.
func (s *State) afterResolution(board int, nextMover game.PlayerMark, res *Resolution) {
	if s.allFinished() {
		s.active = -1
		res.Outcome = s.complete(s.boardsWinner(), ReasonBoards)
		return
	}
	s.player = nextMover
	switch s.rules.Policy {
	case Retire:
		s.active = s.nextOpen(board)
	default:
		s.boards[board] = SubBoard{}
		s.active = board
		res.Reset = true
	}
}

// nextOpen returns the first unfinished board after from, wrapping around and
// ending with from itself.
func (s *State) nextOpen(from int) int {
	for i := 1; i <= BoardCount; i++ {
		idx := (from + i) % BoardCount
		if !s.boards[idx].Finished() {
			return idx
		}
	}
	return -1
}

func (s *State) allFinished() bool {
	for _, b := range s.boards {
		if !b.Finished() {
			return false
		}
	}
	return true
}

// boardsWinner awards the match to the player holding more boards.
func (s *State) boardsWinner() game.Result {
	switch {
	case s.scores.X > s.scores.O:
		return game.WinX
	case s.scores.O > s.scores.X:
		return game.WinO
	default:
		return game.Draw
	}
}

func (s *State) complete(winner game.Result, reason Reason) *Outcome {
	s.status = Complete
	s.outcome = &Outcome{
		Winner:   winner,
		Reason:   reason,
		Duration: 2*s.rules.InitialClock - (s.clocks.X + s.clocks.O),
		Moves:    len(s.moves),
	}
	return s.outcome
}

// Tick takes one second off the active player's clock. A clock that is
// already empty, or empties now, ends the match in the opponent's favour.
// Ticks outside InProgress do nothing.
func (s *State) Tick() TickResult {
	if s.status != InProgress {
		return TickResult{Player: s.player, Remaining: s.clocks.Get(s.player)}
	}
	p := s.player
	remaining := s.clocks.Get(p)
	if remaining > 0 {
		remaining--
		s.clocks.set(p, remaining)
	}
	if remaining > 0 {
		return TickResult{Player: p, Remaining: remaining}
	}
	return TickResult{Player: p, Remaining: 0, TimedOut: true, Outcome: s.expire(p)}
}

// Expire ends the match on time for player p.
func (s *State) Expire(p game.PlayerMark) *Outcome {
	if !s.Accepting() || !p.Valid() {
		return s.outcome
	}
	return s.expire(p)
}

func (s *State) expire(p game.PlayerMark) *Outcome {
	s.clocks.set(p, 0)
	s.active = -1
	return s.complete(game.ResultFor(p.Opponent()), ReasonTimeout)
}

// Verify checks the structural invariants of the state.
func (s *State) Verify() error {
	if s.clocks.X < 0 || s.clocks.O < 0 {
		return fmt.Errorf("%w: negative clock %+v", ErrCorrupt, s.clocks)
	}
	for i, b := range s.boards {
		// Mark counts drift under the board-advance rule, so only contradictions count.
		if err := game.Validate(b.Cells); err != nil && !errors.Is(err, game.ErrMarkImbalance) {
			return fmt.Errorf("%w: board %d: %v", ErrCorrupt, i, err)
		}
		if got := game.Classify(b.Cells); got != b.Result {
			return fmt.Errorf("%w: board %d recorded %q but cells read %q", ErrCorrupt, i, b.Result, got)
		}
	}
	if s.status == Complete {
		if s.outcome == nil {
			return fmt.Errorf("%w: complete without outcome", ErrCorrupt)
		}
		return nil
	}
	if s.active < 0 || s.active >= BoardCount || s.boards[s.active].Finished() {
		return fmt.Errorf("%w: active board %d is not open", ErrCorrupt, s.active)
	}
	return nil
}
