package match

import (
	"time"

	"ctchen222/Ultimate-Tic-Tac-Toe/internal/game"
)

// BoardView is the read-only view of one board handed to renderers.
type BoardView struct {
	Cells    game.Board      `json:"cells"`
	Finished bool            `json:"finished"`
	Winner   game.Result     `json:"winner,omitempty"`
	Line     []int           `json:"line,omitempty"`
	Owner    game.PlayerMark `json:"owner,omitempty"`
}

// Snapshot is a copy of everything collaborators may read after a mutation.
type Snapshot struct {
	ID             string                `json:"id"`
	Boards         [BoardCount]BoardView `json:"boards"`
	ActiveBoard    int                   `json:"active_board"`
	ActivePlayer   game.PlayerMark       `json:"active_player"`
	Scores         Tally                 `json:"scores"`
	Clocks         Tally                 `json:"clocks"`
	Status         Status                `json:"status"`
	Bonus          string                `json:"bonus,omitempty"`
	MoveCount      int                   `json:"move_count"`
	AvgMoveSeconds float64               `json:"avg_move_seconds"`
	Outcome        *Outcome              `json:"outcome,omitempty"`
}

// Snapshot copies the current state.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		ID:           s.ID,
		ActiveBoard:  s.active,
		ActivePlayer: s.player,
		Scores:       s.scores,
		Clocks:       s.clocks,
		Status:       s.status,
		Bonus:        s.bonus,
		MoveCount:    len(s.moves),
	}
	for i, b := range s.boards {
		view := BoardView{Cells: b.Cells, Finished: b.Finished(), Winner: b.Result}
		if owner := b.Result.Winner(); owner != game.None {
			if line, ok := game.WinningLine(b.Cells, owner); ok {
				view.Line = line[:]
				view.Owner = owner
			}
		}
		snap.Boards[i] = view
	}
	if s.outcome != nil {
		out := *s.outcome
		snap.Outcome = &out
	}
	if n := len(s.moves); n > 0 {
		elapsed := 2*s.rules.InitialClock - (s.clocks.X + s.clocks.O)
		snap.AvgMoveSeconds = float64(elapsed) / float64(n)
	}
	return snap
}

// Record is everything needed to rebuild a match by replay.
type Record struct {
	ID        string    `json:"id"`
	Rules     Rules     `json:"rules"`
	CreatedAt time.Time `json:"created_at"`
	Moves     []Move    `json:"moves"`
	Outcome   *Outcome  `json:"outcome,omitempty"`
	// TimedOut names the player whose clock ran out, if any.
	TimedOut game.PlayerMark `json:"timed_out,omitempty"`
}

// Record returns the move log together with how the match ended.
func (s *State) Record() Record {
	r := Record{ID: s.ID, Rules: s.rules, CreatedAt: s.createdAt, Moves: s.Moves()}
	if s.outcome != nil {
		out := *s.outcome
		r.Outcome = &out
		if out.Reason == ReasonTimeout {
			r.TimedOut = out.Winner.Winner().Opponent()
		}
	}
	return r
}

// Restart clears the match back to its waiting state, keeping ID and rules.
func (s *State) Restart(now time.Time) {
	s.createdAt = now
	s.reset()
}
