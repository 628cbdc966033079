package bot

import (
	"math"
	"math/rand/v2"
	"sync"

	"ctchen222/Ultimate-Tic-Tac-Toe/internal/game"
)

const (
	centerCell = 4
	winScore   = 10
)

// Rand is the random source the engine draws from. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

//go:generate mockgen -destination=../mocks/mock_move_selector.go -package=mocks ctchen222/Ultimate-Tic-Tac-Toe/internal/bot MoveSelector

// MoveSelector picks a cell on a single board for the given mark.
type MoveSelector interface {
	SelectMove(board game.Board, mark game.PlayerMark, difficulty Difficulty) (int, bool)
}

// Engine implements MoveSelector with a probability blend of random play,
// rule-based heuristics and depth-limited minimax.
type Engine struct {
	mu    sync.Mutex
	table Table
	rng   Rand
}

var _ MoveSelector = (*Engine)(nil)

// NewEngine creates an engine. A nil rng falls back to a randomly seeded PCG source.
func NewEngine(table Table, rng Rand) *Engine {
	if table == nil {
		table = DefaultTable()
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Engine{table: table, rng: rng}
}

// Level returns the tuning used for d.
func (e *Engine) Level(d Difficulty) Level {
	return e.table.level(d)
}

// SelectMove returns a legal cell for mark, or false when the board is
// already decided or has no empty cell.
func (e *Engine) SelectMove(board game.Board, mark game.PlayerMark, difficulty Difficulty) (int, bool) {
	if !mark.Valid() || game.Classify(board).Finished() {
		return -1, false
	}
	moves := game.AvailableMoves(board)
	if len(moves) == len(board) && mark == game.PlayerX && difficulty != Easy {
		return centerCell, true
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	level := e.table.level(difficulty)
	if e.rng.Float64() < level.SmartProbability {
		if level.Depth > 0 {
			return bestMove(board, mark, level.Depth), true
		}
		return e.ruleBasedMove(board, mark, level.Forks), true
	}
	return moves[e.rng.IntN(len(moves))], true
}

// ruleBasedMove wins, blocks, optionally handles forks, then follows the strategic order.
func (e *Engine) ruleBasedMove(board game.Board, mark game.PlayerMark, forks bool) int {
	if idx, ok := game.FindImmediateWin(board, mark); ok {
		return idx
	}
	if idx, ok := game.FindImmediateBlock(board, mark); ok {
		return idx
	}
	if forks {
		if idx, ok := game.FindFork(board, mark); ok {
			return idx
		}
		if idx, ok := game.FindFork(board, mark.Opponent()); ok {
			return idx
		}
	}
	for _, idx := range game.StrategicOrder {
		if board[idx] == game.None {
			return idx
		}
	}
	moves := game.AvailableMoves(board)
	return moves[e.rng.IntN(len(moves))]
}

// bestMove runs alpha-beta minimax below every candidate root move and keeps
// the first move reaching the best score.
func bestMove(board game.Board, mark game.PlayerMark, limit int) int {
	best, bestScore := -1, math.MinInt
	alpha, beta := math.MinInt, math.MaxInt
	for _, idx := range game.AvailableMoves(board) {
		next := board
		next[idx] = mark
		score := minimax(next, 0, false, mark, limit, alpha, beta)
		if score > bestScore {
			best, bestScore = idx, score
		}
		alpha = max(alpha, bestScore)
	}
	return best
}

func minimax(board game.Board, depth int, maximizing bool, ai game.PlayerMark, limit, alpha, beta int) int {
	switch game.CheckWinner(board) {
	case ai:
		return winScore - depth
	case ai.Opponent():
		return depth - winScore
	}
	if game.IsFull(board) || depth >= limit {
		return 0
	}

	if maximizing {
		value := math.MinInt
		for _, idx := range game.AvailableMoves(board) {
			next := board
			next[idx] = ai
			value = max(value, minimax(next, depth+1, false, ai, limit, alpha, beta))
			alpha = max(alpha, value)
			if beta <= alpha {
				break
			}
		}
		return value
	}

	value := math.MaxInt
	for _, idx := range game.AvailableMoves(board) {
		next := board
		next[idx] = ai.Opponent()
		value = min(value, minimax(next, depth+1, true, ai, limit, alpha, beta))
		beta = min(beta, value)
		if beta <= alpha {
			break
		}
	}
	return value
}
