package bot

import (
	"strings"
	"testing"

	"ctchen222/Ultimate-Tic-Tac-Toe/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRand returns a fixed float and a fixed index, counting draws.
type stubRand struct {
	float float64
	index int
	draws int
}

func (s *stubRand) Float64() float64 {
	s.draws++
	return s.float
}

func (s *stubRand) IntN(n int) int {
	s.draws++
	return s.index % n
}

func board(t *testing.T, s string) game.Board {
	t.Helper()
	b, err := game.ParseBoard(s)
	require.NoError(t, err)
	return b
}

func alwaysSmart(depth int, forks bool) Table {
	return Table{
		Easy:   {SmartProbability: 1, Depth: depth, Forks: forks},
		Medium: {SmartProbability: 1, Depth: depth, Forks: forks},
		Hard:   {SmartProbability: 1, Depth: depth, Forks: forks},
	}
}

func TestSelectMove_OpeningShortcut(t *testing.T) {
	rng := &stubRand{float: 0}
	e := NewEngine(alwaysSmart(6, false), rng)

	idx, ok := e.SelectMove(game.Board{}, game.PlayerX, Hard)

	require.True(t, ok)
	assert.Equal(t, 4, idx)
	assert.Zero(t, rng.draws, "shortcut must not consume randomness")
}

func TestSelectMove_EasyHasNoOpeningShortcut(t *testing.T) {
	rng := &stubRand{float: 0.99, index: 7}
	e := NewEngine(DefaultTable(), rng)

	idx, ok := e.SelectMove(game.Board{}, game.PlayerX, Easy)

	require.True(t, ok)
	assert.Equal(t, 7, idx)
}

func TestSelectMove_RuleBased(t *testing.T) {
	tests := []struct {
		name  string
		board string
		mark  game.PlayerMark
		forks bool
		want  int
	}{
		{"takes the win", "XX.OO....", game.PlayerX, false, 2},
		{"win beats block", "OO.XX....", game.PlayerX, false, 5},
		{"blocks", "OO.X.....", game.PlayerX, false, 2},
		{"center first", "X........", game.PlayerO, false, 4},
		{"corner after center", "....X....", game.PlayerO, false, 0},
		{"blocks on the last edge", "XOXOXOO.O", game.PlayerX, false, 7},
		{"strategic order without forks", "...OOX.X.", game.PlayerX, false, 0},
		{"creates a fork", "...OOX.X.", game.PlayerX, true, 8},
		{"blocks a fork", "X...O...X", game.PlayerO, true, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(alwaysSmart(0, tt.forks), &stubRand{float: 0})
			idx, ok := e.SelectMove(board(t, tt.board), tt.mark, Medium)
			require.True(t, ok)
			assert.Equal(t, tt.want, idx)
		})
	}
}

func TestSelectMove_Minimax(t *testing.T) {
	tests := []struct {
		name  string
		board string
		mark  game.PlayerMark
		depth int
		want  int
	}{
		{"immediate win", "XX.OO....", game.PlayerX, 6, 2},
		{"must block", "OO.X.....", game.PlayerX, 2, 2},
		{"prefers the faster win", "X.XOO.O..", game.PlayerX, 6, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(alwaysSmart(tt.depth, false), &stubRand{float: 0})
			idx, ok := e.SelectMove(board(t, tt.board), tt.mark, Hard)
			require.True(t, ok)
			assert.Equal(t, tt.want, idx)
		})
	}
}

func TestSelectMove_MinimaxTieKeepsFirstMove(t *testing.T) {
	// Every opening draws under perfect play, so the first enumerated cell wins the tie.
	e := NewEngine(alwaysSmart(9, false), &stubRand{float: 0})

	idx, ok := e.SelectMove(game.Board{}, game.PlayerX, Easy)

	require.True(t, ok)
	assert.Equal(t, 0, idx)
}

func TestSelectMove_ProbabilityMissIsRandom(t *testing.T) {
	// Given the draw misses, the engine plays the IntN-th available move.
	rng := &stubRand{float: 0.95, index: 1}
	e := NewEngine(DefaultTable(), rng)

	idx, ok := e.SelectMove(board(t, "XX.OO...."), game.PlayerX, Hard)

	require.True(t, ok)
	assert.Equal(t, 5, idx)
}

func TestSelectMove_NoLegalMove(t *testing.T) {
	e := NewEngine(DefaultTable(), &stubRand{})

	_, ok := e.SelectMove(board(t, "XOXXOOOXX"), game.PlayerX, Hard)
	assert.False(t, ok, "full board")

	_, ok = e.SelectMove(board(t, "XXXOO...."), game.PlayerO, Hard)
	assert.False(t, ok, "decided board")

	_, ok = e.SelectMove(game.Board{}, game.None, Hard)
	assert.False(t, ok, "no mark")
}

// TestSelectMove_NeverLoses plays every opponent line against a full-depth engine.
func TestSelectMove_NeverLoses(t *testing.T) {
	e := NewEngine(alwaysSmart(9, false), &stubRand{float: 0})

	for _, ai := range []game.PlayerMark{game.PlayerX, game.PlayerO} {
		t.Run(string(ai), func(t *testing.T) {
			var losses, games int
			var play func(b game.Board, toMove game.PlayerMark)
			play = func(b game.Board, toMove game.PlayerMark) {
				switch game.Classify(b) {
				case game.ResultFor(ai.Opponent()):
					losses++
					games++
					return
				case game.Open:
				default:
					games++
					return
				}
				if toMove == ai {
					idx, ok := e.SelectMove(b, ai, Hard)
					require.True(t, ok)
					b[idx] = ai
					play(b, ai.Opponent())
					return
				}
				for _, idx := range game.AvailableMoves(b) {
					next := b
					next[idx] = toMove
					play(next, ai)
				}
			}
			play(game.Board{}, game.PlayerX)
			assert.Positive(t, games)
			assert.Zero(t, losses)
		})
	}
}

func TestParseDifficulty(t *testing.T) {
	tests := []struct {
		in      string
		want    Difficulty
		wantErr bool
	}{
		{"easy", Easy, false},
		{"Medium", Medium, false},
		{" HARD ", Hard, false},
		{"expert", Easy, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDifficulty(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownDifficulty)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, strings.ToLower(strings.TrimSpace(tt.in)), got.String())
		})
	}
}
