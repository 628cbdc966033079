package room

import (
	"context"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"ctchen222/Ultimate-Tic-Tac-Toe/internal/bot"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/events"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/game"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/match"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/mocks"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/schedule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var epoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) sounds() []events.Sound {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Sound
	for _, e := range r.events {
		if p, ok := e.Payload.(events.SoundPayload); ok {
			out = append(out, p.Tag)
		}
	}
	return out
}

func (r *recorder) ofType(typ string) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func testSettings(mode Mode) Settings {
	s := DefaultSettings()
	s.Mode = mode
	s.ThinkMin = 500 * time.Millisecond
	s.ThinkMax = 500 * time.Millisecond
	return s
}

type fixture struct {
	room      *Room
	sched     *schedule.Manual
	rec       *recorder
	completed []match.Record
}

func newFixture(t *testing.T, settings Settings, selector bot.MoveSelector) *fixture {
	t.Helper()
	f := &fixture{sched: schedule.NewManual(epoch), rec: &recorder{}}
	f.room = New("room-1", settings, f.sched, selector, f.rec)
	f.room.OnComplete(func(rec match.Record) { f.completed = append(f.completed, rec) })
	f.room.Start(context.Background())
	return f
}

func (f *fixture) move(t *testing.T, board, cell int) {
	t.Helper()
	require.NoError(t, f.room.HandleMove(context.Background(), board, cell))
}

// playToBoardWin fills two rounds on every board, then X completes the top row of board 0.
func (f *fixture) playToBoardWin(t *testing.T) {
	t.Helper()
	for round := 0; round < 2; round++ {
		for b := 0; b < match.BoardCount; b++ {
			f.move(t, b, round)
			f.move(t, b, round+3)
		}
	}
	f.move(t, 0, 2)
}

func TestRoom_PvAI_ComputerAnswers(t *testing.T) {
	ctrl := gomock.NewController(t)
	selector := mocks.NewMockMoveSelector(ctrl)
	f := newFixture(t, testSettings(PvAI), selector)

	// Given the human opens in the center of board 0
	f.move(t, 0, 4)
	snap := f.room.Snapshot()
	assert.True(t, snap.AIThinking)
	assert.Equal(t, match.InProgress, snap.Status)

	// When the thinking delay passes
	var want game.Board
	want[4] = game.PlayerX
	selector.EXPECT().SelectMove(want, game.PlayerO, bot.Medium).Return(0, true)
	f.sched.Advance(500 * time.Millisecond)

	// Then the computer's move lands and play moves to board 1
	snap = f.room.Snapshot()
	assert.False(t, snap.AIThinking)
	assert.Equal(t, game.PlayerO, snap.Boards[0].Cells[0])
	assert.Equal(t, 1, snap.ActiveBoard)
	assert.Equal(t, game.PlayerX, snap.ActivePlayer)
	assert.Equal(t, []events.Sound{events.SoundMove, events.SoundMove}, f.rec.sounds())

	f.sched.Advance(500 * time.Millisecond)
	assert.Equal(t, match.Tally{X: 59, O: 60}, f.room.Snapshot().Clocks, "the clock runs for the player to move")
}

func TestRoom_InputBlockedWhileComputerThinks(t *testing.T) {
	ctrl := gomock.NewController(t)
	f := newFixture(t, testSettings(PvAI), mocks.NewMockMoveSelector(ctrl))
	f.move(t, 0, 4)
	f.rec.reset()

	err := f.room.HandleMove(context.Background(), 0, 0)

	assert.ErrorIs(t, err, ErrNotYourTurn)
	assert.ErrorIs(t, err, match.ErrInvalidMove)
	assert.Equal(t, []events.Sound{events.SoundError}, f.rec.sounds())
	require.Len(t, f.rec.ofType(events.TypeInvalidMove), 1)
	assert.Equal(t, 1, f.room.Snapshot().MoveCount)
}

func TestRoom_InvalidMoveIsNoOp(t *testing.T) {
	f := newFixture(t, testSettings(PvP), nil)
	f.move(t, 0, 4)
	before := f.room.Snapshot()

	err := f.room.HandleMove(context.Background(), 0, 4)

	assert.ErrorIs(t, err, match.ErrCellOccupied)
	assert.Equal(t, before, f.room.Snapshot())
	assert.Contains(t, f.rec.sounds(), events.SoundError)
}

func TestRoom_PauseGatesPendingComputerMove(t *testing.T) {
	ctrl := gomock.NewController(t)
	selector := mocks.NewMockMoveSelector(ctrl)
	f := newFixture(t, testSettings(PvAI), selector)
	f.move(t, 0, 4)

	// Given the room is paused while the computer is thinking
	f.room.Pause(context.Background())
	assert.ErrorIs(t, f.room.HandleMove(context.Background(), 0, 0), ErrPaused)

	// When the thinking delay and several seconds pass
	f.sched.Advance(5 * time.Second)

	// Then nothing moved and the clock stood still
	snap := f.room.Snapshot()
	assert.True(t, snap.Paused)
	assert.False(t, snap.AIThinking)
	assert.Equal(t, 1, snap.MoveCount)
	assert.Equal(t, match.Tally{X: 60, O: 60}, snap.Clocks)

	// And resuming asks the computer again
	selector.EXPECT().SelectMove(gomock.Any(), game.PlayerO, bot.Medium).Return(8, true)
	assert.False(t, f.room.TogglePause(context.Background()))
	f.sched.Advance(500 * time.Millisecond)
	assert.Equal(t, game.PlayerO, f.room.Snapshot().Boards[0].Cells[8])
}

func TestRoom_ResumeBeforePendingMoveFires(t *testing.T) {
	ctrl := gomock.NewController(t)
	selector := mocks.NewMockMoveSelector(ctrl)
	f := newFixture(t, testSettings(PvAI), selector)
	f.move(t, 0, 4)

	f.room.Pause(context.Background())
	f.room.Resume(context.Background())

	selector.EXPECT().SelectMove(gomock.Any(), game.PlayerO, bot.Medium).Return(0, true).Times(1)
	f.sched.Advance(2 * time.Second)
	assert.Equal(t, 2, f.room.Snapshot().MoveCount, "exactly one computer move")
}

func TestRoom_AIvP_ComputerOpens(t *testing.T) {
	ctrl := gomock.NewController(t)
	selector := mocks.NewMockMoveSelector(ctrl)
	selector.EXPECT().SelectMove(game.Board{}, game.PlayerX, bot.Hard).Return(4, true)
	settings := testSettings(AIvP)
	settings.Difficulty = bot.Hard
	f := newFixture(t, settings, selector)

	assert.ErrorIs(t, f.room.HandleMove(context.Background(), 0, 0), ErrNotYourTurn)
	f.sched.Advance(500 * time.Millisecond)

	snap := f.room.Snapshot()
	assert.Equal(t, game.PlayerX, snap.Boards[0].Cells[4])
	assert.Equal(t, game.PlayerO, snap.ActivePlayer)
	f.move(t, 0, 0)
}

func TestRoom_IllegalAIStateIsLoggedNotApplied(t *testing.T) {
	ctrl := gomock.NewController(t)
	selector := mocks.NewMockMoveSelector(ctrl)
	selector.EXPECT().SelectMove(gomock.Any(), game.PlayerO, bot.Medium).Return(-1, false)
	f := newFixture(t, testSettings(PvAI), selector)
	f.move(t, 0, 4)

	f.sched.Advance(500 * time.Millisecond)

	assert.Equal(t, 1, f.room.Snapshot().MoveCount)
}

// Scenario: O's clock runs out before the second move.
func TestRoom_TimeoutCompletesMatch(t *testing.T) {
	f := newFixture(t, testSettings(PvP), nil)
	f.move(t, 0, 4)

	f.sched.Advance(60 * time.Second)

	snap := f.room.Snapshot()
	assert.Equal(t, match.Complete, snap.Status)
	require.NotNil(t, snap.Outcome)
	assert.Equal(t, game.WinX, snap.Outcome.Winner)
	assert.Equal(t, match.ReasonTimeout, snap.Outcome.Reason)
	assert.Equal(t, 0, snap.Clocks.O)
	assert.Contains(t, f.rec.sounds(), events.SoundTimeout)
	require.Len(t, f.completed, 1)
	assert.Equal(t, game.PlayerO, f.completed[0].TimedOut)
	assert.Zero(t, f.sched.Pending(), "no timers outlive the match")

	assert.ErrorIs(t, f.room.HandleMove(context.Background(), 0, 0), match.ErrMatchOver)
}

func TestRoom_SettlingAfterBoardWin(t *testing.T) {
	f := newFixture(t, testSettings(PvP), nil)

	f.playToBoardWin(t)

	bonus := f.rec.ofType(events.TypeBonus)
	require.Len(t, bonus, 1)
	assert.Equal(t, events.BonusPayload{Board: 0, Message: "X +15s, O -10s"}, bonus[0].Payload)
	assert.Contains(t, f.rec.sounds(), events.SoundWin)
	assert.ErrorIs(t, f.room.HandleMove(context.Background(), 0, 4), ErrSettling)

	f.sched.Advance(200 * time.Millisecond)
	f.move(t, 0, 4)
	snap := f.room.Snapshot()
	assert.Equal(t, match.Tally{X: 1}, snap.Scores)
	assert.Equal(t, 1, snap.ActiveBoard)
}

func TestRoom_ReplayRebuildsMatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testSettings(PvP), nil)
	f.playToBoardWin(t)
	f.sched.Advance(200 * time.Millisecond)
	f.move(t, 0, 4)
	f.move(t, 1, 8)
	want := f.room.Snapshot()
	rec := f.room.Record()

	require.NoError(t, f.room.BeginReplay(ctx, rec))
	assert.True(t, f.room.Replaying())
	assert.ErrorIs(t, f.room.HandleMove(ctx, 1, 7), ErrReplaying)
	for i, m := range rec.Moves {
		require.NoError(t, f.room.ReplayMove(ctx, i+1, len(rec.Moves), m))
	}
	require.NoError(t, f.room.EndReplay(ctx, rec))

	got := f.room.Snapshot()
	assert.Equal(t, want.Boards, got.Boards)
	assert.Equal(t, want.Scores, got.Scores)
	assert.Equal(t, want.Clocks, got.Clocks)
	assert.Equal(t, want.ActiveBoard, got.ActiveBoard)
	assert.Equal(t, want.ActivePlayer, got.ActivePlayer)
	assert.False(t, got.Replaying)
	replay := f.rec.ofType(events.TypeReplay)
	require.NotEmpty(t, replay)
	assert.True(t, replay[len(replay)-1].Payload.(events.ReplayPayload).Done)
}

func TestRoom_ReplayOfTimedOutMatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testSettings(PvP), nil)
	f.move(t, 0, 4)
	f.sched.Advance(60 * time.Second)
	rec := f.room.Record()

	require.NoError(t, f.room.BeginReplay(ctx, rec))
	for i, m := range rec.Moves {
		require.NoError(t, f.room.ReplayMove(ctx, i+1, len(rec.Moves), m))
	}
	require.NoError(t, f.room.EndReplay(ctx, rec))

	snap := f.room.Snapshot()
	require.NotNil(t, snap.Outcome)
	assert.Equal(t, *rec.Outcome, *snap.Outcome)
	assert.Len(t, f.completed, 1, "replays do not report completion")
}

func TestRoom_ReplayDivergence(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testSettings(PvP), nil)
	rec := match.Record{ID: "m", Rules: match.DefaultRules(), Moves: []match.Move{{Board: 0, Cell: 0, Player: game.PlayerO}}}

	assert.ErrorIs(t, f.room.ReplayMove(ctx, 1, 1, rec.Moves[0]), ErrNotReplaying)
	require.NoError(t, f.room.BeginReplay(ctx, rec))
	assert.ErrorIs(t, f.room.ReplayMove(ctx, 1, 1, rec.Moves[0]), ErrReplayDiverged)
}

func TestRoom_SetModeAndDifficulty(t *testing.T) {
	ctrl := gomock.NewController(t)
	selector := mocks.NewMockMoveSelector(ctrl)
	f := newFixture(t, testSettings(PvP), selector)
	f.move(t, 0, 4)

	f.room.SetDifficulty(context.Background(), bot.Hard)
	assert.Equal(t, "hard", f.room.Snapshot().Difficulty)
	assert.Equal(t, 1, f.room.Snapshot().MoveCount, "difficulty does not reset")

	selector.EXPECT().SelectMove(game.Board{}, game.PlayerX, bot.Hard).Return(4, true)
	f.room.SetMode(context.Background(), AIvP)
	snap := f.room.Snapshot()
	assert.Equal(t, "aivp", snap.Mode)
	assert.Equal(t, 0, snap.MoveCount)
	assert.Equal(t, match.Waiting, snap.Status)

	f.sched.Advance(500 * time.Millisecond)
	assert.Equal(t, 1, f.room.Snapshot().MoveCount)
}

func TestRoom_AIvAI_PlaysToCompletion(t *testing.T) {
	settings := testSettings(AIvAI)
	settings.Difficulty = bot.Hard
	settings.Rules.Policy = match.Retire
	engine := bot.NewEngine(bot.DefaultTable(), rand.New(rand.NewPCG(7, 7)))
	f := newFixture(t, settings, engine)

	f.sched.RunUntilIdle(100000)

	snap := f.room.Snapshot()
	assert.Equal(t, match.Complete, snap.Status)
	require.Len(t, f.completed, 1)
	assert.Equal(t, snap.MoveCount, len(f.completed[0].Moves))
}

func TestRoom_Close(t *testing.T) {
	f := newFixture(t, testSettings(PvP), nil)
	f.move(t, 0, 4)

	f.room.Close()

	assert.ErrorIs(t, f.room.HandleMove(context.Background(), 0, 0), ErrClosed)
	assert.Zero(t, f.sched.Pending())
}

func TestMode_IsAI(t *testing.T) {
	tests := []struct {
		mode Mode
		x, o bool
	}{
		{PvP, false, false},
		{PvAI, false, true},
		{AIvP, true, false},
		{AIvAI, true, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			assert.Equal(t, tt.x, tt.mode.IsAI(game.PlayerX))
			assert.Equal(t, tt.o, tt.mode.IsAI(game.PlayerO))
			assert.False(t, tt.mode.IsAI(game.None))
		})
	}

	_, err := ParseMode("coop")
	assert.Error(t, err)
}
