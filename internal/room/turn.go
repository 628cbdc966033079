package room

import (
	"context"
	"errors"
	"time"

	"ctchen222/Ultimate-Tic-Tac-Toe/internal/events"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/game"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/match"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// applyMove is the single path every move takes, human, computer or replay. Caller holds mu.
func (r *Room) applyMove(ctx context.Context, board, cell int, at time.Time) error {
	ctx, span := tracer.Start(ctx, "room.applyMove", trace.WithAttributes(
		attribute.String("room.id", r.ID),
		attribute.String("match.id", r.state.ID),
		attribute.Int("board.index", board),
		attribute.Int("cell.index", cell),
		attribute.String("player", string(r.state.ActivePlayer())),
	))
	defer span.End()

	wasWaiting := r.state.Status() == match.Waiting
	res, err := r.state.ApplyMove(board, cell, at)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "move rejected")
		r.reject(ctx, board, cell, err)
		return err
	}

	r.metrics.moves.Add(ctx, 1, metric.WithAttributes(attribute.String("player", string(res.Move.Player))))
	r.queueSound(events.SoundMove)
	if wasWaiting && !r.replaying {
		r.startClock()
	}

	if res.Result.Finished() {
		r.metrics.boardsResolved.Add(ctx, 1, metric.WithAttributes(attribute.String("result", string(res.Result))))
		if res.Result == game.Draw {
			r.queueSound(events.SoundDraw)
		} else {
			r.queueSound(events.SoundWin)
		}
		r.queue(events.TypeBonus, events.BonusPayload{Board: board, Message: res.Bonus})
		r.queue(events.TypeClock, r.clockPayload())
		r.logger.InfoContext(ctx, "board resolved",
			"match.id", r.state.ID,
			"board.index", board,
			"result", res.Result,
			"bonus", res.Bonus,
		)
	}

	if res.Outcome != nil {
		r.finish(ctx, *res.Outcome)
	} else if res.Result.Finished() && !r.replaying && r.settings.ResetDelay > 0 {
		r.settling = true
		r.settleTmr = r.sched.AfterFunc(r.settings.ResetDelay, r.endSettle)
	}

	if err := r.state.Verify(); err != nil {
		r.logger.ErrorContext(ctx, "match state invariant broken", "match.id", r.state.ID, "error", err)
		span.RecordError(err)
	}

	r.queueSnapshot()
	r.maybeTriggerAI()
	return nil
}

// reject signals an invalid move without touching the match. Caller holds mu.
func (r *Room) reject(ctx context.Context, board, cell int, err error) {
	r.logger.DebugContext(ctx, "move rejected", "board.index", board, "cell.index", cell, "error", err)
	r.queueSound(events.SoundError)
	r.queue(events.TypeInvalidMove, events.InvalidMovePayload{Board: board, Cell: cell, Reason: err.Error()})
}

// finish stops the timers of a completed match and reports it. Caller holds mu.
func (r *Room) finish(ctx context.Context, out match.Outcome) {
	r.stopTimers()
	r.settling, r.aiThinking = false, false
	r.metrics.matches.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", string(out.Reason))))
	r.queue(events.TypeGameOver, events.GameOverPayload{MatchID: r.state.ID, Outcome: out})
	if r.replaying {
		return
	}
	r.logger.InfoContext(ctx, "match complete",
		"match.id", r.state.ID,
		"winner", out.Winner,
		"reason", out.Reason,
		"duration", out.Duration,
		"moves", out.Moves,
	)
	rec := r.state.Record()
	r.completed = &rec
}

// maybeTriggerAI schedules one computer move when the computer is to play.
// aiThinking keeps a second trigger out while one is pending. Caller holds mu.
func (r *Room) maybeTriggerAI() {
	if r.closed || r.paused || r.aiThinking || r.settling || r.replaying || !r.state.Accepting() {
		return
	}
	if !r.settings.Mode.IsAI(r.state.ActivePlayer()) {
		return
	}
	r.aiThinking = true
	r.aiTimer = r.sched.AfterFunc(r.thinkDelay(), r.runAI)
}

func (r *Room) runAI() {
	ctx, span := tracer.Start(context.Background(), "room.runAI", trace.WithAttributes(
		attribute.String("room.id", r.ID),
	))
	defer span.End()

	r.mu.Lock()
	r.playAI(ctx, span)
	r.mu.Unlock()
	r.flush(ctx)
}

func (r *Room) playAI(ctx context.Context, span trace.Span) {
	r.aiThinking = false
	r.aiTimer = nil
	if r.closed || r.paused || r.settling || r.replaying || !r.state.Accepting() {
		return
	}
	mark := r.state.ActivePlayer()
	if !r.settings.Mode.IsAI(mark) {
		return
	}

	board := r.state.ActiveBoard()
	cells := r.state.Board(board).Cells
	started := time.Now()
	cell, ok := r.selector.SelectMove(cells, mark, r.settings.Difficulty)
	r.metrics.aiSelect.Record(ctx, float64(time.Since(started).Microseconds())/1000,
		metric.WithAttributes(attribute.String("difficulty", r.settings.Difficulty.String())))
	if !ok {
		err := errors.New("computer found no legal move")
		r.logger.ErrorContext(ctx, "illegal AI state", "board.index", board, "board", cells.String(), "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "illegal AI state")
		return
	}
	span.SetAttributes(attribute.Int("board.index", board), attribute.Int("cell.index", cell))
	r.logger.DebugContext(ctx, "computer move", "player", mark, "board.index", board, "cell.index", cell, "difficulty", r.settings.Difficulty)
	if err := r.applyMove(ctx, board, cell, r.sched.Now()); err != nil {
		r.logger.ErrorContext(ctx, "computer move rejected", "board.index", board, "cell.index", cell, "error", err)
	}
}

func (r *Room) endSettle() {
	r.mu.Lock()
	r.settleTmr = nil
	if r.settling {
		r.settling = false
		r.maybeTriggerAI()
	}
	r.mu.Unlock()
	r.flush(context.Background())
}

func (r *Room) tick() {
	ctx := context.Background()
	r.mu.Lock()
	r.onTick(ctx)
	r.mu.Unlock()
	r.flush(ctx)
}

func (r *Room) onTick(ctx context.Context) {
	r.clock = nil
	if r.closed || r.paused || r.replaying || r.state.Status() != match.InProgress {
		return
	}
	res := r.state.Tick()
	r.queue(events.TypeClock, r.clockPayload())
	if !res.TimedOut {
		r.startClock()
		return
	}
	r.logger.InfoContext(ctx, "clock expired", "match.id", r.state.ID, "player", res.Player)
	r.queueSound(events.SoundTimeout)
	r.finish(ctx, *res.Outcome)
	r.queueSnapshot()
}

func (r *Room) clockPayload() events.ClockPayload {
	return events.ClockPayload{
		Clocks: r.state.Clocks(),
		Scores: r.state.Scores(),
		Active: r.state.ActivePlayer(),
	}
}
