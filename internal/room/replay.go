package room

import (
	"context"
	"fmt"

	"ctchen222/Ultimate-Tic-Tac-Toe/internal/events"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/match"
)

// BeginReplay clears the room to the start of rec and blocks ordinary input.
// The clock and the computer stay idle until EndReplay.
func (r *Room) BeginReplay(ctx context.Context, rec match.Record) error {
	r.mu.Lock()
	err := r.beginReplay(rec)
	r.mu.Unlock()
	r.flush(ctx)
	return err
}

func (r *Room) beginReplay(rec match.Record) error {
	if r.closed {
		return ErrClosed
	}
	r.stopTimers()
	r.paused, r.aiThinking, r.settling = false, false, false
	r.replaying = true
	r.completed = nil
	r.state = match.New(rec.ID, rec.Rules, rec.CreatedAt)
	r.logger.Info("replay started", "match.id", rec.ID, "moves", len(rec.Moves))
	r.queue(events.TypeReplay, events.ReplayPayload{Step: 0, Total: len(rec.Moves)})
	r.queueSnapshot()
	return nil
}

// ReplayMove re-applies one logged move through the normal move path.
func (r *Room) ReplayMove(ctx context.Context, step, total int, m match.Move) error {
	r.mu.Lock()
	err := r.replayMove(ctx, step, total, m)
	r.mu.Unlock()
	r.flush(ctx)
	return err
}

func (r *Room) replayMove(ctx context.Context, step, total int, m match.Move) error {
	if !r.replaying {
		return ErrNotReplaying
	}
	if p := r.state.ActivePlayer(); p != m.Player {
		return fmt.Errorf("%w: move %d is %s's but %s is to play", ErrReplayDiverged, step, m.Player, p)
	}
	if err := r.applyMove(ctx, m.Board, m.Cell, m.At); err != nil {
		return fmt.Errorf("%w: move %d: %v", ErrReplayDiverged, step, err)
	}
	r.queue(events.TypeReplay, events.ReplayPayload{Step: step, Total: total})
	return nil
}

// EndReplay closes a replay. A match that originally ran out of time is
// expired again so the rebuilt outcome matches.
func (r *Room) EndReplay(ctx context.Context, rec match.Record) error {
	r.mu.Lock()
	err := r.endReplay(ctx, rec)
	r.mu.Unlock()
	r.flush(ctx)
	return err
}

func (r *Room) endReplay(ctx context.Context, rec match.Record) error {
	if !r.replaying {
		return ErrNotReplaying
	}
	if rec.TimedOut.Valid() && r.state.Accepting() {
		if out := r.state.Expire(rec.TimedOut); out != nil {
			r.queueSound(events.SoundTimeout)
			r.finish(ctx, *out)
		}
	}
	r.replaying = false
	r.logger.Info("replay finished", "match.id", r.state.ID, "status", r.state.Status())
	r.queue(events.TypeReplay, events.ReplayPayload{Step: len(rec.Moves), Total: len(rec.Moves), Done: true})
	if r.state.Status() == match.InProgress {
		r.startClock()
	}
	r.queueSnapshot()
	r.maybeTriggerAI()
	return nil
}

// Replaying reports whether a replay holds the room.
func (r *Room) Replaying() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.replaying
}
