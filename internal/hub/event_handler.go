package hub

import (
	"context"
	"encoding/json"
	"sync"

	"ctchen222/Ultimate-Tic-Tac-Toe/internal/events"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/game"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/match"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Totals counts completed live matches. Matches rebuilt by replay are not counted.
type Totals struct {
	Matches  int64 `json:"matches"`
	XWins    int64 `json:"x_wins"`
	OWins    int64 `json:"o_wins"`
	Draws    int64 `json:"draws"`
	Timeouts int64 `json:"timeouts"`
}

type tally struct {
	mu        sync.Mutex
	replaying map[string]bool
	t         Totals
}

func newTally() *tally {
	return &tally{replaying: make(map[string]bool)}
}

func (t *tally) totals() Totals {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.t
}

// publish lets a tally sit on a room's bus as a sink.
func (t *tally) publish(_ context.Context, e events.Event) error {
	switch p := e.Payload.(type) {
	case events.ReplayPayload:
		t.setReplaying(e.RoomID, !p.Done)
	case events.GameOverPayload:
		t.gameOver(e.RoomID, p.Outcome)
	}
	return nil
}

func (t *tally) setReplaying(roomID string, on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if on {
		t.replaying[roomID] = true
	} else {
		delete(t.replaying, roomID)
	}
}

func (t *tally) gameOver(roomID string, out match.Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.replaying[roomID] {
		return
	}
	t.t.Matches++
	switch out.Winner {
	case game.WinX:
		t.t.XWins++
	case game.WinO:
		t.t.OWins++
	case game.Draw:
		t.t.Draws++
	}
	if out.Reason == match.ReasonTimeout {
		t.t.Timeouts++
	}
}

// RunEventSubscriber counts matches from every instance publishing to the
// shared channel until the stream closes.
func (h *Hub) RunEventSubscriber(ctx context.Context, stream <-chan events.Envelope) {
	h.logger.InfoContext(ctx, "event subscriber started")
	for env := range stream {
		h.handleEnvelope(ctx, env)
	}
	h.logger.Info("event subscriber stopped")
}

func (h *Hub) handleEnvelope(ctx context.Context, env events.Envelope) {
	switch env.Type {
	case events.TypeReplay:
		var p events.ReplayPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			h.logger.ErrorContext(ctx, "could not unmarshal replay payload", "room.id", env.RoomID, "error", err)
			return
		}
		h.cluster.setReplaying(env.RoomID, !p.Done)

	case events.TypeGameOver:
		_, span := tracer.Start(ctx, "hub.handleGameOver", trace.WithAttributes(
			attribute.String("room.id", env.RoomID),
		))
		defer span.End()

		var p events.GameOverPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			h.logger.ErrorContext(ctx, "could not unmarshal game_over payload", "room.id", env.RoomID, "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "could not unmarshal game_over payload")
			return
		}
		span.SetAttributes(attribute.String("match.id", p.MatchID), attribute.String("winner", string(p.Outcome.Winner)))
		h.cluster.gameOver(env.RoomID, p.Outcome)
	}
}
