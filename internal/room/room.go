package room

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"ctchen222/Ultimate-Tic-Tac-Toe/internal/bot"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/events"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/match"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/schedule"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("room")

// Room owns one match and drives it: it validates input, applies moves,
// runs the clock and schedules computer moves. All state changes happen
// under mu; events are published after mu is released, in order.
type Room struct {
	ID string

	mu         sync.Mutex
	settings   Settings
	state      *match.State
	sched      schedule.Scheduler
	selector   bot.MoveSelector
	rng        bot.Rand
	clock      schedule.Timer
	aiTimer    schedule.Timer
	settleTmr  schedule.Timer
	paused     bool
	aiThinking bool
	settling   bool
	replaying  bool
	closed     bool
	outbox     []events.Event
	completed  *match.Record
	onComplete func(match.Record)

	pubMu   sync.Mutex
	pub     events.Publisher
	logger  *slog.Logger
	metrics *roomMetrics
}

// Option customizes a Room.
type Option func(*Room)

// WithLogger sets the room's logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Room) { r.logger = l }
}

// WithRand sets the source used for the computer's thinking delay.
func WithRand(rng bot.Rand) Option {
	return func(r *Room) { r.rng = rng }
}

// New creates a room with a fresh match. Call Start to announce it.
func New(id string, settings Settings, sched schedule.Scheduler, selector bot.MoveSelector, pub events.Publisher, opts ...Option) *Room {
	if id == "" {
		id = uuid.New().String()
	}
	if pub == nil {
		pub = events.Discard
	}
	r := &Room{
		ID:       id,
		settings: settings,
		sched:    sched,
		selector: selector,
		pub:      pub,
		logger:   slog.Default(),
		metrics:  getMetrics(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.rng == nil {
		r.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	r.logger = r.logger.With("component", "room", "room.id", id)
	r.state = match.New(uuid.New().String(), settings.Rules, sched.Now())
	return r
}

// OnComplete registers fn to run after a live match completes. It is not
// called for matches rebuilt by replay.
func (r *Room) OnComplete(fn func(match.Record)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onComplete = fn
}

// Start publishes the opening snapshot and lets the computer open if it plays X.
func (r *Room) Start(ctx context.Context) {
	r.mu.Lock()
	r.queueSnapshot()
	r.maybeTriggerAI()
	r.mu.Unlock()
	r.flush(ctx)
}

// HandleMove applies a move from a human player.
func (r *Room) HandleMove(ctx context.Context, board, cell int) error {
	ctx, span := tracer.Start(ctx, "room.HandleMove", trace.WithAttributes(
		attribute.String("room.id", r.ID),
		attribute.Int("board.index", board),
		attribute.Int("cell.index", cell),
	))
	defer span.End()

	r.mu.Lock()
	err := r.humanMove(ctx, board, cell)
	r.mu.Unlock()
	r.flush(ctx)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (r *Room) humanMove(ctx context.Context, board, cell int) error {
	var err error
	switch {
	case r.closed:
		err = ErrClosed
	case r.replaying:
		err = ErrReplaying
	case r.paused:
		err = ErrPaused
	case r.settling:
		err = ErrSettling
	case r.aiThinking || (r.state.Accepting() && r.settings.Mode.IsAI(r.state.ActivePlayer())):
		err = ErrNotYourTurn
	}
	if err != nil {
		r.reject(ctx, board, cell, err)
		return err
	}
	return r.applyMove(ctx, board, cell, r.sched.Now())
}

// Pause stops the clock and holds input. A pending computer move is not
// cancelled; it does nothing when it fires while paused.
func (r *Room) Pause(ctx context.Context) {
	r.mu.Lock()
	r.setPaused(true)
	r.mu.Unlock()
	r.flush(ctx)
}

// Resume restarts the clock and lets the computer move again.
func (r *Room) Resume(ctx context.Context) {
	r.mu.Lock()
	r.setPaused(false)
	r.mu.Unlock()
	r.flush(ctx)
}

// TogglePause flips between paused and running and reports the new state.
func (r *Room) TogglePause(ctx context.Context) bool {
	r.mu.Lock()
	r.setPaused(!r.paused)
	paused := r.paused
	r.mu.Unlock()
	r.flush(ctx)
	return paused
}

func (r *Room) setPaused(paused bool) {
	if r.closed || r.replaying || r.paused == paused || !r.state.Accepting() {
		return
	}
	r.paused = paused
	if paused {
		r.stopClock()
		r.queue(events.TypeControl, events.ControlPayload{Action: "pause"})
	} else {
		if r.state.Status() == match.InProgress {
			r.startClock()
		}
		r.queue(events.TypeControl, events.ControlPayload{Action: "resume"})
		r.maybeTriggerAI()
	}
	r.queueSnapshot()
}

// Reset discards the current match and starts a fresh one with the same settings.
func (r *Room) Reset(ctx context.Context) {
	r.mu.Lock()
	r.reset("reset", "")
	r.mu.Unlock()
	r.flush(ctx)
}

func (r *Room) reset(action, value string) {
	if r.closed {
		return
	}
	r.stopTimers()
	r.paused, r.aiThinking, r.settling, r.replaying = false, false, false, false
	r.completed = nil
	r.state = match.New(uuid.New().String(), r.settings.Rules, r.sched.Now())
	r.logger.Info("match reset", "match.id", r.state.ID, "mode", r.settings.Mode)
	r.queue(events.TypeControl, events.ControlPayload{Action: action, Value: value})
	r.queueSnapshot()
	r.maybeTriggerAI()
}

// SetMode switches who the computer plays and restarts the match.
func (r *Room) SetMode(ctx context.Context, mode Mode) {
	r.mu.Lock()
	r.settings.Mode = mode
	r.reset("set_mode", string(mode))
	r.mu.Unlock()
	r.flush(ctx)
}

// SetDifficulty changes the computer's strength for the next move onward.
func (r *Room) SetDifficulty(ctx context.Context, d bot.Difficulty) {
	r.mu.Lock()
	if !r.closed {
		r.settings.Difficulty = d
		r.queue(events.TypeControl, events.ControlPayload{Action: "set_difficulty", Value: d.String()})
		r.queueSnapshot()
	}
	r.mu.Unlock()
	r.flush(ctx)
}

// Settings returns the room's current settings.
func (r *Room) Settings() Settings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings
}

// Snapshot returns the current view of the room.
func (r *Room) Snapshot() events.SnapshotPayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

// Record returns the move log of the current match.
func (r *Room) Record() match.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Record()
}

// Close stops every timer. Later input is rejected.
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopTimers()
	r.closed = true
}

func (r *Room) snapshot() events.SnapshotPayload {
	return events.SnapshotPayload{
		Snapshot:   r.state.Snapshot(),
		Mode:       string(r.settings.Mode),
		Difficulty: r.settings.Difficulty.String(),
		Paused:     r.paused,
		AIThinking: r.aiThinking,
		Replaying:  r.replaying,
	}
}

func (r *Room) queue(typ string, payload any) {
	r.outbox = append(r.outbox, events.Event{Type: typ, RoomID: r.ID, Payload: payload})
}

func (r *Room) queueSnapshot() {
	r.queue(events.TypeSnapshot, r.snapshot())
}

func (r *Room) queueSound(tag events.Sound) {
	r.queue(events.TypeSound, events.SoundPayload{Tag: tag})
}

// flush publishes queued events and then runs the completion hook.
// It must be called without mu held.
func (r *Room) flush(ctx context.Context) {
	r.pubMu.Lock()
	r.mu.Lock()
	out := r.outbox
	r.outbox = nil
	done := r.completed
	r.completed = nil
	hook := r.onComplete
	r.mu.Unlock()

	for _, e := range out {
		// Sink failures are logged by the publisher; play goes on.
		_ = r.pub.Publish(ctx, e)
	}
	r.pubMu.Unlock()

	if done != nil && hook != nil {
		hook(*done)
	}
}

func (r *Room) stopTimers() {
	r.stopClock()
	if r.aiTimer != nil {
		r.aiTimer.Stop()
		r.aiTimer = nil
	}
	if r.settleTmr != nil {
		r.settleTmr.Stop()
		r.settleTmr = nil
	}
}

func (r *Room) stopClock() {
	if r.clock != nil {
		r.clock.Stop()
		r.clock = nil
	}
}

func (r *Room) startClock() {
	if r.clock == nil && r.settings.TickInterval > 0 {
		r.clock = r.sched.AfterFunc(r.settings.TickInterval, r.tick)
	}
}

func (r *Room) thinkDelay() time.Duration {
	lo, hi := r.settings.ThinkMin, r.settings.ThinkMax
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(r.rng.Float64()*float64(hi-lo))
}
