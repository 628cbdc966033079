package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ctchen222/Ultimate-Tic-Tac-Toe/internal/bot"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/events"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/match"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/room"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/schedule"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/validator"
	"ctchen222/Ultimate-Tic-Tac-Toe/pkg/proto"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("session")

var (
	ErrSessionActive   = errors.New("a session is already running")
	ErrNoSession       = errors.New("no session is running")
	ErrReplayActive    = errors.New("a replay is already running")
	ErrNothingToReplay = errors.New("no moves to replay")
	ErrUnknownCommand  = errors.New("unknown command")
	ErrInvalidCommand  = errors.New("invalid command")
)

// Mode is the kind of play the manager is running.
type Mode string

const (
	Single Mode = "single"
	BestOf Mode = "best_of"
)

// Settings configures a Manager.
type Settings struct {
	// Games is the default N for best-of-N sessions.
	Games          int
	NextGameDelay  time.Duration
	ReplayInterval time.Duration
}

// DefaultSettings returns best-of-5 sessions, 3 seconds between games and one replayed move per second.
func DefaultSettings() Settings {
	return Settings{Games: 5, NextGameDelay: 3 * time.Second, ReplayInterval: time.Second}
}

type bestOf struct {
	id      string
	max     int
	history []Summary
}

// Manager chains matches on one room into sessions and replays finished matches.
// Room methods are never called with mu held, since a move can complete a match
// and call back into onMatchComplete.
type Manager struct {
	room     *room.Room
	sched    schedule.Scheduler
	pub      events.Publisher
	settings Settings
	logger   *slog.Logger

	mu          sync.Mutex
	session     *bestOf
	last        *Stats
	lastRecord  *match.Record
	nextGame    schedule.Timer
	replayTimer schedule.Timer
	replaying   bool
}

// New creates a manager and hooks it to the room's match completions.
func New(r *room.Room, sched schedule.Scheduler, pub events.Publisher, settings Settings, logger *slog.Logger) *Manager {
	if pub == nil {
		pub = events.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	if settings.Games <= 0 {
		settings.Games = DefaultSettings().Games
	}
	m := &Manager{
		room:     r,
		sched:    sched,
		pub:      pub,
		settings: settings,
		logger:   logger.With("component", "session", "room.id", r.ID),
	}
	r.OnComplete(m.onMatchComplete)
	return m
}

// Room returns the managed room.
func (m *Manager) Room() *room.Room { return m.room }

// Mode reports whether a best-of-N session is running.
func (m *Manager) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil {
		return BestOf
	}
	return Single
}

// Stats returns the running session's stats, or false when none is running.
func (m *Manager) Stats() (Stats, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return Stats{}, false
	}
	return computeStats(m.session.id, m.session.max, m.session.history), true
}

// LastStats returns the stats of the most recently finished or stopped session.
func (m *Manager) LastStats() (Stats, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		return Stats{}, false
	}
	return *m.last, true
}

// StartSession begins a best-of-n session with a fresh match. n <= 0 uses the configured default.
func (m *Manager) StartSession(ctx context.Context, n int) (string, error) {
	m.mu.Lock()
	if m.session != nil {
		m.mu.Unlock()
		return "", ErrSessionActive
	}
	if n <= 0 {
		n = m.settings.Games
	}
	m.stopReplay()
	s := &bestOf{id: uuid.New().String(), max: n}
	m.session = s
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "session started", "session.id", s.id, "games", n)
	m.room.Reset(ctx)
	m.publish(ctx, s.id, "started", computeStats(s.id, n, nil))
	return s.id, nil
}

// StopSession abandons the running match, keeps the finished games' stats
// available through LastStats and clears the session.
func (m *Manager) StopSession(ctx context.Context) (Stats, error) {
	m.mu.Lock()
	s := m.session
	if s == nil {
		m.mu.Unlock()
		return Stats{}, ErrNoSession
	}
	m.stopNextGame()
	st := computeStats(s.id, s.max, s.history)
	st.Stopped = true
	m.last = &st
	m.session = nil
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "session stopped", "session.id", s.id, "games_played", st.GamesPlayed)
	m.room.Reset(ctx)
	m.publish(ctx, s.id, "stopped", st)
	return st, nil
}

func (m *Manager) onMatchComplete(rec match.Record) {
	ctx := context.Background()
	m.mu.Lock()
	m.lastRecord = &rec
	m.stopNextGame()
	s := m.session
	if s == nil || rec.Outcome == nil {
		m.mu.Unlock()
		return
	}
	s.history = append(s.history, Summary{
		GameNumber:      len(s.history) + 1,
		Winner:          rec.Outcome.Winner,
		DurationSeconds: rec.Outcome.Duration,
		MoveCount:       rec.Outcome.Moves,
		Reason:          rec.Outcome.Reason,
		MatchID:         rec.ID,
	})
	st := computeStats(s.id, s.max, s.history)
	if len(s.history) >= s.max {
		st.Finished = true
		st.Overall = overallWinner(st.Aggregate)
		m.last = &st
		m.session = nil
		m.mu.Unlock()

		m.logger.InfoContext(ctx, "session finished", "session.id", s.id, "overall", st.Overall, "aggregate", st.Aggregate)
		m.publish(ctx, s.id, "finished", st)
		return
	}
	m.nextGame = m.sched.AfterFunc(m.settings.NextGameDelay, func() { m.startNextGame(s) })
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "session game recorded", "session.id", s.id, "game", len(st.History), "winner", rec.Outcome.Winner)
	m.publish(ctx, s.id, "game_recorded", st)
}

func (m *Manager) startNextGame(s *bestOf) {
	ctx := context.Background()
	m.mu.Lock()
	m.nextGame = nil
	if m.session != s {
		m.mu.Unlock()
		return
	}
	st := computeStats(s.id, s.max, s.history)
	m.mu.Unlock()

	m.room.Reset(ctx)
	m.publish(ctx, s.id, "game_started", st)
}

// StartReplay rebuilds the current match, or the last completed one when the
// current match has no moves, one move per replay interval.
func (m *Manager) StartReplay(ctx context.Context) error {
	rec := m.room.Record()
	m.mu.Lock()
	if m.session != nil {
		m.mu.Unlock()
		return ErrSessionActive
	}
	if m.replaying {
		m.mu.Unlock()
		return ErrReplayActive
	}
	if len(rec.Moves) == 0 && m.lastRecord != nil {
		rec = *m.lastRecord
	}
	if len(rec.Moves) == 0 {
		m.mu.Unlock()
		return ErrNothingToReplay
	}
	m.replaying = true
	m.mu.Unlock()

	if err := m.room.BeginReplay(ctx, rec); err != nil {
		m.mu.Lock()
		m.replaying = false
		m.mu.Unlock()
		return err
	}
	m.mu.Lock()
	if m.replaying {
		m.replayTimer = m.sched.AfterFunc(m.settings.ReplayInterval, func() { m.replayStep(rec, 0) })
	}
	m.mu.Unlock()
	return nil
}

func (m *Manager) replayStep(rec match.Record, i int) {
	ctx := context.Background()
	m.mu.Lock()
	m.replayTimer = nil
	active := m.replaying
	m.mu.Unlock()
	if !active {
		return
	}

	if err := m.room.ReplayMove(ctx, i+1, len(rec.Moves), rec.Moves[i]); err != nil {
		if errors.Is(err, room.ErrNotReplaying) {
			m.logger.DebugContext(ctx, "replay cancelled", "match.id", rec.ID, "step", i+1)
			m.mu.Lock()
			if m.replayTimer == nil {
				m.replaying = false
			}
			m.mu.Unlock()
			return
		}
		m.logger.ErrorContext(ctx, "replay aborted", "match.id", rec.ID, "step", i+1, "error", err)
		m.finishReplay(ctx, rec)
		return
	}
	if i+1 >= len(rec.Moves) {
		m.finishReplay(ctx, rec)
		return
	}

	m.mu.Lock()
	if m.replaying {
		m.replayTimer = m.sched.AfterFunc(m.settings.ReplayInterval, func() { m.replayStep(rec, i+1) })
	}
	m.mu.Unlock()
}

func (m *Manager) finishReplay(ctx context.Context, rec match.Record) {
	m.mu.Lock()
	m.replaying = false
	m.mu.Unlock()
	if err := m.room.EndReplay(ctx, rec); err != nil && !errors.Is(err, room.ErrNotReplaying) {
		m.logger.ErrorContext(ctx, "failed to end replay", "match.id", rec.ID, "error", err)
	}
}

// Replaying reports whether a replay is being paced.
func (m *Manager) Replaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.replaying
}

// stopReplay cancels pacing. Caller holds mu.
func (m *Manager) stopReplay() {
	m.replaying = false
	if m.replayTimer != nil {
		m.replayTimer.Stop()
		m.replayTimer = nil
	}
}

// Handle validates one client command and dispatches it.
func (m *Manager) Handle(ctx context.Context, msg proto.ClientToServerMessage) error {
	ctx, span := tracer.Start(ctx, "session.Handle", trace.WithAttributes(
		attribute.String("room.id", m.room.ID),
		attribute.String("command", msg.Type),
	))
	defer span.End()

	err := m.dispatch(ctx, msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "command failed")
	}
	return err
}

func (m *Manager) dispatch(ctx context.Context, msg proto.ClientToServerMessage) error {
	if err := validator.Struct(msg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}

	switch msg.Type {
	case proto.TypeMove:
		if msg.Board == nil || msg.Cell == nil {
			return fmt.Errorf("%w: move needs board and cell", ErrInvalidCommand)
		}
		return m.room.HandleMove(ctx, *msg.Board, *msg.Cell)
	case proto.TypePause:
		m.room.Pause(ctx)
	case proto.TypeResume:
		m.room.Resume(ctx)
	case proto.TypeTogglePause:
		m.room.TogglePause(ctx)
	case proto.TypeReset:
		m.cancelReplay()
		m.cancelNextGame()
		m.room.Reset(ctx)
	case proto.TypeSetMode:
		mode, err := room.ParseMode(msg.Mode)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidCommand, err)
		}
		m.cancelReplay()
		m.cancelNextGame()
		m.room.SetMode(ctx, mode)
	case proto.TypeSetDifficulty:
		d, err := bot.ParseDifficulty(msg.Difficulty)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidCommand, err)
		}
		m.room.SetDifficulty(ctx, d)
	case proto.TypeStartSession:
		_, err := m.StartSession(ctx, msg.Games)
		return err
	case proto.TypeStopSession:
		_, err := m.StopSession(ctx)
		return err
	case proto.TypeReplay:
		return m.StartReplay(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, msg.Type)
	}
	return nil
}

func (m *Manager) cancelReplay() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopReplay()
}

// cancelNextGame keeps a pending next-game reset from wiping a match the
// player restarted during the gap.
func (m *Manager) cancelNextGame() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopNextGame()
}

// stopNextGame cancels the pending next-game reset. Caller holds mu.
func (m *Manager) stopNextGame() {
	if m.nextGame != nil {
		m.nextGame.Stop()
		m.nextGame = nil
	}
}

func (m *Manager) publish(ctx context.Context, id, state string, st Stats) {
	_ = m.pub.Publish(ctx, events.Event{
		Type:    events.TypeSession,
		RoomID:  m.room.ID,
		Payload: events.SessionPayload{SessionID: id, State: state, Stats: st},
	})
}

// Close cancels pending session and replay timers.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopReplay()
	m.stopNextGame()
}
