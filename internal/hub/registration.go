package hub

import (
	"context"
	"encoding/json"
	"fmt"

	"ctchen222/Ultimate-Tic-Tac-Toe/internal/bot"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/events"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/hub/types"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/room"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/session"
	"ctchen222/Ultimate-Tic-Tac-Toe/pkg/proto"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func (h *Hub) handleRegistration(req *types.RegistrationRequest) {
	ctx := req.Ctx
	if ctx == nil {
		ctx = h.ctx
	}
	ctx, span := tracer.Start(ctx, "hub.handleRegistration", trace.WithAttributes(
		attribute.String("player.id", req.Player.ID),
		attribute.String("game.mode", req.Mode),
		attribute.String("game.difficulty", req.Difficulty),
	))
	defer span.End()

	settings, err := h.roomSettings(req.Mode, req.Difficulty)
	if err != nil {
		h.logger.WarnContext(ctx, "rejected registration", "player.id", req.Player.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid room settings")
		data, _ := json.Marshal(proto.ServerToClientMessage{Type: proto.TypeError, ClientID: req.Player.ID, Reason: err.Error()})
		_ = req.Player.Write(data)
		_ = req.Player.Conn.Close()
		return
	}

	if old, ok := h.clients[req.Player.ID]; ok {
		h.logger.InfoContext(ctx, "replacing existing connection", "player.id", req.Player.ID)
		h.removeClient(old)
	}

	// Clients outlive the upgrade request, so they hang off the hub's context.
	clientCtx, cancel := context.WithCancel(h.ctx)
	logger := h.logger.With("player.id", req.Player.ID)
	c := &Client{
		hub:    h,
		player: req.Player,
		send:   make(chan []byte, sendBuffer),
		ctx:    clientCtx,
		cancel: cancel,
		logger: logger,
	}

	sinks := append([]events.Publisher{events.PublisherFunc(h.local.publish)}, h.opts.Sinks...)
	bus := events.NewBus(logger, sinks...)
	c.unsubscribe = bus.Subscribe(c.forward)

	c.room = room.New(uuid.New().String(), settings, h.opts.Scheduler, h.opts.Selector, bus, room.WithLogger(logger))
	c.manager = session.New(c.room, h.opts.Scheduler, bus, h.opts.Session, logger)

	h.clients[c.ID()] = c
	h.active.Add(1)
	span.SetAttributes(attribute.String("room.id", c.room.ID))

	go c.writePump()
	go c.readPump()

	c.reply(proto.ServerToClientMessage{Type: proto.TypeWelcome, ClientID: c.ID(), RoomID: c.room.ID})
	if err := h.opts.Scheduler.Do(func() { c.room.Start(clientCtx) }); err != nil {
		h.logger.ErrorContext(ctx, "room not started", "room.id", c.room.ID, "error", err)
		span.RecordError(err)
	}

	h.logger.InfoContext(ctx, "client registered",
		"player.id", c.ID(),
		"room.id", c.room.ID,
		"game.mode", settings.Mode,
		"game.difficulty", settings.Difficulty,
	)
}

func (h *Hub) roomSettings(mode, difficulty string) (room.Settings, error) {
	settings := h.opts.Settings
	if mode != "" {
		m, err := room.ParseMode(mode)
		if err != nil {
			return room.Settings{}, fmt.Errorf("invalid mode: %w", err)
		}
		settings.Mode = m
	}
	if difficulty != "" {
		d, err := bot.ParseDifficulty(difficulty)
		if err != nil {
			return room.Settings{}, fmt.Errorf("invalid difficulty: %w", err)
		}
		settings.Difficulty = d
	}
	return settings, nil
}
