package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"ctchen222/Ultimate-Tic-Tac-Toe/internal/events"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/player"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/room"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/session"
	"ctchen222/Ultimate-Tic-Tac-Toe/pkg/proto"
)

const sendBuffer = 256

// Client binds one connection to its room and session manager.
type Client struct {
	hub         *Hub
	player      *player.Player
	room        *room.Room
	manager     *session.Manager
	unsubscribe func()
	ctx         context.Context
	cancel      context.CancelFunc
	logger      *slog.Logger

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// ID returns the player's id.
func (c *Client) ID() string {
	return c.player.ID
}

// forward queues a room event for the socket. A full buffer drops the event;
// the next snapshot carries the state again.
func (c *Client) forward(e events.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		c.logger.Error("failed to marshal event", "event", e.Type, "error", err)
		return
	}
	if !c.enqueue(data) {
		c.logger.Warn("dropped event for slow client", "event", e.Type)
	}
}

func (c *Client) reply(msg proto.ServerToClientMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("failed to marshal reply", "type", msg.Type, "error", err)
		return
	}
	c.enqueue(data)
}

func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// close tears the client down. Only the hub's Run goroutine calls it.
func (c *Client) close() {
	c.unsubscribe()
	c.manager.Close()
	c.room.Close()
	c.cancel()

	c.mu.Lock()
	c.closed = true
	close(c.send)
	c.mu.Unlock()
}

// writePump is the only writer on the connection.
func (c *Client) writePump() {
	defer c.player.Conn.Close()
	broken := false
	for data := range c.send {
		if broken {
			continue
		}
		if err := c.player.Write(data); err != nil {
			c.logger.Warn("write failed", "error", err)
			broken = true
			// Unblocks readPump, which unregisters the client.
			_ = c.player.Conn.Close()
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		case <-c.ctx.Done():
		}
	}()

	for {
		data, err := c.player.Read()
		if err != nil {
			c.logger.Debug("read loop ended", "error", err)
			return
		}

		var msg proto.ClientToServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.reply(proto.ServerToClientMessage{Type: proto.TypeError, RoomID: c.room.ID, Reason: "malformed message: " + err.Error()})
			continue
		}
		var handleErr error
		if err := c.hub.opts.Scheduler.Do(func() { handleErr = c.manager.Handle(c.ctx, msg) }); err != nil {
			c.logger.Debug("scheduler stopped", "error", err)
			return
		}
		if handleErr != nil {
			c.reply(proto.ServerToClientMessage{Type: proto.TypeError, RoomID: c.room.ID, Reason: handleErr.Error()})
		}
	}
}
