package hub

import (
	"context"
	"log/slog"
	"sync/atomic"

	"ctchen222/Ultimate-Tic-Tac-Toe/internal/bot"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/events"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/hub/types"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/room"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/schedule"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/session"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("hub")

// Options configures the rooms a hub opens.
type Options struct {
	// Scheduler runs room timers and, through Do, every inbound command.
	Scheduler schedule.Executor
	Selector  bot.MoveSelector
	Settings  room.Settings
	Session   session.Settings
	// Sinks receive every event of every room, after the owning client.
	Sinks  []events.Publisher
	Logger *slog.Logger
}

// Hub manages all connected clients. Each client plays in its own room.
// The client map is owned by the Run goroutine.
type Hub struct {
	clients    map[string]*Client
	register   chan *types.RegistrationRequest
	unregister chan *Client
	done       chan struct{}
	ctx        context.Context

	opts    Options
	logger  *slog.Logger
	active  atomic.Int64
	local   *tally
	cluster *tally
}

// NewHub creates a new hub.
func NewHub(opts Options) *Hub {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *types.RegistrationRequest),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		ctx:        context.Background(),
		opts:       opts,
		logger:     opts.Logger.With("component", "hub"),
		local:      newTally(),
		cluster:    newTally(),
	}
}

// Run serves registrations until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	h.ctx = ctx
	defer close(h.done)
	h.logger.InfoContext(ctx, "hub started")

	for {
		select {
		case <-ctx.Done():
			for _, c := range h.clients {
				h.removeClient(c)
			}
			h.logger.Info("hub stopped")
			return

		case req := <-h.register:
			h.handleRegistration(req)

		case c := <-h.unregister:
			h.removeClient(c)
		}
	}
}

// Register returns the register channel.
func (h *Hub) Register() chan<- *types.RegistrationRequest {
	return h.register
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Stats is a point-in-time view of the hub's activity.
type Stats struct {
	Clients int64  `json:"clients"`
	Local   Totals `json:"local"`
	// Cluster counts matches seen on the shared Redis channel, including this instance's.
	Cluster Totals `json:"cluster"`
}

// Stats returns the hub's counters.
func (h *Hub) Stats() Stats {
	return Stats{
		Clients: h.active.Load(),
		Local:   h.local.totals(),
		Cluster: h.cluster.totals(),
	}
}

// Settings returns the defaults new rooms start from.
func (h *Hub) Settings() room.Settings {
	return h.opts.Settings
}

func (h *Hub) removeClient(c *Client) {
	if cur, ok := h.clients[c.ID()]; !ok || cur != c {
		return
	}
	delete(h.clients, c.ID())
	h.active.Add(-1)
	c.close()
	h.logger.Info("client disconnected", "player.id", c.ID(), "room.id", c.room.ID)
}
