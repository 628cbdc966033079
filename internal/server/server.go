package server

import (
	"log/slog"
	"net/http"
	"time"

	"ctchen222/Ultimate-Tic-Tac-Toe/internal/hub"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/hub/types"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/player"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("server")

type Server struct {
	hub      *hub.Hub
	engine   *gin.Engine
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// ConnectQuery carries the optional room preferences of a websocket upgrade.
type ConnectQuery struct {
	PlayerID   string `form:"playerId" binding:"omitempty,max=64"`
	Mode       string `form:"mode" binding:"omitempty,oneof=pvp pvai aivp aivai"`
	Difficulty string `form:"difficulty" binding:"omitempty,oneof=easy medium hard"`
}

func NewServer(h *hub.Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger.With("component", "server"),
	}
	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), s.requestLogger())
	s.RegisterHandlers()
	return s
}

// Engine returns the gin handler.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) RegisterHandlers() {
	s.engine.GET("/healthz", s.handleHealth)
	api := s.engine.Group("/api")
	api.GET("/config", s.handleConfig)
	api.GET("/stats", s.handleStats)
	s.engine.GET("/ws", s.handleWebSocket)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.DebugContext(c.Request.Context(), "http request",
			"http.method", c.Request.Method,
			"http.path", c.FullPath(),
			"http.status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	SuccessResponse(c, gin.H{"status": "ok"})
}

func (s *Server) handleConfig(c *gin.Context) {
	settings := s.hub.Settings()
	SuccessResponse(c, gin.H{
		"mode":           settings.Mode,
		"difficulty":     settings.Difficulty,
		"think_min_ms":   settings.ThinkMin.Milliseconds(),
		"think_max_ms":   settings.ThinkMax.Milliseconds(),
		"reset_delay_ms": settings.ResetDelay.Milliseconds(),
		"rules":          settings.Rules,
	})
}

func (s *Server) handleStats(c *gin.Context) {
	SuccessResponse(c, s.hub.Stats())
}

// handleWebSocket's only responsibility is to upgrade the connection and
// pass a registration request to the hub.
func (s *Server) handleWebSocket(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "server.handleWebSocket", trace.WithAttributes(
		attribute.String("http.url", c.Request.URL.String()),
		attribute.String("http.method", c.Request.Method),
	))
	defer span.End()

	var query ConnectQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid query")
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to upgrade connection", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to upgrade connection")
		return
	}

	playerID := query.PlayerID
	if playerID == "" {
		playerID = uuid.New().String()
	}
	span.SetAttributes(
		attribute.String("player.id", playerID),
		attribute.String("game.mode", query.Mode),
		attribute.String("game.difficulty", query.Difficulty),
	)

	req := &types.RegistrationRequest{
		Player:     player.NewPlayer(playerID, conn),
		Mode:       query.Mode,
		Difficulty: query.Difficulty,
		Ctx:        ctx,
	}
	select {
	case s.hub.Register() <- req:
	case <-s.hub.Done():
		_ = conn.Close()
	}
}
