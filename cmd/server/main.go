package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ctchen222/Ultimate-Tic-Tac-Toe/internal/bot"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/config"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/db"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/events"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/hub"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/logger"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/schedule"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/server"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine; the environment and config.yml still apply.
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yml"
	}
	cfg := config.MustLoad(configPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize telemetry
	shutdown, err := telemetry.InitOtel(ctx, cfg.TelemetryConfig())
	if err != nil {
		log.Fatalf("failed to initialize telemetry: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Printf("Error shutting down telemetry: %v", err)
		}
	}()

	appLogger := logger.Init(cfg.LogLevel)

	settings, err := cfg.RoomSettings()
	if err != nil {
		appLogger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	loop := schedule.NewLoop(256)
	go loop.Run(ctx)

	opts := hub.Options{
		Scheduler: loop,
		Selector:  bot.NewEngine(cfg.DifficultyTable(), nil),
		Settings:  settings,
		Session:   cfg.SessionSettings(),
		Logger:    appLogger,
	}

	var redisPub *events.RedisPublisher
	if cfg.Redis.Enabled {
		rdb, err := db.NewRedisClient(ctx, cfg.Redis.GetRedisAddr())
		if err != nil {
			appLogger.Error("failed to initialize redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		redisPub = events.NewRedisPublisher(rdb, cfg.Redis.Channel)
		opts.Sinks = append(opts.Sinks, redisPub)
	}

	h := hub.NewHub(opts)
	go h.Run(ctx)

	if redisPub != nil {
		stream, err := redisPub.Subscribe(ctx)
		if err != nil {
			appLogger.Error("failed to subscribe to events", "error", err)
			os.Exit(1)
		}
		go h.RunEventSubscriber(ctx, stream)
	}

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := server.NewServer(h, appLogger)

	httpServer := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: srv.Engine(),
	}

	go func() {
		appLogger.Info("http server started", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("ListenAndServe failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}
	<-h.Done()
	<-loop.Done()

	slog.Info("Server exiting")
}
