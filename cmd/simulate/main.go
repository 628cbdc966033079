// Command simulate plays computer-versus-computer sessions on a virtual
// clock and prints the session statistics.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"time"

	"ctchen222/Ultimate-Tic-Tac-Toe/internal/bot"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/config"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/events"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/game"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/logger"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/room"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/schedule"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/session"

	"github.com/joho/godotenv"
)

const stepLimit = 1_000_000

func main() {
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", "config.yml", "path to the config file")
		games      = flag.Int("games", 0, "games in the session; 0 keeps the configured count")
		difficulty = flag.String("difficulty", "", "easy, medium or hard; empty keeps the configured level")
		policy     = flag.String("policy", "", "push-forward or retire; empty keeps the configured policy")
		seed       = flag.Uint64("seed", 0, "random seed; 0 picks one")
		asJSON     = flag.Bool("json", false, "print the statistics as JSON")
		logLevel   = flag.String("log-level", "warn", "log level")
	)
	flag.Parse()

	if err := run(*configPath, *games, *difficulty, *policy, *seed, *asJSON, *logLevel, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "simulate:", err)
		os.Exit(1)
	}
}

func run(configPath string, games int, difficulty, policy string, seed uint64, asJSON bool, logLevel string, out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if policy != "" {
		cfg.Match.BoardPolicy = policy
	}
	if difficulty != "" {
		cfg.AI.Difficulty = difficulty
	}
	settings, err := cfg.RoomSettings()
	if err != nil {
		return err
	}
	settings.Mode = room.AIvAI

	if seed == 0 {
		seed = rand.Uint64()
	}
	log := logger.New(os.Stderr, logLevel)
	sched := schedule.NewManual(time.Now())
	engine := bot.NewEngine(cfg.DifficultyTable(), rand.New(rand.NewPCG(seed, 1)))

	bus := events.NewBus(log)
	bus.Subscribe(func(e events.Event) {
		if p, ok := e.Payload.(events.GameOverPayload); ok {
			log.Info("game over", "match.id", p.MatchID, "winner", p.Outcome.Winner, "reason", p.Outcome.Reason)
		}
	})

	r := room.New("", settings, sched, engine, bus, room.WithLogger(log), room.WithRand(rand.New(rand.NewPCG(seed, 2))))
	mgr := session.New(r, sched, bus, cfg.SessionSettings(), log)
	defer mgr.Close()
	defer r.Close()

	ctx := context.Background()
	r.Start(ctx)
	if _, err := mgr.StartSession(ctx, games); err != nil {
		return err
	}

	steps := sched.RunUntilIdle(stepLimit)
	stats, ok := mgr.LastStats()
	if !ok {
		return fmt.Errorf("session did not finish after %d scheduler steps", steps)
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}
	printStats(out, seed, settings, stats)
	return nil
}

func printStats(w io.Writer, seed uint64, settings room.Settings, st session.Stats) {
	fmt.Fprintf(w, "seed %d, %s, policy %s\n", seed, settings.Difficulty, settings.Rules.Policy)
	for _, g := range st.History {
		fmt.Fprintf(w, "game %d: %-4s %3ds %3d moves (%s)\n", g.GameNumber, label(g.Winner), g.DurationSeconds, g.MoveCount, g.Reason)
	}
	fmt.Fprintf(w, "X %d, O %d, draws %d; overall %s\n", st.Aggregate.X, st.Aggregate.O, st.Aggregate.Draw, label(st.Overall))
	fmt.Fprintf(w, "average %.1fs, %d moves total\n", st.AverageDuration, st.TotalMoves)
	if st.FastestWin != nil {
		fmt.Fprintf(w, "fastest win: game %d in %ds\n", st.FastestWin.GameNumber, st.FastestWin.DurationSeconds)
	}
	if st.LongestGame != nil {
		fmt.Fprintf(w, "longest game: game %d at %ds\n", st.LongestGame.GameNumber, st.LongestGame.DurationSeconds)
	}
}

func label(r game.Result) string {
	switch r {
	case game.Open:
		return "-"
	case game.Draw:
		return "draw"
	}
	return string(r)
}
