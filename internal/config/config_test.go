package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"ctchen222/Ultimate-Tic-Tac-Toe/internal/bot"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/match"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/room"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "localhost:6379", cfg.Redis.GetRedisAddr())
	assert.Equal(t, 60, cfg.Match.InitialClock)
	assert.Equal(t, time.Second, cfg.Match.TickInterval)
	assert.Equal(t, 200*time.Millisecond, cfg.Match.ResetDelay)
	assert.Equal(t, 5, cfg.Session.Games)
	assert.Equal(t, 3*time.Second, cfg.Session.NextGameDelay)

	settings, err := cfg.RoomSettings()
	require.NoError(t, err)
	assert.Equal(t, room.PvAI, settings.Mode)
	assert.Equal(t, bot.Medium, settings.Difficulty)
	assert.Equal(t, match.DefaultRules(), settings.Rules)
	assert.Equal(t, 500*time.Millisecond, settings.ThinkMin)
	assert.Equal(t, time.Second, settings.ThinkMax)

	assert.Equal(t, bot.DefaultTable(), cfg.DifficultyTable())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
http-port: "9090"
match:
  initial-clock: 30
  board-policy: retire
ai:
  mode: aivai
  difficulty: hard
  hard:
    depth: 4
    forks: true
session:
  games: 3
  next-game-delay: 500ms
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.HTTPPort)

	settings, err := cfg.RoomSettings()
	require.NoError(t, err)
	assert.Equal(t, room.AIvAI, settings.Mode)
	assert.Equal(t, bot.Hard, settings.Difficulty)
	assert.Equal(t, 30, settings.Rules.InitialClock)
	assert.Equal(t, 15, settings.Rules.WinBonus)
	assert.Equal(t, match.Retire, settings.Rules.Policy)

	table := cfg.DifficultyTable()
	assert.Equal(t, 4, table[bot.Hard].Depth)
	assert.True(t, table[bot.Hard].Forks)
	assert.Equal(t, bot.DefaultTable()[bot.Hard].SmartProbability, table[bot.Hard].SmartProbability)
	assert.Equal(t, bot.DefaultTable()[bot.Easy], table[bot.Easy])

	s := cfg.SessionSettings()
	assert.Equal(t, 3, s.Games)
	assert.Equal(t, 500*time.Millisecond, s.NextGameDelay)
	assert.Equal(t, time.Second, s.ReplayInterval)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("HTTP_PORT", "7070")
	t.Setenv("AI_DIFFICULTY", "easy")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.HTTPPort)
	assert.Equal(t, "easy", cfg.AI.Difficulty)
}

func TestRoomSettings_Invalid(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Config)
	}{
		{"unknown policy", func(c *Config) { c.Match.BoardPolicy = "sideways" }},
		{"unknown mode", func(c *Config) { c.AI.Mode = "solo" }},
		{"unknown difficulty", func(c *Config) { c.AI.Difficulty = "nightmare" }},
		{"zero clock", func(c *Config) { c.Match.InitialClock = 0 }},
		{"negative penalty", func(c *Config) { c.Match.LossPenalty = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tt.edit(cfg)
			_, err = cfg.RoomSettings()
			assert.Error(t, err)
		})
	}
}

func TestMustLoad_Panics(t *testing.T) {
	path := writeConfig(t, "match: [not, a, map]\n")
	assert.Panics(t, func() { MustLoad(path) })
}
