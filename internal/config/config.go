package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"ctchen222/Ultimate-Tic-Tac-Toe/internal/bot"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/match"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/room"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/session"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/telemetry"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/validator"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel  string    `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort  string    `yaml:"http-port" env:"HTTP_PORT" env-default:"8080"`
	Redis     Redis     `yaml:"redis"`
	Telemetry Telemetry `yaml:"telemetry"`
	Match     Match     `yaml:"match"`
	AI        AI        `yaml:"ai"`
	Session   Session   `yaml:"session"`
}

type Redis struct {
	Enabled bool   `yaml:"enabled" env:"REDIS_ENABLED" env-default:"false"`
	Host    string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port    string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Channel string `yaml:"channel" env:"REDIS_CHANNEL" env-default:"channel:events"`
}

type Telemetry struct {
	Endpoint    string `yaml:"endpoint" env:"OTEL_ENDPOINT" env-default:""`
	ServiceName string `yaml:"service-name" env:"OTEL_SERVICE_NAME" env-default:"ultimate-tic-tac-toe"`
	Version     string `yaml:"version" env-default:"v0.1.0"`
}

type Match struct {
	InitialClock int           `yaml:"initial-clock" env:"MATCH_INITIAL_CLOCK" env-default:"60"`
	WinBonus     int           `yaml:"win-bonus" env-default:"15"`
	LossPenalty  int           `yaml:"loss-penalty" env-default:"10"`
	DrawBonus    int           `yaml:"draw-bonus" env-default:"5"`
	BoardPolicy  string        `yaml:"board-policy" env:"MATCH_BOARD_POLICY" env-default:"push-forward"`
	TickInterval time.Duration `yaml:"tick-interval" env-default:"1s"`
	ResetDelay   time.Duration `yaml:"reset-delay" env-default:"200ms"`
}

type AI struct {
	Mode       string        `yaml:"mode" env:"AI_MODE" env-default:"pvai"`
	Difficulty string        `yaml:"difficulty" env:"AI_DIFFICULTY" env-default:"medium"`
	ThinkMin   time.Duration `yaml:"think-min" env-default:"500ms"`
	ThinkMax   time.Duration `yaml:"think-max" env-default:"1000ms"`
	Easy       Level         `yaml:"easy"`
	Medium     Level         `yaml:"medium"`
	Hard       Level         `yaml:"hard"`
}

// Level tunes one difficulty. Unset levels keep the stock table.
type Level struct {
	SmartProbability *float64 `yaml:"smart-probability"`
	Depth            *int     `yaml:"depth"`
	Forks            bool     `yaml:"forks"`
}

type Session struct {
	Games          int           `yaml:"games" env:"SESSION_GAMES" env-default:"5"`
	NextGameDelay  time.Duration `yaml:"next-game-delay" env-default:"3s"`
	ReplayInterval time.Duration `yaml:"replay-interval" env-default:"1s"`
}

// Load reads path when it exists and applies environment overrides. A
// missing file falls back to environment and defaults.
func Load(path string) (*Config, error) {
	config := &Config{}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, config); err != nil {
				return nil, fmt.Errorf("unable to load config file: %w", err)
			}
			return config, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("unable to stat config file: %w", err)
		}
	}

	if err := cleanenv.ReadEnv(config); err != nil {
		return nil, fmt.Errorf("unable to read config from environment: %w", err)
	}
	return config, nil
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}
	return config
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}

// TelemetryConfig converts the telemetry section.
func (c *Config) TelemetryConfig() telemetry.Config {
	return telemetry.Config{
		Endpoint:       c.Telemetry.Endpoint,
		ServiceName:    c.Telemetry.ServiceName,
		ServiceVersion: c.Telemetry.Version,
	}
}

// Rules converts the match section.
func (c *Config) Rules() (match.Rules, error) {
	policy, err := match.ParsePolicy(c.Match.BoardPolicy)
	if err != nil {
		return match.Rules{}, err
	}
	rules := match.Rules{
		InitialClock: c.Match.InitialClock,
		WinBonus:     c.Match.WinBonus,
		LossPenalty:  c.Match.LossPenalty,
		DrawBonus:    c.Match.DrawBonus,
		Policy:       policy,
	}
	if err := validator.Struct(rules); err != nil {
		return match.Rules{}, fmt.Errorf("invalid match rules: %w", err)
	}
	return rules, nil
}

// DifficultyTable merges configured levels over the stock table.
func (c *Config) DifficultyTable() bot.Table {
	table := bot.DefaultTable()
	for d, lvl := range map[bot.Difficulty]Level{bot.Easy: c.AI.Easy, bot.Medium: c.AI.Medium, bot.Hard: c.AI.Hard} {
		t := table[d]
		if lvl.SmartProbability != nil {
			t.SmartProbability = *lvl.SmartProbability
		}
		if lvl.Depth != nil {
			t.Depth = *lvl.Depth
		}
		t.Forks = lvl.Forks
		table[d] = t
	}
	return table
}

// RoomSettings converts the match and ai sections.
func (c *Config) RoomSettings() (room.Settings, error) {
	rules, err := c.Rules()
	if err != nil {
		return room.Settings{}, err
	}
	mode, err := room.ParseMode(c.AI.Mode)
	if err != nil {
		return room.Settings{}, err
	}
	difficulty, err := bot.ParseDifficulty(c.AI.Difficulty)
	if err != nil {
		return room.Settings{}, err
	}
	return room.Settings{
		Mode:         mode,
		Difficulty:   difficulty,
		ThinkMin:     c.AI.ThinkMin,
		ThinkMax:     c.AI.ThinkMax,
		ResetDelay:   c.Match.ResetDelay,
		TickInterval: c.Match.TickInterval,
		Rules:        rules,
	}, nil
}

// SessionSettings converts the session section.
func (c *Config) SessionSettings() session.Settings {
	return session.Settings{
		Games:          c.Session.Games,
		NextGameDelay:  c.Session.NextGameDelay,
		ReplayInterval: c.Session.ReplayInterval,
	}
}
