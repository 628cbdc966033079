package room

import (
	"fmt"
	"strings"
	"time"

	"ctchen222/Ultimate-Tic-Tac-Toe/internal/bot"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/game"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/match"
)

// Mode decides which marks the computer plays.
type Mode string

const (
	PvP   Mode = "pvp"
	PvAI  Mode = "pvai"
	AIvP  Mode = "aivp"
	AIvAI Mode = "aivai"
)

// ParseMode accepts pvp, pvai, aivp and aivai in any case.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case PvP, PvAI, AIvP, AIvAI:
		return m, nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

// IsAI reports whether the computer plays mark in this mode.
func (m Mode) IsAI(mark game.PlayerMark) bool {
	switch m {
	case PvAI:
		return mark == game.PlayerO
	case AIvP:
		return mark == game.PlayerX
	case AIvAI:
		return mark.Valid()
	default:
		return false
	}
}

// Settings configures a room.
type Settings struct {
	Mode       Mode
	Difficulty bot.Difficulty
	// ThinkMin and ThinkMax bound the pause before the computer moves.
	ThinkMin time.Duration
	ThinkMax time.Duration
	// ResetDelay is how long input is held after a board resolves.
	ResetDelay   time.Duration
	TickInterval time.Duration
	Rules        match.Rules
}

// DefaultSettings returns a player-versus-computer room on medium.
func DefaultSettings() Settings {
	return Settings{
		Mode:         PvAI,
		Difficulty:   bot.Medium,
		ThinkMin:     500 * time.Millisecond,
		ThinkMax:     1000 * time.Millisecond,
		ResetDelay:   200 * time.Millisecond,
		TickInterval: time.Second,
		Rules:        match.DefaultRules(),
	}
}
