package match

import (
	"fmt"
	"strings"
)

// Policy decides what happens to a board once it resolves.
type Policy string

const (
	// PushForward clears a resolved board and keeps play on it.
	PushForward Policy = "push-forward"
	// Retire leaves a resolved board finished and moves play to the next open board.
	Retire Policy = "retire"
)

// ParsePolicy accepts push-forward or retire.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PushForward, Retire:
		return p, nil
	case "":
		return PushForward, nil
	default:
		return "", fmt.Errorf("unknown board policy %q", s)
	}
}

// Rules holds the clock and scoring constants of a match, in seconds.
type Rules struct {
	InitialClock int    `json:"initial_clock" validate:"gt=0"`
	WinBonus     int    `json:"win_bonus" validate:"gte=0"`
	LossPenalty  int    `json:"loss_penalty" validate:"gte=0"`
	DrawBonus    int    `json:"draw_bonus" validate:"gte=0"`
	Policy       Policy `json:"policy" validate:"oneof=push-forward retire"`
}

// DefaultRules returns 60 second clocks, +15/-10 on a board win and +5 each on a draw.
func DefaultRules() Rules {
	return Rules{
		InitialClock: 60,
		WinBonus:     15,
		LossPenalty:  10,
		DrawBonus:    5,
		Policy:       PushForward,
	}
}
