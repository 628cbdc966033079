package bot

import (
	"errors"
	"fmt"
	"strings"
)

// Difficulty selects how strong the computer opponent plays.
type Difficulty int

const (
	Easy Difficulty = iota
	Medium
	Hard
)

var ErrUnknownDifficulty = errors.New("unknown difficulty")

func (d Difficulty) String() string {
	switch d {
	case Easy:
		return "easy"
	case Medium:
		return "medium"
	case Hard:
		return "hard"
	default:
		return fmt.Sprintf("difficulty(%d)", int(d))
	}
}

// ParseDifficulty accepts easy, medium or hard in any case.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return Easy, nil
	case "medium":
		return Medium, nil
	case "hard":
		return Hard, nil
	}
	return Easy, fmt.Errorf("%w: %q", ErrUnknownDifficulty, s)
}

// MarshalText lets difficulties travel as strings in JSON payloads.
func (d Difficulty) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Difficulty) UnmarshalText(text []byte) error {
	parsed, err := ParseDifficulty(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Level is the tuning attached to a difficulty.
type Level struct {
	// SmartProbability is the chance a call plays a considered move instead of a random one.
	SmartProbability float64
	// Depth bounds the minimax search. Zero selects the rule-based strategy.
	Depth int
	// Forks enables fork creation and fork blocking in the rule-based strategy.
	Forks bool
}

// Table maps each difficulty to its tuning.
type Table map[Difficulty]Level

// DefaultTable returns the stock tuning.
func DefaultTable() Table {
	return Table{
		Easy:   {SmartProbability: 0.3, Depth: 0},
		Medium: {SmartProbability: 0.5, Depth: 2},
		Hard:   {SmartProbability: 0.9, Depth: 6},
	}
}

func (t Table) level(d Difficulty) Level {
	if l, ok := t[d]; ok {
		return l
	}
	return DefaultTable()[d]
}
