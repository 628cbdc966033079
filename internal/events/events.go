package events

import (
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/game"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/match"
)

// Pub/Sub channel constants
const (
	EventsChannel = "channel:events"
)

// Event types
const (
	TypeSnapshot    = "snapshot"
	TypeSound       = "sound"
	TypeBonus       = "bonus"
	TypeClock       = "clock"
	TypeInvalidMove = "invalid_move"
	TypeGameOver    = "game_over"
	TypeSession     = "session"
	TypeReplay      = "replay"
	TypeControl     = "control"
)

// Sound is a discrete cue for the sound collaborator.
type Sound string

const (
	SoundMove    Sound = "move"
	SoundWin     Sound = "win"
	SoundDraw    Sound = "draw"
	SoundError   Sound = "error"
	SoundTimeout Sound = "timeout"
)

// Event represents a message published to collaborators.
type Event struct {
	Type    string `json:"event"`
	RoomID  string `json:"room_id"`
	Payload any    `json:"payload"`
}

// SnapshotPayload is the payload for the "snapshot" event.
type SnapshotPayload struct {
	match.Snapshot
	Mode       string `json:"mode"`
	Difficulty string `json:"difficulty"`
	Paused     bool   `json:"paused"`
	AIThinking bool   `json:"ai_thinking"`
	Replaying  bool   `json:"replaying"`
}

// SoundPayload is the payload for the "sound" event.
type SoundPayload struct {
	Tag Sound `json:"tag"`
}

// BonusPayload is the payload for the "bonus" event. The receiver clears it after display.
type BonusPayload struct {
	Board   int    `json:"board"`
	Message string `json:"message"`
}

// ClockPayload is the payload for the "clock" event.
type ClockPayload struct {
	Clocks match.Tally     `json:"clocks"`
	Scores match.Tally     `json:"scores"`
	Active game.PlayerMark `json:"active"`
}

// InvalidMovePayload is the payload for the "invalid_move" event.
type InvalidMovePayload struct {
	Board  int    `json:"board"`
	Cell   int    `json:"cell"`
	Reason string `json:"reason"`
}

// GameOverPayload is the payload for the "game_over" event.
type GameOverPayload struct {
	MatchID string        `json:"match_id"`
	Outcome match.Outcome `json:"outcome"`
}

// ReplayPayload is the payload for the "replay" event.
type ReplayPayload struct {
	Step  int  `json:"step"`
	Total int  `json:"total"`
	Done  bool `json:"done"`
}

// ControlPayload is the payload for the "control" event, emitted on pause, resume, reset and settings changes.
type ControlPayload struct {
	Action string `json:"action"`
	Value  string `json:"value,omitempty"`
}

// SessionPayload is the payload for the "session" event. Stats is the session's aggregate view.
type SessionPayload struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
	Stats     any    `json:"stats,omitempty"`
}
