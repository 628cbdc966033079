package types

import (
	"context"

	"ctchen222/Ultimate-Tic-Tac-Toe/internal/player"
)

// RegistrationRequest asks the hub to open a room for a new connection.
type RegistrationRequest struct {
	Player     *player.Player
	Mode       string // "pvp", "pvai", "aivp" or "aivai"; empty keeps the configured mode
	Difficulty string // "easy", "medium" or "hard"; empty keeps the configured level
	Ctx        context.Context
}
