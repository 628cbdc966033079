package proto

// Command types accepted from clients.
const (
	TypeMove          = "move"
	TypePause         = "pause"
	TypeResume        = "resume"
	TypeTogglePause   = "toggle_pause"
	TypeReset         = "reset"
	TypeSetMode       = "set_mode"
	TypeSetDifficulty = "set_difficulty"
	TypeStartSession  = "start_session"
	TypeStopSession   = "stop_session"
	TypeReplay        = "replay"
)

// ClientToServerMessage represents a message from the client to the server.
type ClientToServerMessage struct {
	Type       string `json:"type" validate:"required,oneof=move pause resume toggle_pause reset set_mode set_difficulty start_session stop_session replay"`
	Board      *int   `json:"board,omitempty" validate:"omitempty,min=0,max=8"`
	Cell       *int   `json:"cell,omitempty" validate:"omitempty,min=0,max=8"`
	Mode       string `json:"mode,omitempty" validate:"omitempty,oneof=pvp pvai aivp aivai"`
	Difficulty string `json:"difficulty,omitempty" validate:"omitempty,oneof=easy medium hard"`
	Games      int    `json:"games,omitempty" validate:"omitempty,min=1,max=99"`
}

// Reply types sent directly to one client.
const (
	TypeWelcome = "welcome"
	TypeError   = "error"
)

// ServerToClientMessage is a direct reply to one client, outside the event stream.
type ServerToClientMessage struct {
	Type     string `json:"type" validate:"required"`
	ClientID string `json:"client_id,omitempty"`
	RoomID   string `json:"room_id,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Move builds a move command.
func Move(board, cell int) ClientToServerMessage {
	return ClientToServerMessage{Type: TypeMove, Board: &board, Cell: &cell}
}
