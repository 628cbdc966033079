package player

import (
	"github.com/gorilla/websocket"
)

// Connection is an interface that abstracts the websocket connection.
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (int, []byte, error)
	Close() error
}

// Player is one connected client. Each player owns a private room.
type Player struct {
	ID   string
	Conn Connection
}

// NewPlayer wraps conn.
func NewPlayer(id string, conn Connection) *Player {
	return &Player{ID: id, Conn: conn}
}

// Write sends one text frame.
func (p *Player) Write(data []byte) error {
	return p.Conn.WriteMessage(websocket.TextMessage, data)
}

// Read blocks for the next frame and drops non-text frames.
func (p *Player) Read() ([]byte, error) {
	for {
		typ, data, err := p.Conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if typ == websocket.TextMessage {
			return data, nil
		}
	}
}
