package server

import (
	"sync"

	"github.com/coder/websocket"
)

type PlayerConnection struct {
	GameID   string
	RoomCode string
	Username string
	Token    string
}

type ConnectionManager struct {
	connections map[string]*websocket.Conn  // connectionID -> socket
	players     map[string]PlayerConnection // connectionID -> player info
	mu          sync.RWMutex
}

func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*websocket.Conn),
		players:     make(map[string]PlayerConnection),
	}
}

func (cm *ConnectionManager) AddConnection(id string, conn *websocket.Conn) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.connections[id] = conn
}

func (cm *ConnectionManager) RemoveConnection(id string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	delete(cm.connections, id)
	delete(cm.players, id)
}

// BindPlayer attaches session info to a connection once the player has
// created, joined, or reconnected to a game.
func (cm *ConnectionManager) BindPlayer(connectionID string, info PlayerConnection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.players[connectionID] = info
}

// UnbindToken removes the player info bound to a token.
func (cm *ConnectionManager) UnbindToken(token string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	for connID, player := range cm.players {
		if player.Token == token {
			delete(cm.players, connID)
			break
		}
	}
}

// GetPlayer returns the player info bound to a connection, if any.
func (cm *ConnectionManager) GetPlayer(connectionID string) (PlayerConnection, bool) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	player, exists := cm.players[connectionID]
	return player, exists
}

// GetTokenByConnection returns the token bound to a connection.
func (cm *ConnectionManager) GetTokenByConnection(connectionID string) string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if player, exists := cm.players[connectionID]; exists {
		return player.Token
	}
	return ""
}

// GetConnectionByToken returns the connectionID bound to a token.
func (cm *ConnectionManager) GetConnectionByToken(token string) string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	for connID, player := range cm.players {
		if player.Token == token {
			return connID
		}
	}
	return ""
}

// GetConnection returns the websocket for a connectionID.
func (cm *ConnectionManager) GetConnection(connectionID string) *websocket.Conn {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	return cm.connections[connectionID]
}

// ConnectionsForGame returns the connectionIDs of players bound to a game.
func (cm *ConnectionManager) ConnectionsForGame(gameID string) []string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	var ids []string
	for connID, player := range cm.players {
		if player.GameID == gameID {
			ids = append(ids, connID)
		}
	}
	return ids
}
