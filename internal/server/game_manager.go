package server

import (
	"errors"
	"strings"
	"sync"
	"time"
)

// GameManager tracks room metadata for games in flight. Rules state lives in
// the rummy service behind the store; this layer only knows who sits where
// and whether they are connected.
type GameManager struct {
	games     map[string]*ActiveGame
	usedCodes map[string]bool
	mu        sync.RWMutex
}

type ActiveGame struct {
	GameID    string
	RoomCode  string
	Status    GameStatus
	Players   [2]PlayerSlot
	CreatedAt time.Time
	UpdatedAt time.Time
}

type PlayerSlot struct {
	Username  string
	Token     string
	Connected bool
	JoinedAt  time.Time
}

type GameStatus string

const (
	StatusLobby     GameStatus = "lobby"
	StatusPlaying   GameStatus = "playing"
	StatusPaused    GameStatus = "paused"
	StatusCompleted GameStatus = "completed"
)

func NewGameManager() *GameManager {
	return &GameManager{
		games:     make(map[string]*ActiveGame),
		usedCodes: make(map[string]bool),
	}
}

// RestoreState reloads rooms and used codes after a restart.
func (gm *GameManager) RestoreState(rooms []*ActiveGame, usedCodes map[string]bool) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	for _, room := range rooms {
		gm.games[room.RoomCode] = room
		gm.usedCodes[room.RoomCode] = true
	}
	for code, inUse := range usedCodes {
		if inUse {
			gm.usedCodes[code] = true
		}
	}
}

// CreateRoom opens a room for a new game. The creator takes slot 0; the game
// itself is dealt once the opponent joins.
func (gm *GameManager) CreateRoom(gameID, username, token string) (*ActiveGame, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}

	gm.mu.Lock()
	roomCode := GenerateRoomCode(gm.usedCodes)
	gm.usedCodes[roomCode] = true
	gm.mu.Unlock()

	now := time.Now()
	room := &ActiveGame{
		GameID:    gameID,
		RoomCode:  roomCode,
		Status:    StatusLobby,
		CreatedAt: now,
		UpdatedAt: now,
	}
	room.Players[0] = PlayerSlot{
		Username:  username,
		Token:     token,
		Connected: true,
		JoinedAt:  now,
	}

	gm.mu.Lock()
	gm.games[roomCode] = room
	gm.mu.Unlock()

	return room, nil
}

// JoinRoom seats the second player and moves the room to playing.
func (gm *GameManager) JoinRoom(roomCode, username, token string) (*ActiveGame, error) {
	roomCode = NormalizeRoomCode(roomCode)
	if err := ValidateRoomCode(roomCode); err != nil {
		return nil, err
	}
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}

	gm.mu.Lock()
	defer gm.mu.Unlock()

	room, exists := gm.games[roomCode]
	if !exists {
		return nil, errors.New("ROOM_NOT_FOUND: Game not found")
	}

	if room.Status != StatusLobby {
		return nil, errors.New("GAME_ALREADY_STARTED: Cannot join game in progress")
	}

	if room.Players[0].Username == username {
		return nil, errors.New("USERNAME_TAKEN: Username already taken")
	}

	if room.Players[1].Username != "" {
		return nil, errors.New("ROOM_FULL: Room is full (2/2 players)")
	}

	now := time.Now()
	room.Players[1] = PlayerSlot{
		Username:  username,
		Token:     token,
		Connected: true,
		JoinedAt:  now,
	}
	room.Status = StatusPlaying
	room.UpdatedAt = now

	return room, nil
}

func (gm *GameManager) GetRoom(roomCode string) (*ActiveGame, error) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	room, exists := gm.games[NormalizeRoomCode(roomCode)]
	if !exists {
		return nil, errors.New("ROOM_NOT_FOUND: Game not found")
	}

	return room, nil
}

func (gm *GameManager) GetRoomByToken(token string) (*ActiveGame, int, error) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	for _, room := range gm.games {
		for i, slot := range room.Players {
			if slot.Token == token {
				return room, i, nil
			}
		}
	}

	return nil, -1, errors.New("TOKEN_NOT_FOUND: Invalid session token")
}

// ReconnectPlayer marks a returning player connected and resumes the room if
// both seats are live again.
func (gm *GameManager) ReconnectPlayer(token string) (*ActiveGame, int, error) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	for _, room := range gm.games {
		for i := range room.Players {
			if room.Players[i].Token != token {
				continue
			}

			room.Players[i].Connected = true
			room.UpdatedAt = time.Now()

			if room.Status == StatusPaused {
				allConnected := true
				for _, s := range room.Players {
					if s.Username != "" && !s.Connected {
						allConnected = false
						break
					}
				}
				if allConnected {
					room.Status = StatusPlaying
				}
			}

			return room, i, nil
		}
	}

	return nil, -1, errors.New("TOKEN_NOT_FOUND: Invalid session token")
}

// MarkPlayerDisconnected flags the player's slot and pauses a playing room.
func (gm *GameManager) MarkPlayerDisconnected(token string) (bool, *ActiveGame, int, error) {
	room, playerID, err := gm.GetRoomByToken(token)
	if err != nil {
		return false, nil, -1, err
	}

	gm.mu.Lock()
	defer gm.mu.Unlock()

	room.Players[playerID].Connected = false
	room.UpdatedAt = time.Now()

	if room.Status == StatusPlaying {
		room.Status = StatusPaused
		return true, room, playerID, nil
	}

	return false, room, playerID, nil
}

// CompleteRoom marks a room finished and frees its code for reuse.
func (gm *GameManager) CompleteRoom(roomCode string) (*ActiveGame, error) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	room, exists := gm.games[roomCode]
	if !exists {
		return nil, errors.New("ROOM_NOT_FOUND: Game not found")
	}

	room.Status = StatusCompleted
	room.UpdatedAt = time.Now()
	gm.usedCodes[roomCode] = false

	return room, nil
}

// RemoveRoom drops a room from memory entirely.
func (gm *GameManager) RemoveRoom(roomCode string) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	delete(gm.games, roomCode)
	gm.usedCodes[roomCode] = false
}

// ValidateUsername rejects empty and oversized names.
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return errors.New("USERNAME_INVALID: Username cannot be empty")
	}
	if len(username) > 20 {
		return errors.New("USERNAME_INVALID: Username too long (max 20 characters)")
	}
	return nil
}
