package server

import (
	"context"
	"errors"
	"sync"
)

type SessionInfo struct {
	Token    string
	GameID   string
	RoomCode string
	Username string
}

// SessionManager maps session tokens to player identity. It implements
// rummy.Identity for the rules service.
type SessionManager struct {
	sessions map[string]SessionInfo // Token -> SessionInfo
	mu       sync.RWMutex
}

func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[string]SessionInfo),
	}
}

func (sm *SessionManager) StoreSession(info SessionInfo) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.sessions[info.Token] = info
}

func (sm *SessionManager) GetSession(token string) (SessionInfo, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, exists := sm.sessions[token]
	if !exists {
		return SessionInfo{}, errors.New("TOKEN_NOT_FOUND: Invalid session token")
	}

	return session, nil
}

// ResolvePlayer returns the player id behind a token.
func (sm *SessionManager) ResolvePlayer(_ context.Context, token string) (string, error) {
	session, err := sm.GetSession(token)
	if err != nil {
		return "", err
	}
	return session.Username, nil
}

// Used for players who intentionally leave
func (sm *SessionManager) RemoveSession(token string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sessions, token)
}

func (sm *SessionManager) GetAllSessions() []SessionInfo {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sessions := make([]SessionInfo, 0, len(sm.sessions))
	for _, session := range sm.sessions {
		sessions = append(sessions, session)
	}

	return sessions
}
