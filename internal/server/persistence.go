package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rummy-server/internal/rummy"
)

// PersistenceManager handles saving and loading state to/from the database.
// It implements rummy.Store: the rules service persists each game through it
// as a single JSON snapshot per action.
type PersistenceManager struct {
	db *sql.DB
}

// NewPersistenceManager creates a new persistence manager
func NewPersistenceManager(db *sql.DB) *PersistenceManager {
	return &PersistenceManager{
		db: db,
	}
}

// SaveGame upserts a game snapshot. One row per game, whole aggregate in one
// write, so a crash can never leave a game half-updated.
func (pm *PersistenceManager) SaveGame(ctx context.Context, game *rummy.Game) error {
	gameData, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("failed to serialize game: %w", err)
	}

	query := `
		INSERT INTO games (game_id, game_data, created_at, updated_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (game_id) DO UPDATE SET game_data = $2, updated_at = now()
	`

	if _, err := pm.db.ExecContext(ctx, query, game.ID, gameData); err != nil {
		return fmt.Errorf("failed to save game %s: %w", game.ID, err)
	}

	return nil
}

// LoadGame retrieves a game snapshot by id.
func (pm *PersistenceManager) LoadGame(ctx context.Context, gameID string) (*rummy.Game, error) {
	query := `SELECT game_data FROM games WHERE game_id = $1`

	var gameData []byte
	err := pm.db.QueryRowContext(ctx, query, gameID).Scan(&gameData)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, rummy.ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load game %s: %w", gameID, err)
	}

	var game rummy.Game
	if err := json.Unmarshal(gameData, &game); err != nil {
		return nil, fmt.Errorf("failed to deserialize game %s: %w", gameID, err)
	}

	return &game, nil
}

// The granular accessors below serve callers that only need one slice of a
// game. They read and rewrite the snapshot; writers must hold the game's
// service lock.

func (pm *PersistenceManager) LoadHand(ctx context.Context, gameID, player string) ([]rummy.Card, error) {
	game, err := pm.LoadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return game.Hands[player], nil
}

func (pm *PersistenceManager) SaveHand(ctx context.Context, gameID, player string, cards []rummy.Card) error {
	game, err := pm.LoadGame(ctx, gameID)
	if err != nil {
		return err
	}
	game.Hands[player] = cards
	return pm.SaveGame(ctx, game)
}

func (pm *PersistenceManager) LoadMeld(ctx context.Context, gameID, meldID string) (*rummy.Meld, error) {
	melds, err := pm.ListMelds(ctx, gameID)
	if err != nil {
		return nil, err
	}
	for _, m := range melds {
		if m.ID == meldID {
			return m, nil
		}
	}
	return nil, rummy.ErrMeldNotFound
}

func (pm *PersistenceManager) SaveMeld(ctx context.Context, gameID string, meld *rummy.Meld) error {
	game, err := pm.LoadGame(ctx, gameID)
	if err != nil {
		return err
	}
	replaced := false
	for i, m := range game.Melds {
		if m.ID == meld.ID {
			game.Melds[i] = meld
			replaced = true
			break
		}
	}
	if !replaced {
		game.Melds = append(game.Melds, meld)
	}
	return pm.SaveGame(ctx, game)
}

func (pm *PersistenceManager) ListMelds(ctx context.Context, gameID string) ([]*rummy.Meld, error) {
	game, err := pm.LoadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return game.Melds, nil
}

func (pm *PersistenceManager) LoadDiscard(ctx context.Context, gameID string) ([]rummy.Card, error) {
	game, err := pm.LoadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return game.Discard, nil
}

func (pm *PersistenceManager) SaveDiscard(ctx context.Context, gameID string, cards []rummy.Card) error {
	game, err := pm.LoadGame(ctx, gameID)
	if err != nil {
		return err
	}
	game.Discard = cards
	return pm.SaveGame(ctx, game)
}

func (pm *PersistenceManager) LoadDeck(ctx context.Context, gameID string) (*rummy.Deck, error) {
	game, err := pm.LoadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return game.Deck, nil
}

func (pm *PersistenceManager) SaveDeck(ctx context.Context, gameID string, deck *rummy.Deck) error {
	game, err := pm.LoadGame(ctx, gameID)
	if err != nil {
		return err
	}
	game.Deck = deck
	return pm.SaveGame(ctx, game)
}

// SaveRoom persists room metadata (code, player slots, status).
func (pm *PersistenceManager) SaveRoom(ctx context.Context, room *ActiveGame) error {
	meta, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("failed to serialize room: %w", err)
	}

	query := `
		INSERT INTO rooms (room_code, game_id, status, meta, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (room_code) DO UPDATE SET status = $3, meta = $4, updated_at = now()
	`

	if _, err := pm.db.ExecContext(ctx, query, room.RoomCode, room.GameID, string(room.Status), meta); err != nil {
		return fmt.Errorf("failed to save room %s: %w", room.RoomCode, err)
	}

	return nil
}

// LoadAllRooms retrieves all rooms that are not completed
// Used on server startup to restore in-memory state
func (pm *PersistenceManager) LoadAllRooms(ctx context.Context) ([]*ActiveGame, error) {
	query := `
		SELECT meta FROM rooms
		WHERE status != $1
		ORDER BY updated_at DESC
	`

	rows, err := pm.db.QueryContext(ctx, query, string(StatusCompleted))
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*ActiveGame
	for rows.Next() {
		var meta []byte
		if err := rows.Scan(&meta); err != nil {
			return nil, fmt.Errorf("failed to scan room row: %w", err)
		}

		var room ActiveGame
		if err := json.Unmarshal(meta, &room); err != nil {
			// Log the error but continue with other rooms
			fmt.Printf("Warning: failed to deserialize room: %v\n", err)
			continue
		}

		rooms = append(rooms, &room)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating room rows: %w", err)
	}

	return rooms, nil
}

// DeleteGame removes a game from the database
// Cascades to the rooms table due to foreign key constraint
func (pm *PersistenceManager) DeleteGame(ctx context.Context, gameID string) error {
	result, err := pm.db.ExecContext(ctx, `DELETE FROM games WHERE game_id = $1`, gameID)
	if err != nil {
		return fmt.Errorf("failed to delete game %s: %w", gameID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deletion result: %w", err)
	}

	if rowsAffected == 0 {
		return rummy.ErrGameNotFound
	}

	return nil
}

// SaveSession persists a player session to the database
func (pm *PersistenceManager) SaveSession(ctx context.Context, session SessionInfo) error {
	query := `
		INSERT INTO sessions (token, game_id, room_code, username, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (token) DO UPDATE SET game_id = $2, room_code = $3, username = $4
	`

	_, err := pm.db.ExecContext(ctx, query, session.Token, session.GameID, session.RoomCode, session.Username)
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.Token, err)
	}

	return nil
}

// LoadSession retrieves a session by token
func (pm *PersistenceManager) LoadSession(ctx context.Context, token string) (*SessionInfo, error) {
	query := `SELECT token, game_id, room_code, username FROM sessions WHERE token = $1`

	var session SessionInfo
	err := pm.db.QueryRowContext(ctx, query, token).Scan(
		&session.Token,
		&session.GameID,
		&session.RoomCode,
		&session.Username,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.New("TOKEN_NOT_FOUND: Invalid session token")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", token, err)
	}

	return &session, nil
}

// LoadAllSessions retrieves all sessions from the database
// Used on server startup to restore SessionManager state
func (pm *PersistenceManager) LoadAllSessions(ctx context.Context) ([]SessionInfo, error) {
	query := `SELECT token, game_id, room_code, username FROM sessions`

	rows, err := pm.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SessionInfo
	for rows.Next() {
		var session SessionInfo
		if err := rows.Scan(&session.Token, &session.GameID, &session.RoomCode, &session.Username); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session rows: %w", err)
	}

	return sessions, nil
}

// DeleteSession removes a session from the database
func (pm *PersistenceManager) DeleteSession(ctx context.Context, token string) error {
	if _, err := pm.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", token, err)
	}

	return nil
}

// SaveRoomCode marks a room code as in use in the database
func (pm *PersistenceManager) SaveRoomCode(ctx context.Context, code string, inUse bool) error {
	query := `
		INSERT INTO room_codes (code, in_use, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (code) DO UPDATE SET in_use = $2
	`

	if _, err := pm.db.ExecContext(ctx, query, code, inUse); err != nil {
		return fmt.Errorf("failed to save room code %s: %w", code, err)
	}

	return nil
}

// LoadUsedRoomCodes retrieves all room codes and their in-use flags
// Used on server startup to restore GameManager.usedCodes map
func (pm *PersistenceManager) LoadUsedRoomCodes(ctx context.Context) (map[string]bool, error) {
	rows, err := pm.db.QueryContext(ctx, `SELECT code, in_use FROM room_codes`)
	if err != nil {
		return nil, fmt.Errorf("failed to query room codes: %w", err)
	}
	defer rows.Close()

	usedCodes := make(map[string]bool)
	for rows.Next() {
		var code string
		var inUse bool
		if err := rows.Scan(&code, &inUse); err != nil {
			return nil, fmt.Errorf("failed to scan room code row: %w", err)
		}
		usedCodes[code] = inUse
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating room code rows: %w", err)
	}

	return usedCodes, nil
}

// CleanupOldGames deletes completed games older than the specified duration
// Also marks their room codes as available for reuse
func (pm *PersistenceManager) CleanupOldGames(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)

	selectQuery := `SELECT room_code, game_id FROM rooms WHERE status = $1 AND updated_at < $2`
	rows, err := pm.db.QueryContext(ctx, selectQuery, string(StatusCompleted), cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to query old rooms: %w", err)
	}

	type oldRoom struct {
		code   string
		gameID string
	}
	var old []oldRoom
	for rows.Next() {
		var r oldRoom
		if err := rows.Scan(&r.code, &r.gameID); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan room row: %w", err)
		}
		old = append(old, r)
	}
	rows.Close()

	deleted := 0
	for _, r := range old {
		if err := pm.DeleteGame(ctx, r.gameID); err != nil {
			fmt.Printf("Warning: failed to delete game %s: %v\n", r.gameID, err)
			continue
		}
		deleted++
		if err := pm.SaveRoomCode(ctx, r.code, false); err != nil {
			// Log but continue - don't fail cleanup because of room code update
			fmt.Printf("Warning: failed to mark room code %s as unused: %v\n", r.code, err)
		}
	}

	return deleted, nil
}
