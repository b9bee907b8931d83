package server

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/pressly/goose/v3"

	"rummy-server/internal/database"
	"rummy-server/internal/rummy"
)

type Server struct {
	port              int
	db                database.Service
	rummy             *rummy.Service
	persistence       *PersistenceManager
	connectionManager *ConnectionManager
	gameManager       *GameManager
	sessionManager    *SessionManager
	rateLimiter       *RateLimiter
	connectionHealth  *ConnectionHealth
}

func NewServer() (*Server, *http.Server) {
	port, _ := strconv.Atoi(os.Getenv("PORT"))

	// Initialize database
	dbService := database.New()

	// Run migrations
	if err := runMigrations(dbService.DB()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	persistence := NewPersistenceManager(dbService.DB())
	gameManager := NewGameManager()
	sessionManager := NewSessionManager()

	// Load persisted state from database
	if err := loadPersistedState(persistence, gameManager, sessionManager); err != nil {
		log.Printf("Warning: Failed to load persisted state: %v", err)
		// Don't fatal - allow server to start with empty state
	}

	srv := &Server{
		port:              port,
		db:                dbService,
		rummy:             rummy.NewService(persistence, sessionManager),
		persistence:       persistence,
		connectionManager: NewConnectionManager(),
		gameManager:       gameManager,
		sessionManager:    sessionManager,
		rateLimiter:       NewRateLimiter(10, time.Second),
		connectionHealth:  NewConnectionHealth(),
	}

	// Start background tasks
	go srv.periodicSaveTask()
	go srv.cleanupTask()

	// Declare Server config
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", srv.port),
		Handler:      srv.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return srv, httpServer
}

// runMigrations applies database migrations using goose
func runMigrations(db *sql.DB) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	// Run migrations from db/migrations directory
	if err := goose.Up(db, "./db/migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	log.Println("Database migrations applied successfully")
	return nil
}

// loadPersistedState restores rooms, room codes, and sessions after a restart.
// Game snapshots themselves stay in the database and are loaded per action.
func loadPersistedState(pm *PersistenceManager, gm *GameManager, sm *SessionManager) error {
	ctx := context.Background()

	rooms, err := pm.LoadAllRooms(ctx)
	if err != nil {
		return fmt.Errorf("failed to load rooms: %w", err)
	}

	usedCodes, err := pm.LoadUsedRoomCodes(ctx)
	if err != nil {
		return fmt.Errorf("failed to load room codes: %w", err)
	}

	gm.RestoreState(rooms, usedCodes)
	for _, room := range rooms {
		// Everyone starts disconnected after a restart
		for i := range room.Players {
			room.Players[i].Connected = false
		}
		if room.Status == StatusPlaying {
			room.Status = StatusPaused
		}
		log.Printf("Restored room: %s (status: %s)", room.RoomCode, room.Status)
	}

	sessions, err := pm.LoadAllSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load sessions: %w", err)
	}

	for _, session := range sessions {
		sm.StoreSession(session)
		tokenDisplay := session.Token
		if len(tokenDisplay) > 8 {
			tokenDisplay = tokenDisplay[:8]
		}
		log.Printf("Restored session: %s -> %s (%s)", tokenDisplay, session.RoomCode, session.Username)
	}

	log.Printf("Loaded %d rooms, %d room codes, %d sessions", len(rooms), len(usedCodes), len(sessions))
	return nil
}

// periodicSaveTask persists room metadata every 30 seconds. Game snapshots are
// written on every action by the rules service, so only room state (connect
// flags, pause status) can drift.
func (s *Server) periodicSaveTask() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		s.gameManager.mu.RLock()
		rooms := make([]*ActiveGame, 0, len(s.gameManager.games))
		for _, room := range s.gameManager.games {
			rooms = append(rooms, room)
		}
		s.gameManager.mu.RUnlock()

		savedCount := 0
		for _, room := range rooms {
			if err := s.persistence.SaveRoom(context.Background(), room); err != nil {
				log.Printf("Periodic save failed for room %s: %v", room.RoomCode, err)
			} else {
				savedCount++
			}
		}

		log.Printf("Periodic save completed: %d rooms persisted", savedCount)
	}
}

// cleanupTask runs every hour and deletes completed games older than 24 hours.
// It also trims stale rate limiter entries.
func (s *Server) cleanupTask() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		s.rateLimiter.Cleanup()

		deleted, err := s.persistence.CleanupOldGames(context.Background(), 24*time.Hour)
		if err != nil {
			log.Printf("Cleanup task failed: %v", err)
			continue
		}

		if deleted > 0 {
			log.Printf("Cleanup task: deleted %d old completed games", deleted)
		}
	}
}

// Shutdown saves every room and closes the database connection.
func (s *Server) Shutdown(ctx context.Context) error {
	s.gameManager.mu.RLock()
	rooms := make([]*ActiveGame, 0, len(s.gameManager.games))
	for _, room := range s.gameManager.games {
		rooms = append(rooms, room)
	}
	s.gameManager.mu.RUnlock()

	for _, room := range rooms {
		if err := s.persistence.SaveRoom(ctx, room); err != nil {
			log.Printf("Shutdown save failed for room %s: %v", room.RoomCode, err)
		}
	}
	log.Printf("Shutdown: persisted %d rooms", len(rooms))

	return s.db.Close()
}
