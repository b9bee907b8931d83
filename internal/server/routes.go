package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"rummy-server/internal/rummy"
)

func (s *Server) RegisterRoutes() http.Handler {
	mux := http.NewServeMux()

	// Register routes
	mux.HandleFunc("/", s.HelloWorldHandler)

	mux.HandleFunc("/health", s.healthHandler)

	mux.HandleFunc("/websocket", s.websocketHandler)

	// Wrap the mux with CORS middleware
	return s.corsMiddleware(mux)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Set CORS headers
		w.Header().Set("Access-Control-Allow-Origin", "*") // Replace "*" with specific origins if needed
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-CSRF-Token")
		w.Header().Set("Access-Control-Allow-Credentials", "false") // Set to "true" if credentials are required

		// Handle preflight OPTIONS requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		// Proceed with the next handler
		next.ServeHTTP(w, r)
	})
}

func (s *Server) HelloWorldHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"message": "Hello World"}
	jsonResp, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(jsonResp); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp, err := json.Marshal(s.db.Health())
	if err != nil {
		http.Error(w, "Failed to marshal health check response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(resp); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	socket, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"}, // TODO: make environment-specific
	})
	if err != nil {
		http.Error(w, "Failed to open websocket", http.StatusInternalServerError)
		return
	}
	defer socket.Close(websocket.StatusGoingAway, "Server closing")

	ctx := r.Context()

	connectionID := uuid.New().String()
	log.Printf("New connection: %s", connectionID)
	s.connectionManager.AddConnection(connectionID, socket)
	defer func() {
		token := s.connectionManager.GetTokenByConnection(connectionID)

		s.connectionManager.RemoveConnection(connectionID)
		s.rateLimiter.RemoveConnection(connectionID)
		s.connectionHealth.RemoveConnection(connectionID)
		log.Printf("Connection closed: %s", connectionID)

		if token == "" {
			return
		}

		gamePaused, room, playerID, err := s.gameManager.MarkPlayerDisconnected(token)
		if err != nil {
			// Player may have left before disconnecting
			if err.Error() != "TOKEN_NOT_FOUND: Invalid session token" {
				log.Printf("Error marking player disconnected: %v", err)
			}
			return
		}

		log.Printf("Player %s disconnected from game %s",
			room.Players[playerID].Username, room.RoomCode)

		s.broadcastToRoom(room, "player_disconnected", PlayerStatusNotification{
			Username:  room.Players[playerID].Username,
			Connected: false,
		})

		if gamePaused {
			s.broadcastToRoom(room, "game_paused", GamePausedNotification{
				Message: fmt.Sprintf("%s disconnected. Game paused.",
					room.Players[playerID].Username),
			})
		}

		s.persistRoom(room)
	}()

	for {
		// Read from client
		msgType, data, err := socket.Read(ctx)

		if err != nil {
			log.Printf("Connection %s read error: %v", connectionID, err)
			return
		}

		if msgType != websocket.MessageText {
			log.Printf("Non-text input from %s", connectionID)
			continue
		}

		if !s.rateLimiter.Allow(connectionID) {
			s.sendError(socket, ctx, "RATE_LIMITED: Too many requests, slow down")
			continue
		}
		s.connectionHealth.UpdateActivity(connectionID)

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Invalid JSON from %s: %v", connectionID, err)
			s.sendError(socket, ctx, "Invalid JSON")
			continue
		}

		if err := ValidateMessageType(msg.Type); err != nil {
			s.sendError(socket, ctx, err.Error())
			continue
		}

		log.Printf("Message Type '%s' from %s", msg.Type, connectionID)

		// Route the message
		switch msg.Type {
		case "ping":
			s.handlePing(socket, ctx, connectionID, msg.Payload)

		case "create_game":
			s.handleCreateGame(socket, ctx, connectionID, msg.Payload)

		case "join_game":
			s.handleJoinGame(socket, ctx, connectionID, msg.Payload)

		case "reconnect":
			s.handleReconnect(socket, ctx, connectionID, msg.Payload)

		case "get_state":
			s.handleGetState(socket, ctx, connectionID)

		case "pickup_deck":
			s.handleMove(socket, ctx, connectionID, func(token, gameID string) error {
				return s.rummy.PickupDeck(ctx, token, gameID)
			})

		case "pickup_discard":
			s.handlePickupDiscard(socket, ctx, connectionID, msg.Payload)

		case "play_cards":
			s.handlePlayCards(socket, ctx, connectionID, msg.Payload)

		case "discard":
			s.handleDiscard(socket, ctx, connectionID, msg.Payload)

		case "choose_claim":
			s.handleChooseClaim(socket, ctx, connectionID, msg.Payload)

		case "cancel_claim":
			s.handleMove(socket, ctx, connectionID, func(token, gameID string) error {
				return s.rummy.CancelClaim(ctx, token, gameID)
			})

		case "reorder_hand":
			s.handleReorderHand(socket, ctx, connectionID, msg.Payload)

		case "forfeit":
			s.handleMove(socket, ctx, connectionID, func(token, gameID string) error {
				return s.rummy.Forfeit(ctx, token, gameID)
			})
		}
	}
}

func (s *Server) handlePing(socket *websocket.Conn, ctx context.Context, connectionID string, msg json.RawMessage) {
	log.Printf("Ping from %s", connectionID)

	response := ServerMessage{
		Type:    "pong",
		Payload: struct{}{},
	}

	if err := s.sendMessage(socket, ctx, response); err != nil {
		log.Printf("Failed to send pong to %s: %v", connectionID, err)
	}
}

func (s *Server) sendMessage(socket *websocket.Conn, ctx context.Context, msg ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	return socket.Write(ctx, websocket.MessageText, data)
}

func (s *Server) sendError(socket *websocket.Conn, ctx context.Context, msg string) {
	response := ServerMessage{
		Type: "error",
		Payload: ErrorMessage{
			Message: msg,
		},
	}

	if err := s.sendMessage(socket, ctx, response); err != nil {
		log.Printf("Failed to send error message: %v", err)
	}
}

// sendRulesError reports a rules rejection. Rules errors are expected during
// normal play, so they carry their code for the client to react to.
func (s *Server) sendRulesError(socket *websocket.Conn, ctx context.Context, err error) {
	payload := ErrorMessage{Message: err.Error()}
	var rerr *rummy.Error
	if errors.As(err, &rerr) {
		payload.Code = string(rerr.Code)
		payload.Message = rerr.Message
	}

	if err := s.sendMessage(socket, ctx, ServerMessage{Type: "error", Payload: payload}); err != nil {
		log.Printf("Failed to send error message: %v", err)
	}
}

func (s *Server) broadcastToRoom(room *ActiveGame, messageType string, payload interface{}) {
	for _, slot := range room.Players {
		if slot.Token == "" {
			continue // Empty slot
		}

		connID := s.connectionManager.GetConnectionByToken(slot.Token)
		if connID == "" {
			continue // Player not connected
		}

		conn := s.connectionManager.GetConnection(connID)
		if conn == nil {
			continue
		}

		msg := ServerMessage{
			Type:    messageType,
			Payload: payload,
		}
		// Use background context for broadcasts
		if err := s.sendMessage(conn, context.Background(), msg); err != nil {
			log.Printf("Failed to broadcast to %s: %v", slot.Username, err)
		}
	}
}

// broadcastGameState sends each connected player their own view of the game.
func (s *Server) broadcastGameState(room *ActiveGame) {
	ctx := context.Background()

	for _, slot := range room.Players {
		if slot.Token == "" || !slot.Connected {
			continue
		}

		game, player, err := s.rummy.Game(ctx, slot.Token, room.GameID)
		if err != nil {
			log.Printf("Failed to load game %s for broadcast: %v", room.GameID, err)
			continue
		}

		connID := s.connectionManager.GetConnectionByToken(slot.Token)
		if connID == "" {
			continue
		}
		conn := s.connectionManager.GetConnection(connID)
		if conn == nil {
			continue
		}

		msg := ServerMessage{
			Type:    "game_state",
			Payload: buildGameView(game, room.RoomCode, player),
		}
		if err := s.sendMessage(conn, ctx, msg); err != nil {
			log.Printf("Failed to broadcast game state to %s: %v", slot.Username, err)
		}
	}
}

func (s *Server) persistRoom(room *ActiveGame) {
	if err := s.persistence.SaveRoom(context.Background(), room); err != nil {
		log.Printf("Failed to persist room %s: %v", room.RoomCode, err)
	}
}

func (s *Server) handleCreateGame(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req CreateGameRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid create_game payload")
		return
	}

	if err := ValidateUsername(req.Username); err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	// Session first: the rules service resolves players through it
	token := uuid.New().String()
	s.sessionManager.StoreSession(SessionInfo{
		Token:    token,
		Username: req.Username,
	})

	gameID, err := s.rummy.CreateGame(ctx, token)
	if err != nil {
		s.sessionManager.RemoveSession(token)
		s.sendRulesError(socket, ctx, err)
		return
	}

	room, err := s.gameManager.CreateRoom(gameID, req.Username, token)
	if err != nil {
		s.sessionManager.RemoveSession(token)
		s.sendError(socket, ctx, err.Error())
		return
	}

	session := SessionInfo{
		Token:    token,
		GameID:   gameID,
		RoomCode: room.RoomCode,
		Username: req.Username,
	}
	s.sessionManager.StoreSession(session)
	if err := s.persistence.SaveSession(ctx, session); err != nil {
		log.Printf("Failed to persist session: %v", err)
	}
	if err := s.persistence.SaveRoomCode(ctx, room.RoomCode, true); err != nil {
		log.Printf("Failed to persist room code: %v", err)
	}
	s.persistRoom(room)

	s.connectionManager.BindPlayer(connectionID, PlayerConnection{
		GameID:   gameID,
		RoomCode: room.RoomCode,
		Username: req.Username,
		Token:    token,
	})

	response := ServerMessage{
		Type: "game_created",
		Payload: CreateGameResponse{
			RoomCode: room.RoomCode,
			GameID:   gameID,
			Token:    token,
		},
	}
	if err := s.sendMessage(socket, ctx, response); err != nil {
		log.Printf("Failed to send game_created: %v", err)
	}
}

func (s *Server) handleJoinGame(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req JoinGameRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid join_game payload")
		return
	}

	room, err := s.gameManager.GetRoom(req.RoomCode)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	token := uuid.New().String()
	s.sessionManager.StoreSession(SessionInfo{
		Token:    token,
		Username: req.Username,
	})

	// Dealing happens inside the rules service when the second player joins
	if err := s.rummy.JoinGame(ctx, token, room.GameID); err != nil {
		s.sessionManager.RemoveSession(token)
		s.sendRulesError(socket, ctx, err)
		return
	}

	room, err = s.gameManager.JoinRoom(req.RoomCode, req.Username, token)
	if err != nil {
		s.sessionManager.RemoveSession(token)
		s.sendError(socket, ctx, err.Error())
		return
	}

	session := SessionInfo{
		Token:    token,
		GameID:   room.GameID,
		RoomCode: room.RoomCode,
		Username: req.Username,
	}
	s.sessionManager.StoreSession(session)
	if err := s.persistence.SaveSession(ctx, session); err != nil {
		log.Printf("Failed to persist session: %v", err)
	}
	s.persistRoom(room)

	s.connectionManager.BindPlayer(connectionID, PlayerConnection{
		GameID:   room.GameID,
		RoomCode: room.RoomCode,
		Username: req.Username,
		Token:    token,
	})

	response := ServerMessage{
		Type: "game_joined",
		Payload: JoinGameResponse{
			Success: true,
			GameID:  room.GameID,
			Token:   token,
		},
	}
	if err := s.sendMessage(socket, ctx, response); err != nil {
		log.Printf("Failed to send game_joined: %v", err)
		return
	}

	s.broadcastToRoom(room, "game_started", GameStartedNotification{
		Message: "Opponent joined. Cards are dealt!",
	})
	s.broadcastGameState(room)
}

func (s *Server) handleReconnect(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req ReconnectRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid reconnect payload")
		return
	}

	session, err := s.sessionManager.GetSession(req.Token)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	// If this token is already connected elsewhere, bump the old socket
	oldConnectionID := s.connectionManager.GetConnectionByToken(req.Token)
	if oldConnectionID != "" && oldConnectionID != connectionID {
		oldConn := s.connectionManager.GetConnection(oldConnectionID)
		if oldConn != nil {
			s.sendMessage(oldConn, context.Background(), ServerMessage{
				Type: "disconnected_elsewhere",
				Payload: struct {
					Message string `json:"message"`
				}{
					Message: "You connected on another device",
				},
			})
			oldConn.Close(websocket.StatusNormalClosure, "Connected from another device")
		}
		s.connectionManager.RemoveConnection(oldConnectionID)
	}

	room, _, err := s.gameManager.ReconnectPlayer(req.Token)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	s.connectionManager.BindPlayer(connectionID, PlayerConnection{
		GameID:   session.GameID,
		RoomCode: session.RoomCode,
		Username: session.Username,
		Token:    session.Token,
	})

	response := ServerMessage{
		Type: "reconnected",
		Payload: ReconnectResponse{
			Success:  true,
			RoomCode: session.RoomCode,
			GameID:   session.GameID,
			Username: session.Username,
		},
	}
	if err := s.sendMessage(socket, ctx, response); err != nil {
		log.Printf("Failed to send reconnected response: %v", err)
	}

	s.broadcastToRoom(room, "player_reconnected", PlayerStatusNotification{
		Username:  session.Username,
		Connected: true,
	})

	if room.Status == StatusPlaying {
		s.broadcastToRoom(room, "game_resumed", struct {
			Message string `json:"message"`
		}{
			Message: "Game resumed!",
		})
	}

	s.persistRoom(room)

	// The returning player needs the current table
	if room.Status == StatusPlaying || room.Status == StatusPaused {
		game, player, err := s.rummy.Game(ctx, session.Token, session.GameID)
		if err != nil {
			log.Printf("Failed to load game %s after reconnect: %v", session.GameID, err)
			return
		}
		s.sendMessage(socket, ctx, ServerMessage{
			Type:    "game_state",
			Payload: buildGameView(game, room.RoomCode, player),
		})
	}
}

func (s *Server) handleGetState(socket *websocket.Conn, ctx context.Context, connectionID string) {
	token, room, ok := s.playerContext(socket, ctx, connectionID)
	if !ok {
		return
	}

	game, player, err := s.rummy.Game(ctx, token, room.GameID)
	if err != nil {
		s.sendRulesError(socket, ctx, err)
		return
	}

	s.sendMessage(socket, ctx, ServerMessage{
		Type:    "game_state",
		Payload: buildGameView(game, room.RoomCode, player),
	})
}

// playerContext resolves the connection to its token and room, rejecting
// sockets that never created, joined, or reconnected.
func (s *Server) playerContext(socket *websocket.Conn, ctx context.Context, connectionID string) (string, *ActiveGame, bool) {
	token := s.connectionManager.GetTokenByConnection(connectionID)
	if token == "" {
		s.sendError(socket, ctx, "NOT_IN_GAME: No active game session")
		return "", nil, false
	}

	room, _, err := s.gameManager.GetRoomByToken(token)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return "", nil, false
	}

	return token, room, true
}

// handleMove runs one rules transition and broadcasts the result.
func (s *Server) handleMove(socket *websocket.Conn, ctx context.Context, connectionID string, move func(token, gameID string) error) {
	token, room, ok := s.playerContext(socket, ctx, connectionID)
	if !ok {
		return
	}

	switch room.Status {
	case StatusLobby:
		s.sendError(socket, ctx, "GAME_NOT_STARTED: Waiting for an opponent")
		return
	case StatusPaused:
		s.sendError(socket, ctx, "GAME_PAUSED: Game is paused due to disconnection")
		return
	case StatusCompleted:
		s.sendError(socket, ctx, "GAME_COMPLETED: Game has ended")
		return
	}

	if err := move(token, room.GameID); err != nil {
		s.sendRulesError(socket, ctx, err)
		return
	}

	room.UpdatedAt = time.Now()

	// A terminal phase completes the room and frees its code
	game, _, err := s.rummy.Game(ctx, token, room.GameID)
	if err == nil && (game.Phase == rummy.PhaseDone || game.Phase == rummy.PhaseForfeit) {
		if _, err := s.gameManager.CompleteRoom(room.RoomCode); err != nil {
			log.Printf("Failed to complete room %s: %v", room.RoomCode, err)
		}
		if err := s.persistence.SaveRoomCode(ctx, room.RoomCode, false); err != nil {
			log.Printf("Failed to release room code %s: %v", room.RoomCode, err)
		}
		s.broadcastToRoom(room, "game_over", GameOverNotification{
			Winner: game.Winner,
			Scores: game.Scores,
			Reason: string(game.Phase),
		})
		log.Printf("Game %s completed. Winner: %s", room.RoomCode, game.Winner)
	}

	s.broadcastGameState(room)
	s.persistRoom(room)
}

func (s *Server) handlePickupDiscard(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req PickupDiscardRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid pickup_discard payload")
		return
	}

	s.handleMove(socket, ctx, connectionID, func(token, gameID string) error {
		return s.rummy.PickupDiscard(ctx, token, gameID, req.Index)
	})
}

func (s *Server) handlePlayCards(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req PlayCardsRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid play_cards payload")
		return
	}

	cards, err := rummy.ParseCards(req.Cards)
	if err != nil {
		s.sendRulesError(socket, ctx, err)
		return
	}

	s.handleMove(socket, ctx, connectionID, func(token, gameID string) error {
		return s.rummy.PlayCards(ctx, token, gameID, cards, req.MeldID)
	})
}

func (s *Server) handleDiscard(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req DiscardRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid discard payload")
		return
	}

	card, err := rummy.ParseCard(req.Card)
	if err != nil {
		s.sendRulesError(socket, ctx, err)
		return
	}

	s.handleMove(socket, ctx, connectionID, func(token, gameID string) error {
		return s.rummy.Discard(ctx, token, gameID, card)
	})
}

func (s *Server) handleChooseClaim(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req ChooseClaimRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid choose_claim payload")
		return
	}

	s.handleMove(socket, ctx, connectionID, func(token, gameID string) error {
		return s.rummy.ChooseCandidate(ctx, token, gameID, req.Index)
	})
}

func (s *Server) handleReorderHand(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req ReorderHandRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid reorder_hand payload")
		return
	}

	cards, err := rummy.ParseCards(req.Cards)
	if err != nil {
		s.sendRulesError(socket, ctx, err)
		return
	}

	s.handleMove(socket, ctx, connectionID, func(token, gameID string) error {
		return s.rummy.ReorderHand(ctx, token, gameID, cards)
	})
}
