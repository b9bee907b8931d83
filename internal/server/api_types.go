package server

import "rummy-server/internal/rummy"

// ============================================================================
// ERROR RESPONSES
// ============================================================================
// tygo:generate
type ErrorMessage struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ============================================================================
// CREATE GAME (create_game)
// ============================================================================
// tygo:generate
type CreateGameRequest struct {
	Username string `json:"username"`
}

// tygo:generate
type CreateGameResponse struct {
	RoomCode string `json:"roomCode"`
	GameID   string `json:"gameId"`
	Token    string `json:"token"`
}

// ============================================================================
// JOIN GAME (join_game)
// ============================================================================
// tygo:generate
type JoinGameRequest struct {
	RoomCode string `json:"roomCode"`
	Username string `json:"username"`
}

// tygo:generate
type JoinGameResponse struct {
	Success bool   `json:"success"`
	GameID  string `json:"gameId"`
	Token   string `json:"token"`
	Message string `json:"message,omitempty"`
}

// ============================================================================
// RECONNECT (reconnect)
// ============================================================================
// tygo:generate
type ReconnectRequest struct {
	Token string `json:"token"`
}

// tygo:generate
type ReconnectResponse struct {
	Success  bool   `json:"success"`
	RoomCode string `json:"roomCode"`
	GameID   string `json:"gameId"`
	Username string `json:"username"`
}

// ============================================================================
// MOVES
// ============================================================================
// tygo:generate
type PickupDiscardRequest struct {
	Index int `json:"index"` // position in the discard pile, oldest first
}

// tygo:generate
type PlayCardsRequest struct {
	Cards  []string `json:"cards"`
	MeldID string   `json:"meldId,omitempty"` // empty = lay a new meld
}

// tygo:generate
type DiscardRequest struct {
	Card string `json:"card"`
}

// tygo:generate
type ChooseClaimRequest struct {
	Index int `json:"index"` // index into the candidates list
}

// tygo:generate
type ReorderHandRequest struct {
	Cards []string `json:"cards"`
}

// ============================================================================
// GAME STATE (game_state broadcast, personalized per player)
// ============================================================================
// tygo:generate
type GameView struct {
	RoomCode      string          `json:"roomCode"`
	GameID        string          `json:"gameId"`
	Phase         string          `json:"phase"`
	Turn          string          `json:"turn"`
	You           string          `json:"you"`
	Opponent      string          `json:"opponent"`
	Hand          []string        `json:"hand"`
	OpponentCount int             `json:"opponentCount"`
	DeckRemaining int             `json:"deckRemaining"`
	Discard       []string        `json:"discard"`
	Melds         []MeldView      `json:"melds"`
	ForcedCard    string          `json:"forcedCard,omitempty"`
	Claimant      string          `json:"claimant,omitempty"`
	Candidates    []CandidateView `json:"candidates,omitempty"`
	Scores        map[string]int  `json:"scores,omitempty"`
	Winner        string          `json:"winner,omitempty"`
}

// tygo:generate
type MeldView struct {
	ID    string     `json:"id"`
	Kind  string     `json:"kind"`
	Owner string     `json:"owner"`
	Cards []string   `json:"cards"`
	Edges []EdgeView `json:"edges"` // low to high
}

// tygo:generate
type EdgeView struct {
	Owner string   `json:"owner"`
	Cards []string `json:"cards"`
}

// tygo:generate
type CandidateView struct {
	Index        int      `json:"index"`
	MeldID       string   `json:"meldId,omitempty"`
	DiscardCards []string `json:"discardCards"`
	HandCards    []string `json:"handCards,omitempty"`
	KeepCards    []string `json:"keepCards,omitempty"`
	Rummy        bool     `json:"rummy"`
}

// ============================================================================
// NOTIFICATIONS (broadcasts)
// ============================================================================
// tygo:generate
type GameStartedNotification struct {
	Message string `json:"message"`
}

// tygo:generate
type PlayerStatusNotification struct {
	Username  string `json:"username"`
	Connected bool   `json:"connected"`
}

// tygo:generate
type GamePausedNotification struct {
	Message string `json:"message"`
}

// tygo:generate
type GameOverNotification struct {
	Winner string         `json:"winner,omitempty"` // empty on a tie
	Scores map[string]int `json:"scores"`
	Reason string         `json:"reason"` // "done" or "forfeit"
}

func cardNames(cards []rummy.Card) []string {
	names := make([]string, len(cards))
	for i, c := range cards {
		names[i] = c.String()
	}
	return names
}

func meldView(m *rummy.Meld) MeldView {
	view := MeldView{
		ID:    m.ID,
		Kind:  m.Kind.String(),
		Owner: m.Owner,
		Cards: cardNames(m.Cards()),
	}
	for key := m.Low; key <= m.High; key++ {
		if edge, ok := m.Edges[key]; ok {
			view.Edges = append(view.Edges, EdgeView{
				Owner: edge.Owner,
				Cards: cardNames(edge.Cards),
			})
		}
	}
	return view
}

// buildGameView projects the game for one player. The opponent's hand is
// reduced to a count and claim candidates are shown only to the claimant.
func buildGameView(game *rummy.Game, roomCode, player string) GameView {
	opponent := ""
	for _, p := range game.Players {
		if p != player {
			opponent = p
		}
	}

	view := GameView{
		RoomCode:      roomCode,
		GameID:        game.ID,
		Phase:         string(game.Phase),
		Turn:          game.Turn,
		You:           player,
		Opponent:      opponent,
		Hand:          cardNames(game.Hands[player]),
		OpponentCount: len(game.Hands[opponent]),
		DeckRemaining: game.Deck.Remaining(),
		Discard:       cardNames(game.Discard),
		Scores:        game.Scores,
		Winner:        game.Winner,
	}

	for _, m := range game.Melds {
		view.Melds = append(view.Melds, meldView(m))
	}

	if game.ForcedCard != nil && game.Turn == player {
		view.ForcedCard = game.ForcedCard.String()
	}

	view.Claimant = game.Claimant
	if game.Claimant == player {
		for i, c := range game.Candidates {
			view.Candidates = append(view.Candidates, CandidateView{
				Index:        i,
				MeldID:       c.MeldID,
				DiscardCards: cardNames(c.DiscardCards),
				HandCards:    cardNames(c.HandCards),
				KeepCards:    cardNames(c.KeepCards),
				Rummy:        c.Rummy,
			})
		}
	}

	return view
}
