package rummy

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Store is the persistence collaborator. Save is expected to be atomic per
// call; the service always persists a whole aggregate as one write. The
// granular accessors serve callers that only need a slice of the state.
type Store interface {
	LoadGame(ctx context.Context, gameID string) (*Game, error)
	SaveGame(ctx context.Context, game *Game) error
	LoadHand(ctx context.Context, gameID, player string) ([]Card, error)
	SaveHand(ctx context.Context, gameID, player string, cards []Card) error
	LoadMeld(ctx context.Context, gameID, meldID string) (*Meld, error)
	SaveMeld(ctx context.Context, gameID string, meld *Meld) error
	ListMelds(ctx context.Context, gameID string) ([]*Meld, error)
	LoadDiscard(ctx context.Context, gameID string) ([]Card, error)
	SaveDiscard(ctx context.Context, gameID string, cards []Card) error
	LoadDeck(ctx context.Context, gameID string) (*Deck, error)
	SaveDeck(ctx context.Context, gameID string, deck *Deck) error
}

// Identity resolves a session token to a player id.
type Identity interface {
	ResolvePlayer(ctx context.Context, token string) (string, error)
}

// Service exposes one method per state machine transition. Each call
// resolves the player, takes the exclusive lock for the game, loads the
// aggregate, applies a single transition, and saves it back as one write, so
// two concurrent actions against the same game can never interleave.
type Service struct {
	store Store
	ids   Identity

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(store Store, ids Identity) *Service {
	return &Service{
		store: store,
		ids:   ids,
		locks: make(map[string]*sync.Mutex),
	}
}

func (s *Service) gameLock(gameID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[gameID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[gameID] = lock
	}
	return lock
}

// apply runs one transition under the game's lock and persists the result.
func (s *Service) apply(ctx context.Context, token, gameID string, fn func(g *Game, player string) error) error {
	player, err := s.ids.ResolvePlayer(ctx, token)
	if err != nil {
		return err
	}

	lock := s.gameLock(gameID)
	lock.Lock()
	defer lock.Unlock()

	game, err := s.store.LoadGame(ctx, gameID)
	if err != nil {
		return err
	}
	if err := fn(game, player); err != nil {
		return err
	}
	return s.store.SaveGame(ctx, game)
}

// CreateGame starts a game for the token's player and returns its id.
func (s *Service) CreateGame(ctx context.Context, token string) (string, error) {
	player, err := s.ids.ResolvePlayer(ctx, token)
	if err != nil {
		return "", err
	}
	game := NewGame(uuid.New().String(), player)
	if err := s.store.SaveGame(ctx, game); err != nil {
		return "", err
	}
	return game.ID, nil
}

func (s *Service) JoinGame(ctx context.Context, token, gameID string) error {
	return s.apply(ctx, token, gameID, func(g *Game, player string) error {
		return g.Join(player)
	})
}

func (s *Service) PickupDeck(ctx context.Context, token, gameID string) error {
	return s.apply(ctx, token, gameID, func(g *Game, player string) error {
		return g.PickupDeck(player)
	})
}

func (s *Service) PickupDiscard(ctx context.Context, token, gameID string, index int) error {
	return s.apply(ctx, token, gameID, func(g *Game, player string) error {
		return g.PickupDiscard(player, index)
	})
}

func (s *Service) ChooseCandidate(ctx context.Context, token, gameID string, index int) error {
	return s.apply(ctx, token, gameID, func(g *Game, player string) error {
		return g.ChooseCandidate(player, index)
	})
}

func (s *Service) CancelClaim(ctx context.Context, token, gameID string) error {
	return s.apply(ctx, token, gameID, func(g *Game, player string) error {
		return g.CancelClaim(player)
	})
}

func (s *Service) PlayCards(ctx context.Context, token, gameID string, cards []Card, meldID string) error {
	return s.apply(ctx, token, gameID, func(g *Game, player string) error {
		return g.PlayCards(player, cards, meldID)
	})
}

func (s *Service) Discard(ctx context.Context, token, gameID string, card Card) error {
	return s.apply(ctx, token, gameID, func(g *Game, player string) error {
		return g.DiscardCard(player, card)
	})
}

func (s *Service) ReorderHand(ctx context.Context, token, gameID string, cards []Card) error {
	return s.apply(ctx, token, gameID, func(g *Game, player string) error {
		return g.ReorderHand(player, cards)
	})
}

func (s *Service) Forfeit(ctx context.Context, token, gameID string) error {
	return s.apply(ctx, token, gameID, func(g *Game, player string) error {
		return g.Forfeit(player)
	})
}

// Game loads the aggregate for a player in the game, read-only.
func (s *Service) Game(ctx context.Context, token, gameID string) (*Game, string, error) {
	player, err := s.ids.ResolvePlayer(ctx, token)
	if err != nil {
		return nil, "", err
	}

	lock := s.gameLock(gameID)
	lock.Lock()
	defer lock.Unlock()

	game, err := s.store.LoadGame(ctx, gameID)
	if err != nil {
		return nil, "", err
	}
	if !game.isPlayer(player) && game.Phase != PhaseSetup {
		return nil, "", ErrNotYourTurn
	}
	return game, player, nil
}
