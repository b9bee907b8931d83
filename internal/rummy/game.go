package rummy

import "github.com/google/uuid"

// Phase values follow the original game_state strings.
type Phase string

const (
	PhaseSetup       Phase = "setup"
	PhaseDraw        Phase = "draw"
	PhasePlay        Phase = "play"
	PhaseDiscardPlay Phase = "discardPlay"
	PhaseRummy       Phase = "rummy"
	PhaseDone        Phase = "done"
	PhaseForfeit     Phase = "forfeit"
)

func (p Phase) terminal() bool {
	return p == PhaseDone || p == PhaseForfeit
}

const handSize = 7

// Game aggregates the whole table for one two-player match. All mutating
// methods apply exactly one state machine transition and leave the aggregate
// untouched on rejection.
type Game struct {
	ID      string            `json:"id"`
	Players []string          `json:"players"` // creator first
	Hands   map[string][]Card `json:"hands"`
	Deck    *Deck             `json:"deck"`
	Discard []Card            `json:"discard"` // append at end = most recent
	Melds   []*Meld           `json:"melds"`
	Turn    string            `json:"turn"`
	Phase   Phase             `json:"phase"`

	// ForcedCard must appear in the holder's next set before any other play.
	ForcedCard *Card `json:"forcedCard,omitempty"`

	// Transient claim state, populated only in PhaseRummy.
	Claimant    string      `json:"claimant,omitempty"`
	ClaimIndex  int         `json:"claimIndex,omitempty"`
	ResumePhase Phase       `json:"resumePhase,omitempty"`
	Candidates  []Candidate `json:"candidates,omitempty"`

	Scores map[string]int `json:"scores,omitempty"`
	Winner string         `json:"winner,omitempty"`
}

// NewGame creates a game waiting for a second player. The deck is shuffled
// once here and the cursor only ever advances until the game ends.
func NewGame(id, creator string) *Game {
	deck := NewDeck()
	deck.Shuffle()
	return &Game{
		ID:      id,
		Players: []string{creator},
		Hands:   map[string][]Card{creator: {}},
		Deck:    deck,
		Turn:    creator,
		Phase:   PhaseSetup,
	}
}

func (g *Game) opponent(player string) string {
	for _, p := range g.Players {
		if p != player {
			return p
		}
	}
	return ""
}

func (g *Game) isPlayer(player string) bool {
	for _, p := range g.Players {
		if p == player {
			return true
		}
	}
	return false
}

// Join seats the second player, deals seven cards each alternately from the
// shuffled deck (creator first), and flips one card to start the discard
// pile.
func (g *Game) Join(player string) error {
	if g.Phase != PhaseSetup {
		return ErrAlreadyJoined
	}
	if player == g.Players[0] {
		return ErrSelfJoin
	}

	g.Players = append(g.Players, player)
	g.Hands[player] = []Card{}

	for i := 0; i < handSize; i++ {
		for _, p := range g.Players {
			cards, err := g.Deck.Draw(1)
			if err != nil {
				return err
			}
			g.Hands[p] = append(g.Hands[p], cards[0])
		}
	}

	first, err := g.Deck.Draw(1)
	if err != nil {
		return err
	}
	g.Discard = append(g.Discard, first[0])

	g.Turn = g.Players[0]
	g.Phase = PhaseDraw
	return nil
}

// PickupDeck draws one card from the deck for the active player.
func (g *Game) PickupDeck(player string) error {
	if player != g.Turn {
		return ErrNotYourTurn
	}
	if g.Phase != PhaseDraw {
		return wrongPhase("Cannot draw now")
	}

	cards, err := g.Deck.Draw(1)
	if err != nil {
		return err
	}
	g.Hands[player] = append(g.Hands[player], cards[0])
	g.Phase = PhasePlay
	return nil
}

// PickupDiscard names a pile index to claim. Claiming a card claims the
// whole contiguous suffix discarded after it. On-turn claims with only
// hand-based uses move the run into the hand immediately, with the claimed
// card forced into the next play; any rummy-capable interpretation instead
// suspends turn order and surfaces candidates for a human choice.
func (g *Game) PickupDiscard(player string, index int) error {
	if !g.isPlayer(player) {
		return ErrNotYourTurn
	}
	if g.Phase.terminal() || g.Phase == PhaseSetup || g.Phase == PhaseRummy {
		return wrongPhase("Cannot draw now")
	}
	if index < 0 || index >= len(g.Discard) {
		return ErrDiscardOutOfRange
	}
	if g.ForcedCard != nil && player == g.Turn {
		return forcedCardNotPlayed(*g.ForcedCard)
	}

	run := g.Discard[index:]
	candidates := FindDiscardClaims(run, g.Hands[player], g.Melds, player)

	if player == g.Turn && g.Phase == PhaseDraw {
		if len(candidates) == 0 {
			return ErrUnusableDiscard
		}
		rummy := rummyCandidates(candidates)
		if len(rummy) == 0 {
			// Simple on-turn use: take the suffix, force the claimed card.
			g.takeDiscardRun(player, index)
			g.Phase = PhaseDiscardPlay
			return nil
		}
		g.enterRummy(player, index, candidates, PhaseDraw)
		return nil
	}

	// Off-turn (or mid-play) claims must stand without hand cards.
	rummy := rummyCandidates(candidates)
	if len(rummy) == 0 {
		return ErrUnusableDiscard
	}
	g.enterRummy(player, index, rummy, g.Phase)
	return nil
}

func (g *Game) takeDiscardRun(player string, index int) {
	run := g.Discard[index:]
	forced := run[0]
	g.Hands[player] = append(g.Hands[player], run...)
	g.Discard = g.Discard[:index]
	g.ForcedCard = &forced
}

func (g *Game) enterRummy(claimant string, index int, candidates []Candidate, resume Phase) {
	g.Claimant = claimant
	g.ClaimIndex = index
	g.Candidates = candidates
	g.ResumePhase = resume
	g.Phase = PhaseRummy
}

func (g *Game) clearClaim() {
	g.Claimant = ""
	g.ClaimIndex = 0
	g.Candidates = nil
	g.ResumePhase = ""
}

// ChooseCandidate commits one claim interpretation: the play lands on the
// table, leftover run cards join the claimant's hand, and the suspended
// phase resumes. An on-turn claim counts as the draw, so play continues in
// PhasePlay rather than re-entering PhaseDraw.
func (g *Game) ChooseCandidate(player string, index int) error {
	if g.Phase != PhaseRummy {
		return wrongPhase("No claim to resolve")
	}
	if player != g.Claimant {
		return ErrNotClaimant
	}
	if index < 0 || index >= len(g.Candidates) {
		return ErrNoSuchCandidate
	}

	c := g.Candidates[index]
	hand := g.Hands[player]

	if !c.Rummy {
		if player != g.Turn {
			return ErrNotYourTurn
		}
		// After the play at least one card must remain to discard.
		if len(hand)-len(c.HandCards)+len(c.KeepCards) < 1 {
			return ErrMustRetainDiscard
		}
	}
	if len(c.HandCards) > 0 && !containsAll(hand, c.HandCards) {
		return ErrCardsNotInHand
	}

	play := c.playCards()
	if c.MeldID == "" {
		kind, ordered, err := Validate(play, true)
		if err != nil {
			return err
		}
		g.Melds = append(g.Melds, NewMeld(uuid.New().String(), kind, player, ordered))
	} else {
		m := g.meldByID(c.MeldID)
		if m == nil {
			return ErrMeldNotFound
		}
		if err := m.Extend(play, player); err != nil {
			return err
		}
	}

	g.Hands[player] = removeCards(hand, c.HandCards)
	g.Hands[player] = append(g.Hands[player], c.KeepCards...)
	g.Discard = g.Discard[:g.ClaimIndex]

	resume := g.ResumePhase
	g.clearClaim()
	if player == g.Turn && resume == PhaseDraw {
		g.Phase = PhasePlay
	} else {
		g.Phase = resume
	}
	return nil
}

// CancelClaim abandons a pending claim. If the claimant was on turn and a
// plain hand-based use exists, the pickup proceeds as a normal discard draw
// with the claimed card forced; otherwise nothing moves and the suspended
// phase resumes.
func (g *Game) CancelClaim(player string) error {
	if g.Phase != PhaseRummy {
		return wrongPhase("No claim to resolve")
	}
	if player != g.Claimant {
		return ErrNotClaimant
	}

	onTurn := player == g.Turn && g.ResumePhase == PhaseDraw
	simple := hasOnTurnCandidate(g.Candidates)
	index := g.ClaimIndex
	resume := g.ResumePhase
	g.clearClaim()

	if onTurn && simple {
		g.takeDiscardRun(player, index)
		g.Phase = PhaseDiscardPlay
		return nil
	}
	g.Phase = resume
	return nil
}

// PlayCards lays cards from the active player's hand, either as a new meld
// or continuing meldID. The whole hand can never go down at once: one card
// must survive for the closing discard.
func (g *Game) PlayCards(player string, cards []Card, meldID string) error {
	if player != g.Turn {
		return ErrNotYourTurn
	}
	if g.Phase != PhasePlay && g.Phase != PhaseDiscardPlay {
		return wrongPhase("Cannot play cards now")
	}
	if !containsAll(g.Hands[player], cards) {
		return ErrCardsNotInHand
	}
	if g.ForcedCard != nil && !containsCard(cards, *g.ForcedCard) {
		return forcedCardNotPlayed(*g.ForcedCard)
	}
	if len(cards) >= len(g.Hands[player]) {
		return ErrMustRetainDiscard
	}

	if meldID == "" {
		kind, ordered, err := Validate(cards, true)
		if err != nil {
			return err
		}
		g.Melds = append(g.Melds, NewMeld(uuid.New().String(), kind, player, ordered))
	} else {
		m := g.meldByID(meldID)
		if m == nil {
			return ErrMeldNotFound
		}
		if err := m.Extend(cards, player); err != nil {
			return err
		}
	}

	g.Hands[player] = removeCards(g.Hands[player], cards)
	if g.ForcedCard != nil {
		g.ForcedCard = nil
		g.Phase = PhasePlay
	}
	return nil
}

// DiscardCard ends the turn: one card moves to the pile and play flips to
// the other player, or the game finishes when the hand empties.
func (g *Game) DiscardCard(player string, card Card) error {
	if player != g.Turn {
		return ErrNotYourTurn
	}
	if g.Phase != PhasePlay {
		if g.Phase == PhaseDiscardPlay && g.ForcedCard != nil {
			return mustPlayForcedCard(*g.ForcedCard)
		}
		return wrongPhase("Cannot discard now")
	}
	if !containsCard(g.Hands[player], card) {
		return ErrCardNotInHand
	}

	g.Hands[player] = removeCards(g.Hands[player], []Card{card})
	g.Discard = append(g.Discard, card)

	if len(g.Hands[player]) == 0 {
		g.finish()
		return nil
	}

	g.Turn = g.opponent(player)
	g.Phase = PhaseDraw
	return nil
}

// ReorderHand lets a player arrange their own cards. The new order must be
// the same multiset as the current hand: every card accounted for exactly
// once, so a request repeating a card cannot overwrite what the hand holds.
func (g *Game) ReorderHand(player string, cards []Card) error {
	if !g.isPlayer(player) {
		return ErrNotYourTurn
	}
	hand := g.Hands[player]
	if len(cards) != len(hand) {
		return ErrCardsNotInHand
	}
	counts := make(map[Card]int, len(hand))
	for _, c := range hand {
		counts[c]++
	}
	for _, c := range cards {
		if counts[c] == 0 {
			return ErrCardsNotInHand
		}
		counts[c]--
	}
	g.Hands[player] = append([]Card{}, cards...)
	return nil
}

// Forfeit ends the game immediately; the other player wins.
func (g *Game) Forfeit(player string) error {
	if !g.isPlayer(player) {
		return ErrNotYourTurn
	}
	if g.Phase.terminal() {
		return ErrGameOver
	}
	g.Phase = PhaseForfeit
	g.Winner = g.opponent(player)
	return nil
}

// finish computes net scores: points a player contributed across all meld
// edges, minus the points left in the other player's hand.
func (g *Game) finish() {
	g.Phase = PhaseDone
	g.Scores = make(map[string]int, len(g.Players))

	played := make(map[string]int, len(g.Players))
	for _, m := range g.Melds {
		for _, edge := range m.Edges {
			for _, card := range edge.Cards {
				played[edge.Owner] += card.Value()
			}
		}
	}

	for _, p := range g.Players {
		remaining := 0
		for _, card := range g.Hands[g.opponent(p)] {
			remaining += card.Value()
		}
		g.Scores[p] = played[p] - remaining
	}

	best, winner, tie := 0, "", false
	for _, p := range g.Players {
		switch {
		case winner == "" || g.Scores[p] > best:
			best, winner, tie = g.Scores[p], p, false
		case g.Scores[p] == best:
			tie = true
		}
	}
	if !tie {
		g.Winner = winner
	}
}

func (g *Game) meldByID(id string) *Meld {
	for _, m := range g.Melds {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func containsCard(cards []Card, card Card) bool {
	for _, c := range cards {
		if c == card {
			return true
		}
	}
	return false
}

func containsAll(cards []Card, subset []Card) bool {
	for _, c := range subset {
		if !containsCard(cards, c) {
			return false
		}
	}
	return true
}

func removeCards(cards []Card, toRemove []Card) []Card {
	kept := make([]Card, 0, len(cards))
	for _, c := range cards {
		if !containsCard(toRemove, c) {
			kept = append(kept, c)
		}
	}
	return kept
}
