package rummy_test

import (
	"errors"
	"testing"

	"rummy-server/internal/rummy"
)

// fixedGame builds a two-player game in the draw phase with chosen hands, a
// seeded discard pile, and an unshuffled deck cursored past the dealt cards.
func fixedGame(t *testing.T, aliceHand, bobHand, discard []string) *rummy.Game {
	t.Helper()
	deck := rummy.NewDeck()
	deck.Dealt = 15

	return &rummy.Game{
		ID:      "g1",
		Players: []string{"alice", "bob"},
		Hands: map[string][]rummy.Card{
			"alice": mustCards(t, aliceHand...),
			"bob":   mustCards(t, bobHand...),
		},
		Deck:    deck,
		Discard: mustCards(t, discard...),
		Turn:    "alice",
		Phase:   rummy.PhaseDraw,
	}
}

func TestJoinDealsAlternately(t *testing.T) {
	g := rummy.NewGame("g1", "alice")
	g.Deck = rummy.NewDeck() // deterministic order

	if err := g.Join("bob"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	if len(g.Hands["alice"]) != 7 || len(g.Hands["bob"]) != 7 {
		t.Fatalf("Hands should hold 7 cards each, got %d and %d",
			len(g.Hands["alice"]), len(g.Hands["bob"]))
	}

	// Creator receives the even deck offsets, joiner the odd ones.
	assertCards(t, g.Hands["alice"][:3], "Ace of Spades", "3 of Spades", "5 of Spades")
	assertCards(t, g.Hands["bob"][:3], "2 of Spades", "4 of Spades", "6 of Spades")

	assertCards(t, g.Discard, "2 of Hearts")
	if g.Deck.Dealt != 15 {
		t.Errorf("Deck cursor should be 15, got %d", g.Deck.Dealt)
	}
	if g.Phase != rummy.PhaseDraw || g.Turn != "alice" {
		t.Errorf("Expected alice to draw first, phase=%s turn=%s", g.Phase, g.Turn)
	}
}

func TestJoinRejections(t *testing.T) {
	g := rummy.NewGame("g1", "alice")

	if err := g.Join("alice"); !errors.Is(err, rummy.ErrSelfJoin) {
		t.Errorf("Self join error = %v", err)
	}
	if err := g.Join("bob"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if err := g.Join("carol"); !errors.Is(err, rummy.ErrAlreadyJoined) {
		t.Errorf("Third join error = %v", err)
	}
}

func TestPickupDeck(t *testing.T) {
	g := fixedGame(t,
		[]string{"Ace of Spades", "3 of Spades"},
		[]string{"2 of Spades", "4 of Spades"},
		[]string{"2 of Hearts"})

	if err := g.PickupDeck("bob"); !errors.Is(err, rummy.ErrNotYourTurn) {
		t.Errorf("Off-turn draw error = %v", err)
	}

	if err := g.PickupDeck("alice"); err != nil {
		t.Fatalf("PickupDeck failed: %v", err)
	}
	if len(g.Hands["alice"]) != 3 {
		t.Errorf("Hand should grow by one, got %d", len(g.Hands["alice"]))
	}
	if g.Phase != rummy.PhasePlay {
		t.Errorf("Phase should be play, got %s", g.Phase)
	}

	if err := g.PickupDeck("alice"); !errors.Is(err, &rummy.Error{Code: rummy.CodeWrongPhase}) {
		t.Errorf("Second draw error = %v", err)
	}
}

func TestPlayThenDiscardFlipsTurn(t *testing.T) {
	g := fixedGame(t,
		[]string{"7 of Hearts", "7 of Clubs", "7 of Diamonds", "2 of Clubs", "9 of Spades", "10 of Diamonds", "Queen of Clubs"},
		[]string{"2 of Spades", "4 of Spades", "6 of Spades", "8 of Spades", "10 of Spades", "Queen of Spades", "Ace of Hearts"},
		[]string{"2 of Hearts"})

	if err := g.PickupDeck("alice"); err != nil {
		t.Fatalf("PickupDeck failed: %v", err)
	}
	if len(g.Hands["alice"]) != 8 {
		t.Fatalf("Hand should be 8 after drawing, got %d", len(g.Hands["alice"]))
	}

	meldCards := mustCards(t, "7 of Hearts", "7 of Clubs", "7 of Diamonds")
	if err := g.PlayCards("alice", meldCards, ""); err != nil {
		t.Fatalf("PlayCards failed: %v", err)
	}
	if len(g.Hands["alice"]) != 5 {
		t.Errorf("Hand should be 5 after melding, got %d", len(g.Hands["alice"]))
	}
	if len(g.Melds) != 1 || g.Melds[0].Kind != rummy.KindSameValue {
		t.Fatalf("Expected one same-value meld, got %v", g.Melds)
	}

	if err := g.DiscardCard("alice", mustCards(t, "2 of Clubs")[0]); err != nil {
		t.Fatalf("Discard failed: %v", err)
	}
	if len(g.Hands["alice"]) != 4 {
		t.Errorf("Hand should be 4 after discarding, got %d", len(g.Hands["alice"]))
	}
	if g.Turn != "bob" || g.Phase != rummy.PhaseDraw {
		t.Errorf("Turn should flip to bob in draw, got turn=%s phase=%s", g.Turn, g.Phase)
	}
	assertCards(t, g.Discard, "2 of Hearts", "2 of Clubs")
}

func TestPlayCardsRejections(t *testing.T) {
	g := fixedGame(t,
		[]string{"7 of Hearts", "7 of Clubs", "7 of Diamonds"},
		[]string{"2 of Spades", "4 of Spades", "6 of Spades"},
		[]string{"2 of Hearts"})
	g.Phase = rummy.PhasePlay

	if err := g.PlayCards("bob", mustCards(t, "2 of Spades"), ""); !errors.Is(err, rummy.ErrNotYourTurn) {
		t.Errorf("Off-turn play error = %v", err)
	}
	if err := g.PlayCards("alice", mustCards(t, "8 of Hearts"), ""); !errors.Is(err, rummy.ErrCardsNotInHand) {
		t.Errorf("Missing card error = %v", err)
	}

	// Playing the whole hand would leave nothing to discard.
	all := mustCards(t, "7 of Hearts", "7 of Clubs", "7 of Diamonds")
	if err := g.PlayCards("alice", all, ""); !errors.Is(err, rummy.ErrMustRetainDiscard) {
		t.Errorf("Full-hand play error = %v", err)
	}
}

func TestForcedCardFlow(t *testing.T) {
	g := fixedGame(t,
		[]string{"5 of Spades", "5 of Hearts", "9 of Clubs", "King of Clubs"},
		[]string{"2 of Spades", "4 of Spades", "6 of Spades"},
		[]string{"9 of Hearts", "5 of Diamonds"})

	// Claiming the 5 of Diamonds only works with hand cards, so the run
	// moves straight into the hand with the claimed card forced.
	if err := g.PickupDiscard("alice", 1); err != nil {
		t.Fatalf("PickupDiscard failed: %v", err)
	}
	if g.Phase != rummy.PhaseDiscardPlay {
		t.Fatalf("Phase should be discardPlay, got %s", g.Phase)
	}
	if g.ForcedCard == nil || g.ForcedCard.String() != "5 of Diamonds" {
		t.Fatalf("Forced card = %v", g.ForcedCard)
	}
	if len(g.Hands["alice"]) != 5 {
		t.Errorf("Hand should hold the claimed run, got %d cards", len(g.Hands["alice"]))
	}
	assertCards(t, g.Discard, "9 of Hearts")

	// Discarding before playing the forced card is rejected.
	err := g.DiscardCard("alice", mustCards(t, "9 of Clubs")[0])
	if !errors.Is(err, &rummy.Error{Code: rummy.CodeMustPlayForcedCard}) {
		t.Fatalf("Expected forced-card discard rejection, got %v", err)
	}

	// So is a set that leaves the forced card in hand.
	err = g.PlayCards("alice", mustCards(t, "5 of Spades", "5 of Hearts"), "")
	if !errors.Is(err, &rummy.Error{Code: rummy.CodeForcedCardNotPlayed}) {
		t.Fatalf("Expected forced-card play rejection, got %v", err)
	}

	if err := g.PlayCards("alice", mustCards(t, "5 of Spades", "5 of Hearts", "5 of Diamonds"), ""); err != nil {
		t.Fatalf("PlayCards failed: %v", err)
	}
	if g.ForcedCard != nil || g.Phase != rummy.PhasePlay {
		t.Errorf("Forced card should clear into play phase, got %v %s", g.ForcedCard, g.Phase)
	}

	if err := g.DiscardCard("alice", mustCards(t, "9 of Clubs")[0]); err != nil {
		t.Fatalf("Discard failed: %v", err)
	}
	if g.Turn != "bob" {
		t.Errorf("Turn should flip to bob, got %s", g.Turn)
	}
}

func TestUnusableDiscard(t *testing.T) {
	g := fixedGame(t,
		[]string{"Ace of Spades", "9 of Clubs", "Queen of Diamonds"},
		[]string{"2 of Spades", "4 of Spades", "6 of Spades"},
		[]string{"3 of Hearts", "Jack of Diamonds"})

	err := g.PickupDiscard("alice", 0)
	if !errors.Is(err, rummy.ErrUnusableDiscard) {
		t.Errorf("Expected ErrUnusableDiscard, got %v", err)
	}
	if g.Phase != rummy.PhaseDraw || len(g.Discard) != 2 {
		t.Errorf("Failed claim must not change state, phase=%s discard=%d", g.Phase, len(g.Discard))
	}
}

func TestOffTurnRummyClaim(t *testing.T) {
	g := fixedGame(t,
		[]string{"Ace of Spades", "9 of Clubs", "Queen of Diamonds"},
		[]string{"2 of Spades", "4 of Spades", "6 of Spades"},
		[]string{"8 of Hearts", "2 of Clubs"})
	g.Phase = rummy.PhasePlay // alice is mid-turn
	g.Melds = []*rummy.Meld{
		rummy.NewMeld("m1", rummy.KindStraight, "alice",
			mustCards(t, "5 of Hearts", "6 of Hearts", "7 of Hearts")),
	}

	// Bob claims the 8 of Hearts off turn: it continues the table straight.
	if err := g.PickupDiscard("bob", 0); err != nil {
		t.Fatalf("PickupDiscard failed: %v", err)
	}
	if g.Phase != rummy.PhaseRummy || g.Claimant != "bob" {
		t.Fatalf("Expected rummy interrupt for bob, phase=%s claimant=%s", g.Phase, g.Claimant)
	}
	if g.ResumePhase != rummy.PhasePlay {
		t.Errorf("Resume phase should be play, got %s", g.ResumePhase)
	}
	if len(g.Candidates) != 1 || !g.Candidates[0].Rummy {
		t.Fatalf("Expected a single rummy candidate, got %v", g.Candidates)
	}

	// Turn order is suspended: alice cannot act.
	if err := g.PlayCards("alice", mustCards(t, "9 of Clubs"), "m1"); err == nil {
		t.Error("Actions during a rummy interrupt should be rejected")
	}

	if err := g.ChooseCandidate("alice", 0); !errors.Is(err, rummy.ErrNotClaimant) {
		t.Errorf("Non-claimant choose error = %v", err)
	}

	if err := g.ChooseCandidate("bob", 0); err != nil {
		t.Fatalf("ChooseCandidate failed: %v", err)
	}

	assertCards(t, g.Melds[0].Cards(), "5 of Hearts", "6 of Hearts", "7 of Hearts", "8 of Hearts")
	if owners := g.Melds[0].EdgeOwners(); owners[len(owners)-1] != "bob" {
		t.Errorf("Bob should own the new edge, owners=%v", owners)
	}

	// The 2 of Clubs discarded after the claim goes to bob's hand.
	if len(g.Hands["bob"]) != 4 {
		t.Errorf("Bob's hand should hold the kept card, got %d", len(g.Hands["bob"]))
	}
	if len(g.Discard) != 0 {
		t.Errorf("Claimed suffix should leave the pile, got %d", len(g.Discard))
	}
	if g.Phase != rummy.PhasePlay || g.Turn != "alice" {
		t.Errorf("Play should resume for alice, phase=%s turn=%s", g.Phase, g.Turn)
	}
}

func TestCancelClaimRestoresPhase(t *testing.T) {
	g := fixedGame(t,
		[]string{"Ace of Spades", "9 of Clubs", "Queen of Diamonds"},
		[]string{"2 of Spades", "4 of Spades", "6 of Spades"},
		[]string{"8 of Hearts"})
	g.Phase = rummy.PhasePlay
	g.Melds = []*rummy.Meld{
		rummy.NewMeld("m1", rummy.KindStraight, "alice",
			mustCards(t, "5 of Hearts", "6 of Hearts", "7 of Hearts")),
	}

	if err := g.PickupDiscard("bob", 0); err != nil {
		t.Fatalf("PickupDiscard failed: %v", err)
	}
	if err := g.CancelClaim("bob"); err != nil {
		t.Fatalf("CancelClaim failed: %v", err)
	}

	if g.Phase != rummy.PhasePlay || g.Claimant != "" {
		t.Errorf("Cancel should restore phase, phase=%s claimant=%q", g.Phase, g.Claimant)
	}
	if len(g.Discard) != 1 || len(g.Hands["bob"]) != 3 {
		t.Errorf("Cancel must not move cards, discard=%d hand=%d", len(g.Discard), len(g.Hands["bob"]))
	}
}

func TestOnTurnClaimAmbiguityAndCancel(t *testing.T) {
	// The 8 of Hearts both continues the table straight (rummy) and melds
	// with alice's hand cards, so the claim is surfaced for a choice.
	g := fixedGame(t,
		[]string{"8 of Spades", "8 of Clubs", "9 of Diamonds"},
		[]string{"2 of Spades", "4 of Spades", "6 of Spades"},
		[]string{"8 of Hearts"})
	g.Melds = []*rummy.Meld{
		rummy.NewMeld("m1", rummy.KindStraight, "alice",
			mustCards(t, "5 of Hearts", "6 of Hearts", "7 of Hearts")),
	}

	if err := g.PickupDiscard("alice", 0); err != nil {
		t.Fatalf("PickupDiscard failed: %v", err)
	}
	if g.Phase != rummy.PhaseRummy {
		t.Fatalf("Expected rummy phase, got %s", g.Phase)
	}

	// Cancelling falls back to the plain pickup with the card forced.
	if err := g.CancelClaim("alice"); err != nil {
		t.Fatalf("CancelClaim failed: %v", err)
	}
	if g.Phase != rummy.PhaseDiscardPlay {
		t.Errorf("Cancel should fall into discardPlay, got %s", g.Phase)
	}
	if g.ForcedCard == nil || g.ForcedCard.String() != "8 of Hearts" {
		t.Errorf("Forced card = %v", g.ForcedCard)
	}
	if len(g.Hands["alice"]) != 4 {
		t.Errorf("Run should move to hand on cancel, got %d cards", len(g.Hands["alice"]))
	}
}

func TestOnTurnClaimChooseConsumesDraw(t *testing.T) {
	g := fixedGame(t,
		[]string{"8 of Spades", "8 of Clubs", "9 of Diamonds"},
		[]string{"2 of Spades", "4 of Spades", "6 of Spades"},
		[]string{"8 of Hearts"})
	g.Melds = []*rummy.Meld{
		rummy.NewMeld("m1", rummy.KindStraight, "alice",
			mustCards(t, "5 of Hearts", "6 of Hearts", "7 of Hearts")),
	}

	if err := g.PickupDiscard("alice", 0); err != nil {
		t.Fatalf("PickupDiscard failed: %v", err)
	}

	// Pick the candidate that melds the claimed 8 with the hand 8s.
	chosen := -1
	for i, c := range g.Candidates {
		if !c.Rummy && c.MeldID == "" {
			chosen = i
			break
		}
	}
	if chosen == -1 {
		t.Fatalf("No on-turn candidate offered: %v", g.Candidates)
	}

	if err := g.ChooseCandidate("alice", chosen); err != nil {
		t.Fatalf("ChooseCandidate failed: %v", err)
	}

	if g.Phase != rummy.PhasePlay {
		t.Errorf("On-turn claim should continue in play, got %s", g.Phase)
	}
	if len(g.Melds) != 2 {
		t.Errorf("Expected a new meld, got %d", len(g.Melds))
	}
	if len(g.Hands["alice"]) != 1 {
		t.Errorf("Hand should shrink to 1, got %d", len(g.Hands["alice"]))
	}
}

func TestGoingOutScoresGame(t *testing.T) {
	g := fixedGame(t,
		[]string{"7 of Hearts", "7 of Clubs", "7 of Diamonds", "2 of Clubs"},
		[]string{"Queen of Spades", "2 of Diamonds"},
		[]string{"2 of Hearts"})
	g.Phase = rummy.PhasePlay

	if err := g.PlayCards("alice", mustCards(t, "7 of Hearts", "7 of Clubs", "7 of Diamonds"), ""); err != nil {
		t.Fatalf("PlayCards failed: %v", err)
	}
	if err := g.DiscardCard("alice", mustCards(t, "2 of Clubs")[0]); err != nil {
		t.Fatalf("Discard failed: %v", err)
	}

	if g.Phase != rummy.PhaseDone {
		t.Fatalf("Game should finish when a hand empties, phase=%s", g.Phase)
	}

	// Alice played 21 points of sevens; bob holds 12 points against her.
	if got := g.Scores["alice"]; got != 21-12 {
		t.Errorf("Alice's score = %d, want %d", got, 21-12)
	}
	if got := g.Scores["bob"]; got != 0 {
		t.Errorf("Bob's score = %d, want 0", got)
	}
	if g.Winner != "alice" {
		t.Errorf("Winner = %q, want alice", g.Winner)
	}
}

func TestForfeit(t *testing.T) {
	g := fixedGame(t,
		[]string{"Ace of Spades"},
		[]string{"2 of Spades"},
		[]string{"2 of Hearts"})

	if err := g.Forfeit("bob"); err != nil {
		t.Fatalf("Forfeit failed: %v", err)
	}
	if g.Phase != rummy.PhaseForfeit || g.Winner != "alice" {
		t.Errorf("Forfeit outcome: phase=%s winner=%s", g.Phase, g.Winner)
	}

	if err := g.Forfeit("alice"); !errors.Is(err, rummy.ErrGameOver) {
		t.Errorf("Forfeit after the end error = %v", err)
	}
}

func TestReorderHand(t *testing.T) {
	g := fixedGame(t,
		[]string{"Ace of Spades", "9 of Clubs", "Queen of Diamonds"},
		[]string{"2 of Spades"},
		[]string{"2 of Hearts"})

	reordered := mustCards(t, "Queen of Diamonds", "Ace of Spades", "9 of Clubs")
	if err := g.ReorderHand("alice", reordered); err != nil {
		t.Fatalf("ReorderHand failed: %v", err)
	}
	assertCards(t, g.Hands["alice"], "Queen of Diamonds", "Ace of Spades", "9 of Clubs")

	err := g.ReorderHand("alice", mustCards(t, "Queen of Diamonds", "Ace of Spades"))
	if !errors.Is(err, rummy.ErrCardsNotInHand) {
		t.Errorf("Reorder with missing cards error = %v", err)
	}
}

func TestReorderHandRejectsDuplicatedCard(t *testing.T) {
	g := fixedGame(t,
		[]string{"Ace of Spades", "9 of Clubs", "Queen of Diamonds"},
		[]string{"2 of Spades"},
		[]string{"2 of Hearts"})

	// Same length as the hand, but the Ace appears twice and the Queen never.
	forged := mustCards(t, "Ace of Spades", "Ace of Spades", "9 of Clubs")
	err := g.ReorderHand("alice", forged)
	if !errors.Is(err, rummy.ErrCardsNotInHand) {
		t.Fatalf("Reorder with a duplicated card error = %v", err)
	}
	assertCards(t, g.Hands["alice"], "Ace of Spades", "9 of Clubs", "Queen of Diamonds")
}

func TestForcedCardBlocksAnotherPickup(t *testing.T) {
	g := fixedGame(t,
		[]string{"5 of Spades", "5 of Hearts", "9 of Clubs"},
		[]string{"2 of Spades", "4 of Spades", "6 of Spades"},
		[]string{"7 of Hearts", "7 of Clubs", "7 of Diamonds", "5 of Diamonds"})

	// Claiming the 5 of Diamonds forces it into alice's next play.
	if err := g.PickupDiscard("alice", 3); err != nil {
		t.Fatalf("PickupDiscard failed: %v", err)
	}
	if g.Phase != rummy.PhaseDiscardPlay || g.ForcedCard == nil {
		t.Fatalf("Expected a forced card in discardPlay, phase=%s forced=%v", g.Phase, g.ForcedCard)
	}

	// The 7s would stand alone as a rummy claim, but the forced card must be
	// played first.
	err := g.PickupDiscard("alice", 0)
	if !errors.Is(err, &rummy.Error{Code: rummy.CodeForcedCardNotPlayed}) {
		t.Fatalf("Second pickup error = %v", err)
	}
	if g.Phase != rummy.PhaseDiscardPlay || len(g.Discard) != 3 {
		t.Errorf("Rejected pickup must not change state, phase=%s discard=%d", g.Phase, len(g.Discard))
	}

	// The opponent holds no forced card and may still claim.
	if err := g.PickupDiscard("bob", 0); err != nil {
		t.Fatalf("Opponent claim failed: %v", err)
	}
	if g.Phase != rummy.PhaseRummy || g.Claimant != "bob" {
		t.Errorf("Expected rummy interrupt for bob, phase=%s claimant=%s", g.Phase, g.Claimant)
	}
}
