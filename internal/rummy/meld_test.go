package rummy_test

import (
	"errors"
	"testing"

	"rummy-server/internal/rummy"
)

func newStraightMeld(t *testing.T, owner string, strs ...string) *rummy.Meld {
	t.Helper()
	cards := mustCards(t, strs...)
	kind, ordered, err := rummy.Validate(cards, true)
	if err != nil {
		t.Fatalf("bad meld cards: %v", err)
	}
	return rummy.NewMeld("m1", kind, owner, ordered)
}

func assertCards(t *testing.T, got []rummy.Card, want ...string) {
	t.Helper()
	expected := mustCards(t, want...)
	if len(got) != len(expected) {
		t.Fatalf("got %d cards, want %d", len(got), len(expected))
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("cards[%d] = %s, want %s", i, got[i], expected[i])
		}
	}
}

func TestExtendSameOwnerMerges(t *testing.T) {
	m := newStraightMeld(t, "alice", "5 of Spades", "6 of Spades", "7 of Spades")

	if err := m.Extend(mustCards(t, "8 of Spades"), "alice"); err != nil {
		t.Fatalf("Extend failed: %v", err)
	}
	if err := m.Extend(mustCards(t, "9 of Spades"), "alice"); err != nil {
		t.Fatalf("Extend failed: %v", err)
	}

	assertCards(t, m.Cards(), "5 of Spades", "6 of Spades", "7 of Spades", "8 of Spades", "9 of Spades")
	if m.Low != 14 || m.High != 14 {
		t.Errorf("Same-owner extension should not allocate edges, low=%d high=%d", m.Low, m.High)
	}
}

func TestExtendAssociative(t *testing.T) {
	oneByOne := newStraightMeld(t, "alice", "5 of Spades", "6 of Spades", "7 of Spades")
	batch := newStraightMeld(t, "alice", "5 of Spades", "6 of Spades", "7 of Spades")

	if err := oneByOne.Extend(mustCards(t, "8 of Spades"), "bob"); err != nil {
		t.Fatalf("Extend failed: %v", err)
	}
	if err := oneByOne.Extend(mustCards(t, "9 of Spades"), "bob"); err != nil {
		t.Fatalf("Extend failed: %v", err)
	}
	if err := batch.Extend(mustCards(t, "8 of Spades", "9 of Spades"), "bob"); err != nil {
		t.Fatalf("Extend failed: %v", err)
	}

	want := batch.Cards()
	got := oneByOne.Cards()
	if len(got) != len(want) {
		t.Fatalf("card sets differ: %d vs %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("cards[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestExtendBelowAllocatesEdge(t *testing.T) {
	m := newStraightMeld(t, "alice", "5 of Spades", "6 of Spades", "7 of Spades")

	if err := m.Extend(mustCards(t, "3 of Spades", "4 of Spades"), "bob"); err != nil {
		t.Fatalf("Extend failed: %v", err)
	}

	assertCards(t, m.Cards(), "3 of Spades", "4 of Spades", "5 of Spades", "6 of Spades", "7 of Spades")
	if m.Low != 13 {
		t.Errorf("Expected new edge at 13, low=%d", m.Low)
	}
	if owners := m.EdgeOwners(); owners[0] != "bob" || owners[1] != "alice" {
		t.Errorf("Edge owners = %v", owners)
	}
}

func TestExtendAceHigh(t *testing.T) {
	m := newStraightMeld(t, "alice", "Jack of Hearts", "Queen of Hearts", "King of Hearts")

	if err := m.Extend(mustCards(t, "Ace of Hearts"), "bob"); err != nil {
		t.Fatalf("Extend failed: %v", err)
	}

	assertCards(t, m.Cards(), "Jack of Hearts", "Queen of Hearts", "King of Hearts", "Ace of Hearts")
}

func TestExtendRejectsGap(t *testing.T) {
	m := newStraightMeld(t, "alice", "5 of Spades", "6 of Spades", "7 of Spades")

	err := m.Extend(mustCards(t, "9 of Spades"), "bob")
	if !errors.Is(err, rummy.ErrNotContiguous) {
		t.Errorf("Expected ErrNotContiguous for a gapped run, got %v", err)
	}
}

func TestExtendRejectsWrongSuit(t *testing.T) {
	m := newStraightMeld(t, "alice", "5 of Spades", "6 of Spades", "7 of Spades")

	err := m.Extend(mustCards(t, "8 of Hearts"), "bob")
	if !errors.Is(err, rummy.ErrNotContiguous) {
		t.Errorf("Expected ErrNotContiguous for another suit, got %v", err)
	}
}

func TestNonOwnerCannotOpenBothEnds(t *testing.T) {
	m := newStraightMeld(t, "alice", "5 of Spades", "6 of Spades", "7 of Spades")

	if err := m.Extend(mustCards(t, "4 of Spades"), "bob"); err != nil {
		t.Fatalf("Extend failed: %v", err)
	}

	err := m.Extend(mustCards(t, "8 of Spades"), "bob")
	if !errors.Is(err, rummy.ErrAlreadyContinued) {
		t.Errorf("Expected ErrAlreadyContinued, got %v", err)
	}

	// The owner of record is still free to grow the other end.
	if err := m.Extend(mustCards(t, "8 of Spades"), "alice"); err != nil {
		t.Errorf("Owner extension failed: %v", err)
	}
}

func TestSameValueExtension(t *testing.T) {
	cards := mustCards(t, "7 of Hearts", "7 of Clubs", "7 of Diamonds")
	m := rummy.NewMeld("m1", rummy.KindSameValue, "alice", cards)

	if err := m.Extend(mustCards(t, "7 of Spades"), "bob"); err != nil {
		t.Fatalf("Extend failed: %v", err)
	}
	if len(m.Cards()) != 4 {
		t.Fatalf("Expected 4 cards, got %d", len(m.Cards()))
	}

	err := m.Extend(mustCards(t, "8 of Spades"), "bob")
	if !errors.Is(err, rummy.ErrAlreadyContinued) {
		t.Errorf("A full same-value set should reject continuation, got %v", err)
	}
}

func TestSinglePlaceholderContinuation(t *testing.T) {
	m := rummy.NewMeld("m1", rummy.KindSingle, "alice", mustCards(t, "6 of Clubs"))

	if err := m.Extend(mustCards(t, "7 of Clubs", "8 of Clubs"), "alice"); err != nil {
		t.Fatalf("Extend failed: %v", err)
	}

	if m.Kind != rummy.KindStraight {
		t.Errorf("Single should adopt the continuation kind, got %s", m.Kind)
	}
	assertCards(t, m.Cards(), "6 of Clubs", "7 of Clubs", "8 of Clubs")
}

func TestCanExtendDoesNotMutate(t *testing.T) {
	m := newStraightMeld(t, "alice", "5 of Spades", "6 of Spades", "7 of Spades")

	if err := m.CanExtend(mustCards(t, "8 of Spades")); err != nil {
		t.Fatalf("CanExtend failed: %v", err)
	}
	if len(m.Cards()) != 3 {
		t.Errorf("CanExtend mutated the meld: %d cards", len(m.Cards()))
	}
}

func TestCanExtendByAppliesDirectionPolicy(t *testing.T) {
	m := newStraightMeld(t, "alice", "5 of Spades", "6 of Spades", "7 of Spades")

	if err := m.Extend(mustCards(t, "4 of Spades"), "bob"); err != nil {
		t.Fatalf("Extend failed: %v", err)
	}

	err := m.CanExtendBy(mustCards(t, "8 of Spades"), "bob")
	if !errors.Is(err, rummy.ErrAlreadyContinued) {
		t.Errorf("Expected ErrAlreadyContinued for bob's second direction, got %v", err)
	}
	if err := m.CanExtendBy(mustCards(t, "8 of Spades"), "alice"); err != nil {
		t.Errorf("Owner check failed: %v", err)
	}
	if len(m.Cards()) != 4 {
		t.Errorf("CanExtendBy mutated the meld: %d cards", len(m.Cards()))
	}
}
