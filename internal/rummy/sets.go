package rummy

import "sort"

// Kind classifies a validated set.
type Kind int

const (
	KindSingle Kind = iota
	KindSameValue
	KindStraight
)

var kindString = map[Kind]string{
	KindSingle:    "Single",
	KindSameValue: "Same Value",
	KindStraight:  "Straight",
}

func (k Kind) String() string {
	return kindString[k]
}

// rankIndex places a rank on one of the two fixed total orders. Ace-low runs
// Ace<2<...<King, ace-high runs 2<...<King<Ace.
func rankIndex(r Rank, aceHigh bool) int {
	if aceHigh && r == Ace {
		return int(King) + 1
	}
	return int(r)
}

// CompareCards orders a against b by rank under the chosen ace placement.
func CompareCards(a, b Card, aceHigh bool) int {
	return rankIndex(a.Rank, aceHigh) - rankIndex(b.Rank, aceHigh)
}

func sortByRank(cards []Card, aceHigh bool) []Card {
	sorted := make([]Card, len(cards))
	copy(sorted, cards)
	sort.Slice(sorted, func(i, j int) bool {
		return CompareCards(sorted[i], sorted[j], aceHigh) < 0
	})
	return sorted
}

func contiguous(sorted []Card, aceHigh bool) bool {
	for i := 1; i < len(sorted); i++ {
		if rankIndex(sorted[i].Rank, aceHigh) != rankIndex(sorted[i-1].Rank, aceHigh)+1 {
			return false
		}
	}
	return true
}

// orderStraight sorts the cards into a gapless ascending run, trying ace-low
// first and ace-high second. A run valid under neither order is rejected.
func orderStraight(cards []Card) ([]Card, error) {
	sorted := sortByRank(cards, false)
	if contiguous(sorted, false) {
		return sorted, nil
	}
	sorted = sortByRank(cards, true)
	if contiguous(sorted, true) {
		return sorted, nil
	}
	return nil, ErrInvalidRun
}

// aceHighFor picks the rank order applicable to an existing card set: ace is
// high when a King is present without a 2.
func aceHighFor(cards []Card) bool {
	hasKing, hasTwo := false, false
	for _, c := range cards {
		if c.Rank == King {
			hasKing = true
		}
		if c.Rank == Two {
			hasTwo = true
		}
	}
	return hasKing && !hasTwo
}

// Validate classifies cards as a Single, Same Value set, or Straight, and
// returns them in play order (ascending rank for straights). strict demands a
// standalone set of at least three cards; lenient validation is used for
// collections that will be combined with an existing set or discard run.
func Validate(cards []Card, strict bool) (Kind, []Card, error) {
	if len(cards) == 0 {
		return 0, nil, ErrRandomCards
	}

	seen := make(map[Card]bool, len(cards))
	for _, c := range cards {
		if !c.valid() {
			return 0, nil, ErrInvalidCard
		}
		if seen[c] {
			return 0, nil, ErrDuplicateCard
		}
		seen[c] = true
	}

	if len(cards) == 1 {
		// A single card is a placeholder set awaiting continuation.
		return KindSingle, cards, nil
	}

	if strict && len(cards) < 3 {
		return 0, nil, ErrTooFewCards
	}

	if sameSuit(cards) && distinctRanks(cards) && len(cards) <= 13 {
		ordered, err := orderStraight(cards)
		if err != nil {
			return 0, nil, err
		}
		return KindStraight, ordered, nil
	}

	if sameRank(cards) && len(cards) <= 4 {
		// Suits are distinct: duplicates were rejected above.
		return KindSameValue, sortBySuit(cards), nil
	}

	return 0, nil, ErrRandomCards
}

func sameSuit(cards []Card) bool {
	for _, c := range cards[1:] {
		if c.Suit != cards[0].Suit {
			return false
		}
	}
	return true
}

func sameRank(cards []Card) bool {
	for _, c := range cards[1:] {
		if c.Rank != cards[0].Rank {
			return false
		}
	}
	return true
}

func distinctRanks(cards []Card) bool {
	seen := make(map[Rank]bool, len(cards))
	for _, c := range cards {
		if seen[c.Rank] {
			return false
		}
		seen[c.Rank] = true
	}
	return true
}

func sortBySuit(cards []Card) []Card {
	sorted := make([]Card, len(cards))
	copy(sorted, cards)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Suit < sorted[j].Suit
	})
	return sorted
}
