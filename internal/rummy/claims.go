package rummy

import "strings"

// Candidate is one legal way to use a claimed discard run. Candidates with
// Rummy set are playable using discard cards alone (possibly against an
// existing meld) and are valid off turn; the rest need hand cards and the
// claimant on turn.
type Candidate struct {
	MeldID       string `json:"meldId,omitempty"` // empty: creates a new meld
	DiscardCards []Card `json:"discardCards"`     // always includes the claimed card
	HandCards    []Card `json:"handCards,omitempty"`
	KeepCards    []Card `json:"keepCards"` // rest of the run, returned to hand
	Rummy        bool   `json:"rummy"`
}

// playCards is everything the candidate puts on the table.
func (c Candidate) playCards() []Card {
	return append(append([]Card{}, c.DiscardCards...), c.HandCards...)
}

func (c Candidate) key() string {
	var b strings.Builder
	b.WriteString(c.MeldID)
	b.WriteByte('|')
	for _, card := range sortBySuit(sortByRank(c.playCards(), false)) {
		b.WriteString(card.String())
		b.WriteByte(';')
	}
	return b.String()
}

// FindDiscardClaims enumerates every legal use of the claimed run by
// claimant. run[0] is the card at the named pile index and is mandatory in
// every combination; the remainder of the run may be used or kept. Meld
// continuations are checked with the claimant's edge ownership, so an option
// that would be rejected at commit time is never offered. The search is
// exponential in the run and hand sizes (2^|run|-1 x 2^|hand| combinations
// against each table meld) but both collections stay small in a two-player
// game.
func FindDiscardClaims(run []Card, hand []Card, melds []*Meld, claimant string) []Candidate {
	if len(run) == 0 {
		return nil
	}

	var candidates []Candidate
	seen := make(map[string]bool)
	record := func(c Candidate) {
		k := c.key()
		if !seen[k] {
			seen[k] = true
			candidates = append(candidates, c)
		}
	}

	tail := run[1:]
	for mask := 0; mask < 1<<len(tail); mask++ {
		combo := []Card{run[0]}
		var keep []Card
		for i, card := range tail {
			if mask&(1<<i) != 0 {
				combo = append(combo, card)
			} else {
				keep = append(keep, card)
			}
		}

		// Discard cards standing alone: an off-turn rummy claim.
		if len(combo) >= 3 {
			if _, _, err := Validate(combo, true); err == nil {
				record(Candidate{DiscardCards: combo, KeepCards: keep, Rummy: true})
			}
		}

		// Discard cards continuing a table meld: also a rummy claim.
		for _, m := range melds {
			if m.CanExtendBy(combo, claimant) == nil {
				record(Candidate{MeldID: m.ID, DiscardCards: combo, KeepCards: keep, Rummy: true})
			}
		}

		// Combined with hand cards: usable only by the player on turn.
		for hmask := 1; hmask < 1<<len(hand); hmask++ {
			var handCards []Card
			for i, card := range hand {
				if hmask&(1<<i) != 0 {
					handCards = append(handCards, card)
				}
			}
			full := append(append([]Card{}, combo...), handCards...)

			if len(full) >= 3 {
				if _, _, err := Validate(full, true); err == nil {
					record(Candidate{DiscardCards: combo, HandCards: handCards, KeepCards: keep})
				}
			}
			for _, m := range melds {
				if m.CanExtendBy(full, claimant) == nil {
					record(Candidate{MeldID: m.ID, DiscardCards: combo, HandCards: handCards, KeepCards: keep})
				}
			}
		}
	}

	return candidates
}

func rummyCandidates(candidates []Candidate) []Candidate {
	var out []Candidate
	for _, c := range candidates {
		if c.Rummy {
			out = append(out, c)
		}
	}
	return out
}

func hasOnTurnCandidate(candidates []Candidate) bool {
	for _, c := range candidates {
		if !c.Rummy {
			return true
		}
	}
	return false
}
