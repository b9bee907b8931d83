package rummy

import (
	"errors"
	"sort"
)

// edgeOrigin is the ledger key both edges start at. Extensions walk the keys
// outward, one per continuation, so traversal never follows pointers.
const edgeOrigin = 14

// Edge is one contiguous extension of a meld: who played it and which cards.
type Edge struct {
	Owner string `json:"owner"`
	Cards []Card `json:"cards"`
}

// Meld is a played set on the table. Low and High bound the allocated ledger
// keys; the cards across all edges stay exactly consecutive in the meld's
// kind semantics.
type Meld struct {
	ID    string       `json:"id"`
	Kind  Kind         `json:"kind"`
	Owner string       `json:"owner"`
	Low   int          `json:"low"`
	High  int          `json:"high"`
	Edges map[int]Edge `json:"edges"`
}

// NewMeld allocates a meld with a single edge holding all initial cards.
// The cards are assumed already validated and ordered.
func NewMeld(id string, kind Kind, owner string, cards []Card) *Meld {
	return &Meld{
		ID:    id,
		Kind:  kind,
		Owner: owner,
		Low:   edgeOrigin,
		High:  edgeOrigin,
		Edges: map[int]Edge{
			edgeOrigin: {Owner: owner, Cards: cards},
		},
	}
}

// Cards walks the ledger from the low key upward, collecting cards in rank
// order for straights.
func (m *Meld) Cards() []Card {
	var cards []Card
	for key := m.Low; key <= m.High; key++ {
		if edge, ok := m.Edges[key]; ok {
			cards = append(cards, edge.Cards...)
		}
	}
	return cards
}

// CanExtend reports whether cards would legally continue the meld, without
// mutating it.
func (m *Meld) CanExtend(cards []Card) error {
	_, _, _, err := m.extension(cards)
	return err
}

// CanExtendBy additionally applies the open-direction policy for player, so
// a continuation that CanExtend accepts can still be ruled out here.
func (m *Meld) CanExtendBy(cards []Card, player string) error {
	_, _, below, err := m.extension(cards)
	if err != nil {
		return err
	}
	if player != m.Owner {
		return m.checkOpenDirection(player, below)
	}
	return nil
}

// Extend attaches cards to the meld on behalf of owner. Same-owner
// continuations merge into the boundary edge; a different owner gets a fresh
// edge one key beyond the boundary, recording credit for scoring.
func (m *Meld) Extend(cards []Card, owner string) error {
	kind, run, below, err := m.extension(cards)
	if err != nil {
		return err
	}

	if owner != m.Owner {
		if err := m.checkOpenDirection(owner, below); err != nil {
			return err
		}
	}

	if below {
		edge, ok := m.Edges[m.Low]
		if ok && edge.Owner == owner {
			edge.Cards = append(append([]Card{}, run...), edge.Cards...)
			m.Edges[m.Low] = edge
		} else {
			m.Low--
			m.Edges[m.Low] = Edge{Owner: owner, Cards: run}
		}
	} else {
		edge, ok := m.Edges[m.High]
		if ok && edge.Owner == owner {
			edge.Cards = append(edge.Cards, run...)
			m.Edges[m.High] = edge
		} else {
			m.High++
			m.Edges[m.High] = Edge{Owner: owner, Cards: run}
		}
	}

	// A Single placeholder takes on the kind of its first continuation.
	m.Kind = kind
	return nil
}

// extension validates cards against the current ledger and resolves the
// attachment direction. The returned run is ordered low to high.
func (m *Meld) extension(cards []Card) (kind Kind, run []Card, below bool, err error) {
	if len(cards) == 0 {
		return 0, nil, false, ErrNotContiguous
	}

	current := m.Cards()

	if m.Kind == KindSameValue && len(current) >= 4 {
		// Four suits down: nothing can continue this meld.
		return 0, nil, false, ErrAlreadyContinued
	}

	combined := append(append([]Card{}, current...), cards...)
	kind, _, err = Validate(combined, false)
	if err != nil {
		// A combination that fails as a set means the cards do not continue
		// this meld; duplicate or malformed cards keep their own codes.
		if errors.Is(err, ErrInvalidRun) || errors.Is(err, ErrRandomCards) {
			return 0, nil, false, ErrNotContiguous
		}
		return 0, nil, false, err
	}
	if m.Kind != KindSingle && kind != m.Kind {
		return 0, nil, false, ErrNotContiguous
	}

	if kind == KindSameValue {
		return kind, sortBySuit(cards), false, nil
	}

	// Straight: the incoming run must sit entirely beyond one boundary under
	// the order applicable to the combined card set.
	aceHigh := aceHighFor(combined)
	run = sortByRank(cards, aceHigh)

	sorted := sortByRank(current, aceHigh)
	lowest, highest := sorted[0], sorted[len(sorted)-1]

	switch {
	case CompareCards(run[len(run)-1], lowest, aceHigh) < 0:
		return kind, run, true, nil
	case CompareCards(run[0], highest, aceHigh) > 0:
		return kind, run, false, nil
	default:
		return 0, nil, false, ErrNotContiguous
	}
}

// checkOpenDirection enforces one open extension direction per non-owner:
// a player who already holds an edge on one end of the ledger may keep
// growing it, but may not open the opposite end as well.
func (m *Meld) checkOpenDirection(owner string, below bool) error {
	if below {
		if edge, ok := m.Edges[m.Low]; ok && edge.Owner == owner {
			return nil
		}
		for key := edgeOrigin + 1; key <= m.High; key++ {
			if m.Edges[key].Owner == owner {
				return ErrAlreadyContinued
			}
		}
	} else {
		if edge, ok := m.Edges[m.High]; ok && edge.Owner == owner {
			return nil
		}
		for key := edgeOrigin - 1; key >= m.Low; key-- {
			if m.Edges[key].Owner == owner {
				return ErrAlreadyContinued
			}
		}
	}
	return nil
}

// EdgeOwners lists the owners holding edges, low key first. Used for score
// attribution and presentation.
func (m *Meld) EdgeOwners() []string {
	keys := make([]int, 0, len(m.Edges))
	for key := range m.Edges {
		keys = append(keys, key)
	}
	sort.Ints(keys)
	owners := make([]string, 0, len(keys))
	for _, key := range keys {
		owners = append(owners, m.Edges[key].Owner)
	}
	return owners
}
