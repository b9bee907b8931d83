package rummy

import (
	"fmt"
	"math/rand"
	"strings"
)

type Suit int

const (
	Spades Suit = iota
	Hearts
	Clubs
	Diamonds
)

var suitString = map[Suit]string{
	Spades:   "Spades",
	Hearts:   "Hearts",
	Clubs:    "Clubs",
	Diamonds: "Diamonds",
}

func (s Suit) String() string {
	return suitString[s]
}

type Rank int

const (
	Ace Rank = iota + 1
	Two
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
)

var rankString = map[Rank]string{
	Ace:   "Ace",
	Two:   "2",
	Three: "3",
	Four:  "4",
	Five:  "5",
	Six:   "6",
	Seven: "7",
	Eight: "8",
	Nine:  "9",
	Ten:   "10",
	Jack:  "Jack",
	Queen: "Queen",
	King:  "King",
}

// Number cards score face value, court cards 10, Ace 15.
var pointValues = map[Rank]int{
	Ace:   15,
	Two:   2,
	Three: 3,
	Four:  4,
	Five:  5,
	Six:   6,
	Seven: 7,
	Eight: 8,
	Nine:  9,
	Ten:   10,
	Jack:  10,
	Queen: 10,
	King:  10,
}

func (r Rank) String() string {
	return rankString[r]
}

type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

func (c Card) Value() int {
	return pointValues[c.Rank]
}

func (c Card) String() string {
	return fmt.Sprintf("%s of %s", c.Rank.String(), c.Suit.String())
}

// valid reports membership in the 52-card universe.
func (c Card) valid() bool {
	return c.Rank >= Ace && c.Rank <= King && c.Suit >= Spades && c.Suit <= Diamonds
}

// ParseCard is the inverse of Card.String, e.g. "Ace of Spades".
func ParseCard(s string) (Card, error) {
	parts := strings.SplitN(s, " of ", 2)
	if len(parts) != 2 {
		return Card{}, fmt.Errorf("invalid card %q", s)
	}

	var rank Rank
	found := false
	for r, name := range rankString {
		if name == parts[0] {
			rank = r
			found = true
			break
		}
	}
	if !found {
		return Card{}, fmt.Errorf("invalid card rank %q", parts[0])
	}

	var suit Suit
	found = false
	for su, name := range suitString {
		if name == parts[1] {
			suit = su
			found = true
			break
		}
	}
	if !found {
		return Card{}, fmt.Errorf("invalid card suit %q", parts[1])
	}

	return Card{rank, suit}, nil
}

// ParseCards parses a batch of "Rank of Suit" strings.
func ParseCards(strs []string) ([]Card, error) {
	cards := make([]Card, 0, len(strs))
	for _, s := range strs {
		card, err := ParseCard(s)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, nil
}

func cardStrings(cards []Card) []string {
	strs := make([]string, len(cards))
	for i, c := range cards {
		strs[i] = c.String()
	}
	return strs
}

// Deck is the full 52-card sequence plus a cursor marking how many cards
// have been dealt from the front. Cards before the cursor are in play.
type Deck struct {
	Cards []Card `json:"cards"`
	Dealt int    `json:"dealt"`
}

func NewDeck() *Deck {
	cards := make([]Card, 0, 52)
	for suit := Spades; suit <= Diamonds; suit++ {
		for rank := Ace; rank <= King; rank++ {
			cards = append(cards, Card{rank, suit})
		}
	}
	return &Deck{Cards: cards}
}

func (d *Deck) Count() int {
	return len(d.Cards)
}

// Remaining is the number of undealt cards.
func (d *Deck) Remaining() int {
	return len(d.Cards) - d.Dealt
}

func (d *Deck) Shuffle() {
	rand.Shuffle(len(d.Cards), func(i, j int) {
		d.Cards[i], d.Cards[j] = d.Cards[j], d.Cards[i]
	})
}

// Draw returns the next n cards and advances the cursor.
func (d *Deck) Draw(n int) ([]Card, error) {
	if d.Dealt+n > len(d.Cards) {
		return nil, ErrDeckExhausted
	}
	cards := make([]Card, n)
	copy(cards, d.Cards[d.Dealt:d.Dealt+n])
	d.Dealt += n
	return cards, nil
}

// Reset restores the original order and zeroes the cursor.
func (d *Deck) Reset() {
	d.Cards = NewDeck().Cards
	d.Dealt = 0
}
