package blackjack

import (
	"strings"

	"econbot/games"
)

// Card is a playing card
type Card struct {
	Rank string `json:"rank"`
	Suit string `json:"suit"`
}

func (c Card) String() string {
	return c.Rank + c.Suit
}

// cardRanks defines blackjack values; aces start at 11
var cardRanks = map[string]int{
	"2": 2, "3": 3, "4": 4, "5": 5, "6": 6, "7": 7, "8": 8, "9": 9, "10": 10,
	"J": 10, "Q": 10, "K": 10, "A": 11,
}

var ranks = []string{"A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}

// Suits in deck order
var Suits = []string{"♠️", "♥️", "♦️", "♣️"}

// Value is the card's blackjack value with an ace counted as 11
func (c Card) Value() int {
	return cardRanks[c.Rank]
}

func (c Card) IsAce() bool {
	return c.Rank == "A"
}

// Deck is a single 52-card deck. A fresh deck is built for every hand.
type Deck struct {
	cards []Card
	dealt int
}

// NewDeck returns a shuffled 52-card deck
func NewDeck(rng games.RNG) *Deck {
	cards := make([]Card, 0, 52)
	for _, suit := range Suits {
		for _, rank := range ranks {
			cards = append(cards, Card{Rank: rank, Suit: suit})
		}
	}
	for i := len(cards) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
	return &Deck{cards: cards}
}

// StackedDeck deals the given cards in order. Used to replay known hands.
func StackedDeck(cards ...Card) *Deck {
	return &Deck{cards: cards}
}

// Deal takes the top card. A single deck cannot run dry within one hand, so
// an exhausted deck is a programming error.
func (d *Deck) Deal() Card {
	if d.dealt >= len(d.cards) {
		panic("blackjack: deck exhausted")
	}
	c := d.cards[d.dealt]
	d.dealt++
	return c
}

// Remaining is the number of undealt cards
func (d *Deck) Remaining() int {
	return len(d.cards) - d.dealt
}

// Hand is a blackjack hand
type Hand []Card

// Value counts aces as 11 and drops them to 1 while the hand would bust
func (h Hand) Value() int {
	total, aces := 0, 0
	for _, c := range h {
		if c.IsAce() {
			aces++
		}
		total += c.Value()
	}
	for aces > 0 && total > 21 {
		total -= 10
		aces--
	}
	return total
}

// IsNatural reports a two-card 21
func (h Hand) IsNatural() bool {
	return len(h) == 2 && h.Value() == 21
}

func (h Hand) IsBust() bool {
	return h.Value() > 21
}

func (h Hand) String() string {
	parts := make([]string, len(h))
	for i, c := range h {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
