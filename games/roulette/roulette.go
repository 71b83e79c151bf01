// Package roulette resolves single-zero European roulette bets.
package roulette

import (
	"fmt"
	"strconv"
	"strings"

	"econbot/games"
	"econbot/models"
)

// Pockets on a single-zero wheel
const Pockets = 37

var redNumbers = map[int]struct{}{1: {}, 3: {}, 5: {}, 7: {}, 9: {}, 12: {}, 14: {}, 16: {}, 18: {}, 19: {}, 21: {}, 23: {}, 25: {}, 27: {}, 30: {}, 32: {}, 34: {}, 36: {}}

var orphans = map[int]struct{}{1: {}, 6: {}, 9: {}, 14: {}, 17: {}, 20: {}, 31: {}, 34: {}}

var voisins = map[int]struct{}{0: {}, 2: {}, 3: {}, 4: {}, 7: {}, 12: {}, 15: {}, 18: {}, 19: {}, 21: {}, 22: {}, 25: {}, 26: {}, 28: {}, 29: {}, 32: {}, 35: {}}

// BetType names a roulette bet
type BetType string

const (
	Red      BetType = "red"
	Black    BetType = "black"
	Even     BetType = "even"
	Odd      BetType = "odd"
	Low      BetType = "low"
	High     BetType = "high"
	Tier     BetType = "tier"
	Orphans  BetType = "orphans"
	Voisins  BetType = "voisins"
	Straight BetType = "straight"
)

var multipliers = map[BetType]float64{
	Red: 2, Black: 2, Even: 2, Odd: 2, Low: 2, High: 2,
	Tier:     3,
	Orphans:  5,
	Voisins:  2.25,
	Straight: 36,
}

// Bet is a bet type plus the chosen number for straight-up bets
type Bet struct {
	Type   BetType
	Number int
}

// ParseBet accepts a bet type name or a pocket number for a straight-up bet
func ParseBet(s string) (Bet, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		b := Bet{Type: Straight, Number: n}
		return b, b.Validate()
	}
	switch s {
	case "1-18":
		s = string(Low)
	case "19-36":
		s = string(High)
	case "1-12":
		s = string(Tier)
	}
	b := Bet{Type: BetType(s)}
	return b, b.Validate()
}

// Validate reports whether the bet can be placed
func (b Bet) Validate() error {
	if _, ok := multipliers[b.Type]; !ok {
		return fmt.Errorf("%w: unknown roulette bet %q", models.ErrInvalidBet, b.Type)
	}
	if b.Type == Straight && (b.Number < 0 || b.Number >= Pockets) {
		return fmt.Errorf("%w: pocket %d is not on the wheel", models.ErrInvalidBet, b.Number)
	}
	return nil
}

// Multiplier is the total return of a winning bet
func (b Bet) Multiplier() float64 {
	return multipliers[b.Type]
}

// Color returns red, black or green for a pocket
func Color(pocket int) string {
	if pocket == 0 {
		return "green"
	}
	if _, ok := redNumbers[pocket]; ok {
		return "red"
	}
	return "black"
}

func wins(pocket int, b Bet) bool {
	switch b.Type {
	case Red:
		return Color(pocket) == "red"
	case Black:
		return Color(pocket) == "black"
	case Even:
		return pocket != 0 && pocket%2 == 0
	case Odd:
		return pocket%2 == 1
	case Low:
		return pocket >= 1 && pocket <= 18
	case High:
		return pocket >= 19 && pocket <= 36
	case Tier:
		return pocket >= 1 && pocket <= 12
	case Orphans:
		_, ok := orphans[pocket]
		return ok
	case Voisins:
		_, ok := voisins[pocket]
		return ok
	case Straight:
		return pocket == b.Number
	}
	return false
}

// ResolvePocket evaluates a bet against a known pocket
func ResolvePocket(pocket int, b Bet) games.Outcome {
	out := games.Outcome{
		Details: map[string]any{
			"pocket": pocket,
			"color":  Color(pocket),
			"bet":    string(b.Type),
		},
	}
	if b.Type == Straight {
		out.Details["number"] = b.Number
	}
	if wins(pocket, b) {
		out.Win = true
		out.Multiplier = b.Multiplier()
	}
	return out
}

// Resolve spins the wheel once and evaluates the bet
func Resolve(rng games.RNG, b Bet) (games.Outcome, error) {
	if err := b.Validate(); err != nil {
		return games.Outcome{}, err
	}
	return ResolvePocket(rng.Intn(Pockets), b), nil
}
