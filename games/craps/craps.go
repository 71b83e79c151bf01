// Package craps resolves one-roll craps bets.
package craps

import (
	"fmt"
	"strings"

	"econbot/games"
	"econbot/models"
)

// Simplified marks the one-roll model: a pass or don't-pass bet settles on
// the come-out roll, and any point number pays 1.5x instead of establishing
// a point.
const Simplified = true

// BetType names a craps bet
type BetType string

const (
	Pass     BetType = "pass"
	DontPass BetType = "dontpass"
	Field    BetType = "field"
	Any7     BetType = "any7"
)

// ParseBet normalizes a bet name
func ParseBet(s string) (BetType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("_", "", "-", "", " ", "", "'", "").Replace(s)
	switch BetType(s) {
	case Pass, DontPass, Field, Any7:
		return BetType(s), nil
	case "anyseven":
		return Any7, nil
	}
	return "", fmt.Errorf("%w: unknown craps bet %q", models.ErrInvalidBet, s)
}

// Multiplier returns the total return for a bet on a given sum. Zero is a loss.
func Multiplier(bet BetType, sum int) float64 {
	switch bet {
	case Pass:
		switch sum {
		case 7, 11:
			return 2
		case 2, 3, 12:
			return 0
		}
		return 1.5
	case DontPass:
		switch sum {
		case 2, 3:
			return 2
		case 7, 11, 12:
			return 0
		}
		return 1.5
	case Field:
		switch sum {
		case 3, 4, 9, 10, 11:
			return 2
		case 2, 12:
			return 3
		}
	case Any7:
		if sum == 7 {
			return 5
		}
	}
	return 0
}

// ResolveDice evaluates a bet against two known dice
func ResolveDice(d1, d2 int, bet BetType) games.Outcome {
	sum := d1 + d2
	m := Multiplier(bet, sum)
	return games.Outcome{
		Win:        m > 0,
		Multiplier: m,
		Details: map[string]any{
			"dice": []int{d1, d2},
			"sum":  sum,
			"bet":  string(bet),
		},
	}
}

// Resolve rolls two dice and evaluates the bet
func Resolve(rng games.RNG, bet BetType) (games.Outcome, error) {
	if _, err := ParseBet(string(bet)); err != nil {
		return games.Outcome{}, err
	}
	d1 := rng.Intn(6) + 1
	d2 := rng.Intn(6) + 1
	return ResolveDice(d1, d2, bet), nil
}
