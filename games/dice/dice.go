// Package dice resolves exact-sum bets on two dice.
package dice

import (
	"fmt"

	"econbot/config"
	"econbot/games"
	"econbot/models"
)

// ResolveDice pays the table multiplier when the two dice add up to target
func ResolveDice(table config.DicePreset, d1, d2, target int) games.Outcome {
	sum := d1 + d2
	out := games.Outcome{
		Details: map[string]any{
			"dice":   []int{d1, d2},
			"sum":    sum,
			"target": target,
		},
	}
	if sum == target {
		if m, ok := table.Multiplier(sum); ok {
			out.Win = true
			out.Multiplier = m
		}
	}
	return out
}

// Resolve rolls two dice against target
func Resolve(rng games.RNG, table config.DicePreset, target int) (games.Outcome, error) {
	if target < 2 || target > 12 {
		return games.Outcome{}, fmt.Errorf("%w: target must be between 2 and 12", models.ErrInvalidBet)
	}
	d1 := rng.Intn(6) + 1
	d2 := rng.Intn(6) + 1
	return ResolveDice(table, d1, d2, target), nil
}
