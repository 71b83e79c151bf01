// Package slots resolves three-reel slot spins against a named machine preset.
package slots

import (
	"fmt"
	"strings"

	"econbot/config"
	"econbot/games"
	"econbot/models"
)

// Reels on every machine
const Reels = 3

// Spin draws one symbol per reel, each weighted independently
func Spin(rng games.RNG, machine config.SlotPreset) ([]string, error) {
	total := machine.TotalWeight()
	if total <= 0 {
		return nil, fmt.Errorf("%w: slot machine has no symbols", models.ErrInvalidState)
	}
	out := make([]string, Reels)
	for i := range out {
		roll := rng.Intn(total)
		for _, s := range machine.Symbols {
			if roll < s.Weight {
				out[i] = s.ID
				break
			}
			roll -= s.Weight
		}
	}
	return out, nil
}

// Evaluate scores a finished spin. A triple pays the symbol multiplier, a
// pair pays a third of it rounded down, and a single bell with nothing
// better pays the consolation.
func Evaluate(machine config.SlotPreset, reels []string) games.Outcome {
	out := games.Outcome{Details: map[string]any{"reels": reels, "display": Display(machine, reels)}}

	counts := make(map[string]int, len(reels))
	for _, r := range reels {
		counts[r]++
	}
	best, bestCount := "", 0
	for _, r := range reels {
		if counts[r] > bestCount {
			best, bestCount = r, counts[r]
		}
	}

	sym, _ := machine.Symbol(best)
	switch {
	case bestCount == Reels:
		out.Multiplier = float64(sym.Multiplier)
		out.Details["match"] = "triple"
	case bestCount == 2 && sym.Multiplier/3 > 0:
		out.Multiplier = float64(sym.Multiplier / 3)
		out.Details["match"] = "double"
	case counts[machine.BellSymbol] == 1:
		out.Multiplier = machine.BellConsolation
		out.Details["match"] = "bell"
	}
	if out.Multiplier > 0 {
		out.Win = true
		out.Details["symbol"] = best
		if out.Details["match"] == "bell" {
			out.Details["symbol"] = machine.BellSymbol
		}
	}
	return out
}

// Resolve spins the machine and scores the result
func Resolve(rng games.RNG, machine config.SlotPreset) (games.Outcome, error) {
	reels, err := Spin(rng, machine)
	if err != nil {
		return games.Outcome{}, err
	}
	return Evaluate(machine, reels), nil
}

// Display renders the reels as emoji, falling back to the symbol id
func Display(machine config.SlotPreset, reels []string) string {
	parts := make([]string, len(reels))
	for i, r := range reels {
		parts[i] = r
		if s, ok := machine.Symbol(r); ok && s.Emoji != "" {
			parts[i] = s.Emoji
		}
	}
	return strings.Join(parts, " | ")
}
