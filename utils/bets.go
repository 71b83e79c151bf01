package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"econbot/models"
)

// ParseBet turns user input into an amount against the given balance.
// Accepted forms: exact amounts with optional k/m suffix and separators,
// "all"/"allin"/"max", "half", and percentages like "25%".
func ParseBet(input string, balance int64) (int64, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	s = strings.NewReplacer(",", "", "_", "", " ", "").Replace(s)

	switch s {
	case "":
		return 0, fmt.Errorf("%w: missing amount", models.ErrInvalidAmount)
	case "all", "allin", "max":
		return balance, nil
	case "half":
		return balance / 2, nil
	}

	if pct, ok := strings.CutSuffix(s, "%"); ok {
		p, err := strconv.ParseFloat(pct, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: invalid percentage %q", models.ErrInvalidAmount, input)
		}
		if p < 0 || p > 100 {
			return 0, fmt.Errorf("%w: percentage must be between 0 and 100", models.ErrInvalidAmount)
		}
		return int64(float64(balance) * p / 100), nil
	}

	multiplier := int64(1)
	switch {
	case strings.HasSuffix(s, "k"):
		multiplier, s = 1_000, strings.TrimSuffix(s, "k")
	case strings.HasSuffix(s, "m"):
		multiplier, s = 1_000_000, strings.TrimSuffix(s, "m")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an amount", models.ErrInvalidAmount, input)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: amount must be positive", models.ErrInvalidAmount)
	}
	if n > math.MaxInt64/multiplier {
		return 0, fmt.Errorf("%w: %q is too large", models.ErrInvalidAmount, input)
	}
	return n * multiplier, nil
}
