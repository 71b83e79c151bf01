package dice

import (
	"errors"
	"testing"

	"econbot/config"
	"econbot/games"
	"econbot/models"
)

func TestResolve(t *testing.T) {
	p, err := config.LoadPresets("")
	if err != nil {
		t.Fatal(err)
	}
	table, err := p.DiceTable("default")
	if err != nil {
		t.Fatal(err)
	}

	// 5 + 6
	out, err := Resolve(&games.Scripted{Ints: []int{4, 5}}, table, 11)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Win || out.Multiplier != 15 || games.Payout(10, out.Multiplier) != 150 {
		t.Fatalf("11 = %+v", out)
	}

	out, _ = Resolve(&games.Scripted{Ints: []int{0, 0}}, table, 3)
	if out.Win || out.Details["sum"] != 2 {
		t.Fatalf("miss = %+v", out)
	}

	for _, bad := range []int{1, 13} {
		if _, err := Resolve(&games.Scripted{}, table, bad); !errors.Is(err, models.ErrInvalidBet) {
			t.Errorf("target %d: %v", bad, err)
		}
	}
}
