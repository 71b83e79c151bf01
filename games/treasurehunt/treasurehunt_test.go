package treasurehunt

import (
	"errors"
	"testing"
	"time"

	"econbot/config"
	"econbot/games"
	"econbot/models"
)

var t0 = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

var small = config.TreasureHuntPreset{
	GridSize:        3,
	Treasures:       2,
	Traps:           1,
	Clues:           1,
	Monsters:        1,
	TreasureReward:  500,
	TrapPenalty:     150,
	MonsterPenalty:  300,
	CompletionBonus: 2000,
}

// fixedGrid builds a 3x3 hunt laid out as
//
//	S T C
//	M . .
//	P . T
func fixedGrid() *Game {
	g := &Game{
		ID: "h", PlayerID: "ann", Status: models.StatusInProgress, Size: 3,
		Cells: make([]Cell, 9), Treasures: 2,
		TreasureReward: 500, TrapPenalty: 150, MonsterPenalty: 300, CompletionBonus: 2000,
	}
	for i := range g.Cells {
		g.Cells[i].Kind = Empty
	}
	g.Cells[0].Revealed = true
	g.Cells[1].Kind = Treasure
	g.Cells[2].Kind = Clue
	g.Cells[3].Kind = Monster
	g.Cells[6].Kind = Trap
	g.Cells[8].Kind = Treasure
	return g
}

func TestSeeding(t *testing.T) {
	g, err := New("h", "ann", small, games.NewSeededRNG(42), t0)
	if err != nil {
		t.Fatal(err)
	}
	counts := map[CellKind]int{}
	for _, c := range g.Cells {
		counts[c.Kind]++
	}
	if counts[Treasure] != 2 || counts[Trap] != 1 || counts[Clue] != 1 || counts[Monster] != 1 || counts[Empty] != 4 {
		t.Fatalf("counts = %v", counts)
	}
	if g.Cells[0].Kind != Empty || !g.Cells[0].Revealed {
		t.Fatal("start cell must be empty and revealed")
	}

	crowded := small
	crowded.Traps = 10
	if _, err := New("h", "ann", crowded, games.NewSeededRNG(1), t0); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("overfull grid: %v", err)
	}
}

func TestWalk(t *testing.T) {
	g := fixedGrid()

	if _, err := g.Move("ann", North, t0); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("off grid: %v", err)
	}
	if _, err := g.Move("bob", East, t0); !errors.Is(err, models.ErrNotAuthorized) {
		t.Fatalf("wrong player: %v", err)
	}

	res, err := g.Move("ann", East, t0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != Treasure || len(res.Entries) != 1 || res.Entries[0].Amount != 500 {
		t.Fatalf("treasure = %+v", res)
	}

	res, _ = g.Move("ann", East, t0)
	// clue at (0,2): the remaining treasure at (2,2) is two steps away
	if res.Kind != Clue || res.Distance != 2 {
		t.Fatalf("clue = %+v", res)
	}

	// revisiting a revealed cell changes nothing
	res, _ = g.Move("ann", West, t0)
	if res.FirstVisit || res.Entries != nil {
		t.Fatalf("revisit = %+v", res)
	}

	g.Move("ann", West, t0)
	res, _ = g.Move("ann", South, t0)
	if res.Kind != Monster || !res.Entries[0].Clamp || res.Entries[0].Amount != -300 {
		t.Fatalf("monster = %+v", res)
	}
	res, _ = g.Move("ann", South, t0)
	if res.Kind != Trap || res.Entries[0].Amount != -150 {
		t.Fatalf("trap = %+v", res)
	}
	g.Move("ann", East, t0)
	res, _ = g.Move("ann", East, t0)
	if !res.Completed || g.Status != models.StatusCompleted || len(res.Entries) != 2 || res.Entries[1].Amount != 2000 {
		t.Fatalf("completion = %+v", res)
	}
	if _, err := g.Move("ann", North, t0); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("move after completion: %v", err)
	}
}

func TestParseDirection(t *testing.T) {
	for in, want := range map[string]Direction{"North": North, "s": South, " east": East, "W": West} {
		if got, err := ParseDirection(in); err != nil || got != want {
			t.Errorf("%q = %q %v", in, got, err)
		}
	}
	if _, err := ParseDirection("up"); err == nil {
		t.Error("up accepted")
	}
}
