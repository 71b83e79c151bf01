package hotpotato

import (
	"errors"
	"testing"
	"time"

	"econbot/config"
	"econbot/games"
	"econbot/models"
)

var t0 = time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

var preset = config.HotPotatoPreset{
	EntryFee:    100,
	MinPlayers:  2,
	MaxPlayers:  8,
	MinPasses:   3,
	MaxPasses:   10,
	Penalty:     500,
	HoldTimeout: 30 * time.Second,
}

func running(t *testing.T, players ...string) *Game {
	t.Helper()
	g := New("hp", "chan", preset)
	for _, p := range players {
		if err := g.Join(p); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.Start(players[0], t0); err != nil {
		t.Fatal(err)
	}
	return g
}

func TestExplosionChance(t *testing.T) {
	for p := 0; p < 3; p++ {
		if c := ExplosionChance(p, 3, 10); c != 0 {
			t.Fatalf("passes %d chance %v", p, c)
		}
	}
	if c := ExplosionChance(3, 3, 10); c != 1.0/8 {
		t.Errorf("at min = %v", c)
	}
	if c := ExplosionChance(10, 3, 10); c != 1 {
		t.Errorf("at max = %v", c)
	}
}

func TestNeverExplodesBeforeMinPasses(t *testing.T) {
	g := running(t, "ann", "bob")
	// an empty script panics if the game rolls before the minimum
	rng := &games.Scripted{}
	holders := []string{"ann", "bob"}
	for i := 0; i < 2; i++ {
		res, err := g.Pass(rng, holders[i%2], holders[(i+1)%2], t0)
		if err != nil {
			t.Fatal(err)
		}
		if res.Exploded {
			t.Fatalf("exploded on pass %d", i+1)
		}
	}
}

func TestPassRules(t *testing.T) {
	g := running(t, "ann", "bob", "cat")
	rng := &games.Scripted{}
	if _, err := g.Pass(rng, "bob", "cat", t0); !errors.Is(err, models.ErrNotAuthorized) {
		t.Fatalf("non-holder pass: %v", err)
	}
	if _, err := g.Pass(rng, "ann", "ann", t0); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("self pass: %v", err)
	}
	if _, err := g.Pass(rng, "ann", "zed", t0); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("pass to outsider: %v", err)
	}
}

func TestExplosionSplitsPot(t *testing.T) {
	g := running(t, "ann", "bob", "cat", "dan")
	// three passes reach the minimum; 0.05 < 1/8 explodes on cat
	rng := &games.Scripted{Floats: []float64{0.05}}
	steps := [][2]string{{"ann", "bob"}, {"bob", "ann"}, {"ann", "cat"}}
	var res PassResult
	var err error
	for _, s := range steps {
		if res, err = g.Pass(rng, s[0], s[1], t0); err != nil {
			t.Fatal(err)
		}
	}
	if !res.Exploded || g.Loser != "cat" || g.Status != models.StatusCompleted {
		t.Fatalf("res %+v loser %s", res, g.Loser)
	}
	// pot 400 split between ann and bob
	want := map[string]int64{"cat": -500, "ann": 200, "bob": 200}
	if len(res.Entries) != 3 {
		t.Fatalf("entries = %+v", res.Entries)
	}
	for _, e := range res.Entries {
		if want[e.AccountID] != e.Amount {
			t.Errorf("%s got %d, want %d", e.AccountID, e.Amount, want[e.AccountID])
		}
	}
}

func TestRemainderGoesToFirstPasser(t *testing.T) {
	p := preset
	p.EntryFee = 101
	p.MinPasses, p.MaxPasses = 1, 2
	g := New("hp", "chan", p)
	for _, id := range []string{"ann", "bob", "cat"} {
		g.Join(id)
	}
	g.Start("ann", t0)
	rng := &games.Scripted{Floats: []float64{0.9}}
	g.Pass(rng, "ann", "bob", t0)
	res, _ := g.Pass(rng, "bob", "cat", t0)
	if !res.Exploded {
		t.Fatal("max passes must explode")
	}
	// 303 between ann and bob: 152 and 151
	got := map[string]int64{}
	for _, e := range res.Entries {
		got[e.AccountID] = e.Amount
	}
	if got["ann"] != 152 || got["bob"] != 151 {
		t.Fatalf("split = %v", got)
	}
}

func TestHoldTimeout(t *testing.T) {
	g := running(t, "ann", "bob")
	if e := g.Timeout(t0.Add(29 * time.Second)); e != nil {
		t.Fatal("exploded early")
	}
	e := g.Timeout(t0.Add(30 * time.Second))
	if g.Loser != "ann" || len(e) != 2 || e[1].AccountID != "bob" || e[1].Amount != 200 {
		t.Fatalf("timeout entries = %+v", e)
	}
}

func TestCancelRefunds(t *testing.T) {
	g := New("hp", "chan", preset)
	g.Join("ann")
	if err := g.Start("ann", t0); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("start alone: %v", err)
	}
	refunds, err := g.Cancel()
	if err != nil || len(refunds) != 1 || refunds[0].Amount != 100 {
		t.Fatalf("refunds %+v %v", refunds, err)
	}
}
