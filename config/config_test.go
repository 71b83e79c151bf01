package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"econbot/models"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "test.db")
	t.Setenv("PORT", "9090")
	t.Setenv("DAILY_REWARD", "")
	t.Setenv("DAILY_XP", "400")
	t.Setenv("COOLDOWN_WORK", "30m")
	t.Setenv("MIN_BET", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Errorf("Addr = %q, want :9090", cfg.Addr)
	}
	if cfg.DailyReward != 500 {
		t.Errorf("DailyReward = %d, want 500", cfg.DailyReward)
	}
	if cfg.DailyXP != 400 {
		t.Errorf("DailyXP = %d, want 400", cfg.DailyXP)
	}
	if cfg.MinBet != 10 {
		t.Errorf("MinBet fell back to %d, want 10", cfg.MinBet)
	}
	if got := cfg.CooldownFor(ActionWork, 0); got != 30*time.Minute {
		t.Errorf("work cooldown = %v, want 30m", got)
	}
	if got := cfg.CooldownFor(ActionDaily, 0); got != 24*time.Hour {
		t.Errorf("daily cooldown = %v, want 24h", got)
	}
	if got := cfg.CooldownFor("unknown", time.Second); got != time.Second {
		t.Errorf("fallback cooldown = %v", got)
	}
}

func TestValidate(t *testing.T) {
	base := Config{DatabaseDriver: "sqlite", SQLitePath: "x.db", MinBet: 10, MaxBet: 100, WorkMin: 1, WorkMax: 2, RobChance: 0.5}
	if err := base.Validate(); err != nil {
		t.Fatalf("base config invalid: %v", err)
	}

	cases := map[string]func(c *Config){
		"postgres without url": func(c *Config) { c.DatabaseDriver = "postgres" },
		"unknown driver":       func(c *Config) { c.DatabaseDriver = "mysql" },
		"inverted bets":        func(c *Config) { c.MaxBet = 5 },
		"zero min bet":         func(c *Config) { c.MinBet = 0 },
		"inverted work":        func(c *Config) { c.WorkMax = 0 },
		"rob chance":           func(c *Config) { c.RobChance = 1.5 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base
			mutate(&c)
			if err := c.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestEmbeddedPresets(t *testing.T) {
	p, err := LoadPresets("")
	if err != nil {
		t.Fatalf("LoadPresets: %v", err)
	}

	casino, err := p.SlotMachine("casino")
	if err != nil {
		t.Fatalf("casino preset: %v", err)
	}
	cherry, ok := casino.Symbol("cherry")
	if !ok || cherry.Weight != 30 {
		t.Errorf("cherry = %+v", cherry)
	}
	jackpot, _ := casino.Symbol("jackpot")
	if jackpot.Weight != 1 {
		t.Errorf("jackpot weight = %d, want 1", jackpot.Weight)
	}
	if _, err := p.SlotMachine("fun"); err != nil {
		t.Errorf("fun preset: %v", err)
	}
	if _, err := p.SlotMachine("nope"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("missing preset error = %v", err)
	}

	dice, err := p.DiceTable("default")
	if err != nil {
		t.Fatalf("dice preset: %v", err)
	}
	if m, ok := dice.Multiplier(7); !ok || m != 4.5 {
		t.Errorf("dice 7 = %v %v", m, ok)
	}

	bj, err := p.BlackjackTable("classic")
	if err != nil {
		t.Fatalf("blackjack preset: %v", err)
	}
	if bj.DealerStand != 17 || bj.NaturalPayout != 2.5 || bj.InactivityTimeout != time.Minute {
		t.Errorf("classic = %+v", bj)
	}

	if p.WordChain.JoinWindow != time.Minute || p.HotPotato.MinPasses != 3 {
		t.Errorf("session presets = %+v %+v", p.WordChain, p.HotPotato)
	}
	if len(p.Cards.Catalog) == 0 || p.Cards.PackSize != 3 {
		t.Errorf("cards = %+v", p.Cards)
	}
}

func TestClampTurnTimeout(t *testing.T) {
	p, err := LoadPresets("")
	if err != nil {
		t.Fatalf("LoadPresets: %v", err)
	}
	wc := p.WordChain
	tests := []struct {
		in, want time.Duration
	}{
		{0, 30 * time.Second},
		{5 * time.Second, 15 * time.Second},
		{45 * time.Second, 45 * time.Second},
		{10 * time.Minute, 120 * time.Second},
	}
	for _, tt := range tests {
		if got := wc.ClampTurnTimeout(tt.in); got != tt.want {
			t.Errorf("ClampTurnTimeout(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPresetsRejectedBySchema(t *testing.T) {
	broken := strings.Replace(string(defaultPresets), "dealer_stand: 17", "dealer_stand: 30", 1)
	if _, err := ParsePresets([]byte(broken), "broken"); err == nil {
		t.Fatal("expected schema error for dealer_stand 30")
	}

	missingSum := strings.Replace(string(defaultPresets), "- { sum: 12, multiplier: 30 }", "- { sum: 11, multiplier: 30 }", 1)
	if _, err := ParsePresets([]byte(missingSum), "dice"); err == nil {
		t.Fatal("expected error for missing dice sum 12")
	}
}
