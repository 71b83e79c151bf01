package economy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"econbot/config"
	"econbot/database"
	"econbot/games"
	"econbot/models"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestLedger(t *testing.T) (*Ledger, *fakeClock) {
	t.Helper()
	store, err := database.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "econ.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(store.Close)
	clock := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	l := NewLedger(store, nil, nil)
	l.SetClock(clock.Now)
	return l, clock
}

func testRewardConfig() RewardConfig {
	return RewardConfig{
		DailyAmount: 500,
		DailyXP:     250,
		WorkMin:     65,
		WorkMax:     650,
		RobChance:   0.4,
		RobFine:     250,
		VoteAmount:  1000,
		Cooldowns: map[string]time.Duration{
			config.ActionDaily: 24 * time.Hour,
			config.ActionWork:  time.Hour,
			config.ActionRob:   2 * time.Hour,
			config.ActionVote:  12 * time.Hour,
		},
	}
}

func TestApplyBalanceDelta(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	bal, err := l.ApplyBalanceDelta(ctx, "alice", 300, models.KindAdmin, "seed")
	if err != nil || bal != 300 {
		t.Fatalf("credit: bal=%d err=%v", bal, err)
	}
	bal, err = l.ApplyBalanceDelta(ctx, "alice", -120, models.KindWager, "bet")
	if err != nil || bal != 180 {
		t.Fatalf("debit: bal=%d err=%v", bal, err)
	}

	_, err = l.ApplyBalanceDelta(ctx, "alice", -181, models.KindWager, "too much")
	if !errors.Is(err, models.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	acct, err := l.Account(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if acct.Balance != 180 {
		t.Fatalf("failed debit changed the balance: %d", acct.Balance)
	}

	history, err := l.History(ctx, "alice", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("expected exactly one ledger row per mutation, got %d", len(history))
	}
	if history[0].Amount != -120 || history[0].BalanceAfter != 180 || history[1].Amount != 300 {
		t.Errorf("history out of order: %+v", history)
	}
}

func TestApplyExperienceDelta(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	res, err := l.ApplyExperienceDelta(ctx, "bob", 99)
	if err != nil {
		t.Fatal(err)
	}
	if res.NewLevel != 1 || res.LeveledUp {
		t.Fatalf("99 xp: %+v", res)
	}
	res, err = l.ApplyExperienceDelta(ctx, "bob", 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.NewExperience != 100 || res.NewLevel != 2 || !res.LeveledUp {
		t.Fatalf("100 xp: %+v", res)
	}
	res, err = l.ApplyExperienceDelta(ctx, "bob", 300)
	if err != nil {
		t.Fatal(err)
	}
	if res.NewLevel != 3 || !res.LeveledUp {
		t.Fatalf("400 xp: %+v", res)
	}
	if _, err := l.ApplyExperienceDelta(ctx, "bob", -1000); !errors.Is(err, models.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
}

func TestTransferIsAtomic(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	if _, err := l.ApplyBalanceDelta(ctx, "a", 100, models.KindAdmin, "seed"); err != nil {
		t.Fatal(err)
	}

	from, to, err := l.Transfer(ctx, "a", "b", 60, "gift")
	if err != nil || from != 40 || to != 60 {
		t.Fatalf("transfer: %d %d %v", from, to, err)
	}
	if _, _, err := l.Transfer(ctx, "a", "b", 41, "gift"); !errors.Is(err, models.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	b, _ := l.Account(ctx, "b")
	if b.Balance != 60 {
		t.Fatalf("receiver credited by a failed transfer: %d", b.Balance)
	}
	if _, _, err := l.Transfer(ctx, "a", "a", 1, "self"); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("expected invalid state for self transfer, got %v", err)
	}
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	if _, err := l.ApplyBalanceDelta(ctx, "racer", 100, models.KindAdmin, "seed"); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.ApplyBalanceDelta(ctx, "racer", -30, models.KindWager, "race"); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 3 {
		t.Fatalf("expected 3 debits of 30 out of 100, got %d", succeeded)
	}
	acct, _ := l.Account(ctx, "racer")
	if acct.Balance != 10 {
		t.Fatalf("balance = %d, want 10", acct.Balance)
	}
}

func TestCooldownGateAllowsOnce(t *testing.T) {
	l, clock := newTestLedger(t)
	gate := NewCooldownGate(l)
	ctx := context.Background()

	first, err := gate.CheckAndSet(ctx, "carol", "work", time.Hour)
	if err != nil || !first.Allowed {
		t.Fatalf("first: %+v %v", first, err)
	}
	second, err := gate.CheckAndSet(ctx, "carol", "work", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if second.Allowed || second.RemainingMs() != time.Hour.Milliseconds() {
		t.Fatalf("second: %+v", second)
	}

	clock.Advance(30 * time.Minute)
	left, err := gate.Remaining(ctx, "carol", "work")
	if err != nil || left != 30*time.Minute {
		t.Fatalf("remaining = %v %v", left, err)
	}

	clock.Advance(31 * time.Minute)
	third, err := gate.CheckAndSet(ctx, "carol", "work", time.Hour)
	if err != nil || !third.Allowed {
		t.Fatalf("after expiry: %+v %v", third, err)
	}

	clock.Advance(2 * time.Hour)
	purged, err := gate.PurgeExpired(ctx)
	if err != nil || purged != 1 {
		t.Fatalf("purged %d %v", purged, err)
	}
	if again, err := gate.PurgeExpired(ctx); err != nil || again != 0 {
		t.Fatalf("second purge %d %v", again, err)
	}
	fresh, err := gate.CheckAndSet(ctx, "carol", "work", time.Hour)
	if err != nil || !fresh.Allowed {
		t.Fatalf("after purge: %+v %v", fresh, err)
	}
}

func TestRewardConfigFromEnvConfig(t *testing.T) {
	cfg := config.Config{DailyReward: 700, DailyXP: 90, WorkMin: 1, WorkMax: 2, VoteReward: 5}
	rc := RewardConfigFrom(cfg)
	if rc.DailyAmount != 700 || rc.DailyXP != 90 || rc.VoteAmount != 5 {
		t.Fatalf("reward config = %+v", rc)
	}
	if rc.Cooldowns[config.ActionDaily] != 24*time.Hour {
		t.Fatalf("daily cooldown = %v", rc.Cooldowns[config.ActionDaily])
	}
}

func TestCooldownGateConcurrent(t *testing.T) {
	l, _ := newTestLedger(t)
	gate := NewCooldownGate(l)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := gate.CheckAndSet(ctx, "dave", "daily", 24*time.Hour)
			if err != nil {
				t.Errorf("CheckAndSet: %v", err)
				return
			}
			if res.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if allowed != 1 {
		t.Fatalf("allowed %d times, want exactly 1", allowed)
	}
}

func TestClaimDailyScenario(t *testing.T) {
	l, clock := newTestLedger(t)
	rewards := NewRewards(l, testRewardConfig(), games.NewSeededRNG(1), nil)
	ctx := context.Background()

	res, err := rewards.ClaimDaily(ctx, "erin")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Granted || res.Amount != 500 || res.Balance != 500 {
		t.Fatalf("first claim: %+v", res)
	}

	res, err = rewards.ClaimDaily(ctx, "erin")
	if err != nil {
		t.Fatal(err)
	}
	if res.Granted || res.RemainingMs() != 86_400_000 || res.Balance != 500 {
		t.Fatalf("second claim: %+v", res)
	}

	acct, _ := l.Account(ctx, "erin")
	if acct.LastDailyClaim == nil || !acct.LastDailyClaim.Equal(clock.Now()) {
		t.Errorf("last daily claim = %v", acct.LastDailyClaim)
	}
	if acct.Experience != 250 {
		t.Errorf("experience = %d, want 250", acct.Experience)
	}

	clock.Advance(24 * time.Hour)
	res, err = rewards.ClaimDaily(ctx, "erin")
	if err != nil || !res.Granted || res.Balance != 1000 {
		t.Fatalf("next day: %+v %v", res, err)
	}
}

func TestWorkWithinRange(t *testing.T) {
	l, _ := newTestLedger(t)
	rewards := NewRewards(l, testRewardConfig(), &games.Scripted{Ints: []int{100, 0}}, nil)
	ctx := context.Background()

	res, err := rewards.Work(ctx, "frank")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Granted || res.Amount != 165 {
		t.Fatalf("work: %+v", res)
	}
	again, err := rewards.Work(ctx, "frank")
	if err == nil && again.Granted {
		t.Fatal("work allowed twice inside the cooldown")
	}
}

func TestRobConservesCoins(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	if _, err := l.ApplyBalanceDelta(ctx, "victim", 1000, models.KindAdmin, "seed"); err != nil {
		t.Fatal(err)
	}
	if _, err := l.ApplyBalanceDelta(ctx, "robber", 100, models.KindAdmin, "seed"); err != nil {
		t.Fatal(err)
	}

	// success: Float64 below chance, share 10 + 15 = 25%
	rewards := NewRewards(l, testRewardConfig(), &games.Scripted{Floats: []float64{0.1}, Ints: []int{15}}, nil)
	res, err := rewards.Rob(ctx, "robber", "victim")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || res.Amount != 250 || res.VictimBalance != 750 || res.RobberBalance != 350 {
		t.Fatalf("rob: %+v", res)
	}
	if res.VictimBalance+res.RobberBalance != 1100 {
		t.Fatal("robbery created or destroyed coins")
	}

	if _, err := rewards.Rob(ctx, "robber", "robber"); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("expected invalid state robbing yourself, got %v", err)
	}
}

func TestRobFailureFinesRobber(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	if _, err := l.ApplyBalanceDelta(ctx, "victim", 1000, models.KindAdmin, "seed"); err != nil {
		t.Fatal(err)
	}
	if _, err := l.ApplyBalanceDelta(ctx, "robber", 100, models.KindAdmin, "seed"); err != nil {
		t.Fatal(err)
	}
	rewards := NewRewards(l, testRewardConfig(), &games.Scripted{Floats: []float64{0.9}, Ints: []int{0}}, nil)
	res, err := rewards.Rob(ctx, "robber", "victim")
	if err != nil {
		t.Fatal(err)
	}
	// fine of 250 is capped at the robber's 100
	if res.Success || res.Amount != 100 || res.RobberBalance != 0 || res.VictimBalance != 1100 {
		t.Fatalf("failed rob: %+v", res)
	}
}

func TestClaimVote(t *testing.T) {
	var voted atomic.Int32
	voted.Store(1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path != "/bots/42/check" || r.URL.Query().Get("userId") == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"voted":%d}`, voted.Load())
	}))
	defer srv.Close()

	l, _ := newTestLedger(t)
	client := NewTopGGClient(srv.URL, "secret", "42")
	rewards := NewRewards(l, testRewardConfig(), games.NewSeededRNG(1), client)
	ctx := context.Background()

	res, ok, err := rewards.ClaimVote(ctx, "gina")
	if err != nil || !ok || !res.Granted || res.Balance != 1000 {
		t.Fatalf("vote claim: %+v ok=%v err=%v", res, ok, err)
	}
	res, _, err = rewards.ClaimVote(ctx, "gina")
	if err != nil || res.Granted || res.Remaining != 12*time.Hour {
		t.Fatalf("second vote claim: %+v %v", res, err)
	}

	voted.Store(0)
	other, ok, err := rewards.ClaimVote(ctx, "gina2")
	if err != nil {
		t.Fatalf("vote check for unknown user should not error: %v", err)
	}
	if ok || other.Granted {
		t.Fatalf("unvoted user rewarded: %+v", other)
	}
}

func TestExportRoundTrip(t *testing.T) {
	l, clock := newTestLedger(t)
	ctx := context.Background()
	start := clock.Now()
	for i := 0; i < 5; i++ {
		if _, err := l.ApplyBalanceDelta(ctx, "henry", 10, models.KindAdmin, "seed"); err != nil {
			t.Fatal(err)
		}
		clock.Advance(time.Minute)
	}

	var buf bytes.Buffer
	n, err := l.Export(ctx, &buf, start.Add(2*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("exported %d rows, want 3", n)
	}

	var balances []int64
	err = ReadExport(&buf, func(tr models.Transaction) error {
		balances = append(balances, tr.BalanceAfter)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(balances) != 3 || balances[0] != 30 || balances[2] != 50 {
		t.Fatalf("decoded %v", balances)
	}
}
