package sessions

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"econbot/config"
	"econbot/database"
	"econbot/economy"
	"econbot/games"
	"econbot/games/blackjack"
	"econbot/models"
)

var t0 = time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)

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

type betRange struct{ min, max int64 }

func (b betRange) ValidateBet(bet int64) error {
	if bet < b.min || bet > b.max {
		return models.ErrInvalidBet
	}
	return nil
}

type testEnv struct {
	m      *Manager
	ledger *economy.Ledger
	store  database.Store
	clock  *fakeClock

	mu     sync.Mutex
	events []View
}

func newEnv(t *testing.T, rng games.RNG) *testEnv {
	t.Helper()
	store, err := database.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(store.Close)
	presets, err := config.LoadPresets("")
	if err != nil {
		t.Fatal(err)
	}
	presets.TreasureHunt = config.TreasureHuntPreset{
		EntryFee:        200,
		GridSize:        2,
		Treasures:       1,
		TreasureReward:  500,
		CompletionBonus: 2000,
		IdleTTL:         time.Hour,
	}
	clock := &fakeClock{t: t0}
	ledger := economy.NewLedger(store, nil, nil)
	ledger.SetClock(clock.Now)

	env := &testEnv{ledger: ledger, store: store, clock: clock}
	env.m = NewManager(ledger, NewMemoryStore(), presets, betRange{10, 1000}, rng, nil, nil, 10)
	env.m.SetNotifier(func(_ string, v View) {
		env.mu.Lock()
		env.events = append(env.events, v)
		env.mu.Unlock()
	})
	t.Cleanup(env.m.Close)
	return env
}

func (e *testEnv) seed(t *testing.T, id string, amount int64) {
	t.Helper()
	if _, err := e.ledger.ApplyBalanceDelta(context.Background(), id, amount, models.KindAdmin, "seed"); err != nil {
		t.Fatal(err)
	}
}

func (e *testEnv) balance(t *testing.T, id string) int64 {
	t.Helper()
	acct, err := e.ledger.Account(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	return acct.Balance
}

func (e *testEnv) persisted(t *testing.T, kind Kind) int {
	t.Helper()
	rows, err := database.ReadOnly(context.Background(), e.store, func(tx database.Tx) ([]models.PersistedSession, error) {
		return tx.ListSessions(context.Background(), string(kind))
	})
	if err != nil {
		t.Fatal(err)
	}
	return len(rows)
}

func (e *testEnv) lastEvent(t *testing.T) View {
	t.Helper()
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.events) == 0 {
		t.Fatal("no timer event published")
	}
	return e.events[len(e.events)-1]
}

func deckOf(ranks ...string) func() *blackjack.Deck {
	return func() *blackjack.Deck {
		cards := make([]blackjack.Card, len(ranks))
		for i, r := range ranks {
			cards[i] = blackjack.Card{Rank: r, Suit: "♠️"}
		}
		return blackjack.StackedDeck(cards...)
	}
}

func TestBlackjackNaturalSettlesAtOnce(t *testing.T) {
	env := newEnv(t, nil)
	env.seed(t, "ann", 1000)
	env.m.newDeck = deckOf("A", "9", "K", "7")
	ctx := context.Background()

	v, err := env.m.StartBlackjack(ctx, "chan", "ann", 100, "")
	if err != nil {
		t.Fatal(err)
	}
	if v.State != models.StatusSettled || v.Event != string(blackjack.ResultNatural) {
		t.Fatalf("view = %+v", v)
	}
	if got := env.balance(t, "ann"); got != 1150 {
		t.Fatalf("balance = %d, want 1150", got)
	}
	if _, err := env.m.Get(ID(Blackjack, "ann")); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("settled hand still live: %v", err)
	}
	acct, _ := env.ledger.Account(ctx, "ann")
	if acct.GamesPlayed != 1 || acct.GamesWon != 1 || acct.TotalWon != 250 || acct.Experience != 10 {
		t.Fatalf("stats = %+v", acct)
	}
}

func TestBlackjackRules(t *testing.T) {
	env := newEnv(t, nil)
	env.seed(t, "ann", 1000)
	env.m.newDeck = deckOf("10", "9", "7", "8", "2")
	ctx := context.Background()

	if _, err := env.m.StartBlackjack(ctx, "chan", "ann", 5, ""); !errors.Is(err, models.ErrInvalidBet) {
		t.Fatalf("small bet: %v", err)
	}
	if _, err := env.m.StartBlackjack(ctx, "chan", "ann", 100, "vegas"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("unknown table: %v", err)
	}
	if _, err := env.m.StartBlackjack(ctx, "chan", "ann", 100, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := env.m.StartBlackjack(ctx, "chan", "ann", 100, ""); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("second hand: %v", err)
	}
	if got := env.balance(t, "ann"); got != 900 {
		t.Fatalf("balance = %d, want one stake taken", got)
	}
	id := ID(Blackjack, "ann")
	if _, err := env.m.Advance(ctx, id, Action{Name: ActHit}, "bob"); !errors.Is(err, models.ErrNotAuthorized) {
		t.Fatalf("stranger hit: %v", err)
	}
	if _, err := env.m.Advance(ctx, id, Action{Name: "split"}, "ann"); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("split: %v", err)
	}
	// 17 against 17: the dealer stands and the stake comes back
	v, err := env.m.Advance(ctx, id, Action{Name: ActStand}, "ann")
	if err != nil {
		t.Fatal(err)
	}
	if v.Event != string(blackjack.ResultPush) || v.Balances["ann"] != 1000 {
		t.Fatalf("stand = %+v", v)
	}
}

func TestBlackjackFailedDoubleLeavesHandIntact(t *testing.T) {
	env := newEnv(t, nil)
	env.seed(t, "ann", 150)
	env.m.newDeck = deckOf("5", "9", "6", "7", "K", "K")
	ctx := context.Background()
	id := ID(Blackjack, "ann")

	if _, err := env.m.StartBlackjack(ctx, "chan", "ann", 100, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := env.m.Advance(ctx, id, Action{Name: ActDouble}, "ann"); !errors.Is(err, models.ErrInsufficientFunds) {
		t.Fatalf("double without funds: %v", err)
	}
	v, err := env.m.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	hand := v.Public.(BlackjackView)
	if len(hand.Player) != 2 || hand.Bet != 100 || v.State != models.StatusInProgress {
		t.Fatalf("hand after failed double = %+v", hand)
	}
	// the dealer draws the king the double would have taken and busts
	v, err = env.m.Advance(ctx, id, Action{Name: ActStand}, "ann")
	if err != nil {
		t.Fatal(err)
	}
	if v.Event != string(blackjack.ResultDealerBust) {
		t.Fatalf("event = %s", v.Event)
	}
	if got := env.balance(t, "ann"); got != 250 {
		t.Fatalf("balance = %d, want 250", got)
	}
}

func TestBlackjackInactivityStands(t *testing.T) {
	env := newEnv(t, nil)
	env.seed(t, "ann", 1000)
	env.m.newDeck = deckOf("10", "9", "8", "7", "K")
	ctx := context.Background()
	id := ID(Blackjack, "ann")

	if _, err := env.m.StartBlackjack(ctx, "chan", "ann", 100, ""); err != nil {
		t.Fatal(err)
	}
	env.clock.Advance(30 * time.Second)
	env.m.fire(id)
	if v, err := env.m.Get(id); err != nil || v.State != models.StatusInProgress {
		t.Fatalf("early timer acted: %+v %v", v, err)
	}

	env.clock.Advance(30 * time.Second)
	env.m.fire(id)
	ev := env.lastEvent(t)
	if ev.Event != "timeout: "+string(blackjack.ResultDealerBust) || ev.ChannelID != "chan" {
		t.Fatalf("event = %+v", ev)
	}
	if got := env.balance(t, "ann"); got != 1100 {
		t.Fatalf("balance = %d, want 1100", got)
	}
	// a second firing finds nothing to do
	env.m.fire(id)
}

func TestWordChainGame(t *testing.T) {
	env := newEnv(t, nil)
	env.seed(t, "ann", 1000)
	env.seed(t, "bob", 1000)
	ctx := context.Background()
	id := ID(WordChain, "chan")

	if _, err := env.m.OpenWordChain(ctx, "chan", "ann", 0); err != nil {
		t.Fatal(err)
	}
	if _, err := env.m.Join(ctx, id, "bob"); err != nil {
		t.Fatal(err)
	}
	if n := env.persisted(t, WordChain); n != 1 {
		t.Fatalf("persisted = %d", n)
	}

	env.clock.Advance(60 * time.Second)
	env.m.fire(id)
	if ev := env.lastEvent(t); ev.Event != "started" {
		t.Fatalf("event = %+v", ev)
	}

	if _, err := env.m.Advance(ctx, id, Action{Name: ActPlay, Arg: "apple"}, "bob"); !errors.Is(err, models.ErrNotAuthorized) {
		t.Fatalf("out of turn: %v", err)
	}
	if _, err := env.m.Advance(ctx, id, Action{Name: ActPlay, Arg: "apple"}, "ann"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.m.Advance(ctx, id, Action{Name: ActPlay, Arg: "zebra"}, "bob"); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("broken chain: %v", err)
	}
	v, err := env.m.Advance(ctx, id, Action{Name: ActPlay, Arg: "egg"}, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if wc := v.Public.(WordChainView); wc.Current != "ann" || wc.LastWord != "egg" {
		t.Fatalf("view = %+v", wc)
	}

	env.clock.Advance(30 * time.Second)
	env.m.fire(id)
	ev := env.lastEvent(t)
	if ev.Event != "completed" || ev.Public.(WordChainView).Winner != "bob" {
		t.Fatalf("event = %+v", ev)
	}
	if a, b := env.balance(t, "ann"), env.balance(t, "bob"); a != 900 || b != 1100 {
		t.Fatalf("balances ann %d bob %d", a, b)
	}
	if n := env.persisted(t, WordChain); n != 0 {
		t.Fatalf("finished game still persisted: %d", n)
	}
	acct, _ := env.ledger.Account(ctx, "bob")
	if acct.GamesWon != 1 {
		t.Fatalf("bob stats = %+v", acct)
	}
}

func TestWordChainCancelledRefunds(t *testing.T) {
	env := newEnv(t, nil)
	env.seed(t, "ann", 1000)
	ctx := context.Background()
	id := ID(WordChain, "chan")

	if _, err := env.m.OpenWordChain(ctx, "chan", "ann", 0); err != nil {
		t.Fatal(err)
	}
	if got := env.balance(t, "ann"); got != 900 {
		t.Fatalf("fee not taken: %d", got)
	}
	env.clock.Advance(60 * time.Second)
	env.m.fire(id)
	if ev := env.lastEvent(t); ev.Event != "cancelled" {
		t.Fatalf("event = %+v", ev)
	}
	if got := env.balance(t, "ann"); got != 1000 {
		t.Fatalf("balance = %d, want refund", got)
	}
	hist, _ := env.ledger.History(ctx, "ann", 1)
	if len(hist) != 1 || hist[0].Kind != models.KindRefund {
		t.Fatalf("history = %+v", hist)
	}
}

func TestWordChainRestore(t *testing.T) {
	env := newEnv(t, nil)
	env.seed(t, "ann", 1000)
	env.seed(t, "bob", 1000)
	ctx := context.Background()
	id := ID(WordChain, "chan")

	if _, err := env.m.OpenWordChain(ctx, "chan", "ann", 45*time.Second); err != nil {
		t.Fatal(err)
	}
	if _, err := env.m.Join(ctx, id, "bob"); err != nil {
		t.Fatal(err)
	}

	presets, _ := config.LoadPresets("")
	restarted := NewManager(env.ledger, NewMemoryStore(), presets, betRange{10, 1000}, nil, nil, nil, 10)
	t.Cleanup(restarted.Close)
	n, err := restarted.Restore(ctx)
	if err != nil || n != 1 {
		t.Fatalf("restored %d, %v", n, err)
	}
	v, err := restarted.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	wc := v.Public.(WordChainView)
	if len(wc.Players) != 2 || wc.Pot != 200 || v.State != models.StatusWaiting {
		t.Fatalf("restored view = %+v", v)
	}
	if _, err := restarted.Join(ctx, id, "ann"); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("double join after restore: %v", err)
	}
}

func TestTreasureHuntWalk(t *testing.T) {
	env := newEnv(t, games.NewSeededRNG(7))
	env.seed(t, "ann", 1000)
	ctx := context.Background()
	id := ID(TreasureHunt, "ann")

	if _, err := env.m.StartTreasureHunt(ctx, "chan", "ann"); err != nil {
		t.Fatal(err)
	}
	if got := env.balance(t, "ann"); got != 800 {
		t.Fatalf("fee not taken: %d", got)
	}
	if n := env.persisted(t, TreasureHunt); n != 1 {
		t.Fatalf("persisted = %d", n)
	}
	if _, err := env.m.Advance(ctx, id, Action{Name: ActMove, Arg: "e"}, "bob"); !errors.Is(err, models.ErrNotAuthorized) {
		t.Fatalf("stranger move: %v", err)
	}
	if _, err := env.m.Advance(ctx, id, Action{Name: ActMove, Arg: "n"}, "ann"); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("off the map: %v", err)
	}

	var v View
	for _, dir := range []string{"e", "s", "w"} {
		var err error
		if v, err = env.m.Advance(ctx, id, Action{Name: ActMove, Arg: dir}, "ann"); err != nil {
			t.Fatal(err)
		}
		if v.State == models.StatusCompleted {
			break
		}
	}
	if v.State != models.StatusCompleted {
		t.Fatal("walked every cell without finding the treasure")
	}
	if got := env.balance(t, "ann"); got != 3300 {
		t.Fatalf("balance = %d, want 3300", got)
	}
	if n := env.persisted(t, TreasureHunt); n != 0 {
		t.Fatalf("finished hunt still persisted: %d", n)
	}
}

func TestHotPotatoExplosion(t *testing.T) {
	env := newEnv(t, &games.Scripted{Floats: []float64{0.05}})
	env.seed(t, "ann", 1000)
	env.seed(t, "bob", 1000)
	env.seed(t, "cat", 100)
	ctx := context.Background()
	id := ID(HotPotato, "chan")

	if _, err := env.m.OpenHotPotato(ctx, "chan", "ann"); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{"bob", "cat"} {
		if _, err := env.m.Join(ctx, id, p); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := env.m.Advance(ctx, id, Action{Name: ActStart}, "bob"); !errors.Is(err, models.ErrNotAuthorized) {
		t.Fatalf("guest start: %v", err)
	}
	if _, err := env.m.Advance(ctx, id, Action{Name: ActStart}, "ann"); err != nil {
		t.Fatal(err)
	}

	var v View
	for _, p := range [][2]string{{"ann", "bob"}, {"bob", "ann"}, {"ann", "cat"}} {
		var err error
		if v, err = env.m.Advance(ctx, id, Action{Name: ActPass, Arg: p[1]}, p[0]); err != nil {
			t.Fatal(err)
		}
	}
	if v.Event != "exploded" || v.Public.(PotatoView).Loser != "cat" {
		t.Fatalf("view = %+v", v)
	}
	// cat's penalty is clamped to the nothing left after the fee
	want := map[string]int64{"ann": 1050, "bob": 1050, "cat": 0}
	for id, w := range want {
		if got := env.balance(t, id); got != w {
			t.Errorf("%s balance = %d, want %d", id, got, w)
		}
	}
}

func TestSweepRefundsAbandonedLobby(t *testing.T) {
	env := newEnv(t, nil)
	env.seed(t, "ann", 1000)
	env.seed(t, "bob", 1000)
	ctx := context.Background()
	id := ID(HotPotato, "chan")

	if _, err := env.m.OpenHotPotato(ctx, "chan", "ann"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.m.Join(ctx, id, "bob"); err != nil {
		t.Fatal(err)
	}
	if n := env.m.Sweep(env.clock.Now()); n != 0 {
		t.Fatalf("swept a live lobby: %d", n)
	}
	env.clock.Advance(multiplayerTTL + time.Minute)
	if n := env.m.Sweep(env.clock.Now()); n != 1 {
		t.Fatalf("swept %d", n)
	}
	if ev := env.lastEvent(t); ev.Event != "abandoned" {
		t.Fatalf("event = %+v", ev)
	}
	if a, b := env.balance(t, "ann"), env.balance(t, "bob"); a != 1000 || b != 1000 {
		t.Fatalf("balances ann %d bob %d", a, b)
	}
	if _, err := env.m.Get(id); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("abandoned lobby still live: %v", err)
	}
}

func TestAbandonAfterIdReused(t *testing.T) {
	env := newEnv(t, nil)
	env.seed(t, "ann", 1000)
	env.seed(t, "bob", 1000)
	ctx := context.Background()
	id := ID(HotPotato, "chan")
	fee := env.m.presets.HotPotato.EntryFee

	if _, err := env.m.OpenHotPotato(ctx, "chan", "ann"); err != nil {
		t.Fatal(err)
	}
	env.clock.Advance(2 * time.Hour)
	expired := env.m.store.Sweep(env.clock.Now())
	if len(expired) != 1 {
		t.Fatalf("swept %d", len(expired))
	}
	// bob opens a fresh lobby in the channel before the old one is settled
	if _, err := env.m.OpenHotPotato(ctx, "chan", "bob"); err != nil {
		t.Fatal(err)
	}
	env.m.Abandon(expired[0])

	v, err := env.m.Get(id)
	if err != nil {
		t.Fatalf("new lobby lost: %v", err)
	}
	if p := v.Public.(PotatoView).Players; len(p) != 1 || p[0] != "bob" {
		t.Fatalf("players = %v", p)
	}
	if got := env.balance(t, "ann"); got != 1000 {
		t.Errorf("ann balance = %d, want refund to 1000", got)
	}
	if got := env.balance(t, "bob"); got != 1000-fee {
		t.Errorf("bob balance = %d, want %d", got, 1000-fee)
	}

	// the new lobby still settles normally
	if _, err := env.m.Advance(ctx, id, Action{Name: ActCancel}, "bob"); err != nil {
		t.Fatal(err)
	}
	if got := env.balance(t, "bob"); got != 1000 {
		t.Errorf("bob balance after cancel = %d", got)
	}
}
