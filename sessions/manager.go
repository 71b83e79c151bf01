// Package sessions runs the turn-based games. Every live game is a session
// with its own mutex. A step that moves money commits in one ledger
// transaction, and a failed commit puts the game back the way it was.
package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"econbot/config"
	"econbot/database"
	"econbot/economy"
	"econbot/games"
	"econbot/games/blackjack"
	"econbot/games/hotpotato"
	"econbot/games/treasurehunt"
	"econbot/games/wordchain"
	"econbot/metrics"
	"econbot/models"
)

// Kind names a turn-based game
type Kind string

const (
	Blackjack    Kind = "blackjack"
	WordChain    Kind = "wordchain"
	TreasureHunt Kind = "treasurehunt"
	HotPotato    Kind = "hotpotato"
)

// persistent kinds are written to the store on every step and restored on boot
func (k Kind) persistent() bool { return k == WordChain || k == TreasureHunt }

// ID is the session id for kind. Blackjack hands and treasure hunts are keyed
// by account; word chain and hot potato by channel.
func ID(kind Kind, key string) string { return string(kind) + ":" + key }

const (
	blackjackTTL   = 10 * time.Minute
	multiplayerTTL = time.Hour
	retryDelay     = 5 * time.Second
)

// BetValidator checks a stake against the configured bet bounds
type BetValidator interface {
	ValidateBet(bet int64) error
}

type session struct {
	mu        sync.Mutex
	id        string
	kind      Kind
	channelID string
	game      any
	idle      time.Duration
	deadline  time.Time
	timer     *time.Timer
	done      bool
}

// statLine is one player's contribution to the played/won counters
type statLine struct {
	AccountID string
	Wagered   int64
	Won       int64
}

// step is what one transition owes the ledger
type step struct {
	entries []games.Entry
	stats   []statLine
	event   string
	detail  any
}

// Manager owns every live session
type Manager struct {
	ledger  *economy.Ledger
	store   Store
	presets *config.Presets
	bets    BetValidator
	rng     games.RNG
	metrics *metrics.Collector
	log     *slog.Logger
	xp      int64
	newDeck func() *blackjack.Deck

	mu     sync.Mutex
	notify func(channelID string, v View)
	closed atomic.Bool
}

func NewManager(ledger *economy.Ledger, store Store, presets *config.Presets, bets BetValidator, rng games.RNG, m *metrics.Collector, logger *slog.Logger, xpPerGame int64) *Manager {
	if rng == nil {
		rng = games.NewRNG()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		ledger:  ledger,
		store:   store,
		presets: presets,
		bets:    bets,
		rng:     rng,
		metrics: m,
		log:     logger,
		xp:      xpPerGame,
		newDeck: func() *blackjack.Deck { return blackjack.NewDeck(rng) },
	}
}

// SetNotifier registers the callback for transitions nobody asked for:
// timeouts and evictions.
func (m *Manager) SetNotifier(fn func(channelID string, v View)) {
	m.mu.Lock()
	m.notify = fn
	m.mu.Unlock()
}

// Close stops timers from firing. Live sessions stay in the store.
func (m *Manager) Close() { m.closed.Store(true) }

func (m *Manager) now() time.Time { return m.ledger.Now() }

func (m *Manager) ttl(kind Kind) time.Duration {
	switch kind {
	case Blackjack:
		return blackjackTTL
	case TreasureHunt:
		if ttl := m.presets.TreasureHunt.IdleTTL; ttl > 0 {
			return ttl
		}
		return 24 * time.Hour
	}
	return multiplayerTTL
}

func (m *Manager) publish(channelID string, v View) {
	m.mu.Lock()
	fn := m.notify
	m.mu.Unlock()
	if fn != nil && channelID != "" {
		fn(channelID, v)
	}
}

// reserve claims s.id and returns with s locked
func (m *Manager) reserve(s *session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store.Get(s.id); ok {
		return fmt.Errorf("%w: a %s game is already running", models.ErrInvalidState, s.kind)
	}
	s.mu.Lock()
	m.store.Put(Entry{ID: s.id, Kind: s.kind, Value: s, ExpiresAt: m.now().Add(m.ttl(s.kind))})
	return nil
}

// acquire returns the live session locked
func (m *Manager) acquire(id string) (*session, error) {
	e, ok := m.store.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: no game %s", models.ErrNotFound, id)
	}
	s := e.Value.(*session)
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: game %s is over", models.ErrNotFound, id)
	}
	return s, nil
}

// open books the opening step of a new session
func (m *Manager) open(ctx context.Context, s *session, st step) (View, error) {
	if err := m.reserve(s); err != nil {
		return View{}, err
	}
	defer s.mu.Unlock()
	now := m.now()
	balances, err := m.commit(ctx, s, st, now)
	if err != nil {
		s.done = true
		m.store.CompareAndDelete(s.id, s)
		return View{}, err
	}
	m.after(s, now)
	m.log.Debug("session opened", slog.String("id", s.id), slog.String("kind", string(s.kind)))
	return m.view(s, st, balances), nil
}

// run applies mutate to a locked session and commits what it owes. Any
// failure restores the game to its state before the call.
func (m *Manager) run(ctx context.Context, s *session, mutate func(now time.Time) (step, error)) (View, error) {
	restore, err := snapshot(s)
	if err != nil {
		return View{}, err
	}
	now := m.now()
	st, err := mutate(now)
	if err != nil {
		restore()
		return View{}, err
	}
	balances, err := m.commit(ctx, s, st, now)
	if err != nil {
		restore()
		return View{}, err
	}
	m.after(s, now)
	return m.view(s, st, balances), nil
}

// snapshot returns a func that puts the game back to its current state
func snapshot(s *session) (func(), error) {
	switch g := s.game.(type) {
	case *blackjack.Game:
		prev := g.Clone()
		return func() { s.game = prev }, nil
	case *wordchain.Game:
		return jsonSnapshot(s, g)
	case *treasurehunt.Game:
		return jsonSnapshot(s, g)
	case *hotpotato.Game:
		return jsonSnapshot(s, g)
	}
	return nil, fmt.Errorf("%w: unknown game %T", models.ErrInvariantViolation, s.game)
}

func jsonSnapshot[T any](s *session, g *T) (func(), error) {
	raw, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", s.id, err)
	}
	return func() {
		var prev T
		if err := json.Unmarshal(raw, &prev); err == nil {
			s.game = &prev
		}
	}, nil
}

// commit applies the step's entries, stats and persistence in one transaction
func (m *Manager) commit(ctx context.Context, s *session, st step, now time.Time) (map[string]int64, error) {
	terminal := status(s.game).IsTerminal()
	cur, held := m.store.Get(s.id)
	displaced := held && cur.Value != s
	var state []byte
	if s.kind.persistent() && !terminal {
		raw, err := json.Marshal(s.game)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", s.id, err)
		}
		state = raw
	}
	var ids []string
	for _, e := range st.entries {
		ids = append(ids, e.AccountID)
	}
	for _, sl := range st.stats {
		ids = append(ids, sl.AccountID)
	}

	balances := make(map[string]int64, len(ids))
	err := m.ledger.InTx(ctx, "session_"+string(s.kind), func(tx database.Tx) error {
		clear(balances)
		if err := economy.LockAccounts(ctx, tx, ids...); err != nil {
			return err
		}
		for _, e := range st.entries {
			amount := e.Amount
			if e.Clamp && amount < 0 {
				acct, err := tx.GetAccount(ctx, e.AccountID)
				if err != nil {
					return err
				}
				amount = -min(-amount, acct.Balance)
			}
			kind := e.Kind
			if kind == "" {
				kind = models.KindSession
			}
			bal, err := economy.ApplyDelta(ctx, tx, e.AccountID, amount, kind, string(s.kind)+": "+e.Description, now)
			if err != nil {
				return err
			}
			balances[e.AccountID] = bal
		}
		for _, sl := range st.stats {
			patch := models.AccountPatch{GamesPlayedIncrement: 1, TotalWageredIncrement: sl.Wagered, TotalWonIncrement: sl.Won}
			if sl.Won > sl.Wagered {
				patch.GamesWonIncrement = 1
			}
			if err := tx.PatchAccount(ctx, sl.AccountID, patch); err != nil {
				return fmt.Errorf("patch stats: %w", err)
			}
			if m.xp > 0 {
				if _, err := economy.AddExperience(ctx, tx, sl.AccountID, m.xp); err != nil {
					return err
				}
			}
		}
		if !s.kind.persistent() || displaced {
			return nil
		}
		if terminal {
			return tx.DeleteSession(ctx, s.id)
		}
		return tx.SaveSession(ctx, &models.PersistedSession{ID: s.id, Kind: string(s.kind), State: state, UpdatedAt: now})
	})
	if err != nil {
		return nil, err
	}
	for _, sl := range st.stats {
		m.metrics.ObserveWager(string(s.kind), sl.Wagered, sl.Won)
	}
	return balances, nil
}

// after either retires a finished session or refreshes its expiry and timer.
// An id that a newer session has claimed since a sweep is left alone.
func (m *Manager) after(s *session, now time.Time) {
	if status(s.game).IsTerminal() {
		s.done = true
		if s.timer != nil {
			s.timer.Stop()
		}
		m.store.CompareAndDelete(s.id, s)
	} else if m.store.PutIfVacant(Entry{ID: s.id, Kind: s.kind, Value: s, ExpiresAt: now.Add(m.ttl(s.kind))}) {
		m.arm(s, m.deadline(s, now))
	} else {
		m.log.Error("live session displaced", slog.String("id", s.id), slog.String("kind", string(s.kind)))
	}
	m.metrics.SetActiveSessions(string(s.kind), m.store.Len(s.kind))
}

// deadline is when the current state times out, or zero if it never does
func (m *Manager) deadline(s *session, now time.Time) time.Time {
	switch g := s.game.(type) {
	case *blackjack.Game:
		if g.Phase == blackjack.PlayerTurn {
			return now.Add(s.idle)
		}
	case *wordchain.Game:
		switch g.Status {
		case models.StatusWaiting:
			return g.JoinDeadline
		case models.StatusInProgress:
			return g.TurnDeadline
		}
	case *hotpotato.Game:
		if g.Status == models.StatusInProgress {
			return g.HoldDeadline
		}
	}
	return time.Time{}
}

// arm replaces the session timer. Callers hold s.mu.
func (m *Manager) arm(s *session, deadline time.Time) {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.deadline = deadline
	if deadline.IsZero() {
		return
	}
	d := deadline.Sub(m.now())
	if d < 0 {
		d = 0
	}
	id := s.id
	s.timer = time.AfterFunc(d, func() { m.fire(id) })
}

// fire handles a timer. The deadline is checked again under the lock, so a
// timer that lost the race with a player's move does nothing.
func (m *Manager) fire(id string) {
	if m.closed.Load() {
		return
	}
	s, err := m.acquire(id)
	if err != nil {
		return
	}
	if s.deadline.IsZero() || m.now().Before(s.deadline) {
		s.mu.Unlock()
		return
	}
	v, err := m.run(context.Background(), s, func(now time.Time) (step, error) {
		return m.expire(s, now)
	})
	if err != nil {
		m.log.Error("session timeout failed", slog.String("id", id), slog.Any("error", err))
		m.arm(s, m.now().Add(retryDelay))
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	m.publish(s.channelID, v)
}

// Sweep evicts every session idle past its TTL
func (m *Manager) Sweep(now time.Time) int {
	expired := m.store.Sweep(now)
	for _, e := range expired {
		m.Abandon(e)
	}
	return len(expired)
}

// Abandon settles an evicted session: a blackjack hand stands, unfinished
// multiplayer games refund their fees, and a treasure hunt is forfeited.
func (m *Manager) Abandon(e Entry) {
	s, ok := e.Value.(*session)
	if !ok {
		return
	}
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	// a step between the sweep and the lock put it back
	if cur, ok := m.store.Get(s.id); ok && cur.Value == s {
		s.mu.Unlock()
		return
	}
	v, err := m.run(context.Background(), s, func(now time.Time) (step, error) {
		return m.abandon(s, now)
	})
	if err != nil {
		m.log.Error("abandon session failed", slog.String("id", s.id), slog.Any("error", err))
		if !m.store.PutIfVacant(Entry{ID: s.id, Kind: s.kind, Value: s, ExpiresAt: m.now().Add(retryDelay)}) {
			// a newer session holds the id, so the next sweep will not see this one
			time.AfterFunc(retryDelay, func() {
				if !m.closed.Load() {
					m.Abandon(e)
				}
			})
		}
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	m.log.Info("session abandoned", slog.String("id", s.id), slog.String("kind", string(s.kind)))
	m.publish(s.channelID, v)
}

// Advance applies a player action to a session
func (m *Manager) Advance(ctx context.Context, id string, action Action, actorID string) (View, error) {
	s, err := m.acquire(id)
	if err != nil {
		return View{}, err
	}
	defer s.mu.Unlock()
	return m.run(ctx, s, func(now time.Time) (step, error) {
		switch g := s.game.(type) {
		case *blackjack.Game:
			return m.blackjackStep(g, action, actorID)
		case *wordchain.Game:
			return m.wordChainStep(g, action, actorID, now)
		case *treasurehunt.Game:
			return m.treasureHuntStep(g, action, actorID, now)
		case *hotpotato.Game:
			return m.hotPotatoStep(g, action, actorID, now)
		}
		return step{}, fmt.Errorf("%w: unknown game %T", models.ErrInvariantViolation, s.game)
	})
}

// Join enters actorID into a word chain or hot potato lobby
func (m *Manager) Join(ctx context.Context, id, actorID string) (View, error) {
	return m.Advance(ctx, id, Action{Name: ActJoin}, actorID)
}

// Get returns the current view of a session
func (m *Manager) Get(id string) (View, error) {
	s, err := m.acquire(id)
	if err != nil {
		return View{}, err
	}
	defer s.mu.Unlock()
	return m.view(s, step{}, nil), nil
}

// Restore loads persisted word chains and treasure hunts and re-arms their
// timers. A deadline that passed while the bot was down fires at once.
func (m *Manager) Restore(ctx context.Context) (int, error) {
	n := 0
	for _, kind := range []Kind{WordChain, TreasureHunt} {
		rows, err := database.ReadOnly(ctx, m.ledger.Store(), func(tx database.Tx) ([]models.PersistedSession, error) {
			return tx.ListSessions(ctx, string(kind))
		})
		if err != nil {
			return n, fmt.Errorf("list %s sessions: %w", kind, err)
		}
		for _, row := range rows {
			s, err := decode(row)
			if err != nil {
				m.log.Warn("skipping unreadable session", slog.String("id", row.ID), slog.Any("error", err))
				continue
			}
			now := m.now()
			s.mu.Lock()
			m.store.Put(Entry{ID: s.id, Kind: s.kind, Value: s, ExpiresAt: now.Add(m.ttl(s.kind))})
			m.arm(s, m.deadline(s, now))
			s.mu.Unlock()
			n++
		}
		m.metrics.SetActiveSessions(string(kind), m.store.Len(kind))
	}
	return n, nil
}

func decode(row models.PersistedSession) (*session, error) {
	switch Kind(row.Kind) {
	case WordChain:
		var g wordchain.Game
		if err := json.Unmarshal(row.State, &g); err != nil {
			return nil, err
		}
		if g.Used == nil {
			g.Used = make(map[string]bool)
		}
		return &session{id: row.ID, kind: WordChain, channelID: g.ChannelID, game: &g}, nil
	case TreasureHunt:
		var g treasurehunt.Game
		if err := json.Unmarshal(row.State, &g); err != nil {
			return nil, err
		}
		return &session{id: row.ID, kind: TreasureHunt, game: &g}, nil
	}
	return nil, fmt.Errorf("%w: session kind %q", models.ErrInvalidState, row.Kind)
}

func status(game any) models.GameStatus {
	switch g := game.(type) {
	case *blackjack.Game:
		switch g.Phase {
		case blackjack.Settled:
			return models.StatusSettled
		case blackjack.DealerTurn:
			return models.StatusResolving
		}
		return models.StatusInProgress
	case *wordchain.Game:
		return g.Status
	case *treasurehunt.Game:
		return g.Status
	case *hotpotato.Game:
		return g.Status
	}
	return models.StatusCreated
}
