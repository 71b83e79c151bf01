// Package casino settles one-shot wagers: it validates the bet, asks the
// game's resolver for an outcome, and books stake, payout and stats in a
// single ledger transaction.
package casino

import (
	"context"
	"fmt"
	"log/slog"

	"econbot/config"
	"econbot/database"
	"econbot/economy"
	"econbot/games"
	"econbot/games/craps"
	"econbot/games/dice"
	"econbot/games/roulette"
	"econbot/games/slots"
	"econbot/metrics"
	"econbot/models"
)

// Kind names a one-shot game
type Kind string

const (
	Roulette Kind = "roulette"
	Craps    Kind = "craps"
	Slots    Kind = "slots"
	Dice     Kind = "dice"
)

// Params carries the game-specific part of a wager
type Params struct {
	// Bet is the roulette or craps bet name
	Bet string
	// Preset names the slot machine or dice table; empty picks the default
	Preset string
	// Target is the dice sum
	Target int
}

// Limits are the bet bounds and experience per wager
type Limits struct {
	MinBet     int64
	MaxBet     int64
	XPPerWager int64
}

func LimitsFrom(cfg *config.Config) Limits {
	return Limits{MinBet: cfg.MinBet, MaxBet: cfg.MaxBet, XPPerWager: cfg.XPPerWager}
}

// Result is what a settled wager reports back
type Result struct {
	Win        bool
	Payout     int64
	NewBalance int64
	Multiplier float64
	Details    map[string]any
	Experience models.ExperienceResult
}

// Service executes wagers against the ledger
type Service struct {
	ledger  *economy.Ledger
	presets *config.Presets
	limits  Limits
	rng     games.RNG
	metrics *metrics.Collector
	log     *slog.Logger
}

func NewService(ledger *economy.Ledger, presets *config.Presets, limits Limits, rng games.RNG, m *metrics.Collector, logger *slog.Logger) *Service {
	if rng == nil {
		rng = games.NewRNG()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{ledger: ledger, presets: presets, limits: limits, rng: rng, metrics: m, log: logger}
}

// Limits returns the configured bet bounds
func (s *Service) Limits() Limits { return s.limits }

// ValidateBet checks bet against the configured bounds
func (s *Service) ValidateBet(bet int64) error {
	if bet < s.limits.MinBet {
		return fmt.Errorf("%w: minimum bet is %d", models.ErrInvalidBet, s.limits.MinBet)
	}
	if s.limits.MaxBet > 0 && bet > s.limits.MaxBet {
		return fmt.Errorf("%w: maximum bet is %d", models.ErrInvalidBet, s.limits.MaxBet)
	}
	return nil
}

func presetName(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

// resolve runs the resolver for kind. It never touches the store.
func (s *Service) resolve(kind Kind, p Params) (games.Outcome, error) {
	switch kind {
	case Roulette:
		b, err := roulette.ParseBet(p.Bet)
		if err != nil {
			return games.Outcome{}, err
		}
		return roulette.Resolve(s.rng, b)
	case Craps:
		b, err := craps.ParseBet(p.Bet)
		if err != nil {
			return games.Outcome{}, err
		}
		return craps.Resolve(s.rng, b)
	case Slots:
		m, err := s.presets.SlotMachine(presetName(p.Preset, "casino"))
		if err != nil {
			return games.Outcome{}, err
		}
		return slots.Resolve(s.rng, m)
	case Dice:
		t, err := s.presets.DiceTable(presetName(p.Preset, "default"))
		if err != nil {
			return games.Outcome{}, err
		}
		return dice.Resolve(s.rng, t, p.Target)
	}
	return games.Outcome{}, fmt.Errorf("%w: unknown game %q", models.ErrInvalidBet, kind)
}

// ExecuteWager validates the bet, resolves the game and settles it. The
// stake debit, payout credit, experience and stats commit together; on any
// failure nothing is written.
func (s *Service) ExecuteWager(ctx context.Context, kind Kind, accountID string, bet int64, p Params) (*Result, error) {
	if err := s.ValidateBet(bet); err != nil {
		return nil, err
	}
	outcome, err := s.resolve(kind, p)
	if err != nil {
		return nil, err
	}
	payout := games.Payout(bet, outcome.Multiplier)

	res := &Result{Win: outcome.Win, Payout: payout, Multiplier: outcome.Multiplier, Details: outcome.Details}
	err = s.ledger.InTx(ctx, string(kind), func(tx database.Tx) error {
		now := s.ledger.Now()
		bal, err := economy.ApplyDelta(ctx, tx, accountID, -bet, models.KindWager, string(kind), now)
		if err != nil {
			return err
		}
		if payout > 0 {
			if bal, err = economy.ApplyDelta(ctx, tx, accountID, payout, models.KindPayout, string(kind), now); err != nil {
				return err
			}
		}
		res.NewBalance = bal

		patch := models.AccountPatch{GamesPlayedIncrement: 1, TotalWageredIncrement: bet, TotalWonIncrement: payout}
		if payout > bet {
			patch.GamesWonIncrement = 1
		}
		if err := tx.PatchAccount(ctx, accountID, patch); err != nil {
			return fmt.Errorf("patch stats: %w", err)
		}
		if s.limits.XPPerWager > 0 {
			if res.Experience, err = economy.AddExperience(ctx, tx, accountID, s.limits.XPPerWager); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveWager(string(kind), bet, payout)
	s.log.Debug("wager settled",
		slog.String("game", string(kind)),
		slog.String("account", accountID),
		slog.Int64("bet", bet),
		slog.Int64("payout", payout))
	return res, nil
}
