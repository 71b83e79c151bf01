package economy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"econbot/config"
	"econbot/database"
	"econbot/games"
	"econbot/models"
)

// RewardConfig carries the business constants for time-gated rewards
type RewardConfig struct {
	DailyAmount int64
	DailyXP     int64
	WorkMin     int64
	WorkMax     int64
	RobChance   float64
	RobFine     int64
	VoteAmount  int64
	Cooldowns   map[string]time.Duration
}

// RewardConfigFrom lifts reward settings out of the env configuration
func RewardConfigFrom(cfg config.Config) RewardConfig {
	return RewardConfig{
		DailyAmount: cfg.DailyReward,
		DailyXP:     cfg.DailyXP,
		WorkMin:     cfg.WorkMin,
		WorkMax:     cfg.WorkMax,
		RobChance:   cfg.RobChance,
		RobFine:     cfg.RobFine,
		VoteAmount:  cfg.VoteReward,
		Cooldowns: map[string]time.Duration{
			config.ActionDaily: cfg.CooldownFor(config.ActionDaily, 24*time.Hour),
			config.ActionWork:  cfg.CooldownFor(config.ActionWork, time.Hour),
			config.ActionRob:   cfg.CooldownFor(config.ActionRob, 2*time.Hour),
			config.ActionVote:  cfg.CooldownFor(config.ActionVote, 12*time.Hour),
		},
	}
}

// ClaimResult is returned by every time-gated reward
type ClaimResult struct {
	Granted   bool
	Amount    int64
	Remaining time.Duration
	Balance   int64
	XP        models.ExperienceResult
}

// RemainingMs returns the cooldown left in milliseconds
func (r ClaimResult) RemainingMs() int64 { return r.Remaining.Milliseconds() }

// RobResult describes a robbery attempt
type RobResult struct {
	Attempted     bool
	Success       bool
	Amount        int64
	Remaining     time.Duration
	RobberBalance int64
	VictimBalance int64
}

// VoteChecker reports whether an account has a fresh vote on record
type VoteChecker interface {
	HasVoted(ctx context.Context, accountID string) (bool, error)
}

// Rewards pays out the daily, work, rob and vote rewards
type Rewards struct {
	ledger *Ledger
	cfg    RewardConfig
	rng    games.RNG
	votes  VoteChecker
}

func NewRewards(ledger *Ledger, cfg RewardConfig, rng games.RNG, votes VoteChecker) *Rewards {
	if rng == nil {
		rng = games.NewRNG()
	}
	return &Rewards{ledger: ledger, cfg: cfg, rng: rng, votes: votes}
}

func (r *Rewards) cooldown(action string) time.Duration {
	return r.cfg.Cooldowns[action]
}

// ClaimDaily grants the daily amount at most once per daily cooldown. The
// cooldown claim, the credit and the LastDailyClaim stamp commit together.
func (r *Rewards) ClaimDaily(ctx context.Context, accountID string) (ClaimResult, error) {
	var res ClaimResult
	err := r.ledger.InTx(ctx, string(models.KindDaily), func(tx database.Tx) error {
		res = ClaimResult{}
		now := r.ledger.now()
		gate, err := CheckCooldown(ctx, tx, accountID, config.ActionDaily, r.cooldown(config.ActionDaily), now)
		if err != nil {
			return err
		}
		if !gate.Allowed {
			res.Remaining = gate.Remaining
			acct, err := tx.GetAccount(ctx, accountID)
			if err != nil {
				return err
			}
			res.Balance = acct.Balance
			return nil
		}
		if res.Balance, err = ApplyDelta(ctx, tx, accountID, r.cfg.DailyAmount, models.KindDaily, "daily reward", now); err != nil {
			return err
		}
		if err := tx.PatchAccount(ctx, accountID, models.AccountPatch{LastDailyClaim: &now}); err != nil {
			return err
		}
		if res.XP, err = AddExperience(ctx, tx, accountID, r.cfg.DailyXP); err != nil {
			return err
		}
		res.Granted = true
		res.Amount = r.cfg.DailyAmount
		return nil
	})
	if err != nil {
		return ClaimResult{}, err
	}
	r.ledger.metrics.ObserveCooldown(config.ActionDaily, res.Granted)
	if res.Granted {
		r.ledger.log.Info("daily claimed", slog.String("account", accountID), slog.Int64("amount", res.Amount))
	}
	return res, nil
}

// Work pays a random amount inside the configured range
func (r *Rewards) Work(ctx context.Context, accountID string) (ClaimResult, error) {
	amount := r.cfg.WorkMin
	if span := r.cfg.WorkMax - r.cfg.WorkMin; span > 0 {
		amount += int64(r.rng.Intn(int(span) + 1))
	}

	var res ClaimResult
	err := r.ledger.InTx(ctx, string(models.KindWork), func(tx database.Tx) error {
		res = ClaimResult{}
		now := r.ledger.now()
		gate, err := CheckCooldown(ctx, tx, accountID, config.ActionWork, r.cooldown(config.ActionWork), now)
		if err != nil {
			return err
		}
		if !gate.Allowed {
			res.Remaining = gate.Remaining
			return nil
		}
		if res.Balance, err = ApplyDelta(ctx, tx, accountID, amount, models.KindWork, "work shift", now); err != nil {
			return err
		}
		if err := tx.PatchAccount(ctx, accountID, models.AccountPatch{LastWorked: &now}); err != nil {
			return err
		}
		res.Granted = true
		res.Amount = amount
		return nil
	})
	if err != nil {
		return ClaimResult{}, err
	}
	r.ledger.metrics.ObserveCooldown(config.ActionWork, res.Granted)
	return res, nil
}

// Rob tries to take part of victim's wallet. A failed attempt fines the
// robber, paid to the victim and capped at what the robber holds. The
// cooldown is consumed either way.
func (r *Rewards) Rob(ctx context.Context, robberID, victimID string) (RobResult, error) {
	if robberID == victimID {
		return RobResult{}, fmt.Errorf("%w: cannot rob yourself", models.ErrInvalidState)
	}
	success := r.rng.Float64() < r.cfg.RobChance
	// share of the victim's wallet taken on success, 10% to 40%
	share := 10 + r.rng.Intn(31)

	var res RobResult
	err := r.ledger.InTx(ctx, string(models.KindRob), func(tx database.Tx) error {
		res = RobResult{}
		if err := LockPair(ctx, tx, robberID, victimID); err != nil {
			return err
		}
		victim, err := tx.GetAccount(ctx, victimID)
		if err != nil {
			return err
		}
		if victim.Balance <= 0 {
			return fmt.Errorf("%w: %s has nothing to steal", models.ErrInvalidState, victimID)
		}
		now := r.ledger.now()
		gate, err := CheckCooldown(ctx, tx, robberID, config.ActionRob, r.cooldown(config.ActionRob), now)
		if err != nil {
			return err
		}
		if !gate.Allowed {
			res.Remaining = gate.Remaining
			return nil
		}
		res.Attempted = true

		from, to := victimID, robberID
		amount := victim.Balance * int64(share) / 100
		if amount < 1 {
			amount = 1
		}
		if !success {
			robber, err := tx.GetAccount(ctx, robberID)
			if err != nil {
				return err
			}
			from, to = robberID, victimID
			amount = min(r.cfg.RobFine, robber.Balance)
		}
		res.Success = success
		res.Amount = amount

		fromBal, err := ApplyDelta(ctx, tx, from, -amount, models.KindRob, "robbery", now)
		if err != nil {
			return err
		}
		toBal, err := ApplyDelta(ctx, tx, to, amount, models.KindRob, "robbery", now)
		if err != nil {
			return err
		}
		if success {
			res.VictimBalance, res.RobberBalance = fromBal, toBal
		} else {
			res.RobberBalance, res.VictimBalance = fromBal, toBal
		}
		return nil
	})
	if err != nil {
		return RobResult{}, err
	}
	r.ledger.metrics.ObserveCooldown(config.ActionRob, res.Attempted)
	return res, nil
}

// ClaimVote pays the vote reward after the vote is verified upstream
func (r *Rewards) ClaimVote(ctx context.Context, accountID string) (ClaimResult, bool, error) {
	if r.votes == nil {
		return ClaimResult{}, false, fmt.Errorf("%w: vote rewards are not configured", models.ErrInvalidState)
	}
	remaining, err := NewCooldownGate(r.ledger).Remaining(ctx, accountID, config.ActionVote)
	if err != nil {
		return ClaimResult{}, false, err
	}
	if remaining > 0 {
		return ClaimResult{Remaining: remaining}, true, nil
	}
	voted, err := r.votes.HasVoted(ctx, accountID)
	if err != nil {
		return ClaimResult{}, false, fmt.Errorf("check vote: %w", err)
	}
	if !voted {
		return ClaimResult{}, false, nil
	}

	var res ClaimResult
	err = r.ledger.InTx(ctx, string(models.KindVote), func(tx database.Tx) error {
		res = ClaimResult{}
		now := r.ledger.now()
		gate, err := CheckCooldown(ctx, tx, accountID, config.ActionVote, r.cooldown(config.ActionVote), now)
		if err != nil {
			return err
		}
		if !gate.Allowed {
			res.Remaining = gate.Remaining
			return nil
		}
		if res.Balance, err = ApplyDelta(ctx, tx, accountID, r.cfg.VoteAmount, models.KindVote, "top.gg vote", now); err != nil {
			return err
		}
		res.Granted = true
		res.Amount = r.cfg.VoteAmount
		return nil
	})
	if err != nil {
		return ClaimResult{}, true, err
	}
	r.ledger.metrics.ObserveCooldown(config.ActionVote, res.Granted)
	return res, true, nil
}
