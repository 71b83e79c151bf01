package economy

import (
	"context"
	"fmt"
	"time"

	"econbot/database"
	"econbot/models"
)

// CooldownGate fences per-account actions behind an expiry timestamp
type CooldownGate struct {
	ledger *Ledger
}

func NewCooldownGate(ledger *Ledger) *CooldownGate {
	return &CooldownGate{ledger: ledger}
}

// CheckCooldown is the in-transaction form of CheckAndSet. When the action is
// allowed the new expiry is already written; when it is blocked nothing is.
func CheckCooldown(ctx context.Context, tx database.Tx, accountID, action string, duration time.Duration, now time.Time) (models.CooldownResult, error) {
	if duration <= 0 {
		return models.CooldownResult{Allowed: true}, nil
	}
	ok, expires, err := tx.SetCooldownIfExpired(ctx, accountID, action, now, now.Add(duration))
	if err != nil {
		return models.CooldownResult{}, fmt.Errorf("cooldown %s: %w", action, err)
	}
	if ok {
		return models.CooldownResult{Allowed: true}, nil
	}
	remaining := expires.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return models.CooldownResult{Allowed: false, Remaining: remaining}, nil
}

// CheckAndSet atomically claims the action for duration. Two concurrent calls
// for the same account and action can never both be allowed.
func (g *CooldownGate) CheckAndSet(ctx context.Context, accountID, action string, duration time.Duration) (models.CooldownResult, error) {
	var res models.CooldownResult
	err := g.ledger.InTx(ctx, "cooldown", func(tx database.Tx) error {
		var err error
		res, err = CheckCooldown(ctx, tx, accountID, action, duration, g.ledger.now())
		return err
	})
	if err != nil {
		return models.CooldownResult{}, err
	}
	g.ledger.metrics.ObserveCooldown(action, res.Allowed)
	return res, nil
}

// Remaining reports how long the action stays blocked, zero when it is free
func (g *CooldownGate) Remaining(ctx context.Context, accountID, action string) (time.Duration, error) {
	cd, err := database.ReadOnly(ctx, g.ledger.store, func(tx database.Tx) (*models.Cooldown, error) {
		return tx.GetCooldown(ctx, accountID, action)
	})
	if err != nil || cd == nil {
		return 0, err
	}
	if left := cd.ExpiresAt.Sub(g.ledger.now()); left > 0 {
		return left, nil
	}
	return 0, nil
}

// Clear drops a cooldown, e.g. when an operator resets a player
func (g *CooldownGate) Clear(ctx context.Context, accountID, action string) error {
	return g.ledger.InTx(ctx, "cooldown", func(tx database.Tx) error {
		return tx.DeleteCooldown(ctx, accountID, action)
	})
}

// PurgeExpired garbage-collects expired cooldown rows
func (g *CooldownGate) PurgeExpired(ctx context.Context) (int64, error) {
	var n int64
	err := g.ledger.InTx(ctx, "cooldown_purge", func(tx database.Tx) error {
		var err error
		n, err = tx.PurgeCooldowns(ctx, g.ledger.now())
		return err
	})
	return n, err
}
