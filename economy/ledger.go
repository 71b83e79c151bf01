package economy

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"econbot/database"
	"econbot/metrics"
	"econbot/models"
)

// Ledger is the only writer of account balances. Every balance change goes
// through ApplyDelta so the row update and its transaction log entry commit
// together.
type Ledger struct {
	store   database.Store
	log     *slog.Logger
	metrics *metrics.Collector
	now     func() time.Time
}

func NewLedger(store database.Store, logger *slog.Logger, m *metrics.Collector) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{store: store, log: logger, metrics: m, now: func() time.Time { return time.Now().UTC() }}
}

// Now returns the ledger clock
func (l *Ledger) Now() time.Time { return l.now() }

// SetClock replaces the ledger clock. Tests use it to move time forward.
func (l *Ledger) SetClock(now func() time.Time) { l.now = now }

// Store exposes the backing store for services that compose their own
// transactions out of the package-level helpers.
func (l *Ledger) Store() database.Store { return l.store }

// InTx runs fn in one store transaction and records its duration under label
func (l *Ledger) InTx(ctx context.Context, label string, fn func(tx database.Tx) error) error {
	start := time.Now()
	err := l.store.InTx(ctx, fn)
	l.metrics.ObserveLedger(label, time.Since(start), err)
	return err
}

// ApplyDelta changes accountID's wallet by delta inside tx and appends the
// matching ledger row. A debit that would leave a negative balance fails with
// ErrInsufficientFunds and writes nothing. A zero delta is a no-op.
func ApplyDelta(ctx context.Context, tx database.Tx, accountID string, delta int64, kind models.TransactionKind, description string, at time.Time) (int64, error) {
	acct, err := tx.LockAccount(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("lock account %s: %w", accountID, err)
	}
	if delta == 0 {
		return acct.Balance, nil
	}
	next := acct.Balance + delta
	if next < 0 {
		return acct.Balance, fmt.Errorf("%w: balance %d, needs %d", models.ErrInsufficientFunds, acct.Balance, -delta)
	}
	if err := tx.SetBalance(ctx, accountID, next); err != nil {
		return 0, fmt.Errorf("set balance: %w", err)
	}
	entry := &models.Transaction{
		ID:           uuid.NewString(),
		AccountID:    accountID,
		Amount:       delta,
		Kind:         kind,
		Description:  description,
		BalanceAfter: next,
		CreatedAt:    at,
	}
	if err := tx.InsertTransaction(ctx, entry); err != nil {
		return 0, fmt.Errorf("log transaction: %w", err)
	}
	return next, nil
}

// AddExperience applies an experience delta inside tx
func AddExperience(ctx context.Context, tx database.Tx, accountID string, delta int64) (models.ExperienceResult, error) {
	acct, err := tx.LockAccount(ctx, accountID)
	if err != nil {
		return models.ExperienceResult{}, fmt.Errorf("lock account %s: %w", accountID, err)
	}
	before := acct.Level()
	next := acct.Experience + delta
	if next < 0 {
		return models.ExperienceResult{}, fmt.Errorf("%w: experience would drop below zero", models.ErrInvalidAmount)
	}
	if delta != 0 {
		if err := tx.PatchAccount(ctx, accountID, models.AccountPatch{ExperienceIncrement: delta}); err != nil {
			return models.ExperienceResult{}, fmt.Errorf("patch experience: %w", err)
		}
	}
	after := models.LevelForExperience(next)
	return models.ExperienceResult{
		NewExperience: next,
		NewLevel:      after,
		LeveledUp:     after > before,
	}, nil
}

// Account returns the account, creating it with zeroed defaults on first use
func (l *Ledger) Account(ctx context.Context, id string) (*models.Account, error) {
	return database.ReadOnly(ctx, l.store, func(tx database.Tx) (*models.Account, error) {
		return tx.GetAccount(ctx, id)
	})
}

// ApplyBalanceDelta atomically moves accountID's wallet by delta and returns
// the new balance.
func (l *Ledger) ApplyBalanceDelta(ctx context.Context, accountID string, delta int64, kind models.TransactionKind, description string) (int64, error) {
	var balance int64
	err := l.InTx(ctx, string(kind), func(tx database.Tx) error {
		var err error
		balance, err = ApplyDelta(ctx, tx, accountID, delta, kind, description, l.now())
		return err
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// ApplyExperienceDelta adds delta experience and reports level changes
func (l *Ledger) ApplyExperienceDelta(ctx context.Context, accountID string, delta int64) (models.ExperienceResult, error) {
	var res models.ExperienceResult
	err := l.InTx(ctx, "experience", func(tx database.Tx) error {
		var err error
		res, err = AddExperience(ctx, tx, accountID, delta)
		return err
	})
	return res, err
}

// Transfer moves amount from one wallet to another in a single transaction
func (l *Ledger) Transfer(ctx context.Context, from, to string, amount int64, description string) (fromBalance, toBalance int64, err error) {
	if amount <= 0 {
		return 0, 0, fmt.Errorf("%w: transfer amount must be positive", models.ErrInvalidAmount)
	}
	if from == to {
		return 0, 0, fmt.Errorf("%w: cannot transfer to yourself", models.ErrInvalidState)
	}
	err = l.InTx(ctx, string(models.KindTransfer), func(tx database.Tx) error {
		if err := lockInOrder(ctx, tx, from, to); err != nil {
			return err
		}
		now := l.now()
		var err error
		if fromBalance, err = ApplyDelta(ctx, tx, from, -amount, models.KindTransfer, "to "+to+": "+description, now); err != nil {
			return err
		}
		toBalance, err = ApplyDelta(ctx, tx, to, amount, models.KindTransfer, "from "+from+": "+description, now)
		return err
	})
	return fromBalance, toBalance, err
}

// lockInOrder takes account row locks in id order so two transfers between
// the same pair cannot deadlock.
func lockInOrder(ctx context.Context, tx database.Tx, ids ...string) error {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	for _, id := range sorted {
		if _, err := tx.LockAccount(ctx, id); err != nil {
			return fmt.Errorf("lock account %s: %w", id, err)
		}
	}
	return nil
}

// LockPair locks two accounts in a deadlock-free order
func LockPair(ctx context.Context, tx database.Tx, a, b string) error {
	return lockInOrder(ctx, tx, a, b)
}

// LockAccounts locks any number of accounts in a deadlock-free order.
// Duplicates are locked once.
func LockAccounts(ctx context.Context, tx database.Tx, ids ...string) error {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	return lockInOrder(ctx, tx, slices.Compact(sorted)...)
}

// Patch applies a typed partial update to counters and timestamps
func (l *Ledger) Patch(ctx context.Context, accountID string, patch models.AccountPatch) error {
	if patch.IsZero() {
		return nil
	}
	return l.InTx(ctx, "patch", func(tx database.Tx) error {
		if _, err := tx.LockAccount(ctx, accountID); err != nil {
			return err
		}
		return tx.PatchAccount(ctx, accountID, patch)
	})
}

// History returns the newest limit ledger rows for an account
func (l *Ledger) History(ctx context.Context, accountID string, limit int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return database.ReadOnly(ctx, l.store, func(tx database.Tx) ([]models.Transaction, error) {
		return tx.ListTransactions(ctx, accountID, limit)
	})
}

// Leaderboard returns the richest accounts by net worth
func (l *Ledger) Leaderboard(ctx context.Context, limit int) ([]models.Account, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	return database.ReadOnly(ctx, l.store, func(tx database.Tx) ([]models.Account, error) {
		return tx.TopAccounts(ctx, limit)
	})
}

// Grant is an operator credit or debit, logged as an admin transaction
func (l *Ledger) Grant(ctx context.Context, accountID string, delta int64, reason string) (int64, error) {
	balance, err := l.ApplyBalanceDelta(ctx, accountID, delta, models.KindAdmin, reason)
	if err == nil {
		l.log.Info("admin balance change", slog.String("account", accountID), slog.Int64("delta", delta), slog.String("reason", reason))
	}
	return balance, err
}
