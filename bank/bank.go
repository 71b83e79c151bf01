package bank

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"econbot/database"
	"econbot/economy"
	"econbot/models"
)

const day = 24 * time.Hour

var (
	dailyInterestRate = decimal.RequireFromString("0.01")
	baseLoanRate      = decimal.RequireFromString("0.20")
	loanRateDiscount  = decimal.RequireFromString("0.15")
)

const (
	baseMaxLoan   = 5000
	creditMaxLoan = 45000

	fullRepaymentBonus    = 10
	partialRepaymentBonus = 2
	defaultPenalty        = 15

	// DefaultGrace is how long an overdue loan stays active before it defaults
	DefaultGrace = 3 * day
)

// Service owns bank balances, loans and credit scores
type Service struct {
	ledger *economy.Ledger
	log    *slog.Logger
}

func NewService(ledger *economy.Ledger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{ledger: ledger, log: logger}
}

// Statement is a snapshot of an account's bank side
type Statement struct {
	Bank        models.BankAccount
	Wallet      int64
	CreditScore int
	ActiveLoan  *models.Loan
	Accrued     int64
}

// AccrueInterest compounds floor(balance * 1%) once per whole elapsed day since
// LastInterestAt and advances LastInterestAt by the days applied. Partial days
// carry over to the next access.
func AccrueInterest(b *models.BankAccount, now time.Time) int64 {
	if now.Before(b.LastInterestAt) {
		return 0
	}
	days := int64(now.Sub(b.LastInterestAt) / day)
	if days <= 0 {
		return 0
	}
	balance := decimal.NewFromInt(b.Balance)
	var total int64
	for i := int64(0); i < days; i++ {
		interest := balance.Mul(dailyInterestRate).Floor()
		if interest.IsZero() {
			// a balance under 100 earns nothing and never will
			break
		}
		balance = balance.Add(interest)
		total += interest.IntPart()
	}
	b.Balance += total
	b.TotalInterestPaid += total
	b.LastInterestAt = b.LastInterestAt.Add(time.Duration(days) * day)
	return total
}

// openBank locks the bank row, applies pending interest and mirrors the
// balance onto the account.
func (s *Service) openBank(ctx context.Context, tx database.Tx, accountID string, now time.Time) (*models.BankAccount, int64, error) {
	b, err := tx.LockBankAccount(ctx, accountID, now)
	if err != nil {
		return nil, 0, fmt.Errorf("lock bank account: %w", err)
	}
	accrued := AccrueInterest(b, now)
	if accrued > 0 {
		if err := s.saveBank(ctx, tx, b); err != nil {
			return nil, 0, err
		}
	}
	return b, accrued, nil
}

func (s *Service) saveBank(ctx context.Context, tx database.Tx, b *models.BankAccount) error {
	if err := tx.UpdateBankAccount(ctx, b); err != nil {
		return fmt.Errorf("update bank account: %w", err)
	}
	if err := tx.SetBankBalance(ctx, b.AccountID, b.Balance); err != nil {
		return fmt.Errorf("mirror bank balance: %w", err)
	}
	return nil
}

// Statement applies pending interest and returns the account's bank state
func (s *Service) Statement(ctx context.Context, accountID string) (*Statement, error) {
	var st Statement
	err := s.ledger.InTx(ctx, string(models.KindInterest), func(tx database.Tx) error {
		st = Statement{}
		now := s.ledger.Now()
		acct, err := tx.LockAccount(ctx, accountID)
		if err != nil {
			return err
		}
		b, accrued, err := s.openBank(ctx, tx, accountID, now)
		if err != nil {
			return err
		}
		score, err := tx.GetCreditScore(ctx, accountID)
		if err != nil {
			return err
		}
		loan, err := tx.LockActiveLoan(ctx, accountID)
		if err != nil && !isNotFound(err) {
			return err
		}
		st.Bank, st.Wallet, st.CreditScore, st.ActiveLoan, st.Accrued = *b, acct.Balance, score, loan, accrued
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// Deposit moves amount from the wallet into the bank
func (s *Service) Deposit(ctx context.Context, accountID string, amount int64) (*models.BankAccount, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: deposit must be positive", models.ErrInvalidAmount)
	}
	var out models.BankAccount
	err := s.ledger.InTx(ctx, string(models.KindDeposit), func(tx database.Tx) error {
		now := s.ledger.Now()
		if _, err := tx.LockAccount(ctx, accountID); err != nil {
			return err
		}
		b, _, err := s.openBank(ctx, tx, accountID, now)
		if err != nil {
			return err
		}
		if _, err := economy.ApplyDelta(ctx, tx, accountID, -amount, models.KindDeposit, "bank deposit", now); err != nil {
			return err
		}
		b.Balance += amount
		if err := s.saveBank(ctx, tx, b); err != nil {
			return err
		}
		out = *b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Withdraw moves amount from the bank back into the wallet
func (s *Service) Withdraw(ctx context.Context, accountID string, amount int64) (*models.BankAccount, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: withdrawal must be positive", models.ErrInvalidAmount)
	}
	var out models.BankAccount
	err := s.ledger.InTx(ctx, string(models.KindWithdraw), func(tx database.Tx) error {
		now := s.ledger.Now()
		if _, err := tx.LockAccount(ctx, accountID); err != nil {
			return err
		}
		b, _, err := s.openBank(ctx, tx, accountID, now)
		if err != nil {
			return err
		}
		if b.Balance < amount {
			return fmt.Errorf("%w: bank holds %d", models.ErrInsufficientFunds, b.Balance)
		}
		b.Balance -= amount
		if err := s.saveBank(ctx, tx, b); err != nil {
			return err
		}
		if _, err := economy.ApplyDelta(ctx, tx, accountID, amount, models.KindWithdraw, "bank withdrawal", now); err != nil {
			return err
		}
		out = *b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
