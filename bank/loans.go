package bank

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"econbot/database"
	"econbot/economy"
	"econbot/models"
)

// LoanTerms is what an account would be offered at its current score
type LoanTerms struct {
	CreditScore int
	Rate        decimal.Decimal
	MaxAmount   int64
}

// InterestRate is 0.20 - score/100 * 0.15
func InterestRate(score int) decimal.Decimal {
	score = models.ClampCreditScore(score)
	discount := decimal.NewFromInt(int64(score)).Div(decimal.NewFromInt(100)).Mul(loanRateDiscount)
	return baseLoanRate.Sub(discount)
}

// MaxLoan is 5000 + score/100 * 45000, floored
func MaxLoan(score int) int64 {
	score = models.ClampCreditScore(score)
	extra := decimal.NewFromInt(int64(score)).Div(decimal.NewFromInt(100)).Mul(decimal.NewFromInt(creditMaxLoan))
	return baseMaxLoan + extra.Floor().IntPart()
}

// LoanDuration is 7 days, 10 days from 10,000 and 14 days from 30,000
func LoanDuration(principal int64) time.Duration {
	switch {
	case principal >= 30000:
		return 14 * day
	case principal >= 10000:
		return 10 * day
	default:
		return 7 * day
	}
}

// LoanInterest is floor(principal * rate)
func LoanInterest(principal int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(principal).Mul(rate).Floor().IntPart()
}

func isNotFound(err error) bool {
	return errors.Is(err, models.ErrNotFound)
}

// Terms returns the loan offer for an account
func (s *Service) Terms(ctx context.Context, accountID string) (LoanTerms, error) {
	score, err := database.ReadOnly(ctx, s.ledger.Store(), func(tx database.Tx) (int, error) {
		return tx.GetCreditScore(ctx, accountID)
	})
	if err != nil {
		return LoanTerms{}, err
	}
	return LoanTerms{CreditScore: score, Rate: InterestRate(score), MaxAmount: MaxLoan(score)}, nil
}

// IssueLoan lends principal to the wallet. An account holds at most one
// active loan; a second request fails with ErrInvalidState.
func (s *Service) IssueLoan(ctx context.Context, accountID string, principal int64) (*models.Loan, error) {
	if principal <= 0 {
		return nil, fmt.Errorf("%w: loan amount must be positive", models.ErrInvalidAmount)
	}
	var loan *models.Loan
	err := s.ledger.InTx(ctx, string(models.KindLoan), func(tx database.Tx) error {
		now := s.ledger.Now()
		if _, err := tx.LockAccount(ctx, accountID); err != nil {
			return err
		}
		existing, err := tx.LockActiveLoan(ctx, accountID)
		if err != nil && !isNotFound(err) {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: loan %s is still active", models.ErrInvalidState, existing.ID)
		}
		score, err := tx.GetCreditScore(ctx, accountID)
		if err != nil {
			return err
		}
		if limit := MaxLoan(score); principal > limit {
			return fmt.Errorf("%w: credit score %d allows at most %d", models.ErrInvalidAmount, score, limit)
		}
		interest := LoanInterest(principal, InterestRate(score))
		loan = &models.Loan{
			ID:              uuid.NewString(),
			AccountID:       accountID,
			Principal:       principal,
			InterestAmount:  interest,
			RemainingAmount: principal + interest,
			IssuedAt:        now,
			DueAt:           now.Add(LoanDuration(principal)),
			Status:          models.LoanActive,
		}
		if err := tx.InsertLoan(ctx, loan); err != nil {
			return err
		}
		_, err = economy.ApplyDelta(ctx, tx, accountID, principal, models.KindLoan, "loan "+loan.ID, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("loan issued", slog.String("account", accountID), slog.Int64("principal", loan.Principal), slog.Time("due", loan.DueAt))
	return loan, nil
}

// Repay pays towards the active loan from the wallet. Payments above the
// remaining amount are clamped, never refunded. Full repayment adds 10 to the
// credit score and a partial payment adds 2.
func (s *Service) Repay(ctx context.Context, accountID string, amount int64) (*models.RepaymentResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: payment must be positive", models.ErrInvalidAmount)
	}
	var res models.RepaymentResult
	err := s.ledger.InTx(ctx, string(models.KindRepayment), func(tx database.Tx) error {
		res = models.RepaymentResult{}
		now := s.ledger.Now()
		if _, err := tx.LockAccount(ctx, accountID); err != nil {
			return err
		}
		loan, err := tx.LockActiveLoan(ctx, accountID)
		if err != nil {
			return err
		}
		pay := min(amount, loan.RemainingAmount)
		if res.NewBalance, err = economy.ApplyDelta(ctx, tx, accountID, -pay, models.KindRepayment, "loan "+loan.ID, now); err != nil {
			return err
		}
		loan.RemainingAmount -= pay
		bonus := partialRepaymentBonus
		if loan.RemainingAmount == 0 {
			loan.Status = models.LoanRepaid
			bonus = fullRepaymentBonus
		}
		if err := tx.UpdateLoan(ctx, loan); err != nil {
			return err
		}
		score, err := tx.GetCreditScore(ctx, accountID)
		if err != nil {
			return err
		}
		score = models.ClampCreditScore(score + bonus)
		if err := tx.SetCreditScore(ctx, accountID, score); err != nil {
			return err
		}
		res.Loan, res.Paid, res.FullyRepaid, res.CreditScore = loan, pay, loan.Status == models.LoanRepaid, score
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Loans lists every loan an account has taken, newest first
func (s *Service) Loans(ctx context.Context, accountID string) ([]models.Loan, error) {
	return database.ReadOnly(ctx, s.ledger.Store(), func(tx database.Tx) ([]models.Loan, error) {
		return tx.ListLoans(ctx, accountID)
	})
}

// CreditScore returns the account's score, 50 when it has none yet
func (s *Service) CreditScore(ctx context.Context, accountID string) (int, error) {
	return database.ReadOnly(ctx, s.ledger.Store(), func(tx database.Tx) (int, error) {
		return tx.GetCreditScore(ctx, accountID)
	})
}

// DefaultOverdue marks active loans past due plus grace as defaulted and
// docks 15 credit points for each. Outstanding balances are not seized.
func (s *Service) DefaultOverdue(ctx context.Context, grace time.Duration) (int, error) {
	now := s.ledger.Now()
	overdue, err := database.ReadOnly(ctx, s.ledger.Store(), func(tx database.Tx) ([]models.Loan, error) {
		return tx.OverdueLoans(ctx, now.Add(-grace))
	})
	if err != nil {
		return 0, err
	}

	defaulted := 0
	for _, l := range overdue {
		applied := false
		err := s.ledger.InTx(ctx, "loan_default", func(tx database.Tx) error {
			applied = false
			loan, err := tx.LockActiveLoan(ctx, l.AccountID)
			if err != nil {
				return err
			}
			// repaid or replaced since the scan
			if loan.ID != l.ID || !loan.DueAt.Before(now.Add(-grace)) {
				return nil
			}
			loan.Status = models.LoanDefaulted
			if err := tx.UpdateLoan(ctx, loan); err != nil {
				return err
			}
			score, err := tx.GetCreditScore(ctx, loan.AccountID)
			if err != nil {
				return err
			}
			if err := tx.SetCreditScore(ctx, loan.AccountID, models.ClampCreditScore(score-defaultPenalty)); err != nil {
				return err
			}
			applied = true
			return nil
		})
		if err != nil && !isNotFound(err) {
			return defaulted, fmt.Errorf("default loan %s: %w", l.ID, err)
		}
		if applied && err == nil {
			defaulted++
			s.log.Warn("loan defaulted", slog.String("account", l.AccountID), slog.String("loan", l.ID), slog.Int64("remaining", l.RemainingAmount))
		}
	}
	return defaulted, nil
}
