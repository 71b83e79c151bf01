package models

import "time"

// BankAccount holds the interest-bearing side of an account
type BankAccount struct {
	AccountID         string    `json:"account_id"`
	Balance           int64     `json:"balance"`
	LastInterestAt    time.Time `json:"last_interest_at"`
	TotalInterestPaid int64     `json:"total_interest_paid"`
}

// LoanStatus is the lifecycle state of a loan
type LoanStatus string

const (
	LoanActive    LoanStatus = "active"
	LoanRepaid    LoanStatus = "repaid"
	LoanDefaulted LoanStatus = "defaulted"
)

// Loan is a single issued loan
type Loan struct {
	ID              string     `json:"id"`
	AccountID       string     `json:"account_id"`
	Principal       int64      `json:"principal"`
	InterestAmount  int64      `json:"interest_amount"`
	RemainingAmount int64      `json:"remaining_amount"`
	IssuedAt        time.Time  `json:"issued_at"`
	DueAt           time.Time  `json:"due_at"`
	Status          LoanStatus `json:"status"`
}

// IsOverdue reports whether the loan is still active past its due date
func (l *Loan) IsOverdue(now time.Time) bool {
	return l.Status == LoanActive && now.After(l.DueAt)
}

const (
	MinCreditScore     = 0
	MaxCreditScore     = 100
	DefaultCreditScore = 50
)

// ClampCreditScore keeps a score inside [0,100]
func ClampCreditScore(score int) int {
	if score < MinCreditScore {
		return MinCreditScore
	}
	if score > MaxCreditScore {
		return MaxCreditScore
	}
	return score
}

// RepaymentResult describes a loan payment
type RepaymentResult struct {
	Loan        *Loan
	Paid        int64
	FullyRepaid bool
	CreditScore int
	NewBalance  int64
}
