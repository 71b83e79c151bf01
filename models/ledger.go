package models

import "time"

// TransactionKind labels a ledger entry
type TransactionKind string

const (
	KindDaily      TransactionKind = "daily"
	KindWork       TransactionKind = "work"
	KindRob        TransactionKind = "rob"
	KindVote       TransactionKind = "vote"
	KindWager      TransactionKind = "wager"
	KindPayout     TransactionKind = "payout"
	KindSession    TransactionKind = "session"
	KindDeposit    TransactionKind = "deposit"
	KindWithdraw   TransactionKind = "withdraw"
	KindInterest   TransactionKind = "interest"
	KindLoan       TransactionKind = "loan"
	KindRepayment  TransactionKind = "repayment"
	KindMarketBuy  TransactionKind = "market_buy"
	KindMarketSell TransactionKind = "market_sell"
	KindTrade      TransactionKind = "trade"
	KindTransfer   TransactionKind = "transfer"
	KindAdmin      TransactionKind = "admin"
	KindRefund     TransactionKind = "refund"
	KindPack       TransactionKind = "pack"
)

// Transaction is an append-only ledger entry
type Transaction struct {
	ID           string          `json:"id"`
	AccountID    string          `json:"account_id"`
	Amount       int64           `json:"amount"`
	Kind         TransactionKind `json:"kind"`
	Description  string          `json:"description"`
	BalanceAfter int64           `json:"balance_after"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Cooldown fences a per-account action until ExpiresAt
type Cooldown struct {
	AccountID string    `json:"account_id"`
	Action    string    `json:"action"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CooldownResult is the outcome of a check-and-set on the cooldown gate
type CooldownResult struct {
	Allowed   bool
	Remaining time.Duration
}

// RemainingMs returns the remaining time in milliseconds
func (r CooldownResult) RemainingMs() int64 {
	return r.Remaining.Milliseconds()
}
