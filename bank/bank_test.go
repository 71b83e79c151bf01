package bank

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"econbot/database"
	"econbot/economy"
	"econbot/models"
)

type testEnv struct {
	svc    *Service
	ledger *economy.Ledger
	now    time.Time
}

func (e *testEnv) advance(d time.Duration) { e.now = e.now.Add(d) }

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := database.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "bank.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(store.Close)
	env := &testEnv{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	env.ledger = economy.NewLedger(store, nil, nil)
	env.ledger.SetClock(func() time.Time { return env.now })
	env.svc = NewService(env.ledger, nil)
	return env
}

func (e *testEnv) seed(t *testing.T, id string, amount int64) {
	t.Helper()
	if _, err := e.ledger.ApplyBalanceDelta(context.Background(), id, amount, models.KindAdmin, "seed"); err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

func TestAccrueInterest(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		balance  int64
		elapsed  time.Duration
		want     int64
		wantLast time.Time
	}{
		{"under a day", 10000, 23 * time.Hour, 0, start},
		{"one day", 10000, 25 * time.Hour, 100, start.Add(24 * time.Hour)},
		// 10000 -> 10100 -> 10201 -> 10303
		{"three days compound", 10000, 72 * time.Hour, 303, start.Add(72 * time.Hour)},
		{"floored", 150, 48 * time.Hour, 2, start.Add(48 * time.Hour)},
		{"too small to earn", 99, 10 * 24 * time.Hour, 0, start.Add(10 * 24 * time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &models.BankAccount{Balance: tt.balance, LastInterestAt: start}
			got := AccrueInterest(b, start.Add(tt.elapsed))
			if got != tt.want {
				t.Fatalf("interest = %d, want %d", got, tt.want)
			}
			if b.Balance != tt.balance+tt.want || b.TotalInterestPaid != tt.want {
				t.Errorf("bank = %+v", b)
			}
			if !b.LastInterestAt.Equal(tt.wantLast) {
				t.Errorf("last interest = %v, want %v", b.LastInterestAt, tt.wantLast)
			}
		})
	}
}

func TestLoanFormulas(t *testing.T) {
	if got := InterestRate(50); !got.Equal(decimal.RequireFromString("0.125")) {
		t.Errorf("rate(50) = %s", got)
	}
	if got := InterestRate(100); !got.Equal(decimal.RequireFromString("0.05")) {
		t.Errorf("rate(100) = %s", got)
	}
	if got := MaxLoan(50); got != 27500 {
		t.Errorf("max(50) = %d", got)
	}
	if got := MaxLoan(0); got != 5000 {
		t.Errorf("max(0) = %d", got)
	}
	if LoanDuration(9999) != 7*day || LoanDuration(10000) != 10*day || LoanDuration(30000) != 14*day {
		t.Error("duration tiers wrong")
	}
	if got := LoanInterest(89, InterestRate(50)); got != 11 {
		t.Errorf("interest(89) = %d, want 11", got)
	}
}

func TestDepositWithdrawWithInterest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seed(t, "ann", 10000)

	b, err := env.svc.Deposit(ctx, "ann", 10000)
	if err != nil {
		t.Fatal(err)
	}
	if b.Balance != 10000 {
		t.Fatalf("bank = %d", b.Balance)
	}
	if _, err := env.svc.Deposit(ctx, "ann", 1); !errors.Is(err, models.ErrInsufficientFunds) {
		t.Fatalf("deposit from empty wallet: %v", err)
	}

	env.advance(48 * time.Hour)
	st, err := env.svc.Statement(ctx, "ann")
	if err != nil {
		t.Fatal(err)
	}
	if st.Accrued != 201 || st.Bank.Balance != 10201 || st.CreditScore != models.DefaultCreditScore {
		t.Fatalf("statement = %+v", st)
	}

	if _, err := env.svc.Withdraw(ctx, "ann", 20000); !errors.Is(err, models.ErrInsufficientFunds) {
		t.Fatalf("overdraw bank: %v", err)
	}
	b, err = env.svc.Withdraw(ctx, "ann", 10201)
	if err != nil {
		t.Fatal(err)
	}
	if b.Balance != 0 {
		t.Fatalf("bank after withdraw = %d", b.Balance)
	}
	acct, _ := env.ledger.Account(ctx, "ann")
	if acct.Balance != 10201 || acct.BankBalance != 0 {
		t.Fatalf("account = %+v", acct)
	}
}

func TestSingleActiveLoan(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	loan, err := env.svc.IssueLoan(ctx, "ben", 1000)
	if err != nil {
		t.Fatal(err)
	}
	if loan.InterestAmount != 125 || loan.RemainingAmount != 1125 || !loan.DueAt.Equal(env.now.Add(7*day)) {
		t.Fatalf("loan = %+v", loan)
	}
	acct, _ := env.ledger.Account(ctx, "ben")
	if acct.Balance != 1000 {
		t.Fatalf("principal not credited: %d", acct.Balance)
	}

	if _, err := env.svc.IssueLoan(ctx, "ben", 10); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("second loan: %v", err)
	}
	if _, err := env.svc.IssueLoan(ctx, "cat", 27501); !errors.Is(err, models.ErrInvalidAmount) {
		t.Fatalf("over limit: %v", err)
	}
	loans, err := env.svc.Loans(ctx, "ben")
	if err != nil || len(loans) != 1 {
		t.Fatalf("loans = %v %v", loans, err)
	}
}

func TestRepayOverpayClamp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// 89 at 12.5% leaves exactly 100 outstanding
	loan, err := env.svc.IssueLoan(ctx, "dan", 89)
	if err != nil {
		t.Fatal(err)
	}
	if loan.RemainingAmount != 100 {
		t.Fatalf("remaining = %d, want 100", loan.RemainingAmount)
	}
	env.seed(t, "dan", 61)

	res, err := env.svc.Repay(ctx, "dan", 150)
	if err != nil {
		t.Fatal(err)
	}
	if res.Paid != 100 || res.NewBalance != 50 {
		t.Fatalf("paid %d, balance %d", res.Paid, res.NewBalance)
	}
	if res.Loan.RemainingAmount != 0 || res.Loan.Status != models.LoanRepaid || !res.FullyRepaid {
		t.Fatalf("loan = %+v", res.Loan)
	}
	if res.CreditScore != 60 {
		t.Fatalf("credit = %d, want 60", res.CreditScore)
	}

	if _, err := env.svc.Repay(ctx, "dan", 10); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("repay without loan: %v", err)
	}
}

func TestPartialRepayment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if _, err := env.svc.IssueLoan(ctx, "eve", 1000); err != nil {
		t.Fatal(err)
	}
	res, err := env.svc.Repay(ctx, "eve", 400)
	if err != nil {
		t.Fatal(err)
	}
	if res.FullyRepaid || res.Loan.RemainingAmount != 725 || res.CreditScore != 52 {
		t.Fatalf("partial = %+v loan=%+v", res, res.Loan)
	}
	if _, err := env.svc.Repay(ctx, "eve", 700); !errors.Is(err, models.ErrInsufficientFunds) {
		t.Fatalf("repay beyond wallet: %v", err)
	}
}

func TestDefaultOverdue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if _, err := env.svc.IssueLoan(ctx, "fay", 500); err != nil {
		t.Fatal(err)
	}

	env.advance(8 * day)
	n, err := env.svc.DefaultOverdue(ctx, DefaultGrace)
	if err != nil || n != 0 {
		t.Fatalf("inside grace: %d %v", n, err)
	}

	env.advance(3 * day)
	n, err = env.svc.DefaultOverdue(ctx, DefaultGrace)
	if err != nil || n != 1 {
		t.Fatalf("after grace: %d %v", n, err)
	}
	score, _ := env.svc.CreditScore(ctx, "fay")
	if score != 35 {
		t.Fatalf("score = %d, want 35", score)
	}
	acct, _ := env.ledger.Account(ctx, "fay")
	if acct.Balance != 500 {
		t.Fatalf("default seized the wallet: %d", acct.Balance)
	}

	// a defaulted loan no longer blocks a new one
	if _, err := env.svc.IssueLoan(ctx, "fay", 100); err != nil {
		t.Fatalf("new loan after default: %v", err)
	}
}
