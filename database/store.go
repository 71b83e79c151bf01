package database

import (
	"context"
	"fmt"
	"time"

	"econbot/models"
)

// Store is a transactional relational store. Every money-moving operation runs
// inside InTx so that balance updates and their ledger rows commit together.
type Store interface {
	// InTx runs fn in a transaction and commits when fn returns nil. Backends
	// may call fn more than once when the engine reports a serialization
	// conflict, so fn must not have side effects outside tx.
	InTx(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
	Driver() string
	Close()
}

// Tx exposes the row-level primitives used by the economy services.
// Lock* methods take a write lock on the row for the rest of the transaction.
type Tx interface {
	// Accounts are created with zeroed defaults on first access.
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	LockAccount(ctx context.Context, id string) (*models.Account, error)
	SetBalance(ctx context.Context, id string, balance int64) error
	SetBankBalance(ctx context.Context, id string, balance int64) error
	PatchAccount(ctx context.Context, id string, patch models.AccountPatch) error
	TopAccounts(ctx context.Context, limit int) ([]models.Account, error)

	InsertTransaction(ctx context.Context, t *models.Transaction) error
	ListTransactions(ctx context.Context, accountID string, limit int) ([]models.Transaction, error)
	EachTransaction(ctx context.Context, since time.Time, fn func(models.Transaction) error) error

	// SetCooldownIfExpired creates or overwrites the cooldown only when no
	// unexpired one exists. It returns whether it wrote, and the expiry that is
	// in force afterwards.
	SetCooldownIfExpired(ctx context.Context, accountID, action string, now, expiresAt time.Time) (bool, time.Time, error)
	GetCooldown(ctx context.Context, accountID, action string) (*models.Cooldown, error)
	DeleteCooldown(ctx context.Context, accountID, action string) error
	PurgeCooldowns(ctx context.Context, now time.Time) (int64, error)

	LockBankAccount(ctx context.Context, accountID string, now time.Time) (*models.BankAccount, error)
	UpdateBankAccount(ctx context.Context, b *models.BankAccount) error

	GetCreditScore(ctx context.Context, accountID string) (int, error)
	SetCreditScore(ctx context.Context, accountID string, score int) error

	LockActiveLoan(ctx context.Context, accountID string) (*models.Loan, error)
	InsertLoan(ctx context.Context, l *models.Loan) error
	UpdateLoan(ctx context.Context, l *models.Loan) error
	ListLoans(ctx context.Context, accountID string) ([]models.Loan, error)
	OverdueLoans(ctx context.Context, dueBefore time.Time) ([]models.Loan, error)

	LockInventory(ctx context.Context, accountID, cardID string) (int64, error)
	SetInventory(ctx context.Context, accountID, cardID string, qty int64) error
	ListInventory(ctx context.Context, accountID string) ([]models.InventoryItem, error)

	InsertListing(ctx context.Context, l *models.MarketListing) error
	LockListing(ctx context.Context, id string) (*models.MarketListing, error)
	UpdateListing(ctx context.Context, l *models.MarketListing) error
	ActiveListings(ctx context.Context, productRef string, limit int) ([]models.MarketListing, error)
	ExpiredListings(ctx context.Context, now time.Time) ([]models.MarketListing, error)

	InsertOffer(ctx context.Context, o *models.TradeOffer) error
	LockOffer(ctx context.Context, id string) (*models.TradeOffer, error)
	SetOfferStatus(ctx context.Context, id string, status models.TradeStatus) error
	PendingOffers(ctx context.Context, accountID string) ([]models.TradeOffer, error)
	ExpiredOffers(ctx context.Context, now time.Time) ([]models.TradeOffer, error)

	InsertAgreement(ctx context.Context, a *models.TradeAgreement) error
	LockAgreement(ctx context.Context, id string) (*models.TradeAgreement, error)
	UpdateAgreement(ctx context.Context, a *models.TradeAgreement) error
	DueAgreements(ctx context.Context, now time.Time) ([]models.TradeAgreement, error)

	SaveSession(ctx context.Context, s *models.PersistedSession) error
	LoadSession(ctx context.Context, id string) (*models.PersistedSession, error)
	DeleteSession(ctx context.Context, id string) error
	ListSessions(ctx context.Context, kind string) ([]models.PersistedSession, error)
}

// Options selects and configures a backend
type Options struct {
	Driver      string // postgres or sqlite
	DatabaseURL string
	SQLitePath  string
}

// Open connects to the configured backend and applies its schema
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "", "postgres":
		if opts.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
		return OpenPostgres(ctx, opts.DatabaseURL)
	case "sqlite":
		return OpenSQLite(ctx, opts.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown database driver %q", opts.Driver)
	}
}

// ReadOnly runs fn in a transaction, for callers that only read
func ReadOnly[T any](ctx context.Context, s Store, fn func(tx Tx) (T, error)) (T, error) {
	var out T
	err := s.InTx(ctx, func(tx Tx) error {
		v, err := fn(tx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
