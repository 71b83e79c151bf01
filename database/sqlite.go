package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"econbot/models"
)

// SQLiteStore is the single-node backend. One open connection serializes
// every transaction, which gives the same per-account ordering the Postgres
// backend gets from row locks.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database file at path
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("empty sqlite path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		`PRAGMA journal_mode = WAL`,
		`PRAGMA busy_timeout = 5000`,
		`PRAGMA foreign_keys = ON`,
	}
	for _, p := range append(pragmas, sqliteSchema...) {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Driver() string { return "sqlite" }

func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteStore) Close() { s.db.Close() }

func (s *SQLiteStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqliteTx{tx: tx}); err != nil {
		return translateSQLiteError(err)
	}
	if err := tx.Commit(); err != nil {
		return translateSQLiteError(err)
	}
	return nil
}

func translateSQLiteError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "CHECK constraint failed"):
		return fmt.Errorf("%w: %s", models.ErrInvariantViolation, msg)
	case strings.Contains(msg, "UNIQUE constraint failed: loans.account_id"):
		return fmt.Errorf("%w: loan already active", models.ErrInvalidState)
	}
	return err
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func nullableMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func timeFromNull(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromMillis(n.Int64)
	return &t
}

type sqliteTx struct {
	tx *sql.Tx
}

type rowScanner interface {
	Scan(dest ...any) error
}

const sqliteAccountColumns = `id, balance, bank_balance, experience, games_played, games_won,
	total_wagered, total_won, last_daily_claim, last_worked, created_at, updated_at`

func scanSQLiteAccount(row rowScanner) (*models.Account, error) {
	var a models.Account
	var lastDaily, lastWorked sql.NullInt64
	var createdAt, updatedAt int64
	err := row.Scan(&a.ID, &a.Balance, &a.BankBalance, &a.Experience, &a.GamesPlayed, &a.GamesWon,
		&a.TotalWagered, &a.TotalWon, &lastDaily, &lastWorked, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	a.LastDailyClaim = timeFromNull(lastDaily)
	a.LastWorked = timeFromNull(lastWorked)
	a.CreatedAt = fromMillis(createdAt)
	a.UpdatedAt = fromMillis(updatedAt)
	return &a, nil
}

func (t *sqliteTx) ensureAccount(ctx context.Context, id string) error {
	now := toMillis(time.Now())
	_, err := t.tx.ExecContext(ctx, `INSERT INTO accounts (id, created_at, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (id) DO NOTHING`, id, now, now)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (t *sqliteTx) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	if err := t.ensureAccount(ctx, id); err != nil {
		return nil, err
	}
	a, err := scanSQLiteAccount(t.tx.QueryRowContext(ctx, `SELECT `+sqliteAccountColumns+` FROM accounts WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

func (t *sqliteTx) LockAccount(ctx context.Context, id string) (*models.Account, error) {
	return t.GetAccount(ctx, id)
}

func (t *sqliteTx) SetBalance(ctx context.Context, id string, balance int64) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE accounts SET balance = ?, updated_at = ? WHERE id = ?`,
		balance, toMillis(time.Now()), id)
	return err
}

func (t *sqliteTx) SetBankBalance(ctx context.Context, id string, balance int64) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE accounts SET bank_balance = ?, updated_at = ? WHERE id = ?`,
		balance, toMillis(time.Now()), id)
	return err
}

func (t *sqliteTx) PatchAccount(ctx context.Context, id string, p models.AccountPatch) error {
	if p.IsZero() {
		return nil
	}
	_, err := t.tx.ExecContext(ctx, `
		UPDATE accounts SET
			experience       = experience + ?,
			games_played     = games_played + ?,
			games_won        = games_won + ?,
			total_wagered    = total_wagered + ?,
			total_won        = total_won + ?,
			last_daily_claim = COALESCE(?, last_daily_claim),
			last_worked      = COALESCE(?, last_worked),
			updated_at       = ?
		WHERE id = ?`,
		p.ExperienceIncrement, p.GamesPlayedIncrement, p.GamesWonIncrement,
		p.TotalWageredIncrement, p.TotalWonIncrement,
		nullableMillis(p.LastDailyClaim), nullableMillis(p.LastWorked), toMillis(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to patch account: %w", err)
	}
	return nil
}

func (t *sqliteTx) TopAccounts(ctx context.Context, limit int) ([]models.Account, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT `+sqliteAccountColumns+` FROM accounts
		ORDER BY balance + bank_balance DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Account
	for rows.Next() {
		a, err := scanSQLiteAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (t *sqliteTx) InsertTransaction(ctx context.Context, tr *models.Transaction) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO transactions (id, account_id, amount, kind, description, balance_after, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tr.ID, tr.AccountID, tr.Amount, string(tr.Kind), tr.Description, tr.BalanceAfter, toMillis(tr.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to log transaction: %w", err)
	}
	return nil
}

func scanSQLiteTransactions(rows *sql.Rows, fn func(models.Transaction) error) error {
	defer rows.Close()
	for rows.Next() {
		var tr models.Transaction
		var kind string
		var createdAt int64
		if err := rows.Scan(&tr.ID, &tr.AccountID, &tr.Amount, &kind, &tr.Description, &tr.BalanceAfter, &createdAt); err != nil {
			return err
		}
		tr.Kind = models.TransactionKind(kind)
		tr.CreatedAt = fromMillis(createdAt)
		if err := fn(tr); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (t *sqliteTx) ListTransactions(ctx context.Context, accountID string, limit int) ([]models.Transaction, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, account_id, amount, kind, description, balance_after, created_at
		FROM transactions WHERE account_id = ? ORDER BY seq DESC LIMIT ?`, accountID, limit)
	if err != nil {
		return nil, err
	}
	var out []models.Transaction
	err = scanSQLiteTransactions(rows, func(tr models.Transaction) error {
		out = append(out, tr)
		return nil
	})
	return out, err
}

func (t *sqliteTx) EachTransaction(ctx context.Context, since time.Time, fn func(models.Transaction) error) error {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, account_id, amount, kind, description, balance_after, created_at
		FROM transactions WHERE created_at >= ? ORDER BY seq`, toMillis(since))
	if err != nil {
		return err
	}
	return scanSQLiteTransactions(rows, fn)
}

func (t *sqliteTx) SetCooldownIfExpired(ctx context.Context, accountID, action string, now, expiresAt time.Time) (bool, time.Time, error) {
	var stored int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO cooldowns (account_id, action, expires_at) VALUES (?, ?, ?)
		ON CONFLICT (account_id, action) DO UPDATE SET expires_at = excluded.expires_at
		WHERE cooldowns.expires_at <= ?
		RETURNING expires_at`, accountID, action, toMillis(expiresAt), toMillis(now)).Scan(&stored)
	if err == nil {
		return true, fromMillis(stored), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, time.Time{}, fmt.Errorf("failed to set cooldown: %w", err)
	}
	err = t.tx.QueryRowContext(ctx, `SELECT expires_at FROM cooldowns WHERE account_id = ? AND action = ?`,
		accountID, action).Scan(&stored)
	if err != nil {
		return false, time.Time{}, fmt.Errorf("failed to read cooldown: %w", err)
	}
	return false, fromMillis(stored), nil
}

func (t *sqliteTx) GetCooldown(ctx context.Context, accountID, action string) (*models.Cooldown, error) {
	var expires int64
	err := t.tx.QueryRowContext(ctx, `SELECT expires_at FROM cooldowns WHERE account_id = ? AND action = ?`,
		accountID, action).Scan(&expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &models.Cooldown{AccountID: accountID, Action: action, ExpiresAt: fromMillis(expires)}, nil
}

func (t *sqliteTx) DeleteCooldown(ctx context.Context, accountID, action string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM cooldowns WHERE account_id = ? AND action = ?`, accountID, action)
	return err
}

func (t *sqliteTx) PurgeCooldowns(ctx context.Context, now time.Time) (int64, error) {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM cooldowns WHERE expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (t *sqliteTx) LockBankAccount(ctx context.Context, accountID string, now time.Time) (*models.BankAccount, error) {
	if err := t.ensureAccount(ctx, accountID); err != nil {
		return nil, err
	}
	_, err := t.tx.ExecContext(ctx, `INSERT INTO bank_accounts (account_id, last_interest_at) VALUES (?, ?)
		ON CONFLICT (account_id) DO NOTHING`, accountID, toMillis(now))
	if err != nil {
		return nil, fmt.Errorf("failed to open bank account: %w", err)
	}
	b := models.BankAccount{AccountID: accountID}
	var last int64
	err = t.tx.QueryRowContext(ctx, `SELECT balance, last_interest_at, total_interest_paid
		FROM bank_accounts WHERE account_id = ?`, accountID).Scan(&b.Balance, &last, &b.TotalInterestPaid)
	if err != nil {
		return nil, fmt.Errorf("failed to lock bank account: %w", err)
	}
	b.LastInterestAt = fromMillis(last)
	return &b, nil
}

func (t *sqliteTx) UpdateBankAccount(ctx context.Context, b *models.BankAccount) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE bank_accounts SET balance = ?, last_interest_at = ?, total_interest_paid = ?
		WHERE account_id = ?`, b.Balance, toMillis(b.LastInterestAt), b.TotalInterestPaid, b.AccountID)
	return err
}

func (t *sqliteTx) GetCreditScore(ctx context.Context, accountID string) (int, error) {
	if err := t.ensureAccount(ctx, accountID); err != nil {
		return 0, err
	}
	_, err := t.tx.ExecContext(ctx, `INSERT INTO credit_scores (account_id, score) VALUES (?, ?)
		ON CONFLICT (account_id) DO NOTHING`, accountID, models.DefaultCreditScore)
	if err != nil {
		return 0, fmt.Errorf("failed to get credit score: %w", err)
	}
	var score int
	err = t.tx.QueryRowContext(ctx, `SELECT score FROM credit_scores WHERE account_id = ?`, accountID).Scan(&score)
	return score, err
}

func (t *sqliteTx) SetCreditScore(ctx context.Context, accountID string, score int) error {
	if err := t.ensureAccount(ctx, accountID); err != nil {
		return err
	}
	_, err := t.tx.ExecContext(ctx, `INSERT INTO credit_scores (account_id, score) VALUES (?, ?)
		ON CONFLICT (account_id) DO UPDATE SET score = excluded.score`, accountID, score)
	return err
}

const sqliteLoanColumns = `id, account_id, principal, interest_amount, remaining_amount, issued_at, due_at, status`

func scanSQLiteLoan(row rowScanner) (*models.Loan, error) {
	var l models.Loan
	var issued, due int64
	var status string
	if err := row.Scan(&l.ID, &l.AccountID, &l.Principal, &l.InterestAmount, &l.RemainingAmount,
		&issued, &due, &status); err != nil {
		return nil, err
	}
	l.IssuedAt = fromMillis(issued)
	l.DueAt = fromMillis(due)
	l.Status = models.LoanStatus(status)
	return &l, nil
}

func (t *sqliteTx) queryLoans(ctx context.Context, query string, args ...any) ([]models.Loan, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Loan
	for rows.Next() {
		l, err := scanSQLiteLoan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func (t *sqliteTx) LockActiveLoan(ctx context.Context, accountID string) (*models.Loan, error) {
	l, err := scanSQLiteLoan(t.tx.QueryRowContext(ctx, `SELECT `+sqliteLoanColumns+` FROM loans
		WHERE account_id = ? AND status = 'active'`, accountID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no active loan", models.ErrNotFound)
	}
	return l, err
}

func (t *sqliteTx) InsertLoan(ctx context.Context, l *models.Loan) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO loans (id, account_id, principal, interest_amount, remaining_amount, issued_at, due_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.AccountID, l.Principal, l.InterestAmount, l.RemainingAmount,
		toMillis(l.IssuedAt), toMillis(l.DueAt), string(l.Status))
	return err
}

func (t *sqliteTx) UpdateLoan(ctx context.Context, l *models.Loan) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE loans SET remaining_amount = ?, status = ? WHERE id = ?`,
		l.RemainingAmount, string(l.Status), l.ID)
	return err
}

func (t *sqliteTx) ListLoans(ctx context.Context, accountID string) ([]models.Loan, error) {
	return t.queryLoans(ctx, `SELECT `+sqliteLoanColumns+` FROM loans WHERE account_id = ? ORDER BY issued_at DESC`, accountID)
}

func (t *sqliteTx) OverdueLoans(ctx context.Context, dueBefore time.Time) ([]models.Loan, error) {
	return t.queryLoans(ctx, `SELECT `+sqliteLoanColumns+` FROM loans
		WHERE status = 'active' AND due_at < ? ORDER BY due_at`, toMillis(dueBefore))
}

func (t *sqliteTx) LockInventory(ctx context.Context, accountID, cardID string) (int64, error) {
	var qty int64
	err := t.tx.QueryRowContext(ctx, `SELECT quantity FROM inventory WHERE account_id = ? AND card_id = ?`,
		accountID, cardID).Scan(&qty)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return qty, err
}

func (t *sqliteTx) SetInventory(ctx context.Context, accountID, cardID string, qty int64) error {
	if qty <= 0 {
		_, err := t.tx.ExecContext(ctx, `DELETE FROM inventory WHERE account_id = ? AND card_id = ?`, accountID, cardID)
		return err
	}
	if err := t.ensureAccount(ctx, accountID); err != nil {
		return err
	}
	_, err := t.tx.ExecContext(ctx, `INSERT INTO inventory (account_id, card_id, quantity) VALUES (?, ?, ?)
		ON CONFLICT (account_id, card_id) DO UPDATE SET quantity = excluded.quantity`, accountID, cardID, qty)
	return err
}

func (t *sqliteTx) ListInventory(ctx context.Context, accountID string) ([]models.InventoryItem, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT card_id, quantity FROM inventory WHERE account_id = ? ORDER BY card_id`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.InventoryItem
	for rows.Next() {
		item := models.InventoryItem{AccountID: accountID}
		if err := rows.Scan(&item.CardID, &item.Quantity); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

const sqliteListingColumns = `id, seller_id, product_ref, quantity, remaining_quantity, unit_price, created_at, expires_at, status`

func scanSQLiteListing(row rowScanner) (*models.MarketListing, error) {
	var l models.MarketListing
	var created, expires int64
	var status string
	if err := row.Scan(&l.ID, &l.SellerID, &l.ProductRef, &l.Quantity, &l.RemainingQuantity,
		&l.UnitPrice, &created, &expires, &status); err != nil {
		return nil, err
	}
	l.CreatedAt = fromMillis(created)
	l.ExpiresAt = fromMillis(expires)
	l.Status = models.ListingStatus(status)
	return &l, nil
}

func (t *sqliteTx) queryListings(ctx context.Context, query string, args ...any) ([]models.MarketListing, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.MarketListing
	for rows.Next() {
		l, err := scanSQLiteListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func (t *sqliteTx) InsertListing(ctx context.Context, l *models.MarketListing) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO market_listings (id, seller_id, product_ref, quantity, remaining_quantity, unit_price, created_at, expires_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.SellerID, l.ProductRef, l.Quantity, l.RemainingQuantity, l.UnitPrice,
		toMillis(l.CreatedAt), toMillis(l.ExpiresAt), string(l.Status))
	return err
}

func (t *sqliteTx) LockListing(ctx context.Context, id string) (*models.MarketListing, error) {
	l, err := scanSQLiteListing(t.tx.QueryRowContext(ctx, `SELECT `+sqliteListingColumns+` FROM market_listings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: listing %s", models.ErrNotFound, id)
	}
	return l, err
}

func (t *sqliteTx) UpdateListing(ctx context.Context, l *models.MarketListing) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE market_listings SET remaining_quantity = ?, status = ? WHERE id = ?`,
		l.RemainingQuantity, string(l.Status), l.ID)
	return err
}

func (t *sqliteTx) ActiveListings(ctx context.Context, productRef string, limit int) ([]models.MarketListing, error) {
	return t.queryListings(ctx, `SELECT `+sqliteListingColumns+` FROM market_listings
		WHERE status = 'active' AND (? = '' OR product_ref = ?)
		ORDER BY unit_price, created_at LIMIT ?`, productRef, productRef, limit)
}

func (t *sqliteTx) ExpiredListings(ctx context.Context, now time.Time) ([]models.MarketListing, error) {
	return t.queryListings(ctx, `SELECT `+sqliteListingColumns+` FROM market_listings
		WHERE status = 'active' AND expires_at <= ?`, toMillis(now))
}

const sqliteOfferColumns = `id, sender_id, receiver_id, sender_cards, receiver_cards, coins_offered, status, created_at, expires_at`

func scanSQLiteOffer(row rowScanner) (*models.TradeOffer, error) {
	var o models.TradeOffer
	var senderCards, receiverCards string
	var created, expires int64
	var status string
	if err := row.Scan(&o.ID, &o.SenderID, &o.ReceiverID, &senderCards, &receiverCards,
		&o.CoinsOffered, &status, &created, &expires); err != nil {
		return nil, err
	}
	o.Status = models.TradeStatus(status)
	o.CreatedAt = fromMillis(created)
	o.ExpiresAt = fromMillis(expires)
	if err := decodeCards([]byte(senderCards), &o.SenderCards); err != nil {
		return nil, err
	}
	if err := decodeCards([]byte(receiverCards), &o.ReceiverCards); err != nil {
		return nil, err
	}
	return &o, nil
}

func (t *sqliteTx) queryOffers(ctx context.Context, query string, args ...any) ([]models.TradeOffer, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.TradeOffer
	for rows.Next() {
		o, err := scanSQLiteOffer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (t *sqliteTx) InsertOffer(ctx context.Context, o *models.TradeOffer) error {
	senderCards, err := encodeCards(o.SenderCards)
	if err != nil {
		return err
	}
	receiverCards, err := encodeCards(o.ReceiverCards)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO trade_offers (id, sender_id, receiver_id, sender_cards, receiver_cards, coins_offered, status, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.SenderID, o.ReceiverID, string(senderCards), string(receiverCards), o.CoinsOffered,
		string(o.Status), toMillis(o.CreatedAt), toMillis(o.ExpiresAt))
	return err
}

func (t *sqliteTx) LockOffer(ctx context.Context, id string) (*models.TradeOffer, error) {
	o, err := scanSQLiteOffer(t.tx.QueryRowContext(ctx, `SELECT `+sqliteOfferColumns+` FROM trade_offers WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: trade offer %s", models.ErrNotFound, id)
	}
	return o, err
}

func (t *sqliteTx) SetOfferStatus(ctx context.Context, id string, status models.TradeStatus) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE trade_offers SET status = ? WHERE id = ?`, string(status), id)
	return err
}

func (t *sqliteTx) PendingOffers(ctx context.Context, accountID string) ([]models.TradeOffer, error) {
	return t.queryOffers(ctx, `SELECT `+sqliteOfferColumns+` FROM trade_offers
		WHERE status = 'pending' AND (sender_id = ? OR receiver_id = ?) ORDER BY created_at`, accountID, accountID)
}

func (t *sqliteTx) ExpiredOffers(ctx context.Context, now time.Time) ([]models.TradeOffer, error) {
	return t.queryOffers(ctx, `SELECT `+sqliteOfferColumns+` FROM trade_offers
		WHERE status = 'pending' AND expires_at <= ?`, toMillis(now))
}

const sqliteAgreementColumns = `id, seller_id, buyer_id, product_ref, quantity, unit_price, interval_seconds,
	next_run_at, status, runs_completed, created_at`

func scanSQLiteAgreement(row rowScanner) (*models.TradeAgreement, error) {
	var a models.TradeAgreement
	var intervalSeconds, nextRun, created int64
	var status string
	if err := row.Scan(&a.ID, &a.SellerID, &a.BuyerID, &a.ProductRef, &a.Quantity, &a.UnitPrice,
		&intervalSeconds, &nextRun, &status, &a.RunsCompleted, &created); err != nil {
		return nil, err
	}
	a.Interval = time.Duration(intervalSeconds) * time.Second
	a.NextRunAt = fromMillis(nextRun)
	a.CreatedAt = fromMillis(created)
	a.Status = models.AgreementStatus(status)
	return &a, nil
}

func (t *sqliteTx) InsertAgreement(ctx context.Context, a *models.TradeAgreement) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO trade_agreements (id, seller_id, buyer_id, product_ref, quantity, unit_price,
			interval_seconds, next_run_at, status, runs_completed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.SellerID, a.BuyerID, a.ProductRef, a.Quantity, a.UnitPrice,
		int64(a.Interval/time.Second), toMillis(a.NextRunAt), string(a.Status), a.RunsCompleted, toMillis(a.CreatedAt))
	return err
}

func (t *sqliteTx) LockAgreement(ctx context.Context, id string) (*models.TradeAgreement, error) {
	a, err := scanSQLiteAgreement(t.tx.QueryRowContext(ctx, `SELECT `+sqliteAgreementColumns+` FROM trade_agreements WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: agreement %s", models.ErrNotFound, id)
	}
	return a, err
}

func (t *sqliteTx) UpdateAgreement(ctx context.Context, a *models.TradeAgreement) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE trade_agreements SET next_run_at = ?, status = ?, runs_completed = ? WHERE id = ?`,
		toMillis(a.NextRunAt), string(a.Status), a.RunsCompleted, a.ID)
	return err
}

func (t *sqliteTx) DueAgreements(ctx context.Context, now time.Time) ([]models.TradeAgreement, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT `+sqliteAgreementColumns+` FROM trade_agreements
		WHERE status = 'active' AND next_run_at <= ? ORDER BY next_run_at`, toMillis(now))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.TradeAgreement
	for rows.Next() {
		a, err := scanSQLiteAgreement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (t *sqliteTx) SaveSession(ctx context.Context, s *models.PersistedSession) error {
	_, err := t.tx.ExecContext(ctx, `INSERT INTO game_sessions (id, kind, state, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		s.ID, s.Kind, s.State, toMillis(s.UpdatedAt))
	return err
}

func (t *sqliteTx) LoadSession(ctx context.Context, id string) (*models.PersistedSession, error) {
	s := models.PersistedSession{ID: id}
	var updated int64
	err := t.tx.QueryRowContext(ctx, `SELECT kind, state, updated_at FROM game_sessions WHERE id = ?`, id).
		Scan(&s.Kind, &s.State, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: session %s", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	s.UpdatedAt = fromMillis(updated)
	return &s, nil
}

func (t *sqliteTx) DeleteSession(ctx context.Context, id string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM game_sessions WHERE id = ?`, id)
	return err
}

func (t *sqliteTx) ListSessions(ctx context.Context, kind string) ([]models.PersistedSession, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT id, kind, state, updated_at FROM game_sessions WHERE kind = ? ORDER BY updated_at`, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.PersistedSession
	for rows.Next() {
		var s models.PersistedSession
		var updated int64
		if err := rows.Scan(&s.ID, &s.Kind, &s.State, &updated); err != nil {
			return nil, err
		}
		s.UpdatedAt = fromMillis(updated)
		out = append(out, s)
	}
	return out, rows.Err()
}
