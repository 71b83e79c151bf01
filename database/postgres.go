package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"econbot/models"
)

const (
	maxTxAttempts  = 8
	baseRetryDelay = 25 * time.Millisecond
)

// PostgresStore is the production backend on a pgx connection pool
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres creates a tuned connection pool, pings it and applies the schema
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 30
	config.MinConns = 4
	config.MaxConnLifetime = 45 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute
	config.HealthCheckPeriod = 30 * time.Second
	config.ConnConfig.RuntimeParams = map[string]string{
		"application_name":                    "econbot",
		"timezone":                            "UTC",
		"statement_timeout":                   "30s",
		"idle_in_transaction_session_timeout": "60s",
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	for _, stmt := range postgresSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Driver() string { return "postgres" }

func (s *PostgresStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *PostgresStore) Close() { s.pool.Close() }

// InTx runs fn in a serializable transaction, retrying with backoff when
// Postgres reports a serialization failure or deadlock.
func (s *PostgresStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	delay := baseRetryDelay
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err := s.runTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return translatePgError(err)
		}
		if err := sleepWithContext(ctx, delay); err != nil {
			return err
		}
		if delay < 800*time.Millisecond {
			delay *= 2
		}
	}
	return models.ErrTxConflict
}

func (s *PostgresStore) runTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

// translatePgError maps constraint failures onto the domain taxonomy. A CHECK
// failure means a service let a negative balance through.
func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23514":
			return fmt.Errorf("%w: %s", models.ErrInvariantViolation, pgErr.ConstraintName)
		case "23505":
			if pgErr.ConstraintName == "idx_loans_one_active" {
				return fmt.Errorf("%w: loan already active", models.ErrInvalidState)
			}
		}
	}
	return err
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type pgTx struct {
	tx pgx.Tx
}

const pgAccountColumns = `id, balance, bank_balance, experience, games_played, games_won,
	total_wagered, total_won, last_daily_claim, last_worked, created_at, updated_at`

func scanPgAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Balance, &a.BankBalance, &a.Experience, &a.GamesPlayed, &a.GamesWon,
		&a.TotalWagered, &a.TotalWon, &a.LastDailyClaim, &a.LastWorked, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (t *pgTx) ensureAccount(ctx context.Context, id string) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO accounts (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, id)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (t *pgTx) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	if err := t.ensureAccount(ctx, id); err != nil {
		return nil, err
	}
	a, err := scanPgAccount(t.tx.QueryRow(ctx, `SELECT `+pgAccountColumns+` FROM accounts WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

func (t *pgTx) LockAccount(ctx context.Context, id string) (*models.Account, error) {
	if err := t.ensureAccount(ctx, id); err != nil {
		return nil, err
	}
	a, err := scanPgAccount(t.tx.QueryRow(ctx, `SELECT `+pgAccountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}
	return a, nil
}

func (t *pgTx) SetBalance(ctx context.Context, id string, balance int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE accounts SET balance = $1, updated_at = NOW() WHERE id = $2`, balance, id)
	return err
}

func (t *pgTx) SetBankBalance(ctx context.Context, id string, balance int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE accounts SET bank_balance = $1, updated_at = NOW() WHERE id = $2`, balance, id)
	return err
}

// PatchAccount applies every patch field in one parameterized statement.
// Nil timestamps keep the stored value through COALESCE.
func (t *pgTx) PatchAccount(ctx context.Context, id string, p models.AccountPatch) error {
	if p.IsZero() {
		return nil
	}
	_, err := t.tx.Exec(ctx, `
		UPDATE accounts SET
			experience       = experience + $2,
			games_played     = games_played + $3,
			games_won        = games_won + $4,
			total_wagered    = total_wagered + $5,
			total_won        = total_won + $6,
			last_daily_claim = COALESCE($7, last_daily_claim),
			last_worked      = COALESCE($8, last_worked),
			updated_at       = NOW()
		WHERE id = $1`,
		id, p.ExperienceIncrement, p.GamesPlayedIncrement, p.GamesWonIncrement,
		p.TotalWageredIncrement, p.TotalWonIncrement, p.LastDailyClaim, p.LastWorked)
	if err != nil {
		return fmt.Errorf("failed to patch account: %w", err)
	}
	return nil
}

func (t *pgTx) TopAccounts(ctx context.Context, limit int) ([]models.Account, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+pgAccountColumns+` FROM accounts
		ORDER BY balance + bank_balance DESC, id LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Account
	for rows.Next() {
		a, err := scanPgAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (t *pgTx) InsertTransaction(ctx context.Context, tr *models.Transaction) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO transactions (id, account_id, amount, kind, description, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		tr.ID, tr.AccountID, tr.Amount, string(tr.Kind), tr.Description, tr.BalanceAfter, tr.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to log transaction: %w", err)
	}
	return nil
}

func scanPgTransactions(rows pgx.Rows, fn func(models.Transaction) error) error {
	defer rows.Close()
	for rows.Next() {
		var tr models.Transaction
		var kind string
		if err := rows.Scan(&tr.ID, &tr.AccountID, &tr.Amount, &kind, &tr.Description, &tr.BalanceAfter, &tr.CreatedAt); err != nil {
			return err
		}
		tr.Kind = models.TransactionKind(kind)
		if err := fn(tr); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (t *pgTx) ListTransactions(ctx context.Context, accountID string, limit int) ([]models.Transaction, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id::text, account_id, amount, kind, description, balance_after, created_at
		FROM transactions WHERE account_id = $1 ORDER BY seq DESC LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, err
	}
	var out []models.Transaction
	err = scanPgTransactions(rows, func(tr models.Transaction) error {
		out = append(out, tr)
		return nil
	})
	return out, err
}

func (t *pgTx) EachTransaction(ctx context.Context, since time.Time, fn func(models.Transaction) error) error {
	rows, err := t.tx.Query(ctx, `
		SELECT id::text, account_id, amount, kind, description, balance_after, created_at
		FROM transactions WHERE created_at >= $1 ORDER BY seq`, since)
	if err != nil {
		return err
	}
	return scanPgTransactions(rows, fn)
}

// SetCooldownIfExpired is a single upsert whose update arm only fires when the
// stored fence has passed, so two racing callers cannot both be admitted.
func (t *pgTx) SetCooldownIfExpired(ctx context.Context, accountID, action string, now, expiresAt time.Time) (bool, time.Time, error) {
	var stored time.Time
	err := t.tx.QueryRow(ctx, `
		INSERT INTO cooldowns (account_id, action, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (account_id, action) DO UPDATE SET expires_at = EXCLUDED.expires_at
		WHERE cooldowns.expires_at <= $4
		RETURNING expires_at`, accountID, action, expiresAt, now).Scan(&stored)
	if err == nil {
		return true, stored, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, time.Time{}, fmt.Errorf("failed to set cooldown: %w", err)
	}
	err = t.tx.QueryRow(ctx, `SELECT expires_at FROM cooldowns WHERE account_id = $1 AND action = $2`,
		accountID, action).Scan(&stored)
	if err != nil {
		return false, time.Time{}, fmt.Errorf("failed to read cooldown: %w", err)
	}
	return false, stored, nil
}

func (t *pgTx) GetCooldown(ctx context.Context, accountID, action string) (*models.Cooldown, error) {
	c := models.Cooldown{AccountID: accountID, Action: action}
	err := t.tx.QueryRow(ctx, `SELECT expires_at FROM cooldowns WHERE account_id = $1 AND action = $2`,
		accountID, action).Scan(&c.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (t *pgTx) DeleteCooldown(ctx context.Context, accountID, action string) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM cooldowns WHERE account_id = $1 AND action = $2`, accountID, action)
	return err
}

func (t *pgTx) PurgeCooldowns(ctx context.Context, now time.Time) (int64, error) {
	tag, err := t.tx.Exec(ctx, `DELETE FROM cooldowns WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t *pgTx) LockBankAccount(ctx context.Context, accountID string, now time.Time) (*models.BankAccount, error) {
	if err := t.ensureAccount(ctx, accountID); err != nil {
		return nil, err
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO bank_accounts (account_id, last_interest_at) VALUES ($1, $2)
		ON CONFLICT (account_id) DO NOTHING`, accountID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to open bank account: %w", err)
	}
	b := models.BankAccount{AccountID: accountID}
	err = t.tx.QueryRow(ctx, `
		SELECT balance, last_interest_at, total_interest_paid
		FROM bank_accounts WHERE account_id = $1 FOR UPDATE`, accountID).
		Scan(&b.Balance, &b.LastInterestAt, &b.TotalInterestPaid)
	if err != nil {
		return nil, fmt.Errorf("failed to lock bank account: %w", err)
	}
	return &b, nil
}

func (t *pgTx) UpdateBankAccount(ctx context.Context, b *models.BankAccount) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE bank_accounts SET balance = $2, last_interest_at = $3, total_interest_paid = $4
		WHERE account_id = $1`, b.AccountID, b.Balance, b.LastInterestAt, b.TotalInterestPaid)
	return err
}

func (t *pgTx) GetCreditScore(ctx context.Context, accountID string) (int, error) {
	if err := t.ensureAccount(ctx, accountID); err != nil {
		return 0, err
	}
	var score int
	err := t.tx.QueryRow(ctx, `
		INSERT INTO credit_scores (account_id, score) VALUES ($1, $2)
		ON CONFLICT (account_id) DO UPDATE SET score = credit_scores.score
		RETURNING score`, accountID, models.DefaultCreditScore).Scan(&score)
	if err != nil {
		return 0, fmt.Errorf("failed to get credit score: %w", err)
	}
	return score, nil
}

func (t *pgTx) SetCreditScore(ctx context.Context, accountID string, score int) error {
	if err := t.ensureAccount(ctx, accountID); err != nil {
		return err
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO credit_scores (account_id, score) VALUES ($1, $2)
		ON CONFLICT (account_id) DO UPDATE SET score = EXCLUDED.score`, accountID, score)
	return err
}

const pgLoanColumns = `id::text, account_id, principal, interest_amount, remaining_amount, issued_at, due_at, status`

func scanPgLoan(row pgx.Row) (*models.Loan, error) {
	var l models.Loan
	var status string
	if err := row.Scan(&l.ID, &l.AccountID, &l.Principal, &l.InterestAmount, &l.RemainingAmount,
		&l.IssuedAt, &l.DueAt, &status); err != nil {
		return nil, err
	}
	l.Status = models.LoanStatus(status)
	return &l, nil
}

func (t *pgTx) LockActiveLoan(ctx context.Context, accountID string) (*models.Loan, error) {
	l, err := scanPgLoan(t.tx.QueryRow(ctx, `SELECT `+pgLoanColumns+` FROM loans
		WHERE account_id = $1 AND status = 'active' FOR UPDATE`, accountID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: no active loan", models.ErrNotFound)
	}
	return l, err
}

func (t *pgTx) InsertLoan(ctx context.Context, l *models.Loan) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO loans (id, account_id, principal, interest_amount, remaining_amount, issued_at, due_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		l.ID, l.AccountID, l.Principal, l.InterestAmount, l.RemainingAmount, l.IssuedAt, l.DueAt, string(l.Status))
	return err
}

func (t *pgTx) UpdateLoan(ctx context.Context, l *models.Loan) error {
	_, err := t.tx.Exec(ctx, `UPDATE loans SET remaining_amount = $2, status = $3 WHERE id = $1`,
		l.ID, l.RemainingAmount, string(l.Status))
	return err
}

func (t *pgTx) queryLoans(ctx context.Context, sql string, args ...any) ([]models.Loan, error) {
	rows, err := t.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Loan
	for rows.Next() {
		l, err := scanPgLoan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func (t *pgTx) ListLoans(ctx context.Context, accountID string) ([]models.Loan, error) {
	return t.queryLoans(ctx, `SELECT `+pgLoanColumns+` FROM loans WHERE account_id = $1 ORDER BY issued_at DESC`, accountID)
}

func (t *pgTx) OverdueLoans(ctx context.Context, dueBefore time.Time) ([]models.Loan, error) {
	return t.queryLoans(ctx, `SELECT `+pgLoanColumns+` FROM loans
		WHERE status = 'active' AND due_at < $1 ORDER BY due_at`, dueBefore)
}

func (t *pgTx) LockInventory(ctx context.Context, accountID, cardID string) (int64, error) {
	var qty int64
	err := t.tx.QueryRow(ctx, `SELECT quantity FROM inventory WHERE account_id = $1 AND card_id = $2 FOR UPDATE`,
		accountID, cardID).Scan(&qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return qty, err
}

func (t *pgTx) SetInventory(ctx context.Context, accountID, cardID string, qty int64) error {
	if qty <= 0 {
		_, err := t.tx.Exec(ctx, `DELETE FROM inventory WHERE account_id = $1 AND card_id = $2`, accountID, cardID)
		return err
	}
	if err := t.ensureAccount(ctx, accountID); err != nil {
		return err
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO inventory (account_id, card_id, quantity) VALUES ($1, $2, $3)
		ON CONFLICT (account_id, card_id) DO UPDATE SET quantity = EXCLUDED.quantity`, accountID, cardID, qty)
	return err
}

func (t *pgTx) ListInventory(ctx context.Context, accountID string) ([]models.InventoryItem, error) {
	rows, err := t.tx.Query(ctx, `SELECT card_id, quantity FROM inventory WHERE account_id = $1 ORDER BY card_id`, accountID)
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

const pgListingColumns = `id::text, seller_id, product_ref, quantity, remaining_quantity, unit_price, created_at, expires_at, status`

func scanPgListing(row pgx.Row) (*models.MarketListing, error) {
	var l models.MarketListing
	var status string
	if err := row.Scan(&l.ID, &l.SellerID, &l.ProductRef, &l.Quantity, &l.RemainingQuantity,
		&l.UnitPrice, &l.CreatedAt, &l.ExpiresAt, &status); err != nil {
		return nil, err
	}
	l.Status = models.ListingStatus(status)
	return &l, nil
}

func (t *pgTx) queryListings(ctx context.Context, sql string, args ...any) ([]models.MarketListing, error) {
	rows, err := t.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.MarketListing
	for rows.Next() {
		l, err := scanPgListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func (t *pgTx) InsertListing(ctx context.Context, l *models.MarketListing) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO market_listings (id, seller_id, product_ref, quantity, remaining_quantity, unit_price, created_at, expires_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		l.ID, l.SellerID, l.ProductRef, l.Quantity, l.RemainingQuantity, l.UnitPrice, l.CreatedAt, l.ExpiresAt, string(l.Status))
	return err
}

func (t *pgTx) LockListing(ctx context.Context, id string) (*models.MarketListing, error) {
	l, err := scanPgListing(t.tx.QueryRow(ctx, `SELECT `+pgListingColumns+` FROM market_listings WHERE id::text = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: listing %s", models.ErrNotFound, id)
	}
	return l, err
}

func (t *pgTx) UpdateListing(ctx context.Context, l *models.MarketListing) error {
	_, err := t.tx.Exec(ctx, `UPDATE market_listings SET remaining_quantity = $2, status = $3 WHERE id::text = $1`,
		l.ID, l.RemainingQuantity, string(l.Status))
	return err
}

func (t *pgTx) ActiveListings(ctx context.Context, productRef string, limit int) ([]models.MarketListing, error) {
	return t.queryListings(ctx, `SELECT `+pgListingColumns+` FROM market_listings
		WHERE status = 'active' AND ($1 = '' OR product_ref = $1)
		ORDER BY unit_price, created_at LIMIT $2`, productRef, limit)
}

func (t *pgTx) ExpiredListings(ctx context.Context, now time.Time) ([]models.MarketListing, error) {
	return t.queryListings(ctx, `SELECT `+pgListingColumns+` FROM market_listings
		WHERE status = 'active' AND expires_at <= $1`, now)
}

const pgOfferColumns = `id::text, sender_id, receiver_id, sender_cards, receiver_cards, coins_offered, status, created_at, expires_at`

func scanPgOffer(row pgx.Row) (*models.TradeOffer, error) {
	var o models.TradeOffer
	var senderCards, receiverCards []byte
	var status string
	if err := row.Scan(&o.ID, &o.SenderID, &o.ReceiverID, &senderCards, &receiverCards,
		&o.CoinsOffered, &status, &o.CreatedAt, &o.ExpiresAt); err != nil {
		return nil, err
	}
	o.Status = models.TradeStatus(status)
	if err := decodeCards(senderCards, &o.SenderCards); err != nil {
		return nil, err
	}
	if err := decodeCards(receiverCards, &o.ReceiverCards); err != nil {
		return nil, err
	}
	return &o, nil
}

func (t *pgTx) queryOffers(ctx context.Context, sql string, args ...any) ([]models.TradeOffer, error) {
	rows, err := t.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.TradeOffer
	for rows.Next() {
		o, err := scanPgOffer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (t *pgTx) InsertOffer(ctx context.Context, o *models.TradeOffer) error {
	senderCards, err := encodeCards(o.SenderCards)
	if err != nil {
		return err
	}
	receiverCards, err := encodeCards(o.ReceiverCards)
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(ctx, `
		INSERT INTO trade_offers (id, sender_id, receiver_id, sender_cards, receiver_cards, coins_offered, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, $6, $7, $8, $9)`,
		o.ID, o.SenderID, o.ReceiverID, string(senderCards), string(receiverCards), o.CoinsOffered,
		string(o.Status), o.CreatedAt, o.ExpiresAt)
	return err
}

func (t *pgTx) LockOffer(ctx context.Context, id string) (*models.TradeOffer, error) {
	o, err := scanPgOffer(t.tx.QueryRow(ctx, `SELECT `+pgOfferColumns+` FROM trade_offers WHERE id::text = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: trade offer %s", models.ErrNotFound, id)
	}
	return o, err
}

func (t *pgTx) SetOfferStatus(ctx context.Context, id string, status models.TradeStatus) error {
	_, err := t.tx.Exec(ctx, `UPDATE trade_offers SET status = $2 WHERE id::text = $1`, id, string(status))
	return err
}

func (t *pgTx) PendingOffers(ctx context.Context, accountID string) ([]models.TradeOffer, error) {
	return t.queryOffers(ctx, `SELECT `+pgOfferColumns+` FROM trade_offers
		WHERE status = 'pending' AND (sender_id = $1 OR receiver_id = $1) ORDER BY created_at`, accountID)
}

func (t *pgTx) ExpiredOffers(ctx context.Context, now time.Time) ([]models.TradeOffer, error) {
	return t.queryOffers(ctx, `SELECT `+pgOfferColumns+` FROM trade_offers
		WHERE status = 'pending' AND expires_at <= $1`, now)
}

const pgAgreementColumns = `id::text, seller_id, buyer_id, product_ref, quantity, unit_price, interval_seconds,
	next_run_at, status, runs_completed, created_at`

func scanPgAgreement(row pgx.Row) (*models.TradeAgreement, error) {
	var a models.TradeAgreement
	var intervalSeconds int64
	var status string
	if err := row.Scan(&a.ID, &a.SellerID, &a.BuyerID, &a.ProductRef, &a.Quantity, &a.UnitPrice,
		&intervalSeconds, &a.NextRunAt, &status, &a.RunsCompleted, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Interval = time.Duration(intervalSeconds) * time.Second
	a.Status = models.AgreementStatus(status)
	return &a, nil
}

func (t *pgTx) InsertAgreement(ctx context.Context, a *models.TradeAgreement) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO trade_agreements (id, seller_id, buyer_id, product_ref, quantity, unit_price,
			interval_seconds, next_run_at, status, runs_completed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, a.SellerID, a.BuyerID, a.ProductRef, a.Quantity, a.UnitPrice,
		int64(a.Interval/time.Second), a.NextRunAt, string(a.Status), a.RunsCompleted, a.CreatedAt)
	return err
}

func (t *pgTx) LockAgreement(ctx context.Context, id string) (*models.TradeAgreement, error) {
	a, err := scanPgAgreement(t.tx.QueryRow(ctx, `SELECT `+pgAgreementColumns+` FROM trade_agreements WHERE id::text = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: agreement %s", models.ErrNotFound, id)
	}
	return a, err
}

func (t *pgTx) UpdateAgreement(ctx context.Context, a *models.TradeAgreement) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE trade_agreements SET next_run_at = $2, status = $3, runs_completed = $4 WHERE id::text = $1`,
		a.ID, a.NextRunAt, string(a.Status), a.RunsCompleted)
	return err
}

func (t *pgTx) DueAgreements(ctx context.Context, now time.Time) ([]models.TradeAgreement, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+pgAgreementColumns+` FROM trade_agreements
		WHERE status = 'active' AND next_run_at <= $1 ORDER BY next_run_at`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.TradeAgreement
	for rows.Next() {
		a, err := scanPgAgreement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (t *pgTx) SaveSession(ctx context.Context, s *models.PersistedSession) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO game_sessions (id, kind, state, updated_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET state = EXCLUDED.state, updated_at = EXCLUDED.updated_at`,
		s.ID, s.Kind, s.State, s.UpdatedAt)
	return err
}

func (t *pgTx) LoadSession(ctx context.Context, id string) (*models.PersistedSession, error) {
	s := models.PersistedSession{ID: id}
	err := t.tx.QueryRow(ctx, `SELECT kind, state, updated_at FROM game_sessions WHERE id = $1`, id).
		Scan(&s.Kind, &s.State, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: session %s", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (t *pgTx) DeleteSession(ctx context.Context, id string) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM game_sessions WHERE id = $1`, id)
	return err
}

func (t *pgTx) ListSessions(ctx context.Context, kind string) ([]models.PersistedSession, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, kind, state, updated_at FROM game_sessions WHERE kind = $1 ORDER BY updated_at`, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.PersistedSession
	for rows.Next() {
		var s models.PersistedSession
		if err := rows.Scan(&s.ID, &s.Kind, &s.State, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
