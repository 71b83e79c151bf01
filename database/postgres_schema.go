package database

// Tables are created with CREATE TABLE IF NOT EXISTS on startup. CHECK
// constraints back up the application-level balance checks.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id               TEXT PRIMARY KEY,
		balance          BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
		bank_balance     BIGINT NOT NULL DEFAULT 0 CHECK (bank_balance >= 0),
		experience       BIGINT NOT NULL DEFAULT 0 CHECK (experience >= 0),
		games_played     BIGINT NOT NULL DEFAULT 0,
		games_won        BIGINT NOT NULL DEFAULT 0,
		total_wagered    BIGINT NOT NULL DEFAULT 0,
		total_won        BIGINT NOT NULL DEFAULT 0,
		last_daily_claim TIMESTAMPTZ,
		last_worked      TIMESTAMPTZ,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		seq           BIGSERIAL PRIMARY KEY,
		id            UUID NOT NULL UNIQUE,
		account_id    TEXT NOT NULL REFERENCES accounts(id),
		amount        BIGINT NOT NULL,
		kind          TEXT NOT NULL,
		description   TEXT NOT NULL DEFAULT '',
		balance_after BIGINT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account_id, seq DESC)`,
	`CREATE TABLE IF NOT EXISTS cooldowns (
		account_id TEXT NOT NULL,
		action     TEXT NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (account_id, action)
	)`,
	`CREATE TABLE IF NOT EXISTS bank_accounts (
		account_id          TEXT PRIMARY KEY REFERENCES accounts(id),
		balance             BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
		last_interest_at    TIMESTAMPTZ NOT NULL,
		total_interest_paid BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS credit_scores (
		account_id TEXT PRIMARY KEY REFERENCES accounts(id),
		score      INTEGER NOT NULL CHECK (score BETWEEN 0 AND 100)
	)`,
	`CREATE TABLE IF NOT EXISTS loans (
		id               UUID PRIMARY KEY,
		account_id       TEXT NOT NULL REFERENCES accounts(id),
		principal        BIGINT NOT NULL,
		interest_amount  BIGINT NOT NULL,
		remaining_amount BIGINT NOT NULL CHECK (remaining_amount >= 0),
		issued_at        TIMESTAMPTZ NOT NULL,
		due_at           TIMESTAMPTZ NOT NULL,
		status           TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_loans_one_active ON loans(account_id) WHERE status = 'active'`,
	`CREATE TABLE IF NOT EXISTS inventory (
		account_id TEXT NOT NULL REFERENCES accounts(id),
		card_id    TEXT NOT NULL,
		quantity   BIGINT NOT NULL CHECK (quantity > 0),
		PRIMARY KEY (account_id, card_id)
	)`,
	`CREATE TABLE IF NOT EXISTS market_listings (
		id                 UUID PRIMARY KEY,
		seller_id          TEXT NOT NULL REFERENCES accounts(id),
		product_ref        TEXT NOT NULL,
		quantity           BIGINT NOT NULL CHECK (quantity > 0),
		remaining_quantity BIGINT NOT NULL CHECK (remaining_quantity >= 0 AND remaining_quantity <= quantity),
		unit_price         BIGINT NOT NULL CHECK (unit_price > 0),
		created_at         TIMESTAMPTZ NOT NULL,
		expires_at         TIMESTAMPTZ NOT NULL,
		status             TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_status ON market_listings(status, expires_at)`,
	`CREATE TABLE IF NOT EXISTS trade_offers (
		id             UUID PRIMARY KEY,
		sender_id      TEXT NOT NULL REFERENCES accounts(id),
		receiver_id    TEXT NOT NULL REFERENCES accounts(id),
		sender_cards   JSONB NOT NULL DEFAULT '[]',
		receiver_cards JSONB NOT NULL DEFAULT '[]',
		coins_offered  BIGINT NOT NULL DEFAULT 0 CHECK (coins_offered >= 0),
		status         TEXT NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL,
		expires_at     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS trade_agreements (
		id               UUID PRIMARY KEY,
		seller_id        TEXT NOT NULL REFERENCES accounts(id),
		buyer_id         TEXT NOT NULL REFERENCES accounts(id),
		product_ref      TEXT NOT NULL,
		quantity         BIGINT NOT NULL CHECK (quantity > 0),
		unit_price       BIGINT NOT NULL CHECK (unit_price > 0),
		interval_seconds BIGINT NOT NULL,
		next_run_at      TIMESTAMPTZ NOT NULL,
		status           TEXT NOT NULL,
		runs_completed   BIGINT NOT NULL DEFAULT 0,
		created_at       TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS game_sessions (
		id         TEXT PRIMARY KEY,
		kind       TEXT NOT NULL,
		state      BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
}
