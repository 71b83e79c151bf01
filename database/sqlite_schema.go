package database

// Timestamps are stored as unix milliseconds.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id               TEXT PRIMARY KEY,
		balance          INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
		bank_balance     INTEGER NOT NULL DEFAULT 0 CHECK (bank_balance >= 0),
		experience       INTEGER NOT NULL DEFAULT 0 CHECK (experience >= 0),
		games_played     INTEGER NOT NULL DEFAULT 0,
		games_won        INTEGER NOT NULL DEFAULT 0,
		total_wagered    INTEGER NOT NULL DEFAULT 0,
		total_won        INTEGER NOT NULL DEFAULT 0,
		last_daily_claim INTEGER,
		last_worked      INTEGER,
		created_at       INTEGER NOT NULL,
		updated_at       INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		seq           INTEGER PRIMARY KEY AUTOINCREMENT,
		id            TEXT NOT NULL UNIQUE,
		account_id    TEXT NOT NULL REFERENCES accounts(id),
		amount        INTEGER NOT NULL,
		kind          TEXT NOT NULL,
		description   TEXT NOT NULL DEFAULT '',
		balance_after INTEGER NOT NULL,
		created_at    INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account_id, seq DESC)`,
	`CREATE TABLE IF NOT EXISTS cooldowns (
		account_id TEXT NOT NULL,
		action     TEXT NOT NULL,
		expires_at INTEGER NOT NULL,
		PRIMARY KEY (account_id, action)
	)`,
	`CREATE TABLE IF NOT EXISTS bank_accounts (
		account_id          TEXT PRIMARY KEY REFERENCES accounts(id),
		balance             INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
		last_interest_at    INTEGER NOT NULL,
		total_interest_paid INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS credit_scores (
		account_id TEXT PRIMARY KEY REFERENCES accounts(id),
		score      INTEGER NOT NULL CHECK (score BETWEEN 0 AND 100)
	)`,
	`CREATE TABLE IF NOT EXISTS loans (
		id               TEXT PRIMARY KEY,
		account_id       TEXT NOT NULL REFERENCES accounts(id),
		principal        INTEGER NOT NULL,
		interest_amount  INTEGER NOT NULL,
		remaining_amount INTEGER NOT NULL CHECK (remaining_amount >= 0),
		issued_at        INTEGER NOT NULL,
		due_at           INTEGER NOT NULL,
		status           TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_loans_one_active ON loans(account_id) WHERE status = 'active'`,
	`CREATE TABLE IF NOT EXISTS inventory (
		account_id TEXT NOT NULL REFERENCES accounts(id),
		card_id    TEXT NOT NULL,
		quantity   INTEGER NOT NULL CHECK (quantity > 0),
		PRIMARY KEY (account_id, card_id)
	)`,
	`CREATE TABLE IF NOT EXISTS market_listings (
		id                 TEXT PRIMARY KEY,
		seller_id          TEXT NOT NULL REFERENCES accounts(id),
		product_ref        TEXT NOT NULL,
		quantity           INTEGER NOT NULL CHECK (quantity > 0),
		remaining_quantity INTEGER NOT NULL CHECK (remaining_quantity >= 0 AND remaining_quantity <= quantity),
		unit_price         INTEGER NOT NULL CHECK (unit_price > 0),
		created_at         INTEGER NOT NULL,
		expires_at         INTEGER NOT NULL,
		status             TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_status ON market_listings(status, expires_at)`,
	`CREATE TABLE IF NOT EXISTS trade_offers (
		id             TEXT PRIMARY KEY,
		sender_id      TEXT NOT NULL REFERENCES accounts(id),
		receiver_id    TEXT NOT NULL REFERENCES accounts(id),
		sender_cards   TEXT NOT NULL DEFAULT '[]',
		receiver_cards TEXT NOT NULL DEFAULT '[]',
		coins_offered  INTEGER NOT NULL DEFAULT 0 CHECK (coins_offered >= 0),
		status         TEXT NOT NULL,
		created_at     INTEGER NOT NULL,
		expires_at     INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS trade_agreements (
		id               TEXT PRIMARY KEY,
		seller_id        TEXT NOT NULL REFERENCES accounts(id),
		buyer_id         TEXT NOT NULL REFERENCES accounts(id),
		product_ref      TEXT NOT NULL,
		quantity         INTEGER NOT NULL CHECK (quantity > 0),
		unit_price       INTEGER NOT NULL CHECK (unit_price > 0),
		interval_seconds INTEGER NOT NULL,
		next_run_at      INTEGER NOT NULL,
		status           TEXT NOT NULL,
		runs_completed   INTEGER NOT NULL DEFAULT 0,
		created_at       INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS game_sessions (
		id         TEXT PRIMARY KEY,
		kind       TEXT NOT NULL,
		state      BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
}
