package store

const schema = `
CREATE TABLE IF NOT EXISTS raw_transactions (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	posted_date        TEXT    NOT NULL,
	amount             TEXT    NOT NULL,
	description        TEXT    NOT NULL,
	desc_key           TEXT    NOT NULL,
	payee              TEXT    NOT NULL DEFAULT '',
	external_id        TEXT    NOT NULL DEFAULT '',
	source             TEXT    NOT NULL DEFAULT '',
	processed          INTEGER NOT NULL DEFAULT 0,
	excluded           INTEGER NOT NULL DEFAULT 0,
	suggested_category TEXT    NOT NULL DEFAULT '',
	suggested_action   TEXT    NOT NULL DEFAULT '',
	rule_id            INTEGER NOT NULL DEFAULT 0,
	confidence         TEXT    NOT NULL DEFAULT '0',
	ledger_entry_id    INTEGER,
	created_at         TEXT    NOT NULL,
	UNIQUE (posted_date, amount, desc_key)
);

CREATE TABLE IF NOT EXISTS ledger_entries (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	date               TEXT    NOT NULL,
	amount             TEXT    NOT NULL,
	category           TEXT    NOT NULL,
	merchant           TEXT    NOT NULL,
	merchant_key       TEXT    NOT NULL,
	raw_transaction_id INTEGER NOT NULL REFERENCES raw_transactions(id),
	created_at         TEXT    NOT NULL,
	UNIQUE (date, amount, merchant_key, category)
);

CREATE INDEX IF NOT EXISTS idx_ledger_category_date ON ledger_entries(category, date);

CREATE TABLE IF NOT EXISTS payment_obligations (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	tracking_id  TEXT    NOT NULL UNIQUE,
	category     TEXT    NOT NULL,
	period       TEXT    NOT NULL,
	payer        TEXT    NOT NULL,
	owed_amount  TEXT    NOT NULL,
	total_amount TEXT    NOT NULL,
	charged_at   TEXT    NOT NULL,
	status       TEXT    NOT NULL DEFAULT 'pending'
	             CHECK (status IN ('pending', 'sent', 'paid', 'foregone')),
	paid_at      TEXT    NOT NULL DEFAULT '',
	created_at   TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_obligations_status ON payment_obligations(status);

CREATE TABLE IF NOT EXISTS confirmation_events (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	message_id    TEXT    NOT NULL UNIQUE,
	amount        TEXT    NOT NULL,
	actor         TEXT    NOT NULL,
	timestamp     TEXT    NOT NULL,
	note          TEXT    NOT NULL DEFAULT '',
	obligation_id INTEGER REFERENCES payment_obligations(id),
	status        TEXT    NOT NULL DEFAULT 'unmatched'
	              CHECK (status IN ('unmatched', 'review', 'matched')),
	score         REAL    NOT NULL DEFAULT 0,
	candidates    TEXT    NOT NULL DEFAULT '',
	matched_by    TEXT    NOT NULL DEFAULT '',
	created_at    TEXT    NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_events_obligation
	ON confirmation_events(obligation_id) WHERE obligation_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS utility_adjustments (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	ledger_entry_id INTEGER NOT NULL REFERENCES ledger_entries(id),
	obligation_id   INTEGER NOT NULL UNIQUE REFERENCES payment_obligations(id),
	amount          TEXT    NOT NULL,
	date            TEXT    NOT NULL,
	created_at      TEXT    NOT NULL
);
`
