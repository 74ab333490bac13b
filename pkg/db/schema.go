// Package db provides the local SQLite run-history database. History
// is informational only: the remote ledger's split back-reference is
// what prevents double processing, never this database.
package db

// Schema defines the SQL statements to create database tables.
const Schema = `
-- Run history
-- One row per reconciliation walk or one-shot command.
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,               -- run UUID
    account_iban TEXT NOT NULL,
    mode TEXT NOT NULL,                -- 'backlog', 'period', 'request' or 'forward'
    reason TEXT NOT NULL,              -- termination reason
    emitted INTEGER NOT NULL,          -- batches submitted
    skipped INTEGER NOT NULL,          -- payments skipped
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_runs_account
    ON runs(account_iban);

-- Emitted batches
-- One row per request batch confirmed by the ledger.
CREATE TABLE IF NOT EXISTS batches (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL REFERENCES runs(id),
    event_id INTEGER,                  -- source event, NULL for one-shot requests
    payment_id INTEGER,
    total TEXT NOT NULL,               -- batch total, fixed two decimals
    currency TEXT NOT NULL,
    payees INTEGER NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_batches_run
    ON batches(run_id);

CREATE INDEX IF NOT EXISTS idx_batches_event
    ON batches(event_id);
`

// InitializeSchema initializes the database schema.
// It creates all tables if they don't exist.
func InitializeSchema(conn *Connection) error {
	if _, err := conn.Exec(Schema); err != nil {
		return err
	}
	return nil
}
