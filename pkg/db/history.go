package db

import (
	"database/sql"
	"fmt"
	"time"
)

// Run is one recorded invocation.
type Run struct {
	ID          string
	AccountIBAN string
	Mode        string
	Reason      string
	Emitted     int
	Skipped     int
	StartedAt   time.Time
}

// BatchRecord is one recorded request batch.
type BatchRecord struct {
	RunID     string
	EventID   sql.NullInt64
	PaymentID sql.NullInt64
	Total     string
	Currency  string
	Payees    int
}

// History manages run-history operations.
type History struct {
	conn *Connection
}

// NewHistory creates a new History instance.
func NewHistory(conn *Connection) *History {
	return &History{conn: conn}
}

// RecordRun records a completed invocation.
func (h *History) RecordRun(run Run) error {
	query := `
		INSERT INTO runs (id, account_iban, mode, reason, emitted, skipped, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := h.conn.Exec(query,
		run.ID,
		run.AccountIBAN,
		run.Mode,
		run.Reason,
		run.Emitted,
		run.Skipped,
		run.StartedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	return nil
}

// RecordBatch records one confirmed request batch.
func (h *History) RecordBatch(batch BatchRecord) error {
	query := `
		INSERT INTO batches (run_id, event_id, payment_id, total, currency, payees)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := h.conn.Exec(query,
		batch.RunID,
		batch.EventID,
		batch.PaymentID,
		batch.Total,
		batch.Currency,
		batch.Payees,
	)

	if err != nil {
		return fmt.Errorf("failed to record batch: %w", err)
	}

	return nil
}

// BatchesForRun retrieves the batches recorded for one run.
func (h *History) BatchesForRun(runID string) ([]BatchRecord, error) {
	query := `
		SELECT run_id, event_id, payment_id, total, currency, payees
		FROM batches
		WHERE run_id = ?
		ORDER BY id
	`

	rows, err := h.conn.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get batches: %w", err)
	}
	defer rows.Close()

	var batches []BatchRecord
	for rows.Next() {
		var batch BatchRecord
		if err := rows.Scan(
			&batch.RunID,
			&batch.EventID,
			&batch.PaymentID,
			&batch.Total,
			&batch.Currency,
			&batch.Payees,
		); err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batches = append(batches, batch)
	}

	return batches, rows.Err()
}

// Stats represents run-history statistics.
type Stats struct {
	TotalRuns    int
	TotalBatches int
	LastRun      sql.NullString
}

// GetStats retrieves run-history statistics.
func (h *History) GetStats() (*Stats, error) {
	var stats Stats

	err := h.conn.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&stats.TotalRuns)
	if err != nil {
		return nil, fmt.Errorf("failed to get run count: %w", err)
	}

	err = h.conn.QueryRow(`SELECT COUNT(*) FROM batches`).Scan(&stats.TotalBatches)
	if err != nil {
		return nil, fmt.Errorf("failed to get batch count: %w", err)
	}

	err = h.conn.QueryRow(`SELECT MAX(finished_at) FROM runs`).Scan(&stats.LastRun)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get last run time: %w", err)
	}

	return &stats, nil
}
