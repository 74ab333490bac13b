package db

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *Connection {
	t.Helper()
	conn, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open() returned error: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestRecordRunAndBatches(t *testing.T) {
	history := NewHistory(openTestDB(t))

	run := Run{
		ID:          "run-1",
		AccountIBAN: "NL91ABNA0417164300",
		Mode:        "backlog",
		Reason:      "already_split_boundary",
		Emitted:     2,
		Skipped:     3,
		StartedAt:   time.Now(),
	}
	if err := history.RecordRun(run); err != nil {
		t.Fatalf("RecordRun() returned error: %v", err)
	}

	for _, eventID := range []int64{101, 102} {
		err := history.RecordBatch(BatchRecord{
			RunID:     "run-1",
			EventID:   sql.NullInt64{Int64: eventID, Valid: true},
			PaymentID: sql.NullInt64{Int64: eventID - 100, Valid: true},
			Total:     "20.00",
			Currency:  "EUR",
			Payees:    2,
		})
		if err != nil {
			t.Fatalf("RecordBatch() returned error: %v", err)
		}
	}

	batches, err := history.BatchesForRun("run-1")
	if err != nil {
		t.Fatalf("BatchesForRun() returned error: %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	if batches[0].EventID.Int64 != 101 || batches[1].EventID.Int64 != 102 {
		t.Errorf("unexpected batch order: %+v", batches)
	}

	stats, err := history.GetStats()
	if err != nil {
		t.Fatalf("GetStats() returned error: %v", err)
	}
	if stats.TotalRuns != 1 || stats.TotalBatches != 2 {
		t.Errorf("stats = %+v, expected 1 run and 2 batches", stats)
	}
	if !stats.LastRun.Valid {
		t.Error("expected a last run timestamp")
	}
}

func TestGetStatsEmpty(t *testing.T) {
	history := NewHistory(openTestDB(t))

	stats, err := history.GetStats()
	if err != nil {
		t.Fatalf("GetStats() returned error: %v", err)
	}
	if stats.TotalRuns != 0 || stats.TotalBatches != 0 {
		t.Errorf("stats = %+v, expected zeros", stats)
	}
	if stats.LastRun.Valid {
		t.Error("expected no last run on an empty database")
	}
}
