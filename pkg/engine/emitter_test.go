package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mvankampen/bunqsplit/pkg/bunq"
	"github.com/mvankampen/bunqsplit/pkg/split"
)

// submitRecorder fakes the write path of the ledger service.
type submitRecorder struct {
	errs    []error // returned in order; nil afterwards
	calls   int
	totals  []bunq.Amount
	batches [][]bunq.RequestInquiry
}

func (s *submitRecorder) ListEvents(ctx context.Context, accountID int64, olderID *int64, pageSize int) (bunq.Page, error) {
	return bunq.Page{}, nil
}

func (s *submitRecorder) GetPayment(ctx context.Context, accountID, paymentID int64) (bunq.Payment, error) {
	return bunq.Payment{}, nil
}

func (s *submitRecorder) CreateRequestBatch(ctx context.Context, accountID int64, inquiries []bunq.RequestInquiry, total bunq.Amount, eventID *int64) error {
	s.calls++
	s.totals = append(s.totals, total)
	s.batches = append(s.batches, inquiries)
	if s.calls <= len(s.errs) {
		return s.errs[s.calls-1]
	}
	return nil
}

func testBatch(t *testing.T) Batch {
	t.Helper()
	a, err := split.ParsePointer("alice@example.com")
	if err != nil {
		t.Fatal(err)
	}
	b, err := split.ParsePointer("bob@example.com")
	if err != nil {
		t.Fatal(err)
	}

	return Batch{
		Allocations: []split.Allocation{
			{Destination: a, Amount: decimal.RequireFromString("12.50")},
			{Destination: b, Amount: decimal.RequireFromString("7.50")},
		},
		Description: "test batch",
		Currency:    "EUR",
	}
}

func testPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Interval: time.Millisecond}
}

func TestEmitComputesTotal(t *testing.T) {
	recorder := &submitRecorder{}
	emitter := NewEmitter(recorder, 1, testPolicy())

	if err := emitter.Emit(context.Background(), testBatch(t)); err != nil {
		t.Fatalf("Emit() returned error: %v", err)
	}

	if recorder.calls != 1 {
		t.Fatalf("expected 1 submit, got %d", recorder.calls)
	}
	if got := recorder.totals[0].Value.StringFixed(2); got != "20.00" {
		t.Errorf("total = %s, expected 20.00", got)
	}
	for _, inquiry := range recorder.batches[0] {
		if !inquiry.AllowBunqme {
			t.Error("expected allow_bunqme on every inquiry")
		}
	}
}

func TestEmitRetriesTransientFailures(t *testing.T) {
	recorder := &submitRecorder{
		errs: []error{
			&bunq.APIError{StatusCode: 429},
			&bunq.APIError{StatusCode: 503},
		},
	}
	emitter := NewEmitter(recorder, 1, testPolicy())

	if err := emitter.Emit(context.Background(), testBatch(t)); err != nil {
		t.Fatalf("Emit() returned error: %v", err)
	}

	if recorder.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", recorder.calls)
	}
}

func TestEmitDoesNotRetryValidationFailures(t *testing.T) {
	rejection := &bunq.APIError{StatusCode: 400, Messages: []string{"duplicate reference"}}
	recorder := &submitRecorder{errs: []error{rejection}}
	emitter := NewEmitter(recorder, 1, testPolicy())

	err := emitter.Emit(context.Background(), testBatch(t))

	var apiErr *bunq.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 400 {
		t.Fatalf("Emit() error = %v, expected the validation rejection", err)
	}
	if recorder.calls != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", recorder.calls)
	}
}

func TestEmitGivesUpAfterMaxAttempts(t *testing.T) {
	recorder := &submitRecorder{
		errs: []error{
			&bunq.APIError{StatusCode: 503},
			&bunq.APIError{StatusCode: 503},
			&bunq.APIError{StatusCode: 503},
		},
	}
	emitter := NewEmitter(recorder, 1, testPolicy())

	if err := emitter.Emit(context.Background(), testBatch(t)); err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if recorder.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", recorder.calls)
	}
}

func TestEmitRejectsInvalidEmailBeforeSubmitting(t *testing.T) {
	recorder := &submitRecorder{}
	emitter := NewEmitter(recorder, 1, testPolicy())

	batch := testBatch(t)
	batch.Allocations[1].Destination = bunq.Pointer{Type: bunq.PointerTypeEmail, Value: "not-an-email"}

	if err := emitter.Emit(context.Background(), batch); err == nil {
		t.Fatal("expected error for invalid email destination")
	}
	if recorder.calls != 0 {
		t.Errorf("expected no submit attempts, got %d", recorder.calls)
	}
}

func TestEmitEmptyBatch(t *testing.T) {
	emitter := NewEmitter(&submitRecorder{}, 1, testPolicy())

	if err := emitter.Emit(context.Background(), Batch{Currency: "EUR"}); err == nil {
		t.Fatal("expected error for empty batch")
	}
}
