package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mvankampen/bunqsplit/pkg/bunq"
	"github.com/mvankampen/bunqsplit/pkg/split"
)

// RetryPolicy bounds the emitter's retry loop: a fixed interval
// between attempts and a hard attempt ceiling. Only transient service
// failures are retried.
type RetryPolicy struct {
	MaxAttempts int
	Interval    time.Duration
}

// DefaultRetryPolicy is used when no policy is configured.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 5,
	Interval:    2 * time.Second,
}

// Batch is one request batch to submit: the allocations for a single
// source payment plus a shared description. SourceEventID links the
// batch back to the payment event so the ledger marks it as split.
type Batch struct {
	Allocations   []split.Allocation
	Description   string
	Currency      string
	SourceEventID *int64
}

// Emitter submits request batches through the ledger service with
// bounded retry on transient failures.
type Emitter struct {
	svc       LedgerService
	accountID int64
	policy    RetryPolicy
}

// NewEmitter creates an emitter for the given account.
func NewEmitter(svc LedgerService, accountID int64, policy RetryPolicy) *Emitter {
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy
	}
	return &Emitter{
		svc:       svc,
		accountID: accountID,
		policy:    policy,
	}
}

// Emit validates and submits one batch. Email destinations are checked
// before submission; an invalid one fails the whole batch without a
// partial submit. A batch is one atomic ledger operation: after a
// confirmed success or a non-transient rejection it is never resent.
func (e *Emitter) Emit(ctx context.Context, batch Batch) error {
	if len(batch.Allocations) == 0 {
		return fmt.Errorf("batch has no allocations")
	}

	inquiries := make([]bunq.RequestInquiry, 0, len(batch.Allocations))
	total := decimal.Zero

	for _, allocation := range batch.Allocations {
		if allocation.Destination.Type == bunq.PointerTypeEmail && !split.ValidEmail(allocation.Destination.Value) {
			return fmt.Errorf("invalid email destination %q", allocation.Destination.Value)
		}

		total = total.Add(allocation.Amount)
		inquiries = append(inquiries, bunq.RequestInquiry{
			AmountInquired:    bunq.NewAmount(allocation.Amount, batch.Currency),
			CounterpartyAlias: allocation.Destination,
			Description:       batch.Description,
			AllowBunqme:       true,
		})
	}

	totalAmount := bunq.NewAmount(total.Round(2), batch.Currency)

	var lastErr error
	for attempt := 1; attempt <= e.policy.MaxAttempts; attempt++ {
		lastErr = e.svc.CreateRequestBatch(ctx, e.accountID, inquiries, totalAmount, batch.SourceEventID)
		if lastErr == nil {
			return nil
		}
		if !bunq.IsTransient(lastErr) {
			return lastErr
		}
		if attempt == e.policy.MaxAttempts {
			break
		}

		slog.Warn("transient failure submitting request batch, retrying",
			"attempt", attempt,
			"interval", e.policy.Interval,
			"error", lastErr,
		)

		select {
		case <-time.After(e.policy.Interval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("giving up after %d attempts: %w", e.policy.MaxAttempts, lastErr)
}
