package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mvankampen/bunqsplit/pkg/bunq"
	"github.com/mvankampen/bunqsplit/pkg/split"
)

// Mode selects how the walk terminates.
type Mode int

const (
	// ModeBacklog scans until the first already-split payment: that
	// payment is the checkpoint a previous run left behind, so
	// everything older was already processed.
	ModeBacklog Mode = iota
	// ModePeriod scans a bounded time window. Already-split payments
	// are skipped but do not stop the walk, since a period may contain
	// payments split by unrelated earlier runs.
	ModePeriod
)

// Default page sizes per mode, within the service's cap.
const (
	BacklogPageSize = 50
	PeriodPageSize  = 200
)

// TerminationReason records why a walk stopped.
type TerminationReason int

const (
	// ReasonExhausted means the event feed ran out.
	ReasonExhausted TerminationReason = iota
	// ReasonAlreadySplitBoundary means a backlog walk reached its
	// checkpoint.
	ReasonAlreadySplitBoundary
	// ReasonTimeWindowBoundary means a period walk crossed the window's
	// lower bound.
	ReasonTimeWindowBoundary
	// ReasonAborted means the walk stopped on an error.
	ReasonAborted
)

// String returns the reason name.
func (r TerminationReason) String() string {
	switch r {
	case ReasonExhausted:
		return "exhausted"
	case ReasonAlreadySplitBoundary:
		return "already_split_boundary"
	case ReasonTimeWindowBoundary:
		return "time_window_boundary"
	case ReasonAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Window bounds a period walk. Start is the inclusive lower bound; the
// walk moves backward in time and stops when it crosses it. End, when
// set, is the exclusive upper bound; newer events are skipped.
type Window struct {
	Start time.Time
	End   time.Time
}

// Params configures one reconciliation walk.
type Params struct {
	AccountID int64
	Mode      Mode
	Criteria  Criteria
	Rule      []split.RuleEntry
	Window    Window
	Currency  string
	PageSize  int
	DryRun    bool
}

// Summary is the outcome of one walk.
type Summary struct {
	Pages               int
	Emitted             int
	SkippedExcluded     int
	SkippedAlreadySplit int
	SkippedNonDebit     int
	Reason              TerminationReason
}

// EmittedBatch describes one successfully submitted batch, for callers
// that record run history.
type EmittedBatch struct {
	EventID   int64
	PaymentID int64
	Total     decimal.Decimal
	Payees    int
}

// Runner drives one backward walk over an account's event feed per
// Run call: fetch, classify, allocate, emit, repeat. The walk is
// strictly sequential; emission order must follow ledger order for the
// backlog checkpoint rule to hold.
type Runner struct {
	svc       LedgerService
	allocator split.Allocator
	policy    RetryPolicy

	// OnEmitted, when set, is called after every confirmed batch
	// submission.
	OnEmitted func(EmittedBatch)
}

// NewRunner creates a Runner.
func NewRunner(svc LedgerService, allocator split.Allocator, policy RetryPolicy) *Runner {
	return &Runner{
		svc:       svc,
		allocator: allocator,
		policy:    policy,
	}
}

// batchDescription is the shared description attached to every request
// in a batch, identifying the source payment.
type batchDescription struct {
	ID          int64  `json:"id"`
	From        string `json:"from"`
	Description string `json:"description"`
	Created     string `json:"created"`
}

// Run executes one walk. A non-transient emit failure aborts the whole
// walk rather than skipping: a partial run must never look like a
// completed one to the next invocation.
func (r *Runner) Run(ctx context.Context, params Params) (Summary, error) {
	pageSize := params.PageSize
	if pageSize == 0 {
		if params.Mode == ModePeriod {
			pageSize = PeriodPageSize
		} else {
			pageSize = BacklogPageSize
		}
	}

	if params.Mode == ModePeriod && params.Window.Start.IsZero() {
		return Summary{Reason: ReasonAborted}, fmt.Errorf("period walk requires a window start")
	}

	paginator := NewPaginator(r.svc, params.AccountID, pageSize)
	emitter := NewEmitter(r.svc, params.AccountID, r.policy)
	summary := Summary{Reason: ReasonExhausted}

walk:
	for {
		page, ok, err := paginator.Next(ctx)
		if err != nil {
			summary.Reason = ReasonAborted
			return summary, err
		}
		if !ok {
			summary.Reason = ReasonExhausted
			break
		}
		summary.Pages++

		for _, event := range page.Events {
			if event.Payment == nil {
				continue
			}

			// The window check terminates the walk: events arrive
			// newest first, so everything after this one is older
			// still.
			if params.Mode == ModePeriod {
				if !params.Window.End.IsZero() && !event.Created.Before(params.Window.End) {
					continue
				}
				if event.Created.Before(params.Window.Start) {
					summary.Reason = ReasonTimeWindowBoundary
					break walk
				}
			}

			// The feed embeds an incomplete payment payload; fetch the
			// full record before classifying.
			payment, err := r.svc.GetPayment(ctx, params.AccountID, event.Payment.ID)
			if err != nil {
				summary.Reason = ReasonAborted
				return summary, fmt.Errorf("failed to fetch payment %d: %w", event.Payment.ID, err)
			}

			switch Classify(payment, params.Criteria) {
			case NotADebit:
				summary.SkippedNonDebit++
			case Excluded:
				summary.SkippedExcluded++
			case AlreadySplit:
				if params.Mode == ModeBacklog {
					slog.Debug("reached already-split checkpoint", "payment_id", payment.ID)
					summary.Reason = ReasonAlreadySplitBoundary
					break walk
				}
				summary.SkippedAlreadySplit++
			case Eligible:
				if err := r.process(ctx, emitter, params, event, payment); err != nil {
					summary.Reason = ReasonAborted
					return summary, err
				}
				summary.Emitted++
			}
		}
	}

	return summary, nil
}

// process allocates and emits the request batch for one eligible
// payment.
func (r *Runner) process(ctx context.Context, emitter *Emitter, params Params, event bunq.Event, payment bunq.Payment) error {
	total := payment.Amount.Value.Neg()

	result, err := r.allocator.Allocate(total, params.Rule)
	if err != nil {
		return fmt.Errorf("failed to allocate payment %d: %w", payment.ID, err)
	}

	if !result.Drift.IsZero() {
		slog.Debug("rounding drift in allocation",
			"payment_id", payment.ID,
			"drift", result.Drift.String(),
		)
	}

	description, err := json.Marshal(batchDescription{
		ID:          payment.ID,
		From:        payment.CounterpartyAlias.LabelMonetaryAccount.DisplayName,
		Description: payment.Description,
		Created:     payment.Created.Format(time.DateTime),
	})
	if err != nil {
		return fmt.Errorf("failed to encode batch description: %w", err)
	}

	eventID := event.ID
	batch := Batch{
		Allocations:   result.Allocations,
		Description:   string(description),
		Currency:      params.Currency,
		SourceEventID: &eventID,
	}

	if params.DryRun {
		slog.Info("dry run: would create request batch",
			"payment_id", payment.ID,
			"event_id", event.ID,
			"payees", len(result.Allocations),
			"total", result.Total.StringFixed(2),
		)
		return nil
	}

	if err := emitter.Emit(ctx, batch); err != nil {
		return fmt.Errorf("failed to emit batch for payment %d: %w", payment.ID, err)
	}

	slog.Info("created request batch",
		"payment_id", payment.ID,
		"event_id", event.ID,
		"payees", len(result.Allocations),
		"total", result.Total.StringFixed(2),
	)

	if r.OnEmitted != nil {
		r.OnEmitted(EmittedBatch{
			EventID:   event.ID,
			PaymentID: payment.ID,
			Total:     result.Total,
			Payees:    len(result.Allocations),
		})
	}

	return nil
}
