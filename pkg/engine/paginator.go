package engine

import (
	"context"
	"fmt"

	"github.com/mvankampen/bunqsplit/pkg/bunq"
)

// LedgerService is the slice of the bunq API the engine depends on.
// *bunq.Client implements it.
type LedgerService interface {
	ListEvents(ctx context.Context, accountID int64, olderID *int64, pageSize int) (bunq.Page, error)
	GetPayment(ctx context.Context, accountID, paymentID int64) (bunq.Payment, error)
	CreateRequestBatch(ctx context.Context, accountID int64, inquiries []bunq.RequestInquiry, total bunq.Amount, eventID *int64) error
}

// Paginator walks an account's event feed one page at a time, newest
// first. It holds at most one page cursor; exhaustion is a normal
// terminal state, not an error.
type Paginator struct {
	svc       LedgerService
	accountID int64
	pageSize  int

	older     *int64
	exhausted bool
}

// NewPaginator creates a paginator over the given account's feed.
func NewPaginator(svc LedgerService, accountID int64, pageSize int) *Paginator {
	return &Paginator{
		svc:       svc,
		accountID: accountID,
		pageSize:  pageSize,
	}
}

// Next fetches the next older page. ok is false once the feed is
// exhausted.
func (p *Paginator) Next(ctx context.Context) (page bunq.Page, ok bool, err error) {
	if p.exhausted {
		return bunq.Page{}, false, nil
	}

	page, err = p.svc.ListEvents(ctx, p.accountID, p.older, p.pageSize)
	if err != nil {
		return bunq.Page{}, false, fmt.Errorf("failed to list events: %w", err)
	}

	p.older = page.OlderID
	if page.OlderID == nil || len(page.Events) == 0 {
		p.exhausted = true
	}

	if len(page.Events) == 0 {
		return bunq.Page{}, false, nil
	}

	return page, true, nil
}
