package split

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mvankampen/bunqsplit/pkg/bunq"
)

// RuleEntry pairs a payee destination with its share of the total.
type RuleEntry struct {
	Destination bunq.Pointer
	Share       Share
}

// Allocation is one payee's computed request amount.
type Allocation struct {
	Destination bunq.Pointer
	Amount      decimal.Decimal
}

// AllocationResult holds the per-payee allocations for one total.
//
// Total is the sum of the rounded allocations. Drift is the rounding
// drift: the sum of the exact (unrounded) allocations minus Total. It
// is reported, never silently reassigned, unless AbsorbDrift is set.
type AllocationResult struct {
	Allocations []Allocation
	Total       decimal.Decimal
	Drift       decimal.Decimal
}

// Allocator computes per-payee amounts for a split rule.
//
// Each share is rounded to the currency minor unit independently;
// AbsorbDrift adds the aggregate rounding drift to the last payee, and
// EnforceTotal rejects rules that allocate more than the total. Both
// default to off, matching the permissive behavior split rules have
// always had.
type Allocator struct {
	AbsorbDrift  bool
	EnforceTotal bool
}

// Allocate computes the request amount for every rule entry against
// the given (positive) total. Percentage shares derive from the total;
// absolute shares pass through, currency-rounded.
func (a Allocator) Allocate(total decimal.Decimal, rule []RuleEntry) (AllocationResult, error) {
	if total.IsNegative() {
		return AllocationResult{}, fmt.Errorf("total amount %s is negative", total)
	}
	if len(rule) == 0 {
		return AllocationResult{}, fmt.Errorf("split rule has no payees")
	}

	result := AllocationResult{
		Allocations: make([]Allocation, 0, len(rule)),
	}
	exact := decimal.Zero

	for _, entry := range rule {
		var raw decimal.Decimal
		switch {
		case entry.Share.percent != nil:
			raw = total.Mul(*entry.Share.percent).Div(hundred)
		case entry.Share.amount != nil:
			raw = *entry.Share.amount
		default:
			return AllocationResult{}, fmt.Errorf("%w: share for %s is empty", ErrInvalidShare, entry.Destination.Value)
		}

		// Round half away from zero to the currency minor unit.
		rounded := raw.Round(2)
		exact = exact.Add(raw)
		result.Total = result.Total.Add(rounded)
		result.Allocations = append(result.Allocations, Allocation{
			Destination: entry.Destination,
			Amount:      rounded,
		})
	}

	result.Drift = exact.Sub(result.Total)

	if a.EnforceTotal && result.Total.GreaterThan(total) {
		return AllocationResult{}, fmt.Errorf("%w: allocations %s exceed total %s",
			ErrInvalidShare, result.Total.StringFixed(2), total.StringFixed(2))
	}

	if a.AbsorbDrift && !result.Drift.IsZero() {
		last := len(result.Allocations) - 1
		absorbed := result.Allocations[last].Amount.Add(result.Drift.Round(2))
		result.Total = result.Total.Sub(result.Allocations[last].Amount).Add(absorbed)
		result.Allocations[last].Amount = absorbed
		result.Drift = decimal.Zero
	}

	return result, nil
}
