// Package engine implements the reconciliation walk: paginated event
// scanning, transaction classification, amount allocation and batched
// request emission.
package engine

import "github.com/mvankampen/bunqsplit/pkg/bunq"

// Classification is the outcome of classifying one payment against the
// filter criteria.
type Classification int

const (
	// Eligible payments still need a split request.
	Eligible Classification = iota
	// AlreadySplit payments carry a split back-reference.
	AlreadySplit
	// Excluded payments fail the include/exclude counterparty filter.
	Excluded
	// NotADebit covers credits and non-payment sub-types.
	NotADebit
)

// String returns the classification name.
func (c Classification) String() string {
	switch c {
	case Eligible:
		return "eligible"
	case AlreadySplit:
		return "already_split"
	case Excluded:
		return "excluded"
	case NotADebit:
		return "not_a_debit"
	default:
		return "unknown"
	}
}

// Criteria holds the counterparty filter sets. Exclude always wins; an
// empty include set means no include restriction.
type Criteria struct {
	Includes map[string]struct{}
	Excludes map[string]struct{}
}

// NewCriteria builds Criteria from include and exclude key lists.
func NewCriteria(includes, excludes []string) Criteria {
	c := Criteria{
		Includes: make(map[string]struct{}, len(includes)),
		Excludes: make(map[string]struct{}, len(excludes)),
	}
	for _, key := range includes {
		c.Includes[key] = struct{}{}
	}
	for _, key := range excludes {
		c.Excludes[key] = struct{}{}
	}
	return c
}

// Classify determines whether a payment still needs a split request.
// It is a pure function of (payment, criteria): classifying the same
// payment twice always yields the same result.
func Classify(payment bunq.Payment, criteria Criteria) Classification {
	if payment.SubType != bunq.SubTypePayment || !payment.Amount.Value.IsNegative() {
		return NotADebit
	}

	counterparty := payment.CounterpartyAlias.LabelMonetaryAccount.IBAN
	if _, ok := criteria.Excludes[counterparty]; ok {
		return Excluded
	}
	if len(criteria.Includes) > 0 {
		if _, ok := criteria.Includes[counterparty]; !ok {
			return Excluded
		}
	}

	if payment.Split() {
		return AlreadySplit
	}

	return Eligible
}
