package split

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidShare is returned for negative absolute shares and
// percentages outside [0, 100].
var ErrInvalidShare = errors.New("invalid share")

var hundred = decimal.NewFromInt(100)

// Share is one payee's portion of a split: either a percentage of the
// total (fractions allowed) or an absolute currency amount.
type Share struct {
	percent *decimal.Decimal
	amount  *decimal.Decimal
}

// ParseShare parses a share token. A trailing percent sign marks a
// percentage ("50%", "12.5%"); anything else is an absolute amount
// ("10.00").
func ParseShare(token string) (Share, error) {
	token = strings.TrimSpace(token)

	if stripped, ok := strings.CutSuffix(token, "%"); ok {
		percent, err := decimal.NewFromString(strings.TrimSpace(stripped))
		if err != nil {
			return Share{}, fmt.Errorf("%w: %q is not a percentage", ErrInvalidShare, token)
		}
		return PercentShare(percent)
	}

	amount, err := decimal.NewFromString(token)
	if err != nil {
		return Share{}, fmt.Errorf("%w: %q is not an amount", ErrInvalidShare, token)
	}
	return AmountShare(amount)
}

// PercentShare creates a percentage share. The percentage must be
// within [0, 100].
func PercentShare(percent decimal.Decimal) (Share, error) {
	if percent.IsNegative() || percent.GreaterThan(hundred) {
		return Share{}, fmt.Errorf("%w: percentage %s outside [0, 100]", ErrInvalidShare, percent)
	}
	return Share{percent: &percent}, nil
}

// AmountShare creates an absolute share. The amount must not be
// negative.
func AmountShare(amount decimal.Decimal) (Share, error) {
	if amount.IsNegative() {
		return Share{}, fmt.Errorf("%w: amount %s is negative", ErrInvalidShare, amount)
	}
	return Share{amount: &amount}, nil
}

// Percentage reports whether the share is percentage-based.
func (s Share) Percentage() bool {
	return s.percent != nil
}

// String renders the share the way it was specified.
func (s Share) String() string {
	if s.percent != nil {
		return s.percent.String() + "%"
	}
	if s.amount != nil {
		return s.amount.StringFixed(2)
	}
	return "0"
}
