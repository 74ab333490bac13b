// Package split computes per-payee allocations for payment requests:
// destination resolution, share parsing and amount allocation.
package split

import (
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"regexp"
	"strings"

	"github.com/mvankampen/bunqsplit/pkg/bunq"
)

// ErrUnresolvableDestination is returned when a destination key is not
// an email address, an IBAN or a phone number.
var ErrUnresolvableDestination = errors.New("destination is not an email address, IBAN or phone number")

var phonePattern = regexp.MustCompile(`^\+?[0-9]{6,15}$`)

// ParsePointer resolves a destination key into a counterparty pointer.
// The key is classified in order: email address, IBAN (with a display
// name as a second comma-joined field), phone number.
//
//	alice@example.com
//	NL91ABNA0417164300,Jane Doe
//	+31612345678
func ParsePointer(key string) (bunq.Pointer, error) {
	fields := splitCommaSeparated(key)
	if len(fields) == 0 || fields[0] == "" {
		return bunq.Pointer{}, ErrUnresolvableDestination
	}
	value := fields[0]

	if ValidEmail(value) {
		return bunq.Pointer{Type: bunq.PointerTypeEmail, Value: value}, nil
	}

	if ValidIBAN(value) {
		if len(fields) < 2 || fields[1] == "" {
			return bunq.Pointer{}, fmt.Errorf("IBAN destination %q requires a display name (use \"IBAN,Name\")", value)
		}
		return bunq.Pointer{
			Type:  bunq.PointerTypeIBAN,
			Value: strings.ToUpper(value),
			Name:  strings.Join(fields[1:], ","),
		}, nil
	}

	if phonePattern.MatchString(value) {
		return bunq.Pointer{Type: bunq.PointerTypePhone, Value: value}, nil
	}

	return bunq.Pointer{}, fmt.Errorf("%w: %q", ErrUnresolvableDestination, key)
}

// ValidEmail reports whether value is a syntactically valid bare email
// address.
func ValidEmail(value string) bool {
	addr, err := mail.ParseAddress(value)
	if err != nil {
		return false
	}
	// Reject display-name forms such as "Jane <jane@example.com>".
	return addr.Address == value
}

// ValidIBAN reports whether value passes the ISO 13616 mod-97 check.
func ValidIBAN(value string) bool {
	iban := strings.ToUpper(strings.ReplaceAll(value, " ", ""))
	if len(iban) < 15 || len(iban) > 34 {
		return false
	}

	for i := 0; i < 2; i++ {
		if iban[i] < 'A' || iban[i] > 'Z' {
			return false
		}
	}

	// Move the country code and check digits to the end, then map
	// letters to numbers (A=10 .. Z=35).
	rearranged := iban[4:] + iban[:4]
	var digits strings.Builder
	for _, r := range rearranged {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			fmt.Fprintf(&digits, "%d", r-'A'+10)
		default:
			return false
		}
	}

	n, ok := new(big.Int).SetString(digits.String(), 10)
	if !ok {
		return false
	}

	return new(big.Int).Mod(n, big.NewInt(97)).Int64() == 1
}

// splitCommaSeparated splits a comma-separated string, trimming
// whitespace around each item.
func splitCommaSeparated(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	return parts
}

// SplitCommaSeparated splits a comma-separated flag value into a list,
// dropping empty items.
func SplitCommaSeparated(s string) []string {
	var out []string
	for _, part := range splitCommaSeparated(s) {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
