package split

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mvankampen/bunqsplit/pkg/bunq"
)

func email(t *testing.T, addr string) bunq.Pointer {
	t.Helper()
	pointer, err := ParsePointer(addr)
	if err != nil {
		t.Fatalf("ParsePointer(%q): %v", addr, err)
	}
	return pointer
}

func entry(t *testing.T, addr, share string) RuleEntry {
	t.Helper()
	s, err := ParseShare(share)
	if err != nil {
		t.Fatalf("ParseShare(%q): %v", share, err)
	}
	return RuleEntry{Destination: email(t, addr), Share: s}
}

func TestAllocateFixedSplit(t *testing.T) {
	allocator := Allocator{}
	rule := []RuleEntry{
		entry(t, "a@example.com", "50%"),
		entry(t, "b@example.com", "50%"),
	}

	result, err := allocator.Allocate(decimal.RequireFromString("40.00"), rule)
	if err != nil {
		t.Fatalf("Allocate() returned error: %v", err)
	}

	for i, want := range []string{"20.00", "20.00"} {
		if got := result.Allocations[i].Amount.StringFixed(2); got != want {
			t.Errorf("allocation %d = %s, expected %s", i, got, want)
		}
	}
	if got := result.Total.StringFixed(2); got != "40.00" {
		t.Errorf("total = %s, expected 40.00", got)
	}
	if !result.Drift.IsZero() {
		t.Errorf("drift = %s, expected 0", result.Drift)
	}
}

func TestAllocateMixedShares(t *testing.T) {
	allocator := Allocator{}
	rule := []RuleEntry{
		entry(t, "a@example.com", "10.00"),
		entry(t, "b@example.com", "50%"),
	}

	result, err := allocator.Allocate(decimal.RequireFromString("33.33"), rule)
	if err != nil {
		t.Fatalf("Allocate() returned error: %v", err)
	}

	// 50% of 33.33 is 16.665: rounded half away from zero,
	// independently of the other share.
	for i, want := range []string{"10.00", "16.67"} {
		if got := result.Allocations[i].Amount.StringFixed(2); got != want {
			t.Errorf("allocation %d = %s, expected %s", i, got, want)
		}
	}
	if got := result.Drift.String(); got != "-0.005" {
		t.Errorf("drift = %s, expected -0.005", got)
	}
}

func TestAllocateDeterministic(t *testing.T) {
	allocator := Allocator{}
	rule := []RuleEntry{
		entry(t, "a@example.com", "33.33%"),
		entry(t, "b@example.com", "66.67%"),
	}
	total := decimal.RequireFromString("99.99")

	first, err := allocator.Allocate(total, rule)
	if err != nil {
		t.Fatalf("Allocate() returned error: %v", err)
	}
	second, err := allocator.Allocate(total, rule)
	if err != nil {
		t.Fatalf("Allocate() returned error: %v", err)
	}

	for i := range first.Allocations {
		a := first.Allocations[i].Amount.StringFixed(2)
		b := second.Allocations[i].Amount.StringFixed(2)
		if a != b {
			t.Errorf("allocation %d differs between runs: %s vs %s", i, a, b)
		}
	}
}

func TestAllocateRoundsHalfAwayFromZero(t *testing.T) {
	allocator := Allocator{}
	rule := []RuleEntry{entry(t, "a@example.com", "50%")}

	result, err := allocator.Allocate(decimal.RequireFromString("0.05"), rule)
	if err != nil {
		t.Fatalf("Allocate() returned error: %v", err)
	}

	if got := result.Allocations[0].Amount.StringFixed(2); got != "0.03" {
		t.Errorf("allocation = %s, expected 0.03", got)
	}
}

func TestAllocateAbsorbDrift(t *testing.T) {
	allocator := Allocator{AbsorbDrift: true}
	rule := []RuleEntry{
		entry(t, "a@example.com", "50%"),
		entry(t, "b@example.com", "50%"),
	}

	// 16.665 rounds to 16.67 twice, over-allocating one cent.
	result, err := allocator.Allocate(decimal.RequireFromString("33.33"), rule)
	if err != nil {
		t.Fatalf("Allocate() returned error: %v", err)
	}

	if got := result.Allocations[1].Amount.StringFixed(2); got != "16.66" {
		t.Errorf("last allocation = %s, expected 16.66", got)
	}
	if got := result.Total.StringFixed(2); got != "33.33" {
		t.Errorf("total = %s, expected 33.33", got)
	}
	if !result.Drift.IsZero() {
		t.Errorf("drift = %s, expected 0 after absorbing", result.Drift)
	}
}

func TestAllocateEnforceTotal(t *testing.T) {
	rule := []RuleEntry{
		entry(t, "a@example.com", "60%"),
		entry(t, "b@example.com", "60%"),
	}
	total := decimal.RequireFromString("10.00")

	// Over-allocation is accepted by default.
	if _, err := (Allocator{}).Allocate(total, rule); err != nil {
		t.Fatalf("permissive Allocate() returned error: %v", err)
	}

	_, err := (Allocator{EnforceTotal: true}).Allocate(total, rule)
	if !errors.Is(err, ErrInvalidShare) {
		t.Errorf("enforcing Allocate() error = %v, expected ErrInvalidShare", err)
	}
}

func TestAllocateEmptyRule(t *testing.T) {
	if _, err := (Allocator{}).Allocate(decimal.RequireFromString("10.00"), nil); err == nil {
		t.Error("expected error for empty rule")
	}
}

func TestParseShare(t *testing.T) {
	tests := []struct {
		token      string
		percentage bool
		wantErr    bool
	}{
		{"50%", true, false},
		{"12.5%", true, false},
		{"0%", true, false},
		{"100%", true, false},
		{"10.00", false, false},
		{"0", false, false},
		{"101%", false, true},
		{"-1%", false, true},
		{"-5.00", false, true},
		{"abc", false, true},
		{"%", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			share, err := ParseShare(tt.token)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidShare) {
					t.Errorf("ParseShare(%q) error = %v, expected ErrInvalidShare", tt.token, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseShare(%q) returned error: %v", tt.token, err)
			}
			if share.Percentage() != tt.percentage {
				t.Errorf("Percentage() = %v, expected %v", share.Percentage(), tt.percentage)
			}
		})
	}
}
