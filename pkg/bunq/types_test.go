package bunq

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("invalid decimal %q: %v", s, err)
	}
	return d
}

func TestAmountMarshalsFixedTwoDecimals(t *testing.T) {
	amount := NewAmount(mustDecimal(t, "12.5"), "EUR")

	data, err := json.Marshal(amount)
	if err != nil {
		t.Fatalf("Marshal() returned error: %v", err)
	}

	want := `{"value":"12.50","currency":"EUR"}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, expected %s", data, want)
	}
}

func TestTimeParsesAPIFormat(t *testing.T) {
	var parsed Time
	if err := json.Unmarshal([]byte(`"2024-01-15 10:30:00.123456"`), &parsed); err != nil {
		t.Fatalf("Unmarshal() returned error: %v", err)
	}

	want := time.Date(2024, 1, 15, 10, 30, 0, 123456000, time.UTC)
	if !parsed.Equal(want) {
		t.Errorf("parsed = %v, expected %v", parsed.Time, want)
	}
}

func TestPaymentSplit(t *testing.T) {
	var p Payment
	if p.Split() {
		t.Error("payment without references should not be split")
	}

	p.RequestReferenceSplitTheBill = []RequestReference{{Type: "RequestInquiryBatch", ID: 1}}
	if !p.Split() {
		t.Error("payment with a reference should be split")
	}
}
