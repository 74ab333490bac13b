// Package bunq provides a client for the bunq public API, covering the
// endpoints needed to scan payments and create payment requests.
package bunq

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Pointer types accepted by the API for counterparty aliases.
const (
	PointerTypeEmail = "EMAIL"
	PointerTypeIBAN  = "IBAN"
	PointerTypePhone = "PHONE_NUMBER"
)

// SubTypePayment is the payment sub-type of a regular outgoing or
// incoming payment, as opposed to e.g. bunq.me or card reversals.
const SubTypePayment = "PAYMENT"

// timeLayout is the timestamp format used by the bunq API.
const timeLayout = "2006-01-02 15:04:05.000000"

// Time wraps time.Time to handle the bunq API timestamp format.
type Time struct {
	time.Time
}

// UnmarshalJSON parses a bunq API timestamp.
func (t *Time) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}

	parsed, err := time.Parse(timeLayout, s)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", s, err)
	}

	t.Time = parsed
	return nil
}

// MarshalJSON formats the timestamp the way the API expects it.
func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format(timeLayout))
}

// Amount represents a monetary value with an ISO 4217 currency code.
// The API transmits the value as a string with two decimal places.
type Amount struct {
	Value    decimal.Decimal
	Currency string
}

// NewAmount creates an Amount from a decimal value and currency code.
func NewAmount(value decimal.Decimal, currency string) Amount {
	return Amount{Value: value, Currency: currency}
}

type amountWire struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// MarshalJSON encodes the amount with the fixed two-decimal string value
// required by the API.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(amountWire{
		Value:    a.Value.StringFixed(2),
		Currency: a.Currency,
	})
}

// UnmarshalJSON decodes an API amount.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var wire amountWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	value, err := decimal.NewFromString(wire.Value)
	if err != nil {
		return fmt.Errorf("invalid amount value %q: %w", wire.Value, err)
	}

	a.Value = value
	a.Currency = wire.Currency
	return nil
}

// Pointer identifies a counterparty by email address, IBAN or phone
// number. Name is required for IBAN pointers.
type Pointer struct {
	Type  string `json:"type"`
	Value string `json:"value"`
	Name  string `json:"name,omitempty"`
}

// LabelMonetaryAccount describes the counterparty account of a payment.
type LabelMonetaryAccount struct {
	IBAN        string `json:"iban"`
	DisplayName string `json:"display_name"`
}

// CounterpartyAlias wraps the counterparty label of a payment.
type CounterpartyAlias struct {
	LabelMonetaryAccount LabelMonetaryAccount `json:"label_monetary_account"`
}

// RequestReference links a payment to the request inquiry (batch) that
// was created to split it.
type RequestReference struct {
	Type string `json:"type"`
	ID   int64  `json:"id"`
}

// Payment represents a single money movement on a monetary account.
// Payments are created and owned by the remote ledger; this client only
// reads them.
type Payment struct {
	ID                           int64              `json:"id"`
	MonetaryAccountID            int64              `json:"monetary_account_id"`
	Amount                       Amount             `json:"amount"`
	CounterpartyAlias            CounterpartyAlias  `json:"counterparty_alias"`
	Description                  string             `json:"description"`
	Created                      Time               `json:"created"`
	SubType                      string             `json:"sub_type"`
	RequestReferenceSplitTheBill []RequestReference `json:"request_reference_split_the_bill"`
}

// Split reports whether the payment is already linked to a split
// request batch.
func (p Payment) Split() bool {
	return len(p.RequestReferenceSplitTheBill) > 0
}

// Event is one entry in the account event feed. Payment is nil for
// non-payment events (card events, request responses, and so on).
//
// The embedded payment from the feed omits fields; use
// Client.GetPayment to fetch the complete record.
type Event struct {
	ID      int64
	Created Time
	Payment *Payment
}

// Page is one batch of events plus the cursor for the next older page.
// A nil OlderID means the feed is exhausted.
type Page struct {
	Events  []Event
	OlderID *int64
}

// MonetaryAccount is a bank account known to the API, in any of its
// variants (bank, joint, savings, light).
type MonetaryAccount struct {
	ID      int64     `json:"id"`
	Status  string    `json:"status"`
	Balance Amount    `json:"balance"`
	Alias   []Pointer `json:"alias"`
}

// RequestInquiry is a single payment request inside a batch.
type RequestInquiry struct {
	AmountInquired    Amount  `json:"amount_inquired"`
	CounterpartyAlias Pointer `json:"counterparty_alias"`
	Description       string  `json:"description"`
	AllowBunqme       bool    `json:"allow_bunqme"`
}
