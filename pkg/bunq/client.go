package bunq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// Environment base URLs.
const (
	ProductionURL = "https://api.bunq.com"
	SandboxURL    = "https://public-api.sandbox.bunq.com"
)

// The API throttles at roughly 3 requests per 3 seconds per endpoint.
const (
	rateInterval = time.Second
	rateBurst    = 3
)

// ClientConfig represents the configuration for the bunq API client.
type ClientConfig struct {
	APIURL  string
	APIKey  string
	Timeout time.Duration // Default: 30 seconds
}

// Client is a bunq API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
}

// NewClient creates a new bunq API client.
func NewClient(config ClientConfig) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: config.APIURL,
		apiKey:  config.APIKey,
		limiter: rate.NewLimiter(rate.Every(rateInterval), rateBurst),
	}
}

// ListMonetaryAccounts lists the monetary accounts of the API user.
func (c *Client) ListMonetaryAccounts(ctx context.Context, pageSize int) ([]MonetaryAccount, error) {
	query := url.Values{}
	query.Set("count", strconv.Itoa(pageSize))

	body, err := c.get(ctx, "/v1/monetary-account", query)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Response []map[string]json.RawMessage `json:"Response"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	// Each response item is keyed by its variant (MonetaryAccountBank,
	// MonetaryAccountJoint, ...); the fields we need are shared.
	var accounts []MonetaryAccount
	for _, item := range resp.Response {
		for _, raw := range item {
			var account MonetaryAccount
			if err := json.Unmarshal(raw, &account); err != nil {
				return nil, fmt.Errorf("failed to decode monetary account: %w", err)
			}
			accounts = append(accounts, account)
		}
	}

	return accounts, nil
}

// ResolveAccount resolves an alias (for example an IBAN) to a monetary
// account. Exactly one account must carry the alias.
func (c *Client) ResolveAccount(ctx context.Context, aliasType, value string) (MonetaryAccount, error) {
	accounts, err := c.ListMonetaryAccounts(ctx, 25)
	if err != nil {
		return MonetaryAccount{}, fmt.Errorf("failed to list monetary accounts: %w", err)
	}

	var matches []MonetaryAccount
	for _, account := range accounts {
		for _, alias := range account.Alias {
			if alias.Type == aliasType && alias.Value == value {
				matches = append(matches, account)
				break
			}
		}
	}

	switch len(matches) {
	case 0:
		return MonetaryAccount{}, ErrAccountNotFound
	case 1:
		return matches[0], nil
	default:
		return MonetaryAccount{}, ErrAmbiguousAccount
	}
}

// ListEvents fetches one page of the event feed for an account, newest
// first. Pass the OlderID of the previous page to continue the walk; a
// nil OlderID on the returned page means the feed is exhausted.
func (c *Client) ListEvents(ctx context.Context, accountID int64, olderID *int64, pageSize int) (Page, error) {
	query := url.Values{}
	query.Set("monetary_account_id", strconv.FormatInt(accountID, 10))
	query.Set("display_user_event", "false")
	query.Set("count", strconv.Itoa(pageSize))
	if olderID != nil {
		query.Set("older_id", strconv.FormatInt(*olderID, 10))
	}

	body, err := c.get(ctx, "/v1/event", query)
	if err != nil {
		return Page{}, err
	}

	var resp struct {
		Response []struct {
			Event *struct {
				ID      int64 `json:"id"`
				Created Time  `json:"created"`
				Object  struct {
					Payment *Payment `json:"Payment"`
				} `json:"object"`
			} `json:"Event"`
		} `json:"Response"`
		Pagination *struct {
			OlderURL *string `json:"older_url"`
		} `json:"Pagination"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return Page{}, fmt.Errorf("failed to decode response: %w", err)
	}

	page := Page{}
	for _, item := range resp.Response {
		if item.Event == nil {
			continue
		}
		page.Events = append(page.Events, Event{
			ID:      item.Event.ID,
			Created: item.Event.Created,
			Payment: item.Event.Object.Payment,
		})
	}

	if resp.Pagination != nil && resp.Pagination.OlderURL != nil {
		older, err := parseOlderID(*resp.Pagination.OlderURL)
		if err != nil {
			return Page{}, err
		}
		page.OlderID = older
	}

	return page, nil
}

// GetPayment fetches the complete payment record by id. The event feed
// embeds an incomplete payment payload, so callers that need the
// counterparty or split reference must fetch the full record.
func (c *Client) GetPayment(ctx context.Context, accountID, paymentID int64) (Payment, error) {
	path := fmt.Sprintf("/v1/monetary-account/%d/payment/%d", accountID, paymentID)

	body, err := c.get(ctx, path, nil)
	if err != nil {
		return Payment{}, err
	}

	var resp struct {
		Response []struct {
			Payment *Payment `json:"Payment"`
		} `json:"Response"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return Payment{}, fmt.Errorf("failed to decode response: %w", err)
	}

	for _, item := range resp.Response {
		if item.Payment != nil {
			return *item.Payment, nil
		}
	}

	return Payment{}, fmt.Errorf("payment %d not found in response", paymentID)
}

// CreateRequestBatch creates a batch of payment requests on the given
// account. eventID, when non-nil, links the batch to the source payment
// event so the ledger marks that payment as split.
func (c *Client) CreateRequestBatch(ctx context.Context, accountID int64, inquiries []RequestInquiry, total Amount, eventID *int64) error {
	path := fmt.Sprintf("/v1/monetary-account/%d/request-inquiry-batch", accountID)

	payload := struct {
		RequestInquiries    []RequestInquiry `json:"request_inquiries"`
		TotalAmountInquired Amount           `json:"total_amount_inquired"`
		EventID             *int64           `json:"event_id,omitempty"`
	}{
		RequestInquiries:    inquiries,
		TotalAmountInquired: total,
		EventID:             eventID,
	}

	_, err := c.post(ctx, path, payload)
	return err
}

// CreatePayment creates a single outgoing payment.
func (c *Client) CreatePayment(ctx context.Context, accountID int64, amount Amount, destination Pointer, description string) error {
	path := fmt.Sprintf("/v1/monetary-account/%d/payment", accountID)

	payload := struct {
		Amount            Amount  `json:"amount"`
		CounterpartyAlias Pointer `json:"counterparty_alias"`
		Description       string  `json:"description"`
	}{
		Amount:            amount,
		CounterpartyAlias: destination,
		Description:       description,
	}

	_, err := c.post(ctx, path, payload)
	return err
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	return c.do(req)
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}

	req.Header.Set("X-Bunq-Client-Authentication", c.apiKey)
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseError(resp.StatusCode, body)
	}

	return body, nil
}

// parseError parses an error response from the bunq API.
func parseError(statusCode int, body []byte) error {
	var errResp struct {
		Error []struct {
			Description string `json:"error_description"`
		} `json:"Error"`
	}

	apiErr := &APIError{StatusCode: statusCode}
	if err := json.Unmarshal(body, &errResp); err == nil {
		for _, e := range errResp.Error {
			if e.Description != "" {
				apiErr.Messages = append(apiErr.Messages, e.Description)
			}
		}
	}

	return apiErr
}

// parseOlderID extracts the older_id cursor from a pagination URL.
func parseOlderID(olderURL string) (*int64, error) {
	parsed, err := url.Parse(olderURL)
	if err != nil {
		return nil, fmt.Errorf("invalid pagination URL %q: %w", olderURL, err)
	}

	raw := parsed.Query().Get("older_id")
	if raw == "" {
		return nil, nil
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid older_id %q: %w", raw, err)
	}

	return &id, nil
}
