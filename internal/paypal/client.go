// Package paypal wraps the three payment operations this service needs:
// opening a checkout order, capturing it and refunding a capture. The
// client keeps one OAuth bearer token for the whole process and refreshes
// it lazily; concurrent refreshes are coalesced through singleflight.
// Remote failure detail is logged here and never leaks to callers, who
// only ever see ErrGateway.
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// SandboxBaseURL is the default API host used when no base URL is configured.
const SandboxBaseURL = "https://api-m.sandbox.paypal.com"

// ErrGateway is the single error surfaced for any malformed, failed or
// unexpected gateway response.
var ErrGateway = errors.New("payment gateway failure")

// CaptureStatus reflects the outcome of a capture attempt. A pending
// result is an expected state, not an error: callers poll again later.
type CaptureStatus int

const (
	CapturePending CaptureStatus = iota
	CaptureCompleted
)

// CaptureResult carries the capture id once the gateway reports the
// order as completed.
type CaptureResult struct {
	Status    CaptureStatus
	CaptureID string
}

// Config holds gateway credentials and the API host.
type Config struct {
	BaseURL  string // empty = sandbox
	ClientID string
	Secret   string
}

// Client performs payment operations against the PayPal REST API.
type Client struct {
	cfg        Config
	httpClient *http.Client

	mu       sync.Mutex
	token    string
	tokenExp time.Time
	sf       singleflight.Group
}

// NewClient builds a Client with a sane request timeout.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = SandboxBaseURL
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// accessToken returns the cached bearer token, fetching a new one when
// absent or expired. Concurrent callers share a single fetch.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.token != "" && time.Now().Before(c.tokenExp) {
		tok := c.token
		c.mu.Unlock()
		return tok, nil
	}
	c.mu.Unlock()

	v, err, _ := c.sf.Do("oauth", func() (any, error) {
		return c.fetchToken(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) fetchToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v1/oauth2/token",
		bytes.NewBufferString("grant_type=client_credentials"))
	if err != nil {
		return "", c.fail("oauth", err.Error())
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.Secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", c.fail("oauth", err.Error())
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", c.fail("oauth", fmt.Sprintf("status %d: %s", resp.StatusCode, body))
	}
	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil || tr.AccessToken == "" {
		return "", c.fail("oauth", "malformed token response")
	}

	c.mu.Lock()
	c.token = tr.AccessToken
	// Refresh slightly early so in-flight requests never carry a token
	// that expires mid-call.
	c.tokenExp = time.Now().Add(time.Duration(tr.ExpiresIn)*time.Second - 30*time.Second)
	c.mu.Unlock()
	return tr.AccessToken, nil
}

// post sends an authorized JSON request and returns status + raw body.
func (c *Client) post(ctx context.Context, path string, payload any, headers map[string]string) (int, []byte, error) {
	tok, err := c.accessToken(ctx)
	if err != nil {
		return 0, nil, err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, c.fail(path, err.Error())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return 0, nil, c.fail(path, err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, c.fail(path, err.Error())
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, body, nil
}

// CreateOrder opens a CAPTURE-intent order and returns its id. The
// amount is formatted to two decimal places as the API requires.
func (c *Client) CreateOrder(ctx context.Context, amount float64, currency string) (string, error) {
	payload := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"amount": map[string]string{
				"currency_code": currency,
				"value":         fmt.Sprintf("%.2f", amount),
			},
		}},
	}
	status, body, err := c.post(ctx, "/v2/checkout/orders", payload, map[string]string{
		"PayPal-Request-Id": uuid.NewString(),
	})
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", c.fail("create order", fmt.Sprintf("status %d: %s", status, body))
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.ID == "" {
		return "", c.fail("create order", "malformed order response")
	}
	return out.ID, nil
}

type captureResponse struct {
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID string `json:"id"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

// Capture attempts to finalize the order. A non-completed remote status
// (including the 4xx the API returns while the buyer has not approved
// the order yet) maps to CapturePending rather than an error.
func (c *Client) Capture(ctx context.Context, orderID string) (CaptureResult, error) {
	status, body, err := c.post(ctx, "/v2/checkout/orders/"+orderID+"/capture", map[string]any{}, nil)
	if err != nil {
		return CaptureResult{}, err
	}
	if status >= 400 {
		return CaptureResult{Status: CapturePending}, nil
	}
	var out captureResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return CaptureResult{}, c.fail("capture", "malformed capture response")
	}
	if out.Status != "COMPLETED" {
		return CaptureResult{Status: CapturePending}, nil
	}
	if len(out.PurchaseUnits) == 0 || len(out.PurchaseUnits[0].Payments.Captures) == 0 {
		return CaptureResult{Status: CapturePending}, nil
	}
	return CaptureResult{
		Status:    CaptureCompleted,
		CaptureID: out.PurchaseUnits[0].Payments.Captures[0].ID,
	}, nil
}

type refundResponse struct {
	Status  string `json:"status"`
	Details []struct {
		Issue string `json:"issue"`
	} `json:"details"`
}

// Refund reverses a captured payment. A capture that has already been
// fully refunded counts as success, making the operation idempotent.
func (c *Client) Refund(ctx context.Context, captureID string, amount float64, currency string) error {
	payload := map[string]any{
		"amount": map[string]string{
			"currency_code": currency,
			"value":         fmt.Sprintf("%.2f", amount),
		},
	}
	status, body, err := c.post(ctx, "/v2/payments/captures/"+captureID+"/refund", payload, nil)
	if err != nil {
		return err
	}
	var out refundResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return c.fail("refund", "malformed refund response")
	}
	if status >= 200 && status < 300 && out.Status == "COMPLETED" {
		return nil
	}
	for _, d := range out.Details {
		if d.Issue == "CAPTURE_FULLY_REFUNDED" {
			return nil
		}
	}
	return c.fail("refund", fmt.Sprintf("status %d: %s", status, body))
}

// fail logs the full failure detail and returns the generic gateway error.
func (c *Client) fail(op, detail string) error {
	log.Printf("paypal: %s failed: %s", op, detail)
	return fmt.Errorf("%s: %w", op, ErrGateway)
}
