package paypal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeGateway is a minimal in-process PayPal double. Orders marked as
// paid capture successfully; everything else stays pending.
type fakeGateway struct {
	mu         sync.Mutex
	authCalls  int32
	orders     map[string]bool // order id -> paid
	refunded   map[string]bool
	nextID     int
	tokenTTL   int64
	authDelay  time.Duration
	failRefund bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		orders:   map[string]bool{},
		refunded: map[string]bool{},
		tokenTTL: 3600,
	}
}

func (g *fakeGateway) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		if g.authDelay > 0 {
			time.Sleep(g.authDelay)
		}
		if user, pass, ok := r.BasicAuth(); !ok || user != "client-id" || pass != "client-secret" {
			t.Errorf("token fetch missing basic auth: %q %q", user, pass)
		}
		atomic.AddInt32(&g.authCalls, 1)
		json.NewEncoder(w).Encode(map[string]any{"access_token": "fake-token", "expires_in": g.tokenTTL})
	})
	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fake-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Header.Get("PayPal-Request-Id") == "" {
			t.Error("order creation missing idempotency header")
		}
		var body struct {
			Intent        string `json:"intent"`
			PurchaseUnits []struct {
				Amount struct {
					CurrencyCode string `json:"currency_code"`
					Value        string `json:"value"`
				} `json:"amount"`
			} `json:"purchase_units"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("order body: %v", err)
		}
		if body.Intent != "CAPTURE" {
			t.Errorf("intent = %q, want CAPTURE", body.Intent)
		}
		if v := body.PurchaseUnits[0].Amount.Value; strings.Count(v, ".") != 1 || len(v)-strings.Index(v, ".") != 3 {
			t.Errorf("amount %q is not formatted to 2 decimal places", v)
		}
		g.mu.Lock()
		g.nextID++
		id := fmt.Sprintf("ORDER-%d", g.nextID)
		g.orders[id] = false
		g.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"id": id, "status": "CREATED"})
	})
	mux.HandleFunc("/v2/checkout/orders/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v2/checkout/orders/"), "/capture")
		g.mu.Lock()
		paid, known := g.orders[id]
		g.mu.Unlock()
		if !known {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if !paid {
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]any{"details": []map[string]string{{"issue": "ORDER_NOT_APPROVED"}}})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status": "COMPLETED",
			"purchase_units": []map[string]any{{
				"payments": map[string]any{
					"captures": []map[string]string{{"id": "CAP-" + id}},
				},
			}},
		})
	})
	mux.HandleFunc("/v2/payments/captures/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v2/payments/captures/"), "/refund")
		if g.failRefund {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"status": "FAILED"})
			return
		}
		g.mu.Lock()
		already := g.refunded[id]
		g.refunded[id] = true
		g.mu.Unlock()
		if already {
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]any{"details": []map[string]string{{"issue": "CAPTURE_FULLY_REFUNDED"}}})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "COMPLETED"})
	})
	return mux
}

func newTestClient(t *testing.T, g *fakeGateway) *Client {
	t.Helper()
	srv := httptest.NewServer(g.handler(t))
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, ClientID: "client-id", Secret: "client-secret"})
}

func TestOrderCaptureRefundFlow(t *testing.T) {
	g := newFakeGateway()
	c := newTestClient(t, g)
	ctx := context.Background()

	orderID, err := c.CreateOrder(ctx, 861, "USD")
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	// Not paid yet: capture reports pending, not an error.
	res, err := c.Capture(ctx, orderID)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if res.Status != CapturePending {
		t.Fatalf("expected pending capture, got %+v", res)
	}

	g.mu.Lock()
	g.orders[orderID] = true
	g.mu.Unlock()

	res, err = c.Capture(ctx, orderID)
	if err != nil {
		t.Fatalf("capture after payment: %v", err)
	}
	if res.Status != CaptureCompleted || res.CaptureID != "CAP-"+orderID {
		t.Fatalf("unexpected capture result: %+v", res)
	}

	if err := c.Refund(ctx, res.CaptureID, 861, "USD"); err != nil {
		t.Fatalf("refund: %v", err)
	}
	// Second refund of the same capture is already fully refunded and
	// must still count as success.
	if err := c.Refund(ctx, res.CaptureID, 861, "USD"); err != nil {
		t.Fatalf("idempotent refund: %v", err)
	}
}

func TestTokenCachedAcrossCalls(t *testing.T) {
	g := newFakeGateway()
	c := newTestClient(t, g)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := c.CreateOrder(ctx, 10, "USD"); err != nil {
			t.Fatalf("create order %d: %v", i, err)
		}
	}
	if n := atomic.LoadInt32(&g.authCalls); n != 1 {
		t.Fatalf("expected 1 token fetch, got %d", n)
	}
}

func TestTokenRefreshedAfterExpiry(t *testing.T) {
	g := newFakeGateway()
	g.tokenTTL = 1 // expires immediately after the safety margin
	c := newTestClient(t, g)
	ctx := context.Background()

	if _, err := c.CreateOrder(ctx, 10, "USD"); err != nil {
		t.Fatalf("create order: %v", err)
	}
	if _, err := c.CreateOrder(ctx, 10, "USD"); err != nil {
		t.Fatalf("create order: %v", err)
	}
	if n := atomic.LoadInt32(&g.authCalls); n != 2 {
		t.Fatalf("expected a second token fetch after expiry, got %d", n)
	}
}

func TestConcurrentTokenRefreshCoalesced(t *testing.T) {
	g := newFakeGateway()
	g.authDelay = 50 * time.Millisecond
	c := newTestClient(t, g)

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.CreateOrder(context.Background(), 10, "USD")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent create order: %v", err)
		}
	}
	if n := atomic.LoadInt32(&g.authCalls); n != 1 {
		t.Fatalf("expected coalesced token fetch, got %d", n)
	}
}

func TestRefundDeclinedIsGatewayError(t *testing.T) {
	g := newFakeGateway()
	g.failRefund = true
	c := newTestClient(t, g)

	err := c.Refund(context.Background(), "CAP-X", 10, "USD")
	if !errors.Is(err, ErrGateway) {
		t.Fatalf("expected ErrGateway, got %v", err)
	}
}

func TestMalformedResponsesNormalized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/oauth2/token" {
			json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
			return
		}
		w.Write([]byte("this is not json"))
	}))
	defer srv.Close()
	c := NewClient(Config{BaseURL: srv.URL, ClientID: "id", Secret: "sec"})

	if _, err := c.CreateOrder(context.Background(), 10, "USD"); !errors.Is(err, ErrGateway) {
		t.Fatalf("create order: expected ErrGateway, got %v", err)
	}
	if _, err := c.Capture(context.Background(), "ORDER-1"); !errors.Is(err, ErrGateway) {
		t.Fatalf("capture: expected ErrGateway, got %v", err)
	}
	if err := c.Refund(context.Background(), "CAP-1", 1, "USD"); !errors.Is(err, ErrGateway) {
		t.Fatalf("refund: expected ErrGateway, got %v", err)
	}
}
