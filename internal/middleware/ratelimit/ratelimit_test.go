package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"saasreports/internal/clock"
)

func newTestLimiter(t *testing.T, perMinute int) (*Limiter, *clock.Fixed) {
	t.Helper()
	clk := clock.NewFixed(time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC))
	rl := NewLimiter(Config{RequestsPerMinute: perMinute, CleanupInterval: time.Hour, Clock: clk})
	t.Cleanup(rl.Stop)
	return rl, clk
}

func TestLimiter_Allow(t *testing.T) {
	rl, clk := newTestLimiter(t, 3)

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("fourth request should be rejected")
	}
	if !rl.Allow("10.0.0.2") {
		t.Fatal("other client should not share the budget")
	}

	clk.Advance(time.Minute)
	if !rl.Allow("10.0.0.1") {
		t.Fatal("window should reset after a minute")
	}

	if m := rl.GetMetrics(); m.Rejected != 1 || m.ClientCount != 2 {
		t.Fatalf("GetMetrics() = %+v", m)
	}
}

func TestLimiter_RetryAfter(t *testing.T) {
	rl, clk := newTestLimiter(t, 1)
	if d := rl.RetryAfter("unknown"); d != 0 {
		t.Fatalf("RetryAfter(unknown) = %v", d)
	}
	rl.Allow("a")
	clk.Advance(20 * time.Second)
	if d := rl.RetryAfter("a"); d != 40*time.Second {
		t.Fatalf("RetryAfter = %v, want 40s", d)
	}
}

func TestLimiter_CleanupStaleEntries(t *testing.T) {
	rl, clk := newTestLimiter(t, 5)
	rl.Allow("a")
	clk.Advance(11 * time.Minute)
	rl.Allow("b")

	if removed := rl.cleanupStaleEntries(); removed != 1 {
		t.Fatalf("cleanupStaleEntries() = %d, want 1", removed)
	}
	if rl.ActiveClients() != 1 {
		t.Fatalf("ActiveClients() = %d, want 1", rl.ActiveClients())
	}
}

func TestLimiter_Middleware(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	h := rl.Middleware(func(*http.Request) string { return "client" }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/invoices-pdf", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("first request status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/invoices-pdf", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("Retry-After = %q, want 60", rec.Header().Get("Retry-After"))
	}
}

func TestLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewLimiter(Config{})
	rl.Stop()
	rl.Stop()
}
