package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRateLimitByClientIP(t *testing.T) {
	limited := RateLimit(1, time.Minute)(okHandler())

	first := httptest.NewRequest(http.MethodPost, "/api/v1/payroll/calculate", nil)
	first.RemoteAddr = "203.0.113.10:4444"
	firstRec := httptest.NewRecorder()
	limited.ServeHTTP(firstRec, first)
	if firstRec.Code != http.StatusNoContent {
		t.Fatalf("expected first request to pass, got %d", firstRec.Code)
	}

	second := httptest.NewRequest(http.MethodPost, "/api/v1/payroll/calculate", nil)
	second.RemoteAddr = "203.0.113.10:5555"
	secondRec := httptest.NewRecorder()
	limited.ServeHTTP(secondRec, second)
	if secondRec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request from same IP to be throttled, got %d", secondRec.Code)
	}
	if secondRec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}

	other := httptest.NewRequest(http.MethodPost, "/api/v1/payroll/calculate", nil)
	other.RemoteAddr = "198.51.100.7:1111"
	otherRec := httptest.NewRecorder()
	limited.ServeHTTP(otherRec, other)
	if otherRec.Code != http.StatusNoContent {
		t.Fatalf("expected other client to pass, got %d", otherRec.Code)
	}
}

func TestRateLimitPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:80"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := ClientIP(req); got != "203.0.113.9" {
		t.Fatalf("expected forwarded client, got %q", got)
	}
}

func TestRateLimitBucketRefills(t *testing.T) {
	now := time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)
	l := newLimiter(1, time.Minute)
	l.now = func() time.Time { return now }

	if q := l.take("203.0.113.10"); !q.allowed || q.remaining != 0 {
		t.Fatalf("expected first request to pass, got %+v", q)
	}
	l.take("198.51.100.7")
	q := l.take("203.0.113.10")
	if q.allowed {
		t.Fatal("expected second request to be throttled")
	}
	if q.resetSeconds() != 60 {
		t.Fatalf("expected reset in 60s, got %d", q.resetSeconds())
	}

	now = now.Add(30 * time.Second)
	if l.take("203.0.113.10").allowed {
		t.Fatal("expected bucket to still be empty after half a window")
	}

	now = now.Add(31 * time.Second)
	if !l.take("203.0.113.10").allowed {
		t.Fatal("expected request after refill to pass")
	}
	if len(l.visitors) != 1 {
		t.Fatalf("expected idle buckets to be swept, have %d", len(l.visitors))
	}
}

func TestRateLimitCustomKey(t *testing.T) {
	byPath := WithKeyFunc(func(r *http.Request) string { return r.URL.Path })
	limited := RateLimit(1, time.Minute, byPath)(okHandler())

	for _, path := range []string{"/a", "/b"} {
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("%s: expected pass, got %d", path, rec.Code)
		}
	}
	rec := httptest.NewRecorder()
	limited.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/a", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected repeat path to be throttled, got %d", rec.Code)
	}
}
