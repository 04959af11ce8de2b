package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/httplog/v3"
	"golang.org/x/time/rate"

	"kiwipay/internal/transport/http/api"
)

// RateLimitKeyFunc picks the bucket a request is counted against.
type RateLimitKeyFunc func(r *http.Request) string

type RateLimitOption func(*limiter)

func WithKeyFunc(fn RateLimitKeyFunc) RateLimitOption {
	return func(l *limiter) {
		if fn != nil {
			l.key = fn
		}
	}
}

// RateLimit allows bursts of up to limit requests per key, refilled evenly
// over window. Keys default to the client IP. A non-positive limit disables
// the check.
func RateLimit(limit int, window time.Duration, opts ...RateLimitOption) func(http.Handler) http.Handler {
	l := newLimiter(limit, window)
	for _, opt := range opts {
		opt(l)
	}
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := l.key(r)
			if key == "" {
				key = ClientIP(r)
			}
			q := l.take(key)

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(q.remaining))
			h.Set("X-RateLimit-Reset", strconv.Itoa(q.resetSeconds()))
			if !q.allowed {
				h.Set("Retry-After", strconv.Itoa(max(q.resetSeconds(), 1)))
				httplog.SetAttrs(r.Context(), slog.String("rateLimitKey", key))
				api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP prefers the first X-Forwarded-For hop over the socket address.
func ClientIP(r *http.Request) string {
	if first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); strings.TrimSpace(first) != "" {
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

type quota struct {
	allowed   bool
	remaining int
	resetIn   time.Duration
}

func (q quota) resetSeconds() int {
	if q.resetIn <= 0 {
		return 0
	}
	return int(math.Ceil(q.resetIn.Round(time.Millisecond).Seconds()))
}

type visitor struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// limiter holds one token bucket per key. Each bucket holds limit tokens and
// refills at limit per period.
type limiter struct {
	limit  int
	period time.Duration
	every  rate.Limit
	key    RateLimitKeyFunc
	now    func() time.Time

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
}

func newLimiter(limit int, period time.Duration) *limiter {
	return &limiter{
		limit:    limit,
		period:   period,
		every:    rate.Every(period / time.Duration(max(limit, 1))),
		key:      ClientIP,
		now:      time.Now,
		visitors: make(map[string]*visitor),
	}
}

// take spends one token from key's bucket when one is available.
func (l *limiter) take(key string) quota {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.period {
		l.sweepLocked(now)
		l.lastSweep = now
	}
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{bucket: rate.NewLimiter(l.every, l.limit)}
		l.visitors[key] = v
	}
	v.lastSeen = now

	res := v.bucket.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return quota{remaining: 0, resetIn: delay}
	}
	tokens := v.bucket.TokensAt(now)
	return quota{
		allowed:   true,
		remaining: max(int(tokens), 0),
		resetIn:   time.Duration((float64(l.limit) - tokens) / float64(l.every) * float64(time.Second)),
	}
}

// sweepLocked drops buckets idle for a whole period. They have refilled, so
// a fresh bucket is equivalent.
func (l *limiter) sweepLocked(now time.Time) {
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) >= l.period {
			delete(l.visitors, key)
		}
	}
}
