// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a set of token buckets, one per key. It is safe for concurrent
// use.
type Limiter struct {
	buckets sync.Map // map[string]*rate.Limiter
	rate    rate.Limit
	burst   int

	mu          sync.Mutex
	lastCleanup time.Time
	cleanup     time.Duration
}

// New creates a limiter allowing perSecond requests per key with the given
// burst. A non-positive burst is raised to 1.
func New(perSecond float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		rate:        rate.Limit(perSecond),
		burst:       burst,
		lastCleanup: time.Now(),
		cleanup:     5 * time.Minute,
	}
}

// PerMinute is a convenience for slow limits such as login attempts.
func PerMinute(n int) *Limiter {
	return New(float64(n)/60, n)
}

// Allow takes one token for key. When the bucket is empty it reports false
// and how long until the next token.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	b := l.bucket(key)
	if b.Allow() {
		return true, 0
	}
	res := b.Reserve()
	delay := res.Delay()
	res.Cancel()
	return false, delay
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	if b, ok := l.buckets.Load(key); ok {
		return b.(*rate.Limiter)
	}
	b, _ := l.buckets.LoadOrStore(key, rate.NewLimiter(l.rate, l.burst))
	l.maybeCleanup()
	return b.(*rate.Limiter)
}

// maybeCleanup drops buckets that have refilled, which means their key has
// been idle.
func (l *Limiter) maybeCleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if time.Since(l.lastCleanup) < l.cleanup {
		return
	}
	l.lastCleanup = time.Now()
	l.buckets.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(l.burst) {
			l.buckets.Delete(key)
		}
		return true
	})
}

// Middleware rejects requests whose key has no tokens left. reject writes
// the response; Retry-After is already set when it runs.
func (l *Limiter) Middleware(key func(*http.Request) string, reject http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}
			if ok, delay := l.Allow(k); !ok {
				secs := int(delay.Seconds())
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				reject(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP extracts the client IP from an HTTP request.
// It checks X-Forwarded-For and X-Real-IP headers first (for proxied requests),
// then falls back to RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr might not have a port
		return r.RemoteAddr
	}
	return ip
}
