// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per key (usually a client IP).
// It is safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idle     time.Duration // drop buckets unused for this long
	stop     chan struct{}
	stopOnce sync.Once
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a limiter that allows n requests per duration per key, with
// bursts of up to n. Call Stop to end the background cleanup.
func New(n int, per time.Duration) *Limiter {
	if n < 1 {
		n = 1
	}
	l := &Limiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(per / time.Duration(n)),
		burst:    n,
		idle:     2 * per,
		stop:     make(chan struct{}),
	}
	if l.idle < time.Minute {
		l.idle = time.Minute
	}
	go l.cleanupLoop()
	return l
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// Allow reports whether a request from key may proceed now.
func (l *Limiter) Allow(key string) bool {
	return l.get(key).Allow()
}

// Reset forgets key, restoring its full burst.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.visitors, key)
}

// Stop ends the cleanup goroutine. Safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// cleanupLoop periodically removes idle buckets to prevent memory leaks.
func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.idle)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.mu.Lock()
			for key, v := range l.visitors {
				if time.Since(v.lastSeen) > l.idle {
					delete(l.visitors, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Middleware rejects requests over the per-IP limit with 429 and a JSON body.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(ClientIP(r)) {
			TooManyRequests(w, "too many requests, please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// TooManyRequests writes a 429 JSON response.
func TooManyRequests(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Retry-After", strconv.Itoa(60))
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// ClientIP extracts the client IP from an HTTP request.
// It checks X-Forwarded-For and X-Real-IP headers first (for proxied requests),
// then falls back to RemoteAddr.
func ClientIP(r *http.Request) string {
	// Check X-Forwarded-For header (comma-separated list, first is client)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}

	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// Fall back to RemoteAddr (strip port)
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr might not have a port
		return r.RemoteAddr
	}
	return ip
}

// LoginLimiter provides specialized rate limiting for login attempts.
// It tracks both IP-based and username-based limits to prevent:
// - Distributed attacks from multiple IPs
// - Targeted attacks on specific accounts
type LoginLimiter struct {
	ipLimiter   *Limiter
	userLimiter *Limiter
}

// NewLoginLimiter creates a login limiter allowing ipLimit attempts per
// minute per IP and 5 attempts per 5 minutes per username.
func NewLoginLimiter(ipLimit int) *LoginLimiter {
	return &LoginLimiter{
		ipLimiter:   New(ipLimit, time.Minute),
		userLimiter: New(5, 5*time.Minute),
	}
}

// Check verifies if a login attempt should be allowed.
// Returns (allowed, reason) where reason explains why it was blocked.
func (ll *LoginLimiter) Check(r *http.Request, username string) (bool, string) {
	if !ll.ipLimiter.Allow(ClientIP(r)) {
		return false, "too many login attempts, please wait a minute before trying again"
	}

	if key := strings.ToLower(strings.TrimSpace(username)); key != "" {
		if !ll.userLimiter.Allow(key) {
			return false, "too many login attempts for this account, please wait a few minutes"
		}
	}

	return true, ""
}

// ResetUser clears the per-account limit after a successful login.
func (ll *LoginLimiter) ResetUser(username string) {
	if key := strings.ToLower(strings.TrimSpace(username)); key != "" {
		ll.userLimiter.Reset(key)
	}
}

// Stop ends both limiters' cleanup goroutines.
func (ll *LoginLimiter) Stop() {
	ll.ipLimiter.Stop()
	ll.userLimiter.Stop()
}
