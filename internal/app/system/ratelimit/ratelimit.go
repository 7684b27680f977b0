// Package ratelimit throttles login attempts. Limits are tracked per
// client IP and per email so a flood from one address and repeated
// guesses against one account are both cut off.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// limiter counts events per key in a fixed window. Safe for
// concurrent use.
type limiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	limit    int
	duration time.Duration
}

type window struct {
	count     int
	expiresAt time.Time
}

func newLimiter(limit int, duration time.Duration) *limiter {
	l := &limiter{
		windows:  make(map[string]*window),
		limit:    limit,
		duration: duration,
	}
	go l.cleanupLoop()
	return l
}

func (l *limiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, exists := l.windows[key]
	if !exists || now.After(w.expiresAt) {
		l.windows[key] = &window{count: 1, expiresAt: now.Add(l.duration)}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

func (l *limiter) reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// cleanupLoop drops expired windows so idle keys do not accumulate.
func (l *limiter) cleanupLoop() {
	ticker := time.NewTicker(l.duration * 2)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		now := time.Now()
		for key, w := range l.windows {
			if now.After(w.expiresAt) {
				delete(l.windows, key)
			}
		}
		l.mu.Unlock()
	}
}

// clientIP resolves the originating address, preferring the proxy
// headers the deployment sets over RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ip := strings.TrimSpace(strings.Split(xff, ",")[0])
		if ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr may carry no port.
		return r.RemoteAddr
	}
	return ip
}

// LoginLimiter guards the login endpoint with an IP window and an
// email window.
type LoginLimiter struct {
	ipLimiter    *limiter
	emailLimiter *limiter
}

// NewLoginLimiter allows 10 attempts per IP per minute and 5 attempts
// per email per five minutes.
func NewLoginLimiter() *LoginLimiter {
	return &LoginLimiter{
		ipLimiter:    newLimiter(10, time.Minute),
		emailLimiter: newLimiter(5, 5*time.Minute),
	}
}

// Check reports whether this login attempt may proceed. When blocked,
// reason is a message fit to return to the client.
func (ll *LoginLimiter) Check(r *http.Request, email string) (allowed bool, reason string) {
	if !ll.ipLimiter.allow(clientIP(r)) {
		return false, "Too many login attempts. Please wait a minute before trying again."
	}
	if email != "" {
		if !ll.emailLimiter.allow(strings.ToLower(strings.TrimSpace(email))) {
			return false, "Too many login attempts for this account. Please wait a few minutes."
		}
	}
	return true, ""
}

// ResetEmail clears the email window after a successful login so a
// user who finally remembers their password is not locked out.
func (ll *LoginLimiter) ResetEmail(email string) {
	if email != "" {
		ll.emailLimiter.reset(strings.ToLower(strings.TrimSpace(email)))
	}
}
