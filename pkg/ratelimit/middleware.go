package ratelimit

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Middleware applies a coarse per-IP token-bucket limit ahead of the
// issuance endpoints, bounding unauthenticated probing by client address.
// The per-account cooldown is enforced separately by Limiter.
type Middleware struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	r        rate.Limit
	burst    int
}

// NewMiddleware creates a per-IP limiter: r requests/second, burst up to
// burst requests per address.
func NewMiddleware(r rate.Limit, burst int) *Middleware {
	m := &Middleware{
		limiters: make(map[string]*ipLimiter),
		r:        r,
		burst:    burst,
	}
	go m.cleanup()
	return m
}

func (m *Middleware) get(ip string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if v, ok := m.limiters[ip]; ok {
		v.lastSeen = time.Now()
		return v.limiter
	}

	l := rate.NewLimiter(m.r, m.burst)
	m.limiters[ip] = &ipLimiter{limiter: l, lastSeen: time.Now()}
	return l
}

// cleanup removes stale entries every 5 minutes
func (m *Middleware) cleanup() {
	for {
		time.Sleep(5 * time.Minute)
		m.mu.Lock()
		for ip, v := range m.limiters {
			if time.Since(v.lastSeen) > 10*time.Minute {
				delete(m.limiters, ip)
			}
		}
		m.mu.Unlock()
	}
}

// Handler enforces the per-IP limit on the wrapped handler
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.get(clientIP(r)).Allow() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"too many requests"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP extracts the client address, honoring proxy headers
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
