package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/baharkarakas/provider-payouts/internal/api/httpx"
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit keeps one token bucket per client IP. Idle buckets are dropped
// after ten minutes.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	var (
		mu      sync.Mutex
		clients = map[string]*client{}
		lastGC  = time.Now()
	)
	get := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		now := time.Now()
		if now.Sub(lastGC) > time.Minute {
			for k, c := range clients {
				if now.Sub(c.lastSeen) > 10*time.Minute {
					delete(clients, k)
				}
			}
			lastGC = now
		}
		c, ok := clients[key]
		if !ok {
			c = &client{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
			clients[key] = c
		}
		c.lastSeen = now
		return c.limiter
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !get(clientKey(r)).Allow() {
				httpx.WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
