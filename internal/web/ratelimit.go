package web

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/csvcard/internal/core"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// rateLimiter keeps a token bucket per client IP. Idle buckets expire from
// the cache after a few windows.
type rateLimiter struct {
	visitors *gocache.Cache
	limit    rate.Limit
	burst    int
	window   time.Duration
}

// newRateLimiter allows n requests per window per IP, refilling evenly.
func newRateLimiter(n int, window time.Duration) *rateLimiter {
	if n <= 0 {
		n = 1
	}
	return &rateLimiter{
		visitors: gocache.New(3*window, window),
		limit:    rate.Every(window / time.Duration(n)),
		burst:    n,
		window:   window,
	}
}

// allow consumes a token for ip if one is available.
func (rl *rateLimiter) allow(ip string) bool {
	var l *rate.Limiter
	if v, ok := rl.visitors.Get(ip); ok {
		l = v.(*rate.Limiter)
	} else {
		l = rate.NewLimiter(rl.limit, rl.burst)
		// Add fails if another request created the bucket first.
		if err := rl.visitors.Add(ip, l, gocache.DefaultExpiration); err != nil {
			if v, ok := rl.visitors.Get(ip); ok {
				l = v.(*rate.Limiter)
			}
		}
	}
	rl.visitors.SetDefault(ip, l)
	return l.Allow()
}

// middleware returns an HTTP middleware that rate limits by IP.
// RemoteAddr has already been rewritten by TrustedRealIP.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientIP(r)) {
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			respondError(w, r, core.ErrRateLimited, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the host part of RemoteAddr.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
