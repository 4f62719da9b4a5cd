// ratelimit.go - Fixed-window rate limiter middleware by client IP.
//
// Counters live in a go-cache store whose entries expire with the window,
// so no extra cleanup goroutine is needed.
package server

import (
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	defaultRateLimit  = 100
	defaultRateWindow = 15 * time.Minute
)

// rateSkipPaths are probes and scrapes that must never be throttled.
var rateSkipPaths = map[string]bool{
	"/health":  true,
	"/live":    true,
	"/metrics": true,
}

// rateLimiter allows limit requests per key in each window.
type rateLimiter struct {
	mu     sync.Mutex
	store  *gocache.Cache
	limit  int
	window time.Duration
	trust  proxyTrust
}

func newRateLimiter(limit int, window time.Duration, trust proxyTrust) *rateLimiter {
	if limit <= 0 {
		limit = defaultRateLimit
	}
	if window <= 0 {
		window = defaultRateWindow
	}
	return &rateLimiter{
		store:  gocache.New(window, window),
		limit:  limit,
		window: window,
		trust:  trust,
	}
}

// allow counts one request for key and reports whether it is within the
// limit, the remaining budget and when the window resets.
func (rl *rateLimiter) allow(key string) (bool, int, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if _, resetAt, found := rl.store.GetWithExpiration(key); found {
		count, err := rl.store.IncrementInt(key, 1)
		if err == nil {
			if count > rl.limit {
				return false, 0, resetAt
			}
			return true, rl.limit - count, resetAt
		}
	}

	resetAt := time.Now().Add(rl.window)
	rl.store.Set(key, 1, rl.window)
	return true, rl.limit - 1, resetAt
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rateSkipPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		allowed, remaining, resetAt := rl.allow(rl.trust.clientIP(r))

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			retry := int(time.Until(resetAt).Seconds())
			if retry < 1 {
				retry = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			writeError(w, http.StatusTooManyRequests, "Too many requests, please try again later.", nil, false)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// proxyTrust decides whether forwarding headers may be believed.
type proxyTrust struct {
	prefixes []netip.Prefix
}

// newProxyTrust parses IPs and CIDRs. With no entries, loopback and private
// ranges are trusted.
func newProxyTrust(entries []string) proxyTrust {
	var t proxyTrust
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if p, err := netip.ParsePrefix(e); err == nil {
			t.prefixes = append(t.prefixes, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(e); err == nil {
			t.prefixes = append(t.prefixes, netip.PrefixFrom(a, a.BitLen()))
		}
	}
	return t
}

func (t proxyTrust) trusted(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	if len(t.prefixes) == 0 {
		return addr.IsLoopback() || addr.IsPrivate()
	}
	for _, p := range t.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// clientIP extracts the client's IP address from the request. Forwarding
// headers are only honoured when the peer is a trusted proxy.
func (t proxyTrust) clientIP(r *http.Request) string {
	peer := remoteIP(r.RemoteAddr)
	if !t.trusted(peer) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return peer
}

// remoteIP strips the port from a RemoteAddr.
func remoteIP(addr string) string {
	addr = strings.TrimSpace(addr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
