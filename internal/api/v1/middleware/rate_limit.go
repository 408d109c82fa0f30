package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"pageaudit/internal/util"
)

const (
	sweepInterval = time.Minute
	idleTimeout   = 5 * time.Minute
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP. Idle clients are swept
// once a minute.
type RateLimiter struct {
	rps   rate.Limit
	burst int

	mu      sync.Mutex
	clients map[string]*client
	once    sync.Once
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		clients: make(map[string]*client),
	}
}

func (l *RateLimiter) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.clients[ip]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

func (l *RateLimiter) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, c := range l.clients {
		if now.Sub(c.lastSeen) > idleTimeout {
			delete(l.clients, ip)
		}
	}
}

func (l *RateLimiter) janitor() {
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for now := range t.C {
		l.sweep(now)
	}
}

func (l *RateLimiter) Handler(next http.Handler) http.Handler {
	l.once.Do(func() { go l.janitor() })

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(util.GetClientIPAddress(r), time.Now()) {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
