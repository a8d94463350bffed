package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/render"
	"golang.org/x/time/rate"

	"github.com/sakif/articles-api/internal/auth"
)

const (
	limiterSweepInterval = 3 * time.Minute
	limiterIdleTimeout   = 5 * time.Minute
)

type callerLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per caller. Authenticated requests are
// keyed by user id, anything else by client IP.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*callerLimiter
	rate     rate.Limit
	burst    int
	metrics  *Metrics

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter starts a limiter allowing rps requests per second with the
// given burst. metrics may be nil. Call Close to stop the idle sweeper.
func NewRateLimiter(rps float64, burst int, metrics *Metrics) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*callerLimiter),
		rate:     rate.Limit(rps),
		burst:    burst,
		metrics:  metrics,
		stop:     make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if l, ok := rl.limiters[key]; ok {
		l.lastSeen = now
		return l.limiter
	}
	l := &callerLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst), lastSeen: now}
	rl.limiters[key] = l
	return l.limiter
}

func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.sweep(time.Now())
		}
	}
}

func (rl *RateLimiter) sweep(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, l := range rl.limiters {
		if now.Sub(l.lastSeen) > limiterIdleTimeout {
			delete(rl.limiters, key)
		}
	}
}

// retryAfter is the whole number of seconds until one token refills.
func (rl *RateLimiter) retryAfter() int {
	if rl.rate <= 0 {
		return 1
	}
	return max(int(math.Ceil(1/float64(rl.rate))), 1)
}

// Middleware rejects callers that have exhausted their bucket with 429 and a
// Retry-After header.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.limiterFor(callerKey(r)).Allow() {
			next.ServeHTTP(w, r)
			return
		}

		if rl.metrics != nil {
			rl.metrics.RecordRateLimited(routePattern(r))
		}
		w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfter()))
		render.Status(r, http.StatusTooManyRequests)
		render.JSON(w, r, map[string]any{
			"status": http.StatusTooManyRequests,
			"error":  "Too many requests, slow down",
		})
	})
}

func callerKey(r *http.Request) string {
	if id, ok := auth.IdentityFromContext(r.Context()); ok {
		return "user:" + id.ID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
