package middleware

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	limiterSweepEvery = 10 * time.Minute
	limiterIdleAfter  = 30 * time.Minute
)

type keyedLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// limiterSet hands out one token bucket per key. Stale entries are swept
// until ctx is done.
type limiterSet[K comparable] struct {
	mu       sync.Mutex
	limiters map[K]*keyedLimiter
	rps      rate.Limit
	burst    int
}

func newLimiterSet[K comparable](ctx context.Context, requestsPerSecond float64, burst int) *limiterSet[K] {
	s := &limiterSet[K]{
		limiters: make(map[K]*keyedLimiter),
		rps:      rate.Limit(requestsPerSecond),
		burst:    burst,
	}

	go func() {
		ticker := time.NewTicker(limiterSweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweep(time.Now().Add(-limiterIdleAfter))
			case <-ctx.Done():
				return
			}
		}
	}()

	return s
}

func (s *limiterSet[K]) sweep(cutoff time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, kl := range s.limiters {
		if kl.lastAccess.Before(cutoff) {
			delete(s.limiters, k)
		}
	}
}

func (s *limiterSet[K]) allow(key K) bool {
	s.mu.Lock()
	kl, ok := s.limiters[key]
	if !ok {
		kl = &keyedLimiter{limiter: rate.NewLimiter(s.rps, s.burst)}
		s.limiters[key] = kl
	}
	kl.lastAccess = time.Now()
	s.mu.Unlock()

	return kl.limiter.Allow()
}

func tooManyRequests(w http.ResponseWriter) {
	http.Error(w, `{"title":"Too Many Requests","status":429,"detail":"rate limit exceeded"}`, http.StatusTooManyRequests)
}

// RateLimitByIP applies per-IP rate limiting for unauthenticated endpoints
// (login and token refresh). Chain after chi's RealIP middleware.
func RateLimitByIP(ctx context.Context, requestsPerSecond float64, burst int) func(http.Handler) http.Handler {
	limiters := newLimiterSet[string](ctx, requestsPerSecond, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiters.allow(clientIP(r)) {
				tooManyRequests(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit applies per-tenant rate limiting. Requests without a configured
// actor are not limited here.
func RateLimit(ctx context.Context, requestsPerSecond float64, burst int) func(http.Handler) http.Handler {
	limiters := newLimiterSet[uuid.UUID](ctx, requestsPerSecond, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID, ok := TenantIDFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			if !limiters.allow(tenantID) {
				tooManyRequests(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
