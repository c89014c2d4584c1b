package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/ledgerd/internal/identity"
	"golang.org/x/time/rate"
)

const (
	limiterSweepEvery = 5 * time.Minute
	limiterIdleAfter  = 10 * time.Minute
)

// callerBuckets holds one token bucket per rate-limit key.
type callerBuckets struct {
	rps   rate.Limit
	burst int

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newCallerBuckets(rps, burst int) *callerBuckets {
	return &callerBuckets{
		rps:     rate.Limit(rps),
		burst:   burst,
		buckets: make(map[string]*bucket),
	}
}

func (b *callerBuckets) allow(key string, now time.Time) bool {
	b.mu.Lock()
	bk, ok := b.buckets[key]
	if !ok {
		bk = &bucket{limiter: rate.NewLimiter(b.rps, b.burst)}
		b.buckets[key] = bk
	}
	bk.lastSeen = now
	b.mu.Unlock()
	return bk.limiter.AllowN(now, 1)
}

// forgetIdle drops buckets unused since before cutoff.
func (b *callerBuckets) forgetIdle(cutoff time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for key, bk := range b.buckets {
		if bk.lastSeen.Before(cutoff) {
			delete(b.buckets, key)
		}
	}
}

// rateLimitKey buckets identified callers by account so that callers behind
// one address do not share a budget. Anonymous requests fall back to the
// client IP.
func rateLimitKey(c *gin.Context) string {
	if caller := identity.CallerFromCtx(c); caller != "" {
		return "caller:" + caller.String()
	}
	return "ip:" + c.ClientIP()
}

// RateLimiter returns a Gin middleware enforcing a token bucket of rps
// requests per second with the given burst per caller. It must run after
// identity.ResolveCaller. Idle buckets are dropped until ctx is done.
func RateLimiter(ctx context.Context, rps, burst int) gin.HandlerFunc {
	buckets := newCallerBuckets(rps, burst)

	go func() {
		ticker := time.NewTicker(limiterSweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				buckets.forgetIdle(now.Add(-limiterIdleAfter))
			}
		}
	}()

	return func(c *gin.Context) {
		if !buckets.allow(rateLimitKey(c), time.Now()) {
			RecordRateLimited()
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
