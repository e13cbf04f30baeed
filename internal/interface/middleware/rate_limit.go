package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/oksasatya/user-management-api/pkg/response"
)

const MsgRateLimited = "rate limit exceeded"

func routeOf(c *gin.Context) string {
	if fp := c.FullPath(); fp != "" {
		return fp
	}
	return c.Request.URL.Path
}

// KeyFunc builds a rate-limit key from the request.
type KeyFunc func(c *gin.Context) string

// KeyByIP limits by client IP only.
func KeyByIP() KeyFunc {
	return func(c *gin.Context) string {
		return "rl:ip:" + clientIP(c)
	}
}

// KeyByIPAndPath limits by client IP and route, so login attempts do not
// share a budget with reads.
func KeyByIPAndPath() KeyFunc {
	return func(c *gin.Context) string {
		return "rl:path:" + routeOf(c) + ":ip:" + clientIP(c)
	}
}

// KeyByUser limits authenticated callers by user id and falls back to IP.
func KeyByUser() KeyFunc {
	return func(c *gin.Context) string {
		if id, ok := IdentityFrom(c.Request.Context()); ok {
			return "rl:user:" + strconv.FormatInt(id.UserID, 10)
		}
		return "rl:user:anon:ip:" + clientIP(c)
	}
}

// atomic INCR, setting the window expiry on first hit
var incrExpireScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

func skipLimit(c *gin.Context, allow AllowFunc) bool {
	if allow != nil && allow(c) {
		return true
	}
	return strings.EqualFold(c.Request.Method, http.MethodOptions)
}

// RateLimit is a fixed-window limiter shared across instances through Redis.
// It sets X-RateLimit-* headers and fails open when Redis errors.
func RateLimit(rdb *redis.Client, max int, window time.Duration, keyFn KeyFunc, allow AllowFunc) gin.HandlerFunc {
	if rdb == nil || max <= 0 || window <= 0 || keyFn == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if skipLimit(c, allow) {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := keyFn(c)

		count, err := incrExpireScript.Run(ctx, rdb, []string{key}, window.Milliseconds()).Int()
		if err != nil {
			c.Next()
			return
		}

		resetSec := 0
		if ttl, err := rdb.PTTL(ctx, key).Result(); err == nil && ttl > 0 {
			resetSec = int(math.Ceil(ttl.Seconds()))
		}

		remaining := max - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(max))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(resetSec))

		if count > max {
			if resetSec > 0 {
				c.Header("Retry-After", strconv.Itoa(resetSec))
			}
			response.Error(c, http.StatusTooManyRequests, MsgRateLimited, nil)
			return
		}
		c.Next()
	}
}

type keyLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// LocalLimiter is a per-process token bucket limiter used when Redis is not
// configured. Idle keys are evicted by a background loop until Stop.
type LocalLimiter struct {
	limit rate.Limit
	burst int
	idle  time.Duration

	mu       sync.Mutex
	limiters map[string]*keyLimiter

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewLocalLimiter allows max requests per window per key, with bursts up to max.
func NewLocalLimiter(max int, window time.Duration) *LocalLimiter {
	l := &LocalLimiter{
		limit:    rate.Limit(float64(max) / window.Seconds()),
		burst:    max,
		idle:     2 * window,
		limiters: make(map[string]*keyLimiter),
		stopCh:   make(chan struct{}),
	}
	go l.cleanupLoop(window)
	return l
}

func (l *LocalLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

func (l *LocalLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

func (l *LocalLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl, ok := l.limiters[key]
	if !ok {
		kl = &keyLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = kl
	}
	kl.lastAccess = time.Now()
	return kl.limiter
}

func (l *LocalLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.evictIdle(time.Now())
		case <-l.stopCh:
			return
		}
	}
}

func (l *LocalLimiter) evictIdle(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, kl := range l.limiters {
		if now.Sub(kl.lastAccess) > l.idle {
			delete(l.limiters, k)
		}
	}
}

// Middleware rejects requests over the limit with 429 and a Retry-After
// estimate of one token refill.
func (l *LocalLimiter) Middleware(keyFn KeyFunc, allow AllowFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if skipLimit(c, allow) {
			c.Next()
			return
		}
		if !l.get(keyFn(c)).Allow() {
			retry := int(math.Ceil(1.0 / float64(l.limit)))
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			response.Error(c, http.StatusTooManyRequests, MsgRateLimited, nil)
			return
		}
		c.Next()
	}
}
