package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"secureshare/utils"
)

// RateLimiter hands out one token bucket per client.
type RateLimiter struct {
	visitors map[string]*visitor
	mu       sync.Mutex
	perMin   int
	burst    int
	idle     time.Duration
	stop     chan struct{}
	once     sync.Once
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows requestsPerMinute per client with the given burst.
// Call Stop to end the cleanup goroutine.
func NewRateLimiter(requestsPerMinute, burst int) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		perMin:   requestsPerMinute,
		burst:    burst,
		idle:     10 * time.Minute,
		stop:     make(chan struct{}),
	}

	go rl.cleanupVisitors(5 * time.Minute)

	return rl
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	v, exists := rl.visitors[key]
	if !exists {
		v = &visitor{
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rl.perMin)), rl.burst),
		}
		rl.visitors[key] = v
	}
	v.lastSeen = time.Now()
	rl.mu.Unlock()

	return v.limiter.Allow()
}

func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) cleanupVisitors(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			for key, v := range rl.visitors {
				if time.Since(v.lastSeen) > rl.idle {
					delete(rl.visitors, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Middleware rejects clients that exceed their budget with 429.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(clientID(c)) {
			c.Header("X-RateLimit-Limit", strconv.Itoa(rl.perMin))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.Itoa(int((time.Minute/time.Duration(rl.perMin)).Seconds())+1))

			utils.TooManyRequestsResponse(c, "Rate limit exceeded")
			c.Abort()
			return
		}

		c.Next()
	}
}

// clientID keys authenticated callers by user and everyone else by IP.
func clientID(c *gin.Context) string {
	if principal, exists := utils.GetPrincipalFromContext(c); exists {
		return "user:" + principal.ID
	}
	return "ip:" + c.ClientIP()
}
