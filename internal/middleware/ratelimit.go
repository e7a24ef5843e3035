package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterStore keeps one token bucket per client IP and forgets clients that
// have been idle for limiterIdleTTL.
type limiterStore struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	lastGC   time.Time
}

func newLimiterStore(limit rate.Limit, burst int) *limiterStore {
	if burst < 1 {
		burst = 1
	}
	return &limiterStore{
		visitors: make(map[string]*visitor),
		limit:    limit,
		burst:    burst,
		lastGC:   time.Now(),
	}
}

func (s *limiterStore) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if now.Sub(s.lastGC) > limiterIdleTTL {
		for k, v := range s.visitors {
			if now.Sub(v.lastSeen) > limiterIdleTTL {
				delete(s.visitors, k)
			}
		}
		s.lastGC = now
	}

	v, ok := s.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

// RateLimit limits each client IP to rps requests per second with the given
// burst.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	return limitWith(newLimiterStore(rate.Limit(rps), burst))
}

// AuthRateLimit applies the stricter per minute budget used on login and
// token refresh.
func AuthRateLimit(perMinute int) gin.HandlerFunc {
	if perMinute < 1 {
		perMinute = 1
	}
	return limitWith(newLimiterStore(rate.Every(time.Minute/time.Duration(perMinute)), perMinute))
}

func limitWith(store *limiterStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		lim := store.get(c.ClientIP())

		r := lim.Reserve()
		if !r.OK() {
			abort(c, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		if delay := r.Delay(); delay > 0 {
			r.Cancel()
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			abort(c, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		c.Next()
	}
}
