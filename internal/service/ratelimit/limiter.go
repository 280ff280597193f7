package ratelimit

import (
	"sync"

	xhttp "DemandCast/pkg/http"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per client key. The least recently seen
// keys are evicted once maxKeys is reached.
type Limiter struct {
	mu      sync.Mutex
	rps     rate.Limit
	burst   int
	buckets *lru.Cache[string, *rate.Limiter]
}

// New creates a limiter allowing rps requests per second with the given burst.
func New(rps float64, burst, maxKeys int) *Limiter {
	if maxKeys <= 0 {
		maxKeys = 10000
	}
	if burst < 1 {
		burst = 1
	}
	buckets, _ := lru.New[string, *rate.Limiter](maxKeys)
	return &Limiter{rps: rate.Limit(rps), burst: burst, buckets: buckets}
}

// Allow consumes one token for key.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	b, ok := l.buckets.Get(key)
	if !ok {
		b = rate.NewLimiter(l.rps, l.burst)
		l.buckets.Add(key, b)
	}
	l.mu.Unlock()
	return b.Allow()
}

// OnReject is called with the route of every rejected request.
type OnReject func(route string)

// Middleware rejects requests over the limit with 429. Clients are keyed by
// their real IP.
func (l *Limiter) Middleware(onReject OnReject) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if l.Allow(c.RealIP()) {
				return next(c)
			}
			if onReject != nil {
				onReject(c.Path())
			}
			c.Response().Header().Set("Retry-After", "1")
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("Too many forecast requests"))
		}
	}
}
