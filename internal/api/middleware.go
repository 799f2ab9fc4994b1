package api

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	"ncc.gov.ng/nora/internal/chat"
)

const requestIDHeader = "X-Request-Id"

// RequestLogger attaches a request-scoped zerolog logger to the context and
// logs one line per request when the handler returns.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		logger := log.With().Str("request_id", requestID).Logger()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote", r.RemoteAddr).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("Request handled")
		}()

		next.ServeHTTP(ww, r.WithContext(logger.WithContext(r.Context())))
	})
}

// limiterIdleTTL is how long a client's bucket is kept after its last request.
const limiterIdleTTL = 3 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP. Buckets that have been
// idle for limiterIdleTTL and have refilled are dropped on the next sweep.
type RateLimiter struct {
	mu        sync.Mutex
	limits    map[string]*limiterEntry
	rps       rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limits:    make(map[string]*limiterEntry),
		rps:       rate.Limit(rps),
		burst:     burst,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= limiterIdleTTL {
		rl.sweep(now)
	}

	entry, ok := rl.limits[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.limits[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// sweep must be called with rl.mu held. A bucket that has not refilled is
// kept so that dropping it never hands a client extra tokens.
func (rl *RateLimiter) sweep(now time.Time) {
	for key, entry := range rl.limits {
		if now.Sub(entry.lastSeen) < limiterIdleTTL {
			continue
		}
		if entry.limiter.TokensAt(now) < float64(rl.burst) {
			continue
		}
		delete(rl.limits, key)
	}
	rl.lastSweep = now
}

func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientIP(r)) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(chat.ErrorResponse{Error: "Rate limit exceeded. Please slow down."})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP relies on middleware.RealIP having rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
