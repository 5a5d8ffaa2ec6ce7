package ratelimit

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/sevigo/review-broker/internal/telemetry"
)

// Middleware rejects requests over budget with 429 and a Retry-After header
// before they reach the handler. Limiter failures let the request through.
func Middleware(limiter Limiter, bucket string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientKey(r)
			decision, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.Error("rate limiter unavailable, admitting request", "bucket", bucket, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !decision.Allowed {
				telemetry.RateLimitedTotal.WithLabelValues(bucket).Inc()
				logger.Warn("rate limit exceeded", "bucket", bucket, "retry_after", decision.RetryAfter)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(decision)))
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientKey identifies the caller by client IP. Credentials in the request
// are caller-chosen and never widen the budget.
func ClientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

func retryAfterSeconds(d Decision) int {
	secs := int(math.Ceil(d.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}
