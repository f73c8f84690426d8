package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// rateLimitedBody matches the API's error shape.
const rateLimitedBody = `{"error":"rate_limited","message":"too many requests"}` + "\n"

// RateLimit allows at most requests per window for each client address and
// answers the rest with 429. It keys on r.RemoteAddr, so it belongs after
// chi's RealIP middleware when the server sits behind a proxy.
//
// Counters live in process memory; several replicas each enforce their own
// ceiling.
func RateLimit(requests int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(requests, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(rateLimitedBody))
		}),
	)
}
