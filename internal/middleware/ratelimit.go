package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

// RateLimitMessage is the fixed body returned once a client exceeds its quota.
const RateLimitMessage = "Too many requests. Please try again later."

// RateLimit allows requests per window for each client IP. Rejections get a
// 429 with RateLimitMessage; httprate sets the X-RateLimit-* headers.
// A non-positive requests value disables limiting.
func RateLimit(requests int, window time.Duration) func(http.Handler) http.Handler {
	if requests <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(requests, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeJSONError(w, http.StatusTooManyRequests, RateLimitMessage)
		}),
	)
}

// CORS allows the configured origins with the methods and headers the API uses.
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           86400,
	})
}
