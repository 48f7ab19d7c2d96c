// Package middleware provides the HTTP middleware stack: trace propagation,
// request logging, rate limiting, and license gating.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"golang.org/x/time/rate"

	apiErrors "slidecli/internal/errors"
	"slidecli/internal/infrastructure"
)

// TraceID ensures every request context carries a trace ID, reusing the
// client's X-Request-ID when present.
func TraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if reqID := r.Header.Get("X-Request-ID"); reqID != "" {
			ctx = infrastructure.WithTraceID(ctx, reqID)
		} else {
			ctx = infrastructure.EnsureTraceID(ctx)
		}

		traceID := infrastructure.GetTraceID(ctx)
		w.Header().Set("X-Request-ID", traceID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestLogger logs one structured line per request.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.LogAttrs(r.Context(), slog.LevelInfo, "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)),
				slog.Int("bytes", ww.BytesWritten()),
			)
		})
	}
}

// RateLimit bounds request throughput for sensitive endpoints such as
// activation.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				render.Render(w, r, apiErrors.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
