package logx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// RequestLogger returns chi middleware that logs each request served by the
// in-process backend and stores the request logger in the request context.
func RequestLogger(component string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			logger := Component(component).With().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("request_method", r.Method).
				Str("request_path", r.URL.Path).
				Logger()

			start := time.Now()
			next.ServeHTTP(ww, r.WithContext(logger.WithContext(r.Context())))

			logger.Debug().
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("latency", time.Since(start)).
				Msg("Served")
		})
	}
}
