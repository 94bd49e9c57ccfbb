package server

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samrat-shrestha/toptracks/internal/shared"
)

// RequestIDHeader carries the request id on requests and responses.
const RequestIDHeader = "X-Request-ID"

type ctxKey int

const requestIDKey ctxKey = iota

// RequestID tags each request with an id taken from the [RequestIDHeader] header or generated, and echoes it
// on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = shared.GenerateID()
		}

		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// GetRequestID returns the id assigned by [RequestID], or "" outside of it.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// Logger logs one line per request with method, path, status and duration.
func Logger(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rlog := logger.With(
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", GetRequestID(r.Context()),
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			rlog.Debug("request started", "remote", r.RemoteAddr)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			kv := []any{"status", status, "bytes", ww.BytesWritten(), "duration", time.Since(start)}
			if status >= http.StatusInternalServerError {
				rlog.Warn("request completed", kv...)
			} else {
				rlog.Info("request completed", kv...)
			}
		})
	}
}

// Defaults returns the middleware stack every route is served with, outermost first.
//
// Proxy headers are only trusted when behindProxy is set. Panics below the logger become 500 responses.
func Defaults(logger *log.Logger, behindProxy bool) []Middleware {
	stack := []Middleware{RequestID}
	if behindProxy {
		stack = append(stack, middleware.RealIP)
	}
	return append(stack, Logger(logger), middleware.Recoverer)
}
