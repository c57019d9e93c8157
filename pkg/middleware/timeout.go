package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Timeout bounds each request with a deadline. When the deadline fires
// before the handler writes anything, the client gets a 504 and whatever
// the handler produces later is dropped.
func Timeout(limit time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), limit)
			defer cancel()

			gw := &guardedWriter{ResponseWriter: w}
			done := make(chan struct{})
			go func() {
				defer close(done)
				next.ServeHTTP(gw, r.WithContext(ctx))
			}()

			select {
			case <-done:
			case <-ctx.Done():
				if gw.abandon() {
					slog.Warn("request timed out",
						"method", r.Method,
						"path", r.URL.Path,
						"limit", limit,
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusGatewayTimeout)
					w.Write([]byte(`{"error":"request timeout"}`))
				}
			}
		})
	}
}

// guardedWriter makes the write side single-owner: either the handler gets
// to write, or the timeout path claims the writer and the handler's output
// is discarded.
type guardedWriter struct {
	http.ResponseWriter
	mu        sync.Mutex
	abandoned bool
	touched   bool
}

func (gw *guardedWriter) WriteHeader(code int) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if gw.abandoned {
		return
	}
	gw.touched = true
	gw.ResponseWriter.WriteHeader(code)
}

func (gw *guardedWriter) Write(b []byte) (int, error) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if gw.abandoned {
		return len(b), nil
	}
	gw.touched = true
	return gw.ResponseWriter.Write(b)
}

// abandon claims the writer for the timeout response. It fails when the
// handler already started writing.
func (gw *guardedWriter) abandon() bool {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if gw.touched {
		return false
	}
	gw.abandoned = true
	return true
}
