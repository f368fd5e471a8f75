package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// requestID keeps an incoming X-Request-Id or assigns a fresh uuid, and
// echoes it on the response.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(middleware.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(middleware.RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLogger logs one line per request through zerolog.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return middleware.RequestLogger(&logFormatter{log: log})
}

type logFormatter struct {
	log zerolog.Logger
}

func (f *logFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	l := f.log.With().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("remote_ip", r.RemoteAddr)
	if reqID := middleware.GetReqID(r.Context()); reqID != "" {
		l = l.Str("request_id", reqID)
	}
	return &logEntry{log: l.Logger()}
}

type logEntry struct {
	log zerolog.Logger
}

func (e *logEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ any) {
	ev := e.log.Info()
	if status >= http.StatusInternalServerError {
		ev = e.log.Error()
	}
	ev.Int("status", status).
		Int("bytes", bytes).
		Dur("latency", elapsed).
		Msg("request")
}

func (e *logEntry) Panic(v any, stack []byte) {
	e.log.Error().
		Interface("panic", v).
		Bytes("stack", stack).
		Msg("request panicked")
}
