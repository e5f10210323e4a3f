package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

const traceHeader = "X-Trace-ID"

type contextKey string

const traceIDKey contextKey = "traceID"

func traceIDFromContext(ctx context.Context) string {
	traceID, _ := ctx.Value(traceIDKey).(string)

	return traceID
}

// requestTraceID prefers an active OpenTelemetry span, then a well-formed
// X-Trace-ID header, and otherwise mints a fresh id.
func requestTraceID(r *http.Request) string {
	if sc := trace.SpanContextFromContext(r.Context()); sc.IsValid() {
		return uuid.UUID(sc.TraceID()).String()
	}

	if id, err := uuid.Parse(r.Header.Get(traceHeader)); err == nil {
		return id.String()
	}

	return uuid.New().String()
}

func (s *Server) loggerMiddleware() func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now().UTC()

			traceID := requestTraceID(r)
			w.Header().Set(traceHeader, traceID)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), traceIDKey, traceID)))

			s.l.With("trace_id", traceID).LogInfo(
				"type: access, method: %s, url: %s, proto: %s, status: %d, bytes: %d, userAgent: %s, latency: %s",
				r.Method,
				r.URL.RequestURI(),
				r.Proto,
				ww.Status(),
				ww.BytesWritten(),
				r.Header.Get("User-Agent"),
				time.Since(start),
			)
		})
	}
}

func (s *Server) recoverMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if re := recover(); re != nil {
					if re == http.ErrAbortHandler { //nolint:errorlint,goerr113
						panic(re)
					}

					err, ok := re.(error)
					if !ok {
						err = fmt.Errorf("%v: %w", re, ErrPanic)
					}

					s.l.LogErrorf("type: panic, url: %s, error: %v", r.URL.Path, err)
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) corsMiddleware() func(next http.Handler) http.Handler {
	origins := s.conf.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	//nolint:exhaustruct
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", traceHeader},
		ExposedHeaders: []string{traceHeader},
		MaxAge:         300, //nolint:gomnd
	})
}
