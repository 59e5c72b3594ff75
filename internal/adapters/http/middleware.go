package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/viralforge/affiliate-core/internal/application"
	"github.com/viralforge/affiliate-core/internal/ports"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	actorKey     contextKey = "actor"
)

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-Id"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func recoverMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.ErrorContext(r.Context(), "panic recovered",
						"module", "http.middleware",
						"layer", "adapter",
						"operation", "recover",
						"outcome", "failure",
						"request_id", requestIDFromContext(r.Context()),
						"panic", rec,
					)
					writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// HTTPObserver records per-route request metrics.
type HTTPObserver interface {
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
}

// accessMiddleware writes the access log line and feeds the observer. The
// route label is the chi pattern so path parameters do not explode
// cardinality.
func accessMiddleware(logger *slog.Logger, observer HTTPObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			elapsed := time.Since(start)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			if observer != nil {
				observer.ObserveHTTP(r.Method, route, rec.Status(), elapsed)
			}
			outcome := "success"
			if rec.Status() >= http.StatusInternalServerError {
				outcome = "failure"
			}
			logger.InfoContext(r.Context(), "http request",
				"module", "http.access",
				"layer", "adapter",
				"operation", route,
				"outcome", outcome,
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.Status(),
				"duration_ms", elapsed.Milliseconds(),
				"request_id", requestIDFromContext(r.Context()),
			)
		})
	}
}

func tracingMiddleware(serviceName string) func(http.Handler) http.Handler {
	tracer := otel.Tracer(serviceName)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path, trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()

			span.SetAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
				attribute.String("http.user_agent", r.UserAgent()),
				attribute.String("request.id", requestIDFromContext(r.Context())),
			)
			otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(w.Header()))

			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r.WithContext(ctx))

			span.SetAttributes(attribute.Int("http.status_code", rec.Status()))
			if rec.Status() >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(rec.Status()))
			}
		})
	}
}

// authMiddleware verifies the bearer token and stores the resulting actor.
func authMiddleware(verifier ports.TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := strings.TrimSpace(r.Header.Get("Authorization"))
			if len(auth) < 7 || !strings.EqualFold(auth[:7], "bearer ") {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
				return
			}
			raw := strings.TrimSpace(auth[7:])
			if raw == "" {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "empty bearer token")
				return
			}
			claims, err := verifier.Verify(raw)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or missing credentials")
				return
			}
			role := strings.ToLower(strings.TrimSpace(claims.Role))
			if role == "" {
				role = application.RoleAffiliate
			}
			actor := application.Actor{
				SubjectID:      claims.SubjectID,
				Role:           role,
				RequestID:      requestIDFromContext(r.Context()),
				IdempotencyKey: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey, actor)))
		})
	}
}

func actorFromContext(ctx context.Context) application.Actor {
	if v := ctx.Value(actorKey); v != nil {
		if a, ok := v.(application.Actor); ok {
			return a
		}
	}
	return application.Actor{}
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
