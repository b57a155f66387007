package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/pkg/logger"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const (
	HeaderUserID  = "X-User-ID"
	HeaderGuestID = "X-Guest-ID"
	HeaderTraceID = "X-Trace-ID"
)

type contextKey string

const (
	userIDKey  contextKey = "user_id"
	guestIDKey contextKey = "guest_id"
)

// IdentityMiddleware copies the caller identity set by the upstream auth layer
// into the request context. Requests without either header pass through
// anonymous; handlers decide whether that is acceptable.
func IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if userID := strings.TrimSpace(r.Header.Get(HeaderUserID)); userID != "" {
			ctx = context.WithValue(ctx, userIDKey, domain.UserID(userID))
		}
		if guestID := strings.TrimSpace(r.Header.Get(HeaderGuestID)); guestID != "" {
			ctx = context.WithValue(ctx, guestIDKey, domain.GuestID(guestID))
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getUserIDFromContext(ctx context.Context) domain.UserID {
	if userID, ok := ctx.Value(userIDKey).(domain.UserID); ok {
		return userID
	}
	return ""
}

func getGuestIDFromContext(ctx context.Context) domain.GuestID {
	if guestID, ok := ctx.Value(guestIDKey).(domain.GuestID); ok {
		return guestID
	}
	return ""
}

// ownerFromContext prefers the signed-in user over the guest identity.
func ownerFromContext(ctx context.Context) (domain.Owner, bool) {
	if userID := getUserIDFromContext(ctx); userID != "" {
		return domain.UserOwner(userID), true
	}
	if guestID := getGuestIDFromContext(ctx); guestID != "" {
		return domain.GuestOwner(guestID), true
	}
	return domain.Owner{}, false
}

// BodyLimitMiddleware caps request bodies at limit bytes.
func BodyLimitMiddleware(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AccessLogMiddleware writes one structured line per request.
func AccessLogMiddleware(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			if traceID := logger.TraceID(r.Context()); traceID != "" {
				w.Header().Set(HeaderTraceID, traceID)
			}
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			requestLogger(r, log).Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("query", r.URL.RawQuery),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("latency", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
			)
		})
	}
}

func requestLogger(r *http.Request, log *zap.Logger) *zap.Logger {
	l := logger.WithTrace(r.Context(), log)
	if requestID := middleware.GetReqID(r.Context()); requestID != "" {
		l = l.With(zap.String("request_id", requestID))
	}
	return l
}
