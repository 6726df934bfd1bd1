package controller

import (
	"context"
	"librarian/pkg/logger"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CtxKey is a string-based type used for storing values in request contexts.
type CtxKey string

// RequestIDKey is the context key under which the current request ID is stored.
const RequestIDKey CtxKey = "request_id"

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-Id"

// RequestID returns the id WithLogger assigned to the request of ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)

	return id
}

// AccessLogOptions configures WithLogger.
type AccessLogOptions struct {
	// Routes resolves the pattern serving each request. It is logged as
	// "route" and attached to the request logger.
	Routes RouteResolver
	// Quiet lists path prefixes, such as the metrics endpoint, whose
	// successful requests are logged at debug level only.
	Quiet []string
}

// WithLogger returns a middleware that gives every request an id (taken from
// X-Request-Id when the client sent one) and a logger carrying that id and the
// matched route, echoes the id back in the response and writes one access log
// entry when the handler returns. Server errors are logged at error level.
func WithLogger(opts AccessLogOptions, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		route := RouteOf(opts.Routes, r)
		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		ctx = logger.WithFields(ctx, zap.String(string(RequestIDKey), requestID), zap.String("route", route))

		start := time.Now()
		rec := newStatusRecorder(w)
		next.ServeHTTP(rec, r.WithContext(ctx))

		level := zapcore.InfoLevel
		switch {
		case rec.status >= http.StatusInternalServerError:
			level = zapcore.ErrorLevel
		case quiet(opts.Quiet, r.URL.Path):
			level = zapcore.DebugLevel
		}

		logger.Get(ctx).Log(level, "request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status_code", rec.status),
			zap.Int("bytes", rec.bytes),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", ClientIP(r)),
			zap.String("user_agent", r.UserAgent()),
		)
	})
}

func quiet(prefixes []string, path string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	return false
}
