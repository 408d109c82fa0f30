package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pageaudit/internal/log"
	"pageaudit/internal/util"
)

const RequestIDHeader = "X-Request-ID"

// Logging tags every response with a request ID (an incoming one is kept)
// and writes one access log line per request.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		sw := newStatusWriter(w)
		next.ServeHTTP(sw, r)

		log.Logger.Info("HTTP Request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("ip", util.GetClientIPAddress(r)),
			zap.Int("status", sw.statusCode),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
