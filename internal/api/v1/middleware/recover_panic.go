package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"pageaudit/internal/metrics"
	"pageaudit/internal/util"
)

// RecoverPanic turns a handler panic into an errorHandler call. A panic
// with http.ErrAbortHandler is re-raised so net/http aborts the response.
func RecoverPanic(logger *zap.Logger, errorHandler func(http.ResponseWriter, *http.Request, error), next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			err := panicError(rec)
			if errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}

			metrics.PanicRecovered(r.URL.Path)
			logger.Error("Handler panicked",
				zap.Error(err),
				zap.ByteString("stack", debug.Stack()),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("client_ip", util.GetClientIPAddress(r)),
				zap.String("request_id", w.Header().Get(RequestIDHeader)),
			)

			w.Header().Set("Connection", "close")
			errorHandler(w, r, err)
		}()

		next.ServeHTTP(w, r)
	})
}

// panicError keeps error values intact so callers can match on them.
func panicError(rec any) error {
	if err, ok := rec.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", rec)
}
