package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"pageaudit/internal/metrics"
)

const unmatchedRoute = "unmatched"

// Metrics records requests by the ServeMux pattern that served them, so
// path parameters and unknown paths cannot grow the label set.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := newStatusWriter(w)

		next.ServeHTTP(sw, r)

		metrics.ObserveRequest(routeLabel(r), r.Method, strconv.Itoa(sw.statusCode), time.Since(start))
	})
}

// routeLabel drops the method from "GET /path" patterns; the method is its
// own label.
func routeLabel(r *http.Request) string {
	if r.Pattern == "" {
		return unmatchedRoute
	}
	if _, path, ok := strings.Cut(r.Pattern, " "); ok {
		return path
	}
	return r.Pattern
}
