package router

import (
	"net/http"

	"pageaudit/internal/api/v1/handler"
	"pageaudit/internal/api/v1/middleware"
	"pageaudit/internal/config"
	"pageaudit/internal/log"
	"pageaudit/pkg/response"
)

const (
	appName    = "pageaudit"
	apiVersion = "v1"
	BasePath   = "/" + appName + "/api/" + apiVersion
)

func New(h *handler.Handler, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	protect := func(next http.Handler) http.Handler { return next }
	if cfg.AuthEnabled() {
		protect = middleware.BasicAuth(cfg.BasicAuthUser, cfg.BasicAuthPass)
	}

	register := func(method, path string, hf http.HandlerFunc, public bool) {
		var next http.Handler = hf
		if !public {
			next = protect(next)
		}
		mux.Handle(method+" "+BasePath+path, next)
	}

	register(http.MethodGet, "/health", handler.HealthCheckHandler, true)
	register(http.MethodGet, "/analyze", h.Analyze, false)
	register(http.MethodPost, "/analyze/html", h.AnalyzeHTML, false)

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	return middleware.RecoverPanic(
		log.Logger,
		func(w http.ResponseWriter, r *http.Request, err error) {
			response.Error(w, http.StatusInternalServerError, "Internal Server Error")
		},
		middleware.SecureHeaders(
			middleware.Logging(
				middleware.Metrics(
					middleware.Compression(
						middleware.CORS(
							limiter.Handler(mux),
						),
					),
				),
			),
		),
	)
}

func NewMetricsRouter() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", handler.MetricsHandler())
	return mux
}
