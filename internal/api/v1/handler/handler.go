package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"pageaudit/internal/browser"
	"pageaudit/internal/fetch"
	"pageaudit/internal/log"
	"pageaudit/internal/model"
	"pageaudit/internal/report"
	"pageaudit/internal/service"
	"pageaudit/pkg/response"
)

// Auditor is the part of the analyzer service the handlers need.
type Auditor interface {
	Analyze(ctx context.Context, rawURL string, mode service.Mode, enrich bool) (*model.Audit, error)
	AnalyzeHTML(ctx context.Context, pageURL, markup string, enrich bool) (*model.Audit, error)
}

type Handler struct {
	svc     Auditor
	maxBody int64
}

// New returns handlers backed by svc. maxBody caps POSTed documents.
func New(svc Auditor, maxBody int64) *Handler {
	if maxBody <= 0 {
		maxBody = 10 << 20
	}
	return &Handler{svc: svc, maxBody: maxBody}
}

func HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	response.Success(w, map[string]string{"status": "ok"}, "")
}

// Analyze handles GET /analyze?url=&mode=&enrich=&format=.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	target := q.Get("url")
	if target == "" {
		response.Error(w, http.StatusBadRequest, "missing 'url' query parameter")
		return
	}

	mode, err := service.ParseMode(q.Get("mode"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	enrich, err := parseEnrich(q.Get("enrich"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	format, err := report.ParseFormat(q.Get("format"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	audit, err := h.svc.Analyze(r.Context(), target, mode, enrich)
	if err != nil {
		writeError(w, target, err)
		return
	}
	writeAudit(w, format, audit)
}

type htmlRequest struct {
	URL    string `json:"url"`
	HTML   string `json:"html"`
	Enrich *bool  `json:"enrich"`
}

// AnalyzeHTML handles POST /analyze/html with a JSON body carrying the
// markup and, optionally, the URL it was served from.
func (h *Handler) AnalyzeHTML(w http.ResponseWriter, r *http.Request) {
	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	var req htmlRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		if errors.Is(err, io.EOF) {
			response.Error(w, http.StatusBadRequest, "missing request body")
			return
		}
		response.Error(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	enrich := true
	if req.Enrich != nil {
		enrich = *req.Enrich
	}

	audit, err := h.svc.AnalyzeHTML(r.Context(), req.URL, req.HTML, enrich)
	if err != nil {
		writeError(w, req.URL, err)
		return
	}
	writeAudit(w, format, audit)
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

func parseEnrich(v string) (bool, error) {
	if v == "" {
		return true, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid 'enrich' value %q", v)
	}
	return b, nil
}

func writeAudit(w http.ResponseWriter, format report.Format, audit *model.Audit) {
	if format == report.FormatJSON {
		response.Success(w, audit, "")
		return
	}
	response.Render(w, format.ContentType(), func(out io.Writer) error {
		return report.Write(out, format, audit, false)
	})
}

func writeError(w http.ResponseWriter, target string, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		log.Logger.Warn("analysis failed",
			zap.String("url", target),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	msg := err.Error()
	if status != http.StatusBadRequest {
		msg = "failed to analyze page: " + msg
	}
	response.Error(w, status, msg)
}

// StatusFor maps an analysis error to the HTTP status returned to clients.
func StatusFor(err error) int {
	var netErr net.Error
	switch {
	case errors.Is(err, service.ErrInvalidURL),
		errors.Is(err, service.ErrInternalPage),
		errors.Is(err, service.ErrEmptyDocument),
		errors.Is(err, service.ErrUnknownMode):
		return http.StatusBadRequest
	case errors.Is(err, browser.ErrDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	case errors.Is(err, fetch.ErrAllSourcesFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
