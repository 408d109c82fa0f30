// Package security audits the security-related response headers of a page.
package security

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"pageaudit/internal/log"
	"pageaudit/internal/model"
)

const (
	configured   = "Properly configured"
	minHSTSAge   = 31536000
	auditTimeout = 10 * time.Second
)

// check grades one header. missing is the advice when it is absent.
type check struct {
	header   string
	evaluate func(value string) (model.HeaderStatus, string)
	missing  string
}

var hstsMaxAge = regexp.MustCompile(`max-age=(\d+)`)

var checks = []check{
	{
		header:  "Content-Security-Policy",
		missing: "Add a Content-Security-Policy header to prevent XSS attacks",
		evaluate: func(v string) (model.HeaderStatus, string) {
			if strings.Contains(v, "'unsafe-inline'") || strings.Contains(v, "'unsafe-eval'") {
				return model.StatusWarn, "Remove 'unsafe-inline' and 'unsafe-eval' from CSP for better security"
			}
			return model.StatusPass, configured
		},
	},
	{
		header:  "Strict-Transport-Security",
		missing: "Add HSTS header: max-age=31536000; includeSubDomains; preload",
		evaluate: func(v string) (model.HeaderStatus, string) {
			if m := hstsMaxAge.FindStringSubmatch(v); m != nil {
				if age, err := strconv.Atoi(m[1]); err == nil && age < minHSTSAge {
					return model.StatusWarn, "Increase max-age to at least 31536000 (1 year)"
				}
			}
			if !strings.Contains(v, "includeSubDomains") {
				return model.StatusWarn, "Add includeSubDomains directive"
			}
			return model.StatusPass, configured
		},
	},
	{
		header:  "X-Frame-Options",
		missing: "Add X-Frame-Options: DENY or SAMEORIGIN to prevent clickjacking",
		evaluate: func(v string) (model.HeaderStatus, string) {
			switch strings.ToUpper(v) {
			case "DENY", "SAMEORIGIN":
				return model.StatusPass, configured
			}
			return model.StatusWarn, "Set to DENY or SAMEORIGIN"
		},
	},
	{
		header:  "X-Content-Type-Options",
		missing: "Add X-Content-Type-Options: nosniff to prevent MIME type sniffing",
		evaluate: func(v string) (model.HeaderStatus, string) {
			if strings.EqualFold(v, "nosniff") {
				return model.StatusPass, configured
			}
			return model.StatusWarn, "Set value to 'nosniff'"
		},
	},
	{
		header:  "Referrer-Policy",
		missing: "Add Referrer-Policy: strict-origin-when-cross-origin",
		evaluate: func(v string) (model.HeaderStatus, string) {
			if strings.EqualFold(v, "unsafe-url") {
				return model.StatusWarn, "Use strict-origin-when-cross-origin instead of unsafe-url"
			}
			return model.StatusPass, configured
		},
	},
	{
		header:  "Permissions-Policy",
		missing: "Add Permissions-Policy to restrict browser features (camera, microphone, geolocation)",
		evaluate: func(string) (model.HeaderStatus, string) {
			return model.StatusPass, configured
		},
	},
}

// Evaluate grades the six audited headers of a response.
func Evaluate(h http.Header) []model.SecurityHeader {
	out := make([]model.SecurityHeader, 0, len(checks))
	for _, c := range checks {
		result := model.SecurityHeader{Header: c.header}
		values := h.Values(c.header)
		if len(values) == 0 || values[0] == "" {
			result.Status = model.StatusFail
			result.Recommendation = c.missing
		} else {
			v := strings.Join(values, ", ")
			result.Value = &v
			result.Status, result.Recommendation = c.evaluate(v)
		}
		out = append(out, result)
	}
	return out
}

// Unavailable is the result set used when headers could not be read.
func Unavailable(reason string) []model.SecurityHeader {
	out := make([]model.SecurityHeader, 0, len(checks))
	for _, c := range checks {
		out = append(out, model.SecurityHeader{
			Header:         c.header,
			Status:         model.StatusWarn,
			Recommendation: reason,
		})
	}
	return out
}

// Auditor fetches a page's response headers and grades them.
type Auditor struct {
	Client *http.Client
}

func NewAuditor(client *http.Client) *Auditor {
	if client == nil {
		client = &http.Client{Timeout: auditTimeout}
	}
	return &Auditor{Client: client}
}

// Audit sends a HEAD request to pageURL. Any failure degrades to the
// Unavailable result set; the error is returned for logging only.
func (a *Auditor) Audit(ctx context.Context, pageURL string) ([]model.SecurityHeader, error) {
	if !strings.HasPrefix(strings.ToLower(pageURL), "http") {
		return Unavailable("Could not fetch headers: unsupported protocol"), fmt.Errorf("unsupported protocol: %s", pageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, pageURL, nil)
	if err != nil {
		return Unavailable("Could not fetch headers"), fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := a.Client.Do(req)
	if err != nil {
		log.Logger.Warn("security header fetch failed",
			zap.String("url", pageURL),
			zap.Error(err),
		)
		return Unavailable("Could not fetch headers"), fmt.Errorf("failed to fetch headers: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			log.Logger.Warn("failed to close response body", zap.Error(cerr))
		}
	}()

	return Evaluate(resp.Header), nil
}
