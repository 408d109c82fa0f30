package util

import (
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// GetClientIPAddress returns the first X-Forwarded-For hop, else the host
// part of RemoteAddr.
func GetClientIPAddress(r *http.Request) string {
	if forwardedIP := r.Header.Get("X-Forwarded-For"); forwardedIP != "" {
		first, _, _ := strings.Cut(forwardedIP, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		return host
	}
	return ip
}

var urlPattern = regexp.MustCompile(`^(https?://)?([a-zA-Z0-9.-]+)(:[0-9]+)?(/.*)?$`)

// NormalizeURL validates an http(s) address and returns it in canonical
// form. A bare host such as "example.com/docs" is taken as https.
func NormalizeURL(input string) (string, bool) {
	input = strings.TrimSpace(input)
	if input == "" || !urlPattern.MatchString(input) {
		return "", false
	}
	if !strings.Contains(input, "://") {
		input = "https://" + input
	}

	u, err := url.Parse(input)
	if err != nil || u.Host == "" || u.Hostname() == "" {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	return u.String(), true
}

var internalPrefixes = []string{"chrome://", "chrome-extension://", "about:", "edge://", "view-source:"}

// IsInternalPage reports whether input addresses a browser-internal page
// that cannot be audited.
func IsInternalPage(input string) bool {
	lower := strings.ToLower(strings.TrimSpace(input))
	for _, p := range internalPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}
