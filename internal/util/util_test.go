package util

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"Empty", "", "", false},
		{"HTTPS", "https://example.com/path?q=1", "https://example.com/path?q=1", true},
		{"HTTP with port", "http://localhost:8080/", "http://localhost:8080/", true},
		{"No scheme", "example.com/docs", "https://example.com/docs", true},
		{"Trimmed", "  https://example.com  ", "https://example.com", true},
		{"FTP", "ftp://example.com", "", false},
		{"Spaces", "https://exa mple.com", "", false},
		{"Port only", "https://:8080/", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeURL(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsInternalPage(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"chrome://settings", true},
		{"CHROME-EXTENSION://abc/popup.html", true},
		{"about:blank", true},
		{" edge://flags", true},
		{"https://example.com/about:blank", false},
		{"https://example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, IsInternalPage(tt.input))
		})
	}
}

func TestGetClientIPAddress(t *testing.T) {
	tests := []struct {
		name      string
		forwarded string
		remote    string
		want      string
	}{
		{"Remote address", "", "10.0.0.1:5555", "10.0.0.1"},
		{"Forwarded chain", "203.0.113.9, 10.0.0.2", "10.0.0.1:5555", "203.0.113.9"},
		{"Bare remote", "", "10.0.0.1", "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			assert.Equal(t, tt.want, GetClientIPAddress(r))
		})
	}
}
