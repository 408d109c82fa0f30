package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Proxy is a public CORS proxy that returns a page on the caller's behalf.
// The target URL is query-escaped and appended to Endpoint. When
// ContentsField is set the proxy answers with a JSON object and the page
// is the string under that key.
type Proxy struct {
	Label         string
	Endpoint      string
	ContentsField string
	Client        *http.Client
	MaxBody       int64
}

func (p *Proxy) Name() string { return p.Label }

func (p *Proxy) Fetch(ctx context.Context, target string) (string, error) {
	body, err := get(ctx, p.Client, p.Endpoint+url.QueryEscape(target), "*/*", p.MaxBody)
	if err != nil {
		return "", err
	}
	if p.ContentsField == "" {
		return body, nil
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return "", fmt.Errorf("failed to decode proxy response: %w", err)
	}
	contents, _ := payload[p.ContentsField].(string)
	return contents, nil
}

const (
	AllOrigins = "allorigins"
	CodeTabs   = "codetabs"
	CORSProxy  = "corsproxy"
)

// DefaultProxies is the fallback order used when none is configured.
var DefaultProxies = []string{AllOrigins, CodeTabs, CORSProxy}

// NewProxy returns one of the known public proxies by name.
func NewProxy(name string, client *http.Client, maxBody int64) (*Proxy, error) {
	p := &Proxy{Label: name, Client: client, MaxBody: maxBody}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case AllOrigins:
		p.Endpoint = "https://api.allorigins.win/get?url="
		p.ContentsField = "contents"
	case CodeTabs:
		p.Endpoint = "https://api.codetabs.com/v1/proxy?quest="
	case CORSProxy:
		p.Endpoint = "https://corsproxy.io/?"
	default:
		return nil, fmt.Errorf("unknown proxy %q", name)
	}
	return p, nil
}
