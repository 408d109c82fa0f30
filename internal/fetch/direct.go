package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	utls "github.com/refraction-networking/utls"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"pageaudit/internal/log"
)

const (
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	acceptHTML     = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"
	defaultMaxBody = 10 << 20
)

// chromeH1 builds Chrome's ClientHello with ALPN limited to http/1.1, since
// http.Transport cannot speak h2 over a utls connection. A fresh spec is
// built per connection because ApplyPreset keeps references into it.
func chromeH1() (*utls.ClientHelloSpec, error) {
	spec, err := utls.UTLSIdToSpec(utls.HelloChrome_Auto)
	if err != nil {
		return nil, err
	}
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*utls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	return &spec, nil
}

func dialChrome(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	host, _, _ := net.SplitHostPort(addr)
	spec, err := chromeH1()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("build tls preset: %w", err)
	}
	tlsConn := utls.UClient(conn, &utls.Config{ServerName: host}, utls.HelloCustom)
	if err := tlsConn.ApplyPreset(spec); err != nil {
		conn.Close()
		return nil, fmt.Errorf("apply tls preset: %w", err)
	}

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return tlsConn, nil
}

// NewBrowserClient returns an HTTP client whose TLS handshakes look like
// Chrome's. Plain http:// requests use an ordinary dialer.
func NewBrowserClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialTLSContext:      dialChrome,
		ForceAttemptHTTP2:   false,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("stopped after %d redirects", len(via))
			}
			return nil
		},
	}
}

// Direct requests the page itself with browser-like headers.
type Direct struct {
	Client  *http.Client
	MaxBody int64
}

func (d *Direct) Name() string { return "direct" }

func (d *Direct) Fetch(ctx context.Context, target string) (string, error) {
	return get(ctx, d.Client, target, acceptHTML, d.MaxBody)
}

// get performs a browser-like GET and returns the body. Status codes other
// than 2xx are errors.
func get(ctx context.Context, client *http.Client, target, accept string, maxBody int64) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if maxBody <= 0 {
		maxBody = defaultMaxBody
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{URL: target, Code: resp.StatusCode}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(raw)) > maxBody {
		raw = raw[:maxBody]
		log.Logger.Warn("Response body truncated",
			zap.String("url", target),
			zap.Int64("max_body", maxBody),
		)
	}

	// decode to UTF-8 from the Content-Type charset, a <meta> declaration
	// or the bytes themselves
	r, err := charset.NewReader(bytes.NewReader(raw), resp.Header.Get("Content-Type"))
	if err != nil {
		return string(raw), nil
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}
	return string(body), nil
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s", e.Code, strings.TrimSpace(e.URL))
}
