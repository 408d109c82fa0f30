package probe

import (
	"context"
	"io"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"pageaudit/internal/log"
	"pageaudit/internal/model"
)

const (
	defaultWorkers      = 20
	defaultLimit        = 50
	defaultLinkTimeout  = 5 * time.Second
	defaultImageTimeout = 6 * time.Second

	// StatusTextFailed is reported for links that could not be reached at all.
	StatusTextFailed = "Error/Timeout"
)

var contentRangeTotal = regexp.MustCompile(`/(\d+)$`)

// Prober enriches scan results with network facts: HTTP status for links
// and byte size for images. The zero value is usable.
type Prober struct {
	Client       *http.Client
	Workers      int
	Limit        int
	LinkTimeout  time.Duration
	ImageTimeout time.Duration
	// Limiter paces outbound requests across all workers when set.
	Limiter *rate.Limiter
}

func (p *Prober) client() *http.Client {
	if p.Client != nil {
		return p.Client
	}
	return &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

func (p *Prober) limit() int {
	if p.Limit > 0 {
		return p.Limit
	}
	return defaultLimit
}

func (p *Prober) workers() int {
	if p.Workers > 0 {
		return p.Workers
	}
	return defaultWorkers
}

func orDefault(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}

type linkStatus struct {
	code int
	text string
}

// Links returns a copy of links where the first Limit unique http(s) hrefs
// carry Status, StatusText and IsBroken. Other links are returned untouched.
func (p *Prober) Links(ctx context.Context, links []model.Link) []model.Link {
	hrefs := make([]string, len(links))
	for i, l := range links {
		hrefs[i] = l.Href
	}
	targets := selectTargets(hrefs, p.limit())

	client := p.client()
	timeout := orDefault(p.LinkTimeout, defaultLinkTimeout)
	statuses := run(ctx, p.workers(), targets, func(ctx context.Context, href string) linkStatus {
		return p.checkLink(ctx, client, timeout, href)
	})

	out := make([]model.Link, len(links))
	copy(out, links)
	for i := range out {
		st, ok := statuses[out[i].Href]
		if !ok {
			continue
		}
		broken := st.code >= 400 || st.code == 0
		out[i].Status = st.code
		out[i].StatusText = st.text
		out[i].IsBroken = &broken
	}

	log.Logger.Debug("link probe finished",
		zap.Int("links", len(links)),
		zap.Int("probed", len(statuses)),
	)
	return out
}

// checkLink sends a HEAD request and falls back to GET when the server
// rejects HEAD or the request fails.
func (p *Prober) checkLink(ctx context.Context, client *http.Client, timeout time.Duration, href string) linkStatus {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := p.do(ctx, client, http.MethodHead, href, nil)
	if err != nil || resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented {
		if resp != nil {
			resp.Body.Close()
		}
		resp, err = p.do(ctx, client, http.MethodGet, href, nil)
	}
	if err != nil {
		log.Logger.Debug("link unreachable", zap.String("url", href), zap.Error(err))
		return linkStatus{text: StatusTextFailed}
	}
	defer resp.Body.Close()

	return linkStatus{code: resp.StatusCode, text: statusText(resp)}
}

// Images returns a copy of images with Size filled for data URIs and for
// the first Limit unique http(s) sources that report a length.
func (p *Prober) Images(ctx context.Context, images []model.ImageRecord) []model.ImageRecord {
	out := make([]model.ImageRecord, len(images))
	copy(out, images)

	srcs := make([]string, 0, len(images))
	for i := range out {
		if size, ok := DataURISize(out[i].Src); ok {
			out[i].Size = &size
			continue
		}
		srcs = append(srcs, out[i].Src)
	}
	targets := selectTargets(srcs, p.limit())

	client := p.client()
	timeout := orDefault(p.ImageTimeout, defaultImageTimeout)
	sizes := run(ctx, p.workers(), targets, func(ctx context.Context, src string) int64 {
		return p.imageSize(ctx, client, timeout, src)
	})

	for i := range out {
		if out[i].Size != nil {
			continue
		}
		if size, ok := sizes[out[i].Src]; ok && size > 0 {
			size := size
			out[i].Size = &size
		}
	}

	log.Logger.Debug("image probe finished",
		zap.Int("images", len(images)),
		zap.Int("probed", len(sizes)),
	)
	return out
}

// imageSize asks for the length with HEAD, then with a two-byte range
// request when HEAD does not report one. Zero means unknown.
func (p *Prober) imageSize(ctx context.Context, client *http.Client, timeout time.Duration, src string) int64 {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if resp, err := p.do(ctx, client, http.MethodHead, src, nil); err == nil {
		size := contentLength(resp)
		resp.Body.Close()
		if size > 0 {
			return size
		}
	}

	resp, err := p.do(ctx, client, http.MethodGet, src, http.Header{"Range": {"bytes=0-1"}})
	if err != nil {
		log.Logger.Debug("image size unavailable", zap.String("url", src), zap.Error(err))
		return 0
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<10))

	size := contentLength(resp)
	if total, ok := ContentRangeTotal(resp.Header.Get("Content-Range")); ok {
		size = total
	}
	return size
}

func (p *Prober) do(ctx context.Context, client *http.Client, method, target string, header http.Header) (*http.Response, error) {
	if p.Limiter != nil {
		if err := p.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range header {
		req.Header[k] = v
	}
	return client.Do(req)
}

func contentLength(resp *http.Response) int64 {
	if v := resp.Header.Get("Content-Length"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	if resp.ContentLength > 0 {
		return resp.ContentLength
	}
	return 0
}

func statusText(resp *http.Response) string {
	if _, text, ok := strings.Cut(resp.Status, " "); ok && text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

// ContentRangeTotal extracts the complete length from a Content-Range
// value such as "bytes 0-1/48213". An unknown length ("*") is not a match.
func ContentRangeTotal(value string) (int64, bool) {
	m := contentRangeTotal.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// DataURISize estimates the decoded byte size of a base64 data URI from
// the length of its payload.
func DataURISize(src string) (int64, bool) {
	if !strings.HasPrefix(src, "data:") {
		return 0, false
	}
	comma := strings.Index(src, ",")
	if comma < 0 {
		return 0, false
	}
	return int64(math.Round(float64(len(src)-comma-1) * 0.75)), true
}
