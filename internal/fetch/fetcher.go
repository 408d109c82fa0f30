package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pageaudit/internal/log"
)

// ErrAllSourcesFailed is returned when neither the direct request nor any
// proxy produced a non-empty page. It wraps the last source's error.
var ErrAllSourcesFailed = errors.New("all sources failed")

var errEmptyBody = errors.New("empty content received")

// Source returns the HTML of a page.
type Source interface {
	Name() string
	Fetch(ctx context.Context, target string) (string, error)
}

// Page is a fetched document and the source that served it.
type Page struct {
	URL    string
	HTML   string
	Source string
}

type Options struct {
	Timeout        time.Duration
	MaxBody        int64
	Proxies        []string
	MaxStyleSheets int
}

// Fetcher tries its sources in order and returns the first non-empty page.
type Fetcher struct {
	Sources        []Source
	Client         *http.Client
	MaxBody        int64
	MaxStyleSheets int
	// Observe, when set, is told the outcome of every source attempt.
	Observe func(source string, err error)
}

// New builds the standard chain: a direct request with a Chrome TLS
// fingerprint, then the named proxies (DefaultProxies when empty).
func New(opts Options) (*Fetcher, error) {
	client := NewBrowserClient(opts.Timeout)

	names := opts.Proxies
	if len(names) == 0 {
		names = DefaultProxies
	}

	sources := []Source{&Direct{Client: client, MaxBody: opts.MaxBody}}
	for _, name := range names {
		p, err := NewProxy(name, client, opts.MaxBody)
		if err != nil {
			return nil, err
		}
		sources = append(sources, p)
	}

	return &Fetcher{
		Sources:        sources,
		Client:         client,
		MaxBody:        opts.MaxBody,
		MaxStyleSheets: opts.MaxStyleSheets,
	}, nil
}

// Fetch returns the page from the first source that succeeds with a
// non-blank body.
func (f *Fetcher) Fetch(ctx context.Context, target string) (*Page, error) {
	var lastErr error
	for _, src := range f.Sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		body, err := src.Fetch(ctx, target)
		if err == nil && strings.TrimSpace(body) == "" {
			err = errEmptyBody
		}
		if f.Observe != nil {
			f.Observe(src.Name(), err)
		}
		if err != nil {
			log.Logger.Warn("fetch source failed",
				zap.String("url", target),
				zap.String("source", src.Name()),
				zap.Error(err),
			)
			lastErr = fmt.Errorf("%s: %w", src.Name(), err)
			continue
		}

		log.Logger.Info("successfully fetched page",
			zap.String("url", target),
			zap.String("source", src.Name()),
			zap.Int("content_length", len(body)),
		)
		return &Page{URL: target, HTML: body, Source: src.Name()}, nil
	}

	if lastErr == nil {
		lastErr = errors.New("no sources configured")
	}
	return nil, fmt.Errorf("%w: %w", ErrAllSourcesFailed, lastErr)
}

// StyleSheets loads the given stylesheet URLs directly, at most
// MaxStyleSheets of them, and returns the texts that loaded. Failures are
// logged and leave the sheet out.
func (f *Fetcher) StyleSheets(ctx context.Context, hrefs []string) map[string]string {
	if f.MaxStyleSheets > 0 && len(hrefs) > f.MaxStyleSheets {
		hrefs = hrefs[:f.MaxStyleSheets]
	}

	var mu sync.Mutex
	out := make(map[string]string, len(hrefs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, href := range hrefs {
		g.Go(func() error {
			css, err := get(ctx, f.Client, href, "text/css,*/*;q=0.1", f.MaxBody)
			if err != nil {
				log.Logger.Debug("stylesheet not loaded", zap.String("href", href), zap.Error(err))
				return nil
			}
			mu.Lock()
			out[href] = css
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return out
}
