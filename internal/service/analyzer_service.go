package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"pageaudit/internal/analyzer/fonts"
	"pageaudit/internal/analyzer/images"
	"pageaudit/internal/analyzer/page"
	"pageaudit/internal/analyzer/schema"
	"pageaudit/internal/analyzer/tech"
	"pageaudit/internal/browser"
	"pageaudit/internal/cache"
	"pageaudit/internal/config"
	"pageaudit/internal/dom"
	"pageaudit/internal/fetch"
	"pageaudit/internal/log"
	"pageaudit/internal/metrics"
	"pageaudit/internal/model"
	"pageaudit/internal/probe"
	"pageaudit/internal/security"
	"pageaudit/internal/util"
)

var (
	ErrInvalidURL    = errors.New("invalid URL: expected an absolute http(s) address")
	ErrInternalPage  = errors.New("browser-internal pages cannot be analyzed")
	ErrEmptyDocument = errors.New("empty HTML document")
	ErrUnknownMode   = errors.New("unknown mode")
)

type Mode string

const (
	ModeAuto  Mode = "auto"
	ModeLive  Mode = "live"
	ModeFetch Mode = "fetch"
	ModeHTML  Mode = "html"
)

// ParseMode accepts auto, live and fetch. An empty string is auto.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeAuto, nil
	case ModeAuto, ModeLive, ModeFetch:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

const notAudited = "Not audited: response headers are only checked when enrichment is enabled"

type PageFetcher interface {
	Fetch(ctx context.Context, target string) (*fetch.Page, error)
	StyleSheets(ctx context.Context, hrefs []string) map[string]string
}

type PageCapturer interface {
	Enabled() bool
	Capture(ctx context.Context, target string) (*dom.Snapshot, error)
}

type HeaderAuditor interface {
	Audit(ctx context.Context, pageURL string) ([]model.SecurityHeader, error)
}

type Enricher interface {
	Links(ctx context.Context, links []model.Link) []model.Link
	Images(ctx context.Context, images []model.ImageRecord) []model.ImageRecord
}

// Analyzer turns a URL or an HTML document into an Audit.
type Analyzer struct {
	Fetcher       PageFetcher
	Browser       PageCapturer
	Security      HeaderAuditor
	Prober        Enricher
	Cache         *cache.Store
	Fingerprinter tech.Fingerprinter
}

// New wires the production collaborators from configuration.
func New(cfg *config.Config) (*Analyzer, error) {
	fetcher, err := fetch.New(fetch.Options{
		Timeout:        cfg.FetchTimeout,
		MaxBody:        cfg.MaxBodyBytes,
		Proxies:        cfg.Proxies(),
		MaxStyleSheets: cfg.MaxStyleSheets,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure fetcher: %w", err)
	}
	fetcher.Observe = metrics.ObserveFetch

	probeClient := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	workers := cfg.ProbeWorkers
	if workers <= 0 {
		workers = 1
	}

	return &Analyzer{
		Fetcher: fetcher,
		Browser: browser.New(browser.Options{
			Enabled:  cfg.BrowserEnabled,
			Timeout:  cfg.BrowserTimeout,
			ExecPath: cfg.BrowserBin,
			Globals:  tech.ProbePaths(),
		}),
		Security: security.NewAuditor(nil),
		Prober: &probe.Prober{
			Client:       probeClient,
			Workers:      workers,
			Limit:        cfg.ProbeLimit,
			LinkTimeout:  cfg.LinkProbeTimeout,
			ImageTimeout: cfg.ImageProbeTimeout,
			Limiter:      rate.NewLimiter(rate.Limit(workers*5), workers),
		},
		Cache: cache.New(cfg.CacheTTL),
		Fingerprinter: tech.Fingerprinter{
			OnFailure: func(name string, recovered any) {
				metrics.DetectorFailed(name, recovered)
				log.Logger.Error("technology detector panicked",
					zap.String("detector", name),
					zap.Any("error", recovered),
				)
			},
		},
	}, nil
}

// Close releases the shared browser, if one was started.
func (a *Analyzer) Close() {
	if c, ok := a.Browser.(*browser.Capturer); ok {
		c.Close()
	}
}

func checkURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if util.IsInternalPage(raw) {
		return "", ErrInternalPage
	}
	target, ok := util.NormalizeURL(raw)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return target, nil
}

// Analyze audits the page at rawURL. ModeAuto captures the page live when
// a browser is available and falls back to fetching the HTML.
func (a *Analyzer) Analyze(ctx context.Context, rawURL string, mode Mode, enrich bool) (*model.Audit, error) {
	target, err := checkURL(rawURL)
	if err != nil {
		return nil, err
	}
	if mode == "" {
		mode = ModeAuto
	}

	key := cache.Key(target, string(mode), enrich)
	if audit, ok := a.Cache.Get(key); ok {
		metrics.ObserveAudit(string(mode), metrics.OutcomeCached, 0)
		log.Logger.Debug("serving cached audit", zap.String("url", target), zap.String("mode", string(mode)))
		return audit, nil
	}

	start := time.Now()
	audit, err := a.analyze(ctx, target, mode, enrich)
	if err != nil {
		metrics.ObserveAudit(string(mode), metrics.OutcomeError, time.Since(start))
		return nil, err
	}
	metrics.ObserveAudit(string(mode), metrics.OutcomeOK, time.Since(start))

	a.Cache.Set(key, audit)

	log.Logger.Info("page analyzed",
		zap.String("id", audit.ID),
		zap.String("url", target),
		zap.String("mode", audit.Mode),
		zap.String("source", audit.Source),
		zap.Duration("elapsed", time.Since(start)),
	)
	return audit, nil
}

func (a *Analyzer) analyze(ctx context.Context, target string, mode Mode, enrich bool) (*model.Audit, error) {
	switch mode {
	case ModeLive:
		return a.analyzeLive(ctx, target, enrich)
	case ModeFetch:
		return a.analyzeFetched(ctx, target, enrich)
	case ModeAuto:
		if a.Browser == nil || !a.Browser.Enabled() {
			return a.analyzeFetched(ctx, target, enrich)
		}
		audit, err := a.analyzeLive(ctx, target, enrich)
		if err == nil || ctx.Err() != nil {
			return audit, err
		}
		log.Logger.Warn("live capture failed, falling back to fetch",
			zap.String("url", target),
			zap.Error(err),
		)
		return a.analyzeFetched(ctx, target, enrich)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
}

func (a *Analyzer) analyzeLive(ctx context.Context, target string, enrich bool) (*model.Audit, error) {
	if a.Browser == nil {
		return nil, browser.ErrDisabled
	}
	snap, err := a.Browser.Capture(ctx, target)
	if err != nil {
		return nil, err
	}
	doc, err := dom.NewLive(snap)
	if err != nil {
		return nil, err
	}

	audit := a.Scan(doc, doc.Probe())
	audit.Mode = string(ModeLive)
	audit.Source = "browser"
	a.enrich(ctx, audit, target, enrich)
	return audit, nil
}

func (a *Analyzer) analyzeFetched(ctx context.Context, target string, enrich bool) (*model.Audit, error) {
	if a.Fetcher == nil {
		return nil, errors.New("no fetcher configured")
	}
	pg, err := a.Fetcher.Fetch(ctx, target)
	if err != nil {
		return nil, err
	}

	doc, err := dom.ParseString(pg.HTML, target)
	if err != nil {
		return nil, err
	}
	if hrefs := doc.LinkedStyleSheets(); len(hrefs) > 0 {
		var opts []dom.Option
		for href, css := range a.Fetcher.StyleSheets(ctx, hrefs) {
			opts = append(opts, dom.WithStyleSheet(href, css))
		}
		if len(opts) > 0 {
			if withSheets, err := dom.ParseString(pg.HTML, target, opts...); err == nil {
				doc = withSheets
			}
		}
	}

	audit := a.Scan(doc, dom.NewScriptProbe(doc))
	audit.Mode = string(ModeFetch)
	audit.Source = pg.Source
	a.enrich(ctx, audit, target, enrich)
	return audit, nil
}

// AnalyzeHTML audits a document supplied by the caller. pageURL is
// optional; when given, relative references resolve against it and
// enrichment may contact it.
func (a *Analyzer) AnalyzeHTML(ctx context.Context, pageURL, markup string, enrich bool) (*model.Audit, error) {
	if strings.TrimSpace(markup) == "" {
		return nil, ErrEmptyDocument
	}
	if pageURL != "" {
		var err error
		if pageURL, err = checkURL(pageURL); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	doc, err := dom.ParseString(markup, pageURL)
	if err != nil {
		metrics.ObserveAudit(string(ModeHTML), metrics.OutcomeError, time.Since(start))
		return nil, err
	}

	audit := a.Scan(doc, dom.NewScriptProbe(doc))
	audit.Mode = string(ModeHTML)
	audit.Source = "input"
	a.enrich(ctx, audit, pageURL, enrich && pageURL != "")

	metrics.ObserveAudit(string(ModeHTML), metrics.OutcomeOK, time.Since(start))
	log.Logger.Info("document analyzed",
		zap.String("id", audit.ID),
		zap.String("url", pageURL),
		zap.Int("content_length", len(markup)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return audit, nil
}

// Scan runs the detectors and page extraction over doc concurrently and
// assembles the audit. It does no I/O.
func (a *Analyzer) Scan(doc dom.Document, env dom.Probe) *model.Audit {
	var (
		info     model.PageInfo
		headings []model.Heading
		links    []model.Link
		social   model.Social
		imgs     []model.ImageRecord
		techs    []model.TechSignature
		fontRecs []model.FontRecord
		schemas  []model.SchemaRecord
		videos   []model.Video
	)

	var wg sync.WaitGroup
	wg.Add(5)

	go func() {
		defer wg.Done()
		info = page.Info(doc)
		headings = page.Headings(doc)
		links = page.Links(doc)
		social = page.Social(doc)
	}()

	go func() {
		defer wg.Done()
		imgs = images.Scan(doc)
	}()

	go func() {
		defer wg.Done()
		techs = a.Fingerprinter.Detect(doc, env)
	}()

	go func() {
		defer wg.Done()
		fontRecs = fonts.Resolve(doc)
	}()

	go func() {
		defer wg.Done()
		schemas = schema.Validate(doc)
		videos = page.Videos(doc, schemas)
	}()

	wg.Wait()

	return &model.Audit{
		ID:                uuid.NewString(),
		URL:               info.URL,
		Title:             info.Title,
		TitleLength:       info.TitleLength,
		Description:       info.Description,
		DescriptionLength: info.DescriptionLength,
		Canonical:         info.Canonical,
		Robots:            info.Robots,
		Author:            info.Author,
		Language:          info.Language,
		Charset:           info.Charset,
		Viewport:          info.Viewport,
		Headers:           nonNil(headings),
		Images:            nonNil(imgs),
		Links:             nonNil(links),
		Social:            social,
		Tech:              nonNil(techs),
		Security:          security.Unavailable(notAudited),
		Fonts:             nonNil(fontRecs),
		Videos:            nonNil(videos),
		Schemas:           nonNil(schemas),
	}
}

// enrich adds the network facts: security headers, link status and image
// sizes. Failures degrade the affected section only.
func (a *Analyzer) enrich(ctx context.Context, audit *model.Audit, target string, enabled bool) {
	if !enabled {
		return
	}

	var (
		headers []model.SecurityHeader
		links   []model.Link
		imgs    []model.ImageRecord
	)

	g, ctx := errgroup.WithContext(ctx)
	if a.Security != nil {
		g.Go(func() error {
			var err error
			headers, err = a.Security.Audit(ctx, target)
			if err != nil {
				log.Logger.Warn("security audit degraded", zap.String("url", target), zap.Error(err))
			}
			return nil
		})
	}
	if a.Prober != nil {
		g.Go(func() error {
			links = a.Prober.Links(ctx, audit.Links)
			return nil
		})
		g.Go(func() error {
			imgs = a.Prober.Images(ctx, audit.Images)
			return nil
		})
	}
	_ = g.Wait()

	if headers != nil {
		audit.Security = headers
	}
	if links != nil {
		audit.Links = links
	}
	if imgs != nil {
		audit.Images = imgs
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
