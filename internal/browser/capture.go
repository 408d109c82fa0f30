package browser

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"pageaudit/internal/dom"
	"pageaudit/internal/log"
)

// ErrDisabled is returned by Capture when live capture is not enabled.
var ErrDisabled = errors.New("browser capture disabled")

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

//go:embed capture.js
var captureJS string

type Options struct {
	Enabled  bool
	Timeout  time.Duration
	ExecPath string
	// Globals are the window paths evaluated in the page.
	Globals []string
}

// Capturer renders pages in headless Chrome and snapshots their DOM and
// runtime state. One browser process is started lazily and shared; every
// capture runs in its own tab.
type Capturer struct {
	opts   Options
	script string

	mu          sync.Mutex
	browserCtx  context.Context
	cancelAlloc context.CancelFunc
	cancelBrows context.CancelFunc
}

func New(opts Options) *Capturer {
	if opts.Timeout <= 0 {
		opts.Timeout = 45 * time.Second
	}
	return &Capturer{opts: opts, script: BuildScript(opts.Globals)}
}

// BuildScript returns the capture expression with the global paths inlined.
func BuildScript(globals []string) string {
	if globals == nil {
		globals = []string{}
	}
	paths, _ := json.Marshal(globals)
	return strings.Replace(captureJS, "__GLOBALS__", string(paths), 1)
}

func (c *Capturer) Enabled() bool {
	return c != nil && c.opts.Enabled
}

func (c *Capturer) browser() (context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.browserCtx != nil {
		return c.browserCtx, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgent),
	)
	if c.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.opts.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	c.browserCtx = browserCtx
	c.cancelAlloc = cancelAlloc
	c.cancelBrows = cancelBrowser
	log.Logger.Info("headless browser started")
	return browserCtx, nil
}

// Capture navigates to target, waits for the body and evaluates the
// capture script.
func (c *Capturer) Capture(ctx context.Context, target string) (*dom.Snapshot, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}

	browserCtx, err := c.browser()
	if err != nil {
		return nil, err
	}

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, c.opts.Timeout)
	defer cancelTimeout()

	// propagate the caller's cancellation into the tab
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	start := time.Now()
	var snap dom.Snapshot
	err = chromedp.Run(tabCtx,
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(c.script, &snap),
	)
	if err != nil {
		log.Logger.Error("failed to capture page",
			zap.String("url", target),
			zap.Error(err),
		)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to capture page: %w", err)
	}

	log.Logger.Info("captured live page",
		zap.String("url", target),
		zap.Int("images", len(snap.Images)),
		zap.Int("stylesheets", len(snap.StyleSheets)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &snap, nil
}

// Close stops the shared browser.
func (c *Capturer) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.browserCtx == nil {
		return
	}
	c.cancelBrows()
	c.cancelAlloc()
	c.browserCtx = nil
}
