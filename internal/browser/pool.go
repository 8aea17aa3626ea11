package browser

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"dealerscout/internal/domain"
	"dealerscout/internal/ports"
)

// Options configures the headless browser pool.
type Options struct {
	Headless    bool
	MaxPages    int
	ExecPath    string
	NavTimeout  time.Duration
	EvalTimeout time.Duration
}

// Pool owns a single headless Chromium process and hands out page sessions
// with bounded concurrency. The browser is launched lazily on the first
// Acquire and shut down by Close.
type Pool struct {
	opts  Options
	slots chan struct{}

	mu          sync.Mutex
	allocCtx    context.Context
	allocCancel context.CancelFunc
	browserCtx  context.Context
	browserStop context.CancelFunc
}

var _ ports.PagePool = (*Pool)(nil)

func NewPool(opts Options) *Pool {
	if opts.MaxPages <= 0 {
		opts.MaxPages = 3
	}
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = 30 * time.Second
	}
	if opts.EvalTimeout <= 0 {
		opts.EvalTimeout = 5 * time.Second
	}
	return &Pool{
		opts:  opts,
		slots: make(chan struct{}, opts.MaxPages),
	}
}

func (p *Pool) ensureBrowser() (context.Context, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.browserCtx != nil && p.browserCtx.Err() == nil {
		return p.browserCtx, nil
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", p.opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-first-run", true),
		chromedp.NoDefaultBrowserCheck,
		chromedp.WindowSize(1920, 1080),
	)
	if p.opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(p.opts.ExecPath))
	}

	p.allocCtx, p.allocCancel = chromedp.NewExecAllocator(context.Background(), allocOpts...)
	p.browserCtx, p.browserStop = chromedp.NewContext(p.allocCtx)

	// Start the browser process now so launch failures surface here rather
	// than on the first navigation.
	if err := chromedp.Run(p.browserCtx); err != nil {
		p.browserStop()
		p.allocCancel()
		p.browserCtx = nil
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	return p.browserCtx, nil
}

// Acquire blocks until a page slot is free, then opens a fresh tab with the
// stealth profile applied. The returned session must be released.
func (p *Pool) Acquire(ctx context.Context) (ports.PageSession, error) {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	parent, err := p.ensureBrowser()
	if err != nil {
		<-p.slots
		return nil, err
	}

	tabCtx, cancel := chromedp.NewContext(parent)
	vp := pickViewport()
	headers := make(network.Headers, len(extraHeaders))
	for k, v := range extraHeaders {
		headers[k] = v
	}

	err = chromedp.Run(tabCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(headers),
		emulation.SetUserAgentOverride(pickUserAgent()).WithAcceptLanguage("en-US,en;q=0.9"),
		chromedp.EmulateViewport(vp.Width, vp.Height),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := cdppage.AddScriptToEvaluateOnNewDocument(stealthJS).Do(ctx)
			return err
		}),
	)
	if err != nil {
		cancel()
		<-p.slots
		return nil, fmt.Errorf("prepare page: %w", err)
	}

	return &page{pool: p, ctx: tabCtx, cancel: cancel}, nil
}

// Close shuts down the browser process. Outstanding sessions become unusable.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.browserStop != nil {
		p.browserStop()
	}
	if p.allocCancel != nil {
		p.allocCancel()
	}
	p.browserCtx = nil
}

type page struct {
	pool    *Pool
	ctx     context.Context
	cancel  context.CancelFunc
	release sync.Once
}

// Navigate loads url, waits for the main response, and returns the rendered
// document with the response status and headers.
func (pg *page) Navigate(ctx context.Context, url string) (*domain.PageResult, error) {
	navCtx, cancel := context.WithTimeout(pg.ctx, pg.pool.opts.NavTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	resp, err := chromedp.RunResponse(navCtx, chromedp.Navigate(url))
	if err != nil {
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}

	var html string
	if err := chromedp.Run(navCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("read document %s: %w", url, err)
	}

	res := &domain.PageResult{URL: url, HTML: html, Header: http.Header{}}
	if resp != nil {
		res.Status = int(resp.Status)
		for k, v := range resp.Headers {
			res.Header.Set(k, fmt.Sprint(v))
		}
	}
	return res, nil
}

// DismissCookieConsent clicks through known consent banners. Best effort;
// reports whether a banner was clicked.
func (pg *page) DismissCookieConsent(ctx context.Context) bool {
	var clicked bool
	if err := pg.eval(ctx, cookieDismissJS, &clicked); err != nil {
		return false
	}
	return clicked
}

// DetectCAPTCHA reports whether the current document embeds a CAPTCHA widget.
func (pg *page) DetectCAPTCHA(ctx context.Context) bool {
	var found bool
	if err := pg.eval(ctx, captchaDetectJS, &found); err != nil {
		return false
	}
	return found
}

func (pg *page) eval(ctx context.Context, js string, out any) error {
	evalCtx, cancel := context.WithTimeout(pg.ctx, pg.pool.opts.EvalTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(evalCtx, chromedp.Evaluate(js, out))
}

// Release closes the tab and frees the capacity slot. Safe to call more than
// once.
func (pg *page) Release() {
	pg.release.Do(func() {
		pg.cancel()
		<-pg.pool.slots
	})
}
