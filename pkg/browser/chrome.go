package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"igstories/pkg/config"
	"igstories/pkg/logger"
	"igstories/pkg/retry"
)

// Chrome implements Surface on a chromedp-controlled Chrome tab.
type Chrome struct {
	ctx     context.Context
	cancels []context.CancelFunc
	logger  logger.Logger
}

// AllocatorOptions builds the exec allocator options for cfg.
func AllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", cfg.Headless),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("mute-audio", true),
		chromedp.UserAgent(cfg.UserAgent),
	)
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}

// startup holds the steps of one launch attempt
type startup struct {
	allocate func(ctx context.Context) error
	verify   func(ctx context.Context) error
	backoff  retry.BackoffStrategy
}

var defaultStartup = startup{
	allocate: func(ctx context.Context) error { return chromedp.Run(ctx) },
	verify: func(ctx context.Context) error {
		return chromedp.Run(ctx, chromedp.Navigate("about:blank"))
	},
	backoff: &retry.ConstantBackoff{Delay: 2 * time.Second},
}

// Launch starts Chrome and opens one tab. The returned Chrome must be closed.
// Each attempt gets its own browser process because a cold start can miss
// the first devtools handshake.
func Launch(parent context.Context, cfg config.BrowserConfig, log logger.Logger) (*Chrome, error) {
	return launch(parent, cfg, log, defaultStartup)
}

func launch(parent context.Context, cfg config.BrowserConfig, log logger.Logger, st startup) (*Chrome, error) {
	timeout := cfg.StartupTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c, err := retry.DoWithResult(parent, func(ctx context.Context) (*Chrome, error) {
		return startTab(ctx, AllocatorOptions(cfg), timeout, log, st)
	}, &retry.Config{
		MaxAttempts: 3,
		Backoff:     st.backoff,
		RetryIf:     func(err error) bool { return parent.Err() == nil },
		Logger:      log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start chrome: %w", err)
	}

	log.InfoWithFields("Browser started", map[string]interface{}{
		"headless": cfg.Headless,
	})
	return c, nil
}

// startTab allocates a browser and verifies its first tab. The browser lives
// as long as the context of the first Run on the tab, so allocation runs on
// the tab context itself and only verification gets a deadline.
func startTab(parent context.Context, opts []chromedp.ExecAllocatorOption, timeout time.Duration, log logger.Logger, st startup) (*Chrome, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...interface{}) {
			log.Debug(fmt.Sprintf("chromedp: "+format, args...))
		}),
	)
	c := &Chrome{
		ctx:     tabCtx,
		cancels: []context.CancelFunc{tabCancel, allocCancel},
		logger:  log,
	}

	hung := time.AfterFunc(timeout, tabCancel)
	err := st.allocate(tabCtx)
	if !hung.Stop() {
		c.Close()
		return nil, fmt.Errorf("browser did not start within %s: %w", timeout, context.DeadlineExceeded)
	}
	if err != nil {
		c.Close()
		return nil, err
	}

	verifyCtx, cancel := context.WithTimeout(tabCtx, timeout)
	defer cancel()
	if err := st.verify(verifyCtx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// Close terminates the tab and the browser process.
func (c *Chrome) Close() {
	for _, cancel := range c.cancels {
		cancel()
	}
	c.cancels = nil
}

// run executes actions on the tab, bounded by the caller's ctx as well.
func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	if c.cancels == nil {
		return ErrClosed
	}
	runCtx, cancel := context.WithCancel(c.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	return c.run(ctx, chromedp.Navigate(url))
}

func (c *Chrome) Reload(ctx context.Context) error {
	return c.run(ctx, chromedp.Reload())
}

func (c *Chrome) CurrentURL(ctx context.Context) (string, error) {
	var url string
	err := c.run(ctx, chromedp.Location(&url))
	return url, err
}

func (c *Chrome) Evaluate(ctx context.Context, script string, out interface{}) error {
	awaitPromise := func(p *cdpruntime.EvaluateParams) *cdpruntime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}
	return c.run(ctx, chromedp.Evaluate(script, out, awaitPromise))
}

func (c *Chrome) Find(ctx context.Context, q Query) ([]Element, error) {
	by := chromedp.ByQueryAll
	if q.Kind == XPath {
		by = chromedp.BySearch
	}

	var nodes []*cdp.Node
	if err := c.run(ctx, chromedp.Nodes(q.Expr, &nodes, by, chromedp.AtLeast(0))); err != nil {
		return nil, err
	}

	elements := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		elements = append(elements, Element{ID: int64(n.NodeID), Query: q})
	}
	return elements, nil
}

func nodeIDs(el Element) []cdp.NodeID {
	return []cdp.NodeID{cdp.NodeID(el.ID)}
}

func (c *Chrome) Text(ctx context.Context, el Element) (string, error) {
	var text string
	err := c.run(ctx, chromedp.Text(nodeIDs(el), &text, chromedp.ByNodeID))
	return text, err
}

func (c *Chrome) Click(ctx context.Context, el Element) error {
	return c.run(ctx, chromedp.Click(nodeIDs(el), chromedp.ByNodeID))
}

func (c *Chrome) Type(ctx context.Context, el Element, text string) error {
	return c.run(ctx, chromedp.SendKeys(nodeIDs(el), text, chromedp.ByNodeID))
}

var keyCodes = map[string]string{
	KeyArrowRight: kb.ArrowRight,
	KeyEscape:     kb.Escape,
	KeyEnter:      kb.Enter,
}

func (c *Chrome) PressKey(ctx context.Context, key string) error {
	code, ok := keyCodes[key]
	if !ok {
		return fmt.Errorf("unsupported key %q", key)
	}
	return c.run(ctx, chromedp.KeyEvent(code))
}

func (c *Chrome) Cookies(ctx context.Context) ([]Cookie, error) {
	var cookies []Cookie
	err := c.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		raw, err := network.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, ck := range raw {
			cookies = append(cookies, Cookie{
				Name:     ck.Name,
				Value:    ck.Value,
				Domain:   ck.Domain,
				Path:     ck.Path,
				Secure:   ck.Secure,
				HTTPOnly: ck.HTTPOnly,
			})
		}
		return nil
	}))
	return cookies, err
}

// SetCookie installs ck as a SameSite=Strict cookie.
func (c *Chrome) SetCookie(ctx context.Context, ck Cookie) error {
	return c.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return network.SetCookie(ck.Name, ck.Value).
			WithDomain(ck.Domain).
			WithPath(ck.Path).
			WithSecure(ck.Secure).
			WithHTTPOnly(ck.HTTPOnly).
			WithSameSite(network.CookieSameSiteStrict).
			Do(ctx)
	}))
}

func (c *Chrome) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := c.run(ctx, chromedp.CaptureScreenshot(&buf))
	return buf, err
}

func (c *Chrome) Markup(ctx context.Context) (string, error) {
	var html string
	err := c.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}
