// Package chrome implements browser.Session on top of a chromedp-driven
// Chrome process.
package chrome

import (
	"context"
	"errors"
	"time"

	"groupfeed-backend/lib/browser"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type Options struct {
	Headless  bool
	UserAgent string
}

type Session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
}

var _ browser.Session = (*Session)(nil)

// NewSession launches a Chrome instance and attaches a fresh browsing
// context to it. The flags mirror what the feed tolerates: automation
// hints disabled and a desktop user agent.
func NewSession(ctx context.Context, opts Options) (*Session, error) {
	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(ua),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx)

	// an empty run forces the process to actually start
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		allocCancel()
		return nil, err
	}

	return &Session{
		ctx:         browserCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
	}, nil
}

func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := joinContext(s.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// joinContext derives a context from the browser context that also ends
// when the per-call context is cancelled or its deadline passes, so no
// operation outlives the call that asked for it.
func joinContext(base, call context.Context) (context.Context, context.CancelFunc) {
	var ctx context.Context
	var cancel context.CancelFunc
	if deadline, ok := call.Deadline(); ok {
		ctx, cancel = context.WithDeadline(base, deadline)
	} else {
		ctx, cancel = context.WithCancel(base)
	}
	stop := context.AfterFunc(call, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url))
}

func (s *Session) Reload(ctx context.Context) error {
	return s.run(ctx, chromedp.Reload())
}

func (s *Session) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) WaitUntilPresent(ctx context.Context, loc browser.Locator, timeout time.Duration) (browser.Element, error) {
	deadline := time.Now().Add(timeout)
	for {
		matches, err := s.FindAll(ctx, loc)
		if err != nil {
			return nil, err
		}
		if len(matches) > 0 {
			return matches[0], nil
		}
		if time.Now().After(deadline) {
			return nil, browser.ErrWaitTimeout
		}
		if err := s.Sleep(ctx, time.Millisecond*250); err != nil {
			return nil, err
		}
	}
}

func (s *Session) FindAll(ctx context.Context, loc browser.Locator) ([]browser.Element, error) {
	var nodes []*cdp.Node
	err := s.run(ctx, chromedp.Nodes(loc.Query, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)))
	if err != nil {
		return nil, err
	}
	return s.filterNodes(ctx, nodes, loc)
}

func (s *Session) filterNodes(ctx context.Context, nodes []*cdp.Node, loc browser.Locator) ([]browser.Element, error) {
	elements := make([]browser.Element, 0, len(nodes))
	for _, node := range nodes {
		el := &element{sess: s, node: node, xpath: node.FullXPath()}
		if len(loc.TextContains) > 0 {
			text, err := el.Text(ctx)
			if err != nil || !loc.MatchesText(text) {
				continue
			}
		}
		elements = append(elements, el)
	}
	return elements, nil
}

func (s *Session) ExecuteScript(ctx context.Context, expr string, out any) error {
	if out == nil {
		var discard any
		out = &discard
	}
	return s.run(ctx, chromedp.Evaluate(expr, out))
}

func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var url string
	err := s.run(ctx, chromedp.Location(&url))
	return url, err
}

func (s *Session) PageMarkup(ctx context.Context) (string, error) {
	var markup string
	err := s.run(ctx, chromedp.OuterHTML("html", &markup, chromedp.ByQuery))
	return markup, err
}

func (s *Session) Cookies(ctx context.Context) ([]browser.Cookie, error) {
	var cookies []browser.Cookie
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		raw, err := network.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, c := range raw {
			cookies = append(cookies, browser.Cookie{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     c.Path,
				Expiry:   int64(c.Expires),
				HttpOnly: c.HTTPOnly,
				Secure:   c.Secure,
			})
		}
		return nil
	}))
	return cookies, err
}

func (s *Session) AddCookie(ctx context.Context, c browser.Cookie) error {
	return s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		params := network.SetCookie(c.Name, c.Value).
			WithDomain(c.Domain).
			WithPath(c.Path).
			WithHTTPOnly(c.HttpOnly).
			WithSecure(c.Secure)
		if c.Expiry > 0 {
			expiry := cdp.TimeSinceEpoch(time.Unix(c.Expiry, 0))
			params = params.WithExpires(&expiry)
		}
		return params.Do(ctx)
	}))
}

func (s *Session) Close(ctx context.Context) error {
	err := chromedp.Cancel(s.ctx)
	s.cancel()
	s.allocCancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

type element struct {
	sess  *Session
	node  *cdp.Node
	xpath string
}

func (e *element) Text(ctx context.Context) (string, error) {
	var text string
	err := e.sess.run(ctx, chromedp.Text(e.xpath, &text, chromedp.BySearch, chromedp.AtLeast(0)))
	return text, err
}

func (e *element) Attribute(ctx context.Context, name string) (string, error) {
	var value string
	var ok bool
	err := e.sess.run(ctx, chromedp.AttributeValue(e.xpath, name, &value, &ok, chromedp.BySearch))
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return value, nil
}

func (e *element) Click(ctx context.Context) error {
	return e.sess.run(ctx, chromedp.Click(e.xpath, chromedp.BySearch))
}

func (e *element) Clear(ctx context.Context) error {
	return e.sess.run(ctx, chromedp.Clear(e.xpath, chromedp.BySearch))
}

func (e *element) SendKeys(ctx context.Context, text string) error {
	return e.sess.run(ctx, chromedp.SendKeys(e.xpath, text, chromedp.BySearch))
}

func (e *element) FindAll(ctx context.Context, loc browser.Locator) ([]browser.Element, error) {
	var nodes []*cdp.Node
	err := e.sess.run(ctx, chromedp.Nodes(
		loc.Query, &nodes,
		chromedp.ByQueryAll, chromedp.FromNode(e.node), chromedp.AtLeast(0),
	))
	if err != nil {
		return nil, err
	}
	return e.sess.filterNodes(ctx, nodes, loc)
}
