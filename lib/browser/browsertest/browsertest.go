// Package browsertest implements browser.Session over static HTML
// documents so session and extraction logic can be exercised without a
// live browser. Pages are plain goquery documents; scroll growth and
// click side effects are scripted by the test.
package browsertest

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"groupfeed-backend/lib/browser"

	"github.com/PuerkitoBio/goquery"
)

type Session struct {
	pages map[string]string
	url   string
	html  string
	doc   *goquery.Document

	// Heights is the scripted sequence of document extents reported to
	// scroll-height measurements; the last value repeats once exhausted.
	Heights   []int
	heightIdx int

	Scrolls     int
	SleptTotal  time.Duration
	Navigations []string
	Clicks      []string
	Typed       map[string]string
	Closed      bool

	clickHandlers map[string]func(s *Session)
	cookies       []browser.Cookie
}

var _ browser.Session = (*Session)(nil)

func NewSession() *Session {
	s := &Session{
		pages:         map[string]string{},
		Typed:         map[string]string{},
		clickHandlers: map[string]func(s *Session){},
	}
	s.setHTML("<html><head></head><body></body></html>")
	return s
}

// SetPage registers the markup served when the session navigates to (or
// reloads) the given url.
func (s *Session) SetPage(url, html string) {
	s.pages[url] = html
}

// SetHTML swaps the currently rendered document in place, keeping the
// current url. Useful inside click handlers.
func (s *Session) SetHTML(html string) {
	s.setHTML(html)
}

func (s *Session) setHTML(html string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		panic(err)
	}
	s.html = html
	s.doc = doc
}

// OnClick registers a side effect for clicks on elements located through
// the given query.
func (s *Session) OnClick(query string, fn func(s *Session)) {
	s.clickHandlers[query] = fn
}

func (s *Session) Navigate(_ context.Context, url string) error {
	s.Navigations = append(s.Navigations, url)
	s.url = url
	if html, ok := s.pages[url]; ok {
		s.setHTML(html)
	} else {
		s.setHTML("<html><head></head><body></body></html>")
	}
	return nil
}

func (s *Session) Reload(ctx context.Context) error {
	return s.Navigate(ctx, s.url)
}

func (s *Session) Sleep(_ context.Context, d time.Duration) error {
	s.SleptTotal += d
	return nil
}

func (s *Session) WaitUntilPresent(ctx context.Context, loc browser.Locator, _ time.Duration) (browser.Element, error) {
	matches, err := s.FindAll(ctx, loc)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, browser.ErrWaitTimeout
	}
	return matches[0], nil
}

func (s *Session) FindAll(_ context.Context, loc browser.Locator) ([]browser.Element, error) {
	return s.findIn(s.doc.Selection, loc), nil
}

func (s *Session) findIn(scope *goquery.Selection, loc browser.Locator) []browser.Element {
	var elements []browser.Element
	scope.Find(loc.Query).Each(func(_ int, sel *goquery.Selection) {
		if !loc.MatchesText(sel.Text()) {
			return
		}
		elements = append(elements, &element{sess: s, sel: sel, query: loc.Query})
	})
	return elements
}

func (s *Session) ExecuteScript(_ context.Context, expr string, out any) error {
	if strings.Contains(expr, "scrollTo") {
		s.Scrolls++
		return nil
	}
	if strings.Contains(expr, "scrollHeight") {
		height := 0
		if len(s.Heights) > 0 {
			idx := s.heightIdx
			if idx >= len(s.Heights) {
				idx = len(s.Heights) - 1
			}
			height = s.Heights[idx]
			s.heightIdx++
		}
		return setOut(out, height)
	}
	return nil
}

func (s *Session) CurrentURL(_ context.Context) (string, error) {
	return s.url, nil
}

func (s *Session) PageMarkup(_ context.Context) (string, error) {
	return s.html, nil
}

func (s *Session) Cookies(_ context.Context) ([]browser.Cookie, error) {
	return append([]browser.Cookie(nil), s.cookies...), nil
}

func (s *Session) AddCookie(_ context.Context, c browser.Cookie) error {
	s.cookies = append(s.cookies, c)
	return nil
}

func (s *Session) Close(_ context.Context) error {
	s.Closed = true
	return nil
}

func setOut(out, value any) error {
	if out == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

type element struct {
	sess  *Session
	sel   *goquery.Selection
	query string
}

func (e *element) Text(_ context.Context) (string, error) {
	return strings.TrimSpace(e.sel.Text()), nil
}

func (e *element) Attribute(_ context.Context, name string) (string, error) {
	return e.sel.AttrOr(name, ""), nil
}

func (e *element) Click(_ context.Context) error {
	e.sess.Clicks = append(e.sess.Clicks, e.query)
	if fn, ok := e.sess.clickHandlers[e.query]; ok {
		fn(e.sess)
	}
	return nil
}

func (e *element) Clear(_ context.Context) error {
	e.sess.Typed[e.query] = ""
	return nil
}

func (e *element) SendKeys(_ context.Context, text string) error {
	e.sess.Typed[e.query] += text
	return nil
}

func (e *element) FindAll(_ context.Context, loc browser.Locator) ([]browser.Element, error) {
	return e.sess.findIn(e.sel, loc), nil
}
