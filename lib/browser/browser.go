// Package browser defines the abstract browsing-session capability the
// scraping core is written against: navigation, DOM queries, script
// execution and cookie access over one rendered page. Implementations
// live in subpackages so the core never depends on a concrete browser.
package browser

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrWaitTimeout is returned by WaitUntilPresent when no element matched
// the locator before the timeout elapsed.
var ErrWaitTimeout = errors.New("timed out waiting for element")

// Locator is a declarative element query: a CSS selector, optionally
// narrowed to elements whose rendered text contains one of the given
// substrings (case-insensitive). The text filter stands in for the
// text-matching queries markup-unstable pages tend to require.
type Locator struct {
	Query        string
	TextContains []string
}

func Css(query string) Locator {
	return Locator{Query: query}
}

func Text(query string, substrings ...string) Locator {
	return Locator{Query: query, TextContains: substrings}
}

// MatchesText reports whether element text satisfies the locator's text
// filter. Locators without a filter match everything.
func (l Locator) MatchesText(text string) bool {
	if len(l.TextContains) == 0 {
		return true
	}
	text = strings.ToLower(text)
	for _, substr := range l.TextContains {
		if strings.Contains(text, strings.ToLower(substr)) {
			return true
		}
	}
	return false
}

func (l Locator) String() string {
	if len(l.TextContains) == 0 {
		return l.Query
	}
	return l.Query + " ~ " + strings.Join(l.TextContains, "|")
}

// Cookie is one entry of a session credential jar.
type Cookie struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Domain   string `json:"domain,omitempty"`
	Path     string `json:"path,omitempty"`
	Expiry   int64  `json:"expiry,omitempty"`
	HttpOnly bool   `json:"http_only,omitempty"`
	Secure   bool   `json:"secure,omitempty"`
}

type Element interface {
	Text(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (string, error)
	Click(ctx context.Context) error
	Clear(ctx context.Context) error
	SendKeys(ctx context.Context, text string) error
	// FindAll queries within this element's subtree. It returns an empty
	// slice, never an error, when nothing matches.
	FindAll(ctx context.Context, loc Locator) ([]Element, error)
}

type Session interface {
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	Sleep(ctx context.Context, d time.Duration) error
	// WaitUntilPresent blocks until at least one element matches loc,
	// returning the first one, or ErrWaitTimeout.
	WaitUntilPresent(ctx context.Context, loc Locator, timeout time.Duration) (Element, error)
	// FindAll returns an empty slice, never an error, when nothing matches.
	FindAll(ctx context.Context, loc Locator) ([]Element, error)
	// ExecuteScript evaluates a javascript expression in the page and
	// unmarshals its result into out when out is non-nil.
	ExecuteScript(ctx context.Context, expr string, out any) error
	CurrentURL(ctx context.Context) (string, error)
	PageMarkup(ctx context.Context) (string, error)
	Cookies(ctx context.Context) ([]Cookie, error)
	AddCookie(ctx context.Context, c Cookie) error
	Close(ctx context.Context) error
}

// Scope is the common query surface of Session and Element; extraction
// code that only needs FindAll accepts a Scope.
type Scope interface {
	FindAll(ctx context.Context, loc Locator) ([]Element, error)
}
