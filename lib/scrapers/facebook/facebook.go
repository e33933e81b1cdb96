// Package facebook drives an authenticated browsing session against the
// rendered group feed: establishing and restoring login state, expanding
// the feed, and extracting post and comment records from markup that
// changes shape between rollouts. Everything here talks to the page
// through browser.Session only.
package facebook

import (
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("scrapers/facebook")

const (
	DesktopURL = "https://www.facebook.com"
	MobileURL  = "https://m.facebook.com"
)

// Request describes one feed scrape. Zero fields fall back to defaults.
type Request struct {
	GroupID            string
	MaxPosts           int
	IncludeComments    *bool
	MaxCommentsPerPost int
}

const (
	defaultMaxPosts           = 50
	defaultMaxCommentsPerPost = 20
)

func (r Request) withDefaults() Request {
	if r.MaxPosts <= 0 {
		r.MaxPosts = defaultMaxPosts
	}
	if r.IncludeComments == nil {
		enabled := true
		r.IncludeComments = &enabled
	}
	if r.MaxCommentsPerPost <= 0 {
		r.MaxCommentsPerPost = defaultMaxCommentsPerPost
	}
	return r
}
