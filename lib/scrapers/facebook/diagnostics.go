package facebook

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"groupfeed-backend/lib/browser"

	"github.com/PuerkitoBio/goquery"
)

// Diagnostic is a snapshot of the page taken when extraction comes up
// completely empty, so markup drift can be inspected after the fact.
type Diagnostic struct {
	URL      string
	Title    string
	Markup   string
	Captured time.Time
}

type DiagnosticSink interface {
	Capture(ctx context.Context, d Diagnostic)
}

type SinkFunc func(ctx context.Context, d Diagnostic)

func (f SinkFunc) Capture(ctx context.Context, d Diagnostic) {
	f(ctx, d)
}

// logSink is the default sink: structured summary only, never the full
// markup body.
var logSink DiagnosticSink = SinkFunc(func(ctx context.Context, d Diagnostic) {
	slog.WarnContext(ctx, "no post containers matched, captured page diagnostic",
		"url", d.URL,
		"title", d.Title,
		"markup_bytes", len(d.Markup))
})

func captureDiagnostic(ctx context.Context, sess browser.Session) Diagnostic {
	d := Diagnostic{Captured: time.Now()}
	if url, err := sess.CurrentURL(ctx); err == nil {
		d.URL = url
	}
	if markup, err := sess.PageMarkup(ctx); err == nil {
		d.Markup = markup
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup)); err == nil {
			d.Title = strings.TrimSpace(doc.Find("title").First().Text())
		}
	}
	return d
}
