// Package media verifies that scraped image urls still resolve. Feed
// cdn links expire quickly, so probing at save time keeps dead links
// out of the store.
package media

import (
	"context"
	"log/slog"
	"time"

	"groupfeed-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("lib/media")

type Prober struct {
	client *resty.Client
}

func NewProber() *Prober {
	client := resty.New()
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetTimeout(time.Second * 10)

	telemetry.InstrumentResty(client, "media/http")

	return &Prober{client: client}
}

// IsLive reports whether the url answers a HEAD request with a 2xx.
func (p *Prober) IsLive(ctx context.Context, url string) bool {
	res, err := p.client.R().SetContext(ctx).Head(url)
	if err != nil {
		return false
	}
	return res.IsSuccess()
}

// FilterLive drops urls that no longer resolve. Order is preserved. A
// cancelled context stops probing and keeps the remaining urls, since a
// stale link is better than a lost one.
func (p *Prober) FilterLive(ctx context.Context, urls []string) []string {
	ctx, span := tracer.Start(ctx, "media:FilterLive")
	defer span.End()
	span.SetAttributes(attribute.Int("candidates", len(urls)))

	var live []string
	for i, url := range urls {
		if ctx.Err() != nil {
			live = append(live, urls[i:]...)
			break
		}
		if p.IsLive(ctx, url) {
			live = append(live, url)
		} else {
			slog.DebugContext(ctx, "dropping dead image url", "url", url)
		}
	}

	span.SetAttributes(attribute.Int("live", len(live)))
	return live
}
