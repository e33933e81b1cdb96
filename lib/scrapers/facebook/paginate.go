package facebook

import (
	"context"
	"log/slog"
	"time"

	"groupfeed-backend/lib/browser"

	"github.com/mazen160/go-random"
)

// ScrollStats describes how one feed expansion went.
type ScrollStats struct {
	Attempts    int
	FinalHeight int64
	Stalled     bool
}

var feedContinuationCandidates = []browser.Locator{
	browser.Text("a", "see more posts", "ver más publicaciones"),
	browser.Css(`a[data-sigil="m-more-item"]`),
}

// ExpandFeed scrolls the feed until enough content has been forced to
// render for maxPosts, the page stops growing, or the attempt bound is
// hit. A stalled feed is an expected terminal condition, not a failure;
// the only errors returned are transport ones.
func ExpandFeed(ctx context.Context, sess browser.Session, maxPosts int) (ScrollStats, error) {
	ctx, span := tracer.Start(ctx, "facebook:ExpandFeed")
	defer span.End()

	// the feed renders roughly ten posts per viewport-load
	maxAttempts := (maxPosts+9)/10 + 5

	var stats ScrollStats
	var lastHeight int64
	noGrowth := 0

	for stats.Attempts = 0; stats.Attempts < maxAttempts; stats.Attempts++ {
		err := sess.ExecuteScript(ctx, "window.scrollTo(0, document.body.scrollHeight)", nil)
		if err != nil {
			return stats, err
		}
		if err := sess.Sleep(ctx, settleDelay()); err != nil {
			return stats, err
		}

		clickFeedContinuation(ctx, sess)

		var height int64
		err = sess.ExecuteScript(ctx, "document.body.scrollHeight", &height)
		if err != nil {
			return stats, err
		}
		stats.FinalHeight = height

		if height <= lastHeight {
			noGrowth++
			if noGrowth >= 3 {
				stats.Stalled = true
				break
			}
		} else {
			noGrowth = 0
			lastHeight = height
		}
	}

	slog.DebugContext(ctx, "feed expansion finished",
		"attempts", stats.Attempts,
		"height", stats.FinalHeight,
		"stalled", stats.Stalled)
	return stats, nil
}

// clickFeedContinuation follows explicit "more posts" affordances some
// feed variants render instead of loading on scroll. Best effort.
func clickFeedContinuation(ctx context.Context, sess browser.Session) {
	for _, loc := range feedContinuationCandidates {
		links, err := sess.FindAll(ctx, loc)
		if err != nil || len(links) == 0 {
			continue
		}
		if err := links[0].Click(ctx); err != nil {
			continue
		}
		return
	}
}

// settleDelay jitters the post-scroll wait so render timing never locks
// into the page's own batching cadence.
func settleDelay() time.Duration {
	jitter, err := random.IntRange(0, 700)
	if err != nil {
		jitter = 350
	}
	return time.Millisecond*1500 + time.Millisecond*time.Duration(jitter)
}
