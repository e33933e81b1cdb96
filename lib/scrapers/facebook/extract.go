package facebook

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"groupfeed-backend/lib/browser"
	"groupfeed-backend/lib/poststore"
	"groupfeed-backend/lib/textutil"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Pipeline extracts post records from a rendered group feed. It never
// fails a whole scrape because one container or one field would not
// parse; missing values degrade to absent.
type Pipeline struct {
	// Diagnostics receives a page snapshot when zero containers match.
	// Nil means log-only.
	Diagnostics DiagnosticSink
	// Now is the clock relative timestamps are resolved against.
	Now func() time.Time
}

// FeedResult is everything one scrape pulled out of the feed page.
type FeedResult struct {
	GroupName   string
	MemberCount int
	Posts       []poststore.Post
}

var loadIndicators = []browser.Locator{
	browser.Css(`div[role="feed"]`),
	browser.Css(`div[role="article"]`),
	browser.Css("article"),
	browser.Css("div.story_body_container"),
	browser.Css(`div[role="main"]`),
}

var groupNameCandidates = []browser.Locator{
	browser.Css("h1"),
	browser.Css("h3"),
	browser.Css(`[data-sigil="m-page-title"]`),
}

// containerStrategies are tried in order; the first one producing at
// least one content-sufficient container wins.
var containerStrategies = []browser.Locator{
	// comment threads reuse role=article, so top-level matching has to
	// exclude them by label
	browser.Css(`div[role="article"]:not([aria-label*="omment"])`),
	browser.Css(`div[data-pagelet*="FeedUnit"]`),
	browser.Css("article"),
	browser.Css("div.userContentWrapper"),
	browser.Css("div.story_body_container"),
	browser.Css(`div[data-ft*="top_level_post"]`),
}

// discoveredClassCandidates backs the last-resort strategy: utility
// class signatures observed on current post wrappers. They rot fastest,
// which is why they rank last.
var discoveredClassCandidates = []browser.Locator{
	browser.Css("div.x1ja2u2z"),
	browser.Css("div.x1lliihq"),
}

var seeMoreCandidates = []browser.Locator{
	browser.Text(`div[role="button"]`, "see more", "ver más", "voir plus"),
	browser.Text("span", "see more", "ver más"),
	browser.Css(`[data-sigil="more"] a`),
}

var commentExpandCandidates = []browser.Locator{
	browser.Text(`div[role="button"]`, "view more comments", "previous comments", "ver más comentarios"),
	browser.Text("span", "view more comments"),
	browser.Css(`[data-sigil="replies-see-more"] a`),
}

var commentContainerCandidates = []browser.Locator{
	browser.Css(`div[role="article"][aria-label*="omment"]`),
	browser.Css(`[data-sigil="comment"]`),
	browser.Css("div.comment"),
}

var priceRe = regexp.MustCompile(`[$€£]\s?\d[\d.,]*`)

const (
	maxSeeMoreClicks       = 20
	seeMoreClickDelay      = time.Millisecond * 300
	maxCommentExpandClicks = 3
	commentExpandDelay     = time.Millisecond * 500
	minContainerTextLen    = 20
)

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Pipeline) sink() DiagnosticSink {
	if p.Diagnostics != nil {
		return p.Diagnostics
	}
	return logSink
}

// ScrapeGroup navigates to the group's mobile feed and extracts up to
// req.MaxPosts posts. Zero matched containers is an empty result, not
// an error; the page snapshot goes to the diagnostic sink instead.
func (p *Pipeline) ScrapeGroup(ctx context.Context, sess browser.Session, req Request) (FeedResult, error) {
	req = req.withDefaults()

	ctx, span := tracer.Start(ctx, "facebook:ScrapeGroup")
	defer span.End()
	span.SetAttributes(attribute.String("group_id", req.GroupID))

	var result FeedResult

	url := fmt.Sprintf("%s/groups/%s", MobileURL, req.GroupID)
	err := sess.Navigate(ctx, url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "navigation failed")
		return result, err
	}
	p.waitForLoad(ctx, sess)

	result.GroupName = p.groupName(ctx, sess)
	result.MemberCount = p.memberCount(ctx, sess)

	stats, err := ExpandFeed(ctx, sess, req.MaxPosts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "feed expansion failed")
		return result, err
	}
	slog.InfoContext(ctx, "feed expanded",
		"group_id", req.GroupID,
		"scroll_attempts", stats.Attempts,
		"stalled", stats.Stalled)

	p.expandTruncatedPosts(ctx, sess)

	containers := p.locatePostContainers(ctx, sess)
	if len(containers) == 0 {
		p.sink().Capture(ctx, captureDiagnostic(ctx, sess))
		return result, nil
	}

	now := p.now()
	for _, container := range containers {
		if len(result.Posts) >= req.MaxPosts {
			break
		}
		post, ok := p.extractPost(ctx, container, now)
		if !ok {
			continue
		}
		if *req.IncludeComments && post.CommentsCount > 0 {
			post.Comments = p.extractComments(ctx, sess, container, req.MaxCommentsPerPost, now)
		}
		result.Posts = append(result.Posts, post)
	}

	span.SetAttributes(attribute.Int("posts", len(result.Posts)))
	return result, nil
}

// waitForLoad blocks until any load indicator renders. A page that never
// shows one still proceeds; container location makes the real call.
func (p *Pipeline) waitForLoad(ctx context.Context, sess browser.Session) {
	for _, loc := range loadIndicators {
		_, err := sess.WaitUntilPresent(ctx, loc, time.Second*4)
		if err == nil {
			return
		}
	}
	slog.WarnContext(ctx, "no load indicator appeared, proceeding anyway")
}

func (p *Pipeline) groupName(ctx context.Context, sess browser.Session) string {
	for _, loc := range groupNameCandidates {
		matches, err := sess.FindAll(ctx, loc)
		if err != nil {
			continue
		}
		for _, el := range matches {
			text, err := el.Text(ctx)
			if err != nil {
				continue
			}
			text = textutil.NormalizeSpace(text)
			if text == "" || textutil.IsUINoise(text) {
				continue
			}
			return text
		}
	}
	return ""
}

func (p *Pipeline) memberCount(ctx context.Context, sess browser.Session) int {
	matches, err := sess.FindAll(ctx, browser.Text("span, a", "member", "membre", "miembros"))
	if err != nil {
		return 0
	}
	for _, el := range matches {
		text, err := el.Text(ctx)
		if err != nil {
			continue
		}
		if n := textutil.ExtractCount(text); n > 0 {
			return n
		}
	}
	return 0
}

// expandTruncatedPosts clicks through "see more" affordances so the
// full post text is in the DOM before extraction. Bounded and best
// effort; a failed click just moves on.
func (p *Pipeline) expandTruncatedPosts(ctx context.Context, sess browser.Session) {
	clicks := 0
	for _, loc := range seeMoreCandidates {
		if clicks >= maxSeeMoreClicks {
			return
		}
		matches, err := sess.FindAll(ctx, loc)
		if err != nil {
			continue
		}
		for _, el := range matches {
			if clicks >= maxSeeMoreClicks {
				return
			}
			if err := el.Click(ctx); err != nil {
				continue
			}
			clicks++
			if err := sess.Sleep(ctx, seeMoreClickDelay); err != nil {
				return
			}
		}
	}
}

// locatePostContainers walks the strategies in rank order and keeps the
// first one that yields content-sufficient containers. When all known
// shapes fail it falls back to utility-class discovery: wrappers that
// carry an author landmark and directional text.
func (p *Pipeline) locatePostContainers(ctx context.Context, sess browser.Session) []browser.Element {
	for _, loc := range containerStrategies {
		matches, err := sess.FindAll(ctx, loc)
		if err != nil {
			continue
		}
		kept := p.filterSufficient(ctx, matches)
		if len(kept) > 0 {
			slog.DebugContext(ctx, "post containers located",
				"strategy", loc.String(), "count", len(kept))
			return kept
		}
	}

	for _, loc := range discoveredClassCandidates {
		matches, err := sess.FindAll(ctx, loc)
		if err != nil {
			continue
		}
		var kept []browser.Element
		for _, el := range matches {
			inner, err := el.FindAll(ctx, browser.Css(`div[dir="auto"]`))
			if err != nil || len(inner) == 0 {
				continue
			}
			if p.sufficient(ctx, el) {
				kept = append(kept, el)
			}
		}
		if len(kept) > 0 {
			slog.DebugContext(ctx, "post containers located via class discovery",
				"strategy", loc.String(), "count", len(kept))
			return kept
		}
	}
	return nil
}

func (p *Pipeline) filterSufficient(ctx context.Context, els []browser.Element) []browser.Element {
	var kept []browser.Element
	for _, el := range els {
		if p.sufficient(ctx, el) {
			kept = append(kept, el)
		}
	}
	return kept
}

// sufficient rejects containers whose whole rendered text is too short
// to be a post, or is nothing but chrome.
func (p *Pipeline) sufficient(ctx context.Context, el browser.Element) bool {
	text, err := el.Text(ctx)
	if err != nil {
		return false
	}
	text = textutil.NormalizeSpace(text)
	if len(text) <= minContainerTextLen {
		return false
	}
	return !textutil.IsUINoise(text)
}

// extractPost pulls every field out of one container. Only a post with
// no usable text at all is dropped; every other missing field is simply
// absent on the record.
func (p *Pipeline) extractPost(ctx context.Context, container browser.Element, now time.Time) (poststore.Post, bool) {
	var post poststore.Post

	post.Text = p.assembleText(ctx, container)
	if post.Text == "" {
		return post, false
	}

	if authorEl, name, ok := ResolveElement(ctx, container, FieldAuthor); ok {
		post.AuthorName = textutil.NormalizeSpace(name)
		if href, err := authorEl.Attribute(ctx, "href"); err == nil && href != "" {
			post.AuthorUrl = textutil.CanonicalizeURL(href)
		}
	}

	if raw, ok := Resolve(ctx, container, FieldUrl); ok {
		post.Url = textutil.CanonicalizeURL(raw)
	}

	if raw, ok := Resolve(ctx, container, FieldTimestamp); ok {
		if ts, ok := textutil.ParseRelativeTime(raw, now); ok {
			post.Timestamp = ts
		}
	}

	post.LikesCount = ResolveCount(ctx, container, FieldLikes)
	post.CommentsCount = ResolveCount(ctx, container, FieldComments)
	post.SharesCount = ResolveCount(ctx, container, FieldShares)
	post.Images = p.extractImages(ctx, container)

	if raw, ok := Resolve(ctx, container, FieldPrice); ok {
		post.Price = priceRe.FindString(raw)
	}
	if post.Price != "" {
		if title, ok := Resolve(ctx, container, FieldTitle); ok {
			post.Title = textutil.NormalizeSpace(title)
		}
		if location, ok := Resolve(ctx, container, FieldLocation); ok {
			post.Location = textutil.NormalizeSpace(location)
		}
	}

	return post, true
}

// assembleText joins every distinct text fragment in document order.
// Posts frequently split one message across sibling blocks; joining
// keeps the full message while the dedupe drops repeated preview lines.
// Fragments rendered inside the comment thread are not part of the
// message and are excluded.
func (p *Pipeline) assembleText(ctx context.Context, container browser.Element) string {
	exclude := p.commentFragments(ctx, container)
	matches, err := container.FindAll(ctx, browser.Css(`div[dir="auto"]`))
	if err == nil && len(matches) > 0 {
		seen := make(map[string]bool)
		var fragments []string
		for _, el := range matches {
			raw, err := el.Text(ctx)
			if err != nil {
				continue
			}
			cleaned := textutil.CleanText(raw)
			if cleaned == "" || seen[cleaned] || exclude[cleaned] {
				continue
			}
			seen[cleaned] = true
			fragments = append(fragments, cleaned)
		}
		if len(fragments) > 0 {
			return strings.Join(fragments, " ")
		}
	}

	if raw, ok := Resolve(ctx, container, FieldText); ok {
		return textutil.CleanText(raw)
	}

	raw, err := container.Text(ctx)
	if err != nil {
		return ""
	}
	return textutil.CleanText(raw)
}

func (p *Pipeline) commentFragments(ctx context.Context, container browser.Element) map[string]bool {
	set := make(map[string]bool)
	for _, loc := range commentContainerCandidates {
		matches, err := container.FindAll(ctx, loc)
		if err != nil {
			continue
		}
		for _, el := range matches {
			inner, err := el.FindAll(ctx, browser.Css(`div[dir="auto"]`))
			if err != nil {
				continue
			}
			for _, frag := range inner {
				raw, err := frag.Text(ctx)
				if err != nil {
					continue
				}
				if cleaned := textutil.CleanText(raw); cleaned != "" {
					set[cleaned] = true
				}
			}
		}
	}
	return set
}

func (p *Pipeline) extractImages(ctx context.Context, container browser.Element) []string {
	matches, err := container.FindAll(ctx, browser.Css("img"))
	if err != nil {
		return nil
	}
	seen := make(map[string]bool)
	var images []string
	for _, el := range matches {
		src, err := el.Attribute(ctx, "src")
		if err != nil {
			continue
		}
		if !usableImageSrc(src) || seen[src] {
			continue
		}
		seen[src] = true
		images = append(images, src)
	}
	return images
}

// usableImageSrc drops emoji sprites, static chrome assets and inline
// data urls, keeping only content photos.
func usableImageSrc(src string) bool {
	if src == "" || strings.HasPrefix(src, "data:") {
		return false
	}
	lowered := strings.ToLower(src)
	for _, marker := range []string{"emoji", "rsrc.php", "/static/"} {
		if strings.Contains(lowered, marker) {
			return false
		}
	}
	return true
}

// extractComments expands and reads the container's comment thread.
// Comment failures never propagate; the worst case is fewer comments.
func (p *Pipeline) extractComments(ctx context.Context, sess browser.Session, container browser.Element, max int, now time.Time) []poststore.Comment {
	clicks := 0
	for _, loc := range commentExpandCandidates {
		if clicks >= maxCommentExpandClicks {
			break
		}
		matches, err := container.FindAll(ctx, loc)
		if err != nil {
			continue
		}
		for _, el := range matches {
			if clicks >= maxCommentExpandClicks {
				break
			}
			if err := el.Click(ctx); err != nil {
				continue
			}
			clicks++
			if err := sess.Sleep(ctx, commentExpandDelay); err != nil {
				return nil
			}
		}
	}

	var comments []poststore.Comment
	for _, loc := range commentContainerCandidates {
		matches, err := container.FindAll(ctx, loc)
		if err != nil || len(matches) == 0 {
			continue
		}
		for _, el := range matches {
			if len(comments) >= max {
				return comments
			}
			comment, ok := p.extractComment(ctx, el, now)
			if ok {
				comments = append(comments, comment)
			}
		}
		if len(comments) > 0 {
			break
		}
	}
	return comments
}

func (p *Pipeline) extractComment(ctx context.Context, container browser.Element, now time.Time) (poststore.Comment, bool) {
	var comment poststore.Comment

	if raw, ok := Resolve(ctx, container, FieldText); ok {
		comment.Text = textutil.CleanText(raw)
	}
	if comment.Text == "" {
		return comment, false
	}

	if authorEl, name, ok := ResolveElement(ctx, container, FieldAuthor); ok {
		comment.AuthorName = textutil.NormalizeSpace(name)
		if href, err := authorEl.Attribute(ctx, "href"); err == nil && href != "" {
			comment.AuthorUrl = textutil.CanonicalizeURL(href)
		}
	}
	comment.LikesCount = ResolveCount(ctx, container, FieldLikes)
	if raw, ok := Resolve(ctx, container, FieldTimestamp); ok {
		if ts, ok := textutil.ParseRelativeTime(raw, now); ok {
			comment.Timestamp = ts
		}
	}

	return comment, true
}
