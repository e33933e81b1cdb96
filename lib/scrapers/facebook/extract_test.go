package facebook

import (
	"context"
	"testing"
	"time"

	"groupfeed-backend/lib/browser/browsertest"

	"github.com/stretchr/testify/require"
)

const groupFeedHTML = `<html><head><title>Truck Traders</title></head><body>
<h1>Truck Traders</h1>
<span>1,234 members</span>
<div role="feed">
  <div role="article">
    <h3><a href="https://m.facebook.com/user/123?ref=feed">Jane Doe</a></h3>
    <div dir="auto">Selling a barely used bike, great condition, pickup downtown.</div>
    <div dir="auto">Selling a barely used bike, great condition, pickup downtown.</div>
    <abbr>2 hrs</abbr>
    <a href="https://m.facebook.com/groups/trucktraders/posts/987654321/?ref=share">Full Story</a>
    <a href="#reactions">12 likes</a>
    <a data-sigil="comments-token">3 comments</a>
    <img src="https://scontent.xx.fbcdn.net/photo1.jpg">
    <img src="https://static.xx.fbcdn.net/rsrc.php/emoji.png">
    <div role="article" aria-label="Comment by Bob">
      <h3><a href="https://m.facebook.com/user/456?fref=x">Bob Smith</a></h3>
      <div dir="auto">Still available?</div>
      <abbr>1 hr</abbr>
    </div>
  </div>
</div>
</body></html>`

func TestScrapeGroupExtractsPosts(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	sess := browsertest.NewSession()
	sess.SetPage(MobileURL+"/groups/trucktraders", groupFeedHTML)
	sess.Heights = []int{1000}

	pipeline := &Pipeline{Now: func() time.Time { return now }}
	result, err := pipeline.ScrapeGroup(context.Background(), sess, Request{
		GroupID:  "trucktraders",
		MaxPosts: 10,
	})
	require.NoError(t, err)

	require.Equal(t, "Truck Traders", result.GroupName)
	require.Equal(t, 1234, result.MemberCount)
	require.Len(t, result.Posts, 1)

	post := result.Posts[0]
	require.Equal(t, "Selling a barely used bike, great condition, pickup downtown.", post.Text)
	require.Equal(t, "Jane Doe", post.AuthorName)
	require.Equal(t, "https://www.facebook.com/user/123", post.AuthorUrl)
	require.Equal(t, "https://www.facebook.com/groups/trucktraders/posts/987654321/", post.Url)
	require.True(t, post.Timestamp.Equal(now.Add(-2*time.Hour)), "got %v", post.Timestamp)
	require.Equal(t, 12, post.LikesCount)
	require.Equal(t, 3, post.CommentsCount)
	require.Equal(t, 0, post.SharesCount)
	require.Equal(t, []string{"https://scontent.xx.fbcdn.net/photo1.jpg"}, post.Images)

	require.Len(t, post.Comments, 1)
	comment := post.Comments[0]
	require.Equal(t, "Still available?", comment.Text)
	require.Equal(t, "Bob Smith", comment.AuthorName)
	require.Equal(t, "https://www.facebook.com/user/456", comment.AuthorUrl)
	require.True(t, comment.Timestamp.Equal(now.Add(-time.Hour)))
}

func TestScrapeGroupNoContainersIsEmptyNotError(t *testing.T) {
	sess := browsertest.NewSession()
	sess.SetPage(MobileURL+"/groups/ghosttown", `<html><head><title>Ghost</title></head><body><div role="main">nothing here to see today</div></body></html>`)
	sess.Heights = []int{100}

	var captured []Diagnostic
	pipeline := &Pipeline{
		Diagnostics: SinkFunc(func(_ context.Context, d Diagnostic) {
			captured = append(captured, d)
		}),
	}
	result, err := pipeline.ScrapeGroup(context.Background(), sess, Request{GroupID: "ghosttown"})
	require.NoError(t, err)
	require.Empty(t, result.Posts)
	require.Len(t, captured, 1)
	require.Equal(t, "Ghost", captured[0].Title)
	require.Contains(t, captured[0].URL, "ghosttown")
}

func TestScrapeGroupRespectsMaxPosts(t *testing.T) {
	html := `<html><body><div role="feed">`
	for i := 0; i < 5; i++ {
		html += `<div role="article"><div dir="auto">A long enough message body for post extraction to keep.</div></div>`
	}
	html += `</div></body></html>`

	sess := browsertest.NewSession()
	sess.SetPage(MobileURL+"/groups/busy", html)
	sess.Heights = []int{100}

	pipeline := &Pipeline{}
	result, err := pipeline.ScrapeGroup(context.Background(), sess, Request{GroupID: "busy", MaxPosts: 2})
	require.NoError(t, err)
	require.Len(t, result.Posts, 2)
}
