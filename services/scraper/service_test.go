package scraper

import (
	"context"
	"testing"

	"groupfeed-backend/lib/browser"
	"groupfeed-backend/lib/browser/browsertest"
	"groupfeed-backend/lib/poststore/db"
	"groupfeed-backend/lib/scrapers/facebook"
	"groupfeed-backend/lib/sessionstore"
	"groupfeed-backend/lib/testutil"

	"github.com/stretchr/testify/require"
)

const loginPageHTML = `<html><body>
<input id="email" name="email" type="text">
<input id="pass" name="pass" type="password">
<button name="login" type="submit">Log In</button>
</body></html>`

const homeHTML = `<html><body>
<div role="navigation">Menu</div>
<div role="feed"><div role="article">welcome back</div></div>
</body></html>`

const feedHTML = `<html><head><title>Garage Sales</title></head><body>
<h1>Garage Sales</h1>
<span>312 members</span>
<div role="feed">
  <div role="article">
    <h3><a href="https://m.facebook.com/user/77">Sam Seller</a></h3>
    <div dir="auto">Vintage lamp for sale, works perfectly, pickup only please.</div>
    <abbr>3 hrs</abbr>
    <a href="https://m.facebook.com/groups/garagesales/posts/4242/">Permalink</a>
  </div>
</div>
</body></html>`

func newTestService(t *testing.T) (*Service, *browsertest.Session, func()) {
	t.Helper()
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "scraper",
		DbSchema: db.Schema,
	})

	sess := browsertest.NewSession()
	sess.SetPage(facebook.DesktopURL, loginPageHTML)
	sess.SetPage(facebook.MobileURL+"/groups/garagesales", feedHTML)
	sess.Heights = []int{100}
	sess.OnClick(`button[name="login"]`, func(s *browsertest.Session) {
		s.SetHTML(homeHTML)
	})

	service := NewService(Options{
		DB:  res.DB,
		Jar: sessionstore.NewStore(t.TempDir()),
		NewSession: func(ctx context.Context) (browser.Session, error) {
			return sess, nil
		},
	})
	return service, sess, cleanup
}

func TestScrapeWorkflow(t *testing.T) {
	service, _, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	outcome, err := service.EstablishSession(ctx, Credentials{
		Email:    "user@example.com",
		Password: "hunter2",
	})
	require.NoError(t, err)
	require.True(t, outcome.Success)
	require.True(t, service.SessionActive())

	result, err := service.ScrapeFeed(ctx, facebook.Request{GroupID: "garagesales"})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, "Garage Sales", result.FeedName)
	require.Equal(t, 312, result.MemberCount)
	require.Len(t, result.Posts, 1)
	require.Equal(t, 1, result.SavedCount)
	require.Equal(t, 0, result.SkippedCount)

	// the same feed again should be caught entirely by the dedup gate
	again, err := service.ScrapeFeed(ctx, facebook.Request{GroupID: "garagesales"})
	require.NoError(t, err)
	require.Equal(t, 0, again.SavedCount)
	require.Equal(t, 1, again.SkippedCount)

	count, err := service.PostCount(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	posts, err := service.Posts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.Equal(t, "Sam Seller", posts[0].AuthorName)

	service.ReleaseSession(ctx)
	require.False(t, service.SessionActive())
}

func TestScrapeFeedRequiresSession(t *testing.T) {
	service, _, cleanup := newTestService(t)
	defer cleanup()

	_, err := service.ScrapeFeed(context.Background(), facebook.Request{GroupID: "garagesales"})
	require.Error(t, err)
}

func TestEstablishSessionRejectsConcurrentUse(t *testing.T) {
	service, _, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	_, err := service.EstablishSession(ctx, Credentials{Email: "a@b.c", Password: "p"})
	require.NoError(t, err)
	defer service.ReleaseSession(ctx)

	_, err = service.EstablishSession(ctx, Credentials{Email: "a@b.c", Password: "p"})
	require.Error(t, err)
}

func TestReleaseSessionIsIdempotent(t *testing.T) {
	service, sess, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	_, err := service.EstablishSession(ctx, Credentials{Email: "a@b.c", Password: "p"})
	require.NoError(t, err)

	service.ReleaseSession(ctx)
	service.ReleaseSession(ctx)
	require.True(t, sess.Closed)
}
