package poststore

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"groupfeed-backend/lib/poststore/db"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func newTestStore(t *testing.T) Store {
	sqlite, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sqlite.Close() })
	_, err = sqlite.Exec("PRAGMA foreign_keys=ON")
	if err != nil {
		t.Fatal(err)
	}
	_, err = sqlite.Exec(db.Schema)
	if err != nil {
		t.Fatal(err)
	}
	return NewStore(sqlite)
}

func TestSaveIsIdempotentByUrl(t *testing.T) {
	store := newTestStore(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	post := Post{
		Text:       "selling a couch",
		AuthorName: "alice",
		Url:        "https://www.facebook.com/groups/1/posts/2",
		Timestamp:  time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC),
		LikesCount: 3,
		Comments: []Comment{
			{AuthorName: "bob", Text: "still available?", LikesCount: 1},
		},
	}

	res, err := store.Save(ctx, post)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, SaveSaved, res)

	exists, err := store.Exists(ctx, post)
	if err != nil {
		t.Fatal(err)
	}
	require.True(t, exists)

	res, err = store.Save(ctx, post)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, SaveSkipped, res)

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.EqualValues(t, 1, count)

	posts, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, posts, 1)
	require.Equal(t, post.Url, posts[0].Url)
	require.Len(t, posts[0].Comments, 1)
	require.Equal(t, "still available?", posts[0].Comments[0].Text)
}

func TestSaveListRoundTrip(t *testing.T) {
	store := newTestStore(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	post := Post{
		Text:          "Moving sale: desk, chairs, two bookshelves.",
		AuthorName:    "frank",
		AuthorUrl:     "https://www.facebook.com/user/7",
		Url:           "https://www.facebook.com/groups/5/posts/6",
		Timestamp:     time.Date(2024, time.May, 3, 8, 0, 0, 0, time.UTC),
		LikesCount:    7,
		CommentsCount: 2,
		SharesCount:   1,
		Images:        []string{"https://scontent.xx.fbcdn.net/a.jpg"},
		Title:         "Moving sale",
		Price:         "$40",
		Location:      "Portland, OR",
		Comments: []Comment{
			{
				AuthorName: "grace",
				Text:       "interested in the desk",
				LikesCount: 2,
				Timestamp:  time.Date(2024, time.May, 3, 9, 0, 0, 0, time.UTC),
			},
			{AuthorName: "heidi", Text: "pm sent"},
		},
	}

	_, err := store.Save(ctx, post)
	if err != nil {
		t.Fatal(err)
	}
	posts, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, posts, 1)

	if diff := cmp.Diff(post, posts[0]); diff != "" {
		t.Fatalf("post round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveLosingInsertRaceIsSkip(t *testing.T) {
	store := newTestStore(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	post := Post{
		Text:       "free firewood, come pick up",
		AuthorName: "ivan",
		Url:        "https://www.facebook.com/groups/3/posts/8",
		Timestamp:  time.Date(2024, time.May, 4, 16, 0, 0, 0, time.UTC),
		Comments:   []Comment{{AuthorName: "judy", Text: "on my way"}},
	}
	res, err := store.Save(ctx, post)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, SaveSaved, res)

	// a concurrent writer stored the same post after the existence check
	// already passed; the insert hits the url unique index and must be
	// treated as a duplicate, not an error
	res, err = store.insert(ctx, post)
	require.NoError(t, err)
	require.Equal(t, SaveSkipped, res)

	// same race on the fingerprint index for url-less posts
	bare := Post{
		Text:       "anyone lose a grey cat?",
		AuthorName: "ken",
		Timestamp:  time.Date(2024, time.May, 4, 17, 0, 0, 0, time.UTC),
	}
	res, err = store.Save(ctx, bare)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, SaveSaved, res)

	res, err = store.insert(ctx, bare)
	require.NoError(t, err)
	require.Equal(t, SaveSkipped, res)

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.EqualValues(t, 2, count)

	// the rolled-back transaction must not leave comment rows behind
	posts, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, posts, 2)
	for _, p := range posts {
		if p.Url == post.Url {
			require.Len(t, p.Comments, 1)
		}
	}
}

func TestFingerprintIdentityWithoutUrl(t *testing.T) {
	store := newTestStore(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	ts := time.Date(2024, time.May, 2, 9, 30, 0, 0, time.UTC)
	first := Post{Text: "lost dog near the park", AuthorName: "carol", Timestamp: ts}

	res, err := store.Save(ctx, first)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, SaveSaved, res)

	// same author/text/timestamp, different markup leftovers elsewhere
	duplicate := Post{
		Text:       "lost dog near the park",
		AuthorName: "carol",
		Timestamp:  ts,
		LikesCount: 12,
	}
	res, err = store.Save(ctx, duplicate)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, SaveSkipped, res)

	other := Post{Text: "lost dog near the park", AuthorName: "dave", Timestamp: ts}
	res, err = store.Save(ctx, other)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, SaveSaved, res)

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.EqualValues(t, 2, count)
}

func TestFingerprintDeterminism(t *testing.T) {
	ts := time.Date(2024, time.May, 2, 9, 30, 0, 0, time.UTC)
	a := Post{AuthorName: "alice", Text: "hello", Timestamp: ts}
	b := Post{AuthorName: "alice", Text: "hello", Timestamp: ts, LikesCount: 4}
	require.Equal(t, Fingerprint(a), Fingerprint(b))

	c := Post{AuthorName: "alice", Text: "hello"}
	require.NotEqual(t, Fingerprint(a), Fingerprint(c))
}

func TestDeleteAllCascades(t *testing.T) {
	store := newTestStore(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	_, err := store.Save(ctx, Post{
		Text:       "yard sale saturday",
		AuthorName: "erin",
		Url:        "https://www.facebook.com/groups/1/posts/9",
		Comments:   []Comment{{Text: "what time?"}, {Text: "address?"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	err = store.DeleteAll(ctx)
	if err != nil {
		t.Fatal(err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.EqualValues(t, 0, count)

	posts, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, posts, 0)
}
