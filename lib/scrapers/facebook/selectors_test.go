package facebook

import (
	"context"
	"testing"

	"groupfeed-backend/lib/browser/browsertest"

	"github.com/stretchr/testify/require"
)

func sessionWith(t *testing.T, html string) *browsertest.Session {
	t.Helper()
	sess := browsertest.NewSession()
	sess.SetHTML(html)
	return sess
}

func TestResolvePicksFirstNonEmptyCandidate(t *testing.T) {
	sess := sessionWith(t, `<html><body>
<h2><a href="/user/1">Jane Doe</a></h2>
<h3><a href="/user/2">Someone Else</a></h3>
</body></html>`)

	content, ok := Resolve(context.Background(), sess, FieldAuthor)
	require.True(t, ok)
	require.Equal(t, "Jane Doe", content)
}

func TestResolveRejectsNoiseCandidateAndMovesOn(t *testing.T) {
	// the highest-ranked candidate resolves to pure chrome; resolution
	// must fall through to the next candidate rather than return noise
	sess := sessionWith(t, `<html><body>
<h2><a href="#">Like</a></h2>
<h3><a href="/user/2">Real Author</a></h3>
</body></html>`)

	content, ok := Resolve(context.Background(), sess, FieldAuthor)
	require.True(t, ok)
	require.Equal(t, "Real Author", content)
}

func TestResolveExhaustionIsAbsentNotError(t *testing.T) {
	sess := sessionWith(t, `<html><body><p></p></body></html>`)

	content, ok := Resolve(context.Background(), sess, FieldAuthor)
	require.False(t, ok)
	require.Empty(t, content)
}

func TestResolveSkipsEmptyElementsWithinCandidate(t *testing.T) {
	sess := sessionWith(t, `<html><body>
<h2><a href="#"></a></h2>
<h2><a href="/user/9">Third Time Lucky</a></h2>
</body></html>`)

	content, ok := Resolve(context.Background(), sess, FieldAuthor)
	require.True(t, ok)
	require.Equal(t, "Third Time Lucky", content)
}

func TestResolveCountDefaultsToZero(t *testing.T) {
	sess := sessionWith(t, `<html><body><div>no engagement widgets at all</div></body></html>`)
	require.Equal(t, 0, ResolveCount(context.Background(), sess, FieldLikes))
}

func TestResolveCountParsesGroupedDigits(t *testing.T) {
	sess := sessionWith(t, `<html><body><a href="/reaction/browser">1,024 likes</a></body></html>`)
	require.Equal(t, 1024, ResolveCount(context.Background(), sess, FieldLikes))
}
