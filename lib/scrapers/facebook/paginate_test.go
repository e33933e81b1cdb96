package facebook

import (
	"context"
	"testing"

	"groupfeed-backend/lib/browser/browsertest"

	"github.com/stretchr/testify/require"
)

func TestExpandFeedStopsAfterRepeatedNoGrowth(t *testing.T) {
	sess := browsertest.NewSession()
	sess.Heights = []int{500, 900, 900, 900, 900}

	stats, err := ExpandFeed(context.Background(), sess, 100)
	require.NoError(t, err)
	require.True(t, stats.Stalled)
	require.EqualValues(t, 900, stats.FinalHeight)
	// growth twice, then three flat measurements
	require.Equal(t, 5, sess.Scrolls)
}

func TestExpandFeedHonorsAttemptBound(t *testing.T) {
	sess := browsertest.NewSession()
	heights := make([]int, 50)
	for i := range heights {
		heights[i] = (i + 1) * 100
	}
	sess.Heights = heights

	// ceil(10/10)+5 attempts for ten posts
	stats, err := ExpandFeed(context.Background(), sess, 10)
	require.NoError(t, err)
	require.False(t, stats.Stalled)
	require.Equal(t, 6, stats.Attempts)
	require.Equal(t, 6, sess.Scrolls)
}

func TestExpandFeedStalledIsNotAnError(t *testing.T) {
	sess := browsertest.NewSession()
	sess.Heights = []int{100}

	stats, err := ExpandFeed(context.Background(), sess, 50)
	require.NoError(t, err)
	require.True(t, stats.Stalled)
}
