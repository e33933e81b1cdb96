package textutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseRelativeTime(t *testing.T) {
	now := time.Date(2024, time.May, 10, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		text     string
		expected time.Time
		ok       bool
	}{
		{text: "just now", expected: now, ok: true},
		{text: "Just now · Public", expected: now, ok: true},
		{text: "2h", expected: now.Add(-2 * time.Hour), ok: true},
		{text: "2 hrs ago", expected: now.Add(-2 * time.Hour), ok: true},
		{text: "5 mins", expected: now.Add(-5 * time.Minute), ok: true},
		{text: "45m", expected: now.Add(-45 * time.Minute), ok: true},
		{text: "3d", expected: now.AddDate(0, 0, -3), ok: true},
		{text: "3 days ago", expected: now.AddDate(0, 0, -3), ok: true},
		{text: "1w", expected: now.AddDate(0, 0, -7), ok: true},
		{text: "2mo", expected: now.AddDate(0, -2, 0), ok: true},
		{text: "6 months", expected: now.AddDate(0, -6, 0), ok: true},
		{text: "1y", expected: now.AddDate(-1, 0, 0), ok: true},
		{text: "Yesterday at 10:00", ok: false},
		{text: "garbage", ok: false},
		{text: "", ok: false},
	}

	for _, tc := range testCases {
		got, ok := ParseRelativeTime(tc.text, now)
		require.Equal(t, tc.ok, ok, "input %q", tc.text)
		if tc.ok {
			require.Equal(t, tc.expected, got, "input %q", tc.text)
		}
	}
}

func TestCanonicalizeURL(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{
			input:    "https://m.facebook.com/groups/1/posts/2?ref=x",
			expected: "https://www.facebook.com/groups/1/posts/2",
		},
		{
			input:    "https://www.facebook.com/groups/1/posts/2#comments",
			expected: "https://www.facebook.com/groups/1/posts/2",
		},
		{
			input:    "https://mbasic.facebook.com/profile.php?id=4",
			expected: "https://www.facebook.com/profile.php",
		},
		// best effort: non-absolute input passes through untouched
		{input: "not a url at all", expected: "not a url at all"},
		{input: "/groups/1/posts/2", expected: "/groups/1/posts/2"},
	}

	for _, tc := range testCases {
		require.Equal(t, tc.expected, CanonicalizeURL(tc.input), "input %q", tc.input)
	}
}

func TestIsUINoise(t *testing.T) {
	require.True(t, IsUINoise("Like"))
	require.True(t, IsUINoise("  like \n"))
	require.True(t, IsUINoise("See More"))
	require.True(t, IsUINoise("J'aime"))
	require.True(t, IsUINoise("View more comments"))
	require.False(t, IsUINoise("I really like this bike, selling for $50"))
	require.False(t, IsUINoise("22 likes"))
	require.False(t, IsUINoise(""))
}

func TestCleanText(t *testing.T) {
	text := "Selling my old couch\nLike\nComment\nShare\n\nPick up only"
	require.Equal(t, "Selling my old couch Pick up only", CleanText(text))
}

func TestExtractCount(t *testing.T) {
	require.Equal(t, 42, ExtractCount("42 comments"))
	require.Equal(t, 1200, ExtractCount("1,200 people reacted"))
	require.Equal(t, 0, ExtractCount("discuss"))
	require.Equal(t, 0, ExtractCount(""))
}
