package sessionstore

import (
	"os"
	"testing"

	"groupfeed-backend/lib/browser"

	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())

	require.False(t, store.Exists("fb-session"))
	_, err := store.Load("fb-session")
	require.True(t, os.IsNotExist(err))

	jar := []browser.Cookie{
		{Name: "c_user", Value: "100001", Domain: ".facebook.com", Path: "/", Expiry: 1893456000, Secure: true},
		{Name: "xs", Value: "abc", Domain: ".facebook.com", Path: "/", HttpOnly: true},
	}
	require.NoError(t, store.Save("fb-session", jar))
	require.True(t, store.Exists("fb-session"))

	loaded, err := store.Load("fb-session")
	require.NoError(t, err)
	require.Equal(t, jar, loaded)

	// save overwrites
	require.NoError(t, store.Save("fb-session", jar[:1]))
	loaded, err = store.Load("fb-session")
	require.NoError(t, err)
	require.Equal(t, jar[:1], loaded)

	require.NoError(t, store.Delete("fb-session"))
	require.False(t, store.Exists("fb-session"))
	// deleting a missing jar is fine
	require.NoError(t, store.Delete("fb-session"))
}
