package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilterLive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/live.jpg" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	prober := NewProber()
	live := prober.FilterLive(context.Background(), []string{
		server.URL + "/live.jpg",
		server.URL + "/dead.jpg",
	})
	require.Equal(t, []string{server.URL + "/live.jpg"}, live)
}

func TestFilterLiveKeepsRemainderOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	prober := NewProber()
	urls := []string{"https://example.com/a.jpg", "https://example.com/b.jpg"}
	require.Equal(t, urls, prober.FilterLive(ctx, urls))
}
