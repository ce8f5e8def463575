package asset

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatvault/pkg/errors"
)

func TestFetcher_CacheShortCircuitsNetwork(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	fetcher := NewFetcher(t.TempDir(), 5*time.Second)
	ctx := context.Background()

	first, err := fetcher.Fetch(ctx, srv.URL+"/a.png")
	require.NoError(t, err)
	second, err := fetcher.Fetch(ctx, srv.URL+"/a.png")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), hits.Load(), "second fetch must come from cache")
}

func TestFetcher_DistinctURLsCachedSeparately(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.URL.Path))
	}))
	defer srv.Close()

	fetcher := NewFetcher(t.TempDir(), 5*time.Second)
	ctx := context.Background()

	a, err := fetcher.Fetch(ctx, srv.URL+"/a")
	require.NoError(t, err)
	b, err := fetcher.Fetch(ctx, srv.URL+"/b")
	require.NoError(t, err)

	assert.Equal(t, []byte("/a"), a)
	assert.Equal(t, []byte("/b"), b)
}

func TestFetcher_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	fetcher := NewFetcher(t.TempDir(), 5*time.Second)

	_, err := fetcher.Fetch(context.Background(), srv.URL+"/gone.png")
	require.Error(t, err)
	var fetchErr *errors.ErrAssetFetch
	assert.ErrorAs(t, err, &fetchErr)
}

func TestFetcher_PrefetchWarmsCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	fetcher := NewFetcher(t.TempDir(), 5*time.Second)
	urls := []string{srv.URL + "/1", srv.URL + "/2", srv.URL + "/3"}
	fetcher.Prefetch(context.Background(), urls)

	before := hits.Load()
	for _, u := range urls {
		_, err := fetcher.Fetch(context.Background(), u)
		require.NoError(t, err)
	}
	assert.Equal(t, before, hits.Load(), "prefetched URLs must be served from cache")
}
