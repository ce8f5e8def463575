package asset

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatvault/internal/model"
	"chatvault/pkg/errors"
)

type fakeCatalog struct {
	byHash  map[string]int64
	next    int64
	inserts int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{byHash: make(map[string]int64)}
}

func (c *fakeCatalog) LookupAssetByHash(_ context.Context, hash string) (int64, bool, error) {
	id, ok := c.byHash[hash]
	return id, ok, nil
}

func (c *fakeCatalog) InsertAsset(_ context.Context, rec Record) (int64, error) {
	c.inserts++
	c.next++
	c.byHash[rec.Hash] = c.next
	return c.next, nil
}

func TestHash(t *testing.T) {
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", Hash([]byte("hello")))
	assert.Equal(t, Hash([]byte("hello")), Hash([]byte("hello")))
	assert.NotEqual(t, Hash([]byte("hello")), Hash([]byte("hello ")))
}

func TestCanonicalName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"cat-Xy9Zq.png", "cat.png"},
		{"a-bcdef-Gh1Jk.png", "a-bcdef.png"},
		{"notes-Ab12Z", "notes"},
		{"plain.png", "plain.png"},
		{"short-ab.png", "short-ab.png"},
		{"toolong-abcdef.png", "toolong-abcdef.png"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanonicalName(tt.in), tt.in)
	}
}

func TestStore_RegisterDeduplicatesByContent(t *testing.T) {
	catalog := newFakeCatalog()
	store := NewStore(t.TempDir(), catalog, nil)
	ctx := context.Background()

	data := []byte("same payload")
	first, err := store.Register(ctx, data, model.MediaImage, "one-Ab1Cd.png", "17")
	require.NoError(t, err)

	// Different filename and prefix, identical bytes: same asset.
	second, err := store.Register(ctx, data, model.MediaImage, "two.png", "18")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, catalog.inserts)
}

func TestStore_RegisterMaterializesCanonicalName(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root, newFakeCatalog(), nil)

	_, err := store.Register(context.Background(), []byte("pixels"), model.MediaImage, "cat-Xy9Zq.png", "42")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "42", "cat.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("pixels"), data)
}

func TestStore_RegisterFileMissing(t *testing.T) {
	store := NewStore(t.TempDir(), newFakeCatalog(), nil)

	_, err := store.RegisterFile(context.Background(), "/nonexistent/file.png", model.MediaImage, "1")
	require.Error(t, err)
	var readErr *errors.ErrAssetRead
	assert.ErrorAs(t, err, &readErr)
}

func TestStore_RegisterRemoteNamesFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("remote bytes"))
	}))
	defer srv.Close()

	root := t.TempDir()
	fetcher := NewFetcher(t.TempDir(), 5*time.Second)
	store := NewStore(root, newFakeCatalog(), fetcher)

	_, err := store.RegisterRemote(context.Background(), srv.URL+"/avatars/alice.png?size=128", model.MediaImage, "avi")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(root, "avi", "alice.png"))
	assert.NoError(t, err, "query string must not leak into the stored name")
}
