package asset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"chatvault/pkg/errors"
	"chatvault/pkg/logger"
)

// Fetcher downloads remote asset bytes into a local cache keyed by the hash
// of the URL string. A cache hit short-circuits the network entirely, which
// also makes retried runs cheap. Concurrent fetches of the same URL are
// collapsed into one request; distinct URLs may run in parallel.
type Fetcher struct {
	cacheDir string
	client   *http.Client
	group    singleflight.Group
	logger   *zap.Logger
}

// NewFetcher creates a fetcher caching downloads under cacheDir.
func NewFetcher(cacheDir string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		cacheDir: cacheDir,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.Get(),
	}
}

// Fetch returns the bytes for url, from cache when possible.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	v, err, _ := f.group.Do(url, func() (interface{}, error) {
		return f.fetch(ctx, url)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (f *Fetcher) fetch(ctx context.Context, url string) ([]byte, error) {
	cachePath := filepath.Join(f.cacheDir, Hash([]byte(url)))

	if data, err := os.ReadFile(cachePath); err == nil {
		f.logger.Debug("download cache hit", zap.String("url", url))
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewAssetFetch(url, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.NewAssetFetch(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewAssetFetch(url, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewAssetFetch(url, err)
	}

	if err := f.cache(cachePath, data); err != nil {
		// The bytes are good even if caching them failed.
		f.logger.Warn("failed to cache download",
			zap.String("url", url),
			zap.Error(err),
		)
	}

	f.logger.Debug("downloaded asset",
		zap.String("url", url),
		zap.Int("bytes", len(data)),
	)
	return data, nil
}

// cache writes through a uniquely named temp file so a crashed run never
// leaves a truncated cache entry behind.
func (f *Fetcher) cache(cachePath string, data []byte) error {
	if err := os.MkdirAll(f.cacheDir, 0o755); err != nil {
		return err
	}
	tmp := filepath.Join(f.cacheDir, "tmp-"+uuid.NewString())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, cachePath)
}

// Prefetch warms the cache for a set of URLs in parallel. Individual
// failures are logged and skipped; registration later degrades those assets
// to absent.
func (f *Fetcher) Prefetch(ctx context.Context, urls []string) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, url := range urls {
		url := url
		g.Go(func() error {
			if _, err := f.Fetch(ctx, url); err != nil {
				f.logger.Warn("prefetch failed", zap.String("url", url), zap.Error(err))
			}
			return nil
		})
	}

	_ = g.Wait()
}
