// Package asset implements content-addressed storage of binary payloads:
// identical bytes collapse to one asset row regardless of filename or how
// many messages reference them.
package asset

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"os"
	"path"
	"path/filepath"
	"regexp"

	"go.uber.org/zap"

	"chatvault/internal/model"
	"chatvault/pkg/errors"
	"chatvault/pkg/logger"
)

// Hash returns the hex-encoded 128-bit content digest used as asset
// identity. MD5 is deterministic across runs and languages; it is an
// identity function here, not a security boundary.
func Hash(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// The export tool disambiguates filenames with a "-X4Fb2" style suffix
// before the extension. Stripping it collapses repeated exports of the same
// underlying file to one canonical name.
var disambiguation = regexp.MustCompile(`^(.+)-[A-Za-z0-9]{5}(\.[^.]*)?$`)

// CanonicalName strips the export tool's disambiguation suffix. Names that
// do not match the pattern pass through unchanged.
func CanonicalName(name string) string {
	m := disambiguation.FindStringSubmatch(name)
	if m == nil {
		return name
	}
	return m[1] + m[2]
}

// Record is the persisted shape of one asset.
type Record struct {
	ID       int64
	Hash     string
	Type     model.MediaType
	Name     string
	Location string
	Size     int64
}

// Catalog is the persistence surface the store needs. Insert must tolerate a
// concurrent insert of the same hash by returning the existing row's id.
type Catalog interface {
	LookupAssetByHash(ctx context.Context, hash string) (int64, bool, error)
	InsertAsset(ctx context.Context, rec Record) (int64, error)
}

// Store deduplicates and materializes assets under a local root directory.
type Store struct {
	root    string
	catalog Catalog
	fetcher *Fetcher
	logger  *zap.Logger
}

// NewStore creates an asset store rooted at dir.
func NewStore(dir string, catalog Catalog, fetcher *Fetcher) *Store {
	return &Store{
		root:    dir,
		catalog: catalog,
		fetcher: fetcher,
		logger:  logger.Get(),
	}
}

// WithCatalog returns a store bound to a different catalog, typically one
// scoped to an open transaction.
func (s *Store) WithCatalog(catalog Catalog) *Store {
	clone := *s
	clone.catalog = catalog
	return &clone
}

// Register deduplicates data by content hash. If the hash is already known
// the existing asset id is returned and nothing is written. Otherwise the
// bytes are materialized under <root>/<prefix>/<canonical-name> and a new
// asset row is inserted.
func (s *Store) Register(ctx context.Context, data []byte, mt model.MediaType, name, prefix string) (int64, error) {
	hash := Hash(data)

	if id, ok, err := s.catalog.LookupAssetByHash(ctx, hash); err != nil {
		return 0, err
	} else if ok {
		s.logger.Debug("asset already registered",
			zap.String("hash", hash),
			zap.Int64("asset_id", id),
		)
		return id, nil
	}

	canonical := CanonicalName(name)
	dir := filepath.Join(s.root, prefix)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}
	dst := filepath.Join(dir, canonical)
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return 0, err
	}

	id, err := s.catalog.InsertAsset(ctx, Record{
		Hash:     hash,
		Type:     mt,
		Name:     canonical,
		Location: path.Join(prefix, canonical),
		Size:     int64(len(data)),
	})
	if err != nil {
		return 0, err
	}

	s.logger.Debug("asset registered",
		zap.String("hash", hash),
		zap.String("location", path.Join(prefix, canonical)),
		zap.Int64("asset_id", id),
	)
	return id, nil
}

// RegisterFile registers an asset from a locally exported file.
func (s *Store) RegisterFile(ctx context.Context, filePath string, mt model.MediaType, prefix string) (int64, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return 0, errors.NewAssetRead(filePath, err)
	}
	return s.Register(ctx, data, mt, filepath.Base(filePath), prefix)
}

// RegisterRemote fetches a URL through the download cache and registers the
// payload. The canonical name is derived from the URL path.
func (s *Store) RegisterRemote(ctx context.Context, url string, mt model.MediaType, prefix string) (int64, error) {
	data, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return 0, err
	}
	name := path.Base(stripQuery(url))
	if name == "" || name == "." || name == "/" {
		name = Hash(data)
	}
	return s.Register(ctx, data, mt, name, prefix)
}

func stripQuery(url string) string {
	for i := 0; i < len(url); i++ {
		if url[i] == '?' || url[i] == '#' {
			return url[:i]
		}
	}
	return url
}
