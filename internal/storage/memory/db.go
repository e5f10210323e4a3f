package memory

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/avstrong/rentals/internal/logger"
	"github.com/avstrong/rentals/internal/rental"
	"github.com/avstrong/rentals/internal/search"
)

type idGenerator interface {
	NextID(ctx context.Context) (int64, error)
}

type Config struct {
	L        *logger.Logger
	Versions idGenerator
}

// DB holds the catalog searches run against. A new snapshot is published
// with a single pointer swap, so readers never block and a search keeps the
// catalog it started with.
type DB struct {
	l        *logger.Logger
	versions idGenerator
	current  atomic.Pointer[search.Catalog]
}

func New(conf Config) *DB {
	//nolint:exhaustruct
	return &DB{
		l:        conf.L,
		versions: conf.Versions,
	}
}

// Replace validates snap, stamps it with the next version and publishes it.
// An invalid snapshot leaves the current catalog in place.
func (db *DB) Replace(ctx context.Context, snap *rental.Snapshot) (int64, error) {
	if snap == nil {
		return 0, ErrNilSnapshot
	}

	if err := snap.Validate(); err != nil {
		return 0, fmt.Errorf("validate snapshot: %w", err)
	}

	version, err := db.versions.NextID(ctx)
	if err != nil {
		return 0, fmt.Errorf("next snapshot version: %w", err)
	}

	stamped := *snap
	stamped.Version = version

	if stamped.LoadedAt.IsZero() {
		stamped.LoadedAt = time.Now().UTC()
	}

	cat := search.NewCatalog(&stamped)
	db.current.Store(cat)

	db.l.LogInfo("Catalog version %d published with %d listings", version, len(stamped.Listings))

	return version, nil
}

func (db *DB) Catalog(_ context.Context) (*search.Catalog, error) {
	cat := db.current.Load()
	if cat == nil {
		return nil, ErrCatalogNotLoaded
	}

	return cat, nil
}

// Version is 0 until the first snapshot is published.
func (db *DB) Version() int64 {
	if cat := db.current.Load(); cat != nil {
		return cat.Version()
	}

	return 0
}
