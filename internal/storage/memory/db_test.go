package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/avstrong/rentals/internal/idgen/simple"
	"github.com/avstrong/rentals/internal/logger"
	"github.com/avstrong/rentals/internal/rental"
)

func newDB() *DB {
	return New(Config{L: logger.Discard(), Versions: simple.New()})
}

func snapshot(ids ...int64) *rental.Snapshot {
	listings := make([]*rental.Listing, 0, len(ids))
	for _, id := range ids {
		//nolint:exhaustruct
		listings = append(listings, &rental.Listing{
			ID:                id,
			Location:          rental.Point{Lat: 52.52, Lon: 13.40},
			BasePricePerNight: decimal.NewFromInt(100),
		})
	}

	return &rental.Snapshot{Listings: listings} //nolint:exhaustruct
}

func TestCatalogBeforeFirstLoad(t *testing.T) {
	if _, err := newDB().Catalog(context.Background()); !errors.Is(err, ErrCatalogNotLoaded) {
		t.Fatalf("got %v, want ErrCatalogNotLoaded", err)
	}
}

func TestReplacePublishesNewVersion(t *testing.T) {
	ctx := context.Background()
	db := newDB()

	v1, err := db.Replace(ctx, snapshot(1, 2))
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}

	before, _ := db.Catalog(ctx)

	v2, err := db.Replace(ctx, snapshot(3))
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}

	if v2 <= v1 {
		t.Fatalf("versions must increase: %d then %d", v1, v2)
	}

	after, _ := db.Catalog(ctx)
	if after.Version() != v2 || len(after.Listings()) != 1 {
		t.Fatalf("current catalog: version %d with %d listings", after.Version(), len(after.Listings()))
	}

	if before.Version() != v1 || len(before.Listings()) != 2 {
		t.Fatal("a catalog handed out earlier must not change")
	}
}

func TestReplaceRejectsInvalidSnapshot(t *testing.T) {
	ctx := context.Background()
	db := newDB()

	if _, err := db.Replace(ctx, snapshot(1)); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	bad := snapshot(1, 1)

	if _, err := db.Replace(ctx, bad); !errors.Is(err, rental.ErrDataIntegrity) {
		t.Fatalf("got %v, want ErrDataIntegrity", err)
	}

	if db.Version() != 1 {
		t.Fatalf("version: got %d, want 1", db.Version())
	}

	if _, err := db.Replace(ctx, nil); !errors.Is(err, ErrNilSnapshot) {
		t.Fatalf("got %v, want ErrNilSnapshot", err)
	}
}

func TestConcurrentReadersDuringReplace(t *testing.T) {
	ctx := context.Background()
	db := newDB()

	if _, err := db.Replace(ctx, snapshot(1)); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup

	for i := 0; i < 4; i++ {
		wg.Add(1)

		go func(n int) {
			defer wg.Done()

			for j := 0; j < 100; j++ {
				if n == 0 {
					if _, err := db.Replace(ctx, snapshot(1, 2)); err != nil {
						t.Errorf("Replace: %v", err)
					}

					continue
				}

				cat, err := db.Catalog(ctx)
				if err != nil {
					t.Errorf("Catalog: %v", err)

					return
				}

				if count := len(cat.Listings()); count != 1 && count != 2 {
					t.Errorf("torn catalog with %d listings", count)
				}
			}
		}(i)
	}

	wg.Wait()
}
