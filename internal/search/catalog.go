package search

import (
	"sort"

	"github.com/avstrong/rentals/internal/geo"
	"github.com/avstrong/rentals/internal/rental"
)

// Catalog pairs a snapshot with the lookup structures built from it.
// It is immutable once built and shared by concurrent searches.
type Catalog struct {
	snapshot *rental.Snapshot
	geo      *geo.Index
	byID     map[int64]*rental.Listing
}

func NewCatalog(snap *rental.Snapshot) *Catalog {
	listings := make([]*rental.Listing, len(snap.Listings))
	copy(listings, snap.Listings)

	sort.Slice(listings, func(i, j int) bool {
		return listings[i].ID < listings[j].ID
	})

	byID := make(map[int64]*rental.Listing, len(listings))
	for _, l := range listings {
		byID[l.ID] = l
	}

	return &Catalog{
		snapshot: &rental.Snapshot{
			Version:      snap.Version,
			LoadedAt:     snap.LoadedAt,
			Listings:     listings,
			PricingRules: snap.PricingRules,
			Reservations: snap.Reservations,
		},
		geo:  geo.Build(listings),
		byID: byID,
	}
}

func (c *Catalog) Version() int64 {
	return c.snapshot.Version
}

func (c *Catalog) Snapshot() *rental.Snapshot {
	return c.snapshot
}

// Listings are ordered by id.
func (c *Catalog) Listings() []*rental.Listing {
	return c.snapshot.Listings
}

func (c *Catalog) Listing(id int64) (*rental.Listing, bool) {
	l, ok := c.byID[id]

	return l, ok
}

func (c *Catalog) Rules(listingID int64) []rental.PricingRule {
	return c.snapshot.PricingRules[listingID]
}

func (c *Catalog) Reservations(listingID int64) []rental.Reservation {
	return c.snapshot.Reservations[listingID]
}

func (c *Catalog) Near(center rental.Point, radiusKm float64) []geo.Hit {
	return c.geo.Query(center, radiusKm)
}
