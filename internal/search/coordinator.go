package search

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/avstrong/rentals/internal/availability"
	"github.com/avstrong/rentals/internal/pricing"
	"github.com/avstrong/rentals/internal/rental"
)

// Result is one listing with the fields computed for this search. Each
// pointer is nil when the criteria did not ask for it.
type Result struct {
	Listing     *rental.Listing
	DistanceKm  *float64
	IsAvailable *bool
	Pricing     *pricing.Quote
}

// price is the nightly figure used for price bounds and ordering.
func (r *Result) price() decimal.Decimal {
	if r.Pricing != nil {
		return r.Pricing.AverageNightly
	}

	return r.Listing.BasePricePerNight
}

type Page struct {
	Count    int
	Page     int
	PageSize int
	Version  int64
	Results  []Result
}

type Coordinator struct {
	limits Limits
}

func NewCoordinator(limits Limits) *Coordinator {
	return &Coordinator{limits: limits}
}

func (co *Coordinator) Limits() Limits {
	return co.limits
}

// Search filters the catalog, annotates survivors with distance, price and
// availability, orders them and returns the requested page.
func (co *Coordinator) Search(cat *Catalog, c *Criteria) (*Page, error) {
	if err := c.validate(co.limits); err != nil {
		return nil, err
	}

	results := co.candidates(cat, c)

	results, err := co.annotate(cat, c, results)
	if err != nil {
		return nil, err
	}

	sortResults(results, c.ordering())

	page, size := c.pagination(co.limits)

	return &Page{
		Count:    len(results),
		Page:     page,
		PageSize: size,
		Version:  cat.Version(),
		Results:  paginate(results, page, size),
	}, nil
}

func (co *Coordinator) candidates(cat *Catalog, c *Criteria) []Result {
	anchor, anchored := c.Anchor()
	if !anchored {
		var out []Result

		for _, l := range cat.Listings() {
			if Matches(l, c, nil) {
				out = append(out, Result{Listing: l})
			}
		}

		return out
	}

	hits := cat.Near(anchor.Center, anchor.RadiusKm)

	distances := make(map[int64]float64, len(hits))
	for _, h := range hits {
		distances[h.Listing.ID] = h.DistanceKm
	}

	out := make([]Result, 0, len(hits))

	for _, h := range hits {
		if !Matches(h.Listing, c, distances) {
			continue
		}

		d := h.DistanceKm
		out = append(out, Result{Listing: h.Listing, DistanceKm: &d})
	}

	return out
}

func (co *Coordinator) annotate(cat *Catalog, c *Criteria, results []Result) ([]Result, error) {
	stay, ok := c.StayRange()
	if !ok {
		return results, nil
	}

	kept := results[:0]

	for _, r := range results {
		quote, err := pricing.Calculate(r.Listing, cat.Rules(r.Listing.ID), stay.CheckIn, stay.CheckOut)
		if err != nil {
			return nil, fmt.Errorf("price listing %d: %w", r.Listing.ID, err)
		}

		free, err := availability.IsAvailable(cat.Reservations(r.Listing.ID), stay.CheckIn, stay.CheckOut)
		if err != nil {
			return nil, fmt.Errorf("check availability of listing %d: %w", r.Listing.ID, err)
		}

		r.Pricing = quote
		r.IsAvailable = &free

		if !PriceWithin(r.price(), c) {
			continue
		}

		if c.AvailableOnly && !free {
			continue
		}

		kept = append(kept, r)
	}

	return kept, nil
}

// sortResults orders by the requested key with listing id ascending as the
// tie-break, so repeated searches paginate identically.
func sortResults(results []Result, order Ordering) {
	less := func(a, b *Result) int {
		switch order {
		case OrderPriceDesc:
			return b.price().Cmp(a.price())
		case OrderBedrooms:
			return a.Listing.Bedrooms - b.Listing.Bedrooms
		case OrderBedroomsDesc:
			return b.Listing.Bedrooms - a.Listing.Bedrooms
		case OrderDistance:
			return compareFloat(*a.DistanceKm, *b.DistanceKm)
		case OrderPrice:
			fallthrough
		default:
			return a.price().Cmp(b.price())
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if c := less(&results[i], &results[j]); c != 0 {
			return c < 0
		}

		return results[i].Listing.ID < results[j].Listing.ID
	})
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func paginate(results []Result, page, size int) []Result {
	// Compare page numbers before multiplying so a huge page cannot overflow.
	if pages := (len(results) + size - 1) / size; page > pages {
		return []Result{}
	}

	start := (page - 1) * size

	end := start + size
	if end > len(results) {
		end = len(results)
	}

	return results[start:end]
}
