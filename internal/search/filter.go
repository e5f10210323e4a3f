package search

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"

	"github.com/avstrong/rentals/internal/rental"
)

// fold returns the case-folded form of s. A Caser keeps state, so each call
// gets its own.
func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// Matches reports whether l satisfies every predicate in c. geoHits is the
// geo index answer for the criteria's anchor (listing id to distance) and is
// consulted only when an anchor is present.
//
// Price bounds are checked against the base rate only when no stay range is
// given; with a stay the coordinator compares the computed price instead.
//
//nolint:cyclop // flat list of independent predicates
func Matches(l *rental.Listing, c *Criteria, geoHits map[int64]float64) bool {
	if c.PropertyType != "" && fold(l.PropertyType) != fold(c.PropertyType) {
		return false
	}

	if c.City != "" && !strings.Contains(fold(l.City), fold(c.City)) {
		return false
	}

	if c.Country != "" && fold(l.Country) != fold(c.Country) {
		return false
	}

	if _, hasStay := c.StayRange(); !hasStay && !PriceWithin(l.BasePricePerNight, c) {
		return false
	}

	if c.Bedrooms != nil && l.Bedrooms != *c.Bedrooms {
		return false
	}

	if c.BedroomsMin != nil && l.Bedrooms < *c.BedroomsMin {
		return false
	}

	if c.Bathrooms != nil && !l.Bathrooms.Equal(*c.Bathrooms) {
		return false
	}

	if c.BathroomsMin != nil && l.Bathrooms.LessThan(*c.BathroomsMin) {
		return false
	}

	if c.MaxGuestsMin != nil && l.MaxGuests < *c.MaxGuestsMin {
		return false
	}

	if len(c.Amenities) > 0 && !hasAllAmenities(l, c.Amenities) {
		return false
	}

	if c.Text != "" && !mentions(l, c.Text) {
		return false
	}

	if _, anchored := c.Anchor(); anchored {
		if _, ok := geoHits[l.ID]; !ok {
			return false
		}
	}

	return true
}

// PriceWithin checks price against the inclusive min/max bounds of c.
func PriceWithin(price decimal.Decimal, c *Criteria) bool {
	if c.MinPrice != nil && price.LessThan(*c.MinPrice) {
		return false
	}

	if c.MaxPrice != nil && price.GreaterThan(*c.MaxPrice) {
		return false
	}

	return true
}

func hasAllAmenities(l *rental.Listing, wanted []string) bool {
	have := make(map[string]struct{}, len(l.Amenities))
	for _, a := range l.Amenities {
		have[fold(a)] = struct{}{}
	}

	for _, w := range wanted {
		if _, ok := have[fold(w)]; !ok {
			return false
		}
	}

	return true
}

func mentions(l *rental.Listing, text string) bool {
	needle := fold(text)

	for _, field := range []string{l.Name, l.Description, l.City, l.Address} {
		if strings.Contains(fold(field), needle) {
			return true
		}
	}

	return false
}
