package search

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avstrong/rentals/internal/rental"
)

type Ordering string

const (
	OrderPrice        Ordering = "price"
	OrderPriceDesc    Ordering = "-price"
	OrderBedrooms     Ordering = "bedrooms"
	OrderBedroomsDesc Ordering = "-bedrooms"
	OrderDistance     Ordering = "distance"
)

func (o Ordering) valid() bool {
	switch o {
	case OrderPrice, OrderPriceDesc, OrderBedrooms, OrderBedroomsDesc, OrderDistance:
		return true
	default:
		return false
	}
}

// Criteria holds every optional search filter. A nil pointer or empty value
// imposes no constraint.
type Criteria struct {
	PropertyType string
	City         string
	Country      string
	Text         string

	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal

	Bedrooms     *int
	BedroomsMin  *int
	Bathrooms    *decimal.Decimal
	BathroomsMin *decimal.Decimal
	MaxGuestsMin *int

	Amenities []string

	Latitude  *float64
	Longitude *float64
	RadiusKm  *float64

	CheckIn  *time.Time
	CheckOut *time.Time

	// AvailableOnly drops listings with a conflicting reservation instead of
	// flagging them. Ignored without a stay range.
	AvailableOnly bool

	Ordering Ordering
	Page     *int
	PageSize *int
}

type GeoAnchor struct {
	Center   rental.Point
	RadiusKm float64
}

type Stay struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// Anchor returns the geo-anchor when latitude, longitude and radius are all set.
func (c *Criteria) Anchor() (GeoAnchor, bool) {
	if c.Latitude == nil || c.Longitude == nil || c.RadiusKm == nil {
		return GeoAnchor{}, false
	}

	return GeoAnchor{
		Center:   rental.Point{Lat: *c.Latitude, Lon: *c.Longitude},
		RadiusKm: *c.RadiusKm,
	}, true
}

// StayRange returns the stay when both dates are set.
func (c *Criteria) StayRange() (Stay, bool) {
	if c.CheckIn == nil || c.CheckOut == nil {
		return Stay{}, false
	}

	return Stay{CheckIn: rental.Day(*c.CheckIn), CheckOut: rental.Day(*c.CheckOut)}, true
}

type Limits struct {
	DefaultPageSize int
	MaxPageSize     int
	// MaxStayNights bounds the stay range a caller may price. Zero disables it.
	MaxStayNights int
}

func (l Limits) stayTooLong(s Stay) bool {
	return l.MaxStayNights > 0 && rental.Nights(s.CheckIn, s.CheckOut) > l.MaxStayNights
}

func (l Limits) stayTooLongMsg() string {
	return fmt.Sprintf("stay must not be longer than %d nights", l.MaxStayNights)
}

// checkStay rejects stays that end before they start or run past MaxStayNights.
func (l Limits) checkStay(s Stay) error {
	inputErr := newInputError()

	switch {
	case !rental.Day(s.CheckIn).Before(rental.Day(s.CheckOut)):
		inputErr.addError("check_out", rental.ErrInvalidRange, "check_out must be after check_in")
	case l.stayTooLong(s):
		inputErr.addError("check_out", rental.ErrInvalidRange, l.stayTooLongMsg())
	default:
		return nil
	}

	return inputErr
}

func (c *Criteria) ordering() Ordering {
	if c.Ordering == "" {
		return OrderPrice
	}

	return c.Ordering
}

func (c *Criteria) pagination(limits Limits) (page, size int) {
	page, size = 1, limits.DefaultPageSize

	if c.Page != nil {
		page = *c.Page
	}

	if c.PageSize != nil {
		size = *c.PageSize
	}

	return page, size
}

//nolint:cyclop,funlen // one independent check per field
func (c *Criteria) validate(limits Limits) error {
	inputErr := newInputError()

	geoGiven := 0

	for _, v := range []*float64{c.Latitude, c.Longitude, c.RadiusKm} {
		if v != nil {
			geoGiven++
		}
	}

	if geoGiven > 0 && geoGiven < 3 {
		inputErr.addError("latitude", rental.ErrInvalidGeoParams,
			"latitude, longitude and radius_km must be provided together")
	}

	if c.Latitude != nil && (*c.Latitude < -90 || *c.Latitude > 90) {
		inputErr.addError("latitude", rental.ErrInvalidGeoParams, "latitude must be between -90 and 90")
	}

	if c.Longitude != nil && (*c.Longitude < -180 || *c.Longitude > 180) {
		inputErr.addError("longitude", rental.ErrInvalidGeoParams, "longitude must be between -180 and 180")
	}

	if c.RadiusKm != nil && !(*c.RadiusKm > 0) {
		inputErr.addError("radius_km", rental.ErrInvalidGeoParams, "radius_km must be greater than 0")
	}

	if (c.CheckIn == nil) != (c.CheckOut == nil) {
		inputErr.addError("check_in", rental.ErrInvalidRange, "check_in and check_out must be provided together")
	}

	if stay, ok := c.StayRange(); ok {
		switch {
		case !stay.CheckIn.Before(stay.CheckOut):
			inputErr.addError("check_out", rental.ErrInvalidRange, "check_out must be after check_in")
		case limits.stayTooLong(stay):
			inputErr.addError("check_out", rental.ErrInvalidRange, limits.stayTooLongMsg())
		}
	}

	order := c.ordering()
	if !order.valid() {
		inputErr.addError("ordering", rental.ErrInvalidOrdering,
			fmt.Sprintf("unknown ordering %q, use one of price, -price, bedrooms, -bedrooms, distance", order))
	}

	if order == OrderDistance && geoGiven == 0 {
		inputErr.addError("ordering", rental.ErrInvalidOrdering,
			"distance ordering requires latitude, longitude and radius_km")
	}

	page, size := c.pagination(limits)
	if page < 1 {
		inputErr.addError("page", rental.ErrInvalidPagination, "page must be at least 1")
	}

	if size < 1 || size > limits.MaxPageSize {
		inputErr.addError("page_size", rental.ErrInvalidPagination,
			fmt.Sprintf("page_size must be between 1 and %d", limits.MaxPageSize))
	}

	if inputErr.fieldsCount() > 0 {
		return inputErr
	}

	return nil
}
