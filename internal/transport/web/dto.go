package web

import (
	"math"
	"time"

	"github.com/mmcloughlin/geohash"

	"github.com/avstrong/rentals/internal/availability"
	"github.com/avstrong/rentals/internal/geo"
	"github.com/avstrong/rentals/internal/pricing"
	"github.com/avstrong/rentals/internal/rental"
	"github.com/avstrong/rentals/internal/search"
)

// Money and multipliers go over the wire as fixed two-decimal strings.
const moneyPlaces = 2

type listingDTO struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	PropertyType      string    `json:"property_type"`
	City              string    `json:"city"`
	Country           string    `json:"country"`
	Latitude          float64   `json:"latitude"`
	Longitude         float64   `json:"longitude"`
	Bedrooms          int       `json:"bedrooms"`
	Bathrooms         string    `json:"bathrooms"`
	MaxGuests         int       `json:"max_guests"`
	BasePricePerNight string    `json:"base_price_per_night"`
	Currency          string    `json:"currency"`
	Amenities         []string  `json:"amenities"`
	PrimaryImage      string    `json:"primary_image,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

func newListingDTO(l *rental.Listing) listingDTO {
	amenities := l.Amenities
	if amenities == nil {
		amenities = []string{}
	}

	return listingDTO{
		ID:                l.ID,
		Name:              l.Name,
		PropertyType:      l.PropertyType,
		City:              l.City,
		Country:           l.Country,
		Latitude:          l.Location.Lat,
		Longitude:         l.Location.Lon,
		Bedrooms:          l.Bedrooms,
		Bathrooms:         l.Bathrooms.StringFixed(1),
		MaxGuests:         l.MaxGuests,
		BasePricePerNight: l.BasePricePerNight.StringFixed(moneyPlaces),
		Currency:          l.Currency,
		Amenities:         amenities,
		PrimaryImage:      l.PrimaryImage(),
		CreatedAt:         l.CreatedAt,
	}
}

type nightDTO struct {
	Date       string `json:"date"`
	BasePrice  string `json:"base_price"`
	Multiplier string `json:"multiplier"`
	Price      string `json:"price"`
	Rule       string `json:"rule"`
}

type quoteDTO struct {
	ListingID         int64      `json:"listing_id"`
	CheckIn           string     `json:"check_in"`
	CheckOut          string     `json:"check_out"`
	Nights            int        `json:"nights"`
	Currency          string     `json:"currency"`
	BasePricePerNight string     `json:"base_price_per_night"`
	TotalPrice        string     `json:"total_price"`
	AveragePerNight   string     `json:"average_price_per_night"`
	DailyBreakdown    []nightDTO `json:"daily_breakdown"`
}

func newQuoteDTO(q *pricing.Quote) *quoteDTO {
	if q == nil {
		return nil
	}

	nights := make([]nightDTO, 0, len(q.Breakdown))
	for _, n := range q.Breakdown {
		nights = append(nights, nightDTO{
			Date:       n.Date.Format(rental.DateLayout),
			BasePrice:  n.BasePrice.StringFixed(moneyPlaces),
			Multiplier: n.Multiplier.StringFixed(rental.MultiplierPlaces),
			Price:      n.Price.StringFixed(moneyPlaces),
			Rule:       n.Rule,
		})
	}

	return &quoteDTO{
		ListingID:         q.ListingID,
		CheckIn:           q.CheckIn.Format(rental.DateLayout),
		CheckOut:          q.CheckOut.Format(rental.DateLayout),
		Nights:            q.Nights,
		Currency:          q.Currency,
		BasePricePerNight: q.BasePricePerNight.StringFixed(moneyPlaces),
		TotalPrice:        q.Total.StringFixed(moneyPlaces),
		AveragePerNight:   q.AverageNightly.StringFixed(moneyPlaces),
		DailyBreakdown:    nights,
	}
}

type resultDTO struct {
	listingDTO
	DistanceKm  *float64  `json:"distance_km,omitempty"`
	IsAvailable *bool     `json:"is_available,omitempty"`
	Pricing     *quoteDTO `json:"pricing,omitempty"`
}

func roundKm(d float64) float64 {
	return math.Round(d*100) / 100 //nolint:gomnd
}

func newResultDTO(r *search.Result) resultDTO {
	out := resultDTO{
		listingDTO:  newListingDTO(r.Listing),
		DistanceKm:  nil,
		IsAvailable: r.IsAvailable,
		Pricing:     newQuoteDTO(r.Pricing),
	}

	if r.DistanceKm != nil {
		d := roundKm(*r.DistanceKm)
		out.DistanceKm = &d
	}

	return out
}

type pageDTO struct {
	Count          int               `json:"count"`
	Page           int               `json:"page"`
	PageSize       int               `json:"page_size"`
	CatalogVersion int64             `json:"catalog_version"`
	FiltersApplied map[string]string `json:"filters_applied"`
	Results        []resultDTO       `json:"results"`
}

func newPageDTO(p *search.Page, filters map[string]string) pageDTO {
	results := make([]resultDTO, 0, len(p.Results))
	for i := range p.Results {
		results = append(results, newResultDTO(&p.Results[i]))
	}

	return pageDTO{
		Count:          p.Count,
		Page:           p.Page,
		PageSize:       p.PageSize,
		CatalogVersion: p.Version,
		FiltersApplied: filters,
		Results:        results,
	}
}

type nearbyDTO struct {
	pageDTO
	RadiusKm float64      `json:"radius_km"`
	Center   rental.Point `json:"center"`
}

type rangeDTO struct {
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
	Status   string `json:"status"`
}

func newRangeDTOs(ranges []availability.Range) []rangeDTO {
	out := make([]rangeDTO, 0, len(ranges))
	for _, r := range ranges {
		out = append(out, rangeDTO{
			CheckIn:  r.CheckIn.Format(rental.DateLayout),
			CheckOut: r.CheckOut.Format(rental.DateLayout),
			Status:   string(r.Status),
		})
	}

	return out
}

type detailDTO struct {
	listingDTO
	Description      string         `json:"description"`
	Address          string         `json:"address"`
	Geohash          string         `json:"geohash"`
	Images           []rental.Image `json:"images"`
	UnavailableDates []rangeDTO     `json:"unavailable_dates"`
}

func newDetailDTO(d *search.ListingDetail) detailDTO {
	images := d.Listing.Images
	if images == nil {
		images = []rental.Image{}
	}

	return detailDTO{
		listingDTO:       newListingDTO(d.Listing),
		Description:      d.Listing.Description,
		Address:          d.Listing.Address,
		Geohash:          geohash.EncodeWithPrecision(d.Listing.Location.Lat, d.Listing.Location.Lon, geo.MaxPrecision),
		Images:           images,
		UnavailableDates: newRangeDTOs(d.Blocked),
	}
}

type availabilityDTO struct {
	ListingID        int64      `json:"listing_id"`
	CheckIn          string     `json:"check_in,omitempty"`
	CheckOut         string     `json:"check_out,omitempty"`
	IsAvailable      *bool      `json:"is_available,omitempty"`
	UnavailableDates []rangeDTO `json:"unavailable_dates"`
	TotalBookings    int        `json:"total_bookings"`
}

func newAvailabilityDTO(r *search.AvailabilityReport) availabilityDTO {
	out := availabilityDTO{
		ListingID:        r.ListingID,
		CheckIn:          "",
		CheckOut:         "",
		IsAvailable:      r.IsAvailable,
		UnavailableDates: newRangeDTOs(r.Blocked),
		TotalBookings:    len(r.Blocked),
	}

	if r.Stay != nil {
		out.CheckIn = r.Stay.CheckIn.Format(rental.DateLayout)
		out.CheckOut = r.Stay.CheckOut.Format(rental.DateLayout)
	}

	return out
}
