package rental

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReservationStatus string

const (
	StatusConfirmed ReservationStatus = "confirmed"
	StatusPending   ReservationStatus = "pending"
	StatusCancelled ReservationStatus = "cancelled"
)

// Blocking reports whether a reservation in this status occupies its dates.
func (s ReservationStatus) Blocking() bool {
	return s == StatusConfirmed || s == StatusPending
}

func (s ReservationStatus) valid() bool {
	return s.Blocking() || s == StatusCancelled
}

type Point struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

type Image struct {
	URL       string `json:"image_url"`
	IsPrimary bool   `json:"is_primary"`
}

type Listing struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"`
	Description       string          `json:"description,omitempty"`
	PropertyType      string          `json:"property_type"`
	Address           string          `json:"address,omitempty"`
	City              string          `json:"city"`
	Country           string          `json:"country"`
	Location          Point           `json:"location"`
	Bedrooms          int             `json:"bedrooms"`
	Bathrooms         decimal.Decimal `json:"bathrooms"`
	MaxGuests         int             `json:"max_guests"`
	BasePricePerNight decimal.Decimal `json:"base_price_per_night"`
	Currency          string          `json:"currency"`
	Amenities         []string        `json:"amenities"`
	Images            []Image         `json:"images"`
	CreatedAt         time.Time       `json:"created_at"`
}

// PrimaryImage returns the url of the first image flagged primary, or "".
func (l *Listing) PrimaryImage() string {
	for _, img := range l.Images {
		if img.IsPrimary {
			return img.URL
		}
	}

	return ""
}

type PricingRule struct {
	ID         int64           `json:"id"`
	ListingID  int64           `json:"listing_id"`
	Name       string          `json:"name"`
	StartDate  time.Time       `json:"start_date"`
	EndDate    time.Time       `json:"end_date"`
	Multiplier decimal.Decimal `json:"price_multiplier"`
}

// Covers reports whether day lies inside the closed interval [StartDate, EndDate].
func (r *PricingRule) Covers(day time.Time) bool {
	return !day.Before(r.StartDate) && !day.After(r.EndDate)
}

type Reservation struct {
	ID        int64             `json:"id"`
	ListingID int64             `json:"listing_id"`
	CheckIn   time.Time         `json:"check_in"`
	CheckOut  time.Time         `json:"check_out"`
	Status    ReservationStatus `json:"status"`
}

// Snapshot is a read-only view of the catalog handed to a single search.
// Rules and reservations are keyed by listing id.
type Snapshot struct {
	Version      int64
	LoadedAt     time.Time
	Listings     []*Listing
	PricingRules map[int64][]PricingRule
	Reservations map[int64][]Reservation
}
