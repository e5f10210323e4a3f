package migration

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopspring/decimal"

	"github.com/avstrong/rentals/internal/logger"
	"github.com/avstrong/rentals/internal/rental"
)

const schemaURL = "fixtures/schema.json"

var (
	//go:embed fixtures/catalog.json
	catalogJSON []byte

	//go:embed fixtures/schema.json
	schemaJSON []byte
)

var ErrInvalidFixtures = errors.New("fixtures do not match schema")

type storage interface {
	Replace(ctx context.Context, snap *rental.Snapshot) (int64, error)
}

type document struct {
	Listings     []listingRecord     `json:"listings"`
	PricingRules []pricingRuleRecord `json:"pricing_rules"`
	Reservations []reservationRecord `json:"reservations"`
}

type listingRecord struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	PropertyType      string          `json:"property_type"`
	Address           string          `json:"address"`
	City              string          `json:"city"`
	Country           string          `json:"country"`
	Latitude          float64         `json:"latitude"`
	Longitude         float64         `json:"longitude"`
	Bedrooms          int             `json:"bedrooms"`
	Bathrooms         decimal.Decimal `json:"bathrooms"`
	MaxGuests         int             `json:"max_guests"`
	BasePricePerNight decimal.Decimal `json:"base_price_per_night"`
	Currency          string          `json:"currency"`
	Amenities         []string        `json:"amenities"`
	Images            []rental.Image  `json:"images"`
	CreatedAt         time.Time       `json:"created_at"`
}

type pricingRuleRecord struct {
	ID         int64           `json:"id"`
	ListingID  int64           `json:"listing_id"`
	Name       string          `json:"name"`
	StartDate  string          `json:"start_date"`
	EndDate    string          `json:"end_date"`
	Multiplier decimal.Decimal `json:"price_multiplier"`
}

type reservationRecord struct {
	ID        int64  `json:"id"`
	ListingID int64  `json:"listing_id"`
	CheckIn   string `json:"check_in"`
	CheckOut  string `json:"check_out"`
	Status    string `json:"status"`
}

// Loader turns fixture documents into snapshots. The built-in document is
// embedded in the binary, so the service can start without a database.
type Loader struct {
	schema *jsonschema.Schema
}

func NewLoader() (*Loader, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true

	if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("add fixtures schema: %w", err)
	}

	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile fixtures schema: %w", err)
	}

	return &Loader{schema: schema}, nil
}

// Load decodes the embedded fixtures.
func (ld *Loader) Load(_ context.Context) (*rental.Snapshot, error) {
	return ld.Decode(catalogJSON)
}

// Decode validates data against the fixtures schema and converts it.
func (ld *Loader) Decode(data []byte) (*rental.Snapshot, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}

	if err := ld.schema.Validate(raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFixtures, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}

	return doc.snapshot()
}

func (d *document) snapshot() (*rental.Snapshot, error) {
	//nolint:exhaustruct
	snap := &rental.Snapshot{
		Listings:     make([]*rental.Listing, 0, len(d.Listings)),
		PricingRules: make(map[int64][]rental.PricingRule),
		Reservations: make(map[int64][]rental.Reservation),
	}

	for _, rec := range d.Listings {
		snap.Listings = append(snap.Listings, &rental.Listing{
			ID:                rec.ID,
			Name:              rec.Name,
			Description:       rec.Description,
			PropertyType:      rec.PropertyType,
			Address:           rec.Address,
			City:              rec.City,
			Country:           rec.Country,
			Location:          rental.Point{Lat: rec.Latitude, Lon: rec.Longitude},
			Bedrooms:          rec.Bedrooms,
			Bathrooms:         rec.Bathrooms,
			MaxGuests:         rec.MaxGuests,
			BasePricePerNight: rec.BasePricePerNight,
			Currency:          rec.Currency,
			Amenities:         rec.Amenities,
			Images:            rec.Images,
			CreatedAt:         rec.CreatedAt.UTC(),
		})
	}

	for _, rec := range d.PricingRules {
		start, err := rental.ParseDate(rec.StartDate)
		if err != nil {
			return nil, fmt.Errorf("pricing rule %d: %w", rec.ID, err)
		}

		end, err := rental.ParseDate(rec.EndDate)
		if err != nil {
			return nil, fmt.Errorf("pricing rule %d: %w", rec.ID, err)
		}

		snap.PricingRules[rec.ListingID] = append(snap.PricingRules[rec.ListingID], rental.PricingRule{
			ID:         rec.ID,
			ListingID:  rec.ListingID,
			Name:       rec.Name,
			StartDate:  start,
			EndDate:    end,
			Multiplier: rec.Multiplier,
		})
	}

	for _, rec := range d.Reservations {
		checkIn, err := rental.ParseDate(rec.CheckIn)
		if err != nil {
			return nil, fmt.Errorf("reservation %d: %w", rec.ID, err)
		}

		checkOut, err := rental.ParseDate(rec.CheckOut)
		if err != nil {
			return nil, fmt.Errorf("reservation %d: %w", rec.ID, err)
		}

		status := rental.ReservationStatus(rec.Status)
		if status == "" {
			status = rental.StatusConfirmed
		}

		snap.Reservations[rec.ListingID] = append(snap.Reservations[rec.ListingID], rental.Reservation{
			ID:        rec.ID,
			ListingID: rec.ListingID,
			CheckIn:   checkIn,
			CheckOut:  checkOut,
			Status:    status,
		})
	}

	return snap, nil
}

// Up seeds storage with the embedded fixtures.
func Up(ctx context.Context, l *logger.Logger, storage storage) error {
	loader, err := NewLoader()
	if err != nil {
		return err
	}

	snap, err := loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("load fixtures: %w", err)
	}

	version, err := storage.Replace(ctx, snap)
	if err != nil {
		return fmt.Errorf("save fixtures to storage: %w", err)
	}

	l.LogInfo("Fixtures loaded as catalog version %d: %d listings", version, len(snap.Listings))

	return nil
}
