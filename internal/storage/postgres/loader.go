package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/avstrong/rentals/internal/rental"
)

const (
	listingsQuery = `SELECT id, name, COALESCE(description, ''), property_type, address, city, country,
	latitude, longitude, bedrooms, bathrooms, max_guests, base_price_per_night, currency, created_at
FROM properties ORDER BY id`

	amenitiesQuery = `SELECT property_id, amenity FROM property_amenities ORDER BY property_id, amenity`

	imagesQuery = `SELECT property_id, image_url, is_primary FROM property_images
ORDER BY property_id, is_primary DESC, id`

	pricingRulesQuery = `SELECT id, property_id, COALESCE(name, ''), start_date, end_date, price_multiplier
FROM pricing_rules ORDER BY property_id, start_date, id`

	// Only blocking bookings matter to availability.
	reservationsQuery = `SELECT id, property_id, check_in, check_out, status FROM bookings
WHERE status IN ('confirmed', 'pending') ORDER BY property_id, check_in, id`
)

// Open connects through the pgx database/sql driver and pings the server.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err = db.PingContext(ctx); err != nil {
		db.Close()

		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return db, nil
}

// Loader reads the whole catalog inside one read-only transaction, so the
// snapshot never mixes rows from before and after a concurrent write.
type Loader struct {
	db *sql.DB
}

func New(db *sql.DB) *Loader {
	return &Loader{db: db}
}

func (ld *Loader) Load(ctx context.Context) (snap *rental.Snapshot, err error) {
	//nolint:exhaustruct
	tx, err := ld.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()

			return
		}

		if err = tx.Commit(); err != nil {
			err = fmt.Errorf("commit transaction: %w", err)
			snap = nil
		}
	}()

	//nolint:exhaustruct
	snap = &rental.Snapshot{
		PricingRules: make(map[int64][]rental.PricingRule),
		Reservations: make(map[int64][]rental.Reservation),
	}

	if snap.Listings, err = readListings(ctx, tx); err != nil {
		return nil, err
	}

	byID := make(map[int64]*rental.Listing, len(snap.Listings))
	for _, l := range snap.Listings {
		byID[l.ID] = l
	}

	if err = readAmenities(ctx, tx, byID); err != nil {
		return nil, err
	}

	if err = readImages(ctx, tx, byID); err != nil {
		return nil, err
	}

	if err = readPricingRules(ctx, tx, snap.PricingRules); err != nil {
		return nil, err
	}

	if err = readReservations(ctx, tx, snap.Reservations); err != nil {
		return nil, err
	}

	snap.LoadedAt = time.Now().UTC()

	return snap, nil
}

func readListings(ctx context.Context, tx *sql.Tx) ([]*rental.Listing, error) {
	rows, err := tx.QueryContext(ctx, listingsQuery)
	if err != nil {
		return nil, fmt.Errorf("query properties: %w", err)
	}
	defer rows.Close()

	var listings []*rental.Listing

	for rows.Next() {
		var l rental.Listing

		if err := rows.Scan(
			&l.ID, &l.Name, &l.Description, &l.PropertyType, &l.Address, &l.City, &l.Country,
			&l.Location.Lat, &l.Location.Lon, &l.Bedrooms, &l.Bathrooms, &l.MaxGuests,
			&l.BasePricePerNight, &l.Currency, &l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan property: %w", err)
		}

		l.CreatedAt = l.CreatedAt.UTC()
		listings = append(listings, &l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate properties: %w", err)
	}

	return listings, nil
}

func readAmenities(ctx context.Context, tx *sql.Tx, byID map[int64]*rental.Listing) error {
	rows, err := tx.QueryContext(ctx, amenitiesQuery)
	if err != nil {
		return fmt.Errorf("query amenities: %w", err)
	}
	defer rows.Close()

	integrityErr := rental.NewIntegrityError()

	for rows.Next() {
		var (
			listingID int64
			amenity   string
		)

		if err := rows.Scan(&listingID, &amenity); err != nil {
			return fmt.Errorf("scan amenity: %w", err)
		}

		l, ok := byID[listingID]
		if !ok {
			integrityErr.Addf("amenity %q references unknown listing %d", amenity, listingID)

			continue
		}

		l.Amenities = append(l.Amenities, amenity)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate amenities: %w", err)
	}

	if integrityErr.ProblemsCount() > 0 {
		return integrityErr
	}

	return nil
}

func readImages(ctx context.Context, tx *sql.Tx, byID map[int64]*rental.Listing) error {
	rows, err := tx.QueryContext(ctx, imagesQuery)
	if err != nil {
		return fmt.Errorf("query images: %w", err)
	}
	defer rows.Close()

	integrityErr := rental.NewIntegrityError()

	for rows.Next() {
		var (
			listingID int64
			img       rental.Image
		)

		if err := rows.Scan(&listingID, &img.URL, &img.IsPrimary); err != nil {
			return fmt.Errorf("scan image: %w", err)
		}

		l, ok := byID[listingID]
		if !ok {
			integrityErr.Addf("image %q references unknown listing %d", img.URL, listingID)

			continue
		}

		l.Images = append(l.Images, img)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate images: %w", err)
	}

	if integrityErr.ProblemsCount() > 0 {
		return integrityErr
	}

	return nil
}

func readPricingRules(ctx context.Context, tx *sql.Tx, out map[int64][]rental.PricingRule) error {
	rows, err := tx.QueryContext(ctx, pricingRulesQuery)
	if err != nil {
		return fmt.Errorf("query pricing rules: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r rental.PricingRule

		if err := rows.Scan(&r.ID, &r.ListingID, &r.Name, &r.StartDate, &r.EndDate, &r.Multiplier); err != nil {
			return fmt.Errorf("scan pricing rule: %w", err)
		}

		r.StartDate = rental.Day(r.StartDate)
		r.EndDate = rental.Day(r.EndDate)
		out[r.ListingID] = append(out[r.ListingID], r)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate pricing rules: %w", err)
	}

	return nil
}

func readReservations(ctx context.Context, tx *sql.Tx, out map[int64][]rental.Reservation) error {
	rows, err := tx.QueryContext(ctx, reservationsQuery)
	if err != nil {
		return fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			r      rental.Reservation
			status string
		)

		if err := rows.Scan(&r.ID, &r.ListingID, &r.CheckIn, &r.CheckOut, &status); err != nil {
			return fmt.Errorf("scan booking: %w", err)
		}

		r.CheckIn = rental.Day(r.CheckIn)
		r.CheckOut = rental.Day(r.CheckOut)
		r.Status = rental.ReservationStatus(status)
		out[r.ListingID] = append(out[r.ListingID], r)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate bookings: %w", err)
	}

	return nil
}
