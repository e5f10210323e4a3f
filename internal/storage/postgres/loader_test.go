package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"

	"github.com/avstrong/rentals/internal/rental"
)

var listingColumns = []string{
	"id", "name", "description", "property_type", "address", "city", "country",
	"latitude", "longitude", "bedrooms", "bathrooms", "max_guests", "base_price_per_night", "currency", "created_at",
}

func expectListings(mock sqlmock.Sqlmock) {
	created := time.Date(2024, 11, 2, 9, 15, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM properties").
		WillReturnRows(sqlmock.NewRows(listingColumns).
			AddRow(1, "Loft in Berlin", "", "Loft", "Karl-Liebknecht-Str. 13", "Berlin", "Germany",
				52.5219, 13.4132, 2, "1.5", 4, "100.00", "EUR", created).
			AddRow(2, "Kreuzberg Studio", "Courtyard", "Studio", "Oranienstr. 185", "Berlin", "Germany",
				52.5003, 13.4187, 1, "1.0", 2, "65.00", "EUR", created))
}

func TestLoadReadsCatalogInOneTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	expectListings(mock)
	mock.ExpectQuery("SELECT property_id, amenity FROM property_amenities").
		WillReturnRows(sqlmock.NewRows([]string{"property_id", "amenity"}).
			AddRow(1, "Kitchen").AddRow(1, "WiFi").AddRow(2, "WiFi"))
	mock.ExpectQuery("SELECT property_id, image_url, is_primary FROM property_images").
		WillReturnRows(sqlmock.NewRows([]string{"property_id", "image_url", "is_primary"}).
			AddRow(1, "https://images.example.com/1.jpg", true))
	mock.ExpectQuery("SELECT (.+) FROM pricing_rules").
		WillReturnRows(sqlmock.NewRows([]string{"id", "property_id", "name", "start_date", "end_date", "price_multiplier"}).
			AddRow(1, 1, "Summer", rental.Date(2025, 6, 1), rental.Date(2025, 8, 31), "1.30"))
	mock.ExpectQuery("SELECT (.+) FROM bookings").
		WillReturnRows(sqlmock.NewRows([]string{"id", "property_id", "check_in", "check_out", "status"}).
			AddRow(9, 2, rental.Date(2025, 7, 1), rental.Date(2025, 7, 5), "pending"))
	mock.ExpectCommit()

	snap, err := New(db).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(snap.Listings) != 2 {
		t.Fatalf("listings: got %d, want 2", len(snap.Listings))
	}

	loft := snap.Listings[0]
	if !loft.Bathrooms.Equal(decimal.RequireFromString("1.5")) || !loft.BasePricePerNight.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("decimals: bathrooms %s, price %s", loft.Bathrooms, loft.BasePricePerNight)
	}

	if len(loft.Amenities) != 2 || loft.PrimaryImage() != "https://images.example.com/1.jpg" {
		t.Fatalf("loft details: %+v", loft)
	}

	if rules := snap.PricingRules[1]; len(rules) != 1 || rules[0].Name != "Summer" {
		t.Fatalf("pricing rules: %+v", snap.PricingRules)
	}

	if res := snap.Reservations[2]; len(res) != 1 || res[0].Status != rental.StatusPending {
		t.Fatalf("reservations: %+v", snap.Reservations)
	}

	if err := snap.Validate(); err != nil {
		t.Fatalf("loaded snapshot is invalid: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLoadRollsBackOnQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	boom := errors.New("relation \"property_amenities\" does not exist")

	mock.ExpectBegin()
	expectListings(mock)
	mock.ExpectQuery("SELECT property_id, amenity FROM property_amenities").WillReturnError(boom)
	mock.ExpectRollback()

	if _, err := New(db).Load(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("got %v, want wrapped query error", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLoadReportsOrphanRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	expectListings(mock)
	mock.ExpectQuery("SELECT property_id, amenity FROM property_amenities").
		WillReturnRows(sqlmock.NewRows([]string{"property_id", "amenity"}).AddRow(42, "Pool"))
	mock.ExpectRollback()

	_, err = New(db).Load(context.Background())
	if !errors.Is(err, rental.ErrDataIntegrity) {
		t.Fatalf("got %v, want ErrDataIntegrity", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
