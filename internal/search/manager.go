package search

import (
	"context"
	"fmt"
	"time"

	"github.com/avstrong/rentals/internal/availability"
	"github.com/avstrong/rentals/internal/logger"
	"github.com/avstrong/rentals/internal/pricing"
	"github.com/avstrong/rentals/internal/rental"
)

type catalogReader interface {
	Catalog(ctx context.Context) (*Catalog, error)
}

type Manager struct {
	l           *logger.Logger
	storage     catalogReader
	coordinator *Coordinator
}

func New(l *logger.Logger, storage catalogReader, limits Limits) *Manager {
	return &Manager{
		l:           l,
		storage:     storage,
		coordinator: NewCoordinator(limits),
	}
}

func (m *Manager) Limits() Limits {
	return m.coordinator.Limits()
}

func (m *Manager) catalog(ctx context.Context) (*Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("search aborted: %w", err)
	}

	cat, err := m.storage.Catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("get catalog from storage: %w", err)
	}

	return cat, nil
}

// Search runs c against the current catalog. The catalog is pinned for the
// whole call, so a concurrent refresh never mixes two snapshots in one page.
func (m *Manager) Search(ctx context.Context, c *Criteria) (*Page, error) {
	cat, err := m.catalog(ctx)
	if err != nil {
		return nil, err
	}

	page, err := m.coordinator.Search(cat, c)
	if err != nil {
		if IsInputError(err) == nil {
			m.l.LogErrorf("Search over catalog version %d failed: %v", cat.Version(), err.Error())
		}

		return nil, err
	}

	m.l.LogDebug("Search matched %d listings on catalog version %d", page.Count, cat.Version())

	return page, nil
}

type ListingDetail struct {
	Listing *rental.Listing
	Blocked []availability.Range
}

func (m *Manager) Listing(ctx context.Context, id int64) (*ListingDetail, error) {
	cat, err := m.catalog(ctx)
	if err != nil {
		return nil, err
	}

	l, ok := cat.Listing(id)
	if !ok {
		return nil, fmt.Errorf("listing %d: %w", id, rental.ErrListingNotFound)
	}

	return &ListingDetail{
		Listing: l,
		Blocked: availability.Blocked(cat.Reservations(id)),
	}, nil
}

func (m *Manager) Quote(ctx context.Context, id int64, checkIn, checkOut time.Time) (*pricing.Quote, error) {
	cat, err := m.catalog(ctx)
	if err != nil {
		return nil, err
	}

	l, ok := cat.Listing(id)
	if !ok {
		return nil, fmt.Errorf("listing %d: %w", id, rental.ErrListingNotFound)
	}

	if err = m.Limits().checkStay(Stay{CheckIn: checkIn, CheckOut: checkOut}); err != nil {
		return nil, err
	}

	quote, err := pricing.Calculate(l, cat.Rules(id), checkIn, checkOut)
	if err != nil {
		return nil, fmt.Errorf("price listing %d: %w", id, err)
	}

	return quote, nil
}

type AvailabilityReport struct {
	ListingID   int64
	Stay        *Stay
	IsAvailable *bool
	Blocked     []availability.Range
}

// Availability lists the blocked ranges of a listing. When stay is non-nil it
// also reports whether the stay fits.
func (m *Manager) Availability(ctx context.Context, id int64, stay *Stay) (*AvailabilityReport, error) {
	cat, err := m.catalog(ctx)
	if err != nil {
		return nil, err
	}

	if _, ok := cat.Listing(id); !ok {
		return nil, fmt.Errorf("listing %d: %w", id, rental.ErrListingNotFound)
	}

	reservations := cat.Reservations(id)

	//nolint:exhaustruct
	report := &AvailabilityReport{
		ListingID: id,
		Blocked:   availability.Blocked(reservations),
	}

	if stay == nil {
		return report, nil
	}

	free, err := availability.IsAvailable(reservations, stay.CheckIn, stay.CheckOut)
	if err != nil {
		return nil, fmt.Errorf("check availability of listing %d: %w", id, err)
	}

	report.Stay = stay
	report.IsAvailable = &free

	return report, nil
}
