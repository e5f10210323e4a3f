package availability

import (
	"fmt"
	"sort"
	"time"

	"github.com/avstrong/rentals/internal/rental"
)

type Range struct {
	CheckIn  time.Time
	CheckOut time.Time
	Status   rental.ReservationStatus
}

// Overlaps reports whether the half-open ranges [aIn, aOut) and [bIn, bOut)
// share at least one night. Touching ends do not overlap.
func Overlaps(aIn, aOut, bIn, bOut time.Time) bool {
	return aIn.Before(bOut) && bIn.Before(aOut)
}

// IsAvailable reports whether no confirmed or pending reservation overlaps
// the stay [checkIn, checkOut). Malformed reservations are an integrity error.
func IsAvailable(reservations []rental.Reservation, checkIn, checkOut time.Time) (bool, error) {
	checkIn, checkOut = rental.Day(checkIn), rental.Day(checkOut)

	if !checkIn.Before(checkOut) {
		return false, fmt.Errorf("check_out %s must be after check_in %s: %w",
			checkOut.Format(rental.DateLayout), checkIn.Format(rental.DateLayout), rental.ErrInvalidRange)
	}

	available := true

	for i := range reservations {
		r := &reservations[i]

		if err := r.Check(); err != nil {
			return false, fmt.Errorf("listing %d: %w", r.ListingID, err)
		}

		if r.Status.Blocking() && Overlaps(checkIn, checkOut, r.CheckIn, r.CheckOut) {
			available = false
		}
	}

	return available, nil
}

// Blocked lists the ranges held by confirmed or pending reservations,
// ordered by check-in.
func Blocked(reservations []rental.Reservation) []Range {
	out := make([]Range, 0, len(reservations))

	for _, r := range reservations {
		if !r.Status.Blocking() {
			continue
		}

		out = append(out, Range{CheckIn: r.CheckIn, CheckOut: r.CheckOut, Status: r.Status})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CheckIn.Before(out[j].CheckIn)
	})

	return out
}
