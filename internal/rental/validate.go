package rental

// MultiplierPlaces is the precision price multipliers are stored with.
const MultiplierPlaces = 2

// ValidPoint reports whether p is inside WGS84 degree bounds.
func ValidPoint(p Point) bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Validate checks the stored-data invariants of every record in the snapshot.
// It never repairs anything; all violations are reported in one IntegrityError.
func (s *Snapshot) Validate() error {
	integrityErr := NewIntegrityError()

	known := make(map[int64]struct{}, len(s.Listings))

	for _, l := range s.Listings {
		if _, dup := known[l.ID]; dup {
			integrityErr.Addf("listing %d: duplicate id", l.ID)
		}

		known[l.ID] = struct{}{}

		if !ValidPoint(l.Location) {
			integrityErr.Addf("listing %d: coordinates (%v, %v) out of range", l.ID, l.Location.Lat, l.Location.Lon)
		}

		if l.BasePricePerNight.IsNegative() {
			integrityErr.Addf("listing %d: negative base price %s", l.ID, l.BasePricePerNight)
		}
	}

	for listingID, rules := range s.PricingRules {
		if _, ok := known[listingID]; !ok {
			integrityErr.Addf("pricing rules reference unknown listing %d", listingID)
		}

		for i := range rules {
			integrityErr.merge(rules[i].Check())
		}
	}

	for listingID, reservations := range s.Reservations {
		if _, ok := known[listingID]; !ok {
			integrityErr.Addf("reservations reference unknown listing %d", listingID)
		}

		for i := range reservations {
			integrityErr.merge(reservations[i].Check())
		}
	}

	if integrityErr.ProblemsCount() > 0 {
		return integrityErr
	}

	return nil
}

// Check reports a malformed rule: start after end or a non-positive multiplier.
func (r *PricingRule) Check() error {
	integrityErr := NewIntegrityError()

	if r.StartDate.After(r.EndDate) {
		integrityErr.Addf("pricing rule %d: start_date %s after end_date %s",
			r.ID, r.StartDate.Format(DateLayout), r.EndDate.Format(DateLayout))
	}

	if !r.Multiplier.IsPositive() {
		integrityErr.Addf("pricing rule %d: multiplier %s must be positive", r.ID, r.Multiplier)
	}

	if !r.Multiplier.Equal(r.Multiplier.Truncate(MultiplierPlaces)) {
		integrityErr.Addf("pricing rule %d: multiplier %s has more than %d decimal places",
			r.ID, r.Multiplier, MultiplierPlaces)
	}

	if integrityErr.ProblemsCount() > 0 {
		return integrityErr
	}

	return nil
}

// Check reports a malformed reservation: empty interval or unknown status.
func (r *Reservation) Check() error {
	integrityErr := NewIntegrityError()

	if !r.CheckIn.Before(r.CheckOut) {
		integrityErr.Addf("reservation %d: check_in %s not before check_out %s",
			r.ID, r.CheckIn.Format(DateLayout), r.CheckOut.Format(DateLayout))
	}

	if !r.Status.valid() {
		integrityErr.Addf("reservation %d: unknown status %q", r.ID, r.Status)
	}

	if integrityErr.ProblemsCount() > 0 {
		return integrityErr
	}

	return nil
}
