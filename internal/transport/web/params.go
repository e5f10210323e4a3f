package web

import (
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avstrong/rentals/internal/rental"
	"github.com/avstrong/rentals/internal/search"
)

// queryReader parses optional query parameters, collecting one message per
// malformed field instead of stopping at the first.
type queryReader struct {
	q    url.Values
	errs map[string][]string
}

func newQueryReader(r *http.Request) *queryReader {
	return &queryReader{
		q:    r.URL.Query(),
		errs: make(map[string][]string),
	}
}

func (qr *queryReader) fail(name, msg string) {
	qr.errs[name] = append(qr.errs[name], msg)
}

func (qr *queryReader) failed() bool {
	return len(qr.errs) > 0
}

// raw returns the first non-empty value among names, and the name it came from.
func (qr *queryReader) raw(names ...string) (string, string, bool) {
	for _, name := range names {
		if v := strings.TrimSpace(qr.q.Get(name)); v != "" {
			return v, name, true
		}
	}

	return "", "", false
}

func (qr *queryReader) str(name string) string {
	v, _, _ := qr.raw(name)

	return v
}

func (qr *queryReader) integer(name string) *int {
	v, _, ok := qr.raw(name)
	if !ok {
		return nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		qr.fail(name, "must be an integer")

		return nil
	}

	return &n
}

func (qr *queryReader) number(names ...string) *float64 {
	v, name, ok := qr.raw(names...)
	if !ok {
		return nil
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		qr.fail(name, "must be a number")

		return nil
	}

	return &f
}

func (qr *queryReader) dec(name string) *decimal.Decimal {
	v, _, ok := qr.raw(name)
	if !ok {
		return nil
	}

	d, err := decimal.NewFromString(v)
	if err != nil {
		qr.fail(name, "must be a decimal number")

		return nil
	}

	return &d
}

func (qr *queryReader) date(name string) *time.Time {
	v, _, ok := qr.raw(name)
	if !ok {
		return nil
	}

	d, err := rental.ParseDate(v)
	if err != nil {
		qr.fail(name, "must be a date in YYYY-MM-DD format")

		return nil
	}

	return &d
}

func (qr *queryReader) flag(name string) bool {
	v, _, ok := qr.raw(name)
	if !ok {
		return false
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		qr.fail(name, "must be true or false")

		return false
	}

	return b
}

// list accepts both repeated parameters and comma-separated values.
func (qr *queryReader) list(name string) []string {
	var out []string

	for _, v := range qr.q[name] {
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}

	return out
}

func parseCriteria(r *http.Request) (*search.Criteria, map[string][]string) {
	qr := newQueryReader(r)

	c := &search.Criteria{
		PropertyType:  qr.str("property_type"),
		City:          qr.str("city"),
		Country:       qr.str("country"),
		Text:          qr.str("search"),
		MinPrice:      qr.dec("min_price"),
		MaxPrice:      qr.dec("max_price"),
		Bedrooms:      qr.integer("bedrooms"),
		BedroomsMin:   qr.integer("bedrooms_min"),
		Bathrooms:     qr.dec("bathrooms"),
		BathroomsMin:  qr.dec("bathrooms_min"),
		MaxGuestsMin:  qr.integer("max_guests_min"),
		Amenities:     qr.list("amenities"),
		Latitude:      qr.number("latitude"),
		Longitude:     qr.number("longitude"),
		RadiusKm:      qr.number("radius_km", "radius"),
		CheckIn:       qr.date("check_in"),
		CheckOut:      qr.date("check_out"),
		AvailableOnly: qr.flag("available_only"),
		Ordering:      search.Ordering(qr.str("ordering")),
		Page:          qr.integer("page"),
		PageSize:      qr.integer("page_size"),
	}

	if qr.failed() {
		return nil, qr.errs
	}

	return c, nil
}

// parseStay reads check_in and check_out. required makes both mandatory.
func parseStay(r *http.Request, required bool) (*search.Stay, map[string][]string) {
	qr := newQueryReader(r)

	checkIn, checkOut := qr.date("check_in"), qr.date("check_out")

	if qr.failed() {
		return nil, qr.errs
	}

	switch {
	case checkIn == nil && checkOut == nil && !required:
		return nil, nil
	case checkIn == nil || checkOut == nil:
		qr.fail("check_in", "check_in and check_out are required together")

		return nil, qr.errs
	}

	return &search.Stay{CheckIn: *checkIn, CheckOut: *checkOut}, nil
}

var criteriaParams = []string{
	"property_type", "city", "country", "search", "min_price", "max_price",
	"bedrooms", "bedrooms_min", "bathrooms", "bathrooms_min", "max_guests_min", "amenities",
	"latitude", "longitude", "radius_km", "radius", "check_in", "check_out", "available_only",
	"ordering", "page", "page_size",
}

// appliedFilters echoes the recognized parameters the caller actually sent.
func appliedFilters(r *http.Request) map[string]string {
	q := r.URL.Query()
	out := make(map[string]string)

	for _, name := range criteriaParams {
		if vs, ok := q[name]; ok && strings.TrimSpace(strings.Join(vs, "")) != "" {
			out[name] = strings.Join(vs, ",")
		}
	}

	return out
}
