package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/avstrong/rentals/internal/rental"
	"github.com/avstrong/rentals/internal/search"
	"github.com/avstrong/rentals/internal/storage/memory"
)

const defaultNearbyRadiusKm = 10

type errorsBody struct {
	Errors map[string][]string `json:"errors"`
}

type messageBody struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.l.With("trace_id", traceIDFromContext(r.Context())).LogErrorf("Could not encode response: %v", err.Error())
	}
}

// writeError maps domain errors onto status codes: caller mistakes are 400,
// unknown listings 404, an empty store 503 and everything else 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if inputErr := search.IsInputError(err); inputErr != nil {
		s.writeJSON(w, r, http.StatusBadRequest, errorsBody{Errors: inputErr.Fields()})

		return
	}

	switch {
	case errors.Is(err, rental.ErrInvalidRange):
		s.writeJSON(w, r, http.StatusBadRequest, errorsBody{Errors: map[string][]string{
			"check_out": {"check_out must be after check_in"},
		}})
	case errors.Is(err, rental.ErrListingNotFound):
		s.writeJSON(w, r, http.StatusNotFound, messageBody{Error: "listing not found"})
	case errors.Is(err, memory.ErrCatalogNotLoaded):
		s.writeJSON(w, r, http.StatusServiceUnavailable, messageBody{Error: "catalog is not loaded yet"})
	default:
		s.l.With("trace_id", traceIDFromContext(r.Context())).LogErrorf("Request %s failed: %v", r.URL.Path, err.Error())
		s.writeJSON(w, r, http.StatusInternalServerError, messageBody{Error: http.StatusText(http.StatusInternalServerError)})
	}
}

func (s *Server) listingID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		s.writeJSON(w, r, http.StatusBadRequest, errorsBody{Errors: map[string][]string{
			"id": {"must be a positive integer"},
		}})

		return 0, false
	}

	return id, true
}

func (s *Server) searchHandler(w http.ResponseWriter, r *http.Request) {
	criteria, fieldErrs := parseCriteria(r)
	if fieldErrs != nil {
		s.writeJSON(w, r, http.StatusBadRequest, errorsBody{Errors: fieldErrs})

		return
	}

	page, err := s.manager.Search(r.Context(), criteria)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	s.writeJSON(w, r, http.StatusOK, newPageDTO(page, appliedFilters(r)))
}

func (s *Server) nearbyHandler(w http.ResponseWriter, r *http.Request) {
	criteria, fieldErrs := parseCriteria(r)
	if fieldErrs != nil {
		s.writeJSON(w, r, http.StatusBadRequest, errorsBody{Errors: fieldErrs})

		return
	}

	if criteria.Latitude == nil || criteria.Longitude == nil {
		s.writeJSON(w, r, http.StatusBadRequest, errorsBody{Errors: map[string][]string{
			"latitude": {"latitude and longitude are required"},
		}})

		return
	}

	if criteria.RadiusKm == nil {
		radius := s.conf.NearbyRadiusKm
		if radius <= 0 {
			radius = defaultNearbyRadiusKm
		}

		criteria.RadiusKm = &radius
	}

	if criteria.Ordering == "" {
		criteria.Ordering = search.OrderDistance
	}

	page, err := s.manager.Search(r.Context(), criteria)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	s.writeJSON(w, r, http.StatusOK, nearbyDTO{
		pageDTO:  newPageDTO(page, appliedFilters(r)),
		RadiusKm: *criteria.RadiusKm,
		Center:   rental.Point{Lat: *criteria.Latitude, Lon: *criteria.Longitude},
	})
}

func (s *Server) geojsonHandler(w http.ResponseWriter, r *http.Request) {
	criteria, fieldErrs := parseCriteria(r)
	if fieldErrs != nil {
		s.writeJSON(w, r, http.StatusBadRequest, errorsBody{Errors: fieldErrs})

		return
	}

	// A map wants as many points as allowed in one response.
	if criteria.PageSize == nil {
		size := s.manager.Limits().MaxPageSize
		criteria.PageSize = &size
	}

	page, err := s.manager.Search(r.Context(), criteria)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)

	if err = json.NewEncoder(w).Encode(newFeatureCollection(page)); err != nil {
		s.l.LogErrorf("Could not encode geojson: %v", err.Error())
	}
}

func (s *Server) listingHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := s.listingID(w, r)
	if !ok {
		return
	}

	detail, err := s.manager.Listing(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	s.writeJSON(w, r, http.StatusOK, newDetailDTO(detail))
}

func (s *Server) priceHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := s.listingID(w, r)
	if !ok {
		return
	}

	stay, fieldErrs := parseStay(r, true)
	if fieldErrs != nil {
		s.writeJSON(w, r, http.StatusBadRequest, errorsBody{Errors: fieldErrs})

		return
	}

	quote, err := s.manager.Quote(r.Context(), id, stay.CheckIn, stay.CheckOut)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	s.writeJSON(w, r, http.StatusOK, newQuoteDTO(quote))
}

func (s *Server) availabilityHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := s.listingID(w, r)
	if !ok {
		return
	}

	stay, fieldErrs := parseStay(r, false)
	if fieldErrs != nil {
		s.writeJSON(w, r, http.StatusBadRequest, errorsBody{Errors: fieldErrs})

		return
	}

	report, err := s.manager.Availability(r.Context(), id, stay)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	s.writeJSON(w, r, http.StatusOK, newAvailabilityDTO(report))
}

func (s *Server) livenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addRoutes(r chi.Router) {
	r.Use(s.recoverMiddleware(), s.loggerMiddleware(), s.corsMiddleware())

	r.Get(s.conf.LivenessEndpoint, s.livenessHandler)

	r.Route("/api/listings/v1", func(r chi.Router) {
		r.Get("/", s.searchHandler)
		r.Get("/nearby", s.nearbyHandler)
		r.Get("/geojson", s.geojsonHandler)
		r.Get("/{id}", s.listingHandler)
		r.Get("/{id}/price", s.priceHandler)
		r.Get("/{id}/availability", s.availabilityHandler)
	})
}
