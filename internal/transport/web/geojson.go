package web

import (
	"github.com/mmcloughlin/geohash"

	"github.com/avstrong/rentals/internal/geo"
	"github.com/avstrong/rentals/internal/search"
)

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string            `json:"type"`
	ID         int64             `json:"id"`
	Geometry   pointGeometry     `json:"geometry"`
	Properties featureProperties `json:"properties"`
}

// Coordinates are [longitude, latitude] as GeoJSON requires.
type pointGeometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

type featureProperties struct {
	Name              string    `json:"name"`
	PropertyType      string    `json:"property_type"`
	BasePricePerNight string    `json:"base_price_per_night"`
	Currency          string    `json:"currency"`
	Bedrooms          int       `json:"bedrooms"`
	Bathrooms         string    `json:"bathrooms"`
	Geohash           string    `json:"geohash"`
	DistanceKm        *float64  `json:"distance_km,omitempty"`
	IsAvailable       *bool     `json:"is_available,omitempty"`
	Pricing           *quoteDTO `json:"pricing,omitempty"`
}

func newFeatureCollection(p *search.Page) featureCollection {
	features := make([]feature, 0, len(p.Results))

	for i := range p.Results {
		r := newResultDTO(&p.Results[i])
		l := p.Results[i].Listing

		features = append(features, feature{
			Type: "Feature",
			ID:   l.ID,
			Geometry: pointGeometry{
				Type:        "Point",
				Coordinates: [2]float64{l.Location.Lon, l.Location.Lat},
			},
			Properties: featureProperties{
				Name:              l.Name,
				PropertyType:      l.PropertyType,
				BasePricePerNight: r.BasePricePerNight,
				Currency:          l.Currency,
				Bedrooms:          l.Bedrooms,
				Bathrooms:         r.Bathrooms,
				Geohash:           geohash.EncodeWithPrecision(l.Location.Lat, l.Location.Lon, geo.MaxPrecision),
				DistanceKm:        r.DistanceKm,
				IsAvailable:       r.IsAvailable,
				Pricing:           r.Pricing,
			},
		})
	}

	return featureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}
