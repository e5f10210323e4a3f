package geo

import (
	"math"

	"github.com/mmcloughlin/geohash"

	"github.com/avstrong/rentals/internal/rental"
)

// MaxPrecision is the finest geohash length kept in the grid (~38m x 19m cells).
const MaxPrecision = 8

type Hit struct {
	Listing    *rental.Listing
	DistanceKm float64
}

// Index is a read-only multi-resolution geohash grid over listing coordinates.
// Build it once per snapshot; Query is safe for concurrent use.
type Index struct {
	listings []*rental.Listing
	// cells[p] maps a geohash of length p to positions in listings.
	cells [MaxPrecision + 1]map[string][]int
}

func Build(listings []*rental.Listing) *Index {
	idx := &Index{listings: listings}

	for p := 1; p <= MaxPrecision; p++ {
		idx.cells[p] = make(map[string][]int)
	}

	for i, l := range listings {
		full := geohash.EncodeWithPrecision(l.Location.Lat, l.Location.Lon, MaxPrecision)
		for p := 1; p <= MaxPrecision; p++ {
			idx.cells[p][full[:p]] = append(idx.cells[p][full[:p]], i)
		}
	}

	return idx
}

func (idx *Index) Len() int {
	return len(idx.listings)
}

// Query returns every listing whose haversine distance to center is at most
// radiusKm, in no particular order.
func (idx *Index) Query(center rental.Point, radiusKm float64) []Hit {
	if radiusKm < 0 || math.IsNaN(radiusKm) || !rental.ValidPoint(center) {
		return nil
	}

	box := BoundsFor(center, radiusKm)

	var hits []Hit

	check := func(i int) {
		l := idx.listings[i]
		if !box.Contains(l.Location) {
			return
		}

		if d := DistanceKm(center, l.Location); d <= radiusKm {
			hits = append(hits, Hit{Listing: l, DistanceKm: d})
		}
	}

	cells, ok := idx.coveringCells(center, box)
	if !ok {
		for i := range idx.listings {
			check(i)
		}

		return hits
	}

	for _, positions := range cells {
		for _, i := range positions {
			check(i)
		}
	}

	return hits
}

// coveringCells picks the finest precision whose cells are at least as large
// as the box half-spans; the center cell and its eight neighbours then cover
// the whole box. It gives up near the poles and across the antimeridian.
func (idx *Index) coveringCells(center rental.Point, box Box) ([][]int, bool) {
	if box.AllLon || box.MinLon < -180 || box.MaxLon > 180 {
		return nil, false
	}

	halfLat, halfLon := box.LatSpan()/2, box.LonSpan()/2 //nolint:gomnd

	for p := MaxPrecision; p >= 1; p-- {
		hash := geohash.EncodeWithPrecision(center.Lat, center.Lon, uint(p))
		cell := geohash.BoundingBox(hash)

		if cell.MaxLat-cell.MinLat < halfLat || cell.MaxLng-cell.MinLng < halfLon {
			continue
		}

		if cell.MaxLat >= 90 || cell.MinLat <= -90 {
			return nil, false
		}

		seen := map[string]struct{}{hash: {}}
		out := [][]int{idx.cells[p][hash]}

		for _, n := range geohash.Neighbors(hash) {
			if _, dup := seen[n]; dup {
				continue
			}

			seen[n] = struct{}{}
			out = append(out, idx.cells[p][n])
		}

		return out, true
	}

	return nil, false
}
