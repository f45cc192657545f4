package proximity

import (
	"math"
	"sort"

	"github.com/FACorreiaa/go-route-attractions/internal/types"
)

const earthRadiusKm = 6371.0

// Haversine returns the great-circle distance between two points in km.
func Haversine(a, b types.Coordinate) float64 {
	dLat := radians(b.Latitude - a.Latitude)
	dLon := radians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(a.Latitude))*math.Cos(radians(b.Latitude))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// DistanceToRoute returns the minimum haversine distance from point to any
// vertex of the polyline. This is a nearest-vertex approximation, not
// nearest-point-on-segment: callers depend on exactly this metric to decide
// which candidates fall inside the radius, so keep it as is.
func DistanceToRoute(point types.Coordinate, route types.RoutePolyline) float64 {
	minKm := math.Inf(1)
	for _, vertex := range route {
		if d := Haversine(point, vertex); d < minKm {
			minKm = d
		}
	}
	return minKm
}

// Rank filters candidates to those within maxDistanceKm of the route and
// returns them sorted ascending by distance, rounded to 2 decimals. The
// sort is stable so equidistant candidates keep their input order. The full
// filtered set is returned; truncation for enrichment is the caller's call.
func Rank(candidates []types.RawCandidate, route types.RoutePolyline, maxDistanceKm float64) []types.RankedAttraction {
	ranked := make([]types.RankedAttraction, 0, len(candidates))
	for _, candidate := range candidates {
		distance := DistanceToRoute(candidate.Coordinate, route)
		if distance > maxDistanceKm {
			continue
		}
		ranked = append(ranked, types.RankedAttraction{
			Name:       candidate.Name,
			Latitude:   candidate.Coordinate.Latitude,
			Longitude:  candidate.Coordinate.Longitude,
			Category:   candidate.Category(),
			DistanceKm: math.Round(distance*100) / 100,
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DistanceKm < ranked[j].DistanceKm
	})
	return ranked
}

func radians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
