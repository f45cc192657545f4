package types

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Coordinate is a WGS84 point. Latitude in [-90,90], longitude in [-180,180].
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the coordinate is inside the WGS84 envelope.
func (c Coordinate) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// RoutePolyline is an ordered sequence of route vertices, start to end.
// Immutable once returned by the routing provider; length >= 2.
type RoutePolyline []Coordinate

// Midpoint returns the coordinate halfway between the polyline endpoints.
// Used as the third anchor for the spatial POI query.
func (p RoutePolyline) Midpoint() Coordinate {
	if len(p) == 0 {
		return Coordinate{}
	}
	first, last := p[0], p[len(p)-1]
	return Coordinate{
		Latitude:  (first.Latitude + last.Latitude) / 2,
		Longitude: (first.Longitude + last.Longitude) / 2,
	}
}

// GeoJSON returns the polyline as [lon,lat] pairs, the shape stored with
// the cached route and sent to the frontend.
func (p RoutePolyline) GeoJSON() [][]float64 {
	coords := make([][]float64, 0, len(p))
	for _, c := range p {
		coords = append(coords, []float64{c.Longitude, c.Latitude})
	}
	return coords
}

// PolylineFromGeoJSON rebuilds a polyline from stored [lon,lat] pairs.
func PolylineFromGeoJSON(coords [][]float64) RoutePolyline {
	polyline := make(RoutePolyline, 0, len(coords))
	for _, pair := range coords {
		if len(pair) < 2 {
			continue
		}
		polyline = append(polyline, Coordinate{Latitude: pair[1], Longitude: pair[0]})
	}
	return polyline
}

// RouteQuery matches the route_queries table structure. One row per
// (start_city, end_city) pair; attractions cascade-delete with it.
type RouteQuery struct {
	ID        uuid.UUID `json:"id"`
	StartCity string    `json:"start_city"`
	EndCity   string    `json:"end_city"`
	Geometry  []byte    `json:"-"` // serialized [[lon,lat],...] as stored
	CreatedAt time.Time `json:"created_at"`
}

// Sentinel errors for the pipeline's result variants. The handler maps
// these to client-facing statuses; everything else is a server error.
var (
	ErrMissingCity         = errors.New("both start and end cities are required")
	ErrCityNotFound        = errors.New("could not geocode one or both cities")
	ErrRouteNotFound       = errors.New("no driving route found between cities")
	ErrDuplicateRouteQuery = errors.New("route query already exists for city pair")
)
