package types

import "github.com/google/uuid"

// RawCandidate is an unfiltered point of interest straight out of the
// places provider. Candidates without a name never make it this far.
type RawCandidate struct {
	Name       string            `json:"name"`
	Coordinate Coordinate        `json:"coordinate"`
	Tags       map[string]string `json:"tags,omitempty"`
}

// Category picks the display category with the same precedence the
// provider tags are trusted in: tourism first, then historic, else "other".
func (c RawCandidate) Category() string {
	if v := c.Tags["tourism"]; v != "" {
		return v
	}
	if v := c.Tags["historic"]; v != "" {
		return v
	}
	return "other"
}

// RankedAttraction is a candidate that survived the distance filter,
// ordered by DistanceKm ascending. Description stays empty unless the
// enrichment step filled it in.
type RankedAttraction struct {
	ID          uuid.UUID `json:"id,omitempty"`
	Name        string    `json:"name"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	DistanceKm  float64   `json:"distance_km"`
}

// RecommendationRequest is the single inbound operation's payload.
type RecommendationRequest struct {
	StartCity string `json:"start_city"`
	EndCity   string `json:"end_city"`
}

// RecommendationResponse is the success payload for a route query, both
// for cold runs and cache hits.
type RecommendationResponse struct {
	From          string             `json:"from"`
	To            string             `json:"to"`
	TouristPlaces []RankedAttraction `json:"tourist_places"`
	Cached        bool               `json:"cached"`
	Highlighted   []string           `json:"highlighted,omitempty"`
	RouteGeometry [][]float64        `json:"route_geometry,omitempty"`
}
