package places

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/FACorreiaa/go-route-attractions/internal/types"
)

var _ Finder = (*OverpassFinder)(nil)

// Finder returns raw points of interest around a set of anchor coordinates.
// Anchors are ordered along the route: first is the start, last is the end,
// the middle one sits halfway. Elements without a name are dropped before
// returning.
type Finder interface {
	FindCandidates(ctx context.Context, anchors []types.Coordinate, radiusKm float64) ([]types.RawCandidate, error)
}

// OverpassFinder issues a spatial tag query against an Overpass API
// instance. The tag families mirror what the product surfaces as tourist
// places: cultural/man-made nodes near the endpoints, natural and leisure
// nodes near the route midpoint.
type OverpassFinder struct {
	logger  *slog.Logger
	client  *http.Client
	baseURL string
}

func NewOverpassFinder(baseURL string, client *http.Client, logger *slog.Logger) *OverpassFinder {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &OverpassFinder{
		logger:  logger,
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type overpassElement struct {
	ID   int64             `json:"id"`
	Type string            `json:"type"`
	Lat  float64           `json:"lat"`
	Lon  float64           `json:"lon"`
	Tags map[string]string `json:"tags"`
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

func (f *OverpassFinder) FindCandidates(ctx context.Context, anchors []types.Coordinate, radiusKm float64) ([]types.RawCandidate, error) {
	if len(anchors) == 0 {
		return nil, fmt.Errorf("places query needs at least one anchor")
	}
	query := buildQuery(anchors, radiusKm)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/api/interpreter", strings.NewReader(query))
	if err != nil {
		return nil, fmt.Errorf("failed to build places request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("places request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("places provider returned status %d", resp.StatusCode)
	}

	var decoded overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode places response: %w", err)
	}

	candidates := make([]types.RawCandidate, 0, len(decoded.Elements))
	for _, element := range decoded.Elements {
		name := element.Tags["name"]
		if name == "" || (element.Lat == 0 && element.Lon == 0) {
			continue
		}
		candidates = append(candidates, types.RawCandidate{
			Name:       name,
			Coordinate: types.Coordinate{Latitude: element.Lat, Longitude: element.Lon},
			Tags:       element.Tags,
		})
	}

	f.logger.DebugContext(ctx, "Places query complete",
		slog.Int("elements", len(decoded.Elements)),
		slog.Int("named_candidates", len(candidates)),
	)
	return candidates, nil
}

// buildQuery assembles the Overpass QL query. Radius is taken in km and
// sent in meters.
func buildQuery(anchors []types.Coordinate, radiusKm float64) string {
	start := anchors[0]
	end := anchors[len(anchors)-1]
	mid := anchors[len(anchors)/2]
	radius := int(radiusKm * 1000)

	var b strings.Builder
	b.WriteString("[out:json][timeout:25];\n(\n")
	fmt.Fprintf(&b, "node[\"tourism\"~\"museum|attraction|viewpoint|theme_park|zoo|artwork|gallery\"](around:%d,%f,%f);\n",
		radius, start.Latitude, start.Longitude)
	fmt.Fprintf(&b, "node[\"historic\"~\"monument|memorial|castle|fort|ruins\"](around:%d,%f,%f);\n",
		radius, end.Latitude, end.Longitude)
	fmt.Fprintf(&b, "node[\"amenity\"~\"fountain|theatre\"](around:%d,%f,%f);\n",
		radius, mid.Latitude, mid.Longitude)
	fmt.Fprintf(&b, "node[\"leisure\"~\"park|garden|nature_reserve\"](around:%d,%f,%f);\n",
		radius, mid.Latitude, mid.Longitude)
	fmt.Fprintf(&b, "node[\"natural\"~\"waterfall|beach|cliff|spring|cave_entrance|volcano\"](around:%d,%f,%f);\n",
		radius, mid.Latitude, mid.Longitude)
	fmt.Fprintf(&b, "node[\"water\"~\"lake|river\"](around:%d,%f,%f);\n",
		radius, mid.Latitude, mid.Longitude)
	fmt.Fprintf(&b, "node[\"place\"=\"island\"](around:%d,%f,%f);\n",
		radius, mid.Latitude, mid.Longitude)
	b.WriteString(");\nout body;\n")
	return b.String()
}
