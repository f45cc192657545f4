package routing

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

var _ Provider = (*OSRMProvider)(nil)

// Provider returns the driving path between two coordinates as an ordered
// polyline. There is no meaningful attraction search without a route, so
// any provider failure (including an empty route list) is an error.
type Provider interface {
	GetRoute(ctx context.Context, from, to types.Coordinate) (types.RoutePolyline, error)
}

// OSRMProvider requests the fastest driving route with full geometry from
// an OSRM instance.
type OSRMProvider struct {
	logger  *slog.Logger
	client  *http.Client
	baseURL string
}

func NewOSRMProvider(baseURL string, client *http.Client, logger *slog.Logger) *OSRMProvider {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &OSRMProvider{
		logger:  logger,
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"` // [lon, lat]
		} `json:"geometry"`
	} `json:"routes"`
}

func (p *OSRMProvider) GetRoute(ctx context.Context, from, to types.Coordinate) (types.RoutePolyline, error) {
	// OSRM takes lon,lat pairs.
	endpoint := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=full&geometries=geojson",
		p.baseURL, from.Longitude, from.Latitude, to.Longitude, to.Latitude)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build route request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("route request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("routing provider returned status %d", resp.StatusCode)
	}

	var decoded osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode route response: %w", err)
	}
	if decoded.Code != "Ok" {
		return nil, fmt.Errorf("routing provider returned code %q: %w", decoded.Code, types.ErrRouteNotFound)
	}
	if len(decoded.Routes) == 0 {
		return nil, fmt.Errorf("routing provider returned no routes: %w", types.ErrRouteNotFound)
	}

	polyline := types.PolylineFromGeoJSON(decoded.Routes[0].Geometry.Coordinates)
	if len(polyline) < 2 {
		return nil, fmt.Errorf("routing provider returned degenerate geometry (%d points): %w",
			len(polyline), types.ErrRouteNotFound)
	}

	p.logger.DebugContext(ctx, "Route resolved", slog.Int("vertices", len(polyline)))
	return polyline, nil
}
