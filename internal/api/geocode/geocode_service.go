package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/FACorreiaa/go-route-attractions/internal/types"
)

var _ Resolver = (*NominatimResolver)(nil)

// Resolver maps a free-text place name to a coordinate.
// A nil coordinate with a nil error means the provider found no match.
type Resolver interface {
	Resolve(ctx context.Context, placeName string) (*types.Coordinate, error)
}

// NominatimResolver resolves city names against a Nominatim instance.
// Results are memoized in-process: cities do not move, so a 24h TTL is
// plenty and keeps us polite towards the public endpoint.
type NominatimResolver struct {
	logger    *slog.Logger
	client    *http.Client
	baseURL   string
	userAgent string
	cache     *cache.Cache
}

func NewNominatimResolver(baseURL, userAgent string, client *http.Client, logger *slog.Logger) *NominatimResolver {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &NominatimResolver{
		logger:    logger,
		client:    client,
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		cache:     cache.New(24*time.Hour, 1*time.Hour),
	}
}

// nominatimPlace is the subset of the /search response we care about.
// Nominatim serializes coordinates as strings.
type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (r *NominatimResolver) Resolve(ctx context.Context, placeName string) (*types.Coordinate, error) {
	cacheKey := strings.ToLower(strings.TrimSpace(placeName))
	if cached, found := r.cache.Get(cacheKey); found {
		coord := cached.(types.Coordinate)
		return &coord, nil
	}

	endpoint := fmt.Sprintf("%s/search?q=%s&format=json&limit=1", r.baseURL, url.QueryEscape(placeName))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geocode request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode provider returned status %d", resp.StatusCode)
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("failed to decode geocode response: %w", err)
	}
	if len(places) == 0 {
		r.logger.DebugContext(ctx, "No geocode match", slog.String("place", placeName))
		return nil, nil
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude %q in geocode response: %w", places[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude %q in geocode response: %w", places[0].Lon, err)
	}

	coord := types.Coordinate{Latitude: lat, Longitude: lon}
	if !coord.Valid() {
		return nil, fmt.Errorf("geocode response out of range: lat=%f lon=%f", lat, lon)
	}

	r.cache.Set(cacheKey, coord, cache.DefaultExpiration)
	return &coord, nil
}
