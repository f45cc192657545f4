package trip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-route-attractions/internal/api/geocode"
	"github.com/FACorreiaa/go-route-attractions/internal/api/places"
	"github.com/FACorreiaa/go-route-attractions/internal/api/proximity"
	"github.com/FACorreiaa/go-route-attractions/internal/api/routing"
	"github.com/FACorreiaa/go-route-attractions/internal/types"
)

// FreshnessWindow is the maximum age of a cached route query. A record
// aged exactly the window is already stale ("< window" freshness).
const FreshnessWindow = 7 * 24 * time.Hour

var _ Service = (*ServiceImpl)(nil)

// Service is the business contract for route-proximity recommendations.
type Service interface {
	GetRecommendations(ctx context.Context, startCity, endCity string) (*types.RecommendationResponse, error)
	PurgeStale(ctx context.Context) (int64, error)
}

// Enricher fills in descriptions for the first topN attractions.
// Satisfied by enrich.Service.
type Enricher interface {
	Enrich(ctx context.Context, attractions []types.RankedAttraction, topN int) []types.RankedAttraction
}

// PipelineConfig carries the tunable pipeline knobs. SearchRadiusKm bounds
// the spatial POI query, MaxDistanceKm the distance-to-route filter, TopN
// how many attractions get descriptions and land in "highlighted".
type PipelineConfig struct {
	SearchRadiusKm float64
	MaxDistanceKm  float64
	TopN           int
}

type ServiceImpl struct {
	logger   *slog.Logger
	repo     Repository
	resolver geocode.Resolver
	routes   routing.Provider
	finder   places.Finder
	enricher Enricher
	cfg      PipelineConfig
}

func NewServiceImpl(repo Repository, resolver geocode.Resolver, routes routing.Provider, finder places.Finder, enricher Enricher, cfg PipelineConfig, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:   logger,
		repo:     repo,
		resolver: resolver,
		routes:   routes,
		finder:   finder,
		enricher: enricher,
		cfg:      cfg,
	}
}

// GetRecommendations runs the cache-first pipeline: validate, cache
// lookup, then geocode -> route -> discover -> rank -> enrich -> persist.
// An empty TouristPlaces slice on the returned response is the valid
// "nothing within range" outcome, not an error.
func (s *ServiceImpl) GetRecommendations(ctx context.Context, startCity, endCity string) (*types.RecommendationResponse, error) {
	ctx, span := otel.Tracer("TripService").Start(ctx, "GetRecommendations", trace.WithAttributes(
		attribute.String("trip.start_city", startCity),
		attribute.String("trip.end_city", endCity),
	))
	defer span.End()

	startCity = strings.TrimSpace(startCity)
	endCity = strings.TrimSpace(endCity)
	if startCity == "" || endCity == "" {
		return nil, types.ErrMissingCity
	}

	l := s.logger.With(slog.String("start_city", startCity), slog.String("end_city", endCity))

	// Cache lookup. Stale records are deleted before recompute so the
	// unique (start_city, end_city) key never has two live rows.
	cached, err := s.repo.GetRouteQuery(ctx, startCity, endCity)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("cache lookup failed: %w", err)
	}
	if cached != nil {
		if time.Since(cached.CreatedAt) < FreshnessWindow {
			span.SetAttributes(attribute.Bool("trip.cache_hit", true))
			l.InfoContext(ctx, "Serving route from cache")
			return s.buildCachedResponse(ctx, cached)
		}
		l.InfoContext(ctx, "Cached route is stale, recomputing",
			slog.Time("created_at", cached.CreatedAt))
		if err := s.repo.DeleteRouteQuery(ctx, cached.ID); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to evict stale route: %w", err)
		}
	}

	resp, err := s.computeRecommendations(ctx, startCity, endCity)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetStatus(codes.Ok, "Recommendations computed")
	return resp, nil
}

func (s *ServiceImpl) computeRecommendations(ctx context.Context, startCity, endCity string) (*types.RecommendationResponse, error) {
	l := s.logger.With(slog.String("start_city", startCity), slog.String("end_city", endCity))

	start, err := s.resolver.Resolve(ctx, startCity)
	if err != nil {
		return nil, fmt.Errorf("failed to geocode %q: %w", startCity, err)
	}
	end, err := s.resolver.Resolve(ctx, endCity)
	if err != nil {
		return nil, fmt.Errorf("failed to geocode %q: %w", endCity, err)
	}
	if start == nil || end == nil {
		return nil, types.ErrCityNotFound
	}

	polyline, err := s.routes.GetRoute(ctx, *start, *end)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch route: %w", err)
	}

	anchors := []types.Coordinate{*start, polyline.Midpoint(), *end}
	candidates, err := s.finder.FindCandidates(ctx, anchors, s.cfg.SearchRadiusKm)
	if err != nil {
		return nil, fmt.Errorf("failed to find candidate places: %w", err)
	}

	ranked := proximity.Rank(candidates, polyline, s.cfg.MaxDistanceKm)
	geometry := polyline.GeoJSON()
	if len(ranked) == 0 {
		// Valid empty outcome; nothing is persisted for it.
		l.InfoContext(ctx, "No places within range of route",
			slog.Int("candidates", len(candidates)))
		return &types.RecommendationResponse{
			From:          startCity,
			To:            endCity,
			TouristPlaces: []types.RankedAttraction{},
			RouteGeometry: geometry,
		}, nil
	}

	ranked = s.enricher.Enrich(ctx, ranked, s.cfg.TopN)

	geometryJSON, err := json.Marshal(geometry)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize route geometry: %w", err)
	}
	if _, err := s.repo.SaveRouteQuery(ctx, startCity, endCity, geometryJSON, ranked); err != nil {
		if errors.Is(err, types.ErrDuplicateRouteQuery) {
			// A concurrent request won the insert race; serve its result.
			l.InfoContext(ctx, "Lost route insert race, serving winner's result")
			winner, lookupErr := s.repo.GetRouteQuery(ctx, startCity, endCity)
			if lookupErr == nil && winner != nil {
				return s.buildCachedResponse(ctx, winner)
			}
		}
		return nil, fmt.Errorf("failed to persist route query: %w", err)
	}

	l.InfoContext(ctx, "Computed fresh recommendations",
		slog.Int("candidates", len(candidates)),
		slog.Int("within_range", len(ranked)),
	)
	return &types.RecommendationResponse{
		From:          startCity,
		To:            endCity,
		TouristPlaces: ranked,
		Cached:        false,
		Highlighted:   highlighted(ranked, s.cfg.TopN),
		RouteGeometry: geometry,
	}, nil
}

func (s *ServiceImpl) buildCachedResponse(ctx context.Context, rq *types.RouteQuery) (*types.RecommendationResponse, error) {
	attractions, err := s.repo.GetAttractions(ctx, rq.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cached attractions: %w", err)
	}

	var geometry [][]float64
	if len(rq.Geometry) > 0 {
		if err := json.Unmarshal(rq.Geometry, &geometry); err != nil {
			return nil, fmt.Errorf("failed to deserialize cached geometry: %w", err)
		}
	}

	return &types.RecommendationResponse{
		From:          rq.StartCity,
		To:            rq.EndCity,
		TouristPlaces: attractions,
		Cached:        true,
		Highlighted:   highlighted(attractions, s.cfg.TopN),
		RouteGeometry: geometry,
	}, nil
}

// PurgeStale deletes cached routes older than the freshness window. Runs
// out-of-band from the request pipeline.
func (s *ServiceImpl) PurgeStale(ctx context.Context) (int64, error) {
	deleted, err := s.repo.DeleteOlderThan(ctx, FreshnessWindow)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to purge stale routes", slog.Any("error", err))
		return 0, err
	}
	return deleted, nil
}

func highlighted(attractions []types.RankedAttraction, topN int) []string {
	if topN < 0 {
		topN = 0
	}
	if topN > len(attractions) {
		topN = len(attractions)
	}
	names := make([]string, 0, topN)
	for _, a := range attractions[:topN] {
		names = append(names, a.Name)
	}
	return names
}
