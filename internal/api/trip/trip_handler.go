package trip

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-route-attractions/app/observability/metrics"
	"github.com/FACorreiaa/go-route-attractions/internal/api"
	"github.com/FACorreiaa/go-route-attractions/internal/types"
)

type Handler struct {
	tripService Service
	logger      *slog.Logger
}

func NewHandler(tripService Service, logger *slog.Logger) *Handler {
	return &Handler{
		tripService: tripService,
		logger:      logger,
	}
}

// GetRecommendations handles the single inbound pipeline operation:
// POST /recommendations with {start_city, end_city}.
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "GetRecommendations", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/recommendations"),
	))
	defer span.End()

	m := metrics.Get()
	started := time.Now()
	defer func() {
		m.RecommendationDurationSeconds.Record(ctx, time.Since(started).Seconds())
	}()
	m.RecommendationRequestsTotal.Add(ctx, 1)

	l := h.logger.With(slog.String("handler", "GetRecommendations"))
	l.DebugContext(ctx, "Recommendations handler invoked")

	var req types.RecommendationRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.ErrorContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.tripService.GetRecommendations(ctx, req.StartCity, req.EndCity)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrMissingCity):
			l.ErrorContext(ctx, "Missing city in request")
			api.ErrorResponse(w, r, http.StatusBadRequest, "Both start and end cities are required.")
		case errors.Is(err, types.ErrCityNotFound):
			l.InfoContext(ctx, "Geocoding found no match", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusBadRequest, "Could not geocode one or both cities.")
		default:
			l.ErrorContext(ctx, "Recommendation pipeline failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, fmt.Sprintf("Failed to compute recommendations: %s", err.Error()))
		}
		return
	}

	if resp.Cached {
		m.CacheHitsTotal.Add(ctx, 1)
	}
	if len(resp.TouristPlaces) == 0 && !resp.Cached {
		l.InfoContext(ctx, "No tourist places within range")
		api.WriteJSONResponse(w, r, http.StatusOK, map[string]string{
			"message": "No tourist places found within range of the route.",
		})
		return
	}

	l.InfoContext(ctx, "Recommendations served",
		slog.Bool("cached", resp.Cached),
		slog.Int("places", len(resp.TouristPlaces)),
	)
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}
