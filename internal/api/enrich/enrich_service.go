package enrich

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-route-attractions/internal/types"
)

// Service fills in descriptions for the top attractions. Enrichment is
// best-effort: a failed call leaves that item's description empty, and the
// response never blocks on a single slow generation beyond the request
// deadline.
type Service struct {
	logger    *slog.Logger
	generator Generator
}

// NewService builds the enricher. A nil generator disables enrichment
// (descriptions stay empty), which keeps the pipeline usable when no API
// key is configured.
func NewService(generator Generator, logger *slog.Logger) *Service {
	return &Service{
		logger:    logger,
		generator: generator,
	}
}

// Enrich populates Description on the first topN attractions, in place of
// their empty defaults. Items past topN are left untouched. Calls run
// concurrently and results are merged by index, so order is preserved.
func (s *Service) Enrich(ctx context.Context, attractions []types.RankedAttraction, topN int) []types.RankedAttraction {
	if s.generator == nil || len(attractions) == 0 || topN <= 0 {
		return attractions
	}
	if topN > len(attractions) {
		topN = len(attractions)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < topN; i++ {
		g.Go(func() error {
			description, err := s.generator.GenerateDescription(gctx, attractions[i].Name)
			if err != nil {
				// Recovered locally, never escalated.
				s.logger.WarnContext(gctx, "Description generation failed",
					slog.String("attraction", attractions[i].Name),
					slog.Any("error", err),
				)
				return nil
			}
			attractions[i].Description = strings.TrimSpace(description)
			return nil
		})
	}
	// Goroutines only return nil; Wait is for completion, not errors.
	_ = g.Wait()
	return attractions
}
