package trip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/FACorreiaa/go-route-attractions/internal/types"
)

var _ Repository = (*PostgresTripRepository)(nil)

// Repository is the persistence contract behind the route cache. A nil
// RouteQuery with a nil error is a cache miss.
type Repository interface {
	GetRouteQuery(ctx context.Context, startCity, endCity string) (*types.RouteQuery, error)
	GetAttractions(ctx context.Context, routeQueryID uuid.UUID) ([]types.RankedAttraction, error)
	DeleteRouteQuery(ctx context.Context, routeQueryID uuid.UUID) error
	SaveRouteQuery(ctx context.Context, startCity, endCity string, geometry []byte, attractions []types.RankedAttraction) (*types.RouteQuery, error)
	DeleteOlderThan(ctx context.Context, window time.Duration) (int64, error)
}

// DB is the subset of pgxpool.Pool the repository needs. Declared so
// pgxmock can stand in for the pool in tests.
type DB interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type PostgresTripRepository struct {
	logger *slog.Logger
	pgpool DB
}

func NewTripRepository(pgpool DB, logger *slog.Logger) *PostgresTripRepository {
	return &PostgresTripRepository{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *PostgresTripRepository) GetRouteQuery(ctx context.Context, startCity, endCity string) (*types.RouteQuery, error) {
	query := `
        SELECT id, start_city, end_city, route_geometry, created_at
        FROM route_queries
        WHERE start_city = $1 AND end_city = $2
    `
	var rq types.RouteQuery
	if err := r.pgpool.QueryRow(ctx, query, startCity, endCity).Scan(
		&rq.ID, &rq.StartCity, &rq.EndCity, &rq.Geometry, &rq.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find route query: %w", err)
	}
	return &rq, nil
}

func (r *PostgresTripRepository) GetAttractions(ctx context.Context, routeQueryID uuid.UUID) ([]types.RankedAttraction, error) {
	query := `
        SELECT id, name, latitude, longitude, category, description, distance_km
        FROM tourist_attractions
        WHERE route_query_id = $1
        ORDER BY position
    `
	rows, err := r.pgpool.Query(ctx, query, routeQueryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attractions: %w", err)
	}
	defer rows.Close()

	var attractions []types.RankedAttraction
	for rows.Next() {
		var a types.RankedAttraction
		if err := rows.Scan(&a.ID, &a.Name, &a.Latitude, &a.Longitude, &a.Category, &a.Description, &a.DistanceKm); err != nil {
			return nil, fmt.Errorf("failed to scan attraction: %w", err)
		}
		attractions = append(attractions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read attractions: %w", err)
	}
	return attractions, nil
}

func (r *PostgresTripRepository) DeleteRouteQuery(ctx context.Context, routeQueryID uuid.UUID) error {
	// Attraction rows cascade with the route query.
	if _, err := r.pgpool.Exec(ctx, `DELETE FROM route_queries WHERE id = $1`, routeQueryID); err != nil {
		return fmt.Errorf("failed to delete route query: %w", err)
	}
	return nil
}

// SaveRouteQuery persists the route row and its attraction rows in one
// transaction so a partial write is never observable as a cache hit. A
// concurrent writer losing the (start_city, end_city) uniqueness race gets
// types.ErrDuplicateRouteQuery.
func (r *PostgresTripRepository) SaveRouteQuery(ctx context.Context, startCity, endCity string, geometry []byte, attractions []types.RankedAttraction) (*types.RouteQuery, error) {
	tx, err := r.pgpool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rq := types.RouteQuery{
		StartCity: startCity,
		EndCity:   endCity,
		Geometry:  geometry,
	}
	insertRoute := `
        INSERT INTO route_queries (start_city, end_city, route_geometry)
        VALUES ($1, $2, $3) RETURNING id, created_at
    `
	if err := tx.QueryRow(ctx, insertRoute, startCity, endCity, geometry).Scan(&rq.ID, &rq.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("route query for (%s, %s): %w", startCity, endCity, types.ErrDuplicateRouteQuery)
		}
		return nil, fmt.Errorf("failed to insert route query: %w", err)
	}

	insertAttraction := `
        INSERT INTO tourist_attractions (route_query_id, name, latitude, longitude, category, description, distance_km, position)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	for i, a := range attractions {
		if _, err := tx.Exec(ctx, insertAttraction,
			rq.ID, a.Name, a.Latitude, a.Longitude, a.Category, a.Description, a.DistanceKm, i,
		); err != nil {
			return nil, fmt.Errorf("failed to insert attraction %q: %w", a.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &rq, nil
}

// DeleteOlderThan removes route queries (and, by cascade, their
// attractions) whose created_at is at or past the freshness window. Used
// by the background sweeper.
func (r *PostgresTripRepository) DeleteOlderThan(ctx context.Context, window time.Duration) (int64, error) {
	cutoff := time.Now().Add(-window)
	tag, err := r.pgpool.Exec(ctx, `DELETE FROM route_queries WHERE created_at <= $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale route queries: %w", err)
	}
	deleted := tag.RowsAffected()
	if deleted > 0 {
		r.logger.InfoContext(ctx, "Purged stale route queries", slog.Int64("deleted", deleted))
	}
	return deleted, nil
}
