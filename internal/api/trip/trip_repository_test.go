package trip

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-route-attractions/internal/types"
)

func setupTripRepositoryTest(t *testing.T) (*PostgresTripRepository, pgxmock.PgxPoolIface) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return NewTripRepository(mockPool, logger), mockPool
}

func TestPostgresTripRepository_GetRouteQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("hit", func(t *testing.T) {
		repo, mockPool := setupTripRepositoryTest(t)
		id := uuid.New()
		createdAt := time.Now().Add(-time.Hour)
		mockPool.ExpectQuery("SELECT id, start_city, end_city, route_geometry, created_at").
			WithArgs("Delhi", "Agra").
			WillReturnRows(pgxmock.NewRows([]string{"id", "start_city", "end_city", "route_geometry", "created_at"}).
				AddRow(id, "Delhi", "Agra", []byte(`[[77.2,28.6]]`), createdAt))

		rq, err := repo.GetRouteQuery(ctx, "Delhi", "Agra")
		require.NoError(t, err)
		require.NotNil(t, rq)
		assert.Equal(t, id, rq.ID)
		assert.Equal(t, "Delhi", rq.StartCity)
		assert.Equal(t, []byte(`[[77.2,28.6]]`), rq.Geometry)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("miss is nil, not an error", func(t *testing.T) {
		repo, mockPool := setupTripRepositoryTest(t)
		mockPool.ExpectQuery("SELECT id, start_city, end_city, route_geometry, created_at").
			WithArgs("Delhi", "Nowhere").
			WillReturnError(pgx.ErrNoRows)

		rq, err := repo.GetRouteQuery(ctx, "Delhi", "Nowhere")
		require.NoError(t, err)
		assert.Nil(t, rq)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPostgresTripRepository_GetAttractions(t *testing.T) {
	ctx := context.Background()
	repo, mockPool := setupTripRepositoryTest(t)
	routeID := uuid.New()

	mockPool.ExpectQuery("SELECT id, name, latitude, longitude, category, description, distance_km").
		WithArgs(routeID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "latitude", "longitude", "category", "description", "distance_km"}).
			AddRow(uuid.New(), "Red Fort", 28.65, 77.24, "fort", "a fort", 1.11).
			AddRow(uuid.New(), "City Museum", 28.63, 77.22, "museum", "", 2.22))

	attractions, err := repo.GetAttractions(ctx, routeID)
	require.NoError(t, err)
	require.Len(t, attractions, 2)
	assert.Equal(t, "Red Fort", attractions[0].Name)
	assert.Equal(t, 1.11, attractions[0].DistanceKm)
	assert.Equal(t, "City Museum", attractions[1].Name)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgresTripRepository_SaveRouteQuery(t *testing.T) {
	ctx := context.Background()
	geometry := []byte(`[[77.2,28.6],[78.0,27.2]]`)
	attractions := []types.RankedAttraction{
		{Name: "Red Fort", Latitude: 28.65, Longitude: 77.24, Category: "fort", Description: "d", DistanceKm: 1.11},
		{Name: "City Museum", Latitude: 28.63, Longitude: 77.22, Category: "museum", Description: "", DistanceKm: 2.22},
	}

	t.Run("persists route and attractions in one transaction", func(t *testing.T) {
		repo, mockPool := setupTripRepositoryTest(t)
		id := uuid.New()
		createdAt := time.Now()

		mockPool.ExpectBeginTx(pgx.TxOptions{})
		mockPool.ExpectQuery("INSERT INTO route_queries").
			WithArgs("Delhi", "Agra", geometry).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(id, createdAt))
		mockPool.ExpectExec("INSERT INTO tourist_attractions").
			WithArgs(id, "Red Fort", 28.65, 77.24, "fort", "d", 1.11, 0).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectExec("INSERT INTO tourist_attractions").
			WithArgs(id, "City Museum", 28.63, 77.22, "museum", "", 2.22, 1).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectCommit()

		rq, err := repo.SaveRouteQuery(ctx, "Delhi", "Agra", geometry, attractions)
		require.NoError(t, err)
		require.NotNil(t, rq)
		assert.Equal(t, id, rq.ID)
		assert.Equal(t, createdAt, rq.CreatedAt)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("losing the unique key race surfaces ErrDuplicateRouteQuery", func(t *testing.T) {
		repo, mockPool := setupTripRepositoryTest(t)

		mockPool.ExpectBeginTx(pgx.TxOptions{})
		mockPool.ExpectQuery("INSERT INTO route_queries").
			WithArgs("Delhi", "Agra", geometry).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "route_queries_start_city_end_city_key"})
		mockPool.ExpectRollback()

		_, err := repo.SaveRouteQuery(ctx, "Delhi", "Agra", geometry, attractions)
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrDuplicateRouteQuery))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("attraction insert failure rolls back", func(t *testing.T) {
		repo, mockPool := setupTripRepositoryTest(t)
		id := uuid.New()

		mockPool.ExpectBeginTx(pgx.TxOptions{})
		mockPool.ExpectQuery("INSERT INTO route_queries").
			WithArgs("Delhi", "Agra", geometry).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(id, time.Now()))
		mockPool.ExpectExec("INSERT INTO tourist_attractions").
			WithArgs(id, "Red Fort", 28.65, 77.24, "fort", "d", 1.11, 0).
			WillReturnError(errors.New("disk full"))
		mockPool.ExpectRollback()

		_, err := repo.SaveRouteQuery(ctx, "Delhi", "Agra", geometry, attractions)
		require.Error(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPostgresTripRepository_DeleteRouteQuery(t *testing.T) {
	ctx := context.Background()
	repo, mockPool := setupTripRepositoryTest(t)
	id := uuid.New()

	mockPool.ExpectExec(regexp.QuoteMeta(`DELETE FROM route_queries WHERE id = $1`)).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, repo.DeleteRouteQuery(ctx, id))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgresTripRepository_DeleteOlderThan(t *testing.T) {
	ctx := context.Background()
	repo, mockPool := setupTripRepositoryTest(t)

	mockPool.ExpectExec("DELETE FROM route_queries WHERE created_at").
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	deleted, err := repo.DeleteOlderThan(ctx, FreshnessWindow)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
