package store

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

var runRowColumns = []string{"id", "city", "threshold", "status", "summary", "error", "created_at"}

func TestPostgresStore_SaveRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	run := sampleRun("nyc", time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC))
	run.ID = "run-1"

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs("run-1", "nyc", 200.0, "complete", pgxmock.AnyArg(), "", run.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"run_clusters"}, clusterColumns).WillReturnResult(2)
	mock.ExpectCopyFrom(pgx.Identifier{"run_neighborhoods"}, neighborhoodColumns).WillReturnResult(2)
	mock.ExpectCommit()

	require.NoError(t, s.SaveRun(context.Background(), run))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRun_NoDetails(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	run := &model.Run{City: "nyc", Threshold: 200, Status: model.RunStatusFailed, Error: "boom"}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO runs`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, s.SaveRun(context.Background(), run))
	assert.NotEmpty(t, run.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRun_CopyFailsRollsBack(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	run := sampleRun("nyc", time.Now().UTC())

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO runs`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"run_clusters"}, clusterColumns).WillReturnError(fmt.Errorf("disk full"))
	mock.ExpectRollback()

	err := s.SaveRun(context.Background(), run)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy clusters")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	created := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	summary, err := json.Marshal(model.RunSummary{TotalListings: 25, TopNeighborhood: "Midtown"})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT id, city, threshold, status, summary, error, created_at FROM runs WHERE id = \$1`).
		WithArgs("run-1").
		WillReturnRows(mock.NewRows(runRowColumns).AddRow("run-1", "nyc", 200.0, "complete", summary, "", created))
	mock.ExpectQuery(`FROM run_clusters WHERE run_id = \$1`).
		WithArgs("run-1").
		WillReturnRows(mock.NewRows([]string{"tier", "cluster_id", "center_lat", "center_lon", "listing_count", "avg_price", "max_price", "total_value"}).
			AddRow("Premium", 0, 40.75, -73.98, 12, 300.0, 500.0, 3600.0))
	dist := 1.5
	mock.ExpectQuery(`FROM run_neighborhoods WHERE run_id = \$1`).
		WithArgs("run-1").
		WillReturnRows(mock.NewRows([]string{"neighbourhood", "price", "listing_count", "distance_km", "number_of_reviews", "price_score", "location_score", "demand_score", "investment_score"}).
			AddRow("Midtown", 300.0, 12, &dist, 20.0, 100.0, 70.0, 50.0, 76.0))

	got, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "nyc", got.City)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	assert.Equal(t, 25, got.Summary.TotalListings)
	require.Len(t, got.Clusters, 1)
	assert.Equal(t, 12, got.Clusters[0].ListingCount)
	require.Len(t, got.Neighborhoods, 1)
	assert.True(t, got.Neighborhoods[0].HasDistance)
	assert.InDelta(t, 1.5, got.Neighborhoods[0].AvgDistanceKM, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LatestRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM runs WHERE city = \$1 AND status = \$2 ORDER BY created_at DESC LIMIT 1`).
		WithArgs("nyc", "complete").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.LatestRun(context.Background(), "nyc")
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns_Filters(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	summary := []byte(`{"total_listings":3}`)

	mock.ExpectQuery(`FROM runs WHERE true AND city = \$1 AND status = \$2 ORDER BY created_at DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("nyc", "complete", 5, 10).
		WillReturnRows(mock.NewRows(runRowColumns).
			AddRow("b", "nyc", 250.0, "complete", summary, "", time.Now()).
			AddRow("a", "nyc", 200.0, "complete", summary, "", time.Now().Add(-time.Hour)))

	runs, err := s.ListRuns(context.Background(), RunFilter{City: "nyc", Status: model.RunStatusComplete, Limit: 5, Offset: 10})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "b", runs[0].ID)
	assert.Equal(t, 3, runs[1].Summary.TotalListings)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns_DefaultLimit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM runs WHERE true ORDER BY created_at DESC LIMIT \$1`).
		WithArgs(DefaultListLimit).
		WillReturnRows(mock.NewRows(runRowColumns))

	runs, err := s.ListRuns(context.Background(), RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS runs`).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClusterCopyRows_EWKB(t *testing.T) {
	run := sampleRun("nyc", time.Now())
	run.ID = "r"

	rows, err := clusterCopyRows(run)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0][2])
	assert.Equal(t, 0, rows[0][3])

	g, err := ewkb.Unmarshal(rows[0][6].([]byte))
	require.NoError(t, err)
	pt, ok := g.(*geom.Point)
	require.True(t, ok)
	assert.Equal(t, 4326, pt.SRID())
	assert.InDelta(t, -73.98, pt.X(), 1e-12)
	assert.InDelta(t, 40.75, pt.Y(), 1e-12)
}

func TestNeighborhoodCopyRows_NullDistance(t *testing.T) {
	run := sampleRun("nyc", time.Now())
	rows := neighborhoodCopyRows(run)
	require.Len(t, rows, 2)
	assert.NotNil(t, rows[0][5])
	assert.Nil(t, rows[1][5])
}
