package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/db"
	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/geo"
	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// centroid_ewkb holds the WGS84 centroid as EWKB so PostGIS can read it
// with ST_GeomFromEWKB without the extension being required here.
const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	city       TEXT NOT NULL,
	threshold  DOUBLE PRECISION NOT NULL,
	status     TEXT NOT NULL,
	summary    JSONB NOT NULL,
	error      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_clusters (
	run_id        TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	tier          TEXT NOT NULL,
	cluster_id    INTEGER NOT NULL,
	position      INTEGER NOT NULL,
	center_lat    DOUBLE PRECISION NOT NULL,
	center_lon    DOUBLE PRECISION NOT NULL,
	centroid_ewkb BYTEA NOT NULL,
	listing_count INTEGER NOT NULL,
	avg_price     DOUBLE PRECISION NOT NULL,
	max_price     DOUBLE PRECISION NOT NULL,
	total_value   DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, tier, cluster_id)
);

CREATE TABLE IF NOT EXISTS run_neighborhoods (
	run_id            TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	rank              INTEGER NOT NULL,
	neighbourhood     TEXT NOT NULL,
	price             DOUBLE PRECISION NOT NULL,
	listing_count     INTEGER NOT NULL,
	distance_km       DOUBLE PRECISION,
	number_of_reviews DOUBLE PRECISION NOT NULL,
	price_score       DOUBLE PRECISION NOT NULL,
	location_score    DOUBLE PRECISION NOT NULL,
	demand_score      DOUBLE PRECISION NOT NULL,
	investment_score  DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, rank)
);

CREATE INDEX IF NOT EXISTS idx_runs_city_created ON runs(city, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

// Columns written with COPY.
var (
	clusterColumns = []string{
		"run_id", "tier", "cluster_id", "position", "center_lat", "center_lon", "centroid_ewkb",
		"listing_count", "avg_price", "max_price", "total_value",
	}
	neighborhoodColumns = []string{
		"run_id", "rank", "neighbourhood", "price", "listing_count", "distance_km", "number_of_reviews",
		"price_score", "location_score", "demand_score", "investment_score",
	}
)

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveRun(ctx context.Context, run *model.Run) error {
	prepare(run)

	summaryJSON, err := json.Marshal(run.Summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal summary")
	}
	clusterRows, err := clusterCopyRows(run)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO runs (id, city, threshold, status, summary, error, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, run.City, run.Threshold, string(run.Status), summaryJSON, run.Error, run.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert run %s", run.ID)
	}

	if _, err := db.CopyFrom(ctx, tx, "run_clusters", clusterColumns, clusterRows); err != nil {
		return eris.Wrapf(err, "postgres: copy clusters %s", run.ID)
	}
	if _, err := db.CopyFrom(ctx, tx, "run_neighborhoods", neighborhoodColumns, neighborhoodCopyRows(run)); err != nil {
		return eris.Wrapf(err, "postgres: copy neighborhoods %s", run.ID)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit run")
}

func clusterCopyRows(run *model.Run) ([][]any, error) {
	rows := make([][]any, 0, len(run.Clusters))
	for i, c := range run.Clusters {
		pt := geom.NewPointFlat(geom.XY, []float64{c.CenterLon, c.CenterLat}).SetSRID(geo.SRIDWGS84)
		wkb, err := ewkb.Marshal(pt, ewkb.NDR)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: encode centroid %s/%d", c.Tier, c.ClusterID)
		}
		rows = append(rows, []any{
			run.ID, c.Tier, c.ClusterID, i, c.CenterLat, c.CenterLon, wkb,
			c.ListingCount, c.AvgPrice, c.MaxPrice, c.TotalValue,
		})
	}
	return rows, nil
}

func neighborhoodCopyRows(run *model.Run) [][]any {
	rows := make([][]any, 0, len(run.Neighborhoods))
	for i, n := range run.Neighborhoods {
		var dist *float64
		if n.HasDistance {
			d := n.AvgDistanceKM
			dist = &d
		}
		rows = append(rows, []any{
			run.ID, i, n.Neighborhood, n.AvgPrice, n.ListingCount, dist, n.AvgReviews,
			n.PriceScore, n.LocationScore, n.DemandScore, n.InvestmentScore,
		})
	}
	return rows
}

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM runs WHERE id = $1`, id)
	r, err := scanPgRun(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", id)
	}
	return r, s.loadDetails(ctx, r)
}

func (s *PostgresStore) LatestRun(ctx context.Context, city string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+runColumns+` FROM runs WHERE city = $1 AND status = $2 ORDER BY created_at DESC LIMIT 1`,
		city, string(model.RunStatusComplete),
	)
	r, err := scanPgRun(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: latest run %s", city)
	}
	return r, s.loadDetails(ctx, r)
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.City != "" {
		query += fmt.Sprintf(` AND city = $%d`, argIdx)
		args = append(args, filter.City)
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, argIdx)
	args = append(args, limitOf(filter))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: list runs")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) loadDetails(ctx context.Context, r *model.Run) error {
	rows, err := s.pool.Query(ctx,
		`SELECT tier, cluster_id, center_lat, center_lon, listing_count, avg_price, max_price, total_value
		 FROM run_clusters WHERE run_id = $1 ORDER BY position`, r.ID)
	if err != nil {
		return eris.Wrapf(err, "postgres: load clusters %s", r.ID)
	}
	for rows.Next() {
		var c model.Cluster
		if err := rows.Scan(&c.Tier, &c.ClusterID, &c.CenterLat, &c.CenterLon, &c.ListingCount, &c.AvgPrice, &c.MaxPrice, &c.TotalValue); err != nil {
			rows.Close()
			return eris.Wrap(err, "postgres: scan cluster")
		}
		r.Clusters = append(r.Clusters, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return eris.Wrap(err, "postgres: iterate clusters")
	}

	rows, err = s.pool.Query(ctx,
		`SELECT neighbourhood, price, listing_count, distance_km, number_of_reviews,
		 price_score, location_score, demand_score, investment_score
		 FROM run_neighborhoods WHERE run_id = $1 ORDER BY rank`, r.ID)
	if err != nil {
		return eris.Wrapf(err, "postgres: load neighborhoods %s", r.ID)
	}
	defer rows.Close()
	for rows.Next() {
		var n model.NeighborhoodStats
		var dist *float64
		if err := rows.Scan(&n.Neighborhood, &n.AvgPrice, &n.ListingCount, &dist, &n.AvgReviews,
			&n.PriceScore, &n.LocationScore, &n.DemandScore, &n.InvestmentScore); err != nil {
			return eris.Wrap(err, "postgres: scan neighborhood")
		}
		if dist != nil {
			n.AvgDistanceKM, n.HasDistance = *dist, true
		}
		r.Neighborhoods = append(r.Neighborhoods, n)
	}
	return eris.Wrap(rows.Err(), "postgres: iterate neighborhoods")
}

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var status string
	var summaryJSON []byte

	err := row.Scan(&r.ID, &r.City, &r.Threshold, &status, &summaryJSON, &r.Error, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "scan run")
	}
	r.Status = model.RunStatus(status)
	if err := json.Unmarshal(summaryJSON, &r.Summary); err != nil {
		return nil, eris.Wrap(err, "unmarshal summary")
	}
	return &r, nil
}
