package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	city       TEXT NOT NULL,
	threshold  REAL NOT NULL,
	status     TEXT NOT NULL,
	summary    TEXT NOT NULL,
	error      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS run_clusters (
	run_id        TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	tier          TEXT NOT NULL,
	cluster_id    INTEGER NOT NULL,
	position      INTEGER NOT NULL,
	center_lat    REAL NOT NULL,
	center_lon    REAL NOT NULL,
	listing_count INTEGER NOT NULL,
	avg_price     REAL NOT NULL,
	max_price     REAL NOT NULL,
	total_value   REAL NOT NULL,
	PRIMARY KEY (run_id, tier, cluster_id)
);

CREATE TABLE IF NOT EXISTS run_neighborhoods (
	run_id            TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	rank              INTEGER NOT NULL,
	neighbourhood     TEXT NOT NULL,
	price             REAL NOT NULL,
	listing_count     INTEGER NOT NULL,
	distance_km       REAL,
	number_of_reviews REAL NOT NULL,
	price_score       REAL NOT NULL,
	location_score    REAL NOT NULL,
	demand_score      REAL NOT NULL,
	investment_score  REAL NOT NULL,
	PRIMARY KEY (run_id, rank)
);

CREATE INDEX IF NOT EXISTS idx_runs_city_created ON runs(city, created_at);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *model.Run) error {
	prepare(run)

	summaryJSON, err := json.Marshal(run.Summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summary")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, city, threshold, status, summary, error, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.City, run.Threshold, string(run.Status), string(summaryJSON), run.Error, run.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
	}

	for i, c := range run.Clusters {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO run_clusters (run_id, tier, cluster_id, position, center_lat, center_lon, listing_count, avg_price, max_price, total_value)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, c.Tier, c.ClusterID, i, c.CenterLat, c.CenterLon, c.ListingCount, c.AvgPrice, c.MaxPrice, c.TotalValue,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert cluster %s/%d", c.Tier, c.ClusterID)
		}
	}

	for i, n := range run.Neighborhoods {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO run_neighborhoods (run_id, rank, neighbourhood, price, listing_count, distance_km, number_of_reviews,
			 price_score, location_score, demand_score, investment_score)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, n.Neighborhood, n.AvgPrice, n.ListingCount, nullDistance(n), n.AvgReviews,
			n.PriceScore, n.LocationScore, n.DemandScore, n.InvestmentScore,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert neighborhood %s", n.Neighborhood)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit run")
}

const runColumns = `id, city, threshold, status, summary, error, created_at`

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if err != nil {
		return nil, err
	}
	return r, s.loadDetails(ctx, r)
}

func (s *SQLiteStore) LatestRun(ctx context.Context, city string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE city = ? AND status = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		city, string(model.RunStatusComplete),
	)
	r, err := scanRun(row)
	if err != nil {
		return nil, err
	}
	return r, s.loadDetails(ctx, r)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`
	var args []any

	if filter.City != "" {
		query += ` AND city = ?`
		args = append(args, filter.City)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limitOf(filter))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) loadDetails(ctx context.Context, r *model.Run) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tier, cluster_id, center_lat, center_lon, listing_count, avg_price, max_price, total_value
		 FROM run_clusters WHERE run_id = ? ORDER BY position`, r.ID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: load clusters %s", r.ID)
	}
	for rows.Next() {
		var c model.Cluster
		if err := rows.Scan(&c.Tier, &c.ClusterID, &c.CenterLat, &c.CenterLon, &c.ListingCount, &c.AvgPrice, &c.MaxPrice, &c.TotalValue); err != nil {
			rows.Close() //nolint:errcheck
			return eris.Wrap(err, "sqlite: scan cluster")
		}
		r.Clusters = append(r.Clusters, c)
	}
	rows.Close() //nolint:errcheck
	if err := rows.Err(); err != nil {
		return eris.Wrap(err, "sqlite: iterate clusters")
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT neighbourhood, price, listing_count, distance_km, number_of_reviews,
		 price_score, location_score, demand_score, investment_score
		 FROM run_neighborhoods WHERE run_id = ? ORDER BY rank`, r.ID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: load neighborhoods %s", r.ID)
	}
	defer rows.Close() //nolint:errcheck
	for rows.Next() {
		var n model.NeighborhoodStats
		var dist sql.NullFloat64
		if err := rows.Scan(&n.Neighborhood, &n.AvgPrice, &n.ListingCount, &dist, &n.AvgReviews,
			&n.PriceScore, &n.LocationScore, &n.DemandScore, &n.InvestmentScore); err != nil {
			return eris.Wrap(err, "sqlite: scan neighborhood")
		}
		n.AvgDistanceKM, n.HasDistance = dist.Float64, dist.Valid
		r.Neighborhoods = append(r.Neighborhoods, n)
	}
	return eris.Wrap(rows.Err(), "sqlite: iterate neighborhoods")
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var summaryJSON string
	var createdAt time.Time

	err := row.Scan(&r.ID, &r.City, &r.Threshold, &r.Status, &summaryJSON, &r.Error, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	r.CreatedAt = createdAt.UTC()

	if err := json.Unmarshal([]byte(summaryJSON), &r.Summary); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal summary")
	}
	return &r, nil
}

func nullDistance(n model.NeighborhoodStats) any {
	if !n.HasDistance {
		return nil
	}
	return n.AvgDistanceKM
}
