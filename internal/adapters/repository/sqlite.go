package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/netshift/netshift/internal/domain/model"
	"github.com/netshift/netshift/pkg/metrics"
)

// tsLayout fixes timestamp precision so lexicographic range scans on the
// ts column agree with chronological order.
const tsLayout = "2006-01-02T15:04:05Z"

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB

	// Prepared statements
	selectPoints    *sql.Stmt
	selectSnapshot  *sql.Stmt
	selectRankDates *sql.Stmt
	selectLatest    *sql.Stmt
	insertPoint     *sql.Stmt
	insertRank      *sql.Stmt
}

// Open opens (creating if needed) a SQLite database at path, applies
// migrations, and returns a ready store. Use ":memory:" for tests.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		// Each pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := NewMigrationRunner(db).Run(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	store, err := NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLiteStore creates a store from an already-opened and migrated database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.selectPoints, err = s.db.Prepare(`
		SELECT country, metric, ts, value
		FROM metric_points
		WHERE country = ? AND metric = ? AND ts >= ? AND ts < ?
		ORDER BY ts ASC
	`)
	if err != nil {
		return err
	}

	s.selectSnapshot, err = s.db.Prepare(`
		SELECT country, date, rank, domain, COALESCE(category, '')
		FROM domain_ranks
		WHERE country = ? AND date = ? AND rank <= ?
		ORDER BY rank ASC
	`)
	if err != nil {
		return err
	}

	s.selectRankDates, err = s.db.Prepare(`
		SELECT DISTINCT date FROM domain_ranks
		WHERE country = ? AND (? = '' OR date >= ?) AND (? = '' OR date <= ?)
		ORDER BY date ASC
	`)
	if err != nil {
		return err
	}

	s.selectLatest, err = s.db.Prepare(`
		SELECT COALESCE(MAX(date), '') FROM domain_ranks WHERE country = ?
	`)
	if err != nil {
		return err
	}

	s.insertPoint, err = s.db.Prepare(`
		INSERT INTO metric_points (country, metric, ts, value)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (country, metric, ts) DO UPDATE SET value = excluded.value
	`)
	if err != nil {
		return err
	}

	// OR REPLACE also clears a row holding the same (country, date,
	// domain) at a different rank, keeping both uniqueness invariants.
	s.insertRank, err = s.db.Prepare(`
		INSERT OR REPLACE INTO domain_ranks (country, date, rank, domain, category)
		VALUES (?, ?, ?, ?, NULLIF(?, ''))
	`)
	return err
}

// QueryPoints returns points in [from, to) ordered by timestamp.
func (s *SQLiteStore) QueryPoints(ctx context.Context, country string, metric model.Metric, from, to time.Time) ([]model.MetricPoint, error) {
	start := time.Now()
	defer func() { metrics.ObserveStoreQuery(float64(time.Since(start).Microseconds()) / 1000.0) }()

	rows, err := s.selectPoints.QueryContext(ctx, country, metric.String(),
		from.UTC().Format(tsLayout), to.UTC().Format(tsLayout))
	if err != nil {
		return nil, fmt.Errorf("query points: %w", err)
	}
	defer rows.Close()

	var out []model.MetricPoint
	for rows.Next() {
		var p model.MetricPoint
		var m, ts string
		if err := rows.Scan(&p.Country, &m, &ts, &p.Value); err != nil {
			return nil, fmt.Errorf("scan point: %w", err)
		}
		p.Metric = model.Metric(m)
		if p.TS, err = time.Parse(tsLayout, ts); err != nil {
			return nil, fmt.Errorf("parse point ts %q: %w", ts, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// QueryRankSnapshot returns one day's snapshot truncated to limit.
func (s *SQLiteStore) QueryRankSnapshot(ctx context.Context, country, date string, limit int) ([]model.DomainRankEntry, error) {
	start := time.Now()
	defer func() { metrics.ObserveStoreQuery(float64(time.Since(start).Microseconds()) / 1000.0) }()

	rows, err := s.selectSnapshot.QueryContext(ctx, country, date, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	defer rows.Close()

	var out []model.DomainRankEntry
	for rows.Next() {
		var e model.DomainRankEntry
		if err := rows.Scan(&e.Country, &e.Date, &e.Rank, &e.Domain, &e.Category); err != nil {
			return nil, fmt.Errorf("scan rank entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// RankDates lists snapshot dates within [since, until].
func (s *SQLiteStore) RankDates(ctx context.Context, country, since, until string) ([]string, error) {
	rows, err := s.selectRankDates.QueryContext(ctx, country, since, since, until, until)
	if err != nil {
		return nil, fmt.Errorf("query rank dates: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan rank date: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// LatestRankDate returns the newest snapshot date for a country.
func (s *SQLiteStore) LatestRankDate(ctx context.Context, country string) (string, error) {
	var d string
	if err := s.selectLatest.QueryRowContext(ctx, country).Scan(&d); err != nil {
		return "", fmt.Errorf("query latest rank date: %w", err)
	}
	return d, nil
}

// UpsertPoints writes points inside one transaction.
func (s *SQLiteStore) UpsertPoints(ctx context.Context, points []model.MetricPoint) (int, error) {
	start := time.Now()
	defer func() { metrics.ObserveStoreUpsert(float64(time.Since(start).Microseconds()) / 1000.0) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt := tx.StmtContext(ctx, s.insertPoint)
	written := 0
	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, p.Country, p.Metric.String(),
			p.TS.UTC().Format(tsLayout), p.Value); err != nil {
			return 0, fmt.Errorf("upsert point: %w", err)
		}
		written++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return written, nil
}

// UpsertRankEntries writes ranking rows inside one transaction.
func (s *SQLiteStore) UpsertRankEntries(ctx context.Context, entries []model.DomainRankEntry) (int, error) {
	start := time.Now()
	defer func() { metrics.ObserveStoreUpsert(float64(time.Since(start).Microseconds()) / 1000.0) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt := tx.StmtContext(ctx, s.insertRank)
	written := 0
	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.Country, e.Date, e.Rank, e.Domain, e.Category); err != nil {
			return 0, fmt.Errorf("upsert rank entry: %w", err)
		}
		written++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return written, nil
}

// Counts reports stored row counts.
func (s *SQLiteStore) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM metric_points").Scan(&c.MetricPoints); err != nil {
		return Counts{}, fmt.Errorf("count metric points: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM domain_ranks").Scan(&c.RankRows); err != nil {
		return Counts{}, fmt.Errorf("count rank rows: %w", err)
	}
	metrics.UpdateStoreCounts(c.MetricPoints, c.RankRows)
	return c, nil
}

// Close releases prepared statements and the underlying database.
func (s *SQLiteStore) Close() error {
	for _, stmt := range []*sql.Stmt{
		s.selectPoints, s.selectSnapshot, s.selectRankDates,
		s.selectLatest, s.insertPoint, s.insertRank,
	} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}
