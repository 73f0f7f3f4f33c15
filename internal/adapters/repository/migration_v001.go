package repository

import "database/sql"

// migrateV001 creates the initial schema: metric time series keyed by
// (country, metric, ts) and ranking snapshots keyed by (country, date,
// rank), with a secondary uniqueness on (country, date, domain) so one
// domain cannot hold two ranks on the same day.
func migrateV001(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS metric_points (
			country TEXT    NOT NULL,
			metric  TEXT    NOT NULL,
			ts      TEXT    NOT NULL,
			value   REAL    NOT NULL,
			PRIMARY KEY (country, metric, ts)
		)`,

		`CREATE TABLE IF NOT EXISTS domain_ranks (
			country  TEXT    NOT NULL,
			date     TEXT    NOT NULL,
			rank     INTEGER NOT NULL CHECK (rank >= 1),
			domain   TEXT    NOT NULL,
			category TEXT,
			PRIMARY KEY (country, date, rank),
			UNIQUE (country, date, domain)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_metric_points_range
			ON metric_points (country, metric, ts)`,

		`CREATE INDEX IF NOT EXISTS idx_domain_ranks_day
			ON domain_ranks (country, date, rank)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
