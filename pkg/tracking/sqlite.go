package tracking

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps one row per record, so concurrent sessions only race on
// the record they both touch.
type SQLiteStore struct {
	sql *sql.DB
}

// OpenSQLite opens (and if needed creates) a sqlite tracking database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		path = DefaultPath(BackendSQLite)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS tracking_records (
  rpps           TEXT NOT NULL,
  week           TEXT NOT NULL,
  date           TEXT NOT NULL,
  name           TEXT NOT NULL,
  contract_type  TEXT NOT NULL,
  csm            TEXT NOT NULL,
  replacement_by TEXT,
  PRIMARY KEY (rpps, week)
);
CREATE INDEX IF NOT EXISTS idx_tracking_week ON tracking_records(week);
CREATE INDEX IF NOT EXISTS idx_tracking_date ON tracking_records(date);
    `); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{sql: db}, nil
}

func (d *SQLiteStore) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

func (d *SQLiteStore) Load(ctx context.Context) (Tracking, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT rpps, week, date, name, contract_type, csm, replacement_by FROM tracking_records ORDER BY rpps, week")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	t := Tracking{}
	for rows.Next() {
		var (
			r  Record
			by sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Week, &r.Date, &r.Name, &r.ContractType, &r.CSM, &by); err != nil {
			return nil, err
		}
		r.ReplacementBy = by.String
		t[r.Key()] = r
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

func (d *SQLiteStore) Put(ctx context.Context, r Record) error {
	_, err := d.sql.ExecContext(ctx, upsertRecord, recordArgs(r)...)
	return err
}

func (d *SQLiteStore) Delete(ctx context.Context, k Key) error {
	_, err := d.sql.ExecContext(ctx, "DELETE FROM tracking_records WHERE rpps = ? AND week = ?", k.ID, k.Week)
	return err
}

// Save replaces the table contents in one transaction.
func (d *SQLiteStore) Save(ctx context.Context, t Tracking) (err error) {
	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM tracking_records"); err != nil {
		return err
	}
	for _, r := range t.Sorted() {
		if _, err = tx.ExecContext(ctx, upsertRecord, recordArgs(r)...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

const upsertRecord = `INSERT INTO tracking_records(rpps, week, date, name, contract_type, csm, replacement_by)
VALUES(?,?,?,?,?,?,?)
ON CONFLICT(rpps, week) DO UPDATE SET
  date = excluded.date,
  name = excluded.name,
  contract_type = excluded.contract_type,
  csm = excluded.csm,
  replacement_by = excluded.replacement_by`

func recordArgs(r Record) []interface{} {
	return []interface{}{r.ID, r.Week, r.Date, r.Name, r.ContractType, r.CSM, nullIfEmpty(r.ReplacementBy)}
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
