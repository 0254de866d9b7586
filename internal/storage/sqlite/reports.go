package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vaahk/wxdecode/internal/decoder"
	"github.com/vaahk/wxdecode/internal/weather"
	"github.com/vaahk/wxdecode/pkg/logger"
)

// ReportStorage is a SQLite-based archive of raw METAR and TAF reports
type ReportStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewReportStorage opens (or creates) the database at dbPath. ":memory:"
// works for tests because the pool is held to one connection.
func NewReportStorage(dbPath string, log *logger.Logger) (*ReportStorage, error) {
	storageLogger := log.Named("sqlite")

	storageLogger.Info("Initializing SQLite storage",
		logger.String("path", dbPath))

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	if err := initDatabase(db, storageLogger); err != nil {
		db.Close()
		return nil, err
	}

	return &ReportStorage{db: db, logger: storageLogger}, nil
}

// Close closes the database connection
func (s *ReportStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func initDatabase(db *sql.DB, log *logger.Logger) error {
	log.Info("Initializing database schema")

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS reports (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			station TEXT NOT NULL,
			kind TEXT NOT NULL,
			raw TEXT NOT NULL,
			fetched_at INTEGER NOT NULL,  -- unix seconds
			observed_at INTEGER NOT NULL DEFAULT 0,
			UNIQUE(station, kind, raw)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create reports table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_reports_station_kind ON reports(station, kind, id DESC)`)
	if err != nil {
		return fmt.Errorf("failed to create reports index: %w", err)
	}
	return nil
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromUnix(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

// Store inserts the report unless the same raw text is already archived
// for the station and kind. It returns the row id either way.
func (s *ReportStorage) Store(ctx context.Context, r weather.Report) (int64, bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO reports (station, kind, raw, fetched_at, observed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(station, kind, raw) DO NOTHING
	`, r.Station, string(r.Kind), r.Raw, unixOrZero(r.FetchedAt), unixOrZero(r.ObservedAt))
	if err != nil {
		return 0, false, fmt.Errorf("failed to insert report: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 1 {
		id, err := res.LastInsertId()
		if err != nil {
			return 0, false, fmt.Errorf("failed to read report id: %w", err)
		}
		s.logger.Debug("Archived report",
			logger.String("station", r.Station),
			logger.String("type", string(r.Kind)),
			logger.Int64("id", id))
		return id, true, nil
	}

	var id int64
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM reports WHERE station = ? AND kind = ? AND raw = ?`,
		r.Station, string(r.Kind), r.Raw).Scan(&id)
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up existing report: %w", err)
	}
	return id, false, nil
}

const reportColumns = `id, station, kind, raw, fetched_at, observed_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(row scanner) (weather.Report, error) {
	var (
		r                 weather.Report
		kind              string
		fetched, observed int64
	)
	if err := row.Scan(&r.ID, &r.Station, &kind, &r.Raw, &fetched, &observed); err != nil {
		return weather.Report{}, err
	}
	r.Kind = decoder.Kind(kind)
	r.FetchedAt = fromUnix(fetched)
	r.ObservedAt = fromUnix(observed)
	return r, nil
}

// Latest returns the most recently archived report, or weather.ErrNoData.
func (s *ReportStorage) Latest(ctx context.Context, station string, kind decoder.Kind) (*weather.Report, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE station = ? AND kind = ? ORDER BY id DESC LIMIT 1`,
		station, string(kind))
	r, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, weather.ErrNoData
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest report: %w", err)
	}
	return &r, nil
}

// History returns archived reports newest first.
func (s *ReportStorage) History(ctx context.Context, station string, kind decoder.Kind, limit, offset int) ([]weather.Report, error) {
	if limit <= 0 {
		limit = -1 // no limit in SQLite
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE station = ? AND kind = ? ORDER BY id DESC LIMIT ? OFFSET ?`,
		station, string(kind), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query report history: %w", err)
	}
	defer rows.Close()

	var out []weather.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns how many reports of a kind are archived for the station.
func (s *ReportStorage) Count(ctx context.Context, station string, kind decoder.Kind) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reports WHERE station = ? AND kind = ?`,
		station, string(kind)).Scan(&n)
	return n, err
}
