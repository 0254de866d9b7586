// Package postgres archives reports in PostgreSQL for deployments that share
// one history across several instances.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vaahk/wxdecode/internal/decoder"
	"github.com/vaahk/wxdecode/internal/weather"
	"github.com/vaahk/wxdecode/pkg/logger"
)

// Config holds PostgreSQL connection settings.
type Config struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Database string `toml:"database"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	SSLMode  string `toml:"sslmode"`
	MaxConns int32  `toml:"max_conns"`
}

// ConnString builds the pgx connection URL.
func (c Config) ConnString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslMode)
}

// ReportStorage wraps a PostgreSQL connection pool.
type ReportStorage struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
}

// Open connects, pings and creates the schema.
func Open(ctx context.Context, cfg Config, log *logger.Logger) (*ReportStorage, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolCfg.MaxConns = 4
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &ReportStorage{pool: pool, logger: log.Named("postgres")}
	if err := s.CreateSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	s.logger.Info("Connected to PostgreSQL",
		logger.String("host", cfg.Host),
		logger.String("database", cfg.Database))
	return s, nil
}

// Close closes the pool. It always returns nil.
func (s *ReportStorage) Close() error {
	s.pool.Close()
	return nil
}

// CreateSchema creates the reports table.
func (s *ReportStorage) CreateSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS reports (
		id              BIGSERIAL PRIMARY KEY,
		station         TEXT NOT NULL,
		kind            TEXT NOT NULL,
		raw             TEXT NOT NULL,
		fetched_at      TIMESTAMPTZ NOT NULL,
		observed_at     TIMESTAMPTZ,
		UNIQUE(station, kind, raw)
	);

	CREATE INDEX IF NOT EXISTS idx_reports_station_kind ON reports(station, kind, id DESC);
	`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// Store inserts the report unless its raw text is already archived.
func (s *ReportStorage) Store(ctx context.Context, r weather.Report) (int64, bool, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO reports (station, kind, raw, fetched_at, observed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (station, kind, raw) DO NOTHING
		RETURNING id
	`, r.Station, string(r.Kind), r.Raw, r.FetchedAt, nullableTime(r.ObservedAt)).Scan(&id)
	if err == nil {
		return id, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, fmt.Errorf("insert report: %w", err)
	}

	// conflict: nothing returned
	err = s.pool.QueryRow(ctx, `
		SELECT id FROM reports WHERE station = $1 AND kind = $2 AND raw = $3
	`, r.Station, string(r.Kind), r.Raw).Scan(&id)
	if err != nil {
		return 0, false, fmt.Errorf("look up existing report: %w", err)
	}
	return id, false, nil
}

func scanReport(row pgx.Row) (weather.Report, error) {
	var (
		r        weather.Report
		kind     string
		observed *time.Time
	)
	if err := row.Scan(&r.ID, &r.Station, &kind, &r.Raw, &r.FetchedAt, &observed); err != nil {
		return weather.Report{}, err
	}
	r.Kind = decoder.Kind(kind)
	r.FetchedAt = r.FetchedAt.UTC()
	if observed != nil {
		r.ObservedAt = observed.UTC()
	}
	return r, nil
}

// Latest returns the newest report, or weather.ErrNoData.
func (s *ReportStorage) Latest(ctx context.Context, station string, kind decoder.Kind) (*weather.Report, error) {
	r, err := scanReport(s.pool.QueryRow(ctx, `
		SELECT id, station, kind, raw, fetched_at, observed_at
		FROM reports WHERE station = $1 AND kind = $2
		ORDER BY id DESC LIMIT 1
	`, station, string(kind)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, weather.ErrNoData
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// History returns reports newest first. A limit of zero means all.
func (s *ReportStorage) History(ctx context.Context, station string, kind decoder.Kind, limit, offset int) ([]weather.Report, error) {
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, station, kind, raw, fetched_at, observed_at
		FROM reports WHERE station = $1 AND kind = $2
		ORDER BY id DESC LIMIT $3 OFFSET $4
	`, station, string(kind), lim, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []weather.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}
