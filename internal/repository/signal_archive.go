package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"ChartSignal/internal/domain/models"
	domrepo "ChartSignal/internal/domain/repository"
	pkgch "ChartSignal/pkg/clickhouse"
	applogger "ChartSignal/pkg/logger"
)

const archiveColumns = "id, session_id, asset, action, confidence, entry_point, risk_level, timeframe, expiration, " +
	"entry_description, entry_timing, expires_at, created_at, rule, " +
	"green_ratio, red_ratio, avg_brightness, volatility, trend_strength, samples"

const archiveColumnCount = 20

// rows per INSERT statement
const archiveChunkSize = 2000

// ArchiveSchema returns the idempotent DDL for the signals archive.
func ArchiveSchema(database, table string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
            id                Int64,
            session_id        String,
            asset             LowCardinality(String),
            action            LowCardinality(String),
            confidence        UInt8,
            entry_point       LowCardinality(String),
            risk_level        LowCardinality(String),
            timeframe         LowCardinality(String),
            expiration        LowCardinality(String),
            entry_description String,
            entry_timing      String,
            expires_at        DateTime64(3, 'UTC'),
            created_at        DateTime64(3, 'UTC'),
            rule              LowCardinality(String),
            green_ratio       Float64,
            red_ratio         Float64,
            avg_brightness    Float64,
            volatility        Float64,
            trend_strength    Float64,
            samples           UInt32
        ) ENGINE = ReplacingMergeTree
        PARTITION BY toYYYYMM(created_at)
        ORDER BY (created_at, session_id, id)`, database, table),
	}
}

// ClickHouseArchive implements Archive for ClickHouse.
type ClickHouseArchive struct {
	ch       *pkgch.Client
	db       *sql.DB
	database string
	table    string
	l        *applogger.Logger
}

// NewClickHouseArchive creates the archive over an open client.
func NewClickHouseArchive(ch *pkgch.Client, table string) *ClickHouseArchive {
	if table == "" {
		table = "signals"
	}
	return &ClickHouseArchive{ch: ch, db: ch.DB(), database: ch.Database(), table: table}
}

// SetLogger injects a structured logger.
func (s *ClickHouseArchive) SetLogger(l *applogger.Logger) { s.l = l }

func (s *ClickHouseArchive) fqtn() string {
	return s.database + "." + s.table
}

// Init creates the database and table if missing.
func (s *ClickHouseArchive) Init(ctx context.Context) error {
	if err := s.ch.InitSchema(ctx, ArchiveSchema(s.database, s.table)); err != nil {
		return fmt.Errorf("archive %s: %w", s.fqtn(), err)
	}
	return nil
}

func (s *ClickHouseArchive) Store(ctx context.Context, rec models.SignalRecord) error {
	return s.StoreBatch(ctx, []models.SignalRecord{rec})
}

func (s *ClickHouseArchive) StoreBatch(ctx context.Context, recs []models.SignalRecord) error {
	if len(recs) == 0 {
		return nil
	}
	start := time.Now()
	for from := 0; from < len(recs); from += archiveChunkSize {
		to := from + archiveChunkSize
		if to > len(recs) {
			to = len(recs)
		}
		q, args := buildInsert(s.fqtn(), recs[from:to])
		if q == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse archive insert error",
					applogger.String("table", s.fqtn()),
					applogger.Int("rows", to-from),
					applogger.Error(err),
				)
			}
			return fmt.Errorf("insert signals: %w", err)
		}
	}
	if s.l != nil {
		s.l.Debug("clickhouse archive insert ok",
			applogger.String("table", s.fqtn()),
			applogger.Int("rows", len(recs)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

func (s *ClickHouseArchive) Query(ctx context.Context, from, to time.Time, limit int) ([]models.SignalRecord, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT %s
        FROM %s FINAL
        WHERE created_at >= ? AND created_at <= ?
        ORDER BY created_at DESC, id DESC
        LIMIT ?
    `, archiveColumns, s.fqtn())
	rows, err := s.db.QueryContext(ctx, q, from.UTC(), to.UTC(), limit)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse archive query error",
				applogger.String("table", s.fqtn()),
				applogger.Int("limit", limit),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	out := make([]models.SignalRecord, 0, limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse archive query ok",
			applogger.String("table", s.fqtn()),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *ClickHouseArchive) Health(ctx context.Context) error {
	return s.ch.Health(ctx)
}

func (s *ClickHouseArchive) Close() error {
	return nil // pool owned by pkg/clickhouse
}

// buildInsert renders a multi-row VALUES insert. Records without a session are skipped.
func buildInsert(table string, recs []models.SignalRecord) (string, []interface{}) {
	values := make([]string, 0, len(recs))
	args := make([]interface{}, 0, len(recs)*archiveColumnCount)
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", archiveColumnCount), ", ") + ")"
	for _, r := range recs {
		if r.SessionID == "" {
			continue
		}
		values = append(values, placeholder)
		args = append(args, recordArgs(r)...)
	}
	if len(values) == 0 {
		return "", nil
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", table, archiveColumns, strings.Join(values, ",")), args
}

func recordArgs(r models.SignalRecord) []interface{} {
	return []interface{}{
		r.ID,
		r.SessionID,
		r.Asset,
		string(r.Action),
		uint8(r.Confidence),
		string(r.EntryPoint),
		string(r.RiskLevel),
		r.Timeframe,
		r.Expiration,
		r.EntryDescription,
		r.EntryTiming,
		r.ExpiresAt.UTC(),
		r.CreatedAt.UTC(),
		string(r.Rule),
		r.Heuristic.GreenRatio,
		r.Heuristic.RedRatio,
		r.Heuristic.AvgBrightness,
		r.Heuristic.Volatility,
		r.Heuristic.TrendStrength,
		uint32(r.Heuristic.Samples),
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (models.SignalRecord, error) {
	var (
		r                         models.SignalRecord
		action, entry, risk, rule string
		confidence                uint8
		samples                   uint32
	)
	err := row.Scan(
		&r.ID, &r.SessionID, &r.Asset, &action, &confidence, &entry, &risk,
		&r.Timeframe, &r.Expiration, &r.EntryDescription, &r.EntryTiming,
		&r.ExpiresAt, &r.CreatedAt, &rule,
		&r.Heuristic.GreenRatio, &r.Heuristic.RedRatio, &r.Heuristic.AvgBrightness,
		&r.Heuristic.Volatility, &r.Heuristic.TrendStrength, &samples,
	)
	if err != nil {
		return r, err
	}
	r.Action = models.Action(action)
	r.Confidence = int(confidence)
	r.EntryPoint = models.EntryPoint(entry)
	r.RiskLevel = models.RiskLevel(risk)
	r.Rule = models.DecisionRule(rule)
	r.Heuristic.Samples = int(samples)
	return r, nil
}

var _ domrepo.Archive = (*ClickHouseArchive)(nil)
