// CLAUDE:SUMMARY SQLite history of exploration runs and generated programs; resolves the newest usable report per domain.
// Package catalog records exploration runs and generated programs in SQLite
// so the newest report for a domain can be found without scanning the
// output directory.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/report"
)

// ErrNotFound is returned when no run matches.
var ErrNotFound = errors.New("catalog: not found")

// Run is one recorded exploration.
type Run struct {
	RunID      string    `json:"run_id"`
	SourceURL  string    `json:"source_url"`
	Domain     string    `json:"domain"`
	Mode       string    `json:"mode"`
	Method     string    `json:"analysis_method,omitempty"`
	Status     string    `json:"status"`
	Pattern    string    `json:"pattern,omitempty"`
	ReportPath string    `json:"report_path"`
	CapturedAt time.Time `json:"captured_at"`
}

// Program is one generated program.
type Program struct {
	RunID     string    `json:"run_id"`
	Name      string    `json:"name"`
	Pattern   string    `json:"pattern"`
	Format    string    `json:"format"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

// Catalog is safe for concurrent use.
type Catalog struct {
	db     *sql.DB
	logger *slog.Logger
}

// Option configures a Catalog.
type Option func(*options)

type options struct {
	busyTimeout time.Duration
	logger      *slog.Logger
}

// WithBusyTimeout sets PRAGMA busy_timeout. Default: 10s.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) { o.busyTimeout = d }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Open opens or creates the catalog at path. ":memory:" is accepted.
func Open(path string, opts ...Option) (*Catalog, error) {
	o := options{busyTimeout: 10 * time.Second, logger: slog.Default()}
	for _, fn := range opts {
		fn(&o)
	}
	db, err := openDB(path, o.busyTimeout)
	if err != nil {
		return nil, err
	}
	return &Catalog{db: db, logger: o.logger}, nil
}

// Close closes the database.
func (c *Catalog) Close() error { return c.db.Close() }

// RecordRun stores a written report. pattern is the classifier output, empty
// when the report is unusable for synthesis. Recording the same run twice
// replaces the row.
func (c *Catalog) RecordRun(ctx context.Context, r *report.Report, reportPath, pattern string) error {
	err := runTx(ctx, c.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO runs (run_id, source_url, domain, mode, method, status, pattern, report_path, captured_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(run_id) DO UPDATE SET
				status = excluded.status,
				pattern = excluded.pattern,
				report_path = excluded.report_path`,
			r.RunID, r.SourceURL, r.Domain(), r.Mode, string(r.AnalysisMethod), string(r.Status),
			pattern, reportPath, r.CapturedAt.UnixMilli())
		return err
	})
	if err != nil {
		return fmt.Errorf("catalog: record run %s: %w", r.RunID, err)
	}
	c.logger.Debug("catalog: run recorded", "run_id", r.RunID, "domain", r.Domain(), "status", r.Status)
	return nil
}

// RecordProgram stores a generated program.
func (c *Catalog) RecordProgram(ctx context.Context, p Program) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	err := runTx(ctx, c.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO programs (run_id, name, pattern, format, path, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			p.RunID, p.Name, p.Pattern, p.Format, p.Path, p.CreatedAt.UnixMilli())
		return err
	})
	if err != nil {
		return fmt.Errorf("catalog: record program %s: %w", p.Name, err)
	}
	return nil
}

const runColumns = `run_id, source_url, domain, mode, method, status, pattern, report_path, captured_at`

// Latest returns the newest run for domain whose report can be synthesized
// (success or partial).
func (c *Catalog) Latest(ctx context.Context, domain string) (Run, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT `+runColumns+` FROM runs
		WHERE domain = ? AND status IN ('success', 'partial') AND method != ''
		ORDER BY captured_at DESC, rowid DESC LIMIT 1`, domain)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: no usable run for %s", ErrNotFound, domain)
	}
	if err != nil {
		return Run{}, fmt.Errorf("catalog: latest %s: %w", domain, err)
	}
	return r, nil
}

// List returns up to limit runs, newest first. A non-empty domain filters.
func (c *Catalog) List(ctx context.Context, domain string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + runColumns + ` FROM runs`
	args := []any{}
	if domain != "" {
		query += ` WHERE domain = ?`
		args = append(args, domain)
	}
	query += ` ORDER BY captured_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: list scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Programs returns the programs generated from runID, oldest first.
func (c *Catalog) Programs(ctx context.Context, runID string) ([]Program, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT run_id, name, pattern, format, path, created_at
		FROM programs WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("catalog: programs: %w", err)
	}
	defer rows.Close()

	var out []Program
	for rows.Next() {
		var (
			p  Program
			ms int64
		)
		if err := rows.Scan(&p.RunID, &p.Name, &p.Pattern, &p.Format, &p.Path, &ms); err != nil {
			return nil, fmt.Errorf("catalog: programs scan: %w", err)
		}
		p.CreatedAt = time.UnixMilli(ms).UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		r  Run
		ms int64
	)
	err := s.Scan(&r.RunID, &r.SourceURL, &r.Domain, &r.Mode, &r.Method, &r.Status, &r.Pattern, &r.ReportPath, &ms)
	if err != nil {
		return Run{}, err
	}
	r.CapturedAt = time.UnixMilli(ms).UTC()
	return r, nil
}
