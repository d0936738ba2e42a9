package webscraper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/urlsafe"
	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/catalog"
	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/classify"
	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/report"
	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/synth"
	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/scrapekit"
)

// ErrNoReport is returned when Generate has neither a report path nor a
// domain with a usable catalogued run.
var ErrNoReport = errors.New("webscraper: no report to generate from")

// GenerateRequest selects a report and the program defaults.
type GenerateRequest struct {
	// ReportPath is a report written by Explore.
	ReportPath string `json:"report_path,omitempty"`
	// Latest resolves the newest usable report for a domain slug
	// (example_com) from the catalog when ReportPath is empty.
	Latest string `json:"latest,omitempty"`
	// Format is json, csv, md or all. Empty uses the configured default.
	Format string `json:"format,omitempty"`
	// OutputPath overrides {reportDir}/{program}/main.go.
	OutputPath string `json:"output_path,omitempty"`
	DataDir    string `json:"data_dir,omitempty"`
	MaxItems   int    `json:"max_items,omitempty"`
	// Pattern forces an extraction pattern instead of classifying the report.
	Pattern string `json:"pattern,omitempty"`
}

// GenerateResult describes the written program.
type GenerateResult struct {
	ReportPath string           `json:"report_path"`
	Program    string           `json:"program"`
	Path       string           `json:"path"`
	Method     report.Method    `json:"analysis_method"`
	Pattern    classify.Pattern `json:"pattern"`
	Format     string           `json:"format"`
}

// Generate renders the scraper program for a report and writes it.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	path, err := s.resolveReport(ctx, req)
	if err != nil {
		return nil, err
	}
	r, err := report.Read(path)
	if err != nil {
		return nil, fmt.Errorf("webscraper: generate: %w", err)
	}
	if r.AnalysisMethod == "" {
		return nil, fmt.Errorf("webscraper: report %s has status %s and cannot be synthesized", path, r.Status)
	}

	pattern := classify.Of(r)
	if req.Pattern != "" {
		pattern = classify.Pattern(req.Pattern)
	}
	format := req.Format
	if format == "" {
		format = s.cfg.Generate.Format
	}
	if !slices.Contains(scrapekit.Formats, format) {
		return nil, fmt.Errorf("webscraper: unknown format %q (json, csv, md, all)", format)
	}
	dataDir := req.DataDir
	if dataDir == "" {
		dataDir = s.cfg.Generate.DataDir
	}
	maxItems := req.MaxItems
	if maxItems <= 0 {
		maxItems = s.cfg.Generate.MaxItems
	}

	prog, err := synth.Synthesize(r, pattern, synth.Options{
		Format:   format,
		DataDir:  dataDir,
		MaxItems: maxItems,
		Sleep:    s.cfg.Generate.Sleep,
		Now:      s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("webscraper: generate %s: %w", path, err)
	}

	out := req.OutputPath
	if out == "" {
		dir, err := urlsafe.SafePath(filepath.Dir(path), prog.Name)
		if err != nil {
			return nil, fmt.Errorf("webscraper: program dir: %w", err)
		}
		out = filepath.Join(dir, "main.go")
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return nil, fmt.Errorf("webscraper: mkdir: %w", err)
	}
	if err := os.WriteFile(out, prog.Source, 0o644); err != nil {
		return nil, fmt.Errorf("webscraper: write program: %w", err)
	}

	if s.catalog != nil {
		err := s.catalog.RecordProgram(ctx, catalog.Program{
			RunID:   r.RunID,
			Name:    prog.Name,
			Pattern: string(pattern),
			Format:  format,
			Path:    out,
		})
		if err != nil {
			s.logger.Warn("webscraper: catalog record failed", "error", err)
		}
	}
	s.logger.Info("webscraper: program generated",
		"report", path, "program", prog.Name, "pattern", pattern, "path", out)

	return &GenerateResult{
		ReportPath: path,
		Program:    prog.Name,
		Path:       out,
		Method:     r.AnalysisMethod,
		Pattern:    pattern,
		Format:     format,
	}, nil
}

func (s *Service) resolveReport(ctx context.Context, req GenerateRequest) (string, error) {
	if req.ReportPath != "" {
		return req.ReportPath, nil
	}
	if req.Latest == "" {
		return "", ErrNoReport
	}
	if s.catalog == nil {
		return "", fmt.Errorf("%w: catalog disabled, pass a report path", ErrNoReport)
	}
	run, err := s.catalog.Latest(ctx, req.Latest)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return "", fmt.Errorf("%w: %v", ErrNoReport, err)
		}
		return "", fmt.Errorf("webscraper: %w", err)
	}
	return run.ReportPath, nil
}

// Run is one catalogued exploration.
type Run = catalog.Run

// History lists catalogued runs, newest first. A non-empty domain slug
// filters; limit <= 0 means 20.
func (s *Service) History(ctx context.Context, domain string, limit int) ([]Run, error) {
	if s.catalog == nil {
		return nil, errors.New("webscraper: catalog disabled")
	}
	runs, err := s.catalog.List(ctx, domain, limit)
	if err != nil {
		return nil, fmt.Errorf("webscraper: %w", err)
	}
	return runs, nil
}
