package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TimestampLayout is the timestamp used in artifact file names.
const TimestampLayout = "20060102_150405"

// BaseName returns {domain}_structure_{timestamp} for r.
func (r *Report) BaseName() string {
	return r.Domain() + "_structure_" + r.CapturedAt.Format(TimestampLayout)
}

// WriteScreenshot stores png beside the report and records its path.
// Call before Write.
func (r *Report) WriteScreenshot(dir string, png []byte) (string, error) {
	if len(png) == 0 {
		return "", nil
	}
	path := filepath.Join(dir, r.BaseName()+"_screenshot.png")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("report: mkdir %s: %w", dir, err)
	}
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("report: write screenshot: %w", err)
	}
	r.ArtifactPaths = append(r.ArtifactPaths, path)
	return path, nil
}

// Write serialises r to {dir}/{domain}_structure_{timestamp}.json. The file
// appears atomically and an existing report is never overwritten.
func (r *Report) Write(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("report: mkdir %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("report: marshal: %w", err)
	}

	path := filepath.Join(dir, r.BaseName()+".json")
	if _, err := os.Stat(path); err == nil {
		path = filepath.Join(dir, r.BaseName()+"_"+r.RunID[:8]+".json")
	}

	tmp, err := os.CreateTemp(dir, ".report-*.json")
	if err != nil {
		return "", fmt.Errorf("report: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return "", fmt.Errorf("report: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("report: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("report: publish %s: %w", path, err)
	}
	return path, nil
}

// Read loads a report artifact.
func Read(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("report: read %s: %w", path, err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("report: parse %s: %w", path, err)
	}
	if r.SourceURL == "" {
		return nil, errors.New("report: missing source_url in " + path)
	}
	return &r, nil
}

// IsReportFile reports whether name looks like a structure report.
func IsReportFile(name string) bool {
	return strings.Contains(name, "_structure_") && strings.HasSuffix(name, ".json")
}
