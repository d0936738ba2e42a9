package scrapekit

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Output formats.
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "md"
	FormatAll      = "all"
)

// Formats lists the accepted format values.
var Formats = []string{FormatJSON, FormatCSV, FormatMarkdown, FormatAll}

// TimestampLayout is the {timestamp} part of data file names.
const TimestampLayout = "20060102_150405"

// mdCellLimit caps Markdown table cells, in runes.
const mdCellLimit = 50

func validFormat(f string) bool {
	for _, v := range Formats {
		if f == v {
			return true
		}
	}
	return false
}

// Save writes items to dir as {domain}_data_{timestamp}.{ext} for the
// requested format, or all three for "all". It returns the written paths.
func Save(items []Item, dir, domain, format string, now time.Time) ([]string, error) {
	if !validFormat(format) {
		return nil, fmt.Errorf("scrapekit: unknown format %q", format)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("scrapekit: mkdir %s: %w", dir, err)
	}

	formats := []string{format}
	if format == FormatAll {
		formats = []string{FormatJSON, FormatCSV, FormatMarkdown}
	}
	base := filepath.Join(dir, domain+"_data_"+now.Format(TimestampLayout))

	var paths []string
	for _, f := range formats {
		var (
			data []byte
			err  error
		)
		switch f {
		case FormatJSON:
			data, err = EncodeJSON(items)
		case FormatCSV:
			data, err = EncodeCSV(items)
		case FormatMarkdown:
			data = EncodeMarkdown(items, now)
		}
		if err != nil {
			return paths, err
		}
		path := base + "." + f
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return paths, fmt.Errorf("scrapekit: write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// EncodeJSON renders items as an indented JSON array.
func EncodeJSON(items []Item) ([]byte, error) {
	if items == nil {
		items = []Item{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("scrapekit: encode json: %w", err)
	}
	return append(data, '\n'), nil
}

// EncodeCSV renders items as CSV. The header is the first item's keys;
// later items contribute only those columns. No items yields an empty file.
func EncodeCSV(items []Item) ([]byte, error) {
	var buf bytes.Buffer
	if len(items) == 0 {
		return buf.Bytes(), nil
	}
	w := csv.NewWriter(&buf)
	header := items[0].Keys()
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("scrapekit: encode csv: %w", err)
	}
	for _, it := range items {
		record := make([]string, len(header))
		for i, k := range header {
			record[i] = it.String(k)
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("scrapekit: encode csv: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("scrapekit: encode csv: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeMarkdown renders a summary heading and, when there are items, a
// table keyed by the first item's fields.
func EncodeMarkdown(items []Item, now time.Time) []byte {
	var b strings.Builder
	b.WriteString("# Scrape results\n\n")
	fmt.Fprintf(&b, "- Collected at: %s\n", now.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Items: %d\n\n", len(items))
	if len(items) == 0 {
		return []byte(b.String())
	}

	header := items[0].Keys()
	b.WriteString("| " + strings.Join(header, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(header)) + "\n")
	for _, it := range items {
		cells := make([]string, len(header))
		for i, k := range header {
			cells[i] = mdCell(it.String(k))
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return []byte(b.String())
}

func mdCell(s string) string {
	s = Truncate(s, mdCellLimit)
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\n", " ")
}
