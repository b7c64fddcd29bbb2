package analysis

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ExportResult reports where an export landed and what it contained.
type ExportResult struct {
	OutputPath string `json:"output_path"`
	Format     string `json:"format"`
	Rows       int    `json:"rows"`
	Preview    string `json:"data_preview"`
}

// statusFor classifies one row against the thresholds, matching the
// pathway coloring statuses.
func statusFor(r GeneRow, thr Thresholds) string {
	if r.PValue < thr.PValue && r.Log2FC > thr.LogFC {
		return "UP"
	}
	if r.PValue < thr.PValue && r.Log2FC < -thr.LogFC {
		return "DOWN"
	}
	return "NS"
}

// Export writes the session's expression table to path in the given
// format ("csv" or "json"; anything else falls back to csv). An empty
// path resolves to a timestamped file under the user's home directory.
// An empty table is an error: there is nothing to export.
func (s *Session) Export(path, format string) (ExportResult, error) {
	rows := s.Rows()
	thr := s.Thresholds()
	if len(rows) == 0 {
		return ExportResult{}, fmt.Errorf("no data loaded to export")
	}

	format = strings.ToLower(format)
	if format != "json" {
		format = "csv"
	}

	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ExportResult{}, fmt.Errorf("resolve export directory: %w", err)
		}
		dir := filepath.Join(home, "biocopilot_exports")
		path = filepath.Join(dir, fmt.Sprintf("export_%d.%s", time.Now().Unix(), format))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return ExportResult{}, fmt.Errorf("create export directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return ExportResult{}, fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	switch format {
	case "json":
		type jsonRow struct {
			GeneRow
			Status string `json:"status"`
		}
		out := make([]jsonRow, 0, len(rows))
		for _, r := range rows {
			out = append(out, jsonRow{GeneRow: r, Status: statusFor(r, thr)})
		}
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return ExportResult{}, fmt.Errorf("write json export: %w", err)
		}
	default:
		w := csv.NewWriter(f)
		if err := w.Write([]string{"Gene", "Log2FC", "PValue", "Status"}); err != nil {
			return ExportResult{}, fmt.Errorf("write csv header: %w", err)
		}
		for _, r := range rows {
			rec := []string{
				r.Gene,
				strconv.FormatFloat(r.Log2FC, 'f', 4, 64),
				strconv.FormatFloat(r.PValue, 'g', -1, 64),
				statusFor(r, thr),
			}
			if err := w.Write(rec); err != nil {
				return ExportResult{}, fmt.Errorf("write csv row: %w", err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return ExportResult{}, fmt.Errorf("flush csv export: %w", err)
		}
	}

	return ExportResult{
		OutputPath: path,
		Format:     format,
		Rows:       len(rows),
		Preview:    preview(rows, thr),
	}, nil
}

// preview renders the first rows of the export as text for the chat reply.
func preview(rows []GeneRow, thr Thresholds) string {
	lines := []string{"gene,log2FoldChange,status"}
	limit := len(rows)
	if limit > 10 {
		limit = 10
	}
	for _, r := range rows[:limit] {
		lines = append(lines, fmt.Sprintf("%s,%.4f,%s", r.Gene, r.Log2FC, statusFor(r, thr)))
	}
	if len(rows) > 10 {
		lines = append(lines, fmt.Sprintf("... and %d more rows", len(rows)-10))
	}
	return strings.Join(lines, "\n")
}
