package analysis

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadCSV reads a differential expression table from a CSV file with a
// gene/log2fc/pvalue header (column names matched loosely, any order).
// Rows with an unparsable number are skipped rather than failing the
// whole load.
func LoadCSV(path string) ([]GeneRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open expression table: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse expression table: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("expression table has no data rows")
	}

	geneCol, fcCol, pvCol := -1, -1, -1
	for i, name := range records[0] {
		switch normalizeHeader(name) {
		case "gene", "symbol", "geneid", "name":
			geneCol = i
		case "log2fc", "log2foldchange", "logfc", "x":
			fcCol = i
		case "pvalue", "pval", "p", "padj":
			pvCol = i
		}
	}
	if geneCol < 0 || fcCol < 0 || pvCol < 0 {
		return nil, fmt.Errorf("expression table needs gene, log2fc, and pvalue columns (got header %v)", records[0])
	}

	var rows []GeneRow
	for _, rec := range records[1:] {
		if len(rec) <= geneCol || len(rec) <= fcCol || len(rec) <= pvCol {
			continue
		}
		gene := strings.TrimSpace(rec[geneCol])
		if gene == "" {
			continue
		}
		fc, err := strconv.ParseFloat(strings.TrimSpace(rec[fcCol]), 64)
		if err != nil {
			continue
		}
		pv, err := strconv.ParseFloat(strings.TrimSpace(rec[pvCol]), 64)
		if err != nil {
			continue
		}
		rows = append(rows, GeneRow{Gene: gene, Log2FC: fc, PValue: pv})
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("expression table has no usable rows")
	}
	return rows, nil
}

func normalizeHeader(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "_", "")
	name = strings.ReplaceAll(name, " ", "")
	return name
}
