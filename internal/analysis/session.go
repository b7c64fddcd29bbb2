// Package analysis holds the per-session analysis state: significance
// thresholds, the loaded differential expression table, and the ambient
// context snapshot handed to capability invocations.
package analysis

import (
	"sort"
	"sync"
)

// Default significance cutoffs.
const (
	DefaultPValueThreshold = 0.05
	DefaultLogFCThreshold  = 1.0
)

// GeneRow is one row of a differential expression table.
type GeneRow struct {
	Gene   string  `json:"gene"`
	Log2FC float64 `json:"log2fc"`
	PValue float64 `json:"pvalue"`
}

// Thresholds are the session's significance cutoffs.
type Thresholds struct {
	PValue float64 `json:"pvalue_threshold"`
	LogFC  float64 `json:"logfc_threshold"`
}

// Session is the mutable analysis state shared across one gateway's
// lifetime. All access goes through the mutex; callers receive copies.
type Session struct {
	mu         sync.Mutex
	thresholds Thresholds
	rows       []GeneRow
}

// NewSession creates a session with default thresholds and no data.
func NewSession() *Session {
	return &Session{
		thresholds: Thresholds{PValue: DefaultPValueThreshold, LogFC: DefaultLogFCThreshold},
	}
}

// Thresholds returns the current cutoffs.
func (s *Session) Thresholds() Thresholds {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.thresholds
}

// UpdateThresholds overwrites the cutoffs that are non-nil and returns
// the names of the fields that changed along with the resulting values.
func (s *Session) UpdateThresholds(pvalue, logfc *float64) (Thresholds, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var updated []string
	if pvalue != nil {
		s.thresholds.PValue = *pvalue
		updated = append(updated, "pvalue_threshold")
	}
	if logfc != nil {
		s.thresholds.LogFC = *logfc
		updated = append(updated, "logfc_threshold")
	}
	return s.thresholds, updated
}

// Load replaces the expression table.
func (s *Session) Load(rows []GeneRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append([]GeneRow(nil), rows...)
}

// Rows returns a copy of the expression table.
func (s *Session) Rows() []GeneRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]GeneRow(nil), s.rows...)
}

// Len returns the number of loaded rows.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// Expression returns the gene-to-log2FC map for pathway coloring.
func (s *Session) Expression() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	expr := make(map[string]float64, len(s.rows))
	for _, r := range s.rows {
		expr[r.Gene] = r.Log2FC
	}
	return expr
}

// SignificantGenes returns the symbols passing the current thresholds,
// sorted by descending absolute fold change, deduplicated.
func (s *Session) SignificantGenes() []string {
	s.mu.Lock()
	thr := s.thresholds
	rows := append([]GeneRow(nil), s.rows...)
	s.mu.Unlock()

	var hits []GeneRow
	for _, r := range rows {
		if r.PValue < thr.PValue && abs(r.Log2FC) > thr.LogFC {
			hits = append(hits, r)
		}
	}
	sort.Slice(hits, func(i, j int) bool { return abs(hits[i].Log2FC) > abs(hits[j].Log2FC) })

	seen := make(map[string]bool, len(hits))
	var genes []string
	for _, r := range hits {
		if r.Gene == "" || seen[r.Gene] {
			continue
		}
		seen[r.Gene] = true
		genes = append(genes, r.Gene)
	}
	return genes
}

// Ambient is the context snapshot injected into blank capability
// parameters. Keys here must match parameter names the capabilities
// declare as context keys.
func (s *Session) Ambient() map[string]any {
	expr := s.Expression()
	if len(expr) == 0 {
		return map[string]any{}
	}
	generic := make(map[string]any, len(expr))
	for g, fc := range expr {
		generic[g] = fc
	}
	return map[string]any{"gene_expression": generic}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
