package biotools

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bioviz-local/biocopilot/internal/analysis"
	"github.com/bioviz-local/biocopilot/internal/capability"
	"github.com/bioviz-local/biocopilot/internal/dispatch"
	"github.com/bioviz-local/biocopilot/internal/model"
	"github.com/bioviz-local/biocopilot/internal/pathway"
)

func setup(t *testing.T) (Deps, *capability.Registry, *dispatch.Dispatcher) {
	t.Helper()
	deps := Deps{
		Session: analysis.NewSession(),
		Library: pathway.Builtin(),
	}
	deps.Session.Load([]analysis.GeneRow{
		{Gene: "TP53", Log2FC: 2.5, PValue: 0.001},
		{Gene: "BAX", Log2FC: -1.8, PValue: 0.01},
		{Gene: "CASP3", Log2FC: 1.6, PValue: 0.02},
		{Gene: "BCL2", Log2FC: 0.4, PValue: 0.2},
	})

	reg := capability.NewRegistry()
	if err := RegisterAll(reg, deps); err != nil {
		t.Fatalf("RegisterAll failed: %v", err)
	}
	return deps, reg, dispatch.NewDispatcher(reg)
}

func invoke(t *testing.T, deps Deps, reg *capability.Registry, d *dispatch.Dispatcher, name string, args map[string]any) any {
	t.Helper()
	c := reg.Lookup(name)
	if c == nil {
		t.Fatalf("%s not registered", name)
	}
	res, err := d.Invoke(context.Background(), c, args, deps.Session.Ambient())
	if err != nil {
		t.Fatalf("%s failed: %v", name, err)
	}
	return res
}

func TestRegisterAllRiskSplit(t *testing.T) {
	_, reg, _ := setup(t)

	if reg.Len() != 8 {
		t.Fatalf("registered %d capabilities, want 8", reg.Len())
	}

	confirm := reg.Names(model.RiskConfirm)
	want := map[string]bool{"update_thresholds": true, "export_data": true}
	if len(confirm) != 2 || !want[confirm[0]] || !want[confirm[1]] {
		t.Errorf("confirm capabilities = %v", confirm)
	}
}

func TestRenderPathwayUsesAmbientExpression(t *testing.T) {
	deps, reg, d := setup(t)

	res := invoke(t, deps, reg, d, "render_pathway", map[string]any{"pathway_id": "hsa04210"})
	m := res.(map[string]any)
	stats := m["statistics"].(pathway.Statistics)
	if stats.Pathway != "hsa04210" {
		t.Errorf("pathway = %q", stats.Pathway)
	}
	// TP53 up, BAX down, CASP3 up, BCL2 within threshold.
	if stats.Up != 2 || stats.Down != 1 {
		t.Errorf("stats = %+v", stats)
	}

	summary := reg.Lookup("render_pathway").Summary(res)
	if !strings.Contains(summary, "2 upregulated, 1 downregulated") {
		t.Errorf("summary = %q", summary)
	}
}

func TestRenderPathwayUnknownID(t *testing.T) {
	deps, reg, d := setup(t)
	c := reg.Lookup("render_pathway")

	_, err := d.Invoke(context.Background(), c, map[string]any{"pathway_id": "hsa99999"}, deps.Session.Ambient())
	if err == nil || !strings.Contains(err.Error(), "unknown pathway") {
		t.Errorf("expected unknown pathway error, got %v", err)
	}
}

func TestRenderPathwayWithoutDataFails(t *testing.T) {
	deps, reg, d := setup(t)
	deps.Session.Load(nil)
	c := reg.Lookup("render_pathway")

	_, err := d.Invoke(context.Background(), c, map[string]any{"pathway_id": "hsa04210"}, deps.Session.Ambient())
	if err == nil || !strings.Contains(err.Error(), "no gene expression data") {
		t.Errorf("expected missing data error, got %v", err)
	}
}

func TestPathwayStats(t *testing.T) {
	deps, reg, d := setup(t)

	res := invoke(t, deps, reg, d, "get_pathway_stats", map[string]any{"pathway_id": "hsa04115"})
	stats := res.(pathway.Statistics)
	if stats.Pathway != "hsa04115" || stats.Total == 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestListAndExplainPathways(t *testing.T) {
	deps, reg, d := setup(t)

	res := invoke(t, deps, reg, d, "list_pathways", nil)
	list := res.([]pathway.Summary)
	if len(list) != 5 {
		t.Errorf("listed %d pathways", len(list))
	}

	res = invoke(t, deps, reg, d, "explain_pathway", map[string]any{"pathway_id": "hsa04210"})
	if text := res.(string); !strings.Contains(text, "programmed cell death") {
		t.Errorf("explanation = %q", text)
	}
}

func TestRunEnrichmentFallsBackToSessionGenes(t *testing.T) {
	deps, reg, d := setup(t)

	res := invoke(t, deps, reg, d, "run_enrichment", map[string]any{})
	result := res.(pathway.EnrichmentResult)
	if result.InputGenes != 3 {
		t.Errorf("input genes = %d, want the 3 significant session genes", result.InputGenes)
	}
	if len(result.Terms) == 0 {
		t.Error("no enriched terms")
	}
}

func TestRunEnrichmentExplicitGenes(t *testing.T) {
	deps, reg, d := setup(t)

	res := invoke(t, deps, reg, d, "run_enrichment", map[string]any{
		"gene_list": []any{"LDHA", "PKM", "ENO1"},
		"gene_sets": "reactome",
	})
	result := res.(pathway.EnrichmentResult)
	if len(result.Terms) == 0 || result.Terms[0].Term != "Glycolysis" {
		t.Errorf("terms = %+v", result.Terms)
	}
}

func TestUpdateThresholdsMutatesSession(t *testing.T) {
	deps, reg, d := setup(t)

	res := invoke(t, deps, reg, d, "update_thresholds", map[string]any{"pvalue_threshold": 0.01})
	if got := deps.Session.Thresholds().PValue; got != 0.01 {
		t.Errorf("session p-value threshold = %g", got)
	}

	summary := reg.Lookup("update_thresholds").Summary(res)
	if !strings.Contains(summary, "0.01") {
		t.Errorf("summary = %q", summary)
	}

	reason := reg.Lookup("update_thresholds").Reason(nil)
	if !strings.Contains(reason, "modify your analysis thresholds") {
		t.Errorf("reason = %q", reason)
	}
}

func TestUpdateThresholdsWithNoArgsFails(t *testing.T) {
	_, reg, d := setup(t)
	c := reg.Lookup("update_thresholds")

	_, err := d.Invoke(context.Background(), c, map[string]any{}, nil)
	if err == nil {
		t.Error("expected error when no thresholds are given")
	}
}

func TestExportData(t *testing.T) {
	deps, reg, d := setup(t)
	path := filepath.Join(t.TempDir(), "out.csv")

	res := invoke(t, deps, reg, d, "export_data", map[string]any{"output_path": path, "format": "csv"})
	result := res.(analysis.ExportResult)
	if result.OutputPath != path || result.Rows != 4 {
		t.Errorf("result = %+v", result)
	}

	summary := reg.Lookup("export_data").Summary(res)
	if !strings.Contains(summary, "Exported 4 rows") {
		t.Errorf("summary = %q", summary)
	}

	reason := reg.Lookup("export_data").Reason(map[string]any{"output_path": "/tmp/x.csv"})
	if reason != "This will write data to: /tmp/x.csv" {
		t.Errorf("reason = %q", reason)
	}
}

func TestStudioReportWithoutNarrator(t *testing.T) {
	deps, reg, d := setup(t)

	res := invoke(t, deps, reg, d, "summarize_studio_intelligence", nil)
	m := res.(map[string]any)
	narrative := m["narrative"].(string)
	if !strings.Contains(narrative, "TP53") {
		t.Errorf("narrative = %q", narrative)
	}
}

type fakeNarrator struct{ text string }

func (f fakeNarrator) Narrate(context.Context, string) (string, error) { return f.text, nil }

func TestStudioReportWithNarrator(t *testing.T) {
	deps := Deps{
		Session:  analysis.NewSession(),
		Library:  pathway.Builtin(),
		Narrator: fakeNarrator{text: "Apoptotic signaling dominates this dataset."},
	}
	deps.Session.Load([]analysis.GeneRow{
		{Gene: "TP53", Log2FC: 2.5, PValue: 0.001},
		{Gene: "BAX", Log2FC: -1.8, PValue: 0.01},
	})
	reg := capability.NewRegistry()
	if err := RegisterAll(reg, deps); err != nil {
		t.Fatal(err)
	}
	d := dispatch.NewDispatcher(reg)

	res := invoke(t, deps, reg, d, "summarize_studio_intelligence", nil)
	m := res.(map[string]any)
	if m["narrative"] != "Apoptotic signaling dominates this dataset." {
		t.Errorf("narrative = %v", m["narrative"])
	}
}
