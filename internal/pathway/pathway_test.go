package pathway

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuiltinLibrary(t *testing.T) {
	l := Builtin()
	if l.Len() != 5 {
		t.Fatalf("builtin library has %d templates, want 5", l.Len())
	}

	apoptosis, ok := l.Get("hsa04210")
	if !ok {
		t.Fatal("hsa04210 missing from builtin library")
	}
	if apoptosis.Name != "Apoptosis" {
		t.Errorf("name = %q", apoptosis.Name)
	}
	if len(apoptosis.Nodes) == 0 {
		t.Error("apoptosis template has no nodes")
	}
}

func TestListIsSortedByID(t *testing.T) {
	l := Builtin()
	summaries := l.List()
	for i := 1; i < len(summaries); i++ {
		if summaries[i-1].ID >= summaries[i].ID {
			t.Fatalf("list not sorted: %s before %s", summaries[i-1].ID, summaries[i].ID)
		}
	}
}

func TestDescribe(t *testing.T) {
	l := Builtin()
	if got := l.Describe("hsa04115"); !strings.Contains(got, "p53") {
		t.Errorf("hsa04115 description = %q", got)
	}
	if got := l.Describe("hsa99999"); got != "KEGG pathway hsa99999" {
		t.Errorf("unknown pathway description = %q", got)
	}
}

func TestLoadDirOverridesBuiltin(t *testing.T) {
	dir := t.TempDir()
	custom := `{"id": "hsa04210", "name": "Custom Apoptosis", "nodes": [{"gene": "TP53"}]}`
	if err := os.WriteFile(filepath.Join(dir, "hsa04210.json"), []byte(custom), 0644); err != nil {
		t.Fatal(err)
	}
	extra := `{"name": "Ferroptosis", "nodes": [{"gene": "GPX4"}, {"gene": "SLC7A11"}]}`
	if err := os.WriteFile(filepath.Join(dir, "hsa04216.json"), []byte(extra), 0644); err != nil {
		t.Fatal(err)
	}

	l := Builtin()
	if err := l.LoadDir(dir); err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}

	got, _ := l.Get("hsa04210")
	if got.Name != "Custom Apoptosis" || len(got.Nodes) != 1 {
		t.Errorf("override not applied: %+v", got)
	}
	if _, ok := l.Get("hsa04216"); !ok {
		t.Error("template without explicit id not keyed by filename")
	}
}

func TestLoadDirMissingDirectoryIsNotAnError(t *testing.T) {
	l := Builtin()
	if err := l.LoadDir(filepath.Join(t.TempDir(), "nope")); err != nil {
		t.Errorf("missing directory should be ignored, got %v", err)
	}
}

func TestLoadDirRejectsMalformedTemplate(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0644)

	l := Builtin()
	if err := l.LoadDir(dir); err == nil {
		t.Error("expected error for malformed template file")
	}
}

func TestColorStatuses(t *testing.T) {
	tmpl := Template{ID: "p1", Nodes: []Node{
		{Gene: "TP53"}, {Gene: "BAX"}, {Gene: "BCL2"}, {Gene: "CASP3"},
	}}
	expr := map[string]float64{
		"TP53": 2.5,  // above threshold
		"BAX":  -1.8, // below negative threshold
		"BCL2": 0.4,  // within threshold
	}

	c := Color(tmpl, expr, 1.0)

	want := map[string]Status{
		"TP53":  StatusUp,
		"BAX":   StatusDown,
		"BCL2":  StatusUnchanged,
		"CASP3": StatusUnchanged,
	}
	for _, n := range c.Nodes {
		if n.Status != want[n.Gene] {
			t.Errorf("%s: status = %s, want %s", n.Gene, n.Status, want[n.Gene])
		}
	}

	stats := c.Statistics()
	if stats.Up != 1 || stats.Down != 1 || stats.Unchanged != 2 || stats.Mapped != 3 || stats.Total != 4 {
		t.Errorf("statistics = %+v", stats)
	}
}

func TestColorExactThresholdIsUnchanged(t *testing.T) {
	tmpl := Template{ID: "p1", Nodes: []Node{{Gene: "TP53"}}}
	c := Color(tmpl, map[string]float64{"TP53": 1.0}, 1.0)
	if c.Nodes[0].Status != StatusUnchanged {
		t.Errorf("fold change equal to the threshold should not be significant, got %s", c.Nodes[0].Status)
	}
}

func TestEnrichApoptosisGenes(t *testing.T) {
	genes := []string{"TP53", "CASP3", "CASP8", "CASP9", "BAX", "BCL2"}

	res, err := Enrich(genes, "reactome")
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if res.Source != "reactome" {
		t.Errorf("source = %q", res.Source)
	}
	if len(res.Terms) == 0 {
		t.Fatal("no enriched terms")
	}
	if res.Terms[0].Term != "Apoptosis" {
		t.Errorf("top term = %q, want Apoptosis", res.Terms[0].Term)
	}
	if res.Terms[0].PValue >= 0.05 {
		t.Errorf("top p-value = %g, want significant", res.Terms[0].PValue)
	}
	for i := 1; i < len(res.Terms); i++ {
		if res.Terms[i-1].PValue > res.Terms[i].PValue {
			t.Error("terms not sorted by ascending p-value")
		}
	}
	for _, term := range res.Terms {
		if term.FDR < term.PValue {
			t.Errorf("%s: FDR %g below p-value %g", term.Term, term.FDR, term.PValue)
		}
	}
}

func TestEnrichResolvesLooseSourceNames(t *testing.T) {
	res, err := Enrich([]string{"LDHA", "PKM", "ENO1"}, "WikiPathways 2023")
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if res.Source != "wikipathways" {
		t.Errorf("source = %q", res.Source)
	}
}

func TestEnrichRefusesKEGG(t *testing.T) {
	_, err := Enrich([]string{"TP53"}, "kegg")
	if err == nil || !strings.Contains(err.Error(), "KEGG") {
		t.Errorf("expected KEGG refusal, got %v", err)
	}
}

func TestEnrichNoGenes(t *testing.T) {
	if _, err := Enrich(nil, "reactome"); err != ErrNoGenes {
		t.Errorf("expected ErrNoGenes, got %v", err)
	}
	if _, err := Enrich([]string{"  ", ""}, "reactome"); err != ErrNoGenes {
		t.Errorf("expected ErrNoGenes for blank symbols, got %v", err)
	}
}
