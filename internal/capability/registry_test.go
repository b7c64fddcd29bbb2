package capability

import (
	"context"
	"errors"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/bioviz-local/biocopilot/internal/model"
)

func noopHandler(_ context.Context, _ map[string]any) (any, error) {
	return "ok", nil
}

func testCap(name string, risk model.RiskLevel) *Capability {
	return &Capability{
		Name:        name,
		Label:       "Test " + name,
		Description: "test capability",
		Risk:        risk,
		Params: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"pathway_id": {Type: "string"},
			},
		},
		Handler: noopHandler,
	}
}

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(testCap("render_pathway", model.RiskAuto)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	c := r.Lookup("render_pathway")
	if c == nil {
		t.Fatal("expected capability, got nil")
	}
	if c.Risk != model.RiskAuto {
		t.Errorf("expected auto risk, got %s", c.Risk)
	}
	if r.Schema("render_pathway") == nil {
		t.Error("expected resolved schema")
	}
}

func TestLookupIsCaseSensitive(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(testCap("export_data", model.RiskConfirm)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if r.Lookup("Export_Data") != nil {
		t.Error("lookup must be case-sensitive exact match")
	}
	if r.Lookup("export_data ") != nil {
		t.Error("lookup must not trim whitespace")
	}
}

func TestDuplicateRegistrationFails(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(testCap("render_pathway", model.RiskAuto)); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	err := r.Register(testCap("render_pathway", model.RiskConfirm))
	if err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
	// Original registration must be untouched.
	if c := r.Lookup("render_pathway"); c.Risk != model.RiskAuto {
		t.Errorf("duplicate registration mutated the entry: risk=%s", c.Risk)
	}
}

func TestRegisterValidation(t *testing.T) {
	r := NewRegistry()

	cases := []struct {
		name string
		cap  *Capability
	}{
		{"empty name", testCapNamed("")},
		{"bad risk", &Capability{Name: "x", Risk: "red", Handler: noopHandler, Params: objectSchema()}},
		{"nil handler", &Capability{Name: "x", Risk: model.RiskAuto, Params: objectSchema()}},
		{"nil schema", &Capability{Name: "x", Risk: model.RiskAuto, Handler: noopHandler}},
	}
	for _, c := range cases {
		if err := r.Register(c.cap); err == nil {
			t.Errorf("%s: expected registration to fail", c.name)
		}
	}
}

func testCapNamed(name string) *Capability {
	c := testCap("x", model.RiskAuto)
	c.Name = name
	return c
}

func objectSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object"}
}

func TestContextKeyMustBeDeclaredParameter(t *testing.T) {
	r := NewRegistry()
	c := testCap("render_pathway", model.RiskAuto)
	c.ContextKeys = []string{"gene_expression"} // not in the schema
	if err := r.Register(c); err == nil {
		t.Fatal("expected registration to reject undeclared context key")
	}

	c2 := testCap("render_pathway", model.RiskAuto)
	c2.Params.Properties["gene_expression"] = &jsonschema.Schema{Type: "object"}
	c2.ContextKeys = []string{"gene_expression"}
	if err := r.Register(c2); err != nil {
		t.Fatalf("expected declared context key to register: %v", err)
	}
}

func TestNamesByRisk(t *testing.T) {
	r := NewRegistry()
	for _, c := range []*Capability{
		testCap("render_pathway", model.RiskAuto),
		testCap("list_pathways", model.RiskAuto),
		testCap("export_data", model.RiskConfirm),
	} {
		if err := r.Register(c); err != nil {
			t.Fatalf("Register %s: %v", c.Name, err)
		}
	}

	all := r.Names()
	want := []string{"render_pathway", "list_pathways", "export_data"}
	if len(all) != len(want) {
		t.Fatalf("expected %d names, got %v", len(want), all)
	}
	for i := range want {
		if all[i] != want[i] {
			t.Errorf("names[%d] = %s, want %s (registration order)", i, all[i], want[i])
		}
	}

	confirm := r.Names(model.RiskConfirm)
	if len(confirm) != 1 || confirm[0] != "export_data" {
		t.Errorf("expected [export_data], got %v", confirm)
	}
}

func TestDescriptorsStableOrder(t *testing.T) {
	r := NewRegistry()
	names := []string{"render_pathway", "get_pathway_stats", "export_data"}
	for _, n := range names {
		if err := r.Register(testCap(n, model.RiskAuto)); err != nil {
			t.Fatalf("Register %s: %v", n, err)
		}
	}

	first := r.Descriptors()
	second := r.Descriptors()
	if len(first) != len(names) || len(second) != len(names) {
		t.Fatalf("expected %d descriptors", len(names))
	}
	for i := range names {
		if first[i].Name != names[i] || second[i].Name != names[i] {
			t.Errorf("descriptor order not stable at %d: %s / %s", i, first[i].Name, second[i].Name)
		}
		if first[i].Parameters == nil {
			t.Errorf("descriptor %s missing parameter schema", first[i].Name)
		}
	}
}

func TestSummaryAndReasonDefaults(t *testing.T) {
	c := testCap("render_pathway", model.RiskAuto)
	if got := c.Summary(nil); got != "Executed Test render_pathway successfully." {
		t.Errorf("default summary = %q", got)
	}
	if got := c.Reason(nil); got != "This action may modify your data or settings." {
		t.Errorf("default reason = %q", got)
	}

	c.Summarize = func(any) string { return "custom" }
	c.ConfirmReason = func(map[string]any) string { return "because" }
	if c.Summary(nil) != "custom" || c.Reason(nil) != "because" {
		t.Error("custom summarize/reason not used")
	}
}
