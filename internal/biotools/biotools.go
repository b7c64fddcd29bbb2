// Package biotools registers the built-in capability set: pathway
// visualization and statistics, enrichment, and the confirm-gated
// threshold and export operations.
package biotools

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/bioviz-local/biocopilot/internal/analysis"
	"github.com/bioviz-local/biocopilot/internal/capability"
	"github.com/bioviz-local/biocopilot/internal/model"
	"github.com/bioviz-local/biocopilot/internal/pathway"
)

// Narrator produces free-text syntheses for report-style capabilities.
// Nil is fine; those capabilities then fall back to a local summary.
type Narrator interface {
	Narrate(ctx context.Context, prompt string) (string, error)
}

// Deps are the collaborators the built-in capabilities close over.
type Deps struct {
	Session  *analysis.Session
	Library  *pathway.Library
	Narrator Narrator

	// RiskOverrides forces a risk level per capability name before
	// registration. Unknown names are an error.
	RiskOverrides map[string]model.RiskLevel
}

// RegisterAll adds every built-in capability to the registry.
func RegisterAll(reg *capability.Registry, deps Deps) error {
	if deps.Session == nil || deps.Library == nil {
		return fmt.Errorf("biotools: session and library are required")
	}
	caps := []*capability.Capability{
		renderPathway(deps),
		pathwayStats(deps),
		listPathways(deps),
		explainPathway(deps),
		runEnrichment(deps),
		studioReport(deps),
		updateThresholds(deps),
		exportData(deps),
	}
	known := make(map[string]bool, len(caps))
	for _, c := range caps {
		known[c.Name] = true
		if level, ok := deps.RiskOverrides[c.Name]; ok {
			c.Risk = level
		}
	}
	for name := range deps.RiskOverrides {
		if !known[name] {
			return fmt.Errorf("biotools: risk override for unknown capability %q", name)
		}
	}
	for _, c := range caps {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func renderPathway(deps Deps) *capability.Capability {
	return &capability.Capability{
		Name:        "render_pathway",
		Label:       "render a colored pathway diagram",
		Description: "Render and color a KEGG pathway with gene expression data. Returns the colored pathway and statistics.",
		Risk:        model.RiskAuto,
		Params: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"pathway_id": {
					Type:        "string",
					Description: "KEGG pathway ID (e.g., 'hsa04210' for Apoptosis)",
				},
				"gene_expression": {
					Type:                 "object",
					Description:          "Mapping of gene symbols to log2 fold change values",
					AdditionalProperties: &jsonschema.Schema{Type: "number"},
				},
			},
			Required: []string{"pathway_id"},
		},
		ContextKeys: []string{"gene_expression"},
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			colored, err := colorFromArgs(deps, args)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"pathway":    colored,
				"statistics": colored.Statistics(),
			}, nil
		},
		Summarize: func(result any) string {
			m, ok := result.(map[string]any)
			if !ok {
				return "Rendered pathway."
			}
			stats, ok := m["statistics"].(pathway.Statistics)
			if !ok {
				return "Rendered pathway."
			}
			return fmt.Sprintf("Rendered pathway with %d nodes: %d upregulated, %d downregulated.",
				stats.Total, stats.Up, stats.Down)
		},
	}
}

func pathwayStats(deps Deps) *capability.Capability {
	return &capability.Capability{
		Name:        "get_pathway_stats",
		Label:       "compute pathway statistics",
		Description: "Get statistics for a pathway (upregulated, downregulated, unchanged counts) without full rendering.",
		Risk:        model.RiskAuto,
		Params: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"pathway_id": {Type: "string", Description: "KEGG pathway ID"},
				"gene_expression": {
					Type:                 "object",
					Description:          "Mapping of gene symbols to log2 fold change values",
					AdditionalProperties: &jsonschema.Schema{Type: "number"},
				},
			},
			Required: []string{"pathway_id"},
		},
		ContextKeys: []string{"gene_expression"},
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			colored, err := colorFromArgs(deps, args)
			if err != nil {
				return nil, err
			}
			return colored.Statistics(), nil
		},
		Summarize: func(result any) string {
			stats, ok := result.(pathway.Statistics)
			if !ok {
				return "Computed pathway statistics."
			}
			return fmt.Sprintf("%s: %d of %d nodes mapped, %d up, %d down.",
				stats.Pathway, stats.Mapped, stats.Total, stats.Up, stats.Down)
		},
	}
}

func listPathways(deps Deps) *capability.Capability {
	return &capability.Capability{
		Name:        "list_pathways",
		Label:       "list available pathways",
		Description: "List all available KEGG pathway templates.",
		Risk:        model.RiskAuto,
		Params:      &jsonschema.Schema{Type: "object"},
		Handler: func(_ context.Context, _ map[string]any) (any, error) {
			return deps.Library.List(), nil
		},
		Summarize: func(result any) string {
			list, ok := result.([]pathway.Summary)
			if !ok {
				return "Listed available pathways."
			}
			names := make([]string, 0, len(list))
			for _, s := range list {
				names = append(names, fmt.Sprintf("%s (%s)", s.Name, s.ID))
			}
			return fmt.Sprintf("Available pathways: %s.", strings.Join(names, ", "))
		},
	}
}

func explainPathway(deps Deps) *capability.Capability {
	return &capability.Capability{
		Name:        "explain_pathway",
		Label:       "explain a pathway",
		Description: "Get a brief description of what a pathway does.",
		Risk:        model.RiskAuto,
		Params: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"pathway_id": {Type: "string", Description: "KEGG pathway ID to explain"},
			},
			Required: []string{"pathway_id"},
		},
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			id, _ := args["pathway_id"].(string)
			return deps.Library.Describe(id), nil
		},
		Summarize: func(result any) string {
			if text, ok := result.(string); ok {
				return text
			}
			return "Explained pathway."
		},
	}
}

func runEnrichment(deps Deps) *capability.Capability {
	return &capability.Capability{
		Name:        "run_enrichment",
		Label:       "run enrichment analysis",
		Description: "Run over-representation enrichment on a list of significant genes using local gene set sources. With no gene list, the session's significant genes are used.",
		Risk:        model.RiskAuto,
		Params: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"gene_list": {
					Type:        "array",
					Items:       &jsonschema.Schema{Type: "string"},
					Description: "Gene symbols to analyze (e.g., ['LDHA', 'PKM', 'ENO1'])",
				},
				"gene_sets": {
					Type:        "string",
					Description: "Gene set source: reactome, wikipathways, or go_bp",
				},
			},
		},
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			genes := stringSlice(args["gene_list"])
			if len(genes) == 0 {
				genes = deps.Session.SignificantGenes()
			}
			source, _ := args["gene_sets"].(string)
			result, err := pathway.Enrich(genes, source)
			if err != nil {
				return nil, err
			}
			return result, nil
		},
		Summarize: func(result any) string {
			res, ok := result.(pathway.EnrichmentResult)
			if !ok {
				return "Enrichment analysis complete."
			}
			if len(res.Terms) == 0 {
				return fmt.Sprintf("No enriched terms found in %s for %d genes.", res.Source, res.InputGenes)
			}
			top := res.Terms[0]
			return fmt.Sprintf("Found %d enriched terms in %s; top hit %s (p=%.2g).",
				res.TotalTerms, res.Source, top.Term, top.PValue)
		},
	}
}

func studioReport(deps Deps) *capability.Capability {
	return &capability.Capability{
		Name:        "summarize_studio_intelligence",
		Label:       "generate a studio intelligence report",
		Description: "Synthesize the session's expression data and enrichment into a cohesive narrative report.",
		Risk:        model.RiskAuto,
		Params: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"focus": {
					Type:        "string",
					Description: "Optional focus for the narrative (e.g., 'apoptosis')",
				},
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			genes := deps.Session.SignificantGenes()
			if len(genes) == 0 {
				return nil, fmt.Errorf("no significant genes in the current session; load expression data first")
			}
			enrichment, _ := pathway.Enrich(genes, "reactome")

			local := localNarrative(deps.Session, enrichment)
			if deps.Narrator == nil {
				return map[string]any{"narrative": local}, nil
			}

			focus, _ := args["focus"].(string)
			prompt := narrativePrompt(local, focus)
			text, err := deps.Narrator.Narrate(ctx, prompt)
			if err != nil {
				// The local synthesis still answers the question.
				return map[string]any{"narrative": local}, nil
			}
			return map[string]any{"narrative": text}, nil
		},
		Summarize: func(result any) string {
			if m, ok := result.(map[string]any); ok {
				if text, ok := m["narrative"].(string); ok {
					return text
				}
			}
			return "Generated intelligence report."
		},
	}
}

func updateThresholds(deps Deps) *capability.Capability {
	return &capability.Capability{
		Name:        "update_thresholds",
		Label:       "update the analysis thresholds",
		Description: "Update analysis thresholds for significance (p-value) and effect size (log fold change). REQUIRES USER CONFIRMATION.",
		Risk:        model.RiskConfirm,
		Params: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"pvalue_threshold": {
					Type:        "number",
					Description: "New p-value threshold for significance (e.g., 0.05)",
				},
				"logfc_threshold": {
					Type:        "number",
					Description: "New log2 fold change threshold (e.g., 1.0)",
				},
			},
		},
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			pv := floatArg(args, "pvalue_threshold")
			fc := floatArg(args, "logfc_threshold")
			if pv == nil && fc == nil {
				return nil, fmt.Errorf("no thresholds given to update")
			}
			thr, updated := deps.Session.UpdateThresholds(pv, fc)
			return map[string]any{"thresholds": thr, "updated": updated}, nil
		},
		Summarize: func(result any) string {
			m, ok := result.(map[string]any)
			if !ok {
				return "Updated analysis thresholds."
			}
			thr, ok := m["thresholds"].(analysis.Thresholds)
			if !ok {
				return "Updated analysis thresholds."
			}
			return fmt.Sprintf("Updated thresholds: p-value < %g, |log2FC| > %g.", thr.PValue, thr.LogFC)
		},
		ConfirmReason: func(_ map[string]any) string {
			return "This will modify your analysis thresholds, which may affect all visualizations."
		},
	}
}

func exportData(deps Deps) *capability.Capability {
	return &capability.Capability{
		Name:        "export_data",
		Label:       "export the analysis data",
		Description: "Export analysis data to a file. REQUIRES USER CONFIRMATION.",
		Risk:        model.RiskConfirm,
		Params: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"output_path": {
					Type:        "string",
					Description: "Path where the file will be saved",
				},
				"format": {
					Type:        "string",
					Enum:        []any{"csv", "json"},
					Description: "Output file format",
				},
			},
		},
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			path, _ := args["output_path"].(string)
			format, _ := args["format"].(string)
			return deps.Session.Export(path, format)
		},
		Summarize: func(result any) string {
			res, ok := result.(analysis.ExportResult)
			if !ok {
				return "Export complete."
			}
			return fmt.Sprintf("Exported %d rows to %s.", res.Rows, res.OutputPath)
		},
		ConfirmReason: func(args map[string]any) string {
			if path, _ := args["output_path"].(string); path != "" {
				return "This will write data to: " + path
			}
			return "This will write data to a new file in your home directory."
		},
	}
}

// colorFromArgs resolves the template and expression arguments shared by
// the rendering capabilities.
func colorFromArgs(deps Deps, args map[string]any) (pathway.Colored, error) {
	id, _ := args["pathway_id"].(string)
	tmpl, ok := deps.Library.Get(id)
	if !ok {
		return pathway.Colored{}, fmt.Errorf("unknown pathway: %s", id)
	}
	expr := exprMap(args["gene_expression"])
	if len(expr) == 0 {
		return pathway.Colored{}, fmt.Errorf("no gene expression data available; load a dataset first")
	}
	return pathway.Color(tmpl, expr, deps.Session.Thresholds().LogFC), nil
}

func exprMap(v any) map[string]float64 {
	raw, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	expr := make(map[string]float64, len(raw))
	for gene, val := range raw {
		if f, ok := val.(float64); ok {
			expr[gene] = f
		}
	}
	return expr
}

func stringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func floatArg(args map[string]any, key string) *float64 {
	if f, ok := args[key].(float64); ok {
		return &f
	}
	return nil
}

func localNarrative(s *analysis.Session, enrichment pathway.EnrichmentResult) string {
	thr := s.Thresholds()
	genes := s.SignificantGenes()

	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d genes pass the current thresholds (p < %g, |log2FC| > %g).",
		len(genes), s.Len(), thr.PValue, thr.LogFC)
	limit := len(genes)
	if limit > 10 {
		limit = 10
	}
	if limit > 0 {
		fmt.Fprintf(&b, " Top drivers: %s.", strings.Join(genes[:limit], ", "))
	}
	if len(enrichment.Terms) > 0 {
		top := enrichment.Terms[0]
		fmt.Fprintf(&b, " Strongest enrichment: %s (p=%.2g, %d/%d genes).",
			top.Term, top.PValue, len(top.Overlap), top.SetSize)
	}
	return b.String()
}

func narrativePrompt(local, focus string) string {
	var b strings.Builder
	b.WriteString("Synthesize a concise scientific narrative from these session findings. ")
	b.WriteString("Use only the provided statistics and mark speculative content as 'Hypothesis (not validated)'.\n\n")
	b.WriteString(local)
	if focus != "" {
		b.WriteString("\n\nFocus on: " + focus)
	}
	return b.String()
}
