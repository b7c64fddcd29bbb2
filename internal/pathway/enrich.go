package pathway

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// ErrNoGenes is returned when enrichment is requested with an empty list.
var ErrNoGenes = fmt.Errorf("no genes provided for enrichment analysis")

// EnrichedTerm is one over-represented gene set in the ORA result, with
// its hypergeometric p-value and BH-adjusted FDR.
type EnrichedTerm struct {
	Term    string   `json:"term"`
	PValue  float64  `json:"p_value"`
	FDR     float64  `json:"fdr"`
	Overlap []string `json:"genes"`
	SetSize int      `json:"set_size"`
}

// EnrichmentResult is the full ORA output for one source.
type EnrichmentResult struct {
	Source     string         `json:"gene_sets"`
	InputGenes int            `json:"input_genes"`
	Terms      []EnrichedTerm `json:"enriched_terms"`
	TotalTerms int            `json:"total_terms"`
}

// Sources returns the gene set sources bundled with the binary.
func Sources() []string {
	return []string{"reactome", "wikipathways", "go_bp"}
}

// Enrich runs over-representation analysis of the gene list against the
// named source's gene sets. The source name is matched loosely, the way
// users type it ("Reactome 2022" resolves to reactome). KEGG is refused:
// its gene sets are not redistributable and are not bundled.
func Enrich(genes []string, source string) (EnrichmentResult, error) {
	if len(genes) == 0 {
		return EnrichmentResult{}, ErrNoGenes
	}

	resolved, err := resolveSource(source)
	if err != nil {
		return EnrichmentResult{}, err
	}
	sets := builtinGeneSets[resolved]

	query := make(map[string]bool, len(genes))
	for _, g := range genes {
		g = strings.ToUpper(strings.TrimSpace(g))
		if g != "" {
			query[g] = true
		}
	}
	if len(query) == 0 {
		return EnrichmentResult{}, ErrNoGenes
	}

	// The universe is every gene any set in the source mentions.
	universe := make(map[string]bool)
	for _, set := range sets {
		for _, g := range set.genes {
			universe[g] = true
		}
	}

	// Only query genes inside the universe count as draws.
	drawn := 0
	for g := range query {
		if universe[g] {
			drawn++
		}
	}

	var terms []EnrichedTerm
	for _, set := range sets {
		var overlap []string
		for _, g := range set.genes {
			if query[g] {
				overlap = append(overlap, g)
			}
		}
		if len(overlap) == 0 {
			continue
		}
		sort.Strings(overlap)
		p := hypergeomUpperTail(len(universe), len(set.genes), drawn, len(overlap))
		terms = append(terms, EnrichedTerm{
			Term:    set.name,
			PValue:  p,
			Overlap: overlap,
			SetSize: len(set.genes),
		})
	}

	sort.Slice(terms, func(i, j int) bool { return terms[i].PValue < terms[j].PValue })
	applyBH(terms)

	return EnrichmentResult{
		Source:     resolved,
		InputGenes: len(query),
		Terms:      terms,
		TotalTerms: len(terms),
	}, nil
}

func resolveSource(source string) (string, error) {
	normalized := strings.ToLower(source)
	if normalized == "" {
		return "reactome", nil
	}
	if strings.Contains(normalized, "kegg") {
		return "", fmt.Errorf("KEGG enrichment requires a custom GMT file (license)")
	}
	for _, s := range Sources() {
		if strings.Contains(normalized, s) {
			return s, nil
		}
	}
	return "reactome", nil
}

// hypergeomUpperTail is P(X >= k) for drawing n genes from a universe of
// size N containing K set members. Computed in log space to stay stable
// for large counts.
func hypergeomUpperTail(N, K, n, k int) float64 {
	if k <= 0 {
		return 1.0
	}
	upper := n
	if K < upper {
		upper = K
	}
	p := 0.0
	for i := k; i <= upper; i++ {
		p += math.Exp(lchoose(K, i) + lchoose(N-K, n-i) - lchoose(N, n))
	}
	if p > 1 {
		p = 1
	}
	return p
}

func lchoose(n, k int) float64 {
	if k < 0 || k > n {
		return math.Inf(-1)
	}
	a, _ := math.Lgamma(float64(n + 1))
	b, _ := math.Lgamma(float64(k + 1))
	c, _ := math.Lgamma(float64(n - k + 1))
	return a - b - c
}

// applyBH fills in Benjamini-Hochberg adjusted values. Terms must already
// be sorted by ascending p-value.
func applyBH(terms []EnrichedTerm) {
	m := len(terms)
	if m == 0 {
		return
	}
	minSoFar := 1.0
	for i := m - 1; i >= 0; i-- {
		adj := terms[i].PValue * float64(m) / float64(i+1)
		if adj < minSoFar {
			minSoFar = adj
		}
		if minSoFar > 1 {
			minSoFar = 1
		}
		terms[i].FDR = minSoFar
	}
}

type geneSet struct {
	name  string
	genes []string
}

// Small curated collections so enrichment works without network access or
// external GMT files. User-supplied sets are out of scope for now.
var builtinGeneSets = map[string][]geneSet{
	"reactome": {
		{"Apoptosis", []string{"TP53", "CASP3", "CASP8", "CASP9", "BAX", "BCL2", "FAS", "APAF1", "CYCS", "BID", "XIAP", "FADD"}},
		{"Cell Cycle Checkpoints", []string{"CDK1", "CDK2", "CCNB1", "CCNA2", "RB1", "E2F1", "CDC20", "PLK1", "WEE1", "ATM", "CHEK2", "CDKN1A"}},
		{"Glycolysis", []string{"LDHA", "PKM", "ENO1", "HK2", "GAPDH", "PFKM", "ALDOA", "PGK1", "TPI1", "PGAM1"}},
		{"PIP3 Activates AKT Signaling", []string{"PIK3CA", "PIK3R1", "AKT1", "AKT2", "PTEN", "PDPK1", "MTOR", "FOXO3", "GSK3B", "TSC2"}},
		{"MAPK Family Signaling Cascades", []string{"EGFR", "GRB2", "SOS1", "HRAS", "KRAS", "RAF1", "BRAF", "MAP2K1", "MAPK1", "MAPK3", "DUSP1"}},
		{"Transcriptional Regulation by TP53", []string{"TP53", "MDM2", "CDKN1A", "BBC3", "GADD45A", "SFN", "CCNG1", "SESN1", "BAX"}},
	},
	"wikipathways": {
		{"Apoptosis Modulation and Signaling", []string{"TP53", "CASP3", "CASP8", "CASP9", "BAX", "BCL2", "FAS", "BID", "XIAP"}},
		{"Cell Cycle", []string{"CDK1", "CDK2", "CDK4", "CDK6", "CCND1", "CCNE1", "RB1", "E2F1", "CDC20", "PLK1"}},
		{"Aerobic Glycolysis", []string{"LDHA", "PKM", "ENO1", "HK2", "GAPDH", "ALDOA", "PGK1", "SLC2A1"}},
		{"PI3K-Akt Signaling Pathway", []string{"PIK3CA", "AKT1", "PTEN", "MTOR", "RPS6KB1", "FOXO3", "BAD", "TSC1", "TSC2"}},
		{"EGFR Signaling Pathway", []string{"EGFR", "GRB2", "SOS1", "KRAS", "RAF1", "MAP2K1", "MAPK1", "MAPK3", "JUN", "FOS"}},
	},
	"go_bp": {
		{"GO:0006915 apoptotic process", []string{"TP53", "CASP3", "CASP8", "CASP9", "BAX", "BCL2", "FAS", "FADD", "APAF1", "BID"}},
		{"GO:0007049 cell cycle", []string{"CDK1", "CDK2", "CDK4", "CCNB1", "CCND1", "RB1", "E2F1", "CDC20", "PLK1", "WEE1"}},
		{"GO:0006096 glycolytic process", []string{"LDHA", "PKM", "ENO1", "HK2", "GAPDH", "PFKM", "ALDOA", "PGK1"}},
		{"GO:0043491 PI3K-Akt signal transduction", []string{"PIK3CA", "PIK3R1", "AKT1", "PTEN", "PDPK1", "MTOR", "GSK3B"}},
		{"GO:0000165 MAPK cascade", []string{"EGFR", "HRAS", "KRAS", "RAF1", "BRAF", "MAP2K1", "MAP2K2", "MAPK1", "MAPK3"}},
	},
}
