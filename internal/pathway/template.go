// Package pathway holds the KEGG pathway templates and the analysis
// primitives over them: expression coloring, per-pathway statistics, and
// local over-representation enrichment. Everything here runs offline.
package pathway

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Node is one gene box in a pathway diagram.
type Node struct {
	Gene  string `json:"gene"`
	Label string `json:"label,omitempty"`
}

// Template is a pathway diagram skeleton: the genes it shows and how the
// pathway is described to the user.
type Template struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Nodes       []Node `json:"nodes"`
}

// Summary is the listing shape for available templates.
type Summary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Library is the set of loaded pathway templates. Builtin templates ship
// with the binary; user templates loaded from a directory override them
// by id.
type Library struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// Builtin returns a library preloaded with the bundled human pathways.
func Builtin() *Library {
	l := &Library{templates: make(map[string]Template)}
	for _, t := range builtinTemplates {
		l.templates[t.ID] = t
	}
	return l
}

// LoadDir overlays the library with every *.json template under dir. A
// missing directory is not an error; a malformed template file is.
func (l *Library) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("pathway: read template directory: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("pathway: read template %s: %w", e.Name(), err)
		}
		var t Template
		if err := json.Unmarshal(data, &t); err != nil {
			return fmt.Errorf("pathway: parse template %s: %w", e.Name(), err)
		}
		if t.ID == "" {
			t.ID = strings.TrimSuffix(e.Name(), ".json")
		}
		if t.Name == "" {
			t.Name = titleFromID(t.ID)
		}
		l.templates[t.ID] = t
	}
	return nil
}

// Get returns the template with the given id.
func (l *Library) Get(id string) (Template, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.templates[id]
	return t, ok
}

// List returns all template summaries sorted by id.
func (l *Library) List() []Summary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Summary, 0, len(l.templates))
	for _, t := range l.templates {
		out = append(out, Summary{ID: t.ID, Name: t.Name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Describe returns the one-line description for a pathway id. Unknown ids
// get a generic KEGG reference rather than an error.
func (l *Library) Describe(id string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if t, ok := l.templates[id]; ok && t.Description != "" {
		return t.Description
	}
	return "KEGG pathway " + id
}

// Len returns the number of loaded templates.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.templates)
}

func titleFromID(id string) string {
	words := strings.Split(strings.ReplaceAll(id, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

var builtinTemplates = []Template{
	{
		ID:          "hsa04210",
		Name:        "Apoptosis",
		Description: "Apoptosis pathway - programmed cell death signaling",
		Nodes: []Node{
			{Gene: "TP53"}, {Gene: "CASP3"}, {Gene: "CASP8"}, {Gene: "CASP9"},
			{Gene: "BAX"}, {Gene: "BCL2"}, {Gene: "FAS"}, {Gene: "FADD"},
			{Gene: "APAF1"}, {Gene: "CYCS"}, {Gene: "BID"}, {Gene: "XIAP"},
		},
	},
	{
		ID:          "hsa04110",
		Name:        "Cell Cycle",
		Description: "Cell cycle - regulation of cell division",
		Nodes: []Node{
			{Gene: "CDK1"}, {Gene: "CDK2"}, {Gene: "CDK4"}, {Gene: "CDK6"},
			{Gene: "CCNA2"}, {Gene: "CCNB1"}, {Gene: "CCND1"}, {Gene: "CCNE1"},
			{Gene: "RB1"}, {Gene: "E2F1"}, {Gene: "TP53"}, {Gene: "CDKN1A"},
			{Gene: "CDC20"}, {Gene: "PLK1"}, {Gene: "WEE1"},
		},
	},
	{
		ID:          "hsa04115",
		Name:        "P53 Signaling",
		Description: "p53 signaling pathway - tumor suppressor response",
		Nodes: []Node{
			{Gene: "TP53"}, {Gene: "MDM2"}, {Gene: "CDKN1A"}, {Gene: "BAX"},
			{Gene: "BBC3"}, {Gene: "GADD45A"}, {Gene: "SFN"}, {Gene: "CCNG1"},
			{Gene: "SESN1"}, {Gene: "ATM"}, {Gene: "CHEK2"},
		},
	},
	{
		ID:          "hsa04151",
		Name:        "PI3K-Akt Signaling",
		Description: "PI3K-Akt signaling pathway - cell survival and growth",
		Nodes: []Node{
			{Gene: "PIK3CA"}, {Gene: "PIK3R1"}, {Gene: "AKT1"}, {Gene: "AKT2"},
			{Gene: "PTEN"}, {Gene: "PDPK1"}, {Gene: "MTOR"}, {Gene: "RPS6KB1"},
			{Gene: "FOXO3"}, {Gene: "GSK3B"}, {Gene: "BAD"}, {Gene: "TSC1"},
			{Gene: "TSC2"},
		},
	},
	{
		ID:          "hsa04010",
		Name:        "MAPK Signaling",
		Description: "MAPK signaling pathway - cell proliferation and differentiation",
		Nodes: []Node{
			{Gene: "EGFR"}, {Gene: "GRB2"}, {Gene: "SOS1"}, {Gene: "HRAS"},
			{Gene: "KRAS"}, {Gene: "RAF1"}, {Gene: "BRAF"}, {Gene: "MAP2K1"},
			{Gene: "MAP2K2"}, {Gene: "MAPK1"}, {Gene: "MAPK3"}, {Gene: "JUN"},
			{Gene: "FOS"}, {Gene: "ELK1"}, {Gene: "DUSP1"},
		},
	},
}
