package pathway

// Status classifies a node against the fold-change threshold.
type Status string

const (
	StatusUp        Status = "UP"
	StatusDown      Status = "DOWN"
	StatusUnchanged Status = "NS"
)

// ColoredNode is one pathway node with its expression overlay applied.
type ColoredNode struct {
	Gene   string  `json:"gene"`
	Log2FC float64 `json:"log2fc"`
	Status Status  `json:"status"`
	// Mapped reports whether the expression table carried this gene at all.
	Mapped bool `json:"mapped"`
}

// Colored is a pathway template with expression data painted onto it.
type Colored struct {
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Nodes []ColoredNode `json:"nodes"`
}

// Statistics summarizes a colored pathway.
type Statistics struct {
	Pathway   string `json:"pathway"`
	Total     int    `json:"total_nodes"`
	Mapped    int    `json:"mapped"`
	Up        int    `json:"upregulated"`
	Down      int    `json:"downregulated"`
	Unchanged int    `json:"unchanged"`
}

// Color paints an expression table onto a template. Genes absent from the
// table stay unmapped and count as unchanged. A non-positive fcThreshold
// falls back to 1.0.
func Color(t Template, expr map[string]float64, fcThreshold float64) Colored {
	if fcThreshold <= 0 {
		fcThreshold = 1.0
	}

	c := Colored{ID: t.ID, Name: t.Name, Nodes: make([]ColoredNode, 0, len(t.Nodes))}
	for _, n := range t.Nodes {
		node := ColoredNode{Gene: n.Gene, Status: StatusUnchanged}
		if fc, ok := expr[n.Gene]; ok {
			node.Log2FC = fc
			node.Mapped = true
			switch {
			case fc > fcThreshold:
				node.Status = StatusUp
			case fc < -fcThreshold:
				node.Status = StatusDown
			}
		}
		c.Nodes = append(c.Nodes, node)
	}
	return c
}

// Statistics counts node statuses for the colored pathway.
func (c Colored) Statistics() Statistics {
	s := Statistics{Pathway: c.ID, Total: len(c.Nodes)}
	for _, n := range c.Nodes {
		if n.Mapped {
			s.Mapped++
		}
		switch n.Status {
		case StatusUp:
			s.Up++
		case StatusDown:
			s.Down++
		default:
			s.Unchanged++
		}
	}
	return s
}
