package template

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/roach88/seamline/internal/model"
	"github.com/roach88/seamline/internal/stage"
)

// DefaultStyle is the catalog key consulted when a style has no template.
const DefaultStyle = "default"

// builtinDefault is used when neither the style nor DefaultStyle is in the
// catalog.
var builtinDefault = Template{
	Style: DefaultStyle,
	Nodes: []NodeSpec{
		{Name: stage.KeyCutting},
		{Name: stage.KeyProduction},
		{Name: stage.KeyQuality},
		{Name: stage.KeyPackaging},
	},
}

// LoadFile reads and compiles a template file.
func LoadFile(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", path, err)
	}
	return Compile(path, data)
}

// Load compiles a single template file, or every .cue file of a directory
// into one catalog. A style defined in two files is an error.
func Load(path string) (Catalog, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat templates %s: %w", path, err)
	}
	if !info.IsDir() {
		return LoadFile(path)
	}

	files, err := filepath.Glob(filepath.Join(path, "*.cue"))
	if err != nil {
		return nil, fmt.Errorf("list templates in %s: %w", path, err)
	}
	sort.Strings(files)

	catalog := Catalog{}
	definedIn := make(map[string]string)
	for _, f := range files {
		c, err := LoadFile(f)
		if err != nil {
			return nil, err
		}
		for style, t := range c {
			if prev, dup := definedIn[style]; dup {
				return nil, fmt.Errorf("style %q defined in both %s and %s", style, prev, f)
			}
			definedIn[style] = f
			catalog[style] = t
		}
	}
	return catalog, nil
}

// Lookup returns the template for a style, falling back to the catalog's
// default and then the built-in pipeline.
func (c Catalog) Lookup(styleNo string) *Template {
	if t, ok := c[styleNo]; ok {
		return t
	}
	if t, ok := c[DefaultStyle]; ok {
		return t
	}
	return &builtinDefault
}

// Resolve builds the workflow node snapshot for a style. Shipment nodes are
// dropped: warehousing leaves the production pipeline and never counts
// toward progress.
func (c Catalog) Resolve(styleNo string) []model.WorkflowNode {
	t := c.Lookup(styleNo)
	nodes := make([]model.WorkflowNode, 0, len(t.Nodes))
	for _, n := range t.Nodes {
		if stage.IsShipment(n.Name) {
			continue
		}
		nodes = append(nodes, model.WorkflowNode{
			ID:            fmt.Sprintf("n%02d", len(nodes)+1),
			Name:          n.Name,
			ParentStage:   n.ParentStage,
			UnitPrice:     n.UnitPrice,
			SequenceIndex: len(nodes),
			SubProcesses:  len(n.Processes),
		})
	}
	return nodes
}

// Fill completes a stored snapshot from the style template. A node matching
// a template stage takes the template's unit price when it is positive, and
// its parent stage and sub-process count when the node has none. Matched
// nodes are reordered by template position, unmatched nodes follow in their
// stored order, and SequenceIndex is renumbered. Shipment nodes are dropped.
// A style without its own template keeps the stored nodes in sequence order. The
// input slice is not modified.
func (c Catalog) Fill(styleNo string, nodes []model.WorkflowNode) []model.WorkflowNode {
	t, ok := c[styleNo]
	if !ok {
		t = &Template{Style: styleNo}
	}
	stored := make([]model.WorkflowNode, len(nodes))
	copy(stored, nodes)
	sort.SliceStable(stored, func(i, j int) bool { return stored[i].SequenceIndex < stored[j].SequenceIndex })

	out := make([]model.WorkflowNode, 0, len(stored))
	pos := make([]int, 0, len(stored))
	for _, n := range stored {
		if stage.IsShipment(n.Name) {
			continue
		}
		at := len(t.Nodes)
		if i, ok := t.match(n.Name); ok {
			spec := t.Nodes[i]
			if spec.UnitPrice > 0 {
				n.UnitPrice = spec.UnitPrice
			}
			if n.ParentStage == "" {
				n.ParentStage = spec.ParentStage
			}
			if n.SubProcesses == 0 {
				n.SubProcesses = len(spec.Processes)
			}
			at = i
		}
		out = append(out, n)
		pos = append(pos, at)
	}

	order := make([]int, len(out))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return pos[order[a]] < pos[order[b]] })

	sorted := make([]model.WorkflowNode, len(out))
	for i, j := range order {
		sorted[i] = out[j]
		sorted[i].SequenceIndex = i
	}
	return sorted
}

// match finds the index of the template node for a name: an exact canonical
// match first, then the looser stage match.
func (t *Template) match(name string) (int, bool) {
	key := stage.Canonicalize(name)
	for i, n := range t.Nodes {
		if stage.Canonicalize(n.Name) == key {
			return i, true
		}
	}
	for i, n := range t.Nodes {
		if stage.Match(n.Name, name) {
			return i, true
		}
	}
	return -1, false
}
