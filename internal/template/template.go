package template

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaCUE string

// NodeSpec is one node of a style template.
type NodeSpec struct {
	Name        string
	ParentStage string
	UnitPrice   float64
	Processes   []string
}

// Template is the pipeline for one style.
type Template struct {
	Style string
	Nodes []NodeSpec
}

// Catalog maps style number to template.
type Catalog map[string]*Template

// Compile parses CUE source into a Catalog. filename is used in error
// positions only.
func Compile(filename string, src []byte) (Catalog, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	v = schema.Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	catalog := Catalog{}
	stylesVal := v.LookupPath(cue.ParsePath("styles"))
	if !stylesVal.Exists() {
		return catalog, nil
	}
	iter, err := stylesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		tmpl, err := CompileStyle(iter.Value())
		if err != nil {
			return nil, err
		}
		tmpl.Style = iter.Label()
		if errs := Validate(tmpl); len(errs) > 0 {
			return nil, errs[0]
		}
		catalog[tmpl.Style] = tmpl
	}
	return catalog, nil
}

// CompileStyle parses one style value into a Template. The caller sets
// Style from the field label.
func CompileStyle(v cue.Value) (*Template, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	tmpl := &Template{}

	nodesVal := v.LookupPath(cue.ParsePath("nodes"))
	if !nodesVal.Exists() {
		return nil, &CompileError{Field: "nodes", Message: "nodes is required", Pos: v.Pos()}
	}
	list, err := nodesVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for list.Next() {
		node, err := compileNode(list.Value())
		if err != nil {
			return nil, err
		}
		tmpl.Nodes = append(tmpl.Nodes, node)
	}
	return tmpl, nil
}

func compileNode(v cue.Value) (NodeSpec, error) {
	var node NodeSpec
	name, err := v.LookupPath(cue.ParsePath("name")).String()
	if err != nil {
		return node, formatCUEError(err)
	}
	node.Name = name

	if p := v.LookupPath(cue.ParsePath("unitPrice")); p.Exists() {
		if node.UnitPrice, err = p.Float64(); err != nil {
			return node, formatCUEError(err)
		}
	}
	if p := v.LookupPath(cue.ParsePath("parentStage")); p.Exists() {
		if node.ParentStage, err = p.String(); err != nil {
			return node, formatCUEError(err)
		}
	}
	if p := v.LookupPath(cue.ParsePath("processes")); p.Exists() {
		iter, err := p.List()
		if err != nil {
			return node, formatCUEError(err)
		}
		for iter.Next() {
			proc, err := iter.Value().String()
			if err != nil {
				return node, formatCUEError(err)
			}
			node.Processes = append(node.Processes, proc)
		}
	}
	return node, nil
}

// CompileError represents a template error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
