package template

import (
	"fmt"

	"github.com/roach88/seamline/internal/stage"
)

// Validation error codes (E200-E209)
const (
	ErrNoNodes        = "E200" // style declares no nodes
	ErrDuplicateNode  = "E201" // two nodes canonicalize to the same stage
	ErrDuplicateProc  = "E202" // process listed twice under one node
	ErrOnlyShipment   = "E203" // every node is a shipment stage
	ErrEmptyStyleName = "E204" // style label is empty
)

// ValidationError represents a template rule violation.
type ValidationError struct {
	Style   string `json:"style"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s: %s", e.Code, e.Style, e.Field, e.Message)
}

// Validate checks the rules the CUE schema cannot express.
// Returns all errors found (does not fail-fast).
func Validate(t *Template) []ValidationError {
	var errs []ValidationError
	if t.Style == "" {
		errs = append(errs, ValidationError{Field: "style", Message: "style name is empty", Code: ErrEmptyStyleName})
	}
	if len(t.Nodes) == 0 {
		return append(errs, ValidationError{Style: t.Style, Field: "nodes", Message: "at least one node is required", Code: ErrNoNodes})
	}

	seen := make(map[string]string, len(t.Nodes))
	shipments := 0
	for i, n := range t.Nodes {
		field := fmt.Sprintf("nodes[%d]", i)
		key := stage.Canonicalize(n.Name)
		if prev, dup := seen[key]; dup {
			errs = append(errs, ValidationError{
				Style: t.Style, Field: field, Code: ErrDuplicateNode,
				Message: fmt.Sprintf("%q duplicates %q", n.Name, prev),
			})
		}
		seen[key] = n.Name
		if stage.IsShipment(n.Name) {
			shipments++
		}

		procs := make(map[string]struct{}, len(n.Processes))
		for _, p := range n.Processes {
			if _, dup := procs[p]; dup {
				errs = append(errs, ValidationError{
					Style: t.Style, Field: field + ".processes", Code: ErrDuplicateProc,
					Message: fmt.Sprintf("process %q listed twice", p),
				})
			}
			procs[p] = struct{}{}
		}
	}
	if shipments == len(t.Nodes) {
		errs = append(errs, ValidationError{Style: t.Style, Field: "nodes", Message: "pipeline has only shipment nodes", Code: ErrOnlyShipment})
	}
	return errs
}
