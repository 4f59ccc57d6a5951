package harness

import (
	"github.com/roach88/seamline/internal/model"
	"github.com/roach88/seamline/internal/projection"
)

// StepOutcome records how one scenario step was handled.
type StepOutcome struct {
	Index     int    `json:"index"`
	Action    string `json:"action"`
	Status    string `json:"status,omitempty"`
	ID        string `json:"id,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step expectation and assertion held.
	Pass bool `json:"pass"`

	Steps []StepOutcome `json:"steps"`

	// Progress is the read model projected after the last step.
	Progress projection.Progress `json:"progress"`

	// Order is the stored order after the last step.
	Order model.Order `json:"order"`

	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepOutcome{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStep appends a step outcome.
func (r *Result) AddStep(o StepOutcome) {
	o.Index = len(r.Steps) + 1
	r.Steps = append(r.Steps, o)
}
