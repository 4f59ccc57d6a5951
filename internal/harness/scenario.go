package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/seamline/internal/engine"
	"github.com/roach88/seamline/internal/model"
)

// Scenario is one end-to-end production scenario.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario shows.
	Description string `yaml:"description"`

	// Templates is an optional CUE style-template file. Relative paths are
	// resolved against the scenario file.
	Templates string `yaml:"templates,omitempty"`

	// Start is the deterministic clock's first instant.
	Start time.Time `yaml:"start,omitempty"`

	Policy *PolicySpec `yaml:"policy,omitempty"`

	Order       model.Order               `yaml:"order"`
	Nodes       []model.WorkflowNode      `yaml:"nodes,omitempty"`
	Bundles     []model.CuttingBundle     `yaml:"bundles,omitempty"`
	Procurement *model.ProcurementArrival `yaml:"procurement,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// PolicySpec overrides business policy values. Zero fields keep defaults.
type PolicySpec struct {
	NodeCompleteRatio     float64 `yaml:"node_complete_ratio,omitempty"`
	CloseTolerancePercent int     `yaml:"close_tolerance_percent,omitempty"`
	Strategy              string  `yaml:"strategy,omitempty"`
}

// Step is one action against the store. Exactly one action field is set.
type Step struct {
	Scan         *model.ScanSubmission       `yaml:"scan,omitempty"`
	RequestID    string                      `yaml:"request_id,omitempty"`
	Inspect      *model.InspectionSubmission `yaml:"inspect,omitempty"`
	InspectBatch *model.BatchInspection      `yaml:"inspect_batch,omitempty"`
	Close        *CloseStep                  `yaml:"close,omitempty"`
	Refresh      bool                        `yaml:"refresh,omitempty"`
	Advance      time.Duration               `yaml:"advance,omitempty"`

	// Expect checks the receipt. Without it the step must be accepted.
	Expect *StepExpect `yaml:"expect,omitempty"`
}

// CloseStep closes the scenario order.
type CloseStep struct {
	Remark string `yaml:"remark,omitempty"`
}

// StepExpect is the expected receipt of a step.
type StepExpect struct {
	Status    string `yaml:"status"`
	ErrorKind string `yaml:"error_kind,omitempty"`
}

// Step action names.
const (
	ActionScan         = "scan"
	ActionInspect      = "inspect"
	ActionInspectBatch = "inspect_batch"
	ActionClose        = "close"
	ActionRefresh      = "refresh"
	ActionAdvance      = "advance"
)

// Action returns the name of the step's action, or "" when none or more
// than one is set.
func (s Step) Action() string {
	var names []string
	if s.Scan != nil {
		names = append(names, ActionScan)
	}
	if s.Inspect != nil {
		names = append(names, ActionInspect)
	}
	if s.InspectBatch != nil {
		names = append(names, ActionInspectBatch)
	}
	if s.Close != nil {
		names = append(names, ActionClose)
	}
	if s.Refresh {
		names = append(names, ActionRefresh)
	}
	if s.Advance != 0 {
		names = append(names, ActionAdvance)
	}
	if len(names) != 1 {
		return ""
	}
	return names[0]
}

// Assertion checks part of the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Node names the node for AssertNode.
	Node string `yaml:"node,omitempty"`

	// Bundle names the bundle for AssertRepair.
	Bundle string `yaml:"bundle,omitempty"`

	// Expect holds the expected fields, by JSON name. Subset match: fields
	// not listed are not checked.
	Expect map[string]any `yaml:"expect"`
}

// Assertion types.
const (
	AssertProgress  = "progress"
	AssertNode      = "node"
	AssertRepair    = "repair"
	AssertCloseGate = "close_gate"
	AssertOrder     = "order"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos surface as errors. A relative templates path is
// resolved against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if s.Templates != "" && !filepath.IsAbs(s.Templates) {
		s.Templates = filepath.Join(filepath.Dir(path), s.Templates)
	}
	return s, nil
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// EnginePolicy returns the scenario's policy over the defaults.
func (s *Scenario) EnginePolicy() engine.Policy {
	p := engine.DefaultPolicy()
	if s.Policy == nil {
		return p
	}
	if s.Policy.NodeCompleteRatio > 0 {
		p.NodeCompleteRatio = s.Policy.NodeCompleteRatio
	}
	if s.Policy.CloseTolerancePercent > 0 {
		p.CloseTolerancePercent = s.Policy.CloseTolerancePercent
	}
	if strategy, ok := engine.ParseProgressStrategy(s.Policy.Strategy); ok {
		p.Strategy = strategy
	}
	return p
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Order.ID == "" {
		return fmt.Errorf("order.id is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if s.Policy != nil {
		if _, ok := engine.ParseProgressStrategy(s.Policy.Strategy); !ok {
			return fmt.Errorf("policy.strategy: unknown strategy %q", s.Policy.Strategy)
		}
	}
	for i, step := range s.Steps {
		if step.Action() == "" {
			return fmt.Errorf("steps[%d]: exactly one action is required", i)
		}
		if step.Expect != nil {
			switch model.ReceiptStatus(step.Expect.Status) {
			case model.Accepted, model.Duplicate, model.Rejected:
			default:
				return fmt.Errorf("steps[%d].expect.status: unknown status %q", i, step.Expect.Status)
			}
		}
	}
	for i, a := range s.Assertions {
		switch a.Type {
		case AssertProgress, AssertCloseGate, AssertOrder:
		case AssertNode:
			if a.Node == "" {
				return fmt.Errorf("assertions[%d]: node is required for %s", i, a.Type)
			}
		case AssertRepair:
			if a.Bundle == "" {
				return fmt.Errorf("assertions[%d]: bundle is required for %s", i, a.Type)
			}
		default:
			return fmt.Errorf("assertions[%d]: unknown type %q", i, a.Type)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required", i)
		}
	}
	return nil
}
