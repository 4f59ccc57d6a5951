package harness

import (
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/seamline/internal/model"
)

// Snapshot is the canonical form of a scenario result used for golden
// comparison. Generated ids, capture times and float ratios are left out so
// the snapshot only changes when behavior does.
func Snapshot(scenarioName string, result *Result) map[string]any {
	steps := make([]any, len(result.Steps))
	for i, s := range result.Steps {
		m := map[string]any{
			"index":  s.Index,
			"action": s.Action,
		}
		if s.Status != "" {
			m["status"] = s.Status
		}
		if s.ErrorKind != "" {
			m["error_kind"] = s.ErrorKind
		}
		steps[i] = m
	}

	p := result.Progress
	nodes := make([]any, len(p.Nodes))
	for i, n := range p.Nodes {
		m := map[string]any{
			"node":           n.Node,
			"completed_qty":  n.CompletedQty,
			"percent":        n.Percent,
			"matched_events": n.MatchedEvents,
			"sub_processes":  n.SubProcesses,
		}
		if n.DivisorEstimated {
			m["divisor_estimated"] = true
		}
		if n.FromProcurement {
			m["from_procurement"] = true
		}
		if n.LastActivityAt != nil {
			m["last_activity_at"] = n.LastActivityAt.UTC().Format(time.RFC3339)
		}
		nodes[i] = m
	}

	repairs := make([]any, len(p.Repairs))
	for i, r := range p.Repairs {
		repairs[i] = map[string]any{
			"bundle_id":    r.BundleID,
			"repair_pool":  r.RepairPool,
			"repaired_out": r.RepairedOut,
			"remaining":    r.Remaining,
		}
	}

	parents := make(map[string]any, len(p.ParentCompletedAt))
	for name, at := range p.ParentCompletedAt {
		parents[name] = at.UTC().Format(time.RFC3339)
	}

	estimated := make([]any, len(p.EstimatedNodes))
	for i, n := range p.EstimatedNodes {
		estimated[i] = n
	}

	return map[string]any{
		"scenario": scenarioName,
		"steps":    steps,
		"progress": map[string]any{
			"status":              string(p.Status),
			"percent":             p.Percent,
			"computed_percent":    p.ComputedPercent,
			"current_node":        p.CurrentNode,
			"order_total":         p.OrderTotal,
			"nodes":               nodes,
			"repairs":             repairs,
			"parent_completed_at": parents,
			"estimated_nodes":     estimated,
			"close": map[string]any{
				"can_close": p.Close.CanClose,
				"reason":    string(p.Close.Reason),
				"required":  p.Close.Required,
				"actual":    p.Close.Actual,
				"missing":   p.Close.Missing,
			},
		},
		"order": orderSnapshot(result.Order),
	}
}

func orderSnapshot(o model.Order) map[string]any {
	return map[string]any{
		"status":                        string(o.Status),
		"current_progress_percent":      o.CurrentProgressPercent,
		"current_process_name":          o.CurrentProcessName,
		"cut_quantity":                  o.CutQuantity,
		"warehoused_qualified_quantity": o.WarehousedQualifiedQuantity,
		"completed_quantity":            o.CompletedQuantity,
	}
}

// MarshalSnapshot renders a result as canonical JSON.
func MarshalSnapshot(scenarioName string, result *Result) ([]byte, error) {
	return model.MarshalCanonical(Snapshot(scenarioName, result))
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}

