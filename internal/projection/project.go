package projection

import (
	"time"

	"github.com/roach88/seamline/internal/engine"
	"github.com/roach88/seamline/internal/gate"
	"github.com/roach88/seamline/internal/model"
	"github.com/roach88/seamline/internal/quality"
	"github.com/roach88/seamline/internal/stage"
)

// NodeResolver completes or supplies an order's workflow nodes from its
// style template. template.Catalog satisfies it.
type NodeResolver interface {
	Resolve(styleNo string) []model.WorkflowNode
	Fill(styleNo string, nodes []model.WorkflowNode) []model.WorkflowNode
}

// Progress is the read model of one order.
type Progress struct {
	OrderID string            `json:"order_id"`
	OrderNo string            `json:"order_no"`
	Status  model.OrderStatus `json:"status"`

	// Percent is what callers display: the computed value, never below the
	// stored one, and the stored value for completed orders.
	Percent int `json:"percent"`
	// ComputedPercent is the value derived from this snapshot alone.
	ComputedPercent int `json:"computed_percent"`

	CurrentNode      string `json:"current_node,omitempty"`
	CurrentNodeIndex int    `json:"current_node_index"`

	OrderTotal int               `json:"order_total"`
	Nodes      []model.NodeStats `json:"nodes"`

	// ParentCompletedAt maps a parent stage to when its last child
	// finished. Stages with unfinished children are absent.
	ParentCompletedAt map[string]time.Time `json:"parent_completed_at,omitempty"`

	// EstimatedNodes lists nodes whose sub-process divisor was inferred
	// from observed scans rather than taken from the template.
	EstimatedNodes []string `json:"estimated_nodes,omitempty"`

	Repairs []model.RepairStats `json:"repairs"`
	Close   gate.Decision       `json:"close"`

	CapturedAt time.Time `json:"captured_at"`
}

// Stats returns the node statistics keyed by node name.
func (p Progress) Stats() engine.Stats {
	s := make(engine.Stats, len(p.Nodes))
	for _, n := range p.Nodes {
		s[n.Node] = n
	}
	return s
}

// Project reduces a snapshot to its read model. resolver may be nil, in
// which case stored nodes are used as they are.
func Project(snap Snapshot, resolver NodeResolver, policy engine.Policy) Progress {
	nodes := progressNodes(snap, resolver)
	stats := engine.Aggregate(engine.Input{
		Order:       snap.Order,
		Nodes:       nodes,
		Events:      snap.Events,
		Bundles:     snap.Bundles,
		Procurement: snap.Procurement,
	})

	p := Progress{
		OrderID:    snap.Order.ID,
		OrderNo:    snap.Order.OrderNo,
		Status:     snap.Order.Status,
		OrderTotal: engine.OrderTotal(snap.Order, snap.Bundles),
		Nodes:      make([]model.NodeStats, 0, len(nodes)),
		Repairs:    make([]model.RepairStats, 0, len(snap.Bundles)),
		CapturedAt: snap.CapturedAt,
	}
	for _, n := range nodes {
		st := stats[n.Name]
		p.Nodes = append(p.Nodes, st)
		if st.DivisorEstimated && st.MatchedEvents > 0 {
			p.EstimatedNodes = append(p.EstimatedNodes, n.Name)
		}
	}

	p.ComputedPercent = engine.ComputeOrderProgress(nodes, stats, policy)
	p.Percent = max(p.ComputedPercent, snap.Order.CurrentProgressPercent)
	if snap.Order.Frozen() {
		p.Percent = snap.Order.CurrentProgressPercent
	}
	p.Percent = engine.ClampPercent(p.Percent)

	p.CurrentNodeIndex = engine.CurrentNode(nodes, snap.Order, p.Percent)
	if p.CurrentNodeIndex >= 0 {
		p.CurrentNode = nodes[p.CurrentNodeIndex].Name
	}

	for _, parent := range parentStages(nodes) {
		if at, ok := engine.ParentCompletionTime(nodes, stats, parent, policy); ok {
			if p.ParentCompletedAt == nil {
				p.ParentCompletedAt = make(map[string]time.Time)
			}
			p.ParentCompletedAt[parent] = at
		}
	}

	repairs := quality.ReconcileAll(snap.Bundles, snap.Records)
	for _, b := range snap.Bundles {
		p.Repairs = append(p.Repairs, repairs[b.ID])
	}

	tolerance := policy.CloseTolerancePercent
	if tolerance <= 0 {
		tolerance = gate.DefaultTolerancePercent
	}
	p.Close = gate.Evaluate(snap.Order, tolerance)
	return p
}

// progressNodes picks the pipeline to measure: the stored snapshot filled
// from the template, or the template itself when nothing is stored.
// Shipment nodes never count. The result is in sequence order.
func progressNodes(snap Snapshot, resolver NodeResolver) []model.WorkflowNode {
	var nodes []model.WorkflowNode
	switch {
	case resolver == nil:
		for _, n := range snap.Nodes {
			if !stage.IsShipment(n.Name) {
				nodes = append(nodes, n)
			}
		}
	case len(snap.Nodes) == 0:
		nodes = resolver.Resolve(snap.Order.StyleNo)
	default:
		nodes = resolver.Fill(snap.Order.StyleNo, snap.Nodes)
	}
	return engine.Ordered(nodes)
}

// parentStages lists distinct parent stages in first-seen order.
func parentStages(nodes []model.WorkflowNode) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, n := range nodes {
		if n.ParentStage == "" {
			continue
		}
		if _, ok := seen[n.ParentStage]; ok {
			continue
		}
		seen[n.ParentStage] = struct{}{}
		out = append(out, n.ParentStage)
	}
	return out
}
