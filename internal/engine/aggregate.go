package engine

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/roach88/seamline/internal/model"
	"github.com/roach88/seamline/internal/stage"
)

// Input is one consistent snapshot of everything aggregation needs.
type Input struct {
	Order   model.Order
	Nodes   []model.WorkflowNode
	Events  []model.ScanEvent
	Bundles []model.CuttingBundle

	// Procurement is the arrival read model, nil when none exists.
	Procurement *model.ProcurementArrival
}

// Stats maps node name to its aggregated completion.
type Stats map[string]model.NodeStats

// BundleMaxSum reduces one sub-process group to a completed quantity.
//
// Repeated scans of the same bundle re-assert its completed quantity, so
// each bundle contributes the maximum it ever reported. Events without a
// bundle are aggregate reports and are summed.
func BundleMaxSum(events []model.ScanEvent) int {
	maxByBundle := make(map[string]int)
	loose := 0
	for _, ev := range events {
		if ev.BundleID == "" {
			loose += ev.Quantity
			continue
		}
		if ev.Quantity > maxByBundle[ev.BundleID] {
			maxByBundle[ev.BundleID] = ev.Quantity
		}
	}
	total := loose
	for _, q := range maxByBundle {
		total += q
	}
	return total
}

// GroupByProcess splits events by trimmed process label. Events with an empty
// label share the "" group.
func GroupByProcess(events []model.ScanEvent) map[string][]model.ScanEvent {
	groups := make(map[string][]model.ScanEvent)
	for _, ev := range events {
		key := strings.TrimSpace(ev.ProcessLabel)
		groups[key] = append(groups[key], ev)
	}
	return groups
}

// SubProcessDivisor picks the divisor for a node's raw total. A positive
// template count wins; otherwise the observed group count is used with a
// floor of 1 and estimated is true.
//
// The observed fallback under-counts when a sub-process has not been
// scanned yet, so a node with one of two sub-processes finished reads 100%
// until the second one appears. Callers should surface estimated.
func SubProcessDivisor(expected, observed int) (divisor int, estimated bool) {
	if expected > 0 {
		return expected, false
	}
	if observed < 1 {
		observed = 1
	}
	return observed, true
}

// OrderTotal is the quantity percentages are measured against: the sum of
// cutting bundle quantities, or the nominal order quantity when no bundles
// exist.
func OrderTotal(order model.Order, bundles []model.CuttingBundle) int {
	total := 0
	for _, b := range bundles {
		if b.Quantity > 0 {
			total += b.Quantity
		}
	}
	if total > 0 {
		return total
	}
	return order.OrderQuantity
}

// ClampPercent bounds a percentage to [0, 100].
func ClampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// percentOf returns round(completed/total*100) clamped, and the raw ratio
// capped at 1.
func percentOf(completed, total int) (int, float64) {
	if total <= 0 || completed <= 0 {
		return 0, 0
	}
	ratio := float64(completed) / float64(total)
	pct := ClampPercent(int(math.Round(ratio * 100)))
	if ratio > 1 {
		ratio = 1
	}
	return pct, ratio
}

// AggregateNode computes the completion of a single node. The divisor comes
// from node.SubProcesses when the template declared one.
func AggregateNode(node model.WorkflowNode, events []model.ScanEvent, total int) model.NodeStats {
	matched := SelectEvents(node, events)
	groups := GroupByProcess(matched)

	raw := 0
	for _, g := range groups {
		raw += BundleMaxSum(g)
	}
	divisor, estimated := SubProcessDivisor(node.SubProcesses, len(groups))
	completed := raw / divisor

	stats := model.NodeStats{
		Node:             node.Name,
		CompletedQty:     completed,
		MatchedEvents:    len(matched),
		SubProcesses:     divisor,
		DivisorEstimated: estimated,
		LastActivityAt:   lastActivity(matched),
	}
	stats.Percent, stats.Ratio = percentOf(completed, total)
	return stats
}

// Aggregate computes per-node completion for one order snapshot.
func Aggregate(in Input) Stats {
	total := OrderTotal(in.Order, in.Bundles)
	out := make(Stats, len(in.Nodes))
	for _, node := range in.Nodes {
		st := AggregateNode(node, in.Events, total)
		if st.MatchedEvents == 0 && in.Procurement != nil && stage.IsProcurement(node.Name) {
			st = procurementStats(node, *in.Procurement, total)
		}
		out[node.Name] = st
	}
	return out
}

// procurementStats reports a scan-less procurement node from material
// arrivals.
func procurementStats(node model.WorkflowNode, arrival model.ProcurementArrival, total int) model.NodeStats {
	st := model.NodeStats{
		Node:            node.Name,
		CompletedQty:    max(arrival.ArrivedQuantity, 0),
		SubProcesses:    1,
		FromProcurement: true,
	}
	if !arrival.ArrivalDate.IsZero() {
		at := arrival.ArrivalDate
		st.LastActivityAt = &at
	}
	st.Percent, st.Ratio = percentOf(st.CompletedQty, total)
	return st
}

func lastActivity(events []model.ScanEvent) *time.Time {
	var latest time.Time
	for _, ev := range events {
		if ev.OccurredAt.After(latest) {
			latest = ev.OccurredAt
		}
	}
	if latest.IsZero() {
		return nil
	}
	return &latest
}

// Ordered returns a copy of nodes sorted by SequenceIndex. Ties keep input
// order.
func Ordered(nodes []model.WorkflowNode) []model.WorkflowNode {
	out := make([]model.WorkflowNode, len(nodes))
	copy(out, nodes)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SequenceIndex < out[j].SequenceIndex
	})
	return out
}
