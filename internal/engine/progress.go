package engine

import (
	"math"
	"strings"
	"time"

	"github.com/roach88/seamline/internal/model"
	"github.com/roach88/seamline/internal/stage"
)

// ComputeOrderProgress reduces node statistics to an order percentage.
//
// Nodes are visited in sequence order with equal weight. Under Sequential a
// node at or above the completion ratio adds its full weight; the first node
// below it adds weight*ratio and ends the walk. Additive sums every node's
// weighted ratio.
func ComputeOrderProgress(nodes []model.WorkflowNode, stats Stats, p Policy) int {
	if len(nodes) == 0 {
		return 0
	}
	p = p.normalized()
	weight := 100.0 / float64(len(nodes))
	sum := 0.0
	for _, node := range Ordered(nodes) {
		ratio := stats[node.Name].Ratio
		if ratio >= p.NodeCompleteRatio {
			sum += weight
			continue
		}
		sum += weight * ratio
		if p.Strategy == Sequential {
			break
		}
	}
	return ClampPercent(int(math.Round(sum)))
}

// NodeIndexFromPercent maps an order percentage to a node position:
// round(percent/100*(n-1)) clamped to [0, n-1].
func NodeIndexFromPercent(nodes []model.WorkflowNode, percent int) int {
	n := len(nodes)
	if n <= 1 {
		return 0
	}
	idx := int(math.Round(float64(ClampPercent(percent)) / 100 * float64(n-1)))
	return min(max(idx, 0), n-1)
}

// PercentFromNodeIndex is the inverse of NodeIndexFromPercent:
// round(index/(n-1)*100).
func PercentFromNodeIndex(nodes []model.WorkflowNode, index int) int {
	n := len(nodes)
	if n <= 1 {
		return 0
	}
	index = min(max(index, 0), n-1)
	return ClampPercent(int(math.Round(float64(index) / float64(n-1) * 100)))
}

// CurrentNode returns the index (in sequence order) of the node an order is
// working on. An explicit process name on the order wins when it names a
// pipeline node; otherwise the index is derived from percent. Returns -1
// for an empty pipeline.
func CurrentNode(nodes []model.WorkflowNode, order model.Order, percent int) int {
	if len(nodes) == 0 {
		return -1
	}
	ordered := Ordered(nodes)
	if name := strings.TrimSpace(order.CurrentProcessName); name != "" {
		want := stage.Canonicalize(name)
		for i, node := range ordered {
			if node.Name == name || stage.Canonicalize(node.Name) == want {
				return i
			}
		}
	}
	return NodeIndexFromPercent(ordered, percent)
}

// ParentCompletionTime returns when a parent stage finished: the latest
// activity among its child nodes, once every child has reached the
// completion ratio. A node is a child when its parent stage or its own name
// matches the parent. ok is false if the parent has no children or any child
// is unfinished.
func ParentCompletionTime(nodes []model.WorkflowNode, stats Stats, parent string, p Policy) (at time.Time, ok bool) {
	p = p.normalized()
	children := 0
	for _, node := range nodes {
		if !isChildOf(node, parent) {
			continue
		}
		children++
		st := stats[node.Name]
		if st.Ratio < p.NodeCompleteRatio {
			return time.Time{}, false
		}
		if st.LastActivityAt != nil && st.LastActivityAt.After(at) {
			at = *st.LastActivityAt
		}
	}
	if children == 0 {
		return time.Time{}, false
	}
	return at, true
}

func isChildOf(node model.WorkflowNode, parent string) bool {
	if node.ParentStage != "" && stage.Match(node.ParentStage, parent) {
		return true
	}
	return stage.Match(node.Name, parent)
}
