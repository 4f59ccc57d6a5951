package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seamline/internal/model"
)

func pipeline(names ...string) []model.WorkflowNode {
	nodes := make([]model.WorkflowNode, len(names))
	for i, n := range names {
		nodes[i] = model.WorkflowNode{Name: n, SequenceIndex: i}
	}
	return nodes
}

func ratios(nodes []model.WorkflowNode, rs ...float64) Stats {
	s := make(Stats)
	for i, r := range rs {
		s[nodes[i].Name] = model.NodeStats{Node: nodes[i].Name, Ratio: r}
	}
	return s
}

func TestComputeOrderProgress_StopsAtFirstIncomplete(t *testing.T) {
	nodes := pipeline("裁剪", "车缝", "质检", "包装")
	stats := ratios(nodes, 1.0, 0.5, 1.0, 1.0)
	assert.Equal(t, 38, ComputeOrderProgress(nodes, stats, DefaultPolicy()), "25 + 12.5")
}

func TestComputeOrderProgress_ThresholdCountsAsComplete(t *testing.T) {
	nodes := pipeline("裁剪", "车缝")
	stats := ratios(nodes, 0.98, 0.0)
	assert.Equal(t, 50, ComputeOrderProgress(nodes, stats, DefaultPolicy()))

	stats = ratios(nodes, 0.9, 1.0)
	assert.Equal(t, 45, ComputeOrderProgress(nodes, stats, DefaultPolicy()), "below threshold ends the walk")
}

func TestComputeOrderProgress_AllComplete(t *testing.T) {
	nodes := pipeline("裁剪", "车缝", "质检")
	stats := ratios(nodes, 1, 1, 1)
	assert.Equal(t, 100, ComputeOrderProgress(nodes, stats, DefaultPolicy()))
}

func TestComputeOrderProgress_Additive(t *testing.T) {
	nodes := pipeline("裁剪", "车缝", "质检", "包装")
	stats := ratios(nodes, 1.0, 0.5, 1.0, 1.0)
	p := DefaultPolicy()
	p.Strategy = Additive
	assert.Equal(t, 88, ComputeOrderProgress(nodes, stats, p))
}

func TestComputeOrderProgress_UsesSequenceOrder(t *testing.T) {
	nodes := []model.WorkflowNode{
		{Name: "车缝", SequenceIndex: 1},
		{Name: "裁剪", SequenceIndex: 0},
	}
	stats := Stats{
		"裁剪": {Ratio: 0},
		"车缝": {Ratio: 1},
	}
	assert.Equal(t, 0, ComputeOrderProgress(nodes, stats, DefaultPolicy()))
}

func TestComputeOrderProgress_EmptyAndMissing(t *testing.T) {
	assert.Equal(t, 0, ComputeOrderProgress(nil, nil, DefaultPolicy()))
	assert.Equal(t, 0, ComputeOrderProgress(pipeline("a"), Stats{}, Policy{}))
}

func TestNodeIndexFromPercent(t *testing.T) {
	nodes := pipeline("a", "b", "c", "d", "e")
	assert.Equal(t, 0, NodeIndexFromPercent(nodes, 0))
	assert.Equal(t, 2, NodeIndexFromPercent(nodes, 50))
	assert.Equal(t, 4, NodeIndexFromPercent(nodes, 100))
	assert.Equal(t, 4, NodeIndexFromPercent(nodes, 150))
	assert.Equal(t, 0, NodeIndexFromPercent(nodes, -5))
	assert.Equal(t, 0, NodeIndexFromPercent(pipeline("a"), 80))
	assert.Equal(t, 0, NodeIndexFromPercent(nil, 80))
}

func TestPercentFromNodeIndex(t *testing.T) {
	nodes := pipeline("a", "b", "c", "d")
	assert.Equal(t, 0, PercentFromNodeIndex(nodes, 0))
	assert.Equal(t, 33, PercentFromNodeIndex(nodes, 1))
	assert.Equal(t, 67, PercentFromNodeIndex(nodes, 2))
	assert.Equal(t, 100, PercentFromNodeIndex(nodes, 3))
	assert.Equal(t, 100, PercentFromNodeIndex(nodes, 9))
	assert.Equal(t, 0, PercentFromNodeIndex(pipeline("a"), 0))
}

func TestNodeIndexRoundTrip(t *testing.T) {
	for n := 2; n <= 30; n++ {
		nodes := make([]model.WorkflowNode, n)
		for i := 0; i < n; i++ {
			assert.Equal(t, i, NodeIndexFromPercent(nodes, PercentFromNodeIndex(nodes, i)), "n=%d i=%d", n, i)
		}
	}
}

func TestCurrentNode(t *testing.T) {
	nodes := pipeline("裁剪", "车缝", "质检", "包装")

	assert.Equal(t, 1, CurrentNode(nodes, model.Order{}, 40))
	assert.Equal(t, 2, CurrentNode(nodes, model.Order{CurrentProcessName: "验货"}, 10), "alias of 质检")
	assert.Equal(t, 3, CurrentNode(nodes, model.Order{CurrentProcessName: "包装"}, 0))
	assert.Equal(t, 0, CurrentNode(nodes, model.Order{CurrentProcessName: "绣花"}, 0), "unknown falls back to percent")
	assert.Equal(t, -1, CurrentNode(nil, model.Order{}, 50))
}

func TestParentCompletionTime(t *testing.T) {
	nodes := []model.WorkflowNode{
		{Name: "剪线", ParentStage: "后整", SequenceIndex: 0},
		{Name: "整烫", ParentStage: "后整", SequenceIndex: 1},
		{Name: "质检", SequenceIndex: 2},
	}
	early := t0
	late := t0.Add(2 * time.Hour)
	stats := Stats{
		"剪线": {Ratio: 1, LastActivityAt: &late},
		"整烫": {Ratio: 0.99, LastActivityAt: &early},
	}

	at, ok := ParentCompletionTime(nodes, stats, "后整", DefaultPolicy())
	require.True(t, ok)
	assert.Equal(t, late, at)

	stats["整烫"] = model.NodeStats{Ratio: 0.5, LastActivityAt: &early}
	_, ok = ParentCompletionTime(nodes, stats, "后整", DefaultPolicy())
	assert.False(t, ok)

	_, ok = ParentCompletionTime(nodes, stats, "车缝", DefaultPolicy())
	assert.False(t, ok, "no children")
}

func TestParentCompletionTime_NodeNamedAsParentCounts(t *testing.T) {
	nodes := []model.WorkflowNode{
		{Name: "采购", SequenceIndex: 0},
		{Name: "面料到货", ParentStage: "采购", SequenceIndex: 1},
	}
	at := t0
	stats := Stats{
		"采购":   {Ratio: 0.2, LastActivityAt: &at},
		"面料到货": {Ratio: 1, LastActivityAt: &at},
	}

	_, ok := ParentCompletionTime(nodes, stats, "采购", DefaultPolicy())
	assert.False(t, ok, "unfinished node named as the parent holds it open")

	stats["采购"] = model.NodeStats{Ratio: 1, LastActivityAt: &at}
	got, ok := ParentCompletionTime(nodes, stats, "采购", DefaultPolicy())
	require.True(t, ok)
	assert.Equal(t, t0, got)
}

func TestPolicyNormalized(t *testing.T) {
	p := Policy{}.normalized()
	assert.Equal(t, DefaultNodeCompleteRatio, p.NodeCompleteRatio)
	assert.Equal(t, DefaultCloseTolerancePercent, p.CloseTolerancePercent)

	s, ok := ParseProgressStrategy("additive")
	assert.True(t, ok)
	assert.Equal(t, Additive, s)
	_, ok = ParseProgressStrategy("bogus")
	assert.False(t, ok)
	assert.Equal(t, "sequential", Sequential.String())
}
