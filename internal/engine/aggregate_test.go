package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seamline/internal/model"
)

var t0 = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func scan(bundle, stageLabel, process string, qty int, minutes int) model.ScanEvent {
	return model.ScanEvent{
		ID:           bundle + stageLabel + process,
		OrderID:      "PO-1",
		BundleID:     bundle,
		StageLabel:   stageLabel,
		ProcessLabel: process,
		Quantity:     qty,
		Result:       model.ScanSuccess,
		OccurredAt:   t0.Add(time.Duration(minutes) * time.Minute),
	}
}

func bundles(qtys ...int) []model.CuttingBundle {
	out := make([]model.CuttingBundle, len(qtys))
	for i, q := range qtys {
		out[i] = model.CuttingBundle{ID: string(rune('a' + i)), OrderID: "PO-1", Quantity: q}
	}
	return out
}

func TestBundleMaxSum_TakesMaxPerBundle(t *testing.T) {
	events := []model.ScanEvent{
		scan("b1", "裁剪", "", 4, 0),
		scan("b1", "裁剪", "", 10, 1),
	}
	assert.Equal(t, 10, BundleMaxSum(events), "re-scans re-assert, not add")
}

func TestBundleMaxSum_LowerRescanDoesNotDecrease(t *testing.T) {
	events := []model.ScanEvent{
		scan("b1", "裁剪", "", 10, 0),
		scan("b1", "裁剪", "", 3, 1),
	}
	assert.Equal(t, 10, BundleMaxSum(events))
}

func TestBundleMaxSum_SumsLooseEvents(t *testing.T) {
	events := []model.ScanEvent{
		scan("", "车缝", "", 5, 0),
		scan("", "车缝", "", 7, 1),
		scan("b1", "车缝", "", 10, 2),
		scan("b2", "车缝", "", 20, 3),
	}
	assert.Equal(t, 42, BundleMaxSum(events))
}

func TestBundleMaxSum_Empty(t *testing.T) {
	assert.Equal(t, 0, BundleMaxSum(nil))
}

func TestGroupByProcess(t *testing.T) {
	groups := GroupByProcess([]model.ScanEvent{
		scan("b1", "后整", "剪线", 1, 0),
		scan("b1", "后整", " 剪线 ", 1, 0),
		scan("b1", "后整", "整烫", 1, 0),
		scan("b1", "后整", "", 1, 0),
	})
	require.Len(t, groups, 3)
	assert.Len(t, groups["剪线"], 2)
	assert.Len(t, groups["整烫"], 1)
	assert.Len(t, groups[""], 1)
}

func TestSubProcessDivisor(t *testing.T) {
	tests := []struct {
		name          string
		expected      int
		observed      int
		wantDivisor   int
		wantEstimated bool
	}{
		{"template count wins", 3, 1, 3, false},
		{"fallback to observed", 0, 2, 2, true},
		{"floor of one", 0, 0, 1, true},
		{"negative template ignored", -1, 2, 2, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, est := SubProcessDivisor(tt.expected, tt.observed)
			assert.Equal(t, tt.wantDivisor, d)
			assert.Equal(t, tt.wantEstimated, est)
		})
	}
}

func TestOrderTotal(t *testing.T) {
	order := model.Order{OrderQuantity: 500}
	assert.Equal(t, 60, OrderTotal(order, bundles(10, 20, 30)))
	assert.Equal(t, 500, OrderTotal(order, nil))
	assert.Equal(t, 500, OrderTotal(order, bundles(0)))
}

func TestAggregate_CuttingScenario(t *testing.T) {
	node := model.WorkflowNode{Name: "裁剪", SequenceIndex: 0}
	in := Input{
		Order:   model.Order{ID: "PO-1", OrderQuantity: 60},
		Nodes:   []model.WorkflowNode{node},
		Bundles: bundles(10, 20, 30),
		Events: []model.ScanEvent{
			scan("a", "裁剪", "", 4, 0),
			scan("a", "裁剪", "", 10, 1),
		},
	}

	stats := Aggregate(in)
	assert.Equal(t, 10, stats["裁剪"].CompletedQty, "10, not 14")
	assert.Equal(t, 17, stats["裁剪"].Percent)

	in.Events = append(in.Events,
		scan("b", "裁床", "", 20, 2),
		scan("c", "开裁", "", 30, 3),
	)
	stats = Aggregate(in)
	assert.Equal(t, 60, stats["裁剪"].CompletedQty)
	assert.Equal(t, 100, stats["裁剪"].Percent)
	assert.InDelta(t, 1.0, stats["裁剪"].Ratio, 1e-9)
	require.NotNil(t, stats["裁剪"].LastActivityAt)
	assert.Equal(t, t0.Add(3*time.Minute), *stats["裁剪"].LastActivityAt)
}

func TestAggregate_AveragesSubProcesses(t *testing.T) {
	node := model.WorkflowNode{Name: "后整", SubProcesses: 2}
	in := Input{
		Order:  model.Order{OrderQuantity: 100},
		Nodes:  []model.WorkflowNode{node},
		Events: []model.ScanEvent{scan("", "后整", "剪线", 100, 0)},
	}

	st := Aggregate(in)["后整"]
	assert.Equal(t, 50, st.CompletedQty)
	assert.Equal(t, 50, st.Percent)
	assert.Equal(t, 2, st.SubProcesses)
	assert.False(t, st.DivisorEstimated)
}

func TestAggregate_EstimatedDivisorIsFlagged(t *testing.T) {
	node := model.WorkflowNode{Name: "后整"}
	in := Input{
		Order:  model.Order{OrderQuantity: 100},
		Nodes:  []model.WorkflowNode{node},
		Events: []model.ScanEvent{scan("", "后整", "剪线", 100, 0)},
	}

	st := Aggregate(in)["后整"]
	assert.Equal(t, 100, st.Percent)
	assert.True(t, st.DivisorEstimated)

	// A second sub-process showing up drops the estimate: the documented
	// hazard of the observed-count fallback.
	in.Events = append(in.Events, scan("", "后整", "整烫", 10, 1))
	st = Aggregate(in)["后整"]
	assert.Equal(t, 55, st.Percent)
}

func TestAggregate_IgnoresFailuresAndZeroQuantities(t *testing.T) {
	failed := scan("a", "车缝", "", 10, 0)
	failed.Result = model.ScanFailure
	zero := scan("b", "车缝", "", 0, 0)

	st := Aggregate(Input{
		Order:  model.Order{OrderQuantity: 10},
		Nodes:  []model.WorkflowNode{{Name: "车缝"}},
		Events: []model.ScanEvent{failed, zero},
	})["车缝"]
	assert.Equal(t, 0, st.CompletedQty)
	assert.Equal(t, 0, st.MatchedEvents)
	assert.Nil(t, st.LastActivityAt)
}

func TestAggregate_PercentClamped(t *testing.T) {
	st := Aggregate(Input{
		Order:  model.Order{OrderQuantity: 10},
		Nodes:  []model.WorkflowNode{{Name: "车缝"}},
		Events: []model.ScanEvent{scan("", "车缝", "", 25, 0)},
	})["车缝"]
	assert.Equal(t, 100, st.Percent)
	assert.InDelta(t, 1.0, st.Ratio, 1e-9)
}

func TestAggregate_ZeroTotal(t *testing.T) {
	st := Aggregate(Input{
		Nodes:  []model.WorkflowNode{{Name: "车缝"}},
		Events: []model.ScanEvent{scan("", "车缝", "", 5, 0)},
	})["车缝"]
	assert.Equal(t, 5, st.CompletedQty)
	assert.Equal(t, 0, st.Percent)
}

func TestAggregate_ProcurementFallback(t *testing.T) {
	arrived := t0.Add(-24 * time.Hour)
	in := Input{
		Order:       model.Order{OrderNo: "PO-1", OrderQuantity: 200},
		Nodes:       []model.WorkflowNode{{Name: "物料采购"}, {Name: "裁剪", SequenceIndex: 1}},
		Procurement: &model.ProcurementArrival{OrderNo: "PO-1", ArrivedQuantity: 150, ArrivalDate: arrived},
	}

	st := Aggregate(in)["物料采购"]
	assert.True(t, st.FromProcurement)
	assert.Equal(t, 150, st.CompletedQty)
	assert.Equal(t, 75, st.Percent)
	require.NotNil(t, st.LastActivityAt)
	assert.Equal(t, arrived, *st.LastActivityAt)

	assert.False(t, Aggregate(in)["裁剪"].FromProcurement)
}

func TestAggregate_ProcurementScansWin(t *testing.T) {
	in := Input{
		Order:       model.Order{OrderQuantity: 100},
		Nodes:       []model.WorkflowNode{{Name: "采购"}},
		Events:      []model.ScanEvent{scan("", "采购", "", 40, 0)},
		Procurement: &model.ProcurementArrival{ArrivedQuantity: 90},
	}
	st := Aggregate(in)["采购"]
	assert.False(t, st.FromProcurement)
	assert.Equal(t, 40, st.CompletedQty)
}

func TestAggregate_PercentMonotonicAsEventsArrive(t *testing.T) {
	node := model.WorkflowNode{Name: "车缝"}
	feed := []model.ScanEvent{
		scan("a", "车缝", "", 5, 0),
		scan("b", "车缝", "", 8, 1),
		scan("a", "车缝", "", 2, 2),
		scan("", "车缝", "", 3, 3),
		scan("b", "车缝", "", 20, 4),
		scan("c", "缝制", "", 30, 5),
	}
	prev := 0
	for i := range feed {
		st := Aggregate(Input{
			Bundles: bundles(10, 20, 30),
			Nodes:   []model.WorkflowNode{node},
			Events:  feed[:i+1],
		})["车缝"]
		assert.GreaterOrEqual(t, st.Percent, prev, "after %d events", i+1)
		assert.GreaterOrEqual(t, st.Percent, 0)
		assert.LessOrEqual(t, st.Percent, 100)
		prev = st.Percent
	}
}

func TestOrdered_StableBySequence(t *testing.T) {
	nodes := []model.WorkflowNode{
		{Name: "c", SequenceIndex: 2},
		{Name: "a", SequenceIndex: 0},
		{Name: "b1", SequenceIndex: 1},
		{Name: "b2", SequenceIndex: 1},
	}
	got := Ordered(nodes)
	names := []string{got[0].Name, got[1].Name, got[2].Name, got[3].Name}
	assert.Equal(t, []string{"a", "b1", "b2", "c"}, names)
	assert.Equal(t, "c", nodes[0].Name, "input untouched")
}
