package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seamline/internal/apperr"
	"github.com/roach88/seamline/internal/model"
)

func TestSubmitInspection_DefectThenRework(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedOrder(t, s, 20)

	receipt, err := s.SubmitInspection(ctx, model.InspectionSubmission{
		OrderID: "PO-1", BundleID: "b1", InspectedQuantity: 20, UnqualifiedQuantity: 5,
		DefectCategory: "跳线", HandlingMethod: "返修",
	})
	require.NoError(t, err)
	assert.Equal(t, model.Accepted, receipt.Status)
	assert.Equal(t, "insp-Aa", receipt.ID)

	b, err := s.GetCuttingBundle(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, model.BundleUnqualified, b.Status)

	// Blocked bundles cannot join a batch.
	_, err = s.SubmitBatchInspection(ctx, model.BatchInspection{OrderID: "PO-1", Items: []model.BatchItem{{BundleID: "b1"}}})
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))

	// Partial rework keeps the bundle blocked.
	_, err = s.SubmitInspection(ctx, model.InspectionSubmission{
		OrderID: "PO-1", BundleID: "b1", InspectedQuantity: 2, RepairRemark: "重新车线",
	})
	require.NoError(t, err)
	b, _ = s.GetCuttingBundle(ctx, "b1")
	assert.Equal(t, model.BundleUnqualified, b.Status)

	// Over the remaining pool is rejected.
	receipt, err = s.SubmitInspection(ctx, model.InspectionSubmission{
		OrderID: "PO-1", BundleID: "b1", InspectedQuantity: 4, RepairRemark: "重新车线",
	})
	require.Error(t, err)
	assert.Equal(t, model.Rejected, receipt.Status)
	assert.True(t, apperr.IsValidation(err))

	_, err = s.SubmitInspection(ctx, model.InspectionSubmission{
		OrderID: "PO-1", BundleID: "b1", InspectedQuantity: 3, RepairRemark: "重新车线",
	})
	require.NoError(t, err)
	b, _ = s.GetCuttingBundle(ctx, "b1")
	assert.Equal(t, model.BundleRepaired, b.Status)

	records, err := s.ListInspectionRecords(ctx, model.InspectionFilter{BundleID: "b1"})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, 15, records[0].QualifiedQuantity)
	assert.Equal(t, 0, records[2].UnqualifiedQuantity)
	assert.True(t, records[0].CreatedAt.Equal(testNow))

	o, err := s.GetOrder(ctx, "PO-1")
	require.NoError(t, err)
	assert.Equal(t, 20, o.WarehousedQualifiedQuantity)
}

func TestSubmitInspection_NotFoundAndFrozen(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedOrder(t, s, 20)

	_, err := s.SubmitInspection(ctx, model.InspectionSubmission{OrderID: "PO-1", BundleID: "zz", InspectedQuantity: 1})
	assert.True(t, apperr.IsNotFound(err))

	require.NoError(t, s.PutOrder(ctx, model.Order{ID: "PO-1", OrderNo: "NO-1", OrderQuantity: 100, Status: model.OrderCompleted}))
	receipt, err := s.SubmitInspection(ctx, model.InspectionSubmission{OrderID: "PO-1", BundleID: "b1", InspectedQuantity: 1})
	require.Error(t, err)
	assert.Equal(t, model.Rejected, receipt.Status)
	assert.Equal(t, apperr.KindConflict, apperr.GetKind(err))
}

func TestSubmitBatchInspection_AllOrNothing(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedOrder(t, s, 10, 20)

	_, err := s.SubmitBatchInspection(ctx, model.BatchInspection{
		OrderID: "PO-1",
		Items:   []model.BatchItem{{BundleID: "b1"}, {BundleID: "b2", Quantity: 21}},
	})
	require.Error(t, err)

	records, err := s.ListInspectionRecords(ctx, model.InspectionFilter{OrderID: "PO-1"})
	require.NoError(t, err)
	assert.Empty(t, records, "failed batch writes nothing")

	receipt, err := s.SubmitBatchInspection(ctx, model.BatchInspection{
		OrderID: "PO-1", Warehouse: "A1",
		Items: []model.BatchItem{{BundleID: "b1"}, {BundleID: "b2"}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.Accepted, receipt.Status)

	records, err = s.ListInspectionRecords(ctx, model.InspectionFilter{OrderID: "PO-1"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "A1", records[1].Warehouse)

	bundles, err := s.ListCuttingBundles(ctx, "PO-1")
	require.NoError(t, err)
	for _, b := range bundles {
		assert.Equal(t, model.BundleQualified, b.Status)
	}
}

func TestListInspectionRecords_RequiresFilter(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ListInspectionRecords(context.Background(), model.InspectionFilter{})
	assert.True(t, apperr.IsValidation(err))
}

func TestSubmitInspection_RepeatInspectionRejected(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedOrder(t, s, 10)

	_, err := s.SubmitInspection(ctx, model.InspectionSubmission{OrderID: "PO-1", BundleID: "b1", InspectedQuantity: 10})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		receipt, err := s.SubmitInspection(ctx, model.InspectionSubmission{OrderID: "PO-1", BundleID: "b1", InspectedQuantity: 10})
		require.Error(t, err)
		assert.Equal(t, model.Rejected, receipt.Status)
		assert.True(t, apperr.IsValidation(err))
	}

	receipt, err := s.SubmitBatchInspection(ctx, model.BatchInspection{OrderID: "PO-1", Items: []model.BatchItem{{BundleID: "b1"}}})
	require.Error(t, err)
	assert.Equal(t, model.Rejected, receipt.Status)
	assert.True(t, apperr.IsValidation(err))

	records, err := s.ListInspectionRecords(ctx, model.InspectionFilter{BundleID: "b1"})
	require.NoError(t, err)
	assert.Len(t, records, 1)

	o, err := s.GetOrder(ctx, "PO-1")
	require.NoError(t, err)
	assert.Equal(t, 10, o.WarehousedQualifiedQuantity)
}

func TestSubmitBatchInspection_AfterPartialSingle(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedOrder(t, s, 10)

	_, err := s.SubmitInspection(ctx, model.InspectionSubmission{OrderID: "PO-1", BundleID: "b1", InspectedQuantity: 4})
	require.NoError(t, err)

	_, err = s.SubmitBatchInspection(ctx, model.BatchInspection{OrderID: "PO-1", Items: []model.BatchItem{{BundleID: "b1"}}})
	require.NoError(t, err)

	o, err := s.GetOrder(ctx, "PO-1")
	require.NoError(t, err)
	assert.Equal(t, 10, o.WarehousedQualifiedQuantity)
}
