package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/seamline/internal/ident"
	"github.com/roach88/seamline/internal/model"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// createTestStore creates a new store in a temp dir with a fixed clock and
// predictable record ids.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	ids := make([]string, 100)
	for i := range ids {
		ids[i] = "insp-" + string(rune('A'+i/26)) + string(rune('a'+i%26))
	}
	s, err := Open(path,
		WithClock(func() time.Time { return testNow }),
		WithIDGenerator(ident.NewSequence(ids...)),
	)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedOrder creates order PO-1 with bundles b1..bN of the given quantities.
func seedOrder(t *testing.T, s *Store, qtys ...int) model.Order {
	t.Helper()
	ctx := context.Background()
	o := model.Order{ID: "PO-1", OrderNo: "NO-1", StyleNo: "ST-001", OrderQuantity: 100}
	require.NoError(t, s.PutOrder(ctx, o))

	bundles := make([]model.CuttingBundle, len(qtys))
	for i, q := range qtys {
		bundles[i] = model.CuttingBundle{
			ID:       "b" + string(rune('1'+i)),
			OrderID:  o.ID,
			BundleNo: i + 1,
			Quantity: q,
		}
	}
	require.NoError(t, s.PutCuttingBundles(ctx, bundles))
	return o
}

func scanSub(bundle, stage string, qty int) model.ScanSubmission {
	return model.ScanSubmission{
		OrderID:    "PO-1",
		BundleID:   bundle,
		StageLabel: stage,
		Quantity:   qty,
		Result:     model.ScanSuccess,
		OccurredAt: testNow,
		OperatorID: "op-7",
	}
}
