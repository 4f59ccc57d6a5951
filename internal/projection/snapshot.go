package projection

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/seamline/internal/apperr"
	"github.com/roach88/seamline/internal/model"
)

// Source is the read side of the external store.
type Source interface {
	GetOrder(ctx context.Context, id string) (model.Order, error)
	ListWorkflowNodes(ctx context.Context, orderID string) ([]model.WorkflowNode, error)
	ListCuttingBundles(ctx context.Context, orderID string) ([]model.CuttingBundle, error)
	ListScanEvents(ctx context.Context, orderID string, page model.PageRequest) (model.ScanEventPage, error)
	ListInspectionRecords(ctx context.Context, filter model.InspectionFilter) ([]model.InspectionRecord, error)
	GetProcurementArrival(ctx context.Context, orderNo string) (*model.ProcurementArrival, error)
}

// Snapshot is every input for one order, captured together.
type Snapshot struct {
	Order       model.Order
	Nodes       []model.WorkflowNode
	Bundles     []model.CuttingBundle
	Events      []model.ScanEvent
	Records     []model.InspectionRecord
	Procurement *model.ProcurementArrival
	CapturedAt  time.Time
}

// Loader fetches snapshots from a Source.
type Loader struct {
	src      Source
	pageSize int
	now      func() time.Time
}

// NewLoader creates a Loader. pageSize <= 0 uses model.DefaultPageSize.
func NewLoader(src Source, pageSize int) *Loader {
	if pageSize <= 0 {
		pageSize = model.DefaultPageSize
	}
	return &Loader{src: src, pageSize: pageSize, now: time.Now}
}

// Load captures a snapshot of one order. The order itself is read first
// (its number keys the procurement lookup); the remaining inputs are
// fetched concurrently. A missing order is returned as NotFound; any other
// failure is wrapped as TransientFetch and no partial snapshot is returned.
func (l *Loader) Load(ctx context.Context, orderID string) (Snapshot, error) {
	const op = "projection.Load"
	order, err := l.src.GetOrder(ctx, orderID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return Snapshot{}, err
		}
		return Snapshot{}, apperr.TransientFetch("load order", err).WithOp(op)
	}

	snap := Snapshot{Order: order}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		nodes, err := l.src.ListWorkflowNodes(gctx, orderID)
		if err != nil {
			return apperr.TransientFetch("load workflow nodes", err).WithOp(op)
		}
		snap.Nodes = nodes
		return nil
	})
	g.Go(func() error {
		bundles, err := l.src.ListCuttingBundles(gctx, orderID)
		if err != nil {
			return apperr.TransientFetch("load cutting bundles", err).WithOp(op)
		}
		snap.Bundles = bundles
		return nil
	})
	g.Go(func() error {
		events, err := l.allEvents(gctx, orderID)
		if err != nil {
			return apperr.TransientFetch("load scan events", err).WithOp(op)
		}
		snap.Events = events
		return nil
	})
	g.Go(func() error {
		records, err := l.src.ListInspectionRecords(gctx, model.InspectionFilter{OrderID: orderID})
		if err != nil {
			return apperr.TransientFetch("load inspection records", err).WithOp(op)
		}
		snap.Records = records
		return nil
	})
	g.Go(func() error {
		arrival, err := l.src.GetProcurementArrival(gctx, order.OrderNo)
		if err != nil {
			return apperr.TransientFetch("load procurement arrival", err).WithOp(op)
		}
		snap.Procurement = arrival
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	snap.CapturedAt = l.now()
	return snap, nil
}

// allEvents follows the event log's pagination to the end.
func (l *Loader) allEvents(ctx context.Context, orderID string) ([]model.ScanEvent, error) {
	var (
		events []model.ScanEvent
		cursor string
	)
	for {
		page, err := l.src.ListScanEvents(ctx, orderID, model.PageRequest{Cursor: cursor, Limit: l.pageSize})
		if err != nil {
			return nil, err
		}
		events = append(events, page.Events...)
		if page.NextCursor == "" {
			return events, nil
		}
		if page.NextCursor == cursor {
			return nil, apperr.Internal("scan event cursor did not advance")
		}
		cursor = page.NextCursor
	}
}
