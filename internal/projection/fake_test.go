package projection

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/roach88/seamline/internal/apperr"
	"github.com/roach88/seamline/internal/model"
)

// fakeSource is an in-memory Source with per-method failure injection.
type fakeSource struct {
	mu          sync.Mutex
	order       model.Order
	nodes       []model.WorkflowNode
	bundles     []model.CuttingBundle
	events      []model.ScanEvent
	records     []model.InspectionRecord
	procurement *model.ProcurementArrival

	fail      map[string]error
	pageCalls int
}

var errBoom = errors.New("connection reset")

func (f *fakeSource) failure(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fail[method]
}

func (f *fakeSource) GetOrder(_ context.Context, id string) (model.Order, error) {
	if err := f.failure("GetOrder"); err != nil {
		return model.Order{}, err
	}
	if id != f.order.ID {
		return model.Order{}, apperr.NotFound("order %s not found", id)
	}
	return f.order, nil
}

func (f *fakeSource) ListWorkflowNodes(context.Context, string) ([]model.WorkflowNode, error) {
	return f.nodes, f.failure("ListWorkflowNodes")
}

func (f *fakeSource) ListCuttingBundles(context.Context, string) ([]model.CuttingBundle, error) {
	return f.bundles, f.failure("ListCuttingBundles")
}

func (f *fakeSource) ListScanEvents(_ context.Context, _ string, page model.PageRequest) (model.ScanEventPage, error) {
	if err := f.failure("ListScanEvents"); err != nil {
		return model.ScanEventPage{}, err
	}
	f.mu.Lock()
	f.pageCalls++
	f.mu.Unlock()

	start := 0
	if page.Cursor != "" {
		start, _ = strconv.Atoi(page.Cursor)
	}
	end := min(start+page.Limit, len(f.events))
	out := model.ScanEventPage{Events: f.events[start:end]}
	if end < len(f.events) {
		out.NextCursor = strconv.Itoa(end)
	}
	return out, nil
}

func (f *fakeSource) ListInspectionRecords(context.Context, model.InspectionFilter) ([]model.InspectionRecord, error) {
	return f.records, f.failure("ListInspectionRecords")
}

func (f *fakeSource) GetProcurementArrival(context.Context, string) (*model.ProcurementArrival, error) {
	return f.procurement, f.failure("GetProcurementArrival")
}
