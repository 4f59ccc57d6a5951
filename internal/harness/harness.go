package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/seamline/internal/apperr"
	"github.com/roach88/seamline/internal/cache"
	"github.com/roach88/seamline/internal/engine"
	"github.com/roach88/seamline/internal/model"
	"github.com/roach88/seamline/internal/projection"
	"github.com/roach88/seamline/internal/refresh"
	"github.com/roach88/seamline/internal/store"
	"github.com/roach88/seamline/internal/template"
	"github.com/roach88/seamline/internal/testutil"
)

// DefaultStart is the clock start for scenarios that do not set one.
var DefaultStart = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

// scanPageSize is small so every scenario exercises event pagination.
const scanPageSize = 2

// Harness executes one scenario against its own store.
type Harness struct {
	store     *store.Store
	scenario  *Scenario
	policy    engine.Policy
	clock     *testutil.Clock
	requests  *testutil.FixedRequestIDs
	projector *projection.Projector
	refresher *refresh.Refresher
	logger    *slog.Logger
}

// Run executes a scenario in a fresh in-memory database and returns the
// result. The error is non-nil only for infrastructure failures; domain
// rejections and assertion failures are reported in the result.
func Run(scenario *Scenario) (*Result, error) {
	start := scenario.Start
	if start.IsZero() {
		start = DefaultStart
	}
	clock := testutil.NewClock(start, time.Minute)

	st, err := store.Open(":memory:",
		store.WithClock(clock.Now),
		store.WithIDGenerator(testutil.NewFixedRequestIDs("insp")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	var resolver projection.NodeResolver
	if scenario.Templates != "" {
		catalog, err := template.LoadFile(scenario.Templates)
		if err != nil {
			return nil, fmt.Errorf("failed to load templates: %w", err)
		}
		resolver = catalog
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	policy := scenario.EnginePolicy()
	projector := projection.NewProjector(st, resolver, policy, scanPageSize)
	h := &Harness{
		store:     st,
		scenario:  scenario,
		policy:    policy,
		clock:     clock,
		requests:  testutil.NewFixedRequestIDs("req"),
		projector: projector,
		refresher: refresh.New(projector, st,
			cache.New[projection.Progress](0, cache.WithClock(clock.Peek)),
			refresh.WithWriter(st),
			refresh.WithLogger(logger),
			refresh.WithRateLimit(0),
			refresh.WithClock(clock.Peek),
		),
		logger: logger,
	}

	ctx := context.Background()
	if err := h.seed(ctx); err != nil {
		return nil, fmt.Errorf("failed to seed scenario: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("failed to execute step %d: %w", i+1, err)
		}
	}

	result.Progress, err = projector.Compute(ctx, scenario.Order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to project order: %w", err)
	}
	result.Order, err = st.GetOrder(ctx, scenario.Order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read order: %w", err)
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) seed(ctx context.Context) error {
	s := h.scenario
	if err := h.store.PutOrder(ctx, s.Order); err != nil {
		return err
	}
	if len(s.Nodes) > 0 {
		if err := h.store.PutWorkflowNodes(ctx, s.Order.ID, s.Nodes); err != nil {
			return err
		}
	}
	if len(s.Bundles) > 0 {
		bundles := make([]model.CuttingBundle, len(s.Bundles))
		for i, b := range s.Bundles {
			if b.OrderID == "" {
				b.OrderID = s.Order.ID
			}
			bundles[i] = b
		}
		if err := h.store.PutCuttingBundles(ctx, bundles); err != nil {
			return err
		}
	}
	if s.Procurement != nil {
		a := *s.Procurement
		if a.OrderNo == "" {
			a.OrderNo = s.Order.OrderNo
		}
		if err := h.store.PutProcurementArrival(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) error {
	action := step.Action()
	out := StepOutcome{Action: action}

	var (
		receipt model.Receipt
		err     error
	)
	switch action {
	case ActionScan:
		sub := *step.Scan
		if sub.OrderID == "" {
			sub.OrderID = h.scenario.Order.ID
		}
		if sub.OccurredAt.IsZero() {
			sub.OccurredAt = h.clock.Now()
		}
		requestID := step.RequestID
		if requestID == "" {
			requestID = h.requests.Generate()
		}
		receipt, err = h.store.SubmitScanEvent(ctx, sub, requestID)

	case ActionInspect:
		sub := *step.Inspect
		if sub.OrderID == "" {
			sub.OrderID = h.scenario.Order.ID
		}
		receipt, err = h.store.SubmitInspection(ctx, sub)

	case ActionInspectBatch:
		batch := *step.InspectBatch
		if batch.OrderID == "" {
			batch.OrderID = h.scenario.Order.ID
		}
		receipt, err = h.store.SubmitBatchInspection(ctx, batch)

	case ActionClose:
		receipt, _, err = h.store.CloseOrder(ctx, h.scenario.Order.ID, step.Close.Remark, h.policy.CloseTolerancePercent)

	case ActionRefresh:
		if _, err = h.refresher.Refresh(ctx, h.scenario.Order.ID); err == nil {
			receipt = model.Receipt{Status: model.Accepted, ID: h.scenario.Order.ID}
		}

	case ActionAdvance:
		h.clock.Advance(step.Advance)
		result.AddStep(out)
		return nil
	}

	if err != nil {
		var ae *apperr.Error
		if !errors.As(err, &ae) {
			return err
		}
		if receipt.Status == "" {
			receipt.Status = model.Rejected
		}
		out.ErrorKind = ae.Kind.String()
		out.Reason = ae.Message
	}
	out.Status = string(receipt.Status)
	out.ID = receipt.ID
	result.AddStep(out)

	h.logger.Debug("step executed", "index", i+1, "action", action, "status", out.Status)
	checkStep(i, step, out, result)
	return nil
}

// checkStep compares a step outcome with its expectation. Steps without an
// expectation must be accepted.
func checkStep(i int, step Step, out StepOutcome, result *Result) {
	want := StepExpect{Status: string(model.Accepted)}
	if step.Expect != nil {
		want = *step.Expect
	}
	if out.Status != want.Status {
		msg := fmt.Sprintf("step %d (%s): expected status %s, got %s", i+1, out.Action, want.Status, out.Status)
		if out.Reason != "" {
			msg += ": " + out.Reason
		}
		result.AddError(msg)
		return
	}
	if want.ErrorKind != "" && out.ErrorKind != want.ErrorKind {
		result.AddError(fmt.Sprintf("step %d (%s): expected error kind %s, got %q", i+1, out.Action, want.ErrorKind, out.ErrorKind))
	}
}
