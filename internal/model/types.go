package model

import "time"

// ScanResult is the outcome recorded by a scanning station.
type ScanResult string

const (
	ScanSuccess ScanResult = "success"
	ScanFailure ScanResult = "failure"
)

// ScanEvent is one worker action: "bundle X, stage Y, quantity Z".
// Created by the scanning subsystem, never mutated or deleted.
type ScanEvent struct {
	ID           string     `json:"id" yaml:"id"`
	OrderID      string     `json:"order_id" yaml:"order_id"`
	BundleID     string     `json:"bundle_id,omitempty" yaml:"bundle_id,omitempty"`
	StageLabel   string     `json:"stage_label" yaml:"stage_label"`
	ProcessLabel string     `json:"process_label" yaml:"process_label"`
	Quantity     int        `json:"quantity" yaml:"quantity"`
	Result       ScanResult `json:"result" yaml:"result"`
	OccurredAt   time.Time  `json:"occurred_at" yaml:"occurred_at"`
	OperatorID   string     `json:"operator_id,omitempty" yaml:"operator_id,omitempty"`
}

// Counts reports whether the event participates in aggregation.
func (e ScanEvent) Counts() bool {
	return e.Result == ScanSuccess && e.Quantity > 0
}

// EffectiveStage returns the stage label, falling back to the process label
// for stations that only report a process.
func (e ScanEvent) EffectiveStage() string {
	if e.StageLabel != "" {
		return e.StageLabel
	}
	return e.ProcessLabel
}

// WorkflowNode is one step of an order's linear production pipeline.
type WorkflowNode struct {
	ID            string  `json:"id" yaml:"id"`
	Name          string  `json:"name" yaml:"name"`
	ParentStage   string  `json:"parent_stage,omitempty" yaml:"parent_stage,omitempty"`
	UnitPrice     float64 `json:"unit_price" yaml:"unit_price"`
	SequenceIndex int     `json:"sequence_index" yaml:"sequence_index"`
	// SubProcesses is the template's sub-process count for this node.
	// Zero means unknown.
	SubProcesses int `json:"sub_processes,omitempty" yaml:"sub_processes,omitempty"`
}

// CuttingBundle is one physical work bundle produced at cutting time.
type CuttingBundle struct {
	ID       string `json:"id" yaml:"id"`
	OrderID  string `json:"order_id" yaml:"order_id"`
	BundleNo int    `json:"bundle_no,omitempty" yaml:"bundle_no,omitempty"`
	Color    string `json:"color,omitempty" yaml:"color,omitempty"`
	Size     string `json:"size,omitempty" yaml:"size,omitempty"`
	Quantity int    `json:"quantity" yaml:"quantity"`
	Status   string `json:"status" yaml:"status"`
}

// Bundle status values written by this module. External stores may use
// other spellings; see quality.IsBlocked for classification.
const (
	BundleCreated     = "created"
	BundleQualified   = "qualified"
	BundleUnqualified = "unqualified"
	BundleRepaired    = "repaired"
)

// InspectionRecord is one quality inspection of a bundle. A bundle
// accumulates many records over time (original inspection plus re-inspections
// after rework).
type InspectionRecord struct {
	ID                  string    `json:"id" yaml:"id"`
	OrderID             string    `json:"order_id" yaml:"order_id"`
	BundleID            string    `json:"bundle_id" yaml:"bundle_id"`
	InspectedQuantity   int       `json:"inspected_quantity" yaml:"inspected_quantity"`
	QualifiedQuantity   int       `json:"qualified_quantity" yaml:"qualified_quantity"`
	UnqualifiedQuantity int       `json:"unqualified_quantity" yaml:"unqualified_quantity"`
	DefectCategory      string    `json:"defect_category,omitempty" yaml:"defect_category,omitempty"`
	HandlingMethod      string    `json:"handling_method,omitempty" yaml:"handling_method,omitempty"`
	RepairRemark        string    `json:"repair_remark,omitempty" yaml:"repair_remark,omitempty"`
	Warehouse           string    `json:"warehouse,omitempty" yaml:"warehouse,omitempty"`
	CreatedAt           time.Time `json:"created_at" yaml:"created_at"`
}

// OrderStatus is the lifecycle state of a production order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderInProgress OrderStatus = "in_progress"
	OrderCompleted  OrderStatus = "completed"
)

// Order is the production order read model.
//
// CutQuantity and WarehousedQualifiedQuantity are derived by the store from
// cutting bundles and inspection records respectively.
type Order struct {
	ID                          string      `json:"id" yaml:"id"`
	OrderNo                     string      `json:"order_no" yaml:"order_no"`
	StyleNo                     string      `json:"style_no,omitempty" yaml:"style_no,omitempty"`
	OrderQuantity               int         `json:"order_quantity" yaml:"order_quantity"`
	CutQuantity                 int         `json:"cut_quantity" yaml:"cut_quantity"`
	CurrentProgressPercent      int         `json:"current_progress_percent" yaml:"current_progress_percent"`
	CurrentProcessName          string      `json:"current_process_name,omitempty" yaml:"current_process_name,omitempty"`
	WarehousedQualifiedQuantity int         `json:"warehoused_qualified_quantity" yaml:"warehoused_qualified_quantity"`
	CompletedQuantity           int         `json:"completed_quantity,omitempty" yaml:"completed_quantity,omitempty"`
	Status                      OrderStatus `json:"status" yaml:"status"`
	CloseRemark                 string      `json:"close_remark,omitempty" yaml:"close_remark,omitempty"`
	ClosedAt                    *time.Time  `json:"closed_at,omitempty" yaml:"closed_at,omitempty"`
}

// Frozen reports whether the order is terminal and rejects progress mutation.
func (o Order) Frozen() bool {
	return o.Status == OrderCompleted
}

// ProcurementArrival is the material-procurement read model used only as a
// fallback for a procurement node that has no scans.
type ProcurementArrival struct {
	OrderNo         string    `json:"order_no" yaml:"order_no"`
	ArrivedQuantity int       `json:"arrived_quantity" yaml:"arrived_quantity"`
	ArrivalDate     time.Time `json:"arrival_date" yaml:"arrival_date"`
}

// NodeStats is the aggregated completion of one workflow node.
type NodeStats struct {
	Node           string     `json:"node"`
	CompletedQty   int        `json:"completed_qty"`
	Percent        int        `json:"percent"`
	Ratio          float64    `json:"ratio"`
	LastActivityAt *time.Time `json:"last_activity_at,omitempty"`
	MatchedEvents  int        `json:"matched_events"`
	SubProcesses   int        `json:"sub_processes"`
	// DivisorEstimated is set when no template sub-process count was
	// supplied and the divisor was inferred from observed groups.
	DivisorEstimated bool `json:"divisor_estimated,omitempty"`
	// FromProcurement is set when the value came from the procurement
	// arrival fallback instead of scans.
	FromProcurement bool `json:"from_procurement,omitempty"`
}

// RepairStats is the rework reconciliation of one bundle.
type RepairStats struct {
	BundleID    string `json:"bundle_id"`
	RepairPool  int    `json:"repair_pool"`
	RepairedOut int    `json:"repaired_out"`
	Remaining   int    `json:"remaining"`
}
