package model

import "time"

// ScanSubmission is the payload a scanning client sends. The client attaches
// a request id per submission attempt; retries reuse it.
type ScanSubmission struct {
	OrderID      string     `json:"order_id" yaml:"order_id" validate:"required"`
	BundleID     string     `json:"bundle_id,omitempty" yaml:"bundle_id,omitempty"`
	StageLabel   string     `json:"stage_label" yaml:"stage_label" validate:"required_without=ProcessLabel,max=64"`
	ProcessLabel string     `json:"process_label" yaml:"process_label" validate:"max=64"`
	Quantity     int        `json:"quantity" yaml:"quantity" validate:"gte=0"`
	Result       ScanResult `json:"result" yaml:"result" validate:"oneof=success failure"`
	OccurredAt   time.Time  `json:"occurred_at" yaml:"occurred_at" validate:"required"`
	OperatorID   string     `json:"operator_id,omitempty" yaml:"operator_id,omitempty" validate:"max=64"`
}

// InspectionSubmission is one inspection entered for a single bundle.
type InspectionSubmission struct {
	OrderID             string `json:"order_id" yaml:"order_id" validate:"required"`
	BundleID            string `json:"bundle_id" yaml:"bundle_id" validate:"required"`
	InspectedQuantity   int    `json:"inspected_quantity" yaml:"inspected_quantity" validate:"gt=0"`
	UnqualifiedQuantity int    `json:"unqualified_quantity" yaml:"unqualified_quantity" validate:"gte=0"`
	DefectCategory      string `json:"defect_category,omitempty" yaml:"defect_category,omitempty" validate:"max=64"`
	HandlingMethod      string `json:"handling_method,omitempty" yaml:"handling_method,omitempty" validate:"max=64"`
	RepairRemark        string `json:"repair_remark,omitempty" yaml:"repair_remark,omitempty" validate:"max=500"`
	Warehouse           string `json:"warehouse,omitempty" yaml:"warehouse,omitempty" validate:"max=64"`
}

// BatchItem is one bundle in an all-qualified batch inspection.
type BatchItem struct {
	BundleID string `json:"bundle_id" yaml:"bundle_id" validate:"required"`
	Quantity int    `json:"quantity" yaml:"quantity" validate:"gte=0"`
}

// BatchInspection is a multi-select submission of ordinary (non-blocked)
// bundles that all passed inspection.
type BatchInspection struct {
	OrderID   string      `json:"order_id" yaml:"order_id" validate:"required"`
	Warehouse string      `json:"warehouse,omitempty" yaml:"warehouse,omitempty" validate:"max=64"`
	Items     []BatchItem `json:"items" yaml:"items" validate:"required,min=1,dive"`
}

// ReceiptStatus is the outcome of a submission to the external store.
type ReceiptStatus string

const (
	Accepted  ReceiptStatus = "accepted"
	Duplicate ReceiptStatus = "duplicate"
	Rejected  ReceiptStatus = "rejected"
)

// Receipt reports how a submission was handled. Reason is set when Rejected.
type Receipt struct {
	Status ReceiptStatus `json:"status"`
	ID     string        `json:"id,omitempty"`
	Reason string        `json:"reason,omitempty"`
}
