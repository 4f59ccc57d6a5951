// Package gate decides whether a production order may be closed.
//
// An order closes once its qualified warehoused quantity reaches a share of
// its cut quantity (90% by default), leaving room for unavoidable wastage
// between cutting and final inspection.
package gate

import (
	"github.com/roach88/seamline/internal/apperr"
	"github.com/roach88/seamline/internal/model"
)

// DefaultTolerancePercent is the share of cut quantity required to close.
const DefaultTolerancePercent = 90

// Reason explains a close decision.
type Reason string

const (
	ReasonOK             Reason = "ok"
	ReasonAlreadyClosed  Reason = "already_completed"
	ReasonNoCutQuantity  Reason = "no_cut_quantity"
	ReasonBelowThreshold Reason = "below_threshold"
)

// Shortfall is the numeric outcome of a close check.
type Shortfall struct {
	Required int `json:"required"`
	Actual   int `json:"actual"`
	Missing  int `json:"missing"`
}

// Decision is the full result of evaluating the gate for one order.
type Decision struct {
	CanClose bool   `json:"can_close"`
	Reason   Reason `json:"reason"`
	Shortfall
}

// MinRequiredToClose returns ceil(cut * percent / 100). A non-positive cut
// quantity requires nothing and therefore can never satisfy CanClose.
func MinRequiredToClose(cutQuantity, percent int) int {
	if cutQuantity <= 0 {
		return 0
	}
	if percent <= 0 || percent > 100 {
		percent = DefaultTolerancePercent
	}
	return (cutQuantity*percent + 99) / 100
}

// Evaluate checks the gate for an order.
func Evaluate(order model.Order, percent int) Decision {
	required := MinRequiredToClose(order.CutQuantity, percent)
	actual := order.WarehousedQualifiedQuantity
	d := Decision{Shortfall: Shortfall{Required: required, Actual: actual, Missing: max(required-actual, 0)}}
	switch {
	case order.Status == model.OrderCompleted:
		d.Reason = ReasonAlreadyClosed
	case required <= 0:
		d.Reason = ReasonNoCutQuantity
	case actual < required:
		d.Reason = ReasonBelowThreshold
	default:
		d.CanClose = true
		d.Reason = ReasonOK
	}
	return d
}

// CanClose reports whether the order may be closed.
func CanClose(order model.Order, percent int) bool {
	return Evaluate(order, percent).CanClose
}

// Check returns nil if the order may close, otherwise a GateViolation whose
// Details is the Shortfall.
func Check(order model.Order, percent int) error {
	d := Evaluate(order, percent)
	if d.CanClose {
		return nil
	}
	var e *apperr.Error
	switch d.Reason {
	case ReasonAlreadyClosed:
		e = apperr.Conflict("order %s is already completed", order.ID)
	case ReasonNoCutQuantity:
		e = apperr.New(apperr.KindGateViolation, "order has no cut quantity")
	default:
		e = apperr.New(apperr.KindGateViolation,
			"qualified warehoused quantity below close threshold")
	}
	return e.WithOp("gate.Check").WithDetails(d.Shortfall)
}
