package quality

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/seamline/internal/apperr"
	"github.com/roach88/seamline/internal/model"
)

// Inspector validates inspection submissions and turns them into records
// ready to persist.
type Inspector struct {
	v *validator.Validate
}

// NewInspector creates an Inspector with its own validator instance.
func NewInspector() *Inspector {
	return &Inspector{v: validator.New()}
}

// Prepare validates a single-bundle inspection against the bundle and its
// history and returns the record to append. ID and CreatedAt are left for
// the store.
//
// For a blocked bundle the submission is a rework pass: a repair remark is
// required, unqualified is forced to 0, and inspected may not exceed the
// bundle's remaining pool. Otherwise unqualified quantity requires a defect
// category and handling method, and defect fields are cleared when there is
// nothing unqualified.
func (in *Inspector) Prepare(sub model.InspectionSubmission, bundle model.CuttingBundle, history []model.InspectionRecord) (model.InspectionRecord, error) {
	const op = "quality.Prepare"
	if err := in.structErr(sub); err != nil {
		return model.InspectionRecord{}, err.WithOp(op)
	}
	if sub.BundleID != bundle.ID {
		return model.InspectionRecord{}, apperr.Validation("bundle %q does not match submission bundle %q", bundle.ID, sub.BundleID).WithOp(op)
	}
	if bundle.OrderID != "" && sub.OrderID != bundle.OrderID {
		return model.InspectionRecord{}, apperr.Validation("bundle %s belongs to order %s, not %s", bundle.ID, bundle.OrderID, sub.OrderID).WithOp(op)
	}

	rec := model.InspectionRecord{
		OrderID:           sub.OrderID,
		BundleID:          sub.BundleID,
		InspectedQuantity: sub.InspectedQuantity,
		Warehouse:         strings.TrimSpace(sub.Warehouse),
	}

	if IsBlocked(bundle.Status) {
		remark := strings.TrimSpace(sub.RepairRemark)
		if remark == "" {
			return model.InspectionRecord{}, apperr.Validation("bundle %s is awaiting rework: repair remark is required", bundle.ID).WithOp(op)
		}
		st := Reconcile(bundle.ID, history)
		if st.Remaining <= 0 {
			return model.InspectionRecord{}, apperr.Validation("bundle %s has no remaining quantity to re-inspect", bundle.ID).
				WithOp(op).WithDetails(st)
		}
		if sub.InspectedQuantity > st.Remaining {
			return model.InspectionRecord{}, apperr.Validation("inspected quantity %d exceeds remaining %d for bundle %s", sub.InspectedQuantity, st.Remaining, bundle.ID).
				WithOp(op).WithDetails(st)
		}
		rec.QualifiedQuantity = sub.InspectedQuantity
		rec.RepairRemark = remark
		return rec, nil
	}

	if bundle.Quantity > 0 {
		avail := Uninspected(bundle, history)
		if avail <= 0 {
			return model.InspectionRecord{}, apperr.Validation("bundle %s is already fully inspected", bundle.ID).WithOp(op)
		}
		if sub.InspectedQuantity > avail {
			return model.InspectionRecord{}, apperr.Validation("inspected quantity %d exceeds uninspected quantity %d of bundle %s", sub.InspectedQuantity, avail, bundle.ID).WithOp(op)
		}
	}
	if sub.UnqualifiedQuantity > sub.InspectedQuantity {
		return model.InspectionRecord{}, apperr.Validation("unqualified quantity %d exceeds inspected quantity %d", sub.UnqualifiedQuantity, sub.InspectedQuantity).WithOp(op)
	}
	rec.UnqualifiedQuantity = sub.UnqualifiedQuantity
	rec.QualifiedQuantity = sub.InspectedQuantity - sub.UnqualifiedQuantity
	if sub.UnqualifiedQuantity > 0 {
		rec.DefectCategory = strings.TrimSpace(sub.DefectCategory)
		rec.HandlingMethod = strings.TrimSpace(sub.HandlingMethod)
		if rec.DefectCategory == "" {
			return model.InspectionRecord{}, apperr.Validation("defect category is required when unqualified quantity is %d", sub.UnqualifiedQuantity).WithOp(op)
		}
		if rec.HandlingMethod == "" {
			return model.InspectionRecord{}, apperr.Validation("handling method is required when unqualified quantity is %d", sub.UnqualifiedQuantity).WithOp(op)
		}
	}
	return rec, nil
}

// PrepareBatch validates an all-qualified multi-bundle submission against
// the order's bundles and inspection history. Every item must name a
// distinct, unblocked bundle of the order. A zero item quantity means the
// bundle's whole uninspected quantity.
func (in *Inspector) PrepareBatch(batch model.BatchInspection, bundles []model.CuttingBundle, history []model.InspectionRecord) ([]model.InspectionRecord, error) {
	const op = "quality.PrepareBatch"
	if err := in.structErr(batch); err != nil {
		return nil, err.WithOp(op)
	}

	byID := make(map[string]model.CuttingBundle, len(bundles))
	for _, b := range bundles {
		byID[b.ID] = b
	}

	seen := make(map[string]struct{}, len(batch.Items))
	records := make([]model.InspectionRecord, 0, len(batch.Items))
	for _, item := range batch.Items {
		b, ok := byID[item.BundleID]
		if !ok {
			return nil, apperr.Validation("bundle %s is not part of order %s", item.BundleID, batch.OrderID).WithOp(op)
		}
		if _, dup := seen[item.BundleID]; dup {
			return nil, apperr.Validation("bundle %s appears more than once", item.BundleID).WithOp(op)
		}
		seen[item.BundleID] = struct{}{}
		if IsBlocked(b.Status) {
			return nil, apperr.Validation("bundle %s is awaiting rework and must be inspected individually", b.ID).WithOp(op)
		}
		avail := Uninspected(b, history)
		qty := item.Quantity
		if qty == 0 {
			qty = avail
		}
		if qty <= 0 {
			return nil, apperr.Validation("bundle %s has no quantity to inspect", b.ID).WithOp(op)
		}
		if qty > avail {
			return nil, apperr.Validation("quantity %d exceeds uninspected quantity %d of bundle %s", qty, avail, b.ID).WithOp(op)
		}
		records = append(records, model.InspectionRecord{
			OrderID:           batch.OrderID,
			BundleID:          b.ID,
			InspectedQuantity: qty,
			QualifiedQuantity: qty,
			Warehouse:         strings.TrimSpace(batch.Warehouse),
		})
	}
	return records, nil
}

// structErr runs tag validation and converts failures to a validation error.
func (in *Inspector) structErr(s any) *apperr.Error {
	err := in.v.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperr.Wrap(apperr.KindValidation, "invalid submission", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return apperr.New(apperr.KindValidation, strings.Join(msgs, "; ")).WithDetails(msgs)
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gt", "gte", "min":
		return fmt.Sprintf("%s must be %s %s", field, fe.Tag(), fe.Param())
	case "max":
		return fmt.Sprintf("%s exceeds maximum length %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %q", field, fe.Tag())
	}
}
