package quality

import (
	"strings"

	"github.com/roach88/seamline/internal/model"
)

// Reconcile computes the rework state of one bundle from its inspection
// history. Records for other bundles are ignored.
//
//	repairPool  = Σ unqualified over all records
//	repairedOut = Σ qualified over records with a repair remark
//	remaining   = max(0, repairPool - repairedOut)
func Reconcile(bundleID string, records []model.InspectionRecord) model.RepairStats {
	st := model.RepairStats{BundleID: bundleID}
	for _, r := range records {
		if r.BundleID != bundleID {
			continue
		}
		st.RepairPool += max(r.UnqualifiedQuantity, 0)
		if strings.TrimSpace(r.RepairRemark) != "" {
			st.RepairedOut += max(r.QualifiedQuantity, 0)
		}
	}
	st.Remaining = max(st.RepairPool-st.RepairedOut, 0)
	return st
}

// ReconcileAll reconciles every bundle, keyed by bundle id. Bundles with no
// records get zero stats.
func ReconcileAll(bundles []model.CuttingBundle, records []model.InspectionRecord) map[string]model.RepairStats {
	byBundle := make(map[string][]model.InspectionRecord, len(bundles))
	for _, r := range records {
		byBundle[r.BundleID] = append(byBundle[r.BundleID], r)
	}
	out := make(map[string]model.RepairStats, len(bundles))
	for _, b := range bundles {
		out[b.ID] = Reconcile(b.ID, byBundle[b.ID])
	}
	return out
}

// Uninspected returns how much of the bundle has not had a first-pass
// inspection yet: its quantity minus the inspected quantity of every record
// without a repair remark. Rework passes re-inspect pieces already counted
// and do not consume it.
func Uninspected(bundle model.CuttingBundle, records []model.InspectionRecord) int {
	done := 0
	for _, r := range records {
		if r.BundleID != bundle.ID || strings.TrimSpace(r.RepairRemark) != "" {
			continue
		}
		done += max(r.InspectedQuantity, 0)
	}
	return max(bundle.Quantity-done, 0)
}

// QualifiedTotal sums qualified quantity across records: the order's
// warehoused qualified quantity.
func QualifiedTotal(records []model.InspectionRecord) int {
	total := 0
	for _, r := range records {
		total += max(r.QualifiedQuantity, 0)
	}
	return total
}

// NextStatus returns the bundle status after a record is applied.
// remainingAfter is the bundle's remaining pool including the new record.
func NextStatus(current string, rec model.InspectionRecord, remainingAfter int) string {
	switch {
	case rec.UnqualifiedQuantity > 0:
		return model.BundleUnqualified
	case IsBlocked(current):
		if remainingAfter == 0 {
			return model.BundleRepaired
		}
		return current
	case IsCleared(current):
		return current
	default:
		return model.BundleQualified
	}
}
