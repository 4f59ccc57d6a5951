package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/seamline/internal/apperr"
	"github.com/roach88/seamline/internal/model"
	"github.com/roach88/seamline/internal/quality"
)

// ListInspectionRecords returns inspection records by order, bundle, or
// both, in the order they were recorded.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ListInspectionRecords(ctx context.Context, filter model.InspectionFilter) ([]model.InspectionRecord, error) {
	return listInspectionRecords(ctx, s.db, filter)
}

func listInspectionRecords(ctx context.Context, q queryer, filter model.InspectionFilter) ([]model.InspectionRecord, error) {
	if filter.OrderID == "" && filter.BundleID == "" {
		return nil, apperr.Validation("inspection filter needs an order id or a bundle id").WithOp("store.ListInspectionRecords")
	}
	rows, err := q.QueryContext(ctx, `
		SELECT id, order_id, bundle_id, inspected_quantity, qualified_quantity, unqualified_quantity,
		       defect_category, handling_method, repair_remark, warehouse, created_at
		FROM inspection_records
		WHERE (? = '' OR order_id = ?) AND (? = '' OR bundle_id = ?)
		ORDER BY seq ASC
	`, filter.OrderID, filter.OrderID, filter.BundleID, filter.BundleID)
	if err != nil {
		return nil, fmt.Errorf("query inspection records: %w", err)
	}
	defer rows.Close()

	records := []model.InspectionRecord{}
	for rows.Next() {
		var (
			r         model.InspectionRecord
			createdAt string
		)
		if err := rows.Scan(&r.ID, &r.OrderID, &r.BundleID, &r.InspectedQuantity, &r.QualifiedQuantity,
			&r.UnqualifiedQuantity, &r.DefectCategory, &r.HandlingMethod, &r.RepairRemark,
			&r.Warehouse, &createdAt); err != nil {
			return nil, fmt.Errorf("scan inspection record: %w", err)
		}
		if r.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inspection records: %w", err)
	}
	return records, nil
}

// SubmitInspection validates and appends a single-bundle inspection, then
// moves the bundle to its next status, in one transaction.
//
// Validation runs against the bundle's history read inside the same
// transaction, so the remaining-pool cap cannot be raced.
func (s *Store) SubmitInspection(ctx context.Context, sub model.InspectionSubmission) (model.Receipt, error) {
	var id string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireOpenOrder(ctx, tx, sub.OrderID); err != nil {
			return err
		}
		bundle, err := getCuttingBundle(ctx, tx, sub.BundleID)
		if err != nil {
			return err
		}
		history, err := listInspectionRecords(ctx, tx, model.InspectionFilter{BundleID: bundle.ID})
		if err != nil {
			return err
		}
		rec, err := s.inspector.Prepare(sub, bundle, history)
		if err != nil {
			return err
		}
		if rec, err = s.insertInspection(ctx, tx, rec); err != nil {
			return err
		}
		after := quality.Reconcile(bundle.ID, append(history, rec))
		next := quality.NextStatus(bundle.Status, rec, after.Remaining)
		if next != bundle.Status {
			if err := setBundleStatus(ctx, tx, bundle.ID, next); err != nil {
				return err
			}
		}
		id = rec.ID
		return nil
	})
	return receiptFor(id, "store.SubmitInspection", err)
}

// SubmitBatchInspection appends an all-qualified inspection for several
// unblocked bundles. Either every item is recorded or none is.
func (s *Store) SubmitBatchInspection(ctx context.Context, batch model.BatchInspection) (model.Receipt, error) {
	var ids []string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireOpenOrder(ctx, tx, batch.OrderID); err != nil {
			return err
		}
		bundles, err := listCuttingBundles(ctx, tx, batch.OrderID)
		if err != nil {
			return err
		}
		history, err := listInspectionRecords(ctx, tx, model.InspectionFilter{OrderID: batch.OrderID})
		if err != nil {
			return err
		}
		records, err := s.inspector.PrepareBatch(batch, bundles, history)
		if err != nil {
			return err
		}
		status := make(map[string]string, len(bundles))
		for _, b := range bundles {
			status[b.ID] = b.Status
		}
		for _, rec := range records {
			if rec, err = s.insertInspection(ctx, tx, rec); err != nil {
				return err
			}
			if next := quality.NextStatus(status[rec.BundleID], rec, 0); next != status[rec.BundleID] {
				if err := setBundleStatus(ctx, tx, rec.BundleID, next); err != nil {
					return err
				}
			}
			ids = append(ids, rec.ID)
		}
		return nil
	})
	batchID := ""
	if len(ids) > 0 {
		batchID = ids[0]
	}
	return receiptFor(batchID, "store.SubmitBatchInspection", err)
}

func (s *Store) insertInspection(ctx context.Context, q queryer, rec model.InspectionRecord) (model.InspectionRecord, error) {
	rec.ID = s.ids.Generate()
	rec.CreatedAt = s.now().UTC()
	if _, err := q.ExecContext(ctx, `
		INSERT INTO inspection_records
		(id, order_id, bundle_id, inspected_quantity, qualified_quantity, unqualified_quantity,
		 defect_category, handling_method, repair_remark, warehouse, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID, rec.OrderID, rec.BundleID, rec.InspectedQuantity, rec.QualifiedQuantity,
		rec.UnqualifiedQuantity, rec.DefectCategory, rec.HandlingMethod, rec.RepairRemark,
		rec.Warehouse, formatTime(rec.CreatedAt),
	); err != nil {
		return model.InspectionRecord{}, fmt.Errorf("insert inspection record: %w", err)
	}
	return rec, nil
}

func requireOpenOrder(ctx context.Context, q queryer, orderID string) error {
	o, err := getOrder(ctx, q, orderID)
	if err != nil {
		return err
	}
	if o.Frozen() {
		return apperr.Conflict("order %s is completed and accepts no more inspections", o.ID)
	}
	return nil
}

// receiptFor converts a transaction outcome into a submission receipt.
// Typed errors become Rejected receipts; anything else is an infrastructure
// failure and is returned without a receipt.
func receiptFor(id, op string, err error) (model.Receipt, error) {
	if err == nil {
		return model.Receipt{Status: model.Accepted, ID: id}, nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		if ae.Op == "" {
			ae = ae.WithOp(op)
		}
		return model.Receipt{Status: model.Rejected, Reason: ae.Message}, ae
	}
	return model.Receipt{}, fmt.Errorf("%s: %w", op, err)
}
