package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/seamline/internal/apperr"
	"github.com/roach88/seamline/internal/gate"
	"github.com/roach88/seamline/internal/model"
)

// PutOrder inserts an order or replaces its stored fields. Derived
// quantities on the argument are ignored.
func (s *Store) PutOrder(ctx context.Context, o model.Order) error {
	if strings.TrimSpace(o.ID) == "" || strings.TrimSpace(o.OrderNo) == "" {
		return apperr.Validation("order id and order number are required").WithOp("store.PutOrder")
	}
	status := o.Status
	if status == "" {
		status = model.OrderPending
	}
	var closedAt any
	if o.ClosedAt != nil {
		closedAt = formatTime(*o.ClosedAt)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO orders
		(id, order_no, style_no, order_quantity, current_progress_percent, current_process_name,
		 completed_quantity, status, close_remark, closed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			order_no = excluded.order_no,
			style_no = excluded.style_no,
			order_quantity = excluded.order_quantity,
			current_progress_percent = excluded.current_progress_percent,
			current_process_name = excluded.current_process_name,
			completed_quantity = excluded.completed_quantity,
			status = excluded.status,
			close_remark = excluded.close_remark,
			closed_at = excluded.closed_at
	`,
		o.ID, o.OrderNo, o.StyleNo, o.OrderQuantity, clampPercent(o.CurrentProgressPercent),
		o.CurrentProcessName, o.CompletedQuantity, string(status), o.CloseRemark, closedAt,
	)
	if err != nil {
		return fmt.Errorf("put order: %w", err)
	}
	return nil
}

// GetOrder returns an order with its derived quantities:
// CutQuantity sums the order's cutting bundles and
// WarehousedQualifiedQuantity sums qualified inspection quantity.
func (s *Store) GetOrder(ctx context.Context, id string) (model.Order, error) {
	return getOrder(ctx, s.db, id)
}

func getOrder(ctx context.Context, q queryer, id string) (model.Order, error) {
	var (
		o        model.Order
		status   string
		closedAt sql.NullString
	)
	err := q.QueryRowContext(ctx, `
		SELECT o.id, o.order_no, o.style_no, o.order_quantity, o.current_progress_percent,
		       o.current_process_name, o.completed_quantity, o.status, o.close_remark, o.closed_at,
		       (SELECT COALESCE(SUM(quantity), 0) FROM cutting_bundles WHERE order_id = o.id),
		       (SELECT COALESCE(SUM(qualified_quantity), 0) FROM inspection_records WHERE order_id = o.id)
		FROM orders o
		WHERE o.id = ?
	`, id).Scan(
		&o.ID, &o.OrderNo, &o.StyleNo, &o.OrderQuantity, &o.CurrentProgressPercent,
		&o.CurrentProcessName, &o.CompletedQuantity, &status, &o.CloseRemark, &closedAt,
		&o.CutQuantity, &o.WarehousedQualifiedQuantity,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Order{}, apperr.NotFound("order %s not found", id).WithOp("store.GetOrder")
	}
	if err != nil {
		return model.Order{}, fmt.Errorf("get order %s: %w", id, err)
	}
	o.Status = model.OrderStatus(status)
	if closedAt.Valid {
		t, err := parseTime(closedAt.String)
		if err != nil {
			return model.Order{}, err
		}
		o.ClosedAt = &t
	}
	return o, nil
}

// ListOpenOrderIDs returns the ids of orders not yet completed, in id order.
// The refresher polls these.
func (s *Store) ListOpenOrderIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM orders
		WHERE status != ?
		ORDER BY id COLLATE BINARY ASC
	`, string(model.OrderCompleted))
	if err != nil {
		return nil, fmt.Errorf("query open orders: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan order id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate open orders: %w", err)
	}
	return ids, nil
}

// UpdateOrderProgress records a computed progress percentage and current
// process name. Progress never moves backwards and completed orders are
// frozen; in both cases nothing is written and applied is false.
func (s *Store) UpdateOrderProgress(ctx context.Context, id string, percent int, processName string) (applied bool, err error) {
	percent = clampPercent(percent)
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET current_progress_percent = ?,
		    current_process_name = ?,
		    status = CASE WHEN status = ? AND ? > 0 THEN ? ELSE status END
		WHERE id = ? AND status != ? AND current_progress_percent <= ?
	`,
		percent, processName,
		string(model.OrderPending), percent, string(model.OrderInProgress),
		id, string(model.OrderCompleted), percent,
	)
	if err != nil {
		return false, fmt.Errorf("update order progress: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update order progress: rows affected: %w", err)
	}
	return n > 0, nil
}

// CloseOrder marks an order completed once the close gate passes.
//
// Closing an already completed order is a no-op that returns Duplicate with
// the stored order. A gate failure returns Rejected together with the
// GateViolation error whose Details carries the shortfall. On success the
// order's completed quantity becomes its qualified warehoused quantity and
// progress is pinned at 100.
func (s *Store) CloseOrder(ctx context.Context, id, remark string, tolerancePercent int) (model.Receipt, model.Order, error) {
	const op = "store.CloseOrder"
	var (
		receipt model.Receipt
		order   model.Order
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		o, err := getOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		if o.Frozen() {
			receipt = model.Receipt{Status: model.Duplicate, ID: o.ID}
			order = o
			return nil
		}
		if o.OrderQuantity <= 0 {
			return apperr.Validation("order %s has no order quantity", o.ID).WithOp(op)
		}
		if err := gate.Check(o, tolerancePercent); err != nil {
			return err
		}

		closedAt := s.now().UTC()
		if _, err := tx.ExecContext(ctx, `
			UPDATE orders
			SET status = ?, completed_quantity = ?, current_progress_percent = 100,
			    close_remark = ?, closed_at = ?
			WHERE id = ?
		`, string(model.OrderCompleted), o.WarehousedQualifiedQuantity,
			strings.TrimSpace(remark), formatTime(closedAt), o.ID); err != nil {
			return fmt.Errorf("close order: %w", err)
		}

		o.Status = model.OrderCompleted
		o.CompletedQuantity = o.WarehousedQualifiedQuantity
		o.CurrentProgressPercent = 100
		o.CloseRemark = strings.TrimSpace(remark)
		o.ClosedAt = &closedAt
		receipt = model.Receipt{Status: model.Accepted, ID: o.ID}
		order = o
		return nil
	})
	if err != nil {
		return model.Receipt{Status: model.Rejected, ID: id, Reason: err.Error()}, model.Order{}, err
	}
	return receipt, order, nil
}

// PutProcurementArrival records the material arrival for an order number.
func (s *Store) PutProcurementArrival(ctx context.Context, a model.ProcurementArrival) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO procurement_arrivals (order_no, arrived_quantity, arrival_date)
		VALUES (?, ?, ?)
		ON CONFLICT(order_no) DO UPDATE SET
			arrived_quantity = excluded.arrived_quantity,
			arrival_date = excluded.arrival_date
	`, a.OrderNo, a.ArrivedQuantity, formatTime(a.ArrivalDate))
	if err != nil {
		return fmt.Errorf("put procurement arrival: %w", err)
	}
	return nil
}

// GetProcurementArrival returns the arrival for an order number, or nil if
// none has been recorded.
func (s *Store) GetProcurementArrival(ctx context.Context, orderNo string) (*model.ProcurementArrival, error) {
	var (
		a    model.ProcurementArrival
		date string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT order_no, arrived_quantity, arrival_date
		FROM procurement_arrivals
		WHERE order_no = ?
	`, orderNo).Scan(&a.OrderNo, &a.ArrivedQuantity, &date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get procurement arrival: %w", err)
	}
	if a.ArrivalDate, err = parseTime(date); err != nil {
		return nil, err
	}
	return &a, nil
}

func clampPercent(p int) int {
	return min(max(p, 0), 100)
}
