package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/seamline/internal/apperr"
	"github.com/roach88/seamline/internal/model"
)

// PutCuttingBundles inserts bundles or updates their quantity and status.
func (s *Store) PutCuttingBundles(ctx context.Context, bundles []model.CuttingBundle) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, b := range bundles {
			if b.ID == "" || b.OrderID == "" {
				return apperr.Validation("cutting bundle needs an id and an order id").WithOp("store.PutCuttingBundles")
			}
			if b.Quantity < 0 {
				return apperr.Validation("cutting bundle %s has negative quantity", b.ID).WithOp("store.PutCuttingBundles")
			}
			status := b.Status
			if status == "" {
				status = model.BundleCreated
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO cutting_bundles (id, order_id, bundle_no, color, size, quantity, status)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET
					bundle_no = excluded.bundle_no,
					color = excluded.color,
					size = excluded.size,
					quantity = excluded.quantity,
					status = excluded.status
			`, b.ID, b.OrderID, b.BundleNo, b.Color, b.Size, b.Quantity, status); err != nil {
				return fmt.Errorf("put cutting bundle %s: %w", b.ID, err)
			}
		}
		return nil
	})
}

// ListCuttingBundles returns an order's bundles ordered by bundle number.
//
// Returns an empty slice (not nil) if the order has no bundles.
func (s *Store) ListCuttingBundles(ctx context.Context, orderID string) ([]model.CuttingBundle, error) {
	return listCuttingBundles(ctx, s.db, orderID)
}

func listCuttingBundles(ctx context.Context, q queryer, orderID string) ([]model.CuttingBundle, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, order_id, bundle_no, color, size, quantity, status
		FROM cutting_bundles
		WHERE order_id = ?
		ORDER BY bundle_no ASC, id COLLATE BINARY ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query cutting bundles: %w", err)
	}
	defer rows.Close()

	bundles := []model.CuttingBundle{}
	for rows.Next() {
		var b model.CuttingBundle
		if err := rows.Scan(&b.ID, &b.OrderID, &b.BundleNo, &b.Color, &b.Size, &b.Quantity, &b.Status); err != nil {
			return nil, fmt.Errorf("scan cutting bundle: %w", err)
		}
		bundles = append(bundles, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cutting bundles: %w", err)
	}
	return bundles, nil
}

// GetCuttingBundle returns one bundle by id.
func (s *Store) GetCuttingBundle(ctx context.Context, id string) (model.CuttingBundle, error) {
	return getCuttingBundle(ctx, s.db, id)
}

func getCuttingBundle(ctx context.Context, q queryer, id string) (model.CuttingBundle, error) {
	var b model.CuttingBundle
	err := q.QueryRowContext(ctx, `
		SELECT id, order_id, bundle_no, color, size, quantity, status
		FROM cutting_bundles
		WHERE id = ?
	`, id).Scan(&b.ID, &b.OrderID, &b.BundleNo, &b.Color, &b.Size, &b.Quantity, &b.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CuttingBundle{}, apperr.NotFound("cutting bundle %s not found", id).WithOp("store.GetCuttingBundle")
	}
	if err != nil {
		return model.CuttingBundle{}, fmt.Errorf("get cutting bundle %s: %w", id, err)
	}
	return b, nil
}

func setBundleStatus(ctx context.Context, q queryer, id, status string) error {
	if _, err := q.ExecContext(ctx, `UPDATE cutting_bundles SET status = ? WHERE id = ?`, status, id); err != nil {
		return fmt.Errorf("set bundle %s status: %w", id, err)
	}
	return nil
}
