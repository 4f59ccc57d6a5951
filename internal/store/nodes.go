package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/seamline/internal/apperr"
	"github.com/roach88/seamline/internal/model"
)

// PutWorkflowNodes replaces an order's workflow node snapshot.
func (s *Store) PutWorkflowNodes(ctx context.Context, orderID string, nodes []model.WorkflowNode) error {
	seen := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		if n.ID == "" || n.Name == "" {
			return apperr.Validation("workflow node needs an id and a name").WithOp("store.PutWorkflowNodes")
		}
		if _, dup := seen[n.ID]; dup {
			return apperr.Validation("duplicate workflow node id %s", n.ID).WithOp("store.PutWorkflowNodes")
		}
		seen[n.ID] = struct{}{}
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM workflow_nodes WHERE order_id = ?`, orderID); err != nil {
			return fmt.Errorf("clear workflow nodes: %w", err)
		}
		for _, n := range nodes {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO workflow_nodes
				(order_id, id, name, parent_stage, unit_price, sequence_index, sub_processes)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, orderID, n.ID, n.Name, n.ParentStage, n.UnitPrice, n.SequenceIndex, n.SubProcesses); err != nil {
				return fmt.Errorf("insert workflow node %s: %w", n.ID, err)
			}
		}
		return nil
	})
}

// ListWorkflowNodes returns an order's nodes in sequence order.
//
// Returns an empty slice (not nil) if the order has no snapshot.
func (s *Store) ListWorkflowNodes(ctx context.Context, orderID string) ([]model.WorkflowNode, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, parent_stage, unit_price, sequence_index, sub_processes
		FROM workflow_nodes
		WHERE order_id = ?
		ORDER BY sequence_index ASC, id COLLATE BINARY ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query workflow nodes: %w", err)
	}
	defer rows.Close()

	nodes := []model.WorkflowNode{}
	for rows.Next() {
		var n model.WorkflowNode
		if err := rows.Scan(&n.ID, &n.Name, &n.ParentStage, &n.UnitPrice, &n.SequenceIndex, &n.SubProcesses); err != nil {
			return nil, fmt.Errorf("scan workflow node: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workflow nodes: %w", err)
	}
	return nodes, nil
}
