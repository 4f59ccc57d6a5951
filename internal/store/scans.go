package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/seamline/internal/apperr"
	"github.com/roach88/seamline/internal/model"
)

var scanValidator = validator.New()

// SubmitScanEvent appends a scan event exactly once per request id.
//
// A retry carrying the same request id and payload returns Duplicate with
// the original event id. Reusing a request id for a different payload,
// scanning into a completed order, or naming a bundle of another order
// returns Rejected with a typed error.
func (s *Store) SubmitScanEvent(ctx context.Context, sub model.ScanSubmission, requestID string) (model.Receipt, error) {
	const op = "store.SubmitScanEvent"
	reject := func(err *apperr.Error) (model.Receipt, error) {
		err = err.WithOp(op)
		return model.Receipt{Status: model.Rejected, Reason: err.Message}, err
	}

	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return reject(apperr.Validation("request id is required"))
	}
	if sub.Result == "" {
		sub.Result = model.ScanSuccess
	}
	if err := scanValidator.Struct(sub); err != nil {
		return reject(apperr.Wrap(apperr.KindValidation, "invalid scan submission", err))
	}

	fingerprint, err := sub.Fingerprint()
	if err != nil {
		return model.Receipt{}, fmt.Errorf("%s: %w", op, err)
	}
	eventID := model.ScanEventID(requestID)

	var receipt model.Receipt
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var storedFingerprint, storedEvent string
		err := tx.QueryRowContext(ctx, `
			SELECT fingerprint, event_id FROM scan_requests WHERE request_id = ?
		`, requestID).Scan(&storedFingerprint, &storedEvent)
		switch {
		case err == nil:
			if storedFingerprint != fingerprint {
				return apperr.Conflict("request id %s was already used for a different scan", requestID)
			}
			receipt = model.Receipt{Status: model.Duplicate, ID: storedEvent}
			return nil
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("lookup scan request: %w", err)
		}

		order, err := getOrder(ctx, tx, sub.OrderID)
		if err != nil {
			return err
		}
		if order.Frozen() {
			return apperr.Conflict("order %s is completed and accepts no more scans", order.ID)
		}
		if sub.BundleID != "" {
			b, err := getCuttingBundle(ctx, tx, sub.BundleID)
			if err != nil {
				return err
			}
			if b.OrderID != order.ID {
				return apperr.Validation("bundle %s belongs to order %s", b.ID, b.OrderID)
			}
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO scan_requests (request_id, fingerprint, event_id)
			VALUES (?, ?, ?)
			ON CONFLICT(request_id) DO NOTHING
		`, requestID, fingerprint, eventID); err != nil {
			return fmt.Errorf("record scan request: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO scan_events
			(id, order_id, bundle_id, stage_label, process_label, quantity, result, occurred_at, operator_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`,
			eventID, sub.OrderID, sub.BundleID, sub.StageLabel, sub.ProcessLabel,
			sub.Quantity, string(sub.Result), formatTime(sub.OccurredAt), sub.OperatorID,
		); err != nil {
			return fmt.Errorf("insert scan event: %w", err)
		}
		receipt = model.Receipt{Status: model.Accepted, ID: eventID}
		return nil
	})
	if err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return reject(ae)
		}
		return model.Receipt{}, fmt.Errorf("%s: %w", op, err)
	}
	return receipt, nil
}

// ListScanEvents returns one page of an order's event log in log order.
// Follow NextCursor until it is empty to read the whole log.
func (s *Store) ListScanEvents(ctx context.Context, orderID string, page model.PageRequest) (model.ScanEventPage, error) {
	after := int64(0)
	if page.Cursor != "" {
		n, err := strconv.ParseInt(page.Cursor, 10, 64)
		if err != nil || n < 0 {
			return model.ScanEventPage{}, apperr.Validation("invalid cursor %q", page.Cursor).WithOp("store.ListScanEvents")
		}
		after = n
	}
	limit := page.Limit
	if limit <= 0 {
		limit = model.DefaultPageSize
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, order_id, bundle_id, stage_label, process_label, quantity, result, occurred_at, operator_id
		FROM scan_events
		WHERE order_id = ? AND seq > ?
		ORDER BY seq ASC
		LIMIT ?
	`, orderID, after, limit)
	if err != nil {
		return model.ScanEventPage{}, fmt.Errorf("query scan events: %w", err)
	}
	defer rows.Close()

	out := model.ScanEventPage{Events: []model.ScanEvent{}}
	var lastSeq int64
	for rows.Next() {
		var (
			ev         model.ScanEvent
			result     string
			occurredAt string
		)
		if err := rows.Scan(&lastSeq, &ev.ID, &ev.OrderID, &ev.BundleID, &ev.StageLabel,
			&ev.ProcessLabel, &ev.Quantity, &result, &occurredAt, &ev.OperatorID); err != nil {
			return model.ScanEventPage{}, fmt.Errorf("scan scan event: %w", err)
		}
		ev.Result = model.ScanResult(result)
		if ev.OccurredAt, err = parseTime(occurredAt); err != nil {
			return model.ScanEventPage{}, err
		}
		out.Events = append(out.Events, ev)
	}
	if err := rows.Err(); err != nil {
		return model.ScanEventPage{}, fmt.Errorf("iterate scan events: %w", err)
	}
	if len(out.Events) == limit {
		out.NextCursor = strconv.FormatInt(lastSeq, 10)
	}
	return out, nil
}
