package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/seamline/internal/ident"
	"github.com/roach88/seamline/internal/model"
)

// ScanOptions holds flags for the scan command.
type ScanOptions struct {
	*RootOptions
	OrderID   string
	BundleID  string
	Stage     string
	Process   string
	Quantity  int
	Failed    bool
	Operator  string
	At        string
	RequestID string

	// RequestIDs overrides the request id generator (for testing).
	// If nil, defaults to ident.UUIDv7.
	RequestIDs ident.Generator
}

// NewScanCommand creates the scan command.
func NewScanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Submit a workshop scan event",
		Long: `Submit one scan event. The request id makes the submission idempotent:
retrying with the same --request-id and payload reports the event as
already applied instead of counting it twice. A new UUIDv7 request id is
generated and logged when none is given.

Example:
  seamline scan --order PO-1 --bundle b1 --stage 车缝 --process 上领 --qty 60
  seamline scan --order PO-1 --bundle b1 --stage 车缝 --qty 60 --request-id 0192f7c4-...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.OrderID, "order", "", "order id (required)")
	cmd.Flags().StringVar(&opts.BundleID, "bundle", "", "cutting bundle id")
	cmd.Flags().StringVar(&opts.Stage, "stage", "", "stage label")
	cmd.Flags().StringVar(&opts.Process, "process", "", "process label")
	cmd.Flags().IntVar(&opts.Quantity, "qty", 0, "completed quantity")
	cmd.Flags().BoolVar(&opts.Failed, "failed", false, "record a failed scan (never counts)")
	cmd.Flags().StringVar(&opts.Operator, "operator", "", "operator id")
	cmd.Flags().StringVar(&opts.At, "at", "", "occurrence time, RFC 3339 (default now)")
	cmd.Flags().StringVar(&opts.RequestID, "request-id", "", "idempotency key (default: new UUIDv7)")
	_ = cmd.MarkFlagRequired("order")

	return cmd
}

func runScan(opts *ScanOptions, cmd *cobra.Command) error {
	occurredAt := time.Now().UTC()
	if opts.At != "" {
		t, err := time.Parse(time.RFC3339, opts.At)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --at", err)
		}
		occurredAt = t
	}
	result := model.ScanSuccess
	if opts.Failed {
		result = model.ScanFailure
	}

	requestID := opts.RequestID
	if requestID == "" {
		gen := opts.RequestIDs
		if gen == nil {
			gen = ident.UUIDv7{}
		}
		requestID = gen.Generate()
	}

	a, err := openApp(opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	sub := model.ScanSubmission{
		OrderID:      opts.OrderID,
		BundleID:     opts.BundleID,
		StageLabel:   opts.Stage,
		ProcessLabel: opts.Process,
		Quantity:     opts.Quantity,
		Result:       result,
		OccurredAt:   occurredAt,
		OperatorID:   opts.Operator,
	}
	receipt, err := a.store.SubmitScanEvent(commandContext(cmd), sub, requestID)
	if err != nil {
		return domainError("scan", err)
	}
	opts.Logger.Info("scan submitted", "order_id", opts.OrderID, "request_id", requestID, "status", string(receipt.Status))
	return opts.formatter(cmd).Receipt("scan", receipt)
}

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	OrderID     string
	BundleID    string
	Inspected   int
	Unqualified int
	Defect      string
	Handling    string
	Warehouse   string
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Record a quality inspection of one bundle",
		Long: `Record a quality inspection of one cutting bundle. Unqualified pieces need a
defect category and handling method and send the bundle to rework; use
the repair command to re-inspect reworked pieces.

Example:
  seamline inspect --order PO-1 --bundle b1 --inspected 60 --unqualified 3 --defect 跳线 --handling 返修`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.OrderID, "order", "", "order id (required)")
	cmd.Flags().StringVar(&opts.BundleID, "bundle", "", "cutting bundle id (required)")
	cmd.Flags().IntVar(&opts.Inspected, "inspected", 0, "inspected quantity")
	cmd.Flags().IntVar(&opts.Unqualified, "unqualified", 0, "unqualified quantity")
	cmd.Flags().StringVar(&opts.Defect, "defect", "", "defect category")
	cmd.Flags().StringVar(&opts.Handling, "handling", "", "handling method")
	cmd.Flags().StringVar(&opts.Warehouse, "warehouse", "", "receiving warehouse")
	_ = cmd.MarkFlagRequired("order")
	_ = cmd.MarkFlagRequired("bundle")

	return cmd
}

func runInspect(opts *InspectOptions, cmd *cobra.Command) error {
	return submitInspection(opts.RootOptions, cmd, "inspect", model.InspectionSubmission{
		OrderID:             opts.OrderID,
		BundleID:            opts.BundleID,
		InspectedQuantity:   opts.Inspected,
		UnqualifiedQuantity: opts.Unqualified,
		DefectCategory:      opts.Defect,
		HandlingMethod:      opts.Handling,
		Warehouse:           opts.Warehouse,
	})
}

// RepairOptions holds flags for the repair command.
type RepairOptions struct {
	*RootOptions
	OrderID   string
	BundleID  string
	Quantity  int
	Remark    string
	Warehouse string
}

// NewRepairCommand creates the repair command.
func NewRepairCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RepairOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Re-inspect reworked pieces of a blocked bundle",
		Long: `Record reworked pieces of a bundle awaiting rework as qualified. The
quantity may not exceed the bundle's remaining rework pool and a repair
remark is required.

Example:
  seamline repair --order PO-1 --bundle b1 --qty 3 --remark 返修完成`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepair(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.OrderID, "order", "", "order id (required)")
	cmd.Flags().StringVar(&opts.BundleID, "bundle", "", "cutting bundle id (required)")
	cmd.Flags().IntVar(&opts.Quantity, "qty", 0, "reworked quantity")
	cmd.Flags().StringVar(&opts.Remark, "remark", "", "repair remark (required)")
	cmd.Flags().StringVar(&opts.Warehouse, "warehouse", "", "receiving warehouse")
	_ = cmd.MarkFlagRequired("order")
	_ = cmd.MarkFlagRequired("bundle")
	_ = cmd.MarkFlagRequired("remark")

	return cmd
}

func runRepair(opts *RepairOptions, cmd *cobra.Command) error {
	return submitInspection(opts.RootOptions, cmd, "repair", model.InspectionSubmission{
		OrderID:           opts.OrderID,
		BundleID:          opts.BundleID,
		InspectedQuantity: opts.Quantity,
		RepairRemark:      opts.Remark,
		Warehouse:         opts.Warehouse,
	})
}

func submitInspection(opts *RootOptions, cmd *cobra.Command, action string, sub model.InspectionSubmission) error {
	a, err := openApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()

	receipt, err := a.store.SubmitInspection(commandContext(cmd), sub)
	if err != nil {
		return domainError(action, err)
	}
	opts.Logger.Info("inspection recorded", "order_id", sub.OrderID, "bundle_id", sub.BundleID, "record_id", receipt.ID)
	return opts.formatter(cmd).Receipt(action, receipt)
}

// InspectBatchOptions holds flags for the inspect-batch command.
type InspectBatchOptions struct {
	*RootOptions
	OrderID   string
	Bundles   []string
	Warehouse string
}

// NewInspectBatchCommand creates the inspect-batch command.
func NewInspectBatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectBatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect-batch",
		Short: "Record several bundles as fully qualified",
		Long: `Record an all-qualified inspection for several bundles at once. Each
--bundle is an id, optionally followed by :quantity; without a quantity the
whole bundle is recorded. Bundles awaiting rework are rejected. Either every
bundle is recorded or none is.

Example:
  seamline inspect-batch --order PO-1 --bundle b1 --bundle b2:35 --warehouse W1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspectBatch(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.OrderID, "order", "", "order id (required)")
	cmd.Flags().StringArrayVar(&opts.Bundles, "bundle", nil, "bundle id or id:quantity (repeatable)")
	cmd.Flags().StringVar(&opts.Warehouse, "warehouse", "", "receiving warehouse")
	_ = cmd.MarkFlagRequired("order")
	_ = cmd.MarkFlagRequired("bundle")

	return cmd
}

func runInspectBatch(opts *InspectBatchOptions, cmd *cobra.Command) error {
	items, err := parseBatchItems(opts.Bundles)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --bundle", err)
	}

	a, err := openApp(opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	receipt, err := a.store.SubmitBatchInspection(commandContext(cmd), model.BatchInspection{
		OrderID:   opts.OrderID,
		Warehouse: opts.Warehouse,
		Items:     items,
	})
	if err != nil {
		return domainError("inspect-batch", err)
	}
	opts.Logger.Info("batch inspection recorded", "order_id", opts.OrderID, "bundles", len(items))
	return opts.formatter(cmd).Receipt("inspect-batch", receipt)
}

// parseBatchItems parses "id" and "id:quantity" values.
func parseBatchItems(values []string) ([]model.BatchItem, error) {
	items := make([]model.BatchItem, 0, len(values))
	for _, v := range values {
		id, qty, hasQty := strings.Cut(v, ":")
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("empty bundle id in %q", v)
		}
		item := model.BatchItem{BundleID: id}
		if hasQty {
			n, err := strconv.Atoi(strings.TrimSpace(qty))
			if err != nil || n < 0 {
				return nil, fmt.Errorf("invalid quantity in %q", v)
			}
			item.Quantity = n
		}
		items = append(items, item)
	}
	return items, nil
}

// CloseOptions holds flags for the close command.
type CloseOptions struct {
	*RootOptions
	Remark string
}

// NewCloseCommand creates the close command.
func NewCloseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CloseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "close <order-id>",
		Short: "Close a production order",
		Long: `Mark an order completed. Closing requires qualified warehoused quantity of at
least the configured share (policy.close_tolerance_percent, 90 by default)
of the cut quantity; a shortfall is reported with the missing quantity.
Closing an already completed order changes nothing.

Example:
  seamline close PO-1 --remark "all warehoused"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClose(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Remark, "remark", "", "close remark")

	return cmd
}

func runClose(opts *CloseOptions, orderID string, cmd *cobra.Command) error {
	a, err := openApp(opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	receipt, order, err := a.store.CloseOrder(commandContext(cmd), orderID, opts.Remark, a.cfg.Policy.CloseTolerancePercent)
	if err != nil {
		return domainError("close", err)
	}
	opts.Logger.Info("order closed", "order_id", orderID, "status", string(receipt.Status),
		"completed_quantity", order.CompletedQuantity)
	return opts.formatter(cmd).Receipt("close", receipt)
}
