package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/seamline/internal/projection"
)

// ProgressOptions holds flags for the progress command.
type ProgressOptions struct {
	*RootOptions
	NoSave bool
}

// NewProgressCommand creates the progress command.
func NewProgressCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProgressOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "progress <order-id>...",
		Short: "Recompute and show order progress",
		Long: `Recompute the progress of one or more orders from a fresh snapshot of
their scan events, bundles and inspections, then show the progress board.

The computed percentage is saved on the order unless --no-save is given.
Saved progress never moves backwards and completed orders are not changed.

Example:
  seamline progress PO-1
  seamline progress PO-1 PO-2 --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgress(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.NoSave, "no-save", false, "do not save the computed progress on the order")

	return cmd
}

func runProgress(opts *ProgressOptions, orderIDs []string, cmd *cobra.Command) error {
	a, err := openApp(opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := commandContext(cmd)
	r := a.refresher()
	results := make([]projection.Progress, 0, len(orderIDs))
	var errs []error
	for _, id := range orderIDs {
		var (
			p   projection.Progress
			err error
		)
		if opts.NoSave {
			p, err = a.projector.Compute(ctx, id)
		} else {
			p, err = r.Refresh(ctx, id)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("order %s: %w", id, err))
			continue
		}
		results = append(results, p)
	}

	f := opts.formatter(cmd)
	if f.Format == "json" {
		if len(results) > 0 {
			if err := f.Success(results); err != nil {
				return err
			}
		}
	} else {
		boards := make([]string, len(results))
		for i, p := range results {
			boards[i] = RenderProgress(p)
		}
		if len(boards) > 0 {
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(boards, "\n\n"))
		}
	}
	return errors.Join(errs...)
}
