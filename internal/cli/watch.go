package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/seamline/internal/projection"
	"github.com/roach88/seamline/internal/refresh"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Interval time.Duration
	Once     bool
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep open orders' progress fresh",
		Long: `Recompute the progress of every open order on a fixed interval until
interrupted. Results are saved on the orders and, when redis_url is
configured, published to the Redis mirror for dashboards.

With --once, run a single pass over all open orders and print a summary.

Example:
  seamline watch --interval 1m
  seamline watch --once`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Interval, "interval", 0, "poll interval (default from config)")
	cmd.Flags().BoolVar(&opts.Once, "once", false, "run one refresh pass and exit")

	return cmd
}

func runWatch(opts *WatchOptions, cmd *cobra.Command) error {
	a, err := openApp(opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	var extra []refresh.Option
	if opts.Interval > 0 {
		extra = append(extra, refresh.WithInterval(opts.Interval))
	}
	r := a.refresher(extra...)

	if opts.Once {
		return watchOnce(opts, r, cmd)
	}

	ctx, stop := signalContext(cmd)
	defer stop()
	if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func watchOnce(opts *WatchOptions, r *refresh.Refresher, cmd *cobra.Command) error {
	passErr := r.RefreshAll(commandContext(cmd), refresh.TriggerExplicit)

	c := r.Cache()
	results := make([]projection.Progress, 0)
	for _, id := range c.Keys() {
		if e, ok := c.Get(id); ok && e.HasValue && !e.Failed() {
			results = append(results, e.Value)
		}
	}

	f := opts.formatter(cmd)
	if f.Format == "json" {
		if err := f.Success(results); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), RenderSummary(results))
	}
	return passErr
}
