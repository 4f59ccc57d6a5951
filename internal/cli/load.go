package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/seamline/internal/model"
	"github.com/roach88/seamline/internal/store"
)

// Fixture is the import format of the load command: orders with their
// workflow node snapshot, cutting bundles and material arrival.
type Fixture struct {
	Orders []FixtureOrder `yaml:"orders"`
}

// FixtureOrder is one order to import.
type FixtureOrder struct {
	Order       model.Order               `yaml:"order"`
	Nodes       []model.WorkflowNode      `yaml:"nodes,omitempty"`
	Bundles     []model.CuttingBundle     `yaml:"bundles,omitempty"`
	Procurement *model.ProcurementArrival `yaml:"procurement,omitempty"`
}

// LoadResult counts what was imported.
type LoadResult struct {
	Orders  int `json:"orders"`
	Nodes   int `json:"nodes"`
	Bundles int `json:"bundles"`
	Arrival int `json:"arrivals"`
}

func (r LoadResult) String() string {
	return fmt.Sprintf("Loaded %d orders, %d nodes, %d bundles, %d arrivals", r.Orders, r.Nodes, r.Bundles, r.Arrival)
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <fixture.yaml>",
		Short: "Import orders, nodes, bundles and arrivals",
		Long: `Import production orders from a YAML fixture. Orders and bundles are
upserted with the fixture's values; a node list replaces the order's stored
workflow snapshot.

Example fixture:
  orders:
    - order: {id: PO-1, order_no: NO-1, style_no: ST-001, order_quantity: 100}
      nodes:
        - {id: n1, name: 裁剪, sequence_index: 0}
        - {id: n2, name: 车缝, sequence_index: 1, sub_processes: 2}
      bundles:
        - {id: b1, bundle_no: 1, quantity: 60}
      procurement: {arrived_quantity: 100, arrival_date: 2026-03-01T00:00:00Z}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runLoad(opts *RootOptions, path string, cmd *cobra.Command) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read fixture", err)
	}
	fx, err := ParseFixture(data)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid fixture", err)
	}

	a, err := openApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := importFixture(commandContext(cmd), a.store, fx)
	if err != nil {
		return err
	}
	opts.Logger.Info("fixture loaded", "path", path, "orders", result.Orders, "bundles", result.Bundles)
	return opts.formatter(cmd).Success(result)
}

// ParseFixture decodes a fixture. Unknown fields are rejected.
func ParseFixture(data []byte) (Fixture, error) {
	var fx Fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil && !errors.Is(err, io.EOF) {
		return Fixture{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	for i, o := range fx.Orders {
		if o.Order.ID == "" {
			return Fixture{}, fmt.Errorf("orders[%d].order.id is required", i)
		}
	}
	return fx, nil
}

func importFixture(ctx context.Context, st *store.Store, fx Fixture) (LoadResult, error) {
	var result LoadResult
	for _, fo := range fx.Orders {
		o := fo.Order
		if err := st.PutOrder(ctx, o); err != nil {
			return result, fmt.Errorf("order %s: %w", o.ID, err)
		}
		result.Orders++

		if len(fo.Nodes) > 0 {
			if err := st.PutWorkflowNodes(ctx, o.ID, fo.Nodes); err != nil {
				return result, fmt.Errorf("order %s nodes: %w", o.ID, err)
			}
			result.Nodes += len(fo.Nodes)
		}
		if len(fo.Bundles) > 0 {
			bundles := make([]model.CuttingBundle, len(fo.Bundles))
			for i, b := range fo.Bundles {
				if b.OrderID == "" {
					b.OrderID = o.ID
				}
				bundles[i] = b
			}
			if err := st.PutCuttingBundles(ctx, bundles); err != nil {
				return result, fmt.Errorf("order %s bundles: %w", o.ID, err)
			}
			result.Bundles += len(bundles)
		}
		if fo.Procurement != nil {
			arrival := *fo.Procurement
			if arrival.OrderNo == "" {
				arrival.OrderNo = o.OrderNo
			}
			if err := st.PutProcurementArrival(ctx, arrival); err != nil {
				return result, fmt.Errorf("order %s arrival: %w", o.ID, err)
			}
			result.Arrival++
		}
	}
	return result, nil
}
