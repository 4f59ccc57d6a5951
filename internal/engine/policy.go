package engine

// ProgressStrategy controls how per-node ratios reduce to order progress.
type ProgressStrategy int

const (
	// Sequential stops at the first node below the completion ratio.
	Sequential ProgressStrategy = iota
	// Additive sums every node's weighted ratio regardless of order.
	Additive
)

// String returns the configuration spelling of the strategy.
func (s ProgressStrategy) String() string {
	switch s {
	case Sequential:
		return "sequential"
	case Additive:
		return "additive"
	default:
		return "unknown"
	}
}

// ParseProgressStrategy parses a configuration value. Empty means Sequential.
func ParseProgressStrategy(s string) (ProgressStrategy, bool) {
	switch s {
	case "", "sequential":
		return Sequential, true
	case "additive":
		return Additive, true
	default:
		return Sequential, false
	}
}

// Default business policy values.
const (
	DefaultNodeCompleteRatio     = 0.98
	DefaultCloseTolerancePercent = 90
)

// Policy holds the business rules that would otherwise be literals in the
// aggregation code.
type Policy struct {
	// NodeCompleteRatio is the ratio at which a node counts as finished.
	NodeCompleteRatio float64

	// CloseTolerancePercent is the share of cut quantity that must be
	// warehoused as qualified before an order may close.
	CloseTolerancePercent int

	Strategy ProgressStrategy
}

// DefaultPolicy returns the production defaults: 98% node completion,
// 90% close tolerance, sequential progress.
func DefaultPolicy() Policy {
	return Policy{
		NodeCompleteRatio:     DefaultNodeCompleteRatio,
		CloseTolerancePercent: DefaultCloseTolerancePercent,
		Strategy:              Sequential,
	}
}

// normalized fills zero-valued fields with defaults.
func (p Policy) normalized() Policy {
	if p.NodeCompleteRatio <= 0 || p.NodeCompleteRatio > 1 {
		p.NodeCompleteRatio = DefaultNodeCompleteRatio
	}
	if p.CloseTolerancePercent <= 0 || p.CloseTolerancePercent > 100 {
		p.CloseTolerancePercent = DefaultCloseTolerancePercent
	}
	return p
}
