// Package projection turns one order's stored state into its progress read
// model.
//
// Load captures a Snapshot: the order, its workflow nodes, cutting bundles,
// every scan event (following pagination to the end), inspection records,
// and the procurement arrival. Nothing is computed until every fetch has
// succeeded, so a read model never mixes inputs from different moments.
// Any fetch failure is reported as a TransientFetch error.
//
// Project is pure: it reduces a Snapshot to a Progress with per-node
// statistics, order percentage, current node, per-bundle repair state, and
// the close decision.
package projection
