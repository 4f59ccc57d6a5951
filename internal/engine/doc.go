// Package engine projects an order's scan event log into node completion
// statistics and an order-level progress percentage.
//
// Everything here is a pure function over supplied inputs: no I/O, no
// shared mutable state. Callers fetch one consistent snapshot of events,
// bundles, and nodes (see package projection) and hand it over whole.
//
// Aggregation per node:
//  1. select successful positive-quantity events that match the node
//  2. group them by process label
//  3. per group, take the MAX quantity per bundle and SUM the maxima,
//     plus the plain sum of events that carry no bundle
//  4. sum the groups and divide by the expected sub-process count
//  5. express the result as a percentage of the order total
//
// Order progress walks the nodes in sequence order with equal weights and
// stops at the first node below Policy.NodeCompleteRatio, so progress can
// never skip ahead of an unfinished predecessor.
package engine
