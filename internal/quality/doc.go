// Package quality reconciles inspection records into per-bundle rework
// state and validates new inspection submissions against it.
//
// A bundle's repair pool is every defect ever recorded against it. Quantity
// re-inspected after rework (a record carrying a repair remark) drains the
// pool; whatever is left may still be re-inspected. Bundles whose status
// marks them as awaiting rework are "blocked": they cannot join a batch and
// each submission for them must name the repair and stay within the
// remaining pool.
package quality
