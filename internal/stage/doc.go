// Package stage canonicalizes free-text stage and process labels.
//
// Template vocabulary drifts over time ("裁床" vs "裁剪", "车工" vs "车缝"), and
// historical scan events must stay matchable under new node names. The
// package resolves every label once to a Key: a canonical name from a fixed
// alias table plus the set of stage categories the name belongs to.
//
// Matching degrades gracefully:
//  1. equal canonical names match
//  2. names sharing a category match (e.g. 质检 and 验货 are both Quality)
//  3. otherwise either name containing the other matches
//
// Unknown labels canonicalize to themselves, so new terminology falls back
// to substring matching instead of failing.
//
// All functions are pure and safe for concurrent use.
package stage
