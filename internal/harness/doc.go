// Package harness runs production scenarios end to end for conformance
// tests.
//
// A scenario seeds one order (nodes, cutting bundles, optional procurement
// arrival and style templates) into a fresh in-memory store, replays a list
// of steps through the same store operations the CLI uses, projects the
// order's read model and evaluates assertions against it.
//
// # Scenario Format
//
//	name: sewing_in_progress
//	description: "Two sewing sub-processes, one finished"
//	templates: ../templates/styles.cue   # optional, relative to the file
//	start: 2026-03-01T08:00:00Z          # clock start, optional
//	order:
//	  id: PO-1
//	  order_no: NO-1
//	  style_no: ST-001
//	  order_quantity: 100
//	bundles:
//	  - {id: b1, order_id: PO-1, quantity: 50}
//	steps:
//	  - scan: {bundle_id: b1, stage_label: 车缝, process_label: 上领, quantity: 50}
//	  - inspect: {bundle_id: b1, inspected_quantity: 50, unqualified_quantity: 2,
//	              defect_category: 跳线, handling_method: 返修}
//	    expect: {status: accepted}
//	  - refresh: true
//	  - close: {remark: done}
//	    expect: {status: rejected, error_kind: GATE_VIOLATION}
//	assertions:
//	  - type: progress
//	    expect: {percent: 25, current_node: 车缝}
//	  - type: node
//	    node: 车缝
//	    expect: {completed_qty: 25}
//
// Step order ids default to the scenario order. Scan request ids and
// inspection record ids come from fixed generators, and scans without
// occurred_at take the next tick of a deterministic clock, so a scenario
// always produces the same snapshot.
//
// # Assertion Types
//
//   - progress: subset match on the order read model
//   - node: subset match on one node's statistics
//   - repair: subset match on one bundle's rework reconciliation
//   - close_gate: subset match on the close decision
//   - order: subset match on the stored order
//
// Golden snapshots of the step outcomes and final read model live in
// testdata/golden and are compared with goldie.
package harness
