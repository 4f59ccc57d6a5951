// Package store provides SQLite-backed storage for the production read
// model: orders, workflow node snapshots, cutting bundles, the scan event
// log, inspection records, and procurement arrivals.
//
// # Append-only logs
//
// Scan events and inspection records are never updated or deleted. Both
// carry an AUTOINCREMENT seq; every list query orders by it, and scan event
// paging uses it as the cursor.
//
// # Idempotent submission
//
// SubmitScanEvent records the client request id together with a content
// fingerprint of the payload (see model.ScanSubmission.Fingerprint):
//   - same id, same payload: Duplicate, nothing written
//   - same id, different payload: Rejected
//
// The event id is derived from the request id, so even a racing retry
// cannot insert a second event.
//
// # Derived quantities
//
// Order.CutQuantity and Order.WarehousedQualifiedQuantity are never stored;
// GetOrder sums cutting bundles and inspection records on read.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
