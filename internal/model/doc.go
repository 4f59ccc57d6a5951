// Package model provides the read-model and event types shared by every
// seamline package.
//
// This package contains type definitions and identity helpers only. All other
// internal packages import model; model imports nothing internal.
//
// Key design constraints:
//   - ScanEvent and InspectionRecord are append-only facts; nothing mutates them
//   - Quantities are plain ints; percentages are ints clamped to [0,100]
//   - All JSON and YAML tags use snake_case
//   - Request fingerprints use NFC-normalized canonical JSON and SHA-256
package model
