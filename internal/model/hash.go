package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainScanSubmission = "seamline/scan-submission/v1"
	DomainScanEvent      = "seamline/scan-event/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint computes the content hash of a scan submission. The store keeps
// it next to the request id so a retried request can be told apart from a
// different payload that reuses the same id.
func (s ScanSubmission) Fingerprint() (string, error) {
	obj := map[string]any{
		"order_id":      s.OrderID,
		"bundle_id":     s.BundleID,
		"stage_label":   s.StageLabel,
		"process_label": s.ProcessLabel,
		"quantity":      s.Quantity,
		"result":        string(s.Result),
		"occurred_at":   s.OccurredAt.UTC().Format(time.RFC3339Nano),
		"operator_id":   s.OperatorID,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("Fingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainScanSubmission, canonical), nil
}

// ScanEventID derives the event id from the request id, so the same request
// always maps to the same event.
func ScanEventID(requestID string) string {
	return hashWithDomain(DomainScanEvent, []byte(requestID))[:32]
}
