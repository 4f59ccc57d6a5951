package quality

import "strings"

var (
	blockedMarkers = []string{"unqualified", "defect", "repair", "rework"}
	clearedMarkers = []string{"repaired", "cleared"}
)

// IsCleared reports whether a bundle status marks finished rework.
func IsCleared(status string) bool {
	s := strings.ToLower(strings.TrimSpace(status))
	for _, m := range clearedMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// IsBlocked reports whether a bundle status marks it as defective and
// awaiting rework. Cleared statuses are never blocked, so "repaired" does
// not count even though it contains "repair".
func IsBlocked(status string) bool {
	if IsCleared(status) {
		return false
	}
	s := strings.ToLower(strings.TrimSpace(status))
	for _, m := range blockedMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
