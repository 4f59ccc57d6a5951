package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsBlocked(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"unqualified", true},
		{"UNQUALIFIED", true},
		{"defective", true},
		{"awaiting_repair", true},
		{"rework", true},
		{"repaired", false},
		{"defect_cleared", false},
		{"qualified", false},
		{"created", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			assert.Equal(t, tt.want, IsBlocked(tt.status))
		})
	}
}

func TestIsCleared(t *testing.T) {
	assert.True(t, IsCleared("repaired"))
	assert.True(t, IsCleared(" Cleared "))
	assert.False(t, IsCleared("unqualified"))
}
