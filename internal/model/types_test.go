package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScanEventCounts(t *testing.T) {
	tests := []struct {
		name string
		ev   ScanEvent
		want bool
	}{
		{"success positive", ScanEvent{Result: ScanSuccess, Quantity: 3}, true},
		{"success zero", ScanEvent{Result: ScanSuccess, Quantity: 0}, false},
		{"failure", ScanEvent{Result: ScanFailure, Quantity: 3}, false},
		{"success negative", ScanEvent{Result: ScanSuccess, Quantity: -1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ev.Counts())
		})
	}
}

func TestEffectiveStageFallsBackToProcess(t *testing.T) {
	assert.Equal(t, "车缝", ScanEvent{StageLabel: "车缝", ProcessLabel: "上领"}.EffectiveStage())
	assert.Equal(t, "上领", ScanEvent{ProcessLabel: "上领"}.EffectiveStage())
}

func TestOrderFrozen(t *testing.T) {
	assert.True(t, Order{Status: OrderCompleted}.Frozen())
	assert.False(t, Order{Status: OrderInProgress}.Frozen())
}
