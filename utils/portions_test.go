package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypicalPortionFor(t *testing.T) {
	assert.Equal(t, 550.0, TypicalPortionFor("burger").Calories)
	assert.Equal(t, 550.0, TypicalPortionFor("  Burger  ").Calories)

	// Unknown categories get the generic fallback, not zeros.
	assert.Equal(t, defaultPortion, TypicalPortionFor("casserole"))
	assert.Equal(t, defaultPortion, TypicalPortionFor(""))
}

func TestClampToBand(t *testing.T) {
	tests := []struct {
		name string
		v    float64
		ref  float64
		want float64
	}{
		{"inside band untouched", 500, 550, 500},
		{"below band raised", 100, 550, 275},
		{"above band lowered", 2000, 550, 825},
		{"zero ref passes through", 123, 0, 123},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampToBand(tt.v, tt.ref, 0.5))
		})
	}
}
