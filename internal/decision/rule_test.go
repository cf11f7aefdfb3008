package decision

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecide_Boundary(t *testing.T) {
	r := Default()

	tests := []struct {
		name string
		p    float64
		want bool
	}{
		{"exactly threshold", 0.6, true},
		{"just below", 0.5999999999, false},
		{"next float below", math.Nextafter(0.6, 0), false},
		{"above", 0.61, true},
		{"certain up", 1.0, true},
		{"coin flip", 0.5, false},
		{"certain down", 0.0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Decide(tt.p))
		})
	}
}

func TestLabelAndDirection(t *testing.T) {
	assert.Equal(t, 1, Label(true))
	assert.Equal(t, 0, Label(false))
	assert.Equal(t, "Increase", Direction(true))
	assert.Equal(t, "Decrease", Direction(false))
}

func TestApply(t *testing.T) {
	r := Rule{Threshold: 0.6}
	assert.Equal(t, []int{0, 1, 1, 0}, r.Apply([]float64{0.2, 0.6, 0.95, 0.59}))
	assert.Empty(t, r.Apply(nil))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Default().Validate())
	assert.NoError(t, Rule{Threshold: 0}.Validate())
	assert.NoError(t, Rule{Threshold: 1}.Validate())
	assert.Error(t, Rule{Threshold: 1.2}.Validate())
	assert.Error(t, Rule{Threshold: -0.1}.Validate())
}
