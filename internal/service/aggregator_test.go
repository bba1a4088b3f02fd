package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeAggregateExact(t *testing.T) {
	// 600W for one minute at 8 BDT/kWh.
	agg := computeAggregate(600, 1, 8)
	assert.InDelta(t, 0.01, agg.EnergyKwh, 1e-12)
	assert.InDelta(t, 0.08, agg.CostBdt, 1e-12)
	assert.Equal(t, 1, agg.RuntimeMinutes)
}

func TestComputeAggregateIdlePort(t *testing.T) {
	agg := computeAggregate(0, 1, 8)
	assert.Zero(t, agg.EnergyKwh)
	assert.Zero(t, agg.CostBdt)
	assert.Zero(t, agg.RuntimeMinutes)
}

func TestComputeAggregateLongerInterval(t *testing.T) {
	agg := computeAggregate(1200, 5, 10)
	assert.InDelta(t, 0.1, agg.EnergyKwh, 1e-12)
	assert.InDelta(t, 1.0, agg.CostBdt, 1e-12)
	assert.Equal(t, 5, agg.RuntimeMinutes)
}

func TestInPeakWindowInclusiveBounds(t *testing.T) {
	cases := []struct {
		hour int
		want bool
	}{
		{16, false},
		{17, true},
		{20, true},
		{23, true},
		{0, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, inPeakWindow(tc.hour, 17, 23), "hour %d", tc.hour)
	}
}
