package service

// aggregate is what one sample contributes to the daily and monthly
// counters, given the sampling interval and the rate in effect when the
// sample was processed.
type aggregate struct {
	EnergyKwh      float64
	CostBdt        float64
	RuntimeMinutes int
}

// computeAggregate converts an instantaneous power reading that stands for
// intervalMinutes of operation into energy/cost deltas.
// energy(kWh) = W * min / 60000.
func computeAggregate(powerWatts float64, intervalMinutes int, rateBdtPerKwh float64) aggregate {
	energy := powerWatts * float64(intervalMinutes) / 60000
	agg := aggregate{
		EnergyKwh: energy,
		CostBdt:   energy * rateBdtPerKwh,
	}
	if powerWatts > 0 {
		agg.RuntimeMinutes = intervalMinutes
	}
	return agg
}

// inPeakWindow reports whether an hour falls inside [start, end], both
// bounds inclusive.
func inPeakWindow(hour, start, end int) bool {
	return hour >= start && hour <= end
}
