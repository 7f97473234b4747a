package simulation

import "math"

// Seasonal constants shared by the generator and the simulator.
const (
	yearlyAmplitude = 10.0
	weekendUplift   = 15.0
	daysPerYear     = 365.0
)

// yearlyComponent is one sine oscillation per calendar year with
// amplitude 10, evaluated at the 1-based ordinal day of the year.
func yearlyComponent(d DateKey) float64 {
	return yearlyAmplitude * math.Sin(float64(d.YearDay())*2*math.Pi/daysPerYear)
}

// weeklyComponent is the flat weekend uplift: +15 on Saturday and
// Sunday, 0 on weekdays.
func weeklyComponent(d DateKey) float64 {
	if d.IsWeekend() {
		return weekendUplift
	}
	return 0
}

// roundNonNegative clamps v at zero, then rounds half away from zero.
func roundNonNegative(v float64) int {
	return int(math.Round(math.Max(0, v)))
}
