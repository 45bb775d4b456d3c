package parking

import "time"

const DefaultRatePerHour = 5.0

// Tariff bills parked time continuously at a flat hourly rate.
type Tariff struct {
	RatePerHour float64
}

func DefaultTariff() Tariff {
	return Tariff{RatePerHour: DefaultRatePerHour}
}

// Cost is unrounded. A now earlier than entry bills nothing.
func (t Tariff) Cost(entry, now time.Time) float64 {
	return t.CostFor(now.Sub(entry))
}

func (t Tariff) CostFor(elapsed time.Duration) float64 {
	if elapsed < 0 {
		return 0
	}
	return t.RatePerHour * elapsed.Seconds() / 3600.0
}

func Cost(entry, now time.Time) float64 {
	return DefaultTariff().Cost(entry, now)
}
