package parking

// Spot is a read-only view of one parking spot. Vehicle is nil when the spot is free.
type Spot struct {
	Index   int
	Vehicle *Vehicle
}

func (s Spot) Occupied() bool {
	return s.Vehicle != nil
}
