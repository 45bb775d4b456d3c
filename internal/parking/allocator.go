package parking

import "fmt"

// SpotAllocator keeps parked vehicles in arrival order. A vehicle's position
// in that order is its spot index, so removing one shifts the later ones down.
type SpotAllocator struct {
	capacity int
	occupied []*Vehicle
}

func NewSpotAllocator(capacity int) (*SpotAllocator, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("spot allocator: %w", ErrInvalidCapacity)
	}

	return &SpotAllocator{
		capacity: capacity,
		occupied: make([]*Vehicle, 0, capacity),
	}, nil
}

// Park appends the vehicle and returns the spot index it landed on.
func (a *SpotAllocator) Park(vehicle *Vehicle) (int, error) {
	if a.IsFull() {
		return 0, ErrAtCapacity
	}
	return a.place(vehicle), nil
}

// place appends without a capacity check. Callers must hold a free spot.
func (a *SpotAllocator) place(vehicle *Vehicle) int {
	a.occupied = append(a.occupied, vehicle)
	return len(a.occupied) - 1
}

// Remove takes the first vehicle with the given plate out of its spot and
// returns it along with the index it occupied.
func (a *SpotAllocator) Remove(plate string) (*Vehicle, int, error) {
	index, ok := a.IndexOf(plate)
	if !ok {
		return nil, 0, ErrNotFound
	}

	vehicle := a.occupied[index]
	copy(a.occupied[index:], a.occupied[index+1:])
	a.occupied[len(a.occupied)-1] = nil
	a.occupied = a.occupied[:len(a.occupied)-1]

	return vehicle, index, nil
}

func (a *SpotAllocator) IndexOf(plate string) (int, bool) {
	for i, vehicle := range a.occupied {
		if vehicle.Plate == plate {
			return i, true
		}
	}
	return 0, false
}

func (a *SpotAllocator) Has(plate string) bool {
	_, ok := a.IndexOf(plate)
	return ok
}

func (a *SpotAllocator) IsFull() bool {
	return len(a.occupied) == a.capacity
}

func (a *SpotAllocator) Capacity() int {
	return a.capacity
}

func (a *SpotAllocator) Len() int {
	return len(a.occupied)
}

// Vehicles returns a copy of the occupied spots in index order.
func (a *SpotAllocator) Vehicles() []*Vehicle {
	vehicles := make([]*Vehicle, len(a.occupied))
	copy(vehicles, a.occupied)
	return vehicles
}

func (a *SpotAllocator) At(index int) (Spot, error) {
	if index < 0 || index >= a.capacity {
		return Spot{}, ErrInvalidIndex
	}

	spot := Spot{Index: index}
	if index < len(a.occupied) {
		spot.Vehicle = a.occupied[index]
	}
	return spot, nil
}

// Spots lists every spot, free ones included.
func (a *SpotAllocator) Spots() []Spot {
	spots := make([]Spot, a.capacity)
	for i := range spots {
		spots[i] = Spot{Index: i}
		if i < len(a.occupied) {
			spots[i].Vehicle = a.occupied[i]
		}
	}
	return spots
}
