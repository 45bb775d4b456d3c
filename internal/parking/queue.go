package parking

import "fmt"

// WaitingQueue is a bounded FIFO of vehicles waiting for a spot.
type WaitingQueue struct {
	capacity int
	pending  []*Vehicle
}

func NewWaitingQueue(capacity int) (*WaitingQueue, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("waiting queue: %w", ErrInvalidCapacity)
	}

	return &WaitingQueue{
		capacity: capacity,
		pending:  make([]*Vehicle, 0, capacity),
	}, nil
}

// Enqueue adds the vehicle to the tail and returns its position.
func (q *WaitingQueue) Enqueue(vehicle *Vehicle) (int, error) {
	if q.IsFull() {
		return 0, ErrAtCapacity
	}
	return q.push(vehicle), nil
}

func (q *WaitingQueue) Dequeue() (*Vehicle, error) {
	if q.IsEmpty() {
		return nil, ErrEmptyQueue
	}
	return q.pop(), nil
}

// push and pop skip the bounds checks; the lot calls them after checking
// IsFull and IsEmpty under its lock.
func (q *WaitingQueue) push(vehicle *Vehicle) int {
	q.pending = append(q.pending, vehicle)
	return len(q.pending) - 1
}

func (q *WaitingQueue) pop() *Vehicle {
	head := q.pending[0]
	copy(q.pending, q.pending[1:])
	q.pending[len(q.pending)-1] = nil
	q.pending = q.pending[:len(q.pending)-1]
	return head
}

func (q *WaitingQueue) Has(plate string) bool {
	for _, vehicle := range q.pending {
		if vehicle.Plate == plate {
			return true
		}
	}
	return false
}

func (q *WaitingQueue) IsEmpty() bool {
	return len(q.pending) == 0
}

func (q *WaitingQueue) IsFull() bool {
	return len(q.pending) >= q.capacity
}

func (q *WaitingQueue) Len() int {
	return len(q.pending)
}

func (q *WaitingQueue) Capacity() int {
	return q.capacity
}

// Snapshot returns the waiting vehicles head first.
func (q *WaitingQueue) Snapshot() []*Vehicle {
	vehicles := make([]*Vehicle, len(q.pending))
	copy(vehicles, q.pending)
	return vehicles
}

func (q *WaitingQueue) At(index int) (*Vehicle, error) {
	if index < 0 || index >= q.capacity {
		return nil, ErrInvalidIndex
	}
	if index >= len(q.pending) {
		return nil, nil
	}
	return q.pending[index], nil
}
