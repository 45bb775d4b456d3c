package parking

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type ParkOutcome string

const (
	OutcomeParked   ParkOutcome = "parked"
	OutcomeQueued   ParkOutcome = "queued"
	OutcomeRejected ParkOutcome = "rejected"
)

type ParkResult struct {
	Outcome ParkOutcome
	Vehicle *Vehicle
	// Spot is set when Outcome is OutcomeParked.
	Spot int
	// Position is set when Outcome is OutcomeQueued.
	Position int
}

// Promotion records the queue head moving into the spot freed by a release.
type Promotion struct {
	Vehicle *Vehicle
	Spot    int
}

type ReleaseResult struct {
	Vehicle  *Vehicle
	Spot     int
	Duration time.Duration
	Cost     float64
	Promoted *Promotion
}

type VehicleInfo struct {
	Plate     string
	Spot      int
	EntryTime time.Time
	Elapsed   time.Duration
	Cost      float64
}

type Status struct {
	TotalSpots    int
	FreeSpots     int
	QueueCapacity int
	QueueLength   int
}

// Size limits shared by every surface that creates a lot.
const (
	MaxSpots         = 100
	MaxQueueCapacity = 20
)

type LotOption func(*Lot)

func WithTariff(tariff Tariff) LotOption {
	return func(l *Lot) {
		l.tariff = tariff
	}
}

func WithActivitySink(sink ActivitySink) LotOption {
	return func(l *Lot) {
		if sink != nil {
			l.sink = sink
		}
	}
}

// Lot owns the spots and the waiting queue and applies the parking policy.
// It is safe for concurrent use.
type Lot struct {
	mu     sync.Mutex
	spots  *SpotAllocator
	queue  *WaitingQueue
	tariff Tariff
	sink   ActivitySink
}

func NewLot(totalSpots, queueCapacity int, opts ...LotOption) (*Lot, error) {
	if totalSpots > MaxSpots {
		return nil, fmt.Errorf("%d spots exceeds %d: %w", totalSpots, MaxSpots, ErrInvalidCapacity)
	}
	if queueCapacity > MaxQueueCapacity {
		return nil, fmt.Errorf("%d waiting places exceeds %d: %w", queueCapacity, MaxQueueCapacity, ErrInvalidCapacity)
	}

	spots, err := NewSpotAllocator(totalSpots)
	if err != nil {
		return nil, err
	}

	queue, err := NewWaitingQueue(queueCapacity)
	if err != nil {
		return nil, err
	}

	l := &Lot{
		spots:  spots,
		queue:  queue,
		tariff: DefaultTariff(),
		sink:   nopSink{},
	}
	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

func (l *Lot) Tariff() Tariff {
	return l.tariff
}

// RequestPark parks the vehicle if a spot is free, queues it if the queue
// has room, and rejects it with ErrQueueFull otherwise.
func (l *Lot) RequestPark(ctx context.Context, plate string, now time.Time) (ParkResult, error) {
	plate, err := normalizePlate(plate)
	if err != nil {
		return ParkResult{Outcome: OutcomeRejected}, err
	}

	l.mu.Lock()

	if l.spots.Has(plate) || l.queue.Has(plate) {
		l.mu.Unlock()
		return ParkResult{Outcome: OutcomeRejected}, ErrDuplicatePlate
	}

	vehicle := NewVehicle(plate, now)

	var (
		result ParkResult
		event  Event
	)
	switch {
	case !l.spots.IsFull():
		spot := l.spots.place(vehicle)
		result = ParkResult{Outcome: OutcomeParked, Vehicle: vehicle, Spot: spot}
		event = Event{Kind: EventParked, Plate: plate, Spot: spot, At: now}
	case !l.queue.IsFull():
		position := l.queue.push(vehicle)
		result = ParkResult{Outcome: OutcomeQueued, Vehicle: vehicle, Position: position}
		event = Event{Kind: EventQueued, Plate: plate, Position: position, At: now}
	default:
		l.mu.Unlock()
		return ParkResult{Outcome: OutcomeRejected}, ErrQueueFull
	}

	l.mu.Unlock()

	l.sink.Record(ctx, event)
	return result, nil
}

// RequestRelease bills and removes a parked vehicle, then promotes the head
// of the waiting queue into the first free spot. Queued vehicles cannot be
// released.
func (l *Lot) RequestRelease(ctx context.Context, plate string, now time.Time) (ReleaseResult, error) {
	plate, err := normalizePlate(plate)
	if err != nil {
		return ReleaseResult{}, err
	}

	l.mu.Lock()

	index, ok := l.spots.IndexOf(plate)
	if !ok {
		l.mu.Unlock()
		return ReleaseResult{}, ErrNotFound
	}

	entry := l.spots.Vehicles()[index].EntryTime
	duration := elapsedSince(entry, now)
	cost := l.tariff.CostFor(duration)

	vehicle, spot, err := l.spots.Remove(plate)
	if err != nil {
		l.mu.Unlock()
		return ReleaseResult{}, err
	}

	result := ReleaseResult{
		Vehicle:  vehicle,
		Spot:     spot,
		Duration: duration,
		Cost:     cost,
	}
	events := []Event{{
		Kind:     EventReleased,
		Plate:    plate,
		Spot:     spot,
		Cost:     cost,
		Duration: duration,
		At:       now,
	}}

	// The removal above freed a spot, so the queue head always fits.
	if !l.queue.IsEmpty() {
		waiting := l.queue.pop()
		promotedSpot := l.spots.place(waiting)
		result.Promoted = &Promotion{Vehicle: waiting, Spot: promotedSpot}
		events = append(events, Event{Kind: EventPromoted, Plate: waiting.Plate, Spot: promotedSpot, At: now})
	}

	l.mu.Unlock()

	for _, event := range events {
		l.sink.Record(ctx, event)
	}
	return result, nil
}

// Query reports a parked vehicle's running bill. Queued vehicles are not found.
func (l *Lot) Query(_ context.Context, plate string, now time.Time) (VehicleInfo, error) {
	plate, err := normalizePlate(plate)
	if err != nil {
		return VehicleInfo{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	index, ok := l.spots.IndexOf(plate)
	if !ok {
		return VehicleInfo{}, ErrNotFound
	}

	vehicle := l.spots.Vehicles()[index]
	elapsed := elapsedSince(vehicle.EntryTime, now)

	return VehicleInfo{
		Plate:     vehicle.Plate,
		Spot:      index,
		EntryTime: vehicle.EntryTime,
		Elapsed:   elapsed,
		Cost:      l.tariff.CostFor(elapsed),
	}, nil
}

func (l *Lot) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	return Status{
		TotalSpots:    l.spots.Capacity(),
		FreeSpots:     l.spots.Capacity() - l.spots.Len(),
		QueueCapacity: l.queue.Capacity(),
		QueueLength:   l.queue.Len(),
	}
}

func (l *Lot) Spot(index int) (Spot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.spots.At(index)
}

func (l *Lot) Spots() []Spot {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.spots.Spots()
}

// Waiting returns the vehicle at a queue position, or nil if the position is empty.
func (l *Lot) Waiting(index int) (*Vehicle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.queue.At(index)
}

func (l *Lot) Queue() []*Vehicle {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.queue.Snapshot()
}

// elapsedSince clamps clock skew to zero so it is never billed or reported.
func elapsedSince(entry, now time.Time) time.Duration {
	if elapsed := now.Sub(entry); elapsed > 0 {
		return elapsed
	}
	return 0
}
