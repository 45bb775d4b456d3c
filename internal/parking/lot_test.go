package parking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"testing"
	"time"
)

type recordingSink struct {
	events []Event
}

func (s *recordingSink) Record(_ context.Context, event Event) {
	s.events = append(s.events, event)
}

func newTestLot(t *testing.T, spots, queue int, opts ...LotOption) *Lot {
	t.Helper()
	lot, err := NewLot(spots, queue, opts...)
	if err != nil {
		t.Fatalf("Failed to create lot: %v", err)
	}
	return lot
}

func TestNewLotRejectsInvalidCapacity(t *testing.T) {
	if _, err := NewLot(0, 1); !errors.Is(err, ErrInvalidCapacity) {
		t.Errorf("Expected ErrInvalidCapacity for zero spots, got %v", err)
	}
	if _, err := NewLot(1, 0); !errors.Is(err, ErrInvalidCapacity) {
		t.Errorf("Expected ErrInvalidCapacity for zero queue, got %v", err)
	}
}

func TestNewLotEnforcesSizeLimits(t *testing.T) {
	if _, err := NewLot(MaxSpots+1, 1); !errors.Is(err, ErrInvalidCapacity) {
		t.Errorf("Expected ErrInvalidCapacity for %d spots, got %v", MaxSpots+1, err)
	}
	if _, err := NewLot(1, MaxQueueCapacity+1); !errors.Is(err, ErrInvalidCapacity) {
		t.Errorf("Expected ErrInvalidCapacity for %d waiting places, got %v", MaxQueueCapacity+1, err)
	}
	if _, err := NewLot(math.MaxInt, 1); !errors.Is(err, ErrInvalidCapacity) {
		t.Errorf("Expected ErrInvalidCapacity for huge lot, got %v", err)
	}
	if _, err := NewLot(MaxSpots, MaxQueueCapacity); err != nil {
		t.Errorf("Expected largest lot to be accepted, got %v", err)
	}
}

// One spot, one queue place: park, queue, then reject.
func TestLotParkQueueReject(t *testing.T) {
	ctx := context.Background()
	lot := newTestLot(t, 1, 1)

	result, err := lot.RequestPark(ctx, "A1", baseTime)
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if result.Outcome != OutcomeParked || result.Spot != 0 {
		t.Errorf("Expected Parked(0), got %s(%d)", result.Outcome, result.Spot)
	}

	result, err = lot.RequestPark(ctx, "B2", baseTime)
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if result.Outcome != OutcomeQueued || result.Position != 0 {
		t.Errorf("Expected Queued(0), got %s(%d)", result.Outcome, result.Position)
	}

	result, err = lot.RequestPark(ctx, "C3", baseTime)
	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("Expected ErrQueueFull, got %v", err)
	}
	if result.Outcome != OutcomeRejected {
		t.Errorf("Expected Rejected, got %s", result.Outcome)
	}
}

func TestLotReleasePromotesQueueHead(t *testing.T) {
	ctx := context.Background()
	lot := newTestLot(t, 1, 1)
	lot.RequestPark(ctx, "A1", baseTime)
	lot.RequestPark(ctx, "B2", baseTime.Add(time.Minute))

	result, err := lot.RequestRelease(ctx, "A1", baseTime.Add(3600*time.Second))
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if result.Cost != 5.0 {
		t.Errorf("Expected cost 5.0, got %f", result.Cost)
	}
	if result.Duration != time.Hour {
		t.Errorf("Expected duration 1h, got %v", result.Duration)
	}
	if result.Promoted == nil {
		t.Fatal("Expected B2 to be promoted")
	}
	if result.Promoted.Vehicle.Plate != "B2" || result.Promoted.Spot != 0 {
		t.Errorf("Expected promotion (B2, 0), got (%s, %d)", result.Promoted.Vehicle.Plate, result.Promoted.Spot)
	}

	status := lot.Status()
	if status.QueueLength != 0 || status.FreeSpots != 0 {
		t.Errorf("Expected full lot and empty queue, got %+v", status)
	}
}

func TestLotPromotionKeepsEntryTime(t *testing.T) {
	ctx := context.Background()
	lot := newTestLot(t, 1, 1)
	lot.RequestPark(ctx, "A1", baseTime)
	queuedAt := baseTime.Add(10 * time.Minute)
	lot.RequestPark(ctx, "B2", queuedAt)
	lot.RequestRelease(ctx, "A1", baseTime.Add(time.Hour))

	info, err := lot.Query(context.Background(), "B2", baseTime.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if !info.EntryTime.Equal(queuedAt) {
		t.Errorf("Expected entry time %v, got %v", queuedAt, info.EntryTime)
	}
}

func TestLotRejectsDuplicatePlate(t *testing.T) {
	ctx := context.Background()
	lot := newTestLot(t, 1, 2)

	if _, err := lot.RequestPark(ctx, "X", baseTime); err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if _, err := lot.RequestPark(ctx, "X", baseTime); !errors.Is(err, ErrDuplicatePlate) {
		t.Errorf("Expected ErrDuplicatePlate for parked plate, got %v", err)
	}

	lot.RequestPark(ctx, "Y", baseTime)
	if _, err := lot.RequestPark(ctx, "Y", baseTime); !errors.Is(err, ErrDuplicatePlate) {
		t.Errorf("Expected ErrDuplicatePlate for queued plate, got %v", err)
	}
}

func TestLotRejectsBlankPlate(t *testing.T) {
	lot := newTestLot(t, 1, 1)

	if _, err := lot.RequestPark(context.Background(), "  ", baseTime); !errors.Is(err, ErrInvalidPlate) {
		t.Errorf("Expected ErrInvalidPlate, got %v", err)
	}
}

func TestLotReleaseNotFound(t *testing.T) {
	lot := newTestLot(t, 2, 1)

	if _, err := lot.RequestRelease(context.Background(), "Z", baseTime); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestLotQueuedVehicleIsNotReleasableOrQueryable(t *testing.T) {
	ctx := context.Background()
	lot := newTestLot(t, 1, 1)
	lot.RequestPark(ctx, "A1", baseTime)
	lot.RequestPark(ctx, "B2", baseTime)

	if _, err := lot.RequestRelease(ctx, "B2", baseTime); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound releasing a queued plate, got %v", err)
	}
	if _, err := lot.Query(context.Background(), "B2", baseTime); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound querying a queued plate, got %v", err)
	}
}

func TestLotReleaseCompactsAndPromotesToTail(t *testing.T) {
	ctx := context.Background()
	lot := newTestLot(t, 3, 2)
	lot.RequestPark(ctx, "A", baseTime)
	lot.RequestPark(ctx, "B", baseTime)
	lot.RequestPark(ctx, "C", baseTime)
	lot.RequestPark(ctx, "D", baseTime)

	result, err := lot.RequestRelease(ctx, "A", baseTime.Add(time.Hour))
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if result.Spot != 0 {
		t.Errorf("Expected A to leave spot 0, got %d", result.Spot)
	}
	if result.Promoted == nil || result.Promoted.Spot != 2 {
		t.Fatalf("Expected D promoted to spot 2, got %+v", result.Promoted)
	}

	want := []string{"B", "C", "D"}
	for i, spot := range lot.Spots() {
		if !spot.Occupied() || spot.Vehicle.Plate != want[i] {
			t.Errorf("Expected %s at spot %d, got %+v", want[i], i, spot)
		}
	}
}

func TestLotReleaseWithoutQueue(t *testing.T) {
	ctx := context.Background()
	lot := newTestLot(t, 2, 1)
	lot.RequestPark(ctx, "A", baseTime)

	result, err := lot.RequestRelease(ctx, "A", baseTime.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if result.Promoted != nil {
		t.Errorf("Expected no promotion, got %+v", result.Promoted)
	}
	if result.Cost < 0 {
		t.Errorf("Expected non-negative cost, got %f", result.Cost)
	}
	if lot.Status().FreeSpots != 2 {
		t.Errorf("Expected 2 free spots, got %d", lot.Status().FreeSpots)
	}
}

func TestLotQuery(t *testing.T) {
	ctx := context.Background()
	lot := newTestLot(t, 2, 1)
	lot.RequestPark(ctx, "A", baseTime)
	lot.RequestPark(ctx, "B", baseTime)

	first, err := lot.Query(context.Background(), "B", baseTime.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if first.Spot != 1 || first.Elapsed != 2*time.Hour || first.Cost != 10 {
		t.Errorf("Unexpected query result: %+v", first)
	}

	second, _ := lot.Query(context.Background(), "B", baseTime.Add(2*time.Hour+time.Second))
	if second.Cost < first.Cost {
		t.Errorf("Expected non-decreasing cost, got %f then %f", first.Cost, second.Cost)
	}

	if _, err := lot.Query(context.Background(), "Z", baseTime); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestLotStatus(t *testing.T) {
	ctx := context.Background()
	lot := newTestLot(t, 2, 3)
	lot.RequestPark(ctx, "A", baseTime)
	lot.RequestPark(ctx, "B", baseTime)
	lot.RequestPark(ctx, "C", baseTime)

	status := lot.Status()
	want := Status{TotalSpots: 2, FreeSpots: 0, QueueCapacity: 3, QueueLength: 1}
	if status != want {
		t.Errorf("Expected %+v, got %+v", want, status)
	}
}

func TestLotWaitingAndQueue(t *testing.T) {
	ctx := context.Background()
	lot := newTestLot(t, 1, 2)
	lot.RequestPark(ctx, "A", baseTime)
	lot.RequestPark(ctx, "B", baseTime)

	vehicle, err := lot.Waiting(0)
	if err != nil || vehicle == nil || vehicle.Plate != "B" {
		t.Errorf("Expected B waiting at 0, got %v (%v)", vehicle, err)
	}

	if queue := lot.Queue(); len(queue) != 1 {
		t.Errorf("Expected 1 waiting vehicle, got %d", len(queue))
	}

	spot, err := lot.Spot(0)
	if err != nil || spot.Vehicle.Plate != "A" {
		t.Errorf("Expected A at spot 0, got %+v (%v)", spot, err)
	}
}

func TestLotRecordsActivity(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	lot := newTestLot(t, 1, 1, WithActivitySink(sink))

	lot.RequestPark(ctx, "A1", baseTime)
	lot.RequestPark(ctx, "B2", baseTime)
	lot.RequestPark(ctx, "C3", baseTime)
	lot.RequestPark(ctx, "A1", baseTime)
	lot.RequestRelease(ctx, "A1", baseTime.Add(time.Hour))

	kinds := []EventKind{EventParked, EventQueued, EventReleased, EventPromoted}
	if len(sink.events) != len(kinds) {
		t.Fatalf("Expected %d events, got %d", len(kinds), len(sink.events))
	}
	for i, kind := range kinds {
		if sink.events[i].Kind != kind {
			t.Errorf("Expected event %d to be %s, got %s", i, kind, sink.events[i].Kind)
		}
	}
	if sink.events[2].Cost != 5 {
		t.Errorf("Expected released event to carry cost 5, got %f", sink.events[2].Cost)
	}
}

func TestLotWithTariff(t *testing.T) {
	ctx := context.Background()
	lot := newTestLot(t, 1, 1, WithTariff(Tariff{RatePerHour: 8}))
	lot.RequestPark(ctx, "A", baseTime)

	result, _ := lot.RequestRelease(ctx, "A", baseTime.Add(time.Hour))
	if result.Cost != 8 {
		t.Errorf("Expected cost 8, got %f", result.Cost)
	}
}

// Drives a deterministic mix of requests and checks the capacity and
// uniqueness invariants after every step.
func TestLotInvariantsHold(t *testing.T) {
	ctx := context.Background()
	lot := newTestLot(t, 3, 2)
	now := baseTime

	for step := 0; step < 200; step++ {
		now = now.Add(time.Minute)
		plate := fmt.Sprintf("P%d", (step*7)%11)
		if step%3 == 0 {
			lot.RequestRelease(ctx, plate, now)
		} else {
			lot.RequestPark(ctx, plate, now)
		}

		parked := lot.Spots()
		queue := lot.Queue()
		seen := map[string]bool{}
		occupied := 0
		for i, spot := range parked {
			if !spot.Occupied() {
				for _, rest := range parked[i:] {
					if rest.Occupied() {
						t.Fatalf("step %d: occupied spot after a free one", step)
					}
				}
				break
			}
			occupied++
			if seen[spot.Vehicle.Plate] {
				t.Fatalf("step %d: duplicate plate %s", step, spot.Vehicle.Plate)
			}
			seen[spot.Vehicle.Plate] = true
		}
		for _, vehicle := range queue {
			if seen[vehicle.Plate] {
				t.Fatalf("step %d: duplicate plate %s", step, vehicle.Plate)
			}
			seen[vehicle.Plate] = true
		}
		if occupied > 3 || len(queue) > 2 {
			t.Fatalf("step %d: capacity exceeded (%d parked, %d queued)", step, occupied, len(queue))
		}
		if len(queue) > 0 && occupied < 3 {
			t.Fatalf("step %d: vehicles waiting while spots are free", step)
		}
	}
}

func TestEventMessage(t *testing.T) {
	event := Event{Kind: EventReleased, Plate: "A1", Cost: 5}
	if got := event.Message(); got != "Vehicle A1 left the parking lot, charged 5.00" {
		t.Errorf("Unexpected message: %q", got)
	}

	event = Event{Kind: EventQueued, Plate: "B2", Position: 0}
	if got := event.Message(); got != "Vehicle B2 joined the waiting queue at position 1" {
		t.Errorf("Unexpected message: %q", got)
	}
}

func TestLotReleaseBeforeEntryReportsZero(t *testing.T) {
	ctx := context.Background()
	lot := newTestLot(t, 1, 1)
	lot.RequestPark(ctx, "A", baseTime)

	result, err := lot.RequestRelease(ctx, "A", baseTime.Add(-time.Hour))
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if result.Duration != 0 {
		t.Errorf("Expected zero duration, got %v", result.Duration)
	}
	if result.Cost != 0 {
		t.Errorf("Expected zero cost, got %f", result.Cost)
	}
}

func TestLotConcurrentUse(t *testing.T) {
	ctx := context.Background()
	lot := newTestLot(t, 5, 5)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		collected float64
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			plate := fmt.Sprintf("C%02d", id)

			result, err := lot.RequestPark(ctx, plate, baseTime)
			if errors.Is(err, ErrQueueFull) {
				return
			}
			if err != nil {
				t.Errorf("Unexpected error for %s: %v", plate, err)
				return
			}
			if result.Outcome == OutcomeParked {
				lot.Query(ctx, plate, baseTime.Add(time.Minute))
			}
			lot.Status()
			lot.Spots()
			lot.Queue()

			// queued vehicles cannot leave until promoted
			for {
				release, err := lot.RequestRelease(ctx, plate, baseTime.Add(time.Hour))
				if err == nil {
					mu.Lock()
					collected += release.Cost
					mu.Unlock()
					return
				}
				if !errors.Is(err, ErrNotFound) {
					t.Errorf("Unexpected release error for %s: %v", plate, err)
					return
				}
				runtime.Gosched()
			}
		}(i)
	}
	wg.Wait()

	status := lot.Status()
	if status.FreeSpots != 5 || status.QueueLength != 0 {
		t.Errorf("Expected empty lot after all releases, got %+v", status)
	}
	if collected <= 0 || math.Mod(collected, 5) != 0 {
		t.Errorf("Expected whole hours billed at 5.0, got %f", collected)
	}
}
