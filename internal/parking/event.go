package parking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type EventKind string

const (
	EventParked   EventKind = "parked"
	EventQueued   EventKind = "queued"
	EventReleased EventKind = "released"
	EventPromoted EventKind = "promoted"
)

// Event describes one successful change to the lot.
type Event struct {
	Kind  EventKind `json:"kind"`
	Plate string    `json:"plate"`
	// Spot is the spot index for parked, released and promoted events.
	Spot int `json:"spot"`
	// Position is the queue index for queued events.
	Position int           `json:"position"`
	Cost     float64       `json:"cost"`
	Duration time.Duration `json:"-"`
	At       time.Time     `json:"at"`
}

// MarshalJSON reports Duration in seconds, matching the HTTP API.
func (e Event) MarshalJSON() ([]byte, error) {
	type plain Event
	return json.Marshal(struct {
		plain
		DurationSeconds float64 `json:"duration_seconds"`
	}{plain(e), e.Duration.Seconds()})
}

func (e Event) Message() string {
	switch e.Kind {
	case EventParked:
		return fmt.Sprintf("Vehicle %s entered the parking lot at spot %d", e.Plate, e.Spot+1)
	case EventQueued:
		return fmt.Sprintf("Vehicle %s joined the waiting queue at position %d", e.Plate, e.Position+1)
	case EventReleased:
		return fmt.Sprintf("Vehicle %s left the parking lot, charged %.2f", e.Plate, e.Cost)
	case EventPromoted:
		return fmt.Sprintf("Vehicle %s moved from the waiting queue to spot %d", e.Plate, e.Spot+1)
	default:
		return fmt.Sprintf("Vehicle %s: %s", e.Plate, e.Kind)
	}
}

// ActivitySink receives lot events after the state change has been applied.
type ActivitySink interface {
	Record(ctx context.Context, event Event)
}

type nopSink struct{}

func (nopSink) Record(context.Context, Event) {}
