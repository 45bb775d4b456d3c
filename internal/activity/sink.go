package activity

import (
	"context"

	"parking-lot-queue/internal/logging"
	"parking-lot-queue/internal/parking"
)

// Multi fans an event out to every sink in order.
type Multi []parking.ActivitySink

func (m Multi) Record(ctx context.Context, event parking.Event) {
	for _, sink := range m {
		sink.Record(ctx, event)
	}
}

type LoggerSink struct{}

func (LoggerSink) Record(ctx context.Context, event parking.Event) {
	logging.Info(ctx, event.Message(),
		"event", string(event.Kind),
		"plate", event.Plate,
		"spot", event.Spot,
		"position", event.Position,
		"cost", event.Cost,
	)
}
