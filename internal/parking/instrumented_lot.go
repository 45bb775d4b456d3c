package parking

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry is the subset of the telemetry provider the lot needs.
type Telemetry interface {
	Tracer() trace.Tracer
	Meter() metric.Meter
}

type InstrumentedLot struct {
	*Lot
	tracer trace.Tracer

	// Metrics
	parkRequests      metric.Int64Counter
	releaseOperations metric.Int64Counter
	promotions        metric.Int64Counter
	revenue           metric.Float64Counter
	operationDuration metric.Float64Histogram

	// gauges observes occupancy, queue length and size from Status at
	// collection time.
	gauges metric.Registration
}

func NewInstrumentedLot(lot *Lot, telemetry Telemetry) (*InstrumentedLot, error) {
	meter := telemetry.Meter()

	parkRequests, err := meter.Int64Counter("parking_requests_total",
		metric.WithDescription("Total number of park requests by outcome"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	releaseOperations, err := meter.Int64Counter("release_operations_total",
		metric.WithDescription("Total number of release operations"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	promotions, err := meter.Int64Counter("queue_promotions_total",
		metric.WithDescription("Vehicles moved from the waiting queue into a spot"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	occupancyGauge, err := meter.Int64ObservableGauge("parking_lot_occupancy",
		metric.WithDescription("Current number of occupied parking spots"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	queueLengthGauge, err := meter.Int64ObservableGauge("parking_queue_length",
		metric.WithDescription("Current number of vehicles in the waiting queue"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	totalSpotsGauge, err := meter.Int64ObservableGauge("parking_lot_total_spots",
		metric.WithDescription("Total number of parking spots"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	revenue, err := meter.Float64Counter("parking_revenue_total",
		metric.WithDescription("Total amount billed on release"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	operationDuration, err := meter.Float64Histogram("operation_duration_seconds",
		metric.WithDescription("Duration of parking lot operations"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	il := &InstrumentedLot{
		Lot:               lot,
		tracer:            telemetry.Tracer(),
		parkRequests:      parkRequests,
		releaseOperations: releaseOperations,
		promotions:        promotions,
		revenue:           revenue,
		operationDuration: operationDuration,
	}

	il.gauges, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		status := lot.Status()
		o.ObserveInt64(occupancyGauge, int64(status.TotalSpots-status.FreeSpots))
		o.ObserveInt64(queueLengthGauge, int64(status.QueueLength))
		o.ObserveInt64(totalSpotsGauge, int64(status.TotalSpots))
		return nil
	}, occupancyGauge, queueLengthGauge, totalSpotsGauge)
	if err != nil {
		return nil, err
	}

	return il, nil
}

func (il *InstrumentedLot) RequestPark(ctx context.Context, plate string, now time.Time) (ParkResult, error) {
	ctx, span := il.tracer.Start(ctx, "parking_lot.park",
		trace.WithAttributes(attribute.String("vehicle.plate", plate)))
	defer span.End()

	start := time.Now()

	result, err := il.Lot.RequestPark(ctx, plate, now)

	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{
		attribute.String("operation", "park"),
		attribute.String("outcome", string(result.Outcome)),
	}

	span.SetAttributes(attribute.String("park.outcome", string(result.Outcome)))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels, attribute.String("status", "failed"))
	} else {
		labels = append(labels, attribute.String("status", "success"))
		switch result.Outcome {
		case OutcomeParked:
			span.AddEvent("spot_allocated", trace.WithAttributes(
				attribute.Int("spot_index", result.Spot),
			))
		case OutcomeQueued:
			span.AddEvent("vehicle_queued", trace.WithAttributes(
				attribute.Int("queue_position", result.Position),
			))
		}
	}

	il.parkRequests.Add(ctx, 1, metric.WithAttributes(labels...))
	il.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return result, err
}

func (il *InstrumentedLot) RequestRelease(ctx context.Context, plate string, now time.Time) (ReleaseResult, error) {
	ctx, span := il.tracer.Start(ctx, "parking_lot.release",
		trace.WithAttributes(attribute.String("vehicle.plate", plate)))
	defer span.End()

	start := time.Now()

	result, err := il.Lot.RequestRelease(ctx, plate, now)

	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{
		attribute.String("operation", "release"),
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels, attribute.String("status", "failed"))
	} else {
		labels = append(labels, attribute.String("status", "success"))
		span.SetAttributes(
			attribute.Int("released_spot_index", result.Spot),
			attribute.Float64("billing.cost", result.Cost),
		)
		span.AddEvent("spot_released")
		il.revenue.Add(ctx, result.Cost)

		if result.Promoted != nil {
			span.AddEvent("queue_head_promoted", trace.WithAttributes(
				attribute.String("vehicle.plate", result.Promoted.Vehicle.Plate),
				attribute.Int("spot_index", result.Promoted.Spot),
			))
			il.promotions.Add(ctx, 1)
		}
	}

	il.releaseOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	il.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return result, err
}

func (il *InstrumentedLot) Query(ctx context.Context, plate string, now time.Time) (VehicleInfo, error) {
	ctx, span := il.tracer.Start(ctx, "parking_lot.query",
		trace.WithAttributes(attribute.String("vehicle.plate", plate)))
	defer span.End()

	start := time.Now()

	info, err := il.Lot.Query(ctx, plate, now)

	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{
		attribute.String("operation", "query"),
	}

	if err != nil {
		span.AddEvent("vehicle_not_found")
		labels = append(labels, attribute.String("status", "not_found"))
	} else {
		span.AddEvent("vehicle_found", trace.WithAttributes(
			attribute.Int("spot_index", info.Spot),
		))
		labels = append(labels, attribute.String("status", "found"))
	}

	il.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return info, err
}

func (il *InstrumentedLot) Status(ctx context.Context) Status {
	ctx, span := il.tracer.Start(ctx, "parking_lot.status")
	defer span.End()

	start := time.Now()

	status := il.Lot.Status()

	span.SetAttributes(
		attribute.Int("total_spots", status.TotalSpots),
		attribute.Int("free_spots", status.FreeSpots),
		attribute.Int("queue_length", status.QueueLength),
	)

	il.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("operation", "status"),
		attribute.String("status", "success"),
	))

	return status
}
