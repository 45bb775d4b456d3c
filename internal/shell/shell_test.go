package shell

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"parking-lot-queue/internal/activity"
	"parking-lot-queue/internal/parking"
	"parking-lot-queue/internal/telemetry"
)

var start = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func runShell(t *testing.T, withLot bool, script string, clock *fakeClock) string {
	t.Helper()

	provider := telemetry.New("shell-test",
		sdktrace.NewTracerProvider(),
		sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader())))
	journal := activity.NewJournal(20)
	factory := parking.NewFactory(provider, parking.WithActivitySink(journal))

	var lot *parking.InstrumentedLot
	if withLot {
		var err error
		lot, err = factory.New(1, 1)
		require.NoError(t, err)
	}

	var out bytes.Buffer
	s := New(Options{
		Lot:     lot,
		Factory: factory,
		Journal: journal,
		Tracer:  provider.Tracer(),
		In:      strings.NewReader(script),
		Out:     &out,
		Now:     clock.now,
	})
	s.Run(context.Background())
	return out.String()
}

func TestShellParkQueueReject(t *testing.T) {
	out := runShell(t, true, "park A1\npark B2\npark C3\npark A1\n", &fakeClock{t: start})

	assert.Equal(t, strings.Join([]string{
		"Allocated spot number: 1",
		"Parking lot is full, queued at position: 1",
		"Sorry, parking lot and waiting queue are full",
		"Sorry, vehicle A1 is already in the lot",
		"",
	}, "\n"), out)
}

func TestShellReleasePromotes(t *testing.T) {
	clock := &fakeClock{t: start}
	provider := telemetry.New("shell-test",
		sdktrace.NewTracerProvider(),
		sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader())))
	factory := parking.NewFactory(provider)
	lot, err := factory.New(1, 1)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = lot.RequestPark(ctx, "A1", clock.now())
	require.NoError(t, err)
	_, err = lot.RequestPark(ctx, "B2", clock.now())
	require.NoError(t, err)
	clock.advance(time.Hour)

	var out bytes.Buffer
	New(Options{
		Lot:     lot,
		Factory: factory,
		Tracer:  provider.Tracer(),
		In:      strings.NewReader("release A1\nrelease A1\nlog\n"),
		Out:     &out,
		Now:     clock.now,
	}).Run(ctx)

	assert.Equal(t, strings.Join([]string{
		"Vehicle A1 left spot 1, cost: 5.00",
		"Vehicle B2 moved from the waiting queue to spot 1",
		"Not found",
		"No activity yet",
		"",
	}, "\n"), out.String())
}

func TestShellQueryAndStatus(t *testing.T) {
	clock := &fakeClock{t: start}
	out := runShell(t, true, "park A1\npark B2\nquery A1\nquery B2\nstatus\n", clock)

	assert.Contains(t, out, "Plate: A1\nSpot: 1\nEntry time: 2024-03-01 09:00:00\nParked for: 0 hours 0 minutes\nCurrent cost: 0.00\n")
	assert.Contains(t, out, "Not found\n")
	assert.Contains(t, out, "Total spots: 1\nFree spots: 0\nQueue capacity: 1\nWaiting vehicles: 1\n")
}

func TestShellRequiresLot(t *testing.T) {
	out := runShell(t, false, "park A1\ncreate_parking_lot 2 1\npark A1\nspots\n", &fakeClock{t: start})

	assert.Equal(t, strings.Join([]string{
		"Parking lot not created",
		"Created a parking lot with 2 spots and 1 waiting places",
		"Allocated spot number: 1",
		"Spot No.\tPlate\tEntry time",
		"1\t\tA1\t2024-03-01 09:00:00",
		"",
	}, "\n"), out)
}

func TestShellSpotAndQueueLookup(t *testing.T) {
	out := runShell(t, true, "park A1\npark B2\nspot 1\nspot 2\nqueue 1\nqueue 3\nwaiting\n", &fakeClock{t: start})

	assert.Contains(t, out, "Spot 1: A1 since 2024-03-01 09:00:00\n")
	assert.Contains(t, out, "Invalid spot number\n")
	assert.Contains(t, out, "Queue position 1: B2 since 2024-03-01 09:00:00\n")
	assert.Contains(t, out, "Invalid queue position\n")
	assert.Contains(t, out, "Position\tPlate\tQueued at\n1\t\tB2\t2024-03-01 09:00:00\n")
}

func TestShellLogShowsActivity(t *testing.T) {
	out := runShell(t, true, "park A1\npark B2\nlog\n", &fakeClock{t: start})

	assert.Contains(t, out, "Vehicle A1 entered the parking lot at spot 1\n")
	assert.Contains(t, out, "Vehicle B2 joined the waiting queue at position 1\n")
}

func TestShellUsageAndUnknown(t *testing.T) {
	out := runShell(t, true, "park\nfly away\ncreate_parking_lot 0 1\nhelp\n", &fakeClock{t: start})

	assert.Contains(t, out, "Usage: park <plate>\n")
	assert.Contains(t, out, "Unknown command: fly\n")
	assert.Contains(t, out, "Invalid capacity, expected 1 to 100 spots\n")
	assert.Contains(t, out, "  release <plate>\n")
}

func TestShellCreateEnforcesSizeLimits(t *testing.T) {
	script := strings.Join([]string{
		"create_parking_lot 101 1",
		"create_parking_lot 1 21",
		"create_parking_lot 9223372036854775807 1",
		"status",
		"create_parking_lot 100 20",
		"status",
		"",
	}, "\n")
	out := runShell(t, false, script, &fakeClock{t: start})

	assert.Equal(t, strings.Join([]string{
		"Invalid capacity, expected 1 to 100 spots",
		"Invalid queue capacity, expected 1 to 20 waiting places",
		"Invalid capacity, expected 1 to 100 spots",
		"Parking lot not created",
		"Created a parking lot with 100 spots and 20 waiting places",
		"Total spots: 100",
		"Free spots: 100",
		"Queue capacity: 20",
		"Waiting vehicles: 0",
		"",
	}, "\n"), out)
}
