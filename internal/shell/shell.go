package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"parking-lot-queue/internal/activity"
	"parking-lot-queue/internal/parking"
)

const timeLayout = "2006-01-02 15:04:05"

type command struct {
	usage string
	// args is the number of arguments after the command name.
	args int
	run  func(ctx context.Context, span trace.Span, args []string)
}

type Shell struct {
	lots     *parking.Holder
	factory  *parking.Factory
	journal  *activity.Journal
	tracer   trace.Tracer
	scanner  *bufio.Scanner
	out      io.Writer
	now      func() time.Time
	commands map[string]command
}

type Options struct {
	// Lots takes precedence over Lot when both are set.
	Lots    *parking.Holder
	Lot     *parking.InstrumentedLot
	Factory *parking.Factory
	Journal *activity.Journal
	Tracer  trace.Tracer
	In      io.Reader
	Out     io.Writer
	// Now defaults to time.Now.
	Now func() time.Time
}

func New(opts Options) *Shell {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Lots == nil {
		opts.Lots = parking.NewHolder(opts.Lot)
	}

	s := &Shell{
		lots:    opts.Lots,
		factory: opts.Factory,
		journal: opts.Journal,
		tracer:  opts.Tracer,
		scanner: bufio.NewScanner(opts.In),
		out:     opts.Out,
		now:     opts.Now,
	}

	s.commands = map[string]command{
		"create_parking_lot": {usage: "create_parking_lot <spots> <queue_capacity>", args: 2, run: s.handleCreateParkingLot},
		"park":               {usage: "park <plate>", args: 1, run: s.handlePark},
		"release":            {usage: "release <plate>", args: 1, run: s.handleRelease},
		"leave":              {usage: "leave <plate>", args: 1, run: s.handleRelease},
		"query":              {usage: "query <plate>", args: 1, run: s.handleQuery},
		"status":             {usage: "status", run: s.handleStatus},
		"about":              {usage: "about", run: s.handleStatus},
		"spot":               {usage: "spot <number>", args: 1, run: s.handleSpot},
		"queue":              {usage: "queue <position>", args: 1, run: s.handleQueuePosition},
		"spots":              {usage: "spots", run: s.handleSpots},
		"waiting":            {usage: "waiting", run: s.handleWaiting},
		"log":                {usage: "log", run: s.handleLog},
		"help":               {usage: "help", run: s.handleHelp},
	}

	return s
}

// Run processes one command per line until the input ends or ctx is done.
func (s *Shell) Run(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, "shell.run")
	defer span.End()

	span.AddEvent("shell_started")

	for ctx.Err() == nil && s.scanner.Scan() {
		input := strings.TrimSpace(s.scanner.Text())
		if input == "" {
			continue
		}

		cmdCtx, cmdSpan := s.tracer.Start(ctx, "shell.process_command",
			trace.WithAttributes(attribute.String("command.input", input)))

		s.processCommand(cmdCtx, cmdSpan, input)
		cmdSpan.End()
	}

	span.AddEvent("shell_ended")
}

func (s *Shell) processCommand(ctx context.Context, span trace.Span, input string) {
	parts := strings.Fields(input)
	name := parts[0]
	span.SetAttributes(attribute.String("command.name", name))

	cmd, ok := s.commands[name]
	if !ok {
		span.AddEvent("unknown_command")
		s.printf("Unknown command: %s\n", name)
		return
	}

	if len(parts)-1 != cmd.args {
		span.AddEvent("invalid_arguments")
		s.printf("Usage: %s\n", cmd.usage)
		return
	}

	if s.lots.Current() == nil && name != "create_parking_lot" && name != "help" {
		span.AddEvent("parking_lot_not_created")
		s.printf("Parking lot not created\n")
		return
	}

	cmd.run(ctx, span, parts[1:])
}

func (s *Shell) handleCreateParkingLot(ctx context.Context, span trace.Span, args []string) {
	spots, err := strconv.Atoi(args[0])
	if err != nil || spots < 1 || spots > parking.MaxSpots {
		span.RecordError(fmt.Errorf("invalid capacity: %s", args[0]))
		s.printf("Invalid capacity, expected 1 to %d spots\n", parking.MaxSpots)
		return
	}

	queueCapacity, err := strconv.Atoi(args[1])
	if err != nil || queueCapacity < 1 || queueCapacity > parking.MaxQueueCapacity {
		span.RecordError(fmt.Errorf("invalid queue capacity: %s", args[1]))
		s.printf("Invalid queue capacity, expected 1 to %d waiting places\n", parking.MaxQueueCapacity)
		return
	}

	span.SetAttributes(
		attribute.Int("parking_lot.total_spots", spots),
		attribute.Int("parking_lot.queue_capacity", queueCapacity),
	)

	lot, err := s.factory.New(spots, queueCapacity)
	if err != nil {
		span.RecordError(err)
		s.printf("Error creating parking lot: %s\n", err.Error())
		return
	}

	s.lots.Replace(ctx, lot)
	span.AddEvent("parking_lot_created")
	s.printf("Created a parking lot with %d spots and %d waiting places\n", spots, queueCapacity)
}

func (s *Shell) handlePark(ctx context.Context, span trace.Span, args []string) {
	result, err := s.lots.Current().RequestPark(ctx, args[0], s.now())
	switch {
	case errors.Is(err, parking.ErrDuplicatePlate):
		span.AddEvent("duplicate_plate")
		s.printf("Sorry, vehicle %s is already in the lot\n", args[0])
	case errors.Is(err, parking.ErrQueueFull):
		span.AddEvent("queue_full")
		s.printf("Sorry, parking lot and waiting queue are full\n")
	case err != nil:
		span.RecordError(err)
		s.printf("Error: %s\n", err.Error())
	case result.Outcome == parking.OutcomeQueued:
		s.printf("Parking lot is full, queued at position: %d\n", result.Position+1)
	default:
		s.printf("Allocated spot number: %d\n", result.Spot+1)
	}
}

func (s *Shell) handleRelease(ctx context.Context, span trace.Span, args []string) {
	result, err := s.lots.Current().RequestRelease(ctx, args[0], s.now())
	if errors.Is(err, parking.ErrNotFound) {
		span.AddEvent("vehicle_not_found")
		s.printf("Not found\n")
		return
	}
	if err != nil {
		span.RecordError(err)
		s.printf("Error: %s\n", err.Error())
		return
	}

	s.printf("Vehicle %s left spot %d, cost: %.2f\n", result.Vehicle.Plate, result.Spot+1, result.Cost)
	if result.Promoted != nil {
		s.printf("Vehicle %s moved from the waiting queue to spot %d\n", result.Promoted.Vehicle.Plate, result.Promoted.Spot+1)
	}
}

func (s *Shell) handleQuery(ctx context.Context, span trace.Span, args []string) {
	info, err := s.lots.Current().Query(ctx, args[0], s.now())
	if err != nil {
		span.AddEvent("vehicle_not_found")
		s.printf("Not found\n")
		return
	}

	hours := int(info.Elapsed / time.Hour)
	minutes := int((info.Elapsed % time.Hour) / time.Minute)

	s.printf("Plate: %s\n", info.Plate)
	s.printf("Spot: %d\n", info.Spot+1)
	s.printf("Entry time: %s\n", info.EntryTime.Format(timeLayout))
	s.printf("Parked for: %d hours %d minutes\n", hours, minutes)
	s.printf("Current cost: %.2f\n", info.Cost)
}

func (s *Shell) handleStatus(ctx context.Context, span trace.Span, _ []string) {
	status := s.lots.Current().Status(ctx)

	s.printf("Total spots: %d\n", status.TotalSpots)
	s.printf("Free spots: %d\n", status.FreeSpots)
	s.printf("Queue capacity: %d\n", status.QueueCapacity)
	s.printf("Waiting vehicles: %d\n", status.QueueLength)
}

func (s *Shell) handleSpot(_ context.Context, span trace.Span, args []string) {
	number, err := strconv.Atoi(args[0])
	if err != nil {
		s.printf("Invalid spot number\n")
		return
	}

	spot, err := s.lots.Current().Spot(number - 1)
	if err != nil {
		span.AddEvent("invalid_spot_number")
		s.printf("Invalid spot number\n")
		return
	}

	if !spot.Occupied() {
		s.printf("Spot %d is free\n", number)
		return
	}
	s.printf("Spot %d: %s since %s\n", number, spot.Vehicle.Plate, spot.Vehicle.EntryTime.Format(timeLayout))
}

func (s *Shell) handleQueuePosition(_ context.Context, span trace.Span, args []string) {
	position, err := strconv.Atoi(args[0])
	if err != nil {
		s.printf("Invalid queue position\n")
		return
	}

	vehicle, err := s.lots.Current().Waiting(position - 1)
	if err != nil {
		span.AddEvent("invalid_queue_position")
		s.printf("Invalid queue position\n")
		return
	}

	if vehicle == nil {
		s.printf("Queue position %d is empty\n", position)
		return
	}
	s.printf("Queue position %d: %s since %s\n", position, vehicle.Plate, vehicle.EntryTime.Format(timeLayout))
}

func (s *Shell) handleSpots(context.Context, trace.Span, []string) {
	spots := s.lots.Current().Spots()
	if spots[0].Vehicle == nil {
		s.printf("Parking lot is empty\n")
		return
	}

	s.printf("Spot No.\tPlate\tEntry time\n")
	for _, spot := range spots {
		if !spot.Occupied() {
			break
		}
		s.printf("%d\t\t%s\t%s\n", spot.Index+1, spot.Vehicle.Plate, spot.Vehicle.EntryTime.Format(timeLayout))
	}
}

func (s *Shell) handleWaiting(context.Context, trace.Span, []string) {
	queue := s.lots.Current().Queue()
	if len(queue) == 0 {
		s.printf("Waiting queue is empty\n")
		return
	}

	s.printf("Position\tPlate\tQueued at\n")
	for i, vehicle := range queue {
		s.printf("%d\t\t%s\t%s\n", i+1, vehicle.Plate, vehicle.EntryTime.Format(timeLayout))
	}
}

func (s *Shell) handleLog(context.Context, trace.Span, []string) {
	if s.journal == nil || s.journal.Len() == 0 {
		s.printf("No activity yet\n")
		return
	}
	for _, entry := range s.journal.Entries() {
		s.printf("%s\n", entry.String())
	}
}

func (s *Shell) handleHelp(context.Context, trace.Span, []string) {
	usages := make([]string, 0, len(s.commands))
	for _, cmd := range s.commands {
		usages = append(usages, cmd.usage)
	}
	sort.Strings(usages)

	s.printf("Commands:\n")
	for _, usage := range usages {
		s.printf("  %s\n", usage)
	}
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}
