package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parking-lot-queue/internal/activity"
	"parking-lot-queue/internal/config"
	"parking-lot-queue/internal/logging"
	"parking-lot-queue/internal/parking"
	"parking-lot-queue/internal/server"
	"parking-lot-queue/internal/shell"
	"parking-lot-queue/internal/telemetry"
)

var (
	mode = flag.String("mode", "", "Mode to run: cli, server, or both (overrides APP_MODE)")
	port = flag.String("port", "", "Port for HTTP server (overrides APP_PORT)")
)

type app struct {
	cfg       *config.Config
	telemetry *telemetry.Provider
	lots      *parking.Holder
	factory   *parking.Factory
	journal   *activity.Journal
	closers   []func() error
}

func main() {
	flag.Parse()

	cfg := config.Load()
	if *mode != "" {
		cfg.Mode = *mode
	}
	if *port != "" {
		cfg.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		os.Exit(1)
	}
	defer a.shutdown()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	switch cfg.Mode {
	case "cli":
		a.runCLI(ctx, cancel, sigChan)
	case "server":
		a.runServer(ctx, cancel, sigChan)
	case "both":
		a.runBoth(ctx, cancel, sigChan)
	}
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	provider, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: cfg.OTelServiceName,
		Endpoint:    cfg.OTelEndpoint,
		Environment: cfg.Environment,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize telemetry: %w", err)
	}

	logging.Init(logging.Options{
		ServiceName: cfg.OTelServiceName,
		Environment: cfg.Environment,
		Level:       cfg.LogLevel,
	})

	a := &app{
		cfg:       cfg,
		telemetry: provider,
		journal:   activity.NewJournal(cfg.ActivityLogSize),
	}

	sinks := activity.Multi{a.journal, activity.LoggerSink{}}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := activity.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.OTelServiceName)
		if err != nil {
			return nil, fmt.Errorf("create kafka sink: %w", err)
		}
		a.closers = append(a.closers, kafkaSink.Close)
		sinks = append(sinks, kafkaSink)
		logging.Info(ctx, "publishing activity to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	a.factory = parking.NewFactory(provider,
		parking.WithTariff(parking.Tariff{RatePerHour: cfg.RatePerHour}),
		parking.WithActivitySink(sinks),
	)

	lot, err := a.factory.New(cfg.TotalSpots, cfg.QueueCapacity)
	if err != nil {
		return nil, fmt.Errorf("create parking lot: %w", err)
	}
	a.lots = parking.NewHolder(lot)

	logging.Info(ctx, "parking lot ready",
		"total_spots", cfg.TotalSpots,
		"queue_capacity", cfg.QueueCapacity,
		"rate_per_hour", cfg.RatePerHour,
	)
	return a, nil
}

func (a *app) newShell() *shell.Shell {
	return shell.New(shell.Options{
		Lots:    a.lots,
		Factory: a.factory,
		Journal: a.journal,
		Tracer:  a.telemetry.Tracer(),
		In:      os.Stdin,
		Out:     os.Stdout,
	})
}

func (a *app) newServer() *server.Server {
	return server.NewServer(server.Options{
		Port:        a.cfg.Port,
		ServiceName: a.cfg.OTelServiceName,
		Lots:        a.lots,
		Factory:     a.factory,
		Journal:     a.journal,
	})
}

func (a *app) runCLI(ctx context.Context, cancel context.CancelFunc, sigChan chan os.Signal) {
	done := make(chan struct{})
	go func() {
		a.newShell().Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-sigChan:
		logging.Info(ctx, "received shutdown signal")
	}
	cancel()
}

func (a *app) runServer(ctx context.Context, cancel context.CancelFunc, sigChan chan os.Signal) {
	srv := a.newServer()

	go func() {
		<-sigChan
		logging.Info(ctx, "received shutdown signal")
		shutdownServer(srv)
		cancel()
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Error(ctx, "server error", "error", err)
	}
}

func (a *app) runBoth(ctx context.Context, cancel context.CancelFunc, sigChan chan os.Signal) {
	srv := a.newServer()

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Start()
	}()

	cliDone := make(chan struct{})
	go func() {
		a.newShell().Run(ctx)
		close(cliDone)
	}()

	select {
	case err := <-serverDone:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error(ctx, "server error", "error", err)
		}
	case <-cliDone:
		logging.Info(ctx, "CLI exited")
		shutdownServer(srv)
	case <-sigChan:
		logging.Info(ctx, "received shutdown signal")
		shutdownServer(srv)
	}
	cancel()
}

func shutdownServer(srv *server.Server) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error(shutdownCtx, "server shutdown error", "error", err)
	}
}

func (a *app) shutdown() {
	ctx := context.Background()
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			logging.Error(ctx, "error closing activity sink", "error", err)
		}
	}

	logging.Info(ctx, "shutting down telemetry")
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutdownCancel()

	if err := a.telemetry.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error shutting down telemetry: %v\n", err)
	}
}
