package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"parking-lot-queue/internal/parking"
)

// newMetricsRegistry exposes the current lot's occupancy as scrape-time gauges.
// Values are zero until a lot exists.
func newMetricsRegistry(current func() *parking.InstrumentedLot) *prometheus.Registry {
	registry := prometheus.NewRegistry()

	status := func(pick func(parking.Status) int) func() float64 {
		return func() float64 {
			lot := current()
			if lot == nil {
				return 0
			}
			return float64(pick(lot.Lot.Status()))
		}
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "parking_spots_total",
			Help: "Number of spots in the parking lot",
		}, status(func(s parking.Status) int { return s.TotalSpots })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "parking_spots_free",
			Help: "Number of free spots in the parking lot",
		}, status(func(s parking.Status) int { return s.FreeSpots })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "parking_waiting_queue_capacity",
			Help: "Number of places in the waiting queue",
		}, status(func(s parking.Status) int { return s.QueueCapacity })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "parking_waiting_queue_length",
			Help: "Number of vehicles waiting for a spot",
		}, status(func(s parking.Status) int { return s.QueueLength })),
	)

	return registry
}

func metricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}
