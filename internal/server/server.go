package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"parking-lot-queue/internal/activity"
	"parking-lot-queue/internal/logging"
	"parking-lot-queue/internal/parking"
)

// Options configures the server. Lot may be nil until a client creates one;
// Lots takes precedence when the lot is shared with the shell.
type Options struct {
	Port        string
	ServiceName string
	Lots        *parking.Holder
	Lot         *parking.InstrumentedLot
	Factory     *parking.Factory
	Journal     *activity.Journal
	Now         func() time.Time
}

type Server struct {
	httpServer *http.Server
	handler    *Handler
}

func NewServer(opts Options) *Server {
	handler := NewHandler(opts)

	return &Server{
		httpServer: &http.Server{
			Addr:         ":" + opts.Port,
			Handler:      NewRouter(handler, opts.ServiceName),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		handler: handler,
	}
}

func NewRouter(handler *Handler, serviceName string) http.Handler {
	r := chi.NewRouter()

	r.Use(RecoveryMiddleware)
	r.Use(RequestIDMiddleware)
	r.Use(TracingMiddleware(serviceName))
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)

	r.Get("/health", handler.HealthCheck)
	r.Method(http.MethodGet, "/metrics", metricsHandler(newMetricsRegistry(handler.currentLot)))

	r.Route("/api/parking-lot", func(r chi.Router) {
		r.Post("/", handler.CreateParkingLot)
		r.Post("/park", handler.ParkVehicle)
		r.Post("/release", handler.ReleaseVehicle)
		r.Get("/vehicles/{plate}", handler.FindVehicle)
		r.Get("/status", handler.GetStatus)
		r.Get("/spots", handler.ListSpots)
		r.Get("/spots/{index}", handler.GetSpot)
		r.Get("/queue", handler.ListQueue)
		r.Get("/queue/{index}", handler.GetQueuePosition)
		r.Get("/activity", handler.ListActivity)
	})

	return r
}

func (s *Server) Start() error {
	logging.Info(context.Background(), "starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info(ctx, "shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) GetAddress() string {
	return fmt.Sprintf("http://localhost%s", s.httpServer.Addr)
}
