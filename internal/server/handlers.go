package server

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"parking-lot-queue/internal/activity"
	"parking-lot-queue/internal/logging"
	"parking-lot-queue/internal/parking"
)

type Handler struct {
	lots        *parking.Holder
	factory     *parking.Factory
	journal     *activity.Journal
	validate    *validator.Validate
	serviceName string
	now         func() time.Time
}

func NewHandler(opts Options) *Handler {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	lots := opts.Lots
	if lots == nil {
		lots = parking.NewHolder(opts.Lot)
	}

	return &Handler{
		lots:        lots,
		factory:     opts.Factory,
		journal:     opts.Journal,
		validate:    validate,
		serviceName: opts.ServiceName,
		now:         now,
	}
}

func (h *Handler) currentLot() *parking.InstrumentedLot {
	return h.lots.Current()
}

// requireLot writes an error and returns nil when no lot has been created.
func (h *Handler) requireLot(w http.ResponseWriter, r *http.Request) *parking.InstrumentedLot {
	lot := h.currentLot()
	if lot == nil {
		WriteError(r.Context(), w, http.StatusBadRequest, CodeInvalidInput, "Parking lot not created. Create parking lot first")
	}
	return lot
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	ctx := r.Context()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, CodeInvalidInput, "Invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeValidationError(ctx, w, err)
		return false
	}
	return true
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: h.serviceName,
		Meta:    extractMeta(r.Context()),
	})
}

func (h *Handler) CreateParkingLot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req ParkingLotCreateRequest
	if !h.decode(w, r, &req) {
		return
	}

	var opts []parking.LotOption
	if req.RatePerHour > 0 {
		opts = append(opts, parking.WithTariff(parking.Tariff{RatePerHour: req.RatePerHour}))
	}

	lot, err := h.factory.New(req.Capacity, req.QueueCapacity, opts...)
	if err != nil {
		writeParkingError(ctx, w, err)
		return
	}

	h.lots.Replace(ctx, lot)

	logging.Info(ctx, "parking lot created",
		"total_spots", req.Capacity,
		"queue_capacity", req.QueueCapacity,
		"rate_per_hour", lot.Tariff().RatePerHour,
	)

	WriteSuccess(ctx, w, "Parking lot created successfully", h.statusResponse(lot.Lot.Status(), lot.Tariff()))
}

func (h *Handler) ParkVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lot := h.requireLot(w, r)
	if lot == nil {
		return
	}

	var req PlateRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := lot.RequestPark(ctx, req.Plate, h.now())
	if err != nil {
		writeParkingError(ctx, w, err)
		return
	}

	response := ParkResponse{
		Plate:     result.Vehicle.Plate,
		Outcome:   string(result.Outcome),
		EntryTime: result.Vehicle.EntryTime,
	}

	message := "Vehicle parked successfully"
	if result.Outcome == parking.OutcomeQueued {
		message = "Parking lot is full, vehicle added to the waiting queue"
		response.QueuePosition = &result.Position
	} else {
		response.SpotIndex = &result.Spot
	}

	WriteSuccess(ctx, w, message, response)
}

func (h *Handler) ReleaseVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lot := h.requireLot(w, r)
	if lot == nil {
		return
	}

	var req PlateRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := lot.RequestRelease(ctx, req.Plate, h.now())
	if err != nil {
		writeParkingError(ctx, w, err)
		return
	}

	response := ReleaseResponse{
		Plate:           result.Vehicle.Plate,
		SpotIndex:       result.Spot,
		DurationSeconds: result.Duration.Seconds(),
		Cost:            result.Cost,
	}
	if result.Promoted != nil {
		response.Promoted = &PromotionResponse{
			Plate:     result.Promoted.Vehicle.Plate,
			SpotIndex: result.Promoted.Spot,
			EntryTime: result.Promoted.Vehicle.EntryTime,
		}
	}

	WriteSuccess(ctx, w, "Vehicle released successfully", response)
}

func (h *Handler) FindVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lot := h.requireLot(w, r)
	if lot == nil {
		return
	}

	plate := chi.URLParam(r, "plate")
	info, err := lot.Query(ctx, plate, h.now())
	if err != nil {
		writeParkingError(ctx, w, err)
		return
	}

	WriteSuccess(ctx, w, "Vehicle found", VehicleResponse{
		Plate:          info.Plate,
		SpotIndex:      info.Spot,
		EntryTime:      info.EntryTime,
		ElapsedSeconds: info.Elapsed.Seconds(),
		Cost:           info.Cost,
	})
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lot := h.requireLot(w, r)
	if lot == nil {
		return
	}

	WriteSuccess(ctx, w, "Status retrieved successfully", h.statusResponse(lot.Status(ctx), lot.Tariff()))
}

func (h *Handler) statusResponse(status parking.Status, tariff parking.Tariff) StatusResponse {
	return StatusResponse{
		TotalSpots:    status.TotalSpots,
		FreeSpots:     status.FreeSpots,
		QueueCapacity: status.QueueCapacity,
		QueueLength:   status.QueueLength,
		RatePerHour:   tariff.RatePerHour,
	}
}

func (h *Handler) ListSpots(w http.ResponseWriter, r *http.Request) {
	lot := h.requireLot(w, r)
	if lot == nil {
		return
	}

	spots := lot.Spots()
	response := make([]SpotStatus, 0, len(spots))
	for _, spot := range spots {
		response = append(response, spotStatus(spot))
	}

	WriteSuccess(r.Context(), w, "Spots retrieved successfully", response)
}

func (h *Handler) GetSpot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lot := h.requireLot(w, r)
	if lot == nil {
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		WriteError(ctx, w, http.StatusBadRequest, CodeInvalidInput, "Spot index must be a number")
		return
	}

	spot, err := lot.Spot(index)
	if err != nil {
		writeParkingError(ctx, w, err)
		return
	}

	WriteSuccess(ctx, w, "Spot retrieved successfully", spotStatus(spot))
}

func spotStatus(spot parking.Spot) SpotStatus {
	status := SpotStatus{SpotIndex: spot.Index, Occupied: spot.Occupied()}
	if spot.Occupied() {
		entry := spot.Vehicle.EntryTime
		status.Plate = spot.Vehicle.Plate
		status.EntryTime = &entry
	}
	return status
}

func (h *Handler) ListQueue(w http.ResponseWriter, r *http.Request) {
	lot := h.requireLot(w, r)
	if lot == nil {
		return
	}

	queue := lot.Queue()
	response := make([]QueueEntry, 0, len(queue))
	for i, vehicle := range queue {
		entry := vehicle.EntryTime
		response = append(response, QueueEntry{Position: i, Plate: vehicle.Plate, EntryTime: &entry})
	}

	WriteSuccess(r.Context(), w, "Waiting queue retrieved successfully", response)
}

func (h *Handler) GetQueuePosition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lot := h.requireLot(w, r)
	if lot == nil {
		return
	}

	position, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		WriteError(ctx, w, http.StatusBadRequest, CodeInvalidInput, "Queue position must be a number")
		return
	}

	vehicle, err := lot.Waiting(position)
	if err != nil {
		writeParkingError(ctx, w, err)
		return
	}

	entry := QueueEntry{Position: position}
	if vehicle != nil {
		entryTime := vehicle.EntryTime
		entry.Plate = vehicle.Plate
		entry.EntryTime = &entryTime
	}

	WriteSuccess(ctx, w, "Queue position retrieved successfully", entry)
}

func (h *Handler) ListActivity(w http.ResponseWriter, r *http.Request) {
	entries := []activity.Entry{}
	if h.journal != nil {
		entries = h.journal.Entries()
	}

	WriteSuccess(r.Context(), w, "Activity retrieved successfully", entries)
}
