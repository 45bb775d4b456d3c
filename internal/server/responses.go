package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"parking-lot-queue/internal/logging"
)

type Meta struct {
	TraceID   string `json:"trace_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type Response struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Data    any            `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Meta    *Meta          `json:"meta,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Meta    *Meta  `json:"meta,omitempty"`
}

type ParkingLotCreateRequest struct {
	Capacity      int     `json:"capacity" validate:"required,min=1,max=100"`
	QueueCapacity int     `json:"queue_capacity" validate:"required,min=1,max=20"`
	RatePerHour   float64 `json:"rate_per_hour" validate:"omitempty,gt=0"`
}

type PlateRequest struct {
	Plate string `json:"plate" validate:"required,max=32"`
}

type ParkResponse struct {
	Plate         string    `json:"plate"`
	Outcome       string    `json:"outcome"`
	SpotIndex     *int      `json:"spot_index,omitempty"`
	QueuePosition *int      `json:"queue_position,omitempty"`
	EntryTime     time.Time `json:"entry_time"`
}

type PromotionResponse struct {
	Plate     string    `json:"plate"`
	SpotIndex int       `json:"spot_index"`
	EntryTime time.Time `json:"entry_time"`
}

type ReleaseResponse struct {
	Plate           string             `json:"plate"`
	SpotIndex       int                `json:"spot_index"`
	DurationSeconds float64            `json:"duration_seconds"`
	Cost            float64            `json:"cost"`
	Promoted        *PromotionResponse `json:"promoted,omitempty"`
}

type VehicleResponse struct {
	Plate          string    `json:"plate"`
	SpotIndex      int       `json:"spot_index"`
	EntryTime      time.Time `json:"entry_time"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
	Cost           float64   `json:"cost"`
}

type StatusResponse struct {
	TotalSpots    int     `json:"total_spots"`
	FreeSpots     int     `json:"free_spots"`
	QueueCapacity int     `json:"queue_capacity"`
	QueueLength   int     `json:"queue_length"`
	RatePerHour   float64 `json:"rate_per_hour"`
}

type SpotStatus struct {
	SpotIndex int        `json:"spot_index"`
	Occupied  bool       `json:"occupied"`
	Plate     string     `json:"plate,omitempty"`
	EntryTime *time.Time `json:"entry_time,omitempty"`
}

type QueueEntry struct {
	Position  int        `json:"position"`
	Plate     string     `json:"plate,omitempty"`
	EntryTime *time.Time `json:"entry_time,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Logger().Error("failed to encode response", "error", err)
	}
}

func extractMeta(ctx context.Context) *Meta {
	meta := &Meta{}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		meta.TraceID = span.SpanContext().TraceID().String()
	}

	if reqID, ok := ctx.Value(RequestIDKey).(string); ok {
		meta.RequestID = reqID
	}

	return meta
}

func WriteSuccess(ctx context.Context, w http.ResponseWriter, message string, data any) {
	WriteJSON(w, http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    extractMeta(ctx),
	})
}

func WriteError(ctx context.Context, w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, Response{
		Success: false,
		Error:   message,
		Code:    code,
		Meta:    extractMeta(ctx),
	})
}
