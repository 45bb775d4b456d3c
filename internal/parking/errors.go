package parking

import "errors"

var (
	ErrInvalidPlate    = errors.New("license plate is required")
	ErrInvalidCapacity = errors.New("capacity must be greater than 0")
	ErrInvalidIndex    = errors.New("index out of range")
	ErrDuplicatePlate  = errors.New("license plate already exists")
	ErrAtCapacity      = errors.New("at capacity")
	ErrQueueFull       = errors.New("parking lot and waiting queue are full")
	ErrNotFound        = errors.New("vehicle not found")
	ErrEmptyQueue      = errors.New("waiting queue is empty")
)
