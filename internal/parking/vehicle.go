package parking

import (
	"strings"
	"time"
)

type Vehicle struct {
	Plate     string
	EntryTime time.Time
}

func NewVehicle(plate string, entryTime time.Time) *Vehicle {
	return &Vehicle{
		Plate:     plate,
		EntryTime: entryTime,
	}
}

// normalizePlate trims surrounding whitespace; plates are otherwise compared verbatim.
func normalizePlate(plate string) (string, error) {
	plate = strings.TrimSpace(plate)
	if plate == "" {
		return "", ErrInvalidPlate
	}
	return plate, nil
}
