package model

import "errors"

var (
	// ErrVersionConflict is returned by storage when the stored version no longer
	// matches the version the caller loaded.
	ErrVersionConflict = errors.New("version conflict")
	// ErrSlotTaken is returned by storage when a write would overlap another active appointment.
	ErrSlotTaken          = errors.New("time range already booked")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrInvalidClientInfo  = errors.New("invalid client info")
	ErrInvalidActivity    = errors.New("invalid activity")
	ErrInvalidAppointment = errors.New("invalid appointment")
)
