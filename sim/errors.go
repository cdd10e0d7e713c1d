package sim

import "errors"

var (
	// ErrInputValidation marks rejected inputs: coordinates outside the world, negative
	// radii or durations, unknown ids. Inputs are never silently clamped.
	ErrInputValidation = errors.New("input validation")

	// ErrOrderingViolation marks an attempt to schedule an event before the current time.
	ErrOrderingViolation = errors.New("ordering violation")

	// ErrStateConflict marks an attempt to occupy a spot that is occupied or validly
	// reserved by another car. A well-behaved car never triggers it.
	ErrStateConflict = errors.New("state conflict")
)
