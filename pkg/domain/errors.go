package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors matched with errors.Is.
var (
	ErrNotFound          = errors.New("simulation not found")
	ErrAlreadyExists     = errors.New("simulation already exists")
	ErrBootstrap         = errors.New("default simulation bootstrap failed")
	ErrInvalidSimulation = errors.New("invalid simulation")
)

// NotFoundError is returned when no record exists for the requested id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("simulation %q not found", e.ID)
}

// Is matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// AlreadyExistsError is returned when a create collides with a stored record.
type AlreadyExistsError struct {
	ID string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("simulation %q already exists", e.ID)
}

// Is matches ErrAlreadyExists.
func (e *AlreadyExistsError) Is(target error) bool { return target == ErrAlreadyExists }

// BootstrapError wraps the cause of a failed default-record seed.
type BootstrapError struct {
	Cause error
}

func (e *BootstrapError) Error() string {
	return fmt.Sprintf("bootstrap default simulation: %v", e.Cause)
}

// Is matches ErrBootstrap.
func (e *BootstrapError) Is(target error) bool { return target == ErrBootstrap }

func (e *BootstrapError) Unwrap() error { return e.Cause }
