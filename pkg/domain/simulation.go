// Package domain defines the persistent simulation record, the value types it
// references, and the storage engine contract used by lifesim.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// KeySeparator joins the user and date portions of a simulation key.
const KeySeparator = "#"

// KeyDateLayout renders the date portion of a simulation key.
const KeyDateLayout = "2006-01-02"

// Well-known identifiers used when seeding the default simulation.
const (
	// DefaultUserID identifies the guest user that owns the seeded simulation.
	DefaultUserID = "III1R"
	// DefaultWorldName identifies the demo world used by the seeded simulation.
	DefaultWorldName = "MundoDemo"
	// DefaultSimulationID is the fixed key under which the seed is stored.
	DefaultSimulationID = DefaultUserID + KeySeparator + "demo"
)

// SimulationStatus enumerates the run states of a simulation.
type SimulationStatus string

// Canonical simulation states.
const (
	StatusPrepared SimulationStatus = "prepared"
	StatusRunning  SimulationStatus = "running"
	StatusPaused   SimulationStatus = "paused"
	StatusFinished SimulationStatus = "finished"
)

// Valid reports whether the status is one of the canonical states.
func (s SimulationStatus) Valid() bool {
	switch s {
	case StatusPrepared, StatusRunning, StatusPaused, StatusFinished:
		return true
	default:
		return false
	}
}

// User is the owner reference embedded in a simulation.
type User struct {
	ID          string `json:"id" yaml:"id"`
	DisplayName string `json:"display_name,omitempty" yaml:"display_name"`
}

// World is the board reference embedded in a simulation.
type World struct {
	Name string `json:"name" yaml:"name"`
	Size int    `json:"size" yaml:"size"`
}

// Simulation represents one simulation run.
type Simulation struct {
	ID        string           `json:"id"`
	Owner     User             `json:"owner"`
	CreatedAt time.Time        `json:"created_at"`
	World     World            `json:"world"`
	Status    SimulationStatus `json:"status"`
}

// SimulationKey builds the composite identifier for a user and date.
func SimulationKey(userID string, date time.Time) string {
	return userID + KeySeparator + date.UTC().Format(KeyDateLayout)
}

// NewSimulation builds a fully populated simulation. When id is empty the
// composite key is derived from the owner and creation date.
func NewSimulation(id string, owner User, createdAt time.Time, world World, status SimulationStatus) (Simulation, error) {
	createdAt = createdAt.UTC().Round(0)
	if id == "" && strings.TrimSpace(owner.ID) != "" && !createdAt.IsZero() {
		id = SimulationKey(owner.ID, createdAt)
	}
	sim := Simulation{
		ID:        id,
		Owner:     owner,
		CreatedAt: createdAt,
		World:     world,
		Status:    status,
	}
	if err := sim.Validate(); err != nil {
		return Simulation{}, err
	}
	return sim, nil
}

// Validate checks that every field of the simulation is populated.
func (s Simulation) Validate() error {
	switch {
	case strings.TrimSpace(s.ID) == "":
		return fmt.Errorf("%w: id is required", ErrInvalidSimulation)
	case strings.TrimSpace(s.Owner.ID) == "":
		return fmt.Errorf("%w: owner is required", ErrInvalidSimulation)
	case s.CreatedAt.IsZero():
		return fmt.Errorf("%w: creation time is required", ErrInvalidSimulation)
	case strings.TrimSpace(s.World.Name) == "":
		return fmt.Errorf("%w: world is required", ErrInvalidSimulation)
	case !s.Status.Valid():
		return fmt.Errorf("%w: unknown status %q", ErrInvalidSimulation, s.Status)
	}
	return nil
}

// Field returns the string value of a queryable field.
func (s Simulation) Field(name Field) (string, bool) {
	switch name {
	case FieldID:
		return s.ID, true
	case FieldOwnerID:
		return s.Owner.ID, true
	case FieldWorldName:
		return s.World.Name, true
	case FieldStatus:
		return string(s.Status), true
	default:
		return "", false
	}
}

func (s Simulation) String() string {
	return fmt.Sprintf("simulation %s (owner=%s world=%s status=%s)", s.ID, s.Owner.ID, s.World.Name, s.Status)
}
