// Package memory provides an in-memory implementation of the simulation
// storage engine used for tests and ephemeral environments.
package memory

import (
	"context"
	"sort"
	"sync"

	"lifesim/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain engine interface.
var _ domain.Engine = (*Store)(nil)

type (
	// Simulation aliases domain.Simulation for in-memory persistence operations.
	Simulation = domain.Simulation
	// Query aliases domain.Query.
	Query = domain.Query
)

// Snapshot captures a point-in-time clone of the store state keyed by simulation id.
type Snapshot struct {
	Simulations map[string]Simulation `json:"simulations"`
}

// Store keeps simulations in a map keyed by id.
type Store struct {
	mu          sync.RWMutex
	simulations map[string]Simulation
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{simulations: make(map[string]Simulation)}
}

// Driver reports the memory driver.
func (s *Store) Driver() domain.Driver { return domain.DriverMemory }

// Store upserts the simulation under its id.
func (s *Store) Store(_ context.Context, sim Simulation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.simulations[sim.ID] = sim
	return nil
}

// Query returns the simulations matching q ordered by id. Exact id lookups
// are served from the map directly.
func (s *Store) Query(_ context.Context, q Query) ([]Simulation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if q.Field == domain.FieldID {
		sim, ok := s.simulations[q.Value]
		if !ok {
			return nil, nil
		}
		return []Simulation{sim}, nil
	}
	out := make([]Simulation, 0, len(s.simulations))
	for _, sim := range s.simulations {
		if q.Matches(sim) {
			out = append(out, sim)
		}
	}
	sortByID(out)
	return out, nil
}

// Remove deletes the simulation with id, reporting whether it existed.
func (s *Store) Remove(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.simulations[id]; !ok {
		return false, nil
	}
	delete(s.simulations, id)
	return true, nil
}

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.simulations = make(map[string]Simulation, len(snapshot.Simulations))
	for id, sim := range snapshot.Simulations {
		if sim.ID == "" {
			sim.ID = id
		}
		s.simulations[sim.ID] = sim
	}
}

func sortByID(sims []Simulation) {
	sort.Slice(sims, func(i, j int) bool { return sims[i].ID < sims[j].ID })
}
