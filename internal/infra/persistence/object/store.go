// Package object provides a simulation engine that persists each record as a
// JSON object in a blob store (filesystem, S3 or memory).
package object

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"lifesim/internal/blob/core"
	"lifesim/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain engine interface.
var _ domain.Engine = (*Store)(nil)

// Prefix namespaces simulation objects inside the blob store.
const Prefix = "simulations/"

// scanConcurrency bounds parallel object reads during prefix scans.
const scanConcurrency = 8

// Store maps simulations onto blobs keyed by their escaped id.
type Store struct {
	blobs core.Store
}

// NewStore wraps blobs as a simulation engine.
func NewStore(blobs core.Store) *Store {
	return &Store{blobs: blobs}
}

// Key returns the blob key holding the simulation with id. Dots are escaped
// too so no id can produce a ".." segment or collide with the extension.
func Key(id string) string {
	return Prefix + strings.ReplaceAll(url.PathEscape(id), ".", "%2E") + ".json"
}

// Driver reports the object driver.
func (s *Store) Driver() domain.Driver { return domain.DriverObject }

// Blobs exposes the underlying blob store.
func (s *Store) Blobs() core.Store { return s.blobs }

// Store writes the simulation object, replacing any previous version.
func (s *Store) Store(ctx context.Context, sim domain.Simulation) error {
	payload, err := json.Marshal(sim)
	if err != nil {
		return fmt.Errorf("encode simulation %s: %w", sim.ID, err)
	}
	if _, err := s.blobs.Put(ctx, Key(sim.ID), bytes.NewReader(payload), core.PutOptions{ContentType: "application/json"}); err != nil {
		return fmt.Errorf("put simulation %s: %w", sim.ID, err)
	}
	return nil
}

// Query reads a single object for id lookups and scans the prefix otherwise.
func (s *Store) Query(ctx context.Context, q domain.Query) ([]domain.Simulation, error) {
	if q.Field == domain.FieldID {
		sim, ok, err := s.load(ctx, Key(q.Value))
		if err != nil || !ok || !q.Matches(sim) {
			return nil, err
		}
		return []domain.Simulation{sim}, nil
	}
	infos, err := s.blobs.List(ctx, Prefix)
	if err != nil {
		return nil, fmt.Errorf("list simulations: %w", err)
	}
	loaded := make([]domain.Simulation, len(infos))
	found := make([]bool, len(infos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scanConcurrency)
	for i, info := range infos {
		i, info := i, info
		g.Go(func() error {
			sim, ok, err := s.load(gctx, info.Key)
			if err != nil {
				return err
			}
			loaded[i], found[i] = sim, ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []domain.Simulation
	for i, sim := range loaded {
		if found[i] && q.Matches(sim) {
			out = append(out, sim)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Remove deletes the object for id, reporting whether it existed.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	existed, err := s.blobs.Delete(ctx, Key(id))
	if err != nil {
		return false, fmt.Errorf("delete simulation %s: %w", id, err)
	}
	return existed, nil
}

// Close is a no-op; blob stores hold no long-lived handles.
func (s *Store) Close() error { return nil }

// load reads and decodes one object; a vanished object is reported as absent.
func (s *Store) load(ctx context.Context, key string) (domain.Simulation, bool, error) {
	_, rc, err := s.blobs.Get(ctx, key)
	if errors.Is(err, core.ErrNotFound) {
		return domain.Simulation{}, false, nil
	}
	if err != nil {
		return domain.Simulation{}, false, fmt.Errorf("get %s: %w", key, err)
	}
	defer func() { _ = rc.Close() }()
	var sim domain.Simulation
	if err := json.NewDecoder(rc).Decode(&sim); err != nil {
		return domain.Simulation{}, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return sim, true, nil
}
