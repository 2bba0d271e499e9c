package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"lifesim/internal/directory"
	"lifesim/pkg/domain"
)

// Operation names reported to the MetricsRecorder.
const (
	OpGet       = "get"
	OpGetAll    = "get_all"
	OpCreate    = "create"
	OpDelete    = "delete"
	OpBootstrap = "bootstrap"
)

// UserDirectory resolves users referenced by simulations.
type UserDirectory interface {
	User(ctx context.Context, id string) (domain.User, bool)
}

// WorldDirectory resolves worlds referenced by simulations.
type WorldDirectory interface {
	World(ctx context.Context, name string) (domain.World, bool)
}

// RepositoryOption configures a SimulationRepository.
type RepositoryOption func(*SimulationRepository)

// WithLogger installs a structured logger.
func WithLogger(l Logger) RepositoryOption {
	return func(r *SimulationRepository) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics installs a metrics recorder.
func WithMetrics(m MetricsRecorder) RepositoryOption {
	return func(r *SimulationRepository) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithClock overrides the time source used for seeded records and latencies.
func WithClock(now func() time.Time) RepositoryOption {
	return func(r *SimulationRepository) {
		if now != nil {
			r.now = now
		}
	}
}

// WithUserDirectory sets the source of the default user.
func WithUserDirectory(d UserDirectory) RepositoryOption {
	return func(r *SimulationRepository) {
		if d != nil {
			r.users = d
		}
	}
}

// WithWorldDirectory sets the source of the default world.
func WithWorldDirectory(d WorldDirectory) RepositoryOption {
	return func(r *SimulationRepository) {
		if d != nil {
			r.worlds = d
		}
	}
}

// SimulationRepository is the data-access facade for simulation records.
// Reads never fail: engine errors are logged and reported as absence.
type SimulationRepository struct {
	handle  *Handle
	users   UserDirectory
	worlds  WorldDirectory
	logger  Logger
	metrics MetricsRecorder
	now     func() time.Time

	// writeMu serializes the lookup-then-write sequences of Create and Delete.
	writeMu sync.Mutex
}

// NewSimulationRepository builds a repository over handle and seeds the
// default simulation when it is missing. A nil handle selects DefaultHandle.
// Without directory options, users and worlds come from LIFESIM_DIRECTORY_PATH
// merged over the built-ins. Seeding failures are logged and do not prevent
// construction.
func NewSimulationRepository(ctx context.Context, handle *Handle, opts ...RepositoryOption) *SimulationRepository {
	if handle == nil {
		handle = DefaultHandle()
	}
	r := &SimulationRepository{
		handle:  handle,
		logger:  noopLogger{},
		metrics: noopMetrics{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.users == nil || r.worlds == nil {
		dir := r.loadDirectory()
		if r.users == nil {
			r.users = dir
		}
		if r.worlds == nil {
			r.worlds = dir
		}
	}
	r.bootstrap(ctx)
	return r
}

// loadDirectory reads the configured directory file, falling back to the
// built-in entries when the environment or the file is unusable.
func (r *SimulationRepository) loadDirectory() *directory.Directory {
	cfg, err := LoadConfig()
	if err != nil {
		r.logger.Warn("load directory config, using built-ins", "error", err)
		return directory.New()
	}
	dir, err := directory.Load(cfg.DirectoryPath)
	if err != nil {
		r.logger.Warn("load directory, using built-ins", "path", cfg.DirectoryPath, "error", err)
		return directory.New()
	}
	snap := dir.Snapshot()
	r.logger.Debug("directory loaded", "path", cfg.DirectoryPath, "users", len(snap.Users), "worlds", len(snap.Worlds))
	return dir
}

func (r *SimulationRepository) observe(ctx context.Context, op string, start time.Time, err error) {
	r.metrics.Observe(ctx, op, err == nil, r.now().Sub(start))
}

func (r *SimulationRepository) bootstrap(ctx context.Context) {
	start := r.now()
	if _, ok := r.Get(ctx, domain.DefaultSimulationID); ok {
		r.logger.Debug("default simulation present", "id", domain.DefaultSimulationID)
		return
	}
	err := r.seedDefault(ctx)
	if err != nil {
		err = &domain.BootstrapError{Cause: err}
		r.logger.Error("seed default simulation", "id", domain.DefaultSimulationID, "error", err)
	} else {
		r.logger.Info("seeded default simulation", "id", domain.DefaultSimulationID)
	}
	r.observe(ctx, OpBootstrap, start, err)
}

func (r *SimulationRepository) seedDefault(ctx context.Context) error {
	user, ok := r.users.User(ctx, domain.DefaultUserID)
	if !ok {
		return fmt.Errorf("default user %s not found", domain.DefaultUserID)
	}
	world, ok := r.worlds.World(ctx, domain.DefaultWorldName)
	if !ok {
		return fmt.Errorf("default world %s not found", domain.DefaultWorldName)
	}
	sim, err := domain.NewSimulation(domain.DefaultSimulationID, user, r.now(), world, domain.StatusPrepared)
	if err != nil {
		return err
	}
	err = r.insert(ctx, sim)
	if errors.Is(err, domain.ErrAlreadyExists) {
		// Seeded concurrently by another repository on the same engine.
		return nil
	}
	return err
}

// Get returns the simulation stored under id.
func (r *SimulationRepository) Get(ctx context.Context, id string) (domain.Simulation, bool) {
	start := r.now()
	sim, ok, err := r.lookup(ctx, id)
	r.observe(ctx, OpGet, start, err)
	if err != nil {
		r.logger.Warn("get simulation", "id", id, "error", err)
		return domain.Simulation{}, false
	}
	return sim, ok
}

// GetByValue returns the stored simulation sharing sim's id.
func (r *SimulationRepository) GetByValue(ctx context.Context, sim domain.Simulation) (domain.Simulation, bool) {
	return r.Get(ctx, sim.ID)
}

// GetAll returns every stored simulation ordered by id.
func (r *SimulationRepository) GetAll(ctx context.Context) []domain.Simulation {
	start := r.now()
	sims, err := r.query(ctx, domain.AllSimulations())
	r.observe(ctx, OpGetAll, start, err)
	if err != nil {
		r.logger.Warn("list simulations", "error", err)
		return []domain.Simulation{}
	}
	if sims == nil {
		sims = []domain.Simulation{}
	}
	sortByID(sims)
	return sims
}

// Create stores sim when no record shares its id.
func (r *SimulationRepository) Create(ctx context.Context, sim domain.Simulation) error {
	start := r.now()
	err := r.create(ctx, sim)
	r.observe(ctx, OpCreate, start, err)
	if err != nil {
		r.logger.Warn("create simulation", "id", sim.ID, "error", err)
		return err
	}
	r.logger.Debug("created simulation", "id", sim.ID)
	return nil
}

func (r *SimulationRepository) create(ctx context.Context, sim domain.Simulation) error {
	if err := sim.Validate(); err != nil {
		return err
	}
	sim.CreatedAt = sim.CreatedAt.UTC().Round(0)
	return r.insert(ctx, sim)
}

func (r *SimulationRepository) insert(ctx context.Context, sim domain.Simulation) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	_, exists, err := r.lookup(ctx, sim.ID)
	if err != nil {
		return err
	}
	if exists {
		return &domain.AlreadyExistsError{ID: sim.ID}
	}
	engine, err := r.handle.Engine(ctx)
	if err != nil {
		return err
	}
	if err := engine.Store(ctx, sim); err != nil {
		return fmt.Errorf("store simulation %s: %w", sim.ID, err)
	}
	return nil
}

// Delete removes the simulation stored under id and returns it.
func (r *SimulationRepository) Delete(ctx context.Context, id string) (domain.Simulation, error) {
	start := r.now()
	sim, err := r.remove(ctx, id)
	r.observe(ctx, OpDelete, start, err)
	if err != nil {
		r.logger.Warn("delete simulation", "id", id, "error", err)
		return domain.Simulation{}, err
	}
	r.logger.Debug("deleted simulation", "id", id)
	return sim, nil
}

func (r *SimulationRepository) remove(ctx context.Context, id string) (domain.Simulation, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	sim, ok, err := r.lookup(ctx, id)
	if err != nil {
		return domain.Simulation{}, err
	}
	if !ok {
		return domain.Simulation{}, &domain.NotFoundError{ID: id}
	}
	engine, err := r.handle.Engine(ctx)
	if err != nil {
		return domain.Simulation{}, err
	}
	removed, err := engine.Remove(ctx, id)
	if err != nil {
		return domain.Simulation{}, fmt.Errorf("remove simulation %s: %w", id, err)
	}
	if !removed {
		return domain.Simulation{}, &domain.NotFoundError{ID: id}
	}
	return sim, nil
}

// Close is a no-op; the engine belongs to the Handle.
func (r *SimulationRepository) Close() error { return nil }

func (r *SimulationRepository) lookup(ctx context.Context, id string) (domain.Simulation, bool, error) {
	sims, err := r.query(ctx, domain.FieldEquals(domain.FieldID, id))
	if err != nil {
		return domain.Simulation{}, false, err
	}
	for _, sim := range sims {
		if sim.ID == id {
			return sim, true, nil
		}
	}
	return domain.Simulation{}, false, nil
}

func (r *SimulationRepository) query(ctx context.Context, q domain.Query) ([]domain.Simulation, error) {
	engine, err := r.handle.Engine(ctx)
	if err != nil {
		return nil, err
	}
	sims, err := engine.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query simulations: %w", err)
	}
	return sims, nil
}

func sortByID(sims []domain.Simulation) {
	sort.Slice(sims, func(i, j int) bool { return sims[i].ID < sims[j].ID })
}
