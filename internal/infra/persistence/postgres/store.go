// Package postgres provides a Postgres-backed simulation engine that serves
// reads from an in-memory mirror and writes every mutation through to the
// simulations table.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"lifesim/internal/infra/persistence/memory"
	"lifesim/internal/schema"
	"lifesim/pkg/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

// Compile-time contract assertion ensuring the store satisfies the domain engine interface.
var _ domain.Engine = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/lifesim?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists simulations to Postgres while answering queries from memory.
type Store struct {
	mirror *memory.Store
	db     *sql.DB
	mu     sync.Mutex
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back to defaultDSN).
// It ensures the simulations table exists and hydrates the mirror from it.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureTable(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	snapshot, err := loadSnapshot(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	mirror := memory.NewStore()
	mirror.ImportState(snapshot)
	return &Store{mirror: mirror, db: db}, nil
}

func ensureTable(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema.SplitStatements(schema.Postgres()) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure simulations table: %w", err)
		}
	}
	return nil
}

func loadSnapshot(ctx context.Context, db *sql.DB) (memory.Snapshot, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, payload FROM simulations`)
	if err != nil {
		return memory.Snapshot{}, fmt.Errorf("select simulations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	snapshot := memory.Snapshot{Simulations: make(map[string]domain.Simulation)}
	for rows.Next() {
		var (
			id      string
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return memory.Snapshot{}, fmt.Errorf("scan simulation: %w", err)
		}
		if len(payload) == 0 {
			continue
		}
		var sim domain.Simulation
		if err := json.Unmarshal(payload, &sim); err != nil {
			return memory.Snapshot{}, fmt.Errorf("decode simulation %s: %w", id, err)
		}
		snapshot.Simulations[id] = sim
	}
	if err := rows.Err(); err != nil {
		return memory.Snapshot{}, fmt.Errorf("iterate simulations: %w", err)
	}
	return snapshot, nil
}

// Driver reports the postgres driver.
func (s *Store) Driver() domain.Driver { return domain.DriverPostgres }

// Store upserts the row, then the mirror once the write has committed.
func (s *Store) Store(ctx context.Context, sim domain.Simulation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, err := json.Marshal(sim)
	if err != nil {
		return fmt.Errorf("encode simulation %s: %w", sim.ID, err)
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO simulations(id, owner_id, world_name, status, created_at, payload) VALUES($1,$2,$3,$4,$5,$6) ON CONFLICT(id) DO UPDATE SET owner_id=EXCLUDED.owner_id, world_name=EXCLUDED.world_name, status=EXCLUDED.status, created_at=EXCLUDED.created_at, payload=EXCLUDED.payload`,
		sim.ID, sim.Owner.ID, sim.World.Name, string(sim.Status), sim.CreatedAt.UTC().Format(time.RFC3339Nano), string(payload)); err != nil {
		return fmt.Errorf("upsert simulation %s: %w", sim.ID, err)
	}
	return s.mirror.Store(ctx, sim)
}

// Query answers from the in-memory mirror.
func (s *Store) Query(ctx context.Context, q domain.Query) ([]domain.Simulation, error) {
	return s.mirror.Query(ctx, q)
}

// Remove deletes the row and drops it from the mirror.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, err := s.mirror.Query(ctx, domain.FieldEquals(domain.FieldID, id))
	if err != nil {
		return false, err
	}
	if len(existing) == 0 {
		return false, nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM simulations WHERE id = $1`, id); err != nil {
		return false, fmt.Errorf("delete simulation %s: %w", id, err)
	}
	return s.mirror.Remove(ctx, id)
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
