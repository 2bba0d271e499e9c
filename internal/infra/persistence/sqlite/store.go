// Package sqlite provides a SQLite-backed simulation engine storing one row
// per simulation alongside its JSON payload.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"lifesim/internal/schema"
	"lifesim/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Compile-time contract assertion ensuring the store satisfies the domain engine interface.
var _ domain.Engine = (*Store)(nil)

const defaultPath = "lifesim.db"

// columns maps queryable fields onto indexed columns; unknown fields never match.
var columns = map[domain.Field]string{
	domain.FieldID:        "id",
	domain.FieldOwnerID:   "owner_id",
	domain.FieldWorldName: "world_name",
	domain.FieldStatus:    "status",
}

// Store persists simulations to a single SQLite table.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the SQLite database at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite serializes writers; a single connection avoids SQLITE_BUSY under concurrent use.
	db.SetMaxOpenConns(1)
	for _, stmt := range schema.SplitStatements(schema.SQLite()) {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return &Store{db: db, path: path}, nil
}

// Driver reports the sqlite driver.
func (s *Store) Driver() domain.Driver { return domain.DriverSQLite }

// Store upserts the simulation row.
func (s *Store) Store(ctx context.Context, sim domain.Simulation) error {
	payload, err := json.Marshal(sim)
	if err != nil {
		return fmt.Errorf("encode simulation %s: %w", sim.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO simulations(id, owner_id, world_name, status, created_at, payload)
		VALUES(?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id=excluded.owner_id,
			world_name=excluded.world_name,
			status=excluded.status,
			created_at=excluded.created_at,
			payload=excluded.payload`,
		sim.ID, sim.Owner.ID, sim.World.Name, string(sim.Status), sim.CreatedAt.UTC().Format(time.RFC3339Nano), payload)
	if err != nil {
		return fmt.Errorf("upsert simulation %s: %w", sim.ID, err)
	}
	return nil
}

// Query selects the simulations matching q ordered by id.
func (s *Store) Query(ctx context.Context, q domain.Query) ([]domain.Simulation, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if q.IsScan() {
		rows, err = s.db.QueryContext(ctx, `SELECT payload FROM simulations ORDER BY id`)
	} else {
		col, ok := columns[q.Field]
		if !ok {
			return nil, nil
		}
		rows, err = s.db.QueryContext(ctx, `SELECT payload FROM simulations WHERE `+col+` = ? ORDER BY id`, q.Value)
	}
	if err != nil {
		return nil, fmt.Errorf("select simulations: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Simulation
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		var sim domain.Simulation
		if err := json.Unmarshal(payload, &sim); err != nil {
			return nil, fmt.Errorf("decode simulation: %w", err)
		}
		out = append(out, sim)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate simulations: %w", err)
	}
	return out, nil
}

// Remove deletes the row for id, reporting whether one existed.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM simulations WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete simulation %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
