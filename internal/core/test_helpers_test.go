package core

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	blobfs "lifesim/internal/infra/blob/fs"
	blobmemory "lifesim/internal/infra/blob/memory"
	blobs3 "lifesim/internal/infra/blob/s3"
	"lifesim/internal/infra/persistence/memory"
	"lifesim/internal/infra/persistence/object"
	"lifesim/internal/infra/persistence/postgres"
	"lifesim/internal/infra/persistence/postgres/testutil"
	"lifesim/internal/infra/persistence/sqlite"
	"lifesim/pkg/domain"
)

var fixedNow = time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type engineCase struct {
	name string
	open func(t *testing.T) domain.Engine
}

// engineCases lists one fresh engine per backend.
func engineCases() []engineCase {
	return []engineCase{
		{name: "memory", open: func(*testing.T) domain.Engine { return memory.NewStore() }},
		{name: "sqlite", open: func(t *testing.T) domain.Engine {
			store, err := sqlite.NewStore(filepath.Join(t.TempDir(), "lifesim.db"))
			if err != nil {
				t.Fatalf("sqlite: %v", err)
			}
			return store
		}},
		{name: "postgres", open: func(t *testing.T) domain.Engine {
			db, _ := testutil.NewStubDB()
			restore := postgres.OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
			defer restore()
			store, err := postgres.NewStore(context.Background(), "")
			if err != nil {
				t.Fatalf("postgres: %v", err)
			}
			return store
		}},
		{name: "object-memory", open: func(*testing.T) domain.Engine {
			return object.NewStore(blobmemory.New())
		}},
		{name: "object-fs", open: func(t *testing.T) domain.Engine {
			blobs, err := blobfs.New(t.TempDir())
			if err != nil {
				t.Fatalf("fs: %v", err)
			}
			return object.NewStore(blobs)
		}},
		{name: "object-s3", open: func(*testing.T) domain.Engine {
			return object.NewStore(blobs3.NewMockForTests())
		}},
	}
}

func forEachEngine(t *testing.T, fn func(t *testing.T, handle *Handle)) {
	t.Helper()
	for _, tc := range engineCases() {
		t.Run(tc.name, func(t *testing.T) {
			handle := HandleFor(tc.open(t))
			t.Cleanup(func() { _ = handle.Close() })
			fn(t, handle)
		})
	}
}

func newSim(id, owner, world string) domain.Simulation {
	return domain.Simulation{
		ID:        id,
		Owner:     domain.User{ID: owner},
		CreatedAt: time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
		World:     domain.World{Name: world, Size: 16},
		Status:    domain.StatusPrepared,
	}
}

func ids(sims []domain.Simulation) []string {
	out := make([]string, 0, len(sims))
	for _, s := range sims {
		out = append(out, s.ID)
	}
	return out
}

// failingEngine returns configured errors from each engine call.
type failingEngine struct {
	mu        sync.Mutex
	queryErr  error
	storeErr  error
	removeErr error
	closeErr  error
	removed   bool
	stored    []domain.Simulation
	records   []domain.Simulation
}

func (f *failingEngine) Driver() domain.Driver { return "failing" }

func (f *failingEngine) Store(_ context.Context, s domain.Simulation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storeErr != nil {
		return f.storeErr
	}
	f.stored = append(f.stored, s)
	return nil
}

func (f *failingEngine) Query(_ context.Context, q domain.Query) ([]domain.Simulation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var out []domain.Simulation
	for _, s := range f.records {
		if q.Matches(s) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *failingEngine) Remove(context.Context, string) (bool, error) {
	return f.removed, f.removeErr
}

func (f *failingEngine) Close() error { return f.closeErr }

var errBoom = errors.New("boom")

// recordingLogger captures log calls by level.
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

type logEntry struct {
	level string
	msg   string
	kv    []any
}

func (l *recordingLogger) add(level, msg string, kv []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, kv: kv})
}

func (l *recordingLogger) Debug(msg string, kv ...any) { l.add("debug", msg, kv) }
func (l *recordingLogger) Info(msg string, kv ...any)  { l.add("info", msg, kv) }
func (l *recordingLogger) Warn(msg string, kv ...any)  { l.add("warn", msg, kv) }
func (l *recordingLogger) Error(msg string, kv ...any) { l.add("error", msg, kv) }

func (l *recordingLogger) levels(level string) []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []logEntry
	for _, e := range l.entries {
		if e.level == level {
			out = append(out, e)
		}
	}
	return out
}

// recordingMetrics captures Observe calls.
type recordingMetrics struct {
	mu    sync.Mutex
	calls []metricCall
}

type metricCall struct {
	op      string
	success bool
}

func (m *recordingMetrics) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, metricCall{op: op, success: success})
}

func (m *recordingMetrics) count(op string, success bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.op == op && c.success == success {
			n++
		}
	}
	return n
}

// mapDirectory serves users and worlds from maps.
type mapDirectory struct {
	users  map[string]domain.User
	worlds map[string]domain.World
}

func (d mapDirectory) User(_ context.Context, id string) (domain.User, bool) {
	u, ok := d.users[id]
	return u, ok
}

func (d mapDirectory) World(_ context.Context, name string) (domain.World, bool) {
	w, ok := d.worlds[name]
	return w, ok
}
