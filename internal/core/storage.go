package core

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"lifesim/internal/blob"
	blobcore "lifesim/internal/blob/core"
	"lifesim/internal/infra/blob/s3"
	"lifesim/internal/infra/persistence/memory"
	"lifesim/internal/infra/persistence/object"
	"lifesim/internal/infra/persistence/postgres"
	"lifesim/internal/infra/persistence/sqlite"
	"lifesim/pkg/domain"
)

// StorageDriver identifies a concrete storage engine.
type StorageDriver = domain.Driver

const (
	StorageMemory   = domain.DriverMemory
	StorageSQLite   = domain.DriverSQLite
	StoragePostgres = domain.DriverPostgres
	StorageObject   = domain.DriverObject
)

// ErrHandleClosed is returned by Handle.Engine after Close.
var ErrHandleClosed = errors.New("storage handle closed")

// OpenEngine builds the engine selected by cfg. Defaults to sqlite when unset.
func OpenEngine(ctx context.Context, cfg Config) (domain.Engine, error) {
	driver := StorageDriver(cfg.StorageDriver)
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		return sqlite.NewStore(cfg.SQLitePath)
	case StoragePostgres:
		return postgres.NewStore(ctx, cfg.PostgresDSN)
	case StorageObject:
		blobs, err := blob.Open(ctx, blob.Config{
			Driver: blobcore.Driver(cfg.ObjectDriver),
			FSRoot: cfg.ObjectFSRoot,
			S3: s3.Config{
				Bucket:    cfg.S3Bucket,
				Region:    cfg.S3Region,
				Endpoint:  cfg.S3Endpoint,
				PathStyle: cfg.S3PathStyle,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("open blob store: %w", err)
		}
		return object.NewStore(blobs), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

// OpenEngineFromEnv loads Config from the environment and opens its engine.
func OpenEngineFromEnv(ctx context.Context) (domain.Engine, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return OpenEngine(ctx, cfg)
}

// Opener creates the engine behind a Handle.
type Opener func(ctx context.Context) (domain.Engine, error)

// Handle lazily opens a single shared engine. The opener runs at most once
// successfully; a failed open is retried on the next call.
type Handle struct {
	mu     sync.Mutex
	open   Opener
	engine domain.Engine
	closed bool
}

// NewHandle returns a handle that opens its engine with open on first use.
func NewHandle(open Opener) *Handle {
	return &Handle{open: open}
}

// HandleFor wraps an already opened engine.
func HandleFor(engine domain.Engine) *Handle {
	return &Handle{engine: engine}
}

// Engine returns the shared engine, opening it on first use.
func (h *Handle) Engine(ctx context.Context) (domain.Engine, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHandleClosed
	}
	if h.engine != nil {
		return h.engine, nil
	}
	if h.open == nil {
		return nil, errors.New("storage handle has no opener")
	}
	engine, err := h.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open storage engine: %w", err)
	}
	h.engine = engine
	return engine, nil
}

// Close releases the engine if one was opened. The handle cannot be reused.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	if h.engine == nil {
		return nil
	}
	err := h.engine.Close()
	h.engine = nil
	return err
}

var defaultHandle = NewHandle(OpenEngineFromEnv)

// DefaultHandle returns the process-wide handle configured from the environment.
func DefaultHandle() *Handle { return defaultHandle }
