// Package blob selects a concrete blob store implementation.
package blob

import (
	"context"
	"fmt"

	"lifesim/internal/blob/core"
	"lifesim/internal/infra/blob/fs"
	"lifesim/internal/infra/blob/memory"
	"lifesim/internal/infra/blob/s3"
)

type (
	// Store aliases core.Store.
	Store = core.Store
	// Driver aliases core.Driver.
	Driver = core.Driver
)

// Config selects and configures a blob backend.
type Config struct {
	Driver Driver
	FSRoot string
	S3     s3.Config
}

// Open returns the blob store described by cfg. An empty driver means fs.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = core.DriverFilesystem
	}
	switch driver {
	case core.DriverFilesystem:
		return fs.New(cfg.FSRoot)
	case core.DriverS3:
		return s3.New(ctx, cfg.S3)
	case core.DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
