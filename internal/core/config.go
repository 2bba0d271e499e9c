package core

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config describes the storage backend and collaborator sources, loaded from
// the environment:
//
//	LIFESIM_STORAGE_DRIVER: memory|sqlite|postgres|object (default sqlite)
//	LIFESIM_SQLITE_PATH: path to sqlite file (default ./lifesim.db)
//	LIFESIM_POSTGRES_DSN: postgres DSN when driver=postgres
//	LIFESIM_OBJECT_DRIVER: fs|s3|memory blob backend when driver=object (default fs)
//	LIFESIM_OBJECT_FS_ROOT: directory root for the fs blob backend
//	LIFESIM_OBJECT_S3_*: bucket, region, endpoint and path-style for the s3 blob backend
//	LIFESIM_DIRECTORY_PATH: optional YAML file listing users and worlds
type Config struct {
	StorageDriver string `env:"LIFESIM_STORAGE_DRIVER" envDefault:"sqlite"`
	SQLitePath    string `env:"LIFESIM_SQLITE_PATH"    envDefault:"lifesim.db"`
	PostgresDSN   string `env:"LIFESIM_POSTGRES_DSN"`

	ObjectDriver string `env:"LIFESIM_OBJECT_DRIVER"  envDefault:"fs"`
	ObjectFSRoot string `env:"LIFESIM_OBJECT_FS_ROOT" envDefault:"blobdata"`
	S3Bucket     string `env:"LIFESIM_OBJECT_S3_BUCKET"`
	S3Region     string `env:"LIFESIM_OBJECT_S3_REGION" envDefault:"us-east-1"`
	S3Endpoint   string `env:"LIFESIM_OBJECT_S3_ENDPOINT"`
	S3PathStyle  bool   `env:"LIFESIM_OBJECT_S3_PATH_STYLE"`

	DirectoryPath string `env:"LIFESIM_DIRECTORY_PATH"`
}

// LoadConfig parses Config from the process environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
