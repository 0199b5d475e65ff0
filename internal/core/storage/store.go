// Package storage implements the terrain cold store: evicted chunk blobs keyed
// by chunk coordinate. Three backends are provided, selected by Config.Driver.
package storage

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/zeusync/hexkernel/internal/core/errs"
	"github.com/zeusync/hexkernel/internal/core/observability/log"
	"github.com/zeusync/hexkernel/internal/core/terrain"
)

type Driver string

const (
	DriverMemory   Driver = "memory"
	DriverBolt     Driver = "bolt"
	DriverPostgres Driver = "postgres"
)

type Config struct {
	Driver          Driver        `yaml:"driver" toml:"driver"`
	Path            string        `yaml:"path" toml:"path"`
	DSN             string        `yaml:"dsn" toml:"dsn"`
	MaxConns        int           `yaml:"max_conns" toml:"max_conns"`
	MinConns        int           `yaml:"min_conns" toml:"min_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" toml:"conn_max_lifetime"`
}

func ParseDriver(s string) (Driver, error) {
	switch d := Driver(strings.ToLower(strings.TrimSpace(s))); d {
	case DriverMemory, DriverBolt, DriverPostgres:
		return d, nil
	case "":
		return DriverMemory, nil
	default:
		return "", fmt.Errorf("%w: unknown storage driver %q", errs.ErrValidation, s)
	}
}

// Open builds the configured backend. The caller owns the returned store.
func Open(ctx context.Context, cfg Config, logger log.Log) (terrain.ColdStore, error) {
	if logger == nil {
		logger = log.NewNop()
	}
	logger = logger.With(log.String("component", "storage"), log.String("driver", string(cfg.Driver)))

	switch cfg.Driver {
	case DriverMemory, "":
		return NewMemoryStore(), nil
	case DriverBolt:
		return OpenBolt(cfg.Path)
	case DriverPostgres:
		return OpenPostgres(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("%w: unknown storage driver %q", errs.ErrValidation, cfg.Driver)
	}
}

// Statistics is a point-in-time view of a store, used by health reporting.
type Statistics struct {
	Driver Driver `json:"driver"`
	Chunks int    `json:"chunks"`
}

func chunkKey(x, y int) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint32(key[:4], uint32(int32(x)))
	binary.BigEndian.PutUint32(key[4:], uint32(int32(y)))
	return key
}
