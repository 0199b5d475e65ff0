// Package config loads the hexkernel configuration: defaults, then one YAML or
// TOML file, then .env files and HEXKERNEL_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/hexkernel/internal/core/actor"
	"github.com/zeusync/hexkernel/internal/core/entity"
	"github.com/zeusync/hexkernel/internal/core/errs"
	"github.com/zeusync/hexkernel/internal/core/hex"
	"github.com/zeusync/hexkernel/internal/core/observability/log"
	"github.com/zeusync/hexkernel/internal/core/pathfinding"
	"github.com/zeusync/hexkernel/internal/core/storage"
	"github.com/zeusync/hexkernel/internal/core/terrain"
	"github.com/zeusync/hexkernel/internal/kernel"
	"github.com/zeusync/hexkernel/internal/server"
)

const EnvPrefix = "HEXKERNEL_"

type Config struct {
	Log     log.Config     `yaml:"log" toml:"log"`
	Kernel  KernelConfig   `yaml:"kernel" toml:"kernel"`
	Terrain TerrainConfig  `yaml:"terrain" toml:"terrain"`
	Storage storage.Config `yaml:"storage" toml:"storage"`
	Economy EconomyConfig  `yaml:"economy" toml:"economy"`
	Server  server.Config  `yaml:"server" toml:"server"`
}

type KernelConfig struct {
	TickInterval    time.Duration `yaml:"tick_interval" toml:"tick_interval"`
	CombatInterval  time.Duration `yaml:"combat_interval" toml:"combat_interval"`
	EconomyInterval time.Duration `yaml:"economy_interval" toml:"economy_interval"`
	AttackInterval  time.Duration `yaml:"attack_interval" toml:"attack_interval"`

	PathWorkers     int  `yaml:"path_workers" toml:"path_workers"`
	ExpansionLimit  int  `yaml:"expansion_limit" toml:"expansion_limit"`
	RandomAttempts  int  `yaml:"random_attempts" toml:"random_attempts"`
	NoCornerCutting bool `yaml:"no_corner_cutting" toml:"no_corner_cutting"`

	SpawnCenter hex.Coord `yaml:"spawn_center" toml:"spawn_center"`
	SpawnSeed   uint64    `yaml:"spawn_seed" toml:"spawn_seed"`
}

type TerrainConfig struct {
	Seed              int64         `yaml:"seed" toml:"seed"`
	Capacity          int           `yaml:"capacity" toml:"capacity"`
	Shards            int           `yaml:"shards" toml:"shards"`
	AsyncEviction     bool          `yaml:"async_eviction" toml:"async_eviction"`
	FlushInterval     time.Duration `yaml:"flush_interval" toml:"flush_interval"`
	MountainThreshold float64       `yaml:"mountain_threshold" toml:"mountain_threshold"`
	// PreloadRadius is in chunks around the spawn centre.
	PreloadRadius int `yaml:"preload_radius" toml:"preload_radius"`
}

type EconomyConfig struct {
	Initial int64 `yaml:"initial" toml:"initial"`
	Cap     int64 `yaml:"cap" toml:"cap"`
}

func Default() *Config {
	return &Config{
		Log: log.Config{Level: "info", Encoding: "json"},
		Kernel: KernelConfig{
			TickInterval:    actor.DefaultTickInterval,
			CombatInterval:  actor.DefaultCombatInterval,
			EconomyInterval: actor.DefaultEconomyInterval,
			AttackInterval:  entity.DefaultAttackInterval,
			PathWorkers:     pathfinding.DefaultWorkers,
			ExpansionLimit:  pathfinding.DefaultExpansionLimit,
			RandomAttempts:  pathfinding.DefaultRandomAttempts,
			SpawnCenter:     hex.New(hex.MapSize/2, hex.MapSize/2),
			SpawnSeed:       1,
		},
		Terrain: TerrainConfig{
			Seed:              1,
			Capacity:          terrain.DefaultCapacity,
			Shards:            terrain.DefaultShards,
			FlushInterval:     terrain.DefaultFlushInterval,
			MountainThreshold: terrain.DefaultMountainThreshold,
			PreloadRadius:     2,
		},
		Storage: storage.Config{
			Driver:          storage.DriverMemory,
			Path:            "data/terrain.db",
			MaxConns:        8,
			MinConns:        1,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Economy: EconomyConfig{Initial: 1000, Cap: 10000},
		Server:  server.DefaultConfig(),
	}
}

// Load builds the configuration. path may be empty; envFiles that do not
// exist are skipped. The result is validated.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return nil, err
		}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", f, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(c); err != nil {
			return fmt.Errorf("%w: parse config %s: %v", errs.ErrValidation, path, err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), c)
		if err != nil {
			return fmt.Errorf("%w: parse config %s: %v", errs.ErrValidation, path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("%w: config %s: unknown keys %v", errs.ErrValidation, path, undecoded)
		}
	default:
		return fmt.Errorf("%w: unsupported config format %q", errs.ErrValidation, ext)
	}
	return nil
}

type envVar struct {
	name  string
	apply func(c *Config, v string) error
}

var envVars = []envVar{
	{"LOG_LEVEL", func(c *Config, v string) error { c.Log.Level = v; return nil }},
	{"LOG_ENCODING", func(c *Config, v string) error { c.Log.Encoding = v; return nil }},
	{"LOG_FILE", func(c *Config, v string) error { c.Log.File.Path = v; return nil }},
	{"TERRAIN_SEED", func(c *Config, v string) error { return parseInt(v, &c.Terrain.Seed) }},
	{"TERRAIN_CAPACITY", func(c *Config, v string) error { return parseInt(v, &c.Terrain.Capacity) }},
	{"TERRAIN_ASYNC_EVICTION", func(c *Config, v string) error { return parseBool(v, &c.Terrain.AsyncEviction) }},
	{"KERNEL_PATH_WORKERS", func(c *Config, v string) error { return parseInt(v, &c.Kernel.PathWorkers) }},
	{"KERNEL_TICK_INTERVAL", func(c *Config, v string) error { return parseDuration(v, &c.Kernel.TickInterval) }},
	{"STORAGE_DRIVER", func(c *Config, v string) error {
		d, err := storage.ParseDriver(v)
		c.Storage.Driver = d
		return err
	}},
	{"STORAGE_PATH", func(c *Config, v string) error { c.Storage.Path = v; return nil }},
	{"STORAGE_DSN", func(c *Config, v string) error { c.Storage.DSN = v; return nil }},
	{"SERVER_LISTEN", func(c *Config, v string) error { c.Server.Listen = v; return nil }},
	{"SERVER_AUTH_TOKEN", func(c *Config, v string) error { c.Server.AuthToken = v; return nil }},
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	for _, ev := range envVars {
		v, ok := lookup(EnvPrefix + ev.name)
		if !ok {
			continue
		}
		if err := ev.apply(c, strings.TrimSpace(v)); err != nil {
			return fmt.Errorf("%w: %s%s: %v", errs.ErrValidation, EnvPrefix, ev.name, err)
		}
	}
	return nil
}

func parseInt[T int | int64](v string, dst *T) error {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return err
	}
	*dst = T(n)
	return nil
}

func parseBool(v string, dst *bool) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}
	*dst = b
	return nil
}

func parseDuration(v string, dst *time.Duration) error {
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	_, err := log.ParseLevel(c.Log.Level)
	check(err == nil, "log.level %q", c.Log.Level)
	check(c.Log.Encoding == "" || c.Log.Encoding == "json" || c.Log.Encoding == "console", "log.encoding %q", c.Log.Encoding)

	k := c.Kernel
	check(k.TickInterval > 0, "kernel.tick_interval must be positive")
	check(k.CombatInterval > 0, "kernel.combat_interval must be positive")
	check(k.EconomyInterval > 0, "kernel.economy_interval must be positive")
	check(k.AttackInterval > 0, "kernel.attack_interval must be positive")
	check(k.PathWorkers > 0, "kernel.path_workers must be at least 1")
	check(k.ExpansionLimit > 0, "kernel.expansion_limit must be positive")
	check(k.RandomAttempts > 0, "kernel.random_attempts must be positive")
	check(k.SpawnCenter.InBounds(), "kernel.spawn_center %s is off the map", k.SpawnCenter)

	t := c.Terrain
	check(t.Capacity > 0, "terrain.capacity must be at least 1")
	check(t.Shards > 0, "terrain.shards must be at least 1")
	check(t.FlushInterval > 0, "terrain.flush_interval must be positive")
	check(t.MountainThreshold > 0 && t.MountainThreshold <= 1, "terrain.mountain_threshold must be in (0, 1]")
	check(t.PreloadRadius >= 0, "terrain.preload_radius must not be negative")

	driver, err := storage.ParseDriver(string(c.Storage.Driver))
	check(err == nil, "storage.driver %q", c.Storage.Driver)
	check(driver != storage.DriverBolt || c.Storage.Path != "", "storage.path is required for bolt")
	check(driver != storage.DriverPostgres || c.Storage.DSN != "", "storage.dsn is required for postgres")
	check(c.Storage.MaxConns >= 0 && c.Storage.MinConns >= 0, "storage pool sizes must not be negative")
	check(c.Storage.MaxConns == 0 || c.Storage.MinConns <= c.Storage.MaxConns, "storage.min_conns exceeds storage.max_conns")

	check(c.Economy.Cap > 0, "economy.cap must be positive")
	check(c.Economy.Initial >= 0 && c.Economy.Initial <= c.Economy.Cap, "economy.initial must be in [0, cap]")

	check(c.Server.Listen != "", "server.listen is required")
	check(c.Server.SessionBuffer >= 0, "server.session_buffer must not be negative")

	if len(problems) > 0 {
		return fmt.Errorf("%w: invalid config: %s", errs.ErrValidation, strings.Join(problems, "; "))
	}
	c.Storage.Driver = driver
	return nil
}

// KernelOptions maps the configuration onto kernel.Options.
func (c *Config) KernelOptions() kernel.Options {
	return kernel.Options{
		Actor: actor.Options{
			TickInterval:     c.Kernel.TickInterval,
			CombatInterval:   c.Kernel.CombatInterval,
			EconomyInterval:  c.Kernel.EconomyInterval,
			AttackInterval:   c.Kernel.AttackInterval,
			InitialResources: decimal.NewFromInt(c.Economy.Initial),
			ResourceCap:      decimal.NewFromInt(c.Economy.Cap),
		},
		Terrain: terrain.Options{
			Seed:              c.Terrain.Seed,
			Capacity:          c.Terrain.Capacity,
			Shards:            c.Terrain.Shards,
			AsyncEviction:     c.Terrain.AsyncEviction,
			MountainThreshold: c.Terrain.MountainThreshold,
			FlushInterval:     c.Terrain.FlushInterval,
		},
		Storage: c.Storage,
		Pathfinding: pathfinding.Options{
			Workers:        c.Kernel.PathWorkers,
			RandomAttempts: c.Kernel.RandomAttempts,
			Seed:           c.Kernel.SpawnSeed,
			Search: pathfinding.SearchOptions{
				ExpansionLimit:  c.Kernel.ExpansionLimit,
				NoCornerCutting: c.Kernel.NoCornerCutting,
			},
		},
		SpawnCenter:   c.Kernel.SpawnCenter,
		SpawnSeed:     c.Kernel.SpawnSeed,
		PreloadRadius: c.Terrain.PreloadRadius,
	}
}
