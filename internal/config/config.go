package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/multierr"

	"github.com/DesertImage/ecs-burst-sub000/internal/core/ecs"
	"github.com/DesertImage/ecs-burst-sub000/internal/core/system"
)

type Config struct {
	World     WorldConfig     `toml:"world"`
	Runner    RunnerConfig    `toml:"runner"`
	Logging   LoggingConfig   `toml:"logging"`
	Data      DataConfig      `toml:"data"`
	Scripting ScriptingConfig `toml:"scripting"`
}

// WorldConfig holds starting capacities, all of which grow at runtime,
// and the world bounds.
type WorldConfig struct {
	EntityCapacity    int `toml:"entity_capacity"`
	ComponentCapacity int `toml:"component_capacity"`
	DenseCapacity     int `toml:"dense_capacity"`
	SparseCapacity    int `toml:"sparse_capacity"`
	AllocatorBytes    int `toml:"allocator_bytes"`

	// Bounds is min_x, min_y, max_x, max_y. Entities leaving it are
	// destroyed. Empty disables the check.
	Bounds []float32 `toml:"bounds"`
}

type RunnerConfig struct {
	TickRate   time.Duration `toml:"tick_rate"`
	Workers    int           `toml:"workers"`     // 0 = GOMAXPROCS
	MaxTicks   uint64        `toml:"max_ticks"`   // 0 = run until signalled
	StatsEvery uint64        `toml:"stats_every"` // ticks between stat lines, 0 = off
	DumpWorld  bool          `toml:"dump_world"`  // add the component table to stat lines at debug level
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type DataConfig struct {
	PrefabFile string `toml:"prefab_file"`
	SpawnFile  string `toml:"spawn_file"` // may equal PrefabFile
}

type ScriptingConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
	Phase   string `toml:"phase"` // runner phase for script systems
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the configuration used when no file overrides a value.
func Default() *Config { return defaults() }

// Validate reports every invalid value at once.
func (c *Config) Validate() error {
	var err error
	nonNegative := func(name string, v int) {
		if v < 0 {
			err = multierr.Append(err, fmt.Errorf("%s must not be negative, got %d", name, v))
		}
	}
	nonNegative("world.entity_capacity", c.World.EntityCapacity)
	nonNegative("world.component_capacity", c.World.ComponentCapacity)
	nonNegative("world.dense_capacity", c.World.DenseCapacity)
	nonNegative("world.sparse_capacity", c.World.SparseCapacity)
	nonNegative("world.allocator_bytes", c.World.AllocatorBytes)
	nonNegative("runner.workers", c.Runner.Workers)

	if n := len(c.World.Bounds); n != 0 && n != 4 {
		err = multierr.Append(err, fmt.Errorf("world.bounds needs 4 values, got %d", n))
	} else if n == 4 && (c.World.Bounds[0] >= c.World.Bounds[2] || c.World.Bounds[1] >= c.World.Bounds[3]) {
		err = multierr.Append(err, fmt.Errorf("world.bounds min must be below max, got %v", c.World.Bounds))
	}
	if c.Runner.TickRate <= 0 {
		err = multierr.Append(err, fmt.Errorf("runner.tick_rate must be positive, got %s", c.Runner.TickRate))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		err = multierr.Append(err, fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		err = multierr.Append(err, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	if c.Scripting.Enabled && c.Scripting.Dir == "" {
		err = multierr.Append(err, fmt.Errorf("scripting.dir is required when scripting is enabled"))
	}
	if _, ok := system.ParsePhase(c.Scripting.Phase); !ok {
		err = multierr.Append(err, fmt.Errorf("scripting.phase %q is not a runner phase", c.Scripting.Phase))
	}
	return err
}

// WorldOptions converts the world and runner sections into ecs.Options.
func (c *Config) WorldOptions() ecs.Options {
	return ecs.Options{
		EntityCapacity:    c.World.EntityCapacity,
		ComponentCapacity: c.World.ComponentCapacity,
		DenseCapacity:     c.World.DenseCapacity,
		SparseCapacity:    c.World.SparseCapacity,
		AllocatorBytes:    c.World.AllocatorBytes,
		Workers:           c.Runner.Workers,
	}
}

func defaults() *Config {
	return &Config{
		World: WorldConfig{
			EntityCapacity:    1024,
			ComponentCapacity: 32,
			DenseCapacity:     64,
			SparseCapacity:    1024,
			AllocatorBytes:    1 << 20,
		},
		Runner: RunnerConfig{
			TickRate:   50 * time.Millisecond,
			StatsEvery: 100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Data: DataConfig{
			PrefabFile: "data/prefabs.yaml",
			SpawnFile:  "data/prefabs.yaml",
		},
		Scripting: ScriptingConfig{
			Enabled: true,
			Dir:     "scripts",
			Phase:   "update",
		},
	}
}
