package main

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rotisserie/eris"
)

type Config struct {
	World    WorldConfig    `toml:"world"`
	Logging  LoggingConfig  `toml:"logging"`
	Snapshot SnapshotConfig `toml:"snapshot"`
	Profile  ProfileConfig  `toml:"profile"`
}

type WorldConfig struct {
	Entities   int    `toml:"entities"`
	Ticks      int    `toml:"ticks"`
	InputDelay int    `toml:"input_delay"`     // ticks before an input is confirmed
	Window     int    `toml:"rollback_window"` // states kept for rollback, must exceed input_delay
	Seed       uint64 `toml:"seed"`
	SpawnEvery int    `toml:"spawn_every"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type SnapshotConfig struct {
	Enabled bool          `toml:"enabled"`
	Addr    string        `toml:"addr"` // empty runs an embedded redis
	Prefix  string        `toml:"prefix"`
	Every   int           `toml:"every"`
	Keep    int           `toml:"keep"`
	TTL     time.Duration `toml:"ttl"`
}

type ProfileConfig struct {
	Mode string `toml:"mode"` // "", "cpu", "mem" or "allocs"
	Path string `toml:"path"`
}

// Load reads a config file over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path == "" {
		return cfg, cfg.validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read config %s", path)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, eris.Wrapf(err, "parse config %s", path)
	}
	if err := cfg.validate(); err != nil {
		return nil, eris.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		World: WorldConfig{
			Entities:   256,
			Ticks:      600,
			InputDelay: 4,
			Window:     8,
			Seed:       1,
			SpawnEvery: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Snapshot: SnapshotConfig{
			Prefix: "REWIND",
			Every:  60,
			Keep:   5,
		},
		Profile: ProfileConfig{
			Path: ".",
		},
	}
}

var ErrInvalidConfig = eris.New("invalid config")

func (c *Config) validate() error {
	w := c.World
	switch {
	case w.Entities < 1:
		return eris.Wrap(ErrInvalidConfig, "world.entities must be positive")
	case w.Ticks < 1:
		return eris.Wrap(ErrInvalidConfig, "world.ticks must be positive")
	case w.InputDelay < 1:
		return eris.Wrap(ErrInvalidConfig, "world.input_delay must be positive")
	case w.Window <= w.InputDelay:
		return eris.Wrapf(ErrInvalidConfig, "world.rollback_window %d must exceed world.input_delay %d", w.Window, w.InputDelay)
	case w.SpawnEvery < 0:
		return eris.Wrap(ErrInvalidConfig, "world.spawn_every must not be negative")
	}
	if c.Snapshot.Enabled && c.Snapshot.Every < 1 {
		return eris.Wrap(ErrInvalidConfig, "snapshot.every must be positive")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return eris.Wrapf(ErrInvalidConfig, "unknown logging.format %q", c.Logging.Format)
	}
	switch c.Profile.Mode {
	case "", "cpu", "mem", "allocs":
	default:
		return eris.Wrapf(ErrInvalidConfig, "unknown profile.mode %q", c.Profile.Mode)
	}
	return nil
}
