package sched

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	yaml "github.com/goccy/go-yaml"
)

// Tick source names accepted in Config.TickSource.
const (
	TickSourceTicker = "ticker" // time.Ticker goroutine
	TickSourceITimer = "itimer" // ITIMER_REAL + SIGALRM, linux only
)

// Config mirrors config.yml. It is fixed for the lifetime of a Scheduler:
// the table size and the switch variant depend on it.
type Config struct {
	MaxTasks   int    `yaml:"max_tasks" toml:"max_tasks"`     // 5 (by default), root included
	TickMS     int    `yaml:"tick_ms" toml:"tick_ms"`         // 10 (by default)
	Preemptive bool   `yaml:"preemptive" toml:"preemptive"`   // true (by default)
	TickSource string `yaml:"tick_source" toml:"tick_source"` // "ticker" (by default)
}

// DefaultConfig is used when no config file is given or it cannot be read.
func DefaultConfig() Config {
	return Config{
		MaxTasks:   5,
		TickMS:     10,
		Preemptive: true,
		TickSource: TickSourceTicker,
	}
}

// Load reads YAML or TOML and overrides defaults; empty path = defaults only.
// Unreadable or invalid files are ignored.
func Load(path string) Config {
	cfg, err := LoadFile(path)
	if err != nil {
		return DefaultConfig()
	}
	return cfg
}

// LoadFile is Load with errors reported, including settings Validate
// rejects. Files ending in .toml are decoded as TOML, everything else as YAML.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		_, err = toml.Decode(string(data), &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return DefaultConfig(), fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.TickSource == "" {
		cfg.TickSource = TickSourceTicker
	}
	if err := cfg.Validate(); err != nil {
		return DefaultConfig(), fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate reports settings New cannot work with.
func (c Config) Validate() error {
	if c.MaxTasks < 2 {
		return fmt.Errorf("max_tasks %d: need room for the root task and one more", c.MaxTasks)
	}
	if c.TickMS <= 0 {
		return fmt.Errorf("tick_ms %d must be positive", c.TickMS)
	}
	switch c.TickSource {
	case "", TickSourceTicker, TickSourceITimer:
	default:
		return fmt.Errorf("unknown tick_source %q", c.TickSource)
	}
	return nil
}

// Tick returns the tick period.
func (c Config) Tick() time.Duration {
	return time.Duration(c.TickMS) * time.Millisecond
}
