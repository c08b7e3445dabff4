// Package config loads heapkit settings from TOML files.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/joshuapare/heapkit/arena"
	"github.com/joshuapare/heapkit/heap"
)

// ErrInvalid indicates a configuration value outside its allowed range.
var ErrInvalid = errors.New("config: invalid")

// Arena kinds.
const (
	ArenaMem  = "mem"
	ArenaMmap = "mmap"
)

// Config is the root of a configuration file.
type Config struct {
	Heap   HeapConfig   `toml:"heap"`
	Arena  ArenaConfig  `toml:"arena"`
	Driver DriverConfig `toml:"driver"`
}

// HeapConfig selects the allocator layout.
type HeapConfig struct {
	// Classes names a preset: compact, default or wide.
	Classes string `toml:"classes"`

	// NumClasses overrides the preset bucket count when > 0.
	NumClasses int `toml:"num_classes"`

	// MinShift overrides the preset base exponent when > 0.
	MinShift int `toml:"min_shift"`

	ChunkSize int  `toml:"chunk_size"`
	Check     bool `toml:"check"`
}

// ArenaConfig selects the memory underneath each heap.
type ArenaConfig struct {
	Kind     string `toml:"kind"`
	MaxBytes int    `toml:"max_bytes"`
}

// DriverConfig controls trace replay.
type DriverConfig struct {
	Workers      int  `toml:"workers"`
	VerifyEachOp bool `toml:"verify_each_op"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Heap: HeapConfig{
			Classes:   "default",
			ChunkSize: heap.DefaultChunkSize,
		},
		Arena: ArenaConfig{
			Kind:     ArenaMem,
			MaxBytes: 100 << 20,
		},
		Driver: DriverConfig{
			Workers: 4,
		},
	}
}

// Load reads path over the defaults. Unknown keys are an error so typos do
// not silently fall back to defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%w: %s: unknown keys %s", ErrInvalid, path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every field that has a restricted range.
func (c Config) Validate() error {
	if _, err := c.SizeClasses(); err != nil {
		return err
	}
	if c.Heap.ChunkSize < 0 {
		return fmt.Errorf("%w: heap.chunk_size %d", ErrInvalid, c.Heap.ChunkSize)
	}
	switch c.Arena.Kind {
	case ArenaMem, ArenaMmap:
	default:
		return fmt.Errorf("%w: arena.kind %q (want %s or %s)", ErrInvalid, c.Arena.Kind, ArenaMem, ArenaMmap)
	}
	if c.Arena.MaxBytes <= 0 {
		return fmt.Errorf("%w: arena.max_bytes %d", ErrInvalid, c.Arena.MaxBytes)
	}
	if c.Driver.Workers < 0 {
		return fmt.Errorf("%w: driver.workers %d", ErrInvalid, c.Driver.Workers)
	}
	return nil
}

// SizeClasses resolves the preset and any overrides.
func (c Config) SizeClasses() (heap.SizeClassConfig, error) {
	var sc heap.SizeClassConfig
	switch strings.ToLower(c.Heap.Classes) {
	case "", "default":
		sc = heap.ConfigDefault
	case "compact":
		sc = heap.ConfigCompact
	case "wide":
		sc = heap.ConfigWide
	default:
		return sc, fmt.Errorf("%w: heap.classes %q (want compact, default or wide)", ErrInvalid, c.Heap.Classes)
	}
	if c.Heap.NumClasses > 0 {
		sc.NumClasses = c.Heap.NumClasses
		sc.Name = "Custom"
	}
	if c.Heap.MinShift > 0 {
		sc.MinShift = c.Heap.MinShift
		sc.Name = "Custom"
	}
	if err := sc.Validate(); err != nil {
		return sc, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return sc, nil
}

// NewArena creates an empty arena of the configured kind.
func (c Config) NewArena() (arena.Arena, error) {
	if c.Arena.Kind == ArenaMmap {
		return arena.NewMap(c.Arena.MaxBytes)
	}
	return arena.NewMem(c.Arena.MaxBytes), nil
}

// HeapFactory returns a constructor for independent heaps built from c. It
// is safe to call from several goroutines.
func (c Config) HeapFactory(logger *slog.Logger) (func() (*heap.Heap, error), error) {
	sc, err := c.SizeClasses()
	if err != nil {
		return nil, err
	}
	return func() (*heap.Heap, error) {
		a, err := c.NewArena()
		if err != nil {
			return nil, err
		}
		h, err := heap.New(a, &heap.Options{
			SizeClasses:     &sc,
			ChunkSize:       c.Heap.ChunkSize,
			CheckInvariants: c.Heap.Check,
			Logger:          logger,
		})
		if err != nil {
			if closer, ok := a.(interface{ Close() error }); ok {
				closer.Close()
			}
			return nil, err
		}
		return h, nil
	}, nil
}
