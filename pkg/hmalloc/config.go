package hmalloc

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/joshuapare/hmalloc/alloc"
	"github.com/joshuapare/hmalloc/internal/logger"
)

// Environment variables read by ConfigFromEnv and LogOptionsFromEnv.
const (
	EnvArch      = "HMALLOC_ARCH"
	EnvSlabPages = "HMALLOC_SLAB_PAGES"
	EnvGrowPages = "HMALLOC_GROW_PAGES"
	EnvHardened  = "HMALLOC_HARDENED"
	EnvValidate  = "HMALLOC_VALIDATE"
	EnvLog       = "HMALLOC_LOG"
	EnvLogFormat = "HMALLOC_LOG_FORMAT"
)

// ErrBadConfig indicates an invalid configuration value.
var ErrBadConfig = errors.New("hmalloc: invalid configuration")

// Config selects and tunes the allocator behind an Allocator.
type Config struct {
	// Architecture picks the free-storage design.
	// Default: alloc.Segregated
	Architecture Architecture

	// Engine tunes slab width, growth, hardening and validation.
	Engine alloc.Config

	// Diagnostics receives fatal reports and PrintStats output.
	// Default: os.Stderr
	Diagnostics io.Writer
}

// Architecture is re-exported for convenience.
type Architecture = alloc.Architecture

// Stats is re-exported for convenience.
type Stats = alloc.Stats

// Architectures (re-exported for convenience).
const (
	Segregated = alloc.Segregated
	Coalescing = alloc.Coalescing
)

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Architecture: Segregated,
		Engine:       alloc.DefaultConfig,
	}
}

// ConfigFromEnv builds a Config from the HMALLOC_* environment variables.
// Unset variables keep their defaults.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v, ok := lookup(EnvArch); ok {
		arch, ok := alloc.ParseArchitecture(strings.ToLower(v))
		if !ok {
			return cfg, errors.Wrapf(ErrBadConfig, "%s=%q", EnvArch, v)
		}
		cfg.Architecture = arch
	}

	var err error
	if cfg.Engine.SlabPages, err = envPositive(EnvSlabPages, cfg.Engine.SlabPages); err != nil {
		return cfg, err
	}
	if cfg.Engine.GrowPages, err = envPositive(EnvGrowPages, cfg.Engine.GrowPages); err != nil {
		return cfg, err
	}
	if cfg.Engine.Hardened, err = envBool(EnvHardened); err != nil {
		return cfg, err
	}
	if cfg.Engine.Validate, err = envBool(EnvValidate); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LogOptionsFromEnv returns logger options from HMALLOC_LOG and
// HMALLOC_LOG_FORMAT. Logging stays disabled unless HMALLOC_LOG names a level.
func LogOptionsFromEnv() logger.Options {
	v, ok := lookup(EnvLog)
	if !ok {
		return logger.Options{}
	}
	level, ok := logger.ParseLevel(v)
	if !ok {
		return logger.Options{}
	}
	opts := logger.Options{Enabled: true, Level: level}
	if f, ok := lookup(EnvLogFormat); ok {
		opts.Format = logger.Format(strings.ToLower(f))
	}
	return opts
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func envPositive(key string, def int) (int, error) {
	v, ok := lookup(key)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def, errors.Wrapf(ErrBadConfig, "%s=%q: want a positive integer", key, v)
	}
	return n, nil
}

func envBool(key string) (bool, error) {
	v, ok := lookup(key)
	if !ok {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.Wrapf(ErrBadConfig, "%s=%q: want a boolean", key, v)
	}
	return b, nil
}
