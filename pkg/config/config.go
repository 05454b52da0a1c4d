package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"

	"huta_go/pkg/memory"
	"huta_go/pkg/workpool"
)

// FileName is the optional configuration file looked up by Resolve.
const FileName = "huta.yaml"

// Report colour modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Config represents the optional huta.yaml configuration.
type Config struct {
	Memory  MemoryConfig  `yaml:"memory"`
	Workers WorkersConfig `yaml:"workers"`
	Report  ReportConfig  `yaml:"report"`
}

// MemoryConfig contains pool manager settings.
type MemoryConfig struct {
	BootstrapPool string `yaml:"bootstrap_pool,omitempty"`
	PoolCapacity  *int   `yaml:"pool_capacity,omitempty"`
	TrackLeaks    *bool  `yaml:"track_leaks,omitempty"`
	Debug         bool   `yaml:"debug,omitempty"`
}

// WorkersConfig contains worker pool settings.
type WorkersConfig struct {
	Count *int `yaml:"count,omitempty"`
	Queue *int `yaml:"queue,omitempty"`
}

// ReportConfig contains leak report settings.
type ReportConfig struct {
	Color string `yaml:"color,omitempty"`
}

// Resolved contains resolved configuration values.
type Resolved struct {
	Root          string
	BootstrapPool string
	PoolCapacity  int
	TrackLeaks    bool
	Debug         bool
	Workers       int
	Queue         int
	Color         string
}

// LoadOptional reads huta.yaml if present.
func LoadOptional(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}

	return &cfg, nil
}

// Resolve loads huta.yaml (if present) and resolves defaults.
func Resolve(dir string) (*Resolved, error) {
	cfg, err := LoadOptional(dir)
	if err != nil {
		return nil, err
	}

	bootstrap := strings.TrimSpace(cfg.Memory.BootstrapPool)
	if bootstrap == "" {
		bootstrap = memory.DefaultBootstrapName
	}

	capacity := memory.DefaultPoolCapacity
	if cfg.Memory.PoolCapacity != nil {
		capacity = *cfg.Memory.PoolCapacity
	}

	trackLeaks := true
	if cfg.Memory.TrackLeaks != nil {
		trackLeaks = *cfg.Memory.TrackLeaks
	}

	defaults := workpool.DefaultConfig()
	workers := defaults.Workers
	if cfg.Workers.Count != nil {
		workers = *cfg.Workers.Count
	}
	queue := defaults.Queue
	if cfg.Workers.Queue != nil {
		queue = *cfg.Workers.Queue
	}

	color := strings.ToLower(strings.TrimSpace(cfg.Report.Color))
	if color == "" {
		color = ColorAuto
	}

	r := &Resolved{
		Root:          dir,
		BootstrapPool: bootstrap,
		PoolCapacity:  capacity,
		TrackLeaks:    trackLeaks,
		Debug:         cfg.Memory.Debug,
		Workers:       workers,
		Queue:         queue,
		Color:         color,
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Resolved) validate() error {
	if r.PoolCapacity < 0 {
		return fmt.Errorf("memory.pool_capacity must be >= 0, got %d", r.PoolCapacity)
	}
	if r.Workers < 1 {
		return fmt.Errorf("workers.count must be >= 1, got %d", r.Workers)
	}
	if r.Queue < 0 {
		return fmt.Errorf("workers.queue must be >= 0, got %d", r.Queue)
	}
	switch r.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("report.color must be one of auto, always, never; got %q", r.Color)
	}
	return nil
}

// UseColor reports whether leak reports written to the file descriptor fd
// should be highlighted.
func (r *Resolved) UseColor(fd uintptr) bool {
	switch r.Color {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// MemoryConfig maps the resolved values onto a manager configuration whose
// reports go to logger.
func (r *Resolved) MemoryConfig(logger *log.Logger) memory.Config {
	return memory.Config{
		BootstrapName: r.BootstrapPool,
		PoolCapacity:  r.PoolCapacity,
		TrackLeaks:    r.TrackLeaks,
		Debug:         r.Debug,
		ReportColor:   r.UseColor(os.Stderr.Fd()),
		Logger:        logger,
	}
}

// WorkerConfig maps the resolved values onto a worker pool configuration.
// Worker managers share the memory settings and logger.
func (r *Resolved) WorkerConfig(logger *log.Logger) workpool.Config {
	mem := r.MemoryConfig(logger)
	return workpool.Config{
		Workers: r.Workers,
		Queue:   r.Queue,
		Memory:  mem,
	}
}
