// Package config loads the formstate YAML configuration over built-in
// defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formstate/internal/logging"
	"github.com/goliatone/go-formstate/pkg/controller"
	"github.com/goliatone/go-formstate/pkg/persistence"
)

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Config is the decoded configuration file.
type Config struct {
	Validation Delay    `yaml:"validation"`
	Autosave   Delay    `yaml:"autosave"`
	Storage    Storage  `yaml:"storage"`
	Progress   Progress `yaml:"progress"`
	Log        Log      `yaml:"log"`
	Server     Server   `yaml:"server"`
	// Forms lists definition sources published by the server.
	Forms []string `yaml:"forms"`
}

// Delay is a debounce interval, written as a Go duration ("500ms").
type Delay struct {
	Delay time.Duration `yaml:"delay"`
}

// Storage selects the key-value store backing drafts and progress.
type Storage struct {
	Driver string `yaml:"driver"`
	// Path is a directory for the file driver and a database file for
	// sqlite.
	Path string `yaml:"path"`
}

// Progress configures the course progress tracker.
type Progress struct {
	Key      string   `yaml:"key"`
	Sections []string `yaml:"sections"`
}

// Log configures the zap logger.
type Log struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Server configures the HTTP API.
type Server struct {
	Addr    string        `yaml:"addr"`
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Validation: Delay{Delay: controller.DefaultValidationDelay},
		Autosave:   Delay{Delay: controller.DefaultAutosaveDelay},
		Storage:    Storage{Driver: DriverFile, Path: ".formstate"},
		Progress: Progress{
			Key:      persistence.DefaultProgressKey,
			Sections: []string{"teoria", "ejemplos", "ejercicios", "evaluacion", "recursos"},
		},
		Log:    Log{Level: "info"},
		Server: Server{Addr: ":8080", Timeout: 5 * time.Second},
	}
}

// Load reads path over Default. An empty path returns the defaults.
func Load(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over Default. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks values that would otherwise fail later at startup.
func (c Config) Validate() error {
	var errs []error
	if c.Validation.Delay <= 0 {
		errs = append(errs, errors.New("validation.delay must be positive"))
	}
	if c.Autosave.Delay <= 0 {
		errs = append(errs, errors.New("autosave.delay must be positive"))
	}
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverFile, DriverSQLite:
		if strings.TrimSpace(c.Storage.Path) == "" {
			errs = append(errs, fmt.Errorf("storage.path is required for the %s driver", c.Storage.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q is not one of memory, file, sqlite", c.Storage.Driver))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	seen := make(map[string]struct{}, len(c.Progress.Sections))
	for _, section := range c.Progress.Sections {
		if _, dup := seen[section]; dup {
			errs = append(errs, fmt.Errorf("progress.sections lists %q twice", section))
		}
		seen[section] = struct{}{}
	}
	return errors.Join(errs...)
}

// OpenStore opens the configured store. The returned close func is never nil.
func (c Config) OpenStore() (persistence.Store, func() error, error) {
	noop := func() error { return nil }
	switch c.Storage.Driver {
	case DriverMemory:
		return persistence.NewMemoryStore(), noop, nil
	case DriverFile:
		store, err := persistence.NewFileStore(c.Storage.Path)
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil
	case DriverSQLite:
		store, err := persistence.OpenSQLite(c.Storage.Path)
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil
	default:
		return nil, noop, fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
}
