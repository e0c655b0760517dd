// Package config loads the optional chronicler.yaml project file.
//
// Values resolve in three layers: Default, then the file, then whatever
// command-line flags the caller applies on top. Validate runs last.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/shihwesley/chronicler/digest"
	"github.com/shihwesley/chronicler/freshness"
	"github.com/shihwesley/chronicler/merkle"
)

// FileName is the project config file looked up at the project root.
const FileName = "chronicler.yaml"

// Config is the full project configuration.
type Config struct {
	Merkle  MerkleConfig  `yaml:"merkle"`
	Blast   BlastConfig   `yaml:"blast"`
	Watch   WatchConfig   `yaml:"watch"`
	Drafter DrafterConfig `yaml:"drafter"`
	// SyncIntervalSeconds is the MCP server's drift verification period.
	// Zero disables it.
	SyncIntervalSeconds int    `yaml:"sync_interval_seconds" validate:"gte=0,lte=86400"`
	LogLevel            string `yaml:"log_level" validate:"oneof=debug info warn error"`
}

type MerkleConfig struct {
	Algorithm        string   `yaml:"algorithm" validate:"eq=sha256"`
	DocDir           string   `yaml:"doc_dir" validate:"required,docdir"`
	DocExtension     string   `yaml:"doc_extension" validate:"required,startswith=.,excludesall=/\\"`
	TreeFile         string   `yaml:"tree_file" validate:"required,excludesall=/\\"`
	IgnorePatterns   []string `yaml:"ignore_patterns" validate:"dive,required"`
	RespectGitignore bool     `yaml:"respect_gitignore"`
	Workers          int      `yaml:"workers" validate:"gte=1,lte=256"`
}

type BlastConfig struct {
	Depth int `yaml:"depth" validate:"gte=0,lte=32"`
}

type WatchConfig struct {
	DebounceMS int `yaml:"debounce_ms" validate:"gte=0,lte=60000"`
}

type DrafterConfig struct {
	// Command is run once per stale source, with the source path appended.
	Command string `yaml:"command"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Merkle: MerkleConfig{
			Algorithm:    digest.Algorithm,
			DocDir:       merkle.DefaultDocDir,
			DocExtension: merkle.DefaultDocExtension,
			TreeFile:     merkle.DefaultTreeFile,
			Workers:      merkle.DefaultWorkers,
		},
		Blast:               BlastConfig{Depth: 2},
		Watch:               WatchConfig{DebounceMS: 2000},
		SyncIntervalSeconds: 300,
		LogLevel:            "info",
	}
}

// Load reads FileName from root over the defaults. A missing file yields
// the defaults.
func Load(root string) (Config, error) {
	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("loading %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("docdir", validateDocDir)
	return v
}

// validateDocDir accepts a single path segment that is usable inside a
// doublestar pattern.
func validateDocDir(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\*?[]{}!`)
}

// Validate checks every field constraint and reports the failures by their
// YAML path.
func (c Config) Validate() error {
	err := validate.Struct(c)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		_, field, _ := strings.Cut(fe.Namespace(), ".")
		problem := field + ": failed " + fe.Tag()
		if fe.Param() != "" {
			problem += "=" + fe.Param()
		}
		problems = append(problems, problem)
	}
	return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
}

// Freshness maps the merkle section onto freshness options.
func (c Config) Freshness(logger *slog.Logger) freshness.Options {
	return freshness.Options{
		DocDir:           c.Merkle.DocDir,
		DocExtension:     c.Merkle.DocExtension,
		TreeFile:         c.Merkle.TreeFile,
		IgnorePatterns:   c.Merkle.IgnorePatterns,
		RespectGitignore: c.Merkle.RespectGitignore,
		Workers:          c.Merkle.Workers,
		Logger:           logger,
	}
}

func (c Config) Debounce() time.Duration {
	return time.Duration(c.Watch.DebounceMS) * time.Millisecond
}

func (c Config) SyncInterval() time.Duration {
	return time.Duration(c.SyncIntervalSeconds) * time.Second
}
