// Package config provides YAML-based configuration loading with environment variable expansion.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Validator is an interface for configuration validation.
type Validator interface {
	Validate() error
}

// Load loads configuration from a YAML file with environment variable
// expansion and validates it when target implements Validator.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}
	if err := decode(filename, data, target); err != nil {
		return err
	}

	if validator, ok := any(target).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}
	return nil
}

// LoadOptional decodes filename into target when the file exists. It does
// not validate: callers layer more sources on top and validate once at the
// end. loaded reports whether the file was read. An empty filename is
// treated as absent.
func LoadOptional[T any](filename string, target *T) (loaded bool, err error) {
	if filename == "" {
		return false, nil
	}
	data, err := os.ReadFile(filename)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}
	if err := decode(filename, data, target); err != nil {
		return false, err
	}
	return true, nil
}

// decode expands the environment into data and decodes it strictly: a key
// that matches no field is an error, so typos do not silently fall back to
// defaults. Fields absent from the file keep their current values.
func decode(filename string, data []byte, target any) error {
	expanded := ExpandEnv(string(data), os.LookupEnv)

	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}
	return nil
}

// ExpandEnv replaces ${VAR} and $VAR with their values from lookup.
// ${VAR:-fallback} yields fallback when VAR is unset or empty, so a sample
// config can name both the variable and a usable default.
func ExpandEnv(s string, lookup func(string) (string, bool)) string {
	return os.Expand(s, func(key string) string {
		name, fallback, hasFallback := strings.Cut(key, ":-")
		v, ok := lookup(name)
		if hasFallback && (!ok || v == "") {
			return fallback
		}
		return v
	})
}
