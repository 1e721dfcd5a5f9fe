package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type sample struct {
	Name    string        `yaml:"name"`
	Count   int           `yaml:"count"`
	Timeout time.Duration `yaml:"timeout"`
}

func (s *sample) Validate() error {
	if s.Count < 0 {
		return errors.New("count must be non-negative")
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "c.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_ExpandsEnvAndValidates(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "vault")
	var s sample
	if err := Load(writeFile(t, "name: ${SAMPLE_NAME}\ncount: 2\ntimeout: 90s\n"), &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "vault" || s.Count != 2 || s.Timeout != 90*time.Second {
		t.Errorf("got %+v", s)
	}

	if err := Load(writeFile(t, "count: -1\n"), &s); err == nil {
		t.Error("expected validation error")
	}
	if err := Load(filepath.Join(t.TempDir(), "none.yaml"), &s); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v", err)
	}
}

func TestLoadOptional_SkipsValidationAndMissingFiles(t *testing.T) {
	s := sample{Name: "default"}
	loaded, err := LoadOptional(writeFile(t, "count: -1\n"), &s)
	if err != nil || !loaded {
		t.Fatalf("LoadOptional = %v, %v", loaded, err)
	}
	if s.Name != "default" || s.Count != -1 {
		t.Errorf("got %+v", s)
	}

	loaded, err = LoadOptional(filepath.Join(t.TempDir(), "none.yaml"), &s)
	if err != nil || loaded {
		t.Errorf("missing file: loaded=%v err=%v", loaded, err)
	}
	if loaded, err = LoadOptional("", &s); err != nil || loaded {
		t.Errorf("empty name: loaded=%v err=%v", loaded, err)
	}

	if _, err := LoadOptional(writeFile(t, "name: [unterminated\n"), &s); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadOptional_EmptyFileKeepsDefaults(t *testing.T) {
	s := sample{Name: "default", Count: 3}
	loaded, err := LoadOptional(writeFile(t, "# nothing set\n"), &s)
	if err != nil || !loaded {
		t.Fatalf("LoadOptional = %v, %v", loaded, err)
	}
	if s.Name != "default" || s.Count != 3 {
		t.Errorf("got %+v", s)
	}
}

func TestLoadOptional_RejectsUnknownKeys(t *testing.T) {
	var s sample
	if _, err := LoadOptional(writeFile(t, "name: x\ncuont: 2\n"), &s); err == nil {
		t.Error("expected error for misspelled key")
	}
}

func TestExpandEnv(t *testing.T) {
	env := map[string]string{"SET": "value", "EMPTY": ""}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cases := map[string]string{
		"${SET}":                   "value",
		"$SET/notes":               "value/notes",
		"${UNSET}":                 "",
		"${UNSET:-./vault_output}": "./vault_output",
		"${EMPTY:-fallback}":       "fallback",
		"${SET:-fallback}":         "value",
		"plain text":               "plain text",
	}
	for in, want := range cases {
		if got := ExpandEnv(in, lookup); got != want {
			t.Errorf("ExpandEnv(%q) = %q, want %q", in, got, want)
		}
	}
}
