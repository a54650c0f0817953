package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-commandform/pkg/form"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commandform.yaml")
	raw := []byte(`document: ./openapi.yaml
operation: createPet
reset: on_success
timeout: 3s
headers:
  X-Tenant: acme
initial:
  kind: cat
logging:
  level: debug
  format: json
`)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("COMMANDFORM_ENDPOINT", "http://localhost:9000")
	t.Setenv("COMMANDFORM_TOKEN", "secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	want := &Config{
		Document:  "./openapi.yaml",
		Operation: "createPet",
		Endpoint:  "http://localhost:9000",
		Reset:     "on_success",
		Timeout:   "3s",
		Headers:   map[string]string{"X-Tenant": "acme", "Authorization": "Bearer secret"},
		Initial:   map[string]any{"kind": "cat"},
		Logging:   LoggingConfig{Level: "debug", Format: "json"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}

	policy, err := cfg.ResetPolicy()
	if err != nil || policy != form.ResetOnSuccess {
		t.Fatalf("expected onSuccess policy, got %v %v", policy, err)
	}
	if cfg.GetTimeout() != 3*time.Second {
		t.Fatalf("expected 3s timeout, got %v", cfg.GetTimeout())
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected missing document error")
	}
	cfg.Document = "doc.yaml"
	cfg.Operation = "op"
	cfg.Reset = "sometimes"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected invalid reset error")
	}
	cfg.Reset = "always"
	cfg.Logging.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected invalid format error")
	}
	cfg.Logging.Format = "json"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.Document = "doc.yaml"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Document != "doc.yaml" || loaded.GetTimeout() != 15*time.Second {
		t.Fatalf("unexpected round trip: %#v", loaded)
	}
}
