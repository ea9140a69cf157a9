package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Easy-Infra-Ltd/easy-content-guard/src/engine"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Transport != TransportStdio {
		t.Errorf("transport = %q, want stdio", cfg.Server.Transport)
	}
	if cfg.Server.HTTP.Addr != DefaultHTTPAddr {
		t.Errorf("addr = %q, want %q", cfg.Server.HTTP.Addr, DefaultHTTPAddr)
	}
	if cfg.Server.HTTP.Path != DefaultHTTPPath {
		t.Errorf("path = %q, want %q", cfg.Server.HTTP.Path, DefaultHTTPPath)
	}
	if cfg.Engine.MaxContentSize != nil {
		t.Error("engine limits should be unset without a file")
	}
}

func TestLoad_Overrides(t *testing.T) {
	path := writeConfig(t, `{
		"server": {"transport": "http", "http": {"addr": ":9090", "path": "/guard"}},
		"engine": {
			"maxContentSize": 1000,
			"globalTimeoutMs": 5000,
			"scanTimeoutMs": 250,
			"maxRecursionDepth": 2,
			"customInjectionPatterns": ["(?i)do\\s+anything\\s+now"]
		}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Transport != TransportHTTP {
		t.Errorf("transport = %q, want http", cfg.Server.Transport)
	}
	if cfg.Server.HTTP.Addr != ":9090" || cfg.Server.HTTP.Path != "/guard" {
		t.Errorf("http = %+v", cfg.Server.HTTP)
	}
	if cfg.Engine.MaxContentSize == nil || *cfg.Engine.MaxContentSize != 1000 {
		t.Errorf("maxContentSize = %v, want 1000", cfg.Engine.MaxContentSize)
	}
	if len(cfg.Engine.CustomInjectionPatterns) != 1 {
		t.Errorf("custom patterns = %v", cfg.Engine.CustomInjectionPatterns)
	}
}

func TestLoad_Rejections(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"server": `},
		{"unknown transport", `{"server": {"transport": "grpc"}}`},
		{"zero content size", `{"engine": {"maxContentSize": 0}}`},
		{"negative timeout", `{"engine": {"globalTimeoutMs": -1}}`},
		{"zero scan timeout", `{"engine": {"scanTimeoutMs": 0}}`},
		{"zero recursion depth", `{"engine": {"maxRecursionDepth": 0}}`},
		{"invalid custom pattern", `{"engine": {"customInjectionPatterns": ["(unclosed"]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestEngineSettings(t *testing.T) {
	size := 1234
	global := 9000
	scan := 300
	depth := 5
	ec := EngineConfig{
		MaxContentSize:    &size,
		GlobalTimeoutMS:   &global,
		ScanTimeoutMS:     &scan,
		MaxRecursionDepth: &depth,
	}

	got := ec.EngineSettings()
	want := engine.Config{
		MaxContentSize:    1234,
		GlobalTimeout:     9 * time.Second,
		ScanTimeout:       300 * time.Millisecond,
		MaxRecursionDepth: 5,
	}
	if got != want {
		t.Errorf("settings = %+v, want %+v", got, want)
	}
}

func TestEngineSettings_NilFieldsAreZero(t *testing.T) {
	got := EngineConfig{}.EngineSettings()
	if got != (engine.Config{}) {
		t.Errorf("settings = %+v, want zero value", got)
	}
}
