package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestAsString(t *testing.T) {
	tests := []struct {
		input any
		want  string
	}{
		{"hello", "hello"},
		{123, "123"},
		{int64(7), "7"},
		{true, "true"},
		{nil, ""},
	}

	for _, tt := range tests {
		got, err := asString(tt.input)
		if err != nil {
			t.Errorf("asString(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asString(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
	if _, err := asString([]any{"a"}); err == nil {
		t.Errorf("expected a list to be rejected as a string")
	}
}

func TestAsInt(t *testing.T) {
	tests := []struct {
		input any
		want  int
	}{
		{123, 123},
		{"456", 456},
		{int64(789), 789},
		{float64(10.0), 10},
		{nil, 0},
	}

	for _, tt := range tests {
		got, err := asInt(tt.input)
		if err != nil {
			t.Errorf("asInt(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asInt(%v) = %d, want %d", tt.input, got, tt.want)
		}
	}
	for _, bad := range []any{2.5, "ten", true} {
		if _, err := asInt(bad); err == nil {
			t.Errorf("asInt(%v) expected error", bad)
		}
	}
}

func TestAsSeconds(t *testing.T) {
	tests := []struct {
		input any
		want  int
	}{
		{20, 20},
		{"15", 15},
		{"1m", 60},
		{" 90s ", 90},
		{int64(30), 30},
		{float64(45), 45},
	}
	for _, tt := range tests {
		got, err := asSeconds(tt.input)
		if err != nil {
			t.Errorf("asSeconds(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asSeconds(%v) = %d, want %d", tt.input, got, tt.want)
		}
	}
	if _, err := asSeconds("1500ms"); err == nil {
		t.Errorf("expected fractional seconds to be rejected")
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load([]string{"http://example.com"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TargetURL != "http://example.com" {
		t.Errorf("TargetURL = %q", cfg.TargetURL)
	}
	if cfg.Total != 100 || cfg.TimeoutSeconds != 20 || cfg.Method != "GET" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Concurrency != runtime.NumCPU() {
		t.Errorf("Concurrency = %d, want %d", cfg.Concurrency, runtime.NumCPU())
	}
	if cfg.UserAgent != DefaultUserAgent() {
		t.Errorf("UserAgent = %q", cfg.UserAgent)
	}
	if cfg.UI != UIAuto {
		t.Errorf("UI = %q", cfg.UI)
	}
}

func TestLoadFlags(t *testing.T) {
	args := []string{
		"-n", "50", "-c", "5", "-t", "3", "-m", "post",
		"-H", "X-One: 1", "-H", "X-Two: 2", "-H", "X-One: again",
		"-d", `{"a":1}`, "-T", "application/json", "-A", "text/plain",
		"-b", "user:pass", "--host", "api.internal", "-u", "bench/1",
		"--disable-compression", "--disable-keepalive", "--disable-redirects",
		"--ui", "Headless", "--output", "out.yaml", "--history", "runs.jsonl",
		"--tracing-endpoint", "localhost:4317", "--tracing-propagate", "--tracing-sample-rate", "0.5",
		"https://example.com/api",
	}
	cfg, err := NewLoader().Load(args)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Total != 50 || cfg.Concurrency != 5 || cfg.TimeoutSeconds != 3 {
		t.Errorf("unexpected load profile: n=%d c=%d t=%d", cfg.Total, cfg.Concurrency, cfg.TimeoutSeconds)
	}
	if cfg.Method != "POST" {
		t.Errorf("Method = %q", cfg.Method)
	}
	if len(cfg.Headers) != 3 || cfg.Headers[2] != "X-One: again" {
		t.Errorf("Headers = %v", cfg.Headers)
	}
	if cfg.Body != `{"a":1}` || cfg.ContentType != "application/json" || cfg.Accept != "text/plain" {
		t.Errorf("unexpected body flags: %+v", cfg)
	}
	if cfg.BasicAuth != "user:pass" || cfg.Host != "api.internal" || cfg.UserAgent != "bench/1" {
		t.Errorf("unexpected request flags: %+v", cfg)
	}
	if !cfg.DisableCompression || !cfg.DisableKeepAlive || !cfg.DisableRedirects {
		t.Errorf("expected transport toggles to be set")
	}
	if cfg.UI != UIHeadless || cfg.Output != "out.yaml" || cfg.History != "runs.jsonl" {
		t.Errorf("unexpected output flags: %+v", cfg)
	}
	if cfg.Tracing.Endpoint != "localhost:4317" || !cfg.Tracing.Propagate || cfg.Tracing.SampleRate != 0.5 {
		t.Errorf("unexpected tracing: %+v", cfg.Tracing)
	}
	if cfg.TargetURL != "https://example.com/api" {
		t.Errorf("TargetURL = %q", cfg.TargetURL)
	}
}

func TestLoadRejectsExtraArguments(t *testing.T) {
	if _, err := NewLoader().Load([]string{"http://a", "http://b"}); err == nil {
		t.Fatal("expected error for two URLs")
	}
}

func TestLoadRejectsMalformedHeader(t *testing.T) {
	if _, err := NewLoader().Load([]string{"-H", "NoColon", "http://a"}); err == nil {
		t.Fatal("expected error for header without colon")
	}
}

func TestLoadHelpAndVersion(t *testing.T) {
	if _, err := NewLoader().Load(nil); !errors.Is(err, ErrHelpRequested) {
		t.Errorf("no args: err = %v, want ErrHelpRequested", err)
	}
	if _, err := NewLoader().Load([]string{"--help"}); !errors.Is(err, ErrHelpRequested) {
		t.Errorf("--help: err = %v, want ErrHelpRequested", err)
	}
	if _, err := NewLoader().Load([]string{"--version"}); !errors.Is(err, ErrVersionRequested) {
		t.Errorf("--version: err = %v, want ErrVersionRequested", err)
	}
}

func TestLoadConfigFileWithOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pepe.yaml")
	content := `
target: https://example.com/from-file
method: put
number: 40
concurrency: 4
timeout: 10s
disable_redirects: true
headers:
  x-b: two
  x-a: one
ui: compact
thresholds:
  - "latency:p95 < 500"
tracing:
  endpoint: collector:4318
  protocol: http
  sample_rate: 0.25
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewLoader().Load([]string{"--config", path, "-n", "80", "--threshold", "failed:rate < 0.01"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TargetURL != "https://example.com/from-file" || cfg.Method != "PUT" {
		t.Errorf("unexpected request: %q %q", cfg.Method, cfg.TargetURL)
	}
	if cfg.Total != 80 {
		t.Errorf("flag should override file: Total = %d", cfg.Total)
	}
	if cfg.Concurrency != 4 || cfg.TimeoutSeconds != 10 || !cfg.DisableRedirects {
		t.Errorf("unexpected file settings: %+v", cfg)
	}
	if len(cfg.Headers) != 2 || cfg.Headers[0] != "X-A: one" || cfg.Headers[1] != "X-B: two" {
		t.Errorf("Headers = %v", cfg.Headers)
	}
	if cfg.UI != UICompact {
		t.Errorf("UI = %q", cfg.UI)
	}
	if cfg.Tracing.Endpoint != "collector:4318" || cfg.Tracing.Protocol != "http" || cfg.Tracing.SampleRate != 0.25 {
		t.Errorf("Tracing = %+v", cfg.Tracing)
	}
	if len(cfg.Thresholds) != 2 || cfg.Thresholds[0] != "latency:p95 < 500" || cfg.Thresholds[1] != "failed:rate < 0.01" {
		t.Errorf("Thresholds = %v", cfg.Thresholds)
	}
	if cfg.ConfigFile != path {
		t.Errorf("ConfigFile = %q", cfg.ConfigFile)
	}
}

func TestBodyFlagsOverrideEachOther(t *testing.T) {
	cfg, err := NewLoader().Load([]string{"-D", "payload.json", "http://example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BodyFile != "payload.json" || cfg.Body != "" {
		t.Errorf("unexpected body settings: %q %q", cfg.Body, cfg.BodyFile)
	}
}
