package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pepe-http/pepe/internal/request"
)

// Version is stamped at build time with -ldflags "-X ...config.Version=...".
var Version = "dev"

// DefaultUserAgent is sent unless --user-agent overrides it.
func DefaultUserAgent() string { return "pepe/" + Version }

type UIMode string

const (
	UIAuto      UIMode = "auto"
	UIDashboard UIMode = "dashboard"
	UICompact   UIMode = "compact"
	UIHeadless  UIMode = "headless"
)

const (
	DefaultTotal          = 100
	DefaultTimeoutSeconds = 20
)

type Config struct {
	TargetURL   string   `mapstructure:"target"`
	Method      string   `mapstructure:"method"`
	Headers     []string `mapstructure:"headers"` // "Name: Value", in order
	Body        string   `mapstructure:"body"`
	BodyFile    string   `mapstructure:"body_file"`
	ContentType string   `mapstructure:"content_type"`
	Accept      string   `mapstructure:"accept"`
	BasicAuth   string   `mapstructure:"basic_auth"` // user:pass
	Host        string   `mapstructure:"host"`
	UserAgent   string   `mapstructure:"user_agent"`
	Proxy       string   `mapstructure:"proxy"`

	Total          int `mapstructure:"number"`
	Concurrency    int `mapstructure:"concurrency"`
	TimeoutSeconds int `mapstructure:"timeout"`

	DisableCompression bool `mapstructure:"disable_compression"`
	DisableKeepAlive   bool `mapstructure:"disable_keepalive"`
	DisableRedirects   bool `mapstructure:"disable_redirects"`
	HTTP3              bool `mapstructure:"http3"`

	UI          UIMode        `mapstructure:"ui"`
	Output      string        `mapstructure:"output"`
	History     string        `mapstructure:"history"`
	LogFile     string        `mapstructure:"log_file"`
	LogLevel    string        `mapstructure:"log_level"`
	MetricsAddr string        `mapstructure:"metrics_addr"`
	Thresholds  []string      `mapstructure:"thresholds"` // e.g. "latency:p95 < 500"
	Tracing     TracingConfig `mapstructure:"tracing"`
	CheckUpdate bool          `mapstructure:"check_update"`
	ConfigFile  string        `mapstructure:"-"`
}

// TracingConfig configures OpenTelemetry export. An empty endpoint (and no
// OTEL_EXPORTER_OTLP_ENDPOINT) leaves tracing off.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // grpc or http
	Insecure    bool    `mapstructure:"insecure"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Propagate   bool    `mapstructure:"propagate"`
}

// Defaults returns the configuration used before any file or flag applies.
func Defaults() Config {
	return Config{
		Method:         "GET",
		Total:          DefaultTotal,
		Concurrency:    runtime.NumCPU(),
		TimeoutSeconds: DefaultTimeoutSeconds,
		UserAgent:      DefaultUserAgent(),
		UI:             UIAuto,
		LogLevel:       "info",
		Tracing:        TracingConfig{Protocol: "grpc", SampleRate: 1.0},
	}
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	if strings.TrimSpace(c.TargetURL) == "" {
		issues = append(issues, "URL is required (use --help for usage information)")
	}

	if c.Concurrency > 500 {
		fmt.Fprintf(os.Stderr, "WARNING: High concurrency configured (%d). Ensure you have authorization to test the target system.\n", c.Concurrency)
	}

	if c.Total < 1 {
		issues = append(issues, "number must be >= 1")
	}
	if c.Concurrency < 1 {
		issues = append(issues, "concurrency must be >= 1")
	}
	if c.Total >= 1 && c.Concurrency > c.Total {
		issues = append(issues, fmt.Sprintf("concurrency cannot exceed the number of requests (-c %d -n %d)", c.Concurrency, c.Total))
	}
	if c.TimeoutSeconds < request.MinTimeoutSeconds || c.TimeoutSeconds > request.MaxTimeoutSeconds {
		issues = append(issues, fmt.Sprintf("timeout must be between %d and %d seconds", request.MinTimeoutSeconds, request.MaxTimeoutSeconds))
	}
	if strings.TrimSpace(c.Body) != "" && strings.TrimSpace(c.BodyFile) != "" {
		issues = append(issues, "body and body-file are mutually exclusive")
	}
	if c.BasicAuth != "" && !strings.Contains(c.BasicAuth, ":") {
		issues = append(issues, "basic-auth must be in user:pass form")
	}
	if c.Proxy != "" {
		if _, err := request.ParseProxy(c.Proxy); err != nil {
			issues = append(issues, err.Error())
		} else if c.HTTP3 {
			issues = append(issues, "http3 and proxy are mutually exclusive")
		}
	}

	switch c.UI {
	case UIAuto, UIDashboard, UICompact, UIHeadless:
	default:
		issues = append(issues, fmt.Sprintf("ui must be 'auto', 'dashboard', 'compact' or 'headless', got %q", c.UI))
	}
	if c.Output != "" {
		switch strings.ToLower(filepath.Ext(c.Output)) {
		case ".json", ".yaml", ".yml", ".html":
		default:
			issues = append(issues, fmt.Sprintf("output must end in .json, .yaml, .yml or .html, got %q", c.Output))
		}
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		issues = append(issues, fmt.Sprintf("log-level %q is not a valid level", c.LogLevel))
	}

	issues = append(issues, validateTracing(c.Tracing)...)

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func validateTracing(t TracingConfig) []string {
	var issues []string
	switch strings.ToLower(t.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing: protocol must be 'grpc' or 'http', got %q", t.Protocol))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing: sample rate must be between 0.0 and 1.0, got %g", t.SampleRate))
	}
	return issues
}

// ResolveUI picks a concrete presenter for auto mode: the dashboard on an
// interactive terminal, headless otherwise.
func (c Config) ResolveUI(interactive bool) UIMode {
	if c.UI != UIAuto && c.UI != "" {
		return c.UI
	}
	if interactive {
		return UIDashboard
	}
	return UIHeadless
}
