package config

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

var (
	// ErrHelpRequested is returned when the user requests help via --help flag.
	ErrHelpRequested = errors.New("help requested")
	// ErrVersionRequested is returned for --version.
	ErrVersionRequested = errors.New("version requested")
)

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and configuration files to produce a Config.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}
	if wantsVersion, _ := flagSet.GetBool("version"); wantsVersion {
		fmt.Fprintf(cmd.OutOrStdout(), "pepe %s\n", Version)
		return nil, ErrVersionRequested
	}

	// If no arguments provided and no config file, show help/usage
	configPath := flagSet.Lookup("config").Value.String()
	if len(args) == 0 && configPath == "" {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}
	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := Defaults()
	cfg.ConfigFile = configPath

	if err := applyConfigSettings(&cfg, cfgViper.AllSettings()); err != nil {
		return nil, err
	}
	if err := applyFlagOverrides(&cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.Method = strings.ToUpper(strings.TrimSpace(cfg.Method))
	cfg.TargetURL = strings.TrimSpace(cfg.TargetURL)
	cfg.BodyFile = strings.TrimSpace(cfg.BodyFile)
	cfg.UI = UIMode(strings.ToLower(string(cfg.UI)))
	return &cfg, nil
}

// applyConfigSettings applies settings from a config file to the Config struct.
func applyConfigSettings(cfg *Config, settings section) error {
	if len(settings) == 0 {
		return nil
	}

	strs := []struct {
		keys []string
		dst  *string
	}{
		{[]string{"target", "url"}, &cfg.TargetURL},
		{[]string{"method"}, &cfg.Method},
		{[]string{"body"}, &cfg.Body},
		{[]string{"bodyfile", "body_file", "body-file"}, &cfg.BodyFile},
		{[]string{"contenttype", "content_type", "content-type"}, &cfg.ContentType},
		{[]string{"accept"}, &cfg.Accept},
		{[]string{"basicauth", "basic_auth", "basic-auth"}, &cfg.BasicAuth},
		{[]string{"host"}, &cfg.Host},
		{[]string{"useragent", "user_agent", "user-agent"}, &cfg.UserAgent},
		{[]string{"proxy"}, &cfg.Proxy},
		{[]string{"output"}, &cfg.Output},
		{[]string{"history"}, &cfg.History},
		{[]string{"logfile", "log_file", "log-file"}, &cfg.LogFile},
		{[]string{"loglevel", "log_level", "log-level"}, &cfg.LogLevel},
		{[]string{"metricsaddr", "metrics_addr", "metrics-addr"}, &cfg.MetricsAddr},
	}
	for _, s := range strs {
		raw, ok := settings.lookup(s.keys...)
		if !ok {
			continue
		}
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", s.keys[0], err)
		}
		*s.dst = val
	}
	if strings.TrimSpace(cfg.Method) == "" {
		cfg.Method = "GET"
	}

	ints := []struct {
		keys []string
		dst  *int
	}{
		{[]string{"number", "total"}, &cfg.Total},
		{[]string{"concurrency"}, &cfg.Concurrency},
	}
	for _, i := range ints {
		raw, ok := settings.lookup(i.keys...)
		if !ok {
			continue
		}
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", i.keys[0], err)
		}
		*i.dst = val
	}

	if raw, ok := settings.lookup("timeout"); ok {
		secs, err := asSeconds(raw)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.TimeoutSeconds = secs
	}

	bools := []struct {
		keys []string
		dst  *bool
	}{
		{[]string{"disablecompression", "disable_compression", "disable-compression"}, &cfg.DisableCompression},
		{[]string{"disablekeepalive", "disable_keepalive", "disable-keepalive"}, &cfg.DisableKeepAlive},
		{[]string{"disableredirects", "disable_redirects", "disable-redirects"}, &cfg.DisableRedirects},
		{[]string{"http3"}, &cfg.HTTP3},
		{[]string{"checkupdate", "check_update", "check-update"}, &cfg.CheckUpdate},
	}
	for _, b := range bools {
		raw, ok := settings.lookup(b.keys...)
		if !ok {
			continue
		}
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", b.keys[0], err)
		}
		*b.dst = val
	}

	if raw, ok := settings.lookup("ui"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("ui: %w", err)
		}
		cfg.UI = UIMode(strings.ToLower(strings.TrimSpace(val)))
	}

	if raw, ok := settings.lookup("headers"); ok {
		hdrs, err := parseHeaders(raw)
		if err != nil {
			return fmt.Errorf("headers: %w", err)
		}
		cfg.Headers = hdrs
	}

	if raw, ok := settings.lookup("thresholds"); ok {
		vals, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("thresholds: %w", err)
		}
		cfg.Thresholds = vals
	}

	if raw, ok := settings.lookup("tracing"); ok {
		tracing, err := parseTracing(raw, cfg.Tracing)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		cfg.Tracing = tracing
	}
	return nil
}

// parseHeaders accepts either a list of "Name: Value" lines or a map of
// name to value. Map entries are sorted by name.
func parseHeaders(value any) ([]string, error) {
	switch value.(type) {
	case []any, string:
		return asStringSlice(value)
	}
	m, err := asStringMap(value)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	lines := make([]string, 0, len(m))
	for _, k := range names {
		lines = append(lines, canonical(k)+": "+m[k])
	}
	return lines, nil
}

func parseTracing(value any, base TracingConfig) (TracingConfig, error) {
	settings, err := asSection(value)
	if err != nil {
		return base, err
	}
	cfg := base
	if raw, ok := settings.lookup("endpoint"); ok {
		if cfg.Endpoint, err = asString(raw); err != nil {
			return base, fmt.Errorf("endpoint: %w", err)
		}
	}
	if raw, ok := settings.lookup("protocol"); ok {
		if cfg.Protocol, err = asString(raw); err != nil {
			return base, fmt.Errorf("protocol: %w", err)
		}
	}
	if raw, ok := settings.lookup("servicename", "service_name", "service-name"); ok {
		if cfg.ServiceName, err = asString(raw); err != nil {
			return base, fmt.Errorf("service_name: %w", err)
		}
	}
	if raw, ok := settings.lookup("insecure"); ok {
		if cfg.Insecure, err = asBool(raw); err != nil {
			return base, fmt.Errorf("insecure: %w", err)
		}
	}
	if raw, ok := settings.lookup("propagate"); ok {
		if cfg.Propagate, err = asBool(raw); err != nil {
			return base, fmt.Errorf("propagate: %w", err)
		}
	}
	if raw, ok := settings.lookup("samplerate", "sample_rate", "sample-rate"); ok {
		if cfg.SampleRate, err = asNumber(raw); err != nil {
			return base, fmt.Errorf("sample_rate: %w", err)
		}
	}
	return cfg, nil
}
