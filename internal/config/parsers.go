// Package config provides configuration loading and parsing for pepe.
package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// section is one level of a config file as viper returns it: keys are lower
// case, nested sections are map[string]any and lists are []any.
type section map[string]any

// lookup returns the value of the first candidate key present.
func (s section) lookup(candidates ...string) (any, bool) {
	for _, key := range candidates {
		if val, ok := s[strings.ToLower(key)]; ok {
			return val, true
		}
	}
	return nil, false
}

func asSection(value any) (section, error) {
	m, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a mapping, got %T", value)
	}
	return section(m), nil
}

// asString accepts strings and scalars. Lists and mappings are rejected.
func asString(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool, int, int64, float64:
		return fmt.Sprint(v), nil
	default:
		return "", fmt.Errorf("expected a string, got %T", value)
	}
}

// asNumber accepts the number types the YAML, JSON and TOML decoders
// produce, and numeric strings.
func asNumber(value any) (float64, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return 0, nil
		}
		return strconv.ParseFloat(v, 64)
	default:
		return 0, fmt.Errorf("expected a number, got %T", value)
	}
}

func asInt(value any) (int, error) {
	f, err := asNumber(value)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%v is not a whole number", value)
	}
	return int(f), nil
}

func asBool(value any) (bool, error) {
	switch v := value.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return false, nil
		}
		return strconv.ParseBool(strings.TrimSpace(v))
	default:
		return false, fmt.Errorf("expected a boolean, got %T", value)
	}
}

// asSeconds reads the timeout: a bare number of seconds, or a duration
// string such as "20s" or "1m" that must be whole seconds.
func asSeconds(value any) (int, error) {
	if str, ok := value.(string); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(str)); err == nil {
			if d%time.Second != 0 {
				return 0, fmt.Errorf("%s is not a whole number of seconds", d)
			}
			return int(d / time.Second), nil
		}
	}
	return asInt(value)
}

// asStringSlice reads a list of strings. A single string is a list of one.
func asStringSlice(value any) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			str, err := asString(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = str
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a list, got %T", value)
	}
}

// asStringMap reads a mapping of header name to value.
func asStringMap(value any) (map[string]string, error) {
	m, err := asSection(value)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(m))
	for k, val := range m {
		if strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("header name cannot be empty")
		}
		str, err := asString(val)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = str
	}
	return out, nil
}
