// Package config resolves the run configuration from CLI flags and an optional config file.
package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// fileSettings is a decoded config file. Viper lowercases every key and
// drops keys whose value is null.
type fileSettings map[string]interface{}

// get returns the first of keys present in the file.
func (s fileSettings) get(keys ...string) (interface{}, bool) {
	for _, key := range keys {
		if val, ok := s[strings.ToLower(key)]; ok {
			return val, true
		}
	}
	return nil, false
}

// text reads a string setting. Numbers and booleans are rejected so a
// mistyped url or path is reported instead of silently stringified.
func text(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(v), nil
	default:
		return "", fmt.Errorf("expected a string, got %T", value)
	}
}

// count reads a whole number. JSON decodes every number as float64, so
// fractional values have to be rejected explicitly.
func count(value interface{}) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("expected a whole number, got %g", v)
		}
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("expected a whole number, got %q", v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("expected a whole number, got %T", value)
	}
}

// positiveCount is the rule shared by num_threads and max_concurrent_requests.
func positiveCount(value interface{}) (int, error) {
	n, err := count(value)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("must be >= 1, got %d", n)
	}
	return n, nil
}

func ratio(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("expected a number, got %q", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", value)
	}
}

func toggle(value interface{}) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fmt.Errorf("expected true or false, got %q", v)
		}
		return b, nil
	default:
		return false, fmt.Errorf("expected true or false, got %T", value)
	}
}

// timeout accepts a Go duration string ("1500ms") or a number of seconds.
func timeout(value interface{}) (time.Duration, error) {
	if s, ok := value.(string); ok {
		d, err := time.ParseDuration(strings.TrimSpace(s))
		if err != nil {
			return 0, fmt.Errorf("expected a duration, got %q", s)
		}
		return d, nil
	}
	secs, err := ratio(value)
	if err != nil {
		return 0, err
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// thresholdList accepts a list of expressions or a single expression.
func thresholdList(value interface{}) ([]string, error) {
	switch v := value.(type) {
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for i, item := range v {
			s, err := text(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a list of strings, got %T", value)
	}
}

// section reads a nested object such as "tracing".
func section(value interface{}) (fileSettings, error) {
	raw, ok := value.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("expected an object, got %T", value)
	}
	out := make(fileSettings, len(raw))
	for key, val := range raw {
		out[strings.ToLower(strings.TrimSpace(key))] = val
	}
	return out, nil
}
