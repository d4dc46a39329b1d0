package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// GetByPath retrieves a config value by dot-notation path
// (e.g. "channels.webhook.port").
func GetByPath(cfg *Config, path string) (any, error) {
	m, err := toMap(cfg)
	if err != nil {
		return nil, err
	}
	var current any = m
	for _, key := range strings.Split(path, ".") {
		current, err = step(current, key)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return current, nil
}

// SetByPath sets a config value by dot-notation path, mutating cfg.
// The value string is parsed as JSON when possible, otherwise kept literal.
func SetByPath(cfg *Config, path, value string) error {
	m, err := toMap(cfg)
	if err != nil {
		return err
	}

	keys := strings.Split(path, ".")
	parent := any(m)
	for _, key := range keys[:len(keys)-1] {
		parent, err = step(parent, key)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	obj, ok := parent.(map[string]any)
	if !ok {
		return fmt.Errorf("%s: parent is not an object", path)
	}

	var parsed any
	if err := json.Unmarshal([]byte(value), &parsed); err != nil {
		parsed = value
	}
	obj[keys[len(keys)-1]] = parsed

	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, cfg)
}

func toMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func step(current any, key string) (any, error) {
	switch v := current.(type) {
	case map[string]any:
		val, ok := v[key]
		if !ok {
			return nil, fmt.Errorf("key not found: %s", key)
		}
		return val, nil
	case []any:
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(v) {
			return nil, fmt.Errorf("invalid array index: %s", key)
		}
		return v[idx], nil
	default:
		return nil, fmt.Errorf("cannot traverse into %T at %s", current, key)
	}
}
