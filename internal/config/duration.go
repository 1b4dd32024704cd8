package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration parses YAML values like "5m" or "30s" into a time.Duration.
// Plain integers are taken as nanoseconds for compatibility with marshaled
// configs.
type Duration time.Duration

// D is the underlying duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

// UnmarshalYAML accepts either a Go duration string or an integer.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var asInt int64
	if err := value.Decode(&asInt); err == nil {
		*d = Duration(asInt)
		return nil
	}
	var asStr string
	if err := value.Decode(&asStr); err != nil {
		return fmt.Errorf("duration must be a string or integer: %w", err)
	}
	parsed, err := time.ParseDuration(asStr)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", asStr, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration in Go string form.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}
