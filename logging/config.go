package logging

import "time"

// Config controls the router's buffering and filtering.
type Config struct {
	BufferSize       int
	MinimumSeverity  Severity
	Fields           map[string]any
	DropWarnInterval time.Duration
}

// DefaultConfig returns the router settings used in production.
func DefaultConfig() Config {
	return Config{
		BufferSize:       512,
		MinimumSeverity:  SeverityInfo,
		DropWarnInterval: 5 * time.Second,
	}
}

// CloneFields copies the static fields attached to every event.
func (c Config) CloneFields() map[string]any {
	if len(c.Fields) == 0 {
		return nil
	}
	cloned := make(map[string]any, len(c.Fields))
	for k, v := range c.Fields {
		cloned[k] = v
	}
	return cloned
}
