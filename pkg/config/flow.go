package config

import "time"

// FlowConfig contains login-flow behavior settings.
type FlowConfig struct {
	// WatchInterval is the pause between out-of-band login checks
	WatchInterval time.Duration

	// WatchMaxChecks caps the number of out-of-band login checks
	WatchMaxChecks int

	// WatchWindow is the hard wall-clock ceiling for the login watcher
	// (ISO 8601 format, e.g. "PT3S")
	WatchWindow string
}

// DefaultFlowConfig returns a FlowConfig with sensible defaults
func DefaultFlowConfig() FlowConfig {
	return FlowConfig{
		WatchInterval:  250 * time.Millisecond,
		WatchMaxChecks: 12,
		WatchWindow:    "PT3S",
	}
}

// NewFlowConfigFromEnv loads FlowConfig from standard environment variables.
func NewFlowConfigFromEnv() FlowConfig {
	cfg := DefaultFlowConfig()
	if v := GetEnv("FLOW_WATCH_INTERVAL"); v != "" {
		if d, err := ParseISO8601OrGoDuration(v); err == nil {
			cfg.WatchInterval = d
		}
	}
	cfg.WatchMaxChecks = GetEnvInt("FLOW_WATCH_MAX_CHECKS", cfg.WatchMaxChecks)
	cfg.WatchWindow = GetEnvOrDefault("FLOW_WATCH_WINDOW", cfg.WatchWindow)
	return cfg
}

// ParseWatchWindow parses the WatchWindow field as a time.Duration.
// Supports ISO 8601 duration format (e.g., "PT3S") and Go duration format (e.g., "3s").
func (c *FlowConfig) ParseWatchWindow() (time.Duration, error) {
	return ParseISO8601OrGoDuration(c.WatchWindow)
}
