package config

import "time"

// SSOConfig contains endpoints and probing behavior for the third-party SSO
// provider integration.
type SSOConfig struct {
	// ProviderHost is the base URL of the SSO provider API
	ProviderHost string

	// AuthHost is the base URL of the entitlement/OAuth endpoint
	AuthHost string

	// LoginHost is the hosted login page users are redirected to when a
	// checkout requires authentication
	LoginHost string

	// ProbeAttempts bounds how many times provider availability is probed
	// before the provider is treated as unavailable
	ProbeAttempts int

	// ProbeInterval is the pause between availability probes
	ProbeInterval time.Duration

	// RequestTimeout applies to every provider and entitlement HTTP call
	RequestTimeout time.Duration
}

// DefaultSSOConfig returns an SSOConfig with sensible defaults
func DefaultSSOConfig() SSOConfig {
	return SSOConfig{
		ProviderHost:   "https://jsso.example.com",
		AuthHost:       "https://auth.example.com",
		LoginHost:      "https://login.example.com",
		ProbeAttempts:  10,
		ProbeInterval:  500 * time.Millisecond,
		RequestTimeout: 30 * time.Second,
	}
}

// NewSSOConfigFromEnv loads SSOConfig from standard environment variables.
//
// Environment variables:
//   - SSO_PROVIDER_HOST: SSO provider base URL
//   - SSO_AUTH_HOST: entitlement endpoint base URL
//   - SSO_LOGIN_HOST: hosted login page URL
//   - SSO_PROBE_ATTEMPTS: availability probe cap (default: 10)
//   - SSO_PROBE_INTERVAL: pause between probes (ISO 8601 or Go format)
//   - SSO_REQUEST_TIMEOUT: per-call HTTP timeout (ISO 8601 or Go format)
func NewSSOConfigFromEnv() SSOConfig {
	cfg := DefaultSSOConfig()
	cfg.ProviderHost = GetEnvOrDefault("SSO_PROVIDER_HOST", cfg.ProviderHost)
	cfg.AuthHost = GetEnvOrDefault("SSO_AUTH_HOST", cfg.AuthHost)
	cfg.LoginHost = GetEnvOrDefault("SSO_LOGIN_HOST", cfg.LoginHost)
	cfg.ProbeAttempts = GetEnvInt("SSO_PROBE_ATTEMPTS", cfg.ProbeAttempts)
	if v := GetEnv("SSO_PROBE_INTERVAL"); v != "" {
		if d, err := ParseISO8601OrGoDuration(v); err == nil {
			cfg.ProbeInterval = d
		}
	}
	if v := GetEnv("SSO_REQUEST_TIMEOUT"); v != "" {
		if d, err := ParseISO8601OrGoDuration(v); err == nil {
			cfg.RequestTimeout = d
		}
	}
	return cfg
}
