package config

import "time"

// Session cookie names. These are consumer-facing contracts shared with the
// SSO provider and must not change per deployment.
const (
	CookieTicketID  = "TicketId"
	CookieEncTicket = "encTicket"
	CookieSSOID     = "ssoid"
	CookieOneTime   = "OTR"
)

// CookieConfig controls how session cookies are scoped and protected.
type CookieConfig struct {
	// Domain scopes the session cookies to the merchant brand's domain
	// (e.g. ".example.com" so subdomains share the SSO session)
	Domain string

	// Secure requires HTTPS for cookie transmission
	Secure bool

	// HTTPOnly hides cookies from page scripts
	HTTPOnly bool

	// MaxAge bounds cookie lifetime; zero means session cookies
	MaxAge time.Duration
}

// DefaultCookieConfig returns a CookieConfig with production defaults
func DefaultCookieConfig() CookieConfig {
	return CookieConfig{
		Domain:   ".example.com",
		Secure:   true,
		HTTPOnly: true,
		MaxAge:   0,
	}
}

// NewCookieConfigFromEnv loads CookieConfig from standard environment variables.
func NewCookieConfigFromEnv() CookieConfig {
	cfg := CookieConfig{
		Domain:   GetEnvOrDefault("COOKIE_DOMAIN", ".example.com"),
		Secure:   GetEnvBool("COOKIE_SECURE", true),
		HTTPOnly: GetEnvBool("COOKIE_HTTP_ONLY", true),
	}
	if raw := GetEnv("COOKIE_MAX_AGE"); raw != "" {
		if d, err := ParseISO8601OrGoDuration(raw); err == nil {
			cfg.MaxAge = d
		}
	}
	return cfg
}
