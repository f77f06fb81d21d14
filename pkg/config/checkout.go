package config

import (
	"time"

	"golang.org/x/exp/slices"
)

// CheckoutConfig contains endpoints and timing for the payment continuation
// handshake.
type CheckoutConfig struct {
	// SubsHost is the base URL of the subscription service that hosts the
	// initiate-transaction endpoint
	SubsHost string

	// ErrorPath is the merchant-scoped error route; the failure kind is
	// appended as an errorType query parameter
	ErrorPath string

	// StandardDelay is the short pause the standard (non-direct) initiation
	// path waits before calling initiate-transaction
	StandardDelay time.Duration

	// InitiateTimeout bounds the initiate-transaction call
	InitiateTimeout time.Duration
}

// DefaultCheckoutConfig returns a CheckoutConfig with sensible defaults
func DefaultCheckoutConfig() CheckoutConfig {
	return CheckoutConfig{
		SubsHost:        "https://subscriptions.example.com",
		ErrorPath:       "/prime/error",
		StandardDelay:   300 * time.Millisecond,
		InitiateTimeout: 30 * time.Second,
	}
}

// NewCheckoutConfigFromEnv loads CheckoutConfig from standard environment variables.
func NewCheckoutConfigFromEnv() CheckoutConfig {
	cfg := DefaultCheckoutConfig()
	cfg.SubsHost = GetEnvOrDefault("CHECKOUT_SUBS_HOST", cfg.SubsHost)
	cfg.ErrorPath = GetEnvOrDefault("CHECKOUT_ERROR_PATH", cfg.ErrorPath)
	if v := GetEnv("CHECKOUT_STANDARD_DELAY"); v != "" {
		if d, err := ParseISO8601OrGoDuration(v); err == nil {
			cfg.StandardDelay = d
		}
	}
	if v := GetEnv("CHECKOUT_INITIATE_TIMEOUT"); v != "" {
		if d, err := ParseISO8601OrGoDuration(v); err == nil {
			cfg.InitiateTimeout = d
		}
	}
	return cfg
}

// MerchantPolicy captures per-merchant business rules that used to be
// hard-coded special cases. Keeping them as data makes the carve-outs
// auditable and overridable per deployment.
type MerchantPolicy struct {
	// NoUpgradeMerchants never show the upgrade/buy CTA even when the
	// permission set would otherwise allow it
	NoUpgradeMerchants []string

	// VerifiedContactMerchants require a verified email or mobile before a
	// transaction may be initiated
	VerifiedContactMerchants []string
}

// DefaultMerchantPolicy returns the policy for the primary deployment.
func DefaultMerchantPolicy() MerchantPolicy {
	return MerchantPolicy{
		NoUpgradeMerchants:       []string{"ET"},
		VerifiedContactMerchants: []string{"ET"},
	}
}

// AllowsUpgrade reports whether the merchant may surface an upgrade CTA.
func (p MerchantPolicy) AllowsUpgrade(merchant string) bool {
	return !slices.Contains(p.NoUpgradeMerchants, merchant)
}

// RequiresVerifiedContact reports whether the merchant requires a verified
// contact before initiating a transaction.
func (p MerchantPolicy) RequiresVerifiedContact(merchant string) bool {
	return slices.Contains(p.VerifiedContactMerchants, merchant)
}
