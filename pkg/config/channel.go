package config

// ChannelConfig identifies the merchant brand and platform this portal
// instance serves. The values ride along on every SSO provider call and on
// the entitlement request headers.
type ChannelConfig struct {
	// Merchant is the merchant code for this deployment (e.g. "ET")
	Merchant string

	// Platform is the serving platform identifier ("WEB", "MWEB", "APP")
	Platform string

	// ClientID is sent as the x-client-id entitlement header
	ClientID string

	// AppCode is sent as the x-site-app-code entitlement header
	AppCode string

	// ProductCode selects the entry of interest in the entitlement
	// response's productDetails list (e.g. "ETPR")
	ProductCode string
}

// DefaultChannelConfig returns the channel identity used when no deployment
// overrides are present.
func DefaultChannelConfig() ChannelConfig {
	return ChannelConfig{
		Merchant:    "ET",
		Platform:    "WEB",
		ClientID:    "ETPR",
		AppCode:     "primeweb",
		ProductCode: "ETPR",
	}
}

// NewChannelConfigFromEnv loads ChannelConfig from standard environment variables.
func NewChannelConfigFromEnv() ChannelConfig {
	return ChannelConfig{
		Merchant:    GetEnvOrDefault("CHANNEL_MERCHANT", "ET"),
		Platform:    GetEnvOrDefault("CHANNEL_PLATFORM", "WEB"),
		ClientID:    GetEnvOrDefault("CHANNEL_CLIENT_ID", "ETPR"),
		AppCode:     GetEnvOrDefault("CHANNEL_APP_CODE", "primeweb"),
		ProductCode: GetEnvOrDefault("CHANNEL_PRODUCT_CODE", "ETPR"),
	}
}
