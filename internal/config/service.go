package config

type ServiceConfig struct {
	Name        string        `yaml:"name"`
	Environment string        `yaml:"environment"`
	Version     string        `yaml:"version"`
	ClientURL   string        `yaml:"client_url"`
	Fawry       FawryConfig   `yaml:"fawry"`
	PayMob      PayMobConfig  `yaml:"paymob"`
	PayTabs     PayTabsConfig `yaml:"paytabs"`
	Stripe      StripeConfig  `yaml:"stripe"`
}

type FawryConfig struct {
	BaseURL      string `yaml:"base_url"`
	MerchantCode string `yaml:"merchant_code"`
	SecureKey    string `yaml:"secure_key"`
}

type PayMobConfig struct {
	BaseURL       string `yaml:"base_url"`
	APIKey        string `yaml:"api_key"`
	IntegrationID int    `yaml:"integration_id"`
	IframeID      string `yaml:"iframe_id"`
	HMACSecret    string `yaml:"hmac_secret"`
}

type PayTabsConfig struct {
	BaseURL   string `yaml:"base_url"`
	ProfileID int    `yaml:"profile_id"`
	ServerKey string `yaml:"server_key"`
}

type StripeConfig struct {
	SecretKey     string `yaml:"secret_key"`
	WebhookSecret string `yaml:"webhook_secret"`
}
