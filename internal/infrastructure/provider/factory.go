package provider

import (
	"fmt"

	"github.com/tarzihub/payment-service/internal/config"
	domainErrors "github.com/tarzihub/payment-service/internal/domain/errors"
	"github.com/tarzihub/payment-service/internal/domain/provider"
	fawryProvider "github.com/tarzihub/payment-service/internal/infrastructure/provider/fawry"
	paymobProvider "github.com/tarzihub/payment-service/internal/infrastructure/provider/paymob"
	paytabsProvider "github.com/tarzihub/payment-service/internal/infrastructure/provider/paytabs"
	stripeProvider "github.com/tarzihub/payment-service/internal/infrastructure/provider/stripe"
	"go.uber.org/zap"
)

// Factory creates payment providers keyed by gateway name
type Factory struct {
	config *config.Config
	logger *zap.Logger
}

// NewFactory creates a new provider factory
func NewFactory(config *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		config: config,
		logger: logger,
	}
}

// GetProvider returns the payment provider for a gateway name
func (f *Factory) GetProvider(gateway string) (provider.PaymentProvider, error) {
	switch gateway {
	case provider.GatewayFawry:
		return f.createFawryProvider()
	case provider.GatewayPayMob:
		return f.createPayMobProvider()
	case provider.GatewayPayTabs:
		return f.createPayTabsProvider()
	case provider.GatewayStripe:
		return f.createStripeProvider()
	default:
		return nil, domainErrors.NewUnsupportedGatewayError(gateway)
	}
}

func (f *Factory) createFawryProvider() (provider.PaymentProvider, error) {
	cfg := f.config.Service.Fawry
	if cfg.MerchantCode == "" || cfg.SecureKey == "" {
		return nil, fmt.Errorf("Fawry credentials not configured")
	}

	return fawryProvider.NewFawryProvider(
		cfg.BaseURL,
		cfg.MerchantCode,
		cfg.SecureKey,
		f.logger,
	), nil
}

func (f *Factory) createPayMobProvider() (provider.PaymentProvider, error) {
	cfg := f.config.Service.PayMob
	if cfg.APIKey == "" || cfg.IntegrationID == 0 {
		return nil, fmt.Errorf("PayMob credentials not configured")
	}

	return paymobProvider.NewPayMobProvider(
		cfg.BaseURL,
		cfg.APIKey,
		cfg.IntegrationID,
		cfg.IframeID,
		f.logger,
	), nil
}

func (f *Factory) createPayTabsProvider() (provider.PaymentProvider, error) {
	cfg := f.config.Service.PayTabs
	if cfg.ProfileID == 0 || cfg.ServerKey == "" {
		return nil, fmt.Errorf("PayTabs credentials not configured")
	}

	return paytabsProvider.NewPayTabsProvider(
		cfg.BaseURL,
		cfg.ProfileID,
		cfg.ServerKey,
		f.config.Service.ClientURL,
		f.logger,
	), nil
}

func (f *Factory) createStripeProvider() (provider.PaymentProvider, error) {
	cfg := f.config.Service.Stripe
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("Stripe secret key not configured")
	}

	return stripeProvider.NewStripeProvider(cfg.SecretKey, f.logger), nil
}
