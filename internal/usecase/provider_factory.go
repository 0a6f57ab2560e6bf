package usecase

import (
	"github.com/tarzihub/payment-service/internal/domain/provider"
)

// ProviderFactory resolves a payment gateway by name. Unknown names yield
// an UnsupportedGatewayError.
type ProviderFactory interface {
	GetProvider(gateway string) (provider.PaymentProvider, error)
}
