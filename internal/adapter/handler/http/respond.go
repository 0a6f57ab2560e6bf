package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	domainErrors "github.com/tarzihub/payment-service/internal/domain/errors"
	"github.com/tarzihub/payment-service/internal/domain/provider"
	apperrors "github.com/tarzihub/payment-service/pkg/errors"
)

// envelope is the response shape shared by every endpoint.
type envelope struct {
	Success bool           `json:"success"`
	Data    interface{}    `json:"data,omitempty"`
	Errors  []errorMessage `json:"errors,omitempty"`
}

type errorMessage struct {
	Message string `json:"message"`
}

func respondOK(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, envelope{Success: true, Data: data})
}

func respondCreated(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, envelope{Success: true, Data: data})
}

func respondError(c echo.Context, status int, message string) error {
	return c.JSON(status, envelope{
		Success: false,
		Errors:  []errorMessage{{Message: message}},
	})
}

// respondDomainError classifies a domain error and maps it onto an HTTP
// status. Gateway failures surface as 502 since the fault lies upstream.
func respondDomainError(c echo.Context, err error) error {
	code := classify(err)
	status := apperrors.ToHTTPStatus(code)

	message := err.Error()
	if code == apperrors.ErrInternal {
		message = "internal server error"
	}

	return respondError(c, status, message)
}

func classify(err error) string {
	var (
		unsupportedErr   *domainErrors.UnsupportedGatewayError
		invalidAmountErr *domainErrors.InvalidRefundAmountError
		providerErr      *provider.ProviderError
	)

	switch {
	case apperrors.Is(err, domainErrors.ErrOrderNotFound),
		apperrors.Is(err, domainErrors.ErrPaymentNotFound):
		return apperrors.ErrNotFound
	case apperrors.Is(err, domainErrors.ErrAlreadyRefunded):
		return apperrors.ErrConflict
	case apperrors.Is(err, domainErrors.ErrPaymentNotPending),
		apperrors.Is(err, domainErrors.ErrPaymentNotRefundable),
		apperrors.Is(err, domainErrors.ErrInvalidStatusTransition),
		apperrors.As(err, &invalidAmountErr),
		apperrors.As(err, &unsupportedErr):
		return apperrors.ErrInvalidArgument
	case apperrors.As(err, &providerErr):
		return apperrors.ErrUpstream
	default:
		return apperrors.ErrInternal
	}
}
