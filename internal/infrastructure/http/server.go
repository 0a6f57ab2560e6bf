package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	handlers "github.com/tarzihub/payment-service/internal/adapter/handler/http"
	"github.com/tarzihub/payment-service/internal/config"
	"github.com/tarzihub/payment-service/internal/infrastructure/database"
	"github.com/tarzihub/payment-service/internal/middleware/auth"
	"github.com/tarzihub/payment-service/internal/usecase"
	"github.com/tarzihub/payment-service/pkg/logger"
	"go.uber.org/zap"
)

type Server struct {
	config   *config.Config
	logger   *zap.Logger
	echo     *echo.Echo
	repos    *database.Repositories
	orders   *usecase.OrderService
	payments *usecase.PaymentService
	refunds  *usecase.RefundService
}

// requestValidator adapts go-playground/validator to echo's Validator
type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

func NewServer(
	cfg *config.Config,
	log *zap.Logger,
	repos *database.Repositories,
	orders *usecase.OrderService,
	payments *usecase.PaymentService,
	refunds *usecase.RefundService,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &requestValidator{validate: validator.New()}

	// Middleware
	e.Use(logger.NewEchoRequestLogger(log))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.Service.ClientURL},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE},
	}))

	return &Server{
		config:   cfg,
		logger:   log,
		echo:     e,
		repos:    repos,
		orders:   orders,
		payments: payments,
		refunds:  refunds,
	}
}

func (s *Server) Start() error {
	// Setup routes
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	// Health check
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": s.config.Service.Name,
		})
	})

	// Handlers
	orderHandler := handlers.NewOrderHandler(s.orders, s.logger)
	paymentHandler := handlers.NewPaymentHandler(s.payments, s.logger)
	refundHandler := handlers.NewRefundHandler(s.refunds, s.logger)
	webhookHandler := handlers.NewWebhookHandler(
		s.repos.Webhook, s.payments, &s.config.Service, s.logger)

	// JWT middleware configuration
	jwtConfig := auth.JWTConfig{
		Secret: s.config.JWT.Secret,
		Logger: s.logger,
		SkipPaths: []string{
			"/health",
			"/webhooks",
		},
	}

	// API v1 routes
	v1 := s.echo.Group("/api/v1", auth.JWTMiddleware(jwtConfig))

	// Orders
	orders := v1.Group("/orders")
	orders.POST("", orderHandler.CreateOrder)
	orders.GET("", orderHandler.ListOrders)
	orders.GET("/:id", orderHandler.GetOrder)
	orders.PUT("/:id/status", orderHandler.UpdateStatus)
	orders.GET("/:id/history", orderHandler.GetStatusHistory)

	// Payments
	payments := v1.Group("/payments")
	payments.POST("", paymentHandler.CreatePayment)
	payments.GET("/verify/:gateway/:reference", paymentHandler.VerifyPayment)
	payments.GET("/:id", paymentHandler.GetPayment)

	// Refunds are staff-only
	refunds := v1.Group("/refunds", auth.RequireAdmin(s.logger))
	refunds.POST("/full", refundHandler.ProcessFullRefund)
	refunds.POST("/partial", refundHandler.ProcessPartialRefund)
	refunds.GET("/:orderId", refundHandler.GetRefundHistory)
	refunds.GET("/:orderId/audit", refundHandler.GetAuditTrail)

	// Webhook routes (outside API versioning, signature-checked per gateway)
	s.echo.POST("/webhooks/:gateway", webhookHandler.HandleWebhook)
}
