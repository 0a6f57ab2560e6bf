package database

import (
	"github.com/tarzihub/payment-service/internal/adapter/repository"
	domainRepo "github.com/tarzihub/payment-service/internal/domain/repository"
	"github.com/tarzihub/payment-service/pkg/messaging"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	Order    domainRepo.OrderRepository
	Payment  domainRepo.PaymentRepository
	AuditLog domainRepo.AuditLogRepository
	Webhook  repository.WebhookRepository
	Cache    domainRepo.CacheRepository
}

// NewRepositories creates new repository instances with database connection.
// redisClient may be nil; the cache repository is then left unset.
func NewRepositories(db *gorm.DB, redisClient messaging.RedisClient, logger *zap.Logger) *Repositories {
	repos := &Repositories{
		Order:    repository.NewOrderRepository(db, logger),
		Payment:  repository.NewPaymentRepository(db, logger),
		AuditLog: repository.NewAuditLogRepository(db, logger),
		Webhook:  repository.NewWebhookRepository(db, logger),
	}
	if redisClient != nil {
		repos.Cache = repository.NewRedisCacheRepository(redisClient, logger)
	}
	return repos
}
