package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tarzihub/payment-service/internal/domain/model"
	domainRepo "github.com/tarzihub/payment-service/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// auditLogRepository implements the AuditLogRepository interface
type auditLogRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewAuditLogRepository creates a new audit log repository instance
func NewAuditLogRepository(db *gorm.DB, logger *zap.Logger) domainRepo.AuditLogRepository {
	return &auditLogRepository{
		db:     db,
		logger: logger,
	}
}

func (r *auditLogRepository) Record(ctx context.Context, entry *model.RefundAuditLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		r.logger.Error("Failed to record audit entry",
			zap.String("order_id", entry.OrderID.String()),
			zap.String("action", entry.Action),
			zap.Error(err))
		return fmt.Errorf("failed to record audit entry: %w", err)
	}

	return nil
}

func (r *auditLogRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.RefundAuditLog, error) {
	var entries []model.RefundAuditLog

	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}

	return entries, nil
}
