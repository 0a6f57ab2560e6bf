package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/tarzihub/payment-service/internal/domain/model"
)

type AuditLogRepository interface {
	// Record appends an audit entry. Audit rows are never updated.
	Record(ctx context.Context, entry *model.RefundAuditLog) error

	// ListByOrder returns the order's audit trail, oldest first
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.RefundAuditLog, error)
}
