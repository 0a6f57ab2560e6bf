package database

import (
	"github.com/tarzihub/payment-service/internal/domain/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrate runs database migrations
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("Running database migrations...")

	if err := createExtensions(db); err != nil {
		logger.Error("Failed to create extensions", zap.Error(err))
		return err
	}

	// Custom enum types must exist before auto-migrate references them
	if err := createCustomTypes(db); err != nil {
		logger.Error("Failed to create custom types", zap.Error(err))
		return err
	}

	err := db.AutoMigrate(
		&model.Order{},
		&model.OrderStatusEvent{},
		&model.Payment{},
		&model.Refund{},
		&model.RefundAuditLog{},
		&model.GatewayWebhookEvent{},
	)
	if err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return err
	}

	if err := createCustomIndexes(db); err != nil {
		logger.Error("Failed to create custom indexes", zap.Error(err))
		return err
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

// createExtensions creates required PostgreSQL extensions
func createExtensions(db *gorm.DB) error {
	return db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error
}

// createCustomTypes creates custom PostgreSQL enum types
func createCustomTypes(db *gorm.DB) error {
	var exists bool

	db.Raw(`SELECT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'order_status')`).Scan(&exists)
	if !exists {
		err := db.Exec(`CREATE TYPE order_status AS ENUM (
			'pending_payment', 'processing', 'in_tailoring', 'ready_for_delivery',
			'delivered', 'completed', 'partially_refunded', 'refunded', 'cancelled')`).Error
		if err != nil {
			return err
		}
	}

	db.Raw(`SELECT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'payment_status')`).Scan(&exists)
	if !exists {
		err := db.Exec(`CREATE TYPE payment_status AS ENUM ('pending', 'paid', 'failed', 'refunded')`).Error
		if err != nil {
			return err
		}
	}

	db.Raw(`SELECT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'webhook_status')`).Scan(&exists)
	if !exists {
		err := db.Exec(`CREATE TYPE webhook_status AS ENUM ('pending', 'processing', 'completed', 'failed')`).Error
		if err != nil {
			return err
		}
	}

	return nil
}

// createCustomIndexes creates indexes that GORM doesn't handle automatically
func createCustomIndexes(db *gorm.DB) error {
	// One pending payment per order is enforced by the unique order_id index;
	// this partial index keeps the verify-by-reference lookup fast.
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_payments_gateway_reference ON payments (gateway, reference_number)`).Error; err != nil {
		return err
	}

	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_webhook_events_unprocessed ON gateway_webhook_events (created_at) WHERE status IN ('pending', 'failed')`).Error; err != nil {
		return err
	}

	return nil
}
