package model

import (
	"time"

	"gorm.io/datatypes"
)

// Audit action codes.
const (
	AuditPaymentAuthorized  = "payment.authorized"
	AuditPaymentCaptured    = "payment.captured"
	AuditPaymentFailed      = "payment.failed"
	AuditOrderPaid          = "order.paid"
	AuditOrderStatusChanged = "order.status_changed"
	AuditOrderFulfilled     = "order.fulfilled"
	AuditOrderCancelled     = "order.cancelled"
	AuditRefundProcessed    = "refund.processed"
	AuditFraudAnalyzed      = "fraud.analyzed"
	AuditInventoryClamped   = "inventory.clamped"
)

// SystemActor is recorded for transitions driven by gateway webhooks rather
// than an admin user.
const SystemActor = "system"

// AuditLogEntry is append-only; the application never updates or deletes
// rows. This is the compliance record of record.
type AuditLogEntry struct {
	ID string `gorm:"primaryKey;size:36"`

	Actor        string `gorm:"size:64;index;not null"`
	Action       string `gorm:"size:64;index;not null"`
	ResourceType string `gorm:"size:32;index:idx_audit_resource;not null"`
	ResourceID   string `gorm:"size:64;index:idx_audit_resource;not null"`

	Changes datatypes.JSON `gorm:"type:json"`

	IP        string `gorm:"size:45"`
	UserAgent string `gorm:"size:512"`

	CreatedAt time.Time `gorm:"index"`
}
