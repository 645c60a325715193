package repository

import (
	"context"
	"time"

	"commerce-backoffice/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditFilter narrows the compliance read surface.
type AuditFilter struct {
	ResourceType string
	ResourceID   string
	Action       string
	From         time.Time
	To           time.Time
	Limit        int
}

type AuditRepository interface {
	Append(ctx context.Context, entry *model.AuditLogEntry) error
	Query(ctx context.Context, filter AuditFilter) ([]*model.AuditLogEntry, error)
}

type auditRepoImpl struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepoImpl{db: db}
}

// Append inserts one entry. Rows are never updated or deleted by the
// application.
func (r *auditRepoImpl) Append(ctx context.Context, entry *model.AuditLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *auditRepoImpl) Query(ctx context.Context, filter AuditFilter) ([]*model.AuditLogEntry, error) {
	q := r.db.WithContext(ctx).Model(&model.AuditLogEntry{}).Order("created_at DESC")
	if filter.ResourceType != "" {
		q = q.Where("resource_type = ?", filter.ResourceType)
	}
	if filter.ResourceID != "" {
		q = q.Where("resource_id = ?", filter.ResourceID)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if !filter.From.IsZero() {
		q = q.Where("created_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		q = q.Where("created_at <= ?", filter.To)
	}
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var entries []*model.AuditLogEntry
	if err := q.Limit(limit).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
