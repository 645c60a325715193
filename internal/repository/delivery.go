package repository

import (
	"context"

	"commerce-backoffice/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DeliveryRepository interface {
	Record(ctx context.Context, deliveryID, event string, payload datatypes.JSON, outcome, errMsg string, latencyMS int64) error
	ListByEvent(ctx context.Context, event string, limit int) ([]*model.WebhookDelivery, error)
}

type deliveryRepoImpl struct {
	db *gorm.DB
}

func NewDeliveryRepository(db *gorm.DB) DeliveryRepository {
	return &deliveryRepoImpl{db: db}
}

func (r *deliveryRepoImpl) Record(ctx context.Context, deliveryID, event string, payload datatypes.JSON, outcome, errMsg string, latencyMS int64) error {
	return r.db.WithContext(ctx).Create(&model.WebhookDelivery{
		ID:         uuid.NewString(),
		DeliveryID: deliveryID,
		Event:      event,
		Payload:    payload,
		Outcome:    outcome,
		Error:      errMsg,
		LatencyMS:  latencyMS,
	}).Error
}

func (r *deliveryRepoImpl) ListByEvent(ctx context.Context, event string, limit int) ([]*model.WebhookDelivery, error) {
	var deliveries []*model.WebhookDelivery
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if event != "" {
		q = q.Where("event = ?", event)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&deliveries).Error; err != nil {
		return nil, err
	}
	return deliveries, nil
}
