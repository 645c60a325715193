package repository

import (
	"context"
	"fmt"
	"time"

	"commerce-backoffice/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IdempotencyKey derives the stable key for one logical gateway event.
// Identical redeliveries reuse the same key; distinct logical events never
// collide.
func IdempotencyKey(deliveryID, event, resourceID string) string {
	return fmt.Sprintf("%s:%s:%s", deliveryID, event, resourceID)
}

// ClaimResult reports who won the claim. IsNew=true means this caller owns
// the event and must run side effects; IsNew=false means the event was
// already handled (or is being handled) and Record carries the prior state.
type ClaimResult struct {
	IsNew  bool
	Record *model.IdempotencyRecord
}

// IdempotencyRepository is the claim/save protocol the whole reconciliation
// core leans on: under concurrent redelivery of one key, exactly one caller
// observes IsNew=true.
type IdempotencyRepository interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (*ClaimResult, error)
	Save(ctx context.Context, key, status string, result datatypes.JSON, lastError string) error
	Get(ctx context.Context, key string) (*model.IdempotencyRecord, error)
}

type idempotencyRepoImpl struct {
	db  *gorm.DB
	now func() time.Time
}

func NewIdempotencyRepository(db *gorm.DB) IdempotencyRepository {
	return &idempotencyRepoImpl{db: db, now: time.Now}
}

// NewIdempotencyRepositoryWithClock exists for deterministic expiry tests.
func NewIdempotencyRepositoryWithClock(db *gorm.DB, now func() time.Time) IdempotencyRepository {
	return &idempotencyRepoImpl{db: db, now: now}
}

func (r *idempotencyRepoImpl) Claim(ctx context.Context, key string, ttl time.Duration) (*ClaimResult, error) {
	now := r.now()
	rec := &model.IdempotencyRecord{
		Key:       key,
		Status:    model.IdempotencyPending,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	// Atomic first-sight insert: the conflict target is the primary key, so
	// exactly one concurrent caller gets RowsAffected=1.
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(rec)
	if res.Error != nil {
		return nil, fmt.Errorf("claim idempotency key: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return &ClaimResult{IsNew: true, Record: rec}, nil
	}

	existing, err := r.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read claimed idempotency key: %w", err)
	}

	// Expired or failed records are re-claimed in place so a gateway retry
	// can reprocess. The conditional update keeps "exactly one winner" even
	// when two retries race on the takeover.
	if existing.Status == model.IdempotencyError || !existing.ExpiresAt.After(now) {
		takeover := r.db.WithContext(ctx).Model(&model.IdempotencyRecord{}).
			Where("`key` = ? AND (status = ? OR expires_at <= ?)",
				key, model.IdempotencyError, now).
			Updates(map[string]interface{}{
				"status":     model.IdempotencyPending,
				"result":     nil,
				"last_error": "",
				"created_at": now,
				"expires_at": now.Add(ttl),
			})
		if takeover.Error != nil {
			return nil, fmt.Errorf("reclaim idempotency key: %w", takeover.Error)
		}
		if takeover.RowsAffected > 0 {
			rec.CreatedAt = now
			rec.ExpiresAt = now.Add(ttl)
			return &ClaimResult{IsNew: true, Record: rec}, nil
		}
		if existing, err = r.Get(ctx, key); err != nil {
			return nil, err
		}
	}

	return &ClaimResult{IsNew: false, Record: existing}, nil
}

func (r *idempotencyRepoImpl) Save(ctx context.Context, key, status string, result datatypes.JSON, lastError string) error {
	return r.db.WithContext(ctx).Model(&model.IdempotencyRecord{}).
		Where("`key` = ?", key).
		Updates(map[string]interface{}{
			"status":     status,
			"result":     result,
			"last_error": lastError,
		}).Error
}

func (r *idempotencyRepoImpl) Get(ctx context.Context, key string) (*model.IdempotencyRecord, error) {
	var rec model.IdempotencyRecord
	err := r.db.WithContext(ctx).
		Where("`key` = ?", key).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
