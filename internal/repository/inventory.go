package repository

import (
	"context"
	"time"

	"commerce-backoffice/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Movement is the outcome of one ledger operation. When the guard fails
// (less quantity in the source bucket than requested) the operation clamps
// to what is there instead of going negative; Clamped flags that so the
// caller can audit the inconsistency.
type Movement struct {
	Requested int64
	Moved     int64
	Clamped   bool
}

// InventoryRepository moves quantities between the available/reserved/
// committed buckets with single-statement server-side arithmetic, never
// read-then-write from application memory.
type InventoryRepository interface {
	Ensure(ctx context.Context, tx *gorm.DB, variantID, locationID string, available int64) error
	Reserve(ctx context.Context, tx *gorm.DB, variantID, locationID string, qty int64) (Movement, error)
	Commit(ctx context.Context, tx *gorm.DB, variantID, locationID string, qty int64) (Movement, error)
	Release(ctx context.Context, tx *gorm.DB, variantID, locationID string, qty int64) (Movement, error)
	Restock(ctx context.Context, tx *gorm.DB, variantID, locationID string, qty int64) (Movement, error)
	Get(ctx context.Context, variantID, locationID string) (*model.InventoryLevel, error)
}

type inventoryRepoImpl struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) InventoryRepository {
	return &inventoryRepoImpl{db: db}
}

func (r *inventoryRepoImpl) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// Ensure creates the ledger row for a (variant, location) pair if missing,
// adding to available stock otherwise.
func (r *inventoryRepoImpl) Ensure(ctx context.Context, tx *gorm.DB, variantID, locationID string, available int64) error {
	level := &model.InventoryLevel{
		VariantID:  variantID,
		LocationID: locationID,
		Available:  available,
	}
	return r.conn(tx).WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "variant_id"}, {Name: "location_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"available":  gorm.Expr("available + ?", available),
			"updated_at": time.Now(),
		}),
	}).Create(level).Error
}

func (r *inventoryRepoImpl) Reserve(ctx context.Context, tx *gorm.DB, variantID, locationID string, qty int64) (Movement, error) {
	return r.move(ctx, r.conn(tx), variantID, locationID, "available", "reserved", qty)
}

// Commit moves reserved stock to committed; invoked exactly once per order
// on the capture transition.
func (r *inventoryRepoImpl) Commit(ctx context.Context, tx *gorm.DB, variantID, locationID string, qty int64) (Movement, error) {
	return r.move(ctx, r.conn(tx), variantID, locationID, "reserved", "committed", qty)
}

// Release returns reserved stock to available on cancellation or failure.
func (r *inventoryRepoImpl) Release(ctx context.Context, tx *gorm.DB, variantID, locationID string, qty int64) (Movement, error) {
	return r.move(ctx, r.conn(tx), variantID, locationID, "reserved", "available", qty)
}

// Restock returns committed stock to available after a refund with restock.
func (r *inventoryRepoImpl) Restock(ctx context.Context, tx *gorm.DB, variantID, locationID string, qty int64) (Movement, error) {
	return r.move(ctx, r.conn(tx), variantID, locationID, "committed", "available", qty)
}

var ledgerColumns = map[string]bool{"available": true, "reserved": true, "committed": true}

func (r *inventoryRepoImpl) move(ctx context.Context, db *gorm.DB, variantID, locationID, from, to string, qty int64) (Movement, error) {
	mv := Movement{Requested: qty}
	if qty <= 0 || !ledgerColumns[from] || !ledgerColumns[to] {
		return mv, nil
	}

	// Fast path: guarded single-statement transfer.
	res := db.WithContext(ctx).Model(&model.InventoryLevel{}).
		Where("variant_id = ? AND location_id = ? AND "+from+" >= ?", variantID, locationID, qty).
		Updates(map[string]interface{}{
			from:         gorm.Expr(from+" - ?", qty),
			to:           gorm.Expr(to+" + ?", qty),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return mv, res.Error
	}
	if res.RowsAffected > 0 {
		mv.Moved = qty
		return mv, nil
	}

	// Clamp path: move whatever the source bucket still holds. The guard on
	// the retry keeps a concurrent drain from driving the counter negative.
	var level model.InventoryLevel
	err := db.WithContext(ctx).
		Where("variant_id = ? AND location_id = ?", variantID, locationID).
		First(&level).Error
	if err != nil {
		if IsNotFound(err) {
			mv.Clamped = true
			return mv, nil
		}
		return mv, err
	}

	remaining := levelColumn(&level, from)
	mv.Clamped = true
	if remaining <= 0 {
		return mv, nil
	}

	res = db.WithContext(ctx).Model(&model.InventoryLevel{}).
		Where("variant_id = ? AND location_id = ? AND "+from+" >= ?", variantID, locationID, remaining).
		Updates(map[string]interface{}{
			from:         gorm.Expr(from+" - ?", remaining),
			to:           gorm.Expr(to+" + ?", remaining),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return mv, res.Error
	}
	if res.RowsAffected > 0 {
		mv.Moved = remaining
	}
	return mv, nil
}

func levelColumn(l *model.InventoryLevel, col string) int64 {
	switch col {
	case "available":
		return l.Available
	case "reserved":
		return l.Reserved
	case "committed":
		return l.Committed
	}
	return 0
}

func (r *inventoryRepoImpl) Get(ctx context.Context, variantID, locationID string) (*model.InventoryLevel, error) {
	var level model.InventoryLevel
	err := r.db.WithContext(ctx).
		Where("variant_id = ? AND location_id = ?", variantID, locationID).
		First(&level).Error
	if err != nil {
		return nil, err
	}
	return &level, nil
}
