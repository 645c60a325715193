package model

import "time"

// InventoryLevel is the ledger row for one (variant, location) pair.
// Quantities only move through the guarded arithmetic in
// repository.InventoryRepository; available+reserved+committed is conserved
// across a reserve→commit or reserve→release cycle and no counter ever goes
// negative.
type InventoryLevel struct {
	VariantID  string `gorm:"primaryKey;size:64;not null"`
	LocationID string `gorm:"primaryKey;size:64;not null"`

	Available int64 `gorm:"not null;default:0"`
	Reserved  int64 `gorm:"not null;default:0"`
	Committed int64 `gorm:"not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
