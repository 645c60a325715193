package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	IdempotencyPending = "pending"
	IdempotencySuccess = "success"
	IdempotencyError   = "error"
)

// IdempotencyRecord makes at-least-once webhook delivery behave as
// effectively-once business logic: created on first sight of an event, read
// on every redelivery, expired after a bounded TTL.
type IdempotencyRecord struct {
	Key    string         `gorm:"primaryKey;size:191;not null"`
	Status string         `gorm:"size:16;not null"`
	Result datatypes.JSON `gorm:"type:json"`

	LastError string `gorm:"size:512"`

	CreatedAt time.Time
	ExpiresAt time.Time `gorm:"index;not null"`
}
