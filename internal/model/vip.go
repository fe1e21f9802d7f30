package model

import (
	"time"

	"gorm.io/datatypes"
)

// VIPGrant represents a subscription purchase conferring the VIP role.
// Repeat purchases accumulate Days and overwrite ExpireDate with the
// latest computed value.
type VIPGrant struct {
	ID         uint           `gorm:"primaryKey"`
	UserID     int64          `gorm:"uniqueIndex;not null"`
	Days       int            `gorm:"not null"`
	ExpireDate datatypes.Date `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName returns the table name for VIPGrant
func (VIPGrant) TableName() string {
	return "vip_grants"
}
