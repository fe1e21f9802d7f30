package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Role defines a user's access level
type Role string

const (
	RoleOrdinary Role = "ORDINARY"
	RoleVIP      Role = "VIP"
)

// User represents a chat user identified by their Telegram ID
type User struct {
	ID        uint            `gorm:"primaryKey"`
	UserID    int64           `gorm:"uniqueIndex;not null"`
	Username  string          `gorm:"size:255"`
	FirstName string          `gorm:"size:255"`
	LastName  string          `gorm:"size:255"`
	Role      Role            `gorm:"size:20;default:ORDINARY"`
	Balance   decimal.Decimal `gorm:"type:decimal(10,2);default:0"`
	Referrals int             `gorm:"default:0"`
	VIPExpire datatypes.Date  `gorm:"column:vip_expire"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for User
func (User) TableName() string {
	return "users"
}

// IsVIP reports whether the user currently holds the VIP role
func (u *User) IsVIP() bool {
	return u.Role == RoleVIP
}
