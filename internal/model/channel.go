package model

import (
	"time"
)

// ChannelRequirement defines how membership in a channel is enforced
type ChannelRequirement string

const (
	// ChannelMandatory requires the user to be a member before using
	// search features
	ChannelMandatory ChannelRequirement = "mandatory"
	// ChannelRequest only asks the user to send a join request
	ChannelRequest ChannelRequirement = "request"
)

// Channel represents an admin-managed broadcast channel users may be
// required to join
type Channel struct {
	ID          uint               `gorm:"primaryKey"`
	ChannelID   string             `gorm:"size:100;not null"`
	Name        string             `gorm:"size:255"`
	JoinLink    string             `gorm:"size:500"`
	Requirement ChannelRequirement `gorm:"size:50;default:mandatory"`
	CreatedAt   time.Time
}

// TableName returns the table name for Channel
func (Channel) TableName() string {
	return "channels"
}
