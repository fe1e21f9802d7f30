package model

import (
	"time"
)

// Anime represents one catalog entry with descriptive metadata.
// All descriptive fields are stored as free text, matching what the
// intake dialogue collects.
type Anime struct {
	ID            uint      `gorm:"primaryKey"`
	Title         string    `gorm:"size:500;not null"`
	ThumbnailID   string    `gorm:"size:500"`
	ThumbKind     MediaKind `gorm:"size:20;default:photo"`
	EpisodesCount string    `gorm:"size:100"`
	Country       string    `gorm:"size:100"`
	Language      string    `gorm:"size:100"`
	Year          string    `gorm:"size:100"`
	Genres        string    `gorm:"type:text"`
	TypeLabel     string    `gorm:"size:100"`
	SearchCount   int       `gorm:"default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName returns the table name for Anime
func (Anime) TableName() string {
	return "anime"
}
