package model

import (
	"time"
)

// MediaKind defines the kind of media handle an episode carries
type MediaKind string

const (
	MediaVideo MediaKind = "video"
	MediaPhoto MediaKind = "photo"
)

// Episode represents one numbered media unit of a catalog entry.
// The (AnimeID, Number) pair is unique; re-adding the same number
// replaces the media handle.
type Episode struct {
	ID        uint      `gorm:"primaryKey"`
	AnimeID   uint      `gorm:"uniqueIndex:idx_anime_episode;not null"`
	Number    int       `gorm:"uniqueIndex:idx_anime_episode;not null"`
	FileID    string    `gorm:"size:500;not null"`
	Kind      MediaKind `gorm:"size:20;default:video"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for Episode
func (Episode) TableName() string {
	return "anime_episodes"
}
