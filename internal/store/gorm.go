package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/user/anime-bot-go/internal/config"
	"github.com/user/anime-bot-go/internal/model"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// GormStore implements Store on top of a gorm database handle
type GormStore struct {
	db *gorm.DB
}

// NewPostgres opens a pooled PostgreSQL connection and migrates the schema
func NewPostgres(cfg *config.DBConfig) (*GormStore, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxConns)
	sqlDB.SetMaxIdleConns(cfg.MaxConns / 2)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return New(db)
}

// New wraps an existing gorm handle and migrates the schema. Tests use
// this with an in-memory sqlite handle.
func New(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Anime{},
		&model.Episode{},
		&model.Channel{},
		&model.VIPGrant{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &GormStore{db: db}, nil
}

// EnsureUser inserts the user if their external identity is not yet
// known. Calling it again for the same identity is a no-op.
func (s *GormStore) EnsureUser(ctx context.Context, user *model.User) error {
	if user.Role == "" {
		user.Role = model.RoleOrdinary
	}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(user)
	if result.Error != nil {
		return fmt.Errorf("failed to ensure user: %w", result.Error)
	}
	return nil
}

// GetUser retrieves a user by their external Telegram ID
func (s *GormStore) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	var user model.User
	result := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", result.Error)
	}
	return &user, nil
}

// CreditBalance adds amount to the user's balance
func (s *GormStore) CreditBalance(ctx context.Context, userID int64, amount decimal.Decimal) error {
	result := s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("user_id = ?", userID).
		Update("balance", gorm.Expr("balance + ?", amount))
	if result.Error != nil {
		return fmt.Errorf("failed to credit balance: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ListUserIDs returns the external IDs of all users, for broadcast fan-out
func (s *GormStore) ListUserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	result := s.db.WithContext(ctx).
		Model(&model.User{}).
		Order("created_at").
		Pluck("user_id", &ids)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list user ids: %w", result.Error)
	}
	return ids, nil
}

// CountUsers returns the total number of users
func (s *GormStore) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	result := s.db.WithContext(ctx).Model(&model.User{}).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count users: %w", result.Error)
	}
	return count, nil
}

// CountVIPUsers returns the number of users holding the VIP role
func (s *GormStore) CountVIPUsers(ctx context.Context) (int64, error) {
	var count int64
	result := s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("role = ?", model.RoleVIP).
		Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count vip users: %w", result.Error)
	}
	return count, nil
}

// CreateAnime inserts a new catalog entry and populates its ID
func (s *GormStore) CreateAnime(ctx context.Context, anime *model.Anime) error {
	if err := s.db.WithContext(ctx).Create(anime).Error; err != nil {
		return fmt.Errorf("failed to create anime: %w", err)
	}
	return nil
}

// GetAnime retrieves a catalog entry by ID
func (s *GormStore) GetAnime(ctx context.Context, id uint) (*model.Anime, error) {
	var anime model.Anime
	result := s.db.WithContext(ctx).First(&anime, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get anime: %w", result.Error)
	}
	return &anime, nil
}

// SearchAnime finds entries whose title or genres contain the query,
// case-insensitively, ranked by descending search count. A limit of
// zero or less falls back to 10.
func (s *GormStore) SearchAnime(ctx context.Context, query string, limit int) ([]*model.Anime, error) {
	if limit <= 0 {
		limit = 10
	}
	pattern := "%" + strings.ToLower(query) + "%"
	var results []*model.Anime
	result := s.db.WithContext(ctx).
		Where("LOWER(title) LIKE ? OR LOWER(genres) LIKE ?", pattern, pattern).
		Order("search_count DESC").
		Limit(limit).
		Find(&results)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to search anime: %w", result.Error)
	}
	return results, nil
}

// RecentAnime returns the most recently added entries
func (s *GormStore) RecentAnime(ctx context.Context, limit int) ([]*model.Anime, error) {
	if limit <= 0 {
		limit = 10
	}
	var results []*model.Anime
	result := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&results)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get recent anime: %w", result.Error)
	}
	return results, nil
}

// TopAnime returns the most searched entries
func (s *GormStore) TopAnime(ctx context.Context, limit int) ([]*model.Anime, error) {
	if limit <= 0 {
		limit = 10
	}
	var results []*model.Anime
	result := s.db.WithContext(ctx).
		Order("search_count DESC").
		Limit(limit).
		Find(&results)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get top anime: %w", result.Error)
	}
	return results, nil
}

// ListAnime returns entries with pagination, newest first
func (s *GormStore) ListAnime(ctx context.Context, limit, offset int) ([]*model.Anime, error) {
	var results []*model.Anime
	result := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&results)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list anime: %w", result.Error)
	}
	return results, nil
}

// CountAnime returns the total number of catalog entries
func (s *GormStore) CountAnime(ctx context.Context) (int64, error) {
	var count int64
	result := s.db.WithContext(ctx).Model(&model.Anime{}).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count anime: %w", result.Error)
	}
	return count, nil
}

// IncrementSearchCount bumps the popularity counter of an entry
func (s *GormStore) IncrementSearchCount(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).
		Model(&model.Anime{}).
		Where("id = ?", id).
		Update("search_count", gorm.Expr("search_count + 1"))
	if result.Error != nil {
		return fmt.Errorf("failed to increment search count: %w", result.Error)
	}
	return nil
}

// UpsertEpisode inserts an episode, replacing the media handle when the
// (anime, number) pair already exists
func (s *GormStore) UpsertEpisode(ctx context.Context, episode *model.Episode) error {
	if episode.Kind == "" {
		episode.Kind = model.MediaVideo
	}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "anime_id"}, {Name: "number"}},
		DoUpdates: clause.AssignmentColumns([]string{"file_id", "kind", "updated_at"}),
	}).Create(episode)
	if result.Error != nil {
		return fmt.Errorf("failed to upsert episode: %w", result.Error)
	}
	return nil
}

// GetEpisode retrieves one episode by its (anime, number) pair
func (s *GormStore) GetEpisode(ctx context.Context, animeID uint, number int) (*model.Episode, error) {
	var episode model.Episode
	result := s.db.WithContext(ctx).
		Where("anime_id = ? AND number = ?", animeID, number).
		First(&episode)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get episode: %w", result.Error)
	}
	return &episode, nil
}

// ListEpisodes returns all episodes of an entry ordered by number
func (s *GormStore) ListEpisodes(ctx context.Context, animeID uint) ([]*model.Episode, error) {
	var episodes []*model.Episode
	result := s.db.WithContext(ctx).
		Where("anime_id = ?", animeID).
		Order("number").
		Find(&episodes)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list episodes: %w", result.Error)
	}
	return episodes, nil
}

// CountEpisodes returns the number of episodes stored for an entry
func (s *GormStore) CountEpisodes(ctx context.Context, animeID uint) (int64, error) {
	var count int64
	result := s.db.WithContext(ctx).
		Model(&model.Episode{}).
		Where("anime_id = ?", animeID).
		Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count episodes: %w", result.Error)
	}
	return count, nil
}

// CountAllEpisodes returns the number of episodes across the catalog
func (s *GormStore) CountAllEpisodes(ctx context.Context) (int64, error) {
	var count int64
	result := s.db.WithContext(ctx).Model(&model.Episode{}).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count all episodes: %w", result.Error)
	}
	return count, nil
}

// DeleteEpisode removes one episode by its (anime, number) pair
func (s *GormStore) DeleteEpisode(ctx context.Context, animeID uint, number int) error {
	result := s.db.WithContext(ctx).
		Where("anime_id = ? AND number = ?", animeID, number).
		Delete(&model.Episode{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete episode: %w", result.Error)
	}
	return nil
}

// CreateChannel stores a new required channel
func (s *GormStore) CreateChannel(ctx context.Context, channel *model.Channel) error {
	if channel.Requirement == "" {
		channel.Requirement = model.ChannelMandatory
	}
	if err := s.db.WithContext(ctx).Create(channel).Error; err != nil {
		return fmt.Errorf("failed to create channel: %w", err)
	}
	return nil
}

// ListChannels returns all configured channels
func (s *GormStore) ListChannels(ctx context.Context) ([]*model.Channel, error) {
	var channels []*model.Channel
	result := s.db.WithContext(ctx).Order("id").Find(&channels)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list channels: %w", result.Error)
	}
	return channels, nil
}

// DeleteChannel removes a channel by its row ID
func (s *GormStore) DeleteChannel(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&model.Channel{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete channel: %w", result.Error)
	}
	return nil
}

// PurchaseVIP debits the price and records the grant in one
// transaction. On repeat purchase the granted days accumulate while
// the expiry date is overwritten with the newly computed one. The
// debit only happens when the balance covers the price; otherwise
// ErrInsufficientBalance is returned and nothing changes.
func (s *GormStore) PurchaseVIP(ctx context.Context, userID int64, days int, price decimal.Decimal) (*model.VIPGrant, error) {
	expire := datatypes.Date(time.Now().AddDate(0, 0, days))
	var grant model.VIPGrant

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		debit := tx.Model(&model.User{}).
			Where("user_id = ? AND balance >= ?", userID, price).
			Update("balance", gorm.Expr("balance - ?", price))
		if debit.Error != nil {
			return fmt.Errorf("failed to debit balance: %w", debit.Error)
		}
		if debit.RowsAffected == 0 {
			var exists int64
			if err := tx.Model(&model.User{}).Where("user_id = ?", userID).Count(&exists).Error; err != nil {
				return fmt.Errorf("failed to check user: %w", err)
			}
			if exists == 0 {
				return ErrUserNotFound
			}
			return ErrInsufficientBalance
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"days":        gorm.Expr("vip_grants.days + excluded.days"),
				"expire_date": gorm.Expr("excluded.expire_date"),
				"updated_at":  time.Now(),
			}),
		}).Create(&model.VIPGrant{UserID: userID, Days: days, ExpireDate: expire}).Error; err != nil {
			return fmt.Errorf("failed to upsert grant: %w", err)
		}

		if err := tx.Model(&model.User{}).
			Where("user_id = ?", userID).
			Updates(map[string]interface{}{"role": model.RoleVIP, "vip_expire": expire}).Error; err != nil {
			return fmt.Errorf("failed to update role: %w", err)
		}

		return tx.Where("user_id = ?", userID).First(&grant).Error
	})
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

// GetGrant retrieves the grant record for a user
func (s *GormStore) GetGrant(ctx context.Context, userID int64) (*model.VIPGrant, error) {
	var grant model.VIPGrant
	result := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&grant)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get grant: %w", result.Error)
	}
	return &grant, nil
}

// Ping checks database connectivity
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying db: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection pool
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying db: %w", err)
	}
	return sqlDB.Close()
}
