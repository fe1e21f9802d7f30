package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/user/anime-bot-go/internal/model"
)

// ErrInsufficientBalance is returned by PurchaseVIP when the user's
// balance does not cover the price. No debit happens in that case.
var ErrInsufficientBalance = errors.New("insufficient balance")

// ErrUserNotFound is returned by balance operations targeting an
// unknown user
var ErrUserNotFound = errors.New("user not found")

// Store defines the interface for data persistence operations.
// Lookups return (nil, nil) when the record does not exist.
type Store interface {
	// User operations
	EnsureUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, userID int64) (*model.User, error)
	CreditBalance(ctx context.Context, userID int64, amount decimal.Decimal) error
	ListUserIDs(ctx context.Context) ([]int64, error)
	CountUsers(ctx context.Context) (int64, error)
	CountVIPUsers(ctx context.Context) (int64, error)

	// Catalog operations
	CreateAnime(ctx context.Context, anime *model.Anime) error
	GetAnime(ctx context.Context, id uint) (*model.Anime, error)
	SearchAnime(ctx context.Context, query string, limit int) ([]*model.Anime, error)
	RecentAnime(ctx context.Context, limit int) ([]*model.Anime, error)
	TopAnime(ctx context.Context, limit int) ([]*model.Anime, error)
	ListAnime(ctx context.Context, limit, offset int) ([]*model.Anime, error)
	CountAnime(ctx context.Context) (int64, error)
	IncrementSearchCount(ctx context.Context, id uint) error

	// Episode operations
	UpsertEpisode(ctx context.Context, episode *model.Episode) error
	GetEpisode(ctx context.Context, animeID uint, number int) (*model.Episode, error)
	ListEpisodes(ctx context.Context, animeID uint) ([]*model.Episode, error)
	CountEpisodes(ctx context.Context, animeID uint) (int64, error)
	CountAllEpisodes(ctx context.Context) (int64, error)
	DeleteEpisode(ctx context.Context, animeID uint, number int) error

	// Channel operations
	CreateChannel(ctx context.Context, channel *model.Channel) error
	ListChannels(ctx context.Context) ([]*model.Channel, error)
	DeleteChannel(ctx context.Context, id uint) error

	// VIP operations
	PurchaseVIP(ctx context.Context, userID int64, days int, price decimal.Decimal) (*model.VIPGrant, error)
	GetGrant(ctx context.Context, userID int64) (*model.VIPGrant, error)

	// Health check
	Ping(ctx context.Context) error
	Close() error
}
