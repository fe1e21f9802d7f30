package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/user/anime-bot-go/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}

	// a second connection to :memory: would see an empty database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get underlying db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	s, err := New(db)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedUser(t *testing.T, s *GormStore, userID int64, balance int64) {
	t.Helper()
	err := s.EnsureUser(context.Background(), &model.User{
		UserID:    userID,
		FirstName: "Tester",
		Balance:   decimal.NewFromInt(balance),
	})
	if err != nil {
		t.Fatalf("failed to seed user %d: %v", userID, err)
	}
}

func TestEnsureUser_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, 42, 1000)
	err := s.EnsureUser(ctx, &model.User{UserID: 42, FirstName: "Other Name"})
	if err != nil {
		t.Fatalf("second EnsureUser: %v", err)
	}

	user, err := s.GetUser(ctx, 42)
	if err != nil || user == nil {
		t.Fatalf("GetUser: user=%v err=%v", user, err)
	}
	if user.FirstName != "Tester" {
		t.Errorf("name = %q, repeat registration must not overwrite", user.FirstName)
	}
	if user.Role != model.RoleOrdinary {
		t.Errorf("role = %q, want %q", user.Role, model.RoleOrdinary)
	}

	count, err := s.CountUsers(ctx)
	if err != nil || count != 1 {
		t.Errorf("CountUsers = %d (err %v), want 1", count, err)
	}
}

func TestGetUser_Unknown(t *testing.T) {
	s := newTestStore(t)

	user, err := s.GetUser(context.Background(), 999)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if user != nil {
		t.Errorf("GetUser(unknown) = %+v, want nil", user)
	}
}

func TestCreditBalance(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, 1, 100)
	if err := s.CreditBalance(ctx, 1, decimal.NewFromInt(250)); err != nil {
		t.Fatalf("CreditBalance: %v", err)
	}

	user, _ := s.GetUser(ctx, 1)
	if !user.Balance.Equal(decimal.NewFromInt(350)) {
		t.Errorf("balance = %s, want 350", user.Balance)
	}

	if err := s.CreditBalance(ctx, 999, decimal.NewFromInt(10)); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("crediting unknown user: err = %v, want ErrUserNotFound", err)
	}
}

func TestSearchAnime(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entries := []*model.Anime{
		{Title: "Naruto", Genres: "Action, Adventure", SearchCount: 5},
		{Title: "Naruto Shippuden", Genres: "Action", SearchCount: 50},
		{Title: "One Piece", Genres: "Adventure, Comedy", SearchCount: 10},
		{Title: "Death Note", Genres: "Thriller", SearchCount: 100},
	}
	for _, a := range entries {
		if err := s.CreateAnime(ctx, a); err != nil {
			t.Fatalf("CreateAnime(%s): %v", a.Title, err)
		}
	}

	t.Run("case-insensitive title match ranked by popularity", func(t *testing.T) {
		got, err := s.SearchAnime(ctx, "NARUTO", 10)
		if err != nil {
			t.Fatalf("SearchAnime: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("got %d results, want 2", len(got))
		}
		if got[0].Title != "Naruto Shippuden" || got[1].Title != "Naruto" {
			t.Errorf("order = [%s, %s], want most searched first", got[0].Title, got[1].Title)
		}
	})

	t.Run("genre match", func(t *testing.T) {
		got, err := s.SearchAnime(ctx, "adventure", 10)
		if err != nil {
			t.Fatalf("SearchAnime: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("got %d results, want 2 (genre hits)", len(got))
		}
	})

	t.Run("limit applies", func(t *testing.T) {
		got, err := s.SearchAnime(ctx, "a", 2)
		if err != nil {
			t.Fatalf("SearchAnime: %v", err)
		}
		if len(got) > 2 {
			t.Errorf("got %d results, want at most 2", len(got))
		}
	})

	t.Run("no match", func(t *testing.T) {
		got, err := s.SearchAnime(ctx, "bleach", 10)
		if err != nil {
			t.Fatalf("SearchAnime: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("got %d results, want none", len(got))
		}
	})
}

func TestTopAnime_OrderedBySearchCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, a := range []*model.Anime{
		{Title: "Low", SearchCount: 1},
		{Title: "High", SearchCount: 30},
		{Title: "Mid", SearchCount: 10},
	} {
		if err := s.CreateAnime(ctx, a); err != nil {
			t.Fatalf("CreateAnime: %v", err)
		}
	}

	got, err := s.TopAnime(ctx, 2)
	if err != nil {
		t.Fatalf("TopAnime: %v", err)
	}
	if len(got) != 2 || got[0].Title != "High" || got[1].Title != "Mid" {
		t.Errorf("TopAnime = %v, want [High, Mid]", got)
	}
}

func TestIncrementSearchCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	anime := &model.Anime{Title: "Bleach"}
	if err := s.CreateAnime(ctx, anime); err != nil {
		t.Fatalf("CreateAnime: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := s.IncrementSearchCount(ctx, anime.ID); err != nil {
			t.Fatalf("IncrementSearchCount: %v", err)
		}
	}

	got, _ := s.GetAnime(ctx, anime.ID)
	if got.SearchCount != 3 {
		t.Errorf("search_count = %d, want 3", got.SearchCount)
	}
}

func TestUpsertEpisode_ReplacesHandle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	anime := &model.Anime{Title: "Naruto"}
	if err := s.CreateAnime(ctx, anime); err != nil {
		t.Fatalf("CreateAnime: %v", err)
	}

	first := &model.Episode{AnimeID: anime.ID, Number: 1, FileID: "old-handle"}
	if err := s.UpsertEpisode(ctx, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	replacement := &model.Episode{AnimeID: anime.ID, Number: 1, FileID: "new-handle"}
	if err := s.UpsertEpisode(ctx, replacement); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	count, err := s.CountEpisodes(ctx, anime.ID)
	if err != nil || count != 1 {
		t.Fatalf("CountEpisodes = %d (err %v), want 1", count, err)
	}

	got, err := s.GetEpisode(ctx, anime.ID, 1)
	if err != nil || got == nil {
		t.Fatalf("GetEpisode: ep=%v err=%v", got, err)
	}
	if got.FileID != "new-handle" {
		t.Errorf("file_id = %q, want the replacement handle", got.FileID)
	}
	if got.Kind != model.MediaVideo {
		t.Errorf("kind = %q, want the video default", got.Kind)
	}
}

func TestEpisodes_ListAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	anime := &model.Anime{Title: "One Piece"}
	if err := s.CreateAnime(ctx, anime); err != nil {
		t.Fatalf("CreateAnime: %v", err)
	}

	for n := 3; n >= 1; n-- {
		ep := &model.Episode{AnimeID: anime.ID, Number: n, FileID: "f"}
		if err := s.UpsertEpisode(ctx, ep); err != nil {
			t.Fatalf("UpsertEpisode(%d): %v", n, err)
		}
	}

	eps, err := s.ListEpisodes(ctx, anime.ID)
	if err != nil {
		t.Fatalf("ListEpisodes: %v", err)
	}
	if len(eps) != 3 || eps[0].Number != 1 || eps[2].Number != 3 {
		t.Fatalf("ListEpisodes returned %d entries, want 3 ordered by number", len(eps))
	}

	if err := s.DeleteEpisode(ctx, anime.ID, 2); err != nil {
		t.Fatalf("DeleteEpisode: %v", err)
	}
	if got, _ := s.GetEpisode(ctx, anime.ID, 2); got != nil {
		t.Errorf("episode 2 still present after delete: %+v", got)
	}
	if count, _ := s.CountEpisodes(ctx, anime.ID); count != 2 {
		t.Errorf("CountEpisodes = %d, want 2", count)
	}
}

func TestPurchaseVIP_ExactBalance(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, 7, 25000)
	grant, err := s.PurchaseVIP(ctx, 7, 30, decimal.NewFromInt(25000))
	if err != nil {
		t.Fatalf("PurchaseVIP: %v", err)
	}
	if grant.Days != 30 {
		t.Errorf("grant days = %d, want 30", grant.Days)
	}

	user, _ := s.GetUser(ctx, 7)
	if !user.Balance.Equal(decimal.Zero) {
		t.Errorf("balance = %s, want 0", user.Balance)
	}
	if user.Role != model.RoleVIP {
		t.Errorf("role = %q, want %q", user.Role, model.RoleVIP)
	}
	wantExpire := time.Now().AddDate(0, 0, 30)
	gotExpire := time.Time(user.VIPExpire)
	if gotExpire.Year() != wantExpire.Year() || gotExpire.YearDay() != wantExpire.YearDay() {
		t.Errorf("vip_expire = %s, want %s", gotExpire.Format("2006-01-02"), wantExpire.Format("2006-01-02"))
	}

	vips, _ := s.CountVIPUsers(ctx)
	if vips != 1 {
		t.Errorf("CountVIPUsers = %d, want 1", vips)
	}
}

func TestPurchaseVIP_InsufficientBalance(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, 7, 24999)
	_, err := s.PurchaseVIP(ctx, 7, 30, decimal.NewFromInt(25000))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}

	user, _ := s.GetUser(ctx, 7)
	if !user.Balance.Equal(decimal.NewFromInt(24999)) {
		t.Errorf("balance = %s, the failed purchase must not debit", user.Balance)
	}
	if user.Role != model.RoleOrdinary {
		t.Errorf("role = %q, the failed purchase must not promote", user.Role)
	}
	if grant, _ := s.GetGrant(ctx, 7); grant != nil {
		t.Errorf("grant = %+v, the failed purchase must not record one", grant)
	}
}

func TestPurchaseVIP_UnknownUser(t *testing.T) {
	s := newTestStore(t)

	_, err := s.PurchaseVIP(context.Background(), 404, 30, decimal.NewFromInt(25000))
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
}

func TestPurchaseVIP_RepeatAccumulatesDays(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, 7, 100000)

	if _, err := s.PurchaseVIP(ctx, 7, 30, decimal.NewFromInt(25000)); err != nil {
		t.Fatalf("first purchase: %v", err)
	}
	grant, err := s.PurchaseVIP(ctx, 7, 60, decimal.NewFromInt(50000))
	if err != nil {
		t.Fatalf("second purchase: %v", err)
	}

	if grant.Days != 90 {
		t.Errorf("grant days = %d, repeat purchases must accumulate to 90", grant.Days)
	}

	wantExpire := time.Now().AddDate(0, 0, 60)
	gotExpire := time.Time(grant.ExpireDate)
	if gotExpire.Year() != wantExpire.Year() || gotExpire.YearDay() != wantExpire.YearDay() {
		t.Errorf("expire = %s, want the second purchase's date %s",
			gotExpire.Format("2006-01-02"), wantExpire.Format("2006-01-02"))
	}

	user, _ := s.GetUser(ctx, 7)
	if !user.Balance.Equal(decimal.NewFromInt(25000)) {
		t.Errorf("balance = %s, want 25000 after both debits", user.Balance)
	}
}

func TestChannelCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ch := &model.Channel{ChannelID: "@news", Name: "News", JoinLink: "https://t.me/news"}
	if err := s.CreateChannel(ctx, ch); err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}
	if ch.Requirement != model.ChannelMandatory {
		t.Errorf("requirement = %q, want the mandatory default", ch.Requirement)
	}

	channels, err := s.ListChannels(ctx)
	if err != nil || len(channels) != 1 {
		t.Fatalf("ListChannels = %d entries (err %v), want 1", len(channels), err)
	}

	if err := s.DeleteChannel(ctx, ch.ID); err != nil {
		t.Fatalf("DeleteChannel: %v", err)
	}
	channels, _ = s.ListChannels(ctx)
	if len(channels) != 0 {
		t.Errorf("ListChannels = %d entries after delete, want 0", len(channels))
	}
}

func TestListUserIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []int64{10, 20, 30} {
		seedUser(t, s, id, 0)
	}

	ids, err := s.ListUserIDs(ctx)
	if err != nil {
		t.Fatalf("ListUserIDs: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("got %d ids, want 3", len(ids))
	}
}
