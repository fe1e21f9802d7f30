package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"github.com/user/anime-bot-go/internal/config"
	"github.com/user/anime-bot-go/internal/model"
	"github.com/user/anime-bot-go/internal/server"
	"github.com/user/anime-bot-go/internal/store"
	"golang.org/x/time/rate"
)

// searchLimit bounds the number of entries a search reply lists
const searchLimit = 10

// pendingKind marks what the user's next message is expected to carry
type pendingKind int

const (
	pendingSearchName pendingKind = iota
	pendingSearchGenre
	pendingSearchCode
	pendingBroadcast
	pendingEpisodeRef
	pendingEpisodeMedia
	pendingAddChannel
)

type pending struct {
	kind    pendingKind
	animeID uint
	number  int
}

// Handler routes inbound Telegram updates to their handlers
type Handler struct {
	store     store.Store
	telegram  *Client
	intake    *Intake
	botCfg    *config.BotConfig
	prices    PriceTable
	limiter   *rate.Limiter
	startTime time.Time

	mu       sync.Mutex
	pendings map[int64]pending
}

// NewHandler creates the update router. All collaborators are injected;
// the handler holds no globals.
func NewHandler(st store.Store, telegram *Client, intake *Intake, botCfg *config.BotConfig) *Handler {
	return &Handler{
		store:     st,
		telegram:  telegram,
		intake:    intake,
		botCfg:    botCfg,
		prices:    DefaultPrices(),
		limiter:   rate.NewLimiter(rate.Limit(25), 5),
		startTime: time.Now(),
		pendings:  make(map[int64]pending),
	}
}

// HandleUpdate processes one incoming Telegram update
func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		h.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		h.handleMessage(ctx, update.Message)
	}
}

func (h *Handler) isAdmin(userID int64) bool {
	return h.botCfg.IsAdmin(userID)
}

func (h *Handler) setPending(userID int64, p pending) {
	h.mu.Lock()
	h.pendings[userID] = p
	h.mu.Unlock()
}

func (h *Handler) takePending(userID int64) (pending, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.pendings[userID]
	if ok {
		delete(h.pendings, userID)
	}
	return p, ok
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	userID := msg.From.ID

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			h.handleStart(ctx, msg)
		case "cancel":
			h.intake.Cancel(userID)
			h.takePending(userID)
			h.sendMainMenu(ctx, chatID, userID, "Cancelled.")
		default:
			h.sendError(chatID, "Unknown command. Use the menu below.")
		}
		return
	}

	// An active intake dialogue consumes every message from its admin
	if h.isAdmin(userID) && h.intake.Active(userID) {
		h.advanceIntake(ctx, msg)
		return
	}

	if p, ok := h.takePending(userID); ok {
		h.handlePending(ctx, msg, p)
		return
	}

	h.handleMenuLabel(ctx, msg)
}

func (h *Handler) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	from := msg.From

	user := &model.User{
		UserID:    from.ID,
		Username:  from.UserName,
		FirstName: from.FirstName,
		LastName:  from.LastName,
	}
	if err := h.store.EnsureUser(ctx, user); err != nil {
		log.Error().Err(err).Int64("userID", from.ID).Msg("Failed to ensure user")
		h.sendError(chatID, "Something went wrong. Please try again.")
		return
	}

	h.sendMainMenu(ctx, chatID, from.ID, "👋 Welcome to the anime bot!")
}

func (h *Handler) sendMainMenu(ctx context.Context, chatID, userID int64, text string) {
	role := model.RoleOrdinary
	if user, err := h.store.GetUser(ctx, userID); err == nil && user != nil {
		role = user.Role
	}
	menu := MainMenu(role, h.isAdmin(userID))
	if err := h.telegram.SendWithKeyboard(chatID, text, menu); err != nil {
		log.Error().Err(err).Int64("chatID", chatID).Msg("Failed to send main menu")
	}
}

func (h *Handler) handleMenuLabel(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	userID := msg.From.ID

	switch msg.Text {
	case btnSearch:
		h.handleSearchMenu(ctx, chatID, userID)
	case btnVIP, btnVIPActive:
		h.handleVIPSection(ctx, chatID, userID)
	case btnAccount:
		h.handleAccount(ctx, chatID, userID)
	case btnAddFunds:
		h.send(chatID, "➕ To top up your balance, contact the administrator.")
	case btnGuide:
		h.send(chatID, "📚 Pick 🔎 Search Anime and choose a search type. Open an entry to watch its episodes, and use the navigation buttons to move between them.")
	case btnAds:
		h.send(chatID, "💵 For advertising and sponsorship, contact the administrator.")
	case btnBack:
		h.sendMainMenu(ctx, chatID, userID, "Main menu")
	case btnManage:
		h.requireAdmin(userID, chatID, func() {
			if err := h.telegram.SendWithKeyboard(chatID, "👮 Admin panel", AdminMenu()); err != nil {
				log.Error().Err(err).Int64("chatID", chatID).Msg("Failed to send admin menu")
			}
		})
	case btnStats:
		h.requireAdmin(userID, chatID, func() { h.handleStats(ctx, chatID) })
	case btnBroadcast:
		h.requireAdmin(userID, chatID, func() {
			h.setPending(userID, pending{kind: pendingBroadcast})
			h.send(chatID, "✉ Send the message to broadcast to all users:")
		})
	case btnAnimeAdmin:
		h.requireAdmin(userID, chatID, func() {
			if err := h.telegram.SendWithKeyboard(chatID, "🎬 Catalog management:", AnimeAdminMenu()); err != nil {
				log.Error().Err(err).Int64("chatID", chatID).Msg("Failed to send anime admin menu")
			}
		})
	case btnChannels:
		h.requireAdmin(userID, chatID, func() { h.handleChannels(ctx, chatID, userID) })
	default:
		h.send(chatID, "Use the menu below, or /start to reset it.")
	}
}

// requireAdmin runs fn only for allow-listed callers; everyone else
// gets a rejection and no side effect happens
func (h *Handler) requireAdmin(userID, chatID int64, fn func()) {
	if !h.isAdmin(userID) {
		h.sendError(chatID, "Permission denied.")
		return
	}
	fn()
}

func (h *Handler) handleSearchMenu(ctx context.Context, chatID, userID int64) {
	if !h.checkMembership(ctx, chatID, userID) {
		return
	}
	if err := h.telegram.SendWithKeyboard(chatID, "<b>🔍 Choose a search type:</b>", SearchMenu(h.botCfg.WebsiteURL)); err != nil {
		log.Error().Err(err).Int64("chatID", chatID).Msg("Failed to send search menu")
	}
}

// checkMembership enforces the mandatory-channel gate. VIP users are
// exempt. Returns false after sending the join keyboard.
func (h *Handler) checkMembership(ctx context.Context, chatID, userID int64) bool {
	channels, err := h.store.ListChannels(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list channels")
		return true
	}
	if len(channels) == 0 {
		return true
	}

	if user, err := h.store.GetUser(ctx, userID); err == nil && user != nil && user.IsVIP() {
		return true
	}

	var missing []*model.Channel
	for _, ch := range channels {
		if ch.Requirement != model.ChannelMandatory {
			continue
		}
		member, err := h.telegram.IsChatMember(ch.ChannelID, userID)
		if err != nil {
			log.Warn().Err(err).Str("channel", ch.ChannelID).Msg("Membership check failed")
			continue
		}
		if !member {
			missing = append(missing, ch)
		}
	}
	if len(missing) == 0 {
		return true
	}

	text := "<b>Join the channels below to use the bot ❗️</b>"
	if err := h.telegram.SendWithKeyboard(chatID, text, JoinChannelsKeyboard(missing)); err != nil {
		log.Error().Err(err).Int64("chatID", chatID).Msg("Failed to send join keyboard")
	}
	return false
}

func (h *Handler) handleVIPSection(ctx context.Context, chatID, userID int64) {
	user, err := h.store.GetUser(ctx, userID)
	if err != nil {
		log.Error().Err(err).Int64("userID", userID).Msg("Failed to get user")
		h.sendError(chatID, "Something went wrong. Please try again.")
		return
	}
	if user == nil {
		h.sendError(chatID, "User not found. Send /start first.")
		return
	}

	if user.IsVIP() {
		expire := time.Time(user.VIPExpire).Format("02.01.2006")
		h.send(chatID, fmt.Sprintf("⭐ You have VIP status until %s!", expire))
		return
	}

	text := "💎 <b>Buy VIP</b>\n\n" +
		"What does VIP include?\n" +
		"• A one-time link to the VIP channel\n" +
		"• No advertising\n" +
		"• No mandatory channel subscriptions"
	if err := h.telegram.SendWithKeyboard(chatID, text, VIPMenu(h.prices)); err != nil {
		log.Error().Err(err).Int64("chatID", chatID).Msg("Failed to send vip menu")
	}
}

func (h *Handler) handleAccount(ctx context.Context, chatID, userID int64) {
	user, err := h.store.GetUser(ctx, userID)
	if err != nil {
		log.Error().Err(err).Int64("userID", userID).Msg("Failed to get user")
		h.sendError(chatID, "Something went wrong. Please try again.")
		return
	}
	if user == nil {
		h.sendError(chatID, "User not found. Send /start first.")
		return
	}

	text := fmt.Sprintf("👤 ID: <code>%d</code>\n💰 Balance: %s UZS\n📊 Status: %s",
		user.UserID, user.Balance.StringFixed(2), user.Role)
	if user.IsVIP() {
		text += "\n⭐ VIP active until " + time.Time(user.VIPExpire).Format("02.01.2006")
	}
	h.send(chatID, text)
}

func (h *Handler) handleStats(ctx context.Context, chatID int64) {
	users, err := h.store.CountUsers(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to count users")
		h.sendError(chatID, "Failed to collect statistics.")
		return
	}
	entries, _ := h.store.CountAnime(ctx)
	episodes, _ := h.store.CountAllEpisodes(ctx)
	vips, _ := h.store.CountVIPUsers(ctx)
	server.UpdateCatalogSize(entries)

	uptime := time.Since(h.startTime).Round(time.Second)
	text := fmt.Sprintf("📊 Bot statistics:\n\n👥 Users: %d\n🎬 Anime: %d\n📀 Episodes: %d\n⭐ VIP users: %d\n⏱ Uptime: %s",
		users, entries, episodes, vips, uptime)
	h.send(chatID, text)
}

func (h *Handler) handleChannels(ctx context.Context, chatID, userID int64) {
	channels, err := h.store.ListChannels(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list channels")
		h.sendError(chatID, "Failed to list channels.")
		return
	}

	var b strings.Builder
	b.WriteString("📢 <b>Required channels:</b>\n\n")
	if len(channels) == 0 {
		b.WriteString("none\n")
	}
	for _, ch := range channels {
		fmt.Fprintf(&b, "• %s (%s) - %s\n", ch.Name, ch.ChannelID, ch.Requirement)
	}
	b.WriteString("\nTo add one, send: <code>&lt;channel_id&gt; &lt;join_link&gt; &lt;name&gt;</code>")

	h.setPending(userID, pending{kind: pendingAddChannel})
	h.send(chatID, b.String())
}

func (h *Handler) handlePending(ctx context.Context, msg *tgbotapi.Message, p pending) {
	chatID := msg.Chat.ID
	userID := msg.From.ID
	text := strings.TrimSpace(msg.Text)

	switch p.kind {
	case pendingSearchName, pendingSearchGenre:
		h.runSearch(ctx, chatID, text)
	case pendingSearchCode:
		id, err := strconv.ParseUint(text, 10, 32)
		if err != nil {
			h.sendError(chatID, "Invalid code. Send a numeric anime code.")
			return
		}
		h.showAnime(ctx, chatID, uint(id))
	case pendingBroadcast:
		h.requireAdmin(userID, chatID, func() { h.runBroadcast(ctx, chatID, text) })
	case pendingEpisodeRef:
		h.requireAdmin(userID, chatID, func() {
			fields := strings.Fields(text)
			if len(fields) != 2 {
				h.sendError(chatID, "Send: <anime_id> <episode_number>")
				return
			}
			id, err1 := strconv.ParseUint(fields[0], 10, 32)
			n, err2 := strconv.Atoi(fields[1])
			if err1 != nil || err2 != nil || n < 1 {
				h.sendError(chatID, "Send: <anime_id> <episode_number>")
				return
			}
			anime, err := h.store.GetAnime(ctx, uint(id))
			if err != nil || anime == nil {
				h.sendError(chatID, "Anime not found.")
				return
			}
			h.setPending(userID, pending{kind: pendingEpisodeMedia, animeID: uint(id), number: n})
			h.send(chatID, fmt.Sprintf("📥 Now send the video for %s, episode %d:", anime.Title, n))
		})
	case pendingEpisodeMedia:
		h.requireAdmin(userID, chatID, func() { h.appendEpisode(ctx, msg, p) })
	case pendingAddChannel:
		h.requireAdmin(userID, chatID, func() { h.addChannel(ctx, chatID, text) })
	}
}

func (h *Handler) appendEpisode(ctx context.Context, msg *tgbotapi.Message, p pending) {
	chatID := msg.Chat.ID

	if msg.Video == nil {
		h.sendError(chatID, "Please send a video.")
		h.setPending(msg.From.ID, p)
		return
	}

	episode := &model.Episode{
		AnimeID: p.animeID,
		Number:  p.number,
		FileID:  msg.Video.FileID,
		Kind:    model.MediaVideo,
	}
	if err := h.store.UpsertEpisode(ctx, episode); err != nil {
		log.Error().Err(err).Uint("animeID", p.animeID).Int("number", p.number).Msg("Failed to upsert episode")
		h.sendError(chatID, "Failed to save the episode. Please try again.")
		return
	}
	h.send(chatID, fmt.Sprintf("✅ Episode %d saved!", p.number))
}

func (h *Handler) addChannel(ctx context.Context, chatID int64, text string) {
	fields := strings.Fields(text)
	if len(fields) < 3 {
		h.sendError(chatID, "Send: <channel_id> <join_link> <name>")
		return
	}
	channel := &model.Channel{
		ChannelID:   fields[0],
		JoinLink:    fields[1],
		Name:        strings.Join(fields[2:], " "),
		Requirement: model.ChannelMandatory,
	}
	if err := h.store.CreateChannel(ctx, channel); err != nil {
		log.Error().Err(err).Msg("Failed to create channel")
		h.sendError(chatID, "Failed to save the channel.")
		return
	}
	h.send(chatID, "✅ Channel saved!")
}

// advanceIntake feeds one admin message into the guided dialogue
func (h *Handler) advanceIntake(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	userID := msg.From.ID

	att, isMedia := attachmentFrom(msg)
	if !isMedia {
		result, ok := h.intake.AdvanceText(userID, msg.Text)
		if ok {
			h.send(chatID, result.Prompt)
		}
		return
	}

	result, ok, err := h.intake.AdvanceMedia(ctx, userID, att)
	if !ok {
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("userID", userID).Msg("Failed to commit catalog entry")
		h.sendError(chatID, "Failed to save the entry. Please try again.")
		return
	}
	if result.Done {
		server.RecordIntakeCommit()
		h.send(chatID, fmt.Sprintf("✅ Anime added!\n\nCode: <code>%d</code>", result.Created.ID))
		return
	}
	h.send(chatID, result.Prompt)
}

// attachmentFrom extracts a terminal-step attachment from a message.
// For photos the largest size's file handle is used.
func attachmentFrom(msg *tgbotapi.Message) (Attachment, bool) {
	if len(msg.Photo) > 0 {
		best := msg.Photo[len(msg.Photo)-1]
		return Attachment{FileID: best.FileID, Kind: model.MediaPhoto}, true
	}
	if msg.Video != nil {
		return Attachment{FileID: msg.Video.FileID, Kind: model.MediaVideo, Duration: msg.Video.Duration}, true
	}
	return Attachment{}, false
}

func (h *Handler) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	userID := cq.From.ID
	if cq.Message == nil {
		// inline message too old to act on; stop the client spinner
		h.answer(cq.ID, "", false)
		return
	}
	chatID := cq.Message.Chat.ID

	cb, err := ParseCallback(cq.Data)
	if err != nil {
		log.Warn().Err(err).Str("data", cq.Data).Msg("Unknown callback payload")
		h.answer(cq.ID, "Unknown action", false)
		return
	}

	switch c := cb.(type) {
	case Noop:
		h.answer(cq.ID, "", false)
	case VIPPurchase:
		h.handlePurchase(ctx, cq, c.Days)
	case OpenEpisode:
		h.showEpisode(ctx, cq, c.AnimeID, c.Number)
	case DownloadEpisode:
		h.downloadEpisode(ctx, cq, c.AnimeID, c.Number)
	case RemoveEpisode:
		if !h.isAdmin(userID) {
			h.answer(cq.ID, "❌ Permission denied", true)
			return
		}
		if err := h.store.DeleteEpisode(ctx, c.AnimeID, c.Number); err != nil {
			log.Error().Err(err).Uint("animeID", c.AnimeID).Int("number", c.Number).Msg("Failed to delete episode")
			h.answer(cq.ID, "❌ Delete failed", true)
			return
		}
		h.answer(cq.ID, "🗑 Episode deleted", false)
	case OpenAnime:
		h.answer(cq.ID, "", false)
		h.showAnime(ctx, chatID, c.AnimeID)
	case SearchMode:
		if c.Mode == "image" {
			h.answer(cq.ID, "🖼 Image search is not available yet", true)
			return
		}
		h.armSearch(cq, c.Mode)
	case ListRecent:
		h.answer(cq.ID, "", false)
		h.showList(ctx, chatID, "⏱ <b>Recent uploads:</b>", func() ([]*model.Anime, error) {
			return h.store.RecentAnime(ctx, searchLimit)
		})
	case ListTop:
		h.answer(cq.ID, "", false)
		h.showList(ctx, chatID, "👁 <b>Most viewed:</b>", func() ([]*model.Anime, error) {
			return h.store.TopAnime(ctx, searchLimit)
		})
	case ListAll:
		h.answer(cq.ID, "", false)
		h.showList(ctx, chatID, "📚 <b>All anime:</b>", func() ([]*model.Anime, error) {
			return h.store.ListAnime(ctx, 50, 0)
		})
	case StartIntake:
		if !h.isAdmin(userID) {
			h.answer(cq.ID, "❌ Permission denied", true)
			return
		}
		h.answer(cq.ID, "", false)
		h.send(chatID, h.intake.Start(userID))
	case StartEpisodeAppend:
		if !h.isAdmin(userID) {
			h.answer(cq.ID, "❌ Permission denied", true)
			return
		}
		h.answer(cq.ID, "", false)
		h.setPending(userID, pending{kind: pendingEpisodeRef})
		h.send(chatID, "📥 Send: <code>&lt;anime_id&gt; &lt;episode_number&gt;</code>")
	case EditAnime:
		if !h.isAdmin(userID) {
			h.answer(cq.ID, "❌ Permission denied", true)
			return
		}
		h.answer(cq.ID, "", false)
		h.send(chatID, "📝 Open an entry by its code and use the admin actions under each episode.")
	case VerifyMembership:
		if h.checkMembership(ctx, chatID, userID) {
			h.answer(cq.ID, "✅ Subscription confirmed", false)
			// the join prompt is stale once membership passes
			if err := h.telegram.DeleteMessage(chatID, cq.Message.MessageID); err != nil {
				log.Warn().Err(err).Int64("chatID", chatID).Msg("Failed to delete join prompt")
			}
			h.handleSearchMenu(ctx, chatID, userID)
			return
		}
		h.answer(cq.ID, "❌ Not all channels joined yet", true)
	}
}

func (h *Handler) armSearch(cq *tgbotapi.CallbackQuery, mode string) {
	userID := cq.From.ID
	chatID := cq.Message.Chat.ID
	h.answer(cq.ID, "", false)

	switch mode {
	case "name":
		h.setPending(userID, pending{kind: pendingSearchName})
		h.send(chatID, "🏷 Enter the anime title:")
	case "genre":
		h.setPending(userID, pending{kind: pendingSearchGenre})
		h.send(chatID, "💬 Enter the genre:")
	case "code":
		h.setPending(userID, pending{kind: pendingSearchCode})
		h.send(chatID, "📌 Enter the anime code:")
	}
}

func (h *Handler) runSearch(ctx context.Context, chatID int64, query string) {
	if query == "" {
		h.sendError(chatID, "Enter a search query.")
		return
	}

	results, err := h.store.SearchAnime(ctx, query, searchLimit)
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("Failed to search anime")
		h.sendError(chatID, "Search failed. Please try again.")
		return
	}
	server.RecordSearch()

	if len(results) == 0 {
		h.send(chatID, fmt.Sprintf("🔍 Nothing found for: %s", query))
		return
	}

	text := fmt.Sprintf("🔍 <b>Results for: %s</b>", query)
	if err := h.telegram.SendWithKeyboard(chatID, text, AnimeListKeyboard(results)); err != nil {
		log.Error().Err(err).Int64("chatID", chatID).Msg("Failed to send search results")
	}
}

func (h *Handler) showList(ctx context.Context, chatID int64, title string, fetch func() ([]*model.Anime, error)) {
	entries, err := fetch()
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch anime list")
		h.sendError(chatID, "Failed to load the list. Please try again.")
		return
	}
	if len(entries) == 0 {
		h.send(chatID, "📭 The catalog is empty.")
		return
	}
	if err := h.telegram.SendWithKeyboard(chatID, title, AnimeListKeyboard(entries)); err != nil {
		log.Error().Err(err).Int64("chatID", chatID).Msg("Failed to send anime list")
	}
}

// showAnime sends the entry card: thumbnail media, metadata caption,
// and the download action. Each view bumps the popularity counter.
func (h *Handler) showAnime(ctx context.Context, chatID int64, animeID uint) {
	anime, err := h.store.GetAnime(ctx, animeID)
	if err != nil {
		log.Error().Err(err).Uint("animeID", animeID).Msg("Failed to get anime")
		h.sendError(chatID, "Something went wrong. Please try again.")
		return
	}
	if anime == nil {
		h.sendError(chatID, "Invalid code.")
		return
	}

	if err := h.store.IncrementSearchCount(ctx, animeID); err != nil {
		log.Warn().Err(err).Uint("animeID", animeID).Msg("Failed to bump search count")
	}

	caption := fmt.Sprintf("<b>🎬 Title: %s</b>\n\n🎥 Episodes: %s\n🌍 Country: %s\n🗣 Language: %s\n📅 Year: %s\n🎞 Genre: %s\n🎙 Dub: %s\n\n🔍 Searches: %d",
		anime.Title, anime.EpisodesCount, anime.Country, anime.Language,
		anime.Year, anime.Genres, anime.TypeLabel, anime.SearchCount+1)

	markup := DownloadKeyboard(anime.ID)
	var sendErr error
	if anime.ThumbKind == model.MediaVideo {
		sendErr = h.telegram.SendVideo(chatID, anime.ThumbnailID, caption, &markup)
	} else {
		sendErr = h.telegram.SendPhoto(chatID, anime.ThumbnailID, caption, &markup)
	}
	if sendErr != nil {
		log.Error().Err(sendErr).Int64("chatID", chatID).Msg("Failed to send anime card")
	}
}

func (h *Handler) showEpisode(ctx context.Context, cq *tgbotapi.CallbackQuery, animeID uint, number int) {
	chatID := cq.Message.Chat.ID

	episode, err := h.store.GetEpisode(ctx, animeID, number)
	if err != nil {
		log.Error().Err(err).Uint("animeID", animeID).Int("number", number).Msg("Failed to get episode")
		h.answer(cq.ID, "❌ Something went wrong", true)
		return
	}
	anime, err := h.store.GetAnime(ctx, animeID)
	if err != nil {
		log.Error().Err(err).Uint("animeID", animeID).Msg("Failed to get anime")
		h.answer(cq.ID, "❌ Something went wrong", true)
		return
	}
	if episode == nil || anime == nil {
		h.answer(cq.ID, "❌ Episode not found", true)
		return
	}

	total, err := h.store.CountEpisodes(ctx, animeID)
	if err != nil {
		log.Error().Err(err).Uint("animeID", animeID).Msg("Failed to count episodes")
		h.answer(cq.ID, "❌ Something went wrong", true)
		return
	}

	caption := fmt.Sprintf("🎬 %s\n\n📀 Episode %d\n🎞 Total: %d episodes", anime.Title, number, total)
	keyboard := EpisodeKeyboard(animeID, number, int(total), h.isAdmin(cq.From.ID))
	if err := h.telegram.SendVideo(chatID, episode.FileID, caption, &keyboard); err != nil {
		log.Error().Err(err).Int64("chatID", chatID).Msg("Failed to send episode")
		h.answer(cq.ID, "❌ Failed to send the episode", true)
		return
	}
	h.answer(cq.ID, "", false)
}

func (h *Handler) downloadEpisode(ctx context.Context, cq *tgbotapi.CallbackQuery, animeID uint, number int) {
	chatID := cq.Message.Chat.ID

	episode, err := h.store.GetEpisode(ctx, animeID, number)
	if err != nil {
		log.Error().Err(err).Uint("animeID", animeID).Int("number", number).Msg("Failed to get episode")
		h.answer(cq.ID, "❌ Something went wrong", true)
		return
	}
	if episode == nil {
		h.answer(cq.ID, "❌ Episode not found", true)
		return
	}

	caption := fmt.Sprintf("📥 Episode %d", number)
	if err := h.telegram.SendVideo(chatID, episode.FileID, caption, nil); err != nil {
		log.Error().Err(err).Int64("chatID", chatID).Msg("Failed to send download")
		h.answer(cq.ID, "❌ Failed to send the file", true)
		return
	}
	h.answer(cq.ID, "", false)
}

func (h *Handler) handlePurchase(ctx context.Context, cq *tgbotapi.CallbackQuery, days int) {
	userID := cq.From.ID
	chatID := cq.Message.Chat.ID
	price := h.prices.Price(days)

	grant, err := h.store.PurchaseVIP(ctx, userID, days, price)
	switch {
	case err == nil:
		server.RecordPurchase()
		h.answer(cq.ID, "", false)
		expire := time.Time(grant.ExpireDate).Format("02.01.2006")
		h.send(chatID, fmt.Sprintf("✅ %d-day VIP purchased! Active until %s.", days, expire))
		h.sendMainMenu(ctx, chatID, userID, "⭐ Enjoy your VIP access!")
	case errors.Is(err, store.ErrInsufficientBalance):
		h.answer(cq.ID, "❌ Your balance is not sufficient!", true)
	case errors.Is(err, store.ErrUserNotFound):
		h.answer(cq.ID, "❌ Send /start first", true)
	default:
		log.Error().Err(err).Int64("userID", userID).Int("days", days).Msg("VIP purchase failed")
		h.answer(cq.ID, "❌ Purchase failed, please try again", true)
	}
}

func (h *Handler) runBroadcast(ctx context.Context, adminChatID int64, text string) {
	if text == "" {
		h.sendError(adminChatID, "Broadcast text is empty.")
		return
	}

	ids, err := h.store.ListUserIDs(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list users for broadcast")
		h.sendError(adminChatID, "Failed to start the broadcast.")
		return
	}

	h.send(adminChatID, fmt.Sprintf("✉ Broadcasting to %d users...", len(ids)))

	go func() {
		sent, failed := 0, 0
		for _, id := range ids {
			if err := h.limiter.Wait(ctx); err != nil {
				log.Warn().Err(err).Msg("Broadcast aborted")
				break
			}
			if err := h.telegram.SendHTML(id, text); err != nil {
				failed++
				continue
			}
			sent++
		}
		server.RecordBroadcast(sent)
		h.send(adminChatID, fmt.Sprintf("✅ Broadcast finished.\n📬 Sent: %d\n❌ Failed: %d", sent, failed))
	}()
}

func (h *Handler) send(chatID int64, text string) {
	if err := h.telegram.SendHTML(chatID, text); err != nil {
		server.RecordSendFailure()
		log.Error().Err(err).Int64("chatID", chatID).Msg("Failed to send message")
	}
}

func (h *Handler) sendError(chatID int64, message string) {
	h.send(chatID, "❌ "+message)
}

func (h *Handler) answer(callbackID, text string, alert bool) {
	if err := h.telegram.AnswerCallback(callbackID, text, alert); err != nil {
		server.RecordSendFailure()
		log.Error().Err(err).Msg("Failed to answer callback")
	}
}
