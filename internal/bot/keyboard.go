package bot

import (
	"fmt"
	"sort"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/user/anime-bot-go/internal/model"
)

// Reply-menu labels. The router matches incoming free text against
// these literals, so handlers and keyboards share one definition.
const (
	btnSearch     = "🔎 Search Anime"
	btnVIP        = "💎 VIP"
	btnVIPActive  = "⭐ VIP"
	btnAccount    = "💰 My Account"
	btnAddFunds   = "➕ Add Funds"
	btnGuide      = "📚 Guide"
	btnAds        = "💵 Ads & Sponsorship"
	btnManage     = "🗄 Manage"
	btnBack       = "◀️ Back"
	btnStats      = "📊 Statistics"
	btnBroadcast  = "✉ Broadcast"
	btnAnimeAdmin = "🎥 Manage Anime"
	btnChannels   = "📢 Channels"
)

// MainMenu builds the persistent reply menu for a role. VIP users see
// the marked VIP entry; admins get an extra management row.
func MainMenu(role model.Role, isAdmin bool) tgbotapi.ReplyKeyboardMarkup {
	vipLabel := btnVIP
	if role == model.RoleVIP {
		vipLabel = btnVIPActive
	}

	rows := [][]tgbotapi.KeyboardButton{
		{tgbotapi.NewKeyboardButton(btnSearch)},
		{tgbotapi.NewKeyboardButton(vipLabel), tgbotapi.NewKeyboardButton(btnAccount)},
		{tgbotapi.NewKeyboardButton(btnAddFunds), tgbotapi.NewKeyboardButton(btnGuide)},
		{tgbotapi.NewKeyboardButton(btnAds)},
	}
	if isAdmin {
		rows = append(rows, []tgbotapi.KeyboardButton{tgbotapi.NewKeyboardButton(btnManage)})
	}

	menu := tgbotapi.NewReplyKeyboard(rows...)
	menu.ResizeKeyboard = true
	return menu
}

// AdminMenu builds the admin reply menu
func AdminMenu() tgbotapi.ReplyKeyboardMarkup {
	menu := tgbotapi.NewReplyKeyboard(
		[]tgbotapi.KeyboardButton{
			tgbotapi.NewKeyboardButton(btnStats),
			tgbotapi.NewKeyboardButton(btnBroadcast),
		},
		[]tgbotapi.KeyboardButton{
			tgbotapi.NewKeyboardButton(btnAnimeAdmin),
			tgbotapi.NewKeyboardButton(btnChannels),
		},
		[]tgbotapi.KeyboardButton{
			tgbotapi.NewKeyboardButton(btnBack),
		},
	)
	menu.ResizeKeyboard = true
	return menu
}

// SearchMenu builds the inline search-mode selector. websiteURL backs
// the single externally linked action.
func SearchMenu(websiteURL string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏷 By title", "search_name"),
			tgbotapi.NewInlineKeyboardButtonData("⏱ Recent uploads", "recent"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💬 By genre", "search_genre"),
			tgbotapi.NewInlineKeyboardButtonData("📌 By code", "search_code"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👁 Most viewed", "top"),
			tgbotapi.NewInlineKeyboardButtonData("🖼 By image", "search_image"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🌐 Web catalog", websiteURL+"/animes"),
			tgbotapi.NewInlineKeyboardButtonData("📚 All anime", "all"),
		),
	)
}

// VIPMenu builds the inline subscription tier selector from a price table
func VIPMenu(prices PriceTable) tgbotapi.InlineKeyboardMarkup {
	days := make([]int, 0, len(prices))
	for d := range prices {
		days = append(days, d)
	}
	sort.Ints(days)

	var buttons []tgbotapi.InlineKeyboardButton
	for _, d := range days {
		label := fmt.Sprintf("%d days - %s UZS", d, prices[d].StringFixed(0))
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("vip_%d", d)))
	}

	// two tiers on the first row, the rest below
	rows := [][]tgbotapi.InlineKeyboardButton{}
	if len(buttons) > 2 {
		rows = append(rows, buttons[:2])
		rows = append(rows, buttons[2:])
	} else {
		rows = append(rows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// AnimeAdminMenu builds the inline catalog-management selector
func AnimeAdminMenu() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Add anime", "add_anime"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📥 Add episode", "add_episode"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📝 Edit anime", "edit_anime"),
		),
	)
}

// EpisodeKeyboard builds the navigation keyboard for one episode view.
// Pure function of its four inputs: the previous button is omitted on
// the first episode, the next button on the last, the position
// indicator always reads current/total, and the delete action only
// appears for admin callers.
func EpisodeKeyboard(animeID uint, current, total int, isAdmin bool) tgbotapi.InlineKeyboardMarkup {
	var nav []tgbotapi.InlineKeyboardButton

	if current > 1 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData(
			"⬅️ Previous", fmt.Sprintf("episode_%d_%d", animeID, current-1)))
	}
	nav = append(nav, tgbotapi.NewInlineKeyboardButtonData(
		fmt.Sprintf("%d/%d", current, total), "noop"))
	if current < total {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData(
			"➡️ Next", fmt.Sprintf("episode_%d_%d", animeID, current+1)))
	}

	rows := [][]tgbotapi.InlineKeyboardButton{
		nav,
		{tgbotapi.NewInlineKeyboardButtonData("📥 Download", fmt.Sprintf("download_%d_%d", animeID, current))},
	}
	if isAdmin {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("🗑 Delete", fmt.Sprintf("delete_%d_%d", animeID, current)),
		})
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// AnimeListKeyboard builds one button per catalog entry, opening it
func AnimeListKeyboard(entries []*model.Anime) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(entries))
	for _, a := range entries {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(a.Title, fmt.Sprintf("anime_%d", a.ID)),
		})
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// DownloadKeyboard builds the single download action under an entry view
func DownloadKeyboard(animeID uint) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📥 Download", fmt.Sprintf("episode_%d_1", animeID)),
		),
	)
}

// JoinChannelsKeyboard builds join links for the channels the user is
// missing, plus a verification button
func JoinChannelsKeyboard(channels []*model.Channel) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(channels)+1)
	for i, ch := range channels {
		label := ch.Name
		if label == "" {
			label = fmt.Sprintf("Channel %d", i+1)
		}
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonURL(label, ch.JoinLink),
		})
	}
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("✅ Verify", "verify"),
	})
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
