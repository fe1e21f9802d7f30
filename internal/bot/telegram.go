package bot

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// Client wraps the Telegram Bot API for sending messages and keyboards
type Client struct {
	api *tgbotapi.BotAPI
}

// NewClient creates a new Telegram client with the given bot token
func NewClient(token string) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	return &Client{api: api}, nil
}

// GetAPI returns the underlying bot API for advanced operations
func (c *Client) GetAPI() *tgbotapi.BotAPI {
	return c.api
}

// PollUpdates deletes any configured webhook, drops updates queued
// before start, and returns a long-polling update channel
func (c *Client) PollUpdates() (tgbotapi.UpdatesChannel, error) {
	if _, err := c.api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true}); err != nil {
		return nil, fmt.Errorf("failed to delete webhook: %w", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	return c.api.GetUpdatesChan(u), nil
}

// StopReceivingUpdates stops the polling update channel
func (c *Client) StopReceivingUpdates() {
	c.api.StopReceivingUpdates()
}

// RegisterWebhook points Telegram at the given public URL and returns
// an HTTP handler feeding the returned update channel. The caller
// mounts the handler on its own server.
func (c *Client) RegisterWebhook(publicURL string) (http.HandlerFunc, tgbotapi.UpdatesChannel, error) {
	wh, err := tgbotapi.NewWebhook(publicURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build webhook config: %w", err)
	}
	if _, err := c.api.Request(wh); err != nil {
		return nil, nil, fmt.Errorf("failed to register webhook: %w", err)
	}

	updates := make(chan tgbotapi.Update, 100)
	handler := func(w http.ResponseWriter, r *http.Request) {
		update, err := c.api.HandleUpdate(r)
		if err != nil {
			log.Warn().Err(err).Msg("Rejected malformed webhook update")
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		updates <- *update
	}
	return handler, updates, nil
}

// SendMessage sends a plain text message to a chat
func (c *Client) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := c.api.Send(msg)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// SendHTML sends a message with HTML formatting to a chat
func (c *Client) SendHTML(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := c.api.Send(msg)
	if err != nil {
		return fmt.Errorf("failed to send html message: %w", err)
	}
	return nil
}

// SendWithKeyboard sends an HTML message with a reply or inline
// keyboard attached. markup must be a tgbotapi keyboard markup value.
func (c *Client) SendWithKeyboard(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := c.api.Send(msg)
	if err != nil {
		return fmt.Errorf("failed to send keyboard message: %w", err)
	}
	return nil
}

// SendPhoto sends a stored photo with caption and optional inline keyboard
func (c *Client) SendPhoto(chatID int64, fileID string, caption string, markup *tgbotapi.InlineKeyboardMarkup) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(fileID))
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeHTML
	if markup != nil {
		photo.ReplyMarkup = markup
	}
	_, err := c.api.Send(photo)
	if err != nil {
		return fmt.Errorf("failed to send photo: %w", err)
	}
	return nil
}

// SendVideo sends a stored video with caption and optional inline keyboard
func (c *Client) SendVideo(chatID int64, fileID string, caption string, markup *tgbotapi.InlineKeyboardMarkup) error {
	video := tgbotapi.NewVideo(chatID, tgbotapi.FileID(fileID))
	video.Caption = caption
	video.ParseMode = tgbotapi.ModeHTML
	if markup != nil {
		video.ReplyMarkup = markup
	}
	_, err := c.api.Send(video)
	if err != nil {
		return fmt.Errorf("failed to send video: %w", err)
	}
	return nil
}

// AnswerCallback acknowledges a callback query. With alert set the
// text is shown as a blocking alert instead of a toast.
func (c *Client) AnswerCallback(callbackID string, text string, alert bool) error {
	cb := tgbotapi.CallbackConfig{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       alert,
	}
	if _, err := c.api.Request(cb); err != nil {
		return fmt.Errorf("failed to answer callback: %w", err)
	}
	return nil
}

// DeleteMessage removes a previously sent message
func (c *Client) DeleteMessage(chatID int64, messageID int) error {
	if _, err := c.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// IsChatMember reports whether the user belongs to the given channel.
// channelID is either a numeric chat ID or an @username.
func (c *Client) IsChatMember(channelID string, userID int64) (bool, error) {
	cfg := tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{UserID: userID},
	}
	if strings.HasPrefix(channelID, "@") {
		cfg.SuperGroupUsername = channelID
	} else {
		id, err := strconv.ParseInt(channelID, 10, 64)
		if err != nil {
			return false, fmt.Errorf("invalid channel id %q: %w", channelID, err)
		}
		cfg.ChatID = id
	}

	member, err := c.api.GetChatMember(cfg)
	if err != nil {
		return false, fmt.Errorf("failed to get chat member: %w", err)
	}

	switch member.Status {
	case "creator", "administrator", "member":
		return true, nil
	}
	return false, nil
}
