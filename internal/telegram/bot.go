// Package telegram provides Telegram bot functionality.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/user/postplanner/pkg/logger"
)

// Bot represents the Telegram bot. It is also the transport capability the
// delivery executor and broadcaster depend on.
type Bot struct {
	api      *tgbotapi.BotAPI
	handlers *Handlers
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewBot creates a new Telegram bot instance.
func NewBot(token string, debug bool) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	api.Debug = debug

	logger.Info().Str("username", api.Self.UserName).Msg("Telegram bot authorized")

	ctx, cancel := context.WithCancel(context.Background())

	return &Bot{
		api:    api,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// SetHandlers attaches the update handlers. Must be called before Start.
func (b *Bot) SetHandlers(h *Handlers) {
	b.handlers = h
}

// Start begins listening for updates.
func (b *Bot) Start() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case <-b.ctx.Done():
				return
			case update := <-updates:
				if update.Message != nil {
					b.handlers.HandleMessage(update.Message)
				} else if update.CallbackQuery != nil {
					b.handlers.HandleCallback(update.CallbackQuery)
				}
			}
		}
	}()

	logger.Info().Msg("Telegram bot started, listening for updates")
}

// Stop gracefully stops the bot.
func (b *Bot) Stop() {
	logger.Info().Msg("Stopping Telegram bot")
	b.cancel()
	b.api.StopReceivingUpdates()
	b.wg.Wait()
}

// GetAPI returns the underlying bot API for direct access.
func (b *Bot) GetAPI() *tgbotapi.BotAPI {
	return b.api
}

// SendPost delivers post content to a channel, implementing
// delivery.Sender. The channel is addressed either by @username or by its
// numeric chat ID.
func (b *Bot) SendPost(ctx context.Context, channelID, text, photoID string) error {
	var msg tgbotapi.Chattable

	if photoID != "" {
		var photo tgbotapi.PhotoConfig
		if username, ok := channelUsername(channelID); ok {
			photo = tgbotapi.NewPhotoToChannel(username, tgbotapi.FileID(photoID))
		} else {
			chatID, err := strconv.ParseInt(channelID, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid channel identifier %q: %w", channelID, err)
			}
			photo = tgbotapi.NewPhoto(chatID, tgbotapi.FileID(photoID))
		}
		photo.Caption = text
		photo.ParseMode = tgbotapi.ModeHTML
		msg = photo
	} else {
		var message tgbotapi.MessageConfig
		if username, ok := channelUsername(channelID); ok {
			message = tgbotapi.NewMessageToChannel(username, text)
		} else {
			chatID, err := strconv.ParseInt(channelID, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid channel identifier %q: %w", channelID, err)
			}
			message = tgbotapi.NewMessage(chatID, text)
		}
		message.ParseMode = tgbotapi.ModeHTML
		msg = message
	}

	_, err := b.api.Send(msg)
	return err
}

// Notify sends a plain message to a user's private chat, implementing
// delivery.Notifier.
func (b *Bot) Notify(ctx context.Context, telegramID int64, text string) error {
	msg := tgbotapi.NewMessage(telegramID, text)
	_, err := b.api.Send(msg)
	return err
}

// IsChannelAdmin reports whether the bot is an administrator of the channel
// with posting rights, implementing planner.AdminProbe.
func (b *Bot) IsChannelAdmin(ctx context.Context, channelID string) (bool, error) {
	cfg := tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			UserID: b.api.Self.ID,
		},
	}
	if username, ok := channelUsername(channelID); ok {
		cfg.SuperGroupUsername = username
	} else {
		chatID, err := strconv.ParseInt(channelID, 10, 64)
		if err != nil {
			return false, fmt.Errorf("invalid channel identifier %q: %w", channelID, err)
		}
		cfg.ChatID = chatID
	}

	member, err := b.api.GetChatMember(cfg)
	if err != nil {
		return false, err
	}

	if member.IsCreator() {
		return true, nil
	}
	return member.IsAdministrator() && member.CanPostMessages, nil
}

// channelUsername reports whether the identifier is a @username reference.
func channelUsername(channelID string) (string, bool) {
	if strings.HasPrefix(channelID, "@") {
		return channelID, true
	}
	return "", false
}
