package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/user/postplanner/internal/storage"
)

// Main menu button labels. The message handler matches on these exact
// strings, so keyboards and routing must stay in sync.
const (
	btnStats         = "📊 My stats"
	btnChannels      = "📣 My channels"
	btnAddChannel    = "➕ Add channel"
	btnSchedulePost  = "🕐 Schedule a post"
	btnScheduledList = "📅 My scheduled posts"
	btnAdminPanel    = "👑 Admin panel"
)

// mainKeyboard builds the persistent reply keyboard.
func (h *Handlers) mainKeyboard(telegramID int64, subscribed bool) tgbotapi.ReplyKeyboardMarkup {
	rows := [][]tgbotapi.KeyboardButton{
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnStats),
			tgbotapi.NewKeyboardButton(btnChannels),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnAddChannel),
			tgbotapi.NewKeyboardButton(btnSchedulePost),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnScheduledList),
		),
	}

	if subscribed {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("✅ Subscription active"),
		))
	} else {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(h.buyButton()),
		))
	}

	if telegramID == h.adminID {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnAdminPanel),
		))
	}

	return tgbotapi.NewReplyKeyboard(rows...)
}

// buyButton returns the tariff purchase button label.
func (h *Handlers) buyButton() string {
	return fmt.Sprintf("💎 Buy %s", h.tariff.Name)
}

// adminKeyboard builds the inline admin panel.
func adminKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📢 Broadcast", "admin:broadcast"),
			tgbotapi.NewInlineKeyboardButtonData("👥 Users", "admin:users"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⭐ Subscribers", "admin:subscribers"),
			tgbotapi.NewInlineKeyboardButtonData("➕ Grant subscription", "admin:grant"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Statistics", "admin:stats"),
		),
	)
}

// channelPickKeyboard lists a user's channels for the scheduling flow.
func channelPickKeyboard(channels []storage.Channel) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, ch := range channels {
		title := ch.Title
		if title == "" {
			title = ch.ChannelID
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📣 "+truncate(title, 24), "pick:"+ch.ChannelID),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", "cancel"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// channelListKeyboard lists channels with unlink buttons.
func channelListKeyboard(channels []storage.Channel) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, ch := range channels {
		title := ch.Title
		if title == "" {
			title = ch.ChannelID
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Unlink "+truncate(title, 20), "unlink:"+ch.ChannelID),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// truncate limits a label to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
