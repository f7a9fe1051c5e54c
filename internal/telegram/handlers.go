package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/user/postplanner/internal/broadcast"
	"github.com/user/postplanner/internal/config"
	"github.com/user/postplanner/internal/planner"
	"github.com/user/postplanner/internal/storage"
	"github.com/user/postplanner/pkg/logger"
)

// Handlers manages command, menu and conversation handling for the bot.
type Handlers struct {
	api         *tgbotapi.BotAPI
	users       *storage.UserStore
	channels    *storage.ChannelStore
	posts       *storage.PostStore
	planner     *planner.Planner
	broadcaster *broadcast.Broadcaster
	sessions    *sessionStore

	adminID   int64
	limits    config.LimitsConfig
	tariff    config.TariffConfig
	schedCfg  planner.Config
	armed     func() int
	startTime time.Time
}

// NewHandlers creates a new handlers instance.
func NewHandlers(
	api *tgbotapi.BotAPI,
	users *storage.UserStore,
	channels *storage.ChannelStore,
	posts *storage.PostStore,
	pl *planner.Planner,
	bc *broadcast.Broadcaster,
	adminID int64,
	limits config.LimitsConfig,
	tariff config.TariffConfig,
	schedCfg planner.Config,
) *Handlers {
	return &Handlers{
		api:         api,
		users:       users,
		channels:    channels,
		posts:       posts,
		planner:     pl,
		broadcaster: bc,
		sessions:    newSessionStore(),
		adminID:     adminID,
		limits:      limits,
		tariff:      tariff,
		schedCfg:    schedCfg,
	}
}

// SetArmedFunc wires the scheduling engine's timer count into /health.
func (h *Handlers) SetArmedFunc(fn func() int) {
	h.armed = fn
}

// SetStartTime sets the bot start time for uptime calculation.
func (h *Handlers) SetStartTime(t time.Time) {
	h.startTime = t
}

// HandleMessage routes an incoming message to a command, an active
// conversation, or a menu button.
func (h *Handlers) HandleMessage(msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}

	user := h.trackUser(msg)
	if user == nil {
		h.sendReply(msg.Chat.ID, "Registration failed, please try again later.")
		return
	}

	if msg.IsCommand() {
		h.handleCommand(msg, user)
		return
	}

	if sess := h.sessions.get(msg.Chat.ID); sess != nil {
		h.handleSession(msg, user, sess)
		return
	}

	h.handleMenu(msg, user)
}

// handleCommand routes slash commands.
func (h *Handlers) handleCommand(msg *tgbotapi.Message, user *storage.User) {
	logger.Debug().
		Str("command", msg.Command()).
		Int64("chat_id", msg.Chat.ID).
		Msg("Received command")

	switch msg.Command() {
	case "start":
		h.sessions.clear(msg.Chat.ID)
		h.handleStart(msg, user)
	case "help":
		h.handleHelp(msg)
	case "admin":
		h.handleAdmin(msg)
	case "health":
		h.handleHealth(msg)
	case "cancel":
		if h.sessions.get(msg.Chat.ID) == nil {
			h.sendReply(msg.Chat.ID, "Nothing to cancel.")
			return
		}
		h.sessions.clear(msg.Chat.ID)
		h.sendReply(msg.Chat.ID, "✅ Cancelled.")
	default:
		h.sendReply(msg.Chat.ID, "Unknown command. Use /help to see what I can do.")
	}
}

// handleMenu routes reply-keyboard buttons.
func (h *Handlers) handleMenu(msg *tgbotapi.Message, user *storage.User) {
	switch msg.Text {
	case btnStats:
		h.handleStats(msg)
	case btnChannels:
		h.handleChannels(msg, user)
	case btnAddChannel:
		h.handleAddChannel(msg)
	case btnSchedulePost:
		h.handleSchedulePost(msg, user)
	case btnScheduledList:
		h.handleScheduledList(msg, user)
	case h.buyButton():
		h.handleBuy(msg, user)
	case btnAdminPanel:
		h.handleAdmin(msg)
	}
}

// trackUser registers or resyncs the sender.
func (h *Handlers) trackUser(msg *tgbotapi.Message) *storage.User {
	fullName := strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
	user, err := h.users.GetOrCreate(msg.From.ID, msg.From.UserName, fullName)
	if err != nil {
		logger.Error().Err(err).Int64("telegram_id", msg.From.ID).Msg("Failed to track user")
		return nil
	}
	return user
}

func (h *Handlers) handleStart(msg *tgbotapi.Message, user *storage.User) {
	name := msg.From.FirstName
	if name == "" {
		name = "there"
	}
	text := fmt.Sprintf(`👋 Hi %s!

I schedule posts to Telegram channels you administer.

Free tier:
• %d channel(s)
• %d posts per day

%s tier:
• %d channels
• %d posts per day
• Price: %s

Use the buttons below to get started.`,
		name, h.limits.Channels, h.limits.PostsPerDay,
		h.tariff.Name, h.tariff.Channels, h.tariff.PostsPerDay, h.tariff.Price)

	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	reply.ReplyMarkup = h.mainKeyboard(msg.From.ID, user.Subscribed)
	h.send(reply)
}

func (h *Handlers) handleHelp(msg *tgbotapi.Message) {
	text := `🆘 How it works

Adding a channel:
1. Add me to your channel as an administrator with posting rights
2. Press "➕ Add channel"
3. Forward any message from the channel, or send its @username

Scheduling a post:
1. Press "🕐 Schedule a post"
2. Pick a channel
3. Send the post text (a photo with a caption works too)
4. Send the time as HH:MM (UTC, within the next 24 hours)

Commands:
/start — main menu
/help — this message
/cancel — abort the current dialogue`

	h.sendReply(msg.Chat.ID, text)
}

func (h *Handlers) handleStats(msg *tgbotapi.Message) {
	stats, err := h.users.Stats(msg.From.ID)
	if err != nil || stats == nil {
		h.sendReply(msg.Chat.ID, "Could not load your stats, please try again later.")
		return
	}

	subscription := "none"
	if stats.User.Subscribed {
		subscription = "active"
		if stats.User.SubscriptionUntil.Valid {
			subscription = "active until " + stats.User.SubscriptionUntil.Time.Format("02.01.2006")
		}
	}

	text := fmt.Sprintf(`📊 Your stats

Profile:
• Name: %s
• Username: @%s
• Subscription: %s

Usage:
• Channels: %d/%d
• Posts today: %d/%d`,
		stats.User.FullName, stats.User.Username, subscription,
		stats.ChannelCount, stats.ChannelsLimit,
		stats.PostsToday, stats.PostsLimit)

	if stats.ChannelCount >= stats.ChannelsLimit {
		text += "\n\n⚠️ Channel limit reached"
	}
	if stats.PostsToday >= stats.PostsLimit {
		text += "\n⚠️ Daily post limit reached"
	}

	h.sendReply(msg.Chat.ID, text)
}

func (h *Handlers) handleChannels(msg *tgbotapi.Message, user *storage.User) {
	channels, err := h.channels.ByUser(user.ID)
	if err != nil {
		h.sendReply(msg.Chat.ID, "Could not load your channels.")
		return
	}

	if len(channels) == 0 {
		h.sendReply(msg.Chat.ID, "You have no linked channels yet. Press \"➕ Add channel\" to link one.")
		return
	}

	text := "📣 Your channels:\n\n"
	for i, ch := range channels {
		title := ch.Title
		if title == "" {
			title = ch.ChannelID
		}
		text += fmt.Sprintf("%d. %s\n", i+1, title)
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	reply.ReplyMarkup = channelListKeyboard(channels)
	h.send(reply)
}

func (h *Handlers) handleAddChannel(msg *tgbotapi.Message) {
	stats, err := h.users.Stats(msg.From.ID)
	if err != nil || stats == nil {
		h.sendReply(msg.Chat.ID, "Could not load your stats, please try again later.")
		return
	}

	if stats.ChannelCount >= stats.ChannelsLimit {
		h.sendReply(msg.Chat.ID, fmt.Sprintf(
			"❌ Channel limit reached (%d/%d).\nThe %s tier raises it to %d channels. Price: %s",
			stats.ChannelCount, stats.ChannelsLimit, h.tariff.Name, h.tariff.Channels, h.tariff.Price))
		return
	}

	h.sessions.set(msg.Chat.ID, &session{step: stepAwaitChannelLink})
	h.sendReply(msg.Chat.ID, `📝 Linking a channel

1. Add me to the channel as an administrator
2. Give me posting rights
3. Forward any message from the channel here, or send its @username

/cancel to abort`)
}

func (h *Handlers) handleSchedulePost(msg *tgbotapi.Message, user *storage.User) {
	stats, err := h.users.Stats(msg.From.ID)
	if err != nil || stats == nil {
		h.sendReply(msg.Chat.ID, "Could not load your stats, please try again later.")
		return
	}

	if stats.PostsToday >= stats.PostsLimit {
		h.sendReply(msg.Chat.ID, fmt.Sprintf(
			"❌ Daily post limit reached (%d/%d). It resets at 00:00 UTC.\nThe %s tier raises it to %d posts per day.",
			stats.PostsToday, stats.PostsLimit, h.tariff.Name, h.tariff.PostsPerDay))
		return
	}

	channels, err := h.channels.ByUser(user.ID)
	if err != nil {
		h.sendReply(msg.Chat.ID, "Could not load your channels.")
		return
	}
	if len(channels) == 0 {
		h.sendReply(msg.Chat.ID, "You have no linked channels yet. Press \"➕ Add channel\" first.")
		return
	}

	h.sessions.set(msg.Chat.ID, &session{step: stepAwaitPostText})

	reply := tgbotapi.NewMessage(msg.Chat.ID, "📝 Pick a channel for the post:")
	reply.ReplyMarkup = channelPickKeyboard(channels)
	h.send(reply)
}

func (h *Handlers) handleScheduledList(msg *tgbotapi.Message, user *storage.User) {
	posts, err := h.posts.TodayByUser(user.ID)
	if err != nil {
		h.sendReply(msg.Chat.ID, "Could not load your scheduled posts.")
		return
	}

	if len(posts) == 0 {
		h.sendReply(msg.Chat.ID, "No posts scheduled for today.")
		return
	}

	text := "📅 Scheduled for today:\n\n"
	for i, post := range posts {
		text += fmt.Sprintf("%d. %s — %s\n",
			i+1, post.ScheduledAt.Format("15:04"), truncate(post.Text, 40))
	}
	h.sendReply(msg.Chat.ID, text)
}

func (h *Handlers) handleBuy(msg *tgbotapi.Message, user *storage.User) {
	if user.Subscribed {
		h.sendReply(msg.Chat.ID, "✅ Your subscription is already active.")
		return
	}

	text := fmt.Sprintf(`💎 %s tier

• Up to %d channels
• Up to %d posts per day

Price: %s
Payment: %s

After payment the administrator activates the subscription within 24 hours.`,
		h.tariff.Name, h.tariff.Channels, h.tariff.PostsPerDay, h.tariff.Price, h.tariff.PaymentLink)

	h.sendReply(msg.Chat.ID, text)
}

func (h *Handlers) handleAdmin(msg *tgbotapi.Message) {
	if msg.From.ID != h.adminID {
		h.sendReply(msg.Chat.ID, "⛔ Admin access only.")
		return
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, "👑 Admin panel")
	reply.ReplyMarkup = adminKeyboard()
	h.send(reply)
}

func (h *Handlers) handleHealth(msg *tgbotapi.Message) {
	userCount, _ := h.users.Count()
	total, published, _ := h.posts.Counts()

	armed := 0
	if h.armed != nil {
		armed = h.armed()
	}

	text := fmt.Sprintf(`✅ Bot is running

Uptime: %s
Users: %d
Posts: %d (%d published)
Armed timers: %d`,
		formatDuration(time.Since(h.startTime)), userCount, total, published, armed)

	h.sendReply(msg.Chat.ID, text)
}

// handleSession advances a multi-message conversation.
func (h *Handlers) handleSession(msg *tgbotapi.Message, user *storage.User, sess *session) {
	switch sess.step {
	case stepAwaitChannelLink:
		h.sessionChannelLink(msg, sess)
	case stepAwaitPostText:
		h.sessionPostText(msg, sess)
	case stepAwaitPostTime:
		h.sessionPostTime(msg, sess)
	case stepAwaitBroadcast:
		h.sessionBroadcast(msg)
	case stepAwaitGrantUserID:
		h.sessionGrant(msg)
	default:
		h.sessions.clear(msg.Chat.ID)
	}
}

func (h *Handlers) sessionChannelLink(msg *tgbotapi.Message, sess *session) {
	var channelID, title string

	switch {
	case msg.ForwardFromChat != nil && (msg.ForwardFromChat.Type == "channel" || msg.ForwardFromChat.Type == "supergroup"):
		channelID = strconv.FormatInt(msg.ForwardFromChat.ID, 10)
		title = msg.ForwardFromChat.Title
	case strings.HasPrefix(msg.Text, "@"):
		channelID = strings.TrimSpace(msg.Text)
		title = channelID
	default:
		h.sendReply(msg.Chat.ID, "Could not identify the channel. Forward a message from it or send its @username.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := h.planner.LinkChannel(ctx, msg.From.ID, channelID, title)
	h.sessions.clear(msg.Chat.ID)

	switch {
	case err == nil:
		h.sendReply(msg.Chat.ID, fmt.Sprintf("✅ Channel linked: %s", title))
	case errors.Is(err, planner.ErrNotChannelAdmin):
		h.sendReply(msg.Chat.ID, "❌ I don't have posting rights in that channel. Add me as an administrator and try again.")
	case errors.Is(err, planner.ErrChannelLimit):
		h.sendReply(msg.Chat.ID, "❌ Channel limit reached.")
	default:
		logger.Error().Err(err).Str("channel", channelID).Msg("Failed to link channel")
		h.sendReply(msg.Chat.ID, "❌ Failed to link the channel, please try again later.")
	}
}

func (h *Handlers) sessionPostText(msg *tgbotapi.Message, sess *session) {
	if sess.channelID == "" {
		h.sendReply(msg.Chat.ID, "Pick a channel first.")
		return
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if text == "" {
		h.sendReply(msg.Chat.ID, "Send the post text, or a photo with a caption.")
		return
	}

	sess.text = text
	if len(msg.Photo) > 0 {
		// Largest resolution is last.
		sess.photoID = msg.Photo[len(msg.Photo)-1].FileID
	}
	sess.step = stepAwaitPostTime
	h.sessions.set(msg.Chat.ID, sess)

	h.sendReply(msg.Chat.ID, "⏰ Send the publication time as HH:MM (UTC). Times already past today roll over to tomorrow.\n\n/cancel to abort")
}

func (h *Handlers) sessionPostTime(msg *tgbotapi.Message, sess *session) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(msg.Text))
	if err != nil {
		h.sendReply(msg.Chat.ID, "❌ Invalid time format. Use HH:MM, for example 14:30.")
		return
	}

	now := time.Now().UTC()
	dueAt := time.Date(now.Year(), now.Month(), now.Day(), parsed.Hour(), parsed.Minute(), 0, 0, time.UTC)
	if dueAt.Before(now.Add(h.schedCfg.MinLead)) {
		dueAt = dueAt.Add(24 * time.Hour)
	}

	postID, err := h.planner.Schedule(planner.PostRequest{
		TelegramID: msg.From.ID,
		ChannelID:  sess.channelID,
		Text:       sess.text,
		PhotoID:    sess.photoID,
		DueAt:      dueAt,
	})
	h.sessions.clear(msg.Chat.ID)

	switch {
	case err == nil:
		text := fmt.Sprintf("✅ Post #%d scheduled for %s UTC.\n\n%s",
			postID, dueAt.Format("02.01 15:04"), truncate(sess.text, 100))
		if sess.photoID != "" {
			text += "\n\n📷 With photo"
		}
		h.sendReply(msg.Chat.ID, text)
	case errors.Is(err, planner.ErrTooSoon):
		h.sendReply(msg.Chat.ID, "❌ That time is too soon. Leave at least 2 minutes of lead.")
	case errors.Is(err, planner.ErrTooFarAhead):
		h.sendReply(msg.Chat.ID, "❌ Posts can only be scheduled within the next 24 hours.")
	case errors.Is(err, planner.ErrDailyPostLimit):
		h.sendReply(msg.Chat.ID, "❌ Daily post limit reached.")
	case errors.Is(err, planner.ErrMissingChannel):
		h.sendReply(msg.Chat.ID, "❌ That channel is no longer linked.")
	default:
		logger.Error().Err(err).Msg("Failed to schedule post")
		h.sendReply(msg.Chat.ID, "❌ Failed to save the post, please try again later.")
	}
}

func (h *Handlers) sessionBroadcast(msg *tgbotapi.Message) {
	h.sessions.clear(msg.Chat.ID)
	if msg.From.ID != h.adminID {
		return
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if text == "" {
		h.sendReply(msg.Chat.ID, "Broadcast text is empty, aborted.")
		return
	}

	h.sendReply(msg.Chat.ID, "📤 Broadcast started...")

	// The fan-out can take minutes; keep the update loop responsive.
	go func() {
		res, err := h.broadcaster.Run(context.Background(), text)
		if err != nil {
			logger.Error().Err(err).Msg("Broadcast failed")
			h.sendReply(msg.Chat.ID, "❌ Broadcast failed.")
			return
		}
		h.sendReply(msg.Chat.ID, fmt.Sprintf(
			"✅ Broadcast #%d completed.\nTargeted: %d\nSent: %d\nFailed: %d",
			res.BroadcastID, res.Total, res.Sent, res.Failed))
	}()
}

func (h *Handlers) sessionGrant(msg *tgbotapi.Message) {
	h.sessions.clear(msg.Chat.ID)
	if msg.From.ID != h.adminID {
		return
	}

	targetID, err := strconv.ParseInt(strings.TrimSpace(msg.Text), 10, 64)
	if err != nil {
		h.sendReply(msg.Chat.ID, "❌ Invalid ID, send a numeric Telegram ID.")
		return
	}

	target, err := h.users.ByTelegramID(targetID)
	if err != nil {
		h.sendReply(msg.Chat.ID, "❌ Lookup failed, please try again.")
		return
	}
	if target == nil {
		h.sendReply(msg.Chat.ID, fmt.Sprintf("❌ User %d is not registered.", targetID))
		return
	}
	if target.Subscribed {
		h.sendReply(msg.Chat.ID, fmt.Sprintf("User %d already has an active subscription.", targetID))
		return
	}

	err = h.users.GrantSubscription(targetID, h.tariff.DurationDays, h.tariff.Channels, h.tariff.PostsPerDay)
	if err != nil {
		logger.Error().Err(err).Int64("telegram_id", targetID).Msg("Failed to grant subscription")
		h.sendReply(msg.Chat.ID, "❌ Failed to grant the subscription.")
		return
	}

	notice := fmt.Sprintf(
		"🎉 Your %s subscription is active!\n\n• %d channels\n• %d posts per day\n\nValid for %d days.",
		h.tariff.Name, h.tariff.Channels, h.tariff.PostsPerDay, h.tariff.DurationDays)
	notified := true
	if _, err := h.api.Send(tgbotapi.NewMessage(targetID, notice)); err != nil {
		notified = false
		logger.Warn().Err(err).Int64("telegram_id", targetID).Msg("Failed to notify user about subscription")
	}

	status := "user notified"
	if !notified {
		status = "could not notify the user"
	}
	h.sendReply(msg.Chat.ID, fmt.Sprintf("✅ Subscription granted to %d (%s).", targetID, status))
}

// HandleCallback handles inline keyboard callbacks.
func (h *Handlers) HandleCallback(callback *tgbotapi.CallbackQuery) {
	// Acknowledge the callback
	h.api.Send(tgbotapi.NewCallback(callback.ID, ""))

	if callback.Message == nil || callback.From == nil {
		return
	}
	chatID := callback.Message.Chat.ID

	parts := strings.SplitN(callback.Data, ":", 2)
	switch parts[0] {
	case "pick":
		if len(parts) == 2 {
			h.callbackPickChannel(callback, chatID, parts[1])
		}
	case "unlink":
		if len(parts) == 2 {
			h.callbackUnlink(callback, chatID, parts[1])
		}
	case "cancel":
		h.sessions.clear(chatID)
		h.editText(chatID, callback.Message.MessageID, "❌ Cancelled.")
	case "admin":
		if len(parts) == 2 && callback.From.ID == h.adminID {
			h.callbackAdmin(callback, chatID, parts[1])
		}
	}
}

func (h *Handlers) callbackPickChannel(callback *tgbotapi.CallbackQuery, chatID int64, channelID string) {
	sess := h.sessions.get(chatID)
	if sess == nil || sess.step != stepAwaitPostText {
		return
	}
	sess.channelID = channelID
	h.sessions.set(chatID, sess)

	h.editText(chatID, callback.Message.MessageID,
		"📝 Send the post text. A photo with a caption works too.\n\n/cancel to abort")
}

func (h *Handlers) callbackUnlink(callback *tgbotapi.CallbackQuery, chatID int64, channelID string) {
	if err := h.planner.UnlinkChannel(callback.From.ID, channelID); err != nil {
		logger.Error().Err(err).Str("channel", channelID).Msg("Failed to unlink channel")
		h.sendReply(chatID, "❌ Failed to unlink the channel.")
		return
	}
	h.editText(chatID, callback.Message.MessageID, "✅ Channel unlinked. Posts still scheduled into it will be skipped.")
}

func (h *Handlers) callbackAdmin(callback *tgbotapi.CallbackQuery, chatID int64, action string) {
	switch action {
	case "broadcast":
		h.sessions.set(chatID, &session{step: stepAwaitBroadcast})
		h.editText(chatID, callback.Message.MessageID, "📢 Send the broadcast message.\n\n/cancel to abort")
	case "grant":
		h.sessions.set(chatID, &session{step: stepAwaitGrantUserID})
		h.editText(chatID, callback.Message.MessageID, "⭐ Send the Telegram ID of the user to grant a subscription to.\n\n/cancel to abort")
	case "users":
		h.adminUserList(chatID, callback.Message.MessageID)
	case "subscribers":
		h.adminSubscriberList(chatID, callback.Message.MessageID)
	case "stats":
		h.adminStats(chatID, callback.Message.MessageID)
	}
}

func (h *Handlers) adminUserList(chatID int64, messageID int) {
	users, err := h.users.All()
	if err != nil {
		h.sendReply(chatID, "❌ Failed to load users.")
		return
	}
	if len(users) == 0 {
		h.editText(chatID, messageID, "No registered users.")
		return
	}

	const pageSize = 20
	text := fmt.Sprintf("👥 Users: %d\n\n", len(users))
	for i, user := range users {
		if i == pageSize {
			text += fmt.Sprintf("\n...and %d more", len(users)-pageSize)
			break
		}
		marker := "👤"
		if user.Subscribed {
			marker = "⭐"
		}
		username := user.Username
		if username == "" {
			username = "-"
		}
		text += fmt.Sprintf("%d. %s %d @%s\n", i+1, marker, user.TelegramID, username)
	}
	h.editText(chatID, messageID, text)
}

func (h *Handlers) adminSubscriberList(chatID int64, messageID int) {
	subs, err := h.users.Subscribed()
	if err != nil {
		h.sendReply(chatID, "❌ Failed to load subscribers.")
		return
	}
	if len(subs) == 0 {
		h.editText(chatID, messageID, "No active subscribers.")
		return
	}

	text := fmt.Sprintf("⭐ Subscribers: %d\n\n", len(subs))
	for i, user := range subs {
		until := "active"
		if user.SubscriptionUntil.Valid {
			until = "until " + user.SubscriptionUntil.Time.Format("02.01.2006")
		}
		text += fmt.Sprintf("%d. %d @%s (%s)\n", i+1, user.TelegramID, user.Username, until)
	}
	h.editText(chatID, messageID, text)
}

func (h *Handlers) adminStats(chatID int64, messageID int) {
	userCount, _ := h.users.Count()
	subs, _ := h.users.Subscribed()
	total, published, _ := h.posts.Counts()
	activeChannels, _ := h.channels.CountActive()

	conversion := 0.0
	if userCount > 0 {
		conversion = float64(len(subs)) / float64(userCount) * 100
	}

	text := fmt.Sprintf(`📊 Bot statistics

Users: %d
Subscribers: %d (%.1f%%)

Posts: %d total, %d published
Active channels: %d

Tariff: %s, %s (%d channels, %d posts/day)`,
		userCount, len(subs), conversion,
		total, published, activeChannels,
		h.tariff.Name, h.tariff.Price, h.tariff.Channels, h.tariff.PostsPerDay)

	h.editText(chatID, messageID, text)
}

// formatDuration formats a duration to a human-readable string.
func formatDuration(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	} else if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

// sendReply sends a simple text reply.
func (h *Handlers) sendReply(chatID int64, text string) {
	h.send(tgbotapi.NewMessage(chatID, text))
}

// editText edits a previously sent message in place.
func (h *Handlers) editText(chatID int64, messageID int, text string) {
	if _, err := h.api.Send(tgbotapi.NewEditMessageText(chatID, messageID, text)); err != nil {
		logger.Error().Err(err).Msg("Failed to edit message")
	}
}

func (h *Handlers) send(msg tgbotapi.Chattable) {
	if _, err := h.api.Send(msg); err != nil {
		logger.Error().Err(err).Msg("Failed to send message")
	}
}
