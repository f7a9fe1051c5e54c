// Package storage provides database operations and data models.
package storage

import (
	"database/sql"
	"time"
)

// User represents a Telegram account interacting with the bot.
type User struct {
	ID                int64        `db:"id"`
	TelegramID        int64        `db:"telegram_id"`
	Username          string       `db:"username"`
	FullName          string       `db:"full_name"`
	ChannelsLimit     int          `db:"channels_limit"`
	PostsPerDayLimit  int          `db:"posts_per_day_limit"`
	Subscribed        bool         `db:"subscribed"`
	SubscriptionUntil sql.NullTime `db:"subscription_until"`
	CreatedAt         time.Time    `db:"created_at"`
	UpdatedAt         time.Time    `db:"updated_at"`
}

// Channel represents a destination channel linked by a user.
// Channels are soft-deactivated rather than deleted so that post history
// referencing them stays valid.
type Channel struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	ChannelID string    `db:"channel_id"` // Telegram chat ID or @username
	Title     string    `db:"channel_title"`
	Active    bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
}

// ScheduledPost is a post queued for future delivery to a channel.
// Published flips false->true exactly once; rows are never deleted and serve
// as an audit trail.
type ScheduledPost struct {
	ID          int64        `db:"id"`
	UserID      int64        `db:"user_id"`
	ChannelID   string       `db:"channel_id"`
	Text        string       `db:"message_text"`
	PhotoID     string       `db:"photo_id"` // Telegram file ID, empty for text-only posts
	ScheduledAt time.Time    `db:"scheduled_time"`
	Published   bool         `db:"is_published"`
	CreatedAt   time.Time    `db:"created_at"`
	PublishedAt sql.NullTime `db:"published_at"`
}

// DeliverablePost is a scheduled post joined with its owner and destination
// channel, as loaded for a delivery attempt.
type DeliverablePost struct {
	ScheduledPost
	OwnerTelegramID int64  `db:"owner_telegram_id"`
	ChannelIdent    string `db:"channel_ident"`
	ChannelActive   bool   `db:"channel_active"`
}

// Broadcast records one administrator-initiated mass message.
type Broadcast struct {
	ID         int64     `db:"id"`
	Text       string    `db:"message_text"`
	SentCount  int       `db:"sent_count"`
	TotalCount int       `db:"total_count"`
	SentAt     time.Time `db:"sent_at"`
}

// UserStats aggregates a user's current usage against their limits.
type UserStats struct {
	User          User
	ChannelCount  int
	PostsToday    int
	ChannelsLimit int
	PostsLimit    int
}
