// Package planner validates and accepts post-scheduling requests, the
// boundary between the conversational UI and the scheduling core.
package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/user/postplanner/internal/storage"
	"github.com/user/postplanner/pkg/logger"
)

// Validation errors surfaced synchronously to the requester. They never
// reach the scheduling core.
var (
	ErrEmptyText       = errors.New("post text is required")
	ErrTooSoon         = errors.New("scheduled time is too soon")
	ErrTooFarAhead     = errors.New("scheduled time is too far ahead")
	ErrMissingChannel  = errors.New("channel is not linked or inactive")
	ErrDailyPostLimit  = errors.New("daily post limit reached")
	ErrChannelLimit    = errors.New("channel limit reached")
	ErrNotChannelAdmin = errors.New("bot is not an administrator of the channel")
	ErrUnknownUser     = errors.New("user is not registered")
)

// TimerSet is the scheduling engine surface the planner needs.
type TimerSet interface {
	Arm(postID int64, dueAt time.Time)
	Cancel(postID int64)
}

// AdminProbe checks whether the bot can post into a channel.
type AdminProbe interface {
	IsChannelAdmin(ctx context.Context, channelID string) (bool, error)
}

// Config bounds how far into the future a post may be scheduled.
type Config struct {
	MinLead    time.Duration // minimum gap between now and the due time
	MaxHorizon time.Duration // maximum gap between now and the due time
}

// PostRequest is an inbound request to create a scheduled post.
type PostRequest struct {
	TelegramID int64
	ChannelID  string
	Text       string
	PhotoID    string
	DueAt      time.Time
}

// Planner accepts scheduling requests, enforcing tier limits and the
// scheduling window before anything is persisted or armed.
type Planner struct {
	users    *storage.UserStore
	channels *storage.ChannelStore
	posts    *storage.PostStore
	timers   TimerSet
	probe    AdminProbe
	cfg      Config
}

// New creates a new planner.
func New(users *storage.UserStore, channels *storage.ChannelStore, posts *storage.PostStore, timers TimerSet, probe AdminProbe, cfg Config) *Planner {
	if cfg.MinLead <= 0 {
		cfg.MinLead = 2 * time.Minute
	}
	if cfg.MaxHorizon <= 0 {
		cfg.MaxHorizon = 24 * time.Hour
	}
	return &Planner{
		users:    users,
		channels: channels,
		posts:    posts,
		timers:   timers,
		probe:    probe,
		cfg:      cfg,
	}
}

// Schedule validates a request, persists the post and arms its one-shot
// delivery timer. Returns the new post ID.
func (p *Planner) Schedule(req PostRequest) (int64, error) {
	if req.Text == "" {
		return 0, ErrEmptyText
	}

	now := time.Now().UTC()
	if req.DueAt.Before(now.Add(p.cfg.MinLead)) {
		return 0, ErrTooSoon
	}
	if req.DueAt.After(now.Add(p.cfg.MaxHorizon)) {
		return 0, ErrTooFarAhead
	}

	stats, err := p.users.Stats(req.TelegramID)
	if err != nil {
		return 0, fmt.Errorf("failed to load user stats: %w", err)
	}
	if stats == nil {
		return 0, ErrUnknownUser
	}
	if stats.PostsToday >= stats.PostsLimit {
		return 0, ErrDailyPostLimit
	}

	ch, err := p.channels.Get(stats.User.ID, req.ChannelID)
	if err != nil {
		return 0, fmt.Errorf("failed to load channel: %w", err)
	}
	if ch == nil || !ch.Active {
		return 0, ErrMissingChannel
	}

	postID, err := p.posts.Create(stats.User.ID, req.ChannelID, req.Text, req.PhotoID, req.DueAt)
	if err != nil {
		return 0, fmt.Errorf("failed to persist post: %w", err)
	}

	p.timers.Arm(postID, req.DueAt)

	logger.Info().
		Int64("post_id", postID).
		Int64("telegram_id", req.TelegramID).
		Str("channel", req.ChannelID).
		Time("due_at", req.DueAt).
		Msg("Post scheduled")

	return postID, nil
}

// LinkChannel verifies the bot's admin rights on a channel and links it to
// the user, enforcing the tier's channel limit.
func (p *Planner) LinkChannel(ctx context.Context, telegramID int64, channelID, title string) error {
	stats, err := p.users.Stats(telegramID)
	if err != nil {
		return fmt.Errorf("failed to load user stats: %w", err)
	}
	if stats == nil {
		return ErrUnknownUser
	}

	// Re-linking an existing channel only refreshes it and must not count
	// against the limit.
	existing, err := p.channels.Get(stats.User.ID, channelID)
	if err != nil {
		return fmt.Errorf("failed to load channel: %w", err)
	}
	if (existing == nil || !existing.Active) && stats.ChannelCount >= stats.ChannelsLimit {
		return ErrChannelLimit
	}

	isAdmin, err := p.probe.IsChannelAdmin(ctx, channelID)
	if err != nil {
		return fmt.Errorf("failed to check channel rights: %w", err)
	}
	if !isAdmin {
		return ErrNotChannelAdmin
	}

	if err := p.channels.Add(stats.User.ID, channelID, title); err != nil {
		return fmt.Errorf("failed to link channel: %w", err)
	}

	logger.Info().
		Int64("telegram_id", telegramID).
		Str("channel", channelID).
		Msg("Channel linked")
	return nil
}

// UnlinkChannel deactivates a channel. Posts already scheduled into it are
// not cancelled; at due time the executor skips them as abandoned.
func (p *Planner) UnlinkChannel(telegramID int64, channelID string) error {
	user, err := p.users.ByTelegramID(telegramID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return ErrUnknownUser
	}
	return p.channels.Deactivate(user.ID, channelID)
}
