package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UserStore handles user-related database operations.
type UserStore struct {
	db *Database
}

// NewUserStore creates a new user store.
func NewUserStore(db *Database) *UserStore {
	return &UserStore{db: db}
}

// GetOrCreate looks up a user by Telegram ID, creating the row on first
// interaction. The username and full name are resynced on every call since
// both are mutable on the Telegram side.
func (s *UserStore) GetOrCreate(telegramID int64, username, fullName string) (*User, error) {
	query := `
		INSERT INTO users (telegram_id, username, full_name)
		VALUES (?, ?, ?)
		ON CONFLICT(telegram_id) DO UPDATE SET
			username = excluded.username,
			full_name = excluded.full_name,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := s.db.Exec(query, telegramID, username, fullName); err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	var user User
	if err := s.db.Get(&user, `SELECT * FROM users WHERE telegram_id = ?`, telegramID); err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// ByTelegramID returns a user, or nil if none exists.
func (s *UserStore) ByTelegramID(telegramID int64) (*User, error) {
	var user User
	err := s.db.Get(&user, `SELECT * FROM users WHERE telegram_id = ?`, telegramID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GrantSubscription raises a user's limits together with the subscription
// flag in a single statement.
func (s *UserStore) GrantSubscription(telegramID int64, days, channelsLimit, postsLimit int) error {
	until := time.Now().UTC().AddDate(0, 0, days)
	query := `
		UPDATE users
		SET subscribed = 1,
		    subscription_until = ?,
		    channels_limit = ?,
		    posts_per_day_limit = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE telegram_id = ?
	`
	result, err := s.db.Exec(query, until, channelsLimit, postsLimit, telegramID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.New("user not found")
	}
	return nil
}

// Stats returns a user's current usage against their limits.
func (s *UserStore) Stats(telegramID int64) (*UserStats, error) {
	user, err := s.ByTelegramID(telegramID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	var channelCount int
	err = s.db.Get(&channelCount,
		`SELECT COUNT(*) FROM channels WHERE user_id = ? AND is_active = 1`, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count channels: %w", err)
	}

	var postsToday int
	err = s.db.Get(&postsToday, `
		SELECT COUNT(*) FROM scheduled_posts
		WHERE user_id = ?
		AND DATE(scheduled_time) = DATE(?)
		AND is_published = 0
	`, user.ID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to count posts: %w", err)
	}

	return &UserStats{
		User:          *user,
		ChannelCount:  channelCount,
		PostsToday:    postsToday,
		ChannelsLimit: user.ChannelsLimit,
		PostsLimit:    user.PostsPerDayLimit,
	}, nil
}

// All returns every registered user, newest first.
func (s *UserStore) All() ([]User, error) {
	var users []User
	err := s.db.Select(&users, `SELECT * FROM users ORDER BY created_at DESC`)
	return users, err
}

// Subscribed returns users with an active subscription.
func (s *UserStore) Subscribed() ([]User, error) {
	var users []User
	err := s.db.Select(&users,
		`SELECT * FROM users WHERE subscribed = 1 ORDER BY subscription_until DESC`)
	return users, err
}

// Count returns the total number of registered users.
func (s *UserStore) Count() (int, error) {
	var count int
	err := s.db.Get(&count, `SELECT COUNT(*) FROM users`)
	return count, err
}
