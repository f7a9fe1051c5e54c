package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostStore is the durable record of scheduled posts and the only component
// permitted to flip their publication state.
type PostStore struct {
	db *Database
}

// NewPostStore creates a new post store.
func NewPostStore(db *Database) *PostStore {
	return &PostStore{db: db}
}

// Create persists a new scheduled post and returns its ID.
func (s *PostStore) Create(userID int64, channelID, text, photoID string, scheduledAt time.Time) (int64, error) {
	query := `
		INSERT INTO scheduled_posts (user_id, channel_id, message_text, photo_id, scheduled_time)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := s.db.Exec(query, userID, channelID, text, photoID, scheduledAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to insert post: %w", err)
	}
	return result.LastInsertId()
}

// Due returns unpublished posts whose due time is within now+lookahead and
// whose destination channel is still active, earliest first. It feeds both
// the startup re-arm sweep and the periodic catch-up sweep.
func (s *PostStore) Due(now time.Time, lookahead time.Duration) ([]DeliverablePost, error) {
	var posts []DeliverablePost
	query := `
		SELECT sp.*, u.telegram_id AS owner_telegram_id,
		       c.channel_id AS channel_ident, c.is_active AS channel_active
		FROM scheduled_posts sp
		JOIN users u ON sp.user_id = u.id
		JOIN channels c ON sp.channel_id = c.channel_id AND c.user_id = u.id
		WHERE sp.scheduled_time <= ?
		AND sp.is_published = 0
		AND c.is_active = 1
		ORDER BY sp.scheduled_time
	`
	err := s.db.Select(&posts, query, now.UTC().Add(lookahead))
	return posts, err
}

// Pending returns unpublished posts still due in the future, used to rebuild
// one-shot timers after a restart.
func (s *PostStore) Pending(now time.Time) ([]ScheduledPost, error) {
	var posts []ScheduledPost
	query := `
		SELECT * FROM scheduled_posts
		WHERE is_published = 0 AND scheduled_time > ?
		ORDER BY scheduled_time
	`
	err := s.db.Select(&posts, query, now.UTC())
	return posts, err
}

// Deliverable loads a post joined with its owner and destination channel for
// a delivery attempt. Returns nil when the post does not exist or was
// already published, which is the normal outcome when a timer fire and a
// sweep both target the same post.
func (s *PostStore) Deliverable(postID int64) (*DeliverablePost, error) {
	var post DeliverablePost
	query := `
		SELECT sp.*, u.telegram_id AS owner_telegram_id,
		       c.channel_id AS channel_ident, c.is_active AS channel_active
		FROM scheduled_posts sp
		JOIN users u ON sp.user_id = u.id
		JOIN channels c ON sp.channel_id = c.channel_id AND c.user_id = u.id
		WHERE sp.id = ? AND sp.is_published = 0
	`
	err := s.db.Get(&post, query, postID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// MarkPublished flips a post to published and stamps the publication time.
// The transition is conditional on the current state, so concurrent and
// repeated calls for the same post have at most one logical effect; the
// returned bool reports whether this call was the effective one.
func (s *PostStore) MarkPublished(postID int64) (bool, error) {
	query := `
		UPDATE scheduled_posts
		SET is_published = 1, published_at = ?
		WHERE id = ? AND is_published = 0
	`
	result, err := s.db.Exec(query, time.Now().UTC(), postID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// TodayByUser returns a user's unpublished posts scheduled for today,
// earliest first.
func (s *PostStore) TodayByUser(userID int64) ([]ScheduledPost, error) {
	var posts []ScheduledPost
	query := `
		SELECT * FROM scheduled_posts
		WHERE user_id = ?
		AND DATE(scheduled_time) = DATE(?)
		AND is_published = 0
		ORDER BY scheduled_time
	`
	err := s.db.Select(&posts, query, userID, time.Now().UTC())
	return posts, err
}

// Counts returns the total and published post counts for the admin dashboard.
func (s *PostStore) Counts() (total, published int, err error) {
	if err = s.db.Get(&total, `SELECT COUNT(*) FROM scheduled_posts`); err != nil {
		return 0, 0, err
	}
	if err = s.db.Get(&published, `SELECT COUNT(*) FROM scheduled_posts WHERE is_published = 1`); err != nil {
		return 0, 0, err
	}
	return total, published, nil
}
