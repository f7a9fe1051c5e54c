package storage

import (
	"database/sql"
	"errors"
)

// ChannelStore handles channel-related database operations.
type ChannelStore struct {
	db *Database
}

// NewChannelStore creates a new channel store.
func NewChannelStore(db *Database) *ChannelStore {
	return &ChannelStore{db: db}
}

// Add links a channel to a user. Re-adding a deactivated channel
// reactivates it and refreshes the title.
func (s *ChannelStore) Add(userID int64, channelID, title string) error {
	query := `
		INSERT INTO channels (user_id, channel_id, channel_title)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, channel_id) DO UPDATE SET
			is_active = 1,
			channel_title = excluded.channel_title
	`
	_, err := s.db.Exec(query, userID, channelID, title)
	return err
}

// ByUser returns a user's active channels, oldest first.
func (s *ChannelStore) ByUser(userID int64) ([]Channel, error) {
	var channels []Channel
	query := `SELECT * FROM channels WHERE user_id = ? AND is_active = 1 ORDER BY created_at`
	err := s.db.Select(&channels, query, userID)
	return channels, err
}

// Get returns a specific channel, or nil if the user never linked it.
func (s *ChannelStore) Get(userID int64, channelID string) (*Channel, error) {
	var ch Channel
	query := `SELECT * FROM channels WHERE user_id = ? AND channel_id = ?`
	err := s.db.Get(&ch, query, userID, channelID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

// Deactivate soft-deletes a channel. History referencing it stays intact.
func (s *ChannelStore) Deactivate(userID int64, channelID string) error {
	query := `UPDATE channels SET is_active = 0 WHERE user_id = ? AND channel_id = ? AND is_active = 1`
	result, err := s.db.Exec(query, userID, channelID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.New("channel not found")
	}
	return nil
}

// CountActive returns the number of active channels across all users.
func (s *ChannelStore) CountActive() (int, error) {
	var count int
	err := s.db.Get(&count, `SELECT COUNT(*) FROM channels WHERE is_active = 1`)
	return count, err
}
