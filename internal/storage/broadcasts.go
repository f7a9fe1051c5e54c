package storage

import "fmt"

// BroadcastStore handles broadcast-related database operations.
type BroadcastStore struct {
	db *Database
}

// NewBroadcastStore creates a new broadcast store.
func NewBroadcastStore(db *Database) *BroadcastStore {
	return &BroadcastStore{db: db}
}

// Create records a broadcast before the fan-out starts, capturing the
// targeted user count at that moment.
func (s *BroadcastStore) Create(text string) (int64, error) {
	query := `
		INSERT INTO broadcasts (message_text, total_count)
		VALUES (?, (SELECT COUNT(*) FROM users))
	`
	result, err := s.db.Exec(query, text)
	if err != nil {
		return 0, fmt.Errorf("failed to insert broadcast: %w", err)
	}
	return result.LastInsertId()
}

// SetSentCount updates the success counter once the fan-out completes.
func (s *BroadcastStore) SetSentCount(broadcastID int64, sent int) error {
	_, err := s.db.Exec(`UPDATE broadcasts SET sent_count = ? WHERE id = ?`, sent, broadcastID)
	return err
}

// Get returns a broadcast record by ID.
func (s *BroadcastStore) Get(broadcastID int64) (*Broadcast, error) {
	var b Broadcast
	if err := s.db.Get(&b, `SELECT * FROM broadcasts WHERE id = ?`, broadcastID); err != nil {
		return nil, err
	}
	return &b, nil
}
