package storage

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUserGetOrCreate(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStore(db)

	user, err := users.GetOrCreate(100, "alice", "Alice A")
	require.NoError(t, err)
	assert.Equal(t, int64(100), user.TelegramID)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, 1, user.ChannelsLimit)
	assert.Equal(t, 3, user.PostsPerDayLimit)
	assert.False(t, user.Subscribed)

	// Second call resyncs the mutable fields but keeps the row.
	again, err := users.GetOrCreate(100, "alice_new", "Alice B")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)
	assert.Equal(t, "alice_new", again.Username)
	assert.Equal(t, "Alice B", again.FullName)

	count, err := users.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUserByTelegramIDMissing(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStore(db)

	user, err := users.ByTelegramID(999)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestGrantSubscription(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStore(db)

	_, err := users.GetOrCreate(100, "alice", "Alice")
	require.NoError(t, err)

	require.NoError(t, users.GrantSubscription(100, 30, 2, 8))

	user, err := users.ByTelegramID(100)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.True(t, user.Subscribed)
	assert.Equal(t, 2, user.ChannelsLimit)
	assert.Equal(t, 8, user.PostsPerDayLimit)
	require.True(t, user.SubscriptionUntil.Valid)
	assert.WithinDuration(t,
		time.Now().UTC().AddDate(0, 0, 30), user.SubscriptionUntil.Time, time.Minute)

	subs, err := users.Subscribed()
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

func TestGrantSubscriptionUnknownUser(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStore(db)

	err := users.GrantSubscription(12345, 30, 2, 8)
	assert.Error(t, err)
}

func TestChannelAddAndReactivate(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStore(db)
	channels := NewChannelStore(db)

	user, err := users.GetOrCreate(100, "alice", "Alice")
	require.NoError(t, err)

	require.NoError(t, channels.Add(user.ID, "@mychannel", "My Channel"))

	list, err := channels.ByUser(user.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Active)

	require.NoError(t, channels.Deactivate(user.ID, "@mychannel"))

	list, err = channels.ByUser(user.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	// The soft-deleted row is still there.
	ch, err := channels.Get(user.ID, "@mychannel")
	require.NoError(t, err)
	require.NotNil(t, ch)
	assert.False(t, ch.Active)

	// Re-adding reactivates instead of duplicating.
	require.NoError(t, channels.Add(user.ID, "@mychannel", "Renamed"))

	list, err = channels.ByUser(user.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Renamed", list[0].Title)
}

func TestChannelDeactivateMissing(t *testing.T) {
	db := newTestDB(t)
	channels := NewChannelStore(db)

	assert.Error(t, channels.Deactivate(1, "@nope"))
}

func seedUserWithChannel(t *testing.T, db *Database, telegramID int64, channelID string) *User {
	t.Helper()
	users := NewUserStore(db)
	channels := NewChannelStore(db)

	user, err := users.GetOrCreate(telegramID, "user", "User")
	require.NoError(t, err)
	require.NoError(t, channels.Add(user.ID, channelID, "Channel"))
	return user
}

func TestPostsDue(t *testing.T) {
	db := newTestDB(t)
	posts := NewPostStore(db)
	user := seedUserWithChannel(t, db, 100, "@ch")

	now := time.Now().UTC()

	late, err := posts.Create(user.ID, "@ch", "late", "", now.Add(3*time.Minute))
	require.NoError(t, err)
	early, err := posts.Create(user.ID, "@ch", "early", "", now.Add(-time.Minute))
	require.NoError(t, err)
	_, err = posts.Create(user.ID, "@ch", "far future", "", now.Add(2*time.Hour))
	require.NoError(t, err)

	due, err := posts.Due(now, 5*time.Minute)
	require.NoError(t, err)
	require.Len(t, due, 2)

	// Earliest first.
	assert.Equal(t, early, due[0].ID)
	assert.Equal(t, late, due[1].ID)
	assert.Equal(t, int64(100), due[0].OwnerTelegramID)
	assert.Equal(t, "@ch", due[0].ChannelIdent)
}

func TestPostsDueSkipsPublishedAndInactive(t *testing.T) {
	db := newTestDB(t)
	posts := NewPostStore(db)
	channels := NewChannelStore(db)
	user := seedUserWithChannel(t, db, 100, "@ch")

	now := time.Now().UTC()

	published, err := posts.Create(user.ID, "@ch", "done", "", now.Add(-time.Minute))
	require.NoError(t, err)
	_, err = posts.MarkPublished(published)
	require.NoError(t, err)

	orphan, err := posts.Create(user.ID, "@ch", "orphan", "", now.Add(-time.Minute))
	require.NoError(t, err)
	require.NoError(t, channels.Deactivate(user.ID, "@ch"))

	due, err := posts.Due(now, 5*time.Minute)
	require.NoError(t, err)
	assert.Empty(t, due)

	// Reactivating the channel makes the orphan resurface.
	require.NoError(t, channels.Add(user.ID, "@ch", "Channel"))
	due, err = posts.Due(now, 5*time.Minute)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, orphan, due[0].ID)
}

func TestPending(t *testing.T) {
	db := newTestDB(t)
	posts := NewPostStore(db)
	user := seedUserWithChannel(t, db, 100, "@ch")

	now := time.Now().UTC()

	_, err := posts.Create(user.ID, "@ch", "past", "", now.Add(-time.Hour))
	require.NoError(t, err)
	future, err := posts.Create(user.ID, "@ch", "future", "", now.Add(time.Hour))
	require.NoError(t, err)

	pending, err := posts.Pending(now)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, future, pending[0].ID)
}

func TestDeliverable(t *testing.T) {
	db := newTestDB(t)
	posts := NewPostStore(db)
	user := seedUserWithChannel(t, db, 100, "@ch")

	id, err := posts.Create(user.ID, "@ch", "hello", "photo123", time.Now().UTC())
	require.NoError(t, err)

	post, err := posts.Deliverable(id)
	require.NoError(t, err)
	require.NotNil(t, post)
	assert.Equal(t, "hello", post.Text)
	assert.Equal(t, "photo123", post.PhotoID)
	assert.True(t, post.ChannelActive)

	_, err = posts.MarkPublished(id)
	require.NoError(t, err)

	post, err = posts.Deliverable(id)
	require.NoError(t, err)
	assert.Nil(t, post)

	post, err = posts.Deliverable(99999)
	require.NoError(t, err)
	assert.Nil(t, post)
}

func TestMarkPublishedOnce(t *testing.T) {
	db := newTestDB(t)
	posts := NewPostStore(db)
	user := seedUserWithChannel(t, db, 100, "@ch")

	id, err := posts.Create(user.ID, "@ch", "hello", "", time.Now().UTC())
	require.NoError(t, err)

	first, err := posts.MarkPublished(id)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := posts.MarkPublished(id)
	require.NoError(t, err)
	assert.False(t, second)
}

func TestMarkPublishedConcurrent(t *testing.T) {
	db := newTestDB(t)
	posts := NewPostStore(db)
	user := seedUserWithChannel(t, db, 100, "@ch")

	id, err := posts.Create(user.ID, "@ch", "hello", "", time.Now().UTC())
	require.NoError(t, err)

	const workers = 10
	var wg sync.WaitGroup
	results := make(chan bool, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := posts.MarkPublished(id)
			assert.NoError(t, err)
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	transitions := 0
	for ok := range results {
		if ok {
			transitions++
		}
	}
	assert.Equal(t, 1, transitions)
}

func TestUserStats(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStore(db)
	posts := NewPostStore(db)
	user := seedUserWithChannel(t, db, 100, "@ch")

	now := time.Now().UTC()
	_, err := posts.Create(user.ID, "@ch", "one", "", now.Add(time.Hour))
	require.NoError(t, err)
	published, err := posts.Create(user.ID, "@ch", "two", "", now.Add(time.Hour))
	require.NoError(t, err)
	_, err = posts.MarkPublished(published)
	require.NoError(t, err)

	stats, err := users.Stats(100)
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, 1, stats.ChannelCount)
	// Published posts no longer count against the daily budget.
	assert.Equal(t, 1, stats.PostsToday)
	assert.Equal(t, 1, stats.ChannelsLimit)
	assert.Equal(t, 3, stats.PostsLimit)

	stats, err = users.Stats(999)
	require.NoError(t, err)
	assert.Nil(t, stats)
}

func TestBroadcastLifecycle(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStore(db)
	broadcasts := NewBroadcastStore(db)

	_, err := users.GetOrCreate(1, "a", "A")
	require.NoError(t, err)
	_, err = users.GetOrCreate(2, "b", "B")
	require.NoError(t, err)

	id, err := broadcasts.Create("hello everyone")
	require.NoError(t, err)

	b, err := broadcasts.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 2, b.TotalCount)
	assert.Equal(t, 0, b.SentCount)

	require.NoError(t, broadcasts.SetSentCount(id, 2))

	b, err = broadcasts.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 2, b.SentCount)
}
