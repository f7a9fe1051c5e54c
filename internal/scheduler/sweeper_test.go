package scheduler

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/postplanner/internal/delivery"
	"github.com/user/postplanner/internal/storage"
)

func newSweepFixture(t *testing.T) (*storage.Database, *storage.PostStore, int64) {
	t.Helper()
	db, err := storage.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	user, err := storage.NewUserStore(db).GetOrCreate(100, "user", "User")
	require.NoError(t, err)
	require.NoError(t, storage.NewChannelStore(db).Add(user.ID, "@ch", "Channel"))

	return db, storage.NewPostStore(db), user.ID
}

func TestSweepDeliversDuePostsInOrder(t *testing.T) {
	_, posts, userID := newSweepFixture(t)

	now := time.Now().UTC()
	second, err := posts.Create(userID, "@ch", "second", "", now.Add(-time.Minute))
	require.NoError(t, err)
	first, err := posts.Create(userID, "@ch", "first", "", now.Add(-2*time.Minute))
	require.NoError(t, err)
	_, err = posts.Create(userID, "@ch", "distant", "", now.Add(time.Hour))
	require.NoError(t, err)

	rec := newDeliveryRecorder()
	sweeper := NewSweeper(posts, rec.deliver, time.Minute, 5*time.Minute, 0)

	sweeper.Sweep()

	waitFired(t, rec, first)
	waitFired(t, rec, second)
	assert.Equal(t, 0, rec.count(999))
}

func TestSweepSkipsPublished(t *testing.T) {
	_, posts, userID := newSweepFixture(t)

	id, err := posts.Create(userID, "@ch", "done", "", time.Now().UTC().Add(-time.Minute))
	require.NoError(t, err)
	_, err = posts.MarkPublished(id)
	require.NoError(t, err)

	rec := newDeliveryRecorder()
	sweeper := NewSweeper(posts, rec.deliver, time.Minute, 5*time.Minute, 0)

	sweeper.Sweep()
	assert.Equal(t, 0, rec.count(id))
}

func TestSweepRepeatedRunsReofferUnpublished(t *testing.T) {
	_, posts, userID := newSweepFixture(t)

	id, err := posts.Create(userID, "@ch", "stuck", "", time.Now().UTC().Add(-time.Minute))
	require.NoError(t, err)

	// The recorder never marks the post published, imitating a transport
	// that keeps failing. Every sweep must re-offer the post.
	rec := newDeliveryRecorder()
	sweeper := NewSweeper(posts, rec.deliver, time.Minute, 5*time.Minute, 0)

	sweeper.Sweep()
	sweeper.Sweep()

	assert.Equal(t, 2, rec.count(id))
}

// nullTransport accepts every send and notification.
type nullTransport struct {
	mu    sync.Mutex
	sends int
}

func (n *nullTransport) SendPost(ctx context.Context, channelID, text, photoID string) error {
	n.mu.Lock()
	n.sends++
	n.mu.Unlock()
	return nil
}

func (n *nullTransport) Notify(ctx context.Context, telegramID int64, text string) error {
	return nil
}

func TestSweepConvergesThroughExecutor(t *testing.T) {
	_, posts, userID := newSweepFixture(t)

	id, err := posts.Create(userID, "@ch", "overdue", "", time.Now().UTC().Add(-time.Minute))
	require.NoError(t, err)

	transport := &nullTransport{}
	exec := delivery.NewExecutor(posts, transport, transport)
	sweeper := NewSweeper(posts, exec.Deliver, time.Minute, 5*time.Minute, 0)

	sweeper.Sweep()

	deliverable, err := posts.Deliverable(id)
	require.NoError(t, err)
	assert.Nil(t, deliverable, "post must be published after one sweep cycle")
	assert.Equal(t, 1, transport.sends)

	// A second sweep finds nothing left to do.
	sweeper.Sweep()
	assert.Equal(t, 1, transport.sends)
}

func TestSweeperStartStop(t *testing.T) {
	_, posts, _ := newSweepFixture(t)

	rec := newDeliveryRecorder()
	sweeper := NewSweeper(posts, rec.deliver, 10*time.Millisecond, 5*time.Minute, 0)

	sweeper.Start()
	time.Sleep(30 * time.Millisecond)
	sweeper.Stop()
}
