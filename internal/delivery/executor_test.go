package delivery

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/postplanner/internal/storage"
)

// fakeSender records outbound posts and can be told to fail.
type fakeSender struct {
	mu    sync.Mutex
	sent  []string
	fail  bool
	block chan struct{} // when set, SendPost waits on it
}

func (f *fakeSender) SendPost(ctx context.Context, channelID, text, photoID string) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("telegram unavailable")
	}
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeSender) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// fakeNotifier records private-chat notifications.
type fakeNotifier struct {
	mu      sync.Mutex
	notices []string
	fail    bool
}

func (f *fakeNotifier) Notify(ctx context.Context, telegramID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("user blocked the bot")
	}
	f.notices = append(f.notices, text)
	return nil
}

func (f *fakeNotifier) noticeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.notices)
}

type fixture struct {
	db       *storage.Database
	posts    *storage.PostStore
	channels *storage.ChannelStore
	userID   int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := storage.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	user, err := storage.NewUserStore(db).GetOrCreate(100, "user", "User")
	require.NoError(t, err)
	channels := storage.NewChannelStore(db)
	require.NoError(t, channels.Add(user.ID, "@ch", "Channel"))

	return &fixture{
		db:       db,
		posts:    storage.NewPostStore(db),
		channels: channels,
		userID:   user.ID,
	}
}

func TestDeliverPublishesAndNotifies(t *testing.T) {
	fix := newFixture(t)
	sender := &fakeSender{}
	notifier := &fakeNotifier{}
	exec := NewExecutor(fix.posts, sender, notifier)

	id, err := fix.posts.Create(fix.userID, "@ch", "hello world", "", time.Now().UTC())
	require.NoError(t, err)

	exec.Deliver(context.Background(), id)

	assert.Equal(t, 1, sender.sentCount())
	assert.Equal(t, 1, notifier.noticeCount())

	post, err := fix.posts.Deliverable(id)
	require.NoError(t, err)
	assert.Nil(t, post, "post must be marked published")
}

func TestDeliverAlreadyPublishedIsNoop(t *testing.T) {
	fix := newFixture(t)
	sender := &fakeSender{}
	exec := NewExecutor(fix.posts, sender, &fakeNotifier{})

	id, err := fix.posts.Create(fix.userID, "@ch", "hello", "", time.Now().UTC())
	require.NoError(t, err)
	_, err = fix.posts.MarkPublished(id)
	require.NoError(t, err)

	exec.Deliver(context.Background(), id)
	assert.Equal(t, 0, sender.sentCount())
}

func TestDeliverUnknownPostIsNoop(t *testing.T) {
	fix := newFixture(t)
	sender := &fakeSender{}
	exec := NewExecutor(fix.posts, sender, &fakeNotifier{})

	exec.Deliver(context.Background(), 99999)
	assert.Equal(t, 0, sender.sentCount())
}

func TestDeliverSkipsDeactivatedChannel(t *testing.T) {
	fix := newFixture(t)
	sender := &fakeSender{}
	exec := NewExecutor(fix.posts, sender, &fakeNotifier{})

	id, err := fix.posts.Create(fix.userID, "@ch", "orphaned", "", time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, fix.channels.Deactivate(fix.userID, "@ch"))

	exec.Deliver(context.Background(), id)

	assert.Equal(t, 0, sender.sentCount())

	// The post is neither sent nor consumed; relinking the channel makes it
	// deliverable again.
	require.NoError(t, fix.channels.Add(fix.userID, "@ch", "Channel"))
	exec.Deliver(context.Background(), id)
	assert.Equal(t, 1, sender.sentCount())
}

func TestDeliverSendFailureLeavesPostUnpublished(t *testing.T) {
	fix := newFixture(t)
	sender := &fakeSender{fail: true}
	notifier := &fakeNotifier{}
	exec := NewExecutor(fix.posts, sender, notifier)

	id, err := fix.posts.Create(fix.userID, "@ch", "hello", "", time.Now().UTC())
	require.NoError(t, err)

	exec.Deliver(context.Background(), id)
	assert.Equal(t, 0, notifier.noticeCount())

	post, err := fix.posts.Deliverable(id)
	require.NoError(t, err)
	require.NotNil(t, post, "a failed post must stay deliverable for the next sweep")

	// The retry succeeds once the transport recovers.
	sender.mu.Lock()
	sender.fail = false
	sender.mu.Unlock()

	exec.Deliver(context.Background(), id)
	assert.Equal(t, 1, sender.sentCount())
}

func TestDeliverNotifyFailureDoesNotUnpublish(t *testing.T) {
	fix := newFixture(t)
	sender := &fakeSender{}
	exec := NewExecutor(fix.posts, sender, &fakeNotifier{fail: true})

	id, err := fix.posts.Create(fix.userID, "@ch", "hello", "", time.Now().UTC())
	require.NoError(t, err)

	exec.Deliver(context.Background(), id)

	assert.Equal(t, 1, sender.sentCount())
	post, err := fix.posts.Deliverable(id)
	require.NoError(t, err)
	assert.Nil(t, post)
}

func TestDeliverConcurrentSingleSend(t *testing.T) {
	fix := newFixture(t)
	sender := &fakeSender{block: make(chan struct{})}
	exec := NewExecutor(fix.posts, sender, &fakeNotifier{})

	id, err := fix.posts.Create(fix.userID, "@ch", "hello", "", time.Now().UTC())
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			exec.Deliver(context.Background(), id)
		}()
	}

	// Give the winning goroutine time to enter SendPost, then release it.
	time.Sleep(50 * time.Millisecond)
	close(sender.block)
	wg.Wait()

	assert.Equal(t, 1, sender.sentCount())
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("short", 100))
	long := "это длинный текст с юникодом внутри"
	assert.Equal(t, string([]rune(long)[:10])+"...", preview(long, 10))
}
