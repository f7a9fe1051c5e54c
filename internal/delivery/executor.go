// Package delivery performs the send-and-commit sequence for scheduled posts.
package delivery

import (
	"context"
	"fmt"
	"sync"

	"github.com/user/postplanner/internal/metrics"
	"github.com/user/postplanner/internal/storage"
	"github.com/user/postplanner/pkg/logger"
)

// Sender delivers post content to a destination channel. The executor treats
// it as an opaque capability; failures are retryable by the next sweep.
type Sender interface {
	SendPost(ctx context.Context, channelID, text, photoID string) error
}

// Notifier sends a best-effort message to a user's private chat.
type Notifier interface {
	Notify(ctx context.Context, telegramID int64, text string) error
}

// Executor loads a due post, attempts exactly one delivery and records the
// outcome. It is the only component that performs the send-and-commit
// sequence; both the one-shot timers and the catch-up sweep route through it.
type Executor struct {
	store    *storage.PostStore
	sender   Sender
	notifier Notifier

	mu       sync.Mutex
	inFlight map[int64]struct{}
}

// NewExecutor creates a new delivery executor.
func NewExecutor(store *storage.PostStore, sender Sender, notifier Notifier) *Executor {
	return &Executor{
		store:    store,
		sender:   sender,
		notifier: notifier,
		inFlight: make(map[int64]struct{}),
	}
}

// Deliver attempts delivery of one post. Safe against double invocation: a
// timer fire and a sweep targeting the same post concurrently result in a
// single outbound send. Never panics or propagates an error to the caller;
// a failed post stays unpublished and is re-discovered by the next sweep.
func (e *Executor) Deliver(ctx context.Context, postID int64) {
	if !e.begin(postID) {
		logger.Debug().Int64("post_id", postID).Msg("Delivery already in flight, skipping")
		return
	}
	defer e.end(postID)

	post, err := e.store.Deliverable(postID)
	if err != nil {
		logger.Error().Err(err).Int64("post_id", postID).Msg("Failed to load post for delivery")
		return
	}
	if post == nil {
		// Missing or already published: the normal outcome of timer/sweep overlap.
		logger.Debug().Int64("post_id", postID).Msg("Post not found or already published")
		return
	}

	if !post.ChannelActive {
		// Abandoned: stays unpublished and keeps resurfacing in due scans
		// until an operator intervenes.
		metrics.PostsAbandoned.Inc()
		logger.Warn().
			Int64("post_id", postID).
			Str("channel", post.ChannelIdent).
			Msg("Destination channel deactivated, skipping delivery")
		return
	}

	if err := e.sender.SendPost(ctx, post.ChannelIdent, post.Text, post.PhotoID); err != nil {
		metrics.DeliveryFailures.Inc()
		logger.Error().
			Err(err).
			Int64("post_id", postID).
			Str("channel", post.ChannelIdent).
			Msg("Failed to deliver post")
		return
	}

	transitioned, err := e.store.MarkPublished(postID)
	if err != nil {
		// The send went out but the commit failed; the next sweep will retry
		// and the idempotent mark keeps the audit trail consistent.
		logger.Error().Err(err).Int64("post_id", postID).Msg("Failed to mark post published")
		return
	}
	if !transitioned {
		logger.Warn().Int64("post_id", postID).Msg("Post was already marked published")
		return
	}

	metrics.PostsPublished.Inc()
	logger.Info().
		Int64("post_id", postID).
		Str("channel", post.ChannelIdent).
		Msg("Post published")

	// Best-effort success notification; a failure here must not affect the
	// committed publication.
	notice := fmt.Sprintf("Your scheduled post was published.\n\n%s", preview(post.Text, 100))
	if err := e.notifier.Notify(ctx, post.OwnerTelegramID, notice); err != nil {
		logger.Warn().
			Err(err).
			Int64("telegram_id", post.OwnerTelegramID).
			Msg("Failed to notify user about publication")
	}
}

// begin claims the in-flight slot for a post. Returns false when another
// delivery of the same post is running.
func (e *Executor) begin(postID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inFlight[postID]; busy {
		return false
	}
	e.inFlight[postID] = struct{}{}
	return true
}

func (e *Executor) end(postID int64) {
	e.mu.Lock()
	delete(e.inFlight, postID)
	e.mu.Unlock()
}

// preview truncates text to at most n runes for notification messages.
func preview(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
