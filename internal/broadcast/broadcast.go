// Package broadcast fans one administrator message out to every registered
// user.
package broadcast

import (
	"context"
	"fmt"
	"time"

	"github.com/user/postplanner/internal/delivery"
	"github.com/user/postplanner/internal/metrics"
	"github.com/user/postplanner/internal/storage"
	"github.com/user/postplanner/pkg/logger"
)

// Result summarizes a completed fan-out.
type Result struct {
	BroadcastID int64
	Total       int
	Sent        int
	Failed      int
}

// Broadcaster performs admin fan-outs. Per-user failures (blocked bot,
// deleted account) are counted and skipped, never abort the run.
type Broadcaster struct {
	users      *storage.UserStore
	broadcasts *storage.BroadcastStore
	notifier   delivery.Notifier
	sendDelay  time.Duration
}

// New creates a new broadcaster.
func New(users *storage.UserStore, broadcasts *storage.BroadcastStore, notifier delivery.Notifier, sendDelay time.Duration) *Broadcaster {
	if sendDelay <= 0 {
		sendDelay = 100 * time.Millisecond
	}
	return &Broadcaster{
		users:      users,
		broadcasts: broadcasts,
		notifier:   notifier,
		sendDelay:  sendDelay,
	}
}

// Run records the broadcast, sends it to all users with an inter-send delay
// to respect the transport's throughput limits, and stores the final sent
// count.
func (b *Broadcaster) Run(ctx context.Context, text string) (*Result, error) {
	users, err := b.users.All()
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	broadcastID, err := b.broadcasts.Create(text)
	if err != nil {
		return nil, fmt.Errorf("failed to record broadcast: %w", err)
	}

	res := &Result{BroadcastID: broadcastID, Total: len(users)}

	for i, user := range users {
		if ctx.Err() != nil {
			break
		}

		if err := b.notifier.Notify(ctx, user.TelegramID, text); err != nil {
			res.Failed++
			logger.Warn().
				Err(err).
				Int64("telegram_id", user.TelegramID).
				Msg("Failed to deliver broadcast message")
		} else {
			res.Sent++
			metrics.BroadcastsSent.Inc()
		}

		if i < len(users)-1 {
			select {
			case <-ctx.Done():
			case <-time.After(b.sendDelay):
			}
		}
	}

	if err := b.broadcasts.SetSentCount(broadcastID, res.Sent); err != nil {
		logger.Error().Err(err).Int64("broadcast_id", broadcastID).Msg("Failed to update broadcast stats")
	}

	logger.Info().
		Int64("broadcast_id", broadcastID).
		Int("total", res.Total).
		Int("sent", res.Sent).
		Int("failed", res.Failed).
		Msg("Broadcast completed")

	return res, nil
}
