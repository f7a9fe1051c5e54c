package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/user/postplanner/internal/metrics"
	"github.com/user/postplanner/internal/storage"
	"github.com/user/postplanner/pkg/logger"
)

// Sweeper is the periodic safety net behind the one-shot timers: it scans
// for posts that are due but unpublished (missed fires, restarts, past-due
// rows) and funnels them through the same delivery entry point. Overlap with
// a timer fire is expected and harmless, the executor is idempotent per post.
type Sweeper struct {
	store     *storage.PostStore
	deliver   DeliverFunc
	interval  time.Duration
	lookahead time.Duration
	sendDelay time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSweeper creates a new catch-up sweeper.
func NewSweeper(store *storage.PostStore, deliver DeliverFunc, interval, lookahead, sendDelay time.Duration) *Sweeper {
	ctx, cancel := context.WithCancel(context.Background())

	if interval <= 0 {
		interval = time.Minute
	}
	if lookahead <= 0 {
		lookahead = 5 * time.Minute
	}

	return &Sweeper{
		store:     store,
		deliver:   deliver,
		interval:  interval,
		lookahead: lookahead,
		sendDelay: sendDelay,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start begins the sweep loop.
func (s *Sweeper) Start() {
	s.wg.Add(1)
	go s.loop()
	logger.Info().
		Dur("interval", s.interval).
		Dur("lookahead", s.lookahead).
		Msg("Catch-up sweeper started")
}

// Stop gracefully stops the sweeper.
func (s *Sweeper) Stop() {
	logger.Info().Msg("Stopping catch-up sweeper")
	s.cancel()
	s.wg.Wait()
}

func (s *Sweeper) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep runs one catch-up pass: every due, unpublished post with an active
// channel goes through the delivery executor, earliest first, with a small
// delay between posts to stay under the transport's rate limits.
func (s *Sweeper) Sweep() {
	metrics.SweepRuns.Inc()

	posts, err := s.store.Due(time.Now(), s.lookahead)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to query due posts")
		return
	}

	if len(posts) == 0 {
		return
	}

	logger.Debug().Int("count", len(posts)).Msg("Sweeping due posts")

	for i, post := range posts {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		s.deliver(s.ctx, post.ID)

		if s.sendDelay > 0 && i < len(posts)-1 {
			select {
			case <-s.ctx.Done():
				return
			case <-time.After(s.sendDelay):
			}
		}
	}
}
