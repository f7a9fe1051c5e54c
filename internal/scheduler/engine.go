// Package scheduler maintains the in-memory timer set that drives post
// delivery, plus the periodic catch-up sweep.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/user/postplanner/pkg/logger"
)

// DeliverFunc is the delivery entry point invoked when a post comes due.
type DeliverFunc func(ctx context.Context, postID int64)

type armedTimer struct {
	timer *time.Timer
	gen   uint64
}

// Engine maintains one armed one-shot timer per live scheduled post. All of
// its state is transient; it is rebuilt from the post store on startup. The
// engine never retries a failed delivery itself, that is the sweep's job.
type Engine struct {
	deliver DeliverFunc

	mu     sync.Mutex
	timers map[int64]armedTimer
	gen    uint64

	ctx    context.Context
	cancel context.CancelFunc
}

// NewEngine creates a new scheduling engine.
func NewEngine(deliver DeliverFunc) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		deliver: deliver,
		timers:  make(map[int64]armedTimer),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Arm schedules a one-shot delivery at dueAt. An existing timer for the same
// post is replaced, so a cancel-and-reschedule is a single call.
func (e *Engine) Arm(postID int64, dueAt time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cur, ok := e.timers[postID]; ok {
		cur.timer.Stop()
	}

	// The generation guard keeps a stale fire of a replaced timer from
	// delivering; time.Timer.Stop cannot prevent a callback already racing.
	e.gen++
	gen := e.gen

	d := time.Until(dueAt)
	if d < 0 {
		d = 0
	}
	e.timers[postID] = armedTimer{
		timer: time.AfterFunc(d, func() { e.fire(postID, gen) }),
		gen:   gen,
	}

	logger.Debug().Int64("post_id", postID).Time("due_at", dueAt).Msg("Timer armed")
}

// Cancel removes an armed timer. No-op when none exists.
func (e *Engine) Cancel(postID int64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cur, ok := e.timers[postID]; ok {
		cur.timer.Stop()
		delete(e.timers, postID)
		logger.Debug().Int64("post_id", postID).Msg("Timer cancelled")
	}
}

// Rebuild clears all one-shot timers and re-arms one per entry. Called once
// at startup so schedules persisted before a restart are not lost.
func (e *Engine) Rebuild(entries map[int64]time.Time) {
	e.mu.Lock()
	for id, cur := range e.timers {
		cur.timer.Stop()
		delete(e.timers, id)
	}
	e.mu.Unlock()

	for id, dueAt := range entries {
		e.Arm(id, dueAt)
	}

	logger.Info().Int("count", len(entries)).Msg("Timers rebuilt from store")
}

// Armed returns the number of currently armed timers.
func (e *Engine) Armed() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.timers)
}

// Stop cancels all timers and suppresses any in-flight fire callbacks.
func (e *Engine) Stop() {
	e.cancel()
	e.mu.Lock()
	for id, cur := range e.timers {
		cur.timer.Stop()
		delete(e.timers, id)
	}
	e.mu.Unlock()
	logger.Info().Msg("Scheduling engine stopped")
}

// fire runs on the timer goroutine when a post comes due.
func (e *Engine) fire(postID int64, gen uint64) {
	e.mu.Lock()
	cur, ok := e.timers[postID]
	if !ok || cur.gen != gen {
		// Replaced or cancelled between the fire and this lock.
		e.mu.Unlock()
		return
	}
	delete(e.timers, postID)
	e.mu.Unlock()

	select {
	case <-e.ctx.Done():
		return
	default:
	}

	// A panicking delivery callback must not take down the process or
	// corrupt the timer set; the post stays unpublished for the next sweep.
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Int64("post_id", postID).Interface("panic", r).Msg("Delivery callback panicked")
		}
	}()

	e.deliver(e.ctx, postID)
}
