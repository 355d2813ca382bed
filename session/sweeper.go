package session

import (
	"context"
	"sync"
	"time"

	"github.com/coreremoting/coreremoting/internal/logger"
)

// defaultSweepInterval matches spec §4.6's stated default when a
// deployment does not override inactive_session_sweep_interval_s.
const defaultSweepInterval = 60 * time.Second

// Sweeper periodically disposes sessions whose last activity predates
// now - inactivityCeiling (spec §4.6 sweep()), grounded directly on the
// teacher's pkg/cache/flusher ticker+context-cancellation loop.
type Sweeper struct {
	registry          *Registry
	sweepInterval     time.Duration
	inactivityCeiling time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	onExpired func(*Session)
}

// NewSweeper builds a Sweeper over registry. inactivityCeiling of 0
// disables sweeping entirely, matching spec §4.6 ("if
// inactive_ceiling > 0"). sweepInterval of 0 selects defaultSweepInterval.
func NewSweeper(registry *Registry, sweepInterval, inactivityCeiling time.Duration) *Sweeper {
	if sweepInterval <= 0 {
		sweepInterval = defaultSweepInterval
	}
	return &Sweeper{
		registry:          registry,
		sweepInterval:     sweepInterval,
		inactivityCeiling: inactivityCeiling,
	}
}

// OnExpired sets a hook invoked once per session the sweeper removes,
// after disposal, for metrics/logging callers.
func (s *Sweeper) OnExpired(fn func(*Session)) {
	s.onExpired = fn
}

// Start launches the background sweep goroutine. It is a no-op if
// inactivityCeiling is 0.
func (s *Sweeper) Start(ctx context.Context) {
	if s.inactivityCeiling <= 0 {
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run()
}

// Stop cancels the sweep loop and blocks until it exits.
func (s *Sweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.sweep(time.Now())
		}
	}
}

// sweep removes and disposes every session whose last activity predates
// now - inactivityCeiling (spec §4.6).
func (s *Sweeper) sweep(now time.Time) {
	threshold := now.Add(-s.inactivityCeiling)

	for _, sess := range s.registry.Iterate() {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		if sess.LastActivityAt().After(threshold) {
			continue
		}

		s.registry.Remove(sess.ID)
		if err := sess.Dispose(); err != nil {
			logger.Warn("session sweeper: dispose error", "session_id", sess.ID.String(), "error", err)
		} else {
			logger.Debug("session_expired", "session_id", sess.ID.String(), "peer_address", sess.PeerAddress)
		}
		if s.onExpired != nil {
			s.onExpired(sess)
		}
	}
}
