package workers

import (
	"time"

	"github.com/tavern-tools/register/internal/limiter"
	"github.com/tavern-tools/register/internal/logger"
	"github.com/tavern-tools/register/internal/session"
)

// Workers aggregates the background workers of the process.
type Workers struct {
	workers []Worker
}

// NewWorkers assembles the standard worker set: the periodic cleanup of
// expired sessions and stale login-attempt records.
func NewWorkers(sessions session.Store, attempts *limiter.Limiter, interval time.Duration, log *logger.Logger) *Workers {
	return &Workers{
		workers: []Worker{
			newCleanupWorker(sessions, attempts, interval, log),
		},
	}
}

// Run starts every worker.
func (w *Workers) Run() {
	for _, worker := range w.workers {
		worker.Run()
	}
}

// cleanupWorker sweeps the session store and the login-attempt tracker on a
// fixed interval. Both stores are process-local, so unbounded growth is the
// only risk being managed here.
type cleanupWorker struct {
	sessions session.Store
	attempts *limiter.Limiter
	interval time.Duration
	logger   *logger.Logger
}

func newCleanupWorker(sessions session.Store, attempts *limiter.Limiter, interval time.Duration, log *logger.Logger) *cleanupWorker {
	return &cleanupWorker{
		sessions: sessions,
		attempts: attempts,
		interval: interval,
		logger:   log,
	}
}

// Run spawns the sweep loop. The worker lives for the whole process; there
// is no stop signal because the stores it touches die with the process too.
func (w *cleanupWorker) Run() {
	w.logger.Info().Dur("interval", w.interval).Msg("cleanup worker started")

	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for range ticker.C {
			sessionsRemoved := w.sessions.Sweep()
			attemptsRemoved := w.attempts.Cleanup()

			if sessionsRemoved > 0 || attemptsRemoved > 0 {
				w.logger.Debug().
					Int("sessions_removed", sessionsRemoved).
					Int("attempt_records_removed", attemptsRemoved).
					Msg("cleanup sweep completed")
			}
		}
	}()
}
