// internal/app/system/workers/sessionexpiry.go
package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Expirer removes expired identity sessions and reports how many it removed.
type Expirer interface {
	ExpireSessions(ctx context.Context) (int, error)
}

// SessionExpiry is a background worker that sweeps expired identity sessions
// so signed-in state clears without waiting for a read.
type SessionExpiry struct {
	expirer  Expirer
	log      *zap.Logger
	interval time.Duration
	timeout  time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewSessionExpiry creates a new session expiry worker.
//
// Parameters:
//   - expirer: usually the identity provider
//   - logger: zap logger for logging
//   - interval: how often to sweep (e.g., 1 minute)
func NewSessionExpiry(expirer Expirer, logger *zap.Logger, interval time.Duration) *SessionExpiry {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SessionExpiry{
		expirer:  expirer,
		log:      logger,
		interval: interval,
		timeout:  30 * time.Second,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (w *SessionExpiry) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("session expiry worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish. Safe to call twice.
func (w *SessionExpiry) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
	w.log.Info("session expiry worker stopped")
}

func (w *SessionExpiry) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.Sweep()
		}
	}
}

// Sweep runs a single expiry pass.
func (w *SessionExpiry) Sweep() int {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	count, err := w.expirer.ExpireSessions(ctx)
	if err != nil {
		w.log.Error("failed to expire sessions", zap.Error(err))
	}
	if count > 0 {
		w.log.Info("expired identity sessions", zap.Int("count", count))
	}
	return count
}
