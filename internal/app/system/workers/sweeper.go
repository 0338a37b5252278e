// internal/app/system/workers/sweeper.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/crushnote/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Cleaner deletes expired records and reports how many it removed.
type Cleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// Sweeper periodically calls a Cleaner. TTL indexes remove the same
// documents eventually; the sweeper covers servers where the TTL monitor is
// slow or unavailable.
type Sweeper struct {
	name     string
	cleaner  Cleaner
	log      *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// NewSweeper creates a sweeper that runs every interval once started.
func NewSweeper(name string, cleaner Cleaner, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		name:     name,
		cleaner:  cleaner,
		log:      logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background loop.
func (w *Sweeper) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("sweeper started",
		zap.String("sweeper", w.name),
		zap.Duration("interval", w.interval))
}

// Stop signals the loop to exit and waits for it. Safe to call more than once.
func (w *Sweeper) Stop() {
	w.once.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		w.log.Info("sweeper stopped", zap.String("sweeper", w.name))
	})
}

func (w *Sweeper) run() {
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

// Sweep runs one cleanup pass.
func (w *Sweeper) Sweep() int64 {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Medium())
	defer cancel()

	count, err := w.cleaner.CleanupExpired(ctx)
	if err != nil {
		w.log.Error("sweep failed", zap.String("sweeper", w.name), zap.Error(err))
		return 0
	}
	if count > 0 {
		w.log.Info("swept expired records",
			zap.String("sweeper", w.name),
			zap.Int64("count", count))
	}
	return count
}
