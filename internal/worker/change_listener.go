package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/polkiloo/labtracker/internal/domain/model"
	"github.com/polkiloo/labtracker/internal/domain/repository"
)

// LabFacade exposes the subset of application functionality required by the worker.
type LabFacade interface {
	ApplyRemoteChange(ev model.ChangeEvent)
	Reload(ctx context.Context) error
	SweepIdleViews() int
}

// ChangeListener keeps the change feed subscription alive and periodically
// drops idle browser views.
type ChangeListener struct {
	feed          repository.ChangeFeed
	facade        LabFacade
	retryInterval time.Duration
	sweepInterval time.Duration
	logger        *slog.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewChangeListener constructs the listener.
func NewChangeListener(feed repository.ChangeFeed, facade LabFacade, retryInterval, sweepInterval time.Duration, logger *slog.Logger) *ChangeListener {
	if retryInterval <= 0 {
		retryInterval = time.Second
	}
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	return &ChangeListener{
		feed:          feed,
		facade:        facade,
		retryInterval: retryInterval,
		sweepInterval: sweepInterval,
		logger:        logger,
	}
}

// Start launches background processing.
func (l *ChangeListener) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel

	l.wg.Add(2)
	go l.listen(runCtx)
	go l.sweep(runCtx)
}

// Stop waits for the background goroutines to finish.
func (l *ChangeListener) Stop() {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.mu.Unlock()

	l.wg.Wait()
}

func (l *ChangeListener) listen(ctx context.Context) {
	defer l.wg.Done()

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			// events may have been missed while disconnected
			if err := l.facade.Reload(ctx); err != nil && ctx.Err() == nil {
				l.logger.Error("reload orders failed", slog.String("error", err.Error()))
			}
		}

		err := l.feed.Listen(ctx, l.facade.ApplyRemoteChange)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			l.logger.Warn("change feed interrupted", slog.String("error", err.Error()), slog.Duration("retry_in", l.retryInterval))
		}

		timer := time.NewTimer(l.retryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (l *ChangeListener) sweep(ctx context.Context) {
	defer l.wg.Done()
	ticker := time.NewTicker(l.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := l.facade.SweepIdleViews(); n > 0 {
				l.logger.Info("dropped idle views", slog.Int("count", n))
			}
		}
	}
}
