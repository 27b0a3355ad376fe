package worker

import (
	"context"
	"errors"
	"time"

	"vetdesk/internal/pkg/logger"
	"vetdesk/internal/queue"
	"vetdesk/internal/store"
)

// Start launches the recorder loop: it drains validation logs from q into s.
// It blocks until ctx is cancelled.
func Start(ctx context.Context, q queue.Queue, s store.LogStore) {
	logger.Info("recorder started, waiting for logs")

	for {
		if ctx.Err() != nil {
			logger.Info("recorder stopped")
			return
		}

		// 1. Wait for the next log
		l, err := q.Pop(ctx)
		if errors.Is(err, queue.ErrEmpty) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			logger.Error("queue pop failed", "error", err)
			sleep(ctx, time.Second) // Backoff on error
			continue
		}

		// 2. SAVE: a failed insert is logged and dropped
		saveCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = s.Record(saveCtx, l)
		cancel()
		if err != nil {
			logger.Error("failed to save validation log", "email", l.Email, "error", err)
			continue
		}
		logger.Debug("recorded", "email", l.Email, "score", l.Score)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
