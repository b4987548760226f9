package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// CompactionWorker runs Badger's value-log garbage collection on a timer.
// Badger never reclaims value-log space on its own; without this the message
// history directory grows without bound.
type CompactionWorker struct {
	log      *slog.Logger
	db       *badger.DB
	interval time.Duration
}

func NewCompactionWorker(log *slog.Logger, db *badger.DB, interval time.Duration) *CompactionWorker {
	return &CompactionWorker{log: log, db: db, interval: interval}
}

func (w *CompactionWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return ctx.Err()
		case <-ticker.C:
			// One pass per tick; ErrNoRewrite simply means nothing to do.
			err := w.db.RunValueLogGC(0.5)
			switch err {
			case nil:
				w.log.Debug("Value log GC pass rewrote a file")
			case badger.ErrNoRewrite:
			default:
				w.log.Warn("Value log GC failed", "error", err)
			}
		}
	}
}
