package localstore

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"time"
)

// Poll watches keys under prefix by diffing snapshots every interval, for
// stores that cannot report changes themselves. It blocks until ctx is done.
func Poll(ctx context.Context, store Store, prefix string, interval time.Duration, fn ChangeFunc, logger *slog.Logger) {
	prev, err := store.Snapshot(ctx, prefix)
	if err != nil {
		logger.WarnContext(ctx, "initial localstore snapshot failed", "error", err)
		prev = map[string][]byte{}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		cur, err := store.Snapshot(ctx, prefix)
		if err != nil {
			logger.WarnContext(ctx, "localstore snapshot failed", "error", err)
			continue
		}
		for k, v := range cur {
			if old, ok := prev[k]; !ok || !bytes.Equal(old, v) {
				fn(k, v, true)
			}
		}
		for k := range prev {
			if _, ok := cur[k]; !ok {
				fn(k, nil, false)
			}
		}
		prev = cur
	}
}

// Follow delivers changes under prefix to fn, natively when the store is a
// Watcher and by polling otherwise (or when forcePoll is set). It blocks
// until ctx is done.
func Follow(ctx context.Context, store Store, prefix string, forcePoll bool, interval time.Duration, fn ChangeFunc, logger *slog.Logger) {
	if w, ok := store.(Watcher); ok && !forcePoll {
		stop := w.Watch(func(key string, value []byte, present bool) {
			if strings.HasPrefix(key, prefix) {
				fn(key, value, present)
			}
		})
		defer stop()
		<-ctx.Done()
		return
	}
	logger.InfoContext(ctx, "following localstore by polling", "interval", interval)
	Poll(ctx, store, prefix, interval, fn, logger)
}
