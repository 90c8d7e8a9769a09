package main

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch keeps the index synchronized with the folder until ctx is canceled.
// Filesystem events are merged over a short delay, then resolved with one
// delta sync; editors that write through temp files produce event bursts that
// would otherwise trigger a sync per event.
func (ix *Indexer) Watch(ctx context.Context, mergeEventsDelay time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := watchRecursive(watcher, ix.root); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()

		var timer *time.Timer
		var fire <-chan time.Time

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op.Has(fsnotify.Create) {
					// new subdirectories need their own watch
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						_ = watchRecursive(watcher, event.Name)
					}
				}
				if timer == nil {
					timer = time.NewTimer(mergeEventsDelay)
				} else {
					timer.Reset(mergeEventsDelay)
				}
				fire = timer.C

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				ix.log.Warn("file watcher error", "error", err)

			case <-fire:
				fire = nil
				if err := ix.SyncDelta(ctx); err != nil {
					ix.log.Error("delta sync failed", "error", err)
				}
			}
		}
	}()

	return nil
}

func watchRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
