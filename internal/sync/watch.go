package sync

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/skillmeat/skillmeat/internal/collection"
	"github.com/skillmeat/skillmeat/internal/obs"
)

// debounceWindow coalesces bursts of filesystem events (an editor saving
// several artifact files in quick succession) into a single recovery
// pass rather than one per event.
const debounceWindow = 500 * time.Millisecond

// Watch monitors the collection root directory and collection.toml for
// changes and calls Recover each time they settle, keeping the cache
// from drifting out of sync with manual edits to the filesystem. The
// watches are not recursive: changes inside subdirectories of the root
// are not seen. It blocks until ctx is canceled.
func (s *Syncer) Watch(ctx context.Context, collectionID string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(s.Root); err != nil {
		return err
	}
	manifestPath := filepath.Join(s.Root, collection.ManifestFilename)
	if err := watcher.Add(manifestPath); err != nil {
		obs.Debugf("sync: collection manifest not yet present, watching root only: %v", err)
	}

	var timer *time.Timer
	pending := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceWindow, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			obs.Warnf("sync: watcher error: %v", err)

		case <-pending:
			if err := s.recoverOnce(ctx, collectionID); err != nil {
				obs.Warnf("sync: recovery after filesystem change failed: %v", err)
			}
		}
	}
}
