package status

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/msageha/buildq/internal/logging"
)

// DefaultDebounce coalesces the burst of events an atomic write produces
// (temp create, write, rename).
const DefaultDebounce = 100 * time.Millisecond

// Watch calls refresh once immediately and again after every settled burst
// of changes in dirs, until ctx is cancelled. Missing dirs are skipped.
func Watch(ctx context.Context, dirs []string, debounce time.Duration, log *logging.Logger, refresh func() error) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	watched := 0
	for _, dir := range dirs {
		if _, err := os.Stat(dir); err != nil {
			log.Debugf("watch skip %s: %v", dir, err)
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		watched++
	}
	if watched == 0 {
		return fmt.Errorf("watch: none of %v exist", dirs)
	}

	if err := refresh(); err != nil {
		return err
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			log.Debugf("fsnotify event=%s file=%s", event.Op, event.Name)
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warnf("fsnotify error=%v", err)
		case <-timer.C:
			if err := refresh(); err != nil {
				return err
			}
		}
	}
}
