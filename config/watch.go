package config

import (
	"context"
	"time"

	"github.com/radovskyb/watcher"
)

// PollInterval is how often Watch checks the file.
const PollInterval = 500 * time.Millisecond

// Watch calls fn with the re-read config every time the file at path is
// written, until ctx ends. A config that fails to load is passed as err.
// Watch blocks; run it in a goroutine.
func Watch(ctx context.Context, path string, fn func(*Config, error)) error {
	w := watcher.New()
	w.SetMaxEvents(1)
	w.FilterOps(watcher.Write, watcher.Create)

	if err := w.Add(path); err != nil {
		return err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				w.Close()
				return
			case <-w.Event:
				fn(Load(path))
			case err := <-w.Error:
				fn(nil, err)
			case <-w.Closed:
				return
			}
		}
	}()

	return w.Start(PollInterval)
}
