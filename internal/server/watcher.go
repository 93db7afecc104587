package server

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/ai4p/usagedash/internal/logging"
)

// watchOutput broadcasts a reload to connected dashboards whenever the
// published report changes on disk. The publish is an atomic rename, which
// shows up as a Create for the final name; a plain Write covers edits made
// by hand or by an older copy of the generator. Writes may come from this
// process or from a separate refresh run against the same output dir.
func (s *Server) watchOutput(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logging.Warnf("Live reload disabled: %v", err)
		return
	}
	defer watcher.Close()

	if err := watcher.Add(s.cfg.Output.Dir); err != nil {
		logging.Warnf("Live reload disabled: cannot watch %s: %v", s.cfg.Output.Dir, err)
		return
	}

	logging.Debugf("Watching %s for report updates", s.cfg.Output.Dir)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != s.cfg.Output.File {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Rename) {
				logging.Debugf("Report updated on disk, notifying %d client(s)", s.hub.ClientCount())
				s.hub.NotifyReload()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.Warnf("Output watcher error: %v", err)
		}
	}
}
