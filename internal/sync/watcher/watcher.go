package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dl-alexandre/gdsync/internal/logging"
	"github.com/dl-alexandre/gdsync/internal/types"
	"github.com/rjeczalik/notify"
)

const defaultBuffer = 1024

// Sink accepts translated events
type Sink interface {
	Dispatch(event types.LocalChangeEvent) error
}

// Watcher turns recursive filesystem notifications under root into change events
type Watcher struct {
	root   string
	events chan notify.EventInfo
	dirs   mapset.Set[string]
	logger logging.Logger
}

// New creates a watcher. Notifications are buffered since notify drops events
// when the receiver is not ready.
func New(root string, buffer int, logger logging.Logger) *Watcher {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Watcher{
		root:   root,
		events: make(chan notify.EventInfo, buffer),
		dirs:   mapset.NewSet[string](),
		logger: logger,
	}
}

// Run watches until ctx is cancelled or the sink rejects an event. The watch is
// always released before Run returns.
func (w *Watcher) Run(ctx context.Context, sink Sink) error {
	root, err := filepath.Abs(w.root)
	if err != nil {
		return err
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	if err := w.seedDirs(root); err != nil {
		return err
	}

	if err := notify.Watch(filepath.Join(root, "..."), w.events,
		notify.Create, notify.Write, notify.Remove, notify.Rename); err != nil {
		return err
	}
	defer func() {
		notify.Stop(w.events)
		w.logger.Info("File watcher stopped", logging.F("dir", root))
	}()
	w.logger.Info("File watcher started", logging.F("dir", root))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ei := <-w.events:
			event, ok := w.translate(ei.Event(), ei.Path())
			if !ok {
				continue
			}
			w.logger.Debug("Filesystem event",
				logging.F("path", event.Path),
				logging.F("event", event.Kind.String()),
				logging.F("isDir", event.IsDir),
			)
			for _, ev := range w.expand(event) {
				if err := sink.Dispatch(ev); err != nil {
					return err
				}
			}
		}
	}
}

// translate maps one notification onto a change event. A rename is reported
// as a creation when the path exists afterwards and as a deletion otherwise.
func (w *Watcher) translate(event notify.Event, path string) (types.LocalChangeEvent, bool) {
	switch {
	case event&notify.Create != 0:
		return w.present(path, types.ChangeCreated)
	case event&notify.Write != 0:
		return w.present(path, types.ChangeModified)
	case event&notify.Remove != 0:
		return w.removed(path), true
	case event&notify.Rename != 0:
		if _, err := os.Lstat(path); err == nil {
			return w.present(path, types.ChangeCreated)
		}
		return w.removed(path), true
	}
	return types.LocalChangeEvent{}, false
}

func (w *Watcher) present(path string, kind types.ChangeKind) (types.LocalChangeEvent, bool) {
	info, err := os.Lstat(path)
	if err != nil {
		// Gone already; the removal notification follows.
		return types.LocalChangeEvent{}, false
	}
	if info.IsDir() {
		w.dirs.Add(path)
		return types.LocalChangeEvent{Path: path, Kind: kind, IsDir: true}, true
	}
	if !info.Mode().IsRegular() {
		return types.LocalChangeEvent{}, false
	}
	return types.LocalChangeEvent{Path: path, Kind: kind}, true
}

// expand follows a directory appearing in the tree with a Created event for
// every regular file beneath it. A directory moved in from outside produces a
// single notification, so its contents would otherwise never be seen. Files
// written into a fresh directory may be reported twice; the second event
// reconciles to a replace of identical content.
func (w *Watcher) expand(event types.LocalChangeEvent) []types.LocalChangeEvent {
	events := []types.LocalChangeEvent{event}
	if !event.IsDir || event.Kind != types.ChangeCreated {
		return events
	}
	err := filepath.WalkDir(event.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil || path == event.Path {
			return nil
		}
		if d.IsDir() {
			w.dirs.Add(path)
			return nil
		}
		if d.Type().IsRegular() {
			events = append(events, types.LocalChangeEvent{Path: path, Kind: types.ChangeCreated})
		}
		return nil
	})
	if err != nil {
		w.logger.Warn("Failed to scan new directory", logging.F("dir", event.Path), logging.F("error", err.Error()))
	}
	return events
}

func (w *Watcher) removed(path string) types.LocalChangeEvent {
	isDir := w.dirs.Contains(path)
	if isDir {
		w.dirs.Remove(path)
	}
	return types.LocalChangeEvent{Path: path, Kind: types.ChangeDeleted, IsDir: isDir}
}

func (w *Watcher) seedDirs(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if d.IsDir() {
			w.dirs.Add(path)
		}
		return nil
	})
}
