package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dl-alexandre/gdsync/internal/types"
	"github.com/rjeczalik/notify"
)

func TestTranslate(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "a.txt")
	dir := filepath.Join(root, "photos")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatal(err)
	}

	w := New(root, 0, nil)

	tests := []struct {
		name   string
		event  notify.Event
		path   string
		want   types.LocalChangeEvent
		wantOK bool
	}{
		{"create file", notify.Create, file, types.LocalChangeEvent{Path: file, Kind: types.ChangeCreated}, true},
		{"write file", notify.Write, file, types.LocalChangeEvent{Path: file, Kind: types.ChangeModified}, true},
		{"create dir", notify.Create, dir, types.LocalChangeEvent{Path: dir, Kind: types.ChangeCreated, IsDir: true}, true},
		{"rename into place", notify.Rename, file, types.LocalChangeEvent{Path: file, Kind: types.ChangeCreated}, true},
		{"rename away", notify.Rename, filepath.Join(root, "moved.txt"), types.LocalChangeEvent{Path: filepath.Join(root, "moved.txt"), Kind: types.ChangeDeleted}, true},
		{"create vanished", notify.Create, filepath.Join(root, "gone.tmp"), types.LocalChangeEvent{}, false},
		{"remove file", notify.Remove, file, types.LocalChangeEvent{Path: file, Kind: types.ChangeDeleted}, true},
		{"remove known dir", notify.Remove, dir, types.LocalChangeEvent{Path: dir, Kind: types.ChangeDeleted, IsDir: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := w.translate(tt.event, tt.path)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("translate = %+v, %v; want %+v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}

	if w.dirs.Contains(dir) {
		t.Error("removed directory should be forgotten")
	}
}

func TestSeedDirs(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	w := New(root, 0, nil)
	if err := w.seedDirs(root); err != nil {
		t.Fatalf("seedDirs: %v", err)
	}

	ev := w.removed(nested)
	if !ev.IsDir {
		t.Error("pre-existing directory should be known")
	}
}

func TestExpand_MovedInDirectory(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	album := filepath.Join(outside, "album")
	for _, name := range []string{"one.jpg", filepath.Join("raw", "two.cr2")} {
		path := filepath.Join(album, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(name), 0644); err != nil {
			t.Fatal(err)
		}
	}
	moved := filepath.Join(root, "album")
	if err := os.Rename(album, moved); err != nil {
		t.Fatal(err)
	}

	w := New(root, 0, nil)
	event, ok := w.translate(notify.Rename, moved)
	if !ok || !event.IsDir {
		t.Fatalf("translate = %+v, %v", event, ok)
	}

	got := w.expand(event)
	want := []types.LocalChangeEvent{
		{Path: moved, Kind: types.ChangeCreated, IsDir: true},
		{Path: filepath.Join(moved, "one.jpg"), Kind: types.ChangeCreated},
		{Path: filepath.Join(moved, "raw", "two.cr2"), Kind: types.ChangeCreated},
	}
	if len(got) != len(want) {
		t.Fatalf("expand = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if !w.dirs.Contains(filepath.Join(moved, "raw")) {
		t.Error("nested directory should be tracked for later deletes")
	}
}

func TestExpand_LeavesFileEventsAlone(t *testing.T) {
	w := New(t.TempDir(), 0, nil)
	ev := types.LocalChangeEvent{Path: "/data/a.txt", Kind: types.ChangeModified}
	if got := w.expand(ev); len(got) != 1 || got[0] != ev {
		t.Errorf("expand = %+v", got)
	}
}

type collectingSink struct {
	mu     sync.Mutex
	events []types.LocalChangeEvent
}

func (s *collectingSink) Dispatch(event types.LocalChangeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *collectingSink) has(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range s.events {
		if ev.Path == path && !ev.IsDir && ev.Kind != types.ChangeDeleted {
			return true
		}
	}
	return false
}

func TestRun_DeliversFileEvents(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	sink := &collectingSink{}
	w := New(root, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, sink) }()

	// Give the watch time to register.
	time.Sleep(200 * time.Millisecond)

	path := filepath.Join(root, "report.pdf")
	if err := os.WriteFile(path, []byte("%PDF"), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for !sink.has(path) && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !sink.has(path) {
		t.Fatal("expected an event for the new file")
	}
}
