package cli

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	mapset "github.com/deckarep/golang-set/v2"
	gdsync "github.com/dl-alexandre/gdsync/internal/sync"
	"github.com/dl-alexandre/gdsync/internal/sync/exclude"
	"github.com/dl-alexandre/gdsync/internal/types"
	"github.com/dl-alexandre/gdsync/internal/utils"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var syncFileCmd = &cobra.Command{
	Use:   "sync-file <path>...",
	Short: "Reconcile specific files once",
	Long: `Reconcile the given paths against the Drive folder once, as if each had
just changed. Existing files are uploaded or replaced, missing files are
deleted remotely. Directories are expanded to the files they contain.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSyncFile,
}

func init() {
	rootCmd.AddCommand(syncFileCmd)
}

// SyncFileResult summarizes a one-shot reconciliation
type SyncFileResult struct {
	Paths   int            `json:"paths"`
	Summary gdsync.Summary `json:"summary"`
}

func (r *SyncFileResult) Headers() []string {
	return []string{"Paths", "Uploaded", "Replaced", "Deleted", "Skipped", "Failed"}
}

func (r *SyncFileResult) Rows() [][]string {
	s := r.Summary
	return [][]string{{
		itoa(int64(r.Paths)),
		itoa(int64(s.Uploads)),
		itoa(int64(s.Replaces)),
		itoa(int64(s.Deletes)),
		itoa(int64(s.Skipped)),
		itoa(int64(s.Failed)),
	}}
}

func (r *SyncFileResult) EmptyMessage() string {
	return "Nothing to reconcile"
}

func runSyncFile(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)
	cfg := appConfig

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, err := resolveRoot(cfg.LocalFolder)
	if err != nil {
		return handleError(out, "sync-file", err)
	}
	matcher, err := exclude.Load(root, cfg.ExcludePatterns, cfg.IncludePatterns)
	if err != nil {
		return handleError(out, "sync-file", err)
	}

	events, err := collectEvents(root, matcher, args)
	if err != nil {
		return handleError(out, "sync-file", err)
	}

	progress := func(name string, sent, total int64) {
		if total > 0 {
			out.Log("%s: %s / %s (%d%%)", name, humanize.IBytes(uint64(sent)), humanize.IBytes(uint64(total)), sent*100/total)
		}
	}
	m, err := newMirror(ctx, cfg, GetLogger(), mirrorOptions{journal: true, progress: progress})
	if err != nil {
		return handleError(out, "sync-file", err)
	}
	defer m.Close()

	summary := m.engine.ReconcileAll(ctx, events, cfg.Concurrency)
	result := &SyncFileResult{Paths: len(events), Summary: summary}
	if summary.Failed > 0 {
		out.AddWarning("SYNC_FAILURES", fmt.Sprintf("%d of %d paths failed", summary.Failed, len(events)), "error")
		_ = out.WriteSuccess("sync-file", result)
		return &renderedError{err: utils.NewAppError(utils.NewCLIError(utils.ErrCodeUnknown,
			fmt.Sprintf("%d of %d paths failed to reconcile", summary.Failed, len(events))).Build())}
	}
	return out.WriteSuccess("sync-file", result)
}

// collectEvents turns arguments into one event per distinct file path.
// Paths under root are filtered by matcher; missing paths become deletions.
func collectEvents(root string, matcher *exclude.Matcher, args []string) ([]types.LocalChangeEvent, error) {
	seen := mapset.NewThreadUnsafeSet[string]()
	var events []types.LocalChangeEvent

	add := func(path string, kind types.ChangeKind, isDir bool) {
		if rel, ok := relativeTo(root, path); ok && matcher.IsExcluded(rel, isDir) {
			return
		}
		if seen.Add(path) {
			events = append(events, types.LocalChangeEvent{Path: path, Kind: kind})
		}
	}

	for _, arg := range args {
		path, err := filepath.Abs(arg)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(path)
		switch {
		case os.IsNotExist(err):
			add(path, types.ChangeDeleted, false)
		case err != nil:
			return nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidPath, err.Error()).
				WithContext("path", arg).Build()).WithCause(err)
		case info.IsDir():
			err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if d.IsDir() {
					if rel, ok := relativeTo(root, p); ok && p != path && matcher.IsExcluded(rel, true) {
						return filepath.SkipDir
					}
					return nil
				}
				if d.Type().IsRegular() {
					add(p, types.ChangeModified, false)
				}
				return nil
			})
			if err != nil {
				return nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidPath, err.Error()).
					WithContext("path", arg).Build()).WithCause(err)
			}
		default:
			add(path, types.ChangeModified, false)
		}
	}

	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })
	return events, nil
}

func relativeTo(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}
