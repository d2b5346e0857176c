package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/dl-alexandre/gdsync/internal/logging"
	"github.com/dl-alexandre/gdsync/internal/sync/dispatcher"
	"github.com/dl-alexandre/gdsync/internal/sync/exclude"
	"github.com/dl-alexandre/gdsync/internal/sync/watcher"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Mirror the local folder continuously",
	Long: `Watch the local folder recursively and replay every change onto the
Drive folder until SIGINT or SIGTERM. Queued changes are drained for up to
the configured shutdown grace period before exiting.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

var watchBuffer int

func init() {
	watchCmd.Flags().IntVar(&watchBuffer, "event-buffer", 1024, "Filesystem notification buffer size")
	rootCmd.AddCommand(watchCmd)
}

// WatchResult is the summary printed when the daemon stops
type WatchResult struct {
	LocalFolder   string           `json:"localFolder"`
	DriveFolderID string           `json:"driveFolderId"`
	Stats         dispatcher.Stats `json:"stats"`
}

func (r *WatchResult) Headers() []string {
	return []string{"Accepted", "Filtered", "Succeeded", "Failed", "Abandoned"}
}

func (r *WatchResult) Rows() [][]string {
	return [][]string{{
		itoa(r.Stats.Accepted),
		itoa(r.Stats.Filtered),
		itoa(r.Stats.Succeeded),
		itoa(r.Stats.Failed),
		itoa(r.Stats.Abandoned),
	}}
}

func (r *WatchResult) EmptyMessage() string {
	return "No events"
}

func runWatch(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)
	cfg := appConfig
	log := GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, err := resolveRoot(cfg.LocalFolder)
	if err != nil {
		return handleError(out, "watch", err)
	}
	matcher, err := exclude.Load(root, cfg.ExcludePatterns, cfg.IncludePatterns)
	if err != nil {
		return handleError(out, "watch", err)
	}

	m, err := newMirror(ctx, cfg, log, mirrorOptions{journal: true})
	if err != nil {
		return handleError(out, "watch", err)
	}
	defer m.Close()

	folder, err := m.verifyFolder(ctx)
	if err != nil {
		return handleError(out, "watch", err)
	}

	d := dispatcher.New(m.engine, dispatcher.Options{
		Root:        root,
		Matcher:     matcher,
		Concurrency: cfg.Concurrency,
	}, log)
	// Reconciliations outlive the signal so Shutdown can drain them.
	d.Start(context.WithoutCancel(ctx))

	log.Info("Mirroring started",
		logging.F("local", root),
		logging.F("folder", cfg.DriveFolderID),
		logging.F("folderName", folder.Name),
		logging.F("concurrency", cfg.Concurrency),
	)

	w := watcher.New(root, watchBuffer, log)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Run(gctx, d)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down, draining queued changes", logging.F("grace", cfg.GetShutdownGrace().String()))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GetShutdownGrace())
		defer cancel()
		if err := d.Shutdown(shutdownCtx); err != nil {
			log.Warn("Shutdown grace period exceeded", logging.F("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, dispatcher.ErrDispatcherClosed) {
		return handleError(out, "watch", err)
	}

	return out.WriteSuccess("watch", &WatchResult{
		LocalFolder:   root,
		DriveFolderID: cfg.DriveFolderID,
		Stats:         d.Stats(),
	})
}
