package cli

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dl-alexandre/gdsync/internal/api"
	"github.com/dl-alexandre/gdsync/internal/auth"
	"github.com/dl-alexandre/gdsync/internal/config"
	"github.com/dl-alexandre/gdsync/internal/files"
	"github.com/dl-alexandre/gdsync/internal/folders"
	"github.com/dl-alexandre/gdsync/internal/journal"
	"github.com/dl-alexandre/gdsync/internal/logging"
	gdsync "github.com/dl-alexandre/gdsync/internal/sync"
	"github.com/dl-alexandre/gdsync/internal/sync/index"
	"github.com/dl-alexandre/gdsync/internal/sync/transfer"
	"github.com/dl-alexandre/gdsync/internal/types"
	"github.com/dl-alexandre/gdsync/internal/utils"
	"google.golang.org/api/drive/v3"
)

// mirror wires the Drive client, index, transfer protocol, journal and engine
// for one local folder and one remote folder.
type mirror struct {
	cfg      *config.Config
	account  string
	client   *api.Client
	folders  *folders.Manager
	remote   *index.RemoteIndex
	index    gdsync.Index
	transfer *transfer.Protocol
	journal  *journal.Journal
	engine   *gdsync.Engine
}

type mirrorOptions struct {
	// service replaces the authenticated Drive service, for tests
	service  *drive.Service
	progress transfer.ProgressFunc
	journal  bool
}

func newMirror(ctx context.Context, cfg *config.Config, log logging.Logger, opts mirrorOptions) (*mirror, error) {
	if err := cfg.RequireRemote(); err != nil {
		return nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument, err.Error()).Build())
	}

	m := &mirror{cfg: cfg}

	service := opts.service
	if service == nil {
		var base http.RoundTripper
		if debugTransport != nil {
			base = debugTransport
		}
		svc, account, err := auth.NewDriveService(ctx, cfg.CredentialsFile, utils.ScopesSync, base)
		if err != nil {
			return nil, err
		}
		service = svc
		m.account = account
		log.Debug("Authenticated with service account", logging.F("account", account))
	}

	m.client = api.NewClient(service, cfg.MaxRetries, cfg.RetryBaseDelay, log).
		WithTimeouts(cfg.GetRequestTimeout(), cfg.GetUploadTimeout())
	manager := files.NewManager(m.client)
	m.folders = folders.NewManager(m.client)

	m.remote = index.NewRemoteIndex(manager, cfg.DriveFolderID, log)
	m.index = m.remote
	if ttl := cfg.GetIndexCacheTTL(); ttl > 0 {
		m.index = index.NewCachedIndex(m.remote, cfg.DriveFolderID, ttl, log)
	}

	m.transfer = transfer.New(manager, transfer.Options{
		FolderID:  cfg.DriveFolderID,
		ChunkSize: cfg.ChunkSizeBytes(),
		Progress:  opts.progress,
	}, log)

	reporters := gdsync.MultiReporter{gdsync.NewLogReporter(log)}
	if opts.journal {
		if j, err := openJournal(cfg, log); err != nil {
			log.Warn("Sync journal unavailable, records go to the log only", logging.F("error", err.Error()))
		} else {
			m.journal = j
			reporters = append(reporters, j)
		}
	}

	m.engine = gdsync.NewEngine(m.index, m.transfer, reporters, log)
	return m, nil
}

// verifyFolder checks the configured Drive folder exists and is a live folder
func (m *mirror) verifyFolder(ctx context.Context) (*types.DriveFile, error) {
	reqCtx := api.NewRequestContext("default", "", types.RequestTypeGetByID)
	return m.folders.Get(ctx, reqCtx, m.cfg.DriveFolderID)
}

func (m *mirror) Close() error {
	return m.journal.Close()
}

func openJournal(cfg *config.Config, log logging.Logger) (*journal.Journal, error) {
	path, err := cfg.GetJournalPath()
	if err != nil {
		return nil, err
	}
	return journal.Open(path, log)
}

// resolveRoot returns the absolute, symlink-free form of the watched directory
func resolveRoot(dir string) (string, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return "", utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidPath,
			"local folder is not a directory: "+dir).WithContext("path", dir).Build())
	}
	return root, nil
}
