package index

import (
	"context"
	"maps"

	"github.com/dl-alexandre/gdsync/internal/api"
	"github.com/dl-alexandre/gdsync/internal/logging"
	"github.com/dl-alexandre/gdsync/internal/types"
	"github.com/dl-alexandre/gdsync/internal/utils"
)

// Snapshot maps remote object names to their records at one point in time
type Snapshot map[string]types.RemoteObjectRecord

// Lookup returns the record stored under name
func (s Snapshot) Lookup(name string) (types.RemoteObjectRecord, bool) {
	rec, ok := s[name]
	return rec, ok
}

// Lister lists the children of a Drive folder
type Lister interface {
	ListFolder(ctx context.Context, reqCtx *types.RequestContext, parentID string) ([]*types.DriveFile, error)
}

// RemoteIndex lists the watched Drive folder on every call
type RemoteIndex struct {
	lister   Lister
	folderID string
	logger   logging.Logger
}

// NewRemoteIndex creates an index over folderID
func NewRemoteIndex(lister Lister, folderID string, logger logging.Logger) *RemoteIndex {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &RemoteIndex{lister: lister, folderID: folderID, logger: logger}
}

// FolderID returns the watched folder
func (ix *RemoteIndex) FolderID() string {
	return ix.folderID
}

// List queries the folder and returns its non-trashed files keyed by name.
// Sub-folders are skipped. When several objects share a name the one listed
// last wins.
func (ix *RemoteIndex) List(ctx context.Context) (Snapshot, error) {
	reqCtx := api.NewRequestContext("default", "", types.RequestTypeListOrSearch)
	logger := ix.logger.WithTraceID(reqCtx.TraceID)

	files, err := ix.lister.ListFolder(ctx, reqCtx, ix.folderID)
	if err != nil {
		return nil, remoteUnavailable(ix.folderID, err)
	}

	snapshot := make(Snapshot, len(files))
	for _, f := range files {
		if f.MimeType == utils.MimeTypeFolder {
			continue
		}
		if prev, ok := snapshot[f.Name]; ok {
			logger.Warn("Duplicate remote name, using the later listing",
				logging.F("name", f.Name),
				logging.F("ignoredId", prev.ID),
				logging.F("fileId", f.ID),
			)
		}
		snapshot[f.Name] = types.RemoteObjectRecord{Name: f.Name, ID: f.ID}
	}

	logger.Debug("Listed remote folder",
		logging.F("folderId", ix.folderID),
		logging.F("count", len(snapshot)),
	)
	return snapshot, nil
}

func remoteUnavailable(folderID string, err error) error {
	if utils.HasCode(err, utils.ErrCodeRemoteUnavailable) {
		return err
	}
	return utils.NewAppError(utils.NewCLIError(utils.ErrCodeRemoteUnavailable, "Listing the remote folder failed").
		WithRetryable(true).
		WithContext("folderId", folderID).
		Build()).WithCause(err)
}

func cloneSnapshot(s Snapshot) Snapshot {
	return maps.Clone(s)
}
