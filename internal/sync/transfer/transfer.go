package transfer

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/dl-alexandre/gdsync/internal/api"
	"github.com/dl-alexandre/gdsync/internal/files"
	"github.com/dl-alexandre/gdsync/internal/logging"
	"github.com/dl-alexandre/gdsync/internal/types"
	"github.com/dl-alexandre/gdsync/internal/utils"
	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
)

// RemoteStore is the subset of files.Manager used for transfers
type RemoteStore interface {
	CreateResumable(ctx context.Context, reqCtx *types.RequestContext, content io.Reader, opts files.CreateOptions) (*types.DriveFile, error)
	Delete(ctx context.Context, reqCtx *types.RequestContext, fileID string) error
}

// ProgressFunc receives the acknowledged byte count of an upload
type ProgressFunc func(name string, sent, total int64)

// Options configures a Protocol
type Options struct {
	// FolderID is the Drive folder new objects are created in.
	FolderID string
	// ChunkSize is the resumable chunk size in bytes.
	ChunkSize int
	Progress  ProgressFunc
}

// Protocol moves local file content into the watched Drive folder
type Protocol struct {
	store     RemoteStore
	folderID  string
	chunkSize int
	progress  ProgressFunc
	logger    logging.Logger
}

// New creates a transfer protocol bound to one folder
func New(store RemoteStore, opts Options, logger logging.Logger) *Protocol {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = utils.UploadChunkSize
	}
	return &Protocol{
		store:     store,
		folderID:  opts.FolderID,
		chunkSize: chunkSize,
		progress:  opts.Progress,
		logger:    logger,
	}
}

// UploadNew uploads localPath as a new object called name and returns its ID.
// The object is visible remotely only once every chunk has been acknowledged.
func (p *Protocol) UploadNew(ctx context.Context, localPath, name string) (string, error) {
	f, info, err := openRegular(localPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	mimeType := DetectContentType(localPath)
	reqCtx := api.NewRequestContext("default", "", types.RequestTypeUpload)
	logger := p.logger.WithTraceID(reqCtx.TraceID)
	total := info.Size()

	logger.Info("Uploading file",
		logging.F("name", name),
		logging.F("size", humanize.IBytes(uint64(total))),
		logging.F("mimeType", mimeType),
	)

	reported := false
	file, err := p.store.CreateResumable(ctx, reqCtx, f, files.CreateOptions{
		ParentID:  p.folderID,
		Name:      name,
		MimeType:  mimeType,
		ChunkSize: p.chunkSize,
		Progress: func(current, _ int64) {
			reported = true
			p.reportProgress(logger, name, current, total)
		},
	})
	if err != nil {
		logger.Error("Upload failed",
			logging.F("name", name),
			logging.F("error", err.Error()),
		)
		return "", err
	}

	// Content that fits in one chunk is sent in a single request without
	// chunk callbacks.
	if !reported {
		p.reportProgress(logger, name, total, total)
	}

	logger.Info("Uploaded file",
		logging.F("name", name),
		logging.F("fileId", file.ID),
	)
	return file.ID, nil
}

// Replace deletes remoteID and uploads localPath under its base name. A failed
// delete is logged and does not stop the upload. When exactly one of the two
// steps succeeds the error is PARTIAL_REPLACE_FAILURE; the returned ID is set
// whenever the upload succeeded.
func (p *Protocol) Replace(ctx context.Context, remoteID, localPath string) (string, error) {
	name := filepath.Base(localPath)

	deleteErr := p.DeleteObject(ctx, remoteID)
	if utils.IsNotFound(deleteErr) {
		deleteErr = nil
	}
	if deleteErr != nil {
		p.logger.Warn("Delete before replace failed, uploading anyway",
			logging.F("name", name),
			logging.F("fileId", remoteID),
			logging.F("error", deleteErr.Error()),
		)
	}

	newID, uploadErr := p.UploadNew(ctx, localPath, name)

	switch {
	case deleteErr == nil && uploadErr == nil:
		return newID, nil
	case deleteErr == nil:
		return "", partialReplace(name, remoteID, "", true, nil, uploadErr)
	case uploadErr == nil:
		return newID, partialReplace(name, remoteID, newID, false, deleteErr, deleteErr)
	default:
		// Neither step changed the remote folder.
		return "", uploadErr
	}
}

// DeleteObject permanently removes remoteID. An already absent object yields
// a FILE_NOT_FOUND error.
func (p *Protocol) DeleteObject(ctx context.Context, remoteID string) error {
	reqCtx := api.NewRequestContext("default", "", types.RequestTypeMutation)
	logger := p.logger.WithTraceID(reqCtx.TraceID)

	if err := p.store.Delete(ctx, reqCtx, remoteID); err != nil {
		if utils.IsNotFound(err) {
			logger.Debug("Remote object already absent", logging.F("fileId", remoteID))
		}
		return err
	}

	logger.Info("Deleted remote object", logging.F("fileId", remoteID))
	return nil
}

func (p *Protocol) reportProgress(logger logging.Logger, name string, sent, total int64) {
	percent := 100
	if total > 0 {
		percent = int(sent * 100 / total)
	}
	logger.Info(fmt.Sprintf("Uploading %s: %d%% complete.", name, percent),
		logging.F("sent", humanize.IBytes(uint64(sent))),
		logging.F("total", humanize.IBytes(uint64(total))),
	)
	if p.progress != nil {
		p.progress(name, sent, total)
	}
}

func partialReplace(name, oldID, newID string, deleted bool, deleteErr, cause error) error {
	builder := utils.NewCLIError(utils.ErrCodePartialReplaceFailure,
		fmt.Sprintf("Replacing %s left the remote folder inconsistent", name)).
		WithContext("name", name).
		WithContext("oldId", oldID).
		WithContext("deleted", deleted)
	if newID != "" {
		builder = builder.WithContext("newId", newID)
	}
	if deleteErr != nil {
		builder = builder.WithContext("deleteError", deleteErr.Error())
	} else if cause != nil {
		builder = builder.WithContext("uploadError", cause.Error())
	}
	return utils.NewAppError(builder.Build()).WithCause(cause)
}

func openRegular(path string) (*os.File, os.FileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidPath, "Cannot open local file").
			WithContext("path", path).
			Build()).WithCause(err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidPath, "Cannot stat local file").
			WithContext("path", path).
			Build()).WithCause(err)
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidPath, "Not a regular file").
			WithContext("path", path).
			Build())
	}
	return f, info, nil
}

// DetectContentType sniffs the file's content and falls back to its extension,
// then to application/octet-stream.
func DetectContentType(path string) string {
	if mt, err := mimetype.DetectFile(path); err == nil && !mt.Is(utils.MimeTypeOctetStream) {
		return stripParams(mt.String())
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); byExt != "" {
		return stripParams(byExt)
	}
	return utils.MimeTypeOctetStream
}

func stripParams(mediaType string) string {
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	return strings.TrimSpace(mediaType)
}
