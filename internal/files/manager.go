package files

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dl-alexandre/gdsync/internal/api"
	"github.com/dl-alexandre/gdsync/internal/types"
	"github.com/dl-alexandre/gdsync/internal/utils"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

const (
	fileFields     = "id,name,mimeType,size,md5Checksum,createdTime,modifiedTime,parents,trashed"
	listPageSize   = 1000
	listPageFields = "nextPageToken,incompleteSearch,files(" + fileFields + ")"
)

// Manager handles file operations against a Drive folder
type Manager struct {
	client *api.Client
}

// NewManager creates a new file manager
func NewManager(client *api.Client) *Manager {
	return &Manager{client: client}
}

// ListOptions configures file listing
type ListOptions struct {
	ParentID       string
	PageSize       int
	PageToken      string
	IncludeTrashed bool
}

// CreateOptions configures a content upload
type CreateOptions struct {
	ParentID string
	Name     string
	MimeType string
	// ChunkSize is the resumable chunk size in bytes. Zero uses utils.UploadChunkSize.
	ChunkSize int
	// Progress is called after each acknowledged chunk with the bytes sent so far.
	Progress func(current, total int64)
}

// List returns one page of files
func (m *Manager) List(ctx context.Context, reqCtx *types.RequestContext, opts ListOptions) (*types.FileListResult, error) {
	call := m.client.Service().Files.List()

	var clauses []string
	if opts.ParentID != "" {
		clauses = append(clauses, fmt.Sprintf("'%s' in parents", escapeQueryValue(opts.ParentID)))
		reqCtx.InvolvedParentIDs = append(reqCtx.InvolvedParentIDs, opts.ParentID)
	}
	if !opts.IncludeTrashed {
		clauses = append(clauses, "trashed = false")
	}
	if len(clauses) > 0 {
		call = call.Q(strings.Join(clauses, " and "))
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = listPageSize
	}
	call = call.PageSize(int64(pageSize)).Fields(googleapi.Field(listPageFields))
	if opts.PageToken != "" {
		call = call.PageToken(opts.PageToken)
	}

	result, err := api.ExecuteWithRetry(ctx, m.client, reqCtx, func(ctx context.Context) (*drive.FileList, error) {
		return call.Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}

	files := make([]*types.DriveFile, len(result.Files))
	for i, f := range result.Files {
		files[i] = convertDriveFile(f)
	}

	return &types.FileListResult{
		Files:            files,
		NextPageToken:    result.NextPageToken,
		IncompleteSearch: result.IncompleteSearch,
	}, nil
}

// ListFolder lists every non-trashed child of a folder by following pagination
func (m *Manager) ListFolder(ctx context.Context, reqCtx *types.RequestContext, parentID string) ([]*types.DriveFile, error) {
	var all []*types.DriveFile
	opts := ListOptions{ParentID: parentID}

	for {
		page, err := m.List(ctx, reqCtx, opts)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Files...)

		if page.NextPageToken == "" {
			break
		}
		opts.PageToken = page.NextPageToken
	}

	return all, nil
}

// CreateResumable uploads content as a new file. Content larger than one chunk
// goes through a resumable session; the object only becomes visible once the
// final chunk is acknowledged.
func (m *Manager) CreateResumable(ctx context.Context, reqCtx *types.RequestContext, content io.Reader, opts CreateOptions) (*types.DriveFile, error) {
	if opts.Name == "" {
		return nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument, "file name is required").Build())
	}

	metadata := &drive.File{Name: opts.Name}
	if opts.ParentID != "" {
		metadata.Parents = []string{opts.ParentID}
		reqCtx.InvolvedParentIDs = append(reqCtx.InvolvedParentIDs, opts.ParentID)
	}
	if opts.MimeType != "" {
		metadata.MimeType = opts.MimeType
	}

	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = utils.UploadChunkSize
	}
	mediaOpts := []googleapi.MediaOption{googleapi.ChunkSize(chunkSize)}
	if opts.MimeType != "" {
		mediaOpts = append(mediaOpts, googleapi.ContentType(opts.MimeType))
	}

	call := m.client.Service().Files.Create(metadata).
		Media(content, mediaOpts...).
		Fields(googleapi.Field(fileFields))
	if opts.Progress != nil {
		call = call.ProgressUpdater(googleapi.ProgressUpdater(opts.Progress))
	}

	result, err := api.ExecuteWithRetry(ctx, m.client, reqCtx, func(ctx context.Context) (*drive.File, error) {
		return call.Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}

	return convertDriveFile(result), nil
}

// Delete permanently deletes a file, bypassing the trash
func (m *Manager) Delete(ctx context.Context, reqCtx *types.RequestContext, fileID string) error {
	reqCtx.InvolvedFileIDs = append(reqCtx.InvolvedFileIDs, fileID)
	call := m.client.Service().Files.Delete(fileID)

	_, err := api.ExecuteWithRetry(ctx, m.client, reqCtx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, call.Context(ctx).Do()
	})
	return err
}

func escapeQueryValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, `'`, `\'`)
}

func convertDriveFile(f *drive.File) *types.DriveFile {
	return &types.DriveFile{
		ID:           f.Id,
		Name:         f.Name,
		MimeType:     f.MimeType,
		Size:         f.Size,
		MD5Checksum:  f.Md5Checksum,
		CreatedTime:  f.CreatedTime,
		ModifiedTime: f.ModifiedTime,
		Parents:      f.Parents,
		Trashed:      f.Trashed,
	}
}
