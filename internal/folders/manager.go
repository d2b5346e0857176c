package folders

import (
	"context"
	"fmt"

	"github.com/dl-alexandre/gdsync/internal/api"
	"github.com/dl-alexandre/gdsync/internal/types"
	"github.com/dl-alexandre/gdsync/internal/utils"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

const folderFields = "id,name,mimeType,createdTime,modifiedTime,parents,trashed"

// Manager handles the Drive folder a mirror writes into
type Manager struct {
	client *api.Client
}

// NewManager creates a new folder manager
func NewManager(client *api.Client) *Manager {
	return &Manager{client: client}
}

// Create creates a new folder. An empty parentID creates it in the caller's root.
func (m *Manager) Create(ctx context.Context, reqCtx *types.RequestContext, name string, parentID string) (*types.DriveFile, error) {
	if name == "" {
		return nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument, "folder name is required").Build())
	}

	metadata := &drive.File{
		Name:     name,
		MimeType: utils.MimeTypeFolder,
	}
	if parentID != "" {
		metadata.Parents = []string{parentID}
		reqCtx.InvolvedParentIDs = append(reqCtx.InvolvedParentIDs, parentID)
	}

	call := m.client.Service().Files.Create(metadata).Fields(folderFields)
	result, err := api.ExecuteWithRetry(ctx, m.client, reqCtx, func(ctx context.Context) (*drive.File, error) {
		return call.Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}

	return convertDriveFile(result), nil
}

// Get retrieves folder metadata and checks the object is a live folder
func (m *Manager) Get(ctx context.Context, reqCtx *types.RequestContext, folderID string) (*types.DriveFile, error) {
	reqCtx.InvolvedFileIDs = append(reqCtx.InvolvedFileIDs, folderID)

	call := m.client.Service().Files.Get(folderID).Fields(googleapi.Field(folderFields))
	result, err := api.ExecuteWithRetry(ctx, m.client, reqCtx, func(ctx context.Context) (*drive.File, error) {
		return call.Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}

	if result.MimeType != utils.MimeTypeFolder {
		return nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidPath,
			fmt.Sprintf("%s is not a folder (%s)", folderID, result.MimeType)).
			WithContext("folderId", folderID).Build())
	}
	if result.Trashed {
		return nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidPath,
			fmt.Sprintf("folder %s is in the trash", folderID)).
			WithContext("folderId", folderID).Build())
	}

	return convertDriveFile(result), nil
}

func convertDriveFile(f *drive.File) *types.DriveFile {
	return &types.DriveFile{
		ID:           f.Id,
		Name:         f.Name,
		MimeType:     f.MimeType,
		CreatedTime:  f.CreatedTime,
		ModifiedTime: f.ModifiedTime,
		Parents:      f.Parents,
		Trashed:      f.Trashed,
	}
}
