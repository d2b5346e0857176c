package folders

import (
	"context"
	"testing"

	testhelpers "github.com/dl-alexandre/gdsync/internal/testing"
	"github.com/dl-alexandre/gdsync/internal/testing/mocks"
	"github.com/dl-alexandre/gdsync/internal/utils"
)

func TestManager_Create(t *testing.T) {
	srv := mocks.NewDriveServer(t)
	m := NewManager(srv.Client(t))

	folder, err := m.Create(context.Background(), testhelpers.TestRequestContext(), "Backups", "root")
	testhelpers.AssertNoError(t, err, "creating folder")

	stored, ok := srv.File(folder.ID)
	if !ok {
		t.Fatalf("folder %s not stored", folder.ID)
	}
	testhelpers.AssertEqual(t, stored.MimeType, utils.MimeTypeFolder, "mime type")
	testhelpers.AssertEqual(t, stored.Parents[0], "root", "parent")
}

func TestManager_CreateRequiresName(t *testing.T) {
	m := NewManager(nil)
	_, err := m.Create(context.Background(), testhelpers.TestRequestContext(), "", "")
	testhelpers.AssertCode(t, err, utils.ErrCodeInvalidArgument)
}

func TestManager_Get(t *testing.T) {
	srv := mocks.NewDriveServer(t)
	folderID := srv.AddFile("root", "Mirror", utils.MimeTypeFolder, nil)
	fileID := srv.AddFile(folderID, "notes.txt", "text/plain", []byte("hi"))
	m := NewManager(srv.Client(t))
	reqCtx := testhelpers.TestRequestContext()

	folder, err := m.Get(context.Background(), reqCtx, folderID)
	testhelpers.AssertNoError(t, err, "getting folder")
	testhelpers.AssertEqual(t, folder.Name, "Mirror", "name")

	_, err = m.Get(context.Background(), reqCtx, fileID)
	testhelpers.AssertCode(t, err, utils.ErrCodeInvalidPath)

	_, err = m.Get(context.Background(), reqCtx, "missing")
	testhelpers.AssertCode(t, err, utils.ErrCodeFileNotFound)
}
