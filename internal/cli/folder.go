package cli

import (
	"github.com/dl-alexandre/gdsync/internal/api"
	"github.com/dl-alexandre/gdsync/internal/config"
	"github.com/dl-alexandre/gdsync/internal/types"
	"github.com/spf13/cobra"
)

var folderCmd = &cobra.Command{
	Use:   "folder",
	Short: "Inspect or create the Drive folder being mirrored into",
}

var folderCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the configured Drive folder is reachable",
	Args:  cobra.NoArgs,
	RunE:  runFolderCheck,
}

var folderCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a Drive folder to mirror into",
	Long: `Create a folder with the service account's credentials. With --save the
new folder ID is written to the config file as driveFolderId.`,
	Args: cobra.ExactArgs(1),
	RunE: runFolderCreate,
}

var (
	folderParent string
	folderSave   bool
)

func init() {
	folderCreateCmd.Flags().StringVar(&folderParent, "parent", "", "Parent folder ID (default: service account root)")
	folderCreateCmd.Flags().BoolVar(&folderSave, "save", false, "Store the new folder ID in the config file")

	folderCmd.AddCommand(folderCheckCmd)
	folderCmd.AddCommand(folderCreateCmd)
	rootCmd.AddCommand(folderCmd)
}

// FolderResult describes one Drive folder
type FolderResult struct {
	Folder *types.DriveFile `json:"folder"`
}

func (r *FolderResult) Headers() []string {
	return []string{"ID", "Name", "Modified"}
}

func (r *FolderResult) Rows() [][]string {
	return [][]string{{r.Folder.ID, r.Folder.Name, r.Folder.ModifiedTime}}
}

func (r *FolderResult) EmptyMessage() string {
	return "No folder"
}

func runFolderCheck(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)
	ctx := cmd.Context()

	m, err := newMirror(ctx, appConfig, GetLogger(), mirrorOptions{})
	if err != nil {
		return handleError(out, "folder.check", err)
	}
	defer m.Close()

	folder, err := m.verifyFolder(ctx)
	if err != nil {
		return handleError(out, "folder.check", err)
	}
	return out.WriteSuccess("folder.check", &FolderResult{Folder: folder})
}

func runFolderCreate(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)
	ctx := cmd.Context()

	// The mirror target may not exist yet; any placeholder satisfies RequireRemote.
	cfg := *appConfig
	if cfg.DriveFolderID == "" {
		cfg.DriveFolderID = "root"
	}
	m, err := newMirror(ctx, &cfg, GetLogger(), mirrorOptions{})
	if err != nil {
		return handleError(out, "folder.create", err)
	}
	defer m.Close()

	reqCtx := api.NewRequestContext("default", "", types.RequestTypeMutation)
	folder, err := m.folders.Create(ctx, reqCtx, args[0], folderParent)
	if err != nil {
		return handleError(out, "folder.create", err)
	}

	if folderSave {
		fileCfg, err := config.LoadFile()
		if err != nil {
			return handleError(out, "folder.create", err)
		}
		fileCfg.DriveFolderID = folder.ID
		if err := fileCfg.Save(); err != nil {
			return handleError(out, "folder.create", err)
		}
		out.Log("Saved driveFolderId = %s", folder.ID)
	}
	return out.WriteSuccess("folder.create", &FolderResult{Folder: folder})
}
