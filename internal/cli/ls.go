package cli

import (
	"sort"

	"github.com/dl-alexandre/gdsync/internal/types"
	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List the objects in the Drive folder",
	Long:  "List the non-folder objects currently stored in the mirrored Drive folder, keyed by name",
	Args:  cobra.NoArgs,
	RunE:  runLs,
}

func init() {
	rootCmd.AddCommand(lsCmd)
}

// RemoteListResult is the remote folder as seen by the index
type RemoteListResult struct {
	FolderID string                     `json:"folderId"`
	Objects  []types.RemoteObjectRecord `json:"objects"`
}

func (r *RemoteListResult) Headers() []string {
	return []string{"Name", "ID"}
}

func (r *RemoteListResult) Rows() [][]string {
	rows := make([][]string, len(r.Objects))
	for i, obj := range r.Objects {
		rows[i] = []string{truncate(obj.Name, 60), obj.ID}
	}
	return rows
}

func (r *RemoteListResult) EmptyMessage() string {
	return "Drive folder is empty"
}

func runLs(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)
	ctx := cmd.Context()

	m, err := newMirror(ctx, appConfig, GetLogger(), mirrorOptions{})
	if err != nil {
		return handleError(out, "ls", err)
	}
	defer m.Close()

	snapshot, err := m.remote.List(ctx)
	if err != nil {
		return handleError(out, "ls", err)
	}

	objects := make([]types.RemoteObjectRecord, 0, len(snapshot))
	for _, obj := range snapshot {
		objects = append(objects, obj)
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Name < objects[j].Name })

	return out.WriteSuccess("ls", &RemoteListResult{FolderID: m.remote.FolderID(), Objects: objects})
}
