package cli

import (
	"fmt"
	"time"

	"github.com/dl-alexandre/gdsync/internal/types"
	"github.com/dl-alexandre/gdsync/internal/utils"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history [name]",
	Short: "Show recent sync operations",
	Long: `Show the most recent operations recorded in the sync journal, optionally
restricted to one remote name. Use --prune to drop records older than a duration.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

var (
	historyLimit int
	historyPrune time.Duration
)

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "Maximum number of records to show")
	historyCmd.Flags().DurationVar(&historyPrune, "prune", 0, "Delete records older than this duration (e.g. 720h)")
	rootCmd.AddCommand(historyCmd)
}

// HistoryResult is a page of journal records
type HistoryResult struct {
	Records []types.SyncRecord `json:"records"`
	Pruned  int64              `json:"pruned,omitempty"`
}

func (r *HistoryResult) Headers() []string {
	return []string{"When", "Operation", "Name", "Outcome", "Detail"}
}

func (r *HistoryResult) Rows() [][]string {
	rows := make([][]string, len(r.Records))
	for i, rec := range r.Records {
		rows[i] = []string{
			humanize.Time(rec.Timestamp),
			rec.Operation,
			truncate(rec.Name, 40),
			string(rec.Outcome),
			truncate(rec.Detail, 60),
		}
	}
	return rows
}

func (r *HistoryResult) EmptyMessage() string {
	return "No sync operations recorded"
}

func runHistory(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)
	ctx := cmd.Context()

	if historyLimit <= 0 {
		return handleError(out, "history", utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
			fmt.Sprintf("limit must be positive, got %d", historyLimit)).Build()))
	}

	j, err := openJournal(appConfig, GetLogger())
	if err != nil {
		return handleError(out, "history", err)
	}
	defer j.Close()

	result := &HistoryResult{}
	if historyPrune > 0 {
		pruned, err := j.Prune(ctx, time.Now().Add(-historyPrune))
		if err != nil {
			return handleError(out, "history", err)
		}
		result.Pruned = pruned
		out.Log("Pruned %d records older than %s", pruned, historyPrune)
	}

	if len(args) == 1 {
		result.Records, err = j.ForName(ctx, args[0], historyLimit)
	} else {
		result.Records, err = j.Recent(ctx, historyLimit)
	}
	if err != nil {
		return handleError(out, "history", err)
	}
	return out.WriteSuccess("history", result)
}
