package sync

import (
	"context"
	gosync "sync"

	"github.com/dl-alexandre/gdsync/internal/types"
	"golang.org/x/sync/errgroup"
)

// Summary counts the outcomes of a batch of reconciliations
type Summary struct {
	Uploads  int
	Replaces int
	Deletes  int
	Skipped  int
	Failed   int
}

// ReconcileAll reconciles independent events with up to concurrency workers.
// Events must target distinct paths; failures are counted, not returned.
func (e *Engine) ReconcileAll(ctx context.Context, events []types.LocalChangeEvent, concurrency int) Summary {
	var summary Summary
	if len(events) == 0 {
		return summary
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	var mu gosync.Mutex
	var g errgroup.Group
	g.SetLimit(concurrency)

	for _, event := range events {
		event := event
		g.Go(func() error {
			if ctx.Err() != nil {
				mu.Lock()
				summary.Failed++
				mu.Unlock()
				return nil
			}
			result, err := e.Reconcile(ctx, event)
			mu.Lock()
			summary = addSummary(summary, result, err)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return summary
}

func addSummary(summary Summary, result Result, err error) Summary {
	if err != nil {
		summary.Failed++
		return summary
	}
	switch result.Decision.Action {
	case types.ActionCreateNew:
		summary.Uploads++
	case types.ActionReplaceExisting:
		summary.Replaces++
	case types.ActionDeleteRemote:
		summary.Deletes++
	default:
		summary.Skipped++
	}
	return summary
}
