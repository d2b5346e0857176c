package sync

import (
	"context"
	"path/filepath"
	"time"

	"github.com/dl-alexandre/gdsync/internal/logging"
	"github.com/dl-alexandre/gdsync/internal/sync/index"
	"github.com/dl-alexandre/gdsync/internal/types"
	"github.com/dl-alexandre/gdsync/internal/utils"
)

// Index produces a fresh snapshot of the watched remote folder
type Index interface {
	List(ctx context.Context) (index.Snapshot, error)
}

// Invalidator is implemented by indexes that cache snapshots
type Invalidator interface {
	Invalidate()
}

// Transfer performs the remote mutations chosen by the engine
type Transfer interface {
	UploadNew(ctx context.Context, localPath, name string) (string, error)
	Replace(ctx context.Context, remoteID, localPath string) (string, error)
	DeleteObject(ctx context.Context, remoteID string) error
}

// Engine reconciles one local change event at a time against the remote folder
type Engine struct {
	index    Index
	transfer Transfer
	reporter Reporter
	logger   logging.Logger
}

// Result describes what a reconciliation did
type Result struct {
	Decision types.SyncDecision
	RemoteID string
	Outcome  types.SyncOutcome
}

// NewEngine creates an engine. A nil reporter discards records.
func NewEngine(ix Index, transfer Transfer, reporter Reporter, logger logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &Engine{
		index:    ix,
		transfer: transfer,
		reporter: reporter,
		logger:   logger,
	}
}

// Decide maps an event and an index snapshot to at most one remote mutation
func Decide(event types.LocalChangeEvent, snapshot index.Snapshot) types.SyncDecision {
	name := filepath.Base(event.Path)
	existing, found := snapshot.Lookup(name)

	switch event.Kind {
	case types.ChangeDeleted:
		if !found {
			return types.SyncDecision{Action: types.ActionNoOp, Name: name}
		}
		return types.SyncDecision{Action: types.ActionDeleteRemote, Name: name, RemoteID: existing.ID}
	case types.ChangeCreated, types.ChangeModified:
		if found {
			return types.SyncDecision{
				Action:    types.ActionReplaceExisting,
				LocalPath: event.Path,
				Name:      name,
				RemoteID:  existing.ID,
			}
		}
		return types.SyncDecision{Action: types.ActionCreateNew, LocalPath: event.Path, Name: name}
	default:
		return types.SyncDecision{Action: types.ActionNoOp, Name: name}
	}
}

// Reconcile lists the remote folder, decides, and applies the decision. The
// returned error is the failure that was also reported; callers continue with
// the next event.
func (e *Engine) Reconcile(ctx context.Context, event types.LocalChangeEvent) (Result, error) {
	name := filepath.Base(event.Path)
	logger := e.logger.With(
		logging.F("path", event.Path),
		logging.F("event", event.Kind.String()),
	)

	snapshot, err := e.index.List(ctx)
	if err != nil {
		logger.Error("Remote folder unavailable, dropping event", logging.F("error", err.Error()))
		e.report(ctx, "list", name, types.OutcomeFailed, err)
		return Result{Outcome: types.OutcomeFailed}, err
	}

	decision := Decide(event, snapshot)
	result := Result{Decision: decision}
	logger.Debug("Reconciliation decided",
		logging.F("action", string(decision.Action)),
		logging.F("remoteId", decision.RemoteID),
	)

	switch decision.Action {
	case types.ActionNoOp:
		result.Outcome = types.OutcomeSkipped
		e.report(ctx, string(decision.Action), name, result.Outcome, nil)
		return result, nil
	case types.ActionCreateNew:
		result.RemoteID, err = e.transfer.UploadNew(ctx, decision.LocalPath, decision.Name)
	case types.ActionReplaceExisting:
		result.RemoteID, err = e.transfer.Replace(ctx, decision.RemoteID, decision.LocalPath)
	case types.ActionDeleteRemote:
		err = e.transfer.DeleteObject(ctx, decision.RemoteID)
		if utils.IsNotFound(err) {
			logger.Info("Remote object already removed", logging.F("remoteId", decision.RemoteID))
			err = nil
		}
	}
	e.invalidate()

	if err != nil {
		result.Outcome = types.OutcomeFailed
		logger.Error("Reconciliation failed",
			logging.F("action", string(decision.Action)),
			logging.F("code", utils.ErrorCode(err)),
			logging.F("error", err.Error()),
		)
		e.report(ctx, string(decision.Action), name, result.Outcome, err)
		return result, err
	}

	result.Outcome = types.OutcomeSuccess
	logger.Info("Reconciled",
		logging.F("action", string(decision.Action)),
		logging.F("remoteId", result.RemoteID),
	)
	e.report(ctx, string(decision.Action), name, result.Outcome, nil)
	return result, nil
}

func (e *Engine) invalidate() {
	if inv, ok := e.index.(Invalidator); ok {
		inv.Invalidate()
	}
}

func (e *Engine) report(ctx context.Context, operation, name string, outcome types.SyncOutcome, err error) {
	rec := types.SyncRecord{
		Timestamp: time.Now().UTC(),
		Operation: operation,
		Name:      name,
		Outcome:   outcome,
		TraceID:   logging.TraceIDFromContext(ctx),
	}
	if err != nil {
		rec.Detail = err.Error()
	}
	e.reporter.Report(ctx, rec)
}
