package types

import (
	"fmt"
	"time"
)

// RemoteObjectRecord is one object currently stored in the watched Drive folder
type RemoteObjectRecord struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// ChangeKind is the kind of local filesystem change
type ChangeKind int

const (
	ChangeCreated ChangeKind = iota + 1
	ChangeModified
	ChangeDeleted
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeCreated:
		return "created"
	case ChangeModified:
		return "modified"
	case ChangeDeleted:
		return "deleted"
	default:
		return fmt.Sprintf("ChangeKind(%d)", int(k))
	}
}

// LocalChangeEvent is a single notification from the filesystem source.
// IsDir is set by the source when the path is (or was) a directory.
type LocalChangeEvent struct {
	Path  string     `json:"path"`
	Kind  ChangeKind `json:"kind"`
	IsDir bool       `json:"isDir,omitempty"`
}

// DecisionAction is the remote mutation chosen for an event
type DecisionAction string

const (
	ActionNoOp            DecisionAction = "noop"
	ActionCreateNew       DecisionAction = "create"
	ActionReplaceExisting DecisionAction = "replace"
	ActionDeleteRemote    DecisionAction = "delete"
)

// SyncDecision is computed from an event and an index snapshot and consumed immediately.
//
// CreateNew uses LocalPath and Name, ReplaceExisting uses RemoteID, LocalPath and Name
// (the new name), DeleteRemote uses RemoteID and Name.
type SyncDecision struct {
	Action    DecisionAction `json:"action"`
	LocalPath string         `json:"localPath,omitempty"`
	Name      string         `json:"name"`
	RemoteID  string         `json:"remoteId,omitempty"`
}

// SyncOutcome is the result recorded for one operation
type SyncOutcome string

const (
	OutcomeSuccess SyncOutcome = "success"
	OutcomeSkipped SyncOutcome = "skipped"
	OutcomeFailed  SyncOutcome = "failed"
)

// SyncRecord is the structured observability record emitted per operation
type SyncRecord struct {
	Timestamp time.Time   `json:"timestamp"`
	Operation string      `json:"operation"`
	Name      string      `json:"name"`
	Outcome   SyncOutcome `json:"outcome"`
	Detail    string      `json:"detail,omitempty"`
	TraceID   string      `json:"traceId,omitempty"`
}
