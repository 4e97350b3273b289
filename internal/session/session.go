// Package session holds the bulk-organize session: the single persisted
// record that the CLI and the daemon coordinate through, and the state
// machine that drives it from scan to completion.
package session

import (
	"context"
	"time"

	"github.com/migsilva89/markmind/internal/bookmarks"
	"github.com/migsilva89/markmind/internal/plan"
)

// Status is the session's position in the organize state machine.
type Status string

const (
	StatusIdle                 Status = "idle"
	StatusScanning             Status = "scanning"
	StatusSelecting            Status = "selecting"
	StatusOrganizing           Status = "organizing"
	StatusReviewingPlan        Status = "reviewing_plan"
	StatusReviewingAssignments Status = "reviewing_assignments"
	StatusApplying             Status = "applying"
	StatusCompleted            Status = "completed"
	StatusError                Status = "error"
)

// Session is the aggregate record of one organize run. Exactly one session
// exists at a time; it is persisted after every mutation, and both the CLI
// and the daemon treat the persisted copy as ground truth.
type Session struct {
	Status Status `json:"status"`

	AllBookmarks []bookmarks.Compact `json:"allBookmarks,omitempty"`
	// SelectedFolderIDs is nil until the user has made a selection; the
	// root folder is addressed by the empty id.
	SelectedFolderIDs   []string            `json:"selectedFolderIds"`
	BookmarksToOrganize []bookmarks.Compact `json:"bookmarksToOrganize,omitempty"`

	FolderPlan  *plan.FolderPlan  `json:"folderPlan,omitempty"`
	FolderTree  string            `json:"folderTree,omitempty"`
	Assignments []plan.Assignment `json:"assignments,omitempty"`

	AppliedCount int    `json:"appliedCount"`
	SkippedCount int    `json:"skippedCount"`
	ErrorMessage string `json:"errorMessage,omitempty"`

	StartedAt   time.Time `json:"startedAt,omitzero"`
	CompletedAt time.Time `json:"completedAt,omitzero"`

	ServiceID       string            `json:"serviceId,omitempty"`
	PathToID        map[string]string `json:"pathToIdMap,omitempty"`
	DefaultParentID string            `json:"defaultParentId,omitempty"`

	// Batch progress counters, reserved for an incremental-batching mode.
	// The one-shot plan-and-assign call never populates them.
	TotalBatches     int `json:"totalBatches"`
	CompletedBatches int `json:"completedBatches"`
	FailedBatches    int `json:"failedBatches"`
}

// New returns the initial empty session.
func New() *Session {
	return &Session{Status: StatusIdle}
}

// InstallResult merges a finished plan-and-assign result into the session,
// moving it to plan review. Called by the background runner.
func (s *Session) InstallResult(res *plan.Result) {
	p := res.Plan
	s.FolderPlan = &p
	s.Assignments = res.Assignments
	s.ErrorMessage = ""
	s.Status = StatusReviewingPlan
}

// Fail moves the session to the error state with a human-readable message.
func (s *Session) Fail(msg string) {
	s.Status = StatusError
	s.ErrorMessage = msg
}

// SelectedSet returns the selected folder ids as a set.
func (s *Session) SelectedSet() map[string]bool {
	set := make(map[string]bool, len(s.SelectedFolderIDs))
	for _, id := range s.SelectedFolderIDs {
		set[id] = true
	}
	return set
}

// StartPayload is the message the CLI hands to the daemon when it starts
// the AI phase. It carries everything the background call needs so the
// daemon never re-reads the bookmark tree.
type StartPayload struct {
	ServiceID       string              `json:"serviceId"`
	Bookmarks       []bookmarks.Compact `json:"bookmarks"`
	FolderTree      string              `json:"folderTree"`
	PathToID        map[string]string   `json:"pathToIdMap"`
	DefaultParentID string              `json:"defaultParentId"`
}

// Starter hands the AI phase to the background context. Implementations
// must return quickly; the call is fire-and-forget and completion is
// observed through the persisted session.
type Starter interface {
	StartOrganize(ctx context.Context, p StartPayload) error
}
