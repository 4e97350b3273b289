package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/migsilva89/markmind/internal/bookmarks"
	"github.com/migsilva89/markmind/internal/folders"
)

// Orchestrator drives the organize state machine from the foreground
// context. Every mutation persists the session before returning, because
// the foreground may be torn down immediately afterwards; no in-memory
// state is authoritative.
type Orchestrator struct {
	sessions *Store
	svc      bookmarks.Service
	log      *slog.Logger
}

// NewOrchestrator creates an Orchestrator over the given session store and
// bookmark service.
func NewOrchestrator(sessions *Store, svc bookmarks.Service) *Orchestrator {
	return &Orchestrator{sessions: sessions, svc: svc, log: slog.Default()}
}

// Attach loads the persisted session and normalizes it for a fresh
// foreground. Scanning and applying only ever run in the foreground, so
// those statuses found on attach are stale leftovers of a torn-down
// process; organizing legitimately continues in the daemon and is resumed
// verbatim.
func (o *Orchestrator) Attach(ctx context.Context) (*Session, error) {
	sess, err := o.sessions.Load()
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return New(), nil
	}

	switch sess.Status {
	case StatusScanning:
		o.log.Warn("found stale scanning session, resetting to idle")
		sess = New()
		if err := o.sessions.Save(sess); err != nil {
			return nil, err
		}
	case StatusApplying:
		o.log.Warn("found interrupted apply, returning to assignment review")
		sess.Status = StatusReviewingAssignments
		if err := o.sessions.Save(sess); err != nil {
			return nil, err
		}
	}
	return sess, nil
}

// StartScan reads the bookmark tree, builds the folder index, and flattens
// every bookmark. On success the session moves to selecting with all
// folders selected. A session that is mid-flight, under review, or in the
// error state blocks a new scan until the user resets it.
func (o *Orchestrator) StartScan(ctx context.Context, defaultParentID string) (*Session, error) {
	prev, err := o.sessions.Load()
	if err != nil {
		return nil, err
	}
	if prev != nil {
		switch prev.Status {
		case StatusIdle, StatusCompleted:
		default:
			return nil, fmt.Errorf("session is %q; reset it before scanning again", prev.Status)
		}
	}

	sess := New()
	sess.Status = StatusScanning
	sess.StartedAt = time.Now().UTC()
	sess.DefaultParentID = defaultParentID
	if err := o.sessions.Save(sess); err != nil {
		return nil, err
	}

	tree, err := o.svc.GetTree(ctx)
	if err != nil {
		return o.fail(sess, fmt.Errorf("reading bookmark tree: %w", err))
	}

	idx := folders.BuildIndex(tree)
	all := folders.Flatten(tree, nil)

	sess.AllBookmarks = all
	sess.SelectedFolderIDs = folders.FolderIDs(all)
	sess.FolderTree = idx.Text
	sess.PathToID = idx.PathToID
	sess.Status = StatusSelecting
	if err := o.sessions.Save(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// ToggleFolder flips one folder id in or out of the selection.
func (o *Orchestrator) ToggleFolder(ctx context.Context, folderID string) (*Session, error) {
	sess, err := o.require(StatusSelecting)
	if err != nil {
		return nil, err
	}

	for i, id := range sess.SelectedFolderIDs {
		if id == folderID {
			sess.SelectedFolderIDs = append(sess.SelectedFolderIDs[:i], sess.SelectedFolderIDs[i+1:]...)
			return sess, o.sessions.Save(sess)
		}
	}
	sess.SelectedFolderIDs = append(sess.SelectedFolderIDs, folderID)
	return sess, o.sessions.Save(sess)
}

// SelectAllFolders selects every folder that currently holds a bookmark.
func (o *Orchestrator) SelectAllFolders(ctx context.Context) (*Session, error) {
	sess, err := o.require(StatusSelecting)
	if err != nil {
		return nil, err
	}
	sess.SelectedFolderIDs = folders.FolderIDs(sess.AllBookmarks)
	return sess, o.sessions.Save(sess)
}

// DeselectAllFolders empties the selection without unsetting it.
func (o *Orchestrator) DeselectAllFolders(ctx context.Context) (*Session, error) {
	sess, err := o.require(StatusSelecting)
	if err != nil {
		return nil, err
	}
	sess.SelectedFolderIDs = []string{}
	return sess, o.sessions.Save(sess)
}

// StartOrganizing freezes the selected bookmark subset and hands the AI
// phase to the background context via starter. It returns as soon as the
// handoff is sent; completion arrives through the persisted session.
func (o *Orchestrator) StartOrganizing(ctx context.Context, serviceID string, starter Starter) (*Session, error) {
	sess, err := o.require(StatusSelecting)
	if err != nil {
		return nil, err
	}

	if serviceID == "" {
		return o.fail(sess, fmt.Errorf("no AI provider configured"))
	}

	selected := sess.SelectedSet()
	var batch []bookmarks.Compact
	for _, b := range sess.AllBookmarks {
		if selected[b.CurrentFolderID] {
			batch = append(batch, b)
		}
	}
	if len(batch) == 0 {
		return nil, fmt.Errorf("no bookmarks selected")
	}

	sess.ServiceID = serviceID
	sess.BookmarksToOrganize = batch
	sess.Status = StatusOrganizing
	if err := o.sessions.Save(sess); err != nil {
		return nil, err
	}

	payload := StartPayload{
		ServiceID:       serviceID,
		Bookmarks:       batch,
		FolderTree:      sess.FolderTree,
		PathToID:        sess.PathToID,
		DefaultParentID: sess.DefaultParentID,
	}
	if err := starter.StartOrganize(ctx, payload); err != nil {
		return o.fail(sess, fmt.Errorf("handing off to background: %w", err))
	}
	return sess, nil
}

// ToggleFolderExclusion flips the client-side veto on one proposed folder.
func (o *Orchestrator) ToggleFolderExclusion(ctx context.Context, path string) (*Session, error) {
	sess, err := o.require(StatusReviewingPlan)
	if err != nil {
		return nil, err
	}

	for i := range sess.FolderPlan.Folders {
		if sess.FolderPlan.Folders[i].Path == path {
			sess.FolderPlan.Folders[i].IsExcluded = !sess.FolderPlan.Folders[i].IsExcluded
			return sess, o.sessions.Save(sess)
		}
	}
	return nil, fmt.Errorf("no proposed folder with path %q", path)
}

// ApprovePlan finalizes the folder plan. Assignments targeting an excluded
// folder are removed outright; recovering them requires re-planning.
func (o *Orchestrator) ApprovePlan(ctx context.Context) (*Session, error) {
	sess, err := o.require(StatusReviewingPlan)
	if err != nil {
		return nil, err
	}

	excluded := make(map[string]bool)
	for _, f := range sess.FolderPlan.Folders {
		if f.IsExcluded {
			excluded[f.Path] = true
		}
	}

	kept := sess.Assignments[:0]
	for _, a := range sess.Assignments {
		if !excluded[a.SuggestedPath] {
			kept = append(kept, a)
		}
	}
	sess.Assignments = kept
	sess.Status = StatusReviewingAssignments
	return sess, o.sessions.Save(sess)
}

// RejectPlan discards the plan and assignments and returns to folder
// selection with the scanned bookmarks intact.
func (o *Orchestrator) RejectPlan(ctx context.Context) (*Session, error) {
	sess, err := o.require(StatusReviewingPlan)
	if err != nil {
		return nil, err
	}

	sess.FolderPlan = nil
	sess.Assignments = nil
	sess.Status = StatusSelecting
	return sess, o.sessions.Save(sess)
}

// ToggleApproval flips approval on one assignment by bookmark id.
func (o *Orchestrator) ToggleApproval(ctx context.Context, bookmarkID string) (*Session, error) {
	sess, err := o.require(StatusReviewingAssignments)
	if err != nil {
		return nil, err
	}

	for i := range sess.Assignments {
		if sess.Assignments[i].BookmarkID == bookmarkID {
			sess.Assignments[i].IsApproved = !sess.Assignments[i].IsApproved
			return sess, o.sessions.Save(sess)
		}
	}
	return nil, fmt.Errorf("no assignment for bookmark %q", bookmarkID)
}

// ApproveAll approves every assignment.
func (o *Orchestrator) ApproveAll(ctx context.Context) (*Session, error) {
	return o.setAllApproved(true)
}

// RejectAll rejects every assignment.
func (o *Orchestrator) RejectAll(ctx context.Context) (*Session, error) {
	return o.setAllApproved(false)
}

func (o *Orchestrator) setAllApproved(approved bool) (*Session, error) {
	sess, err := o.require(StatusReviewingAssignments)
	if err != nil {
		return nil, err
	}
	for i := range sess.Assignments {
		sess.Assignments[i].IsApproved = approved
	}
	return sess, o.sessions.Save(sess)
}

// Reset clears the persisted session and returns to the initial state.
func (o *Orchestrator) Reset(ctx context.Context) (*Session, error) {
	if err := o.sessions.Clear(); err != nil {
		return nil, err
	}
	return New(), nil
}

// require loads the session and checks it is in the expected state.
func (o *Orchestrator) require(want Status) (*Session, error) {
	sess, err := o.sessions.Load()
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("no organize session; run scan first")
	}
	if sess.Status != want {
		return nil, fmt.Errorf("session is %q, expected %q", sess.Status, want)
	}
	return sess, nil
}

// fail persists the error state and returns the underlying error.
func (o *Orchestrator) fail(sess *Session, cause error) (*Session, error) {
	sess.Fail(cause.Error())
	if err := o.sessions.Save(sess); err != nil {
		o.log.Error("persisting error state failed", "error", err)
	}
	return sess, cause
}
