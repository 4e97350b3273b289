package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/migsilva89/markmind/internal/bookmarks"
	"github.com/migsilva89/markmind/internal/plan"
)

// fakeStarter records the handoff payload.
type fakeStarter struct {
	payload *StartPayload
	err     error
}

func (f *fakeStarter) StartOrganize(ctx context.Context, p StartPayload) error {
	f.payload = &p
	return f.err
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *bookmarks.Memory, *Store) {
	t.Helper()
	mem := bookmarks.NewMemory()
	mem.AddFolder("f-dev", "", "Dev")
	mem.AddBookmark("b1", "f-dev", "Go blog", "https://go.dev/blog")
	mem.AddBookmark("b2", "", "Example", "https://example.com")
	store := NewStore(mapKV{})
	return NewOrchestrator(store, mem), mem, store
}

func TestAttachFresh(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t)

	sess, err := orch.Attach(context.Background())
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if sess.Status != StatusIdle {
		t.Errorf("fresh session status = %q, want idle", sess.Status)
	}
}

func TestAttachNormalization(t *testing.T) {
	cases := []struct {
		stored Status
		want   Status
	}{
		{StatusScanning, StatusIdle},
		{StatusApplying, StatusReviewingAssignments},
		{StatusOrganizing, StatusOrganizing},
		{StatusReviewingPlan, StatusReviewingPlan},
		{StatusCompleted, StatusCompleted},
		{StatusError, StatusError},
	}
	for _, c := range cases {
		orch, _, store := newTestOrchestrator(t)
		sess := New()
		sess.Status = c.stored
		if err := store.Save(sess); err != nil {
			t.Fatalf("Save: %v", err)
		}

		got, err := orch.Attach(context.Background())
		if err != nil {
			t.Fatalf("Attach(%s): %v", c.stored, err)
		}
		if got.Status != c.want {
			t.Errorf("Attach(%s) status = %q, want %q", c.stored, got.Status, c.want)
		}

		// Normalizations must be persisted, not just returned.
		reloaded, err := store.Load()
		if err != nil {
			t.Fatalf("reload: %v", err)
		}
		if reloaded.Status != c.want {
			t.Errorf("persisted status after Attach(%s) = %q, want %q", c.stored, reloaded.Status, c.want)
		}
	}
}

func TestStartScan(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t)

	sess, err := orch.StartScan(context.Background(), "")
	if err != nil {
		t.Fatalf("StartScan: %v", err)
	}
	if sess.Status != StatusSelecting {
		t.Errorf("status = %q, want selecting", sess.Status)
	}
	if len(sess.AllBookmarks) != 2 {
		t.Errorf("scanned %d bookmarks, want 2", len(sess.AllBookmarks))
	}
	if len(sess.SelectedFolderIDs) != 2 {
		t.Errorf("selected %d folders, want 2 (Dev and root)", len(sess.SelectedFolderIDs))
	}
	if sess.FolderTree != "Dev\n" {
		t.Errorf("FolderTree = %q", sess.FolderTree)
	}
	if sess.PathToID["Dev"] != "f-dev" {
		t.Errorf("PathToID = %v", sess.PathToID)
	}
	if sess.StartedAt.IsZero() {
		t.Error("StartedAt not recorded")
	}
}

func TestStartScanRequiresInactiveSession(t *testing.T) {
	cases := []struct {
		stored  Status
		allowed bool
	}{
		{StatusIdle, true},
		{StatusCompleted, true},
		{StatusSelecting, false},
		{StatusOrganizing, false},
		{StatusReviewingPlan, false},
		{StatusReviewingAssignments, false},
		{StatusError, false},
	}
	for _, c := range cases {
		orch, _, store := newTestOrchestrator(t)
		sess := New()
		sess.Status = c.stored
		if err := store.Save(sess); err != nil {
			t.Fatalf("Save: %v", err)
		}

		_, err := orch.StartScan(context.Background(), "")
		if c.allowed && err != nil {
			t.Errorf("StartScan from %s: %v", c.stored, err)
		}
		if !c.allowed {
			if err == nil {
				t.Errorf("StartScan from %s did not error", c.stored)
				continue
			}
			// The blocked session must survive untouched.
			reloaded, loadErr := store.Load()
			if loadErr != nil {
				t.Fatalf("reload: %v", loadErr)
			}
			if reloaded.Status != c.stored {
				t.Errorf("session clobbered: status = %q, want %q", reloaded.Status, c.stored)
			}
		}
	}
}

func TestToggleFolder(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t)
	ctx := context.Background()
	if _, err := orch.StartScan(ctx, ""); err != nil {
		t.Fatalf("StartScan: %v", err)
	}

	sess, err := orch.ToggleFolder(ctx, "f-dev")
	if err != nil {
		t.Fatalf("ToggleFolder: %v", err)
	}
	if sess.SelectedSet()["f-dev"] {
		t.Error("f-dev still selected after toggle")
	}

	sess, err = orch.ToggleFolder(ctx, "f-dev")
	if err != nil {
		t.Fatalf("ToggleFolder back: %v", err)
	}
	if !sess.SelectedSet()["f-dev"] {
		t.Error("f-dev not re-selected after second toggle")
	}
}

func TestDeselectAllKeepsSelectionSet(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t)
	ctx := context.Background()
	if _, err := orch.StartScan(ctx, ""); err != nil {
		t.Fatalf("StartScan: %v", err)
	}

	sess, err := orch.DeselectAllFolders(ctx)
	if err != nil {
		t.Fatalf("DeselectAllFolders: %v", err)
	}
	// An empty selection is still a selection; nil would mean unset.
	if sess.SelectedFolderIDs == nil {
		t.Error("SelectedFolderIDs is nil after deselect-all")
	}
	if len(sess.SelectedFolderIDs) != 0 {
		t.Errorf("SelectedFolderIDs = %v, want empty", sess.SelectedFolderIDs)
	}
}

func TestStartOrganizing(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t)
	ctx := context.Background()
	if _, err := orch.StartScan(ctx, ""); err != nil {
		t.Fatalf("StartScan: %v", err)
	}
	if _, err := orch.ToggleFolder(ctx, ""); err != nil {
		t.Fatalf("deselect root: %v", err)
	}

	starter := &fakeStarter{}
	sess, err := orch.StartOrganizing(ctx, "google", starter)
	if err != nil {
		t.Fatalf("StartOrganizing: %v", err)
	}
	if sess.Status != StatusOrganizing {
		t.Errorf("status = %q, want organizing", sess.Status)
	}
	// Only the Dev folder is still selected, so the frozen batch holds b1.
	if len(sess.BookmarksToOrganize) != 1 || sess.BookmarksToOrganize[0].ID != "b1" {
		t.Errorf("batch = %+v, want just b1", sess.BookmarksToOrganize)
	}

	if starter.payload == nil {
		t.Fatal("starter not invoked")
	}
	if starter.payload.ServiceID != "google" {
		t.Errorf("payload service = %q", starter.payload.ServiceID)
	}
	if len(starter.payload.Bookmarks) != 1 {
		t.Errorf("payload batch = %+v", starter.payload.Bookmarks)
	}
	if starter.payload.PathToID["Dev"] != "f-dev" {
		t.Errorf("payload PathToID = %v", starter.payload.PathToID)
	}
}

func TestStartOrganizingNoService(t *testing.T) {
	orch, _, store := newTestOrchestrator(t)
	ctx := context.Background()
	if _, err := orch.StartScan(ctx, ""); err != nil {
		t.Fatalf("StartScan: %v", err)
	}

	if _, err := orch.StartOrganizing(ctx, "", &fakeStarter{}); err == nil {
		t.Fatal("missing service id did not error")
	}
	sess, _ := store.Load()
	if sess.Status != StatusError {
		t.Errorf("status = %q, want error", sess.Status)
	}
}

func TestStartOrganizingEmptySelection(t *testing.T) {
	orch, _, store := newTestOrchestrator(t)
	ctx := context.Background()
	if _, err := orch.StartScan(ctx, ""); err != nil {
		t.Fatalf("StartScan: %v", err)
	}
	if _, err := orch.DeselectAllFolders(ctx); err != nil {
		t.Fatalf("DeselectAllFolders: %v", err)
	}

	if _, err := orch.StartOrganizing(ctx, "google", &fakeStarter{}); err == nil {
		t.Fatal("empty selection did not error")
	}
	// The session stays in selecting so the user can fix the selection.
	sess, _ := store.Load()
	if sess.Status != StatusSelecting {
		t.Errorf("status = %q, want selecting", sess.Status)
	}
}

func TestStartOrganizingHandoffFailure(t *testing.T) {
	orch, _, store := newTestOrchestrator(t)
	ctx := context.Background()
	if _, err := orch.StartScan(ctx, ""); err != nil {
		t.Fatalf("StartScan: %v", err)
	}

	starter := &fakeStarter{err: fmt.Errorf("daemon unreachable")}
	if _, err := orch.StartOrganizing(ctx, "google", starter); err == nil {
		t.Fatal("handoff failure did not error")
	}
	sess, _ := store.Load()
	if sess.Status != StatusError {
		t.Errorf("status = %q, want error", sess.Status)
	}
	if sess.ErrorMessage == "" {
		t.Error("error message not recorded")
	}
}

// seedPlanReview puts a session with a reviewable plan into the store.
func seedPlanReview(t *testing.T, store *Store) {
	t.Helper()
	sess := New()
	sess.Status = StatusReviewingPlan
	sess.FolderPlan = &plan.FolderPlan{
		Folders: []plan.ProposedFolder{
			{Path: "Dev/Go", IsNew: true},
			{Path: "News", IsNew: true},
		},
		Summary: "test plan",
	}
	sess.Assignments = []plan.Assignment{
		{BookmarkID: "b1", SuggestedPath: "Dev/Go", IsNewFolder: true, IsApproved: true},
		{BookmarkID: "b2", SuggestedPath: "News", IsNewFolder: true, IsApproved: true},
	}
	if err := store.Save(sess); err != nil {
		t.Fatalf("seeding session: %v", err)
	}
}

func TestApprovePlanDropsExcludedAssignments(t *testing.T) {
	orch, _, store := newTestOrchestrator(t)
	ctx := context.Background()
	seedPlanReview(t, store)

	if _, err := orch.ToggleFolderExclusion(ctx, "News"); err != nil {
		t.Fatalf("ToggleFolderExclusion: %v", err)
	}
	sess, err := orch.ApprovePlan(ctx)
	if err != nil {
		t.Fatalf("ApprovePlan: %v", err)
	}

	if sess.Status != StatusReviewingAssignments {
		t.Errorf("status = %q, want reviewing_assignments", sess.Status)
	}
	if len(sess.Assignments) != 1 || sess.Assignments[0].BookmarkID != "b1" {
		t.Errorf("assignments = %+v, want just b1", sess.Assignments)
	}
}

func TestToggleFolderExclusionUnknownPath(t *testing.T) {
	orch, _, store := newTestOrchestrator(t)
	seedPlanReview(t, store)

	if _, err := orch.ToggleFolderExclusion(context.Background(), "Nope"); err == nil {
		t.Error("unknown path did not error")
	}
}

func TestRejectPlan(t *testing.T) {
	orch, _, store := newTestOrchestrator(t)
	seedPlanReview(t, store)

	sess, err := orch.RejectPlan(context.Background())
	if err != nil {
		t.Fatalf("RejectPlan: %v", err)
	}
	if sess.Status != StatusSelecting {
		t.Errorf("status = %q, want selecting", sess.Status)
	}
	if sess.FolderPlan != nil || sess.Assignments != nil {
		t.Error("plan or assignments survived rejection")
	}
}

func TestToggleApproval(t *testing.T) {
	orch, _, store := newTestOrchestrator(t)
	ctx := context.Background()
	seedPlanReview(t, store)
	if _, err := orch.ApprovePlan(ctx); err != nil {
		t.Fatalf("ApprovePlan: %v", err)
	}

	sess, err := orch.ToggleApproval(ctx, "b1")
	if err != nil {
		t.Fatalf("ToggleApproval: %v", err)
	}
	if sess.Assignments[0].IsApproved {
		t.Error("b1 still approved after toggle")
	}

	if _, err := orch.ToggleApproval(ctx, "ghost"); err == nil {
		t.Error("unknown bookmark id did not error")
	}

	sess, err = orch.RejectAll(ctx)
	if err != nil {
		t.Fatalf("RejectAll: %v", err)
	}
	for _, a := range sess.Assignments {
		if a.IsApproved {
			t.Errorf("assignment %s approved after RejectAll", a.BookmarkID)
		}
	}

	sess, err = orch.ApproveAll(ctx)
	if err != nil {
		t.Fatalf("ApproveAll: %v", err)
	}
	for _, a := range sess.Assignments {
		if !a.IsApproved {
			t.Errorf("assignment %s rejected after ApproveAll", a.BookmarkID)
		}
	}
}

func TestOperationsRequireMatchingState(t *testing.T) {
	orch, _, store := newTestOrchestrator(t)
	ctx := context.Background()

	// No session at all.
	if _, err := orch.ToggleFolder(ctx, "f-dev"); err == nil {
		t.Error("ToggleFolder without a session did not error")
	}

	// Wrong state for plan review operations.
	sess := New()
	sess.Status = StatusSelecting
	if err := store.Save(sess); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := orch.ApprovePlan(ctx); err == nil {
		t.Error("ApprovePlan in selecting did not error")
	}
	if _, err := orch.Apply(ctx); err == nil {
		t.Error("Apply in selecting did not error")
	}
}

func TestReset(t *testing.T) {
	orch, _, store := newTestOrchestrator(t)
	ctx := context.Background()
	if _, err := orch.StartScan(ctx, ""); err != nil {
		t.Fatalf("StartScan: %v", err)
	}

	sess, err := orch.Reset(ctx)
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if sess.Status != StatusIdle {
		t.Errorf("status = %q, want idle", sess.Status)
	}
	stored, err := store.Load()
	if err != nil {
		t.Fatalf("Load after Reset: %v", err)
	}
	if stored != nil {
		t.Errorf("session survived Reset: %+v", stored)
	}
}
