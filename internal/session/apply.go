package session

import (
	"context"
	"time"

	"github.com/migsilva89/markmind/internal/folders"
)

// Apply performs the approved moves, one at a time and in order. Failures
// are isolated per assignment: an unresolved folder or a failed move is
// counted as skipped and never aborts the batch. Rejected assignments
// count as skipped in the final tally even though they are not attempted,
// so appliedCount+skippedCount always equals the assignment count. The
// session's path→id map is mutated as new folders materialize and is
// carried forward for future runs. The session always ends in completed.
func (o *Orchestrator) Apply(ctx context.Context) (*Session, error) {
	sess, err := o.require(StatusReviewingAssignments)
	if err != nil {
		return nil, err
	}

	sess.Status = StatusApplying
	if err := o.sessions.Save(sess); err != nil {
		return nil, err
	}

	if sess.PathToID == nil {
		sess.PathToID = make(map[string]string)
	}

	applied, skipped := 0, 0
	for _, a := range sess.Assignments {
		if !a.IsApproved {
			skipped++
			continue
		}

		folderID := a.SuggestedFolderID
		if folderID == "" && a.IsNewFolder {
			id, err := folders.CreatePath(ctx, o.svc, a.SuggestedPath, sess.PathToID, sess.DefaultParentID)
			if err != nil {
				o.log.Warn("could not materialize folder", "path", a.SuggestedPath, "error", err)
			} else {
				folderID = id
			}
		}
		if folderID == "" {
			o.log.Warn("no target folder resolved, skipping", "bookmark_id", a.BookmarkID, "path", a.SuggestedPath)
			skipped++
			continue
		}

		if _, err := o.svc.Move(ctx, a.BookmarkID, folderID); err != nil {
			o.log.Warn("move failed, skipping", "bookmark_id", a.BookmarkID, "error", err)
			skipped++
			continue
		}
		applied++
	}

	sess.AppliedCount = applied
	sess.SkippedCount = skipped
	sess.CompletedAt = time.Now().UTC()
	sess.Status = StatusCompleted
	if err := o.sessions.Save(sess); err != nil {
		return nil, err
	}
	return sess, nil
}
