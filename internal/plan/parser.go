package plan

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/migsilva89/markmind/internal/bookmarks"
)

type rawResponse struct {
	Folders []struct {
		Path        string `json:"path"`
		Description string `json:"description"`
	} `json:"folders"`
	Summary     string `json:"summary"`
	Assignments []struct {
		BookmarkID    string `json:"bookmarkId"`
		SuggestedPath string `json:"suggestedPath"`
	} `json:"assignments"`
}

// Parse turns the raw AI response text into a Result. The response may be
// wrapped in markdown code fences. Both top-level collections are required;
// an assignment referencing a bookmark id absent from batch is logged and
// kept with empty title/url placeholders rather than failing the batch.
// pathToID decides which suggested paths are new versus existing.
func Parse(raw string, batch []bookmarks.Compact, pathToID map[string]string) (*Result, error) {
	stripped := StripCodeFence(raw)

	var resp rawResponse
	if err := json.Unmarshal([]byte(stripped), &resp); err != nil {
		slog.Warn("organize response is not valid JSON", "error", err, "response", raw)
		return nil, fmt.Errorf("parsing organize response: %w", err)
	}
	if resp.Folders == nil {
		return nil, fmt.Errorf("organize response is missing the folders collection")
	}
	if resp.Assignments == nil {
		return nil, fmt.Errorf("organize response is missing the assignments collection")
	}

	byID := make(map[string]bookmarks.Compact, len(batch))
	for _, b := range batch {
		byID[b.ID] = b
	}

	result := &Result{
		Plan: FolderPlan{
			Folders: make([]ProposedFolder, len(resp.Folders)),
			Summary: resp.Summary,
		},
		Assignments: make([]Assignment, len(resp.Assignments)),
	}

	for i, f := range resp.Folders {
		_, exists := pathToID[f.Path]
		result.Plan.Folders[i] = ProposedFolder{
			Path:        f.Path,
			Description: f.Description,
			IsNew:       !exists,
		}
	}

	for i, a := range resp.Assignments {
		bm, known := byID[a.BookmarkID]
		if !known {
			slog.Warn("organize response references unknown bookmark", "bookmark_id", a.BookmarkID)
		}
		folderID, exists := pathToID[a.SuggestedPath]
		result.Assignments[i] = Assignment{
			BookmarkID:        a.BookmarkID,
			BookmarkTitle:     bm.Title,
			BookmarkURL:       bm.URL,
			CurrentPath:       bm.CurrentFolderPath,
			SuggestedPath:     a.SuggestedPath,
			SuggestedFolderID: folderID,
			IsNewFolder:       !exists,
			IsApproved:        true,
		}
	}

	return result, nil
}

// StripCodeFence removes a wrapping markdown code fence (``` or ```json)
// from the text, if present.
func StripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		// Drop the language tag on the opening fence line.
		trimmed = trimmed[idx+1:]
	}
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
