package plan

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/migsilva89/markmind/internal/bookmarks"
)

const systemPrompt = `You are a bookmark organization assistant. You receive the user's current
folder tree and a batch of bookmarks, and you propose a clean folder
structure plus one folder assignment per bookmark.

Respond with a single JSON object and nothing else:

{
  "folders": [{"path": "Development/Go", "description": "Go language resources"}],
  "summary": "one-sentence description of the proposed structure",
  "assignments": [{"bookmarkId": "id from the input", "suggestedPath": "Development/Go"}]
}

Rules:
- Prefer existing folders when they fit; propose new ones only when needed.
- Folder paths use "/" between levels. Keep hierarchies at most three levels deep.
- Every bookmark in the input must appear in "assignments" exactly once.
- Use bookmark ids exactly as given.
- Do not wrap the JSON in markdown fences or commentary.`

// BuildPrompts renders the system and user prompts for one plan-and-assign
// call over the given batch.
func BuildPrompts(batch []bookmarks.Compact, folderTree string) (system, user string, err error) {
	type promptBookmark struct {
		ID     string `json:"id"`
		Title  string `json:"title"`
		URL    string `json:"url"`
		Folder string `json:"currentFolderPath"`
	}

	list := make([]promptBookmark, len(batch))
	for i, b := range batch {
		list[i] = promptBookmark{ID: b.ID, Title: b.Title, URL: b.URL, Folder: b.CurrentFolderPath}
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("marshalling bookmark batch: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Current folder tree:\n")
	if strings.TrimSpace(folderTree) == "" {
		sb.WriteString("(no folders yet)\n")
	} else {
		sb.WriteString(folderTree)
	}
	sb.WriteString("\nBookmarks to organize:\n")
	sb.Write(data)
	sb.WriteString("\n")

	return systemPrompt, sb.String(), nil
}
