package folders

import (
	"strings"

	"github.com/migsilva89/markmind/internal/bookmarks"
)

// Index is a snapshot of the folder hierarchy: a text rendering for AI
// prompts plus path/id lookup maps. Built from one tree read; pure after
// that.
type Index struct {
	// Text is an indented rendering of every folder, one per line.
	Text string
	// PathToID maps escaped folder paths to folder ids.
	PathToID map[string]string
	// IDToPath is the inverse of PathToID.
	IDToPath map[string]string
}

// BuildIndex walks the bookmark tree and indexes every folder in it.
func BuildIndex(root *bookmarks.Node) *Index {
	idx := &Index{
		PathToID: make(map[string]string),
		IDToPath: make(map[string]string),
	}
	var sb strings.Builder
	walkFolders(root, nil, 0, func(n *bookmarks.Node, segments []string, depth int) {
		path := JoinPath(segments)
		idx.PathToID[path] = n.ID
		idx.IDToPath[n.ID] = path
		sb.WriteString(strings.Repeat("  ", depth))
		sb.WriteString(n.Title)
		sb.WriteString("\n")
	})
	idx.Text = sb.String()
	return idx
}

func walkFolders(n *bookmarks.Node, segments []string, depth int, visit func(*bookmarks.Node, []string, int)) {
	for _, c := range n.Children {
		if !c.IsFolder() {
			continue
		}
		childSegments := append(segments[:len(segments):len(segments)], c.Title)
		visit(c, childSegments, depth)
		walkFolders(c, childSegments, depth+1, visit)
	}
}

// Flatten walks the tree and returns a compact record for every bookmark,
// annotated with its current folder path and id. When selected is non-nil,
// only bookmarks whose folder id is in the set are returned; the root is
// addressed by the empty id.
func Flatten(root *bookmarks.Node, selected map[string]bool) []bookmarks.Compact {
	var out []bookmarks.Compact
	var walk func(n *bookmarks.Node, segments []string)
	walk = func(n *bookmarks.Node, segments []string) {
		path := JoinPath(segments)
		for _, c := range n.Children {
			if c.IsFolder() {
				walk(c, append(segments[:len(segments):len(segments)], c.Title))
				continue
			}
			if selected != nil && !selected[n.ID] {
				continue
			}
			out = append(out, bookmarks.Compact{
				ID:                c.ID,
				Title:             c.Title,
				URL:               c.URL,
				CurrentFolderPath: path,
				CurrentFolderID:   n.ID,
			})
		}
	}
	walk(root, nil)
	return out
}

// FolderIDs returns the distinct set of folder ids that currently hold at
// least one of the given bookmarks.
func FolderIDs(list []bookmarks.Compact) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, b := range list {
		if !seen[b.CurrentFolderID] {
			seen[b.CurrentFolderID] = true
			ids = append(ids, b.CurrentFolderID)
		}
	}
	return ids
}
