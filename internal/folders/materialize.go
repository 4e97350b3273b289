package folders

import (
	"context"
	"fmt"

	"github.com/migsilva89/markmind/internal/bookmarks"
)

// Creator is the single mutation the materializer needs from the
// bookmark store.
type Creator interface {
	CreateFolder(ctx context.Context, parentID, title string) (*bookmarks.Node, error)
}

// CreatePath resolves a slash-separated folder path to a folder id,
// creating any missing segment under defaultParentID. The cache maps
// escaped paths to ids and is updated in place, so repeated calls for the
// same path create each missing folder at most once; a second call with a
// warm cache performs no store calls at all.
func CreatePath(ctx context.Context, creator Creator, path string, cache map[string]string, defaultParentID string) (string, error) {
	segments := SplitPath(path)
	if len(segments) == 0 {
		return "", fmt.Errorf("empty folder path")
	}

	parentID := defaultParentID
	var partial []string
	for _, seg := range segments {
		partial = append(partial, seg)
		key := JoinPath(partial)
		if id, ok := cache[key]; ok {
			parentID = id
			continue
		}
		node, err := creator.CreateFolder(ctx, parentID, seg)
		if err != nil {
			return "", fmt.Errorf("creating folder %q: %w", seg, err)
		}
		cache[key] = node.ID
		parentID = node.ID
	}
	return parentID, nil
}
