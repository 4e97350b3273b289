package bookmarks

// Node is one entry in the bookmark tree. A node with an empty URL is a
// folder; its Children hold the folders and bookmarks inside it. The tree
// root is a synthetic folder node with an empty ID.
type Node struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	URL      string  `json:"url,omitempty"`
	Children []*Node `json:"children,omitempty"`
}

// IsFolder reports whether the node is a folder rather than a bookmark.
func (n *Node) IsFolder() bool {
	return n.URL == ""
}

// Compact is an immutable snapshot of one bookmark taken at scan time,
// annotated with the folder it currently lives in. It becomes stale if
// the store changes afterwards; that staleness is accepted, not reconciled.
type Compact struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	URL               string `json:"url"`
	CurrentFolderPath string `json:"currentFolderPath"`
	CurrentFolderID   string `json:"currentFolderId"`
}
