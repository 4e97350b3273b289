package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Folder is a bookmark container. An empty ParentID means the folder
// sits at the root of the tree.
type Folder struct {
	ID        string
	Title     string
	ParentID  string
	CreatedAt time.Time
}

// Bookmark is a saved URL. An empty FolderID means the bookmark sits
// at the root of the tree.
type Bookmark struct {
	ID        string
	Title     string
	URL       string
	FolderID  string
	CreatedAt time.Time
}
