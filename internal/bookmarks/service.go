package bookmarks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/migsilva89/markmind/internal/storage"
)

// Service is the bookmark store the organizer works against. GetTree
// returns a snapshot of the whole hierarchy; CreateFolder and Move are
// the only mutations the organizer performs.
type Service interface {
	GetTree(ctx context.Context) (*Node, error)
	CreateFolder(ctx context.Context, parentID, title string) (*Node, error)
	Move(ctx context.Context, id, newParentID string) (*Node, error)
	Search(ctx context.Context, url string) ([]*Node, error)
}

// SQLiteService implements Service on top of the SQLite store.
type SQLiteService struct {
	store *storage.Store
}

// NewSQLiteService creates a Service backed by the given store.
func NewSQLiteService(store *storage.Store) *SQLiteService {
	return &SQLiteService{store: store}
}

func (s *SQLiteService) GetTree(ctx context.Context) (*Node, error) {
	folders, err := s.store.ListFolders()
	if err != nil {
		return nil, fmt.Errorf("listing folders: %w", err)
	}
	bms, err := s.store.ListBookmarks()
	if err != nil {
		return nil, fmt.Errorf("listing bookmarks: %w", err)
	}

	nodes := make(map[string]*Node, len(folders)+1)
	root := &Node{}
	nodes[""] = root
	for _, f := range folders {
		nodes[f.ID] = &Node{ID: f.ID, Title: f.Title}
	}

	// Folders whose parent vanished are reattached at the root.
	for _, f := range folders {
		parent, ok := nodes[f.ParentID]
		if !ok {
			parent = root
		}
		parent.Children = append(parent.Children, nodes[f.ID])
	}
	for _, b := range bms {
		parent, ok := nodes[b.FolderID]
		if !ok {
			parent = root
		}
		parent.Children = append(parent.Children, &Node{ID: b.ID, Title: b.Title, URL: b.URL})
	}

	return root, nil
}

func (s *SQLiteService) CreateFolder(ctx context.Context, parentID, title string) (*Node, error) {
	f := storage.Folder{
		ID:        uuid.New().String(),
		Title:     title,
		ParentID:  parentID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateFolder(f); err != nil {
		return nil, fmt.Errorf("creating folder %q: %w", title, err)
	}
	return &Node{ID: f.ID, Title: f.Title}, nil
}

func (s *SQLiteService) Move(ctx context.Context, id, newParentID string) (*Node, error) {
	b, err := s.store.MoveBookmark(id, newParentID)
	if err != nil {
		return nil, fmt.Errorf("moving bookmark %s: %w", id, err)
	}
	return &Node{ID: b.ID, Title: b.Title, URL: b.URL}, nil
}

func (s *SQLiteService) Search(ctx context.Context, url string) ([]*Node, error) {
	bms, err := s.store.SearchBookmarksByURL(url)
	if err != nil {
		return nil, err
	}
	nodes := make([]*Node, len(bms))
	for i, b := range bms {
		nodes[i] = &Node{ID: b.ID, Title: b.Title, URL: b.URL}
	}
	return nodes, nil
}

// AddBookmark inserts a bookmark record. Used by the importer and tests;
// not part of the organizer's Service surface.
func (s *SQLiteService) AddBookmark(ctx context.Context, folderID, title, url string) (*Node, error) {
	b := storage.Bookmark{
		ID:        uuid.New().String(),
		Title:     title,
		URL:       url,
		FolderID:  folderID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateBookmark(b); err != nil {
		return nil, fmt.Errorf("creating bookmark %q: %w", title, err)
	}
	return &Node{ID: b.ID, Title: b.Title, URL: b.URL}, nil
}
