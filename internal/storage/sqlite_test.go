package storage

import (
	"errors"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestMigrationsIdempotent runs Open twice on the same database and
// verifies the migration is not re-applied.
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	var count int
	if err := s2.db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count); err != nil {
		t.Fatalf("querying schema_version: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 applied migration, got %d", count)
	}
}

func TestFolderCRUD(t *testing.T) {
	s := openTestStore(t)

	parent := Folder{ID: "f1", Title: "Dev", CreatedAt: time.Now().UTC()}
	if err := s.CreateFolder(parent); err != nil {
		t.Fatalf("CreateFolder parent: %v", err)
	}
	child := Folder{ID: "f2", Title: "Go", ParentID: "f1", CreatedAt: time.Now().UTC()}
	if err := s.CreateFolder(child); err != nil {
		t.Fatalf("CreateFolder child: %v", err)
	}

	got, err := s.GetFolder("f2")
	if err != nil {
		t.Fatalf("GetFolder: %v", err)
	}
	if got.Title != "Go" || got.ParentID != "f1" {
		t.Errorf("GetFolder = %+v, want Title=Go ParentID=f1", got)
	}

	// Root-level folders come back with an empty parent id.
	gotParent, err := s.GetFolder("f1")
	if err != nil {
		t.Fatalf("GetFolder parent: %v", err)
	}
	if gotParent.ParentID != "" {
		t.Errorf("root folder ParentID = %q, want empty", gotParent.ParentID)
	}

	all, err := s.ListFolders()
	if err != nil {
		t.Fatalf("ListFolders: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("ListFolders returned %d folders, want 2", len(all))
	}
}

func TestGetFolderNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetFolder("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetFolder(missing) error = %v, want ErrNotFound", err)
	}
}

func TestBookmarkMove(t *testing.T) {
	s := openTestStore(t)

	if err := s.CreateFolder(Folder{ID: "f1", Title: "Dev", CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	b := Bookmark{ID: "b1", Title: "Go blog", URL: "https://go.dev/blog", CreatedAt: time.Now().UTC()}
	if err := s.CreateBookmark(b); err != nil {
		t.Fatalf("CreateBookmark: %v", err)
	}

	moved, err := s.MoveBookmark("b1", "f1")
	if err != nil {
		t.Fatalf("MoveBookmark: %v", err)
	}
	if moved.FolderID != "f1" {
		t.Errorf("moved FolderID = %q, want f1", moved.FolderID)
	}

	// Moving back to the root stores NULL but reads back as empty.
	moved, err = s.MoveBookmark("b1", "")
	if err != nil {
		t.Fatalf("MoveBookmark to root: %v", err)
	}
	if moved.FolderID != "" {
		t.Errorf("root FolderID = %q, want empty", moved.FolderID)
	}

	if _, err := s.MoveBookmark("missing", "f1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("MoveBookmark(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSearchBookmarksByURL(t *testing.T) {
	s := openTestStore(t)

	seed := []Bookmark{
		{ID: "b1", Title: "Go blog", URL: "https://go.dev/blog", CreatedAt: time.Now().UTC()},
		{ID: "b2", Title: "Go docs", URL: "https://go.dev/doc", CreatedAt: time.Now().UTC()},
		{ID: "b3", Title: "Example", URL: "https://example.com", CreatedAt: time.Now().UTC()},
	}
	for _, b := range seed {
		if err := s.CreateBookmark(b); err != nil {
			t.Fatalf("CreateBookmark %s: %v", b.ID, err)
		}
	}

	got, err := s.SearchBookmarksByURL("go.dev")
	if err != nil {
		t.Fatalf("SearchBookmarksByURL: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("search returned %d bookmarks, want 2", len(got))
	}

	// A fragment matches anywhere inside the URL, not just the whole string.
	got, err = s.SearchBookmarksByURL("/blog")
	if err != nil {
		t.Fatalf("SearchBookmarksByURL: %v", err)
	}
	if len(got) != 1 || got[0].ID != "b1" {
		t.Errorf("fragment search = %+v, want b1 only", got)
	}

	got, err = s.SearchBookmarksByURL("rust-lang.org")
	if err != nil {
		t.Fatalf("SearchBookmarksByURL: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("search with no matches returned %d bookmarks", len(got))
	}
}

func TestKVRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.GetKV("session"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetKV on empty store error = %v, want ErrNotFound", err)
	}

	if err := s.SetKV("session", `{"status":"idle"}`); err != nil {
		t.Fatalf("SetKV: %v", err)
	}
	got, err := s.GetKV("session")
	if err != nil {
		t.Fatalf("GetKV: %v", err)
	}
	if got != `{"status":"idle"}` {
		t.Errorf("GetKV = %q", got)
	}

	// Upsert replaces.
	if err := s.SetKV("session", `{"status":"scanning"}`); err != nil {
		t.Fatalf("SetKV update: %v", err)
	}
	got, _ = s.GetKV("session")
	if got != `{"status":"scanning"}` {
		t.Errorf("after update GetKV = %q", got)
	}

	if err := s.DeleteKV("session"); err != nil {
		t.Fatalf("DeleteKV: %v", err)
	}
	if _, err := s.GetKV("session"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetKV after delete error = %v, want ErrNotFound", err)
	}
}
