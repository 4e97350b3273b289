package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database with methods for folders, bookmarks,
// and the key-value table that holds the organize session record.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database
// (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "markmind.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// The CLI and the daemon open this file from separate processes; the
	// busy timeout makes cross-process access wait instead of failing.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// --- Folders ---

func (s *Store) CreateFolder(f Folder) error {
	_, err := s.db.Exec(`
		INSERT INTO folders (id, title, parent_id, created_at)
		VALUES (?, ?, ?, ?)`,
		f.ID, f.Title, nullIfEmpty(f.ParentID), f.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetFolder(id string) (Folder, error) {
	var f Folder
	var createdAt string
	err := s.db.QueryRow(`
		SELECT id, title, COALESCE(parent_id, ''), created_at FROM folders WHERE id = ?`, id,
	).Scan(&f.ID, &f.Title, &f.ParentID, &createdAt)
	if err == sql.ErrNoRows {
		return Folder{}, ErrNotFound
	}
	if err != nil {
		return Folder{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Folder{}, fmt.Errorf("parsing created_at: %w", err)
	}
	f.CreatedAt = t
	return f, nil
}

func (s *Store) ListFolders() ([]Folder, error) {
	rows, err := s.db.Query(`SELECT id, title, COALESCE(parent_id, ''), created_at FROM folders ORDER BY title ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Folder
	for rows.Next() {
		var f Folder
		var createdAt string
		if err := rows.Scan(&f.ID, &f.Title, &f.ParentID, &createdAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		f.CreatedAt = t
		results = append(results, f)
	}
	return results, rows.Err()
}

// --- Bookmarks ---

func (s *Store) CreateBookmark(b Bookmark) error {
	_, err := s.db.Exec(`
		INSERT INTO bookmarks (id, title, url, folder_id, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		b.ID, b.Title, b.URL, nullIfEmpty(b.FolderID), b.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) MoveBookmark(id, newFolderID string) (Bookmark, error) {
	res, err := s.db.Exec(`UPDATE bookmarks SET folder_id = ? WHERE id = ?`, nullIfEmpty(newFolderID), id)
	if err != nil {
		return Bookmark{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Bookmark{}, err
	}
	if n == 0 {
		return Bookmark{}, ErrNotFound
	}
	return s.GetBookmark(id)
}

func (s *Store) GetBookmark(id string) (Bookmark, error) {
	var b Bookmark
	var createdAt string
	err := s.db.QueryRow(`
		SELECT id, title, url, COALESCE(folder_id, ''), created_at FROM bookmarks WHERE id = ?`, id,
	).Scan(&b.ID, &b.Title, &b.URL, &b.FolderID, &createdAt)
	if err == sql.ErrNoRows {
		return Bookmark{}, ErrNotFound
	}
	if err != nil {
		return Bookmark{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Bookmark{}, fmt.Errorf("parsing created_at: %w", err)
	}
	b.CreatedAt = t
	return b, nil
}

func (s *Store) ListBookmarks() ([]Bookmark, error) {
	rows, err := s.db.Query(`SELECT id, title, url, COALESCE(folder_id, ''), created_at FROM bookmarks ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookmarks(rows)
}

// SearchBookmarksByURL matches bookmarks whose URL contains the given
// fragment.
func (s *Store) SearchBookmarksByURL(url string) ([]Bookmark, error) {
	rows, err := s.db.Query(`SELECT id, title, url, COALESCE(folder_id, ''), created_at FROM bookmarks WHERE url LIKE '%' || ? || '%'`, url)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookmarks(rows)
}

func scanBookmarks(rows *sql.Rows) ([]Bookmark, error) {
	var results []Bookmark
	for rows.Next() {
		var b Bookmark
		var createdAt string
		if err := rows.Scan(&b.ID, &b.Title, &b.URL, &b.FolderID, &createdAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		b.CreatedAt = t
		results = append(results, b)
	}
	return results, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// --- Key-value ---

func (s *Store) GetKV(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return value, err
}

func (s *Store) SetKV(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) DeleteKV(key string) error {
	_, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key)
	return err
}
