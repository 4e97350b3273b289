package bookmarks

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/migsilva89/markmind/internal/storage"
)

// ParseNetscapeHTML parses the Netscape bookmark file format exported by
// every major browser and returns flat folder and bookmark records ready
// for insertion. Folder hierarchy comes from H3/DL nesting.
func ParseNetscapeHTML(r io.Reader) ([]storage.Folder, []storage.Bookmark, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing bookmarks html: %w", err)
	}

	var folders []storage.Folder
	var bms []storage.Bookmark

	// Stack of folder ids; empty string means root. An H3 names a folder,
	// the DL that follows holds its contents.
	var stack []string
	var pending string

	currentParent := func() string {
		if len(stack) == 0 {
			return ""
		}
		return stack[len(stack)-1]
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "h3":
				title := nodeText(n)
				if title != "" {
					f := storage.Folder{
						ID:        uuid.New().String(),
						Title:     title,
						ParentID:  currentParent(),
						CreatedAt: time.Now().UTC(),
					}
					folders = append(folders, f)
					pending = f.ID
				}
				return

			case "a":
				href := nodeAttr(n, "href")
				if href == "" {
					return
				}
				title := nodeText(n)
				if title == "" {
					title = href
				}
				createdAt := time.Now().UTC()
				if addDate := nodeAttr(n, "add_date"); addDate != "" {
					if ts, err := strconv.ParseInt(addDate, 10, 64); err == nil {
						createdAt = time.Unix(ts, 0).UTC()
					}
				}
				bms = append(bms, storage.Bookmark{
					ID:        uuid.New().String(),
					Title:     title,
					URL:       href,
					FolderID:  currentParent(),
					CreatedAt: createdAt,
				})
				return

			case "dl":
				pushed := false
				if pending != "" {
					stack = append(stack, pending)
					pending = ""
					pushed = true
				}
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					walk(c)
				}
				if pushed {
					stack = stack[:len(stack)-1]
				}
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)
	return folders, bms, nil
}

// Import parses Netscape bookmark HTML and stores everything it finds.
// Returns the number of folders and bookmarks created.
func Import(r io.Reader, store *storage.Store) (int, int, error) {
	folders, bms, err := ParseNetscapeHTML(r)
	if err != nil {
		return 0, 0, err
	}
	for _, f := range folders {
		if err := store.CreateFolder(f); err != nil {
			return 0, 0, fmt.Errorf("importing folder %q: %w", f.Title, err)
		}
	}
	for _, b := range bms {
		if err := store.CreateBookmark(b); err != nil {
			return 0, 0, fmt.Errorf("importing bookmark %q: %w", b.Title, err)
		}
	}
	return len(folders), len(bms), nil
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(sb.String())
}

func nodeAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if strings.EqualFold(attr.Key, key) {
			return attr.Val
		}
	}
	return ""
}
