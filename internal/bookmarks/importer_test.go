package bookmarks

import (
	"strings"
	"testing"
)

const sampleExport = `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<META HTTP-EQUIV="Content-Type" CONTENT="text/html; charset=UTF-8">
<TITLE>Bookmarks</TITLE>
<H1>Bookmarks</H1>
<DL><p>
    <DT><H3>Dev</H3>
    <DL><p>
        <DT><H3>Go</H3>
        <DL><p>
            <DT><A HREF="https://go.dev/blog" ADD_DATE="1700000000">Go blog</A>
        </DL><p>
        <DT><A HREF="https://news.ycombinator.com">Hacker News</A>
    </DL><p>
    <DT><A HREF="https://example.com"></A>
    <DT><A>no href</A>
</DL><p>
`

func TestParseNetscapeHTML(t *testing.T) {
	folders, bms, err := ParseNetscapeHTML(strings.NewReader(sampleExport))
	if err != nil {
		t.Fatalf("ParseNetscapeHTML: %v", err)
	}

	if len(folders) != 2 {
		t.Fatalf("got %d folders, want 2: %+v", len(folders), folders)
	}
	dev, goFolder := folders[0], folders[1]
	if dev.Title != "Dev" || dev.ParentID != "" {
		t.Errorf("Dev = %+v, want root-level", dev)
	}
	if goFolder.Title != "Go" || goFolder.ParentID != dev.ID {
		t.Errorf("Go = %+v, want nested under Dev", goFolder)
	}

	// The anchor with no href is dropped.
	if len(bms) != 3 {
		t.Fatalf("got %d bookmarks, want 3: %+v", len(bms), bms)
	}

	blog := bms[0]
	if blog.Title != "Go blog" || blog.URL != "https://go.dev/blog" {
		t.Errorf("blog = %+v", blog)
	}
	if blog.FolderID != goFolder.ID {
		t.Errorf("blog FolderID = %q, want the Go folder", blog.FolderID)
	}
	if blog.CreatedAt.Unix() != 1700000000 {
		t.Errorf("blog CreatedAt = %v, want the ADD_DATE timestamp", blog.CreatedAt)
	}

	hn := bms[1]
	if hn.FolderID != dev.ID {
		t.Errorf("hn FolderID = %q, want the Dev folder", hn.FolderID)
	}

	// A titleless bookmark falls back to its URL.
	root := bms[2]
	if root.Title != "https://example.com" || root.FolderID != "" {
		t.Errorf("root bookmark = %+v", root)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	tree := &Node{
		Children: []*Node{
			{
				ID: "f1", Title: "Dev & Tools",
				Children: []*Node{
					{ID: "b1", Title: "Go <blog>", URL: "https://go.dev/blog?a=1&b=2"},
				},
			},
			{ID: "b2", Title: "Example", URL: "https://example.com"},
		},
	}

	var sb strings.Builder
	if err := ExportNetscapeHTML(&sb, tree); err != nil {
		t.Fatalf("ExportNetscapeHTML: %v", err)
	}
	out := sb.String()
	if !strings.HasPrefix(out, "<!DOCTYPE NETSCAPE-Bookmark-file-1>") {
		t.Error("missing Netscape doctype")
	}
	if !strings.Contains(out, "Dev &amp; Tools") {
		t.Error("folder title not HTML-escaped")
	}

	folders, bms, err := ParseNetscapeHTML(strings.NewReader(out))
	if err != nil {
		t.Fatalf("re-parsing export: %v", err)
	}
	if len(folders) != 1 || folders[0].Title != "Dev & Tools" {
		t.Errorf("folders = %+v", folders)
	}
	if len(bms) != 2 {
		t.Fatalf("bookmarks = %+v", bms)
	}
	if bms[0].Title != "Go <blog>" || bms[0].URL != "https://go.dev/blog?a=1&b=2" {
		t.Errorf("escaped bookmark did not round-trip: %+v", bms[0])
	}
	if bms[0].FolderID != folders[0].ID {
		t.Error("bookmark lost its folder in the round trip")
	}
}
