package bookmarks

import (
	"fmt"
	"html"
	"io"
	"strings"
)

// ExportNetscapeHTML writes the tree in the Netscape bookmark file
// format so the result can be re-imported by any browser.
func ExportNetscapeHTML(w io.Writer, root *Node) error {
	var b strings.Builder
	b.WriteString("<!DOCTYPE NETSCAPE-Bookmark-file-1>\n")
	b.WriteString("<META HTTP-EQUIV=\"Content-Type\" CONTENT=\"text/html; charset=UTF-8\">\n")
	b.WriteString("<TITLE>Bookmarks</TITLE>\n")
	b.WriteString("<H1>Bookmarks</H1>\n")
	b.WriteString("<DL><p>\n")
	writeChildren(&b, root, 1)
	b.WriteString("</DL><p>\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func writeChildren(b *strings.Builder, n *Node, indent int) {
	prefix := strings.Repeat("    ", indent)
	for _, c := range n.Children {
		if c.IsFolder() {
			fmt.Fprintf(b, "%s<DT><H3>%s</H3>\n", prefix, html.EscapeString(c.Title))
			fmt.Fprintf(b, "%s<DL><p>\n", prefix)
			writeChildren(b, c, indent+1)
			fmt.Fprintf(b, "%s</DL><p>\n", prefix)
			continue
		}
		fmt.Fprintf(b, "%s<DT><A HREF=\"%s\">%s</A>\n",
			prefix, html.EscapeString(c.URL), html.EscapeString(c.Title))
	}
}
