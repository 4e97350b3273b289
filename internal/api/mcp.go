package api

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/migsilva89/markmind/internal/bookmarks"
	"github.com/migsilva89/markmind/internal/folders"
	"github.com/migsilva89/markmind/internal/session"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Bookmarks bookmarks.Service
	Sessions  *session.Store
}

// NewMCPServer creates an MCP server exposing the bookmark library to
// MCP-capable assistants: URL search, the folder tree, and the state of
// any in-flight organize session.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"markmind",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("markmind is a local bookmark library with AI-assisted folder organization."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("search_bookmarks",
			mcp.WithDescription("Search stored bookmarks by URL substring."),
			mcp.WithString("url", mcp.Description("URL or URL fragment to match"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 10)")),
		),
		mcpSearchBookmarks(deps),
	)

	s.AddTool(
		mcp.NewTool("list_folders",
			mcp.WithDescription("List all bookmark folders as indented text with full paths."),
		),
		mcpListFolders(deps),
	)

	s.AddTool(
		mcp.NewTool("organize_status",
			mcp.WithDescription("Report the status of the current bookmark organization session, if any."),
		),
		mcpOrganizeStatus(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"bookmarks://tree",
			"Bookmark Tree",
			mcp.WithResourceDescription("Full bookmark tree as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceTree(deps),
	)

	return s
}

func mcpSearchBookmarks(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := req.RequireString("url")
		if err != nil {
			return mcpError("url is required"), nil
		}

		limit := req.GetInt("limit", 10)
		if limit <= 0 {
			limit = 10
		}
		if limit > 100 {
			limit = 100
		}

		matches, err := deps.Bookmarks.Search(ctx, url)
		if err != nil {
			return mcpError(fmt.Sprintf("search failed: %v", err)), nil
		}
		if len(matches) > limit {
			matches = matches[:limit]
		}

		if len(matches) == 0 {
			return mcpText("[]"), nil
		}

		type match struct {
			ID    string `json:"id"`
			Title string `json:"title"`
			URL   string `json:"url"`
		}

		results := make([]match, len(matches))
		for i, m := range matches {
			title := m.Title
			if utf8.RuneCountInString(title) > 200 {
				runes := []rune(title)
				title = string(runes[:200]) + "..."
			}
			results[i] = match{ID: m.ID, Title: title, URL: m.URL}
		}

		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}

		return mcpText(string(b)), nil
	}
}

func mcpListFolders(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		root, err := deps.Bookmarks.GetTree(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to load tree: %v", err)), nil
		}

		idx := folders.BuildIndex(root)
		if idx.Text == "" {
			return mcpText("(no folders)"), nil
		}
		return mcpText(idx.Text), nil
	}
}

func mcpOrganizeStatus(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sess, err := deps.Sessions.Load()
		if err != nil {
			return mcpError(fmt.Sprintf("failed to load session: %v", err)), nil
		}
		if sess == nil {
			return mcpText("No organization session in progress."), nil
		}

		b, err := json.Marshal(sess)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal session: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceTree(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		root, err := deps.Bookmarks.GetTree(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load tree: %w", err)
		}

		b, err := json.Marshal(root)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal tree: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
