package bookmarks

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-memory Service used by tests and by dry runs.
type Memory struct {
	mu      sync.Mutex
	root    *Node
	parents map[string]*Node // node id -> parent folder node

	// CreateCalls counts folder creations, so tests can assert on
	// materialization side effects.
	CreateCalls int

	// FailMoves holds bookmark ids whose Move should fail.
	FailMoves map[string]bool
}

// NewMemory creates an empty in-memory bookmark store.
func NewMemory() *Memory {
	root := &Node{}
	return &Memory{
		root:    root,
		parents: make(map[string]*Node),
	}
}

func (m *Memory) GetTree(ctx context.Context) (*Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneNode(m.root), nil
}

func (m *Memory) CreateFolder(ctx context.Context, parentID, title string) (*Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	parent := m.findFolder(parentID)
	if parent == nil {
		return nil, fmt.Errorf("parent folder %q not found", parentID)
	}
	n := &Node{ID: uuid.New().String(), Title: title}
	parent.Children = append(parent.Children, n)
	m.parents[n.ID] = parent
	m.CreateCalls++
	return &Node{ID: n.ID, Title: n.Title}, nil
}

func (m *Memory) Move(ctx context.Context, id, newParentID string) (*Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailMoves[id] {
		return nil, fmt.Errorf("move rejected for %s", id)
	}

	parent, ok := m.parents[id]
	if !ok {
		return nil, fmt.Errorf("node %q not found", id)
	}
	target := m.findFolder(newParentID)
	if target == nil {
		return nil, fmt.Errorf("target folder %q not found", newParentID)
	}

	var moved *Node
	for i, c := range parent.Children {
		if c.ID == id {
			moved = c
			parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
			break
		}
	}
	if moved == nil {
		return nil, fmt.Errorf("node %q not under recorded parent", id)
	}
	target.Children = append(target.Children, moved)
	m.parents[id] = target
	return &Node{ID: moved.ID, Title: moved.Title, URL: moved.URL}, nil
}

func (m *Memory) Search(ctx context.Context, url string) ([]*Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var found []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		if url != "" && strings.Contains(n.URL, url) {
			found = append(found, &Node{ID: n.ID, Title: n.Title, URL: n.URL})
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(m.root)
	return found, nil
}

// AddFolder inserts a folder with a fixed id, for test setup.
func (m *Memory) AddFolder(id, parentID, title string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	parent := m.findFolder(parentID)
	n := &Node{ID: id, Title: title}
	parent.Children = append(parent.Children, n)
	m.parents[id] = parent
}

// AddBookmark inserts a bookmark with a fixed id, for test setup.
func (m *Memory) AddBookmark(id, folderID, title, url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	parent := m.findFolder(folderID)
	n := &Node{ID: id, Title: title, URL: url}
	parent.Children = append(parent.Children, n)
	m.parents[id] = parent
}

// FolderOf returns the id of the folder currently holding the given node.
func (m *Memory) FolderOf(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.parents[id]; ok {
		return p.ID
	}
	return ""
}

func (m *Memory) findFolder(id string) *Node {
	if id == "" {
		return m.root
	}
	var find func(n *Node) *Node
	find = func(n *Node) *Node {
		if n.ID == id && n.IsFolder() {
			return n
		}
		for _, c := range n.Children {
			if got := find(c); got != nil {
				return got
			}
		}
		return nil
	}
	return find(m.root)
}

func cloneNode(n *Node) *Node {
	out := &Node{ID: n.ID, Title: n.Title, URL: n.URL}
	for _, c := range n.Children {
		out.Children = append(out.Children, cloneNode(c))
	}
	return out
}
