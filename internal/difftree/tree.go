// Package difftree turns flat git listings into renderable models: a
// status-annotated file forest and a line-classified diff.
package difftree

import (
	"sort"
	"strings"

	"github.com/revq/revq/internal/git"
)

// Node is one entry of the file forest. Status is set only for file nodes
// that appear in a changed-file listing; a directory's effective status is
// always derived on read, never stored.
type Node struct {
	Name     string
	Path     string
	IsDir    bool
	Status   git.ChangeStatus
	Children []*Node
	Expanded bool
}

// Build combines the full path listing at a revision with a changed-file
// listing into a sorted forest. Deleted paths are absent from the full
// listing by construction, so they are re-injected from the changed list.
// The forest is built fresh on every call.
func Build(allPaths []string, changed []git.ChangedFile) []*Node {
	status := make(map[string]git.ChangeStatus, len(changed))
	for _, file := range changed {
		status[file.Path] = file.Status
	}

	present := make(map[string]struct{}, len(allPaths))
	paths := make([]string, 0, len(allPaths))
	for _, path := range allPaths {
		if path == "" {
			continue
		}
		present[path] = struct{}{}
		paths = append(paths, path)
	}
	for _, file := range changed {
		if file.Status != git.StatusDeleted {
			continue
		}
		if _, ok := present[file.Path]; !ok {
			paths = append(paths, file.Path)
		}
	}

	root := &Node{IsDir: true}
	index := map[string]*Node{"": root}
	for _, path := range paths {
		segments := strings.Split(path, "/")
		parent := root
		for i, segment := range segments {
			childPath := strings.Join(segments[:i+1], "/")
			node, ok := index[childPath]
			if !ok {
				node = &Node{
					Name:  segment,
					Path:  childPath,
					IsDir: i < len(segments)-1,
				}
				index[childPath] = node
				parent.Children = append(parent.Children, node)
			}
			parent = node
		}
		if leaf := index[path]; !leaf.IsDir {
			leaf.Status = status[path]
		}
	}
	sortChildren(root)
	return root.Children
}

// sortChildren orders every level with directories first, then
// case-insensitive lexical order, recursing into directories.
func sortChildren(node *Node) {
	sort.SliceStable(node.Children, func(i, j int) bool {
		a, b := node.Children[i], node.Children[j]
		if a.IsDir != b.IsDir {
			return a.IsDir
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})
	for _, child := range node.Children {
		if child.IsDir {
			sortChildren(child)
		}
	}
}

// EffectiveStatus returns the node's own status for files. For directories
// it is the highest-priority status among descendant files, added over
// deleted over modified; renames and copies do not propagate upward. Empty
// means unchanged.
func (n *Node) EffectiveStatus() git.ChangeStatus {
	if !n.IsDir {
		return n.Status
	}
	best := git.ChangeStatus("")
	for _, child := range n.Children {
		if s := child.EffectiveStatus(); statusPriority(s) > statusPriority(best) {
			best = s
		}
	}
	return best
}

func statusPriority(s git.ChangeStatus) int {
	switch s {
	case git.StatusAdded:
		return 3
	case git.StatusDeleted:
		return 2
	case git.StatusModified:
		return 1
	default:
		return 0
	}
}
