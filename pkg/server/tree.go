package server

import (
	"strings"
	"time"
)

// znode is one node of the in-memory remote tree. Access is guarded by the
// owning Server's mutex.
type znode struct {
	name       string
	version    int
	data       []byte
	modifiedAt time.Time
	children   map[string]*znode
}

func newZNode(name string, data []byte, now time.Time) *znode {
	return &znode{
		name:       name,
		data:       data,
		modifiedAt: now,
		// Init the children to an empty map instead of nil to avoid panics
		// when writing to a nil map.
		children: map[string]*znode{},
	}
}

func splitPathIntoNodeNames(path string) []string {
	if path == "/" {
		return nil
	}
	// Since we have a leading /, then we expect the first name to be empty.
	return strings.Split(path, "/")[1:]
}

// findZNode will search down the tree and return the node specified by the
// names. If the node could not be found, then we will return nil.
func findZNode(start *znode, names []string) *znode {
	node := start
	for _, name := range names {
		z, ok := node.children[name]
		if !ok {
			return nil
		}
		node = z
	}
	return node
}

// parentOf returns the path of a node's parent; the parent of a top-level
// node is the root.
func parentOf(path string) string {
	i := strings.LastIndex(path, "/")
	if i <= 0 {
		return "/"
	}
	return path[:i]
}

// isValidVersion is used for conditional checks for update/delete operations. If the passed in version
// is -1, then skip the version check. Otherwise, make sure the versions are equal.
func isValidVersion(expected, actual int) bool {
	return expected == -1 || expected == actual
}
