package mirror

import (
	"path/filepath"
	"strings"
)

// AuxiliaryName is the reserved entry that holds a container node's own data,
// since a directory cannot itself carry a byte payload. The source reserves
// this name: a remote child literally named "zookeeper" inside the mirrored
// subtree is undefined behavior upstream, and the mirror does not try to
// resolve the collision.
const AuxiliaryName = "zookeeper"

// ToLocalPath maps an absolute remote node path onto the local filesystem
// under root. The remote tree root itself maps to root; every other path maps
// to root/<path without the leading slash>.
func ToLocalPath(remotePath, root string) (string, error) {
	if !strings.HasPrefix(remotePath, "/") {
		return "", &InvalidPathError{Path: remotePath}
	}
	trimmed := strings.TrimPrefix(remotePath, "/")
	if trimmed == "" {
		return root, nil
	}
	return filepath.Join(root, filepath.FromSlash(trimmed)), nil
}

// AuxiliaryPath returns the auxiliary payload entry under a node's directory.
func AuxiliaryPath(localPath string) string {
	return filepath.Join(localPath, AuxiliaryName)
}
