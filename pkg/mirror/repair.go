package mirror

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/afero"
)

// ensureDirChain forces every path component between root (exclusive) and
// targetParent (inclusive) to exist as a directory. The walk is top-down, so
// a failure partway through leaves every already-repaired ancestor intact.
// The mirror root itself is assumed to exist; it is created at startup.
func ensureDirChain(fs afero.Fs, targetParent, root string) error {
	chain, err := ancestorChain(targetParent, root)
	if err != nil {
		return &RepairError{Path: targetParent, Err: err}
	}
	for _, dir := range chain {
		if err := forceDirectory(fs, dir); err != nil {
			return &RepairError{Path: dir, Err: err}
		}
	}
	return nil
}

// ancestorChain returns the paths from just below the mirror root down to
// targetParent, in creation order. An explicit walk rather than
// self-recursion: remote trees can be deep enough to make recursion a
// stack-depth liability.
func ancestorChain(targetParent, root string) ([]string, error) {
	root = filepath.Clean(root)
	targetParent = filepath.Clean(targetParent)

	var chain []string
	for p := targetParent; p != root; p = filepath.Dir(p) {
		if p == filepath.Dir(p) {
			// Walked off the top of the tree without ever meeting root.
			return nil, fmt.Errorf("%q is not under the mirror root %q", targetParent, root)
		}
		chain = append(chain, p)
	}
	slices.Reverse(chain)
	return chain, nil
}

// forceDirectory makes path a directory. An empty obstructing file is simply
// deleted. A non-empty obstructing file is a node that used to be a childless
// leaf: its bytes and modification time move into the new directory's
// auxiliary slot so the node's own data survives the conversion.
func forceDirectory(fs afero.Fs, path string) error {
	fi, err := fs.Stat(path)
	switch {
	case os.IsNotExist(err):
		return fs.Mkdir(path, 0755)
	case err != nil:
		return err
	case fi.IsDir():
		return nil
	}

	if fi.Size() == 0 {
		if err := fs.Remove(path); err != nil {
			return err
		}
		return fs.Mkdir(path, 0755)
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return err
	}
	if err := fs.Remove(path); err != nil {
		return err
	}
	if err := fs.Mkdir(path, 0755); err != nil {
		return err
	}
	aux := AuxiliaryPath(path)
	if err := afero.WriteFile(fs, aux, data, 0644); err != nil {
		return err
	}
	return fs.Chtimes(aux, fi.ModTime(), fi.ModTime())
}
