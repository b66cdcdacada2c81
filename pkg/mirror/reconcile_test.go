package mirror

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikekulinski/zkmirror/pkg/watch"
)

var testModTime = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestReconciler(t *testing.T) (*Reconciler, afero.Fs) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(testRoot, 0755))
	return NewReconciler(fs, testRoot), fs
}

func leaf(path string, data string) *watch.Node {
	return &watch.Node{
		Path:       path,
		Data:       []byte(data),
		ChildCount: 0,
		ModifiedAt: testModTime,
	}
}

func container(path string, childCount int, data string) *watch.Node {
	return &watch.Node{
		Path:       path,
		Data:       []byte(data),
		ChildCount: childCount,
		ModifiedAt: testModTime,
	}
}

func added(node *watch.Node) watch.Event {
	return watch.Event{Type: watch.EventAdded, Path: node.Path, Node: node}
}

func updated(node *watch.Node) watch.Event {
	return watch.Event{Type: watch.EventUpdated, Path: node.Path, Node: node}
}

func removed(path string) watch.Event {
	return watch.Event{Type: watch.EventRemoved, Path: path}
}

func assertFileContent(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err, path)
	assert.Equal(t, content, string(data), path)
}

func assertIsDir(t *testing.T, fs afero.Fs, path string) {
	t.Helper()
	fi, err := fs.Stat(path)
	require.NoError(t, err, path)
	assert.True(t, fi.IsDir(), path)
}

func assertAbsent(t *testing.T, fs afero.Fs, path string) {
	t.Helper()
	exists, err := afero.Exists(fs, path)
	require.NoError(t, err, path)
	assert.False(t, exists, path)
}

func TestReconciler_AddLeaf(t *testing.T) {
	rec, fs := newTestReconciler(t)

	require.NoError(t, rec.Apply(added(leaf("/a", "hi"))))

	local := filepath.Join(testRoot, "a")
	assertFileContent(t, fs, local, "hi")
	fi, err := fs.Stat(local)
	require.NoError(t, err)
	assert.True(t, fi.ModTime().Equal(testModTime))
}

func TestReconciler_AddEmptyLeaf(t *testing.T) {
	rec, fs := newTestReconciler(t)

	require.NoError(t, rec.Apply(added(leaf("/a", ""))))

	// Existence must be observable even with no payload.
	assertFileContent(t, fs, filepath.Join(testRoot, "a"), "")
}

func TestReconciler_AddContainerWithData(t *testing.T) {
	rec, fs := newTestReconciler(t)

	require.NoError(t, rec.Apply(added(container("/a", 2, "payload"))))

	local := filepath.Join(testRoot, "a")
	assertIsDir(t, fs, local)
	assertFileContent(t, fs, AuxiliaryPath(local), "payload")
}

func TestReconciler_AddContainerWithoutData(t *testing.T) {
	rec, fs := newTestReconciler(t)

	require.NoError(t, rec.Apply(added(container("/a", 1, ""))))

	local := filepath.Join(testRoot, "a")
	assertIsDir(t, fs, local)
	assertAbsent(t, fs, AuxiliaryPath(local))
}

func TestReconciler_OutOfOrderParents(t *testing.T) {
	rec, fs := newTestReconciler(t)

	// No event has been seen for /a or /a/b.
	require.NoError(t, rec.Apply(added(leaf("/a/b/c", "deep"))))

	assertIsDir(t, fs, filepath.Join(testRoot, "a"))
	assertIsDir(t, fs, filepath.Join(testRoot, "a", "b"))
	assertFileContent(t, fs, filepath.Join(testRoot, "a", "b", "c"), "deep")
}

func TestReconciler_ChildBeforeParentPreservesLeafData(t *testing.T) {
	rec, fs := newTestReconciler(t)

	// /a starts out as a childless leaf with data, then a child shows up
	// before any Updated event for /a itself.
	require.NoError(t, rec.Apply(added(leaf("/a", "old"))))
	require.NoError(t, rec.Apply(added(leaf("/a/b", "new"))))

	local := filepath.Join(testRoot, "a")
	assertIsDir(t, fs, local)
	assertFileContent(t, fs, AuxiliaryPath(local), "old")
	assertFileContent(t, fs, filepath.Join(local, "b"), "new")
}

func TestReconciler_AddedExistingPathIsProtocolError(t *testing.T) {
	rec, _ := newTestReconciler(t)

	require.NoError(t, rec.Apply(added(leaf("/a", "hi"))))
	err := rec.Apply(added(leaf("/a", "hi")))
	require.Error(t, err)
	assert.IsType(t, &ProtocolError{}, err)
}

func TestReconciler_AddedRoot(t *testing.T) {
	rec, fs := newTestReconciler(t)

	// The mirror root pre-exists; Added for it must not trip the existence
	// check, and its data lands in the root's auxiliary slot.
	require.NoError(t, rec.Apply(added(container("/", 3, "root data"))))

	assertIsDir(t, fs, testRoot)
	assertFileContent(t, fs, AuxiliaryPath(testRoot), "root data")
}

func TestReconciler_RootSurvivesLosingItsLastChild(t *testing.T) {
	rec, fs := newTestReconciler(t)

	// Deleting the last top-level node produces an update reporting the
	// root as childless. That must never convert the root into a file.
	require.NoError(t, rec.Apply(added(leaf("/a", "hi"))))
	require.NoError(t, rec.Apply(removed("/a")))
	require.NoError(t, rec.Apply(updated(leaf("/", ""))))

	assertIsDir(t, fs, testRoot)

	// The mirror keeps working afterwards.
	require.NoError(t, rec.Apply(added(leaf("/b", "back"))))
	assertFileContent(t, fs, filepath.Join(testRoot, "b"), "back")
}

func TestReconciler_RootUpdatePayload(t *testing.T) {
	rec, fs := newTestReconciler(t)

	// A root update only ever touches the auxiliary slot.
	require.NoError(t, rec.Apply(updated(leaf("/", "blob"))))
	assertIsDir(t, fs, testRoot)
	assertFileContent(t, fs, AuxiliaryPath(testRoot), "blob")

	require.NoError(t, rec.Apply(updated(leaf("/", ""))))
	assertIsDir(t, fs, testRoot)
	assertAbsent(t, fs, AuxiliaryPath(testRoot))
}

func TestReconciler_LeafToContainerConversion(t *testing.T) {
	rec, fs := newTestReconciler(t)

	require.NoError(t, rec.Apply(added(leaf("/a", "old"))))
	require.NoError(t, rec.Apply(updated(container("/a", 1, "fresh"))))

	local := filepath.Join(testRoot, "a")
	assertIsDir(t, fs, local)
	// The update carries the authoritative data; the old leaf content is
	// superseded, not relocated.
	assertFileContent(t, fs, AuxiliaryPath(local), "fresh")
}

func TestReconciler_ContainerToLeafConversion(t *testing.T) {
	rec, fs := newTestReconciler(t)

	require.NoError(t, rec.Apply(added(container("/x", 1, "aux data"))))
	require.NoError(t, rec.Apply(added(leaf("/x/y", "hi"))))
	require.NoError(t, rec.Apply(updated(leaf("/x", "bye"))))

	local := filepath.Join(testRoot, "x")
	assertFileContent(t, fs, local, "bye")
	assertAbsent(t, fs, filepath.Join(local, "y"))
	assertAbsent(t, fs, AuxiliaryPath(local))
}

func TestReconciler_UpdatedIsIdempotent(t *testing.T) {
	rec, fs := newTestReconciler(t)

	require.NoError(t, rec.Apply(added(leaf("/a", "hi"))))
	require.NoError(t, rec.Apply(updated(leaf("/a", "hi"))))
	require.NoError(t, rec.Apply(updated(leaf("/a", "hi"))))

	assertFileContent(t, fs, filepath.Join(testRoot, "a"), "hi")
}

func TestReconciler_RemoveLeaf(t *testing.T) {
	rec, fs := newTestReconciler(t)

	require.NoError(t, rec.Apply(added(leaf("/a", "hi"))))
	require.NoError(t, rec.Apply(removed("/a")))

	assertAbsent(t, fs, filepath.Join(testRoot, "a"))
}

func TestReconciler_RemoveContainerWithPayload(t *testing.T) {
	rec, fs := newTestReconciler(t)

	require.NoError(t, rec.Apply(added(container("/a", 1, "payload"))))
	require.NoError(t, rec.Apply(removed("/a")))

	local := filepath.Join(testRoot, "a")
	assertAbsent(t, fs, AuxiliaryPath(local))
	assertAbsent(t, fs, local)
}

func TestReconciler_RemoveMissingPathIsNoOp(t *testing.T) {
	rec, _ := newTestReconciler(t)

	require.NoError(t, rec.Apply(removed("/never/seen")))
}

// statErrFs fails Stat for a single path so the behavior on an unreadable
// path can be pinned down.
type statErrFs struct {
	afero.Fs
	failPath string
}

func (f *statErrFs) Stat(name string) (os.FileInfo, error) {
	if name == f.failPath {
		return nil, errors.New("stat: input/output error")
	}
	return f.Fs.Stat(name)
}

func TestReconciler_AddedStatFailureIsNotAProtocolError(t *testing.T) {
	base := afero.NewMemMapFs()
	require.NoError(t, base.MkdirAll(testRoot, 0755))
	fs := &statErrFs{Fs: base, failPath: filepath.Join(testRoot, "a")}
	rec := NewReconciler(fs, testRoot)

	// A Stat failure that isn't a clean "not there" must not be mistaken
	// for an ordering violation; the event still gets applied.
	require.NoError(t, rec.Apply(added(leaf("/a", "hi"))))
	assertFileContent(t, base, filepath.Join(testRoot, "a"), "hi")
}

func TestReconciler_InvalidRemotePath(t *testing.T) {
	rec, _ := newTestReconciler(t)

	err := rec.Apply(added(leaf("relative", "hi")))
	require.Error(t, err)
	assert.IsType(t, &InvalidPathError{}, err)
}
