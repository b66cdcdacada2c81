package mirror

import (
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/mikekulinski/zkmirror/pkg/watch"
)

// Reconciler applies change events to the local mirror tree, one at a time.
// It is not safe for concurrent use; the driver serializes events through it.
//
// Local I/O failures are logged and swallowed: the event is considered
// best-effort applied and a later event for the same path converges the
// mirror. A non-nil error from Apply means the change stream broke its
// ordering contract and the mirror should stop.
type Reconciler struct {
	fs   afero.Fs
	root string
}

func NewReconciler(fs afero.Fs, root string) *Reconciler {
	return &Reconciler{
		fs:   fs,
		root: root,
	}
}

// Apply performs the local side effects for a single event.
func (r *Reconciler) Apply(ev watch.Event) error {
	local, err := ToLocalPath(ev.Path, r.root)
	if err != nil {
		return err
	}
	isRoot := ev.Path == "/"

	logger := log.WithFields(log.Fields{
		"type": ev.Type.String(),
		"path": ev.Path,
		"zxid": ev.Zxid,
	})
	logger.Debug("Applying change event")

	switch ev.Type {
	case watch.EventAdded:
		// The stream promises Added only for paths the mirror has never
		// materialized. The mirror root is the one exception: it pre-exists.
		if !isRoot {
			if _, err := r.fs.Stat(local); err == nil {
				return &ProtocolError{Path: ev.Path, Reason: "Added for a path that already exists locally"}
			} else if !os.IsNotExist(err) {
				// Anything but a clean "not there" leaves the check blind.
				logger.WithError(err).Warn("Could not verify the path is absent")
			}
		}
		r.createOrUpdate(logger, ev.Node, local, isRoot)
	case watch.EventUpdated:
		// The mirror root stays a directory for the whole run; it never
		// changes kind. An update for a now-childless root only means its
		// payload changed, so at most the stale auxiliary entry goes away.
		if isRoot {
			if len(ev.Node.Data) == 0 {
				r.removeIfPresent(logger, AuxiliaryPath(local))
			}
		} else {
			r.convertKind(logger, ev.Node, local)
		}
		r.createOrUpdate(logger, ev.Node, local, isRoot)
	case watch.EventRemoved:
		// The auxiliary payload goes strictly before the entry itself so a
		// failure in between never leaves an orphaned payload file.
		r.removeIfPresent(logger, AuxiliaryPath(local))
		r.removeIfPresent(logger, local)
	}
	return nil
}

// convertKind applies the disjoint part of an update: if the node changed
// kind since the mirror last saw it, the old materialization is torn down
// before any new data is written, so the path is never a mix of both kinds.
func (r *Reconciler) convertKind(logger *log.Entry, node *watch.Node, local string) {
	fi, err := r.fs.Stat(local)
	if err != nil {
		// Absent locally: nothing to convert.
		return
	}

	switch {
	case fi.IsDir() && !node.IsContainer():
		// Directory to regular file. Drop the auxiliary payload first, then
		// the directory along with any children the stream has not delivered
		// individual removals for yet.
		r.removeIfPresent(logger, AuxiliaryPath(local))
		if err := r.fs.RemoveAll(local); err != nil {
			logger.WithError(err).Error("Failed to remove directory during kind conversion")
		}
	case !fi.IsDir() && node.IsContainer():
		// Regular file to directory. The file's old content is superseded by
		// the data carried on this event, so it is simply deleted.
		if err := r.fs.Remove(local); err != nil {
			logger.WithError(err).Error("Failed to remove file during kind conversion")
		}
	}
}

// createOrUpdate is the common effect shared by Added and Updated events. It
// runs after any kind conversion, so the path is already in (or absent and
// awaiting) its new kind.
func (r *Reconciler) createOrUpdate(logger *log.Entry, node *watch.Node, local string, isRoot bool) {
	if !isRoot {
		if err := ensureDirChain(r.fs, filepath.Dir(local), r.root); err != nil {
			logger.WithError(err).Error("Failed to repair ancestor directories")
			return
		}
		if node.IsContainer() {
			if _, err := r.fs.Stat(local); os.IsNotExist(err) {
				if err := r.fs.Mkdir(local, 0755); err != nil {
					logger.WithError(err).Error("Failed to create directory")
					return
				}
			}
		}
	}

	// The root's payload always lands in its auxiliary slot no matter what
	// the node's own kind is: the root directory itself is untouchable.
	container := node.IsContainer() || isRoot

	// A container with no payload gets no auxiliary entry. Everything else
	// gets a write, even an empty leaf, so that existence is observable.
	if len(node.Data) == 0 && container {
		return
	}
	target := local
	if container {
		target = AuxiliaryPath(local)
	}
	if err := afero.WriteFile(r.fs, target, node.Data, 0644); err != nil {
		logger.WithError(err).Error("Failed to write node data")
		return
	}
	if err := r.fs.Chtimes(target, node.ModifiedAt, node.ModifiedAt); err != nil {
		logger.WithError(err).Error("Failed to set the modification time")
	}
}

func (r *Reconciler) removeIfPresent(logger *log.Entry, path string) {
	exists, err := afero.Exists(r.fs, path)
	if err != nil || !exists {
		return
	}
	if err := r.fs.Remove(path); err != nil {
		logger.WithError(err).WithField("target", path).Error("Failed to remove entry")
	}
}
