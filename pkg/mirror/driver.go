package mirror

import (
	"context"
	"fmt"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/mikekulinski/zkmirror/pkg/watch"
)

// Config holds the knobs for one mirror run.
type Config struct {
	// RemotePath is the remote node the mirror is rooted at.
	RemotePath string
	// OutDir is the local directory the tree is mirrored into.
	OutDir string
	// ForceClean removes whatever already occupies OutDir at startup instead
	// of refusing to run.
	ForceClean bool
	// ExitAfterSync stops the mirror as soon as the initial enumeration of
	// the subtree has been applied.
	ExitAfterSync bool
}

// Driver owns the subscription lifecycle. It prepares the output directory,
// feeds events one at a time through the reconciler in the order they arrive,
// and tears the mirror down on the way out.
type Driver struct {
	fs      afero.Fs
	watcher watch.Watcher
	cfg     Config
	rec     *Reconciler
}

func NewDriver(fs afero.Fs, watcher watch.Watcher, cfg Config) *Driver {
	return &Driver{
		fs:      fs,
		watcher: watcher,
		cfg:     cfg,
		rec:     NewReconciler(fs, cfg.OutDir),
	}
}

// Run mirrors the remote subtree until ctx is cancelled, the stream ends, or
// the stream violates its ordering contract. The output tree is removed on
// the way out regardless of how the mirror stops.
func (d *Driver) Run(ctx context.Context) error {
	if err := d.prepareOutDir(); err != nil {
		return err
	}
	defer d.teardown()

	events, err := d.watcher.Subscribe(ctx, d.cfg.RemotePath)
	if err != nil {
		return fmt.Errorf("error subscribing to the remote tree: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return fmt.Errorf("watch stream closed unexpectedly")
			}
			if ev.Type == watch.EventSyncDone {
				log.WithField("zxid", ev.Zxid).Debug("Initial sync complete")
				if d.cfg.ExitAfterSync {
					return nil
				}
				continue
			}
			if err := d.rec.Apply(ev); err != nil {
				return err
			}
		}
	}
}

// prepareOutDir validates the configured output directory and creates the
// mirror root. A file obstructing the path, or a directory that already has
// contents, is fatal unless ForceClean is set.
func (d *Driver) prepareOutDir() error {
	out := d.cfg.OutDir

	fi, err := d.fs.Stat(out)
	if err == nil && !fi.IsDir() {
		if !d.cfg.ForceClean {
			return fmt.Errorf("file obstructing the output directory %q (use --force to delete)", out)
		}
		if err := d.fs.Remove(out); err != nil {
			return fmt.Errorf("error removing the obstructing file: %w", err)
		}
	}

	if err := d.fs.MkdirAll(out, 0755); err != nil {
		return fmt.Errorf("error creating the output directory: %w", err)
	}

	entries, err := afero.ReadDir(d.fs, out)
	if err != nil {
		return fmt.Errorf("error reading the output directory: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}
	if !d.cfg.ForceClean {
		return fmt.Errorf("output directory %q is not empty (use --force to delete)", out)
	}
	for _, entry := range entries {
		if err := d.fs.RemoveAll(filepath.Join(out, entry.Name())); err != nil {
			return fmt.Errorf("error cleaning the output directory: %w", err)
		}
	}
	return nil
}

// teardown is best effort: failures are reported, never escalated.
func (d *Driver) teardown() {
	if err := d.watcher.Unsubscribe(); err != nil {
		log.WithError(err).Warn("Failed to cleanly unsubscribe from the watch stream")
	}
	if err := d.fs.RemoveAll(d.cfg.OutDir); err != nil {
		log.WithError(err).Warn("Failed to remove the mirror output directory")
	}
}
