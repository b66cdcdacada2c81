package mirror

import "fmt"

// InvalidPathError indicates a remote path that does not start at the root.
type InvalidPathError struct {
	Path string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("remote path %q does not start at the root", e.Path)
}

// RepairError indicates that an ancestor of a target path could not be forced
// into being a directory. The event that needed the ancestor is abandoned;
// ancestors repaired before the failure are left in place.
type RepairError struct {
	Path string
	Err  error
}

func (e *RepairError) Error() string {
	return fmt.Sprintf("repairing ancestor %q: %v", e.Path, e.Err)
}

func (e *RepairError) Unwrap() error {
	return e.Err
}

// ProtocolError indicates that the change stream violated its ordering
// contract. This is a programmer/protocol bug, not an I/O problem, so it is
// fatal to the mirror rather than logged and swallowed.
type ProtocolError struct {
	Path   string
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("change stream protocol violation at %q: %s", e.Path, e.Reason)
}
