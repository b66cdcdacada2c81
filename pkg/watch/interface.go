package watch

import "context"

// Watcher is the subscription surface the mirror consumes.
type Watcher interface {
	// Subscribe starts watching the subtree rooted at rootPath and returns the
	// ordered stream of change events. Implementations must deliver the events
	// for the initial enumeration of the subtree followed by exactly one
	// EventSyncDone, and must never reorder or drop events. The channel is
	// closed once the subscription ends, whether by Unsubscribe, by ctx being
	// cancelled, or by the server tearing the session down.
	Subscribe(ctx context.Context, rootPath string) (<-chan Event, error)
	// Unsubscribe tears down the subscription on the server. It is safe to call
	// while a Subscribe stream is still being consumed; the stream's channel is
	// closed once the remaining queued events have been delivered.
	Unsubscribe() error
}
