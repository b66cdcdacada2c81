package watch

import (
	"time"

	"github.com/mikekulinski/zkmirror/pkg/zxid"
)

// ClientID is the ID used to maintain a client/server session. This is expected
// to be included in every request to the server. The caller isn't expected to set
// this value. The watch client library will do this automatically and will overwrite
// any value directly set by the client anyway.
type ClientID struct {
	ID string
}

// Node is the state of a single remote node as it was observed at the moment
// an event was generated.
type Node struct {
	// Path is the absolute, slash-separated path of the node.
	Path string
	// Data is the byte payload stored at the node, possibly empty.
	Data []byte
	// ChildCount is the number of children the node had when observed.
	ChildCount int
	// ModifiedAt is the time of the last data change.
	ModifiedAt time.Time
}

// IsContainer reports whether the node had children when it was observed.
// Container-ness is always derived from ChildCount at observation time; it is
// never stored as a separate flag, so a stale Node never disagrees with its
// own metadata.
func (n *Node) IsContainer() bool {
	return n.ChildCount > 0
}

type EventType int

const (
	// EventAdded means the node appeared in the remote tree.
	EventAdded EventType = iota
	// EventUpdated means the node's data or metadata changed.
	EventUpdated
	// EventRemoved means the node was deleted from the remote tree.
	EventRemoved
	// EventSyncDone is delivered exactly once per subscription, after the
	// initial enumeration of the subscribed subtree has been delivered.
	EventSyncDone
)

func (t EventType) String() string {
	switch t {
	case EventAdded:
		return "NODE_ADDED"
	case EventUpdated:
		return "NODE_UPDATED"
	case EventRemoved:
		return "NODE_REMOVED"
	case EventSyncDone:
		return "INITIAL_SYNC_COMPLETE"
	default:
		return "UNKNOWN"
	}
}

// Event is one entry of the ordered change stream.
type Event struct {
	Type EventType
	// Path is empty for EventSyncDone.
	Path string
	// Node is nil for EventRemoved and EventSyncDone.
	Node *Node
	// Zxid stamps the event's position in the total order of the stream.
	Zxid zxid.ZXID
}

/*
Request/response types for every server operation. These are shared by the
client and the server so the two sides always agree on the wire format.
*/

type CreateReq struct {
	ClientID

	Path string
	Data []byte
}

type CreateResp struct {
	ZNodeName string
}

type DeleteReq struct {
	ClientID

	Path    string
	Version int
}

type DeleteResp struct{}

type ExistsReq struct {
	ClientID

	Path string
}

type ExistsResp struct {
	Exists bool
}

type GetDataReq struct {
	ClientID

	Path string
}

type GetDataResp struct {
	Data       []byte
	Version    int
	ModifiedAt time.Time
}

type SetDataReq struct {
	ClientID

	Path    string
	Data    []byte
	Version int
}

type SetDataResp struct{}

type GetChildrenReq struct {
	ClientID

	Path string
}

type GetChildrenResp struct {
	Children []string
}

type SubscribeReq struct {
	ClientID

	// RootPath is the remote node the subscription is rooted at. Events are
	// delivered for it and everything below it.
	RootPath string
}

type SubscribeResp struct{}

type PollReq struct {
	ClientID

	// Max bounds the number of events returned by a single poll.
	Max int
}

type PollResp struct {
	Events []Event
	// Closed reports that the subscription has been torn down and the queue
	// fully drained. No further polls will return events.
	Closed bool
}

type UnsubscribeReq struct {
	ClientID
}

type UnsubscribeResp struct{}

/*
Server/Client connections
*/
type ConnectReq struct {
	ClientID
}

type ConnectResp struct{}

type CloseReq struct {
	ClientID
}

type CloseResp struct{}
