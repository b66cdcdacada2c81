package server

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mikekulinski/zkmirror/pkg/session"
	"github.com/mikekulinski/zkmirror/pkg/watch"
	"github.com/mikekulinski/zkmirror/pkg/zxid"
)

const (
	// pollWait bounds how long a Poll call blocks before returning an empty
	// batch for the client to retry.
	pollWait = 10 * time.Second

	defaultPollMax = 64
)

// Server is an in-memory remote tree plus the watch surface the mirror
// subscribes to. Every exported method follows the net/rpc convention, so a
// Server can be registered directly with rpc.RegisterName.
type Server struct {
	// mu guards the tree, the sessions, and the zxid counter. Holding it
	// while emitting events is what makes the per-subscription event order
	// identical to the mutation order.
	mu   sync.RWMutex
	root *znode
	// sessions is a map of ClientID to subscription for all the clients that
	// are currently watching the tree.
	sessions map[string]*session.Session
	// connected tracks the clients that have completed the Connect handshake.
	connected map[string]bool
	lastZxid  zxid.ZXID
}

func NewServer() *Server {
	return &Server{
		root:      newZNode("", nil, time.Now()),
		sessions:  map[string]*session.Session{},
		connected: map[string]bool{},
	}
}

// Connect establishes a client session.
func (s *Server) Connect(req *watch.ConnectReq, _ *watch.ConnectResp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connected[req.ID] {
		return fmt.Errorf("session already exists for that clientID")
	}
	s.connected[req.ID] = true
	return nil
}

// Close terminates a client session, tearing down its subscription if one is
// still live.
func (s *Server) Close(req *watch.CloseReq, _ *watch.CloseResp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[req.ID]; ok {
		sess.Close()
		delete(s.sessions, req.ID)
	}
	delete(s.connected, req.ID)
	return nil
}

// Create creates a node with path name path and stores data in it. The parent
// of the new node must already exist.
func (s *Server) Create(req *watch.CreateReq, resp *watch.CreateResp) error {
	if err := watch.ValidatePath(req.Path); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	names := splitPathIntoNodeNames(req.Path)
	// Search down the tree until we hit the parent where we'll be creating this new node.
	parent := findZNode(s.root, names[:len(names)-1])
	if parent == nil {
		return fmt.Errorf("at least one of the ancestors of this node are missing")
	}

	newName := names[len(names)-1]
	if _, ok := parent.children[newName]; ok {
		return fmt.Errorf("node [%s] already exists at path [%s]", newName, req.Path)
	}
	node := newZNode(newName, req.Data, time.Now())
	parent.children[newName] = node
	resp.ZNodeName = newName

	// The node's own Added, then an Updated for the parent: its child count
	// just changed, and watchers derive container-ness from exactly that.
	s.broadcastLocked(s.nextEventLocked(watch.EventAdded, req.Path, node))
	s.emitParentLocked(req.Path)
	return nil
}

// Delete deletes the node at the given path if that node is at the expected
// version. Only leaf nodes can be deleted.
func (s *Server) Delete(req *watch.DeleteReq, _ *watch.DeleteResp) error {
	if err := watch.ValidatePath(req.Path); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	names := splitPathIntoNodeNames(req.Path)
	parent := findZNode(s.root, names[:len(names)-1])
	if parent == nil {
		return fmt.Errorf("at least one of the ancestors of this node are missing")
	}

	nameToDelete := names[len(names)-1]
	node, ok := parent.children[nameToDelete]
	if !ok {
		// If the node doesn't exist, then act like the operation succeeded.
		return nil
	}
	if !isValidVersion(req.Version, node.version) {
		return fmt.Errorf("invalid version: expected [%d], actual [%d]", req.Version, node.version)
	}
	if len(node.children) > 0 {
		return fmt.Errorf("the node specified has children. Only leaf nodes can be deleted")
	}
	delete(parent.children, nameToDelete)

	s.broadcastLocked(s.nextEventLocked(watch.EventRemoved, req.Path, nil))
	s.emitParentLocked(req.Path)
	return nil
}

// Exists returns true if the node with path name path exists, and returns
// false otherwise.
func (s *Server) Exists(req *watch.ExistsReq, resp *watch.ExistsResp) error {
	if err := watch.ValidatePath(req.Path); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	node := findZNode(s.root, splitPathIntoNodeNames(req.Path))
	resp.Exists = node != nil
	return nil
}

// GetData returns the data and metadata associated with the node.
func (s *Server) GetData(req *watch.GetDataReq, resp *watch.GetDataResp) error {
	if err := watch.ValidatePath(req.Path); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	node := findZNode(s.root, splitPathIntoNodeNames(req.Path))
	if node == nil {
		return nil
	}
	resp.Data = node.data
	resp.Version = node.version
	resp.ModifiedAt = node.modifiedAt
	return nil
}

// SetData writes data to the node at path if the version number is the
// current version of the node.
func (s *Server) SetData(req *watch.SetDataReq, _ *watch.SetDataResp) error {
	if err := watch.ValidatePath(req.Path); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	node := findZNode(s.root, splitPathIntoNodeNames(req.Path))
	if node == nil {
		return fmt.Errorf("node does not exist")
	}
	if !isValidVersion(req.Version, node.version) {
		return fmt.Errorf("invalid version: expected [%d], actual [%d]", req.Version, node.version)
	}
	node.data = req.Data
	node.version++
	node.modifiedAt = time.Now()

	s.broadcastLocked(s.nextEventLocked(watch.EventUpdated, req.Path, node))
	return nil
}

// GetChildren returns the set of names of the children of a node.
func (s *Server) GetChildren(req *watch.GetChildrenReq, resp *watch.GetChildrenResp) error {
	if err := watch.ValidateRootPath(req.Path); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	node := findZNode(s.root, splitPathIntoNodeNames(req.Path))
	if node == nil {
		return nil
	}
	var childrenNames []string
	for name := range node.children {
		childrenNames = append(childrenNames, name)
	}
	resp.Children = childrenNames
	return nil
}

// Subscribe registers a watch over the subtree rooted at RootPath. The
// initial enumeration of the subtree is queued immediately, parents strictly
// before their children, followed by exactly one sync marker. Everything
// happens under the tree lock so no concurrent mutation can interleave with
// the snapshot.
func (s *Server) Subscribe(req *watch.SubscribeReq, _ *watch.SubscribeResp) error {
	if err := watch.ValidateRootPath(req.RootPath); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected[req.ID] {
		return fmt.Errorf("client is not connected")
	}
	if _, ok := s.sessions[req.ID]; ok {
		return fmt.Errorf("subscription already exists for that clientID")
	}

	sess := session.NewSession(req.RootPath)
	s.sessions[req.ID] = sess

	if node := findZNode(s.root, splitPathIntoNodeNames(req.RootPath)); node != nil {
		s.snapshotLocked(sess, req.RootPath, node)
	}
	sess.Push(s.nextEventLocked(watch.EventSyncDone, "", nil))
	return nil
}

// Poll blocks until events are queued for the client's subscription, then
// returns a batch of them in order. An empty batch means the wait timed out
// and the client should poll again.
func (s *Server) Poll(req *watch.PollReq, resp *watch.PollResp) error {
	s.mu.RLock()
	sess := s.sessions[req.ID]
	s.mu.RUnlock()
	if sess == nil {
		// An unknown subscription is indistinguishable from one that was just
		// torn down. Report it closed so pollers stop rather than retry.
		resp.Closed = true
		return nil
	}

	max := req.Max
	if max <= 0 {
		max = defaultPollMax
	}
	resp.Events, resp.Closed = sess.Next(max, pollWait)
	if resp.Closed {
		// Fully drained; only now does the subscription leave the map.
		s.mu.Lock()
		if s.sessions[req.ID] == sess {
			delete(s.sessions, req.ID)
		}
		s.mu.Unlock()
	}
	return nil
}

// Unsubscribe closes the client's subscription. Events already queued are
// still delivered; the subscription reports closed once the client has
// polled the queue dry. Unsubscribing a client with no subscription is a
// no-op.
func (s *Server) Unsubscribe(req *watch.UnsubscribeReq, _ *watch.UnsubscribeResp) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.sessions[req.ID]
	if sess == nil {
		return nil
	}
	sess.Close()
	return nil
}

// nextEventLocked stamps the next zxid onto a fresh event, snapshotting the
// node's data and child count as they are at this moment.
func (s *Server) nextEventLocked(t watch.EventType, path string, node *znode) watch.Event {
	s.lastZxid = s.lastZxid.Next()
	ev := watch.Event{
		Type: t,
		Path: path,
		Zxid: s.lastZxid,
	}
	if node != nil {
		ev.Node = &watch.Node{
			Path:       path,
			Data:       node.data,
			ChildCount: len(node.children),
			ModifiedAt: node.modifiedAt,
		}
	}
	return ev
}

// broadcastLocked queues an event on every subscription whose root covers the
// event's path.
func (s *Server) broadcastLocked(ev watch.Event) {
	for _, sess := range s.sessions {
		if covers(sess.Root, ev.Path) {
			sess.Push(ev)
		}
	}
}

// emitParentLocked queues an Updated event for the parent of childPath,
// reflecting its new child count.
func (s *Server) emitParentLocked(childPath string) {
	parentPath := parentOf(childPath)
	node := findZNode(s.root, splitPathIntoNodeNames(parentPath))
	if node == nil {
		return
	}
	s.broadcastLocked(s.nextEventLocked(watch.EventUpdated, parentPath, node))
}

// snapshotLocked queues Added events for every node of the subtree, each
// parent strictly before any of its children. The walk keeps its own stack
// instead of recursing.
func (s *Server) snapshotLocked(sess *session.Session, path string, node *znode) {
	type entry struct {
		path string
		node *znode
	}
	stack := []entry{{path: path, node: node}}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		sess.Push(s.nextEventLocked(watch.EventAdded, e.path, e.node))
		for name, child := range e.node.children {
			stack = append(stack, entry{path: childPath(e.path, name), node: child})
		}
	}
}

func childPath(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}

// covers reports whether a subscription rooted at root receives events for
// path.
func covers(root, path string) bool {
	if root == "/" {
		return true
	}
	return path == root || strings.HasPrefix(path, root+"/")
}
