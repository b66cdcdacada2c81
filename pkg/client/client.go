package client

import (
	"context"
	"errors"
	"fmt"
	"net/rpc"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/mikekulinski/zkmirror/pkg/watch"
)

const (
	// serviceName is the name the watch server registers itself under.
	serviceName = "Watch"

	// pollMax bounds how many events one poll round trip may carry.
	pollMax = 64

	initialRetryWait = 1 * time.Second
	maxRetryWait     = 30 * time.Second
)

// Client connects to a watch server and adapts its poll-based watch surface
// into the ordered event channel the mirror consumes. A single goroutine
// drains the server-side queue into a single channel, so events reach the
// consumer in exactly the order the server generated them no matter how the
// transport schedules its deliveries.
type Client struct {
	rpcClient *rpc.Client
	clientID  string
	events    chan watch.Event
}

// NewClient dials the watch server at endpoint (host:port) and establishes a
// session.
func NewClient(endpoint string) (*Client, error) {
	// Dial the initial RPC connection.
	rpcClient, err := rpc.Dial("tcp", endpoint)
	if err != nil {
		return nil, fmt.Errorf("dialing: %w", err)
	}

	clientID := uuid.New().String()
	// Initiate the session with the watch server.
	req := &watch.ConnectReq{
		ClientID: watch.ClientID{ID: clientID},
	}
	resp := &watch.ConnectResp{}
	if err := rpcClient.Call(serviceName+".Connect", req, resp); err != nil {
		_ = rpcClient.Close()
		return nil, fmt.Errorf("error connecting to the watch server: %w", err)
	}
	return &Client{
		rpcClient: rpcClient,
		clientID:  clientID,
	}, nil
}

// Subscribe implements watch.Watcher. It registers the subscription on the
// server and starts the poll loop feeding the returned channel.
func (c *Client) Subscribe(ctx context.Context, rootPath string) (<-chan watch.Event, error) {
	req := &watch.SubscribeReq{
		ClientID: watch.ClientID{ID: c.clientID},
		RootPath: rootPath,
	}
	resp := &watch.SubscribeResp{}
	if err := c.rpcClient.Call(serviceName+".Subscribe", req, resp); err != nil {
		return nil, fmt.Errorf("error subscribing at %q: %w", rootPath, err)
	}

	c.events = make(chan watch.Event, pollMax)
	go c.poll(ctx)
	return c.events, nil
}

// poll repeatedly fetches event batches from the server and forwards them in
// order. Transient failures back off and retry; the server-side queue holds
// the events in the meantime.
func (c *Client) poll(ctx context.Context) {
	defer close(c.events)

	wait := initialRetryWait
	for ctx.Err() == nil {
		req := &watch.PollReq{
			ClientID: watch.ClientID{ID: c.clientID},
			Max:      pollMax,
		}
		resp := &watch.PollResp{}
		err := c.rpcClient.Call(serviceName+".Poll", req, resp)
		if errors.Is(err, rpc.ErrShutdown) {
			return
		}
		if err != nil {
			log.WithError(err).WithField("wait", wait).Warn("Watch poll failed, backing off")
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			wait = min(wait*2, maxRetryWait)
			continue
		}
		wait = initialRetryWait

		for _, ev := range resp.Events {
			select {
			case <-ctx.Done():
				return
			case c.events <- ev:
			}
		}
		if resp.Closed {
			return
		}
	}
}

// Unsubscribe implements watch.Watcher. The poll loop notices the closed
// subscription and finishes draining on its own.
func (c *Client) Unsubscribe() error {
	req := &watch.UnsubscribeReq{
		ClientID: watch.ClientID{ID: c.clientID},
	}
	resp := &watch.UnsubscribeResp{}
	if err := c.rpcClient.Call(serviceName+".Unsubscribe", req, resp); err != nil {
		return fmt.Errorf("error unsubscribing: %w", err)
	}
	return nil
}

// Close terminates the session with the server and closes the transport.
func (c *Client) Close() error {
	req := &watch.CloseReq{
		ClientID: watch.ClientID{ID: c.clientID},
	}
	resp := &watch.CloseResp{}
	callErr := c.rpcClient.Call(serviceName+".Close", req, resp)
	if err := c.rpcClient.Close(); err != nil {
		return fmt.Errorf("error closing the transport: %w", err)
	}
	if callErr != nil {
		return fmt.Errorf("error closing the watch session: %w", callErr)
	}
	return nil
}
