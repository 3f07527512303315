// Package conn implements per-peer connection state: heartbeat tracking,
// a callback registry, and one-shot "expectation" futures for
// request/response correlation with timeouts.
package conn

import (
	"errors"
	"sync"
	"time"

	"github.com/gomav/mavlink"
)

// ConnectionTimeout is the default heartbeat staleness threshold; Send
// fails once this much time has passed since the last observed heartbeat.
const ConnectionTimeout = 5 * time.Second

// ErrTimeout is returned by Send (heartbeat stale) and by Receive (no
// matching message arrived before the deadline).
var ErrTimeout = errors.New("conn: timeout")

// SendFunc finalizes and hands a message's bytes to the transport for a
// specific peer; it is injected by the owning runtime so Connection never
// needs to reference the runtime itself (spec.md §9's cyclic-reference
// note).
type SendFunc func(msg *mavlink.Message) error

// CallbackHandle identifies a registered callback for later removal.
type CallbackHandle uint64

type callbackEntry struct {
	handle CallbackHandle
	fn     func(*mavlink.Message)
}

// Connection tracks per-peer protocol state: the last time a HEARTBEAT was
// observed, a mutex-guarded callback table, and any pending network error
// to report to future waiters. It is not copyable; share it by pointer.
type Connection struct {
	Peer mavlink.PeerAddress
	ms   *mavlink.MessageSet
	send SendFunc

	heartbeatID int
	hasHeartbeatID bool

	mu            sync.Mutex
	callbacks     []callbackEntry
	nextHandle    CallbackHandle
	lastHeartbeat time.Time
	pendingErr    error

	errOnce sync.Once
	errCh   chan struct{}
}

// New constructs a Connection bound to peer, looking up "HEARTBEAT" once
// (if present in ms) to drive heartbeat tracking.
func New(peer mavlink.PeerAddress, ms *mavlink.MessageSet, send SendFunc) *Connection {
	c := &Connection{Peer: peer, ms: ms, send: send, errCh: make(chan struct{})}
	if id, err := ms.IDForName("HEARTBEAT"); err == nil {
		c.heartbeatID = id
		c.hasHeartbeatID = true
	}
	return c
}

// OnInbound delivers a message parsed off the wire to this connection: it
// drops anything not actually from Peer, stamps the heartbeat clock, and
// invokes every registered callback in registration order. The callback
// list is snapshotted under the lock and the callbacks run after it is
// released, so a callback may call back into this connection.
func (c *Connection) OnInbound(msg *mavlink.Message) {
	if peer, ok := msg.SourcePeer(); ok && peer != c.Peer {
		return
	}

	c.mu.Lock()
	if c.hasHeartbeatID && msg.ID() == c.heartbeatID {
		c.lastHeartbeat = time.Now()
	}
	callbacks := make([]callbackEntry, len(c.callbacks))
	copy(callbacks, c.callbacks)
	c.mu.Unlock()

	for _, cb := range callbacks {
		cb.fn(msg)
	}
}

// OnInboundError stores a transport-level error as pending and wakes every
// expectation waiting on this connection; it is delivered once to every
// current and future Receive caller.
func (c *Connection) OnInboundError(err error) {
	c.mu.Lock()
	c.pendingErr = err
	c.mu.Unlock()
	c.errOnce.Do(func() { close(c.errCh) })
}

// PendingError returns the connection's stored network error, if any.
func (c *Connection) PendingError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingErr
}

// AddMessageCallback registers fn to run (serialized with every other
// callback on this connection) for every inbound message, returning a
// handle for later removal.
func (c *Connection) AddMessageCallback(fn func(*mavlink.Message)) CallbackHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextHandle++
	h := c.nextHandle
	c.callbacks = append(c.callbacks, callbackEntry{handle: h, fn: fn})
	return h
}

// RemoveMessageCallback unregisters a callback by handle; a no-op if
// already removed.
func (c *Connection) RemoveMessageCallback(h CallbackHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, cb := range c.callbacks {
		if cb.handle == h {
			c.callbacks = append(c.callbacks[:i], c.callbacks[i+1:]...)
			return
		}
	}
}

// Send fails with ErrTimeout if no heartbeat has been observed within
// ConnectionTimeout; otherwise it finalizes and hands msg to the transport
// via the injected send closure.
func (c *Connection) Send(msg *mavlink.Message) error {
	c.mu.Lock()
	last := c.lastHeartbeat
	c.mu.Unlock()

	if last.IsZero() || time.Since(last) > ConnectionTimeout {
		return ErrTimeout
	}
	return c.send(msg)
}

// ForceSend bypasses the heartbeat-timeout check.
func (c *Connection) ForceSend(msg *mavlink.Message) error {
	return c.send(msg)
}

// Expectation is a one-shot subscription that completes when a message
// matching its filter arrives on the connection it was created from.
type Expectation struct {
	conn    *Connection
	handle  CallbackHandle
	once    sync.Once
	result  chan *mavlink.Message
}

// Expect installs an internal callback matching msgID (and, if not ANY,
// source/component filters), returning an Expectation that fires exactly
// once and then detaches itself even if Receive is never called.
func (c *Connection) Expect(msgID int, sourceFilter, componentFilter mavlink.NodeID) *Expectation {
	e := &Expectation{conn: c, result: make(chan *mavlink.Message, 1)}
	e.handle = c.AddMessageCallback(func(msg *mavlink.Message) {
		if msg.ID() != msgID {
			return
		}
		src := msg.Header().Source()
		if !sourceFilter.Matches(src.SystemID) || !componentFilter.Matches(src.ComponentID) {
			return
		}
		e.once.Do(func() {
			c.RemoveMessageCallback(e.handle)
			e.result <- msg
		})
	})
	return e
}

// ExpectByName looks up msgName in the connection's MessageSet and calls
// Expect with its id.
func (c *Connection) ExpectByName(msgName string, sourceFilter, componentFilter mavlink.NodeID) (*Expectation, error) {
	id, err := c.ms.IDForName(msgName)
	if err != nil {
		return nil, err
	}
	return c.Expect(id, sourceFilter, componentFilter), nil
}

// Receive waits for e to fire, removing its callback on any exit path
// (normal delivery, timeout, or connection error). timeout<0 waits
// indefinitely, woken only by delivery or a connection error.
func (c *Connection) Receive(e *Expectation, timeout time.Duration) (*mavlink.Message, error) {
	defer e.once.Do(func() { c.RemoveMessageCallback(e.handle) })

	var timeoutCh <-chan time.Time
	if timeout >= 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case msg := <-e.result:
		return msg, nil
	case <-c.errCh:
		if err := c.PendingError(); err != nil {
			return nil, err
		}
		return nil, ErrTimeout
	case <-timeoutCh:
		return nil, ErrTimeout
	}
}

// ReceiveMessage composes Expect and Receive for the common case of
// waiting for the next message of a given id.
func (c *Connection) ReceiveMessage(msgID int, sourceFilter, componentFilter mavlink.NodeID, timeout time.Duration) (*mavlink.Message, error) {
	e := c.Expect(msgID, sourceFilter, componentFilter)
	return c.Receive(e, timeout)
}
