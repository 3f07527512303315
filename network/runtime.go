// Package network implements the background receive loop that demuxes a
// single transport's frames to per-peer connections.
package network

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gomav/mavlink"
	"github.com/gomav/mavlink/conn"
	"github.com/gomav/mavlink/stream"
	"github.com/gomav/mavlink/telemetry"
	"github.com/gomav/mavlink/transport"
)

// ErrTimeout is returned by AwaitConnection when no connection appears
// before the deadline.
var ErrTimeout = errors.New("network: timeout")

// Runtime owns a background receive goroutine, lazily creates a Connection
// per observed peer, and assigns each outgoing frame from this runtime a
// monotone wrapping sequence byte.
type Runtime struct {
	self     mavlink.Identity
	ms       *mavlink.MessageSet
	t        transport.Transport
	parser   *stream.Parser
	recorder telemetry.Recorder

	seq uint32 // incremented atomically, truncated to a byte on use

	mu     sync.Mutex // guards recorder and onConn only; the connection table has its own locking inside store
	store  connStore
	onConn func(*conn.Connection)

	firstOnce sync.Once
	firstCh   chan *conn.Connection

	stopOnce sync.Once
	done     chan struct{}
}

// New constructs a Runtime bound to self's identity, reading frames over t
// against schema ms, and starts its background receive loop. acceptV1
// controls whether the stream parser also accepts 0xFE-framed messages.
// The connection table is a single mutex-guarded map; for deployments with
// many concurrent peers and measurable lock contention, see NewSharded.
func New(self mavlink.Identity, ms *mavlink.MessageSet, t transport.Transport, acceptV1 bool) *Runtime {
	return newRuntime(self, ms, t, acceptV1, newPlainStore())
}

// NewSharded is New, but backs the connection table with a ShardedIndex of
// shardCount independent shard buckets instead of one mutex-guarded map.
// This only changes how many locks guard the connection table; every
// other Runtime behavior, ordering, and invariant is identical to New.
// Disabled by default: most deployments have few enough concurrent peers
// that New's single map is not a measurable bottleneck.
func NewSharded(self mavlink.Identity, ms *mavlink.MessageSet, t transport.Transport, acceptV1 bool, shardCount int) *Runtime {
	return newRuntime(self, ms, t, acceptV1, shardedStore{idx: NewShardedIndex(shardCount)})
}

func newRuntime(self mavlink.Identity, ms *mavlink.MessageSet, t transport.Transport, acceptV1 bool, store connStore) *Runtime {
	r := &Runtime{
		self:     self,
		ms:       ms,
		t:        t,
		parser:   stream.New(t, ms, acceptV1),
		recorder: telemetry.Noop{},
		store:    store,
		firstCh:  make(chan *conn.Connection, 1),
		done:     make(chan struct{}),
	}
	go r.receiveLoop()
	return r
}

// SetRecorder installs a telemetry sink; passing nil restores the no-op
// default. Must be called before the peer events it should observe occur.
func (r *Runtime) SetRecorder(rec telemetry.Recorder) {
	if rec == nil {
		rec = telemetry.Noop{}
	}
	r.mu.Lock()
	r.recorder = rec
	r.mu.Unlock()
}

// OnConnection registers fn to be invoked once per newly observed peer, on
// the receive goroutine. It must be registered before the peer is first
// observed to be guaranteed to fire for it.
func (r *Runtime) OnConnection(fn func(*conn.Connection)) {
	r.mu.Lock()
	r.onConn = fn
	r.mu.Unlock()
}

// AwaitConnection blocks for the first connection (already existing or
// forthcoming) to be created, failing with ErrTimeout if none appears
// within timeout (timeout<0 waits indefinitely).
func (r *Runtime) AwaitConnection(timeout time.Duration) (*conn.Connection, error) {
	var existing *conn.Connection
	for _, c := range r.store.snapshot() {
		existing = c
		break
	}
	if existing != nil {
		return existing, nil
	}

	var timeoutCh <-chan time.Time
	if timeout >= 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}
	select {
	case c := <-r.firstCh:
		return c, nil
	case <-timeoutCh:
		return nil, ErrTimeout
	case <-r.done:
		return nil, ErrTimeout
	}
}

// Connections returns a snapshot of the currently known peer connections.
func (r *Runtime) Connections() map[mavlink.PeerAddress]*conn.Connection {
	return r.store.snapshot()
}

// nextSeq returns the next outgoing sequence byte, wrapping mod 256.
func (r *Runtime) nextSeq() byte {
	n := atomic.AddUint32(&r.seq, 1)
	return byte(n - 1)
}

func (r *Runtime) sendFuncFor(peer mavlink.PeerAddress) conn.SendFunc {
	return func(msg *mavlink.Message) error {
		if _, err := msg.Finalize(r.nextSeq(), r.self, false); err != nil {
			return err
		}
		data, err := msg.Data()
		if err != nil {
			return err
		}
		return r.t.Send(data, peer)
	}
}

// connectionFor looks up or lazily creates the Connection for peer. The
// store's own locking (a single mutex for New, one shard bucket's mutex
// for NewSharded) ensures no concurrent lookup can race with a new peer's
// creation (spec.md §5).
func (r *Runtime) connectionFor(peer mavlink.PeerAddress) (*conn.Connection, bool) {
	c, created := r.store.getOrCreate(peer, func() *conn.Connection {
		return conn.New(peer, r.ms, r.sendFuncFor(peer))
	})
	if !created {
		return c, false
	}

	r.mu.Lock()
	onConn := r.onConn
	r.mu.Unlock()
	if onConn != nil {
		onConn(c)
	}
	r.firstOnce.Do(func() { r.firstCh <- c })
	r.recorder.ConnectionOpened(peer)
	return c, true
}

func (r *Runtime) receiveLoop() {
	for {
		msg, peer, err := r.parser.Next()
		if err != nil {
			r.terminate(err)
			return
		}

		c, created := r.connectionFor(peer)
		if created {
			// The message that established the connection is the
			// mechanism by which the peer became known; it is not
			// redelivered to callbacks (see the design notes on this
			// behavior in DESIGN.md).
			continue
		}
		if hb, hbErr := r.ms.IDForName("HEARTBEAT"); hbErr == nil && msg.ID() == hb {
			r.recorder.HeartbeatSeen(peer, time.Now())
		}
		c.OnInbound(msg)
	}
}

func (r *Runtime) terminate(err error) {
	r.stopOnce.Do(func() { close(r.done) })
	if errors.Is(err, stream.ErrInterrupted) {
		return
	}
	snap := r.store.snapshot()
	conns := make([]*conn.Connection, 0, len(snap))
	for _, c := range snap {
		conns = append(conns, c)
	}
	for _, c := range conns {
		c.OnInboundError(err)
		r.recorder.ConnectionLost(c.Peer, err)
	}
}

// Close stops the receive loop by closing the underlying transport.
func (r *Runtime) Close() error {
	return r.t.Close()
}
