package network

import (
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/gomav/mavlink"
	"github.com/gomav/mavlink/conn"
)

// ShardedIndex is a read-mostly alternative to a single mutex-guarded
// connection map, used internally by a Runtime constructed via NewSharded.
// It keeps N independent shard buckets, each with its own mutex, and picks
// a peer's shard with rendezvous (highest random weight) hashing: for each
// candidate shard i, score(peer, i) = xxhash64(peerBytes || i), and the
// shard with the highest score owns that peer. Unlike peer_hash % N, a
// peer's scores do not depend on the shard count, so rebuilding with a
// different count moves only the peers whose highest-scoring shard was
// added or removed. The canonical ordering and locking invariants of
// spec.md §4.7/§5 are unaffected: this only changes how many mutexes
// guard the connection table, not the table's semantics.
type ShardedIndex struct {
	buckets []*shardBucket
}

type shardBucket struct {
	mu    sync.Mutex
	conns map[mavlink.PeerAddress]*conn.Connection
}

// NewShardedIndex returns an index with n independent shard buckets. n<1
// is treated as 1.
func NewShardedIndex(n int) *ShardedIndex {
	if n < 1 {
		n = 1
	}
	idx := &ShardedIndex{buckets: make([]*shardBucket, n)}
	for i := range idx.buckets {
		idx.buckets[i] = &shardBucket{conns: make(map[mavlink.PeerAddress]*conn.Connection)}
	}
	return idx
}

// GetOrCreate returns the existing connection for peer, or calls create
// and stores its result if none exists yet; created reports which
// happened. Only the single shard bucket owning peer is locked.
func (idx *ShardedIndex) GetOrCreate(peer mavlink.PeerAddress, create func() *conn.Connection) (c *conn.Connection, created bool) {
	b := idx.bucketFor(peer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.conns[peer]; ok {
		return c, false
	}
	c = create()
	b.conns[peer] = c
	return c, true
}

// Get looks up peer without creating it.
func (idx *ShardedIndex) Get(peer mavlink.PeerAddress) (*conn.Connection, bool) {
	b := idx.bucketFor(peer)
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.conns[peer]
	return c, ok
}

// Range calls f once for every peer currently indexed, locking one shard
// bucket at a time rather than the whole index.
func (idx *ShardedIndex) Range(f func(mavlink.PeerAddress, *conn.Connection)) {
	for _, b := range idx.buckets {
		b.mu.Lock()
		for k, v := range b.conns {
			f(k, v)
		}
		b.mu.Unlock()
	}
}

// Len returns the total number of indexed connections across every shard.
func (idx *ShardedIndex) Len() int {
	n := 0
	for _, b := range idx.buckets {
		b.mu.Lock()
		n += len(b.conns)
		b.mu.Unlock()
	}
	return n
}

// Shards reports how many shard buckets this index was built with.
func (idx *ShardedIndex) Shards() int { return len(idx.buckets) }

func (idx *ShardedIndex) bucketFor(peer mavlink.PeerAddress) *shardBucket {
	if len(idx.buckets) == 1 {
		return idx.buckets[0]
	}
	key := peerKeyBytes(peer)
	best := 0
	var bestScore uint64
	for i := range idx.buckets {
		score := rendezvousScore(key, i)
		if i == 0 || score > bestScore {
			bestScore = score
			best = i
		}
	}
	return idx.buckets[best]
}

func rendezvousScore(key []byte, shard int) uint64 {
	h := xxhash.New()
	h.Write(key)
	h.Write([]byte{byte(shard), byte(shard >> 8)})
	return h.Sum64()
}

func peerKeyBytes(p mavlink.PeerAddress) []byte {
	buf := make([]byte, 7)
	binary.LittleEndian.PutUint32(buf[0:4], p.Address)
	binary.LittleEndian.PutUint16(buf[4:6], p.Port)
	if p.IsSerial {
		buf[6] = 1
	}
	return buf
}

// connStore is the internal seam a Runtime talks to for its connection
// table, letting New and NewSharded share every other method on Runtime
// while differing only in how that table is locked.
type connStore interface {
	getOrCreate(peer mavlink.PeerAddress, create func() *conn.Connection) (*conn.Connection, bool)
	snapshot() map[mavlink.PeerAddress]*conn.Connection
}

// plainStore is a single mutex guarding a single map, the default used by
// New.
type plainStore struct {
	mu    sync.Mutex
	conns map[mavlink.PeerAddress]*conn.Connection
}

func newPlainStore() *plainStore {
	return &plainStore{conns: make(map[mavlink.PeerAddress]*conn.Connection)}
}

func (s *plainStore) getOrCreate(peer mavlink.PeerAddress, create func() *conn.Connection) (*conn.Connection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.conns[peer]; ok {
		return c, false
	}
	c := create()
	s.conns[peer] = c
	return c, true
}

func (s *plainStore) snapshot() map[mavlink.PeerAddress]*conn.Connection {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[mavlink.PeerAddress]*conn.Connection, len(s.conns))
	for k, v := range s.conns {
		out[k] = v
	}
	return out
}

// shardedStore adapts a ShardedIndex to connStore, used by NewSharded.
type shardedStore struct {
	idx *ShardedIndex
}

func (s shardedStore) getOrCreate(peer mavlink.PeerAddress, create func() *conn.Connection) (*conn.Connection, bool) {
	return s.idx.GetOrCreate(peer, create)
}

func (s shardedStore) snapshot() map[mavlink.PeerAddress]*conn.Connection {
	out := make(map[mavlink.PeerAddress]*conn.Connection)
	s.idx.Range(func(p mavlink.PeerAddress, c *conn.Connection) { out[p] = c })
	return out
}
