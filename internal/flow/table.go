package flow

import (
	"hash/fnv"
	"sync"
)

const defaultShardCount = 256

// DefaultIdleTimeoutMs and DefaultActiveTimeoutMs are the defaults from
// spec §4.A.
const (
	DefaultIdleTimeoutMs   int64 = 10_000
	DefaultActiveTimeoutMs int64 = 30_000
)

// shard is one bucket of the sharded flow table. Live records live in an
// append-only arena (slice); the index map resolves a Key to its arena
// slot. Deleting a record frees its slot onto freeList rather than
// swap-removing it, so no other key's index is ever invalidated (spec
// §4.A's "storage indirection" hazard, resolved via tombstones +
// free-list rather than lock-protected rebuild).
type shard struct {
	mu       sync.RWMutex
	index    map[Key]uint32
	arena    []*Record
	freeList []uint32
	maxFlows int // 0 means unbounded
}

func newShard(maxFlows int) *shard {
	return &shard{
		index:    make(map[Key]uint32),
		maxFlows: maxFlows,
	}
}

// alloc returns a slot index for a brand new record, reusing a freed slot
// when one is available so the arena never grows once steady state is
// reached.
func (s *shard) alloc(r *Record) (uint32, bool) {
	if n := len(s.freeList); n > 0 {
		idx := s.freeList[n-1]
		s.freeList = s.freeList[:n-1]
		s.arena[idx] = r
		return idx, true
	}
	if s.maxFlows > 0 && len(s.arena)-len(s.freeList) >= s.maxFlows {
		return 0, false
	}
	s.arena = append(s.arena, r)
	return uint32(len(s.arena) - 1), true
}

// free tombstones a slot: the arena entry becomes nil and the index is
// pushed onto the free-list for reuse. The key must already have been
// removed from s.index by the caller.
func (s *shard) free(idx uint32) {
	s.arena[idx] = nil
	s.freeList = append(s.freeList, idx)
}

// Table is the keyed flow store described in spec §4.A: a sharded
// map[Key]arena-index backed by a per-shard record arena, supporting a
// hot O(1) Observe and a cold periodic ScanExpired.
type Table struct {
	shards     []*shard
	shardCount uint32

	idleTimeoutMs   int64
	activeTimeoutMs int64

	untracked uint64 // packets dropped due to TableFull, read via Stats
	mu        sync.Mutex
}

// Option configures a Table at construction time.
type Option func(*Table)

// WithTimeouts overrides the idle/active timeout defaults.
func WithTimeouts(idleMs, activeMs int64) Option {
	return func(t *Table) {
		t.idleTimeoutMs = idleMs
		t.activeTimeoutMs = activeMs
	}
}

// WithShardMaxFlows bounds the number of live flows per shard; 0 (the
// default) leaves shards unbounded.
func WithShardMaxFlows(n int) Option {
	return func(t *Table) {
		for _, s := range t.shards {
			s.maxFlows = n
		}
	}
}

// NewTable creates an empty Table with defaultShardCount shards.
func NewTable(opts ...Option) *Table {
	t := &Table{
		shards:          make([]*shard, defaultShardCount),
		shardCount:      defaultShardCount,
		idleTimeoutMs:   DefaultIdleTimeoutMs,
		activeTimeoutMs: DefaultActiveTimeoutMs,
	}
	for i := range t.shards {
		t.shards[i] = newShard(0)
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Table) shardFor(k Key) *shard {
	h := fnv.New32a()
	h.Write(k[:])
	return t.shards[h.Sum32()%t.shardCount]
}

// Observe is the hot path: build a key from pkt, then look it up. On a
// miss, a new Record is appended to the arena and installed; on a hit,
// counters are updated in place. Observe never allocates on the hit
// path, and is O(1) expected.
func (t *Table) Observe(pkt *Packet) error {
	key := NewKey(pkt.SrcIP, pkt.DstIP, pkt.Protocol, pkt.SrcPort, pkt.DstPort)
	nowMs := epochMs(pkt.Timestamp)

	s := t.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx, ok := s.index[key]; ok {
		r := s.arena[idx]
		if r == nil || r.Key != key {
			panic(&keyIndexMismatch{key: key, idx: idx})
		}
		r.FlowEndMs = nowMs
		r.PacketDeltaCount++
		r.OctetDeltaCount += uint64(pkt.TotalLength)
		return nil
	}

	r := &Record{
		Key:              key,
		FlowStartMs:      nowMs,
		FlowEndMs:        nowMs,
		PacketDeltaCount: 1,
		OctetDeltaCount:  uint64(pkt.TotalLength),
	}
	idx, ok := s.alloc(r)
	if !ok {
		t.mu.Lock()
		t.untracked++
		t.mu.Unlock()
		return ErrTableFull
	}
	s.index[key] = idx
	return nil
}

// ScanExpired applies the expiry state machine from spec §4.A to every
// live record: IDLE wins ties over ACTIVE. Evicted flows are removed
// from the table; active-expired flows are reset in place and keep
// accumulating. The returned snapshots are independent copies safe to
// hand to the encoder after the shard lock is released.
func (t *Table) ScanExpired(nowMs int64) []Snapshot {
	var expired []Snapshot

	for _, s := range t.shards {
		s.mu.Lock()
		for key, idx := range s.index {
			r := s.arena[idx]
			if r == nil || r.Key != key {
				panic(&keyIndexMismatch{key: key, idx: idx})
			}

			switch {
			case r.FlowEndMs+t.idleTimeoutMs < nowMs:
				expired = append(expired, r.snapshot())
				delete(s.index, key)
				s.free(idx)
			case r.FlowStartMs+t.activeTimeoutMs < nowMs:
				expired = append(expired, r.snapshot())
				r.FlowStartMs = nowMs
				r.FlowEndMs = nowMs
				r.PacketDeltaCount = 0
				r.OctetDeltaCount = 0
			}
		}
		s.mu.Unlock()
	}

	return expired
}

// Stats reports the table's live flow count and the number of packets
// dropped for want of capacity since startup.
type Stats struct {
	LiveFlows int
	Untracked uint64
}

// Stats returns a point-in-time snapshot of table-level counters.
func (t *Table) Stats() Stats {
	live := 0
	for _, s := range t.shards {
		s.mu.RLock()
		live += len(s.index)
		s.mu.RUnlock()
	}
	t.mu.Lock()
	untracked := t.untracked
	t.mu.Unlock()
	return Stats{LiveFlows: live, Untracked: untracked}
}

// DeepCopyLive returns an independent copy of every live record, for use
// by internal/trace. It never aliases the live table's memory and never
// mutates it.
func (t *Table) DeepCopyLive() []Record {
	var out []Record
	for _, s := range t.shards {
		s.mu.RLock()
		for _, idx := range s.index {
			r := s.arena[idx]
			out = append(out, *r)
		}
		s.mu.RUnlock()
	}
	return out
}
