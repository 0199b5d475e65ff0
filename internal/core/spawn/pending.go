// Package spawn finds and reserves free tiles for new entities.
package spawn

import (
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/zeusync/hexkernel/internal/core/hex"
)

const pendingShards = 16

// PendingSet holds coordinates reserved by spawns that have not yet been
// published. It is the one structure the spawn worker and the actor mutate
// concurrently.
type PendingSet struct {
	shards [pendingShards]pendingShard
}

type pendingShard struct {
	mx     sync.Mutex
	coords map[hex.Coord]struct{}
}

func NewPendingSet() *PendingSet {
	p := &PendingSet{}
	for i := range p.shards {
		p.shards[i].coords = make(map[hex.Coord]struct{})
	}
	return p
}

// TryReserve claims c and reports whether this call won it.
func (p *PendingSet) TryReserve(c hex.Coord) bool {
	sh := p.shardFor(c)
	sh.mx.Lock()
	defer sh.mx.Unlock()
	if _, taken := sh.coords[c]; taken {
		return false
	}
	sh.coords[c] = struct{}{}
	return true
}

func (p *PendingSet) Release(c hex.Coord) {
	sh := p.shardFor(c)
	sh.mx.Lock()
	delete(sh.coords, c)
	sh.mx.Unlock()
}

func (p *PendingSet) Contains(c hex.Coord) bool {
	sh := p.shardFor(c)
	sh.mx.Lock()
	defer sh.mx.Unlock()
	_, ok := sh.coords[c]
	return ok
}

func (p *PendingSet) Len() int {
	n := 0
	for i := range p.shards {
		p.shards[i].mx.Lock()
		n += len(p.shards[i].coords)
		p.shards[i].mx.Unlock()
	}
	return n
}

func (p *PendingSet) shardFor(c hex.Coord) *pendingShard {
	var key [8]byte
	binary.BigEndian.PutUint32(key[:4], uint32(int32(c.Q)))
	binary.BigEndian.PutUint32(key[4:], uint32(int32(c.R)))
	return &p.shards[xxhash.Sum64(key[:])%pendingShards]
}
