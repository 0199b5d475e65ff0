package terrain

import (
	"sort"
	"sync"
)

type pendingBlob struct {
	blob []byte
	seq  uint64
}

type pendingEntry struct {
	coord ChunkCoord
	pendingBlob
}

// writeback holds encoded chunks between their eviction and a successful
// cold-store save. Loads consult it before the store, so a failed save never
// loses an edit.
type writeback struct {
	mx      sync.Mutex
	seq     uint64
	pending map[ChunkCoord]pendingBlob
}

func newWriteback() *writeback {
	return &writeback{pending: make(map[ChunkCoord]pendingBlob)}
}

func (w *writeback) put(cc ChunkCoord, blob []byte) {
	w.mx.Lock()
	w.seq++
	w.pending[cc] = pendingBlob{blob: blob, seq: w.seq}
	w.mx.Unlock()
}

func (w *writeback) get(cc ChunkCoord) ([]byte, bool) {
	w.mx.Lock()
	defer w.mx.Unlock()
	p, ok := w.pending[cc]
	return p.blob, ok
}

// snapshot returns the pending entries in the order they were queued.
func (w *writeback) snapshot() []pendingEntry {
	w.mx.Lock()
	out := make([]pendingEntry, 0, len(w.pending))
	for cc, p := range w.pending {
		out = append(out, pendingEntry{coord: cc, pendingBlob: p})
	}
	w.mx.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// ack drops cc once seq is saved, unless a newer blob replaced it meanwhile.
func (w *writeback) ack(cc ChunkCoord, seq uint64) {
	w.mx.Lock()
	if p, ok := w.pending[cc]; ok && p.seq == seq {
		delete(w.pending, cc)
	}
	w.mx.Unlock()
}

func (w *writeback) len() int {
	w.mx.Lock()
	defer w.mx.Unlock()
	return len(w.pending)
}
