package lpn

import (
	"go.uber.org/atomic"

	"github.com/nspcc-dev/ble-mesh-lpn/pkg/lpn/wire"
)

// bitmap is a fixed-width set of slot flags backed by atomic words, per
// spec §5: "any shared atomics in the group bitmaps must use atomic
// primitives to be safe against interrupt-context reads (e.g., a radio ISR
// consulting subscription state)". One atomic.Uint32 covers 32 slots; a
// node with LPN_GROUPS <= 32 (the overwhelming common case) gets a single
// word.
type bitmap struct {
	words []atomic.Uint32
}

func newBitmap(size int) *bitmap {
	n := (size + 31) / 32
	if n == 0 {
		n = 1
	}
	return &bitmap{words: make([]atomic.Uint32, n)}
}

func (b *bitmap) set(i int) {
	w, m := i/32, uint32(1)<<uint(i%32)
	for {
		old := b.words[w].Load()
		if old&m != 0 {
			return
		}
		if b.words[w].CAS(old, old|m) {
			return
		}
	}
}

func (b *bitmap) clear(i int) {
	w, m := i/32, uint32(1)<<uint(i%32)
	for {
		old := b.words[w].Load()
		if old&m == 0 {
			return
		}
		if b.words[w].CAS(old, old&^m) {
			return
		}
	}
}

func (b *bitmap) get(i int) bool {
	w, m := i/32, uint32(1)<<uint(i%32)
	return b.words[w].Load()&m != 0
}

func (b *bitmap) clearAll() {
	for i := range b.words {
		b.words[i].Store(0)
	}
}

// count returns the number of set bits, used to size subscription requests
// against the Friend Queue bound (queue_size - |added|).
func (b *bitmap) count(upTo int) int {
	n := 0
	for i := 0; i < upTo; i++ {
		if b.get(i) {
			n++
		}
	}
	return n
}

// groupState holds the Subscription Reconciler's data (spec §3, §4.5): the
// ordered group slot array and its three bitmaps.
type groupState struct {
	groups    []uint16
	added     *bitmap
	pending   *bitmap
	toRemove  *bitmap
	changed   bool
	xactNext  uint8
	xactPend  uint8
}

func newGroupState(size int) *groupState {
	g := &groupState{
		groups:   make([]uint16, size),
		added:    newBitmap(size),
		pending:  newBitmap(size),
		toRemove: newBitmap(size),
	}
	for i := range g.groups {
		g.groups[i] = wire.Unassigned
	}
	return g
}

func (g *groupState) reset() {
	for i := range g.groups {
		g.groups[i] = wire.Unassigned
	}
	g.added.clearAll()
	g.pending.clearAll()
	g.toRemove.clearAll()
	g.xactNext = 0
	g.xactPend = 0
	g.changed = true
}

// indexOf returns the slot index of addr, or -1.
func (g *groupState) indexOf(addr uint16) int {
	for i, a := range g.groups {
		if a == addr {
			return i
		}
	}
	return -1
}

// add implements spec §4.5's add(g): if g is already present, clear its
// to_remove bit and return; else fill the first free slot.
//
// Returns true if a reconciliation pass should be kicked (groups_changed
// became true).
func (g *groupState) add(addr uint16) bool {
	if i := g.indexOf(addr); i >= 0 {
		g.toRemove.clear(i)
		return false
	}
	for i, a := range g.groups {
		if a == wire.Unassigned {
			g.groups[i] = addr
			g.changed = true
			return true
		}
	}
	// No free slot: silently dropped, matching the bounded-array,
	// no-dynamic-allocation resource model of spec §5.
	return false
}

// del implements spec §4.5's del(g): for each matching slot, if added or
// pending is set mark to_remove, else free the slot directly.
func (g *groupState) del(addr uint16) bool {
	i := g.indexOf(addr)
	if i < 0 {
		return false
	}
	if g.added.get(i) || g.pending.get(i) {
		g.toRemove.set(i)
	} else {
		g.groups[i] = wire.Unassigned
	}
	g.changed = true
	return true
}

// desiredAdds returns up to max slot indices that are present, not yet
// added, not pending, and not marked for removal.
func (g *groupState) desiredAdds(max int) []int {
	var out []int
	for i, a := range g.groups {
		if len(out) >= max {
			break
		}
		if a == wire.Unassigned {
			continue
		}
		if g.added.get(i) || g.pending.get(i) || g.toRemove.get(i) {
			continue
		}
		out = append(out, i)
	}
	return out
}

// desiredRemoves returns up to max slot indices marked to_remove, added,
// and not already pending.
func (g *groupState) desiredRemoves(max int) []int {
	var out []int
	for i, a := range g.groups {
		if len(out) >= max {
			break
		}
		if a == wire.Unassigned {
			continue
		}
		if !g.toRemove.get(i) || !g.added.get(i) || g.pending.get(i) {
			continue
		}
		out = append(out, i)
	}
	return out
}
