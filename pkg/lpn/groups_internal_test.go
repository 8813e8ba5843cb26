package lpn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nspcc-dev/ble-mesh-lpn/pkg/lpn/wire"
)

func TestBitmapSetClearGet(t *testing.T) {
	b := newBitmap(40) // exercises the two-word path
	assert.False(t, b.get(5))
	b.set(5)
	assert.True(t, b.get(5))
	b.set(33)
	assert.True(t, b.get(33))
	b.clear(5)
	assert.False(t, b.get(5))
	assert.True(t, b.get(33))
	assert.Equal(t, 1, b.count(40))
	b.clearAll()
	assert.Equal(t, 0, b.count(40))
}

func TestGroupStateAddIsIdempotentAndBounded(t *testing.T) {
	g := newGroupState(2)
	require.True(t, g.add(0xC000))
	assert.False(t, g.add(0xC000)) // already present, not a fresh change
	require.True(t, g.add(0xC001))
	assert.False(t, g.add(0xC002)) // no free slot, silently dropped
	assert.Equal(t, 0, g.indexOf(0xC000))
	assert.Equal(t, -1, g.indexOf(0xC002))
}

func TestGroupStateDelBeforeAddFreesSlotDirectly(t *testing.T) {
	g := newGroupState(2)
	g.add(0xC000)
	require.True(t, g.del(0xC000))
	assert.Equal(t, wire.Unassigned, g.groups[0])
	assert.False(t, g.del(0xC000)) // already gone
}

func TestGroupStateDelAfterAddedMarksToRemove(t *testing.T) {
	g := newGroupState(2)
	g.add(0xC000)
	idx := g.indexOf(0xC000)
	g.added.set(idx)
	require.True(t, g.del(0xC000))
	assert.True(t, g.toRemove.get(idx))
	assert.Equal(t, uint16(0xC000), g.groups[idx]) // slot kept until Sub Remove confirms
}

func TestGroupStateDesiredAddsExcludesPendingAndAdded(t *testing.T) {
	g := newGroupState(4)
	g.add(0xC000)
	g.add(0xC001)
	g.add(0xC002)
	i1 := g.indexOf(0xC001)
	g.pending.set(i1)
	i2 := g.indexOf(0xC002)
	g.added.set(i2)

	desired := g.desiredAdds(10)
	require.Len(t, desired, 1)
	assert.Equal(t, g.indexOf(0xC000), desired[0])
}

func TestGroupStateDesiredRemovesOnlyAddedAndMarked(t *testing.T) {
	g := newGroupState(2)
	g.add(0xC000)
	idx := g.indexOf(0xC000)
	g.added.set(idx)
	g.toRemove.set(idx)

	desired := g.desiredRemoves(10)
	require.Len(t, desired, 1)
	assert.Equal(t, idx, desired[0])
}

func TestGroupStateResetClearsEverythingAndMarksChanged(t *testing.T) {
	g := newGroupState(2)
	g.add(0xC000)
	g.xactNext = 5
	g.reset()
	assert.Equal(t, wire.Unassigned, g.groups[0])
	assert.Equal(t, uint8(0), g.xactNext)
	assert.True(t, g.changed)
}

func TestStateHasFriend(t *testing.T) {
	assert.True(t, Established.hasFriend())
	assert.True(t, WaitUpdate.hasFriend())
	assert.True(t, RecvDelay.hasFriend())
	assert.False(t, Disabled.hasFriend())
	assert.False(t, Enabled.hasFriend())
	assert.False(t, WaitOffer.hasFriend())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Established", Established.String())
	assert.Equal(t, "Unknown", State(99).String())
}
