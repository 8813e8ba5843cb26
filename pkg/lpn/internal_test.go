package lpn

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nspcc-dev/ble-mesh-lpn/pkg/lpn/config"
)

func TestPackCriteria(t *testing.T) {
	c := config.Criteria{MinQueueSize: 7, RSSIFactor: 3, RecvWinFactor: 2}
	got := packCriteria(c)
	assert.Equal(t, uint8(7), got&0x7)
	assert.Equal(t, uint8(3), (got>>3)&0x3)
	assert.Equal(t, uint8(2), (got>>5)&0x3)
	assert.Equal(t, uint8(0), got>>7)
}

func TestReqAttemptsBudget(t *testing.T) {
	assert.Equal(t, 2, reqAttemptsBudget(2*time.Second))
	assert.Equal(t, 4, reqAttemptsBudget(3*time.Second))
	assert.Equal(t, 4, reqAttemptsBudget(10*time.Second))
}

func TestOfferSeenCacheDedupes(t *testing.T) {
	c := newOfferSeenCache()
	assert.False(t, c.seenBefore(1))
	assert.True(t, c.seenBefore(1))
	assert.False(t, c.seenBefore(2))
	c.reset()
	assert.False(t, c.seenBefore(1))
}
