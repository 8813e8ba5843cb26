package lpn

import lru "github.com/hashicorp/golang-lru/v2"

// offerDedupeCapacity bounds how many distinct Offer senders are
// remembered within a single WaitOffer round; Bluetooth Mesh networks
// rarely have more than a handful of Friend candidates in range.
const offerDedupeCapacity = 8

// offerSeenCache remembers the senders of rejected Friend Offers within the
// current WaitOffer round, so warnOnce logs each misbehaving sender at Warn
// only once. It takes no part in accepting an Offer: once the first valid
// Offer is accepted the state leaves WaitOffer and later Offers are ignored
// by the state check. Grounded on the teacher's
// pkg/consensus/cache.go FIFO relay-payload cache, generalized to the
// hashicorp/golang-lru package used elsewhere in the corpus instead of a
// second hand-rolled container/list cache.
type offerSeenCache struct {
	c *lru.Cache[uint16, struct{}]
}

func newOfferSeenCache() *offerSeenCache {
	c, _ := lru.New[uint16, struct{}](offerDedupeCapacity)
	return &offerSeenCache{c: c}
}

// seenBefore reports whether sender has already been recorded, recording
// it as a side effect if not.
func (o *offerSeenCache) seenBefore(sender uint16) bool {
	if _, ok := o.c.Get(sender); ok {
		return true
	}
	o.c.Add(sender, struct{}{})
	return false
}

func (o *offerSeenCache) reset() {
	o.c.Purge()
}
