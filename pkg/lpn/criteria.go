package lpn

import "github.com/nspcc-dev/ble-mesh-lpn/pkg/lpn/config"

// packCriteria packs the friendship criteria octet of a Friend Request
// (spec §4.2): MinQueueSize in bits 2-0, RSSIFactor in bits 4-3,
// ReceiveWindowFactor in bits 6-5, bit 7 reserved.
func packCriteria(c config.Criteria) uint8 {
	return c.MinQueueSize&0x7 | (c.RSSIFactor&0x3)<<3 | (c.RecvWinFactor&0x3)<<5
}
