/*
Package limits contains a number of system-wide hardcoded constants for the
LPN core. Unlike config.Config, these are wire-format or protocol-mandated
bounds that a deployment can never adjust.
*/
package limits

const (
	// MaxSubAddrsPerPDU is the maximum number of group addresses that fit in
	// a single Friend Subscription List Add/Remove message alongside its
	// transaction byte, bounded by the advertising bearer's single-PDU
	// payload capacity for an unsegmented control message.
	MaxSubAddrsPerPDU = 5
	// MinRecvDelay is the smallest legal value, in milliseconds, of the
	// wire-format recv_delay field (a single byte).
	MinRecvDelay = 10
	// MaxRecvDelay is the largest legal value, in milliseconds, of the
	// wire-format recv_delay field (a single byte).
	MaxRecvDelay = 255
	// MaxPollTimeoutUnits is the largest value the 24-bit big-endian
	// poll_to wire field can carry, expressed in 100 ms units.
	MaxPollTimeoutUnits = 1<<24 - 1
)
