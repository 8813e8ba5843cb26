package lpn

import (
	"time"

	"go.uber.org/zap"

	"github.com/nspcc-dev/ble-mesh-lpn/pkg/lpn/wire"
)

// clearFriendship drives the Clear handshake of spec §4.6. It is both the
// entry point (from Disable, from a budget-exhausted retry path, or from a
// failed Friend Request send) and its own retry continuation, invoked
// again by the Clear timer on a missed Confirm.
func (c *Context) clearFriendship(disable bool) {
	c.disableFlag.Store(disable)
	if c.state != Clear {
		c.reqAttempts = 0 // fresh retry budget for this handshake
	}
	if c.established.Load() && !c.clearSuccess.Load() && c.reqAttempts < c.cfg.ClearAttempts {
		c.reqAttempts++
		c.sendFriendClear()
		return
	}
	c.finalizeFriendship()
}

func (c *Context) sendFriendClear() {
	payload := wire.FriendClearPayload{LPNAddr: c.node.PrimaryAddr(), LPNCounter: c.counter}
	buf, err := payload.Bytes()
	if err != nil {
		c.log.Error("failed to encode Friend Clear", zap.Error(err))
		c.finalizeFriendship()
		return
	}
	c.sentReq = wire.FriendClear
	c.setState(Clear)
	if err := c.sendControl(wire.FriendClear, buf, c.onClearSendComplete); err != nil {
		c.log.Warn("Friend Clear send failed", zap.Error(err))
		c.sentReq = wire.OpcodeNone
		c.finalizeFriendship()
		return
	}
	if c.metrics != nil {
		c.metrics.clears.Inc()
	}
}

func (c *Context) onClearSendComplete(adv time.Duration, err error) {
	if c.sentReq != wire.FriendClear {
		return
	}
	if err != nil {
		c.log.Warn("Friend Clear transmission failed", zap.Error(err))
		c.sentReq = wire.OpcodeNone
		c.finalizeFriendship()
		return
	}
	c.advDuration = adv
	c.armTimer(c.cfg.FriendReqTimeout+adv, func() {
		c.sentReq = wire.OpcodeNone
		c.clearFriendship(c.disableFlag.Load())
	})
}

// ClearConfirm is the inbound Friend Clear Confirm handler (spec §4.6).
func (c *Context) ClearConfirm(sender uint16, payload []byte) error {
	var retErr error
	c.dispatch(func() {
		if c.state != Clear {
			c.log.Debug("Friend Clear Confirm ignored: wrong state", zap.Stringer("state", c.state))
			retErr = ErrUnexpectedState
			return
		}
		if sender != c.frnd {
			c.log.Warn("Friend Clear Confirm from unexpected sender", zap.Uint16("sender", sender), zap.Uint16("frnd", c.frnd))
			retErr = ErrUnexpectedState
			return
		}
		p, err := wire.DecodeFriendClearConfirm(payload)
		if err != nil {
			c.log.Warn("malformed Friend Clear Confirm", zap.Error(err))
			retErr = ErrBadData
			return
		}
		if p.LPNAddr != c.node.PrimaryAddr() || p.LPNCounter != c.counter {
			c.log.Warn("Friend Clear Confirm address/counter mismatch, ignoring",
				zap.Uint16("addr", p.LPNAddr), zap.Uint16("counter", p.LPNCounter))
			retErr = ErrUnexpectedState
			return
		}
		c.cancelTimer()
		c.clearSuccess.Store(true)
		c.sentReq = wire.OpcodeNone
		c.finalizeFriendship()
	})
	return retErr
}

// finalizeFriendship implements the finalize branch of spec §4.6: reset
// receive state, cancel the timer, delete friendship credentials, record
// old_friend, zero every friendship field, and force a resubscription pass
// on the next friendship.
func (c *Context) finalizeFriendship() {
	c.scan.ScanEnable() // leaving LPN mode re-enables the receiver permanently, spec §4.7
	c.cancelTimer()

	if c.cred != nil {
		c.creds.CredDel(c.netIdx, c.frnd)
		c.cred = nil
	}

	if c.clearSuccess.Load() {
		c.oldFriend = wire.Unassigned
	} else {
		c.oldFriend = c.frnd
	}

	c.frnd = wire.Unassigned
	c.established.Store(false)
	c.clearSuccess.Store(false)
	c.sentReq = wire.OpcodeNone
	c.pendingPoll = false
	c.fsn = 0
	c.recvWin = 0
	c.queueSize = 0
	c.advDuration = 0
	c.pollTimeout = 0
	c.reqAttempts = 0
	// Group slots outlive the friendship; only their subscription bits are
	// zeroed. Slots already marked for removal are freed directly.
	for i := range c.groupState.groups {
		if c.groupState.toRemove.get(i) {
			c.groupState.groups[i] = wire.Unassigned
		}
	}
	c.groupState.added.clearAll()
	c.groupState.pending.clearAll()
	c.groupState.toRemove.clearAll()
	c.groupState.changed = true

	if c.disableFlag.Load() {
		c.setState(Disabled)
		return
	}
	c.setState(Enabled)
	c.armTimer(c.cfg.FriendReqRetryTimeout, c.sendFriendRequest)
}
