package lpn

import (
	"time"

	"go.uber.org/zap"

	"github.com/nspcc-dev/ble-mesh-lpn/pkg/lpn/config/limits"
	"github.com/nspcc-dev/ble-mesh-lpn/pkg/lpn/wire"
)

// GroupAdd implements the group_add(g) API of spec §4.5: if g is already
// present, clears its pending removal; otherwise fills the first free
// slot. Kicks the reconciler immediately if the friendship is established
// and idle.
func (c *Context) GroupAdd(g uint16) {
	c.dispatch(func() {
		if c.groupState.add(g) {
			c.kickIfIdle()
		}
	})
}

// GroupDel implements the group_del(groups[]) API of spec §4.5.
func (c *Context) GroupDel(groups []uint16) {
	c.dispatch(func() {
		changed := false
		for _, g := range groups {
			if c.groupState.del(g) {
				changed = true
			}
		}
		if changed {
			c.kickIfIdle()
		}
	})
}

func (c *Context) kickIfIdle() {
	if c.established.Load() && c.state == Established && c.sentReq == wire.OpcodeNone {
		c.tryReconcile()
	}
}

// tryReconcile issues at most one in-flight Sub Add or Sub Rem, packing
// slot addresses up to queue_size - |added| or the wire capacity,
// whichever is smaller (spec §4.5). Returns true if a request was sent.
func (c *Context) tryReconcile() bool {
	if c.sentReq != wire.OpcodeNone {
		return false
	}
	if !c.groupState.changed {
		return false
	}

	addBudget := int(c.queueSize) - c.groupState.added.count(len(c.groupState.groups))
	if addBudget < 0 {
		addBudget = 0
	}
	if addBudget > limits.MaxSubAddrsPerPDU {
		addBudget = limits.MaxSubAddrsPerPDU
	}
	if idx := c.groupState.desiredAdds(addBudget); len(idx) > 0 {
		return c.sendSub(wire.FriendSubAdd, idx)
	}

	if idx := c.groupState.desiredRemoves(limits.MaxSubAddrsPerPDU); len(idx) > 0 {
		return c.sendSub(wire.FriendSubRemove, idx)
	}

	c.groupState.changed = false
	return false
}

func (c *Context) sendSub(opcode wire.Opcode, idx []int) bool {
	addrs := make([]uint16, len(idx))
	for i, slot := range idx {
		addrs[i] = c.groupState.groups[slot]
		c.groupState.pending.set(slot)
	}
	xact := c.groupState.xactNext
	c.groupState.xactNext++
	c.groupState.xactPend = xact

	payload := wire.FriendSubPayload{Xact: xact, Addrs: addrs}
	buf, err := payload.Bytes()
	if err != nil {
		c.log.Error("failed to encode Sub request", zap.Stringer("opcode", opcode), zap.Error(err))
		for _, slot := range idx {
			c.groupState.pending.clear(slot)
		}
		return false
	}

	c.sentReq = opcode
	err = c.sendControl(opcode, buf, func(adv time.Duration, err error) {
		c.onSubSendComplete(opcode, adv, err)
	})
	if err != nil {
		c.sentReq = wire.OpcodeNone
		for _, slot := range idx {
			c.groupState.pending.clear(slot)
		}
		c.log.Warn("Sub request send failed", zap.Stringer("opcode", opcode), zap.Error(err))
		return false
	}
	return true
}

// retransmitSub resends the currently pending Sub Add/Remove with the
// same transaction id and address set, used by the POLL_RETRY_TIMEOUT
// retry path (spec §4.4).
func (c *Context) retransmitSub(opcode wire.Opcode) {
	var addrs []uint16
	for i, a := range c.groupState.groups {
		if c.groupState.pending.get(i) {
			addrs = append(addrs, a)
		}
	}
	payload := wire.FriendSubPayload{Xact: c.groupState.xactPend, Addrs: addrs}
	buf, err := payload.Bytes()
	if err != nil {
		c.log.Error("failed to re-encode Sub request", zap.Error(err))
		return
	}
	c.sentReq = opcode
	err = c.sendControl(opcode, buf, func(adv time.Duration, err error) {
		c.onSubSendComplete(opcode, adv, err)
	})
	if err != nil {
		c.sentReq = wire.OpcodeNone
		c.log.Warn("Sub request retry send failed", zap.Error(err))
	}
}

func (c *Context) onSubSendComplete(opcode wire.Opcode, adv time.Duration, err error) {
	if c.sentReq != opcode {
		return
	}
	if err != nil {
		c.log.Warn("Sub request transmission failed", zap.Stringer("opcode", opcode), zap.Error(err))
		c.sentReq = wire.OpcodeNone
		c.groupState.pending.clearAll()
		return
	}
	c.advDuration = adv
	c.onPollSendComplete()
}

// SubConfirm is the inbound Friend Sub Confirm handler (spec §4.5).
func (c *Context) SubConfirm(sender uint16, payload []byte) error {
	var retErr error
	c.dispatch(func() {
		if c.state != WaitUpdate {
			c.log.Debug("Friend Sub Confirm ignored: wrong state", zap.Stringer("state", c.state))
			retErr = ErrUnexpectedState
			return
		}
		if sender != c.frnd {
			c.log.Warn("Friend Sub Confirm from unexpected sender", zap.Uint16("sender", sender))
			retErr = ErrUnexpectedState
			return
		}
		p, err := wire.DecodeFriendSubConfirm(payload)
		if err != nil {
			c.log.Warn("malformed Friend Sub Confirm", zap.Error(err))
			retErr = ErrBadData
			return
		}
		if c.sentReq != wire.FriendSubAdd && c.sentReq != wire.FriendSubRemove {
			c.log.Warn("unexpected Friend Sub Confirm: no Sub request pending")
			return
		}
		if p.Xact != c.groupState.xactPend {
			c.log.Warn("Friend Sub Confirm transaction mismatch, ignoring",
				zap.Uint8("got", p.Xact), zap.Uint8("want", c.groupState.xactPend))
			return
		}

		c.cancelTimer()
		c.scan.ScanDisable()

		switch c.sentReq {
		case wire.FriendSubAdd:
			for i := range c.groupState.groups {
				if c.groupState.pending.get(i) {
					c.groupState.added.set(i)
					c.groupState.pending.clear(i)
				}
			}
		case wire.FriendSubRemove:
			for i := range c.groupState.groups {
				if c.groupState.pending.get(i) {
					c.groupState.added.clear(i)
					if c.groupState.toRemove.get(i) {
						c.groupState.groups[i] = wire.Unassigned
						c.groupState.toRemove.clear(i)
					}
					c.groupState.pending.clear(i)
				}
			}
		}

		c.friendResponseReceived()
		c.setState(Established)

		if kicked := c.tryReconcile(); kicked {
			return
		}
		if c.pendingPoll {
			c.sendFriendPoll()
			return
		}
		c.finishRound()
	})
	return retErr
}
