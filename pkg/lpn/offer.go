package lpn

import (
	"time"

	"go.uber.org/zap"

	"github.com/nspcc-dev/ble-mesh-lpn/pkg/lpn/wire"
)

// Offer is the inbound Friend Offer handler (spec §4.3). It validates the
// payload and current state, derives friendship credentials via the
// credential provider, and sends the confirming Friend Poll. The first
// well-formed Offer is always accepted (spec §9 Open Question: "TODO: Add
// offer acceptance criteria check" — acceptOfferCriteria is the preserved
// no-op hook for future tightening).
func (c *Context) Offer(sender uint16, payload []byte) error {
	var retErr error
	c.dispatch(func() {
		p, err := wire.DecodeFriendOffer(payload)
		if err != nil {
			c.warnOnce(sender, "malformed Friend Offer", err)
			retErr = ErrBadData
			return
		}
		if c.state != WaitOffer {
			c.log.Debug("Friend Offer ignored: wrong state", zap.Stringer("state", c.state))
			retErr = ErrUnexpectedState
			return
		}
		if p.RecvWin == 0 {
			c.warnOnce(sender, "Friend Offer has prohibited recv_win=0", nil)
			retErr = ErrBadData
			return
		}
		if !c.acceptOfferCriteria(sender, p) {
			c.log.Debug("Friend Offer rejected by acceptance criteria", zap.Uint16("sender", sender))
			return
		}

		c.frnd = sender
		cred, err := c.creds.CredAdd(c.netIdx, c.netKey, 0, c.frnd, c.counter, p.FrndCounter)
		if err != nil {
			c.log.Error("credential allocation failed for Offer", zap.Uint16("frnd", c.frnd), zap.Error(err))
			c.frnd = wire.Unassigned
			retErr = ErrNoMemory
			return
		}
		c.cred = cred
		if c.ivkr.KeyRefreshPhase() != 0 {
			if err := c.creds.CredSet(c.cred, 1, c.ivkr.Subnet0NewKey()); err != nil {
				c.log.Error("failed to install secondary key-refresh credential", zap.Error(err))
			}
		}

		c.cancelTimer()
		c.recvWin = p.RecvWin
		c.queueSize = p.QueueSize

		c.sentReq = wire.OpcodeNone // clear the completed Friend Request slot
		if err := c.transmitPoll(c.onOfferPollComplete); err != nil {
			c.log.Warn("Friend Poll after Offer failed to queue, reverting", zap.Error(err))
			c.revertOfferAcceptance()
			c.enterWaitOffer(c.advDuration + c.cfg.FriendReqScan)
			return
		}
		c.counter++
	})
	return retErr
}

// acceptOfferCriteria is the acceptance-criteria hook named in spec §4.3
// and flagged as an open question in spec §9: always true today.
func (c *Context) acceptOfferCriteria(sender uint16, p wire.FriendOfferPayload) bool {
	return true
}

func (c *Context) revertOfferAcceptance() {
	if c.cred != nil {
		c.creds.CredClear(c.cred)
	}
	c.cred = nil
	c.frnd = wire.Unassigned
}

func (c *Context) onOfferPollComplete(adv time.Duration, err error) {
	if err != nil {
		c.log.Warn("Friend Poll (post-Offer) transmission failed, reverting", zap.Error(err))
		c.sentReq = wire.OpcodeNone
		c.revertOfferAcceptance()
		c.enterWaitOffer(adv + c.cfg.FriendReqScan)
		return
	}
	c.advDuration = adv
	c.onPollSendComplete()
}

// warnOnce logs at Warn the first time sender misbehaves in the current
// WaitOffer round and at Debug afterwards, using the offer dedupe cache so
// a retransmitting, already-rejected Friend doesn't spam the log.
func (c *Context) warnOnce(sender uint16, msg string, err error) {
	fields := []zap.Field{zap.Uint16("sender", sender)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	if c.offerSeen.seenBefore(sender) {
		c.log.Debug(msg, fields...)
		return
	}
	c.log.Warn(msg, fields...)
}
