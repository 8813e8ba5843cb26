package lpn

import (
	"time"

	"go.uber.org/zap"

	"github.com/nspcc-dev/ble-mesh-lpn/pkg/lpn/wire"
)

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

// pollTimeoutMax computes POLL_TIMEOUT_MAX (spec §4.4):
// (configured_poll_to * 100ms) - 4*(LPN_RECV_DELAY + adv_duration +
// recv_win + POLL_RETRY_TIMEOUT).
func (c *Context) pollTimeoutMax() time.Duration {
	configured := time.Duration(c.cfg.PollTimeoutUnits) * 100 * time.Millisecond
	overhead := 4 * (c.cfg.RecvDelay + c.advDuration + time.Duration(c.recvWin)*time.Millisecond + c.cfg.PollRetryTimeout)
	max := configured - overhead
	if max < 0 {
		max = 0
	}
	return max
}

// growPollTimeout implements the poll-timeout growth law of spec §4.4: on
// each successful round poll_timeout doubles, capped at POLL_TIMEOUT_MAX;
// clamped to 1s instead while a segmented transmission is in progress.
func (c *Context) growPollTimeout() {
	if c.txProbe != nil && c.txProbe.TxInProgress() {
		c.pollTimeout = pollTimeoutSegmentedClamp
		return
	}
	max := c.pollTimeoutMax()
	next := c.pollTimeout * 2
	if next > max {
		next = max
	}
	c.pollTimeout = next
}

// transmitPoll sends a Friend Poll unconditionally (bypassing the
// idempotent pending_poll gate); used both for the first Poll after
// accepting an Offer and for retries.
func (c *Context) transmitPoll(onComplete func(adv time.Duration, err error)) error {
	payload := wire.FriendPollPayload{FSN: c.fsn}
	buf, err := payload.Bytes()
	if err != nil {
		return err
	}
	c.sentReq = wire.FriendPoll
	c.pendingPoll = false
	if err := c.sendControl(wire.FriendPoll, buf, onComplete); err != nil {
		c.sentReq = wire.OpcodeNone
		return err
	}
	if c.metrics != nil {
		c.metrics.polls.Inc()
	}
	return nil
}

// Poll implements the public poll() API (spec §6): requests an on-demand
// Friend Poll outside the regular poll_timeout cadence, serialized onto the
// executor like every other public entry point.
func (c *Context) Poll() {
	c.dispatch(c.sendFriendPoll)
}

// sendFriendPoll is the idempotent send_friend_poll() of spec §4.4: if a
// different request is in flight it defers via pending_poll and returns;
// otherwise it transmits immediately.
func (c *Context) sendFriendPoll() {
	if c.sentReq != wire.OpcodeNone {
		c.pendingPoll = true
		return
	}
	if err := c.transmitPoll(c.onPollComplete); err != nil {
		c.log.Warn("Friend Poll send failed", zap.Error(err))
	}
}

func (c *Context) onPollComplete(adv time.Duration, err error) {
	if c.sentReq != wire.FriendPoll {
		return
	}
	if err != nil {
		c.log.Warn("Friend Poll transmission failed", zap.Error(err))
		c.sentReq = wire.OpcodeNone
		c.pendingPoll = false
		return
	}
	c.advDuration = adv
	c.onPollSendComplete()
}

// onPollSendComplete implements the RecvDelay/WaitUpdate windowing shared
// by Poll and Sub Add/Remove transmissions (spec §4.4, §4.7).
func (c *Context) onPollSendComplete() {
	if c.cfg.EstablishOptimization {
		c.setState(RecvDelay)
		d := c.cfg.RecvDelay - c.cfg.ScanLatency
		if d < 0 {
			d = 0
		}
		c.armTimer(d, c.onRecvDelayExpired)
		return
	}
	c.enterWaitUpdate()
}

func (c *Context) onRecvDelayExpired() {
	c.enterWaitUpdate()
}

func (c *Context) enterWaitUpdate() {
	c.scan.ScanEnable()
	c.setState(WaitUpdate)
	window := c.advDuration + c.cfg.ScanLatency + time.Duration(c.recvWin)*time.Millisecond
	c.armTimer(window, c.onWaitUpdateExpired)
}

// onWaitUpdateExpired handles a missed Friend Update/Sub Confirm window
// (spec §4.4). Before the first Friend Update, grounded on the original's
// update_timeout() gate on !established, the budget is the fixed 6-retry
// tolerance of waitOfferMaxRetries; once established it's the REQ_ATTEMPTS
// budget (reqAttemptsBudget). Either way, exhausting it clears the
// friendship.
func (c *Context) onWaitUpdateExpired() {
	c.scan.ScanDisable()
	budget := waitOfferMaxRetries
	if c.established.Load() {
		budget = reqAttemptsBudget(c.pollTimeoutMax())
	}
	c.reqAttempts++
	if c.metrics != nil {
		c.metrics.reqAttempts.Set(float64(c.reqAttempts))
	}
	if c.reqAttempts > budget {
		c.log.Warn("response budget exhausted, dropping friendship", zap.Int("req_attempts", c.reqAttempts))
		pendingOpcode := c.sentReq
		c.sentReq = wire.OpcodeNone
		c.pendingPoll = false
		if pendingOpcode == wire.FriendSubAdd || pendingOpcode == wire.FriendSubRemove {
			c.groupState.pending.clearAll()
		}
		c.clearFriendship(false)
		return
	}
	c.armTimer(c.cfg.PollRetryTimeout, c.retryInFlightRequest)
}

// retryInFlightRequest resends whichever request was outstanding when the
// window was missed: a Poll, or a Sub Add/Remove.
func (c *Context) retryInFlightRequest() {
	switch c.sentReq {
	case wire.FriendSubAdd:
		c.sentReq = wire.OpcodeNone
		c.retransmitSub(wire.FriendSubAdd)
	case wire.FriendSubRemove:
		c.sentReq = wire.OpcodeNone
		c.retransmitSub(wire.FriendSubRemove)
	default:
		c.sentReq = wire.OpcodeNone
		if err := c.transmitPoll(c.onPollComplete); err != nil {
			c.log.Warn("Friend Poll retry failed", zap.Error(err))
		}
	}
}

// Update is the inbound Friend Update handler (spec §4.4). usedFriendCreds
// reports whether the Update was decrypted with the friendship credentials;
// it must be true until the friendship is established (the first Update),
// and is not checked afterwards.
func (c *Context) Update(sender uint16, usedFriendCreds bool, payload []byte) error {
	var retErr error
	c.dispatch(func() {
		if c.state != WaitUpdate {
			c.log.Debug("Friend Update ignored: wrong state", zap.Stringer("state", c.state))
			retErr = ErrUnexpectedState
			return
		}
		if sender != c.frnd {
			c.log.Warn("Friend Update from unexpected sender", zap.Uint16("sender", sender), zap.Uint16("frnd", c.frnd))
			retErr = ErrUnexpectedState
			return
		}
		if !usedFriendCreds && !c.established.Load() {
			c.log.Warn("Friend Update not secured with friend credentials before establishment")
			retErr = ErrBadData
			return
		}
		p, err := wire.DecodeFriendUpdate(payload)
		if err != nil {
			c.log.Warn("malformed Friend Update", zap.Error(err))
			retErr = ErrBadData
			return
		}

		c.cancelTimer()
		c.scan.ScanDisable()

		c.ivkr.IVUpdate(p.IVIndex, p.Flags&wire.FlagIVUpdate != 0)
		if p.Flags&wire.FlagKeyRefresh != 0 {
			c.ivkr.KRUpdate(c.netIdx, true, c.ivkr.Subnet0NewKey())
		}

		firstUpdate := !c.established.Load()
		if firstUpdate {
			c.established.Store(true)
			c.pollTimeout = minDuration(c.pollTimeoutMax(), pollTimeoutInitial)
			if c.metrics != nil {
				c.metrics.established.Inc()
			}
			c.log.Info("friendship established", zap.Uint16("frnd", c.frnd))
		}

		c.friendResponseReceived()
		c.setState(Established)

		if kicked := c.tryReconcile(); kicked {
			return
		}
		if p.MoreData() {
			c.sendFriendPoll()
			return
		}
		if c.pendingPoll {
			c.sendFriendPoll()
			return
		}

		if !firstUpdate {
			c.growPollTimeout()
		}
		c.finishRound()
	})
	return retErr
}

// friendResponseReceived implements spec §4.4's shared completion helper:
// toggles fsn only when the completed request was a Poll, and clears
// sent_req.
func (c *Context) friendResponseReceived() {
	if c.sentReq == wire.FriendPoll {
		c.fsn ^= 1
	}
	c.sentReq = wire.OpcodeNone
}

// finishRound returns to Established and arms the timer for the current
// poll_timeout (invariant 6 of spec §3: sent_req == 0 at the instant the
// timer is armed for the next Poll).
func (c *Context) finishRound() {
	c.setState(Established)
	c.reqAttempts = 0
	if c.metrics != nil {
		c.metrics.pollTimeoutMillis.Set(float64(c.pollTimeout.Milliseconds()))
		c.metrics.reqAttempts.Set(0)
	}
	c.armTimer(c.pollTimeout, c.onPollTimerFired)
}

func (c *Context) onPollTimerFired() {
	c.sendFriendPoll()
}
