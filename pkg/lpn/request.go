package lpn

import (
	"time"

	"go.uber.org/zap"

	"github.com/nspcc-dev/ble-mesh-lpn/pkg/lpn/wire"
)

// Enable implements the public enable() API (spec §4.1). From Disabled it
// either starts auto-mode (Timer state, waiting for traffic) or goes
// straight to Enabled and emits a Friend Request.
func (c *Context) Enable() error {
	if !c.node.IsProvisioned() {
		return ErrNotProvisioned
	}
	var err error
	c.dispatch(func() {
		if c.state != Disabled {
			return
		}
		c.disableFlag.Store(false)
		c.clearSuccess.Store(false)
		c.reqAttempts = 0
		if c.cfg.AutoEnable {
			c.setState(Timer)
			c.armAutoTimer()
			return
		}
		c.enterEnabled()
	})
	return err
}

// Disable implements the public disable() API (spec §4.6). If a
// friendship is established it drives the Clear handshake and defers the
// transition to Disabled until it completes; otherwise it tears down
// immediately.
func (c *Context) Disable() {
	c.dispatch(func() {
		if c.state == Disabled {
			return
		}
		c.disableFlag.Store(true)
		if c.state == Timer {
			c.cancelTimer()
			c.setState(Disabled)
			return
		}
		c.clearFriendship(true)
	})
}

// Set implements the public set(enable) API (spec §6): a single entry
// point toggling between Enable and Disable.
func (c *Context) Set(enable bool) error {
	if enable {
		return c.Enable()
	}
	c.Disable()
	return nil
}

// MsgReceived is the msg_received(rx) hook (spec §6): called for every
// decrypted mesh message so the auto-mode timer can restart.
func (c *Context) MsgReceived() {
	c.post(func() {
		if c.state == Timer {
			c.armAutoTimer()
		}
	})
}

func (c *Context) armAutoTimer() {
	c.autoTimerArmed = true
	c.armTimer(c.cfg.AutoEnableWindow, func() {
		c.autoTimerArmed = false
		c.log.Debug("auto-mode window expired, entering Enabled")
		c.enterEnabled()
	})
}

// enterEnabled implements the Timer -> Enabled fallthrough (spec §9:
// "model as explicit forwarding to the Enabled handler, not control-flow
// fallthrough") and the Enabled state's "send Friend Request" behavior.
func (c *Context) enterEnabled() {
	c.setState(Enabled)
	c.sendFriendRequest()
}

// sendFriendRequest builds and transmits a Friend Request (spec §4.2).
func (c *Context) sendFriendRequest() {
	if c.sentReq != wire.OpcodeNone {
		return
	}
	netIdx, netKey := c.node.Subnet0()
	c.netIdx = netIdx
	c.netKey = netKey

	payload := wire.FriendRequestPayload{
		Criteria:   packCriteria(c.cfg.Criteria),
		RecvDelay:  uint8(c.cfg.RecvDelay.Milliseconds()),
		PollTO:     c.cfg.PollTimeoutUnits,
		PrevAddr:   c.oldFriend,
		NumElem:    c.node.Composition().NumElements,
		LPNCounter: c.counter,
	}
	buf, err := payload.Bytes()
	if err != nil {
		c.log.Error("failed to encode Friend Request", zap.Error(err))
		return
	}

	c.sentReq = wire.FriendRequest
	err = c.sendControl(wire.FriendRequest, buf, c.onFriendRequestComplete)
	if err != nil {
		c.sentReq = wire.OpcodeNone
		c.log.Warn("Friend Request send failed", zap.Error(err))
		c.setState(Enabled)
		c.clearFriendship(c.disableFlag.Load())
		return
	}
	if c.metrics != nil {
		c.metrics.friendRequests.Inc()
	}
}

// onFriendRequestComplete is the transport on_complete callback for a
// Friend Request (spec §4.2): on success it moves to ReqWait (if
// establishment optimization is configured) or straight to WaitOffer.
func (c *Context) onFriendRequestComplete(adv time.Duration, err error) {
	if c.sentReq != wire.FriendRequest {
		return // stale callback from a superseded request
	}
	if err != nil {
		c.log.Warn("Friend Request transmission failed", zap.Error(err))
		c.sentReq = wire.OpcodeNone
		c.setState(Enabled)
		c.clearFriendship(c.disableFlag.Load())
		return
	}
	c.advDuration = adv
	if c.cfg.EstablishOptimization {
		c.setState(ReqWait)
		c.armTimer(c.cfg.FriendReqWait, c.onReqWaitExpired)
		return
	}
	c.enterWaitOffer(adv + c.cfg.FriendReqTimeout)
}

func (c *Context) onReqWaitExpired() {
	c.scan.ScanEnable()
	c.enterWaitOffer(c.advDuration + c.cfg.FriendReqScan)
}

func (c *Context) enterWaitOffer(window time.Duration) {
	c.setState(WaitOffer)
	c.offerSeen.reset()
	c.armTimer(window, c.onWaitOfferExpired)
}

// onWaitOfferExpired handles a WaitOffer timeout without an acceptable
// Offer (spec §4.1, spec §8 scenario 2): no Friend Offer at all is not the
// budgeted retry case spec §4.4 describes for a missed Friend Update — the
// node just keeps asking, forever, at FriendReqRetryTimeout intervals, until
// an Offer arrives or the caller disables.
func (c *Context) onWaitOfferExpired() {
	c.scan.ScanDisable()
	c.sentReq = wire.OpcodeNone
	c.counter++

	if c.disableFlag.Load() {
		c.reqAttempts = 0
		c.setState(Disabled)
		return
	}

	c.setState(Enabled)
	c.armTimer(c.cfg.FriendReqRetryTimeout, c.enterEnabled)
}
