// Package lpn implements the Low Power Node friendship state machine of a
// Bluetooth Mesh stack (spec §1-§9): a timer-driven protocol core that
// suspends the radio receiver and receives mesh traffic on demand through a
// neighboring Friend node.
//
// The core is single-threaded and event-driven (spec §5): a Context owns
// one internal goroutine that serializes every timer fire, inbound control
// message, and host API call through a single channel, the same
// function-queue pattern the teacher's pkg/connmgr uses for its connection
// state machine.
package lpn

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/nspcc-dev/ble-mesh-lpn/pkg/lpn/config"
	"github.com/nspcc-dev/ble-mesh-lpn/pkg/lpn/wire"
)

// Context is the LPN singleton entity described in spec §3. Exactly one
// exists per node; it is created at node initialization and persists for
// the process lifetime.
type Context struct {
	cfg config.Config
	log *zap.Logger
	id  uuid.UUID

	transport Sender
	creds     CredentialProvider
	scan      ScanController
	node      NodeInfo
	ivkr      IVKeyRefresh
	txProbe   TxProbe

	metrics   *metricsSet
	offerSeen *offerSeenCache

	actionch chan func()
	quit     chan struct{}
	done     chan struct{}

	timer    *time.Timer
	timerGen uint64

	// --- protocol state, spec §3 ---
	state       State
	frnd        uint16
	oldFriend   uint16
	counter     uint16
	fsn         uint8
	recvWin     uint8
	queueSize   uint8
	advDuration time.Duration
	pollTimeout time.Duration
	reqAttempts int
	sentReq     wire.Opcode
	pendingPoll bool

	established  atomic.Bool
	disableFlag  atomic.Bool
	clearSuccess atomic.Bool

	cred   Cred
	netIdx int
	netKey []byte

	groupState *groupState

	autoTimerArmed bool
}

// Option configures optional collaborators at construction time.
type Option func(*Context)

// WithLogger overrides the default no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Context) { c.log = log }
}

// WithTxProbe wires the tx_in_progress() collaborator (spec §6).
func WithTxProbe(p TxProbe) Option {
	return func(c *Context) { c.txProbe = p }
}

// New constructs a Context. transport, creds, scan, node and ivkr are
// mandatory collaborators (spec §6); the constructor panics on a nil
// mandatory collaborator since that is a wiring bug, not a runtime
// condition the state machine can recover from.
func New(cfg config.Config, transport Sender, creds CredentialProvider, scan ScanController, node NodeInfo, ivkr IVKeyRefresh, opts ...Option) *Context {
	if transport == nil || creds == nil || scan == nil || node == nil || ivkr == nil {
		panic("lpn: New called with a nil mandatory collaborator")
	}
	c := &Context{
		cfg:        cfg,
		log:        zap.NewNop(),
		id:         uuid.New(),
		transport:  transport,
		creds:      creds,
		scan:       scan,
		node:       node,
		ivkr:       ivkr,
		offerSeen:  newOfferSeenCache(),
		actionch:   make(chan func(), 64),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		groupState: newGroupState(cfg.LPNGroups),
		frnd:       wire.Unassigned,
		oldFriend:  wire.Unassigned,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(zap.String("component", "lpn"), zap.String("instance", c.id.String()))
	if cfg.Metrics.Enabled {
		c.metrics = newMetricsSet(c.id.String())
		c.metrics.register()
	}
	c.groupState.changed = true // force resubscription pass on first friendship, spec §4.6
	return c
}

// Start launches the Context's single executor goroutine. It must be
// called once before any public API method.
func (c *Context) Start() {
	go c.run()
}

// Stop terminates the executor goroutine and cancels any pending timer. It
// does not perform a Clear handshake; callers that want a clean teardown
// should call Disable and wait for it to settle first.
func (c *Context) Stop() {
	close(c.quit)
	<-c.done
}

func (c *Context) run() {
	defer close(c.done)
	for {
		select {
		case <-c.quit:
			c.cancelTimer()
			return
		case f := <-c.actionch:
			f()
		}
	}
}

// dispatch posts f onto the executor and blocks until it has run,
// matching the teacher's connmgr.go Connected/Disconnected/Pending
// "synchronous via channel" pattern: callers should not continue with
// logic until the mutation has actually applied.
func (c *Context) dispatch(f func()) {
	done := make(chan struct{})
	c.actionch <- func() {
		f()
		close(done)
	}
	<-done
}

// post posts f onto the executor without waiting, used for timer fires and
// send-completion callbacks arriving from other goroutines (spec §9:
// "Represent it as a message back to the state machine's single executor").
func (c *Context) post(f func()) {
	select {
	case c.actionch <- f:
	case <-c.quit:
	}
}

// --- timer scheduler (spec §4.1 "one delayed work slot") ---

// armTimer schedules fn to run on the executor after d, cancelling any
// previously armed timer first (invariant 5 of spec §3).
func (c *Context) armTimer(d time.Duration, fn func()) {
	c.cancelTimer()
	c.timerGen++
	gen := c.timerGen
	c.timer = time.AfterFunc(d, func() {
		c.post(func() {
			if gen != c.timerGen {
				return // stale fire from a cancelled/rearmed timer
			}
			fn()
		})
	})
}

// cancelTimer cancels the pending timer deadline, if any.
func (c *Context) cancelTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.timerGen++
}

func (c *Context) setState(s State) {
	if c.log.Core().Enabled(zap.DebugLevel) {
		c.log.Debug("state transition", zap.Stringer("from", c.state), zap.Stringer("to", s))
	}
	c.state = s
	if c.metrics != nil {
		c.metrics.state.Set(float64(s))
	}
}

// State returns the current LPN state. Safe to call from any goroutine;
// it dispatches through the executor like every other accessor.
func (c *Context) State() State {
	var s State
	c.dispatch(func() { s = c.state })
	return s
}

// Friend returns the current Friend address, or wire.Unassigned.
func (c *Context) Friend() uint16 {
	var f uint16
	c.dispatch(func() { f = c.frnd })
	return f
}

// Established reports whether a friendship is currently active.
func (c *Context) Established() bool {
	return c.established.Load()
}

func (c *Context) sendControl(opcode wire.Opcode, payload []byte, onComplete func(adv time.Duration, err error)) error {
	dst := c.frnd
	err := c.transport.Send(dst, opcode, payload, func(adv time.Duration, err error) {
		c.post(func() { onComplete(adv, err) })
	})
	if err != nil {
		c.log.Warn("transport send failed to queue", zap.Stringer("opcode", opcode), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrNoBuffer, err)
	}
	return nil
}
