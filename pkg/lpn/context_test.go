package lpn_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nspcc-dev/ble-mesh-lpn/internal/faketransport"
	"github.com/nspcc-dev/ble-mesh-lpn/pkg/lpn"
	"github.com/nspcc-dev/ble-mesh-lpn/pkg/lpn/config"
	"github.com/nspcc-dev/ble-mesh-lpn/pkg/lpn/wire"
)

const testAddr = 0x0001
const testFriend = 0x0002

// fastConfig shrinks every timer to millisecond scale so establishment
// scenarios settle in a test run without real wall-clock waits, and turns
// EstablishOptimization off so a completed Friend Request goes straight to
// WaitOffer the way spec §4.1 describes without the pre-scan optimization.
func fastConfig() config.Config {
	cfg := config.Default()
	cfg.RecvDelay = 10 * time.Millisecond
	cfg.FriendReqWait = 5 * time.Millisecond
	cfg.FriendReqScan = 20 * time.Millisecond
	cfg.FriendReqTimeout = 20 * time.Millisecond
	cfg.FriendReqRetryTimeout = 15 * time.Millisecond
	cfg.PollRetryTimeout = 10 * time.Millisecond
	cfg.PollTimeoutUnits = 50
	cfg.EstablishOptimization = false
	return cfg
}

type harness struct {
	ctx    *lpn.Context
	sender *faketransport.FakeSender
	creds  *faketransport.FakeCredentialProvider
	scan   *faketransport.FakeScanController
	node   *faketransport.FakeNodeInfo
	ivkr   *faketransport.FakeIVKeyRefresh
}

func newHarness(t *testing.T, cfg config.Config) *harness {
	t.Helper()
	h := &harness{
		sender: faketransport.NewFakeSender(),
		creds:  faketransport.NewFakeCredentialProvider(),
		scan:   faketransport.NewFakeScanController(),
		node:   faketransport.NewFakeNodeInfo(testAddr),
		ivkr:   faketransport.NewFakeIVKeyRefresh(),
	}
	h.ctx = lpn.New(cfg, h.sender, h.creds, h.scan, h.node, h.ivkr)
	h.ctx.Start()
	t.Cleanup(h.ctx.Stop)
	return h
}

func waitForState(t *testing.T, ctx *lpn.Context, want lpn.State, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if ctx.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	require.Equal(t, want, ctx.State(), "state did not converge in time")
}

func waitForSentCount(t *testing.T, sender *faketransport.FakeSender, want int, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if len(sender.Sent()) >= want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	require.GreaterOrEqual(t, len(sender.Sent()), want, "expected more messages to have been sent")
}

// establish drives h through a full happy-path establishment and leaves the
// context in Established.
func establish(t *testing.T, h *harness) {
	t.Helper()
	require.NoError(t, h.ctx.Enable())
	require.Equal(t, wire.FriendRequest, h.sender.Last().Opcode)
	h.sender.CompleteNext(nil)
	waitForState(t, h.ctx, lpn.WaitOffer, time.Second)

	offer := wire.FriendOfferPayload{RecvWin: 10, QueueSize: 8, SubListSize: 2, RSSI: -40, FrndCounter: 7}
	obuf, err := offer.Bytes()
	require.NoError(t, err)
	require.NoError(t, h.ctx.Offer(testFriend, obuf))
	require.Equal(t, wire.FriendPoll, h.sender.Last().Opcode)
	h.sender.CompleteNext(nil)
	waitForState(t, h.ctx, lpn.WaitUpdate, time.Second)

	update := wire.FriendUpdatePayload{Flags: 0, IVIndex: 1, MD: 0}
	ubuf, err := update.Bytes()
	require.NoError(t, err)
	require.NoError(t, h.ctx.Update(testFriend, true, ubuf))
	waitForState(t, h.ctx, lpn.Established, time.Second)
}

func TestEnableSendsFriendRequest(t *testing.T) {
	h := newHarness(t, fastConfig())
	require.NoError(t, h.ctx.Enable())

	assert.Equal(t, lpn.Enabled, h.ctx.State())
	assert.Equal(t, wire.FriendRequest, h.sender.Last().Opcode)
}

func TestHappyEstablishment(t *testing.T) {
	h := newHarness(t, fastConfig())
	establish(t, h)

	assert.True(t, h.ctx.Established())
	assert.Equal(t, uint16(testFriend), h.ctx.Friend())
	assert.True(t, h.scan.DisableN > 0)
}

func TestOfferRejectsZeroRecvWin(t *testing.T) {
	h := newHarness(t, fastConfig())
	require.NoError(t, h.ctx.Enable())
	h.sender.CompleteNext(nil)
	waitForState(t, h.ctx, lpn.WaitOffer, time.Second)

	offer := wire.FriendOfferPayload{RecvWin: 0, QueueSize: 8, SubListSize: 2, RSSI: -40, FrndCounter: 7}
	buf, err := offer.Bytes()
	require.NoError(t, err)
	err = h.ctx.Offer(testFriend, buf)
	assert.ErrorIs(t, err, lpn.ErrBadData)
	assert.Equal(t, lpn.WaitOffer, h.ctx.State())
}

func TestWaitOfferTimeoutRetries(t *testing.T) {
	h := newHarness(t, fastConfig())
	require.NoError(t, h.ctx.Enable())
	h.sender.CompleteNext(nil)
	waitForState(t, h.ctx, lpn.WaitOffer, time.Second)

	// No Offer arrives: WaitOffer should time out and retry with a new
	// Friend Request once FriendReqRetryTimeout elapses.
	waitForState(t, h.ctx, lpn.Enabled, time.Second)
	waitForSentCount(t, h.sender, 2, time.Second)
	h.sender.CompleteNext(nil)
	waitForState(t, h.ctx, lpn.WaitOffer, time.Second)
	assert.GreaterOrEqual(t, len(h.sender.Sent()), 2)
}

func TestGroupAddKicksReconciliationWhenEstablished(t *testing.T) {
	h := newHarness(t, fastConfig())
	establish(t, h)

	h.ctx.GroupAdd(0xC000)
	assert.Equal(t, wire.FriendSubAdd, h.sender.Last().Opcode)
	h.sender.CompleteNext(nil)
	waitForState(t, h.ctx, lpn.WaitUpdate, time.Second)
}

func TestDisableBeforeEstablishmentTransitionsImmediately(t *testing.T) {
	h := newHarness(t, fastConfig())
	require.NoError(t, h.ctx.Enable())
	h.sender.CompleteNext(nil)
	waitForState(t, h.ctx, lpn.WaitOffer, time.Second)

	h.ctx.Disable()
	waitForState(t, h.ctx, lpn.Disabled, time.Second)
	assert.False(t, h.ctx.Established())
}

func TestDisableAfterEstablishmentRunsClearHandshake(t *testing.T) {
	h := newHarness(t, fastConfig())
	establish(t, h)

	h.ctx.Disable()
	waitForState(t, h.ctx, lpn.Clear, time.Second)
	assert.Equal(t, wire.FriendClear, h.sender.Last().Opcode)
	h.sender.CompleteNext(nil)

	// offer.go increments counter by one after the post-Offer Poll is
	// successfully queued, so the live lpn_counter at Clear time is 1.
	confirm := wire.FriendClearPayload{LPNAddr: testAddr, LPNCounter: 1}
	cbuf, err := confirm.Bytes()
	require.NoError(t, err)
	require.NoError(t, h.ctx.ClearConfirm(testFriend, cbuf))

	waitForState(t, h.ctx, lpn.Disabled, time.Second)
	assert.False(t, h.ctx.Established())
	assert.Equal(t, wire.Unassigned, h.ctx.Friend())
	assert.Contains(t, h.creds.Deleted(), uint16(testFriend))
}
