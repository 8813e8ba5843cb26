// Package faketransport provides in-memory stand-ins for the lpn package's
// collaborator interfaces (transport, credentials, scan, node info, IV/Key
// Refresh), in the spirit of the teacher's internal/fakechain: plain structs
// with overridable function fields instead of a mocking framework.
package faketransport

import (
	"errors"
	"sync"
	"time"

	"github.com/nspcc-dev/ble-mesh-lpn/pkg/lpn"
	"github.com/nspcc-dev/ble-mesh-lpn/pkg/lpn/wire"
)

// SentMessage records one outbound control message handed to FakeSender.
type SentMessage struct {
	Dst     uint16
	Opcode  wire.Opcode
	Payload []byte
}

// FakeSender is a Sender that records every outbound message and completes
// it asynchronously (matching the real bearer's "never call onComplete
// synchronously" contract) once the test calls CompleteNext.
type FakeSender struct {
	mu       sync.Mutex
	sent     []SentMessage
	pending  []func(time.Duration, error)
	AdvDur   time.Duration
	SendErrF func(opcode wire.Opcode) error
}

// NewFakeSender returns a FakeSender with a default 10ms advertising
// duration for completed sends.
func NewFakeSender() *FakeSender {
	return &FakeSender{AdvDur: 10 * time.Millisecond}
}

// Send implements lpn.Sender.
func (f *FakeSender) Send(dst uint16, opcode wire.Opcode, payload []byte, onComplete func(time.Duration, error)) error {
	if f.SendErrF != nil {
		if err := f.SendErrF(opcode); err != nil {
			return err
		}
	}
	f.mu.Lock()
	f.sent = append(f.sent, SentMessage{Dst: dst, Opcode: opcode, Payload: payload})
	f.pending = append(f.pending, onComplete)
	f.mu.Unlock()
	return nil
}

// Sent returns a snapshot of every message queued so far.
func (f *FakeSender) Sent() []SentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]SentMessage, len(f.sent))
	copy(out, f.sent)
	return out
}

// Last returns the most recently queued message, or the zero value if none.
func (f *FakeSender) Last() SentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return SentMessage{}
	}
	return f.sent[len(f.sent)-1]
}

// CompleteNext invokes the oldest not-yet-completed send's callback.
func (f *FakeSender) CompleteNext(err error) {
	f.mu.Lock()
	if len(f.pending) == 0 {
		f.mu.Unlock()
		return
	}
	cb := f.pending[0]
	f.pending = f.pending[1:]
	adv := f.AdvDur
	f.mu.Unlock()
	cb(adv, err)
}

// FakeCred is the opaque credential handle FakeCredentialProvider hands
// back; its fields let tests assert on how the core derived it.
type FakeCred struct {
	FriendAddr   uint16
	LPNCounter   uint16
	FriendCount  uint16
	SecondaryKey []byte
	Cleared      bool
}

// FakeCredentialProvider is a CredentialProvider that keeps allocated
// credentials in memory instead of deriving real key material.
type FakeCredentialProvider struct {
	mu       sync.Mutex
	added    map[uint16]*FakeCred
	deleted  []uint16
	AddErr   error
}

func NewFakeCredentialProvider() *FakeCredentialProvider {
	return &FakeCredentialProvider{added: make(map[uint16]*FakeCred)}
}

func (f *FakeCredentialProvider) CredAdd(netIdx int, netKey []byte, keyIdx int, friendAddr uint16, lpnCounter, friendCounter uint16) (lpn.Cred, error) {
	if f.AddErr != nil {
		return nil, f.AddErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cred := &FakeCred{FriendAddr: friendAddr, LPNCounter: lpnCounter, FriendCount: friendCounter}
	f.added[friendAddr] = cred
	return cred, nil
}

func (f *FakeCredentialProvider) CredSet(cred lpn.Cred, keyIdx int, key []byte) error {
	c, ok := cred.(*FakeCred)
	if !ok {
		return errors.New("faketransport: CredSet on foreign credential handle")
	}
	c.SecondaryKey = key
	return nil
}

func (f *FakeCredentialProvider) CredClear(cred lpn.Cred) {
	if c, ok := cred.(*FakeCred); ok {
		c.Cleared = true
	}
}

func (f *FakeCredentialProvider) CredDel(netIdx int, friendAddr uint16) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.added, friendAddr)
	f.deleted = append(f.deleted, friendAddr)
}

// Deleted returns every friend address CredDel has been called with.
func (f *FakeCredentialProvider) Deleted() []uint16 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]uint16, len(f.deleted))
	copy(out, f.deleted)
	return out
}

// FakeScanController counts ScanEnable/ScanDisable calls and tracks the
// receiver's current on/off state for assertions.
type FakeScanController struct {
	mu        sync.Mutex
	enabled   bool
	EnableN   int
	DisableN  int
}

func NewFakeScanController() *FakeScanController {
	return &FakeScanController{}
}

func (f *FakeScanController) ScanEnable() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled = true
	f.EnableN++
}

func (f *FakeScanController) ScanDisable() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled = false
	f.DisableN++
}

// Enabled reports the receiver's last-commanded state.
func (f *FakeScanController) Enabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enabled
}

// FakeNodeInfo is a fixed NodeInfo collaborator for a single-element,
// already-provisioned node on subnet 0.
type FakeNodeInfo struct {
	Addr         uint16
	NumElem      uint8
	Provisioned  bool
	NetIdx       int
	NetKey       []byte
}

func NewFakeNodeInfo(addr uint16) *FakeNodeInfo {
	return &FakeNodeInfo{
		Addr:        addr,
		NumElem:     1,
		Provisioned: true,
		NetIdx:      0,
		NetKey:      []byte("fake-net-key-0000000000000000"),
	}
}

func (f *FakeNodeInfo) PrimaryAddr() uint16 { return f.Addr }

func (f *FakeNodeInfo) Composition() lpn.Composition {
	return lpn.Composition{NumElements: f.NumElem}
}

func (f *FakeNodeInfo) IsProvisioned() bool { return f.Provisioned }

func (f *FakeNodeInfo) Subnet0() (int, []byte) { return f.NetIdx, f.NetKey }

// FakeIVKeyRefresh is an IVKeyRefresh collaborator recording update calls;
// Phase/NewKey drive the "mid-key-refresh" branch of the Offer handler.
type FakeIVKeyRefresh struct {
	mu       sync.Mutex
	Phase    int
	NewKey   []byte
	IVUpdates []struct {
		Index uint32
		Flag  bool
	}
	KRUpdates []struct {
		SubnetIdx int
		KRFlag    bool
	}
}

func NewFakeIVKeyRefresh() *FakeIVKeyRefresh {
	return &FakeIVKeyRefresh{}
}

func (f *FakeIVKeyRefresh) KRUpdate(subnetIdx int, krFlag bool, newKey []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.KRUpdates = append(f.KRUpdates, struct {
		SubnetIdx int
		KRFlag    bool
	}{subnetIdx, krFlag})
}

func (f *FakeIVKeyRefresh) IVUpdate(index uint32, flag bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.IVUpdates = append(f.IVUpdates, struct {
		Index uint32
		Flag  bool
	}{index, flag})
}

func (f *FakeIVKeyRefresh) BeaconIVUInitiator(active bool) {}

func (f *FakeIVKeyRefresh) KeyRefreshPhase() int { return f.Phase }

func (f *FakeIVKeyRefresh) Subnet0NewKey() []byte { return f.NewKey }

// FakeTxProbe is a TxProbe collaborator; set InProgress to exercise the
// segmented-transmission poll-timeout clamp.
type FakeTxProbe struct {
	InProgress bool
}

func (f *FakeTxProbe) TxInProgress() bool { return f.InProgress }
