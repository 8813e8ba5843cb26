package lpn

import (
	"time"

	"github.com/nspcc-dev/ble-mesh-lpn/pkg/lpn/wire"
)

// Cred is an opaque handle to friendship credentials, returned by the
// credential provider and passed back to it on teardown. The LPN core
// never inspects it; per spec §1 it "does not perform key derivation; it
// only invokes the credential provider".
type Cred interface{}

// Sender is the transport control-message collaborator (spec §6):
// send(tx_ctx, opcode, payload, bytes, on_complete). onComplete is invoked
// once the advertising bearer finishes transmitting (or fails), and is
// always delivered back onto the core's single executor, never called
// synchronously from within Send.
type Sender interface {
	Send(dst uint16, opcode wire.Opcode, payload []byte, onComplete func(advDuration time.Duration, err error)) error
}

// CredentialProvider derives and manages friendship credentials (spec §6).
// The LPN core treats NetKey as an opaque byte slice; it never derives
// keys itself.
type CredentialProvider interface {
	CredAdd(netIdx int, netKey []byte, keyIdx int, friendAddr uint16, lpnCounter, friendCounter uint16) (Cred, error)
	CredSet(cred Cred, keyIdx int, key []byte) error
	CredClear(cred Cred)
	CredDel(netIdx int, friendAddr uint16)
}

// ScanController enables and disables the radio receiver (spec §4.7/§6).
type ScanController interface {
	ScanEnable()
	ScanDisable()
}

// Composition describes node element count, needed for the Friend
// Request's num_elem field.
type Composition struct {
	NumElements uint8
}

// NodeInfo exposes the host collaborators the core needs read-only (spec
// §6): primary_addr(), composition(), is_provisioned(), subnet[0].
type NodeInfo interface {
	PrimaryAddr() uint16
	Composition() Composition
	IsProvisioned() bool
	// Subnet0 returns (net_idx, net_key) for subnet[0].
	Subnet0() (int, []byte)
}

// IVKeyRefresh exposes the IV Update / Key Refresh collaborators (spec
// §6): kr_update(sub, kr_flag, new_key), iv_update(index, flag),
// beacon_ivu_initiator(false).
type IVKeyRefresh interface {
	KRUpdate(subnetIdx int, krFlag bool, newKey []byte)
	IVUpdate(index uint32, flag bool)
	BeaconIVUInitiator(active bool)
	// KeyRefreshPhase reports the current key-refresh phase of subnet 0,
	// 0 meaning no refresh in progress. Used to decide whether a second
	// credential set (the new key) must be installed on Offer.
	KeyRefreshPhase() int
	// Subnet0NewKey returns the pending new network key material for
	// subnet 0 while a key refresh is in progress; only consulted when
	// KeyRefreshPhase() != 0.
	Subnet0NewKey() []byte
}

// TxProbe exposes tx_in_progress() (spec §6), used to clamp the poll
// timeout to 1s while a segmented transmission is in flight (spec §4.4).
type TxProbe interface {
	TxInProgress() bool
}
