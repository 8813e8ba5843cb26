package lpn

import "errors"

// Sentinel errors returned by the LPN core, matching the error kinds named
// in spec §7. None of these are ever panicked; every failure path either
// returns one of these or resolves by dropping the friendship cleanly.
var (
	// ErrNoBuffer is returned when the transport collaborator could not
	// queue an outbound control message.
	ErrNoBuffer = errors.New("lpn: transport has no buffer to queue the request")
	// ErrBadData is returned for malformed inbound control messages: short
	// payloads or wire-prohibited field values.
	ErrBadData = errors.New("lpn: malformed control message payload")
	// ErrNoMemory is returned when credential allocation (credit/queue
	// overflow on the Friend side is surfaced back to us) fails.
	ErrNoMemory = errors.New("lpn: credential allocation failed")
	// ErrUnexpectedState is returned (non-fatal) when a control message
	// arrives while the state machine isn't in a state that expects it.
	ErrUnexpectedState = errors.New("lpn: control message unexpected in current state")
	// ErrNotProvisioned is returned by Enable when the node collaborator
	// reports it isn't provisioned yet.
	ErrNotProvisioned = errors.New("lpn: node is not provisioned")
)
