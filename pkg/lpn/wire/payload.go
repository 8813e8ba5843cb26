package wire

// Unassigned is the reserved mesh address meaning "no address", used for
// frnd, old_friend, and free group slots.
const Unassigned uint16 = 0x0000

// FriendRequestPayload is the payload of the Friend Request control message
// (spec §6): criteria(1) recv_delay(1) poll_to(3) prev_addr(2) num_elem(1)
// lpn_counter(2).
type FriendRequestPayload struct {
	Criteria   uint8
	RecvDelay  uint8
	PollTO     uint32 // 24-bit on the wire
	PrevAddr   uint16
	NumElem    uint8
	LPNCounter uint16
}

// EncodeBinary serializes p using the shared sticky-error BinWriter.
func (p FriendRequestPayload) EncodeBinary(w *BinWriter) {
	w.WriteB(p.Criteria)
	w.WriteB(p.RecvDelay)
	w.WriteU24BE(p.PollTO)
	w.WriteU16BE(p.PrevAddr)
	w.WriteB(p.NumElem)
	w.WriteU16BE(p.LPNCounter)
}

// Bytes encodes p into a standalone slice.
func (p FriendRequestPayload) Bytes() ([]byte, error) {
	w := NewBinWriter()
	p.EncodeBinary(w)
	return w.Bytes(), w.Err
}

// FriendOfferPayload is recv_win(1) queue_size(1) sub_list_size(1)
// rssi(1,signed) frnd_counter(2).
type FriendOfferPayload struct {
	RecvWin     uint8
	QueueSize   uint8
	SubListSize uint8
	RSSI        int8
	FrndCounter uint16
}

// DecodeFriendOffer parses a Friend Offer payload, returning the reader's
// error on short input; the lpn caller reports that as ErrBadData.
func DecodeFriendOffer(buf []byte) (FriendOfferPayload, error) {
	r := NewBinReader(buf)
	var p FriendOfferPayload
	p.RecvWin = r.ReadB()
	p.QueueSize = r.ReadB()
	p.SubListSize = r.ReadB()
	p.RSSI = int8(r.ReadB())
	p.FrndCounter = r.ReadU16BE()
	if r.Err != nil {
		return FriendOfferPayload{}, r.Err
	}
	return p, nil
}

// FriendPollPayload carries only the 1-bit FSN in the low bit of a byte.
type FriendPollPayload struct {
	FSN uint8
}

// EncodeBinary serializes p.
func (p FriendPollPayload) EncodeBinary(w *BinWriter) {
	w.WriteB(p.FSN & 1)
}

// Bytes encodes p into a standalone slice.
func (p FriendPollPayload) Bytes() ([]byte, error) {
	w := NewBinWriter()
	p.EncodeBinary(w)
	return w.Bytes(), w.Err
}

// FriendUpdatePayload is flags(1) iv_index(4) md(1).
type FriendUpdatePayload struct {
	Flags   uint8
	IVIndex uint32
	MD      uint8
}

// Friend Update flag bits.
const (
	FlagKeyRefresh uint8 = 1 << 0
	FlagIVUpdate   uint8 = 1 << 1
)

// DecodeFriendUpdate parses a Friend Update payload.
func DecodeFriendUpdate(buf []byte) (FriendUpdatePayload, error) {
	r := NewBinReader(buf)
	var p FriendUpdatePayload
	p.Flags = r.ReadB()
	p.IVIndex = r.ReadU32BE()
	p.MD = r.ReadB()
	if r.Err != nil {
		return FriendUpdatePayload{}, r.Err
	}
	return p, nil
}

// MoreData reports whether the Update's "more data" flag is set.
func (p FriendUpdatePayload) MoreData() bool {
	return p.MD != 0
}

// FriendClearPayload and FriendClearConfirmPayload share the same shape:
// lpn_addr(2) lpn_counter(2).
type FriendClearPayload struct {
	LPNAddr    uint16
	LPNCounter uint16
}

// EncodeBinary serializes p.
func (p FriendClearPayload) EncodeBinary(w *BinWriter) {
	w.WriteU16BE(p.LPNAddr)
	w.WriteU16BE(p.LPNCounter)
}

// Bytes encodes p into a standalone slice.
func (p FriendClearPayload) Bytes() ([]byte, error) {
	w := NewBinWriter()
	p.EncodeBinary(w)
	return w.Bytes(), w.Err
}

// DecodeFriendClearConfirm parses a Friend Clear Confirm payload.
func DecodeFriendClearConfirm(buf []byte) (FriendClearPayload, error) {
	r := NewBinReader(buf)
	var p FriendClearPayload
	p.LPNAddr = r.ReadU16BE()
	p.LPNCounter = r.ReadU16BE()
	if r.Err != nil {
		return FriendClearPayload{}, r.Err
	}
	return p, nil
}

// FriendSubPayload is xact(1) addr_list(n*2), shared by Sub Add and
// Sub Remove.
type FriendSubPayload struct {
	Xact  uint8
	Addrs []uint16
}

// EncodeBinary serializes p.
func (p FriendSubPayload) EncodeBinary(w *BinWriter) {
	w.WriteB(p.Xact)
	for _, a := range p.Addrs {
		w.WriteU16BE(a)
	}
}

// Bytes encodes p into a standalone slice.
func (p FriendSubPayload) Bytes() ([]byte, error) {
	w := NewBinWriter()
	p.EncodeBinary(w)
	return w.Bytes(), w.Err
}

// FriendSubConfirmPayload is xact(1).
type FriendSubConfirmPayload struct {
	Xact uint8
}

// DecodeFriendSubConfirm parses a Friend Sub Confirm payload.
func DecodeFriendSubConfirm(buf []byte) (FriendSubConfirmPayload, error) {
	r := NewBinReader(buf)
	var p FriendSubConfirmPayload
	p.Xact = r.ReadB()
	if r.Err != nil {
		return FriendSubConfirmPayload{}, r.Err
	}
	return p, nil
}
