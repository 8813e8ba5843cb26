package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFriendRequestRoundTrip(t *testing.T) {
	p := FriendRequestPayload{
		Criteria:   0x07,
		RecvDelay:  100,
		PollTO:     300,
		PrevAddr:   0x0042,
		NumElem:    1,
		LPNCounter: 0x0100,
	}
	buf, err := p.Bytes()
	require.NoError(t, err)
	require.Len(t, buf, 10)

	r := NewBinReader(buf)
	assert.Equal(t, p.Criteria, r.ReadB())
	assert.Equal(t, p.RecvDelay, r.ReadB())
	assert.Equal(t, p.PollTO, r.ReadU24BE())
	assert.Equal(t, p.PrevAddr, r.ReadU16BE())
	assert.Equal(t, p.NumElem, r.ReadB())
	assert.Equal(t, p.LPNCounter, r.ReadU16BE())
	assert.NoError(t, r.Err)
}

func TestFriendOfferDecode(t *testing.T) {
	w := NewBinWriter()
	w.WriteB(50)
	w.WriteB(4)
	w.WriteB(2)
	w.WriteB(uint8(int8(-40)))
	w.WriteU16BE(0x0100)

	p, err := DecodeFriendOffer(w.Bytes())
	require.NoError(t, err)
	assert.EqualValues(t, 50, p.RecvWin)
	assert.EqualValues(t, 4, p.QueueSize)
	assert.EqualValues(t, -40, p.RSSI)
	assert.EqualValues(t, 0x0100, p.FrndCounter)
}

func TestFriendOfferDecodeShortPayload(t *testing.T) {
	_, err := DecodeFriendOffer([]byte{1, 2})
	assert.Error(t, err)
}

func TestFriendUpdateMoreData(t *testing.T) {
	w := NewBinWriter()
	w.WriteB(FlagIVUpdate)
	w.WriteU32BE(42)
	w.WriteB(1)

	p, err := DecodeFriendUpdate(w.Bytes())
	require.NoError(t, err)
	assert.True(t, p.MoreData())
	assert.EqualValues(t, 42, p.IVIndex)
	assert.True(t, p.Flags&FlagIVUpdate != 0)
}

func TestFriendSubPayloadEncodesAllAddresses(t *testing.T) {
	p := FriendSubPayload{Xact: 3, Addrs: []uint16{0xC000, 0xC001}}
	buf, err := p.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 0xC0, 0x00, 0xC0, 0x01}, buf)
}

func TestFriendClearRoundTrip(t *testing.T) {
	p := FriendClearPayload{LPNAddr: 0x1201, LPNCounter: 7}
	buf, err := p.Bytes()
	require.NoError(t, err)

	got, err := DecodeFriendClearConfirm(buf)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestOpcodeString(t *testing.T) {
	assert.Equal(t, "FriendPoll", FriendPoll.String())
	assert.Equal(t, "unknown", Opcode(200).String())
}
