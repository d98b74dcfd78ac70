package comm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChecksum16(t *testing.T) {
	require.Equal(t, uint16(0xb4c8), Checksum16([]byte("123456789")))
	require.Equal(t, uint16(0), Checksum16(nil))
}

func TestCOBS(t *testing.T) {
	long := make([]byte, 254)
	for n := range long {
		long[n] = byte(n + 1)
	}
	testCases := []struct {
		name    string
		raw     []byte
		stuffed []byte
	}{
		{"empty", nil, []byte{0x01}},
		{"zero", []byte{0x00}, []byte{0x01, 0x01}},
		{"mixed", []byte{0x11, 0x22, 0x00, 0x33}, []byte{0x03, 0x11, 0x22, 0x02, 0x33}},
		{"full block", long, append(append([]byte{0xff}, long...), 0x01)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dst := make([]byte, MaxStuffedLen(len(tc.raw)))
			n := cobsEncode(dst, tc.raw)
			require.Equal(t, tc.stuffed, dst[:n])
			require.Equal(t, -1, bytes.IndexByte(dst[:n], 0))

			n, err := cobsDecodeInPlace(dst[:n])
			require.NoError(t, err)
			require.Equal(t, len(tc.raw), n)
			if len(tc.raw) > 0 {
				require.Equal(t, tc.raw, dst[:n])
			}
		})
	}

	_, err := cobsDecodeInPlace([]byte{0x05, 0x11})
	require.Equal(t, ErrCOBS, err)
	_, err = cobsDecodeInPlace([]byte{0x03, 0x11, 0x00})
	require.Equal(t, ErrCOBS, err)
}

func TestEncodeFrame(t *testing.T) {
	buf := make([]byte, DefaultEncodeBufferSize)
	frame, err := EncodeHost(SetSpeed{Motors: MaskOf(0), Speed: 16384}, buf)
	require.NoError(t, err)
	require.Equal(t, []byte{0x08, 0x05, 0x01, 0x80, 0x80, 0x02, 0xf7, 0xea, 0x00}, frame)

	frame, err = EncodeHost(Ping{ID: 7}, buf)
	require.NoError(t, err)
	require.Equal(t, []byte{0x05, 0x02, 0x07, 0xbe, 0xed, 0x00}, frame)

	frame, err = EncodeDevice(Pong{ID: 0}, buf)
	require.NoError(t, err)
	require.Equal(t, []byte{0x02, 0x02, 0x03, 0xff, 0x2f, 0x00}, frame)
}

func TestEncodeBufferTooSmall(t *testing.T) {
	pkt := SetSpeed{Motors: MaskOf(0), Speed: 16384}
	need := MaxFrameLen(len(MarshalHost(pkt)))
	require.Equal(t, 9, need)

	buf := bytes.Repeat([]byte{0xaa}, need-1)
	_, err := EncodeHost(pkt, buf)
	require.Equal(t, ErrBufferTooSmall, err)
	require.Equal(t, bytes.Repeat([]byte{0xaa}, need-1), buf)

	_, err = EncodeHost(pkt, make([]byte, need))
	require.NoError(t, err)
}

func TestAppendFrame(t *testing.T) {
	var stream []byte
	stream = AppendHostFrame(stream, Ping{ID: 7})
	stream = AppendHostFrame(stream, SetSpeed{Motors: MaskOf(0), Speed: 16384})
	require.Equal(t, []byte{
		0x05, 0x02, 0x07, 0xbe, 0xed, 0x00,
		0x08, 0x05, 0x01, 0x80, 0x80, 0x02, 0xf7, 0xea, 0x00,
	}, stream)

	require.Equal(t, []byte{0x02, 0x02, 0x03, 0xff, 0x2f, 0x00}, AppendDeviceFrame(nil, Pong{}))
}
