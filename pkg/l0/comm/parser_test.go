package comm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func feedAll(d *Decoder[HostPacket], data []byte) (results []FeedResult[HostPacket]) {
	for {
		res := d.Feed(data)
		if res.Kind == Consumed {
			return
		}
		results = append(results, res)
		data = res.Remaining
	}
}

func TestDecoderEmpty(t *testing.T) {
	d := NewHostDecoder(DefaultDecoderCapacity)
	res := d.Feed(nil)
	require.Equal(t, Consumed, res.Kind)
	require.Equal(t, 0, d.Buffered())
}

func TestDecoderFrames(t *testing.T) {
	d := NewHostDecoder(DefaultDecoderCapacity)
	var stream []byte
	for _, p := range testHostPackets {
		stream = AppendHostFrame(stream, p)
	}
	results := feedAll(d, stream)
	require.Len(t, results, len(testHostPackets))
	for n, res := range results {
		require.Equal(t, Success, res.Kind)
		require.Equal(t, testHostPackets[n], res.Value)
	}
	require.Equal(t, 0, d.Buffered())
}

func TestDecoderSplitAtEveryOffset(t *testing.T) {
	want := SetSpeed{Motors: MaskOf(0), Speed: 16384}
	frame := AppendHostFrame(nil, want)
	for split := 1; split < len(frame); split++ {
		d := NewHostDecoder(DefaultDecoderCapacity)
		res := d.Feed(frame[:split])
		require.Equalf(t, Consumed, res.Kind, "split %d", split)
		res = d.Feed(frame[split:])
		require.Equalf(t, Success, res.Kind, "split %d", split)
		require.Equal(t, want, res.Value)
		require.Empty(t, res.Remaining)
	}
}

func TestDecoderAllDelimiters(t *testing.T) {
	d := NewHostDecoder(DefaultDecoderCapacity)
	results := feedAll(d, make([]byte, 300))
	require.Len(t, results, 300)
	for _, res := range results {
		require.Equal(t, DecodeError, res.Kind)
		require.Equal(t, ErrUnexpectedEnd, res.Err)
	}
	require.Equal(t, 0, d.Buffered())
}

func TestDecoderBadChecksum(t *testing.T) {
	d := NewHostDecoder(DefaultDecoderCapacity)
	frame := AppendHostFrame(nil, Ping{ID: 7})
	frame[3] ^= 0x01
	next := AppendHostFrame(nil, Ping{ID: 8})

	res := d.Feed(append(frame, next...))
	require.Equal(t, DecodeError, res.Kind)
	require.Equal(t, ErrChecksum, res.Err)
	require.Equal(t, next, res.Remaining)

	res = d.Feed(res.Remaining)
	require.Equal(t, Success, res.Kind)
	require.Equal(t, Ping{ID: 8}, res.Value)
}

func TestDecoderTruncatedPayload(t *testing.T) {
	d := NewHostDecoder(DefaultDecoderCapacity)
	// SetSpeed tag and mask without speed, checksum valid
	payload := []byte{0x05, 0x01}
	sum := Checksum16(payload)
	raw := append(payload, byte(sum), byte(sum>>8))
	stuffed := make([]byte, MaxStuffedLen(len(raw)))
	n := cobsEncode(stuffed, raw)

	res := d.Feed(append(stuffed[:n], Delimiter))
	require.Equal(t, DecodeError, res.Kind)
	require.Equal(t, ErrUnexpectedEnd, res.Err)
	require.Empty(t, res.Remaining)
}

func TestDecoderOverfullNoDelimiter(t *testing.T) {
	const capacity = 16
	d := NewHostDecoder(capacity)
	input := bytes.Repeat([]byte{0x11}, capacity+1)

	res := d.Feed(input)
	require.Equal(t, Overfull, res.Kind)
	require.Equal(t, ErrFrameTooLarge, res.Err)
	require.Equal(t, []byte{0x11}, res.Remaining)
	require.Equal(t, 0, d.Buffered())

	res = d.Feed(AppendHostFrame(nil, Ping{ID: 1}))
	require.Equal(t, Success, res.Kind)
	require.Equal(t, Ping{ID: 1}, res.Value)
}

func TestDecoderOverfullPartial(t *testing.T) {
	const capacity = 16
	d := NewHostDecoder(capacity)
	require.Equal(t, Consumed, d.Feed(bytes.Repeat([]byte{0x11}, 10)).Kind)
	require.Equal(t, 10, d.Buffered())

	res := d.Feed(bytes.Repeat([]byte{0x22}, 10))
	require.Equal(t, Overfull, res.Kind)
	require.Equal(t, bytes.Repeat([]byte{0x22}, 4), res.Remaining)

	// the tail of the oversized frame is dropped at the next delimiter
	require.Equal(t, Consumed, d.Feed(res.Remaining).Kind)
	res = d.Feed([]byte{Delimiter})
	require.Equal(t, DecodeError, res.Kind)

	res = d.Feed(AppendHostFrame(nil, Disarm()))
	require.Equal(t, Success, res.Kind)
	require.Equal(t, Disarm(), res.Value)
}

func TestDecoderOverfullWithDelimiter(t *testing.T) {
	const capacity = 16
	d := NewHostDecoder(capacity)
	next := AppendHostFrame(nil, Ping{ID: 3})
	input := append(bytes.Repeat([]byte{0x11}, 20), Delimiter)
	input = append(input, next...)

	res := d.Feed(input)
	require.Equal(t, Overfull, res.Kind)
	require.Equal(t, next, res.Remaining)

	res = d.Feed(res.Remaining)
	require.Equal(t, Success, res.Kind)
	require.Equal(t, Ping{ID: 3}, res.Value)
}

func TestDecoderFarExceedingCapacity(t *testing.T) {
	d := NewHostDecoder(DefaultDecoderCapacity)
	results := feedAll(d, bytes.Repeat([]byte{0x7f}, 10*DefaultDecoderCapacity+5))
	require.Len(t, results, 10)
	for _, res := range results {
		require.Equal(t, Overfull, res.Kind)
	}
	require.Equal(t, 5, d.Buffered())
}

func TestDecoderCapacityPanics(t *testing.T) {
	require.Panics(t, func() { NewHostDecoder(2) })
}
