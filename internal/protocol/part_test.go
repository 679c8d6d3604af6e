package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/udisondev/mhfentrance/internal/crypto"
	"github.com/udisondev/mhfentrance/internal/packet"
)

var (
	typeSV2 = Type{'S', 'V', '2'}
	typeSVR = Type{'S', 'V', 'R'}
	typeUSR = Type{'U', 'S', 'R'}
)

// singleServerPayload is one SV2 server record with one channel:
// 127.0.0.1, kind=1, colour=0, name "Test", flags 4096, port 54001, max 100.
func singleServerPayload() []byte {
	b := make([]byte, 0, 111)
	b = binary.BigEndian.AppendUint32(b, 0x7F000001)
	b = binary.BigEndian.AppendUint16(b, 0) // id
	b = binary.BigEndian.AppendUint16(b, 0) // unk2
	b = binary.BigEndian.AppendUint16(b, 1) // channel count
	b = append(b, 1, 0, 0)
	name := make([]byte, 66)
	copy(name, "Test")
	b = append(b, name...)
	b = binary.BigEndian.AppendUint32(b, 4096)
	b = binary.BigEndian.AppendUint16(b, 54001)
	b = binary.BigEndian.AppendUint16(b, 0)
	b = binary.BigEndian.AppendUint16(b, 100)
	b = append(b, make([]byte, 22)...)
	return b
}

func TestWritePart_KnownVector(t *testing.T) {
	payload := singleServerPayload()
	require.Len(t, payload, 111)

	wire, err := WritePart(0x00, typeSV2, 1, payload)
	require.NoError(t, err)

	assert.Len(t, wire, PrefixSize+len(payload))
	assert.Equal(t,
		[]byte{0x00, 0x52, 0x73, 0x2C, 0xEC, 0x00, 0x74, 0x0D, 0xB4, 0xD3, 0x10, 0x34},
		wire[:PrefixSize])

	p, err := ReadPart(bytes.NewReader(wire))
	require.NoError(t, err)
	assert.Equal(t, byte(0x00), p.Key)
	assert.Equal(t, Header{Type: typeSV2, EntryCount: 1, BodySize: 111, Checksum: 0x3F090651}, p.Header)
	assert.Equal(t, payload, p.Payload)
}

func TestWritePart_LayoutMatchesCipherOverConcatenation(t *testing.T) {
	payload := []byte("opaque user data")
	wire, err := WritePart(0x3C, typeUSR, 2, payload)
	require.NoError(t, err)

	sum, err := crypto.Sum32(payload)
	require.NoError(t, err)

	plain := make([]byte, HeaderSize, HeaderSize+len(payload))
	Header{Type: typeUSR, EntryCount: 2, BodySize: uint16(len(payload)), Checksum: sum}.Put(plain)
	plain = append(plain, payload...)

	want := append([]byte{0x3C}, crypto.Bin8(plain, 0x3C)...)
	assert.Equal(t, want, wire)
}

func TestWritePart_RejectsEmptyPayload(t *testing.T) {
	_, err := WritePart(0, typeSV2, 0, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, packet.ErrInvariantViolation)
	assert.ErrorIs(t, err, crypto.ErrInvalidInput)
}

func TestWritePart_RejectsOversizedPayload(t *testing.T) {
	_, err := WritePart(0, typeSV2, 0, make([]byte, MaxBodySize+1))
	require.ErrorIs(t, err, packet.ErrInvariantViolation)
}

func TestPart_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		key := rapid.Byte().Draw(t, "key")
		typ := rapid.SampledFrom([]Type{typeSV2, typeSVR}).Draw(t, "type")
		count := rapid.Uint16().Draw(t, "count")
		payload := rapid.SliceOfN(rapid.Byte(), 1, 4096).Draw(t, "payload")

		wire, err := WritePart(key, typ, count, payload)
		if err != nil {
			t.Fatalf("WritePart: %v", err)
		}
		p, err := ReadPart(bytes.NewReader(wire))
		if err != nil {
			t.Fatalf("ReadPart: %v", err)
		}

		sum, _ := crypto.Sum32(payload)
		want := Header{Type: typ, EntryCount: count, BodySize: uint16(len(payload)), Checksum: sum}
		if p.Key != key || p.Header != want || !bytes.Equal(p.Payload, payload) {
			t.Fatalf("round trip mismatch: key=%d header=%+v, want key=%d header=%+v", p.Key, p.Header, key, want)
		}

		again, err := p.Encode()
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		if !bytes.Equal(again, wire) {
			t.Fatal("re-encoding a decoded part changed the wire bytes")
		}
	})
}

func TestReadPart_Truncated(t *testing.T) {
	wire, err := WritePart(0x21, typeSVR, 1, []byte("payload bytes"))
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "key only", data: wire[:1]},
		{name: "header short by one", data: wire[:PrefixSize-1]},
		{name: "header only", data: wire[:PrefixSize]},
		{name: "payload short by one", data: wire[:len(wire)-1]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadPart(bytes.NewReader(tt.data))
			require.ErrorIs(t, err, packet.ErrTruncated)
		})
	}
}

func TestReadPart_EmptyStreamIsEOF(t *testing.T) {
	_, err := ReadPart(bytes.NewReader(nil))
	assert.ErrorIs(t, err, io.EOF)

	_, err = ReadPart(bytes.NewReader([]byte{0x01}))
	assert.False(t, errors.Is(err, io.EOF), "partial header must not look like a clean EOF")
}

func TestReadPart_ChecksumMismatch(t *testing.T) {
	wire, err := WritePart(0x07, typeSV2, 1, []byte("some server list"))
	require.NoError(t, err)

	// flipping an encrypted payload bit flips the same plaintext bit
	wire[len(wire)-1] ^= 0x01

	p, err := ReadPart(bytes.NewReader(wire))
	require.ErrorIs(t, err, packet.ErrCorruptData)

	var ce *ChecksumError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, p.Header.Checksum, ce.Want)
	assert.NotEqual(t, ce.Want, ce.Got)
	assert.Equal(t, typeSV2, ce.Type)

	assert.Equal(t, []byte("some server lisu"), p.Payload)

	again, err := p.Encode()
	require.NoError(t, err)
	assert.Equal(t, wire, again, "corrupt parts still re-encode to the received bytes")
}

func TestReadPart_ZeroBodySize(t *testing.T) {
	p := Part{Key: 0x10, Header: Header{Type: typeUSR}}
	wire, err := p.Encode()
	require.NoError(t, err)
	require.Len(t, wire, PrefixSize)

	got, err := ReadPart(bytes.NewReader(wire))
	require.NoError(t, err)
	assert.Empty(t, got.Payload)
	assert.Equal(t, typeUSR, got.Header.Type)
}

func TestDecodePart_Consumed(t *testing.T) {
	first, err := WritePart(0x01, typeSV2, 1, []byte("first"))
	require.NoError(t, err)
	second, err := WritePart(0x02, typeUSR, 0, []byte("second!"))
	require.NoError(t, err)

	wire := append(append([]byte{}, first...), second...)

	p, n, err := DecodePart(wire)
	require.NoError(t, err)
	assert.Equal(t, len(first), n)
	assert.Equal(t, []byte("first"), p.Payload)

	p, n, err = DecodePart(wire[n:])
	require.NoError(t, err)
	assert.Equal(t, len(second), n)
	assert.Equal(t, []byte("second!"), p.Payload)
}

func TestReadParts(t *testing.T) {
	sv2, err := WritePart(0x00, typeSV2, 1, []byte("servers"))
	require.NoError(t, err)
	usr, err := WritePart(0x00, typeUSR, 2, []byte("users..."))
	require.NoError(t, err)

	t.Run("clean stream", func(t *testing.T) {
		stream := append(append([]byte{}, sv2...), usr...)
		parts, err := ReadParts(bytes.NewReader(stream))
		require.NoError(t, err)
		require.Len(t, parts, 2)
		assert.Equal(t, typeSV2, parts[0].Header.Type)
		assert.Equal(t, typeUSR, parts[1].Header.Type)
	})

	t.Run("trailing garbage", func(t *testing.T) {
		stream := append(append([]byte{}, sv2...), 0x00, 0x01, 0x02)
		parts, err := ReadParts(bytes.NewReader(stream))
		require.ErrorIs(t, err, packet.ErrTruncated)
		require.Len(t, parts, 1)
	})

	t.Run("corrupt part continues", func(t *testing.T) {
		bad := append([]byte{}, sv2...)
		bad[len(bad)-1] ^= 0xFF
		stream := append(bad, usr...)
		parts, err := ReadParts(bytes.NewReader(stream))
		require.ErrorIs(t, err, packet.ErrCorruptData)
		require.Len(t, parts, 2)
	})
}

func TestPart_EncodeRejectsSizeMismatch(t *testing.T) {
	p := Part{Header: Header{Type: typeSV2, BodySize: 4}, Payload: []byte{1, 2}}
	_, err := p.Encode()
	require.ErrorIs(t, err, packet.ErrInvariantViolation)
}

func TestPart_WriteTo(t *testing.T) {
	p, err := NewPart(0x55, typeSVR, 3, []byte("abc"))
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := p.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(PrefixSize+3), n)

	want, err := WritePart(0x55, typeSVR, 3, []byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, want, buf.Bytes())
}

func TestPart_Plain(t *testing.T) {
	p, err := NewPart(0x00, typeSV2, 1, []byte{0xAA})
	require.NoError(t, err)

	plain := p.Plain()
	require.Len(t, plain, HeaderSize+1)
	h, err := ParseHeader(plain)
	require.NoError(t, err)
	assert.Equal(t, p.Header, h)
	assert.Equal(t, byte(0xAA), plain[HeaderSize])
}

func TestParseType(t *testing.T) {
	typ, err := ParseType("SV2")
	require.NoError(t, err)
	assert.Equal(t, typeSV2, typ)
	assert.Equal(t, "SV2", typ.String())

	_, err = ParseType("SV")
	assert.ErrorIs(t, err, packet.ErrInvariantViolation)
}

func TestParseHeader_Short(t *testing.T) {
	_, err := ParseHeader(make([]byte, HeaderSize-1))
	assert.ErrorIs(t, err, packet.ErrTruncated)
}
