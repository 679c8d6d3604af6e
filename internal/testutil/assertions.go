package testutil

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"testing"

	"golang.org/x/text/encoding/japanese"
)

// AssertByteAtOffset checks a single byte of a plaintext buffer.
func AssertByteAtOffset(t testing.TB, expected byte, buf []byte, offset int) {
	t.Helper()

	if len(buf) <= offset {
		t.Fatalf("buffer too short: need %d bytes, got %d", offset+1, len(buf))
	}

	actual := buf[offset]
	if actual != expected {
		t.Fatalf("byte mismatch at offset %d: expected 0x%02X, got 0x%02X", offset, expected, actual)
	}
}

// AssertUint16BE checks a big-endian uint16 at offset.
func AssertUint16BE(t testing.TB, expected uint16, buf []byte, offset int) {
	t.Helper()

	if len(buf) < offset+2 {
		t.Fatalf("buffer too short: need %d bytes for uint16 at offset %d, got %d",
			offset+2, offset, len(buf))
	}

	actual := binary.BigEndian.Uint16(buf[offset:])
	if actual != expected {
		t.Fatalf("uint16 mismatch at offset %d: expected %d, got %d", offset, expected, actual)
	}
}

// AssertUint32BE checks a big-endian uint32 at offset.
func AssertUint32BE(t testing.TB, expected uint32, buf []byte, offset int) {
	t.Helper()

	if len(buf) < offset+4 {
		t.Fatalf("buffer too short: need %d bytes for uint32 at offset %d, got %d",
			offset+4, offset, len(buf))
	}

	actual := binary.BigEndian.Uint32(buf[offset:])
	if actual != expected {
		t.Fatalf("uint32 mismatch at offset %d: expected 0x%08X, got 0x%08X", offset, expected, actual)
	}
}

// AssertSJISString checks a NUL-terminated Shift-JIS string at offset.
func AssertSJISString(t testing.TB, expected string, buf []byte, offset int) {
	t.Helper()

	if len(buf) <= offset {
		t.Fatalf("buffer too short for string at offset %d, got %d bytes", offset, len(buf))
	}

	raw := buf[offset:]
	nul := bytes.IndexByte(raw, 0)
	if nul == -1 {
		t.Fatalf("Shift-JIS string at offset %d has no NUL terminator", offset)
	}

	actual, err := japanese.ShiftJIS.NewDecoder().Bytes(raw[:nul])
	if err != nil {
		t.Fatalf("decoding Shift-JIS at offset %d: %v", offset, err)
	}
	if string(actual) != expected {
		t.Fatalf("Shift-JIS string mismatch at offset %d: expected %q, got %q", offset, expected, actual)
	}
}

// AssertLength checks the buffer length.
func AssertLength(t testing.TB, expected int, buf []byte) {
	t.Helper()

	if len(buf) != expected {
		t.Fatalf("length mismatch: expected %d bytes, got %d bytes\n%s", expected, len(buf), Dump(buf))
	}
}

// Dump returns a hex dump of buf for failure messages.
func Dump(buf []byte) string {
	var out bytes.Buffer
	for i := 0; i < len(buf); i += 16 {
		end := min(i+16, len(buf))
		chunk := buf[i:end]

		fmt.Fprintf(&out, "%04x  ", i)

		for j, b := range chunk {
			if j == 8 {
				out.WriteString(" ")
			}
			fmt.Fprintf(&out, "%02x ", b)
		}

		// Padding
		for j := len(chunk); j < 16; j++ {
			if j == 8 {
				out.WriteString(" ")
			}
			out.WriteString("   ")
		}

		out.WriteString(" |")
		for _, b := range chunk {
			if b >= 32 && b <= 126 {
				out.WriteByte(b)
			} else {
				out.WriteByte('.')
			}
		}
		out.WriteString("|\n")
	}
	return out.String()
}
