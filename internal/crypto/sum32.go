package crypto

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrInvalidInput is returned when a primitive is called with input it
// cannot process (Sum32 on an empty payload).
var ErrInvalidInput = errors.New("invalid input")

// Sum32 mixing tables. Protocol constants: clients validate against them.
var (
	sum32Table0 = [7]byte{0x35, 0x7A, 0xAA, 0x97, 0x53, 0x66, 0x12}
	sum32Table1 = [9]byte{0x7A, 0xAA, 0x97, 0x53, 0x66, 0x12, 0xDE, 0xDE, 0x35}
)

// Sum32 computes the Binary8 payload checksum.
//
// Two 8-bit counters are seeded with len(data) and data[len(data)/2]. For
// every byte both counters are incremented (wrapping at 256) and
//
//	out[i & 3] += table1[t1 % 9] ^ table0[t0 % 7] ^ data[i]
//
// with byte arithmetic. The 4-byte accumulator is read as big-endian.
// This is a corruption check, not a hash.
func Sum32(data []byte) (uint32, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("sum32 of empty payload: %w", ErrInvalidInput)
	}

	t0 := byte(len(data))
	t1 := data[len(data)>>1]

	var out [4]byte
	for i, b := range data {
		t0++
		t1++
		out[i&3] += sum32Table1[t1%9] ^ sum32Table0[t0%7] ^ b
	}
	return binary.BigEndian.Uint32(out[:]), nil
}
