package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestSum32_KnownVectors(t *testing.T) {
	seq300 := make([]byte, 300)
	for i := range seq300 {
		seq300[i] = byte(i)
	}

	tests := []struct {
		name string
		data []byte
		want uint32
	}{
		{
			name: "ascii",
			data: []byte("test"),
			want: 0x270DEC99,
		},
		{
			// longer than 256 bytes: both counters wrap
			name: "counters wrap",
			data: seq300,
			want: 0x9F7238E8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sum32(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got, "Sum32() = 0x%08X, want 0x%08X", got, tt.want)
		})
	}
}

func TestSum32_EmptyInput(t *testing.T) {
	_, err := Sum32(nil)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = Sum32([]byte{})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestSum32_Deterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := rapid.SliceOfN(rapid.Byte(), 1, 1024).Draw(t, "data")

		a, err := Sum32(data)
		if err != nil {
			t.Fatalf("Sum32: %v", err)
		}
		b, err := Sum32(data)
		if err != nil {
			t.Fatalf("Sum32: %v", err)
		}
		if a != b {
			t.Fatalf("Sum32 not deterministic: 0x%08X != 0x%08X", a, b)
		}
	})
}

func TestSum32_SingleByteChange(t *testing.T) {
	// Flipping a byte that is not the midpoint only changes one accumulator lane.
	data := []byte("MHF entrance server list payload")
	base, err := Sum32(data)
	require.NoError(t, err)

	for i := range data {
		if i == len(data)/2 {
			continue
		}
		mutated := append([]byte(nil), data...)
		mutated[i] ^= 0x01

		got, err := Sum32(mutated)
		require.NoError(t, err)
		assert.NotEqual(t, base, got, "flipping byte %d did not change the checksum", i)
	}
}
