package crypto

// bin8Key is the fixed table mixed into every Binary8 keystream byte.
var bin8Key = [8]byte{0x01, 0x23, 0x34, 0x45, 0x56, 0xAB, 0xCD, 0xEF}

// Binary8 LCG constants. State arithmetic wraps modulo 2^32.
const (
	bin8Multiplier uint32 = 54323
	bin8Increment  uint32 = 1
)

// Bin8Stream generates the Binary8 keystream for one key byte.
//
// Algorithm:
//   - state = 54323*key + 1
//   - out[i] = in[i] ^ bin8Key[i & 7] ^ byte(state >> 13), then state = 54323*state + 1
//
// The transform is an involution: encrypt and decrypt are the same call.
// Consecutive XORKeyStream calls continue the same run, so a header and the
// payload following it can be processed in two steps without restarting the
// keystream. Bin8Stream satisfies crypto/cipher.Stream.
type Bin8Stream struct {
	state uint32
	pos   int
}

// NewBin8Stream returns a keystream positioned at the first byte.
func NewBin8Stream(key byte) *Bin8Stream {
	return &Bin8Stream{state: bin8Next(uint32(key))}
}

// XORKeyStream XORs each byte of src with the next keystream byte and
// writes the result to dst. dst and src may overlap exactly (in-place).
// Panics if dst is shorter than src, like crypto/cipher.Stream.
func (s *Bin8Stream) XORKeyStream(dst, src []byte) {
	if len(dst) < len(src) {
		panic("crypto: bin8 output smaller than input")
	}
	for i, b := range src {
		dst[i] = b ^ bin8Key[s.pos&7] ^ byte(s.state>>13)
		s.state = bin8Next(s.state)
		s.pos++
	}
}

// Bin8 applies a fresh Binary8 keystream to data and returns a new slice of
// the same length. Applying it twice with the same key restores data.
func Bin8(data []byte, key byte) []byte {
	out := make([]byte, len(data))
	NewBin8Stream(key).XORKeyStream(out, data)
	return out
}

// Bin8InPlace is Bin8 without allocation; data is overwritten.
func Bin8InPlace(data []byte, key byte) {
	NewBin8Stream(key).XORKeyStream(data, data)
}

func bin8Next(state uint32) uint32 {
	return bin8Multiplier*state + bin8Increment
}
