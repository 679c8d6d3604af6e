package packet

import (
	"bytes"
	"testing"
)

func TestWriter_Fields(t *testing.T) {
	w := NewWriter(16)

	if err := w.WriteByte(0x42); err != nil {
		t.Fatalf("WriteByte failed: %v", err)
	}
	w.WriteUint16(0x1234)
	w.WriteUint32(0x7F000001)
	w.WriteBytes([]byte("SV2"))

	want := []byte{0x42, 0x12, 0x34, 0x7F, 0x00, 0x00, 0x01, 'S', 'V', '2'}
	if !bytes.Equal(w.Bytes(), want) {
		t.Errorf("Bytes() = %x, want %x", w.Bytes(), want)
	}
	if w.Len() != len(want) {
		t.Errorf("Len() = %d, want %d", w.Len(), len(want))
	}

	w.Reset()
	if w.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", w.Len())
	}
}

func TestWriterReader_RoundTrip(t *testing.T) {
	w := NewWriter(8)
	w.WriteUint16(54001)
	w.WriteUint32(4096)

	r := NewReader(w.Bytes())
	port, err := r.ReadUint16()
	if err != nil || port != 54001 {
		t.Fatalf("ReadUint16() = %d, %v; want 54001", port, err)
	}
	flags, err := r.ReadUint32()
	if err != nil || flags != 4096 {
		t.Fatalf("ReadUint32() = %d, %v; want 4096", flags, err)
	}
}
