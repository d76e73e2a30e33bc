package onion

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestSerializeBlob(t *testing.T) {
	blob := []byte("hello")
	out := SerializeBlob(blob)

	if len(out) != 4+len(blob) {
		t.Fatalf("len = %d, want %d", len(out), 4+len(blob))
	}
	gotLen := binary.LittleEndian.Uint32(out[:4])
	if gotLen != uint32(len(blob)) {
		t.Errorf("length prefix = %d, want %d", gotLen, len(blob))
	}
	if !bytes.Equal(out[4:], blob) {
		t.Error("payload bytes mismatch")
	}
}

func TestSerializeBlobEmpty(t *testing.T) {
	out := SerializeBlob(nil)
	if len(out) != 4 {
		t.Fatalf("len = %d, want 4", len(out))
	}
	if binary.LittleEndian.Uint32(out) != 0 {
		t.Error("expected zero length prefix for empty blob")
	}
}

func TestSerializedCombined(t *testing.T) {
	ciphertext := []byte{0xde, 0xad, 0xbe, 0xef}
	json := []byte(`{"a":1}`)

	out := SerializedCombined(ciphertext, json)

	blobLen := binary.LittleEndian.Uint32(out[:4])
	if blobLen != uint32(len(ciphertext)) {
		t.Fatalf("blob length = %d, want %d", blobLen, len(ciphertext))
	}
	gotCiphertext := out[4 : 4+len(ciphertext)]
	if !bytes.Equal(gotCiphertext, ciphertext) {
		t.Error("ciphertext bytes mismatch")
	}
	gotJSON := out[4+len(ciphertext):]
	if !bytes.Equal(gotJSON, json) {
		t.Error("trailing JSON bytes mismatch")
	}
}
