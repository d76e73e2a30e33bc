package onion

import "encoding/binary"

// SerializeBlob prepends a 4-byte little-endian length to blob. This
// framing is unrelated to the big-endian nonce used by DeriveNonce — the
// two byte orders are deliberately different and must never be unified.
func SerializeBlob(blob []byte) []byte {
	out := make([]byte, 4+len(blob))
	binary.LittleEndian.PutUint32(out[:4], uint32(len(blob)))
	copy(out[4:], blob)
	return out
}

// SerializedCombined concatenates a length-prefixed ciphertext blob with
// the raw bytes of a JSON document, with no separator between them. The
// receiving relay knows the blob's length from its own prefix and treats
// everything after it as JSON.
func SerializedCombined(ciphertext []byte, json []byte) []byte {
	blob := SerializeBlob(ciphertext)
	out := make([]byte, len(blob)+len(json))
	copy(out, blob)
	copy(out[len(blob):], json)
	return out
}
