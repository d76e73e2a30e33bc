package onion

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/curve25519"
)

const (
	gcmNonceLength = 12
	gcmTagLength   = 16
	cbcIVLength    = 16
	kdfSalt        = "LOKI"
)

// GenerateX25519KeyPair produces a fresh ephemeral X25519 key pair, clamped
// per RFC 7748. Each pair is meant for exactly one ECDH agreement; it must
// not be reused across layers.
func GenerateX25519KeyPair() (priv [32]byte, pub [32]byte, err error) {
	if _, err = rand.Read(priv[:]); err != nil {
		return priv, pub, NewError(KindCrypto, "generating ephemeral key", err)
	}
	priv[0] &= 248
	priv[31] &= 127
	priv[31] |= 64

	pubSlice, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return priv, pub, NewError(KindCrypto, "computing ephemeral public key", err)
	}
	copy(pub[:], pubSlice)
	return priv, pub, nil
}

// x25519ECDH agrees on a shared secret with peerPubHex, the hop's
// hex-encoded X25519 public key as advertised by the directory.
func x25519ECDH(priv [32]byte, peerPubHex string) ([]byte, error) {
	peerPub, err := hex.DecodeString(peerPubHex)
	if err != nil {
		return nil, NewError(KindCrypto, "decoding peer x25519 key", err)
	}
	if len(peerPub) != 32 {
		return nil, NewError(KindCrypto, fmt.Sprintf("peer x25519 key has length %d, want 32", len(peerPub)), nil)
	}
	shared, err := curve25519.X25519(priv[:], peerPub)
	if err != nil {
		return nil, NewError(KindCrypto, "x25519 agreement", err)
	}
	return shared, nil
}

// deriveSessionKey applies the protocol's weak-by-design KDF: plain
// HMAC-SHA256 keyed on the literal string "LOKI", not a proper HKDF. This
// is preserved for wire compatibility, not a mistake to fix.
func deriveSessionKey(shared []byte) []byte {
	mac := hmac.New(sha256.New, []byte(kdfSalt))
	mac.Write(shared)
	return mac.Sum(nil)
}

// EncryptGCM agrees an ephemeral key with target, derives a session key via
// the "LOKI" KDF, and AES-256-GCM encrypts plaintext under it. It returns
// the iv||ciphertext||tag blob, the derived session key (needed to decrypt
// the eventual response), and the ephemeral public key to hand to the peer.
func EncryptGCM(target NextHop, plaintext []byte) (ciphertext, sessionKey []byte, ephemeralPub [32]byte, err error) {
	priv, pub, err := GenerateX25519KeyPair()
	if err != nil {
		return nil, nil, ephemeralPub, err
	}
	shared, err := x25519ECDH(priv, target.PubkeyX25519())
	if err != nil {
		return nil, nil, ephemeralPub, err
	}
	sessionKey = deriveSessionKey(shared)

	ct, err := aesGCMEncrypt(plaintext, sessionKey)
	if err != nil {
		return nil, nil, ephemeralPub, err
	}
	return ct, sessionKey, pub, nil
}

// DecryptLayer is the receiving-side dual of EncryptGCM: given the private
// half of a node's long-term X25519 key and the sender's hex-encoded
// ephemeral public key, it re-derives the same session key via ECDH and the
// "LOKI" KDF and AES-256-GCM decrypts base64Ciphertext under it. A relay or
// target would use this to open a layer addressed to it; test fixtures use
// it to play that role without a live peer.
func DecryptLayer(priv [32]byte, ephemeralPubHex string, base64Ciphertext string) (plaintext string, sessionKey []byte, err error) {
	shared, err := x25519ECDH(priv, ephemeralPubHex)
	if err != nil {
		return "", nil, err
	}
	sessionKey = deriveSessionKey(shared)
	plaintext, err = DecryptGCM(base64Ciphertext, sessionKey)
	if err != nil {
		return "", nil, err
	}
	return plaintext, sessionKey, nil
}

func aesGCMEncrypt(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, NewError(KindCrypto, "building AES cipher", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, gcmNonceLength)
	if err != nil {
		return nil, NewError(KindCrypto, "building AES-GCM", err)
	}
	iv := make([]byte, gcmNonceLength)
	if _, err := rand.Read(iv); err != nil {
		return nil, NewError(KindCrypto, "generating IV", err)
	}
	// Seal appends ciphertext||tag to iv via the dst argument, producing
	// the exact iv||ciphertext||tag layout the guard expects.
	return gcm.Seal(iv, iv, plaintext, nil), nil
}

// DecryptGCM reverses EncryptGCM's framing: base64-decode, split into
// iv(12)||ciphertext||tag(16), and AES-256-GCM open with an empty AAD. It
// never panics on malformed input — every failure mode returns an error.
func DecryptGCM(base64Ciphertext string, key []byte) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(base64Ciphertext)
	if err != nil {
		return "", NewError(KindCrypto, "base64-decoding response ciphertext", err)
	}
	if len(raw) < gcmNonceLength+gcmTagLength {
		return "", NewError(KindCrypto, fmt.Sprintf("ciphertext too short: %d bytes", len(raw)), nil)
	}
	iv := raw[:gcmNonceLength]
	ciphertext := raw[gcmNonceLength:]

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", NewError(KindCrypto, "building AES cipher", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, gcmNonceLength)
	if err != nil {
		return "", NewError(KindCrypto, "building AES-GCM", err)
	}
	plaintext, err := gcm.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return "", NewError(KindCrypto, "AES-GCM decryption failed", err)
	}
	return string(plaintext), nil
}

// DecryptCBC decrypts a base64 iv(16)||ciphertext blob with AES-256-CBC and
// strips PKCS#7 padding. Used on the token-acquisition path, where the key
// is the raw ECDH output with no "LOKI" KDF applied — unlike DecryptGCM.
func DecryptCBC(base64Ciphertext string, key []byte) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(base64Ciphertext)
	if err != nil {
		return "", NewError(KindCrypto, "base64-decoding response ciphertext", err)
	}
	if len(raw) < cbcIVLength || (len(raw)-cbcIVLength)%aes.BlockSize != 0 {
		return "", NewError(KindCrypto, fmt.Sprintf("malformed CBC blob: %d bytes", len(raw)), nil)
	}
	iv := raw[:cbcIVLength]
	ciphertext := raw[cbcIVLength:]

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", NewError(KindCrypto, "building AES cipher", err)
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext)
	if err != nil {
		return "", err
	}
	return string(unpadded), nil
}

// DeriveAndDecryptCBC agrees a shared secret with peerPubHex and decrypts
// with DecryptCBC using the raw shared secret directly as the AES key — no
// KDF step, unlike every other path in this package.
func DeriveAndDecryptCBC(base64Ciphertext string, priv [32]byte, peerPubHex string) (string, error) {
	shared, err := x25519ECDH(priv, peerPubHex)
	if err != nil {
		return "", err
	}
	return DecryptCBC(base64Ciphertext, shared)
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, NewError(KindCrypto, "empty plaintext before unpadding", nil)
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) || padLen > aes.BlockSize {
		return nil, NewError(KindCrypto, "invalid PKCS#7 padding", nil)
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, NewError(KindCrypto, "invalid PKCS#7 padding", nil)
		}
	}
	return data[:len(data)-padLen], nil
}

// SecureWipe zeroes then overwrites b with random bytes before zeroing it
// again, matching the teacher's key-hygiene helper. Go's garbage collector
// may still have moved/copied the backing array before this runs; this is
// best-effort hardening, not a hard guarantee.
func SecureWipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = 0
	}
}
