package onion

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strconv"
)

// PubKey is a swarm-addressable public key: four big-endian uint64 limbs
// plus a network tag that controls its canonical string prefix.
type PubKey struct {
	limbs     [4]uint64
	isTestnet bool
}

// ParsePubKey decodes a 64-character hex pubkey string into four 16-hex-char
// big-endian limbs. It returns an error rather than panicking on malformed
// input, since pubkeys arrive from untrusted directory/network data.
func ParsePubKey(data string, isTestnet bool) (PubKey, error) {
	if len(data) != 64 {
		return PubKey{}, fmt.Errorf("onion: pubkey must be 64 hex chars, got %d", len(data))
	}
	var limbs [4]uint64
	for i := 0; i < 4; i++ {
		chunk := data[i*16 : (i+1)*16]
		v, err := strconv.ParseUint(chunk, 16, 64)
		if err != nil {
			return PubKey{}, fmt.Errorf("onion: pubkey chunk %q is not hex: %w", chunk, err)
		}
		limbs[i] = v
	}
	return PubKey{limbs: limbs, isTestnet: isTestnet}, nil
}

// GenRandomPubKey produces a pubkey with four random 64-bit limbs, used to
// synthesize test-traffic addresses.
func GenRandomPubKey(isTestnet bool) (PubKey, error) {
	var raw [32]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return PubKey{}, fmt.Errorf("onion: generating random pubkey: %w", err)
	}
	var limbs [4]uint64
	for i := range limbs {
		limbs[i] = binary.BigEndian.Uint64(raw[i*8 : i*8+8])
	}
	return PubKey{limbs: limbs, isTestnet: isTestnet}, nil
}

// String renders the canonical wire form: testnet keys have no prefix,
// mainnet keys are prefixed with "05". Endianness here is unrelated to the
// little-endian blob framing used elsewhere in this package — do not unify.
func (k PubKey) String() string {
	if k.isTestnet {
		return fmt.Sprintf("%016x%016x%016x%016x", k.limbs[0], k.limbs[1], k.limbs[2], k.limbs[3])
	}
	return fmt.Sprintf("05%016x%016x%016x%016x", k.limbs[0], k.limbs[1], k.limbs[2], k.limbs[3])
}
