package onion

import (
	"crypto/sha256"
	"encoding/binary"
	"math/bits"
)

// maxNonceAttempts bounds DeriveNonce so a high difficulty can't spin
// forever; callers get an error instead of hanging.
const maxNonceAttempts = 1 << 32

// DeriveNonce searches for the smallest uint64 nonce such that
// sha256(payload || be64(nonce)) has at least difficultyBits leading zero
// bits, writing the nonce in big-endian — the opposite byte order from the
// little-endian blob length prefix used elsewhere in this package. This is
// a standalone utility for callers that want to attach proof of work to a
// payload; the onion builder never invokes it automatically.
func DeriveNonce(payload []byte, difficultyBits int) (uint64, error) {
	if difficultyBits < 0 || difficultyBits > 64 {
		return 0, NewError(KindProtocol, "difficultyBits must be between 0 and 64", nil)
	}
	var nonceBytes [8]byte
	for nonce := uint64(0); nonce < maxNonceAttempts; nonce++ {
		binary.BigEndian.PutUint64(nonceBytes[:], nonce)
		h := sha256.New()
		h.Write(payload)
		h.Write(nonceBytes[:])
		sum := h.Sum(nil)
		if leadingZeroBits(sum) >= difficultyBits {
			return nonce, nil
		}
	}
	return 0, NewError(KindProtocol, "no nonce found within attempt ceiling", nil)
}

func leadingZeroBits(digest []byte) int {
	count := 0
	for _, b := range digest {
		if b == 0 {
			count += 8
			continue
		}
		count += bits.LeadingZeros8(b)
		break
	}
	return count
}
