package onion

import "testing"

func TestParsePubKeyRoundTrip(t *testing.T) {
	const hex64 = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

	k, err := ParsePubKey(hex64, true)
	if err != nil {
		t.Fatalf("ParsePubKey failed: %v", err)
	}
	if k.String() != hex64 {
		t.Errorf("testnet String() = %q, want %q", k.String(), hex64)
	}

	km, err := ParsePubKey(hex64, false)
	if err != nil {
		t.Fatalf("ParsePubKey failed: %v", err)
	}
	if want := "05" + hex64; km.String() != want {
		t.Errorf("mainnet String() = %q, want %q", km.String(), want)
	}
}

func TestParsePubKeyRejectsWrongLength(t *testing.T) {
	if _, err := ParsePubKey("too-short", false); err == nil {
		t.Error("expected error for short input")
	}
}

func TestParsePubKeyRejectsNonHex(t *testing.T) {
	bad := "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz"
	if _, err := ParsePubKey(bad, false); err == nil {
		t.Error("expected error for non-hex input")
	}
}

func TestGenRandomPubKeyUnique(t *testing.T) {
	a, err := GenRandomPubKey(true)
	if err != nil {
		t.Fatalf("GenRandomPubKey failed: %v", err)
	}
	b, err := GenRandomPubKey(true)
	if err != nil {
		t.Fatalf("GenRandomPubKey failed: %v", err)
	}
	if a.String() == b.String() {
		t.Error("two random pubkeys collided, extremely unlikely")
	}
}
