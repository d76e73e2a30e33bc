package onion

import (
	"encoding/base64"
	"encoding/json"
	"testing"
)

func TestDecryptResponseRoundTrip(t *testing.T) {
	sessionKey := make([]byte, 32)
	for i := range sessionKey {
		sessionKey[i] = byte(i)
	}
	plaintext := []byte(`{"result":"ok"}`)

	ciphertext, err := aesGCMEncrypt(plaintext, sessionKey)
	if err != nil {
		t.Fatalf("aesGCMEncrypt: %v", err)
	}
	envelope, err := json.Marshal(Response{
		Body:   base64.StdEncoding.EncodeToString(ciphertext),
		Status: 200,
	})
	if err != nil {
		t.Fatalf("marshaling envelope: %v", err)
	}

	got, err := DecryptResponse(string(envelope), sessionKey)
	if err != nil {
		t.Fatalf("DecryptResponse failed: %v", err)
	}
	if got != string(plaintext) {
		t.Errorf("round trip mismatch: got %q, want %q", got, plaintext)
	}
}

func TestDecryptResponseRejectsNonJSONBody(t *testing.T) {
	if _, err := DecryptResponse(`{not json`, make([]byte, 32)); err == nil {
		t.Error("expected error for a guard body that isn't the JSON envelope")
	}
}

func TestDecryptResponseRejectsBadBase64Body(t *testing.T) {
	envelope, err := json.Marshal(Response{Body: "not-base64!!", Status: 200})
	if err != nil {
		t.Fatalf("marshaling envelope: %v", err)
	}
	if _, err := DecryptResponse(string(envelope), make([]byte, 32)); err == nil {
		t.Error("expected error for a non-base64 body field")
	}
}
