package onion

import "encoding/json"

// Response is the JSON envelope the guard returns. Body still holds the
// target's answer as base64 AES-GCM ciphertext under the innermost session
// key; DecryptResponse opens it.
type Response struct {
	Body   string `json:"body"`
	Status uint32 `json:"status"`
}

// DecryptResponse parses the guard's raw HTTP response body as the
// {"body": <base64>, "status": <u32>} envelope, then AES-GCM decrypts its
// Body field with the session key retained from the innermost (target)
// encryption layer and returns the resulting plaintext.
func DecryptResponse(rawBody string, sessionKey []byte) (string, error) {
	var env Response
	if err := json.Unmarshal([]byte(rawBody), &env); err != nil {
		return "", NewError(KindProtocol, "parsing onion response envelope", err)
	}
	plaintext, err := DecryptGCM(env.Body, sessionKey)
	if err != nil {
		return "", err
	}
	return plaintext, nil
}
