package onion

import (
	"encoding/hex"
	"encoding/json"
)

// encryptionContext carries the ciphertext produced for one layer plus the
// key material needed to either decrypt its eventual response or wrap it
// for the next layer out.
type encryptionContext struct {
	ciphertext   []byte
	sessionKey   []byte
	ephemeralPub [32]byte
}

// Build constructs the full four-layer envelope for path and returns the
// bytes to POST to the guard (path.Node1) along with the session key that
// decrypts the eventual response. Layer order matches the path from the
// inside out: target is encrypted first, then node_3, then node_2, then
// node_1, so each relay can only decrypt the layer meant for it.
func Build(path OnionPath, payload []byte) ([]byte, []byte, error) {
	if !path.Node1.IsNode() {
		panic("onion: path's first hop is not a Node; guard must be a storage node")
	}

	ctx1, err := encryptForTarget(path.Target, payload)
	if err != nil {
		return nil, nil, err
	}
	ctx2, err := encryptForRelay(path.Node3, path.Target, ctx1)
	if err != nil {
		return nil, nil, err
	}
	ctx3, err := encryptForRelay(path.Node2, path.Node3, ctx2)
	if err != nil {
		return nil, nil, err
	}
	ctx4, err := encryptForRelay(path.Node1, path.Node2, ctx3)
	if err != nil {
		return nil, nil, err
	}
	// Only the target layer's key is needed afterwards, to decrypt the
	// response; the relay layers' keys are wiped once their ciphertext exists.
	SecureWipe(ctx2.sessionKey)
	SecureWipe(ctx3.sessionKey)
	SecureWipe(ctx4.sessionKey)
	return payloadForGuard(ctx4), ctx1.sessionKey, nil
}

// encryptForRelay wraps ctx's ciphertext for relay, telling it to forward
// to nextHop. The routing JSON fields present depend on nextHop's variant:
// a node destination is named by its ed25519 pubkey; a server destination
// carries host/target (plus port/protocol for V2).
func encryptForRelay(relay, nextHop NextHop, ctx encryptionContext) (encryptionContext, error) {
	routing := map[string]interface{}{
		"ephemeral_key": hex.EncodeToString(ctx.ephemeralPub[:]),
	}
	switch {
	case nextHop.IsNode():
		routing["destination"] = nextHop.Node().PubkeyEd25519
	case nextHop.IsServer():
		s := nextHop.Server()
		routing["host"] = s.Host
		routing["target"] = s.Target
	case nextHop.IsServerV2():
		s := nextHop.ServerV2()
		routing["host"] = s.Host
		routing["target"] = s.Target
		routing["port"] = s.Port
		routing["protocol"] = s.Protocol
	}

	routingJSON, err := json.Marshal(routing)
	if err != nil {
		return encryptionContext{}, NewError(KindProtocol, "marshaling relay routing JSON", err)
	}

	plaintext := SerializedCombined(ctx.ciphertext, routingJSON)
	return sealLayer(relay, plaintext)
}

// encryptForTarget builds the innermost plaintext and seals it to the
// final destination. A Node target gets an extra "json around json" wrap
// (an empty headers object) that servers don't need, since servers expect
// the raw payload bytes as their plaintext.
func encryptForTarget(target NextHop, payload []byte) (encryptionContext, error) {
	if target.IsNode() {
		headers, err := json.Marshal(map[string]string{"headers": ""})
		if err != nil {
			return encryptionContext{}, NewError(KindProtocol, "marshaling target headers JSON", err)
		}
		plaintext := SerializedCombined(payload, headers)
		return sealLayer(target, plaintext)
	}
	// Server and ServerV2 targets take the raw payload directly; it must
	// already be valid UTF-8 JSON text.
	return sealLayer(target, payload)
}

func sealLayer(hop NextHop, plaintext []byte) (encryptionContext, error) {
	ciphertext, sessionKey, ephemeralPub, err := EncryptGCM(hop, plaintext)
	if err != nil {
		return encryptionContext{}, err
	}
	return encryptionContext{ciphertext: ciphertext, sessionKey: sessionKey, ephemeralPub: ephemeralPub}, nil
}

// payloadForGuard builds the body sent to the guard node. Unlike inner
// relay layers, it carries no destination field: the guard already knows
// who sent it the request and only needs the ephemeral key to decrypt it.
func payloadForGuard(ctx encryptionContext) []byte {
	routing := map[string]string{"ephemeral_key": hex.EncodeToString(ctx.ephemeralPub[:])}
	routingJSON, _ := json.Marshal(routing) // map[string]string never fails to marshal
	return SerializedCombined(ctx.ciphertext, routingJSON)
}
