package onion

import "fmt"

// ErrorKind buckets failures by which layer produced them, mirroring the
// taxonomy every component in this module reports against: config,
// transport, protocol, crypto, directory.
type ErrorKind string

const (
	KindConfig     ErrorKind = "CONFIG"
	KindTransport  ErrorKind = "TRANSPORT"
	KindProtocol   ErrorKind = "PROTOCOL"
	KindCrypto     ErrorKind = "CRYPTO"
	KindDirectory  ErrorKind = "DIRECTORY"
)

// Error is a kind-tagged failure. Components never panic on
// attacker- or network-controlled input; they return an *Error instead.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a kind-tagged error wrapping an optional cause.
func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// RequestError reports a failed onion request, carrying the path that was
// in use when the failure occurred so callers can log or score the
// offending hops. It does not itself imply which component failed; check
// Cause's Kind for that.
type RequestError struct {
	Message string
	Path    OnionPath
	Cause   error
}

func (e *RequestError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("onion request via %s -> %s -> %s -> %s: %s: %v",
			e.Path.Node1, e.Path.Node2, e.Path.Node3, e.Path.Target, e.Message, e.Cause)
	}
	return fmt.Sprintf("onion request via %s -> %s -> %s -> %s: %s",
		e.Path.Node1, e.Path.Node2, e.Path.Node3, e.Path.Target, e.Message)
}

func (e *RequestError) Unwrap() error { return e.Cause }
