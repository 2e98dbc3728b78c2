package vibease

import "errors"

var (
	ErrInvalidKey         = errors.New("key must not be empty")
	ErrMalformedPacket    = errors.New("malformed packet")
	ErrUnrecognizedPrefix = errors.New("unrecognized message prefix")
	ErrDirectionMismatch  = errors.New("packet direction does not match the message in progress")
	ErrIncompleteMessage  = errors.New("message ended without a final packet")
	ErrHandshakeFailure   = errors.New("handshake failed")
	ErrSessionClosed      = errors.New("session already finished")
)
