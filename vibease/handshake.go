package vibease

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
)

const (
	handshakeCommand = "hi"
	sessionKeyMarker = "HS="
)

// HandshakeRequest returns the packets the host writes to ask the peripheral
// for its session key. On the wire this is "$aGk=!".
func HandshakeRequest() []Packet {
	return FragmentAs(PrefixPlainRequest, base64.StdEncoding.EncodeToString([]byte(handshakeCommand)), MaxBodyLen)
}

// IsHandshakeResponse reports whether a decoded message carries a session key.
func IsHandshakeResponse(plaintext []byte) bool {
	return bytes.HasPrefix(plaintext, []byte(sessionKeyMarker))
}

// ParseHandshakeResponse extracts the session key from a decoded "HS=<key><pad>"
// message. The peripheral's own scrambler ignores the last key byte, so it is
// dropped here as well.
func ParseHandshakeResponse(plaintext []byte) (Key, error) {
	if !IsHandshakeResponse(plaintext) {
		return nil, fmt.Errorf("%w: response %q lacks %q", ErrHandshakeFailure, plaintext, sessionKeyMarker)
	}

	raw := plaintext[len(sessionKeyMarker):]
	if len(raw) < 2 {
		return nil, fmt.Errorf("%w: session key in %q is too short", ErrHandshakeFailure, plaintext)
	}
	return NewKey(raw[:len(raw)-1])
}

// DeriveSessionKey reassembles the peripheral's handshake reply, descrambled
// with the secondary key, and returns the session key it carries.
func DeriveSessionKey(packets []string, secondary Key) (Key, error) {
	s, err := NewSession(Keys{TX: secondary, RX: secondary})
	if err != nil {
		return nil, err
	}

	for _, p := range packets {
		complete, plaintext, err := s.AddPacket(p)
		if err != nil {
			return nil, errors.Join(ErrHandshakeFailure, err)
		}
		if complete {
			return ParseHandshakeResponse(plaintext)
		}
	}
	return nil, errors.Join(ErrHandshakeFailure, s.Discard())
}
