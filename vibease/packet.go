package vibease

import "fmt"

// MaxBodyLen is the body length the host uses when fragmenting. Peripheral
// notifications carry up to 18 characters, so it is not enforced on input.
const MaxBodyLen = 16

type Prefix byte

const (
	PrefixRequest       Prefix = '*'
	PrefixContinuation  Prefix = '<'
	PrefixResponse      Prefix = '#'
	PrefixPlainRequest  Prefix = '$'
	PrefixPlainResponse Prefix = '%'
)

func (p Prefix) valid() bool {
	switch p {
	case PrefixRequest, PrefixContinuation, PrefixResponse, PrefixPlainRequest, PrefixPlainResponse:
		return true
	}
	return false
}

// MessageType returns the kind of message a first packet with this prefix starts.
func (p Prefix) MessageType() (MessageType, error) {
	switch p {
	case PrefixRequest:
		return MessageRequest, nil
	case PrefixResponse:
		return MessageResponse, nil
	case PrefixPlainRequest:
		return MessagePlainRequest, nil
	case PrefixPlainResponse:
		return MessagePlainResponse, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnrecognizedPrefix, rune(p))
}

const (
	terminatorMore  = '>'
	terminatorFinal = '!'
)

type MessageType int

const (
	MessageRequest MessageType = iota + 1
	MessageResponse
	MessagePlainRequest
	MessagePlainResponse
)

func (t MessageType) String() string {
	switch t {
	case MessageRequest:
		return "request"
	case MessageResponse:
		return "response"
	case MessagePlainRequest:
		return "plain request"
	case MessagePlainResponse:
		return "plain response"
	}
	return fmt.Sprintf("MessageType(%d)", int(t))
}

// key picks the key a message of this type is scrambled with.
func (t MessageType) key(keys Keys) Key {
	if t == MessageRequest {
		return keys.TX
	}
	// MessagePlainResponse is never descrambled, RX is returned for completeness
	return keys.RX
}

// scrambled reports whether the payload is base64 encoded scrambled data.
func (t MessageType) scrambled() bool {
	return t != MessagePlainResponse
}

// Packet is a single framed write or notification, e.g. "*d0t7Y2RWRwVXQ2N3>".
type Packet string

// ParsePacket validates s and returns it as a Packet.
func ParsePacket(s string) (Packet, error) {
	p := Packet(s)
	if err := p.Validate(); err != nil {
		return "", err
	}
	return p, nil
}

func (p Packet) Validate() error {
	if len(p) < 2 {
		return fmt.Errorf("%w: %q is shorter than 2 characters", ErrMalformedPacket, string(p))
	}
	if !p.Prefix().valid() {
		return fmt.Errorf("%w: %q has unknown prefix %q", ErrMalformedPacket, string(p), p[0])
	}
	switch p[len(p)-1] {
	case terminatorMore, terminatorFinal:
	default:
		return fmt.Errorf("%w: %q has unknown terminator %q", ErrMalformedPacket, string(p), p[len(p)-1])
	}
	return nil
}

// Prefix returns the first character. The packet must be valid.
func (p Packet) Prefix() Prefix {
	if len(p) == 0 {
		return 0
	}
	return Prefix(p[0])
}

// Body strips the prefix and terminator. The packet must be valid.
func (p Packet) Body() string {
	return string(p[1 : len(p)-1])
}

// Final reports whether p is the last packet of its message.
func (p Packet) Final() bool {
	return len(p) > 0 && p[len(p)-1] == terminatorFinal
}
