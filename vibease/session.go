package vibease

import (
	"encoding/base64"
	"fmt"
)

type State int

const (
	StateEmpty State = iota
	StateAccumulating
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateAccumulating:
		return "accumulating"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Session assembles the packets of one message and decodes it once the final
// packet arrives. A finished Session is not reused; start a new one for the
// next message.
type Session struct {
	keys      Keys
	state     State
	prefix    Prefix
	packets   []Packet
	plaintext []byte
	err       error
}

func NewSession(keys Keys) (*Session, error) {
	if err := keys.validate(); err != nil {
		return nil, err
	}
	return &Session{keys: keys}, nil
}

// AddPacket appends packet to the message. It returns complete=true together
// with the decoded plaintext when packet is the final one.
//
// Continuation packets are appended whatever their prefix; matching packets to
// the right message is up to the caller.
func (s *Session) AddPacket(packet string) (complete bool, plaintext []byte, err error) {
	switch s.state {
	case StateComplete, StateFailed:
		return false, nil, ErrSessionClosed
	}

	p, err := ParsePacket(packet)
	if err != nil {
		return false, nil, s.fail(err)
	}

	if s.state == StateEmpty {
		s.prefix = p.Prefix()
		s.state = StateAccumulating
	}
	s.packets = append(s.packets, p)

	if !p.Final() {
		return false, nil, nil
	}

	msgType, err := s.prefix.MessageType()
	if err != nil {
		return false, nil, s.fail(err)
	}

	plaintext, err = s.decode(msgType)
	if err != nil {
		return false, nil, s.fail(err)
	}

	s.plaintext = plaintext
	s.state = StateComplete
	return true, plaintext, nil
}

func (s *Session) decode(msgType MessageType) ([]byte, error) {
	joined, err := Defragment(s.packets)
	if err != nil {
		return nil, err
	}

	if !msgType.scrambled() {
		return []byte(joined), nil
	}

	scrambled, err := base64.StdEncoding.DecodeString(joined)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64 payload: %v", ErrMalformedPacket, err)
	}
	return Descramble(scrambled, msgType.key(s.keys))
}

func (s *Session) fail(err error) error {
	s.state = StateFailed
	s.err = err
	return err
}

// Discard abandons the session, for example when the stream ended or stalled.
// It returns ErrIncompleteMessage if packets were accumulated without a final
// packet.
func (s *Session) Discard() error {
	if s.state != StateAccumulating {
		return nil
	}
	return s.fail(fmt.Errorf("%w after %d packet(s)", ErrIncompleteMessage, len(s.packets)))
}

func (s *Session) State() State {
	return s.state
}

// Prefix returns the prefix of the first packet, zero before any packet.
func (s *Session) Prefix() Prefix {
	return s.prefix
}

func (s *Session) MessageType() (MessageType, error) {
	return s.prefix.MessageType()
}

func (s *Session) Packets() []Packet {
	packets := make([]Packet, len(s.packets))
	copy(packets, s.packets)
	return packets
}

// Plaintext is only set once the session is complete.
func (s *Session) Plaintext() []byte {
	return s.plaintext
}

// Err returns the error that failed the session.
func (s *Session) Err() error {
	return s.err
}
