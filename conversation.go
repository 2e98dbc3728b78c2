package main

import (
	"fmt"
	"time"

	"github.com/mjarkk/decode-vibease-ble-packets/vibease"
)

type direction byte

const (
	dirWrite  direction = 'w'
	dirNotify direction = 'r'
)

func (d direction) String() string {
	switch d {
	case dirWrite:
		return "write"
	case dirNotify:
		return "notify"
	}
	return fmt.Sprintf("direction(%d)", byte(d))
}

// message is a fully reassembled and decoded exchange.
type message struct {
	nr        Nr
	dir       direction
	prefix    vibease.Prefix
	packets   []vibease.Packet
	plaintext []byte

	// sessionKey is set when the message was a handshake reply.
	sessionKey vibease.Key
}

// conversation follows the messages of one connection. Only a single message
// is assembled at a time; packets of the other direction arriving in between
// are rejected.
type conversation struct {
	keys         vibease.Keys
	rxSessionKey bool
	stallTimeout time.Duration

	session  *vibease.Session
	dir      direction
	startNr  Nr
	lastSeen timestamp
}

func newConversation(keys vibease.Keys, rxSessionKey bool, stallTimeout time.Duration) *conversation {
	return &conversation{
		keys:         keys,
		rxSessionKey: rxSessionKey,
		stallTimeout: stallTimeout,
	}
}

// expire drops the message in progress if nothing was added to it for longer
// than the stall timeout.
func (c *conversation) expire(now timestamp) error {
	if c.session == nil || c.stallTimeout <= 0 || now.since(c.lastSeen) <= c.stallTimeout {
		return nil
	}
	return c.discard()
}

// close drops the message in progress at the end of the stream.
func (c *conversation) close() error {
	return c.discard()
}

func (c *conversation) discard() error {
	if c.session == nil {
		return nil
	}
	err := c.session.Discard()
	c.session = nil
	if err != nil {
		return fmt.Errorf("%s message started at %d: %w", c.dir, c.startNr, err)
	}
	return nil
}

// feed adds one packet and returns the message it completed, if any.
func (c *conversation) feed(nr Nr, at timestamp, dir direction, packet []byte) (*message, error) {
	if c.session == nil {
		s, err := vibease.NewSession(c.keys)
		if err != nil {
			return nil, err
		}
		c.session = s
		c.dir = dir
		c.startNr = nr
		logger.Debugf("%d: new %s message", nr, dir)
	}

	if dir != c.dir {
		return nil, fmt.Errorf("%w: %s packet %d found in the middle of a %s message started at %d",
			vibease.ErrDirectionMismatch, dir, nr, c.dir, c.startNr)
	}
	c.lastSeen = at

	complete, plaintext, err := c.session.AddPacket(string(packet))
	if err != nil {
		c.session = nil
		return nil, err
	}
	if !complete {
		return nil, nil
	}

	msg := &message{
		nr:        c.startNr,
		dir:       c.dir,
		prefix:    c.session.Prefix(),
		packets:   c.session.Packets(),
		plaintext: plaintext,
	}
	c.session = nil

	if vibease.IsHandshakeResponse(plaintext) {
		key, err := vibease.ParseHandshakeResponse(plaintext)
		if err != nil {
			// keep the static keys, never guess
			return msg, err
		}
		msg.sessionKey = key
		c.keys = c.keys.WithSessionKey(key, c.rxSessionKey)
		logger.Infof("%d: HS key identified: %s", nr, key)
	}

	return msg, nil
}
