package main

import (
	"testing"
	"time"

	"github.com/mjarkk/decode-vibease-ble-packets/vibease"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var vibePattern = []string{
	"*d0t7Y2RWRwVXQ2N3>",
	"<Z3JsTXljgExCB1df>",
	"<fnNlcnhVfmGAWFkN>",
	"<VV9iaXB0eElnY35Y>",
	"<RQ==!",
}

func TestConversationReplay(t *testing.T) {
	c := newConversation(vibease.DefaultKeys(), false, time.Second)

	msg, err := c.feed(1, 0, dirWrite, []byte("$aGk=!"))
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, vibease.PrefixPlainRequest, msg.prefix)
	assert.Nil(t, msg.sessionKey)

	msg, err = c.feed(2, 10, dirNotify, []byte("#fSFwIxA6Oy9VNAJTNS>"))
	require.NoError(t, err)
	assert.Nil(t, msg)

	// a write in the middle of the reply is rejected without touching it
	msg, err = c.feed(3, 20, dirWrite, []byte(vibePattern[0]))
	assert.ErrorIs(t, err, vibease.ErrDirectionMismatch)
	assert.Nil(t, msg)

	msg, err = c.feed(4, 30, dirNotify, []byte("<ECNixC!"))
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, Nr(2), msg.nr)
	assert.Equal(t, dirNotify, msg.dir)
	assert.Equal(t, "HS=GxJROgt4fnQDVA3", string(msg.plaintext))
	assert.Equal(t, vibease.Key("GxJROgt4fnQDVA"), msg.sessionKey)
	assert.Equal(t, vibease.Key("GxJROgt4fnQDVA"), c.keys.TX)
	assert.Equal(t, vibease.SecondaryKey(), c.keys.RX)

	for i, p := range vibePattern {
		msg, err = c.feed(Nr(5+i), timestamp(40+i), dirWrite, []byte(p))
		require.NoError(t, err)
	}
	require.NotNil(t, msg)
	assert.Equal(t, Nr(5), msg.nr)
	assert.Len(t, msg.packets, 5)
	assert.Equal(t, "1200,2200,3200,4200,5200,6200,7200,8200,9200,0200", string(msg.plaintext))

	msg, err = c.feed(10, 50, dirWrite, []byte("*eE57Y2RYQgVX!"))
	require.NoError(t, err)
	assert.Equal(t, "0500,0500", string(msg.plaintext))

	assert.NoError(t, c.close())
}

func TestConversationSessionKeyForRX(t *testing.T) {
	c := newConversation(vibease.DefaultKeys(), true, 0)
	_, err := c.feed(1, 0, dirNotify, []byte("#fSFwIxA6Oy9VNAJTNS>"))
	require.NoError(t, err)
	_, err = c.feed(2, 0, dirNotify, []byte("<ECNixC!"))
	require.NoError(t, err)

	assert.Equal(t, vibease.Key("GxJROgt4fnQDVA"), c.keys.RX)
}

func TestConversationStall(t *testing.T) {
	c := newConversation(vibease.DefaultKeys(), false, time.Second)

	_, err := c.feed(1, 0, dirWrite, []byte(vibePattern[0]))
	require.NoError(t, err)

	assert.NoError(t, c.expire(timestamp(time.Second.Microseconds())))

	err = c.expire(timestamp(2 * time.Second.Microseconds()))
	assert.ErrorIs(t, err, vibease.ErrIncompleteMessage)
	assert.Nil(t, c.session)

	// the next packet starts a fresh message
	_, err = c.feed(2, 0, dirNotify, []byte("%OK!"))
	assert.NoError(t, err)
}

func TestConversationErrorsResetMessage(t *testing.T) {
	c := newConversation(vibease.DefaultKeys(), false, 0)

	_, err := c.feed(1, 0, dirWrite, []byte(vibePattern[0]))
	require.NoError(t, err)
	_, err = c.feed(2, 0, dirWrite, []byte("garbage"))
	assert.ErrorIs(t, err, vibease.ErrMalformedPacket)
	assert.Nil(t, c.session)

	_, err = c.feed(3, 0, dirWrite, []byte(vibePattern[0]))
	require.NoError(t, err)
	assert.ErrorIs(t, c.close(), vibease.ErrIncompleteMessage)
}

func TestConversationBadHandshakeKeepsKeys(t *testing.T) {
	keys := vibease.DefaultKeys()
	c := newConversation(keys, true, 0)

	reply, err := vibease.Scramble([]byte("HS=x"), keys.RX)
	require.NoError(t, err)
	packets := vibease.FragmentAs(vibease.PrefixResponse, b64(reply), vibease.MaxBodyLen)
	require.Len(t, packets, 1)

	msg, err := c.feed(1, 0, dirNotify, []byte(packets[0]))
	assert.ErrorIs(t, err, vibease.ErrHandshakeFailure)
	require.NotNil(t, msg)
	assert.Equal(t, keys, c.keys)
}
