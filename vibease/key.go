package vibease

// Compiled into the vendor app; the peripheral expects them verbatim.
const (
	primaryKey   = "2iYNPjW9ptZj6L7snPfPWIH5onzQ0V1p"
	secondaryKey = "4sRewsha3G54ZqEcjr9Iadexd1sKB8vr"
)

// Key is a non-empty byte sequence applied cyclically by Scramble and Descramble.
type Key []byte

// NewKey returns a copy of b as a Key.
func NewKey(b []byte) (Key, error) {
	if len(b) == 0 {
		return nil, ErrInvalidKey
	}
	k := make(Key, len(b))
	copy(k, b)
	return k, nil
}

// PrimaryKey returns the first static key.
func PrimaryKey() Key {
	return Key(primaryKey)
}

// SecondaryKey returns the static key used before and during the handshake.
func SecondaryKey() Key {
	return Key(secondaryKey)
}

func (k Key) String() string {
	return string(k)
}

// Keys holds the key pair a Session selects from.
// TX decodes host requests, RX decodes everything else.
type Keys struct {
	TX Key
	RX Key
}

// DefaultKeys returns the keys in effect before a session key is known.
func DefaultKeys() Keys {
	return Keys{TX: SecondaryKey(), RX: SecondaryKey()}
}

// WithSessionKey returns a copy of k with the handshake key in place of TX.
// Captured traffic is inconsistent about RX, so replacing it is left to the caller.
func (k Keys) WithSessionKey(hs Key, includeRX bool) Keys {
	k.TX = hs
	if includeRX {
		k.RX = hs
	}
	return k
}

func (k Keys) validate() error {
	if len(k.TX) == 0 || len(k.RX) == 0 {
		return ErrInvalidKey
	}
	return nil
}
