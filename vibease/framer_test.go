package vibease

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFragmentSizes(t *testing.T) {
	for _, l := range []int{0, 1, 15, 16, 17, 32, 33, 68, 100} {
		payload := strings.Repeat("A", l)
		packets := Fragment(payload, MaxBodyLen)

		want := (l + MaxBodyLen - 1) / MaxBodyLen
		if want == 0 {
			want = 1
		}
		require.Len(t, packets, want, "payload length %d", l)

		for i, p := range packets {
			require.NoError(t, p.Validate())
			if i > 0 && i < len(packets)-1 {
				assert.Len(t, p.Body(), MaxBodyLen)
			}
			assert.Equal(t, i == len(packets)-1, p.Final())
		}

		joined, err := Defragment(packets)
		require.NoError(t, err)
		assert.Equal(t, payload, joined)
	}
}

func TestFragmentSinglePacket(t *testing.T) {
	assert.Equal(t, []Packet{"*eE57Y2RYQgVX!"}, Fragment("eE57Y2RYQgVX", MaxBodyLen))
	assert.Equal(t, []Packet{"*!"}, Fragment("", MaxBodyLen))
	assert.Equal(t, []Packet{"*0123456789abcdef!"}, Fragment("0123456789abcdef", 0))
}

func TestFragmentMarkers(t *testing.T) {
	packets := Fragment("aaaabbbbcccc", 4)
	assert.Equal(t, []Packet{"*aaaa>", "<bbbb>", "<cccc!"}, packets)

	packets = FragmentAs(PrefixResponse, "fSFwIxA6Oy9VNAJTNSECNixC", 18)
	assert.Equal(t, []Packet{"#fSFwIxA6Oy9VNAJTNS>", "<ECNixC!"}, packets)
}

func TestDefragmentStopsAtFinal(t *testing.T) {
	joined, err := Defragment([]Packet{"*abc>", "<def!", "*ghi!"})
	require.NoError(t, err)
	assert.Equal(t, "abcdef", joined)
}

func TestDefragmentErrors(t *testing.T) {
	_, err := Defragment([]Packet{"*abc>", "<def>"})
	assert.ErrorIs(t, err, ErrIncompleteMessage)

	_, err = Defragment(nil)
	assert.ErrorIs(t, err, ErrIncompleteMessage)

	_, err = Defragment([]Packet{"*abc>", "x"})
	assert.ErrorIs(t, err, ErrMalformedPacket)
}

func TestScrambleAndFragment(t *testing.T) {
	pattern := "1200,2200,3200,4200,5200,6200,7200,8200,9200,0200"

	packets, err := ScrambleAndFragment([]byte(pattern), Key("GxJROgt4fnQDVA"))
	require.NoError(t, err)
	assert.Equal(t, vibePatternPackets, packets)

	for _, key := range []Key{PrimaryKey(), SecondaryKey()} {
		packets, err := ScrambleAndFragment([]byte(pattern), key)
		require.NoError(t, err)

		s, err := NewSession(Keys{TX: key, RX: key})
		require.NoError(t, err)
		var plaintext []byte
		for _, p := range packets {
			_, plaintext, err = s.AddPacket(string(p))
			require.NoError(t, err)
		}
		assert.Equal(t, pattern, string(plaintext))
	}

	_, err = ScrambleAndFragment([]byte(pattern), nil)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestParsePacket(t *testing.T) {
	tests := []struct {
		packet string
		valid  bool
	}{
		{"*!", true},
		{"$aGk=!", true},
		{"<RQ==!", true},
		{"%raw text>", true},
		{"#fSFwIxA6Oy9VNAJTNS>", true},
		{"", false},
		{"!", false},
		{"aGk=!", false},
		{"*aGk=", false},
	}
	for _, tt := range tests {
		_, err := ParsePacket(tt.packet)
		if tt.valid {
			assert.NoError(t, err, tt.packet)
		} else {
			assert.ErrorIs(t, err, ErrMalformedPacket, tt.packet)
		}
	}
}
