package vibease

import (
	"encoding/base64"
	"strings"
)

// Fragment splits a base64 payload into packets of at most maxBodyLen body
// characters. A non-positive maxBodyLen means MaxBodyLen.
func Fragment(payload string, maxBodyLen int) []Packet {
	return FragmentAs(PrefixRequest, payload, maxBodyLen)
}

// FragmentAs is Fragment with a custom prefix on the first packet.
func FragmentAs(prefix Prefix, payload string, maxBodyLen int) []Packet {
	if maxBodyLen <= 0 {
		maxBodyLen = MaxBodyLen
	}

	nBlocks := len(payload) / maxBodyLen
	if len(payload)%maxBodyLen != 0 || nBlocks == 0 {
		nBlocks++
	}

	packets := make([]Packet, 0, nBlocks)
	for b := 0; b < nBlocks; b++ {
		end := (b + 1) * maxBodyLen
		if end > len(payload) {
			end = len(payload)
		}
		chunk := payload[b*maxBodyLen : end]

		start := PrefixContinuation
		if b == 0 {
			start = prefix
		}
		terminator := rune(terminatorMore)
		if b == nBlocks-1 {
			terminator = terminatorFinal
		}
		packets = append(packets, Packet(string(rune(start))+chunk+string(terminator)))
	}
	return packets
}

// Defragment joins packet bodies up to and including the first final packet.
// Packets after the final one are ignored.
func Defragment(packets []Packet) (string, error) {
	var b64 strings.Builder
	for _, p := range packets {
		if err := p.Validate(); err != nil {
			return "", err
		}
		b64.WriteString(p.Body())
		if p.Final() {
			return b64.String(), nil
		}
	}
	return "", ErrIncompleteMessage
}

// ScrambleAndFragment turns a plaintext command into wire packets the way the
// vendor app does.
func ScrambleAndFragment(plaintext []byte, key Key) ([]Packet, error) {
	scrambled, err := Scramble(plaintext, key)
	if err != nil {
		return nil, err
	}
	return Fragment(base64.StdEncoding.EncodeToString(scrambled), MaxBodyLen), nil
}
