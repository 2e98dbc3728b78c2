package main

import (
	"encoding/hex"
	"fmt"
	"strings"
)

func bToHex(b []byte) string {
	resp := ""
	for i, bt := range b {
		btAsString := hex.EncodeToString([]byte{bt})
		if i > 0 {
			resp += " "
		}
		resp += btAsString
	}
	return resp
}

func bToUUID(b []byte, bIsInReverse bool) (string, error) {
	if len(b) != 16 {
		return "", fmt.Errorf("a uuid should have a length of 16 bytes, got %d", len(b))
	}

	if bIsInReverse {
		b = reverse(append([]byte{}, b...))
	}

	encoded := hex.EncodeToString(b)
	return fmt.Sprintf("%s-%s-%s-%s-%s", encoded[:8], encoded[8:12], encoded[12:16], encoded[16:20], encoded[20:]), nil
}

func reverse[S ~[]E, E any](s S) S {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
	return s
}

// parseAddress normalizes a device address like "C4:7C:8D:6A:12:0B" to the
// bToHex form.
func parseAddress(address string) (string, error) {
	for _, remove := range []string{" ", "-", ":"} {
		address = strings.ReplaceAll(address, remove, "")
	}

	parsed, err := hex.DecodeString(address)
	if err != nil {
		return "", err
	}
	if len(parsed) != 6 {
		return "", fmt.Errorf("expected a 6 byte address, got %d bytes", len(parsed))
	}
	return bToHex(parsed), nil
}
