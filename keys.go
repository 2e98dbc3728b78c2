package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mjarkk/decode-vibease-ble-packets/vibease"
)

// parseKeyOption resolves a --key style flag. "primary" and "secondary" name
// the static keys, "hex:" decodes raw bytes and anything else is used as is.
func parseKeyOption(option string) (vibease.Key, error) {
	switch option {
	case "primary":
		return vibease.PrimaryKey(), nil
	case "secondary":
		return vibease.SecondaryKey(), nil
	}

	if rawHex, ok := strings.CutPrefix(option, "hex:"); ok {
		raw, err := hex.DecodeString(rawHex)
		if err != nil {
			return nil, fmt.Errorf("invalid hex key: %w", err)
		}
		return vibease.NewKey(raw)
	}

	return vibease.NewKey([]byte(option))
}

func parseKeys(tx, rx string) (vibease.Keys, error) {
	txKey, err := parseKeyOption(tx)
	if err != nil {
		return vibease.Keys{}, fmt.Errorf("tx key: %w", err)
	}
	rxKey, err := parseKeyOption(rx)
	if err != nil {
		return vibease.Keys{}, fmt.Errorf("rx key: %w", err)
	}
	return vibease.Keys{TX: txKey, RX: rxKey}, nil
}
