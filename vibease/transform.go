package vibease

// Scramble obfuscates plaintext: every byte is XORed with the cycling key and
// incremented by one. This is not encryption.
func Scramble(plaintext []byte, key Key) ([]byte, error) {
	if len(key) == 0 {
		return nil, ErrInvalidKey
	}

	cryptext := make([]byte, len(plaintext))
	for i, b := range plaintext {
		cryptext[i] = (b ^ key[i%len(key)]) + 1
	}
	return cryptext, nil
}

// Descramble reverses Scramble.
func Descramble(cryptext []byte, key Key) ([]byte, error) {
	if len(key) == 0 {
		return nil, ErrInvalidKey
	}

	plaintext := make([]byte, len(cryptext))
	for i, b := range cryptext {
		// uint8 arithmetic, 0x00 wraps to 0xff
		plaintext[i] = (b - 1) ^ key[i%len(key)]
	}
	return plaintext, nil
}
