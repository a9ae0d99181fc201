package credential

import (
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrEmptyKey is returned when obfuscation is attempted without key material.
var ErrEmptyKey = errors.New("obfuscation key is empty")

// Obfuscate XORs plain against key byte by byte and base64-encodes the result.
// This hides the value from casual inspection only: the key ships with the
// client, so anyone with access to storage can reverse it.
func Obfuscate(plain string, key []byte) (string, error) {
	if len(key) == 0 {
		return "", ErrEmptyKey
	}
	return base64.StdEncoding.EncodeToString(xor([]byte(plain), key)), nil
}

// Deobfuscate reverses Obfuscate.
func Deobfuscate(encoded string, key []byte) (string, error) {
	if len(key) == 0 {
		return "", ErrEmptyKey
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode obfuscated value: %w", err)
	}
	return string(xor(raw, key)), nil
}

func xor(data, key []byte) []byte {
	out := make([]byte, len(data))
	for i := range data {
		out[i] = data[i] ^ key[i%len(key)]
	}
	return out
}
