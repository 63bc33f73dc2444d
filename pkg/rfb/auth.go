package rfb

import (
	"crypto/rand"

	"rfbterm/internal/descipher"
)

// newChallenge generates the 16-byte random VNC auth challenge.
func newChallenge() ([16]byte, error) {
	var c [16]byte
	_, err := rand.Read(c[:])
	return c, err
}

// desKey truncates/pads a password to the 8-byte DES key VNC auth uses.
func desKey(password string) [8]byte {
	var key [8]byte
	copy(key[:], password)
	return key
}

// verifyResponse checks a client's 16-byte DES-encrypted challenge
// response against the expected value computed from password+challenge.
func verifyResponse(password string, challenge [16]byte, response [16]byte) bool {
	expected := descipher.Encrypt(desKey(password), challenge)
	return expected == response
}
